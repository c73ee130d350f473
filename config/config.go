package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the import service
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Auth     AuthConfig     `yaml:"auth"`
	Import   ImportConfig   `yaml:"import"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port int `yaml:"port"`
}

// DatabaseConfig holds the sqlite database location
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level string `yaml:"level"`
}

// AuthConfig holds operator token settings. An empty secret disables the check.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// ImportConfig holds settings for the customer import pipeline
type ImportConfig struct {
	PreviewRows      int           `yaml:"preview_rows"`
	IdentifierPrefix string        `yaml:"identifier_prefix"`
	RowTimeout       time.Duration `yaml:"row_timeout"`
	MaxUploadMB      int           `yaml:"max_upload_mb"`
	Retention        time.Duration `yaml:"retention"`
}

// Default returns a Config with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the YAML file at path, applies defaults and environment overrides.
// A missing file is not an error; defaults and environment are used instead.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, eris.Wrapf(err, "config: parse %s", path)
			}
		case os.IsNotExist(err):
		default:
			return nil, eris.Wrapf(err, "config: read %s", path)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if cfg.Import.PreviewRows < 0 {
		return nil, eris.New("config: import.preview_rows must not be negative")
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if path := os.Getenv("DATABASE_PATH"); path != "" {
		c.Database.Path = path
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if prefix := os.Getenv("IDENTIFIER_PREFIX"); prefix != "" {
		c.Import.IdentifierPrefix = prefix
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/customers.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Import.PreviewRows == 0 {
		c.Import.PreviewRows = 10
	}
	if c.Import.IdentifierPrefix == "" {
		c.Import.IdentifierPrefix = "C"
	}
	if c.Import.RowTimeout == 0 {
		c.Import.RowTimeout = 10 * time.Second
	}
	if c.Import.MaxUploadMB == 0 {
		c.Import.MaxUploadMB = 20
	}
	if c.Import.Retention == 0 {
		c.Import.Retention = 30 * time.Minute
	}
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Server.Port)
}
