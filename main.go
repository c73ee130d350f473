package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"customer-import/common"
	"customer-import/config"
	"customer-import/customers"
	"customer-import/exports"
	"customer-import/imports"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	// Migrate domain models
	if err := customers.AutoMigrate(db); err != nil {
		return err
	}

	// Migrate job tracking tables
	return common.AutoMigrateJobs(db)
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	logger, err := common.InitLogger(cfg.Log.Level)
	if err != nil {
		log.Fatal("Failed to build logger: ", err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := common.Init(cfg.Database.Path)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	if err := Migrate(db); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	// Ensure database connection is closed on exit
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	store := customers.NewGormStore(db)
	svc := imports.NewService(store, common.NewJobRepository(db), cfg.Import, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.RunSweeper(ctx, time.Minute)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), common.MetricsMiddleware(db, logger))
	r.RedirectTrailingSlash = false

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1", common.OperatorAuth(cfg.Auth.JWTSecret))
	imports.NewHandler(svc, int64(cfg.Import.MaxUploadMB)<<20, logger).RegisterRoutes(v1)
	exports.NewHandler(store, logger).RegisterRoutes(v1)

	if cfg.Auth.JWTSecret == "" {
		logger.Warn("auth.jwt_secret is empty, operator auth is disabled")
	}

	logger.Info("server starting", zap.String("addr", cfg.Addr()))
	if err := r.Run(cfg.Addr()); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}
