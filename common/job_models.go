package common

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

// Import job statuses
const (
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// ImportJob records the outcome of one committed customer import session
type ImportJob struct {
	ID             string    `gorm:"primaryKey;type:text" json:"id"`
	FileName       string    `gorm:"not null" json:"file_name"`
	Fingerprint    string    `gorm:"index" json:"fingerprint"` // blake2b of the uploaded file
	Status         string    `gorm:"not null" json:"status"`   // completed, failed
	TotalRecords   int       `gorm:"default:0" json:"total_records"`
	SuccessCount   int       `gorm:"default:0" json:"success_count"`
	DuplicateCount int       `gorm:"default:0" json:"duplicate_count"`
	SkippedCount   int       `gorm:"default:0" json:"skipped_count"`
	FailCount      int       `gorm:"default:0" json:"fail_count"`
	Errors         string    `gorm:"type:text" json:"errors,omitempty"` // JSON array of failed row outcomes
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	CompletedAt    time.Time `gorm:"not null" json:"completed_at"`
}

// ApiMetric tracks API performance metrics
type ApiMetric struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Endpoint      string    `gorm:"not null" json:"endpoint"`
	Method        string    `gorm:"not null" json:"method"`
	StatusCode    int       `gorm:"not null" json:"status_code"`
	DurationMs    int       `gorm:"not null" json:"duration_ms"`
	RowsProcessed int       `gorm:"default:0" json:"rows_processed"`
	Errors        string    `gorm:"type:text" json:"errors,omitempty"`
	Timestamp     time.Time `gorm:"not null" json:"timestamp"`
}

func (ImportJob) TableName() string { return "import_jobs" }
func (ApiMetric) TableName() string { return "api_metrics" }

// AutoMigrateJobs creates job tracking tables
func AutoMigrateJobs(db *gorm.DB) error {
	return db.AutoMigrate(&ImportJob{}, &ApiMetric{})
}

// JobRepository persists import job records
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a JobRepository on db
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// SaveJob inserts or replaces an import job record
func (r *JobRepository) SaveJob(ctx context.Context, job *ImportJob) error {
	if err := r.db.WithContext(ctx).Save(job).Error; err != nil {
		return eris.Wrapf(err, "save import job %s", job.ID)
	}
	return nil
}

// GetJob loads an import job by id; nil, nil when there is none
func (r *JobRepository) GetJob(ctx context.Context, id string) (*ImportJob, error) {
	var job ImportJob
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "load import job %s", id)
	}
	return &job, nil
}
