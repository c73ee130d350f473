package common

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MetricsMiddleware tracks API performance metrics
func MetricsMiddleware(db *gorm.DB, logger *zap.Logger) gin.HandlerFunc {
	logger = logger.Named("metrics")

	return func(c *gin.Context) {
		// Generate request ID for tracing
		requestID := uuid.New().String()
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		startTime := time.Now()

		c.Next()

		durationMs := int(time.Since(startTime).Milliseconds())

		// Get rows processed (if set by handler)
		rowsProcessed := 0
		if rows, exists := c.Get("rows_processed"); exists {
			if r, ok := rows.(int); ok {
				rowsProcessed = r
			}
		}

		errors := ""
		if len(c.Errors) > 0 {
			errors = c.Errors.String()
		}

		metric := ApiMetric{
			Endpoint:      c.FullPath(),
			Method:        c.Request.Method,
			StatusCode:    c.Writer.Status(),
			DurationMs:    durationMs,
			RowsProcessed: rowsProcessed,
			Errors:        errors,
			Timestamp:     startTime,
		}

		logger.Debug("request",
			zap.String("request_id", requestID),
			zap.String("method", metric.Method),
			zap.String("endpoint", metric.Endpoint),
			zap.Int("status", metric.StatusCode),
			zap.Int("duration_ms", durationMs))

		if db == nil {
			return
		}

		// Save metric asynchronously
		go func() {
			if err := db.Create(&metric).Error; err != nil {
				logger.Warn("failed to save api metric", zap.Error(err))
			}
		}()
	}
}
