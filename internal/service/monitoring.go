package service

import (
	"encoding/json"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vireolabs/vireo/internal/models"
)

// Recorder is the best-effort bookkeeping contract the pipeline uses for
// error logs and cost tracking. Implementations must never propagate their
// own failures back to the caller.
type Recorder interface {
	RecordError(level, source, title, message string, options ...ErrorLogOption)
	RecordCost(jobID, stage, vendor string, amount float64)
}

type MonitoringService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewMonitoringService(db *gorm.DB, logger *zap.Logger) *MonitoringService {
	return &MonitoringService{
		db:     db,
		logger: logger,
	}
}

// ErrorLogOption decorates an error log entry
type ErrorLogOption func(*models.ErrorLog)

// WithJob associates the entry with a job
func WithJob(jobID string) ErrorLogOption {
	return func(e *models.ErrorLog) {
		e.JobID = &jobID
	}
}

// WithContext attaches structured context
func WithContext(context map[string]interface{}) ErrorLogOption {
	return func(e *models.ErrorLog) {
		if contextBytes, err := json.Marshal(context); err == nil {
			e.Context = string(contextBytes)
		}
	}
}

// RecordError writes an error log row. A write failure is logged and
// swallowed; monitoring must never fail a pipeline stage.
func (m *MonitoringService) RecordError(level, source, title, message string, options ...ErrorLogOption) {
	errorLog := &models.ErrorLog{
		Level:   level,
		Source:  source,
		Title:   title,
		Message: message,
	}

	for _, option := range options {
		option(errorLog)
	}

	if err := m.db.Create(errorLog).Error; err != nil {
		m.logger.Warn("Failed to record error log", zap.Error(err))
	}
}

// RecordCost writes a vendor spend row, best-effort
func (m *MonitoringService) RecordCost(jobID, stage, vendor string, amount float64) {
	record := &models.CostRecord{
		JobID:    jobID,
		Stage:    stage,
		Vendor:   vendor,
		Amount:   amount,
		Currency: "USD",
	}

	if err := m.db.Create(record).Error; err != nil {
		m.logger.Warn("Failed to record cost",
			zap.String("job_id", jobID),
			zap.String("stage", stage),
			zap.Error(err))
	}
}
