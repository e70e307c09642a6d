package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/vireolabs/vireo/internal/models"
)

// JobStore is the persistence contract the pipeline depends on. The
// orchestrator never touches gorm directly so tests can run against fakes.
type JobStore interface {
	Create(ctx context.Context, job *models.ContentJob) error
	Get(ctx context.Context, id string) (*models.ContentJob, error)
	Update(ctx context.Context, job *models.ContentJob) error
	ListByProject(ctx context.Context, projectID uint) ([]models.ContentJob, error)
	ListByStatus(ctx context.Context, status models.JobStatus) ([]models.ContentJob, error)
}

// ProjectStore reads project automation configuration
type ProjectStore interface {
	Get(ctx context.Context, id uint) (*models.Project, error)
}

type gormJobStore struct {
	db *gorm.DB
}

func NewJobStore(db *gorm.DB) JobStore {
	return &gormJobStore{db: db}
}

func (s *gormJobStore) Create(ctx context.Context, job *models.ContentJob) error {
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *gormJobStore) Get(ctx context.Context, id string) (*models.ContentJob, error) {
	var job models.ContentJob
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		return nil, fmt.Errorf("job not found: %w", err)
	}
	return &job, nil
}

func (s *gormJobStore) Update(ctx context.Context, job *models.ContentJob) error {
	if err := s.db.WithContext(ctx).Save(job).Error; err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

func (s *gormJobStore) ListByProject(ctx context.Context, projectID uint) ([]models.ContentJob, error) {
	var jobs []models.ContentJob
	if err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

func (s *gormJobStore) ListByStatus(ctx context.Context, status models.JobStatus) ([]models.ContentJob, error) {
	var jobs []models.ContentJob
	if err := s.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list jobs by status: %w", err)
	}
	return jobs, nil
}

type gormProjectStore struct {
	db *gorm.DB
}

func NewProjectStore(db *gorm.DB) ProjectStore {
	return &gormProjectStore{db: db}
}

func (s *gormProjectStore) Get(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	if err := s.db.WithContext(ctx).First(&project, id).Error; err != nil {
		return nil, fmt.Errorf("project not found: %w", err)
	}
	return &project, nil
}
