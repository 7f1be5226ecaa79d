package repository

import (
	"context"
	"fmt"

	"ClipForge/model"

	"gorm.io/gorm"
)

// JobRepository defines persistence for the export-job history.
type JobRepository interface {
	// CreateJob records one finished export.
	CreateJob(ctx context.Context, job *model.ExportJob) error

	// GetJobByID looks a job up by its public job ID.
	GetJobByID(ctx context.Context, jobID string) (*model.ExportJob, error)

	// ListRecentJobs returns the newest jobs first, up to limit.
	ListRecentJobs(ctx context.Context, limit int) ([]*model.ExportJob, error)
}

// GormJobRepository is the MySQL-backed implementation.
type GormJobRepository struct {
	db *gorm.DB
}

// NewGormJobRepository creates a repository over the given connection.
func NewGormJobRepository(db *gorm.DB) *GormJobRepository {
	return &GormJobRepository{db: db}
}

func (r *GormJobRepository) CreateJob(ctx context.Context, job *model.ExportJob) error {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to create export job: %w", err)
	}
	return nil
}

func (r *GormJobRepository) GetJobByID(ctx context.Context, jobID string) (*model.ExportJob, error) {
	var job model.ExportJob
	err := r.db.WithContext(ctx).Where("job_id = ?", jobID).First(&job).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get export job %s: %w", jobID, err)
	}
	return &job, nil
}

func (r *GormJobRepository) ListRecentJobs(ctx context.Context, limit int) ([]*model.ExportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	var jobs []*model.ExportJob
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list export jobs: %w", err)
	}
	return jobs, nil
}

// NopJobRepository is used when persistence is disabled; writes vanish and
// reads come back empty.
type NopJobRepository struct{}

func (NopJobRepository) CreateJob(context.Context, *model.ExportJob) error { return nil }

func (NopJobRepository) GetJobByID(context.Context, string) (*model.ExportJob, error) {
	return nil, nil
}

func (NopJobRepository) ListRecentJobs(context.Context, int) ([]*model.ExportJob, error) {
	return nil, nil
}
