package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/lee-tech/hrportal/internal/constants"
	coreServer "github.com/lee-tech/hrportal/internal/core/server"
	"github.com/lee-tech/hrportal/internal/models"
	"gorm.io/gorm"
)

// ImportJobRepository persists spreadsheet import progress.
type ImportJobRepository struct {
	db *gorm.DB
}

// NewImportJobRepository creates a new import job repository
func NewImportJobRepository(db *gorm.DB) *ImportJobRepository {
	return &ImportJobRepository{db: db}
}

// Create inserts a new job.
func (r *ImportJobRepository) Create(ctx context.Context, job *models.ImportJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// Save writes the job's current progress.
func (r *ImportJobRepository) Save(ctx context.Context, job *models.ImportJob) error {
	return r.db.WithContext(ctx).Save(job).Error
}

// Get returns a job by id, or nil.
func (r *ImportJobRepository) Get(ctx context.Context, id string) (*models.ImportJob, error) {
	var job models.ImportJob
	err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

// Recent lists the newest jobs first.
func (r *ImportJobRepository) Recent(ctx context.Context, limit int) ([]*models.ImportJob, error) {
	var jobs []*models.ImportJob
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&jobs).Error
	return jobs, err
}

func init() {
	coreServer.RegisterRepository(constants.ComponentKey.ImportJobRepository, func(app *coreServer.HTTPApp) (interface{}, error) {
		if app.DB == nil {
			return nil, fmt.Errorf("database not initialised")
		}
		return NewImportJobRepository(app.DB), nil
	})
}
