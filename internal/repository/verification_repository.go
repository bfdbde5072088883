package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lee-tech/hrportal/internal/constants"
	coreServer "github.com/lee-tech/hrportal/internal/core/server"
	"github.com/lee-tech/hrportal/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VerificationRepository stores the hashed one-time codes.
type VerificationRepository struct {
	db *gorm.DB
}

// NewVerificationRepository creates a new verification code repository
func NewVerificationRepository(db *gorm.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

// Replace stores a fresh code for employeeCode, discarding any previous one.
func (r *VerificationRepository) Replace(ctx context.Context, employeeCode, codeHash string, expiresAt time.Time) error {
	row := &models.VerificationCode{
		EmployeeCode: employeeCode,
		CodeHash:     codeHash,
		ExpiresAt:    expiresAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "employee_code"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"code_hash":   codeHash,
			"expires_at":  expiresAt,
			"attempts":    0,
			"consumed_at": nil,
			"updated_at":  time.Now(),
		}),
	}).Create(row).Error
}

// Get returns the current code row of employeeCode, or nil.
func (r *VerificationRepository) Get(ctx context.Context, employeeCode string) (*models.VerificationCode, error) {
	var row models.VerificationCode
	err := r.db.WithContext(ctx).First(&row, "employee_code = ?", employeeCode).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// IncrementAttempts records a failed redemption.
func (r *VerificationRepository) IncrementAttempts(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Model(&models.VerificationCode{}).
		Where("id = ?", id).
		Update("attempts", gorm.Expr("attempts + ?", 1)).Error
}

// Consume marks the code used. It reports false when another request consumed it first.
func (r *VerificationRepository) Consume(ctx context.Context, id uint64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.VerificationCode{}).
		Where("id = ? AND consumed_at IS NULL", id).
		Update("consumed_at", time.Now())
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DeleteExpired removes codes that expired before cutoff.
func (r *VerificationRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", cutoff).Delete(&models.VerificationCode{})
	return res.RowsAffected, res.Error
}

func init() {
	coreServer.RegisterRepository(constants.ComponentKey.VerificationRepository, func(app *coreServer.HTTPApp) (interface{}, error) {
		if app.DB == nil {
			return nil, fmt.Errorf("database not initialised")
		}
		return NewVerificationRepository(app.DB), nil
	})
}
