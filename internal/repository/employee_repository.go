package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lee-tech/hrportal/internal/constants"
	coreServer "github.com/lee-tech/hrportal/internal/core/server"
	"github.com/lee-tech/hrportal/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// importColumns are overwritten when an import hits an existing employee code.
// Manager linkage, security fields and insertion date are left alone.
var importColumns = []string{
	"employee_category", "register_name", "organization_id", "status_id",
	"expected_start_date", "actual_start_date", "probation_end_date",
	"termination_date", "termination_reason", "resignation_type", "date_of_birth",
	"id_name", "id_name_ar", "first_name", "last_name", "first_name_ar", "last_name_ar",
	"entity_id", "budget_id", "department_id", "division_id", "unit_id", "position_id",
	"grade_id", "location_id", "contract_type_id", "nationality_id", "gender_id",
	"marital_status_id", "direct_manager_code", "direct_manager_name",
	"email", "personal_phone_number1", "corporate_phone_number", "id_number",
	"id_place_of_issue", "id_address", "id_address_ar", "id_zone_of_residence",
	"place_of_birth", "company_id", "cleared", "disability_type", "source_id",
	"updated_at",
}

// EmployeeRepository handles database operations for employee records
type EmployeeRepository struct {
	db *gorm.DB
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *gorm.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

func (r *EmployeeRepository) profileQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Organization").
		Preload("Status").
		Preload("Entity").
		Preload("Budget").
		Preload("Department").
		Preload("Division").
		Preload("Unit").
		Preload("Position").
		Preload("Grade").
		Preload("Location").
		Preload("ContractType").
		Preload("Nationality").
		Preload("Gender").
		Preload("MaritalStatus")
}

// Create creates a new employee in the database
func (r *EmployeeRepository) Create(ctx context.Context, employee *models.Employee) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(employee).Error
}

// Update saves every column of employee. Loaded references are not written back.
func (r *EmployeeRepository) Update(ctx context.Context, employee *models.Employee) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(employee).Error
}

// GetByID retrieves an employee with all references loaded
func (r *EmployeeRepository) GetByID(ctx context.Context, id uint64) (*models.Employee, error) {
	var employee models.Employee
	err := r.profileQuery(ctx).First(&employee, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &employee, nil
}

// GetByCode retrieves an employee by employee code
func (r *EmployeeRepository) GetByCode(ctx context.Context, code string) (*models.Employee, error) {
	var employee models.Employee
	err := r.profileQuery(ctx).First(&employee, "employee_code = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &employee, nil
}

// GetByEmail retrieves an employee by email
func (r *EmployeeRepository) GetByEmail(ctx context.Context, email string) (*models.Employee, error) {
	var employee models.Employee
	err := r.db.WithContext(ctx).First(&employee, "LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &employee, nil
}

// FindByIdentifier resolves a sign-in identifier: an email address, a local
// mobile number stored with the "2"/"20" country prefix, or an employee code.
func (r *EmployeeRepository) FindByIdentifier(ctx context.Context, identifier string) (*models.Employee, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, nil
	}

	var employee models.Employee
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(identifier)).
		Or("corporate_phone_number IN ?", []string{"2" + identifier, "20" + identifier}).
		Or("employee_code = ?", identifier).
		Order("id").
		First(&employee).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &employee, nil
}

// UpdateLastLogin updates the last login timestamp for an employee
func (r *EmployeeRepository) UpdateLastLogin(ctx context.Context, employeeID uint64) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&models.Employee{}).
		Where("id = ?", employeeID).
		Updates(map[string]interface{}{
			"last_login":     now,
			"login_attempts": 0,
			"locked_until":   nil,
		}).Error
}

// IncrementLoginAttempts increments the login attempts counter and returns the new value
func (r *EmployeeRepository) IncrementLoginAttempts(ctx context.Context, employeeID uint64) (int, error) {
	var attempts int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Employee{}).
			Where("id = ?", employeeID).
			Update("login_attempts", gorm.Expr("login_attempts + ?", 1)).Error; err != nil {
			return err
		}
		return tx.Model(&models.Employee{}).
			Where("id = ?", employeeID).
			Pluck("login_attempts", &attempts).Error
	})
	return attempts, err
}

// LockAccount locks an employee account until the specified time
func (r *EmployeeRepository) LockAccount(ctx context.Context, employeeID uint64, until time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Employee{}).
		Where("id = ?", employeeID).
		Update("locked_until", until).
		Error
}

// UnlockAccount unlocks an employee account
func (r *EmployeeRepository) UnlockAccount(ctx context.Context, employeeID uint64) error {
	return r.db.WithContext(ctx).Model(&models.Employee{}).
		Where("id = ?", employeeID).
		Updates(map[string]interface{}{
			"locked_until":   nil,
			"login_attempts": 0,
		}).Error
}

// List retrieves employees with pagination, ordered by employee code
func (r *EmployeeRepository) List(ctx context.Context, offset, limit int) ([]*models.Employee, int64, error) {
	var employees []*models.Employee
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Employee{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Preload("Department").
		Preload("Position").
		Preload("Grade").
		Preload("Status").
		Order("employee_code").
		Offset(offset).
		Limit(limit).
		Find(&employees).Error
	if err != nil {
		return nil, 0, err
	}

	return employees, total, nil
}

// UpsertByCode inserts employee or, when the code exists, overwrites the
// imported columns. It runs on tx so callers can batch it with reference upserts.
func (r *EmployeeRepository) UpsertByCode(tx *gorm.DB, employee *models.Employee) error {
	if strings.TrimSpace(employee.EmployeeCode) == "" {
		return fmt.Errorf("employee code is required")
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "employee_code"}},
		DoUpdates: clause.AssignmentColumns(importColumns),
	}).Omit("Manager", "ManagerID", "Organization", "Status", "Entity", "Budget", "Department",
		"Division", "Unit", "Position", "Grade", "Location", "ContractType",
		"Nationality", "Gender", "MaritalStatus").
		Create(employee).Error
}

// DB exposes the handle for callers that need a transaction spanning repositories.
func (r *EmployeeRepository) DB() *gorm.DB {
	return r.db
}

func init() {
	coreServer.RegisterRepository(constants.ComponentKey.EmployeeRepository, func(app *coreServer.HTTPApp) (interface{}, error) {
		if app.DB == nil {
			return nil, fmt.Errorf("database not initialised")
		}
		return NewEmployeeRepository(app.DB), nil
	})
}
