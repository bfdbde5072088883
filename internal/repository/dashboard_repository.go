package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/lee-tech/hrportal/internal/constants"
	coreServer "github.com/lee-tech/hrportal/internal/core/server"
	"gorm.io/gorm"
)

// Attrition figures leave out trainees.
var (
	excludedContractTypes = []string{"Intern", "Training"}
	excludedCategory      = "Intern"
)

// DepartmentCount is the active headcount of one department.
type DepartmentCount struct {
	DepartmentID uint64
	Department   string
	Count        int64
}

// ReasonCount is the number of leavers that gave one termination reason.
type ReasonCount struct {
	Reason string
	Count  int64
}

// DashboardRepository runs the aggregate queries behind the HR dashboard.
type DashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository creates a new dashboard repository
func NewDashboardRepository(db *gorm.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// DepartmentHeadcount counts active employees per department, including empty departments.
func (r *DashboardRepository) DepartmentHeadcount(ctx context.Context) ([]DepartmentCount, error) {
	var counts []DepartmentCount
	err := r.db.WithContext(ctx).
		Table("departments AS d").
		Select("d.id AS department_id, d.department_en AS department, COUNT(s.id) AS count").
		Joins("LEFT JOIN employees e ON e.department_id = d.id").
		Joins("LEFT JOIN statuses s ON s.id = e.status_id AND s.status_name = ?", constants.StatusActive).
		Group("d.id, d.department_en").
		Order("d.id ASC").
		Scan(&counts).Error
	return counts, err
}

// HiringDates returns every actual start date on record.
func (r *DashboardRepository) HiringDates(ctx context.Context) ([]time.Time, error) {
	var dates []time.Time
	err := r.db.WithContext(ctx).
		Table("employees").
		Where("actual_start_date IS NOT NULL").
		Pluck("actual_start_date", &dates).Error
	return dates, err
}

// LeavingDates returns termination dates of leavers outside the excluded contract types and category.
func (r *DashboardRepository) LeavingDates(ctx context.Context) ([]time.Time, error) {
	var dates []time.Time
	err := r.leavers(ctx).
		Where("e.termination_date IS NOT NULL").
		Pluck("e.termination_date", &dates).Error
	return dates, err
}

// LeaveReasons counts leavers per non-null termination reason under the same exclusions.
func (r *DashboardRepository) LeaveReasons(ctx context.Context) ([]ReasonCount, error) {
	var counts []ReasonCount
	err := r.leavers(ctx).
		Select("e.termination_reason AS reason, COUNT(*) AS count").
		Where("e.termination_reason IS NOT NULL AND e.termination_reason <> ''").
		Group("e.termination_reason").
		Scan(&counts).Error
	return counts, err
}

func (r *DashboardRepository) leavers(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("employees AS e").
		Joins("LEFT JOIN contract_types ct ON ct.id = e.contract_type_id").
		Where("(ct.type_name IS NULL OR ct.type_name NOT IN ?)", excludedContractTypes).
		Where("(e.employee_category IS NULL OR e.employee_category <> ?)", excludedCategory)
}

func init() {
	coreServer.RegisterRepository(constants.ComponentKey.DashboardRepository, func(app *coreServer.HTTPApp) (interface{}, error) {
		if app.DB == nil {
			return nil, fmt.Errorf("database not initialised")
		}
		return NewDashboardRepository(app.DB), nil
	})
}
