package service

import (
	"context"
	"strings"

	"github.com/lee-tech/hrportal/internal/constants"
	coreServer "github.com/lee-tech/hrportal/internal/core/server"
	"github.com/lee-tech/hrportal/internal/models"
	"github.com/lee-tech/hrportal/internal/repository"
)

// DirectoryService serves the HR employee directory.
type DirectoryService struct {
	employees *repository.EmployeeRepository
}

// NewDirectoryService creates a directory service
func NewDirectoryService(employees *repository.EmployeeRepository) *DirectoryService {
	return &DirectoryService{employees: employees}
}

// List returns one page of employee summaries ordered by employee code.
func (s *DirectoryService) List(ctx context.Context, page, pageSize int) ([]models.EmployeeSummary, int64, error) {
	if page < 1 {
		page = 1
	}
	employees, total, err := s.employees.List(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	summaries := make([]models.EmployeeSummary, 0, len(employees))
	for _, e := range employees {
		summaries = append(summaries, Summarize(e))
	}
	return summaries, total, nil
}

// Get returns the full record of the employee with code.
func (s *DirectoryService) Get(ctx context.Context, code string) (*models.Employee, error) {
	employee, err := s.employees.GetByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	if employee == nil {
		return nil, ErrEmployeeNotFound
	}
	return employee, nil
}

// Summarize projects an employee onto a directory row.
func Summarize(e *models.Employee) models.EmployeeSummary {
	summary := models.EmployeeSummary{
		ID:                e.ID,
		EmployeeCode:      e.EmployeeCode,
		Name:              e.FullName(),
		Email:             stringValue(e.Email),
		ManagerID:         e.ManagerID,
		DirectManagerCode: stringValue(e.DirectManagerCode),
	}
	if summary.Name == "" {
		summary.Name = stringValue(e.IDName)
	}
	if e.Department != nil {
		summary.Department = e.Department.DepartmentEn
	}
	if e.Position != nil {
		summary.Position = e.Position.PositionEn
	}
	if e.Grade != nil {
		summary.GradeOfficial = e.Grade.GradeOfficial
	}
	if e.Status != nil {
		summary.Status = e.Status.StatusName
	}
	return summary
}

func init() {
	coreServer.RegisterService(constants.ComponentKey.DirectoryService, func(app *coreServer.HTTPApp) (interface{}, error) {
		employees, err := coreServer.Resolve[*repository.EmployeeRepository](app, constants.ComponentKey.EmployeeRepository)
		if err != nil {
			return nil, err
		}
		return NewDirectoryService(employees), nil
	})
}
