package repository

import (
	"context"

	"github.com/lee-tech/hrportal/internal/constants"
	"github.com/lee-tech/hrportal/internal/models"
	"gorm.io/gorm"
)

type hierarchyRecord struct {
	ID                uint64
	EmployeeCode      string
	IDName            *string
	FirstName         *string
	LastName          *string
	Email             *string
	PositionEn        *string
	GradeOfficial     *int
	ManagerID         *uint64
	DirectManagerCode *string
}

// ActiveHierarchy returns every active employee with position and grade resolved.
func (r *EmployeeRepository) ActiveHierarchy(ctx context.Context) ([]models.HierarchyRow, error) {
	var records []hierarchyRecord
	err := r.db.WithContext(ctx).
		Table("employees AS e").
		Select(`e.id, e.employee_code, e.id_name, e.first_name, e.last_name, e.email,
			p.position_en, g.grade_official, e.manager_id, e.direct_manager_code`).
		Joins("JOIN statuses s ON s.id = e.status_id AND s.status_name = ?", constants.StatusActive).
		Joins("LEFT JOIN positions p ON p.id = e.position_id").
		Joins("LEFT JOIN grades g ON g.id = e.grade_id").
		Order("e.id ASC").
		Scan(&records).Error
	if err != nil {
		return nil, err
	}

	rows := make([]models.HierarchyRow, 0, len(records))
	for _, rec := range records {
		row := models.HierarchyRow{
			ID:                rec.ID,
			EmployeeCode:      rec.EmployeeCode,
			IDName:            value(rec.IDName),
			FirstName:         value(rec.FirstName),
			LastName:          value(rec.LastName),
			Email:             value(rec.Email),
			PositionEn:        value(rec.PositionEn),
			ManagerID:         rec.ManagerID,
			DirectManagerCode: value(rec.DirectManagerCode),
		}
		if rec.GradeOfficial != nil {
			row.GradeOfficial = *rec.GradeOfficial
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ApplyManagerLinks sets manager_id for every employee id in links in one transaction.
// A nil target clears the link.
func (r *EmployeeRepository) ApplyManagerLinks(ctx context.Context, links map[uint64]*uint64) error {
	if len(links) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, managerID := range links {
			if err := tx.Model(&models.Employee{}).
				Where("id = ?", id).
				UpdateColumn("manager_id", managerID).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
