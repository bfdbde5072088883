// Package testutil opens throwaway databases and seeds employees for package tests.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lee-tech/hrportal/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewDB returns an isolated in-memory SQLite database with every model migrated.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_foreign_keys=0", name, dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Organization{},
		&models.Status{}, &models.Entity{}, &models.Budget{}, &models.Department{},
		&models.Division{}, &models.Unit{}, &models.Position{}, &models.Grade{},
		&models.Location{}, &models.ContractType{}, &models.Nationality{},
		&models.Gender{}, &models.MaritalStatus{},
		&models.Employee{}, &models.VerificationCode{}, &models.ImportJob{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// Seed describes one employee to insert with Seeder.
type Seed struct {
	Code        string
	ManagerCode string
	Grade       int
	Position    string
	Department  string
	Inactive    bool
	Email       string
	Phone       string
	First       string
	Last        string
}

// Seeder inserts employees with their references resolved.
type Seeder struct {
	t  *testing.T
	db *gorm.DB
}

// NewSeeder binds a seeder to db.
func NewSeeder(t *testing.T, db *gorm.DB) *Seeder {
	return &Seeder{t: t, db: db}
}

// Status returns the id of the named status, creating it if needed.
func (s *Seeder) Status(name string) uint64 {
	var status models.Status
	require.NoError(s.t, s.db.Where(models.Status{StatusName: name}).FirstOrCreate(&status).Error)
	return status.ID
}

// Department returns the id of the named department, creating it if needed.
func (s *Seeder) Department(name string) uint64 {
	var dept models.Department
	require.NoError(s.t, s.db.Where(models.Department{DepartmentEn: name}).FirstOrCreate(&dept).Error)
	return dept.ID
}

// Employee inserts one employee and returns it.
func (s *Seeder) Employee(seed Seed) *models.Employee {
	s.t.Helper()
	statusName := "Active"
	if seed.Inactive {
		statusName = "Terminated"
	}
	statusID := s.Status(statusName)

	emp := &models.Employee{
		EmployeeCode: seed.Code,
		StatusID:     &statusID,
		FirstName:    optional(seed.First),
		LastName:     optional(seed.Last),
		IDName:       optional(strings.TrimSpace(seed.First + " " + seed.Last)),
	}
	if seed.ManagerCode != "" {
		emp.DirectManagerCode = &seed.ManagerCode
	}
	email := seed.Email
	if email == "" {
		email = strings.ToLower(seed.Code) + "@example.com"
	}
	emp.Email = &email
	if seed.Phone != "" {
		emp.CorporatePhoneNumber = &seed.Phone
	}
	if seed.Grade > 0 {
		var grade models.Grade
		require.NoError(s.t, s.db.Where(models.Grade{GradeOfficial: seed.Grade}).FirstOrCreate(&grade).Error)
		emp.GradeID = &grade.ID
	}
	if seed.Position != "" {
		var pos models.Position
		require.NoError(s.t, s.db.Where(models.Position{PositionEn: seed.Position}).FirstOrCreate(&pos).Error)
		emp.PositionID = &pos.ID
	}
	if seed.Department != "" {
		id := s.Department(seed.Department)
		emp.DepartmentID = &id
	}
	require.NoError(s.t, s.db.Create(emp).Error)
	return emp
}

// Link points employee code at manager code directly, bypassing reconciliation.
func (s *Seeder) Link(code, managerCode string) {
	s.t.Helper()
	var manager models.Employee
	require.NoError(s.t, s.db.First(&manager, "employee_code = ?", managerCode).Error)
	require.NoError(s.t, s.db.Model(&models.Employee{}).
		Where("employee_code = ?", code).
		Update("manager_id", manager.ID).Error)
}

// ManagerID reads back the stored manager id of code.
func (s *Seeder) ManagerID(code string) *uint64 {
	s.t.Helper()
	var emp models.Employee
	require.NoError(s.t, s.db.First(&emp, "employee_code = ?", code).Error)
	return emp.ManagerID
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
