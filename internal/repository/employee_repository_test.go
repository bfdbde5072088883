package repository

import (
	"context"
	"testing"
	"time"

	"github.com/lee-tech/hrportal/internal/models"
	"github.com/lee-tech/hrportal/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestFindByIdentifier(t *testing.T) {
	db := testutil.NewDB(t)
	seed := testutil.NewSeeder(t, db)
	seed.Employee(testutil.Seed{Code: "E100", Email: "Jane.Doe@Example.com", Phone: "201001234567"})
	seed.Employee(testutil.Seed{Code: "E200", Phone: "21009999999"})

	repo := NewEmployeeRepository(db)
	ctx := context.Background()

	tests := []struct {
		name       string
		identifier string
		want       string
	}{
		{name: "email is case insensitive", identifier: "jane.doe@example.com", want: "E100"},
		{name: "phone with 20 prefix", identifier: "1001234567", want: "E100"},
		{name: "phone with 2 prefix", identifier: "1009999999", want: "E200"},
		{name: "employee code", identifier: "E200", want: "E200"},
		{name: "unknown", identifier: "nobody", want: ""},
		{name: "blank", identifier: "  ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emp, err := repo.FindByIdentifier(ctx, tt.identifier)
			require.NoError(t, err)
			if tt.want == "" {
				assert.Nil(t, emp)
				return
			}
			require.NotNil(t, emp)
			assert.Equal(t, tt.want, emp.EmployeeCode)
		})
	}
}

func TestLoginCounters(t *testing.T) {
	db := testutil.NewDB(t)
	emp := testutil.NewSeeder(t, db).Employee(testutil.Seed{Code: "E1"})
	repo := NewEmployeeRepository(db)
	ctx := context.Background()

	n, err := repo.IncrementLoginAttempts(ctx, emp.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = repo.IncrementLoginAttempts(ctx, emp.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	until := time.Now().Add(time.Hour)
	require.NoError(t, repo.LockAccount(ctx, emp.ID, until))
	stored, err := repo.GetByID(ctx, emp.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsLocked(time.Now()))

	require.NoError(t, repo.UpdateLastLogin(ctx, emp.ID))
	stored, err = repo.GetByID(ctx, emp.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsLocked(time.Now()))
	assert.Zero(t, stored.LoginAttempts)
	assert.NotNil(t, stored.LastLogin)
}

func TestUpsertByCodeKeepsManagerAndSecurityFields(t *testing.T) {
	db := testutil.NewDB(t)
	seed := testutil.NewSeeder(t, db)
	seed.Employee(testutil.Seed{Code: "M1"})
	seed.Employee(testutil.Seed{Code: "E1", ManagerCode: "M1", First: "Old"})
	seed.Link("E1", "M1")
	require.NoError(t, db.Model(&models.Employee{}).Where("employee_code = ?", "E1").
		Updates(map[string]any{"is_super_admin": true, "login_attempts": 3}).Error)

	var before models.Employee
	require.NoError(t, db.First(&before, "employee_code = ?", "E1").Error)

	repo := NewEmployeeRepository(db)
	err := repo.UpsertByCode(db, &models.Employee{
		EmployeeCode:      "E1",
		FirstName:         strPtr("New"),
		DirectManagerCode: strPtr("M2"),
		Email:             strPtr("e1@example.com"),
	})
	require.NoError(t, err)

	var after models.Employee
	require.NoError(t, db.First(&after, "employee_code = ?", "E1").Error)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, "New", *after.FirstName)
	assert.Equal(t, "M2", *after.DirectManagerCode)
	assert.Equal(t, before.ManagerID, after.ManagerID)
	assert.True(t, after.IsSuperAdmin)
	assert.Equal(t, 3, after.LoginAttempts)
	assert.WithinDuration(t, before.InsertionDate, after.InsertionDate, time.Second)

	err = repo.UpsertByCode(db, &models.Employee{EmployeeCode: "E2", Email: strPtr("e2@example.com")})
	require.NoError(t, err)
	created, err := repo.GetByCode(context.Background(), "E2")
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Nil(t, created.ManagerID)

	assert.Error(t, repo.UpsertByCode(db, &models.Employee{EmployeeCode: " "}))
}

func TestListPaginates(t *testing.T) {
	db := testutil.NewDB(t)
	seed := testutil.NewSeeder(t, db)
	for _, code := range []string{"C3", "C1", "C2"} {
		seed.Employee(testutil.Seed{Code: code, Department: "Finance"})
	}

	repo := NewEmployeeRepository(db)
	page, total, err := repo.List(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "C2", page[0].EmployeeCode)
	require.NotNil(t, page[0].Department)
	assert.Equal(t, "Finance", page[0].Department.DepartmentEn)
}

func TestActiveHierarchyAndManagerLinks(t *testing.T) {
	db := testutil.NewDB(t)
	seed := testutil.NewSeeder(t, db)
	boss := seed.Employee(testutil.Seed{Code: "B", Grade: 8, Position: "CEO", First: "Big", Last: "Boss"})
	worker := seed.Employee(testutil.Seed{Code: "W", ManagerCode: "B", Grade: 4})
	seed.Employee(testutil.Seed{Code: "X", Inactive: true})

	repo := NewEmployeeRepository(db)
	ctx := context.Background()
	rows, err := repo.ActiveHierarchy(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "B", rows[0].EmployeeCode)
	assert.Equal(t, "CEO", rows[0].PositionEn)
	assert.Equal(t, 8, rows[0].GradeOfficial)
	assert.Equal(t, "Big Boss", rows[0].IDName)
	assert.Equal(t, "B", rows[1].DirectManagerCode)

	require.NoError(t, repo.ApplyManagerLinks(ctx, map[uint64]*uint64{worker.ID: &boss.ID}))
	assert.Equal(t, boss.ID, *seed.ManagerID("W"))

	require.NoError(t, repo.ApplyManagerLinks(ctx, map[uint64]*uint64{worker.ID: nil}))
	assert.Nil(t, seed.ManagerID("W"))
}
