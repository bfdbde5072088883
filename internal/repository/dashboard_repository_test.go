package repository

import (
	"context"
	"testing"
	"time"

	"github.com/lee-tech/hrportal/internal/models"
	"github.com/lee-tech/hrportal/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func day(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func setLeaver(t *testing.T, db *gorm.DB, code string, terminated *time.Time, reason, contract, category string) {
	t.Helper()
	updates := map[string]any{"termination_date": terminated}
	if reason != "" {
		updates["termination_reason"] = reason
	}
	if category != "" {
		updates["employee_category"] = category
	}
	if contract != "" {
		ct := models.ContractType{TypeName: contract}
		require.NoError(t, db.Where(ct).FirstOrCreate(&ct).Error)
		updates["contract_type_id"] = ct.ID
	}
	require.NoError(t, db.Model(&models.Employee{}).Where("employee_code = ?", code).Updates(updates).Error)
}

func TestDepartmentHeadcount(t *testing.T) {
	db := testutil.NewDB(t)
	seed := testutil.NewSeeder(t, db)
	seed.Employee(testutil.Seed{Code: "A", Department: "Finance"})
	seed.Employee(testutil.Seed{Code: "B", Department: "Finance"})
	seed.Employee(testutil.Seed{Code: "C", Department: "Finance", Inactive: true})
	seed.Employee(testutil.Seed{Code: "D", Department: "IT"})
	seed.Department("Legal")

	counts, err := NewDashboardRepository(db).DepartmentHeadcount(context.Background())
	require.NoError(t, err)
	require.Len(t, counts, 3)
	assert.Equal(t, "Finance", counts[0].Department)
	assert.EqualValues(t, 2, counts[0].Count)
	assert.EqualValues(t, 1, counts[1].Count)
	assert.Equal(t, "Legal", counts[2].Department)
	assert.Zero(t, counts[2].Count)
}

func TestLeaversExcludeTrainees(t *testing.T) {
	db := testutil.NewDB(t)
	seed := testutil.NewSeeder(t, db)
	for _, code := range []string{"A", "B", "C", "D", "E"} {
		seed.Employee(testutil.Seed{Code: code})
	}
	setLeaver(t, db, "A", day("2024-03-01"), "Resigned", "Permanent", "")
	setLeaver(t, db, "B", day("2024-03-01"), "Resigned", "", "")
	setLeaver(t, db, "C", day("2024-03-02"), "Resigned", "Intern", "")
	setLeaver(t, db, "D", day("2024-03-02"), "Relocation", "", "Intern")
	setLeaver(t, db, "E", day("2024-03-05"), "", "Training", "")

	repo := NewDashboardRepository(db)
	ctx := context.Background()

	dates, err := repo.LeavingDates(ctx)
	require.NoError(t, err)
	assert.Len(t, dates, 2)

	reasons, err := repo.LeaveReasons(ctx)
	require.NoError(t, err)
	require.Len(t, reasons, 1)
	assert.Equal(t, ReasonCount{Reason: "Resigned", Count: 2}, reasons[0])
}

func TestHiringDates(t *testing.T) {
	db := testutil.NewDB(t)
	seed := testutil.NewSeeder(t, db)
	seed.Employee(testutil.Seed{Code: "A"})
	seed.Employee(testutil.Seed{Code: "B"})
	require.NoError(t, db.Model(&models.Employee{}).Where("employee_code = ?", "A").
		Update("actual_start_date", day("2023-01-10")).Error)

	dates, err := NewDashboardRepository(db).HiringDates(context.Background())
	require.NoError(t, err)
	require.Len(t, dates, 1)
	assert.Equal(t, "2023-01-10", dates[0].UTC().Format("2006-01-02"))
}
