package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/lee-tech/hrportal/internal/models"
	"github.com/lee-tech/hrportal/internal/repository"
	"github.com/lee-tech/hrportal/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDashboard struct {
	counts  []repository.DepartmentCount
	hires   []time.Time
	leaves  []time.Time
	reasons []repository.ReasonCount
	err     error
}

func (s stubDashboard) DepartmentHeadcount(context.Context) ([]repository.DepartmentCount, error) {
	return s.counts, s.err
}
func (s stubDashboard) HiringDates(context.Context) ([]time.Time, error)  { return s.hires, nil }
func (s stubDashboard) LeavingDates(context.Context) ([]time.Time, error) { return s.leaves, nil }
func (s stubDashboard) LeaveReasons(context.Context) ([]repository.ReasonCount, error) {
	return s.reasons, nil
}

func TestHeadcountChart(t *testing.T) {
	counts := make([]repository.DepartmentCount, 0, 16)
	counts = append(counts,
		repository.DepartmentCount{DepartmentID: 1, Department: "Finance", Count: 1},
		repository.DepartmentCount{DepartmentID: 2, Department: "IT", Count: 2},
	)
	for i := 3; i <= 15; i++ {
		counts = append(counts, repository.DepartmentCount{DepartmentID: uint64(i), Department: string(rune('A' + i))})
	}

	chart := HeadcountChart(counts)
	assert.EqualValues(t, 3, chart.Total)
	assert.Equal(t, 33.3, chart.Departments[0].Percentage)
	assert.Equal(t, 66.7, chart.Departments[1].Percentage)
	assert.Equal(t, "var(--chart-11)", chart.Departments[0].Fill)
	assert.Equal(t, "var(--chart-24)", chart.Departments[13].Fill)
	assert.Equal(t, "var(--chart-11)", chart.Departments[14].Fill, "palette wraps")
	assert.Equal(t, models.ChartSeries{Label: "IT", Color: "var(--chart-12)"}, chart.ChartConfig["IT"])

	empty := HeadcountChart([]repository.DepartmentCount{{Department: "Empty"}})
	assert.Zero(t, empty.Departments[0].Percentage)
}

func TestDailySeries(t *testing.T) {
	cairo := time.FixedZone("EET", 2*3600)
	hires := []time.Time{
		time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 17, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 1, 0, 0, 0, cairo),
	}
	leaves := []time.Time{time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)}

	want := []models.HiringLeavingPoint{
		{Date: "2023-12-31", Hiring: 1},
		{Date: "2024-01-02", Hiring: 2},
		{Date: "2024-01-03", Leaving: 1},
	}
	if diff := cmp.Diff(want, DailySeries(hires, leaves)); diff != "" {
		t.Errorf("series mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, DailySeries(nil, nil))
}

func TestOverview(t *testing.T) {
	svc := NewDashboardService(stubDashboard{
		counts:  []repository.DepartmentCount{{Department: "IT", Count: 4}},
		hires:   []time.Time{time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		reasons: []repository.ReasonCount{{Reason: "Relocation", Count: 1}, {Reason: "Better offer", Count: 3}, {Reason: "Abroad", Count: 1}},
	})

	overview, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 4, overview.Headcount.Total)
	assert.Len(t, overview.HiringLeaving, 1)
	assert.Equal(t, []models.LeaveReasonCount{
		{Reason: "Better offer", Count: 3},
		{Reason: "Abroad", Count: 1},
		{Reason: "Relocation", Count: 1},
	}, overview.LeaveReasons)

	failing := NewDashboardService(stubDashboard{err: errors.New("db down")})
	_, err = failing.Overview(context.Background())
	assert.Error(t, err)
}

func TestDashboardAgainstDatabase(t *testing.T) {
	db := testutil.NewDB(t)
	seed := testutil.NewSeeder(t, db)
	seed.Employee(testutil.Seed{Code: "E1", Department: "IT"})
	seed.Employee(testutil.Seed{Code: "E2", Department: "IT"})
	seed.Employee(testutil.Seed{Code: "E3", Department: "Finance", Inactive: true})

	svc := NewDashboardService(repository.NewDashboardRepository(db))
	headcount, err := svc.DepartmentHeadcount(context.Background())
	require.NoError(t, err)
	require.Len(t, headcount.Departments, 2)
	assert.Equal(t, "IT", headcount.Departments[0].Department)
	assert.EqualValues(t, 2, headcount.Departments[0].Count)
	assert.Equal(t, 100.0, headcount.Departments[0].Percentage)
	assert.EqualValues(t, 0, headcount.Departments[1].Count)
}
