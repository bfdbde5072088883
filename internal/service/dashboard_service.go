package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/lee-tech/hrportal/internal/constants"
	coreServer "github.com/lee-tech/hrportal/internal/core/server"
	"github.com/lee-tech/hrportal/internal/models"
	"github.com/lee-tech/hrportal/internal/repository"
	"golang.org/x/sync/errgroup"
)

const dayLayout = "2006-01-02"

// chartPalette is cycled through by department index.
var chartPalette = func() []string {
	colours := make([]string, 0, 14)
	for i := 11; i <= 24; i++ {
		colours = append(colours, fmt.Sprintf("var(--chart-%d)", i))
	}
	return colours
}()

type dashboardSource interface {
	DepartmentHeadcount(ctx context.Context) ([]repository.DepartmentCount, error)
	HiringDates(ctx context.Context) ([]time.Time, error)
	LeavingDates(ctx context.Context) ([]time.Time, error)
	LeaveReasons(ctx context.Context) ([]repository.ReasonCount, error)
}

// DashboardService reshapes aggregate queries into chart series.
type DashboardService struct {
	repo dashboardSource
	now  func() time.Time
}

// NewDashboardService creates a dashboard service
func NewDashboardService(repo dashboardSource) *DashboardService {
	return &DashboardService{repo: repo, now: time.Now}
}

// DepartmentHeadcount returns active headcount per department with its share of the total.
func (s *DashboardService) DepartmentHeadcount(ctx context.Context) (*models.HeadcountResponse, error) {
	counts, err := s.repo.DepartmentHeadcount(ctx)
	if err != nil {
		return nil, fmt.Errorf("department headcount: %w", err)
	}
	return HeadcountChart(counts), nil
}

// HeadcountChart colours departments and computes percentages rounded to one decimal.
func HeadcountChart(counts []repository.DepartmentCount) *models.HeadcountResponse {
	var total int64
	for _, c := range counts {
		total += c.Count
	}

	resp := &models.HeadcountResponse{
		Departments: make([]models.DepartmentHeadcount, 0, len(counts)),
		Total:       total,
		ChartConfig: make(map[string]models.ChartSeries, len(counts)),
	}
	for i, c := range counts {
		colour := chartPalette[i%len(chartPalette)]
		var pct float64
		if total > 0 {
			pct = math.Round(float64(c.Count)/float64(total)*1000) / 10
		}
		resp.Departments = append(resp.Departments, models.DepartmentHeadcount{
			Department: c.Department,
			Count:      c.Count,
			Percentage: pct,
			Fill:       colour,
		})
		resp.ChartConfig[c.Department] = models.ChartSeries{Label: c.Department, Color: colour}
	}
	return resp
}

// HiringLeaving returns daily hiring and leaving counts in ascending date order.
func (s *DashboardService) HiringLeaving(ctx context.Context) ([]models.HiringLeavingPoint, error) {
	var hires, leaves []time.Time
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		hires, err = s.repo.HiringDates(gctx)
		return err
	})
	g.Go(func() (err error) {
		leaves, err = s.repo.LeavingDates(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("hiring and leaving dates: %w", err)
	}
	return DailySeries(hires, leaves), nil
}

// DailySeries buckets dates by UTC calendar day. Days present on only one
// side count zero on the other.
func DailySeries(hires, leaves []time.Time) []models.HiringLeavingPoint {
	byDay := map[string]*models.HiringLeavingPoint{}
	point := func(t time.Time) *models.HiringLeavingPoint {
		day := t.UTC().Format(dayLayout)
		p, ok := byDay[day]
		if !ok {
			p = &models.HiringLeavingPoint{Date: day}
			byDay[day] = p
		}
		return p
	}
	for _, t := range hires {
		point(t).Hiring++
	}
	for _, t := range leaves {
		point(t).Leaving++
	}

	series := make([]models.HiringLeavingPoint, 0, len(byDay))
	for _, p := range byDay {
		series = append(series, *p)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
	return series
}

// LeaveReasons returns termination reasons by frequency, most common first.
func (s *DashboardService) LeaveReasons(ctx context.Context) ([]models.LeaveReasonCount, error) {
	reasons, err := s.repo.LeaveReasons(ctx)
	if err != nil {
		return nil, fmt.Errorf("leave reasons: %w", err)
	}
	out := make([]models.LeaveReasonCount, 0, len(reasons))
	for _, r := range reasons {
		out = append(out, models.LeaveReasonCount{Reason: r.Reason, Count: r.Count})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	return out, nil
}

// Overview runs every dashboard query concurrently.
func (s *DashboardService) Overview(ctx context.Context) (*models.DashboardOverview, error) {
	var (
		headcount *models.HeadcountResponse
		series    []models.HiringLeavingPoint
		reasons   []models.LeaveReasonCount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		headcount, err = s.DepartmentHeadcount(gctx)
		return err
	})
	g.Go(func() (err error) {
		series, err = s.HiringLeaving(gctx)
		return err
	})
	g.Go(func() (err error) {
		reasons, err = s.LeaveReasons(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.DashboardOverview{
		Headcount:     *headcount,
		HiringLeaving: series,
		LeaveReasons:  reasons,
		GeneratedAt:   s.now().UTC(),
	}, nil
}

func init() {
	coreServer.RegisterService(constants.ComponentKey.DashboardService, func(app *coreServer.HTTPApp) (interface{}, error) {
		repo, err := coreServer.Resolve[*repository.DashboardRepository](app, constants.ComponentKey.DashboardRepository)
		if err != nil {
			return nil, err
		}
		return NewDashboardService(repo), nil
	})
}
