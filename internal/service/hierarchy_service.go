package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lee-tech/hrportal/config"
	"github.com/lee-tech/hrportal/internal/constants"
	coreServer "github.com/lee-tech/hrportal/internal/core/server"
	"github.com/lee-tech/hrportal/internal/metrics"
	"github.com/lee-tech/hrportal/internal/models"
	"github.com/lee-tech/hrportal/internal/repository"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

const (
	rootNodeID   = "1"
	noTitle      = "No Title"
	nodeText     = "text-gray-200"
	nodeImage    = "/img/na.jpg"
	rootBgColour = "bg-teal-600"
)

// hierarchySource is the slice of EmployeeRepository the hierarchy needs.
type hierarchySource interface {
	ActiveHierarchy(ctx context.Context) ([]models.HierarchyRow, error)
	ApplyManagerLinks(ctx context.Context, links map[uint64]*uint64) error
}

// HierarchyService resolves manager linkage and renders the org chart.
type HierarchyService struct {
	employees hierarchySource
	metrics   *metrics.Portal
	minGrade  int
	limit     int
	logger    *zap.Logger
}

// NewHierarchyService creates a hierarchy service. Staff below minGrade are
// left out of the chart, which holds at most limit staff nodes.
func NewHierarchyService(employees hierarchySource, portalMetrics *metrics.Portal, minGrade, limit int, logger *zap.Logger) *HierarchyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if portalMetrics == nil {
		portalMetrics = metrics.New(nil)
	}
	return &HierarchyService{
		employees: employees,
		metrics:   portalMetrics,
		minGrade:  minGrade,
		limit:     limit,
		logger:    logger.Named("hierarchy"),
	}
}

// Reconcile resolves every active employee's direct manager code against the
// active workforce and, unless dryRun, stores the resulting manager ids.
func (s *HierarchyService) Reconcile(ctx context.Context, dryRun bool) (*models.ReconcileReport, error) {
	rows, err := s.employees.ActiveHierarchy(ctx)
	if err != nil {
		return nil, fmt.Errorf("load hierarchy: %w", err)
	}

	report, links := PlanReconciliation(rows)
	report.DryRun = dryRun

	if !dryRun {
		if err := s.employees.ApplyManagerLinks(ctx, links); err != nil {
			return nil, fmt.Errorf("apply manager links: %w", err)
		}
		s.metrics.Reconciliations.WithLabelValues(string(models.OutcomeLinked)).Add(float64(report.Linked))
		s.metrics.Reconciliations.WithLabelValues(string(models.OutcomeUnchanged)).Add(float64(report.Unchanged))
		s.metrics.Reconciliations.WithLabelValues(string(models.OutcomeSelfReference)).Add(float64(report.SelfReference))
		s.metrics.Reconciliations.WithLabelValues(string(models.OutcomeMissingManager)).Add(float64(report.MissingManager))
	}

	s.logger.Info("manager reconciliation finished",
		zap.Bool("dry_run", dryRun),
		zap.Int("examined", report.Examined),
		zap.Int("linked", report.Linked),
		zap.Int("self_reference", report.SelfReference),
		zap.Int("missing_manager", report.MissingManager),
	)
	return report, nil
}

// PlanReconciliation classifies rows and returns the manager id changes to
// write. A nil target clears the link. Rows without a manager code are skipped.
func PlanReconciliation(rows []models.HierarchyRow) (*models.ReconcileReport, map[uint64]*uint64) {
	byCode := make(map[string]uint64, len(rows))
	for _, row := range rows {
		byCode[strings.TrimSpace(row.EmployeeCode)] = row.ID
	}

	report := &models.ReconcileReport{}
	links := map[uint64]*uint64{}
	unlink := func(row models.HierarchyRow) {
		if row.ManagerID != nil {
			links[row.ID] = nil
			report.Cleared++
		}
	}

	for _, row := range rows {
		code := strings.TrimSpace(row.DirectManagerCode)
		if code == "" {
			continue
		}
		report.Examined++

		managerID, found := byCode[code]
		switch {
		case code == strings.TrimSpace(row.EmployeeCode) || (found && managerID == row.ID):
			report.SelfReference++
			report.SelfCodes = append(report.SelfCodes, row.EmployeeCode)
			unlink(row)
		case !found:
			report.MissingManager++
			report.MissingCodes = append(report.MissingCodes, row.EmployeeCode)
			unlink(row)
		case row.ManagerID != nil && *row.ManagerID == managerID:
			report.Unchanged++
		default:
			id := managerID
			links[row.ID] = &id
			report.Linked++
			report.LinkedCodes = append(report.LinkedCodes, row.EmployeeCode)
		}
	}
	return report, links
}

// Corrections lists active employees whose manager linkage needs manual attention.
func (s *HierarchyService) Corrections(ctx context.Context) ([]models.CorrectionRow, error) {
	rows, err := s.employees.ActiveHierarchy(ctx)
	if err != nil {
		return nil, fmt.Errorf("load hierarchy: %w", err)
	}

	active := make(map[uint64]struct{}, len(rows))
	for _, row := range rows {
		active[row.ID] = struct{}{}
	}

	corrections := make([]models.CorrectionRow, 0)
	for _, row := range rows {
		item := models.CorrectionRow{
			ID:           row.ID,
			IDName:       row.IDName,
			EmployeeCode: row.EmployeeCode,
			ManagerID:    row.ManagerID,
		}
		code := strings.TrimSpace(row.DirectManagerCode)
		if code == "" {
			item.Issue = models.IssueMissingManagerCode
			corrections = append(corrections, item)
			continue
		}
		item.DirectManagerCode = &code
		if row.ManagerID == nil {
			item.Issue = models.IssueUnresolvedManager
			corrections = append(corrections, item)
			continue
		}
		if _, ok := active[*row.ManagerID]; !ok {
			item.Issue = models.IssueUnresolvedManager
			corrections = append(corrections, item)
		}
	}
	return corrections, nil
}

// OrgChart returns the flattened org chart of the active workforce.
func (s *HierarchyService) OrgChart(ctx context.Context) ([]models.OrgChartNode, error) {
	rows, err := s.employees.ActiveHierarchy(ctx)
	if err != nil {
		return nil, fmt.Errorf("load hierarchy: %w", err)
	}
	return BuildOrgChart(rows, s.minGrade, s.limit), nil
}

// BuildOrgChart flattens rows into a parent-pointer tree rooted at "1".
// The root is the top-graded employee without a manager. Staff are employees
// with a manager above minGrade, highest grade first, at most limit of them.
// Nodes whose manager is not on the chart, or who would close a cycle, hang
// off the root.
func BuildOrgChart(rows []models.HierarchyRow, minGrade, limit int) []models.OrgChartNode {
	policy := bluemonday.StrictPolicy()

	var root *models.HierarchyRow
	for i := range rows {
		row := &rows[i]
		if row.ManagerID != nil {
			continue
		}
		if root == nil || row.GradeOfficial > root.GradeOfficial {
			root = row
		}
	}

	staff := make([]models.HierarchyRow, 0, len(rows))
	for _, row := range rows {
		if row.ManagerID == nil || row.GradeOfficial <= minGrade {
			continue
		}
		if root != nil && row.ID == root.ID {
			continue
		}
		staff = append(staff, row)
	}
	sort.SliceStable(staff, func(i, j int) bool {
		return staff[i].GradeOfficial > staff[j].GradeOfficial
	})
	if limit >= 0 && len(staff) > limit {
		staff = staff[:limit]
	}

	nodes := make([]models.OrgChartNode, 0, len(staff)+1)
	if root != nil {
		node := chartNode(policy, *root)
		node.ID = rootNodeID
		node.BackgroundColor = rootBgColour
		nodes = append(nodes, node)
	} else {
		nodes = append(nodes, models.OrgChartNode{
			ID:              rootNodeID,
			BackgroundColor: rootBgColour,
			TextColor:       nodeText,
			ImageURL:        nodeImage,
		})
	}

	dense := make(map[uint64]string, len(staff)+1)
	if root != nil {
		dense[root.ID] = rootNodeID
	}
	for i, row := range staff {
		dense[row.ID] = strconv.Itoa(i + 2)
	}

	for _, row := range staff {
		node := chartNode(policy, row)
		node.ID = dense[row.ID]
		node.ParentID = rootNodeID
		if parent, ok := dense[*row.ManagerID]; ok && *row.ManagerID != row.ID {
			node.ParentID = parent
		}
		nodes = append(nodes, node)
	}

	breakCycles(nodes)
	return nodes
}

// breakCycles re-attaches to the root every node whose parent chain loops
// back on itself instead of reaching the root.
func breakCycles(nodes []models.OrgChartNode) {
	index := make(map[string]int, len(nodes))
	for i, node := range nodes {
		index[node.ID] = i
	}

	const (
		unvisited = iota
		walking
		done
	)
	state := make([]int, len(nodes))
	for start := range nodes {
		if state[start] != unvisited {
			continue
		}
		var path []int
		current := start
		for {
			if nodes[current].ID == rootNodeID {
				break
			}
			state[current] = walking
			path = append(path, current)

			next, ok := index[nodes[current].ParentID]
			if !ok {
				nodes[current].ParentID = rootNodeID
				break
			}
			if state[next] == walking {
				nodes[current].ParentID = rootNodeID
				break
			}
			if state[next] == done {
				break
			}
			current = next
		}
		for _, i := range path {
			state[i] = done
		}
	}
}

func chartNode(policy *bluemonday.Policy, row models.HierarchyRow) models.OrgChartNode {
	title := strings.TrimSpace(policy.Sanitize(row.PositionEn))
	if title == "" {
		title = noTitle
	}
	return models.OrgChartNode{
		Name:            strings.TrimSpace(policy.Sanitize(strings.TrimSpace(row.FirstName + " " + row.LastName))),
		Title:           title,
		Email:           policy.Sanitize(row.Email),
		EmployeeCode:    policy.Sanitize(row.EmployeeCode),
		BackgroundColor: gradeColour(row.GradeOfficial),
		TextColor:       nodeText,
		ImageURL:        nodeImage,
	}
}

func gradeColour(grade int) string {
	switch {
	case grade > 6:
		return "bg-teal-600"
	case grade > 5:
		return "bg-cyan-600"
	case grade > 4:
		return "bg-orange-600"
	default:
		return "bg-slate-600"
	}
}

func init() {
	coreServer.RegisterService(constants.ComponentKey.HierarchyService, func(app *coreServer.HTTPApp) (interface{}, error) {
		cfg, err := coreServer.Resolve[*config.HRConfig](app, constants.ComponentKey.HRConfig)
		if err != nil {
			return nil, err
		}
		employees, err := coreServer.Resolve[*repository.EmployeeRepository](app, constants.ComponentKey.EmployeeRepository)
		if err != nil {
			return nil, err
		}
		portalMetrics, err := coreServer.Resolve[*metrics.Portal](app, constants.ComponentKey.PortalMetrics)
		if err != nil {
			return nil, err
		}
		return NewHierarchyService(employees, portalMetrics, cfg.OrgChartMinGrade, cfg.OrgChartLimit, app.Logger), nil
	})
}
