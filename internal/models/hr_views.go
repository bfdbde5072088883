package models

import (
	"time"

	coreServer "github.com/lee-tech/hrportal/internal/core/server"
)

// OrgChartNode is one box of the flattened org chart. IDs are dense strings
// with the root at "1"; ParentID is empty only for the root.
type OrgChartNode struct {
	ID              string `json:"id"`
	ParentID        string `json:"parentId"`
	Name            string `json:"name"`
	Title           string `json:"title"`
	Email           string `json:"email,omitempty"`
	EmployeeCode    string `json:"employeeCode,omitempty"`
	BackgroundColor string `json:"backgroundColor"`
	TextColor       string `json:"textColor"`
	ImageURL        string `json:"imageUrl"`
}

// HierarchyRow is the slice of an employee the org chart and reconciliation need.
type HierarchyRow struct {
	ID                uint64
	EmployeeCode      string
	IDName            string
	FirstName         string
	LastName          string
	Email             string
	PositionEn        string
	GradeOfficial     int
	ManagerID         *uint64
	DirectManagerCode string
}

// CorrectionIssue explains why a row is listed for manual correction.
type CorrectionIssue string

const (
	IssueMissingManagerCode CorrectionIssue = "missing_manager_code"
	IssueUnresolvedManager  CorrectionIssue = "unresolved_manager"
)

// CorrectionRow is an active employee whose manager linkage needs attention.
type CorrectionRow struct {
	ID                uint64          `json:"id"`
	IDName            string          `json:"idName"`
	EmployeeCode      string          `json:"employeeCode"`
	ManagerID         *uint64         `json:"managerId"`
	DirectManagerCode *string         `json:"directManagerCode"`
	Issue             CorrectionIssue `json:"issue"`
}

// ReconcileOutcome classifies one employee during reconciliation.
type ReconcileOutcome string

const (
	OutcomeLinked         ReconcileOutcome = "linked"
	OutcomeUnchanged      ReconcileOutcome = "unchanged"
	OutcomeSelfReference  ReconcileOutcome = "self_reference"
	OutcomeMissingManager ReconcileOutcome = "missing_manager"
)

// ReconcileReport summarises a reconciliation run.
type ReconcileReport struct {
	DryRun         bool     `json:"dry_run"`
	Examined       int      `json:"examined"`
	Linked         int      `json:"linked"`
	Unchanged      int      `json:"unchanged"`
	SelfReference  int      `json:"self_reference"`
	MissingManager int      `json:"missing_manager"`
	Cleared        int      `json:"cleared"`
	LinkedCodes    []string `json:"linked_codes,omitempty"`
	SelfCodes      []string `json:"self_reference_codes,omitempty"`
	MissingCodes   []string `json:"missing_manager_codes,omitempty"`
}

// DepartmentHeadcount is one slice of the headcount chart.
type DepartmentHeadcount struct {
	Department string  `json:"department"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
	Fill       string  `json:"fill"`
}

// ChartSeries labels one series for the chart widget.
type ChartSeries struct {
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

// HeadcountResponse carries the headcount chart data.
type HeadcountResponse struct {
	Departments []DepartmentHeadcount  `json:"departments"`
	Total       int64                  `json:"total"`
	ChartConfig map[string]ChartSeries `json:"chartConfig"`
}

// HiringLeavingPoint is one day of the hiring/attrition series.
type HiringLeavingPoint struct {
	Date    string `json:"date"`
	Hiring  int    `json:"hiring"`
	Leaving int    `json:"leaving"`
}

// LeaveReasonCount is one bar of the leave-reason chart.
type LeaveReasonCount struct {
	Reason string `json:"reason"`
	Count  int64  `json:"count"`
}

// DashboardOverview bundles every dashboard series.
type DashboardOverview struct {
	Headcount     HeadcountResponse    `json:"headcount"`
	HiringLeaving []HiringLeavingPoint `json:"hiringLeaving"`
	LeaveReasons  []LeaveReasonCount   `json:"leaveReasons"`
	GeneratedAt   time.Time            `json:"generatedAt"`
}

// ImportUserData identifies the row an import result belongs to.
type ImportUserData struct {
	EmployeeCode string `json:"employeeCode"`
}

// ImportRowResult is the outcome of importing one employee.
type ImportRowResult struct {
	Success  bool           `json:"success"`
	Error    string         `json:"error,omitempty"`
	UserData ImportUserData `json:"userData"`
}

// ImportSummary counts a batch outcome.
type ImportSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// ImportBatchResponse is returned for batch imports.
type ImportBatchResponse struct {
	Success bool              `json:"success"`
	Results []ImportRowResult `json:"results"`
	Summary ImportSummary     `json:"summary"`
}

// ImportAnalysis describes a parsed spreadsheet before it is imported.
type ImportAnalysis struct {
	Rows        int      `json:"rows"`
	Entities    []string `json:"entities"`
	Departments []string `json:"departments"`
	Positions   []string `json:"positions"`
}

func init() {
	coreServer.RegisterSchemaType("orgchart-node", OrgChartNode{})
	coreServer.RegisterSchemaType("reconcile-report", ReconcileReport{})
	coreServer.RegisterSchemaType("dashboard-overview", DashboardOverview{})
	coreServer.RegisterSchemaType("import-batch-response", ImportBatchResponse{})
	coreServer.RegisterSchemaType("import-job", ImportJob{})
}
