// Package metrics defines the portal's business counters.
package metrics

import (
	"github.com/lee-tech/hrportal/internal/constants"
	coreServer "github.com/lee-tech/hrportal/internal/core/server"
	"github.com/prometheus/client_golang/prometheus"
)

// Portal holds the counters services increment.
type Portal struct {
	CodesSent       *prometheus.CounterVec
	Logins          *prometheus.CounterVec
	RowsImported    *prometheus.CounterVec
	ImportJobs      *prometheus.CounterVec
	Reconciliations *prometheus.CounterVec
}

// New registers the counters on reg. A nil reg leaves them unregistered,
// which keeps them usable in tests.
func New(reg prometheus.Registerer) *Portal {
	p := &Portal{
		CodesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hrportal",
			Name:      "verification_codes_sent_total",
			Help:      "One-time sign-in codes delivered, by channel.",
		}, []string{"channel", "result"}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hrportal",
			Name:      "logins_total",
			Help:      "Sign-in attempts, by method and result.",
		}, []string{"method", "result"}),
		RowsImported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hrportal",
			Name:      "import_rows_total",
			Help:      "Employee rows processed by imports.",
		}, []string{"result"}),
		ImportJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hrportal",
			Name:      "import_jobs_total",
			Help:      "Spreadsheet import jobs, by final stage.",
		}, []string{"stage"}),
		Reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hrportal",
			Name:      "manager_links_total",
			Help:      "Employees classified by manager reconciliation.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(p.CodesSent, p.Logins, p.RowsImported, p.ImportJobs, p.Reconciliations)
	}
	return p
}

func init() {
	coreServer.RegisterService(constants.ComponentKey.PortalMetrics, func(app *coreServer.HTTPApp) (interface{}, error) {
		return New(app.Registry), nil
	})
}
