package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	coreErrors "github.com/lee-tech/hrportal/internal/core/errors"
	coreServer "github.com/lee-tech/hrportal/internal/core/server"
	"github.com/lee-tech/hrportal/internal/core/utils"
	"github.com/lee-tech/hrportal/internal/service"
	"go.uber.org/zap"
)

// DashboardHandler serves the HR dashboard series.
type DashboardHandler struct {
	dashboard *service.DashboardService
	logger    *zap.Logger
}

// NewDashboardHandler creates a dashboard handler
func NewDashboardHandler(dashboard *service.DashboardService, logger *zap.Logger) *DashboardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardHandler{dashboard: dashboard, logger: logger.Named("dashboard-handler")}
}

// RegisterRoutes mounts the dashboard routes on an HR subrouter.
func (h *DashboardHandler) RegisterRoutes(router *mux.Router) {
	coreServer.Route(router, "/dashboard", h.Overview,
		coreServer.WithSummary("Dashboard overview"),
		coreServer.WithDescription("Headcount by department, daily hiring/leaving and leave reasons"),
		coreServer.WithTags("Dashboard"),
		coreServer.RequireAuth(),
	)
	coreServer.Route(router, "/dashboard/departments", h.Departments,
		coreServer.WithSummary("Headcount by department"),
		coreServer.WithTags("Dashboard"),
		coreServer.RequireAuth(),
	)
	coreServer.Route(router, "/dashboard/hiring", h.Hiring,
		coreServer.WithSummary("Daily hiring and leaving"),
		coreServer.WithTags("Dashboard"),
		coreServer.RequireAuth(),
	)
	coreServer.Route(router, "/dashboard/leave-reasons", h.LeaveReasons,
		coreServer.WithSummary("Leave reasons"),
		coreServer.WithTags("Dashboard"),
		coreServer.RequireAuth(),
	)
}

func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	serve(w, r, h.logger, "failed to load dashboard", func(ctx context.Context) (any, error) {
		return h.dashboard.Overview(ctx)
	})
}

func (h *DashboardHandler) Departments(w http.ResponseWriter, r *http.Request) {
	serve(w, r, h.logger, "failed to load headcount", func(ctx context.Context) (any, error) {
		return h.dashboard.DepartmentHeadcount(ctx)
	})
}

func (h *DashboardHandler) Hiring(w http.ResponseWriter, r *http.Request) {
	serve(w, r, h.logger, "failed to load hiring series", func(ctx context.Context) (any, error) {
		return h.dashboard.HiringLeaving(ctx)
	})
}

func (h *DashboardHandler) LeaveReasons(w http.ResponseWriter, r *http.Request) {
	serve(w, r, h.logger, "failed to load leave reasons", func(ctx context.Context) (any, error) {
		return h.dashboard.LeaveReasons(ctx)
	})
}

// serve answers a read-only query with 200 JSON, or logs and returns 500.
func serve(w http.ResponseWriter, r *http.Request, logger *zap.Logger, failure string, query func(context.Context) (any, error)) {
	result, err := query(r.Context())
	if err != nil {
		logger.Error(failure, zap.Error(err))
		coreErrors.Internal(failure).WithInternal(err).WriteHTTP(w)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}
