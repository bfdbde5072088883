package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	coreErrors "github.com/lee-tech/hrportal/internal/core/errors"
	coreMiddleware "github.com/lee-tech/hrportal/internal/core/middleware"
	coreServer "github.com/lee-tech/hrportal/internal/core/server"
	"github.com/lee-tech/hrportal/internal/core/utils"
	"github.com/lee-tech/hrportal/internal/service"
	"go.uber.org/zap"
)

// HierarchyHandler serves the org chart and manager-linkage correction.
type HierarchyHandler struct {
	hierarchy *service.HierarchyService
	logger    *zap.Logger
}

// NewHierarchyHandler creates a hierarchy handler
func NewHierarchyHandler(hierarchy *service.HierarchyService, logger *zap.Logger) *HierarchyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HierarchyHandler{hierarchy: hierarchy, logger: logger.Named("hierarchy-handler")}
}

// RegisterRoutes mounts the hierarchy routes on an HR subrouter.
func (h *HierarchyHandler) RegisterRoutes(router *mux.Router) {
	coreServer.Route(router, "/orgchart", h.OrgChart,
		coreServer.WithSummary("Org chart"),
		coreServer.WithDescription("Flat node list of the active reporting tree, rooted at node \"1\""),
		coreServer.WithTags("Hierarchy"),
		coreServer.RequireAuth(),
	)
	coreServer.Route(router, "/correction", h.Corrections,
		coreServer.WithSummary("Linkage corrections"),
		coreServer.WithDescription("Active employees without a resolvable manager"),
		coreServer.WithTags("Hierarchy"),
		coreServer.RequireAuth(),
	)
	coreServer.Route(router, "/correction/reconcile", h.Reconcile,
		coreServer.WithMethods(http.MethodPost),
		coreServer.WithSummary("Reconcile managers"),
		coreServer.WithDescription("Resolve direct manager codes to manager links; dry_run=true reports without writing"),
		coreServer.WithTags("Hierarchy"),
		coreServer.RequireAuth(),
	)
}

func (h *HierarchyHandler) OrgChart(w http.ResponseWriter, r *http.Request) {
	serve(w, r, h.logger, "failed to build org chart", func(ctx context.Context) (any, error) {
		return h.hierarchy.OrgChart(ctx)
	})
}

func (h *HierarchyHandler) Corrections(w http.ResponseWriter, r *http.Request) {
	serve(w, r, h.logger, "failed to load corrections", func(ctx context.Context) (any, error) {
		return h.hierarchy.Corrections(ctx)
	})
}

func (h *HierarchyHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	dryRun := false
	if raw := r.URL.Query().Get("dry_run"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			coreErrors.ValidationError("dry_run must be true or false").WriteHTTP(w)
			return
		}
		dryRun = parsed
	}

	report, err := h.hierarchy.Reconcile(r.Context(), dryRun)
	if err != nil {
		h.logger.Error("reconcile failed", zap.Error(err))
		coreErrors.Internal("failed to reconcile managers").WithInternal(err).WriteHTTP(w)
		return
	}

	var by string
	if authCtx := coreMiddleware.GetAuthContext(r.Context()); authCtx != nil {
		by = authCtx.EmployeeCode
	}
	h.logger.Info("managers reconciled",
		zap.String("by", by),
		zap.Bool("dry_run", dryRun),
		zap.Int("linked", report.Linked),
		zap.Int("cleared", report.Cleared),
	)
	utils.RespondJSON(w, http.StatusOK, report)
}
