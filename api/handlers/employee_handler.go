package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	coreErrors "github.com/lee-tech/hrportal/internal/core/errors"
	coreServer "github.com/lee-tech/hrportal/internal/core/server"
	"github.com/lee-tech/hrportal/internal/core/utils"
	"github.com/lee-tech/hrportal/internal/service"
	"go.uber.org/zap"
)

// EmployeeHandler serves the HR employee directory.
type EmployeeHandler struct {
	directory *service.DirectoryService
	logger    *zap.Logger
}

// NewEmployeeHandler creates an employee directory handler
func NewEmployeeHandler(directory *service.DirectoryService, logger *zap.Logger) *EmployeeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmployeeHandler{directory: directory, logger: logger.Named("employee-handler")}
}

// RegisterRoutes mounts the directory routes on an HR subrouter.
func (h *EmployeeHandler) RegisterRoutes(router *mux.Router) {
	coreServer.Route(router, "/employees", h.List,
		coreServer.WithSummary("List employees"),
		coreServer.WithDescription("Paginated employee directory ordered by employee code"),
		coreServer.WithTags("Employees"),
		coreServer.RequireAuth(),
	)
	coreServer.Route(router, "/employees/{code}", h.Get,
		coreServer.WithSummary("Get employee"),
		coreServer.WithTags("Employees"),
		coreServer.RequireAuth(),
	)
}

// List returns a page of employee summaries.
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := utils.Pagination(r, 20, 100)

	employees, total, err := h.directory.List(r.Context(), page, pageSize)
	if err != nil {
		h.logger.Error("failed to list employees", zap.Error(err))
		coreErrors.Internal("failed to list employees").WithInternal(err).WriteHTTP(w)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"data": employees,
		"pagination": map[string]interface{}{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": utils.TotalPages(total, pageSize),
		},
	})
}

// Get returns one employee with its references.
func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	employee, err := h.directory.Get(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		if errors.Is(err, service.ErrEmployeeNotFound) {
			coreErrors.NotFound("employee").WriteHTTP(w)
			return
		}
		h.logger.Error("failed to load employee", zap.Error(err))
		coreErrors.Internal("failed to load employee").WithInternal(err).WriteHTTP(w)
		return
	}
	utils.RespondJSON(w, http.StatusOK, employee)
}
