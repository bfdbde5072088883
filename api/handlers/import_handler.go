package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	coreErrors "github.com/lee-tech/hrportal/internal/core/errors"
	coreMiddleware "github.com/lee-tech/hrportal/internal/core/middleware"
	coreServer "github.com/lee-tech/hrportal/internal/core/server"
	"github.com/lee-tech/hrportal/internal/core/utils"
	"github.com/lee-tech/hrportal/internal/importer"
	"github.com/lee-tech/hrportal/internal/service"
	"go.uber.org/zap"
)

const (
	defaultMaxUploadBytes = 20 << 20
	multipartMemory       = 8 << 20
)

// ImportHandler serves spreadsheet and JSON employee imports.
type ImportHandler struct {
	imports        *service.ImportService
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewImportHandler creates an import handler
func NewImportHandler(imports *service.ImportService, maxUploadBytes int64, logger *zap.Logger) *ImportHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportHandler{imports: imports, maxUploadBytes: maxUploadBytes, logger: logger.Named("import-handler")}
}

// RegisterRoutes mounts the import routes on an HR subrouter.
func (h *ImportHandler) RegisterRoutes(router *mux.Router) {
	coreServer.Route(router, "/employees/import", h.ImportJSON,
		coreServer.WithMethods(http.MethodPost),
		coreServer.WithSummary("Import employees"),
		coreServer.WithDescription("Upsert one employee (object body) or a batch (array body) keyed by employee code"),
		coreServer.WithRequestBody(&coreServer.BodyMeta{
			Required: true,
			Example: []map[string]any{{
				"employeeCode":      "E1042",
				"firstName":         "Mona",
				"department":        "Finance",
				"gradeOfficial":     5,
				"directManagerCode": "E1001",
			}},
		}),
		coreServer.WithTags("Import"),
		coreServer.RequireAuth(),
	)
	coreServer.Route(router, "/imports", h.Upload,
		coreServer.WithMethods(http.MethodPost),
		coreServer.WithSummary("Upload spreadsheet"),
		coreServer.WithDescription("Start a background import of an .xlsx or .xls file sent as multipart field \"file\""),
		coreServer.WithRequestBody(&coreServer.BodyMeta{Required: true, ContentType: "multipart/form-data"}),
		coreServer.WithTags("Import"),
		coreServer.RequireAuth(),
	)
	coreServer.Route(router, "/imports", h.Recent,
		coreServer.WithSummary("Recent imports"),
		coreServer.WithTags("Import"),
		coreServer.RequireAuth(),
	)
	coreServer.Route(router, "/imports/preview", h.Preview,
		coreServer.WithMethods(http.MethodPost),
		coreServer.WithSummary("Preview spreadsheet"),
		coreServer.WithDescription("Parse a spreadsheet and return its rows without importing"),
		coreServer.WithRequestBody(&coreServer.BodyMeta{Required: true, ContentType: "multipart/form-data"}),
		coreServer.WithTags("Import"),
		coreServer.RequireAuth(),
	)
	coreServer.Route(router, "/imports/{id}", h.Job,
		coreServer.WithSummary("Import progress"),
		coreServer.WithTags("Import"),
		coreServer.RequireAuth(),
	)
}

// ImportJSON imports rows posted as JSON. A single object answers with its
// row result (500 when it failed); an array answers with the batch summary.
func (h *ImportHandler) ImportJSON(w http.ResponseWriter, r *http.Request) {
	if !h.withinLimit(w, r) {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUploadBytes))
	if err != nil {
		writeReadError(w, err)
		return
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		coreErrors.BadRequest("Invalid request body").WriteHTTP(w)
		return
	}

	var objects []map[string]any
	single := body[0] == '{'
	if single {
		var obj map[string]any
		err = json.Unmarshal(body, &obj)
		objects = []map[string]any{obj}
	} else {
		err = json.Unmarshal(body, &objects)
	}
	if err != nil {
		coreErrors.BadRequest("Invalid request body").WriteHTTP(w)
		return
	}

	rows := make([]importer.Row, 0, len(objects))
	for _, obj := range objects {
		rows = append(rows, importer.RowFromJSON(obj))
	}

	resp, err := h.imports.ImportBatch(r.Context(), rows)
	if err != nil {
		h.logger.Error("import batch failed", zap.Int("rows", len(rows)), zap.Error(err))
		coreErrors.Internal("failed to import employees").WithInternal(err).WriteHTTP(w)
		return
	}

	if single {
		status := http.StatusOK
		if !resp.Results[0].Success {
			status = http.StatusInternalServerError
		}
		utils.RespondJSON(w, status, resp.Results[0])
		return
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

// Upload starts a background import and answers 202 with the job.
func (h *ImportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	name, data, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	var startedBy string
	if authCtx := coreMiddleware.GetAuthContext(r.Context()); authCtx != nil {
		startedBy = authCtx.EmployeeCode
	}

	job, err := h.imports.StartImport(r.Context(), name, data, startedBy)
	if err != nil {
		h.writeImportError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusAccepted, job)
}

// Preview parses an upload without writing anything.
func (h *ImportHandler) Preview(w http.ResponseWriter, r *http.Request) {
	name, data, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	preview, err := h.imports.Preview(name, data)
	if err != nil {
		h.writeImportError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, preview)
}

// Job returns the progress of one import.
func (h *ImportHandler) Job(w http.ResponseWriter, r *http.Request) {
	job, err := h.imports.Job(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, service.ErrImportJobNotFound) {
			coreErrors.NotFound("import job").WriteHTTP(w)
			return
		}
		coreErrors.Internal("failed to load import job").WithInternal(err).WriteHTTP(w)
		return
	}
	utils.RespondJSON(w, http.StatusOK, job)
}

// Recent lists the latest import jobs.
func (h *ImportHandler) Recent(w http.ResponseWriter, r *http.Request) {
	_, limit := utils.Pagination(r, 20, 100)
	jobs, err := h.imports.RecentJobs(r.Context(), limit)
	if err != nil {
		coreErrors.Internal("failed to list import jobs").WithInternal(err).WriteHTTP(w)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"data": jobs})
}

func (h *ImportHandler) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	if !h.withinLimit(w, r) {
		return "", nil, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeReadError(w, err)
		return "", nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		coreErrors.ValidationError("A spreadsheet must be uploaded in the \"file\" field").WriteHTTP(w)
		return "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeReadError(w, err)
		return "", nil, false
	}
	return header.Filename, data, true
}

func (h *ImportHandler) writeImportError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNoRows):
		coreErrors.ValidationError("The spreadsheet has no employee rows").WriteHTTP(w)
	case errors.Is(err, importer.ErrNoWorksheet), errors.Is(err, importer.ErrEmptyWorksheet):
		coreErrors.ValidationError("The spreadsheet has no worksheet with data").WriteHTTP(w)
	default:
		h.logger.Warn("spreadsheet rejected", zap.Error(err))
		coreErrors.BadRequest("The spreadsheet could not be read").WithInternal(err).WriteHTTP(w)
	}
}

// withinLimit rejects bodies whose declared length already exceeds the limit;
// undeclared lengths are caught by MaxBytesReader.
func (h *ImportHandler) withinLimit(w http.ResponseWriter, r *http.Request) bool {
	if r.ContentLength > h.maxUploadBytes {
		payloadTooLarge().WriteHTTP(w)
		return false
	}
	return true
}

func payloadTooLarge() *coreErrors.AppError {
	return coreErrors.New(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Upload exceeds the size limit")
}

func writeReadError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		payloadTooLarge().WriteHTTP(w)
		return
	}
	coreErrors.BadRequest("Invalid request body").WithInternal(err).WriteHTTP(w)
}
