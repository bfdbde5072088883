package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lee-tech/hrportal/config"
	"github.com/lee-tech/hrportal/internal/archive"
	"github.com/lee-tech/hrportal/internal/constants"
	coreServer "github.com/lee-tech/hrportal/internal/core/server"
	"github.com/lee-tech/hrportal/internal/core/utils"
	"github.com/lee-tech/hrportal/internal/events"
	"github.com/lee-tech/hrportal/internal/importer"
	"github.com/lee-tech/hrportal/internal/metrics"
	"github.com/lee-tech/hrportal/internal/models"
	"github.com/lee-tech/hrportal/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrImportJobNotFound = errors.New("import job not found")
	ErrNoRows            = errors.New("spreadsheet has no employee rows")
)

// referenceColumns maps each reference kind to its sheet key and companion key.
var referenceColumns = []struct {
	kind      repository.ReferenceKind
	key       string
	companion string
}{
	{repository.KindStatus, importer.KeyStatus, ""},
	{repository.KindEntity, importer.KeyEntity, ""},
	{repository.KindBudget, importer.KeyBudget, ""},
	{repository.KindDepartment, importer.KeyDepartment, importer.KeyDepartmentAr},
	{repository.KindDivision, importer.KeyDivision, ""},
	{repository.KindUnit, importer.KeyUnit, ""},
	{repository.KindPosition, importer.KeyPosition, importer.KeyPositionAr},
	{repository.KindGrade, importer.KeyGradeOfficial, importer.KeyGradeInternal},
	{repository.KindLocation, importer.KeyLocation, ""},
	{repository.KindContractType, importer.KeyContractType, ""},
	{repository.KindNationality, importer.KeyNationality, importer.KeyNationalityAr},
	{repository.KindGender, importer.KeyGender, importer.KeyGenderAr},
	{repository.KindMaritalStatus, importer.KeyMaritalStatus, importer.KeyMaritalStatusAr},
}

// referenceIDs holds the resolved ids of one batch, by kind and natural key.
type referenceIDs map[repository.ReferenceKind]map[string]uint64

func (ids referenceIDs) lookup(kind repository.ReferenceKind, key string) *uint64 {
	if key == "" {
		return nil
	}
	id, ok := ids[kind][key]
	if !ok {
		return nil
	}
	return &id
}

// ImportPreview is a parsed spreadsheet returned without touching the database.
type ImportPreview struct {
	FileName string                `json:"file_name"`
	Analysis models.ImportAnalysis `json:"analysis"`
	Rows     []importer.Row        `json:"rows"`
}

// ImportService turns spreadsheet rows into employee records.
type ImportService struct {
	db         *gorm.DB
	employees  *repository.EmployeeRepository
	references *repository.ReferenceRepository
	orgs       *repository.OrganizationRepository
	jobs       *repository.ImportJobRepository
	publisher  events.Publisher
	archive    archive.Archive
	metrics    *metrics.Portal
	logger     *zap.Logger

	batchSize int
	options   importer.Options

	wg  sync.WaitGroup
	now func() time.Time
}

// ImportDeps lists the collaborators of ImportService.
type ImportDeps struct {
	Employees     *repository.EmployeeRepository
	References    *repository.ReferenceRepository
	Organizations *repository.OrganizationRepository
	Jobs          *repository.ImportJobRepository
	Publisher     events.Publisher
	Archive       archive.Archive
	Metrics       *metrics.Portal
	Logger        *zap.Logger
	BatchSize     int
	Options       importer.Options
}

// NewImportService creates an import service
func NewImportService(deps ImportDeps) *ImportService {
	s := &ImportService{
		db:         deps.Employees.DB(),
		employees:  deps.Employees,
		references: deps.References,
		orgs:       deps.Organizations,
		jobs:       deps.Jobs,
		publisher:  deps.Publisher,
		archive:    deps.Archive,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		batchSize:  deps.BatchSize,
		options:    deps.Options,
		now:        time.Now,
	}
	if s.publisher == nil {
		s.publisher = events.NoopPublisher{}
	}
	if s.archive == nil {
		s.archive = archive.NoopArchive{}
	}
	if s.metrics == nil {
		s.metrics = metrics.New(nil)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.Named("import")
	if s.batchSize <= 0 {
		s.batchSize = 50
	}
	return s
}

// Parse reads a workbook with the configured header aliases and email domain.
func (s *ImportService) Parse(fileName string, data []byte) ([]importer.Row, error) {
	return importer.ParseWorkbook(bytes.NewReader(data), fileName, s.options)
}

// Preview parses a workbook and returns its rows as JSON-ready maps.
func (s *ImportService) Preview(fileName string, data []byte) (*ImportPreview, error) {
	rows, err := s.Parse(fileName, data)
	if err != nil {
		return nil, err
	}
	return &ImportPreview{FileName: fileName, Analysis: importer.Analyze(rows), Rows: rows}, nil
}

// ImportBatch upserts the references and employees of rows. Row failures are
// reported per row; only a reference failure fails the whole batch.
func (s *ImportService) ImportBatch(ctx context.Context, rows []importer.Row) (*models.ImportBatchResponse, error) {
	for _, row := range rows {
		importer.ApplyDefaultEmail(row, s.options.DefaultEmailDomain)
	}
	ids, err := s.upsertReferences(ctx, rows)
	if err != nil {
		return nil, err
	}
	results := s.upsertEmployees(ctx, rows, ids)
	return batchResponse(results), nil
}

// ImportAll runs rows through ImportBatch in chunks and merges the results.
func (s *ImportService) ImportAll(ctx context.Context, rows []importer.Row) (*models.ImportBatchResponse, error) {
	var results []models.ImportRowResult
	for start := 0; start < len(rows); start += s.batchSize {
		end := min(start+s.batchSize, len(rows))
		resp, err := s.ImportBatch(ctx, rows[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d: %w", start/s.batchSize+1, err)
		}
		results = append(results, resp.Results...)
	}
	return batchResponse(results), nil
}

func batchResponse(results []models.ImportRowResult) *models.ImportBatchResponse {
	summary := models.ImportSummary{Total: len(results)}
	for _, r := range results {
		if r.Success {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}
	if results == nil {
		results = []models.ImportRowResult{}
	}
	return &models.ImportBatchResponse{
		Success: summary.Failed == 0,
		Results: results,
		Summary: summary,
	}
}

func (s *ImportService) upsertReferences(ctx context.Context, rows []importer.Row) (referenceIDs, error) {
	values := map[repository.ReferenceKind][]repository.ReferenceValue{}
	for _, row := range rows {
		for _, col := range referenceColumns {
			key := row.Get(col.key)
			if col.kind == repository.KindGrade {
				key = gradeKey(key)
			}
			if key == "" {
				continue
			}
			var companion *string
			if col.companion != "" {
				companion = row.Optional(col.companion)
			}
			values[col.kind] = append(values[col.kind], repository.ReferenceValue{Key: key, Companion: companion})
		}
	}

	ids := referenceIDs{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, kind := range repository.ReferenceKinds {
			if len(values[kind]) == 0 {
				continue
			}
			resolved, err := s.references.Upsert(ctx, tx, kind, values[kind])
			if err != nil {
				return fmt.Errorf("upsert %s: %w", kind, err)
			}
			ids[kind] = resolved
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *ImportService) upsertEmployees(ctx context.Context, rows []importer.Row, ids referenceIDs) []models.ImportRowResult {
	var orgID *uint64
	if s.orgs != nil {
		if org, err := s.orgs.Default(ctx); err != nil {
			s.logger.Warn("failed to resolve default organization", zap.Error(err))
		} else if org != nil {
			orgID = &org.ID
		}
	}

	results := make([]models.ImportRowResult, 0, len(rows))
	for _, row := range rows {
		code := row.Get(importer.KeyEmployeeCode)
		result := models.ImportRowResult{UserData: models.ImportUserData{EmployeeCode: code}}

		employee, err := buildEmployee(row, ids)
		if err == nil {
			employee.OrganizationID = orgID
			err = s.employees.UpsertByCode(s.db.WithContext(ctx), employee)
		}
		if err != nil {
			result.Error = err.Error()
			s.metrics.RowsImported.WithLabelValues("failed").Inc()
			results = append(results, result)
			continue
		}

		result.Success = true
		s.metrics.RowsImported.WithLabelValues("ok").Inc()
		if err := s.publisher.PublishEmployeeUpserted(ctx, uuid.New(), code); err != nil {
			s.logger.Warn("failed to publish employee event", zap.String("employee_code", code), zap.Error(err))
		}
		results = append(results, result)
	}
	return results
}

// buildEmployee maps a sheet row onto an employee with reference ids resolved.
func buildEmployee(row importer.Row, ids referenceIDs) (*models.Employee, error) {
	code := row.Get(importer.KeyEmployeeCode)
	if code == "" {
		return nil, fmt.Errorf("employee code is required")
	}
	email := row.Optional(importer.KeyEmail)
	if email != nil {
		lowered := strings.ToLower(*email)
		if !utils.IsEmail(lowered) {
			return nil, fmt.Errorf("invalid email %q", *email)
		}
		email = &lowered
	}

	e := &models.Employee{
		EmployeeCode:         code,
		EmployeeCategory:     row.Optional(importer.KeyEmployeeCategory),
		RegisterName:         row.Optional(importer.KeyRegisterName),
		TerminationReason:    row.Optional(importer.KeyTerminationReason),
		ResignationType:      row.Optional(importer.KeyResignationType),
		IDName:               row.Optional(importer.KeyIDName),
		IDNameAr:             row.Optional(importer.KeyIDNameAr),
		FirstName:            row.Optional(importer.KeyFirstName),
		LastName:             row.Optional(importer.KeyLastName),
		FirstNameAr:          row.Optional(importer.KeyFirstNameAr),
		LastNameAr:           row.Optional(importer.KeyLastNameAr),
		DirectManagerCode:    row.Optional(importer.KeyDirectManagerCode),
		DirectManagerName:    row.Optional(importer.KeyDirectManagerName),
		Email:                email,
		PersonalPhoneNumber1: row.Optional(importer.KeyPersonalPhoneNumber1),
		CorporatePhoneNumber: row.Optional(importer.KeyCorporatePhoneNumber),
		IDNumber:             row.Optional(importer.KeyIDNumber),
		IDPlaceOfIssue:       row.Optional(importer.KeyIDPlaceOfIssue),
		IDAddress:            row.Optional(importer.KeyIDAddress),
		IDAddressAr:          row.Optional(importer.KeyIDAddressAr),
		IDZoneOfResidence:    row.Optional(importer.KeyIDZoneOfResidence),
		PlaceOfBirth:         row.Optional(importer.KeyPlaceOfBirth),
		CompanyID:            row.Optional(importer.KeyCompanyID),
		Cleared:              row.Optional(importer.KeyCleared),
		DisabilityType:       row.Optional(importer.KeyDisabilityType),

		StatusID:        ids.lookup(repository.KindStatus, row.Get(importer.KeyStatus)),
		EntityID:        ids.lookup(repository.KindEntity, row.Get(importer.KeyEntity)),
		BudgetID:        ids.lookup(repository.KindBudget, row.Get(importer.KeyBudget)),
		DepartmentID:    ids.lookup(repository.KindDepartment, row.Get(importer.KeyDepartment)),
		DivisionID:      ids.lookup(repository.KindDivision, row.Get(importer.KeyDivision)),
		UnitID:          ids.lookup(repository.KindUnit, row.Get(importer.KeyUnit)),
		PositionID:      ids.lookup(repository.KindPosition, row.Get(importer.KeyPosition)),
		GradeID:         ids.lookup(repository.KindGrade, gradeKey(row.Get(importer.KeyGradeOfficial))),
		LocationID:      ids.lookup(repository.KindLocation, row.Get(importer.KeyLocation)),
		ContractTypeID:  ids.lookup(repository.KindContractType, row.Get(importer.KeyContractType)),
		NationalityID:   ids.lookup(repository.KindNationality, row.Get(importer.KeyNationality)),
		GenderID:        ids.lookup(repository.KindGender, row.Get(importer.KeyGender)),
		MaritalStatusID: ids.lookup(repository.KindMaritalStatus, row.Get(importer.KeyMaritalStatus)),
	}

	if raw := row.Get(importer.KeyGradeOfficial); raw != "" && e.GradeID == nil {
		return nil, fmt.Errorf("%s: %q is not a whole number", importer.KeyGradeOfficial, raw)
	}

	dates := []struct {
		key    string
		target **time.Time
	}{
		{importer.KeyExpectedStartDate, &e.ExpectedStartDate},
		{importer.KeyActualStartDate, &e.ActualStartDate},
		{importer.KeyProbationEndDate, &e.ProbationEndDate},
		{importer.KeyTerminationDate, &e.TerminationDate},
		{importer.KeyDateOfBirth, &e.DateOfBirth},
	}
	for _, d := range dates {
		t, err := row.Date(d.key)
		if err != nil {
			return nil, err
		}
		*d.target = t
	}

	sourceID, err := row.Int(importer.KeySourceID)
	if err != nil {
		return nil, err
	}
	e.SourceID = sourceID
	return e, nil
}

// gradeKey normalises "5.0" to "5"; anything that is not a whole number yields "".
func gradeKey(raw string) string {
	if raw == "" {
		return ""
	}
	n, err := importer.ParseInt(raw)
	if err != nil {
		return ""
	}
	return strconv.FormatInt(n, 10)
}

// StartImport parses and archives an uploaded workbook, records a job and
// imports the rows in the background. The returned job is a snapshot.
func (s *ImportService) StartImport(ctx context.Context, fileName string, data []byte, startedBy string) (*models.ImportJob, error) {
	rows, err := s.Parse(fileName, data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	job := &models.ImportJob{
		ID:        uuid.NewString(),
		FileName:  fileName,
		Stage:     models.ImportStageIdle,
		Total:     len(rows),
		Errors:    models.StringList{},
		StartedBy: startedBy,
	}

	if _, disabled := s.archive.(archive.NoopArchive); !disabled {
		key := archive.Key(job.ID, fileName, s.now())
		if err := s.archive.Put(ctx, key, data, http.DetectContentType(data)); err != nil {
			s.logger.Warn("failed to archive upload", zap.String("file", fileName), zap.Error(err))
		} else {
			job.ArchiveKey = key
		}
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create import job: %w", err)
	}
	snapshot := *job
	snapshot.Errors = append(models.StringList{}, job.Errors...)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(context.WithoutCancel(ctx), job, rows)
	}()
	return &snapshot, nil
}

// Wait blocks until every background import has finished.
func (s *ImportService) Wait() {
	s.wg.Wait()
}

func (s *ImportService) run(ctx context.Context, job *models.ImportJob, rows []importer.Row) {
	log := s.logger.With(zap.String("job_id", job.ID), zap.String("file", job.FileName))
	log.Info("import started", zap.Int("rows", len(rows)))

	s.setStage(ctx, job, models.ImportStagePreparing)
	for _, row := range rows {
		importer.ApplyDefaultEmail(row, s.options.DefaultEmailDomain)
	}

	total := len(rows)
	for i, start := 0, 0; start < total; i, start = i+1, start+s.batchSize {
		chunk := rows[start:min(start+s.batchSize, total)]

		s.setStage(ctx, job, models.ImportStageCreatingRefs)
		ids, err := s.upsertReferences(ctx, chunk)
		if err != nil {
			log.Warn("import batch failed", zap.Int("batch", i+1), zap.Error(err))
			job.Failed += len(chunk)
			for range chunk {
				job.Errors = append(job.Errors, fmt.Sprintf("Failed to process batch %d: %v", i+1, err))
			}
			s.metrics.RowsImported.WithLabelValues("failed").Add(float64(len(chunk)))
		} else {
			s.setStage(ctx, job, models.ImportStageCreatingUsers)
			for _, result := range s.upsertEmployees(ctx, chunk, ids) {
				if result.Success {
					job.Success++
					continue
				}
				job.Failed++
				job.Errors = append(job.Errors,
					fmt.Sprintf("Error with employee %s: %s", result.UserData.EmployeeCode, result.Error))
			}
		}

		job.Processed = min((i+1)*s.batchSize, total)
		job.Progress = int(math.Round(float64(job.Processed) / float64(total) * 100))
		s.save(ctx, job)
	}

	finished := s.now()
	job.Stage = models.ImportStageCompleted
	job.Progress = 100
	job.FinishedAt = &finished
	s.save(ctx, job)
	s.metrics.ImportJobs.WithLabelValues(string(job.Stage)).Inc()
	log.Info("import completed", zap.Int("success", job.Success), zap.Int("failed", job.Failed))
}

func (s *ImportService) setStage(ctx context.Context, job *models.ImportJob, stage models.ImportStage) {
	if job.Stage == stage {
		return
	}
	job.Stage = stage
	s.save(ctx, job)
}

func (s *ImportService) save(ctx context.Context, job *models.ImportJob) {
	if err := s.jobs.Save(ctx, job); err != nil {
		s.logger.Warn("failed to save import job", zap.String("job_id", job.ID), zap.Error(err))
	}
}

// Job returns an import job for polling.
func (s *ImportService) Job(ctx context.Context, id string) (*models.ImportJob, error) {
	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrImportJobNotFound
	}
	return job, nil
}

// RecentJobs lists the latest import jobs.
func (s *ImportService) RecentJobs(ctx context.Context, limit int) ([]*models.ImportJob, error) {
	return s.jobs.Recent(ctx, limit)
}

func init() {
	coreServer.RegisterService(constants.ComponentKey.ImportService, func(app *coreServer.HTTPApp) (interface{}, error) {
		cfg, err := coreServer.Resolve[*config.HRConfig](app, constants.ComponentKey.HRConfig)
		if err != nil {
			return nil, err
		}
		employees, err := coreServer.Resolve[*repository.EmployeeRepository](app, constants.ComponentKey.EmployeeRepository)
		if err != nil {
			return nil, err
		}
		references, err := coreServer.Resolve[*repository.ReferenceRepository](app, constants.ComponentKey.ReferenceRepository)
		if err != nil {
			return nil, err
		}
		orgs, err := coreServer.Resolve[*repository.OrganizationRepository](app, constants.ComponentKey.OrganizationRepository)
		if err != nil {
			return nil, err
		}
		jobs, err := coreServer.Resolve[*repository.ImportJobRepository](app, constants.ComponentKey.ImportJobRepository)
		if err != nil {
			return nil, err
		}
		publisher, err := coreServer.Resolve[events.Publisher](app, constants.ComponentKey.EventPublisher)
		if err != nil {
			return nil, err
		}
		store, err := coreServer.Resolve[archive.Archive](app, constants.ComponentKey.ImportArchive)
		if err != nil {
			return nil, err
		}
		portalMetrics, err := coreServer.Resolve[*metrics.Portal](app, constants.ComponentKey.PortalMetrics)
		if err != nil {
			return nil, err
		}

		opts := importer.Options{DefaultEmailDomain: cfg.ImportDefaultEmailDomain}
		if cfg.ImportHeaderAliasFile != "" {
			aliases, err := importer.LoadAliases(cfg.ImportHeaderAliasFile)
			if err != nil {
				return nil, err
			}
			opts.Aliases = aliases
		}

		svc := NewImportService(ImportDeps{
			Employees:     employees,
			References:    references,
			Organizations: orgs,
			Jobs:          jobs,
			Publisher:     publisher,
			Archive:       store,
			Metrics:       portalMetrics,
			Logger:        app.Logger,
			BatchSize:     cfg.ImportBatchSize,
			Options:       opts,
		})
		app.OnShutdown(func(ctx context.Context) error {
			done := make(chan struct{})
			go func() {
				svc.Wait()
				close(done)
			}()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		return svc, nil
	})
}
