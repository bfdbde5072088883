package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lee-tech/hrportal/internal/importer"
	"github.com/lee-tech/hrportal/internal/models"
	"github.com/lee-tech/hrportal/internal/repository"
	"github.com/lee-tech/hrportal/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu    sync.Mutex
	codes []string
}

func (p *recordingPublisher) PublishEmployeeUpserted(_ context.Context, _ uuid.UUID, code string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.codes = append(p.codes, code)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type memoryArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (a *memoryArchive) Put(_ context.Context, key string, body []byte, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.objects == nil {
		a.objects = map[string][]byte{}
	}
	a.objects[key] = body
	return nil
}

type importFixture struct {
	db        *gorm.DB
	publisher *recordingPublisher
	archive   *memoryArchive
	svc       *ImportService
}

func newImportFixture(t *testing.T, batchSize int) *importFixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &importFixture{db: db, publisher: &recordingPublisher{}, archive: &memoryArchive{}}
	f.svc = NewImportService(ImportDeps{
		Employees:     repository.NewEmployeeRepository(db),
		References:    repository.NewReferenceRepository(db),
		Organizations: repository.NewOrganizationRepository(db),
		Jobs:          repository.NewImportJobRepository(db),
		Publisher:     f.publisher,
		Archive:       f.archive,
		BatchSize:     batchSize,
		Options:       importer.Options{DefaultEmailDomain: "mobilitycairo.com"},
	})
	return f
}

func TestImportBatch(t *testing.T) {
	f := newImportFixture(t, 50)
	ctx := context.Background()

	rows := []importer.Row{
		{
			importer.KeyEmployeeCode:      "E1",
			importer.KeyFirstName:         "Ahmed",
			importer.KeyStatus:            "Active",
			importer.KeyDepartment:        "Finance",
			importer.KeyDepartmentAr:      "المالية",
			importer.KeyGradeOfficial:     "5.0",
			importer.KeyGradeInternal:     "G5",
			importer.KeyActualStartDate:   "45292",
			importer.KeyTerminationDate:   "2024-06-30",
			importer.KeyDirectManagerCode: "E2",
			importer.KeySourceID:          "12345678901",
		},
		{importer.KeyEmployeeCode: "E2", importer.KeyDepartment: "Finance", importer.KeyEmail: "not an email"},
		{importer.KeyFirstName: "No code"},
		{importer.KeyEmployeeCode: "E3", importer.KeyActualStartDate: "someday"},
	}

	resp, err := f.svc.ImportBatch(ctx, rows)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, models.ImportSummary{Total: 4, Successful: 1, Failed: 3}, resp.Summary)
	assert.True(t, resp.Results[0].Success)
	assert.Contains(t, resp.Results[1].Error, "invalid email")
	assert.Equal(t, "employee code is required", resp.Results[2].Error)
	assert.Contains(t, resp.Results[3].Error, importer.KeyActualStartDate)
	assert.Equal(t, []string{"E1"}, f.publisher.codes)

	var emp models.Employee
	require.NoError(t, f.db.Preload("Department").Preload("Grade").First(&emp, "employee_code = ?", "E1").Error)
	assert.Equal(t, "e1@mobilitycairo.com", *emp.Email)
	assert.Equal(t, "2024-01-01", emp.ActualStartDate.Format("2006-01-02"))
	assert.Equal(t, "2024-06-30", emp.TerminationDate.Format("2006-01-02"))
	assert.Equal(t, "المالية", *emp.Department.DepartmentAr)
	assert.Equal(t, 5, emp.Grade.GradeOfficial)
	assert.Equal(t, "G5", *emp.Grade.GradeInternal)
	assert.EqualValues(t, 12345678901, *emp.SourceID)
	assert.Equal(t, "E2", *emp.DirectManagerCode)
	assert.Nil(t, emp.ManagerID)
}

func TestImportBatchIsIdempotentAndKeepsLinkage(t *testing.T) {
	f := newImportFixture(t, 50)
	ctx := context.Background()
	seed := testutil.NewSeeder(t, f.db)
	boss := seed.Employee(testutil.Seed{Code: "BOSS"})
	original := seed.Employee(testutil.Seed{Code: "E1", ManagerCode: "BOSS", First: "Old"})
	seed.Link("E1", "BOSS")
	require.NoError(t, f.db.Model(&models.Employee{}).Where("id = ?", original.ID).Update("login_attempts", 2).Error)

	row := importer.Row{importer.KeyEmployeeCode: "E1", importer.KeyFirstName: "New", importer.KeyDirectManagerCode: "OTHER"}
	for i := 0; i < 2; i++ {
		resp, err := f.svc.ImportBatch(ctx, []importer.Row{row})
		require.NoError(t, err)
		require.True(t, resp.Success)
	}

	var count int64
	require.NoError(t, f.db.Model(&models.Employee{}).Where("employee_code = ?", "E1").Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var emp models.Employee
	require.NoError(t, f.db.First(&emp, "employee_code = ?", "E1").Error)
	assert.Equal(t, original.ID, emp.ID)
	assert.Equal(t, "New", *emp.FirstName)
	assert.Equal(t, "OTHER", *emp.DirectManagerCode)
	require.NotNil(t, emp.ManagerID, "import never touches the resolved manager")
	assert.Equal(t, boss.ID, *emp.ManagerID)
	assert.Equal(t, 2, emp.LoginAttempts)
	assert.WithinDuration(t, original.InsertionDate, emp.InsertionDate, time.Second)
}

func sheet(t *testing.T, rows [][]any) []byte {
	t.Helper()
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()
	for r, values := range rows {
		for c, v := range values {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, file.SetCellValue("Sheet1", cell, v))
		}
	}
	buf, err := file.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestStartImportRunsInBackground(t *testing.T) {
	f := newImportFixture(t, 2)
	ctx := context.Background()
	data := sheet(t, [][]any{
		{"Employee Code", "First Name", "Department", "Email"},
		{"E1", "Ahmed", "Finance"},
		{"E2", "Mona", "IT"},
		{"E3", "Omar", "IT", "broken"},
		{"E4", "Sara", "Legal"},
		{"E5", "Hany", "Legal"},
	})

	job, err := f.svc.StartImport(ctx, "Staff List.xlsx", data, "ADMIN")
	require.NoError(t, err)
	assert.Equal(t, 5, job.Total)
	assert.Equal(t, models.ImportStageIdle, job.Stage)
	require.NotEmpty(t, job.ArchiveKey)
	assert.Contains(t, job.ArchiveKey, job.ID+"-Staff_List.xlsx")
	assert.Equal(t, data, f.archive.objects[job.ArchiveKey])

	f.svc.Wait()

	done, err := f.svc.Job(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportStageCompleted, done.Stage)
	assert.Equal(t, 100, done.Progress)
	assert.Equal(t, 5, done.Processed)
	assert.Equal(t, 4, done.Success)
	assert.Equal(t, 1, done.Failed)
	require.Len(t, done.Errors, 1)
	assert.Contains(t, done.Errors[0], "Error with employee E3: invalid email")
	assert.NotNil(t, done.FinishedAt)
	assert.Equal(t, "ADMIN", done.StartedBy)

	_, err = f.svc.Job(ctx, "missing")
	assert.ErrorIs(t, err, ErrImportJobNotFound)

	recent, err := f.svc.RecentJobs(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestImportAllAndPreview(t *testing.T) {
	f := newImportFixture(t, 2)
	data := sheet(t, [][]any{
		{"Employee Code", "Position", "Entity"},
		{"E1", "Engineer", "RDMC"},
		{"E2", "Engineer", "RDMC"},
		{"E3", "Analyst", "RDMC"},
	})

	preview, err := f.svc.Preview("staff.xlsx", data)
	require.NoError(t, err)
	assert.Equal(t, 3, preview.Analysis.Rows)
	assert.Equal(t, []string{"Engineer", "Analyst"}, preview.Analysis.Positions)
	assert.Equal(t, "E1@mobilitycairo.com", preview.Rows[0].Get(importer.KeyEmail))

	var count int64
	require.NoError(t, f.db.Model(&models.Employee{}).Count(&count).Error)
	assert.Zero(t, count, "preview does not write")

	rows, err := f.svc.Parse("staff.xlsx", data)
	require.NoError(t, err)
	resp, err := f.svc.ImportAll(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, models.ImportSummary{Total: 3, Successful: 3}, resp.Summary)

	empty := sheet(t, [][]any{{"Employee Code"}})
	_, err = f.svc.StartImport(context.Background(), "empty.xlsx", empty, "")
	assert.ErrorIs(t, err, ErrNoRows)
}
