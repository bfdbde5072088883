package handlers

import (
	"net/http"
	"testing"

	"github.com/lee-tech/hrportal/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestHRRoutesRequireHRAccess(t *testing.T) {
	p := newPortal(t)
	p.seed.Employee(testutil.Seed{Code: "E1", Email: "e1@example.com"})
	hrToken := p.hrToken(t)
	plain := p.login(t, "e1@example.com")["access_token"].(string)

	paths := []string{
		"/v1/hr/dashboard",
		"/v1/hr/dashboard/departments",
		"/v1/hr/dashboard/hiring",
		"/v1/hr/dashboard/leave-reasons",
		"/v1/hr/orgchart",
		"/v1/hr/correction",
		"/v1/hr/employees",
		"/v1/hr/imports",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, p.do(t, http.MethodGet, path, "", nil).Code)
			assert.Equal(t, http.StatusForbidden, p.do(t, http.MethodGet, path, plain, nil).Code)
			rec := p.do(t, http.MethodGet, path, hrToken, nil)
			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		})
	}
}

func TestDashboardEndpoint(t *testing.T) {
	p := newPortal(t)
	token := p.hrToken(t)
	p.seed.Employee(testutil.Seed{Code: "E2", Department: "Human Resources"})

	rec := p.do(t, http.MethodGet, "/v1/hr/dashboard/departments", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 2, body["total"])
}

func TestReconcileEndpoint(t *testing.T) {
	p := newPortal(t)
	token := p.hrToken(t)
	p.seed.Employee(testutil.Seed{Code: "E2", ManagerCode: "HR1"})

	rec := p.do(t, http.MethodPost, "/v1/hr/correction/reconcile?dry_run=maybe", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = p.do(t, http.MethodPost, "/v1/hr/correction/reconcile?dry_run=true", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Nil(t, p.seed.ManagerID("E2"))

	rec = p.do(t, http.MethodPost, "/v1/hr/correction/reconcile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, p.seed.ManagerID("E2"))

	rec = p.do(t, http.MethodGet, "/v1/hr/orgchart", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"employeeCode":"HR1"`)
}

func TestImportJSONEndpoint(t *testing.T) {
	p := newPortal(t)
	token := p.hrToken(t)

	rec := p.do(t, http.MethodPost, "/v1/hr/employees/import", token, map[string]any{
		"employeeCode":  "E10",
		"firstName":     "Omar",
		"gradeOfficial": 5,
		"sourceid":      12345678901,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode(t, rec)["success"])

	rec = p.do(t, http.MethodPost, "/v1/hr/employees/import", token, map[string]any{"firstName": "Nobody"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "employee code is required", decode(t, rec)["error"])

	rec = p.do(t, http.MethodPost, "/v1/hr/employees/import", token, []map[string]any{
		{"employeeCode": "E11"},
		{"employeeCode": "E12", "email": "bad"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, map[string]any{"total": float64(2), "successful": float64(1), "failed": float64(1)}, body["summary"])

	rec = p.do(t, http.MethodPost, "/v1/hr/employees/import", token, "not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = p.do(t, http.MethodGet, "/v1/hr/employees/E10", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "e10@mobilitycairo.com", decode(t, rec)["email"])
}

func workbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()
	for r, values := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		require.NoError(t, err)
		require.NoError(t, file.SetSheetRow("Sheet1", cell, &values))
	}
	buf, err := file.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestSpreadsheetUpload(t *testing.T) {
	p := newPortal(t)
	token := p.hrToken(t)
	data := workbook(t, [][]any{
		{"Employee Code", "First Name", "Position"},
		{"E1", "Ahmed", "Engineer"},
		{"E2", "Mona", "Analyst"},
		{"E3", "Omar", "Engineer"},
	})

	rec := p.upload(t, "/v1/hr/imports/preview", token, "staff.xlsx", data)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	preview := decode(t, rec)
	assert.EqualValues(t, 3, preview["analysis"].(map[string]any)["rows"])

	rec = p.upload(t, "/v1/hr/imports", token, "staff.xlsx", data)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	job := decode(t, rec)
	assert.Equal(t, "HR1", job["started_by"])
	p.imports.Wait()

	rec = p.do(t, http.MethodGet, "/v1/hr/imports/"+job["id"].(string), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	done := decode(t, rec)
	assert.Equal(t, "completed", done["stage"])
	assert.EqualValues(t, 3, done["success"])

	rec = p.do(t, http.MethodGet, "/v1/hr/imports/unknown", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = p.upload(t, "/v1/hr/imports", token, "empty.xlsx", workbook(t, [][]any{{"Employee Code"}}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = p.upload(t, "/v1/hr/imports", token, "junk.xlsx", []byte("not a workbook"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = p.upload(t, "/v1/hr/imports", token, "huge.xlsx", make([]byte, 2<<20))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestEmployeeDirectoryEndpoints(t *testing.T) {
	p := newPortal(t)
	token := p.hrToken(t)
	for _, code := range []string{"E1", "E2", "E3"} {
		p.seed.Employee(testutil.Seed{Code: code})
	}

	rec := p.do(t, http.MethodGet, "/v1/hr/employees?page=2&page_size=2", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	data := body["data"].([]any)
	require.Len(t, data, 2)
	assert.Equal(t, "E3", data[0].(map[string]any)["employee_code"])
	assert.Equal(t, map[string]any{
		"page": float64(2), "page_size": float64(2), "total": float64(4), "total_pages": float64(2),
	}, body["pagination"])

	rec = p.do(t, http.MethodGet, "/v1/hr/employees/NOPE", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, rec))
}
