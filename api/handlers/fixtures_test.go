package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/lee-tech/hrportal/config"
	coreConfig "github.com/lee-tech/hrportal/internal/core/config"
	"github.com/lee-tech/hrportal/internal/importer"
	"github.com/lee-tech/hrportal/internal/repository"
	"github.com/lee-tech/hrportal/internal/service"
	"github.com/lee-tech/hrportal/internal/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type captureMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *captureMailer) SendVerificationCode(_ context.Context, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[to] = code
	return nil
}

func (m *captureMailer) code(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[to]
}

type nopSMS struct{}

func (nopSMS) Send(context.Context, string, string) error { return nil }

type openLimiter struct{}

func (openLimiter) Allow(context.Context, string) (bool, error) { return true, nil }

type portal struct {
	db      *gorm.DB
	seed    *testutil.Seeder
	cfg     *config.HRConfig
	mailer  *captureMailer
	auth    *service.AuthenticationService
	imports *service.ImportService
	router  *mux.Router
}

func testConfig() *config.HRConfig {
	return &config.HRConfig{
		Config: &coreConfig.Config{
			ServiceName:    "hr-portal",
			JWTSecret:      "handler-secret",
			MaxUploadBytes: 1 << 20,
		},
		PortalName:               "RDMC Portal",
		TokenExpiration:          15 * time.Minute,
		RefreshExpiration:        time.Hour,
		MaxLoginAttempts:         5,
		LockoutDuration:          15 * time.Minute,
		BCryptCost:               bcrypt.MinCost,
		CodeTTL:                  10 * time.Minute,
		OrgChartMinGrade:         3,
		OrgChartLimit:            999,
		ImportBatchSize:          2,
		ImportDefaultEmailDomain: "mobilitycairo.com",
	}
}

// newPortal wires the handlers the way the registrars do, minus the app container.
func newPortal(t *testing.T, configure ...func(*config.HRConfig)) *portal {
	t.Helper()
	db := testutil.NewDB(t)
	p := &portal{
		db:     db,
		seed:   testutil.NewSeeder(t, db),
		cfg:    testConfig(),
		mailer: &captureMailer{codes: map[string]string{}},
		router: mux.NewRouter(),
	}
	for _, fn := range configure {
		fn(p.cfg)
	}

	employees := repository.NewEmployeeRepository(db)
	p.auth = service.NewAuthenticationService(service.AuthenticationDeps{
		Employees:     employees,
		Codes:         repository.NewVerificationRepository(db),
		Organizations: repository.NewOrganizationRepository(db),
		References:    repository.NewReferenceRepository(db),
		Mailer:        p.mailer,
		SMS:           nopSMS{},
		Limiter:       openLimiter{},
		Config:        p.cfg,
	})
	p.imports = service.NewImportService(service.ImportDeps{
		Employees:     employees,
		References:    repository.NewReferenceRepository(db),
		Organizations: repository.NewOrganizationRepository(db),
		Jobs:          repository.NewImportJobRepository(db),
		BatchSize:     p.cfg.ImportBatchSize,
		Options:       importer.Options{DefaultEmailDomain: p.cfg.ImportDefaultEmailDomain},
	})
	t.Cleanup(p.imports.Wait)

	NewAuthenticationHandler(p.auth, p.cfg, nil).RegisterRoutes(p.router)
	NewTokenIntrospectionHandler(p.auth).RegisterRoutes(p.router)
	hr := HRRouter(p.router, p.auth.JWTSecret, false, nil)
	NewDashboardHandler(service.NewDashboardService(repository.NewDashboardRepository(db)), nil).RegisterRoutes(hr)
	NewHierarchyHandler(service.NewHierarchyService(employees, nil, p.cfg.OrgChartMinGrade, p.cfg.OrgChartLimit, nil), nil).RegisterRoutes(hr)
	NewImportHandler(p.imports, p.cfg.MaxUploadBytes, nil).RegisterRoutes(hr)
	NewEmployeeHandler(service.NewDirectoryService(employees), nil).RegisterRoutes(hr)
	return p
}

func (p *portal) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	p.router.ServeHTTP(rec, req)
	return rec
}

func (p *portal) upload(t *testing.T, target, token, fileName string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	p.router.ServeHTTP(rec, req)
	return rec
}

// login signs in through the HTTP endpoints and returns the decoded response.
func (p *portal) login(t *testing.T, email string) map[string]any {
	t.Helper()
	rec := p.do(t, http.MethodPost, "/v1/auth/send-token", "", map[string]string{"email": email})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = p.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": email, "code": p.mailer.code(email)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode(t, rec)
}

// hrToken seeds an HR department employee and returns an access token for them.
func (p *portal) hrToken(t *testing.T) string {
	t.Helper()
	hr := p.seed.Employee(testutil.Seed{Code: "HR1", Department: "Human Resources", Email: "hr1@example.com"})
	p.cfg.HRDepartmentIDs = []uint64{*hr.DepartmentID}
	return p.login(t, "hr1@example.com")["access_token"].(string)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	envelope := decode(t, rec)
	errBody, ok := envelope["error"].(map[string]any)
	require.True(t, ok, rec.Body.String())
	return errBody["code"].(string)
}
