package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lee-tech/hrportal/config"
	coreConfig "github.com/lee-tech/hrportal/internal/core/config"
	"github.com/lee-tech/hrportal/internal/repository"
	"github.com/lee-tech/hrportal/internal/testutil"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type fakeMailer struct {
	mu    sync.Mutex
	to    []string
	codes []string
	err   error
}

func (m *fakeMailer) SendVerificationCode(_ context.Context, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.to = append(m.to, to)
	m.codes = append(m.codes, code)
	return nil
}

func (m *fakeMailer) lastCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.codes) == 0 {
		return ""
	}
	return m.codes[len(m.codes)-1]
}

type fakeSMS struct {
	mu     sync.Mutex
	phones []string
	texts  []string
	err    error
}

func (s *fakeSMS) Send(_ context.Context, phone, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phones = append(s.phones, phone)
	s.texts = append(s.texts, text)
	return s.err
}

type fakeLimiter struct {
	deny bool
	err  error
	keys []string
}

func (l *fakeLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return false, l.err
	}
	return !l.deny, nil
}

type authFixture struct {
	db      *gorm.DB
	seed    *testutil.Seeder
	cfg     *config.HRConfig
	mailer  *fakeMailer
	sms     *fakeSMS
	limiter *fakeLimiter
	clock   time.Time
	svc     *AuthenticationService
}

func testConfig() *config.HRConfig {
	return &config.HRConfig{
		Config: &coreConfig.Config{
			ServiceName: "hr-portal",
			JWTSecret:   "test-secret",
		},
		PortalName:                  "RDMC Portal",
		TokenExpiration:             15 * time.Minute,
		RefreshExpiration:           time.Hour,
		MaxLoginAttempts:            3,
		LockoutDuration:             15 * time.Minute,
		BCryptCost:                  bcrypt.MinCost,
		CodeTTL:                     10 * time.Minute,
		OrgChartMinGrade:            3,
		OrgChartLimit:               999,
		ImportBatchSize:             2,
		ImportDefaultEmailDomain:    "mobilitycairo.com",
		BootstrapOrganizationName:   "Root Organization",
		BootstrapOrganizationDomain: "root.local",
		BootstrapAdminEmail:         "admin@root.local",
		BootstrapAdminCode:          "ADMIN",
		BootstrapAdminFirstName:     "System",
		BootstrapAdminLastName:      "Administrator",
	}
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &authFixture{
		db:      db,
		seed:    testutil.NewSeeder(t, db),
		cfg:     testConfig(),
		mailer:  &fakeMailer{},
		sms:     &fakeSMS{},
		limiter: &fakeLimiter{},
		clock:   time.Now().UTC().Truncate(time.Second),
	}
	f.svc = NewAuthenticationService(AuthenticationDeps{
		Employees:     repository.NewEmployeeRepository(db),
		Codes:         repository.NewVerificationRepository(db),
		Organizations: repository.NewOrganizationRepository(db),
		References:    repository.NewReferenceRepository(db),
		Mailer:        f.mailer,
		SMS:           f.sms,
		Limiter:       f.limiter,
		Config:        f.cfg,
		Logger:        zap.NewNop(),
	})
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *authFixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}
