package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lee-tech/hrportal/config"
	"github.com/lee-tech/hrportal/internal/constants"
	coreServer "github.com/lee-tech/hrportal/internal/core/server"
	"github.com/lee-tech/hrportal/internal/core/utils"
	"github.com/lee-tech/hrportal/internal/metrics"
	"github.com/lee-tech/hrportal/internal/models"
	"github.com/lee-tech/hrportal/internal/notify"
	"github.com/lee-tech/hrportal/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or verification code")
	ErrAccountLocked      = errors.New("account is locked due to too many failed attempts")
	ErrCodeExpired        = errors.New("verification code expired or already used")
	ErrEmployeeNotFound   = errors.New("employee not found")
	ErrTooManyRequests    = errors.New("too many verification codes requested")
	ErrNoContactChannel   = errors.New("employee has no email address on file")
	ErrInvalidToken       = errors.New("invalid token")
)

// hrPermission is granted to HR staff and matched by the authorization policy.
const hrPermission = "hrportal.*"

// AuthenticationService signs employees in with one-time codes or Google and
// issues the portal's session tokens.
type AuthenticationService struct {
	employees *repository.EmployeeRepository
	codes     *repository.VerificationRepository
	orgs      *repository.OrganizationRepository
	refs      *repository.ReferenceRepository
	mailer    notify.Mailer
	sms       notify.SMSSender
	limiter   notify.SendLimiter
	metrics   *metrics.Portal
	config    *config.HRConfig
	logger    *zap.Logger

	google      *oauth2.Config
	userInfoURL string

	now func() time.Time
}

// AuthenticationDeps lists the collaborators of AuthenticationService.
type AuthenticationDeps struct {
	Employees     *repository.EmployeeRepository
	Codes         *repository.VerificationRepository
	Organizations *repository.OrganizationRepository
	References    *repository.ReferenceRepository
	Mailer        notify.Mailer
	SMS           notify.SMSSender
	Limiter       notify.SendLimiter
	Metrics       *metrics.Portal
	Config        *config.HRConfig
	Logger        *zap.Logger
}

// BootstrapAdminInput describes the desired bootstrap configuration for the root administrator.
type BootstrapAdminInput struct {
	OrganizationName        string
	OrganizationDescription string
	OrganizationDomain      string
	AdminEmail              string
	AdminCode               string
	AdminFirstName          string
	AdminLastName           string
}

// NewAuthenticationService creates a new authentication service
func NewAuthenticationService(deps AuthenticationDeps) *AuthenticationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	portalMetrics := deps.Metrics
	if portalMetrics == nil {
		portalMetrics = metrics.New(nil)
	}
	s := &AuthenticationService{
		employees:   deps.Employees,
		codes:       deps.Codes,
		orgs:        deps.Organizations,
		refs:        deps.References,
		mailer:      deps.Mailer,
		sms:         deps.SMS,
		limiter:     deps.Limiter,
		metrics:     portalMetrics,
		config:      deps.Config,
		logger:      logger.Named("auth"),
		userInfoURL: googleUserInfoURL,
		now:         time.Now,
	}
	if deps.Config != nil && deps.Config.GoogleEnabled() {
		s.google = newGoogleOAuthConfig(deps.Config)
	}
	return s
}

// RequestCode generates a fresh one-time code for the employee matching
// identifier and delivers it by email, and by SMS when a corporate phone is on file.
func (s *AuthenticationService) RequestCode(ctx context.Context, identifier string) error {
	identifier = strings.TrimSpace(identifier)
	employee, err := s.employees.FindByIdentifier(ctx, identifier)
	if err != nil {
		return fmt.Errorf("lookup employee: %w", err)
	}
	if employee == nil {
		return ErrEmployeeNotFound
	}
	if employee.Email == nil || strings.TrimSpace(*employee.Email) == "" {
		return ErrNoContactChannel
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, strings.ToLower(employee.EmployeeCode))
		if err != nil {
			s.logger.Warn("send limiter unavailable", zap.Error(err))
		} else if !allowed {
			s.metrics.CodesSent.WithLabelValues("email", "throttled").Inc()
			return ErrTooManyRequests
		}
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.config.BCryptCost)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}
	if err := s.codes.Replace(ctx, employee.EmployeeCode, string(hash), s.now().Add(s.config.CodeTTL)); err != nil {
		return fmt.Errorf("store code: %w", err)
	}
	if removed, err := s.codes.DeleteExpired(ctx, s.now()); err != nil {
		s.logger.Warn("failed to prune expired codes", zap.Error(err))
	} else if removed > 0 {
		s.logger.Debug("pruned expired codes", zap.Int64("removed", removed))
	}

	if err := s.mailer.SendVerificationCode(ctx, *employee.Email, code); err != nil {
		s.metrics.CodesSent.WithLabelValues("email", "error").Inc()
		return fmt.Errorf("send verification email: %w", err)
	}
	s.metrics.CodesSent.WithLabelValues("email", "ok").Inc()

	if employee.CorporatePhoneNumber != nil && *employee.CorporatePhoneNumber != "" && s.sms != nil {
		text := fmt.Sprintf("%s is your %s verification code.", code, s.config.PortalName)
		if err := s.sms.Send(ctx, *employee.CorporatePhoneNumber, text); err != nil {
			s.metrics.CodesSent.WithLabelValues("sms", "error").Inc()
			s.logger.Warn("failed to send verification sms",
				zap.String("employee_code", employee.EmployeeCode), zap.Error(err))
		} else {
			s.metrics.CodesSent.WithLabelValues("sms", "ok").Inc()
		}
	}
	return nil
}

// Login redeems a one-time code and returns tokens
func (s *AuthenticationService) Login(ctx context.Context, identifier, code string) (*models.LoginResponse, error) {
	employee, err := s.employees.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if employee == nil {
		s.metrics.Logins.WithLabelValues("code", "unknown").Inc()
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	if employee.IsLocked(now) {
		s.metrics.Logins.WithLabelValues("code", "locked").Inc()
		return nil, ErrAccountLocked
	}

	stored, err := s.codes.Get(ctx, employee.EmployeeCode)
	if err != nil {
		return nil, err
	}
	if !stored.Usable(now) {
		s.metrics.Logins.WithLabelValues("code", "expired").Inc()
		return nil, ErrCodeExpired
	}

	if err := bcrypt.CompareHashAndPassword([]byte(stored.CodeHash), []byte(strings.TrimSpace(code))); err != nil {
		s.metrics.Logins.WithLabelValues("code", "mismatch").Inc()
		if err := s.codes.IncrementAttempts(ctx, stored.ID); err != nil {
			s.logger.Warn("failed to count code attempt", zap.Error(err))
		}
		attempts, err := s.employees.IncrementLoginAttempts(ctx, employee.ID)
		if err != nil {
			return nil, err
		}
		if attempts >= s.config.MaxLoginAttempts {
			if err := s.employees.LockAccount(ctx, employee.ID, now.Add(s.config.LockoutDuration)); err != nil {
				return nil, err
			}
			s.logger.Info("account locked", zap.String("employee_code", employee.EmployeeCode))
		}
		return nil, ErrInvalidCredentials
	}

	consumed, err := s.codes.Consume(ctx, stored.ID)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, ErrCodeExpired
	}

	resp, err := s.completeLogin(ctx, employee.ID)
	if err != nil {
		return nil, err
	}
	s.metrics.Logins.WithLabelValues("code", "ok").Inc()
	return resp, nil
}

// completeLogin records the login and issues tokens for employeeID.
func (s *AuthenticationService) completeLogin(ctx context.Context, employeeID uint64) (*models.LoginResponse, error) {
	if err := s.employees.UpdateLastLogin(ctx, employeeID); err != nil {
		s.logger.Warn("failed to update last login", zap.Uint64("employee_id", employeeID), zap.Error(err))
	}
	employee, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if employee == nil {
		return nil, ErrEmployeeNotFound
	}
	return s.issueTokens(employee)
}

func (s *AuthenticationService) issueTokens(employee *models.Employee) (*models.LoginResponse, error) {
	profile := s.composeProfile(employee)

	accessToken, err := s.generateAccessToken(employee, profile.HRAccess)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.generateRefreshToken(employee)
	if err != nil {
		return nil, err
	}

	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.config.TokenExpiration.Seconds()),
		TokenType:    "Bearer",
		User:         profile,
	}, nil
}

// RefreshToken validates a refresh token and returns new tokens
func (s *AuthenticationService) RefreshToken(ctx context.Context, refreshToken string) (*models.LoginResponse, error) {
	employeeID, err := s.parseToken(refreshToken, "refresh")
	if err != nil {
		return nil, err
	}

	employee, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if employee == nil {
		return nil, ErrInvalidToken
	}
	if employee.IsLocked(s.now()) {
		return nil, ErrAccountLocked
	}
	return s.issueTokens(employee)
}

// ValidateToken validates an access token and returns the employee ID
func (s *AuthenticationService) ValidateToken(tokenString string) (uint64, error) {
	return s.parseToken(tokenString, "access")
}

func (s *AuthenticationService) parseToken(tokenString, tokenType string) (uint64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}
	if typ, ok := claims["type"].(string); !ok || typ != tokenType {
		return 0, ErrInvalidToken
	}

	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return 0, ErrInvalidToken
	}
	employeeID, err := utils.ParseUint64(userIDStr)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return employeeID, nil
}

func (s *AuthenticationService) generateAccessToken(employee *models.Employee, hrAccess bool) (string, error) {
	now := s.now()
	subject := strconv.FormatUint(employee.ID, 10)

	claims := jwt.MapClaims{
		"iss":           s.config.ServiceName,
		"sub":           subject,
		"aud":           []string{s.config.ServiceName},
		"exp":           now.Add(s.config.TokenExpiration).Unix(),
		"iat":           now.Unix(),
		"nbf":           now.Unix(),
		"jti":           uuid.NewString(),
		"type":          "access",
		"user_id":       subject,
		"employee_code": employee.EmployeeCode,
		"email":         stringValue(employee.Email),
		"hr_access":     hrAccess,
	}
	if employee.DepartmentID != nil {
		claims["department_id"] = *employee.DepartmentID
	}
	if employee.UnitID != nil {
		claims["unit_id"] = *employee.UnitID
	}
	if employee.IsSuperAdmin {
		claims["is_super_admin"] = true
	}
	if hrAccess {
		claims["permissions"] = []string{hrPermission}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

func (s *AuthenticationService) generateRefreshToken(employee *models.Employee) (string, error) {
	now := s.now()
	subject := strconv.FormatUint(employee.ID, 10)

	claims := jwt.MapClaims{
		"iss":     s.config.ServiceName,
		"sub":     subject,
		"aud":     []string{s.config.ServiceName},
		"exp":     now.Add(s.config.RefreshExpiration).Unix(),
		"iat":     now.Unix(),
		"nbf":     now.Unix(),
		"jti":     uuid.NewString(),
		"type":    "refresh",
		"user_id": subject,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// Profile returns the session profile of an employee.
func (s *AuthenticationService) Profile(ctx context.Context, employeeID uint64) (*models.EmployeeProfile, error) {
	employee, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if employee == nil {
		return nil, ErrEmployeeNotFound
	}
	return s.composeProfile(employee), nil
}

// HasHRAccess applies the HR gate to employee.
func (s *AuthenticationService) HasHRAccess(employee *models.Employee) bool {
	return employee.IsSuperAdmin || s.config.IsHRMember(employee.DepartmentID, employee.UnitID)
}

func (s *AuthenticationService) composeProfile(e *models.Employee) *models.EmployeeProfile {
	hrAccess := s.HasHRAccess(e)
	profile := &models.EmployeeProfile{
		ID:           e.ID,
		EmployeeCode: e.EmployeeCode,
		Email:        stringValue(e.Email),
		FirstName:    stringValue(e.FirstName),
		LastName:     stringValue(e.LastName),
		FirstNameAr:  stringValue(e.FirstNameAr),
		LastNameAr:   stringValue(e.LastNameAr),
		IDName:       stringValue(e.IDName),
		DepartmentID: e.DepartmentID,
		UnitID:       e.UnitID,
		ManagerID:    e.ManagerID,
		IsSuperAdmin: e.IsSuperAdmin,
		HRAccess:     hrAccess,
		Navigation: map[string]bool{
			"dashboard":  true,
			"profile":    true,
			"hr":         hrAccess,
			"orgchart":   hrAccess,
			"correction": hrAccess,
			"import":     hrAccess,
		},
	}

	if e.Organization != nil {
		profile.Organization = e.Organization.Name
	}
	if e.Position != nil {
		profile.PositionEn = e.Position.PositionEn
		profile.PositionAr = stringValue(e.Position.PositionAr)
	}
	if e.Department != nil {
		profile.DepartmentEn = e.Department.DepartmentEn
		profile.DepartmentAr = stringValue(e.Department.DepartmentAr)
	}
	if e.Division != nil {
		profile.Division = e.Division.DivisionName
	}
	if e.Unit != nil {
		profile.Unit = e.Unit.UnitName
	}
	if e.Grade != nil {
		profile.GradeOfficial = e.Grade.GradeOfficial
		profile.GradeInternal = stringValue(e.Grade.GradeInternal)
	}
	if e.Location != nil {
		profile.Location = e.Location.LocationName
	}
	if e.ContractType != nil {
		profile.ContractType = e.ContractType.TypeName
	}
	if e.Nationality != nil {
		profile.NationalityEn = e.Nationality.NationalityEn
		profile.NationalityAr = stringValue(e.Nationality.NationalityAr)
	}
	if e.Gender != nil {
		profile.GenderEn = e.Gender.GenderEn
		profile.GenderAr = stringValue(e.Gender.GenderAr)
	}
	if e.MaritalStatus != nil {
		profile.MaritalEn = e.MaritalStatus.StatusEn
		profile.MaritalAr = stringValue(e.MaritalStatus.StatusAr)
	}
	if e.Entity != nil {
		profile.Entity = e.Entity.EntityName
	}
	if e.Budget != nil {
		profile.Budget = e.Budget.BudgetName
	}
	if e.Status != nil {
		profile.Status = e.Status.StatusName
	}
	return profile
}

// BootstrapDefaultAdmin ensures the default organization and super-admin employee exist.
func (s *AuthenticationService) BootstrapDefaultAdmin(ctx context.Context) (*models.Organization, *models.Employee, error) {
	return s.BootstrapAdmin(ctx, &BootstrapAdminInput{
		OrganizationName:   s.config.BootstrapOrganizationName,
		OrganizationDomain: s.config.BootstrapOrganizationDomain,
		AdminEmail:         s.config.BootstrapAdminEmail,
		AdminCode:          s.config.BootstrapAdminCode,
		AdminFirstName:     s.config.BootstrapAdminFirstName,
		AdminLastName:      s.config.BootstrapAdminLastName,
	})
}

// BootstrapAdmin creates or refreshes the root organization and its super-admin employee.
func (s *AuthenticationService) BootstrapAdmin(ctx context.Context, input *BootstrapAdminInput) (*models.Organization, *models.Employee, error) {
	if s == nil || s.employees == nil || s.orgs == nil || s.refs == nil || s.config == nil {
		return nil, nil, fmt.Errorf("authentication service not initialised for bootstrap")
	}
	if input == nil {
		return nil, nil, fmt.Errorf("bootstrap input is required")
	}

	email := strings.ToLower(strings.TrimSpace(input.AdminEmail))
	if !utils.IsEmail(email) {
		return nil, nil, fmt.Errorf("bootstrap admin email %q is invalid", input.AdminEmail)
	}
	code := strings.TrimSpace(input.AdminCode)
	if code == "" {
		return nil, nil, fmt.Errorf("bootstrap admin code is required")
	}

	org, err := s.orgs.EnsureOrganization(ctx, input.OrganizationName, input.OrganizationDescription, input.OrganizationDomain)
	if err != nil {
		return nil, nil, fmt.Errorf("ensure organization: %w", err)
	}
	statusID, err := s.refs.Ensure(ctx, repository.KindStatus, constants.StatusActive)
	if err != nil {
		return nil, nil, fmt.Errorf("ensure active status: %w", err)
	}

	employee, err := s.employees.GetByCode(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup admin employee: %w", err)
	}
	if employee == nil {
		if employee, err = s.employees.GetByEmail(ctx, email); err != nil {
			return nil, nil, fmt.Errorf("lookup admin employee: %w", err)
		}
	}

	firstName := strings.TrimSpace(input.AdminFirstName)
	lastName := strings.TrimSpace(input.AdminLastName)

	if employee == nil {
		if firstName == "" {
			firstName = "System"
		}
		if lastName == "" {
			lastName = "Administrator"
		}
		idName := firstName + " " + lastName
		employee = &models.Employee{
			EmployeeCode:   code,
			Email:          &email,
			FirstName:      &firstName,
			LastName:       &lastName,
			IDName:         &idName,
			StatusID:       &statusID,
			OrganizationID: &org.ID,
			IsSuperAdmin:   true,
		}
		if err := s.employees.Create(ctx, employee); err != nil {
			return nil, nil, fmt.Errorf("create admin employee: %w", err)
		}
		s.logger.Info("bootstrap admin created", zap.String("employee_code", code))
		return org, employee, nil
	}

	if firstName != "" {
		employee.FirstName = &firstName
	}
	if lastName != "" {
		employee.LastName = &lastName
	}
	employee.Email = &email
	employee.StatusID = &statusID
	employee.Status = nil
	employee.OrganizationID = &org.ID
	employee.Organization = nil
	employee.IsSuperAdmin = true
	employee.LockedUntil = nil
	employee.LoginAttempts = 0

	if err := s.employees.Update(ctx, employee); err != nil {
		return nil, nil, fmt.Errorf("update admin employee: %w", err)
	}
	return org, employee, nil
}

// UnlockEmployee clears the lockout and failed-attempt counter of the employee with code.
func (s *AuthenticationService) UnlockEmployee(ctx context.Context, code string) (*models.Employee, error) {
	employee, err := s.employees.GetByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("lookup employee: %w", err)
	}
	if employee == nil {
		return nil, ErrEmployeeNotFound
	}
	if err := s.employees.UnlockAccount(ctx, employee.ID); err != nil {
		return nil, fmt.Errorf("unlock employee: %w", err)
	}
	s.logger.Info("employee unlocked", zap.String("employee_code", employee.EmployeeCode))
	return employee, nil
}

// JWTSecret exposes the signing secret used for validating tokens.
func (s *AuthenticationService) JWTSecret() string {
	return s.config.JWTSecret
}

// generateCode draws a uniformly random six digit code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func init() {
	coreServer.RegisterService(constants.ComponentKey.AuthenticationService, func(app *coreServer.HTTPApp) (interface{}, error) {
		cfg, err := coreServer.Resolve[*config.HRConfig](app, constants.ComponentKey.HRConfig)
		if err != nil {
			return nil, err
		}
		employees, err := coreServer.Resolve[*repository.EmployeeRepository](app, constants.ComponentKey.EmployeeRepository)
		if err != nil {
			return nil, err
		}
		codes, err := coreServer.Resolve[*repository.VerificationRepository](app, constants.ComponentKey.VerificationRepository)
		if err != nil {
			return nil, err
		}
		orgs, err := coreServer.Resolve[*repository.OrganizationRepository](app, constants.ComponentKey.OrganizationRepository)
		if err != nil {
			return nil, err
		}
		refs, err := coreServer.Resolve[*repository.ReferenceRepository](app, constants.ComponentKey.ReferenceRepository)
		if err != nil {
			return nil, err
		}
		mailer, err := coreServer.Resolve[notify.Mailer](app, constants.ComponentKey.Mailer)
		if err != nil {
			return nil, err
		}
		sms, err := coreServer.Resolve[notify.SMSSender](app, constants.ComponentKey.SMSSender)
		if err != nil {
			return nil, err
		}
		limiter, err := coreServer.Resolve[notify.SendLimiter](app, constants.ComponentKey.SendLimiter)
		if err != nil {
			return nil, err
		}
		portalMetrics, err := coreServer.Resolve[*metrics.Portal](app, constants.ComponentKey.PortalMetrics)
		if err != nil {
			return nil, err
		}

		return NewAuthenticationService(AuthenticationDeps{
			Employees:     employees,
			Codes:         codes,
			Organizations: orgs,
			References:    refs,
			Mailer:        mailer,
			SMS:           sms,
			Limiter:       limiter,
			Metrics:       portalMetrics,
			Config:        cfg,
			Logger:        app.Logger,
		}), nil
	})
}
