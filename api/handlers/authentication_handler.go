package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/lee-tech/hrportal/config"
	"github.com/lee-tech/hrportal/internal/constants"
	coreErrors "github.com/lee-tech/hrportal/internal/core/errors"
	coreMiddleware "github.com/lee-tech/hrportal/internal/core/middleware"
	coreServer "github.com/lee-tech/hrportal/internal/core/server"
	"github.com/lee-tech/hrportal/internal/core/utils"
	"github.com/lee-tech/hrportal/internal/models"
	"github.com/lee-tech/hrportal/internal/service"
	"go.uber.org/zap"
)

const googleStateCookie = "hrportal_google_state"

// AuthenticationHandler handles authentication endpoints
type AuthenticationHandler struct {
	authenticationService *service.AuthenticationService
	config                *config.HRConfig
	logger                *zap.Logger
}

// NewAuthenticationHandler creates a new auth handler
func NewAuthenticationHandler(authService *service.AuthenticationService, cfg *config.HRConfig, logger *zap.Logger) *AuthenticationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthenticationHandler{
		authenticationService: authService,
		config:                cfg,
		logger:                logger.Named("auth-handler"),
	}
}

// RegisterRoutes registers all auth routes
func (h *AuthenticationHandler) RegisterRoutes(router *mux.Router) {
	coreServer.Route(router, "/v1/auth/send-token", h.SendToken,
		coreServer.WithMethods(http.MethodPost),
		coreServer.WithSummary("Send verification code"),
		coreServer.WithDescription("Email (and SMS when a corporate phone is on file) a one-time sign-in code"),
		coreServer.WithRequestBody(&coreServer.BodyMeta{
			Required: true,
			ModelKey: "send-token-request",
			Example:  map[string]any{"email": "mona.hassan@mobilitycairo.com"},
		}),
		coreServer.WithResponseMeta(map[int]coreServer.BodyMeta{
			http.StatusOK:              {Description: "Code sent"},
			http.StatusNotFound:        {Description: "No employee matches the identifier"},
			http.StatusTooManyRequests: {Description: "Too many codes requested"},
		}),
		coreServer.WithTags("Authentication"),
		coreServer.AllowAnonymous(),
	)

	coreServer.Route(router, "/v1/auth/login", h.Login,
		coreServer.WithMethods(http.MethodPost),
		coreServer.WithSummary("Login"),
		coreServer.WithDescription("Redeem a one-time code for access and refresh tokens"),
		coreServer.WithRequestBody(&coreServer.BodyMeta{
			Required: true,
			ModelKey: "login-request",
			Example:  map[string]any{"email": "mona.hassan@mobilitycairo.com", "code": "482913"},
		}),
		coreServer.WithResponseMeta(map[int]coreServer.BodyMeta{
			http.StatusOK: {
				Required:    true,
				ModelKey:    "login-response",
				Description: "Successful login response",
				Example: map[string]any{
					"access_token":  "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJhdWQiOlsi",
					"refresh_token": "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJhd",
					"expires_in":    900,
					"token_type":    "Bearer",
					"user":          map[string]any{},
				},
			},
		}),
		coreServer.WithTags("Authentication"),
		coreServer.AllowAnonymous(),
	)

	coreServer.Route(router, "/v1/auth/google/login", h.GoogleLogin,
		coreServer.WithMethods(http.MethodGet),
		coreServer.WithSummary("Google sign-in"),
		coreServer.WithDescription("Redirect to Google to start sign-in"),
		coreServer.WithTags("Authentication"),
		coreServer.AllowAnonymous(),
	)

	coreServer.Route(router, "/v1/auth/google/callback", h.GoogleCallback,
		coreServer.WithMethods(http.MethodGet),
		coreServer.WithSummary("Google sign-in callback"),
		coreServer.WithDescription("Complete Google sign-in for an existing employee"),
		coreServer.WithTags("Authentication"),
		coreServer.AllowAnonymous(),
	)

	coreServer.Route(router, "/v1/auth/refresh", h.RefreshToken,
		coreServer.WithMethods(http.MethodPost),
		coreServer.WithSummary("Refresh token"),
		coreServer.WithDescription("Refresh the access token using a refresh token"),
		coreServer.WithTags("Authentication"),
		coreServer.AllowAnonymous(),
	)

	coreServer.Route(router, "/v1/health", h.Health,
		coreServer.WithMethods(http.MethodGet),
		coreServer.WithSummary("Portal health"),
		coreServer.WithTags("Authentication"),
		coreServer.AllowAnonymous(),
	)

	authenticated := router.PathPrefix("/v1/auth").Subrouter()
	authenticated.Use(coreMiddleware.AuthMiddlewareFunc(h.authenticationService.JWTSecret))

	coreServer.Route(authenticated, "/me", h.Me,
		coreServer.WithMethods(http.MethodGet),
		coreServer.WithSummary("Current employee"),
		coreServer.WithDescription("Retrieve the signed-in employee's profile"),
		coreServer.WithResponseMeta(map[int]coreServer.BodyMeta{
			http.StatusOK: {Required: true, ModelKey: "employee-profile"},
		}),
		coreServer.WithTags("Authentication"),
		coreServer.RequireAuth(),
	)
}

// SendToken emails a one-time code to the employee named by the identifier.
func (h *AuthenticationHandler) SendToken(w http.ResponseWriter, r *http.Request) {
	var req models.SendTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		coreErrors.BadRequest("Invalid request body").WriteHTTP(w)
		return
	}
	identifier := strings.TrimSpace(req.Email)
	if identifier == "" {
		coreErrors.ValidationError("Email is required").WriteHTTP(w)
		return
	}

	if err := h.authenticationService.RequestCode(r.Context(), identifier); err != nil {
		h.writeError(w, err, "Failed to send verification code")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Verification code sent",
	})
}

// Login handles code login
func (h *AuthenticationHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		coreErrors.BadRequest("Invalid request body").WriteHTTP(w)
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Code) == "" {
		coreErrors.ValidationError("Email and code are required").WriteHTTP(w)
		return
	}

	response, err := h.authenticationService.Login(r.Context(), req.Email, req.Code)
	if err != nil {
		h.writeError(w, err, "An error occurred during login")
		return
	}

	utils.RespondJSON(w, http.StatusOK, response)
}

// GoogleLogin sets the signed state cookie and redirects to Google.
func (h *AuthenticationHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	authURL, state, err := h.authenticationService.GoogleLoginURL()
	if err != nil {
		h.writeError(w, err, "Failed to start Google sign-in")
		return
	}
	http.SetCookie(w, h.stateCookie(state, 10*time.Minute))
	http.Redirect(w, r, authURL, http.StatusFound)
}

// GoogleCallback finishes Google sign-in. With a success URL configured the
// tokens are handed to the front end in the URL fragment; otherwise they are
// returned as JSON.
func (h *AuthenticationHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if reason := query.Get("error"); reason != "" {
		coreErrors.Unauthorized("Google sign-in was cancelled: " + reason).WriteHTTP(w)
		return
	}

	var expected string
	if cookie, err := r.Cookie(googleStateCookie); err == nil {
		expected = cookie.Value
	}
	http.SetCookie(w, h.stateCookie("", -1))

	response, err := h.authenticationService.GoogleCallback(r.Context(), query.Get("state"), expected, query.Get("code"))
	if err != nil {
		h.writeError(w, err, "Google sign-in failed")
		return
	}

	if h.config != nil && h.config.GoogleSuccessURL != "" {
		fragment := url.Values{}
		fragment.Set("access_token", response.AccessToken)
		fragment.Set("refresh_token", response.RefreshToken)
		fragment.Set("expires_in", strconv.Itoa(response.ExpiresIn))
		fragment.Set("token_type", response.TokenType)
		http.Redirect(w, r, h.config.GoogleSuccessURL+"#"+fragment.Encode(), http.StatusFound)
		return
	}
	utils.RespondJSON(w, http.StatusOK, response)
}

func (h *AuthenticationHandler) stateCookie(value string, maxAge time.Duration) *http.Cookie {
	secure := h.config != nil && h.config.Environment == "production"
	cookie := &http.Cookie{
		Name:     googleStateCookie,
		Value:    value,
		Path:     "/v1/auth/google",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge < 0 {
		cookie.MaxAge = -1
	} else {
		cookie.MaxAge = int(maxAge.Seconds())
	}
	return cookie
}

// RefreshToken handles token refresh
func (h *AuthenticationHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		coreErrors.BadRequest("Invalid request body").WriteHTTP(w)
		return
	}
	if req.RefreshToken == "" {
		coreErrors.ValidationError("Refresh token is required").WriteHTTP(w)
		return
	}

	response, err := h.authenticationService.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeError(w, err, "Failed to refresh token")
		return
	}

	utils.RespondJSON(w, http.StatusOK, response)
}

// Health returns service health status
func (h *AuthenticationHandler) Health(w http.ResponseWriter, r *http.Request) {
	name := "hr-portal"
	if h.config != nil && h.config.Config != nil && h.config.ServiceName != "" {
		name = h.config.ServiceName
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": name,
	})
}

// Me returns the profile of the signed-in employee.
func (h *AuthenticationHandler) Me(w http.ResponseWriter, r *http.Request) {
	authCtx := coreMiddleware.GetAuthContext(r.Context())
	if authCtx == nil || authCtx.UserID == "" {
		coreErrors.Unauthorized("user context missing").WriteHTTP(w)
		return
	}

	employeeID, err := utils.ParseUint64(authCtx.UserID)
	if err != nil {
		coreErrors.Unauthorized("invalid user identifier").WriteHTTP(w)
		return
	}

	profile, err := h.authenticationService.Profile(r.Context(), employeeID)
	if err != nil {
		h.writeError(w, err, "failed to load profile")
		return
	}

	utils.RespondJSON(w, http.StatusOK, profile)
}

// writeError maps authentication sentinels onto HTTP errors.
func (h *AuthenticationHandler) writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		coreErrors.Unauthorized("Invalid email or code").WriteHTTP(w)
	case errors.Is(err, service.ErrCodeExpired):
		coreErrors.Unauthorized("Verification code has expired or was already used").WriteHTTP(w)
	case errors.Is(err, service.ErrInvalidToken):
		coreErrors.Unauthorized("Invalid or expired token").WriteHTTP(w)
	case errors.Is(err, service.ErrAccountLocked):
		coreErrors.Forbidden("Account is locked due to too many failed attempts").WriteHTTP(w)
	case errors.Is(err, service.ErrEmployeeNotFound):
		coreErrors.NotFound("employee").WriteHTTP(w)
	case errors.Is(err, service.ErrTooManyRequests):
		coreErrors.TooManyRequests("Too many codes requested, try again later").WriteHTTP(w)
	case errors.Is(err, service.ErrNoContactChannel):
		coreErrors.ValidationError("No email address is on file for this employee").WriteHTTP(w)
	case errors.Is(err, service.ErrInvalidState):
		coreErrors.BadRequest("Sign-in session expired, start again").WriteHTTP(w)
	case errors.Is(err, service.ErrGoogleDisabled):
		coreErrors.NotFound("google sign-in").WriteHTTP(w)
	default:
		h.logger.Error(fallback, zap.Error(err))
		coreErrors.Internal(fallback).WithInternal(err).WriteHTTP(w)
	}
}

func init() {
	coreServer.RegisterHandler(func(app *coreServer.HTTPApp) error {
		authenticationService, err := coreServer.Resolve[*service.AuthenticationService](app, constants.ComponentKey.AuthenticationService)
		if err != nil {
			return err
		}
		cfg, err := coreServer.Resolve[*config.HRConfig](app, constants.ComponentKey.HRConfig)
		if err != nil {
			return err
		}

		NewAuthenticationHandler(authenticationService, cfg, app.Logger).RegisterRoutes(app.Router)
		NewTokenIntrospectionHandler(authenticationService).RegisterRoutes(app.Router)
		return nil
	})
}
