package middleware

import (
	"context"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	coreErrors "github.com/lee-tech/hrportal/internal/core/errors"
)

type contextKey string

const (
	// UserIDKey holds the authenticated employee id as a decimal string.
	UserIDKey contextKey = "user_id"
	// AuthContextKey holds the *AuthContext built from the bearer token.
	AuthContextKey contextKey = "auth_context"
	// RequestIDKey holds the request correlation id.
	RequestIDKey contextKey = "request_id"

	authorizationCheckerKey contextKey = "authorization_checker"
)

// AuthContext is the caller identity extracted from an access token.
type AuthContext struct {
	UserID       string
	EmployeeCode string
	Email        string
	IsSuperAdmin bool
	HRAccess     bool
	DepartmentID *uint64
	UnitID       *uint64
	Permissions  []string
	Claims       jwt.MapClaims
}

// Roles lists the coarse roles used by authorization policies.
func (a *AuthContext) Roles() []string {
	if a == nil {
		return nil
	}
	roles := []string{"employee"}
	if a.HRAccess {
		roles = append(roles, "hr")
	}
	if a.IsSuperAdmin {
		roles = append(roles, "super_admin")
	}
	return roles
}

// AuthMiddlewareFunc validates HS256 bearer access tokens signed with the secret returned by secretFn.
func AuthMiddlewareFunc(secretFn func() string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				coreErrors.Unauthorized("missing bearer token").WriteHTTP(w)
				return
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
				return []byte(secretFn()), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				coreErrors.Unauthorized("invalid or expired token").WriteHTTP(w)
				return
			}
			if tokenType, _ := claims["type"].(string); tokenType != "access" {
				coreErrors.Unauthorized("access token required").WriteHTTP(w)
				return
			}

			authCtx := authContextFromClaims(claims)
			if authCtx.UserID == "" {
				coreErrors.Unauthorized("token subject missing").WriteHTTP(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAuthContext(r.Context(), authCtx)))
		})
	}
}

// GetAuthContext returns the caller identity, or nil for anonymous requests.
func GetAuthContext(ctx context.Context) *AuthContext {
	authCtx, _ := ctx.Value(AuthContextKey).(*AuthContext)
	return authCtx
}

// WithAuthContext stores authCtx on ctx the same way the auth middleware does.
func WithAuthContext(ctx context.Context, authCtx *AuthContext) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, authCtx.UserID)
	return context.WithValue(ctx, AuthContextKey, authCtx)
}

// RequireSuperAdmin rejects callers without the super admin flag.
func RequireSuperAdmin() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := GetAuthContext(r.Context())
			if authCtx == nil {
				coreErrors.Unauthorized("authentication required").WriteHTTP(w)
				return
			}
			if !authCtx.IsSuperAdmin {
				coreErrors.Forbidden("super admin access required").WriteHTTP(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireHRAccess admits HR staff and super admins.
func RequireHRAccess() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := GetAuthContext(r.Context())
			if authCtx == nil {
				coreErrors.Unauthorized("authentication required").WriteHTTP(w)
				return
			}
			if !authCtx.HRAccess && !authCtx.IsSuperAdmin {
				coreErrors.Forbidden("HR access required").WriteHTTP(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HasPermission reports whether the caller holds permission. Granted
// permissions may be glob patterns such as "hrportal.*".
func HasPermission(r *http.Request, permission string) bool {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		return false
	}
	if authCtx.IsSuperAdmin {
		return true
	}
	for _, granted := range authCtx.Permissions {
		if granted == permission {
			return true
		}
		if ok, err := path.Match(granted, permission); err == nil && ok {
			return true
		}
	}
	return false
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func authContextFromClaims(claims jwt.MapClaims) *AuthContext {
	authCtx := &AuthContext{Claims: claims}
	authCtx.UserID = claimString(claims, "user_id")
	if authCtx.UserID == "" {
		authCtx.UserID = claimString(claims, "sub")
	}
	authCtx.EmployeeCode = claimString(claims, "employee_code")
	authCtx.Email = claimString(claims, "email")
	authCtx.IsSuperAdmin, _ = claims["is_super_admin"].(bool)
	authCtx.HRAccess, _ = claims["hr_access"].(bool)
	authCtx.DepartmentID = claimUint(claims, "department_id")
	authCtx.UnitID = claimUint(claims, "unit_id")

	if perms, ok := claims["permissions"].([]interface{}); ok {
		for _, p := range perms {
			if s, ok := p.(string); ok && s != "" {
				authCtx.Permissions = append(authCtx.Permissions, s)
			}
		}
	}
	return authCtx
}

func claimString(claims jwt.MapClaims, key string) string {
	switch v := claims[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatUint(uint64(v), 10)
	default:
		return ""
	}
}

func claimUint(claims jwt.MapClaims, key string) *uint64 {
	switch v := claims[key].(type) {
	case float64:
		id := uint64(v)
		return &id
	case string:
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			return &id
		}
	}
	return nil
}
