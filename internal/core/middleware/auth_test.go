package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func baseClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"sub":           "42",
		"user_id":       "42",
		"employee_code": "E042",
		"type":          "access",
		"exp":           now.Add(time.Hour).Unix(),
		"iat":           now.Unix(),
		"department_id": float64(7),
		"hr_access":     true,
		"permissions":   []string{"hrportal.*"},
	}
}

func TestAuthMiddlewareFunc(t *testing.T) {
	var captured *AuthContext
	handler := AuthMiddlewareFunc(func() string { return testSecret })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetAuthContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	refresh := baseClaims()
	refresh["type"] = "refresh"
	expired := baseClaims()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "missing header", header: "", status: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + signToken(t, baseClaims(), "other"), status: http.StatusUnauthorized},
		{name: "refresh token rejected", header: "Bearer " + signToken(t, refresh, testSecret), status: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + signToken(t, expired, testSecret), status: http.StatusUnauthorized},
		{name: "valid", header: "bearer " + signToken(t, baseClaims(), testSecret), status: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captured = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	require.NotNil(t, captured)
	assert.Equal(t, "42", captured.UserID)
	assert.Equal(t, "E042", captured.EmployeeCode)
	assert.True(t, captured.HRAccess)
	require.NotNil(t, captured.DepartmentID)
	assert.Equal(t, uint64(7), *captured.DepartmentID)
	assert.Equal(t, []string{"employee", "hr"}, captured.Roles())
}

func TestRequireHRAccess(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	guarded := AuthMiddlewareFunc(func() string { return testSecret })(RequireHRAccess()(ok))

	staff := baseClaims()
	staff["hr_access"] = false
	admin := baseClaims()
	admin["hr_access"] = false
	admin["is_super_admin"] = true

	for name, tc := range map[string]struct {
		claims jwt.MapClaims
		status int
	}{
		"hr staff":    {claims: baseClaims(), status: http.StatusOK},
		"plain staff": {claims: staff, status: http.StatusForbidden},
		"super admin": {claims: admin, status: http.StatusOK},
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, tc.claims, testSecret))
			rec := httptest.NewRecorder()
			guarded.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestHasPermission(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, HasPermission(req, "hrportal.employees.read"))

	ctx := req.Context()
	withPerms := req.WithContext(WithAuthContext(ctx, &AuthContext{UserID: "1", Permissions: []string{"hrportal.*"}}))
	assert.True(t, HasPermission(withPerms, "hrportal.employees.read"))
	assert.False(t, HasPermission(withPerms, "billing.invoices.read"))

	admin := req.WithContext(WithAuthContext(ctx, &AuthContext{UserID: "1", IsSuperAdmin: true}))
	assert.True(t, HasPermission(admin, "anything.at.all"))
}
