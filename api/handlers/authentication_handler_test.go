package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/lee-tech/hrportal/config"
	"github.com/lee-tech/hrportal/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeLoginFlow(t *testing.T) {
	p := newPortal(t)
	p.seed.Employee(testutil.Seed{Code: "E1", Email: "mona@example.com", First: "Mona"})

	resp := p.login(t, "mona@example.com")
	assert.Equal(t, "Bearer", resp["token_type"])
	assert.EqualValues(t, 900, resp["expires_in"])
	user := resp["user"].(map[string]any)
	assert.Equal(t, "E1", user["employee_code"])

	rec := p.do(t, http.MethodGet, "/v1/auth/me", resp["access_token"].(string), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	me := decode(t, rec)
	assert.Equal(t, "Mona", me["first_name"])
	assert.Equal(t, false, me["hr_access"])

	rec = p.do(t, http.MethodGet, "/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = p.do(t, http.MethodGet, "/v1/auth/me", resp["refresh_token"].(string), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "refresh tokens are not bearer tokens")
}

func TestSendTokenErrors(t *testing.T) {
	p := newPortal(t)
	p.seed.Employee(testutil.Seed{Code: "E1"})

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{name: "malformed body", body: "{", status: http.StatusBadRequest, code: "BAD_REQUEST"},
		{name: "missing identifier", body: map[string]string{"email": "  "}, status: http.StatusUnprocessableEntity, code: "VALIDATION_ERROR"},
		{name: "unknown identifier", body: map[string]string{"email": "ghost@example.com"}, status: http.StatusNotFound, code: "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := p.do(t, http.MethodPost, "/v1/auth/send-token", "", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestLoginErrors(t *testing.T) {
	p := newPortal(t)
	p.seed.Employee(testutil.Seed{Code: "E1", Email: "e1@example.com"})

	rec := p.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "e1@example.com"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = p.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "e1@example.com", "code": "123456"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "no code was requested")

	rec = p.do(t, http.MethodPost, "/v1/auth/send-token", "", map[string]string{"email": "E1"})
	require.Equal(t, http.StatusOK, rec.Code)
	wrong := "000000"
	if p.mailer.code("e1@example.com") == wrong {
		wrong = "111111"
	}
	rec = p.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "E1", "code": wrong})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec))
}

func TestRefreshEndpoint(t *testing.T) {
	p := newPortal(t)
	p.seed.Employee(testutil.Seed{Code: "E1", Email: "e1@example.com"})
	resp := p.login(t, "e1@example.com")

	rec := p.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": resp["refresh_token"].(string)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode(t, rec)["access_token"])

	rec = p.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": resp["access_token"].(string)})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = p.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestIntrospect(t *testing.T) {
	p := newPortal(t)
	token := p.hrToken(t)

	rec := p.do(t, http.MethodPost, "/v1/token/introspect", "", map[string]string{"token": token})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["active"])
	assert.Equal(t, "HR1", body["employee_code"])
	assert.Equal(t, "access", body["token_type"])
	assert.Equal(t, true, body["hr_access"])
	assert.Equal(t, []any{"hrportal.*"}, body["scope"])
	assert.NotEmpty(t, body["department_id"])

	rec = p.do(t, http.MethodPost, "/v1/token/introspect", "", map[string]string{"token": "garbage"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"active": false}, decode(t, rec))
}

func TestHealth(t *testing.T) {
	p := newPortal(t)
	rec := p.do(t, http.MethodGet, "/v1/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "healthy", "service": "hr-portal"}, decode(t, rec))
}

func TestGoogleLogin(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		p := newPortal(t)
		rec := p.do(t, http.MethodGet, "/v1/auth/google/login", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("redirects with a state cookie", func(t *testing.T) {
		p := newPortal(t, func(cfg *config.HRConfig) {
			cfg.GoogleClientID = "client-id"
			cfg.GoogleClientSecret = "client-secret"
			cfg.GoogleRedirectURL = "http://localhost:8080/v1/auth/google/callback"
		})
		rec := p.do(t, http.MethodGet, "/v1/auth/google/login", "", nil)
		require.Equal(t, http.StatusFound, rec.Code)

		location, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "accounts.google.com", location.Host)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, googleStateCookie, cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)
		assert.Equal(t, location.Query().Get("state"), cookies[0].Value)

		rec = p.do(t, http.MethodGet, "/v1/auth/google/callback?state=forged&code=x", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "no matching state cookie")

		rec = p.do(t, http.MethodGet, "/v1/auth/google/callback?error=access_denied", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.True(t, strings.Contains(rec.Body.String(), "access_denied"))
	})
}
