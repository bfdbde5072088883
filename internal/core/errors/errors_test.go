package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteHTTP(t *testing.T) {
	cause := stderrors.New("connection reset")
	appErr := Internal("failed to load profile").WithInternal(cause)

	rec := httptest.NewRecorder()
	rec.Header().Set("X-Request-ID", "req-1")
	appErr.WriteHTTP(rec)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotContains(t, rec.Body.String(), "connection reset")

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		RequestID string `json:"request_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeInternal, body.Error.Code)
	assert.Equal(t, "failed to load profile", body.Error.Message)
	assert.Equal(t, "req-1", body.RequestID)

	assert.ErrorIs(t, appErr, cause)
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		err    *AppError
		status int
		code   string
	}{
		{BadRequest("x"), http.StatusBadRequest, CodeBadRequest},
		{ValidationError("x"), http.StatusUnprocessableEntity, CodeValidation},
		{Unauthorized("x"), http.StatusUnauthorized, CodeUnauthorized},
		{Forbidden("x"), http.StatusForbidden, CodeForbidden},
		{NotFound("employee"), http.StatusNotFound, CodeNotFound},
		{Conflict("x"), http.StatusConflict, CodeConflict},
		{TooManyRequests("x"), http.StatusTooManyRequests, CodeTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Status)
			assert.Equal(t, tt.code, tt.err.Code)
		})
	}
	assert.Equal(t, "employee not found", NotFound("employee").Message)
}
