package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	coreErrors "github.com/lee-tech/hrportal/internal/core/errors"
	coreServer "github.com/lee-tech/hrportal/internal/core/server"
	"github.com/lee-tech/hrportal/internal/core/utils"
	"github.com/lee-tech/hrportal/internal/service"
)

// TokenIntrospectionRequest represents a token introspection request
type TokenIntrospectionRequest struct {
	Token string `json:"token" validate:"required"`
}

// TokenIntrospectionResponse follows RFC 7662 plus the portal's own claims.
type TokenIntrospectionResponse struct {
	Active       bool     `json:"active"`
	Sub          string   `json:"sub,omitempty"`
	EmployeeCode string   `json:"employee_code,omitempty"`
	Email        string   `json:"email,omitempty"`
	DepartmentID string   `json:"department_id,omitempty"`
	UnitID       string   `json:"unit_id,omitempty"`
	HRAccess     bool     `json:"hr_access,omitempty"`
	SuperAdmin   bool     `json:"is_super_admin,omitempty"`
	Scopes       []string `json:"scope,omitempty"`
	IssuedAt     *int64   `json:"iat,omitempty"`
	ExpiresAt    *int64   `json:"exp,omitempty"`
	NotBefore    *int64   `json:"nbf,omitempty"`
	TokenType    string   `json:"token_type,omitempty"`
}

// TokenIntrospectionHandler handles token introspection requests
type TokenIntrospectionHandler struct {
	authService *service.AuthenticationService
}

// NewTokenIntrospectionHandler creates a new token introspection handler
func NewTokenIntrospectionHandler(authService *service.AuthenticationService) *TokenIntrospectionHandler {
	return &TokenIntrospectionHandler{authService: authService}
}

// RegisterRoutes registers token introspection routes
func (h *TokenIntrospectionHandler) RegisterRoutes(router *mux.Router) {
	coreServer.Route(router, "/v1/token/introspect", h.Introspect,
		coreServer.WithMethods(http.MethodPost),
		coreServer.WithSummary("Token Introspection"),
		coreServer.WithDescription("Introspect an access or refresh token to validate and retrieve metadata"),
		coreServer.WithTags("Authentication"),
		coreServer.WithRequestBody(&coreServer.BodyMeta{
			Required: true,
			Example:  map[string]any{"token": "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."},
		}),
		coreServer.WithResponseMeta(map[int]coreServer.BodyMeta{
			http.StatusOK: {
				Required: true,
				Example: map[string]any{
					"active":        true,
					"sub":           "42",
					"employee_code": "E1042",
					"email":         "mona.hassan@mobilitycairo.com",
					"hr_access":     true,
					"token_type":    "access",
					"exp":           1234567890,
					"iat":           1234567890,
				},
			},
		}),
		coreServer.AllowAnonymous(),
	)
}

// Introspect validates a token and returns its metadata. Invalid, expired or
// foreign tokens report active=false rather than an error.
func (h *TokenIntrospectionHandler) Introspect(w http.ResponseWriter, r *http.Request) {
	var req TokenIntrospectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		coreErrors.BadRequest("Invalid request body").WriteHTTP(w)
		return
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(req.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(h.authService.JWTSecret()), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		utils.RespondJSON(w, http.StatusOK, &TokenIntrospectionResponse{})
		return
	}

	utils.RespondJSON(w, http.StatusOK, introspectClaims(claims))
}

func introspectClaims(claims jwt.MapClaims) *TokenIntrospectionResponse {
	resp := &TokenIntrospectionResponse{Active: true}
	resp.TokenType, _ = claims["type"].(string)
	resp.Sub, _ = claims["sub"].(string)
	resp.EmployeeCode, _ = claims["employee_code"].(string)
	resp.Email, _ = claims["email"].(string)
	resp.HRAccess, _ = claims["hr_access"].(bool)
	resp.SuperAdmin, _ = claims["is_super_admin"].(bool)
	resp.DepartmentID = numericClaim(claims["department_id"])
	resp.UnitID = numericClaim(claims["unit_id"])

	if perms, ok := claims["permissions"].([]interface{}); ok {
		for _, p := range perms {
			if s, ok := p.(string); ok {
				resp.Scopes = append(resp.Scopes, s)
			}
		}
	}

	for key, target := range map[string]**int64{"iat": &resp.IssuedAt, "exp": &resp.ExpiresAt, "nbf": &resp.NotBefore} {
		if v, ok := claims[key].(float64); ok {
			n := int64(v)
			*target = &n
		}
	}
	return resp
}

func numericClaim(v interface{}) string {
	switch val := v.(type) {
	case float64:
		return strconv.FormatUint(uint64(val), 10)
	case string:
		return val
	}
	return ""
}
