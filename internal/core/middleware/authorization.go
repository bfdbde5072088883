package middleware

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/gorilla/mux"
	coreConfig "github.com/lee-tech/hrportal/internal/core/config"
	coreErrors "github.com/lee-tech/hrportal/internal/core/errors"
	"gopkg.in/yaml.v3"
)

// AuthorizationResource names the object an action targets.
type AuthorizationResource struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// AuthorizationRequest is what a checker decides on.
type AuthorizationRequest struct {
	Action   string                `json:"action"`
	Resource AuthorizationResource `json:"resource"`
	Trace    bool                  `json:"trace,omitempty"`
}

// AuthorizationDecision is a checker verdict.
type AuthorizationDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// AuthorizationRequestBuilder derives the request for an incoming HTTP call.
type AuthorizationRequestBuilder func(r *http.Request, user *AuthContext) (*AuthorizationRequest, error)

// AuthorizationChecker decides whether a user may perform a request.
type AuthorizationChecker interface {
	Check(ctx context.Context, user *AuthContext, req *AuthorizationRequest) (*AuthorizationDecision, error)
}

// WithAuthorizationChecker places checker on every request context.
func WithAuthorizationChecker(checker AuthorizationChecker) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), authorizationCheckerKey, checker)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuthorization builds a request with builder and asks the checker on
// the context. Without a checker only super admins pass.
func RequireAuthorization(builder AuthorizationRequestBuilder) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetAuthContext(r.Context())
			if user == nil {
				coreErrors.Unauthorized("authentication required").WriteHTTP(w)
				return
			}

			checker, _ := r.Context().Value(authorizationCheckerKey).(AuthorizationChecker)
			if checker == nil || builder == nil {
				if user.IsSuperAdmin {
					next.ServeHTTP(w, r)
					return
				}
				coreErrors.Forbidden("authorization unavailable").WriteHTTP(w)
				return
			}

			req, err := builder(r, user)
			if err != nil {
				coreErrors.Internal("failed to build authorization request").WithInternal(err).WriteHTTP(w)
				return
			}
			decision, err := checker.Check(r.Context(), user, req)
			if err != nil {
				coreErrors.Internal("authorization check failed").WithInternal(err).WriteHTTP(w)
				return
			}
			if decision == nil || !decision.Allowed {
				msg := "insufficient permissions"
				if req.Trace && decision != nil && decision.Reason != "" {
					msg = fmt.Sprintf("%s: %s", msg, decision.Reason)
				}
				coreErrors.Forbidden(msg).WriteHTTP(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PolicyRule grants an action pattern to roles or named employees.
type PolicyRule struct {
	Action        string   `yaml:"action"`
	Roles         []string `yaml:"roles"`
	EmployeeCodes []string `yaml:"employee_codes"`
}

// PolicyChecker evaluates a static rule list loaded from YAML. The first
// rule whose action pattern matches decides.
type PolicyChecker struct {
	Rules []PolicyRule `yaml:"rules"`
}

// LoadPolicyFile parses a YAML policy file.
func LoadPolicyFile(file string) (*PolicyChecker, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	var checker PolicyChecker
	if err := yaml.Unmarshal(data, &checker); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}
	for i, rule := range checker.Rules {
		if strings.TrimSpace(rule.Action) == "" {
			return nil, fmt.Errorf("policy rule %d has no action", i)
		}
		if _, err := path.Match(rule.Action, ""); err != nil {
			return nil, fmt.Errorf("policy rule %d: bad pattern %q: %w", i, rule.Action, err)
		}
	}
	return &checker, nil
}

// Check implements AuthorizationChecker.
func (p *PolicyChecker) Check(_ context.Context, user *AuthContext, req *AuthorizationRequest) (*AuthorizationDecision, error) {
	if user == nil || req == nil {
		return &AuthorizationDecision{Allowed: false, Reason: "no subject"}, nil
	}
	if user.IsSuperAdmin {
		return &AuthorizationDecision{Allowed: true, Reason: "super admin"}, nil
	}

	roles := user.Roles()
	for _, rule := range p.Rules {
		if ok, _ := path.Match(rule.Action, req.Action); !ok {
			continue
		}
		for _, role := range rule.Roles {
			if slices.Contains(roles, role) {
				return &AuthorizationDecision{Allowed: true, Reason: fmt.Sprintf("rule %q grants role %s", rule.Action, role)}, nil
			}
		}
		if user.EmployeeCode != "" && slices.Contains(rule.EmployeeCodes, user.EmployeeCode) {
			return &AuthorizationDecision{Allowed: true, Reason: fmt.Sprintf("rule %q names employee", rule.Action)}, nil
		}
		return &AuthorizationDecision{Allowed: false, Reason: fmt.Sprintf("rule %q does not grant %s", rule.Action, strings.Join(roles, ","))}, nil
	}
	return &AuthorizationDecision{Allowed: false, Reason: "no rule matches " + req.Action}, nil
}

// NewAuthorizationCheckerFromConfig returns the policy checker when a policy
// file is configured and authorization is not disabled.
func NewAuthorizationCheckerFromConfig(cfg *coreConfig.Config) (AuthorizationChecker, bool, error) {
	if cfg == nil || cfg.DisableAuthorization || strings.TrimSpace(cfg.AuthorizationPolicyFile) == "" {
		return nil, false, nil
	}
	checker, err := LoadPolicyFile(cfg.AuthorizationPolicyFile)
	if err != nil {
		return nil, false, err
	}
	return checker, true, nil
}
