package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	coreMiddleware "github.com/lee-tech/hrportal/internal/core/middleware"
)

const (
	defaultAuthorizationBasePath  = "/v1"
	defaultAuthorizationNamespace = "hrportal"
)

type hrBuilderConfig struct {
	basePath  string
	namespace string
	overrides map[string]coreMiddleware.AuthorizationRequestBuilder
}

// HRBuilderOption customises the HR authorization builder.
type HRBuilderOption func(*hrBuilderConfig)

// WithAuthorizationBasePath sets the prefix stripped before the action slug is derived.
func WithAuthorizationBasePath(basePath string) HRBuilderOption {
	return func(cfg *hrBuilderConfig) {
		cfg.basePath = strings.TrimSpace(basePath)
	}
}

// WithAuthorizationNamespace sets the first segment of every action.
func WithAuthorizationNamespace(namespace string) HRBuilderOption {
	return func(cfg *hrBuilderConfig) {
		cfg.namespace = strings.TrimSpace(namespace)
	}
}

// WithAuthorizationOverride replaces the derived request for one route,
// keyed by route name or path template.
func WithAuthorizationOverride(route string, builder coreMiddleware.AuthorizationRequestBuilder) HRBuilderOption {
	return func(cfg *hrBuilderConfig) {
		route = strings.TrimSpace(route)
		if route == "" || builder == nil {
			return
		}
		cfg.overrides[route] = builder
	}
}

// NewHRAuthorizationBuilder derives authorization requests from HR routes:
// GET /v1/hr/imports/{id} becomes action "hrportal.hr.imports.get" on
// resource "hrportal:hr.imports" with the path id as resource id.
func NewHRAuthorizationBuilder(opts ...HRBuilderOption) coreMiddleware.AuthorizationRequestBuilder {
	cfg := hrBuilderConfig{
		basePath:  defaultAuthorizationBasePath,
		namespace: defaultAuthorizationNamespace,
		overrides: map[string]coreMiddleware.AuthorizationRequestBuilder{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.namespace == "" {
		cfg.namespace = defaultAuthorizationNamespace
	}
	cfg.basePath = "/" + strings.Trim(cfg.basePath, "/")

	return func(r *http.Request, _ *coreMiddleware.AuthContext) (*coreMiddleware.AuthorizationRequest, error) {
		if r == nil {
			return nil, fmt.Errorf("http request is required")
		}

		route := mux.CurrentRoute(r)
		if override := routeOverride(route, cfg.overrides); override != nil {
			return override(r, coreMiddleware.GetAuthContext(r.Context()))
		}

		template := r.URL.Path
		if route != nil {
			if t, err := route.GetPathTemplate(); err == nil && t != "" {
				template = t
			}
		}

		slug := strings.Join(actionSegments(template, cfg.basePath), ".")
		if slug == "" {
			slug = "hr"
		}

		req := &coreMiddleware.AuthorizationRequest{
			Action: fmt.Sprintf("%s.%s.%s", cfg.namespace, slug, strings.ToLower(r.Method)),
			Resource: coreMiddleware.AuthorizationResource{
				Type: cfg.namespace + ":" + slug,
				ID:   resourceID(r),
			},
		}
		switch strings.ToLower(r.URL.Query().Get("trace")) {
		case "1", "true", "yes":
			req.Trace = true
		}
		return req, nil
	}
}

func routeOverride(route *mux.Route, overrides map[string]coreMiddleware.AuthorizationRequestBuilder) coreMiddleware.AuthorizationRequestBuilder {
	if route == nil || len(overrides) == 0 {
		return nil
	}
	if name := route.GetName(); name != "" {
		if override, ok := overrides[name]; ok {
			return override
		}
	}
	if template, err := route.GetPathTemplate(); err == nil {
		return overrides[template]
	}
	return nil
}

// actionSegments strips basePath from template and drops path variables.
// Dashes become underscores so segments stay valid in glob patterns.
func actionSegments(template, basePath string) []string {
	template = "/" + strings.Trim(strings.TrimSpace(template), "/")
	if basePath != "/" && (template == basePath || strings.HasPrefix(template, basePath+"/")) {
		template = strings.TrimPrefix(template, basePath)
	}

	var segments []string
	for _, segment := range strings.Split(template, "/") {
		segment = strings.TrimSpace(segment)
		if segment == "" || (strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}")) {
			continue
		}
		segments = append(segments, strings.ReplaceAll(segment, "-", "_"))
	}
	return segments
}

// resourceID returns the single path variable of the route, if any.
func resourceID(r *http.Request) string {
	vars := mux.Vars(r)
	if len(vars) != 1 {
		return ""
	}
	for _, v := range vars {
		return v
	}
	return ""
}
