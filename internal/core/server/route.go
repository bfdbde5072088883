package server

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"
)

// BodyMeta documents a request or response body.
type BodyMeta struct {
	Required    bool
	ModelKey    string
	Description string
	ContentType string
	Example     any
	IsIgnored   bool
}

// RouteMeta is the documentation attached to a route.
type RouteMeta struct {
	Path        string
	Name        string
	Methods     []string
	Summary     string
	Description string
	Tags        []string
	Anonymous   bool
	RequestBody *BodyMeta
	Responses   map[int]BodyMeta
}

// RouteOption customises a RouteMeta.
type RouteOption func(*RouteMeta)

var routeTable = struct {
	sync.Mutex
	routes []RouteMeta
}{}

func WithMethods(methods ...string) RouteOption {
	return func(m *RouteMeta) { m.Methods = append(m.Methods, methods...) }
}

func WithName(name string) RouteOption {
	return func(m *RouteMeta) { m.Name = name }
}

func WithSummary(summary string) RouteOption {
	return func(m *RouteMeta) { m.Summary = summary }
}

func WithDescription(description string) RouteOption {
	return func(m *RouteMeta) { m.Description = description }
}

func WithTags(tags ...string) RouteOption {
	return func(m *RouteMeta) { m.Tags = append(m.Tags, tags...) }
}

func WithRequestBody(body *BodyMeta) RouteOption {
	return func(m *RouteMeta) { m.RequestBody = body }
}

func WithResponseMeta(responses map[int]BodyMeta) RouteOption {
	return func(m *RouteMeta) { m.Responses = responses }
}

// AllowAnonymous marks the route as reachable without a token.
func AllowAnonymous() RouteOption {
	return func(m *RouteMeta) { m.Anonymous = true }
}

// RequireAuth marks the route as requiring a bearer token.
func RequireAuth() RouteOption {
	return func(m *RouteMeta) { m.Anonymous = false }
}

// Route mounts handler on router and records its metadata for the OpenAPI document.
func Route(router *mux.Router, path string, handler http.HandlerFunc, opts ...RouteOption) *mux.Route {
	meta := RouteMeta{Path: path}
	for _, opt := range opts {
		if opt != nil {
			opt(&meta)
		}
	}
	if len(meta.Methods) == 0 {
		meta.Methods = []string{http.MethodGet}
	}

	route := router.HandleFunc(path, handler).Methods(meta.Methods...)
	if meta.Name != "" {
		route.Name(meta.Name)
	}
	if tpl, err := route.GetPathTemplate(); err == nil && tpl != "" {
		meta.Path = tpl
	}

	routeTable.Lock()
	routeTable.routes = append(routeTable.routes, meta)
	routeTable.Unlock()
	return route
}

// Routes returns a copy of the recorded route metadata, deduplicated by method and path.
func Routes() []RouteMeta {
	routeTable.Lock()
	defer routeTable.Unlock()

	seen := make(map[string]struct{}, len(routeTable.routes))
	out := make([]RouteMeta, 0, len(routeTable.routes))
	for _, meta := range routeTable.routes {
		key := strings.Join(meta.Methods, ",") + " " + meta.Path
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, meta)
	}
	return out
}
