package server

import (
	"fmt"
	"sync"
)

// ComponentFactory builds a component once the app's DB and config are ready.
type ComponentFactory func(app *HTTPApp) (interface{}, error)

// HandlerRegistrar mounts routes on the app router.
type HandlerRegistrar func(app *HTTPApp) error

type factoryEntry struct {
	key     string
	factory ComponentFactory
}

var registry = struct {
	sync.Mutex
	migrations   []func() interface{}
	repositories []factoryEntry
	services     []factoryEntry
	handlers     []HandlerRegistrar
	schemas      map[string]any
}{
	schemas: map[string]any{},
}

// RegisterMigration adds a model to the auto-migration set.
func RegisterMigration(model func() interface{}) {
	registry.Lock()
	defer registry.Unlock()
	registry.migrations = append(registry.migrations, model)
}

// RegisterRepository registers a repository factory under key.
func RegisterRepository(key string, factory ComponentFactory) {
	registry.Lock()
	defer registry.Unlock()
	registry.repositories = append(registry.repositories, factoryEntry{key: key, factory: factory})
}

// RegisterService registers a service factory under key.
func RegisterService(key string, factory ComponentFactory) {
	registry.Lock()
	defer registry.Unlock()
	registry.services = append(registry.services, factoryEntry{key: key, factory: factory})
}

// RegisterHandler registers a route registrar run after all components are built.
func RegisterHandler(registrar HandlerRegistrar) {
	registry.Lock()
	defer registry.Unlock()
	registry.handlers = append(registry.handlers, registrar)
}

// RegisterSchemaType exposes a Go type as a named OpenAPI schema.
func RegisterSchemaType(key string, value any) {
	registry.Lock()
	defer registry.Unlock()
	registry.schemas[key] = value
}

func registeredMigrations() []interface{} {
	registry.Lock()
	defer registry.Unlock()
	models := make([]interface{}, 0, len(registry.migrations))
	for _, fn := range registry.migrations {
		models = append(models, fn())
	}
	return models
}

func registeredFactories() []factoryEntry {
	registry.Lock()
	defer registry.Unlock()
	entries := make([]factoryEntry, 0, len(registry.repositories)+len(registry.services))
	entries = append(entries, registry.repositories...)
	entries = append(entries, registry.services...)
	return entries
}

func registeredHandlers() []HandlerRegistrar {
	registry.Lock()
	defer registry.Unlock()
	return append([]HandlerRegistrar(nil), registry.handlers...)
}

func registeredSchemas() map[string]any {
	registry.Lock()
	defer registry.Unlock()
	out := make(map[string]any, len(registry.schemas))
	for k, v := range registry.schemas {
		out[k] = v
	}
	return out
}

// GetComponent returns the component under key, building it on first use
// when only its factory has been registered.
func (a *HTTPApp) GetComponent(key string) (interface{}, bool) {
	a.mu.Lock()
	if component, ok := a.components[key]; ok {
		a.mu.Unlock()
		return component, true
	}
	factory, ok := a.factories[key]
	if !ok || a.building[key] {
		a.mu.Unlock()
		return nil, false
	}
	a.building[key] = true
	a.mu.Unlock()

	component, err := factory(a)

	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.building, key)
	if err != nil {
		a.buildErrors = append(a.buildErrors, fmt.Errorf("build %s: %w", key, err))
		return nil, false
	}
	a.components[key] = component
	return component, true
}

// SetComponent stores component under key, replacing any previous value.
func (a *HTTPApp) SetComponent(key string, component interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.components[key] = component
}

// Resolve fetches a component and asserts its type.
func Resolve[T any](app *HTTPApp, key string) (T, error) {
	var zero T
	component, ok := app.GetComponent(key)
	if !ok {
		return zero, fmt.Errorf("component %s not found", key)
	}
	typed, ok := component.(T)
	if !ok {
		return zero, fmt.Errorf("component %s has unexpected type %T", key, component)
	}
	return typed, nil
}
