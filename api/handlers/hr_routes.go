package handlers

import (
	"github.com/gorilla/mux"
	"github.com/lee-tech/hrportal/config"
	"github.com/lee-tech/hrportal/internal/constants"
	coreMiddleware "github.com/lee-tech/hrportal/internal/core/middleware"
	coreServer "github.com/lee-tech/hrportal/internal/core/server"
	"github.com/lee-tech/hrportal/internal/service"
)

// HRRouter returns the /v1/hr subrouter: bearer authentication plus either
// the policy checker (when authorization is enabled) or the HR access gate.
func HRRouter(router *mux.Router, secret func() string, useAuthorization bool, builder coreMiddleware.AuthorizationRequestBuilder) *mux.Router {
	hr := router.PathPrefix("/v1/hr").Subrouter()
	hr.Use(coreMiddleware.AuthMiddlewareFunc(secret))
	if useAuthorization {
		if builder == nil {
			builder = NewHRAuthorizationBuilder()
		}
		hr.Use(coreMiddleware.RequireAuthorization(builder))
	} else {
		hr.Use(coreMiddleware.RequireHRAccess())
	}
	return hr
}

func init() {
	coreServer.RegisterHandler(func(app *coreServer.HTTPApp) error {
		cfg, err := coreServer.Resolve[*config.HRConfig](app, constants.ComponentKey.HRConfig)
		if err != nil {
			return err
		}
		authenticationService, err := coreServer.Resolve[*service.AuthenticationService](app, constants.ComponentKey.AuthenticationService)
		if err != nil {
			return err
		}
		dashboard, err := coreServer.Resolve[*service.DashboardService](app, constants.ComponentKey.DashboardService)
		if err != nil {
			return err
		}
		hierarchy, err := coreServer.Resolve[*service.HierarchyService](app, constants.ComponentKey.HierarchyService)
		if err != nil {
			return err
		}
		imports, err := coreServer.Resolve[*service.ImportService](app, constants.ComponentKey.ImportService)
		if err != nil {
			return err
		}
		directory, err := coreServer.Resolve[*service.DirectoryService](app, constants.ComponentKey.DirectoryService)
		if err != nil {
			return err
		}

		var builder coreMiddleware.AuthorizationRequestBuilder
		if resolved, err := coreServer.Resolve[coreMiddleware.AuthorizationRequestBuilder](app, constants.ComponentKey.AdminAuthorizationBuilder); err == nil {
			builder = resolved
		}
		useAuthorization := false
		if enabled, err := coreServer.Resolve[bool](app, constants.ComponentKey.AuthorizationEnabled); err == nil {
			useAuthorization = enabled
		}

		hr := HRRouter(app.Router, authenticationService.JWTSecret, useAuthorization, builder)
		NewDashboardHandler(dashboard, app.Logger).RegisterRoutes(hr)
		NewHierarchyHandler(hierarchy, app.Logger).RegisterRoutes(hr)
		NewImportHandler(imports, cfg.MaxUploadBytes, app.Logger).RegisterRoutes(hr)
		NewEmployeeHandler(directory, app.Logger).RegisterRoutes(hr)
		return nil
	})
}
