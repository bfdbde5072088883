package main

import (
	"context"
	"log"
	"time"

	"github.com/gorilla/mux"
	"github.com/lee-tech/hrportal/api/handlers"
	"github.com/lee-tech/hrportal/config"
	"github.com/lee-tech/hrportal/internal/constants"
	coreConfig "github.com/lee-tech/hrportal/internal/core/config"
	coreLog "github.com/lee-tech/hrportal/internal/core/log"
	coreMiddleware "github.com/lee-tech/hrportal/internal/core/middleware"
	coreServer "github.com/lee-tech/hrportal/internal/core/server"
	"github.com/lee-tech/hrportal/internal/service"
	"go.uber.org/zap"

	_ "github.com/lee-tech/hrportal/internal/archive"
	_ "github.com/lee-tech/hrportal/internal/events"
	_ "github.com/lee-tech/hrportal/internal/metrics"
	_ "github.com/lee-tech/hrportal/internal/notify"
	_ "github.com/lee-tech/hrportal/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var additionalMiddleware []mux.MiddlewareFunc
	checker, authorizationEnabled, err := coreMiddleware.NewAuthorizationCheckerFromConfig(cfg.Config)
	if err != nil {
		log.Printf("failed to load authorization policy, falling back to HR access checks: %v", err)
	} else if authorizationEnabled && checker != nil {
		additionalMiddleware = append(additionalMiddleware, coreMiddleware.WithAuthorizationChecker(checker))
	} else if cfg.DisableAuthorization {
		log.Println("authorization policy disabled via DISABLE_AUTHORIZATION flag")
	}

	app, err := coreServer.InitializeHTTPApp(cfg.Config, &coreServer.HTTPAppOptions{
		InitialComponents: map[string]any{
			constants.ComponentKey.HRConfig:                  cfg,
			constants.ComponentKey.AuthorizationEnabled:      authorizationEnabled,
			constants.ComponentKey.AdminAuthorizationBuilder: handlers.NewHRAuthorizationBuilder(),
		},
		AdditionalMiddleware: additionalMiddleware,
	})
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	cfg.RegisterOnConfigChange(func(newCfg *coreConfig.Config) {
		coreLog.Init(newCfg.LogLevel, newCfg.ServiceName, newCfg.ServiceVersion)
		app.Logger.Info("Configuration reloaded")
	})

	if watcher, err := config.NewWatcher(cfg.Config); err != nil {
		app.Logger.Warn("Failed to create config watcher", zap.Error(err))
	} else {
		watcher.Watch()
		app.OnShutdown(func(context.Context) error { return watcher.Close() })
	}

	authSvc, err := coreServer.Resolve[*service.AuthenticationService](app, constants.ComponentKey.AuthenticationService)
	if err != nil {
		log.Fatalf("failed to resolve authentication service: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	org, admin, err := authSvc.BootstrapDefaultAdmin(ctx)
	cancel()
	if err != nil {
		log.Fatalf("failed to bootstrap default administrator: %v", err)
	}
	app.Logger.Info("Bootstrap administrator ready",
		zap.String("organization", org.Name),
		zap.String("employee_code", admin.EmployeeCode),
	)

	app.Run()
}
