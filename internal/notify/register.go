package notify

import (
	"context"
	"time"

	"github.com/lee-tech/hrportal/config"
	"github.com/lee-tech/hrportal/internal/constants"
	coreServer "github.com/lee-tech/hrportal/internal/core/server"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func init() {
	coreServer.RegisterService(constants.ComponentKey.Mailer, func(app *coreServer.HTTPApp) (interface{}, error) {
		cfg, err := coreServer.Resolve[*config.HRConfig](app, constants.ComponentKey.HRConfig)
		if err != nil {
			return nil, err
		}
		if cfg.SMTPHost == "" {
			return NewLogMailer(app.Logger), nil
		}
		return NewSMTPMailer(SMTPSettings{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			Portal:   cfg.PortalName,
		}, app.Logger), nil
	})

	coreServer.RegisterService(constants.ComponentKey.SMSSender, func(app *coreServer.HTTPApp) (interface{}, error) {
		cfg, err := coreServer.Resolve[*config.HRConfig](app, constants.ComponentKey.HRConfig)
		if err != nil {
			return nil, err
		}
		if cfg.SMSGatewayURL == "" {
			return NewLogSMS(app.Logger), nil
		}
		return NewGatewaySMS(cfg.SMSGatewayURL, cfg.SMSGatewayTimeout, 3, app.Logger), nil
	})

	coreServer.RegisterService(constants.ComponentKey.SendLimiter, func(app *coreServer.HTTPApp) (interface{}, error) {
		cfg, err := coreServer.Resolve[*config.HRConfig](app, constants.ComponentKey.HRConfig)
		if err != nil {
			return nil, err
		}
		if cfg.RedisAddr == "" {
			return NewMemoryLimiter(cfg.CodeSendLimit, cfg.CodeSendWindow), nil
		}

		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			app.Logger.Warn("redis unreachable, using in-process send limiter", zap.Error(err))
			_ = client.Close()
			return NewMemoryLimiter(cfg.CodeSendLimit, cfg.CodeSendWindow), nil
		}
		app.OnShutdown(func(context.Context) error { return client.Close() })
		return NewRedisLimiter(client, cfg.CodeSendLimit, cfg.CodeSendWindow), nil
	})
}
