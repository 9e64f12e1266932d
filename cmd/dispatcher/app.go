package main

import (
	"context"
	"fmt"
	"time"

	"notification-dispatcher/internal/common/aws"
	"notification-dispatcher/internal/common/config"
	"notification-dispatcher/internal/common/database"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/common/observability"
	"notification-dispatcher/internal/integrations/audit"
	"notification-dispatcher/internal/integrations/directory"
	"notification-dispatcher/internal/integrations/guard"
	"notification-dispatcher/internal/integrations/sender"
	"notification-dispatcher/internal/integrations/store"
	"notification-dispatcher/internal/notification/orchestrator"
	"notification-dispatcher/internal/server"
)

// app owns every connection opened at startup.
type app struct {
	cfg     *config.Config
	log     logger.Logger
	obs     *observability.Observability
	handler *orchestrator.Handler
	checks  map[string]server.Check
	closers []func() error
}

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func newApp(ctx context.Context, cfg *config.Config, log logger.Logger, retries int) (*app, error) {
	a := &app{cfg: cfg, log: log, checks: map[string]server.Check{}}

	a.obs = observability.New(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint)

	// --- PostgreSQL: users directory, and documents when it is the store ---
	var pg *database.PostgresClient
	err := retryWithBackoff(ctx, func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, retries, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, pg.Close)
	a.checks["postgres"] = pg.Ping
	log.Info("PostgreSQL connected successfully", nil)

	var docs store.Store
	switch cfg.Store.Backend {
	case config.StoreBackendElasticsearch:
		var es *database.ElasticsearchClient
		err := retryWithBackoff(ctx, func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, retries, 2*time.Second, log, "Elasticsearch connection")
		if err != nil {
			a.Close()
			return nil, err
		}
		a.checks["elasticsearch"] = es.Ping
		docs = store.NewElasticsearchStore(es.Client)
		log.Info("Elasticsearch connected successfully", nil)
	default:
		docs = store.NewPostgresStore(pg.GetDB(), cfg.Store.DocumentsTable)
	}

	opts := orchestrator.HandlerOptions{
		Config:        orchestrator.LoadConfig(cfg),
		Store:         docs,
		Directory:     directory.NewPostgresDirectory(pg.GetDB(), cfg.Store.UsersTable),
		Observability: a.obs,
		Logger:        log,
	}

	// --- Redis: optional in-flight guard ---
	if cfg.Database.Redis.Enabled {
		var rdb *database.RedisClient
		err := retryWithBackoff(ctx, func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, retries, 2*time.Second, log, "Redis connection")
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		a.checks["redis"] = rdb.Ping
		opts.Guard = guard.NewRedisGuard(rdb.GetClient(), cfg.Notifications.ProcessingWindow)
		log.Info("Redis connected successfully", nil)
	}

	// --- AWS: SES delivery and SNS audit ---
	awsCfg := cfg.Integrations.AWS
	if awsCfg.Region != "" {
		sdkCfg, err := aws.LoadConfig(ctx, awsCfg.Region, awsCfg.Endpoint)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}
		if awsCfg.SES.FromEmail != "" {
			opts.Sender = sender.NewSESSender(sender.Config{
				FromEmail:        awsCfg.SES.FromEmail,
				FromName:         awsCfg.SES.FromName,
				ConfigurationSet: awsCfg.SES.ConfigurationSet,
				MaxSendRate:      awsCfg.SES.MaxSendRate,
			}, aws.NewSESClient(sdkCfg))
		}
		if awsCfg.SNS.AuditTopicARN != "" {
			opts.Audit = audit.NewSNSPublisher(aws.NewSNSClient(sdkCfg), awsCfg.SNS.AuditTopicARN)
		}
	}

	a.handler, err = orchestrator.NewHandler(opts)
	if err != nil {
		a.Close()
		return nil, err
	}

	log.Info("dispatcher initialized", map[string]interface{}{
		"store":    cfg.Store.Backend,
		"dryRun":   cfg.Notifications.DryRun,
		"guard":    opts.Guard != nil,
		"audit":    opts.Audit != nil,
		"throttle": cfg.Notifications.ThrottleWindow().String(),
	})
	return a, nil
}

// Close releases connections in reverse order of opening.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", map[string]interface{}{"error": err.Error()})
		}
	}
	a.closers = nil
	a.obs.Shutdown()
}
