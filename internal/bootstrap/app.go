package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kimola/kimola-go/internal/queue"
	"github.com/kimola/kimola-go/internal/report"
	"github.com/kimola/kimola-go/internal/services/health"
	"github.com/kimola/kimola-go/internal/shared/config"
	"github.com/kimola/kimola-go/internal/shared/metrics"
	"github.com/kimola/kimola-go/internal/shared/server"
	"github.com/kimola/kimola-go/internal/shared/storage/db"
	"github.com/kimola/kimola-go/internal/shared/storage/object"
	localstore "github.com/kimola/kimola-go/internal/shared/storage/object/local"
	s3store "github.com/kimola/kimola-go/internal/shared/storage/object/s3"
	"github.com/kimola/kimola-go/internal/shared/telemetry"
	"github.com/kimola/kimola-go/internal/usage"
	"github.com/kimola/kimola-go/kimola"
)

// App holds the monitor's shared dependencies.
type App struct {
	Config        config.Config
	Router        *gin.Engine
	Client        *kimola.Client
	DB            *sql.DB
	Dialect       string
	ReportStore   object.ObjectStore
	Queue         queue.Client
	UsageService  *usage.Service
	Poller        *usage.Poller
	UsageHandler  *usage.Handler
	ReportHandler *report.Handler
	Health        *health.Service
}

// Build prepares dependencies and the router from cfg.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Client: client, Health: health.NewService()}
	if err := app.buildStorage(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}

	reportStore, err := ReportStore(ctx, cfg)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.ReportStore = reportStore

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Queue = queueClient

	var notifier usage.Notifier = usage.LogNotifier{}
	if queueClient != nil {
		notifier = usage.MultiNotifier{usage.LogNotifier{}, usage.NewQueueNotifier(queueClient)}
	}

	app.Poller = usage.NewPoller(client.Subscription, app.UsageService, notifier, cfg.PollInterval)
	app.UsageHandler = usage.NewHandler(app.UsageService, app.Poller)
	app.ReportHandler = report.NewHandler(report.ClientSource(client), reportStore)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:        cfg,
		Health:        app.Health,
		UsageHandler:  app.UsageHandler,
		ReportHandler: app.ReportHandler,
	})
	return app, nil
}

// WatchPoller adds the poller staleness check to health. Call it before
// serving, and only where the poll loop runs.
func (a *App) WatchPoller() {
	a.Health.Register("poller", health.Staleness(a.Poller.LastSuccess, 3*a.Poller.Interval()))
}

// NewClient builds a Kimola client that reports every call to metrics and logs.
func NewClient(cfg config.Config) (*kimola.Client, error) {
	return kimola.New(kimola.Options{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Timeout:     cfg.Timeout,
		RequestHook: observeRequest,
	})
}

func observeRequest(info kimola.RequestInfo) {
	metrics.ObserveAPIRequest(info.Duration, info.Err != nil)
	if info.Err == nil {
		return
	}
	if errors.Is(info.Err, context.Canceled) {
		return
	}
	telemetry.Warn("kimola.request.failed", map[string]any{
		"method":      info.Method,
		"path":        info.Path,
		"status":      info.StatusCode,
		"duration_ms": info.Duration.Milliseconds(),
		"err":         info.Err,
	})
}

// Close releases the database and the Kimola client.
func (a *App) Close() error {
	var errs []error
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	if a.Client != nil {
		errs = append(errs, a.Client.Close())
	}
	return errors.Join(errs...)
}

func (a *App) buildStorage(ctx context.Context) error {
	cfg := a.Config
	var store usage.Store
	switch cfg.UsageStore {
	case "postgres":
		defaults := db.DefaultServerOptions()
		if db.IsLambdaRuntime() {
			defaults = db.DefaultLambdaOptions()
		}
		opts := db.OptionsFromEnv(defaults)
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
		if err != nil {
			if !isDevLike(cfg.Env) {
				return err
			}
			log.Printf("bootstrap: database connect failed; using in-memory usage store: %v", err)
			store = usage.NewMemoryStore()
			break
		}
		if err := db.RunMigrations(ctx, sqlDB, db.DialectPostgres); err != nil {
			_ = sqlDB.Close()
			return err
		}
		a.DB, a.Dialect = sqlDB, db.DialectPostgres
		store = usage.NewPGStore(sqlDB)
	case "sqlite":
		sqlDB, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return err
		}
		if err := db.RunMigrations(ctx, sqlDB, db.DialectSQLite); err != nil {
			_ = sqlDB.Close()
			return err
		}
		a.DB, a.Dialect = sqlDB, db.DialectSQLite
		store = usage.NewSQLiteStore(sqlDB)
	default:
		log.Printf("bootstrap: using in-memory usage store")
		store = usage.NewMemoryStore()
	}

	if a.DB != nil {
		a.Health.Register("db", a.DB.PingContext)
	}
	a.UsageService = usage.NewService(store, cfg.AlertThreshold, cfg.Retention)
	return nil
}

// ReportStore opens the configured report archive.
func ReportStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ReportStoreType {
	case "s3":
		store, err := s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
		if err != nil {
			return nil, fmt.Errorf("build report store: %w", err)
		}
		return store, nil
	default:
		return localstore.New(cfg.ReportDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.AlertQueueURL) == "" {
		return nil, nil
	}
	client, err := queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.AlertQueueURL)
	if err != nil {
		return nil, fmt.Errorf("build alert queue: %w", err)
	}
	return client, nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
