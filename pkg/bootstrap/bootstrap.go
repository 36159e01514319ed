// Package bootstrap holds the startup and shutdown steps shared by the
// api, worker, outbox-publisher and cron-worker binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/siver-b2b-backend/pkg/config"
	"github.com/angelmondragon/siver-b2b-backend/pkg/db"
	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
	"github.com/angelmondragon/siver-b2b-backend/pkg/migrate"
	"github.com/angelmondragon/siver-b2b-backend/pkg/pubsub"
	"github.com/angelmondragon/siver-b2b-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

type closer struct {
	name  string
	close func() error
}

// Process is a running binary: its config, its logger and the clients it
// opened. Close releases the clients in reverse order.
type Process struct {
	Kind   string
	Config *config.Config
	Logger *logger.Logger

	closers []closer
}

// Main starts a process of the given kind, hands it to run and exits
// non-zero when run or the final Close fails.
func Main(kind string, run func(*Process) error) {
	proc, err := Start(kind)
	if err != nil {
		os.Exit(1)
	}
	err = run(proc)
	if err != nil {
		proc.Logger.Error(context.Background(), kind+" failed", err)
	}
	if closeErr := proc.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Exit(1)
	}
}

// Start reads .env when present, loads config and builds the logger for kind.
func Start(kind string) (*Process, error) {
	logg := logger.New(logger.Options{ServiceName: kind})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		return nil, err
	}
	cfg.Service.Kind = kind

	return &Process{
		Kind:   kind,
		Config: cfg,
		Logger: logger.New(logger.Options{
			ServiceName: kind,
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			Format:      cfg.App.LogFormat,
			WarnStack:   cfg.App.LogWarnStack,
		}),
	}, nil
}

func (p *Process) track(name string, fn func() error) {
	p.closers = append(p.closers, closer{name: name, close: fn})
}

// Database opens Postgres and applies dev migrations when enabled.
func (p *Process) Database(ctx context.Context) (*db.Client, error) {
	client, err := db.New(ctx, p.Config.DB, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}
	p.track("database", client.Close)

	if err := migrate.MaybeRunDev(ctx, p.Config, p.Logger, client); err != nil {
		return nil, fmt.Errorf("dev migrations: %w", err)
	}
	return client, nil
}

// Redis opens the shared Redis client.
func (p *Process) Redis(ctx context.Context) (*redis.Client, error) {
	client, err := redis.New(ctx, p.Config.Redis, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap redis: %w", err)
	}
	p.track("redis", client.Close)
	return client, nil
}

// PubSub connects to Pub/Sub and checks the configured topics exist.
func (p *Process) PubSub(ctx context.Context) (*pubsub.Client, error) {
	client, err := pubsub.NewClient(ctx, p.Config.GCP, p.Config.PubSub, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap pubsub: %w", err)
	}
	p.track("pubsub", client.Close)
	return client, nil
}

// ServeMetrics exposes gatherer on addr until Close. An empty addr is a no-op.
func (p *Process) ServeMetrics(ctx context.Context, addr string, gatherer prometheus.Gatherer) {
	if addr == "" {
		return
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.Logger.Error(ctx, "metrics listener stopped", err)
		}
	}()
	p.track("metrics listener", func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
}

// Context is canceled on SIGINT or SIGTERM and carries the env and service
// kind as log fields, plus any extra fields.
func (p *Process) Context(fields map[string]any) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	base := map[string]any{
		"env":         p.Config.App.Env,
		"serviceKind": p.Kind,
	}
	for k, v := range fields {
		base[k] = v
	}
	return p.Logger.WithFields(ctx, base), stop
}

// Close releases every opened client, newest first.
func (p *Process) Close() error {
	var errs error
	for _, c := range slices.Backward(p.closers) {
		if err := c.close(); err != nil {
			p.Logger.Error(context.Background(), "error closing "+c.name, err)
			errs = multierr.Append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	p.closers = nil
	return errs
}

// RunUntilStopped runs fn and treats cancellation as a clean stop.
func (p *Process) RunUntilStopped(ctx context.Context, fn func(context.Context) error) error {
	p.Logger.Info(ctx, "starting "+p.Kind)
	if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	p.Logger.Info(ctx, p.Kind+" shutting down gracefully")
	return nil
}

// ServeHTTP runs server until ctx is canceled, then drains it.
func (p *Process) ServeHTTP(ctx context.Context, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		p.Logger.Info(ctx, "shutting down "+p.Kind+" server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	}
}
