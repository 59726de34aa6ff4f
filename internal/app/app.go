// Package app wires configuration, stores and handlers into a running service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/bissquit/sellerdesk/internal/config"
	"github.com/bissquit/sellerdesk/internal/notifications"
	orderskafka "github.com/bissquit/sellerdesk/internal/orders/kafka"
	ordersredis "github.com/bissquit/sellerdesk/internal/orders/redis"
	"github.com/bissquit/sellerdesk/internal/pkg/postgres"
	"github.com/bissquit/sellerdesk/migrations"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type App struct {
	config *config.Config
	logger *slog.Logger

	db    *pgxpool.Pool
	redis *redis.Client

	api     *http.Server
	metrics *http.Server

	queue     *notifications.Queue
	scheduler *notifications.Scheduler
	consumer  *orderskafka.Consumer

	bgCtx    context.Context
	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New connects the stores, builds the router and starts background work.
// Serving starts with Run.
func New(cfg *config.Config) (*App, error) {
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	a := &App{config: cfg, logger: logger}
	a.bgCtx, a.bgCancel = context.WithCancel(context.Background())

	if err := a.openStores(); err != nil {
		a.bgCancel()
		return nil, err
	}

	router, err := a.routes()
	if err != nil {
		a.bgCancel()
		a.closeStores()
		return nil, fmt.Errorf("setup router: %w", err)
	}

	srv := cfg.Server
	a.api = &http.Server{
		Addr:              net.JoinHostPort(srv.Host, srv.Port),
		Handler:           router,
		ReadTimeout:       srv.ReadTimeout,
		ReadHeaderTimeout: srv.ReadHeaderTimeout,
		WriteTimeout:      srv.WriteTimeout,
		IdleTimeout:       srv.IdleTimeout,
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	a.metrics = &http.Server{
		Addr:              net.JoinHostPort(srv.Host, srv.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	a.startBackground()
	return a, nil
}

func (a *App) openStores() error {
	cfg := a.config

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer cancel()

	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	a.db = db

	if cfg.Database.AutoMigrate {
		if err := migrations.Up(cfg.Database.URL); err != nil {
			a.closeStores()
			return fmt.Errorf("migrate database: %w", err)
		}
		a.logger.Info("database schema is up to date")
	}

	if cfg.Redis.Enabled {
		a.redis, err = ordersredis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.closeStores()
			return err
		}
	}
	return nil
}

func (a *App) closeStores() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis client", "error", err)
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}

// Run serves the API until Shutdown. The metrics listener runs alongside;
// its failure is logged but does not stop the API.
func (a *App) Run() error {
	go func() {
		a.logger.Info("metrics listening", "addr", a.metrics.Addr)
		if err := a.metrics.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", "error", err)
		}
	}()

	a.logger.Info("api listening", "addr", a.api.Addr)
	if err := a.api.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve api: %w", err)
	}
	return nil
}

// Shutdown stops producers of work first (scheduler, consumer, background
// loops) and the running notification pass, then drains both HTTP servers,
// then closes the stores.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")

	var errs []error
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close order consumer: %w", err))
		}
	}

	a.bgCancel()
	a.bgWG.Wait()
	if a.queue != nil {
		a.queue.Close()
	}

	serverErrs := make(chan error, 2)
	for _, srv := range []*http.Server{a.api, a.metrics} {
		go func() {
			if err := srv.Shutdown(ctx); err != nil {
				serverErrs <- fmt.Errorf("shutdown %s: %w", srv.Addr, err)
				return
			}
			serverErrs <- nil
		}()
	}
	for range 2 {
		if err := <-serverErrs; err != nil {
			errs = append(errs, err)
		}
	}

	a.closeStores()
	return errors.Join(errs...)
}

// Router returns the API handler.
func (a *App) Router() http.Handler {
	return a.api.Handler
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
