package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bissquit/sellerdesk/internal/domain"
	"github.com/bissquit/sellerdesk/internal/identity"
	"github.com/bissquit/sellerdesk/internal/identity/supabase"
	"github.com/bissquit/sellerdesk/internal/notifications"
	notificationspostgres "github.com/bissquit/sellerdesk/internal/notifications/postgres"
	"github.com/bissquit/sellerdesk/internal/notifications/telegram"
	"github.com/bissquit/sellerdesk/internal/orders"
	orderskafka "github.com/bissquit/sellerdesk/internal/orders/kafka"
	ordersredis "github.com/bissquit/sellerdesk/internal/orders/redis"
	"github.com/bissquit/sellerdesk/internal/pkg/ctxlog"
	"github.com/bissquit/sellerdesk/internal/pkg/httputil"
	"github.com/bissquit/sellerdesk/internal/settings"
	settingspostgres "github.com/bissquit/sellerdesk/internal/settings/postgres"
	"github.com/bissquit/sellerdesk/internal/version"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	requestTimeout = 60 * time.Second
	probeTimeout   = 2 * time.Second
	openAPIFile    = "api/openapi/openapi.yaml"
)

type components struct {
	settings      *settings.Handler
	notifications *notifications.Handler
	orders        *orders.Handler
	identity      *identity.Handler
	tokens        httputil.TokenValidator
}

// buildComponents wires the domain services. It also sets a.queue, a.scheduler
// and a.consumer, which the app runs in the background.
func (a *App) buildComponents() (*components, error) {
	cfg := a.config

	settingsService := settings.NewService(settingspostgres.NewRepository(a.db))

	sender, err := telegram.NewSender(telegram.Config{
		Enabled:   cfg.Telegram.Enabled,
		BotToken:  cfg.Telegram.BotToken,
		RateLimit: cfg.Telegram.RateLimit,
		Timeout:   cfg.Telegram.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram sender: %w", err)
	}
	if !cfg.Telegram.Enabled {
		a.logger.Warn("telegram delivery is disabled, queued notifications will be abandoned")
	}

	renderer, err := notifications.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("create notification renderer: %w", err)
	}

	var store notifications.Store = notificationspostgres.NewRepository(a.db)
	if cfg.Notifications.Store == "memory" {
		a.logger.Warn("notification jobs are kept in memory and will be lost on restart")
		store = notifications.NewMemoryStore()
	}

	a.queue = notifications.NewQueue(notifications.QueueConfig{
		MaxAttempts:    cfg.Notifications.MaxAttempts,
		AttemptTimeout: cfg.Notifications.AttemptTimeout,
		BatchSize:      cfg.Notifications.BatchSize,
		StaleAfter:     cfg.Notifications.StaleAfter,
		PassTimeout:    cfg.Notifications.PassTimeout,
	}, store, settingsService, renderer, sender)

	if cfg.Notifications.SchedulerEnabled {
		a.scheduler, err = notifications.NewScheduler(notifications.SchedulerConfig{
			ProcessSchedule: cfg.Notifications.ProcessSchedule,
			PurgeSchedule:   cfg.Notifications.PurgeSchedule,
			PassTimeout:     cfg.Notifications.PassTimeout,
			Retention:       cfg.Notifications.Retention,
		}, a.queue)
		if err != nil {
			return nil, fmt.Errorf("create notification scheduler: %w", err)
		}
	}

	var tracker orders.StatusTracker
	if a.redis != nil {
		tracker = ordersredis.NewStatusTracker(a.redis, cfg.Redis.StatusTTL)
	}
	ordersService := orders.NewService(a.queue, tracker)

	if cfg.Kafka.Enabled {
		a.consumer = orderskafka.NewConsumer(orderskafka.NewReader(orderskafka.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		}), ordersService)
		a.logger.Info("order consumer configured", "topic", cfg.Kafka.Topic, "group_id", cfg.Kafka.GroupID)
	}

	tokens, err := supabase.NewValidator(supabase.Config{
		JWTSecret: cfg.Auth.JWTSecret,
		Issuer:    cfg.Auth.Issuer,
		Audience:  cfg.Auth.Audience,
	})
	if err != nil {
		return nil, fmt.Errorf("create token validator: %w", err)
	}

	return &components{
		settings:      settings.NewHandler(settingsService),
		notifications: notifications.NewHandler(a.queue),
		orders:        orders.NewHandler(ordersService),
		identity:      identity.NewHandler(),
		tokens:        tokens,
	}, nil
}

func (a *App) routes() (*chi.Mux, error) {
	c, err := a.buildComponents()
	if err != nil {
		return nil, err
	}

	cfg := a.config
	if cfg.Auth.CronSecretHash == "" {
		a.logger.Warn("cron secret is not configured, external queue trigger is disabled")
	}

	r := chi.NewRouter()
	// Outermost so the histogram covers the whole chain.
	r.Use(httputil.MetricsMiddleware)
	r.Use(httputil.CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.Text(w, http.StatusOK, "OK")
	})
	r.Get("/readyz", a.ready)
	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		httputil.JSON(w, http.StatusOK, version.Get())
	})
	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		http.ServeFile(w, r, openAPIFile)
	})

	passLimit := cfg.Notifications.CronRequestLimit

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.Timeout(requestTimeout)).Group(c.orders.RegisterRoutes)

		r.With(
			middleware.Timeout(passLimit),
			httputil.CronSecretMiddleware(cfg.Auth.CronSecretHash),
		).Group(c.notifications.RegisterTriggerRoutes)

		r.Group(func(r chi.Router) {
			r.Use(httputil.AuthMiddleware(c.tokens))

			r.With(middleware.Timeout(requestTimeout)).Group(func(r chi.Router) {
				c.identity.RegisterProtectedRoutes(r)
				c.settings.RegisterRoutes(r)
			})

			r.With(
				httputil.RequireRole(domain.RoleAdmin),
				middleware.Timeout(passLimit),
			).Route("/admin", c.notifications.RegisterAdminRoutes)
		})
	})

	return r, nil
}

type probe struct {
	name string
	ping func(context.Context) error
}

func (a *App) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	checks := []probe{{"database", a.db.Ping}}
	if a.redis != nil {
		checks = append(checks, probe{"redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		}})
	}

	for _, check := range checks {
		if err := check.ping(ctx); err != nil {
			ctxlog.FromContext(r.Context()).Error("readiness check failed", "dependency", check.name, "error", err)
			httputil.Text(w, http.StatusServiceUnavailable, check.name+" unavailable")
			return
		}
	}
	httputil.Text(w, http.StatusOK, "OK")
}
