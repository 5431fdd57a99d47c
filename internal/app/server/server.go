package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"shopledger/internal/domain/audit"
	"shopledger/internal/domain/billing"
	"shopledger/internal/domain/catalog"
	"shopledger/internal/domain/identity"
	"shopledger/internal/domain/logistics"
	"shopledger/internal/domain/notifications"
	"shopledger/internal/domain/salary"
	"shopledger/internal/platform/config"
	"shopledger/internal/platform/db"
	"shopledger/internal/platform/email"
	"shopledger/internal/platform/jobs"
	"shopledger/internal/platform/metrics"
	audithandler "shopledger/internal/transport/http/handlers/audit"
	billinghandler "shopledger/internal/transport/http/handlers/billing"
	cataloghandler "shopledger/internal/transport/http/handlers/catalog"
	logisticshandler "shopledger/internal/transport/http/handlers/logistics"
	notificationshandler "shopledger/internal/transport/http/handlers/notifications"
	salaryhandler "shopledger/internal/transport/http/handlers/salary"
	usershandler "shopledger/internal/transport/http/handlers/users"
	"shopledger/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	DB      *pgxpool.Pool
	Router  http.Handler
	Jobs    *jobs.Service
	Metrics *metrics.Collector
}

// New connects to the database, prepares the schema and wires every
// service behind the HTTP router. Background jobs are not started.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect failed: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations failed: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed failed: %w", err)
		}
	}

	collector := metrics.New()
	auditSvc := audit.New(pool)
	identitySvc := identity.NewService(identity.NewStore(pool))
	notificationSvc := notifications.New(notifications.NewStore(pool))
	if mailer := email.New(cfg); mailer != nil {
		notificationSvc.WithMail(mailer, identitySvc, cfg.EmailFrom)
	}
	jobsSvc := jobs.New(jobs.NewStore(pool), collector)
	idem := middleware.NewIdempotencyStore(pool)

	billingStore := billing.NewStore(pool)
	salarySvc := salary.NewService(salary.NewStore(pool), billingStore, notificationSvc, collector, cfg.CurrencySymbol)
	billingSvc := billing.NewService(billingStore, salarySvc, collector)
	catalogSvc := catalog.NewService(catalog.NewStore(pool))
	logisticsSvc := logistics.NewService(logistics.NewStore(pool), billingStore, identitySvc)

	if cfg.JobsEnabled && cfg.SalarySyncSchedule != "" {
		err := jobsSvc.Schedule(ctx, cfg.SalarySyncSchedule, jobs.JobSalarySync, func(ctx context.Context, shopName string) (any, error) {
			return salarySvc.Sync(ctx, shopName)
		})
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("schedule salary sync: %w", err)
		}
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(collector))
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret, identitySvc))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	if cfg.MetricsEnabled {
		router.Handle("/metrics", collector.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		if cfg.RateLimitPerMinute > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute, middleware.MutationsOnly()))
		}

		billinghandler.NewHandler(billingSvc, auditSvc, idem).RegisterRoutes(r)
		cataloghandler.NewHandler(catalogSvc, auditSvc).RegisterRoutes(r)
		logisticshandler.NewHandler(logisticsSvc, auditSvc).RegisterRoutes(r)
		salaryhandler.NewHandler(salarySvc, jobsSvc, auditSvc, idem).RegisterRoutes(r)
		notificationshandler.NewHandler(notificationSvc).RegisterRoutes(r)
		usershandler.NewHandler(identitySvc, auditSvc).RegisterRoutes(r)
		audithandler.NewHandler(auditSvc).RegisterRoutes(r)
	})

	return &App{Config: cfg, DB: pool, Router: router, Jobs: jobsSvc, Metrics: collector}, nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

// Run serves until SIGINT or SIGTERM, then drains in-flight requests.
func Run() {
	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer app.Close()

	if cfg.JobsEnabled {
		app.Jobs.Start(ctx)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("shutdown failed", "err", err)
		}
	}()

	slog.Info("shop ledger listening", "addr", cfg.Addr, "env", cfg.Environment)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}
