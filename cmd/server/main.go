package main

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

	"dorkforge/internal/billing/checkout"
	"dorkforge/internal/generation/llm"
	"dorkforge/internal/platform/config"
	"dorkforge/internal/platform/database"
	"dorkforge/internal/platform/logger"
	"dorkforge/internal/platform/metrics"
	"dorkforge/internal/platform/redis"
	"dorkforge/internal/quota/store/allowlist"
	"dorkforge/internal/quota/store/counter"
	subscriberstore "dorkforge/internal/subscriber/store/subscriber"
	"dorkforge/internal/subscriber/store/usagelog"
	templatestore "dorkforge/internal/templates/store"
	"dorkforge/migrations"
	"dorkforge/pkg/platform/middleware/auth"
)

const (
	shutdownTimeout   = 10 * time.Second
	poolStatsInterval = 15 * time.Second
)

// main wires infrastructure from configuration and owns the server lifecycle.
// Business logic lives in the internal service packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	log.Info("initializing dorkforge",
		"addr", cfg.Server.Addr,
		"database", cfg.Database.URL != "",
		"redis", cfg.Redis.URL != "",
		"llm", cfg.Anthropic.APIKey != "",
		"payments", cfg.Stripe.SecretKey != "",
	)

	reg := metrics.NewRegistry()
	deps := dependencies{}

	pool, err := database.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close() //nolint:errcheck // best-effort on shutdown

	if pool != nil {
		if err := pool.Migrate(ctx, migrations.FS); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		db := pool.DB()
		admins := allowlist.NewPostgres(db)
		if err := seedAdmins(ctx, admins, cfg.AdminEmails); err != nil {
			return err
		}
		deps.subscribers = subscriberstore.NewPostgres(db)
		deps.usage = usagelog.NewPostgres(db)
		deps.templates = templatestore.NewPostgres(db)
		deps.allowlist = admins
		deps.checks = append(deps.checks, healthCheck{name: "database", check: pool.Health})
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		deps.subscribers = subscriberstore.NewInMemory()
		deps.usage = usagelog.NewInMemory()
		deps.templates = templatestore.NewInMemory()
		deps.allowlist = allowlist.NewInMemory(cfg.AdminEmails...)
	}

	cache, err := redis.New(cfg.Redis, reg)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if cache != nil {
		defer cache.Close() //nolint:errcheck // best-effort on shutdown
		go cache.RunPoolStats(ctx, poolStatsInterval)
		deps.counter = counter.NewRedis(cache.Client)
		deps.checks = append(deps.checks, healthCheck{name: "redis", check: cache.Health, optional: true})
	} else {
		log.Warn("REDIS_URL not set, anonymous rate limiting disabled")
	}

	if cfg.Clerk.Issuer != "" || cfg.Clerk.JWKSURL != "" {
		verifier, err := auth.NewClerkVerifier(ctx, cfg.Clerk.Issuer, cfg.Clerk.JWKSURL)
		if err != nil {
			return fmt.Errorf("init token verifier: %w", err)
		}
		deps.verifier = verifier
	} else {
		log.Warn("CLERK_ISSUER not set, every caller is anonymous")
	}

	if cfg.Anthropic.APIKey != "" {
		client, err := llm.New(cfg.Anthropic)
		if err != nil {
			return fmt.Errorf("init llm client: %w", err)
		}
		deps.generator = client
	} else {
		log.Warn("ANTHROPIC_API_KEY not set, generation will fail as not configured")
	}

	deps.sessions = checkout.NewSessionClient(cfg.Stripe.SecretKey)

	router, err := newRouter(cfg, deps, reg, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

type adminSeeder interface {
	Add(ctx context.Context, email string, at time.Time) error
}

// seedAdmins copies ADMIN_EMAILS into the persistent allowlist.
func seedAdmins(ctx context.Context, store adminSeeder, emails []string) error {
	now := time.Now()
	for _, email := range emails {
		if err := store.Add(ctx, email, now); err != nil {
			return fmt.Errorf("seed admin allowlist: %w", err)
		}
	}
	return nil
}
