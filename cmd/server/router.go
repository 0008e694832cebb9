package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"dorkforge/internal/billing/checkout"
	billinghandler "dorkforge/internal/billing/handler"
	billingmetrics "dorkforge/internal/billing/metrics"
	billingservice "dorkforge/internal/billing/service"
	generationhandler "dorkforge/internal/generation/handler"
	generationmetrics "dorkforge/internal/generation/metrics"
	"dorkforge/internal/generation/prompt"
	generationservice "dorkforge/internal/generation/service"
	"dorkforge/internal/platform/config"
	"dorkforge/internal/platform/health"
	"dorkforge/internal/platform/metrics"
	quotahandler "dorkforge/internal/quota/handler"
	quotametrics "dorkforge/internal/quota/metrics"
	quotaservice "dorkforge/internal/quota/service"
	submodels "dorkforge/internal/subscriber/models"
	templatehandler "dorkforge/internal/templates/handler"
	templatemodels "dorkforge/internal/templates/models"
	templateservice "dorkforge/internal/templates/service"
	id "dorkforge/pkg/domain"
	"dorkforge/pkg/platform/middleware/auth"
	"dorkforge/pkg/platform/middleware/metadata"
	"dorkforge/pkg/platform/middleware/request"
	"dorkforge/pkg/platform/middleware/requesttime"
	"dorkforge/pkg/validation"
)

// subscriberStore is the union of what every service needs from subscriber persistence.
type subscriberStore interface {
	FindByClerkID(ctx context.Context, clerkID id.ClerkID) (*submodels.Subscriber, error)
	FindOrCreate(ctx context.Context, candidate *submodels.Subscriber) (*submodels.Subscriber, error)
	IncrementUsage(ctx context.Context, subscriberID id.SubscriberID) error
	ApplyTierChange(ctx context.Context, subscriberID id.SubscriberID, change submodels.TierChange) error
}

type usageStore interface {
	Append(ctx context.Context, entry *submodels.UsageLogEntry) error
	ListRecent(ctx context.Context, subscriberID id.SubscriberID, limit int) ([]*submodels.UsageLogEntry, error)
}

type templateStore interface {
	Insert(ctx context.Context, tpl *templatemodels.Template) error
	ListBySubscriber(ctx context.Context, owner id.SubscriberID) ([]*templatemodels.Template, error)
}

type healthCheck struct {
	name     string
	check    health.CheckFunc
	optional bool
}

// dependencies are the infrastructure handles built in main. Optional ones stay nil.
type dependencies struct {
	subscribers subscriberStore
	usage       usageStore
	templates   templateStore
	allowlist   quotaservice.AllowlistStore
	counter     quotaservice.CounterStore
	generator   generationservice.Generator
	sessions    checkout.SessionCreator
	verifier    auth.TokenVerifier
	checks      []healthCheck
	// clock overrides the per-request time source.
	clock func() time.Time
}

func newRouter(cfg *config.Config, deps dependencies, reg *prometheus.Registry, log *slog.Logger) (http.Handler, error) {
	catalog, err := prompt.LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("load template catalog: %w", err)
	}

	quotaOpts := []quotaservice.Option{
		quotaservice.WithLogger(log),
		quotaservice.WithMetrics(quotametrics.New(reg)),
	}
	if deps.counter != nil {
		quotaOpts = append(quotaOpts, quotaservice.WithCounter(deps.counter))
	}
	quota, err := quotaservice.New(deps.subscribers, deps.allowlist, quotaOpts...)
	if err != nil {
		return nil, fmt.Errorf("init quota service: %w", err)
	}

	genOpts := []generationservice.Option{
		generationservice.WithLogger(log),
		generationservice.WithMetrics(generationmetrics.New(reg)),
		generationservice.WithCatalog(catalog),
	}
	if deps.generator != nil {
		genOpts = append(genOpts, generationservice.WithGenerator(deps.generator))
	}
	generation, err := generationservice.New(quota, deps.subscribers, deps.usage, genOpts...)
	if err != nil {
		return nil, fmt.Errorf("init generation service: %w", err)
	}

	billingMetrics := billingmetrics.New(reg)
	billing, err := billingservice.New(deps.subscribers,
		billingservice.WithLogger(log),
		billingservice.WithMetrics(billingMetrics),
	)
	if err != nil {
		return nil, fmt.Errorf("init billing service: %w", err)
	}
	checkouts := checkout.New(deps.sessions,
		checkout.Config{PriceID: cfg.Stripe.PriceID, AppBaseURL: cfg.Server.AppBaseURL},
		checkout.WithLogger(log),
		checkout.WithMetrics(billingMetrics),
	)

	templates, err := templateservice.New(deps.subscribers, quota, deps.templates, deps.usage,
		templateservice.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("init template service: %w", err)
	}

	healthHandler := health.New()
	for _, c := range deps.checks {
		if c.optional {
			healthHandler.RegisterOptionalCheck(c.name, c.check)
		} else {
			healthHandler.RegisterCheck(c.name, c.check)
		}
	}

	clock := deps.clock
	if clock == nil {
		clock = time.Now
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(log))
	r.Use(request.RequestID)
	r.Use(metadata.NewMiddleware(cfg.Server.TrustedProxies).Handler)
	r.Use(requesttime.WithClock(clock))
	r.Use(request.Logger(log))
	r.Use(request.LatencyMiddleware(request.NewMetrics(reg)))

	healthHandler.Register(r)
	r.Handle("/metrics", metrics.Handler(reg))

	r.Route("/api", func(r chi.Router) {
		r.Use(request.Timeout(cfg.Server.RequestTimeout))
		r.Use(request.ContentTypeJSON)

		billingHandler := billinghandler.New(billing, checkouts, cfg.Stripe.WebhookSecret, log, billingMetrics)
		billingHandler.RegisterWebhooks(r)

		r.Group(func(r chi.Router) {
			r.Use(request.BodyLimit(validation.MaxBodySize))
			r.Use(auth.Identify(deps.verifier, log))

			quotahandler.New(quota, log).Register(r)
			generationhandler.New(generation, catalog, log).Register(r)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireIdentified(log))
				billingHandler.RegisterCheckout(r)
				templatehandler.New(templates, log).Register(r)
			})
		})
	})

	return r, nil
}
