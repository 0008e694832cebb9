// Package service runs one dork generation end to end: quota, prompt, model call and
// usage bookkeeping.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"dorkforge/internal/generation/metrics"
	"dorkforge/internal/generation/models"
	"dorkforge/internal/generation/prompt"
	qmodels "dorkforge/internal/quota/models"
	submodels "dorkforge/internal/subscriber/models"
	id "dorkforge/pkg/domain"
	dErrors "dorkforge/pkg/domain-errors"
	"dorkforge/pkg/identity"
	"dorkforge/pkg/platform/clientinfo"
	"dorkforge/pkg/platform/privacy"
	"dorkforge/pkg/requestcontext"
)

// QuotaEvaluator decides whether the caller may generate and records completed generations.
type QuotaEvaluator interface {
	Evaluate(ctx context.Context, who identity.Identity) *qmodels.Decision
	Increment(ctx context.Context, subscriberID id.SubscriberID) error
}

// SubscriberStore creates subscriber records on first use.
type SubscriberStore interface {
	FindOrCreate(ctx context.Context, candidate *submodels.Subscriber) (*submodels.Subscriber, error)
}

// UsageLog appends usage entries.
type UsageLog interface {
	Append(ctx context.Context, entry *submodels.UsageLogEntry) error
}

// Generator calls the text-generation model once.
type Generator interface {
	Generate(ctx context.Context, p prompt.Prompt) (string, error)
}

// TemplateCatalog resolves catalogue templates referenced by id.
type TemplateCatalog interface {
	Lookup(id string) (*prompt.Template, bool)
}

type Service struct {
	quota       QuotaEvaluator
	subscribers SubscriberStore
	usage       UsageLog
	generator   Generator
	catalog     TemplateCatalog
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithGenerator sets the model client. Without one every request fails as not configured.
func WithGenerator(g Generator) Option {
	return func(s *Service) {
		s.generator = g
	}
}

func WithCatalog(c TemplateCatalog) Option {
	return func(s *Service) {
		s.catalog = c
	}
}

func New(quota QuotaEvaluator, subscribers SubscriberStore, usage UsageLog, opts ...Option) (*Service, error) {
	if quota == nil {
		return nil, errors.New("quota evaluator is required")
	}
	if subscribers == nil {
		return nil, errors.New("subscriber store is required")
	}
	if usage == nil {
		return nil, errors.New("usage log is required")
	}
	svc := &Service{
		quota:       quota,
		subscribers: subscribers,
		usage:       usage,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Generate runs one generation for the caller in ctx.
//
// A denied quota returns *models.QuotaExceededError and never reaches the model. Once the
// model has answered, the result is returned even if usage bookkeeping fails.
func (s *Service) Generate(ctx context.Context, req *models.GenerateRequest) (*models.Result, error) {
	if s.generator == nil {
		s.metrics.IncrementRequests(metrics.OutcomeNotConfigured)
		return nil, dErrors.New(dErrors.CodeNotConfigured, "text generation is not configured")
	}

	who := requestcontext.Identity(ctx)
	decision := s.quota.Evaluate(ctx, who)
	if !decision.Allowed {
		s.logger.InfoContext(ctx, "generation denied by quota",
			"tier", decision.Tier,
			"limit", decision.Limit,
			"ip", privacy.AnonymizeIP(who.ClientIP()),
			"request_id", requestcontext.RequestID(ctx),
		)
		s.metrics.IncrementRequests(metrics.OutcomeQuotaExceeded)
		return nil, &models.QuotaExceededError{Decision: decision}
	}

	subscriber := s.ensureSubscriber(ctx, who)
	tmpl := s.resolveTemplate(req.TemplateInfo)
	p := prompt.Build(req.Platform, req.Parameters, tmpl)

	start := time.Now()
	dorks, err := s.generator.Generate(ctx, p)
	s.metrics.ObserveLLMDuration(time.Since(start))
	if err != nil {
		s.logger.ErrorContext(ctx, "text generation failed",
			"error", err,
			"platform", req.Platform,
			"request_id", requestcontext.RequestID(ctx),
		)
		s.metrics.IncrementRequests(metrics.OutcomeUpstreamError)
		s.recordUsage(ctx, subscriber, req, tmpl, false)
		return nil, dErrors.Wrap(err, dErrors.CodeUpstream, "failed to generate dorks")
	}

	// admins are never metered
	if subscriber != nil && !decision.IsUnlimited() {
		if err := s.quota.Increment(ctx, subscriber.ID); err != nil {
			s.logger.WarnContext(ctx, "failed to increment usage",
				"error", err,
				"subscriber_id", subscriber.ID.String(),
				"request_id", requestcontext.RequestID(ctx),
			)
			s.metrics.IncrementBestEffortFailure("increment_usage")
		}
	}
	s.recordUsage(ctx, subscriber, req, tmpl, true)
	s.metrics.IncrementRequests(metrics.OutcomeSuccess)

	return &models.Result{
		Dorks:     dorks,
		Remaining: decision.RemainingAfterUse(),
		Limit:     decision.Limit,
	}, nil
}

// ensureSubscriber fetches or lazily creates the caller's record. Anonymous callers and
// store failures yield nil: the generation proceeds without usage attribution.
func (s *Service) ensureSubscriber(ctx context.Context, who identity.Identity) *submodels.Subscriber {
	caller, ok := identity.AsIdentified(who)
	if !ok {
		return nil
	}
	candidate := submodels.NewSubscriber(id.ClerkID(caller.SubjectID), caller.Email, requestcontext.Now(ctx))
	sub, err := s.subscribers.FindOrCreate(ctx, candidate)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load or create subscriber",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		s.metrics.IncrementBestEffortFailure("ensure_subscriber")
		return nil
	}
	return sub
}

// resolveTemplate expands an id-only reference from the catalogue. Full templates pass through.
func (s *Service) resolveTemplate(info *prompt.Template) *prompt.Template {
	if info == nil {
		return nil
	}
	if info.Name == "" && info.ID != "" && s.catalog != nil {
		if tmpl, ok := s.catalog.Lookup(info.ID); ok {
			return tmpl
		}
		return nil
	}
	if info.Name == "" {
		return nil
	}
	return info
}

func (s *Service) recordUsage(ctx context.Context, sub *submodels.Subscriber, req *models.GenerateRequest, tmpl *prompt.Template, success bool) {
	if sub == nil {
		return
	}
	client := clientinfo.Parse(requestcontext.UserAgent(ctx))
	details := map[string]any{
		"platform": string(req.Platform),
		"target":   req.Parameters.Target,
		"infoType": req.Parameters.InfoType,
		"client":   client.DisplayName(),
	}
	if tmpl != nil {
		details["template"] = tmpl.Name
	}
	if !success {
		details["error"] = "generation failed"
	}

	entry := &submodels.UsageLogEntry{
		ID:           id.NewUsageLogID(),
		SubscriberID: sub.ID,
		Action:       submodels.ActionGenerateDork,
		Success:      success,
		Details:      details,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.usage.Append(ctx, entry); err != nil {
		s.logger.WarnContext(ctx, "failed to append usage log",
			"error", err,
			"subscriber_id", sub.ID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		s.metrics.IncrementBestEffortFailure("usage_log")
	}
}
