// Package service decides whether a caller may run another generation.
//
// Precedence is fixed: admin allowlist, then the stored subscriber record, then the
// per-IP daily counter. Dependency failures never grant unlimited access; they fall
// back to the most restrictive IP check.
//
// Usage:
//
//	svc, _ := service.New(subscribers, allowlist, service.WithCounter(counter))
//	decision := svc.Evaluate(ctx, requestcontext.Identity(ctx))
//	if !decision.Allowed {
//	    // respond 429 with the decision
//	}
//
// The quota check and the later usage increment are separate operations. Two
// concurrent requests from one subscriber can both pass the check.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dorkforge/internal/quota/metrics"
	"dorkforge/internal/quota/models"
	submodels "dorkforge/internal/subscriber/models"
	id "dorkforge/pkg/domain"
	"dorkforge/pkg/identity"
	"dorkforge/pkg/platform/privacy"
	"dorkforge/pkg/platform/sentinel"
	"dorkforge/pkg/requestcontext"
)

// SubscriberStore reads subscriber records and counts completed generations.
type SubscriberStore interface {
	FindByClerkID(ctx context.Context, clerkID id.ClerkID) (*submodels.Subscriber, error)
	IncrementUsage(ctx context.Context, subscriberID id.SubscriberID) error
}

// AllowlistStore checks admin membership by email.
type AllowlistStore interface {
	IsAdmin(ctx context.Context, email string) (bool, error)
}

// CounterStore increments the daily per-IP counters.
type CounterStore interface {
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Service evaluates quotas. Safe for concurrent use.
type Service struct {
	subscribers SubscriberStore
	allowlist   AllowlistStore
	counter     CounterStore
	logger      *slog.Logger
	metrics     *metrics.Metrics
	now         func(ctx context.Context) time.Time
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

// WithCounter enables IP counters. Without one, IP checks fail open.
func WithCounter(counter CounterStore) Option {
	return func(s *Service) {
		s.counter = counter
	}
}

// WithClock pins the evaluator clock. By default the request-scoped time is used.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = func(context.Context) time.Time { return now() }
	}
}

func New(subscribers SubscriberStore, allowlist AllowlistStore, opts ...Option) (*Service, error) {
	if subscribers == nil {
		return nil, errors.New("subscriber store is required")
	}
	if allowlist == nil {
		return nil, errors.New("allowlist store is required")
	}
	svc := &Service{
		subscribers: subscribers,
		allowlist:   allowlist,
		logger:      slog.Default(),
		now:         requestcontext.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Evaluate returns the quota decision for the caller. It never fails: dependency
// errors are logged and degrade to a restrictive decision.
func (s *Service) Evaluate(ctx context.Context, who identity.Identity) *models.Decision {
	decision := s.evaluate(ctx, who)
	s.metrics.ObserveDecision(string(decision.Tier), decision.Allowed)
	return decision
}

func (s *Service) evaluate(ctx context.Context, who identity.Identity) *models.Decision {
	caller, ok := identity.AsIdentified(who)
	if !ok {
		return s.checkIP(ctx, clientIP(who), models.AnonymousLimit, models.TierAnonymous)
	}

	if s.IsAdmin(ctx, caller) {
		return models.Unlimited(submodels.TierDeveloper)
	}

	sub, err := s.subscribers.FindByClerkID(ctx, id.ClerkID(caller.SubjectID))
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return s.checkIP(ctx, caller.IP, models.SignedInNewLimit, submodels.TierFree)
	case err != nil:
		s.logger.ErrorContext(ctx, "subscriber lookup failed, falling back to anonymous quota",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		s.metrics.IncrementDegraded("store_error")
		return s.checkIP(ctx, caller.IP, models.AnonymousLimit, models.TierAnonymous)
	}

	return decisionFor(sub)
}

func decisionFor(sub *submodels.Subscriber) *models.Decision {
	limit := sub.UsageLimit
	if limit == 0 {
		limit = submodels.FreeLimit
	}
	tier := sub.Tier
	if tier == "" {
		tier = submodels.TierFree
	}
	remaining := max(0, limit-sub.UsageCount)
	return &models.Decision{
		Allowed:   remaining > 0,
		Remaining: remaining,
		Limit:     limit,
		Tier:      tier,
		ResetAt:   sub.PeriodEnd,
	}
}

// checkIP meters a caller by address and UTC day.
func (s *Service) checkIP(ctx context.Context, ip string, limit int, tier submodels.Tier) *models.Decision {
	if s.counter == nil {
		s.logger.WarnContext(ctx, "ip counter not configured, quota check disabled")
		s.metrics.IncrementDegraded("cache_unconfigured")
		return &models.Decision{Allowed: true, Remaining: limit, Limit: limit, Tier: tier}
	}

	now := s.now(ctx)
	count, err := s.counter.Increment(ctx, models.NewIPCounterKey(ip, now), models.CounterTTL)
	if err != nil {
		s.logger.ErrorContext(ctx, "ip counter increment failed",
			"error", err,
			"ip", privacy.AnonymizeIP(ip),
			"request_id", requestcontext.RequestID(ctx),
		)
		s.metrics.IncrementDegraded("cache_error")
		return &models.Decision{Allowed: true, Remaining: 0, Limit: limit, Tier: tier}
	}

	resetAt := nextMidnight(now)
	return &models.Decision{
		Allowed:   count <= int64(limit),
		Remaining: max(0, limit-int(count)),
		Limit:     limit,
		Tier:      tier,
		ResetAt:   &resetAt,
	}
}

// IsAdmin reports allowlist membership. Lookup errors count as "not admin".
func (s *Service) IsAdmin(ctx context.Context, caller identity.Identified) bool {
	if !caller.HasEmail() {
		return false
	}
	ok, err := s.allowlist.IsAdmin(ctx, caller.Email)
	if err != nil {
		s.logger.WarnContext(ctx, "admin allowlist lookup failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		s.metrics.IncrementDegraded("allowlist_error")
		return false
	}
	return ok
}

// Increment counts one completed generation against the subscriber's period.
func (s *Service) Increment(ctx context.Context, subscriberID id.SubscriberID) error {
	if err := s.subscribers.IncrementUsage(ctx, subscriberID); err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	return nil
}

// Status summarises the caller's subscription without touching any counter.
func (s *Service) Status(ctx context.Context, who identity.Identity) (*models.Status, error) {
	caller, ok := identity.AsIdentified(who)
	if !ok {
		return &models.Status{Tier: submodels.TierFree}, nil
	}
	if s.IsAdmin(ctx, caller) {
		return &models.Status{Tier: submodels.TierDeveloper, UsageLimit: submodels.Unlimited, IsAdmin: true}, nil
	}

	sub, err := s.subscribers.FindByClerkID(ctx, id.ClerkID(caller.SubjectID))
	if errors.Is(err, sentinel.ErrNotFound) {
		return &models.Status{Tier: submodels.TierFree, UsageLimit: submodels.FreeLimit}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load subscriber: %w", err)
	}
	return &models.Status{
		Tier:       sub.Tier,
		UsageCount: sub.UsageCount,
		UsageLimit: sub.UsageLimit,
		PeriodEnd:  sub.PeriodEnd,
	}, nil
}

// nextMidnight is the start of the following day in the clock's own location.
func nextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
}

func clientIP(who identity.Identity) string {
	if who == nil {
		return ""
	}
	return who.ClientIP()
}
