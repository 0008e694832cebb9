// Package service applies verified payment events to subscriber tiers.
//
// Only events tagged with this project's metadata move a subscriber: a completed checkout
// upgrades to pro, a deleted subscription downgrades to free. Both reset usage and open a
// new period, so replaying an event leaves the same tier and limit.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v79"

	"dorkforge/internal/billing/metrics"
	submodels "dorkforge/internal/subscriber/models"
	id "dorkforge/pkg/domain"
	"dorkforge/pkg/platform/sentinel"
	"dorkforge/pkg/requestcontext"
)

// Metadata keys and the project marker attached to checkout sessions.
const (
	MetadataProject = "project"
	MetadataClerkID = "clerk_id"
	ProjectName     = "dork-forge"
)

// SubscriberStore resolves subscribers and persists tier changes.
type SubscriberStore interface {
	FindByClerkID(ctx context.Context, clerkID id.ClerkID) (*submodels.Subscriber, error)
	ApplyTierChange(ctx context.Context, subscriberID id.SubscriberID, change submodels.TierChange) error
}

// Outcome describes what an event did.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeIgnored Outcome = "ignored"
)

type Service struct {
	subscribers SubscriberStore
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

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = func(context.Context) time.Time { return now() }
	}
}

func New(subscribers SubscriberStore, opts ...Option) (*Service, error) {
	if subscribers == nil {
		return nil, errors.New("subscriber store is required")
	}
	svc := &Service{
		subscribers: subscribers,
		logger:      slog.Default(),
		now:         requestcontext.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// HandleEvent applies a verified event. Unknown event types, foreign projects and
// unknown subscribers are ignored without error.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) (Outcome, error) {
	outcome, err := s.handle(ctx, event)
	result := metrics.ResultApplied
	switch {
	case err != nil:
		result = metrics.ResultFailed
	case outcome == OutcomeIgnored:
		result = metrics.ResultIgnored
	}
	s.metrics.IncrementWebhook(string(event.Type), result)
	return outcome, err
}

func (s *Service) handle(ctx context.Context, event *stripe.Event) (Outcome, error) {
	var tier submodels.Tier
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		tier = submodels.TierPro
	case stripe.EventTypeCustomerSubscriptionDeleted:
		tier = submodels.TierFree
	default:
		return OutcomeIgnored, nil
	}

	metadata, err := eventMetadata(event)
	if err != nil {
		return OutcomeIgnored, err
	}
	if metadata[MetadataProject] != ProjectName || metadata[MetadataClerkID] == "" {
		return OutcomeIgnored, nil
	}

	clerkID := id.ClerkID(metadata[MetadataClerkID])
	sub, err := s.subscribers.FindByClerkID(ctx, clerkID)
	if errors.Is(err, sentinel.ErrNotFound) {
		s.logger.InfoContext(ctx, "webhook for unknown subscriber ignored",
			"event_id", event.ID,
			"event_type", string(event.Type),
		)
		return OutcomeIgnored, nil
	}
	if err != nil {
		return OutcomeIgnored, fmt.Errorf("finding subscriber %s: %w", clerkID, err)
	}

	change := submodels.NewTierChange(tier, s.now(ctx))
	if err := s.subscribers.ApplyTierChange(ctx, sub.ID, change); err != nil {
		return OutcomeIgnored, fmt.Errorf("applying tier %s to subscriber %s: %w", tier, sub.ID, err)
	}

	s.logger.InfoContext(ctx, "subscriber tier changed",
		"event_id", event.ID,
		"event_type", string(event.Type),
		"subscriber_id", sub.ID.String(),
		"tier", string(tier),
	)
	return OutcomeApplied, nil
}

// eventMetadata reads metadata from the event's object, which is a checkout session or a
// subscription depending on the type.
func eventMetadata(event *stripe.Event) (map[string]string, error) {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return nil, nil
	}
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("decoding checkout session: %w", err)
		}
		return session.Metadata, nil
	default:
		var subscription stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
			return nil, fmt.Errorf("decoding subscription: %w", err)
		}
		return subscription.Metadata, nil
	}
}
