// Package checkout opens hosted subscription checkout sessions.
package checkout

import (
	"context"
	"errors"
	"log/slog"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"dorkforge/internal/billing/metrics"
	"dorkforge/internal/billing/service"
	dErrors "dorkforge/pkg/domain-errors"
	"dorkforge/pkg/identity"
)

// SessionCreator is satisfied by the processor's checkout session client.
type SessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// NewSessionClient returns the processor client for key, or nil when key is empty.
func NewSessionClient(key string) SessionCreator {
	if key == "" {
		return nil
	}
	api := &client.API{}
	api.Init(key, nil)
	return api.CheckoutSessions
}

type Config struct {
	PriceID string
	// AppBaseURL is the frontend origin the processor redirects back to.
	AppBaseURL string
}

type Service struct {
	sessions SessionCreator
	cfg      Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
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

// New builds the checkout service. A nil sessions client makes every call fail as not configured.
func New(sessions SessionCreator, cfg Config, opts ...Option) *Service {
	svc := &Service{
		sessions: sessions,
		cfg:      cfg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// CreateSession opens a subscription checkout for the caller and returns its hosted URL.
func (s *Service) CreateSession(ctx context.Context, caller identity.Identified) (string, error) {
	if caller.SubjectID == "" || !caller.HasEmail() {
		return "", dErrors.New(dErrors.CodeUnauthorized, "unauthorized")
	}
	if s.cfg.PriceID == "" {
		s.metrics.IncrementCheckout("not_configured")
		return "", dErrors.New(dErrors.CodeNotConfigured, "Stripe Price ID not configured")
	}
	if s.sessions == nil {
		s.metrics.IncrementCheckout("not_configured")
		return "", dErrors.New(dErrors.CodeNotConfigured, "payment processor not configured")
	}

	params := s.sessionParams(caller)
	params.Context = ctx

	sess, err := s.sessions.New(params)
	if err != nil {
		s.metrics.IncrementCheckout("failed")
		return "", dErrors.Wrap(err, dErrors.CodeUpstream, "failed to create checkout session")
	}
	if sess == nil || sess.URL == "" {
		s.metrics.IncrementCheckout("failed")
		return "", dErrors.Wrap(errors.New("empty session url"), dErrors.CodeUpstream, "failed to create checkout session")
	}

	s.metrics.IncrementCheckout("success")
	s.logger.InfoContext(ctx, "checkout session created",
		"session_id", sess.ID,
		"clerk_id", caller.SubjectID,
	)
	return sess.URL, nil
}

func (s *Service) sessionParams(caller identity.Identified) *stripe.CheckoutSessionParams {
	metadata := map[string]string{
		service.MetadataProject: service.ProjectName,
		service.MetadataClerkID: caller.SubjectID,
	}
	return &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.cfg.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(s.cfg.AppBaseURL + "/?success=true"),
		CancelURL:         stripe.String(s.cfg.AppBaseURL + "/pricing?canceled=true"),
		CustomerEmail:     stripe.String(caller.Email),
		ClientReferenceID: stripe.String(caller.SubjectID),
		Metadata:          metadata,
		// Copied onto the subscription so cancellation events carry the same tags.
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
	}
}
