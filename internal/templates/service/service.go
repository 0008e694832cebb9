// Package service serves saved templates and generation history to paid subscribers.
// Admins on the allowlist are treated as developer tier.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	submodels "dorkforge/internal/subscriber/models"
	"dorkforge/internal/templates/models"
	id "dorkforge/pkg/domain"
	dErrors "dorkforge/pkg/domain-errors"
	"dorkforge/pkg/identity"
	"dorkforge/pkg/platform/sentinel"
	"dorkforge/pkg/requestcontext"
)

// ErrProOnly is returned when the caller's tier has no access to templates or history.
var ErrProOnly = dErrors.New(dErrors.CodeForbidden, "Pro feature only")

type SubscriberStore interface {
	FindByClerkID(ctx context.Context, clerkID id.ClerkID) (*submodels.Subscriber, error)
	FindOrCreate(ctx context.Context, candidate *submodels.Subscriber) (*submodels.Subscriber, error)
}

// AdminChecker reports allowlist membership.
type AdminChecker interface {
	IsAdmin(ctx context.Context, caller identity.Identified) bool
}

type TemplateStore interface {
	Insert(ctx context.Context, tpl *models.Template) error
	ListBySubscriber(ctx context.Context, owner id.SubscriberID) ([]*models.Template, error)
}

type HistoryStore interface {
	ListRecent(ctx context.Context, subscriberID id.SubscriberID, limit int) ([]*submodels.UsageLogEntry, error)
}

type Service struct {
	subscribers SubscriberStore
	admins      AdminChecker
	templates   TemplateStore
	history     HistoryStore
	logger      *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(subscribers SubscriberStore, admins AdminChecker, templates TemplateStore, history HistoryStore, opts ...Option) (*Service, error) {
	switch {
	case subscribers == nil:
		return nil, errors.New("subscriber store is required")
	case admins == nil:
		return nil, errors.New("admin checker is required")
	case templates == nil:
		return nil, errors.New("template store is required")
	case history == nil:
		return nil, errors.New("history store is required")
	}
	svc := &Service{
		subscribers: subscribers,
		admins:      admins,
		templates:   templates,
		history:     history,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// List returns the caller's saved templates, newest first. Callers without a record get an
// empty list.
func (s *Service) List(ctx context.Context, caller identity.Identified) ([]*models.Template, error) {
	sub, err := s.subscribers.FindByClerkID(ctx, id.ClerkID(caller.SubjectID))
	if errors.Is(err, sentinel.ErrNotFound) {
		return []*models.Template{}, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load subscriber")
	}

	templates, err := s.templates.ListBySubscriber(ctx, sub.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list templates")
	}
	return templates, nil
}

// Save stores a template for a paid caller and returns the stored row.
func (s *Service) Save(ctx context.Context, caller identity.Identified, req *models.SaveTemplateRequest) (*models.Template, error) {
	sub, err := s.paidSubscriber(ctx, caller)
	if err != nil {
		return nil, err
	}

	tpl := models.NewTemplate(sub.ID, req, requestcontext.Now(ctx))
	if err := s.templates.Insert(ctx, tpl); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save template")
	}

	s.logger.InfoContext(ctx, "template saved",
		"template_id", tpl.ID.String(),
		"subscriber_id", sub.ID.String(),
		"platform", string(tpl.Platform),
	)
	return tpl, nil
}

// History returns the caller's most recent usage entries, newest first.
func (s *Service) History(ctx context.Context, caller identity.Identified) ([]*submodels.UsageLogEntry, error) {
	sub, err := s.paidSubscriber(ctx, caller)
	if err != nil {
		return nil, err
	}

	entries, err := s.history.ListRecent(ctx, sub.ID, models.HistoryLimit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list history")
	}
	return entries, nil
}

// paidSubscriber resolves the caller's record and requires pro or developer tier.
// Admins may not have a record yet, so one is created for them.
func (s *Service) paidSubscriber(ctx context.Context, caller identity.Identified) (*submodels.Subscriber, error) {
	clerkID := id.ClerkID(caller.SubjectID)

	if s.admins.IsAdmin(ctx, caller) {
		sub, err := s.subscribers.FindOrCreate(ctx, submodels.NewSubscriber(clerkID, caller.Email, requestcontext.Now(ctx)))
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load subscriber")
		}
		return sub, nil
	}

	sub, err := s.subscribers.FindByClerkID(ctx, clerkID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, ErrProOnly
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("failed to load subscriber %s", clerkID))
	}
	if !sub.Tier.HasPaidFeatures() {
		return nil, ErrProOnly
	}
	return sub, nil
}
