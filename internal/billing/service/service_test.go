package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"github.com/stripe/stripe-go/v79"

	"dorkforge/internal/billing/metrics"
	submodels "dorkforge/internal/subscriber/models"
	subscriberstore "dorkforge/internal/subscriber/store/subscriber"
	id "dorkforge/pkg/domain"
)

type failingTierStore struct {
	*subscriberstore.InMemoryStore
}

func (failingTierStore) ApplyTierChange(context.Context, id.SubscriberID, submodels.TierChange) error {
	return errors.New("connection reset")
}

type BillingServiceSuite struct {
	suite.Suite
	store   *subscriberstore.InMemoryStore
	metrics *metrics.Metrics
	service *Service
	now     time.Time
	sub     *submodels.Subscriber
}

func TestBillingServiceSuite(t *testing.T) {
	suite.Run(t, new(BillingServiceSuite))
}

func (s *BillingServiceSuite) SetupTest() {
	s.now = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	s.store = subscriberstore.NewInMemory()
	s.metrics = metrics.New(prometheus.NewRegistry())

	var err error
	s.service, err = New(s.store, WithMetrics(s.metrics), WithClock(func() time.Time { return s.now }))
	s.Require().NoError(err)

	s.sub, err = s.store.FindOrCreate(context.Background(), submodels.NewSubscriber("u_1", "u1@example.com", s.now.Add(-48*time.Hour)))
	s.Require().NoError(err)
}

func event(t stripe.EventType, object map[string]any) *stripe.Event {
	raw, _ := json.Marshal(object)
	return &stripe.Event{ID: "evt_1", Type: t, Data: &stripe.EventData{Raw: raw}}
}

func ours(clerkID string) map[string]any {
	return map[string]any{"metadata": map[string]string{MetadataProject: ProjectName, MetadataClerkID: clerkID}}
}

func (s *BillingServiceSuite) reload() *submodels.Subscriber {
	sub, err := s.store.FindByClerkID(context.Background(), "u_1")
	s.Require().NoError(err)
	return sub
}

func (s *BillingServiceSuite) TestCheckoutCompletedUpgradesToPro() {
	s.Require().NoError(s.store.IncrementUsage(context.Background(), s.sub.ID))

	outcome, err := s.service.HandleEvent(context.Background(), event(stripe.EventTypeCheckoutSessionCompleted, ours("u_1")))
	s.Require().NoError(err)
	s.Equal(OutcomeApplied, outcome)

	sub := s.reload()
	s.Equal(submodels.TierPro, sub.Tier)
	s.Equal(submodels.ProLimit, sub.UsageLimit)
	s.Zero(sub.UsageCount)
	s.Require().NotNil(sub.PeriodEnd)
	s.Equal(s.now.Add(30*24*time.Hour), *sub.PeriodEnd)
	s.InDelta(1, testutil.ToFloat64(s.metrics.WebhookEvents.WithLabelValues("checkout.session.completed", metrics.ResultApplied)), 0)
}

func (s *BillingServiceSuite) TestCheckoutCompletedIsIdempotent() {
	evt := event(stripe.EventTypeCheckoutSessionCompleted, ours("u_1"))

	_, err := s.service.HandleEvent(context.Background(), evt)
	s.Require().NoError(err)
	first := s.reload()

	_, err = s.service.HandleEvent(context.Background(), evt)
	s.Require().NoError(err)
	second := s.reload()

	s.Equal(first.Tier, second.Tier)
	s.Equal(first.UsageLimit, second.UsageLimit)
	s.Equal(first.UsageCount, second.UsageCount)
}

func (s *BillingServiceSuite) TestSubscriptionDeletedDowngradesToFree() {
	_, err := s.service.HandleEvent(context.Background(), event(stripe.EventTypeCheckoutSessionCompleted, ours("u_1")))
	s.Require().NoError(err)
	for i := 0; i < 40; i++ {
		s.Require().NoError(s.store.IncrementUsage(context.Background(), s.sub.ID))
	}

	s.now = s.now.Add(10 * 24 * time.Hour)
	outcome, err := s.service.HandleEvent(context.Background(), event(stripe.EventTypeCustomerSubscriptionDeleted, ours("u_1")))
	s.Require().NoError(err)
	s.Equal(OutcomeApplied, outcome)

	sub := s.reload()
	s.Equal(submodels.TierFree, sub.Tier)
	s.Equal(submodels.FreeLimit, sub.UsageLimit)
	s.Zero(sub.UsageCount)
	s.Require().NotNil(sub.PeriodStart)
	s.Equal(s.now, *sub.PeriodStart)
}

func (s *BillingServiceSuite) TestIgnoredEvents() {
	cases := map[string]*stripe.Event{
		"other type":      event("invoice.paid", ours("u_1")),
		"foreign project": event(stripe.EventTypeCheckoutSessionCompleted, map[string]any{"metadata": map[string]string{MetadataProject: "other", MetadataClerkID: "u_1"}}),
		"missing clerk":   event(stripe.EventTypeCheckoutSessionCompleted, map[string]any{"metadata": map[string]string{MetadataProject: ProjectName}}),
		"no metadata":     event(stripe.EventTypeCustomerSubscriptionDeleted, map[string]any{"id": "sub_1"}),
		"no data":         {Type: stripe.EventTypeCheckoutSessionCompleted},
	}
	for name, evt := range cases {
		s.Run(name, func() {
			outcome, err := s.service.HandleEvent(context.Background(), evt)
			s.NoError(err)
			s.Equal(OutcomeIgnored, outcome)
			s.Equal(submodels.TierFree, s.reload().Tier)
		})
	}
}

func (s *BillingServiceSuite) TestUnknownSubscriberIsIgnored() {
	for _, typ := range []stripe.EventType{stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCustomerSubscriptionDeleted} {
		s.Run(string(typ), func() {
			outcome, err := s.service.HandleEvent(context.Background(), event(typ, ours("u_missing")))
			s.Require().NoError(err)
			s.Equal(OutcomeIgnored, outcome)
			s.InDelta(1, testutil.ToFloat64(s.metrics.WebhookEvents.WithLabelValues(string(typ), metrics.ResultIgnored)), 0)
			s.InDelta(0, testutil.ToFloat64(s.metrics.WebhookEvents.WithLabelValues(string(typ), metrics.ResultFailed)), 0)
		})
	}
}

func (s *BillingServiceSuite) TestStoreFailureIsReturned() {
	svc, err := New(failingTierStore{s.store}, WithClock(func() time.Time { return s.now }))
	s.Require().NoError(err)

	_, err = svc.HandleEvent(context.Background(), event(stripe.EventTypeCheckoutSessionCompleted, ours("u_1")))
	s.ErrorContains(err, "connection reset")
	s.Equal(submodels.TierFree, s.reload().Tier)
}

func (s *BillingServiceSuite) TestNewRequiresStore() {
	_, err := New(nil)
	s.Error(err)
}
