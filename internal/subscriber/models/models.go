package models

import (
	"time"

	id "dorkforge/pkg/domain"
)

// Tier is the subscription level of a subscriber.
type Tier string

const (
	TierFree      Tier = "free"
	TierPro       Tier = "pro"
	TierDeveloper Tier = "developer"
)

// Generation limits per quota period.
const (
	FreeLimit = 3
	ProLimit  = 100
	// Unlimited marks a limit with no ceiling. It is never persisted.
	Unlimited = -1
)

// PeriodLength is the length of a quota period opened by a tier change.
const PeriodLength = 30 * 24 * time.Hour

func (t Tier) IsValid() bool {
	switch t {
	case TierFree, TierPro, TierDeveloper:
		return true
	}
	return false
}

// HasPaidFeatures reports whether templates and history are available.
func (t Tier) HasPaidFeatures() bool {
	return t == TierPro || t == TierDeveloper
}

// Subscriber is the persisted account record keyed by the identity provider subject.
type Subscriber struct {
	ID          id.SubscriberID
	ClerkID     id.ClerkID
	Email       string
	Tier        Tier
	UsageCount  int
	UsageLimit  int
	PeriodStart *time.Time
	PeriodEnd   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewSubscriber builds the lazily created free record: usage 0 of 3, no period yet.
func NewSubscriber(clerkID id.ClerkID, email string, now time.Time) *Subscriber {
	return &Subscriber{
		ID:         id.NewSubscriberID(),
		ClerkID:    clerkID,
		Email:      email,
		Tier:       TierFree,
		UsageCount: 0,
		UsageLimit: FreeLimit,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Remaining is max(0, limit-used).
func (s *Subscriber) Remaining() int {
	return max(0, s.UsageLimit-s.UsageCount)
}

// TierChange is the full state written when a subscriber moves between tiers.
type TierChange struct {
	Tier        Tier
	UsageLimit  int
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// NewTierChange resets usage and opens a fresh period starting at now.
func NewTierChange(tier Tier, now time.Time) TierChange {
	limit := FreeLimit
	if tier == TierPro {
		limit = ProLimit
	}
	return TierChange{
		Tier:        tier,
		UsageLimit:  limit,
		PeriodStart: now,
		PeriodEnd:   now.Add(PeriodLength),
	}
}

// Apply mutates s to reflect the change. Usage always resets to zero.
func (s *Subscriber) Apply(change TierChange) {
	start, end := change.PeriodStart, change.PeriodEnd
	s.Tier = change.Tier
	s.UsageLimit = change.UsageLimit
	s.UsageCount = 0
	s.PeriodStart = &start
	s.PeriodEnd = &end
	s.UpdatedAt = change.PeriodStart
}

// UsageLogEntry is an append-only record of one attempted action.
type UsageLogEntry struct {
	ID           id.UsageLogID   `json:"id"`
	SubscriberID id.SubscriberID `json:"user_id"`
	Action       string          `json:"action"`
	Success      bool            `json:"success"`
	Details      map[string]any  `json:"details,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ActionGenerateDork is the only action the service logs today.
const ActionGenerateDork = "generate_dork"
