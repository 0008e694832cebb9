package models

import (
	"encoding/json"
	"time"

	submodels "dorkforge/internal/subscriber/models"
)

// TierAnonymous is reported for callers metered only by IP. It is never persisted.
const TierAnonymous submodels.Tier = "anonymous"

// IP counter limits per UTC day.
const (
	AnonymousLimit = 1
	// SignedInNewLimit applies to identified callers that have no subscriber record yet.
	SignedInNewLimit = submodels.FreeLimit
)

// CounterTTL is set on an IP counter by the first writer of the day.
const CounterTTL = 24 * time.Hour

// Decision is the per-request quota outcome. Limit and Remaining hold
// submodels.Unlimited for admins.
type Decision struct {
	Allowed   bool
	Remaining int
	Limit     int
	Tier      submodels.Tier
	ResetAt   *time.Time
}

// Unlimited builds the admin decision.
func Unlimited(tier submodels.Tier) *Decision {
	return &Decision{
		Allowed:   true,
		Remaining: submodels.Unlimited,
		Limit:     submodels.Unlimited,
		Tier:      tier,
	}
}

func (d *Decision) IsUnlimited() bool {
	return d.Limit == submodels.Unlimited
}

// RemainingAfterUse is the quota left once the current call is counted, floored at zero.
// Unlimited stays unlimited.
func (d *Decision) RemainingAfterUse() int {
	if d.IsUnlimited() {
		return submodels.Unlimited
	}
	return max(0, d.Remaining-1)
}

type decisionJSON struct {
	Allowed   bool       `json:"allowed"`
	Remaining *int       `json:"remaining"`
	Limit     *int       `json:"limit"`
	Tier      string     `json:"tier"`
	ResetAt   *time.Time `json:"resetAt,omitempty"`
	Unlimited bool       `json:"unlimited,omitempty"`
}

// MarshalJSON writes unlimited quotas as null with "unlimited": true.
func (d Decision) MarshalJSON() ([]byte, error) {
	out := decisionJSON{
		Allowed: d.Allowed,
		Tier:    string(d.Tier),
		ResetAt: d.ResetAt,
	}
	if d.Limit == submodels.Unlimited {
		out.Unlimited = true
	} else {
		out.Remaining = LimitValue(d.Remaining)
		out.Limit = LimitValue(d.Limit)
	}
	return json.Marshal(out)
}

// LimitValue maps Unlimited to nil for JSON output.
func LimitValue(n int) *int {
	if n == submodels.Unlimited {
		return nil
	}
	return &n
}
