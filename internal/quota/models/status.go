package models

import (
	"encoding/json"
	"time"

	submodels "dorkforge/internal/subscriber/models"
)

// Status is the subscription summary shown to a caller.
type Status struct {
	Tier       submodels.Tier
	UsageCount int
	UsageLimit int
	PeriodEnd  *time.Time
	IsAdmin    bool
}

type statusJSON struct {
	Tier       string     `json:"tier"`
	UsageCount int        `json:"usage_count"`
	UsageLimit *int       `json:"usage_limit"`
	Unlimited  bool       `json:"unlimited,omitempty"`
	PeriodEnd  *time.Time `json:"period_end,omitempty"`
	IsAdmin    bool       `json:"isAdmin,omitempty"`
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(statusJSON{
		Tier:       string(s.Tier),
		UsageCount: s.UsageCount,
		UsageLimit: LimitValue(s.UsageLimit),
		Unlimited:  s.UsageLimit == submodels.Unlimited,
		PeriodEnd:  s.PeriodEnd,
		IsAdmin:    s.IsAdmin,
	})
}
