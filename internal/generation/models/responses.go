package models

import (
	qmodels "dorkforge/internal/quota/models"
	submodels "dorkforge/internal/subscriber/models"
)

// UpgradePrompt is shown to callers who ran out of generations.
const UpgradePrompt = "Has alcanzado el límite de generaciones de tu plan. Actualiza a Pro para obtener 100 generaciones al mes."

type GenerateResponse struct {
	Dorks     string `json:"dorks"`
	Remaining *int   `json:"remaining"`
	Limit     *int   `json:"limit"`
	Unlimited bool   `json:"unlimited,omitempty"`
}

func NewGenerateResponse(r *Result) GenerateResponse {
	return GenerateResponse{
		Dorks:     r.Dorks,
		Remaining: qmodels.LimitValue(r.Remaining),
		Limit:     qmodels.LimitValue(r.Limit),
		Unlimited: r.Limit == submodels.Unlimited,
	}
}

// RateLimitResponse is the 429 body.
type RateLimitResponse struct {
	Error     string            `json:"error"`
	Details   string            `json:"details"`
	RateLimit *qmodels.Decision `json:"rateLimit"`
}
