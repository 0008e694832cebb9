package models

import (
	"fmt"
	"strings"

	"dorkforge/internal/generation/prompt"
	qmodels "dorkforge/internal/quota/models"
)

// GenerateRequest is the body of POST /api/generate-dork.
type GenerateRequest struct {
	// Platform outside the known set gets generic instructions.
	Platform   prompt.Platform   `json:"platform" validate:"required"`
	Parameters prompt.Parameters `json:"parameters"`
	// TemplateInfo is either a full template or a reference to a catalogue entry by id.
	TemplateInfo *prompt.Template `json:"templateInfo,omitempty"`
}

func (r *GenerateRequest) Sanitize() {
	r.Platform = prompt.Platform(strings.ToLower(strings.TrimSpace(string(r.Platform))))
	r.Parameters.Target = strings.TrimSpace(r.Parameters.Target)
}

// Result is a successful generation.
type Result struct {
	Dorks string
	// Remaining already accounts for this generation. Unlimited for admins.
	Remaining int
	Limit     int
}

// QuotaExceededError carries the decision that denied the request.
type QuotaExceededError struct {
	Decision *qmodels.Decision
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for tier %s (limit %d)", e.Decision.Tier, e.Decision.Limit)
}
