package models

import (
	"strings"
	"time"

	"dorkforge/internal/generation/prompt"
	id "dorkforge/pkg/domain"
)

// Template is a subscriber's saved query set.
type Template struct {
	ID           id.TemplateID   `json:"id"`
	SubscriberID id.SubscriberID `json:"user_id"`
	Name         string          `json:"name"`
	Content      string          `json:"content"`
	Platform     prompt.Platform `json:"platform"`
	Category     string          `json:"category"`
	Parameters   map[string]any  `json:"parameters"`
	CreatedAt    time.Time       `json:"created_at"`
}

// SaveTemplateRequest is the body of POST /api/save-template.
type SaveTemplateRequest struct {
	Name       string          `json:"name" validate:"required,notblank,max=200"`
	Content    string          `json:"content" validate:"required,notblank,max=16384"`
	Platform   prompt.Platform `json:"platform" validate:"required,oneof=google shodan zoomeye censys fofa"`
	Category   string          `json:"category" validate:"max=100"`
	Parameters map[string]any  `json:"parameters"`
}

func (r *SaveTemplateRequest) Sanitize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Category = strings.TrimSpace(r.Category)
	r.Platform = prompt.Platform(strings.ToLower(strings.TrimSpace(string(r.Platform))))
}

// NewTemplate builds the row stored for req.
func NewTemplate(owner id.SubscriberID, req *SaveTemplateRequest, now time.Time) *Template {
	return &Template{
		ID:           id.NewTemplateID(),
		SubscriberID: owner,
		Name:         req.Name,
		Content:      req.Content,
		Platform:     req.Platform,
		Category:     req.Category,
		Parameters:   req.Parameters,
		CreatedAt:    now,
	}
}

// HistoryLimit caps GET /api/get-history.
const HistoryLimit = 100
