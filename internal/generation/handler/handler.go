package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dorkforge/internal/generation/models"
	"dorkforge/internal/generation/prompt"
	dErrors "dorkforge/pkg/domain-errors"
	"dorkforge/pkg/platform/httputil"
	"dorkforge/pkg/requestcontext"
)

type Service interface {
	Generate(ctx context.Context, req *models.GenerateRequest) (*models.Result, error)
}

// CatalogReader lists the predefined templates.
type CatalogReader interface {
	Categories() []prompt.Category
	Templates() []prompt.Template
}

type Handler struct {
	service Service
	catalog CatalogReader
	logger  *slog.Logger
}

func New(service Service, catalog CatalogReader, logger *slog.Logger) *Handler {
	return &Handler{service: service, catalog: catalog, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/generate-dork", h.HandleGenerate)
	r.Get("/templates/catalog", h.HandleCatalog)
}

// HandleGenerate implements POST /api/generate-dork.
// Input: { "platform": "google", "parameters": {...}, "templateInfo": {...} }
// Output: { "dorks": "...", "remaining": 2, "limit": 3 }
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.GenerateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Generate(ctx, req)
	if err != nil {
		var quotaErr *models.QuotaExceededError
		if errors.As(err, &quotaErr) {
			httputil.WriteJSON(w, http.StatusTooManyRequests, models.RateLimitResponse{
				Error:     httputil.DomainCodeToHTTPCode(dErrors.CodeQuotaExceeded),
				Details:   models.UpgradePrompt,
				RateLimit: quotaErr.Decision,
			})
			return
		}
		h.logger.ErrorContext(ctx, "dork generation failed",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.NewGenerateResponse(result))
}

type catalogResponse struct {
	Categories []prompt.Category `json:"categories"`
	Templates  []prompt.Template `json:"templates"`
}

// HandleCatalog implements GET /api/templates/catalog.
func (h *Handler) HandleCatalog(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, catalogResponse{
		Categories: h.catalog.Categories(),
		Templates:  h.catalog.Templates(),
	})
}
