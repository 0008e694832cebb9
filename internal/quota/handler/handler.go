package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dorkforge/internal/quota/models"
	dErrors "dorkforge/pkg/domain-errors"
	"dorkforge/pkg/identity"
	"dorkforge/pkg/platform/httputil"
	"dorkforge/pkg/requestcontext"
)

type Service interface {
	Status(ctx context.Context, who identity.Identity) (*models.Status, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/check-subscription", h.HandleCheckSubscription)
}

// HandleCheckSubscription implements GET /api/check-subscription.
// Output: { "tier": "pro", "usage_count": 4, "usage_limit": 100, "period_end": "..." }
func (h *Handler) HandleCheckSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status, err := h.service.Status(ctx, requestcontext.Identity(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to check subscription",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check subscription"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}
