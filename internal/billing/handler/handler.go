package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stripe/stripe-go/v79"

	"dorkforge/internal/billing/metrics"
	"dorkforge/internal/billing/service"
	"dorkforge/internal/billing/webhook"
	dErrors "dorkforge/pkg/domain-errors"
	"dorkforge/pkg/identity"
	"dorkforge/pkg/platform/httputil"
	"dorkforge/pkg/platform/middleware/request"
	"dorkforge/pkg/requestcontext"
	"dorkforge/pkg/validation"
)

// EventProcessor applies verified payment events.
type EventProcessor interface {
	HandleEvent(ctx context.Context, event *stripe.Event) (service.Outcome, error)
}

// CheckoutService opens checkout sessions.
type CheckoutService interface {
	CreateSession(ctx context.Context, caller identity.Identified) (string, error)
}

type Handler struct {
	events        EventProcessor
	checkout      CheckoutService
	webhookSecret string
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

func New(events EventProcessor, checkout CheckoutService, webhookSecret string, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		events:        events,
		checkout:      checkout,
		webhookSecret: webhookSecret,
		logger:        logger,
		metrics:       m,
	}
}

// RegisterWebhooks mounts the unauthenticated webhook intake with its own body limit.
func (h *Handler) RegisterWebhooks(r chi.Router) {
	r.With(request.BodyLimit(validation.MaxWebhookBodySize)).Post("/webhooks/stripe", h.HandleStripeWebhook)
}

// RegisterCheckout mounts routes that need a caller identity.
func (h *Handler) RegisterCheckout(r chi.Router) {
	r.Post("/create-checkout", h.HandleCreateCheckout)
}

type checkoutResponse struct {
	URL string `json:"url"`
}

type webhookResponse struct {
	Received bool `json:"received"`
}

// HandleCreateCheckout implements POST /api/create-checkout.
// Output: { "url": "https://checkout.stripe.com/..." }
func (h *Handler) HandleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caller, ok := identity.AsIdentified(requestcontext.Identity(ctx))
	if !ok || !caller.HasEmail() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "unauthorized"))
		return
	}

	url, err := h.checkout.CreateSession(ctx, caller)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create checkout session",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, checkoutResponse{URL: url})
}

// HandleStripeWebhook implements POST /api/webhooks/stripe.
// The raw body is verified before it is parsed. Once verified, the delivery is
// acknowledged even if applying it fails.
func (h *Handler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	signature := r.Header.Get(webhook.SignatureHeader)
	if signature == "" || h.webhookSecret == "" {
		h.metrics.IncrementWebhook("unknown", metrics.ResultRejected)
		httputil.WriteError(w, dErrors.New(dErrors.CodeSignatureInvalid, "Missing signature or secret"))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteJSON(w, http.StatusRequestEntityTooLarge, httputil.ErrorResponse{
				Error:   "payload_too_large",
				Details: "request body too large",
			})
			return
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	event, err := webhook.Verify(body, signature, h.webhookSecret)
	if err != nil {
		h.logger.WarnContext(ctx, "webhook rejected",
			"error", err,
			"request_id", requestID,
		)
		h.metrics.IncrementWebhook("unknown", metrics.ResultRejected)
		httputil.WriteError(w, err)
		return
	}

	outcome, err := h.events.HandleEvent(ctx, event)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to apply webhook event",
			"error", err,
			"event_id", event.ID,
			"event_type", string(event.Type),
			"request_id", requestID,
		)
	} else {
		h.logger.InfoContext(ctx, "webhook processed",
			"event_id", event.ID,
			"event_type", string(event.Type),
			"outcome", string(outcome),
			"request_id", requestID,
		)
	}
	httputil.WriteJSON(w, http.StatusOK, webhookResponse{Received: true})
}
