package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	submodels "dorkforge/internal/subscriber/models"
	"dorkforge/internal/templates/models"
	dErrors "dorkforge/pkg/domain-errors"
	"dorkforge/pkg/identity"
	"dorkforge/pkg/platform/httputil"
	"dorkforge/pkg/requestcontext"
)

type Service interface {
	List(ctx context.Context, caller identity.Identified) ([]*models.Template, error)
	Save(ctx context.Context, caller identity.Identified, req *models.SaveTemplateRequest) (*models.Template, error)
	History(ctx context.Context, caller identity.Identified) ([]*submodels.UsageLogEntry, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/get-templates", h.HandleListTemplates)
	r.Post("/save-template", h.HandleSaveTemplate)
	r.Get("/get-history", h.HandleHistory)
}

type templatesResponse struct {
	Templates []*models.Template `json:"templates"`
}

type historyResponse struct {
	History []*submodels.UsageLogEntry `json:"history"`
}

// HandleListTemplates implements GET /api/get-templates.
func (h *Handler) HandleListTemplates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	templates, err := h.service.List(ctx, caller)
	if err != nil {
		h.fail(ctx, w, "failed to list templates", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, templatesResponse{Templates: templates})
}

// HandleSaveTemplate implements POST /api/save-template.
// Input: { "name": "...", "content": "...", "platform": "google", "category": "...", "parameters": {...} }
func (h *Handler) HandleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.SaveTemplateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	tpl, err := h.service.Save(ctx, caller, req)
	if err != nil {
		h.fail(ctx, w, "failed to save template", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tpl)
}

// HandleHistory implements GET /api/get-history.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	entries, err := h.service.History(ctx, caller)
	if err != nil {
		h.fail(ctx, w, "failed to fetch history", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, historyResponse{History: entries})
}

func (h *Handler) requireCaller(w http.ResponseWriter, r *http.Request) (identity.Identified, bool) {
	caller, ok := identity.AsIdentified(requestcontext.Identity(r.Context()))
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized"))
		return identity.Identified{}, false
	}
	return caller, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeForbidden) {
		h.logger.InfoContext(ctx, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
	} else {
		h.logger.ErrorContext(ctx, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
	}
	httputil.WriteError(w, err)
}
