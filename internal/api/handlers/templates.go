package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tutorpass/internal/core"
	"tutorpass/internal/types"
)

// TemplateCatalog defines the data access contract for plan template CRUD.
// Mirrors the concrete store.TemplateRepository methods relevant to this handler.
type TemplateCatalog interface {
	Create(ctx context.Context, tpl *types.Template) error
	GetByID(ctx context.Context, id string) (*types.Template, error)
	List(ctx context.Context, segment *types.Segment) ([]*types.Template, error)
	Update(ctx context.Context, tpl *types.Template) error
	Delete(ctx context.Context, id string) error
}

// UpsertTemplateRequest is the request body for POST /v1/templates and
// PUT /v1/templates/{id}. New and replaced templates start active.
type UpsertTemplateRequest struct {
	Name         string              `json:"name" validate:"required"`
	Segment      types.Segment       `json:"customer_type" validate:"required,segment"`
	DurationDays int                 `json:"duration_days" validate:"required,gt=0"`
	Limits       types.FeatureLimits `json:"limits"`
	Price        *float64            `json:"price,omitempty" validate:"omitempty,gte=0"`
}

// TemplateHandler manages the plan template catalog.
type TemplateHandler struct {
	templates TemplateCatalog
	validator *core.Validator
	logger    *slog.Logger
}

// NewTemplateHandler creates a TemplateHandler with the provided dependencies.
func NewTemplateHandler(templates TemplateCatalog, v *core.Validator, l *slog.Logger) *TemplateHandler {
	if l == nil {
		l = slog.Default()
	}
	return &TemplateHandler{templates: templates, validator: v, logger: l}
}

// RegisterRoutes mounts the template routes on the given router.
func (h *TemplateHandler) RegisterRoutes(r chi.Router) {
	r.Post("/templates", h.Create)
	r.Get("/templates", h.List)
	r.Get("/templates/{id}", h.Get)
	r.Put("/templates/{id}", h.Update)
	r.Delete("/templates/{id}", h.Delete)
	r.Post("/templates/{id}/toggle", h.Toggle)
}

// Create handles POST /v1/templates.
func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req UpsertTemplateRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	tpl := &types.Template{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Segment:      req.Segment,
		DurationDays: req.DurationDays,
		Limits:       req.Limits,
		Price:        req.Price,
		Active:       true,
	}
	if err := h.templates.Create(r.Context(), tpl); err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: tpl})
}

// List handles GET /v1/templates. An optional customer_type query parameter
// filters the catalog by segment.
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	var segment *types.Segment
	if raw := r.URL.Query().Get("customer_type"); raw != "" {
		seg := types.Segment(raw)
		if !seg.Valid() {
			core.Error(w, r, types.NewAppError(
				types.ErrCodeValidationInvalidSegment,
				"customer_type must be one of: B2C, B2B",
				nil,
			))
			return
		}
		segment = &seg
	}

	templates, err := h.templates.List(r.Context(), segment)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: templates})
}

// Get handles GET /v1/templates/{id}.
func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	tpl, err := h.templates.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: tpl})
}

// Update handles PUT /v1/templates/{id}. The body fully replaces the template;
// the replacement starts active. Existing memberships keep their copied name
// and limits.
func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpsertTemplateRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	tpl := &types.Template{
		ID:           chi.URLParam(r, "id"),
		Name:         req.Name,
		Segment:      req.Segment,
		DurationDays: req.DurationDays,
		Limits:       req.Limits,
		Price:        req.Price,
		Active:       true,
	}
	if err := h.templates.Update(r.Context(), tpl); err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: tpl})
}

// Delete handles DELETE /v1/templates/{id}. Memberships referencing the
// template keep their dangling template id.
func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.templates.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		core.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Toggle handles POST /v1/templates/{id}/toggle, flipping the active flag.
func (h *TemplateHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	tpl, err := h.templates.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	tpl.Active = !tpl.Active
	if err := h.templates.Update(r.Context(), tpl); err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: tpl})
}
