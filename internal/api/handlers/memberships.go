package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tutorpass/internal/core"
	"tutorpass/internal/membership"
	"tutorpass/internal/types"
)

// MembershipService defines the engine operations used by the membership
// handler. All reads go through the service so expiry refresh is applied
// before any response leaves the system.
type MembershipService interface {
	CreateMembership(ctx context.Context, in membership.CreateMembershipInput) (*types.Membership, error)
	GetMembership(ctx context.Context, id string) (*types.Membership, error)
	ListMemberships(ctx context.Context) ([]*types.Membership, error)
	DeleteMembership(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string) ([]*types.Membership, error)
	ListActiveByUser(ctx context.Context, userID string) ([]*types.Membership, error)
}

// CreateMembershipRequest is the request body for POST /v1/memberships.
// Direct creation does not resolve the template reference; the caller supplies
// name, expiry, and limits explicitly.
type CreateMembershipRequest struct {
	UserID     string              `json:"user_id" validate:"required"`
	Name       string              `json:"name" validate:"required"`
	TemplateID *string             `json:"template_id,omitempty"`
	Segment    types.Segment       `json:"customer_type" validate:"required,segment"`
	ExpiresAt  time.Time           `json:"expires_at" validate:"required"`
	Limits     types.FeatureLimits `json:"limits"`
}

// MembershipHandler exposes membership CRUD and the per-user listing views.
type MembershipHandler struct {
	service   MembershipService
	validator *core.Validator
	logger    *slog.Logger
}

// NewMembershipHandler creates a MembershipHandler with the provided dependencies.
func NewMembershipHandler(service MembershipService, v *core.Validator, l *slog.Logger) *MembershipHandler {
	if l == nil {
		l = slog.Default()
	}
	return &MembershipHandler{service: service, validator: v, logger: l}
}

// RegisterRoutes mounts the membership routes on the given router.
func (h *MembershipHandler) RegisterRoutes(r chi.Router) {
	r.Post("/memberships", h.Create)
	r.Get("/memberships", h.List)
	r.Get("/memberships/{id}", h.Get)
	r.Delete("/memberships/{id}", h.Delete)
	r.Get("/users/{id}/memberships", h.ListByUser)
	r.Get("/users/{id}/active-memberships", h.ListActiveByUser)
}

// Create handles POST /v1/memberships.
func (h *MembershipHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateMembershipRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	m, err := h.service.CreateMembership(r.Context(), membership.CreateMembershipInput{
		UserID:     req.UserID,
		Name:       req.Name,
		TemplateID: req.TemplateID,
		Segment:    req.Segment,
		ExpiresAt:  req.ExpiresAt,
		Limits:     req.Limits,
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: m})
}

// List handles GET /v1/memberships.
func (h *MembershipHandler) List(w http.ResponseWriter, r *http.Request) {
	memberships, err := h.service.ListMemberships(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: memberships})
}

// Get handles GET /v1/memberships/{id}.
func (h *MembershipHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.GetMembership(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: m})
}

// Delete handles DELETE /v1/memberships/{id}.
func (h *MembershipHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteMembership(r.Context(), chi.URLParam(r, "id")); err != nil {
		core.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListByUser handles GET /v1/users/{id}/memberships.
func (h *MembershipHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	memberships, err := h.service.ListByUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: memberships})
}

// ListActiveByUser handles GET /v1/users/{id}/active-memberships.
func (h *MembershipHandler) ListActiveByUser(w http.ResponseWriter, r *http.Request) {
	memberships, err := h.service.ListActiveByUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: memberships})
}
