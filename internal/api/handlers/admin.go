package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tutorpass/internal/core"
	"tutorpass/internal/types"
)

// AdminService defines the administrative engine operations. Admin identity
// is an opaque pass-through string; there is no authentication layer.
type AdminService interface {
	Assign(ctx context.Context, userID, templateID, assignedBy string) (*types.Membership, error)
	Suspend(ctx context.Context, id string) (*types.Membership, error)
	Activate(ctx context.Context, id string) (*types.Membership, error)
	Revoke(ctx context.Context, id, revokedBy string) error
	ListMemberships(ctx context.Context) ([]*types.Membership, error)
	ListByUser(ctx context.Context, userID string) ([]*types.Membership, error)
}

// AssignMembershipRequest is the request body for POST /v1/admin/assign-membership.
type AssignMembershipRequest struct {
	UserID     string `json:"user_id" validate:"required"`
	TemplateID string `json:"template_id" validate:"required"`
	AssignedBy string `json:"assigned_by" validate:"required"`
}

// AdminMembershipResponse wraps an admin mutation result with the acting
// admin's id echoed back.
type AdminMembershipResponse struct {
	Message    string            `json:"message"`
	Membership *types.Membership `json:"membership,omitempty"`
	ActorID    string            `json:"actor_id,omitempty"`
}

// AdminHandler exposes the administrative membership operations.
type AdminHandler struct {
	service   AdminService
	validator *core.Validator
	logger    *slog.Logger
}

// NewAdminHandler creates an AdminHandler with the provided dependencies.
func NewAdminHandler(service AdminService, v *core.Validator, l *slog.Logger) *AdminHandler {
	if l == nil {
		l = slog.Default()
	}
	return &AdminHandler{service: service, validator: v, logger: l}
}

// RegisterRoutes mounts the admin routes on the given router.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Post("/admin/assign-membership", h.Assign)
	r.Delete("/admin/memberships/{id}", h.Revoke)
	r.Patch("/admin/memberships/{id}/suspend", h.Suspend)
	r.Patch("/admin/memberships/{id}/activate", h.Activate)
	r.Get("/admin/memberships", h.ListAll)
	r.Get("/admin/users/{id}/memberships", h.ListByUser)
}

// Assign handles POST /v1/admin/assign-membership.
func (h *AdminHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req AssignMembershipRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	m, err := h.service.Assign(r.Context(), req.UserID, req.TemplateID, req.AssignedBy)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: AdminMembershipResponse{
		Message:    "Membership assigned successfully",
		Membership: m,
		ActorID:    req.AssignedBy,
	}})
}

// Revoke handles DELETE /v1/admin/memberships/{id}. The acting admin is
// identified by the admin_id query parameter.
func (h *AdminHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	adminID := r.URL.Query().Get("admin_id")
	if adminID == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"admin_id query parameter is required",
			nil,
		))
		return
	}

	if err := h.service.Revoke(r.Context(), id, adminID); err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: AdminMembershipResponse{
		Message: "Membership revoked successfully",
		ActorID: adminID,
	}})
}

// Suspend handles PATCH /v1/admin/memberships/{id}/suspend. Suspension is
// unconditional regardless of the membership's current status.
func (h *AdminHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.Suspend(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: AdminMembershipResponse{
		Message:    "Membership suspended successfully",
		Membership: m,
		ActorID:    r.URL.Query().Get("admin_id"),
	}})
}

// Activate handles PATCH /v1/admin/memberships/{id}/activate. Activating a
// membership whose expiry has passed fails with 412 and leaves the status
// untouched.
func (h *AdminHandler) Activate(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.Activate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: AdminMembershipResponse{
		Message:    "Membership activated successfully",
		Membership: m,
		ActorID:    r.URL.Query().Get("admin_id"),
	}})
}

// ListAll handles GET /v1/admin/memberships.
func (h *AdminHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	memberships, err := h.service.ListMemberships(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: memberships})
}

// ListByUser handles GET /v1/admin/users/{id}/memberships.
func (h *AdminHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	memberships, err := h.service.ListByUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: memberships})
}
