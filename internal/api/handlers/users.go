// Package handlers contains the HTTP handler implementations for the
// TutorPass API. Handlers do request mapping and validation only; all
// business rules live in the membership engine and service.
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

// UserDirectory defines the data access contract for user CRUD.
// Mirrors the concrete store.UserRepository methods relevant to this handler.
type UserDirectory interface {
	Create(ctx context.Context, user *types.User) error
	GetByID(ctx context.Context, id string) (*types.User, error)
	List(ctx context.Context) ([]*types.User, error)
	Update(ctx context.Context, user *types.User) error
	Delete(ctx context.Context, id string) error
}

// UpsertUserRequest is the request body for POST /v1/users and PUT /v1/users/{id}.
type UpsertUserRequest struct {
	Name      string        `json:"name" validate:"required"`
	Email     string        `json:"email" validate:"required,email"`
	Segment   types.Segment `json:"customer_type" validate:"required,segment"`
	CompanyID *string       `json:"company_id,omitempty"`
}

// UserHandler manages the user directory.
type UserHandler struct {
	users     UserDirectory
	validator *core.Validator
	logger    *slog.Logger
}

// NewUserHandler creates a UserHandler with the provided dependencies.
func NewUserHandler(users UserDirectory, v *core.Validator, l *slog.Logger) *UserHandler {
	if l == nil {
		l = slog.Default()
	}
	return &UserHandler{users: users, validator: v, logger: l}
}

// RegisterRoutes mounts the user routes on the given router.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Post("/users", h.Create)
	r.Get("/users", h.List)
	r.Get("/users/{id}", h.Get)
	r.Put("/users/{id}", h.Update)
	r.Delete("/users/{id}", h.Delete)
}

// Create handles POST /v1/users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req UpsertUserRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	user := &types.User{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Email:     req.Email,
		Segment:   req.Segment,
		CompanyID: req.CompanyID,
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: user})
}

// List handles GET /v1/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: users})
}

// Get handles GET /v1/users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: user})
}

// Update handles PUT /v1/users/{id}. The body fully replaces the user record;
// the id in the path wins over any id in the body.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpsertUserRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	user := &types.User{
		ID:        chi.URLParam(r, "id"),
		Name:      req.Name,
		Email:     req.Email,
		Segment:   req.Segment,
		CompanyID: req.CompanyID,
	}
	if err := h.users.Update(r.Context(), user); err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: user})
}

// Delete handles DELETE /v1/users/{id}. Memberships held by the user are left
// untouched; dangling user references are permitted.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		core.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
