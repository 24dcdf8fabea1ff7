package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tutorpass/internal/core"
	"tutorpass/internal/membership"
	"tutorpass/internal/types"
)

// UsageService defines the metering operations used by the usage handler.
type UsageService interface {
	CheckUsage(ctx context.Context, userID string, feature types.FeatureType) (*membership.UsageDecision, error)
	RecordUsage(ctx context.Context, userID string, feature types.FeatureType) (*types.Membership, error)
	StartConversation(ctx context.Context, userID string) (*types.Membership, error)
}

// UsageRequest is the request body for POST /v1/usage/check and
// POST /v1/usage/update.
type UsageRequest struct {
	UserID  string            `json:"user_id" validate:"required"`
	Feature types.FeatureType `json:"feature_type" validate:"required,feature"`
}

// StartConversationRequest is the request body for POST /v1/usage/start-conversation.
type StartConversationRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// UsageCheckResponse answers a usage check. Membership is set only when the
// feature can be used; Reason only when it cannot.
type UsageCheckResponse struct {
	CanUse     bool              `json:"can_use"`
	Reason     string            `json:"reason,omitempty"`
	Membership *types.Membership `json:"membership,omitempty"`
}

// UsageUpdateResponse reports the state of the charged membership after a
// successful deduction.
type UsageUpdateResponse struct {
	Message      string              `json:"message"`
	MembershipID string              `json:"membership_id"`
	CurrentUsage types.FeatureUsage  `json:"current_usage"`
	Limits       types.FeatureLimits `json:"limits"`
}

// UsageHandler exposes the quota check and exactly-once deduction endpoints.
type UsageHandler struct {
	service   UsageService
	validator *core.Validator
	logger    *slog.Logger
}

// NewUsageHandler creates a UsageHandler with the provided dependencies.
func NewUsageHandler(service UsageService, v *core.Validator, l *slog.Logger) *UsageHandler {
	if l == nil {
		l = slog.Default()
	}
	return &UsageHandler{service: service, validator: v, logger: l}
}

// RegisterRoutes mounts the usage routes on the given router.
func (h *UsageHandler) RegisterRoutes(r chi.Router) {
	r.Post("/usage/check", h.Check)
	r.Post("/usage/update", h.Update)
	r.Post("/usage/start-conversation", h.StartConversation)
}

// Check handles POST /v1/usage/check. A denied check is still a 200; the
// decision is carried in the body.
func (h *UsageHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req UsageRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	decision, err := h.service.CheckUsage(r.Context(), req.UserID, req.Feature)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: UsageCheckResponse{
		CanUse:     decision.CanUse,
		Reason:     decision.Reason,
		Membership: decision.Membership,
	}})
}

// Update handles POST /v1/usage/update, charging exactly one unit of the
// feature against the first eligible membership.
func (h *UsageHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UsageRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	m, err := h.service.RecordUsage(r.Context(), req.UserID, req.Feature)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: UsageUpdateResponse{
		Message:      "Usage updated successfully",
		MembershipID: m.ID,
		CurrentUsage: m.Usage,
		Limits:       m.Limits,
	}})
}

// StartConversation handles POST /v1/usage/start-conversation: a combined
// find-and-deduct for one conversation unit.
func (h *UsageHandler) StartConversation(w http.ResponseWriter, r *http.Request) {
	var req StartConversationRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	m, err := h.service.StartConversation(r.Context(), req.UserID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: UsageUpdateResponse{
		Message:      "Conversation started",
		MembershipID: m.ID,
		CurrentUsage: m.Usage,
		Limits:       m.Limits,
	}})
}
