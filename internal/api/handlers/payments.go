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

// PaymentService defines the purchase operation used by the payment handler.
type PaymentService interface {
	Pay(ctx context.Context, in membership.PaymentInput) (*types.Membership, error)
}

// ProcessPaymentRequest is the request body for POST /v1/payments/process.
// Amount carries no validation floor beyond non-negativity; for B2C purchases
// the service enforces exact equality with the template price.
type ProcessPaymentRequest struct {
	UserID        string  `json:"user_id" validate:"required"`
	TemplateID    string  `json:"template_id" validate:"required"`
	PaymentMethod string  `json:"payment_method" validate:"required"`
	Amount        float64 `json:"amount" validate:"gte=0"`
}

// ProcessPaymentResponse reports a settled purchase and the membership it
// created.
type ProcessPaymentResponse struct {
	Message       string            `json:"message"`
	Membership    *types.Membership `json:"membership"`
	TransactionID string            `json:"transaction_id"`
}

// PaymentHandler exposes plan purchase processing.
type PaymentHandler struct {
	service   PaymentService
	validator *core.Validator
	logger    *slog.Logger
}

// NewPaymentHandler creates a PaymentHandler with the provided dependencies.
func NewPaymentHandler(service PaymentService, v *core.Validator, l *slog.Logger) *PaymentHandler {
	if l == nil {
		l = slog.Default()
	}
	return &PaymentHandler{service: service, validator: v, logger: l}
}

// RegisterRoutes mounts the payment routes on the given router.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/payments/process", h.Process)
}

// Process handles POST /v1/payments/process.
func (h *PaymentHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req ProcessPaymentRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	m, err := h.service.Pay(r.Context(), membership.PaymentInput{
		UserID:        req.UserID,
		TemplateID:    req.TemplateID,
		PaymentMethod: req.PaymentMethod,
		Amount:        req.Amount,
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}

	var txnID string
	if m.Payment != nil {
		txnID = m.Payment.TransactionID
	}

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: ProcessPaymentResponse{
		Message:       "Payment processed successfully",
		Membership:    m,
		TransactionID: txnID,
	}})
}
