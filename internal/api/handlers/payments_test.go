package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorpass/internal/membership"
	"tutorpass/internal/types"
)

type mockPaymentService struct {
	payFn   func(ctx context.Context, in membership.PaymentInput) (*types.Membership, error)
	lastPay *membership.PaymentInput
}

func (m *mockPaymentService) Pay(ctx context.Context, in membership.PaymentInput) (*types.Membership, error) {
	m.lastPay = &in
	if m.payFn != nil {
		return m.payFn(ctx, in)
	}
	return &types.Membership{ID: "m-1"}, nil
}

func newTestPaymentHandler() (*PaymentHandler, *mockPaymentService) {
	svc := &mockPaymentService{}
	return NewPaymentHandler(svc, testValidator(), testLogger()), svc
}

func TestPaymentHandler_Process_Success(t *testing.T) {
	h, svc := newTestPaymentHandler()
	svc.payFn = func(ctx context.Context, in membership.PaymentInput) (*types.Membership, error) {
		return &types.Membership{
			ID: "m-1",
			Payment: &types.PaymentInfo{
				Method:        in.PaymentMethod,
				Amount:        in.Amount,
				Currency:      "USD",
				TransactionID: "txn_abc",
			},
		}, nil
	}

	rec := httptest.NewRecorder()
	h.Process(rec, jsonRequest(http.MethodPost, "/v1/payments/process", ProcessPaymentRequest{
		UserID:        "u-1",
		TemplateID:    "tpl-1",
		PaymentMethod: "credit_card",
		Amount:        19.99,
	}))

	require.Equal(t, http.StatusCreated, rec.Code)
	data := decodeData[ProcessPaymentResponse](t, rec)
	assert.Equal(t, "txn_abc", data.TransactionID)
	require.NotNil(t, data.Membership)
	assert.Equal(t, "m-1", data.Membership.ID)

	require.NotNil(t, svc.lastPay)
	assert.Equal(t, 19.99, svc.lastPay.Amount)
}

func TestPaymentHandler_Process_AmountMismatch(t *testing.T) {
	h, svc := newTestPaymentHandler()
	svc.payFn = func(ctx context.Context, in membership.PaymentInput) (*types.Membership, error) {
		return nil, types.NewAppError(types.ErrCodeValidationAmountMismatch, "invalid payment amount", nil)
	}

	rec := httptest.NewRecorder()
	h.Process(rec, jsonRequest(http.MethodPost, "/v1/payments/process", ProcessPaymentRequest{
		UserID: "u-1", TemplateID: "tpl-1", PaymentMethod: "credit_card", Amount: 19.98,
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(types.ErrCodeValidationAmountMismatch), decodeErrorCode(t, rec))
}

func TestPaymentHandler_Process_Declined(t *testing.T) {
	h, svc := newTestPaymentHandler()
	svc.payFn = func(ctx context.Context, in membership.PaymentInput) (*types.Membership, error) {
		return nil, types.NewAppError(types.ErrCodePaymentDeclined, "payment was declined by the gateway", nil)
	}

	rec := httptest.NewRecorder()
	h.Process(rec, jsonRequest(http.MethodPost, "/v1/payments/process", ProcessPaymentRequest{
		UserID: "u-1", TemplateID: "tpl-1", PaymentMethod: "credit_card", Amount: 19.99,
	}))

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, string(types.ErrCodePaymentDeclined), decodeErrorCode(t, rec))
}

func TestPaymentHandler_Process_MissingFields(t *testing.T) {
	h, svc := newTestPaymentHandler()

	rec := httptest.NewRecorder()
	h.Process(rec, jsonRequest(http.MethodPost, "/v1/payments/process", map[string]any{
		"user_id": "u-1",
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.lastPay)
}

func TestPaymentHandler_Process_ZeroAmountAllowed(t *testing.T) {
	// B2B purchases carry no price; a zero amount must pass request validation
	// and reach the service.
	h, svc := newTestPaymentHandler()

	rec := httptest.NewRecorder()
	h.Process(rec, jsonRequest(http.MethodPost, "/v1/payments/process", ProcessPaymentRequest{
		UserID: "u-2", TemplateID: "tpl-b2b", PaymentMethod: "invoice", Amount: 0,
	}))

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.lastPay)
	assert.Equal(t, 0.0, svc.lastPay.Amount)
}
