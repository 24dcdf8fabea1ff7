package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"tutorpass/internal/types"
)

// ChargeRequest describes a single payment attempt for a plan purchase.
type ChargeRequest struct {
	UserID        string  `json:"user_id"`
	TemplateID    string  `json:"template_id"`
	PaymentMethod string  `json:"payment_method"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
}

// ChargeResult is the gateway's answer to a charge attempt.
type ChargeResult struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id"`
	Message       string `json:"message,omitempty"`
}

// PaymentGateway charges a payment method for a plan purchase. A declined
// charge is reported via Success=false, not an error; errors are reserved for
// transport and upstream failures.
type PaymentGateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// LocalGateway is the in-process gateway used when no external gateway URL is
// configured. Every charge succeeds deterministically with a generated
// transaction id.
type LocalGateway struct{}

// NewLocalGateway returns a gateway that approves every charge.
func NewLocalGateway() *LocalGateway { return &LocalGateway{} }

// Charge implements PaymentGateway.
func (g *LocalGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	return &ChargeResult{
		Success:       true,
		TransactionID: "txn_" + uuid.NewString(),
		Message:       "Payment processed successfully",
	}, nil
}

// HTTPGateway talks to an external payment provider over HTTP, inheriting the
// BaseClient's circuit breaking and retry behavior.
type HTTPGateway struct {
	base    *BaseClient
	baseURL string
	apiKey  types.SecretString
}

// NewHTTPGateway builds a gateway client for the provider at baseURL.
func NewHTTPGateway(baseURL string, apiKey types.SecretString, timeout time.Duration, opts ...BaseClientOption) *HTTPGateway {
	httpClient := &http.Client{Timeout: timeout}
	return &HTTPGateway{
		base:    NewBaseClient(httpClient, "payment-gateway", DefaultRetryPolicy(), "tutorpass/1.0", opts...),
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// Charge implements PaymentGateway by POSTing the charge to the provider.
// 4xx answers from the provider are treated as declines, not transport
// failures.
func (g *HTTPGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode charge request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/charges", bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build charge request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey.Unmask() != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey.Unmask())
	}

	resp, err := g.base.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &ChargeResult{
			Success: false,
			Message: fmt.Sprintf("gateway declined with status %d", resp.StatusCode),
		}, nil
	}

	var result ChargeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamGateway, "failed to decode gateway response", err)
	}
	return &result, nil
}
