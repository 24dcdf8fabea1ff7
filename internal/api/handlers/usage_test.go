package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorpass/internal/core"
	"tutorpass/internal/membership"
	"tutorpass/internal/types"
)

// =============================================================================
// Shared Test Helpers
// =============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testValidator() *core.Validator {
	return core.NewValidator(testLogger())
}

// withURLParam creates a chi context with a URL parameter.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func jsonRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var resp struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error.Code
}

// =============================================================================
// Mock Usage Service
// =============================================================================

type mockUsageService struct {
	checkFn  func(ctx context.Context, userID string, feature types.FeatureType) (*membership.UsageDecision, error)
	recordFn func(ctx context.Context, userID string, feature types.FeatureType) (*types.Membership, error)
	startFn  func(ctx context.Context, userID string) (*types.Membership, error)
}

func (m *mockUsageService) CheckUsage(ctx context.Context, userID string, feature types.FeatureType) (*membership.UsageDecision, error) {
	if m.checkFn != nil {
		return m.checkFn(ctx, userID, feature)
	}
	return &membership.UsageDecision{CanUse: true}, nil
}

func (m *mockUsageService) RecordUsage(ctx context.Context, userID string, feature types.FeatureType) (*types.Membership, error) {
	if m.recordFn != nil {
		return m.recordFn(ctx, userID, feature)
	}
	return &types.Membership{ID: "m-1"}, nil
}

func (m *mockUsageService) StartConversation(ctx context.Context, userID string) (*types.Membership, error) {
	if m.startFn != nil {
		return m.startFn(ctx, userID)
	}
	return &types.Membership{ID: "m-1"}, nil
}

func newTestUsageHandler() (*UsageHandler, *mockUsageService) {
	svc := &mockUsageService{}
	return NewUsageHandler(svc, testValidator(), testLogger()), svc
}

// =============================================================================
// Usage Handler Tests
// =============================================================================

func TestUsageHandler_Check_Allowed(t *testing.T) {
	h, svc := newTestUsageHandler()
	svc.checkFn = func(ctx context.Context, userID string, feature types.FeatureType) (*membership.UsageDecision, error) {
		assert.Equal(t, "u-1", userID)
		assert.Equal(t, types.FeatureConversation, feature)
		return &membership.UsageDecision{CanUse: true, Membership: &types.Membership{ID: "m-1"}}, nil
	}

	rec := httptest.NewRecorder()
	h.Check(rec, jsonRequest(http.MethodPost, "/v1/usage/check", UsageRequest{
		UserID: "u-1", Feature: types.FeatureConversation,
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData[UsageCheckResponse](t, rec)
	assert.True(t, data.CanUse)
	assert.Empty(t, data.Reason)
	require.NotNil(t, data.Membership)
	assert.Equal(t, "m-1", data.Membership.ID)
}

func TestUsageHandler_Check_DeniedWithReason(t *testing.T) {
	h, svc := newTestUsageHandler()
	svc.checkFn = func(ctx context.Context, userID string, feature types.FeatureType) (*membership.UsageDecision, error) {
		return &membership.UsageDecision{CanUse: false, Reason: "Usage limit reached (10/10)"}, nil
	}

	rec := httptest.NewRecorder()
	h.Check(rec, jsonRequest(http.MethodPost, "/v1/usage/check", UsageRequest{
		UserID: "u-1", Feature: types.FeatureConversation,
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData[UsageCheckResponse](t, rec)
	assert.False(t, data.CanUse)
	assert.Contains(t, data.Reason, "10/10")
	assert.Nil(t, data.Membership)
}

func TestUsageHandler_Check_InvalidFeature(t *testing.T) {
	h, _ := newTestUsageHandler()

	rec := httptest.NewRecorder()
	h.Check(rec, jsonRequest(http.MethodPost, "/v1/usage/check", map[string]string{
		"user_id": "u-1", "feature_type": "video",
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUsageHandler_Check_UnknownUser(t *testing.T) {
	h, svc := newTestUsageHandler()
	svc.checkFn = func(ctx context.Context, userID string, feature types.FeatureType) (*membership.UsageDecision, error) {
		return nil, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
	}

	rec := httptest.NewRecorder()
	h.Check(rec, jsonRequest(http.MethodPost, "/v1/usage/check", UsageRequest{
		UserID: "ghost", Feature: types.FeatureAnalysis,
	}))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(types.ErrCodeNotFoundUser), decodeErrorCode(t, rec))
}

func TestUsageHandler_Update_Success(t *testing.T) {
	h, svc := newTestUsageHandler()
	limit := 10
	svc.recordFn = func(ctx context.Context, userID string, feature types.FeatureType) (*types.Membership, error) {
		return &types.Membership{
			ID:     "m-1",
			Usage:  types.FeatureUsage{Conversation: 5},
			Limits: types.FeatureLimits{Conversation: &limit},
		}, nil
	}

	rec := httptest.NewRecorder()
	h.Update(rec, jsonRequest(http.MethodPost, "/v1/usage/update", UsageRequest{
		UserID: "u-1", Feature: types.FeatureConversation,
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData[UsageUpdateResponse](t, rec)
	assert.Equal(t, "m-1", data.MembershipID)
	assert.Equal(t, 5, data.CurrentUsage.Conversation)
	require.NotNil(t, data.Limits.Conversation)
	assert.Equal(t, 10, *data.Limits.Conversation)
}

func TestUsageHandler_Update_QuotaExceeded(t *testing.T) {
	h, svc := newTestUsageHandler()
	svc.recordFn = func(ctx context.Context, userID string, feature types.FeatureType) (*types.Membership, error) {
		return nil, types.NewAppError(types.ErrCodeQuotaExceeded, "usage limit exceeded", nil)
	}

	rec := httptest.NewRecorder()
	h.Update(rec, jsonRequest(http.MethodPost, "/v1/usage/update", UsageRequest{
		UserID: "u-1", Feature: types.FeatureConversation,
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(types.ErrCodeQuotaExceeded), decodeErrorCode(t, rec))
}

func TestUsageHandler_Update_MissingBody(t *testing.T) {
	h, _ := newTestUsageHandler()

	rec := httptest.NewRecorder()
	h.Update(rec, jsonRequest(http.MethodPost, "/v1/usage/update", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(types.ErrCodeValidationInvalidJSON), decodeErrorCode(t, rec))
}

func TestUsageHandler_StartConversation(t *testing.T) {
	h, svc := newTestUsageHandler()
	svc.startFn = func(ctx context.Context, userID string) (*types.Membership, error) {
		assert.Equal(t, "u-1", userID)
		return &types.Membership{ID: "m-1", Usage: types.FeatureUsage{Conversation: 1}}, nil
	}

	rec := httptest.NewRecorder()
	h.StartConversation(rec, jsonRequest(http.MethodPost, "/v1/usage/start-conversation", StartConversationRequest{
		UserID: "u-1",
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData[UsageUpdateResponse](t, rec)
	assert.Equal(t, 1, data.CurrentUsage.Conversation)
}

func TestUsageHandler_StartConversation_NoneEligible(t *testing.T) {
	h, svc := newTestUsageHandler()
	svc.startFn = func(ctx context.Context, userID string) (*types.Membership, error) {
		return nil, types.NewAppError(types.ErrCodeNotFoundMembership, "no active membership", nil)
	}

	rec := httptest.NewRecorder()
	h.StartConversation(rec, jsonRequest(http.MethodPost, "/v1/usage/start-conversation", StartConversationRequest{
		UserID: "u-1",
	}))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
