package types

import (
	"errors"
	"net/http"
	"testing"
)

func TestErrorCode_HTTPStatus(t *testing.T) {
	cases := []struct {
		code   ErrorCode
		status int
	}{
		{ErrCodeValidationInvalidJSON, http.StatusBadRequest},
		{ErrCodeValidationMissingField, http.StatusBadRequest},
		{ErrCodeValidationSegmentMismatch, http.StatusBadRequest},
		{ErrCodeValidationAmountMismatch, http.StatusBadRequest},
		{ErrCodeNotFoundUser, http.StatusNotFound},
		{ErrCodeNotFoundTemplate, http.StatusNotFound},
		{ErrCodeNotFoundMembership, http.StatusNotFound},
		{ErrCodeConflictTemplateInactive, http.StatusConflict},
		{ErrCodePreconditionExpired, http.StatusPreconditionFailed},
		{ErrCodeQuotaExceeded, http.StatusBadRequest},
		{ErrCodePaymentDeclined, http.StatusPaymentRequired},
		{ErrCodeUpstreamGateway, http.StatusBadGateway},
		{ErrCodeUpstreamRateLimited, http.StatusBadGateway},
		{ErrCodeInternalStore, http.StatusInternalServerError},
		{ErrCodeInternalUnexpected, http.StatusInternalServerError},
		{ErrorCode("something_unknown"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := tc.code.HTTPStatus(); got != tc.status {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tc.code, got, tc.status)
		}
	}
}

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	inner := errors.New("disk full")
	appErr := NewAppError(ErrCodeInternalStore, "failed to flush snapshot", inner)

	if got := appErr.Error(); got != "internal_store_error: failed to flush snapshot" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(appErr, inner) {
		t.Error("expected errors.Is to find the wrapped error")
	}

	var target *AppError
	if !errors.As(error(appErr), &target) {
		t.Error("expected errors.As to match *AppError")
	}
}

func TestAppError_WithDetails(t *testing.T) {
	base := NewAppErrorWithDetails(ErrCodeQuotaExceeded, "usage limit exceeded", nil, map[string]any{
		"feature": "conversation",
	})

	enriched := base.WithDetails(map[string]any{"limit": 10})

	if enriched.Details["feature"] != "conversation" || enriched.Details["limit"] != 10 {
		t.Errorf("expected merged details, got %v", enriched.Details)
	}
	if _, ok := base.Details["limit"]; ok {
		t.Error("WithDetails mutated the original error")
	}
}
