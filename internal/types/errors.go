package types

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Complete error code constants.
// All handlers MUST use these constants instead of hardcoded strings.
const (
	// Validation (400)
	ErrCodeValidationInvalidJSON    ErrorCode = "validation_invalid_json"
	ErrCodeValidationMissingField   ErrorCode = "validation_missing_required_field"
	ErrCodeValidationInvalidEmail   ErrorCode = "validation_invalid_email"
	ErrCodeValidationInvalidFeature ErrorCode = "validation_invalid_feature"
	ErrCodeValidationInvalidSegment ErrorCode = "validation_invalid_segment"
	ErrCodeValidationSegmentMismatch ErrorCode = "validation_segment_mismatch"
	ErrCodeValidationPriceMissing   ErrorCode = "validation_price_missing"
	ErrCodeValidationAmountMismatch ErrorCode = "validation_amount_mismatch"

	// Not Found (404)
	ErrCodeNotFoundUser       ErrorCode = "not_found_user"
	ErrCodeNotFoundTemplate   ErrorCode = "not_found_template"
	ErrCodeNotFoundMembership ErrorCode = "not_found_membership"

	// Conflict (409)
	ErrCodeConflictTemplateInactive ErrorCode = "conflict_template_inactive"

	// Precondition (412)
	ErrCodePreconditionExpired ErrorCode = "precondition_membership_expired"

	// Quota (400)
	ErrCodeQuotaExceeded ErrorCode = "quota_exceeded"

	// Payment (402)
	ErrCodePaymentDeclined ErrorCode = "payment_declined"

	// Internal/Upstream (500/502)
	ErrCodeInternalStore       ErrorCode = "internal_store_error"
	ErrCodeInternalUnexpected  ErrorCode = "internal_unexpected_error"
	ErrCodeUpstreamGateway     ErrorCode = "upstream_payment_gateway_unavailable"
	ErrCodeUpstreamRateLimited ErrorCode = "upstream_rate_limited"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Used by the API layer to translate AppErrors into HTTP responses.
// Returns 500 for unrecognized error codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest // 400
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound // 404
	case strings.HasPrefix(s, "conflict_"):
		return http.StatusConflict // 409
	case strings.HasPrefix(s, "precondition_"):
		return http.StatusPreconditionFailed // 412
	case s == string(ErrCodeQuotaExceeded):
		return http.StatusBadRequest // 400
	case s == string(ErrCodePaymentDeclined):
		return http.StatusPaymentRequired // 402
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway // 502
	case strings.HasPrefix(s, "internal_"):
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// AppError is the standard application error type used throughout the platform.
// All domain and handler errors should be expressed as AppError to enable
// consistent error formatting, HTTP status mapping, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error with the provided details merged in.
// This is useful for adding context without mutating the original error.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error. This is the standard constructor for domain errors.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError with the given code, message,
// underlying error, and structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}
