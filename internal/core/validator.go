package core

import (
	"log/slog"

	"github.com/go-playground/validator/v10"

	"tutorpass/internal/types"
)

// ValidationError describes a single failed validation rule on a request field.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult aggregates the outcome of validating a struct.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []string
}

// IsValid reports whether the result contains no errors. Warnings do not
// affect validity.
func (r ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Validator wraps go-playground/validator to translate tag failures into the
// platform's AppError shape. Handlers call ValidateStruct on decoded request
// DTOs after DecodeJSON.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a new Validator and registers custom validation tags.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New()

	// segment validates the customer segment enum.
	_ = v.RegisterValidation("segment", func(fl validator.FieldLevel) bool {
		return types.Segment(fl.Field().String()).Valid()
	})

	// feature validates the metered feature enum.
	_ = v.RegisterValidation("feature", func(fl validator.FieldLevel) bool {
		return types.FeatureType(fl.Field().String()).Valid()
	})

	return &Validator{
		validate: v,
		logger:   logger,
	}
}

// ValidateStruct validates the given struct against its `validate` tags.
// On failure it returns a *types.AppError whose code reflects the first
// failed rule and whose details carry the full list of field errors under
// "validation_errors".
func (v *Validator) ValidateStruct(s interface{}) error {
	result := v.ValidateStructWithWarnings(s)
	if result.IsValid() {
		return nil
	}

	code := types.ErrorCode(result.Errors[0].Code)
	return types.NewAppErrorWithDetails(
		code,
		"request validation failed",
		nil,
		map[string]any{"validation_errors": result.Errors},
	)
}

// ValidateStructWithWarnings validates the struct and returns the full
// per-field breakdown instead of an error. Used by handlers that want to
// report every failure at once.
func (v *Validator) ValidateStructWithWarnings(s interface{}) ValidationResult {
	var result ValidationResult

	err := v.validate.Struct(s)
	if err == nil {
		return result
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		// Non-field error (e.g., nil or non-struct input). Treat as a
		// single missing-field failure.
		result.Errors = append(result.Errors, ValidationError{
			Field:   "",
			Code:    string(types.ErrCodeValidationMissingField),
			Message: err.Error(),
		})
		return result
	}

	for _, fe := range verrs {
		result.Errors = append(result.Errors, ValidationError{
			Field:   fe.Field(),
			Code:    string(codeForTag(fe.Tag())),
			Message: messageForTag(fe),
		})
	}

	return result
}

// codeForTag maps a validator tag to the platform error code.
func codeForTag(tag string) types.ErrorCode {
	switch tag {
	case "email":
		return types.ErrCodeValidationInvalidEmail
	case "segment":
		return types.ErrCodeValidationInvalidSegment
	case "feature":
		return types.ErrCodeValidationInvalidFeature
	default:
		return types.ErrCodeValidationMissingField
	}
}

// messageForTag produces a human-readable message for a failed rule.
func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "segment":
		return fe.Field() + " must be one of: B2C, B2B"
	case "feature":
		return fe.Field() + " must be one of: conversation, analysis"
	case "min":
		return fe.Field() + " must be at least " + fe.Param()
	case "gte":
		return fe.Field() + " must be >= " + fe.Param()
	case "gt":
		return fe.Field() + " must be > " + fe.Param()
	default:
		return fe.Field() + " failed rule: " + fe.Tag()
	}
}
