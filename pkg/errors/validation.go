package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationCategory identifies the source of a validation error.
type ValidationCategory string

const (
	// ValidationCategoryConfig indicates a settings validation error.
	ValidationCategoryConfig ValidationCategory = "config"

	// ValidationCategorySourceMap indicates a source map file error.
	ValidationCategorySourceMap ValidationCategory = "sourcemap"
)

// ValidationError represents a configuration validation failure.
//
// Fields:
//   - Category: Source of validation ("config", "sourcemap")
//   - Field: Name of the invalid setting, e.g. "jobs"
//   - Message: Description of what's wrong
//   - Expected: What the valid value should look like
//   - ValidKeys: List of valid options (for enum-like fields)
//   - Hint: Actionable hint for fixing the error
//
// Example:
//
//	return &ValidationError{
//	    Category:  ValidationCategoryConfig,
//	    Field:     "check_format",
//	    Message:   "unsupported format \"xml\"",
//	    ValidKeys: []string{"ndjson", "tsv", "json", "csv", "table"},
//	}
type ValidationError struct {
	// Category identifies the validation source.
	Category ValidationCategory

	// Field is the name of the field that failed validation.
	Field string

	// Message describes what is wrong with the field.
	Message string

	// Expected describes what a valid value should look like.
	Expected string

	// ValidKeys lists valid options for enum-like fields.
	ValidKeys []string

	// Hint provides an actionable suggestion for fixing the error.
	Hint string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// VerboseError returns a detailed error message with expected values and hints.
func (e *ValidationError) VerboseError() string {
	var sb strings.Builder
	sb.WriteString(e.Error())

	if e.Expected != "" {
		sb.WriteString(fmt.Sprintf("\n    Expected: %s", e.Expected))
	}
	if len(e.ValidKeys) > 0 {
		sb.WriteString(fmt.Sprintf("\n    Valid keys: %s", strings.Join(e.ValidKeys, ", ")))
	}
	if e.Hint != "" {
		sb.WriteString(fmt.Sprintf("\n    Hint: %s", e.Hint))
	}

	return sb.String()
}

// IsValidationError checks if err is a ValidationError and returns it.
func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// NewConfigValidationError creates a ValidationError for configuration issues.
//
// Parameters:
//   - field: The setting name that failed validation
//   - message: Description of the error
//
// Returns:
//   - *ValidationError: New validation error with config category
func NewConfigValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Category: ValidationCategoryConfig,
		Field:    field,
		Message:  message,
	}
}
