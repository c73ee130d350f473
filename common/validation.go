package common

import (
	"fmt"
	"strings"
)

// ValidationError represents a single validation message for a record
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RecordValidationResult holds validation results for a single record.
// Errors block the record, warnings are advisory.
type RecordValidationResult struct {
	RowNumber int               `json:"row_number"`
	RecordID  string            `json:"record_id,omitempty"`
	Valid     bool              `json:"valid"`
	Errors    []ValidationError `json:"errors,omitempty"`
	Warnings  []ValidationError `json:"warnings,omitempty"`
}

// AddError adds a blocking validation error to the result
func (r *RecordValidationResult) AddError(field, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// AddWarning adds a non-blocking validation warning to the result
func (r *RecordValidationResult) AddWarning(field, message string) {
	r.Warnings = append(r.Warnings, ValidationError{
		Field:   field,
		Message: message,
	})
}

// ErrorMessages returns the error messages in the order they were added
func (r *RecordValidationResult) ErrorMessages() []string {
	return messages(r.Errors)
}

// WarningMessages returns the warning messages in the order they were added
func (r *RecordValidationResult) WarningMessages() []string {
	return messages(r.Warnings)
}

func messages(list []ValidationError) []string {
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, e.Message)
	}
	return out
}

// ValidateRequired checks if a string field is not empty
func ValidateRequired(field, value string) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s is required", field),
		}
	}
	return nil
}

// ValidateEnumFold checks case-insensitively if value is in allowed list
func ValidateEnumFold(field, value string, allowed []string) *ValidationError {
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSpace(value), a) {
			return nil
		}
	}
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("%s should be one of: %s", field, strings.Join(allowed, ", ")),
	}
}
