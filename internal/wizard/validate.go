package wizard

import (
	"fmt"
	"sort"
	"strings"
)

// FieldErrors maps field names to human-readable validation messages.
type FieldErrors map[string]string

// Result is the outcome of validating one step's fields.
type Result struct {
	IsValid     bool
	FieldErrors FieldErrors
}

// Policy validates the draft fields belonging to a step. The rule content is
// injected; the controller only consumes pass/fail plus the error map.
type Policy interface {
	ValidateStep(step int, draft map[string]any) Result
}

// RequiredFieldsPolicy is the default policy: every required field for the
// step must be present and non-blank.
type RequiredFieldsPolicy struct{}

// ValidateStep reports missing required fields for the step.
func (RequiredFieldsPolicy) ValidateStep(step int, draft map[string]any) Result {
	errs := FieldErrors{}
	for _, field := range RequiredFields(step) {
		if isBlank(draft[field]) {
			errs[field] = fmt.Sprintf("%s is required", field)
		}
	}
	return Result{IsValid: len(errs) == 0, FieldErrors: errs}
}

func isBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	default:
		return false
	}
}

// FirstInvalidField picks the field the UI should focus, preferring the
// caller-supplied order and falling back to any remaining error.
func FirstInvalidField(errs FieldErrors, focusOrder []string) string {
	for _, field := range focusOrder {
		if _, ok := errs[field]; ok {
			return field
		}
	}
	for field := range errs {
		return field
	}
	return ""
}

const maxSummaryFields = 5

// Summary renders an aggregated, truncated message listing invalid fields.
func Summary(errs FieldErrors) string {
	if len(errs) == 0 {
		return ""
	}
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	if len(fields) > maxSummaryFields {
		fields = append(fields[:maxSummaryFields], "and more")
	}
	return "Please correct: " + strings.Join(fields, ", ")
}
