package registry

import (
	"fmt"
	"strings"
)

// Severity classifies a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding produced by metadata validation.
type Issue struct {
	Severity Severity `json:"severity"`
	Field    string   `json:"field"`
	Message  string   `json:"message"`
}

// ValidationResult is the outcome of validating one metadata document.
type ValidationResult struct {
	// Valid reports whether the metadata passed: no errors in lenient
	// mode, no errors and no warnings in strict mode.
	Valid bool `json:"valid"`

	// Errors are failures that make the metadata unacceptable.
	Errors []Issue `json:"errors,omitempty"`

	// Warnings are deficiencies that lower the score but do not block
	// registration in lenient mode.
	Warnings []Issue `json:"warnings,omitempty"`

	// Score is max(0, 100 - errors*12.5 - warnings*2.5).
	Score float64 `json:"score"`
}

// requiredFields must be present and non-empty in every metadata document.
var requiredFields = []string{"id", "name", "version", "capabilities", "protocols"}

// requiredProtocolFamilies are the protocol families a complete agent is
// expected to cover. A family counts as represented when any protocol
// identifier starts with the family name.
var requiredProtocolFamilies = []string{"messaging", "discovery", "lifecycle", "telemetry", "control"}

// Validator checks raw metadata documents against the registration rules.
// The zero value is a lenient validator.
type Validator struct {
	// Strict requires zero warnings in addition to zero errors.
	Strict bool
}

// ValidateMetadata scores a raw metadata document. It is a pure function
// of its input; the validator holds no state.
func (v *Validator) ValidateMetadata(raw map[string]interface{}) ValidationResult {
	var result ValidationResult

	for _, field := range requiredFields {
		if isMissing(raw[field]) {
			result.Errors = append(result.Errors, Issue{
				Severity: SeverityError,
				Field:    field,
				Message:  fmt.Sprintf("required field %q is missing", field),
			})
		}
	}

	caps := stringSlice(raw["capabilities"])
	if _, present := raw["capabilities"]; present && len(caps) == 0 {
		result.Errors = append(result.Errors, Issue{
			Severity: SeverityError,
			Field:    "capabilities",
			Message:  "capabilities must not be empty",
		})
	}

	protocols := stringSlice(raw["protocols"])
	for _, family := range requiredProtocolFamilies {
		if !coversFamily(protocols, family) {
			result.Warnings = append(result.Warnings, Issue{
				Severity: SeverityWarning,
				Field:    "protocols",
				Message:  fmt.Sprintf("protocol family %q not represented", family),
			})
		}
	}

	if impls, ok := raw["implementations"].(map[string]interface{}); !ok || len(impls) == 0 {
		result.Warnings = append(result.Warnings, Issue{
			Severity: SeverityWarning,
			Field:    "implementations",
			Message:  "no implementations listed",
		})
	}

	score := 100.0 - float64(len(result.Errors))*12.5 - float64(len(result.Warnings))*2.5
	if score < 0 {
		score = 0
	}
	result.Score = score

	if v.Strict {
		result.Valid = len(result.Errors) == 0 && len(result.Warnings) == 0
	} else {
		result.Valid = len(result.Errors) == 0
	}
	return result
}

// isMissing reports whether a raw field value counts as absent.
func isMissing(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}

// stringSlice coerces a raw field into a string slice. Both []string and
// JSON-decoded []interface{} shapes are accepted.
func stringSlice(v interface{}) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// coversFamily reports whether any protocol identifier belongs to a family.
func coversFamily(protocols []string, family string) bool {
	for _, p := range protocols {
		if strings.HasPrefix(strings.ToLower(p), family) {
			return true
		}
	}
	return false
}
