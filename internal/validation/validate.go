package validation

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// defaultPasswordMinLength applies when a password field has no minLength.
const defaultPasswordMinLength = 6

// Result is the outcome of validating a payload against a schema.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Validate checks a submission payload against a schema, field by field in
// schema order. It is pure: identical inputs always yield an identical
// result and neither argument is mutated.
//
// Per field: a required field that is absent, nil, or empty-string produces
// a single "is required" error and no further checks; an empty optional
// field is skipped entirely; otherwise the value's trimmed string form is
// checked against the field's type constraints. Multiple violated rules on
// one field each produce their own message.
func Validate(payload map[string]any, schema Schema) Result {
	var errs []string

	for _, field := range schema {
		value, present := payload[field.Name]

		if field.Spec.Required && (!present || isBlank(value)) {
			errs = append(errs, field.Name+" is required")
			continue
		}

		// Empty optional fields get no type checks. Mirrors the original
		// engine's truthiness test, so zero and false also skip.
		if !present || isFalsy(value) {
			continue
		}

		errs = append(errs, checkField(field.Name, field.Spec, stringify(value))...)
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}

// checkField dispatches on the field type and returns the rule violations
// for a single non-empty value, already trimmed to string form.
func checkField(name string, spec FieldSpec, value string) []string {
	var errs []string

	switch spec.Type {
	case FieldTypeString, FieldTypeText:
		// Length limits count characters, not bytes.
		length := utf8.RuneCountInString(value)
		if spec.MinLength != nil && length < *spec.MinLength {
			errs = append(errs, fmt.Sprintf("%s must be at least %d characters", name, *spec.MinLength))
		}
		if spec.MaxLength != nil && length > *spec.MaxLength {
			errs = append(errs, fmt.Sprintf("%s must be no more than %d characters", name, *spec.MaxLength))
		}

	case FieldTypeEmail:
		// Loose syntactic heuristic, kept as-is: '@' must be present and
		// the part after the last '@' must contain a '.'. Not RFC 5322.
		at := strings.LastIndex(value, "@")
		if at < 0 || !strings.Contains(value[at+1:], ".") {
			errs = append(errs, name+" must be a valid email address")
		}

	case FieldTypePassword:
		minLen := defaultPasswordMinLength
		if spec.MinLength != nil {
			minLen = *spec.MinLength
		}
		if utf8.RuneCountInString(value) < minLen {
			errs = append(errs, fmt.Sprintf("%s must be at least %d characters", name, minLen))
		}

	case FieldTypeDate:
		if _, err := time.Parse("2006-01-02", value); err != nil {
			errs = append(errs, name+" must be in YYYY-MM-DD format")
		}

	case FieldTypeNumber:
		num, err := strconv.ParseFloat(value, 64)
		if err != nil {
			errs = append(errs, name+" must be a number")
			break
		}
		if spec.Min != nil && num < *spec.Min {
			errs = append(errs, fmt.Sprintf("%s must be at least %s", name, formatNumber(*spec.Min)))
		}
		if spec.Max != nil && num > *spec.Max {
			errs = append(errs, fmt.Sprintf("%s must be at most %s", name, formatNumber(*spec.Max)))
		}

	case FieldTypeDropdown:
		found := false
		for _, opt := range spec.Options {
			if value == opt {
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, fmt.Sprintf("%s must be one of: %s", name, strings.Join(spec.Options, ", ")))
		}

	case FieldTypeUnknown:
		// No recognized type, no checks.
	}

	return errs
}

// isBlank reports whether a value counts as missing for a required field.
func isBlank(v any) bool {
	return v == nil || v == ""
}

// isFalsy reports whether an optional value is empty enough to skip
// validation: nil, empty string, false, numeric zero, empty collection.
func isFalsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case float64:
		return x == 0
	case int:
		return x == 0
	case int64:
		return x == 0
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	default:
		return false
	}
}

// stringify coerces a payload value to its trimmed string form for checks.
// Numbers render without a trailing ".0" so "18" stays "18".
func stringify(v any) string {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case float64:
		s = formatNumber(x)
	default:
		s = fmt.Sprintf("%v", x)
	}
	return strings.TrimSpace(s)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
