package form

import (
	"fmt"
	"unicode/utf8"

	"valuation-backend/internal/catalog"
)

const (
	RuleRequired  = "required"
	RulePattern   = "pattern"
	RuleMinLength = "minLength"
	RuleMaxLength = "maxLength"
	RuleNumber    = "number"
	RuleMin       = "min"
	RuleMax       = "max"
)

// ValidationError is a field-level failure. It never blocks editing of other
// fields.
type ValidationError struct {
	FieldID string `json:"fieldId"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.FieldID, e.Message)
}

// validate runs the validators of one control in order: required, pattern,
// length, numeric bounds. Disabled controls are not validated.
func validate(c *Control) []ValidationError {
	if !c.Kind.valued() || c.Disabled || c.def == nil {
		return nil
	}

	def := c.def
	fail := func(rule, format string, args ...any) ValidationError {
		return ValidationError{FieldID: c.ID, Rule: rule, Message: fmt.Sprintf(format, args...)}
	}

	if catalog.IsEmpty(c.Value) {
		if def.IsRequired {
			return []ValidationError{fail(RuleRequired, "%s is required", label(def))}
		}
		return nil
	}

	var errs []ValidationError
	s := catalog.ToString(c.Value)

	if c.pattern != nil && !c.pattern.MatchString(s) {
		errs = append(errs, fail(RulePattern, "%s has an invalid format", label(def)))
	}

	if v := def.Validation; v != nil {
		n := utf8.RuneCountInString(s)
		if v.MinLength != nil && n < *v.MinLength {
			errs = append(errs, fail(RuleMinLength, "%s must be at least %d characters", label(def), *v.MinLength))
		}
		if v.MaxLength != nil && n > *v.MaxLength {
			errs = append(errs, fail(RuleMaxLength, "%s must be at most %d characters", label(def), *v.MaxLength))
		}
	}

	needsNumber := def.FieldType.IsNumeric() || (def.Validation != nil && (def.Validation.Min != nil || def.Validation.Max != nil))
	if !needsNumber {
		return errs
	}

	num, ok := catalog.ToNumber(c.Value)
	if !ok {
		return append(errs, fail(RuleNumber, "%s must be a number", label(def)))
	}
	if v := def.Validation; v != nil {
		if v.Min != nil && num < *v.Min {
			errs = append(errs, fail(RuleMin, "%s must be at least %s", label(def), catalog.ToString(*v.Min)))
		}
		if v.Max != nil && num > *v.Max {
			errs = append(errs, fail(RuleMax, "%s must be at most %s", label(def), catalog.ToString(*v.Max)))
		}
	}

	return errs
}

func label(def *catalog.FieldDefinition) string {
	if def.UIDisplayName != "" {
		return def.UIDisplayName
	}
	if def.TechnicalName != "" {
		return def.TechnicalName
	}
	return def.FieldID
}
