package kinds

// rules.go provides the building blocks for per-kind validation rule sets.
//
// Rules are independent predicates over a mapped record. Validation runs
// every rule and collects every failure, never short-circuiting, so an
// operator sees all of a record's problems at once. Each failing rule
// contributes exactly one diagnostic.

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ssgtools/tpconsole/internal/mapping"
)

var validate = validator.New()

// Rule is one independent check against a mapped record.
// Check returns "" on pass or the diagnostic message on failure.
type Rule struct {
	Field string
	Check func(rec mapping.Record) string
}

// runRules applies every rule and collects every failure.
func runRules(rec mapping.Record, rules []Rule) mapping.Verdict {
	var errs []mapping.Diagnostic
	for _, r := range rules {
		if msg := r.Check(rec); msg != "" {
			errs = append(errs, mapping.Diagnostic{Field: r.Field, Message: msg})
		}
	}
	return mapping.Verdict{Valid: len(errs) == 0, Errors: errs}
}

// required fails when the path is absent or holds a blank string.
// This is a record-level presence check, distinct from the mapper's
// required-column check: it also catches programmatically built records
// and values nested under the wrong container.
func required(field, msg string) Rule {
	return Rule{Field: field, Check: func(rec mapping.Record) string {
		v, ok := mapping.GetPath(rec, field)
		if !ok {
			return msg
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			return msg
		}
		return ""
	}}
}

// email fails when a present value is not a valid address. Absent values
// pass; presence is the job of a separate required rule so a missing
// field never yields two diagnostics.
func email(field string) Rule {
	return Rule{Field: field, Check: func(rec mapping.Record) string {
		s := mapping.GetString(rec, field)
		if s == "" {
			return ""
		}
		if err := validate.Var(s, "email"); err != nil {
			return "Invalid email format"
		}
		return ""
	}}
}

// uen fails when a present value is not a 9-10 character alphanumeric
// Unique Entity Number.
func uen(field string) Rule {
	return Rule{Field: field, Check: func(rec mapping.Record) string {
		s := mapping.GetString(rec, field)
		if s == "" {
			return ""
		}
		if err := validate.Var(s, "alphanum,min=9,max=10"); err != nil {
			return "Invalid UEN format"
		}
		return ""
	}}
}

// numberRange fails when a present numeric value falls outside the closed
// interval [min, max], or when the value never coerced to a number.
func numberRange(field string, min, max float64, msg string) Rule {
	return Rule{Field: field, Check: func(rec mapping.Record) string {
		v, ok := mapping.GetPath(rec, field)
		if !ok {
			return ""
		}
		n, isNum := v.(float64)
		if !isNum || n < min || n > max {
			return msg
		}
		return ""
	}}
}

// dateOrder fails when both dates are present and the earlier path sorts
// after the later one. Dates are canonical zero-padded YYYYMMDD, so
// lexical comparison is safe.
func dateOrder(field, earlier, later, msg string) Rule {
	return Rule{Field: field, Check: func(rec mapping.Record) string {
		from := mapping.GetString(rec, earlier)
		to := mapping.GetString(rec, later)
		if from == "" || to == "" {
			return ""
		}
		if from > to {
			return msg
		}
		return ""
	}}
}
