package form

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Rule checks one field value and returns a message, or "" when the value is fine
type Rule func(value string) string

// Rules maps field names to their rule
type Rules map[string]Rule

var validate = validator.New()

func check(value any, tag string) bool {
	return validate.Var(value, tag) == nil
}

// Chain returns the message of the first rule that fails
func Chain(rules ...Rule) Rule {
	return func(value string) string {
		for _, r := range rules {
			if msg := r(value); msg != "" {
				return msg
			}
		}
		return ""
	}
}

// Required rejects blank values
func Required(msg string) Rule {
	return func(value string) string {
		if !check(strings.TrimSpace(value), "required") {
			return msg
		}
		return ""
	}
}

// MinLength rejects values shorter than n characters. Empty values pass; pair with Required.
func MinLength(n int, msg string) Rule {
	tag := fmt.Sprintf("min=%d", n)
	return func(value string) string {
		if value != "" && !check(value, tag) {
			return msg
		}
		return ""
	}
}

// MaxLength rejects values longer than n characters
func MaxLength(n int, msg string) Rule {
	tag := fmt.Sprintf("max=%d", n)
	return func(value string) string {
		if !check(value, tag) {
			return msg
		}
		return ""
	}
}

// Numeric rejects values that do not parse as a finite number, so ".5", "5."
// and "1e2" pass. Empty values pass.
func Numeric(msg string) Rule {
	return func(value string) string {
		value = strings.TrimSpace(value)
		if value == "" {
			return ""
		}
		n, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return msg
		}
		return ""
	}
}

// Integer rejects values that are not whole numbers. Empty values pass.
func Integer(msg string) Rule {
	return func(value string) string {
		value = strings.TrimSpace(value)
		if value == "" {
			return ""
		}
		if _, err := strconv.Atoi(value); err != nil {
			return msg
		}
		return ""
	}
}

// GreaterThan rejects numbers not strictly above min. Empty and non-numeric values pass.
func GreaterThan(min float64, msg string) Rule {
	tag := "gt=" + strconv.FormatFloat(min, 'f', -1, 64)
	return func(value string) string {
		n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return ""
		}
		if !check(n, tag) {
			return msg
		}
		return ""
	}
}

// Between rejects whole numbers outside [min, max]. Empty and non-integer values pass.
func Between(min, max int, msg string) Rule {
	tag := fmt.Sprintf("gte=%d,lte=%d", min, max)
	return func(value string) string {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return ""
		}
		if !check(n, tag) {
			return msg
		}
		return ""
	}
}

// OneOf rejects values that are not among options
func OneOf(options []string, msg string) Rule {
	return func(value string) string {
		if !slices.Contains(options, strings.TrimSpace(value)) {
			return msg
		}
		return ""
	}
}
