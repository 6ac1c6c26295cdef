package validation

import (
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func checkLength(errs []FieldError, field, value string, min, max int) []FieldError {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	switch {
	case n == 0 && min > 0:
		return append(errs, FieldError{Field: field, Message: field + " is required"})
	case n < min || n > max:
		return append(errs, FieldError{Field: field, Message: field + " must be between " + strconv.Itoa(min) + " and " + strconv.Itoa(max) + " characters"})
	}
	return errs
}

// isHTTPURL reports whether s is an absolute http or https URL.
func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
