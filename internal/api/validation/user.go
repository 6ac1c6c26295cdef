package validation

import (
	"strings"

	"github.com/daap14/teamup/internal/team"
)

// CreateUserRequest mirrors the fields needed for create user validation.
type CreateUserRequest struct {
	Name     string
	Position string
}

// ValidateCreateUserRequest validates the fields of a create user request.
// Position is optional.
func ValidateCreateUserRequest(req CreateUserRequest) []FieldError {
	var errs []FieldError

	errs = checkLength(errs, "name", req.Name, 1, 255)

	if strings.TrimSpace(req.Position) != "" {
		errs = checkRole(errs, "position", req.Position)
	}

	return errs
}

// ValidateRole validates a required role field.
func ValidateRole(field, value string) []FieldError {
	if strings.TrimSpace(value) == "" {
		return []FieldError{{Field: field, Message: field + " is required"}}
	}
	return checkRole(nil, field, value)
}

func checkRole(errs []FieldError, field, value string) []FieldError {
	if _, err := team.ParseRole(value); err != nil {
		return append(errs, FieldError{Field: field, Message: field + " must be one of DESIGNER, BACKEND, FRONTEND, MANAGER"})
	}
	return errs
}
