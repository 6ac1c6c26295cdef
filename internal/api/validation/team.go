package validation

import (
	"strconv"
	"strings"

	"github.com/daap14/teamup/internal/team"
)

// MaxRoleCapacity is the largest number of positions a team may open for one role.
const MaxRoleCapacity = 127

// TeamRequest mirrors the fields of a create or update team request.
type TeamRequest struct {
	ProjectName        string
	ProjectDescription string
	Expectation        string
	OpenChatURL        string
	MaxByRole          map[string]int
}

// ValidateTeamRequest validates a create or update team request. Every role
// must be present in MaxByRole.
func ValidateTeamRequest(req TeamRequest) []FieldError {
	var errs []FieldError

	errs = checkLength(errs, "projectName", req.ProjectName, 1, 20)
	errs = checkLength(errs, "projectDescription", req.ProjectDescription, 1, 500)
	errs = checkLength(errs, "expectation", req.Expectation, 1, 200)

	chat := strings.TrimSpace(req.OpenChatURL)
	if chat == "" {
		errs = append(errs, FieldError{Field: "openChatUrl", Message: "openChatUrl is required"})
	} else if len(chat) > 100 || !isHTTPURL(chat) {
		errs = append(errs, FieldError{Field: "openChatUrl", Message: "openChatUrl must be an http(s) URL of at most 100 characters"})
	}

	for _, r := range team.Roles {
		field := capacityField(r)
		n, ok := req.MaxByRole[string(r)]
		switch {
		case !ok:
			errs = append(errs, FieldError{Field: field, Message: field + " is required"})
		case n < 0 || n > MaxRoleCapacity:
			errs = append(errs, FieldError{Field: field, Message: field + " must be between 0 and " + strconv.Itoa(MaxRoleCapacity)})
		}
	}

	return errs
}

// ValidateProjectURL validates the deliverable URL sent when ending a
// project. An empty URL is valid and means the team disbands.
func ValidateProjectURL(projectURL string) []FieldError {
	projectURL = strings.TrimSpace(projectURL)
	if projectURL == "" {
		return nil
	}
	if len(projectURL) > 1000 || !isHTTPURL(projectURL) {
		return []FieldError{{Field: "projectUrl", Message: "projectUrl must be an http(s) URL of at most 1000 characters"}}
	}
	return nil
}

// capacityField returns the JSON field name of role's maximum, e.g. "designerMaxCnt".
func capacityField(r team.Role) string {
	return strings.ToLower(string(r)) + "MaxCnt"
}
