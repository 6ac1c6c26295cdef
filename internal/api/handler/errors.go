package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/daap14/teamup/internal/api/middleware"
	"github.com/daap14/teamup/internal/api/response"
	"github.com/daap14/teamup/internal/auth"
	"github.com/daap14/teamup/internal/coordinator"
	"github.com/daap14/teamup/internal/database"
	"github.com/daap14/teamup/internal/membership"
	"github.com/daap14/teamup/internal/notification"
	"github.com/daap14/teamup/internal/offer"
	"github.com/daap14/teamup/internal/team"
)

// retryAfter is advertised when a team stays locked past the lock timeout.
const retryAfter = time.Second

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

var errorMappings = []errorMapping{
	{auth.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND", "User not found"},
	{team.ErrTeamNotFound, http.StatusNotFound, "TEAM_NOT_FOUND", "Team not found"},
	{membership.ErrCurrentTeamNotFound, http.StatusNotFound, "CURRENT_TEAM_NOT_FOUND", "You are not a member of any team"},
	{membership.ErrTeamMemberNotFound, http.StatusNotFound, "TEAM_MEMBER_NOT_FOUND", "Team member not found"},
	{offer.ErrOfferNotFound, http.StatusNotFound, "OFFER_NOT_FOUND", "Offer not found"},
	{notification.ErrNotificationNotFound, http.StatusNotFound, "NOTIFICATION_NOT_FOUND", "Notification not found"},
	{coordinator.ErrRequestForbidden, http.StatusForbidden, "REQUEST_FORBIDDEN", "Only the team leader may do this"},
	{team.ErrPositionUnavailable, http.StatusConflict, "TEAM_POSITION_UNAVAILABLE", "The position is not available"},
	{team.ErrTeamConcluded, http.StatusConflict, "TEAM_CONCLUDED", "The team has already concluded"},
	{team.ErrInvalidRole, http.StatusBadRequest, "INVALID_ROLE", "Unknown role"},
	{membership.ErrLeaderActionForbidden, http.StatusConflict, "TEAM_LEADER_UNAVAILABLE", "The team leader cannot be fired or quit"},
	{membership.ErrExistingCurrentTeam, http.StatusConflict, "EXISTING_CURRENT_TEAM", "The user already belongs to a team"},
	{membership.ErrNotInProgress, http.StatusConflict, "MEMBERSHIP_CONCLUDED", "The membership has already ended"},
	{coordinator.ErrNonExistingPosition, http.StatusConflict, "NON_EXISTING_POSITION", "Choose a position before forming a team"},
}

// writeCoordinatorError maps a domain error to its HTTP response. Errors
// without a mapping are logged and reported as 500 with failMessage.
func writeCoordinatorError(w http.ResponseWriter, r *http.Request, err error, failMessage string) {
	requestID := middleware.GetRequestID(r.Context())

	var capErr *team.CapacityError
	if errors.As(err, &capErr) {
		response.ErrWithDetails(w, http.StatusConflict,
			strings.ToUpper(string(capErr.Role))+"_CNT_UPDATE_UNAVAILABLE",
			"A role capacity cannot be lowered below its current headcount",
			map[string]any{"role": capErr.Role, "current": capErr.Current, "requested": capErr.Requested},
			requestID)
		return
	}

	if errors.Is(err, database.ErrCurrentlyUnavailable) {
		response.Unavailable(w, retryAfter, "CURRENTLY_UNAVAILABLE", "The team is busy, please retry", requestID)
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			response.Err(w, m.status, m.code, m.message, requestID)
			return
		}
	}

	slog.Error(strings.ToLower(failMessage), "error", err, "requestId", requestID)
	response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", failMessage, requestID)
}
