package notification

import (
	"time"

	"github.com/google/uuid"
)

// Kind names the state transition a notification reports.
type Kind string

const (
	KindOfferReceived      Kind = "OFFER_RECEIVED"
	KindOfferDeclined      Kind = "OFFER_DECLINED"
	KindTeamMemberJoined   Kind = "TEAM_MEMBER_JOINED"
	KindTeamMemberFired    Kind = "TEAM_MEMBER_FIRED"
	KindTeamMemberQuit     Kind = "TEAM_MEMBER_QUIT"
	KindTeamProfileUpdated Kind = "TEAM_PROFILE_UPDATED"
	KindTeamIncomplete     Kind = "TEAM_INCOMPLETE"
	KindTeamComplete       Kind = "TEAM_COMPLETE"
)

// Notification represents a row in the notifications table. Rows double as
// the outbox: DispatchedAt stays nil until a publisher accepted the message.
type Notification struct {
	ID           uuid.UUID
	Kind         Kind
	RecipientID  uuid.UUID
	TeamID       *uuid.UUID
	Title        string
	Body         string
	IsRead       bool
	DispatchedAt *time.Time
	Attempts     int
	CreatedAt    time.Time
}
