package notification

import (
	"fmt"

	"github.com/google/uuid"
)

// Batch collects notification intents while a transaction is running. It is
// written to the outbox in the same transaction, so nothing is delivered
// unless the state change commits.
type Batch struct {
	items []Notification
}

// Items returns the collected notifications.
func (b *Batch) Items() []Notification {
	return b.items
}

// Len returns the number of collected notifications.
func (b *Batch) Len() int {
	return len(b.items)
}

func (b *Batch) add(kind Kind, teamID uuid.UUID, title, body string, recipients ...uuid.UUID) {
	for _, r := range recipients {
		tid := teamID
		b.items = append(b.items, Notification{
			Kind:        kind,
			RecipientID: r,
			TeamID:      &tid,
			Title:       title,
			Body:        body,
		})
	}
}

// OfferReceived tells recipient that a new offer arrived. byTeam is true when
// the team leader made the offer.
func (b *Batch) OfferReceived(recipient, teamID uuid.UUID, projectName string, byTeam bool) {
	if byTeam {
		b.add(KindOfferReceived, teamID, "New team offer",
			fmt.Sprintf("Team %s invited you to join.", projectName), recipient)
		return
	}
	b.add(KindOfferReceived, teamID, "New application",
		fmt.Sprintf("Someone applied to %s.", projectName), recipient)
}

// OfferDeclined tells the initiator of an offer that it was declined.
func (b *Batch) OfferDeclined(recipient, teamID uuid.UUID, projectName string) {
	b.add(KindOfferDeclined, teamID, "Offer declined",
		fmt.Sprintf("Your offer concerning %s was declined.", projectName), recipient)
}

// MemberJoined tells the new member and the rest of the team about a join.
func (b *Batch) MemberJoined(joiner uuid.UUID, joinerName string, team []uuid.UUID, teamID uuid.UUID, projectName string) {
	b.add(KindTeamMemberJoined, teamID, "Welcome aboard",
		fmt.Sprintf("You joined %s.", projectName), joiner)
	b.add(KindTeamMemberJoined, teamID, "New teammate",
		fmt.Sprintf("%s joined %s.", joinerName, projectName), without(team, joiner)...)
}

// MemberFired tells the removed member and the remaining team.
func (b *Batch) MemberFired(fired uuid.UUID, firedName string, team []uuid.UUID, teamID uuid.UUID, projectName string) {
	b.add(KindTeamMemberFired, teamID, "Removed from team",
		fmt.Sprintf("You were removed from %s.", projectName), fired)
	b.add(KindTeamMemberFired, teamID, "Teammate removed",
		fmt.Sprintf("%s was removed from %s.", firedName, projectName), without(team, fired)...)
}

// MemberQuit tells the remaining team that a member left.
func (b *Batch) MemberQuit(quitter uuid.UUID, quitterName string, team []uuid.UUID, teamID uuid.UUID, projectName string) {
	b.add(KindTeamMemberQuit, teamID, "Teammate left",
		fmt.Sprintf("%s left %s.", quitterName, projectName), without(team, quitter)...)
}

// ProfileUpdated tells every member except the editor that the team changed.
func (b *Batch) ProfileUpdated(editor uuid.UUID, team []uuid.UUID, teamID uuid.UUID, projectName string) {
	b.add(KindTeamProfileUpdated, teamID, "Team updated",
		fmt.Sprintf("The profile of %s was updated.", projectName), without(team, editor)...)
}

// TeamIncomplete tells every member that the team disbanded.
func (b *Batch) TeamIncomplete(team []uuid.UUID, teamID uuid.UUID, projectName string) {
	b.add(KindTeamIncomplete, teamID, "Team disbanded",
		fmt.Sprintf("%s was disbanded.", projectName), team...)
}

// TeamComplete tells every member that the project was completed.
func (b *Batch) TeamComplete(team []uuid.UUID, teamID uuid.UUID, projectName string) {
	b.add(KindTeamComplete, teamID, "Project complete",
		fmt.Sprintf("%s was completed. Leave a review for your teammates.", projectName), team...)
}

func without(ids []uuid.UUID, skip uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != skip {
			out = append(out, id)
		}
	}
	return out
}
