package coordinator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/teamup/internal/auth"
	"github.com/daap14/teamup/internal/coordinator"
	"github.com/daap14/teamup/internal/membership"
	"github.com/daap14/teamup/internal/notification"
	"github.com/daap14/teamup/internal/offer"
	"github.com/daap14/teamup/internal/team"
)

type fixture struct {
	store *memStore
	svc   *coordinator.Service
}

func newFixture() *fixture {
	store := newMemStore()
	return &fixture{store: store, svc: coordinator.New(store, nil)}
}

func rolePtr(r team.Role) *team.Role { return &r }

func capacity(designer, backend, frontend, manager int) map[team.Role]int {
	return map[team.Role]int{
		team.RoleDesigner: designer,
		team.RoleBackend:  backend,
		team.RoleFrontend: frontend,
		team.RoleManager:  manager,
	}
}

// seekingUser adds a user with a position who is looking for a team.
func (f *fixture) seekingUser(name string, role team.Role) uuid.UUID {
	return f.store.addUser(name, rolePtr(role), true)
}

// formTeam creates a team led by a new user holding leaderRole.
func (f *fixture) formTeam(t *testing.T, leaderRole team.Role, maxByRole map[team.Role]int) (leaderID, teamID uuid.UUID) {
	t.Helper()
	leaderID = f.seekingUser("leader", leaderRole)
	detail, err := f.svc.FormTeam(context.Background(), leaderID, coordinator.TeamInput{
		Profile:   team.Profile{ProjectName: "teamup"},
		MaxByRole: maxByRole,
	})
	require.NoError(t, err)
	return leaderID, detail.Team.ID
}

// join puts a new user with role into the team through an accepted application.
func (f *fixture) join(t *testing.T, leaderID, teamID uuid.UUID, role team.Role) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	userID := f.seekingUser("member", role)
	o, err := f.svc.OfferByUser(ctx, userID, teamID, role)
	require.NoError(t, err)
	_, err = f.svc.Decide(ctx, leaderID, o.ID, offer.SideTeamLeader, true)
	require.NoError(t, err)
	return userID
}

func (f *fixture) recipients(kind notification.Kind) []uuid.UUID {
	var out []uuid.UUID
	for _, n := range f.store.notifications() {
		if n.Kind == kind {
			out = append(out, n.RecipientID)
		}
	}
	return out
}

func assertCapacityInvariant(t *testing.T, tm team.Team) {
	t.Helper()
	for _, r := range team.Roles {
		s := tm.Capacity.Slot(r)
		assert.LessOrEqual(t, s.Current, s.Max, "role %s over capacity", r)
		assert.GreaterOrEqual(t, s.Current, 0, "role %s below zero", r)
	}
}

func activeCount(ms []membership.Membership) int {
	n := 0
	for _, m := range ms {
		if m.IsActive() {
			n++
		}
	}
	return n
}

// --- FormTeam ---

func TestFormTeam_LeaderTakesOwnPosition(t *testing.T) {
	f := newFixture()

	leaderID, teamID := f.formTeam(t, team.RoleBackend, capacity(1, 2, 1, 1))

	tm := f.store.team(teamID)
	assert.Equal(t, 1, tm.Capacity.Slot(team.RoleBackend).Current)
	assert.Equal(t, 0, tm.Capacity.Slot(team.RoleDesigner).Current)
	assert.True(t, tm.IsRecruiting)
	assert.False(t, f.store.user(leaderID).IsSeekingTeam)

	ms := f.store.memberships(leaderID)
	require.Len(t, ms, 1)
	assert.True(t, ms[0].IsLeader)
	assert.Equal(t, membership.StatusProgress, ms[0].Status)
	assert.Equal(t, team.RoleBackend, ms[0].Role)
}

func TestFormTeam_LeaderFillsOnlyPosition(t *testing.T) {
	f := newFixture()

	_, teamID := f.formTeam(t, team.RoleManager, capacity(0, 0, 0, 1))

	assert.False(t, f.store.team(teamID).IsRecruiting)
}

func TestFormTeam_WithoutPosition(t *testing.T) {
	f := newFixture()
	userID := f.store.addUser("nobody", nil, true)

	_, err := f.svc.FormTeam(context.Background(), userID, coordinator.TeamInput{MaxByRole: capacity(1, 1, 1, 1)})

	assert.ErrorIs(t, err, coordinator.ErrNonExistingPosition)
	assert.Empty(t, f.store.memberships(userID))
}

func TestFormTeam_PositionWithoutCapacity(t *testing.T) {
	f := newFixture()
	userID := f.seekingUser("designer", team.RoleDesigner)

	_, err := f.svc.FormTeam(context.Background(), userID, coordinator.TeamInput{MaxByRole: capacity(0, 1, 1, 1)})

	assert.ErrorIs(t, err, team.ErrPositionUnavailable)
	assert.Empty(t, f.store.memberships(userID))
}

func TestFormTeam_ExistingCurrentTeam(t *testing.T) {
	f := newFixture()
	leaderID, _ := f.formTeam(t, team.RoleBackend, capacity(1, 1, 1, 1))

	_, err := f.svc.FormTeam(context.Background(), leaderID, coordinator.TeamInput{MaxByRole: capacity(1, 1, 1, 1)})

	assert.ErrorIs(t, err, membership.ErrExistingCurrentTeam)
	assert.Len(t, f.store.memberships(leaderID), 1)
}

func TestFormTeam_UnknownAndRevokedUser(t *testing.T) {
	f := newFixture()
	revoked := f.seekingUser("gone", team.RoleBackend)
	f.store.revokeUser(revoked)

	for _, id := range []uuid.UUID{uuid.New(), revoked} {
		_, err := f.svc.FormTeam(context.Background(), id, coordinator.TeamInput{MaxByRole: capacity(1, 1, 1, 1)})
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	}
}

// --- UpdateTeam ---

func TestUpdateTeam_NonLeaderForbidden(t *testing.T) {
	f := newFixture()
	leaderID, teamID := f.formTeam(t, team.RoleBackend, capacity(1, 2, 1, 1))
	memberID := f.join(t, leaderID, teamID, team.RoleDesigner)

	_, err := f.svc.UpdateTeam(context.Background(), memberID, coordinator.TeamInput{MaxByRole: capacity(3, 3, 3, 3)})

	assert.ErrorIs(t, err, coordinator.ErrRequestForbidden)
}

func TestUpdateTeam_NoCurrentTeam(t *testing.T) {
	f := newFixture()
	userID := f.seekingUser("loner", team.RoleBackend)

	_, err := f.svc.UpdateTeam(context.Background(), userID, coordinator.TeamInput{})

	assert.ErrorIs(t, err, membership.ErrCurrentTeamNotFound)
}

func TestUpdateTeam_CapacityBelowCurrentLeavesTeamUnchanged(t *testing.T) {
	f := newFixture()
	leaderID, teamID := f.formTeam(t, team.RoleDesigner, capacity(2, 1, 1, 1))
	f.join(t, leaderID, teamID, team.RoleDesigner)
	before := f.store.team(teamID)

	_, err := f.svc.UpdateTeam(context.Background(), leaderID, coordinator.TeamInput{
		Profile:   team.Profile{ProjectName: "renamed"},
		MaxByRole: capacity(1, 5, 5, 5),
	})

	var capErr *team.CapacityError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, team.RoleDesigner, capErr.Role)
	assert.ErrorIs(t, err, team.ErrCapacityBelowCurrent)
	assert.Equal(t, before, f.store.team(teamID))
	assert.Empty(t, f.recipients(notification.KindTeamProfileUpdated))
}

func TestUpdateTeam_NotifiesOtherMembers(t *testing.T) {
	f := newFixture()
	leaderID, teamID := f.formTeam(t, team.RoleBackend, capacity(1, 1, 1, 1))
	memberID := f.join(t, leaderID, teamID, team.RoleDesigner)

	detail, err := f.svc.UpdateTeam(context.Background(), leaderID, coordinator.TeamInput{
		Profile:   team.Profile{ProjectName: "renamed"},
		MaxByRole: capacity(1, 1, 3, 1),
	})
	require.NoError(t, err)

	assert.Equal(t, "renamed", detail.Team.ProjectName)
	assert.Equal(t, 3, f.store.team(teamID).Capacity.Slot(team.RoleFrontend).Max)
	assert.Equal(t, []uuid.UUID{memberID}, f.recipients(notification.KindTeamProfileUpdated))
}

// --- SetRecruiting ---

func TestSetRecruiting_LeaderClosesTeam(t *testing.T) {
	f := newFixture()
	leaderID, teamID := f.formTeam(t, team.RoleBackend, capacity(1, 1, 1, 1))

	tm, err := f.svc.SetRecruiting(context.Background(), leaderID, false)
	require.NoError(t, err)

	assert.False(t, tm.IsRecruiting)
	assert.False(t, f.store.team(teamID).IsRecruiting)
}

// --- VisitTeam / CurrentTeam ---

func TestVisitTeam_CountsOnlyOutsiders(t *testing.T) {
	f := newFixture()
	leaderID, teamID := f.formTeam(t, team.RoleBackend, capacity(1, 1, 1, 1))
	visitor := f.seekingUser("visitor", team.RoleDesigner)
	o, err := f.svc.OfferByUser(context.Background(), visitor, teamID, team.RoleDesigner)
	require.NoError(t, err)

	_, err = f.svc.VisitTeam(context.Background(), leaderID, teamID)
	require.NoError(t, err)
	detail, err := f.svc.VisitTeam(context.Background(), visitor, teamID)
	require.NoError(t, err)

	assert.Equal(t, int64(1), detail.Team.VisitedCount)
	assert.Equal(t, int64(1), f.store.team(teamID).VisitedCount)
	require.Len(t, detail.Members, 1)
	assert.Equal(t, leaderID, detail.Members[0].UserID)
	require.Len(t, detail.PendingOffers, 1)
	assert.Equal(t, o.ID, detail.PendingOffers[0].ID)
}

func TestVisitTeam_Unknown(t *testing.T) {
	f := newFixture()

	_, err := f.svc.VisitTeam(context.Background(), uuid.New(), uuid.New())

	assert.ErrorIs(t, err, team.ErrTeamNotFound)
}

func TestCurrentTeam(t *testing.T) {
	f := newFixture()
	leaderID, teamID := f.formTeam(t, team.RoleBackend, capacity(1, 1, 1, 1))
	memberID := f.join(t, leaderID, teamID, team.RoleFrontend)

	detail, err := f.svc.CurrentTeam(context.Background(), memberID)
	require.NoError(t, err)
	assert.Equal(t, teamID, detail.Team.ID)
	require.Len(t, detail.Members, 2)
	assert.True(t, detail.Members[0].IsLeader)

	_, err = f.svc.CurrentTeam(context.Background(), uuid.New())
	assert.ErrorIs(t, err, membership.ErrCurrentTeamNotFound)
}

// --- Fire / Quit ---

func TestFire_LeaderCannotFireSelf(t *testing.T) {
	f := newFixture()
	leaderID, teamID := f.formTeam(t, team.RoleBackend, capacity(1, 1, 1, 1))
	before := f.store.team(teamID)

	err := f.svc.Fire(context.Background(), leaderID, leaderID)

	assert.ErrorIs(t, err, membership.ErrLeaderActionForbidden)
	assert.Equal(t, before, f.store.team(teamID))
	ms := f.store.memberships(leaderID)
	require.Len(t, ms, 1)
	assert.Equal(t, membership.StatusProgress, ms[0].Status)
	assert.Empty(t, f.store.notifications())
}

func TestFire_FreesPositionAndNotifies(t *testing.T) {
	f := newFixture()
	leaderID, teamID := f.formTeam(t, team.RoleBackend, capacity(1, 1, 1, 0))
	designer := f.join(t, leaderID, teamID, team.RoleDesigner)
	frontend := f.join(t, leaderID, teamID, team.RoleFrontend)
	require.False(t, f.store.team(teamID).IsRecruiting)

	require.NoError(t, f.svc.Fire(context.Background(), leaderID, designer))

	tm := f.store.team(teamID)
	assert.Equal(t, 0, tm.Capacity.Slot(team.RoleDesigner).Current)
	assert.True(t, tm.IsRecruiting)
	assert.True(t, f.store.user(designer).IsSeekingTeam)
	assert.Equal(t, membership.StatusFired, f.store.memberships(designer)[0].Status)
	assert.ElementsMatch(t, []uuid.UUID{designer, leaderID, frontend}, f.recipients(notification.KindTeamMemberFired))
}

func TestFire_NonMember(t *testing.T) {
	f := newFixture()
	leaderID, _ := f.formTeam(t, team.RoleBackend, capacity(1, 1, 1, 1))

	err := f.svc.Fire(context.Background(), leaderID, uuid.New())

	assert.ErrorIs(t, err, membership.ErrTeamMemberNotFound)
}

func TestFire_ByNonLeader(t *testing.T) {
	f := newFixture()
	leaderID, teamID := f.formTeam(t, team.RoleBackend, capacity(1, 1, 1, 1))
	a := f.join(t, leaderID, teamID, team.RoleDesigner)
	b := f.join(t, leaderID, teamID, team.RoleFrontend)

	err := f.svc.Fire(context.Background(), a, b)

	assert.ErrorIs(t, err, coordinator.ErrRequestForbidden)
}

func TestQuit_FullTeamReopensRecruiting(t *testing.T) {
	f := newFixture()
	leaderID, teamID := f.formTeam(t, team.RoleManager, capacity(1, 1, 1, 1))
	f.join(t, leaderID, teamID, team.RoleDesigner)
	f.join(t, leaderID, teamID, team.RoleBackend)
	frontend := f.join(t, leaderID, teamID, team.RoleFrontend)
	require.False(t, f.store.team(teamID).IsRecruiting)

	require.NoError(t, f.svc.Quit(context.Background(), frontend))

	tm := f.store.team(teamID)
	assert.True(t, tm.IsRecruiting)
	assert.Equal(t, 0, tm.Capacity.Slot(team.RoleFrontend).Current)
	for _, r := range []team.Role{team.RoleDesigner, team.RoleBackend, team.RoleManager} {
		assert.Equal(t, 1, tm.Capacity.Slot(r).Current, "role %s", r)
	}
	assert.Equal(t, membership.StatusQuit, f.store.memberships(frontend)[0].Status)
	assert.True(t, f.store.user(frontend).IsSeekingTeam)
	assert.NotContains(t, f.recipients(notification.KindTeamMemberQuit), frontend)
	assert.Len(t, f.recipients(notification.KindTeamMemberQuit), 3)
}

func TestQuit_Leader(t *testing.T) {
	f := newFixture()
	leaderID, teamID := f.formTeam(t, team.RoleBackend, capacity(1, 1, 1, 1))
	before := f.store.team(teamID)

	err := f.svc.Quit(context.Background(), leaderID)

	assert.ErrorIs(t, err, membership.ErrLeaderActionForbidden)
	assert.Equal(t, before, f.store.team(teamID))
}

func TestQuit_WithoutTeam(t *testing.T) {
	f := newFixture()

	err := f.svc.Quit(context.Background(), f.seekingUser("loner", team.RoleBackend))

	assert.ErrorIs(t, err, membership.ErrCurrentTeamNotFound)
}

// --- EndProject ---

func TestEndProject_BlankURLDisbands(t *testing.T) {
	f := newFixture()
	leaderID, teamID := f.formTeam(t, team.RoleBackend, capacity(1, 1, 1, 1))
	memberID := f.join(t, leaderID, teamID, team.RoleDesigner)

	tm, err := f.svc.EndProject(context.Background(), leaderID, "  ")
	require.NoError(t, err)

	assert.True(t, tm.IsDeleted)
	assert.False(t, tm.IsRecruiting)
	assert.Nil(t, tm.ProjectURL)
	for _, id := range []uuid.UUID{leaderID, memberID} {
		assert.Equal(t, membership.StatusIncomplete, f.store.memberships(id)[0].Status)
		assert.True(t, f.store.user(id).IsSeekingTeam)
	}
	assert.ElementsMatch(t, []uuid.UUID{leaderID, memberID}, f.recipients(notification.KindTeamIncomplete))

	_, err = f.svc.VisitTeam(context.Background(), memberID, teamID)
	assert.ErrorIs(t, err, team.ErrTeamNotFound)
}

func TestEndProject_WithURLCompletes(t *testing.T) {
	f := newFixture()
	leaderID, teamID := f.formTeam(t, team.RoleBackend, capacity(1, 1, 1, 1))
	memberID := f.join(t, leaderID, teamID, team.RoleDesigner)

	tm, err := f.svc.EndProject(context.Background(), leaderID, "https://github.com/example/project")
	require.NoError(t, err)

	assert.False(t, tm.IsDeleted)
	require.NotNil(t, tm.ProjectURL)
	assert.Equal(t, "https://github.com/example/project", *tm.ProjectURL)
	assert.NotNil(t, f.store.team(teamID).CompletedAt)
	for _, id := range []uuid.UUID{leaderID, memberID} {
		assert.Equal(t, membership.StatusComplete, f.store.memberships(id)[0].Status)
	}
	assert.ElementsMatch(t, []uuid.UUID{leaderID, memberID}, f.recipients(notification.KindTeamComplete))

	// Members are free to form new teams afterwards.
	_, err = f.svc.FormTeam(context.Background(), memberID, coordinator.TeamInput{MaxByRole: capacity(1, 1, 1, 1)})
	assert.NoError(t, err)
}

func TestEndProject_NonLeader(t *testing.T) {
	f := newFixture()
	leaderID, teamID := f.formTeam(t, team.RoleBackend, capacity(1, 1, 1, 1))
	memberID := f.join(t, leaderID, teamID, team.RoleDesigner)

	_, err := f.svc.EndProject(context.Background(), memberID, "")

	assert.ErrorIs(t, err, coordinator.ErrRequestForbidden)
	assert.False(t, f.store.team(teamID).IsDeleted)
}

// --- Single current team across operations ---

func TestJoinSequence_KeepsInvariants(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	leaderID, teamID := f.formTeam(t, team.RoleBackend, capacity(2, 1, 1, 1))
	users := make([]uuid.UUID, 4)
	for i := range users {
		users[i] = f.seekingUser("candidate", team.RoleDesigner)
	}

	for _, u := range users {
		o, err := f.svc.OfferByUser(ctx, u, teamID, team.RoleDesigner)
		if err != nil {
			assert.ErrorIs(t, err, team.ErrPositionUnavailable)
			continue
		}
		_, err = f.svc.Decide(ctx, leaderID, o.ID, offer.SideTeamLeader, true)
		if err != nil {
			assert.ErrorIs(t, err, team.ErrPositionUnavailable)
		}
		assertCapacityInvariant(t, f.store.team(teamID))
	}
	require.NoError(t, f.svc.Quit(ctx, users[0]))
	assertCapacityInvariant(t, f.store.team(teamID))

	assert.Equal(t, 1, f.store.team(teamID).Capacity.Slot(team.RoleDesigner).Current)
	for _, u := range users {
		assert.LessOrEqual(t, activeCount(f.store.memberships(u)), 1)
	}
}
