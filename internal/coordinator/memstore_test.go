package coordinator_test

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/daap14/teamup/internal/auth"
	"github.com/daap14/teamup/internal/coordinator"
	"github.com/daap14/teamup/internal/membership"
	"github.com/daap14/teamup/internal/notification"
	"github.com/daap14/teamup/internal/offer"
	"github.com/daap14/teamup/internal/team"
)

// errCheckViolation stands in for the capacity CHECK constraints.
var errCheckViolation = errors.New("capacity check violated")

// memStore is an in-memory coordinator.Store. A row read with GetForUpdate
// stays locked until its transaction ends, so transactions on different
// teams run in parallel. A failed transaction undoes its own writes.
type memStore struct {
	// mu guards state and rowLocks for the duration of one repository call.
	mu       sync.Mutex
	state    memState
	rowLocks map[uuid.UUID]*sync.Mutex

	// enqueueErr, when set, makes every Outbox.Enqueue fail.
	enqueueErr error
}

type memState struct {
	users   map[uuid.UUID]auth.User
	teams   map[uuid.UUID]team.Team
	members []membership.Membership
	offers  []offer.Offer
	outbox  []notification.Notification
	clock   int
}

func newMemStore() *memStore {
	return &memStore{
		state: memState{
			users: map[uuid.UUID]auth.User{},
			teams: map[uuid.UUID]team.Team{},
		},
		rowLocks: map[uuid.UUID]*sync.Mutex{},
	}
}

func (s *memStore) InTx(_ context.Context, fn func(tx coordinator.Tx) error) error {
	tx := &memTx{s: s, held: map[uuid.UUID]bool{}}
	defer tx.release()

	if err := fn(tx); err != nil {
		s.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i](&s.state)
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

func copyTeam(t team.Team) team.Team {
	t.Capacity = t.Capacity.Clone()
	return t
}

func (st *memState) tick() time.Time {
	st.clock++
	return time.Date(2026, 1, 1, 0, 0, st.clock, 0, time.UTC)
}

// --- seeding and inspection, used outside transactions ---

func (s *memStore) addUser(name string, position *team.Role, seeking bool) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.state.users[id] = auth.User{ID: id, Name: name, Position: position, IsSeekingTeam: seeking, CreatedAt: s.state.tick()}
	return id
}

func (s *memStore) revokeUser(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.state.users[id]
	now := s.state.tick()
	u.RevokedAt = &now
	s.state.users[id] = u
}

// setSeeking overwrites the flag without any membership check.
func (s *memStore) setSeeking(id uuid.UUID, seeking bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.state.users[id]
	u.IsSeekingTeam = seeking
	s.state.users[id] = u
}

func (s *memStore) user(id uuid.UUID) auth.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.users[id]
}

func (s *memStore) team(id uuid.UUID) team.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyTeam(s.state.teams[id])
}

func (s *memStore) offer(id uuid.UUID) offer.Offer {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.state.offers {
		if o.ID == id {
			return o
		}
	}
	return offer.Offer{}
}

func (s *memStore) offers() []offer.Offer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]offer.Offer(nil), s.state.offers...)
}

func (s *memStore) memberships(userID uuid.UUID) []membership.Membership {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []membership.Membership
	for _, m := range s.state.members {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out
}

func (s *memStore) notifications() []notification.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notification.Notification(nil), s.state.outbox...)
}

// --- transactions ---

type memTx struct {
	s     *memStore
	held  map[uuid.UUID]bool
	locks []*sync.Mutex
	undo  []func(st *memState)
}

// lockRow blocks until the transaction owns the row lock for id.
func (tx *memTx) lockRow(id uuid.UUID) {
	if tx.held[id] {
		return
	}
	tx.s.mu.Lock()
	l, ok := tx.s.rowLocks[id]
	if !ok {
		l = &sync.Mutex{}
		tx.s.rowLocks[id] = l
	}
	tx.s.mu.Unlock()

	l.Lock()
	tx.held[id] = true
	tx.locks = append(tx.locks, l)
}

func (tx *memTx) release() {
	for _, l := range tx.locks {
		l.Unlock()
	}
}

// onRollback records how to revert a write. Callers hold s.mu.
func (tx *memTx) onRollback(fn func(st *memState)) {
	tx.undo = append(tx.undo, fn)
}

func (tx *memTx) Teams() team.Repository           { return memTeams{tx} }
func (tx *memTx) Members() membership.Repository   { return memMembers{tx} }
func (tx *memTx) Offers() offer.Repository         { return memOffers{tx} }
func (tx *memTx) Users() coordinator.UserDirectory { return memUsers{tx} }
func (tx *memTx) Outbox() notification.Outbox      { return memOutbox{tx} }

type memTeams struct{ tx *memTx }

func (r memTeams) Create(_ context.Context, t *team.Team) error {
	s := r.tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = uuid.New()
	t.CreatedAt = s.state.tick()
	t.UpdatedAt = t.CreatedAt
	s.state.teams[t.ID] = copyTeam(*t)

	id := t.ID
	r.tx.onRollback(func(st *memState) { delete(st.teams, id) })
	return nil
}

func (r memTeams) GetByID(_ context.Context, id uuid.UUID) (*team.Team, error) {
	s := r.tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.state.teams[id]
	if !ok || t.IsDeleted {
		return nil, team.ErrTeamNotFound
	}
	out := copyTeam(t)
	return &out, nil
}

func (r memTeams) GetForUpdate(ctx context.Context, id uuid.UUID) (*team.Team, error) {
	r.tx.lockRow(id)
	return r.GetByID(ctx, id)
}

func (r memTeams) Update(_ context.Context, t *team.Team) error {
	s := r.tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.state.teams[t.ID]
	if !ok {
		return team.ErrTeamNotFound
	}
	for _, role := range team.Roles {
		if slot := t.Capacity.Slot(role); slot.Current > slot.Max || slot.Current < 0 {
			return errCheckViolation
		}
	}
	t.UpdatedAt = s.state.tick()
	s.state.teams[t.ID] = copyTeam(*t)

	r.tx.onRollback(func(st *memState) { st.teams[prev.ID] = prev })
	return nil
}

func (r memTeams) IncrementVisits(_ context.Context, id uuid.UUID) error {
	s := r.tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.state.teams[id]
	if !ok || t.IsDeleted {
		return team.ErrTeamNotFound
	}
	t.VisitedCount++
	s.state.teams[id] = t

	r.tx.onRollback(func(st *memState) {
		t := st.teams[id]
		t.VisitedCount--
		st.teams[id] = t
	})
	return nil
}

func (r memTeams) List(_ context.Context, _ team.ListFilter) (*team.ListResult, error) {
	s := r.tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []team.Team
	for _, t := range s.state.teams {
		if t.IsRecruiting && !t.IsDeleted {
			out = append(out, copyTeam(t))
		}
	}
	return &team.ListResult{Teams: out, Total: len(out), Page: 1, Limit: len(out)}, nil
}

type memMembers struct{ tx *memTx }

func currentByUser(st *memState, userID uuid.UUID) (membership.Membership, bool) {
	for _, m := range st.members {
		if m.UserID == userID && m.IsActive() {
			return m, true
		}
	}
	return membership.Membership{}, false
}

func (r memMembers) Create(_ context.Context, m *membership.Membership) error {
	s := r.tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := currentByUser(&s.state, m.UserID); busy {
		return membership.ErrExistingCurrentTeam
	}
	m.ID = uuid.New()
	m.CreatedAt = s.state.tick()
	m.UpdatedAt = m.CreatedAt
	s.state.members = append(s.state.members, *m)

	id := m.ID
	r.tx.onRollback(func(st *memState) {
		st.members = slices.DeleteFunc(st.members, func(m membership.Membership) bool { return m.ID == id })
	})
	return nil
}

func (r memMembers) GetCurrentByUser(_ context.Context, userID uuid.UUID) (*membership.Membership, error) {
	s := r.tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := currentByUser(&s.state, userID); ok {
		return &m, nil
	}
	return nil, membership.ErrCurrentTeamNotFound
}

func (r memMembers) GetCurrent(_ context.Context, teamID, userID uuid.UUID) (*membership.Membership, error) {
	s := r.tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := currentByUser(&s.state, userID); ok && m.TeamID == teamID {
		return &m, nil
	}
	return nil, membership.ErrTeamMemberNotFound
}

func (r memMembers) ExistsCurrent(_ context.Context, userID uuid.UUID) (bool, error) {
	s := r.tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := currentByUser(&s.state, userID)
	return ok, nil
}

func (r memMembers) ListCurrentByTeam(_ context.Context, teamID uuid.UUID) ([]membership.Membership, error) {
	s := r.tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []membership.Membership
	for _, m := range s.state.members {
		if m.TeamID == teamID && m.IsActive() {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].IsLeader && !out[j].IsLeader
	})
	return out, nil
}

func (r memMembers) UpdateStatus(_ context.Context, m *membership.Membership) error {
	s := r.tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.members {
		if s.state.members[i].ID != m.ID {
			continue
		}
		prev := s.state.members[i]
		s.state.members[i].Status = m.Status
		s.state.members[i].UpdatedAt = s.state.tick()

		r.tx.onRollback(func(st *memState) {
			for i := range st.members {
				if st.members[i].ID == prev.ID {
					st.members[i] = prev
				}
			}
		})
		return nil
	}
	return membership.ErrTeamMemberNotFound
}

type memOffers struct{ tx *memTx }

// restoreOffer puts back the saved version of one offer.
func restoreOffer(prev offer.Offer) func(st *memState) {
	return func(st *memState) {
		for i := range st.offers {
			if st.offers[i].ID == prev.ID {
				st.offers[i] = prev
			}
		}
	}
}

func (r memOffers) Create(_ context.Context, o *offer.Offer) error {
	s := r.tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	o.ID = uuid.New()
	o.CreatedAt = s.state.tick()
	o.UpdatedAt = o.CreatedAt
	s.state.offers = append(s.state.offers, *o)

	id := o.ID
	r.tx.onRollback(func(st *memState) {
		st.offers = slices.DeleteFunc(st.offers, func(o offer.Offer) bool { return o.ID == id })
	})
	return nil
}

func (r memOffers) GetByID(_ context.Context, id uuid.UUID) (*offer.Offer, error) {
	s := r.tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.state.offers {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, offer.ErrOfferNotFound
}

func (r memOffers) GetForUpdate(ctx context.Context, id uuid.UUID) (*offer.Offer, error) {
	r.tx.lockRow(id)
	return r.GetByID(ctx, id)
}

func (r memOffers) Update(_ context.Context, o *offer.Offer) error {
	s := r.tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.offers {
		if s.state.offers[i].ID == o.ID {
			r.tx.onRollback(restoreOffer(s.state.offers[i]))
			o.UpdatedAt = s.state.tick()
			s.state.offers[i] = *o
			return nil
		}
	}
	return offer.ErrOfferNotFound
}

func (r memOffers) CancelPending(_ context.Context, userID, teamID, exceptID uuid.UUID, at time.Time) (int64, error) {
	s := r.tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for i := range s.state.offers {
		o := &s.state.offers[i]
		if o.UserID == userID && o.TeamID == teamID && o.ID != exceptID && o.IsPending() {
			r.tx.onRollback(restoreOffer(*o))
			o.Decision = offer.DecisionCancelled
			o.DecidedAt = &at
			n++
		}
	}
	return n, nil
}

func (r memOffers) List(_ context.Context, f offer.ListFilter) (*offer.ListResult, error) {
	s := r.tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []offer.Offer
	for _, o := range s.state.offers {
		switch {
		case f.UserID != nil && o.UserID != *f.UserID,
			f.TeamID != nil && o.TeamID != *f.TeamID,
			f.Role != nil && o.Role != *f.Role,
			f.Initiator != nil && o.Initiator != *f.Initiator,
			f.Decision != nil && o.Decision != *f.Decision:
			continue
		}
		out = append(out, o)
	}
	return &offer.ListResult{Offers: out, Total: len(out), Page: 1, Limit: f.Limit}, nil
}

type memUsers struct{ tx *memTx }

func (r memUsers) GetByID(_ context.Context, id uuid.UUID) (*auth.User, error) {
	s := r.tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.state.users[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return &u, nil
}

func (r memUsers) FindSeekingTeam(_ context.Context, id uuid.UUID) (*auth.User, error) {
	s := r.tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.state.users[id]
	if !ok || !u.IsSeekingTeam || u.RevokedAt != nil {
		return nil, auth.ErrUserNotFound
	}
	return &u, nil
}

// update applies change to one user and records the previous version.
func (r memUsers) update(id uuid.UUID, change func(u *auth.User)) error {
	s := r.tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.state.users[id]
	if !ok {
		return auth.ErrUserNotFound
	}
	next := prev
	change(&next)
	s.state.users[id] = next

	r.tx.onRollback(func(st *memState) { st.users[id] = prev })
	return nil
}

func (r memUsers) SetSeekingTeam(_ context.Context, id uuid.UUID, seeking bool) error {
	return r.update(id, func(u *auth.User) { u.IsSeekingTeam = seeking })
}

func (r memUsers) SetPosition(_ context.Context, id uuid.UUID, position team.Role) error {
	return r.update(id, func(u *auth.User) { u.Position = &position })
}

type memOutbox struct{ tx *memTx }

func (r memOutbox) Enqueue(_ context.Context, items []notification.Notification) error {
	s := r.tx.s
	if s.enqueueErr != nil {
		return s.enqueueErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make(map[uuid.UUID]bool, len(items))
	for _, n := range items {
		n.ID = uuid.New()
		n.CreatedAt = s.state.tick()
		s.state.outbox = append(s.state.outbox, n)
		ids[n.ID] = true
	}

	r.tx.onRollback(func(st *memState) {
		st.outbox = slices.DeleteFunc(st.outbox, func(n notification.Notification) bool { return ids[n.ID] })
	})
	return nil
}
