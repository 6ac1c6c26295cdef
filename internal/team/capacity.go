package team

import (
	"fmt"
	"strings"
)

// Role is one of the fixed team positions. Each role has its own capacity.
type Role string

const (
	RoleDesigner Role = "DESIGNER"
	RoleBackend  Role = "BACKEND"
	RoleFrontend Role = "FRONTEND"
	RoleManager  Role = "MANAGER"
)

// Roles lists every role in canonical order. Validation errors are reported
// in this order.
var Roles = []Role{RoleDesigner, RoleBackend, RoleFrontend, RoleManager}

// Valid reports whether r is one of the four team roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// ParseRole converts a case-insensitive role name into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// Slot holds the headcount counters of a single role.
type Slot struct {
	Current int
	Max     int
}

// Full reports whether no more members fit in the slot.
func (s Slot) Full() bool {
	return s.Current >= s.Max
}

// Capacity maps every role to its slot. A Capacity built with NewCapacity
// always contains all four roles.
type Capacity map[Role]*Slot

// NewCapacity creates a Capacity with zero current members and the given
// maximum per role. Roles missing from maxByRole get a maximum of zero.
func NewCapacity(maxByRole map[Role]int) Capacity {
	c := make(Capacity, len(Roles))
	for _, r := range Roles {
		c[r] = &Slot{Max: maxByRole[r]}
	}
	return c
}

// Slot returns the slot of role. Unknown roles yield a zero, full slot.
func (c Capacity) Slot(role Role) Slot {
	if s, ok := c[role]; ok && s != nil {
		return *s
	}
	return Slot{}
}

// IsFull reports whether role has no open position.
func (c Capacity) IsFull(role Role) bool {
	return c.Slot(role).Full()
}

// AllFull reports whether every role is staffed to its maximum.
func (c Capacity) AllFull() bool {
	for _, r := range Roles {
		if !c.IsFull(r) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of c.
func (c Capacity) Clone() Capacity {
	out := make(Capacity, len(c))
	for r, s := range c {
		if s == nil {
			continue
		}
		cp := *s
		out[r] = &cp
	}
	return out
}

// MaxByRole returns the configured maximum for every role.
func (c Capacity) MaxByRole() map[Role]int {
	out := make(map[Role]int, len(Roles))
	for _, r := range Roles {
		out[r] = c.Slot(r).Max
	}
	return out
}

func (c Capacity) increment(role Role) {
	c[role].Current++
}

func (c Capacity) decrement(role Role) {
	if s := c[role]; s != nil && s.Current > 0 {
		s.Current--
	}
}
