package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Role is a single authorization role. Roles combine into a RoleSet.
type Role uint8

const (
	RoleAdmin Role = 1 << iota
	RoleMentor
	RoleTrainee
)

var roleNames = []struct {
	role Role
	name string
}{
	{RoleAdmin, "ADMIN"},
	{RoleMentor, "MENTOR"},
	{RoleTrainee, "TRAINEE"},
}

func (r Role) String() string {
	for _, rn := range roleNames {
		if rn.role == r {
			return rn.name
		}
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

// ParseRole converts a role name (case-insensitive) into a Role.
func ParseRole(name string) (Role, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for _, rn := range roleNames {
		if rn.name == name {
			return rn.role, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", name)
}

// RoleSet is a fixed-size set of roles.
type RoleSet uint8

// NewRoleSet builds a set from the given roles.
func NewRoleSet(roles ...Role) RoleSet {
	var set RoleSet
	for _, r := range roles {
		set |= RoleSet(r)
	}
	return set
}

// ParseRoleSet parses role names into a set. Unknown names are an error.
func ParseRoleSet(names []string) (RoleSet, error) {
	var set RoleSet
	for _, name := range names {
		role, err := ParseRole(name)
		if err != nil {
			return 0, err
		}
		set |= RoleSet(role)
	}
	return set, nil
}

// Has reports whether the set contains the role.
func (s RoleSet) Has(r Role) bool {
	return s&RoleSet(r) != 0
}

// Empty reports whether no role is set.
func (s RoleSet) Empty() bool {
	return s == 0
}

// Names returns the role names in a stable order.
func (s RoleSet) Names() []string {
	names := make([]string, 0, len(roleNames))
	for _, rn := range roleNames {
		if s.Has(rn.role) {
			names = append(names, rn.name)
		}
	}
	return names
}

func (s RoleSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}

func (s *RoleSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	set, err := ParseRoleSet(names)
	if err != nil {
		return err
	}
	*s = set
	return nil
}

// User represents an account in the onboarding program.
// It contains identity, roles, mentorship and program metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Email is the normalized (trimmed, lower-case) login address.
	Email string `json:"email" db:"email"`

	// Name is the user's display name.
	Name string `json:"name" db:"name"`

	// Roles is the non-empty set of roles held by the user.
	Roles RoleSet `json:"roles" db:"roles"`

	// MentorID references the supervising mentor. Only meaningful for trainees.
	MentorID *int `json:"mentorId,omitempty" db:"mentor_id"`

	// ProgramStart is set once, when the trainee is created or first activated.
	ProgramStart *time.Time `json:"programStart,omitempty" db:"program_start"`

	// CurrentDay is the highest unlocked program day. It never decreases.
	CurrentDay int `json:"currentDay" db:"current_day"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// SessionVersion is bumped on credential changes; tokens carrying an older
	// version are rejected.
	SessionVersion int `json:"-" db:"session_version"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// IsTrainee reports whether the user holds the TRAINEE role.
func (u User) IsTrainee() bool {
	return u.Roles.Has(RoleTrainee)
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
