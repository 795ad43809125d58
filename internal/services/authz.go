package services

import (
	"fmt"

	"github.com/sarf14/onboarding-tool-sub001/types"
)

// Action is what a caller wants to do with a resource.
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionManage Action = "manage"
)

// ResourceKind names the kind of record being accessed.
type ResourceKind string

const (
	ResourceProgress ResourceKind = "progress"
	ResourceProfile  ResourceKind = "profile"
	ResourceAccounts ResourceKind = "accounts"
	ResourceContent  ResourceKind = "content"
)

// Resource carries the ownership facts authorization depends on.
type Resource struct {
	Kind     ResourceKind
	OwnerID  int
	MentorID *int
}

// UserResource describes a user's progress or profile as an access target.
func UserResource(kind ResourceKind, user types.User) Resource {
	return Resource{Kind: kind, OwnerID: user.ID, MentorID: user.MentorID}
}

func (r Resource) String() string {
	if r.OwnerID == 0 {
		return string(r.Kind)
	}
	return fmt.Sprintf("%s/%d", r.Kind, r.OwnerID)
}

// Authorize decides whether the identity may perform action on target.
// It has no side effects. Rules, first allowing match wins:
//
//  1. ADMIN may do anything.
//  2. MENTOR may read the progress or profile of trainees it supervises.
//  3. TRAINEE may read and write its own progress and read its own profile.
//
// Everything else is ErrForbidden.
func Authorize(identity types.Identity, action Action, target Resource) error {
	roles := identity.Roles

	if roles.Has(types.RoleAdmin) {
		return nil
	}

	userScoped := target.Kind == ResourceProgress || target.Kind == ResourceProfile

	if roles.Has(types.RoleMentor) && userScoped && action == ActionRead &&
		target.MentorID != nil && *target.MentorID == identity.UserID {
		return nil
	}

	if roles.Has(types.RoleTrainee) && userScoped && target.OwnerID == identity.UserID {
		switch {
		case action == ActionRead:
			return nil
		case action == ActionWrite && target.Kind == ResourceProgress:
			return nil
		}
	}

	return fmt.Errorf("%w: %s %s", ErrForbidden, action, target)
}
