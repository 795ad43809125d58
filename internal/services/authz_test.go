package services

import (
	"testing"

	"github.com/sarf14/onboarding-tool-sub001/types"
	"github.com/stretchr/testify/assert"
)

func TestAuthorize(t *testing.T) {
	const mentorID, traineeID, otherID = 10, 20, 30

	admin := types.Identity{UserID: 1, Roles: types.NewRoleSet(types.RoleAdmin)}
	mentor := types.Identity{UserID: mentorID, Roles: types.NewRoleSet(types.RoleMentor)}
	trainee := types.Identity{UserID: traineeID, Roles: types.NewRoleSet(types.RoleTrainee)}
	mentorTrainee := types.Identity{UserID: otherID, Roles: types.NewRoleSet(types.RoleMentor, types.RoleTrainee)}
	nobody := types.Identity{UserID: 99}

	supervised := Resource{Kind: ResourceProgress, OwnerID: traineeID, MentorID: intRef(mentorID)}
	unsupervised := Resource{Kind: ResourceProgress, OwnerID: otherID, MentorID: intRef(55)}
	profile := Resource{Kind: ResourceProfile, OwnerID: traineeID, MentorID: intRef(mentorID)}
	accounts := Resource{Kind: ResourceAccounts}

	tests := []struct {
		name     string
		identity types.Identity
		action   Action
		target   Resource
		allowed  bool
	}{
		{"admin reads anything", admin, ActionRead, unsupervised, true},
		{"admin writes progress", admin, ActionWrite, supervised, true},
		{"admin manages accounts", admin, ActionManage, accounts, true},
		{"mentor reads supervised progress", mentor, ActionRead, supervised, true},
		{"mentor reads supervised profile", mentor, ActionRead, profile, true},
		{"mentor cannot read other trainee", mentor, ActionRead, unsupervised, false},
		{"mentor cannot write progress", mentor, ActionWrite, supervised, false},
		{"mentor cannot manage accounts", mentor, ActionManage, accounts, false},
		{"trainee reads own progress", trainee, ActionRead, supervised, true},
		{"trainee writes own progress", trainee, ActionWrite, supervised, true},
		{"trainee reads own profile", trainee, ActionRead, profile, true},
		{"trainee cannot write own profile", trainee, ActionWrite, profile, false},
		{"trainee cannot read others", trainee, ActionRead, unsupervised, false},
		{"mentor-trainee writes own progress", mentorTrainee, ActionWrite, unsupervised, true},
		{"no roles", nobody, ActionRead, supervised, false},
		{"mentor without mentor ref on target", mentor, ActionRead, Resource{Kind: ResourceProgress, OwnerID: traineeID}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.identity, tt.action, tt.target)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrForbidden)
			}
		})
	}
}

func TestAuthorizeIsDeterministic(t *testing.T) {
	mentor := types.Identity{UserID: 3, Roles: types.NewRoleSet(types.RoleMentor)}
	target := Resource{Kind: ResourceProgress, OwnerID: 4, MentorID: intRef(8)}

	first := Authorize(mentor, ActionRead, target)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first.Error(), Authorize(mentor, ActionRead, target).Error())
	}
}
