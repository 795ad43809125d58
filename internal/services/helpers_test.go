package services

import (
	"testing"

	"github.com/sarf14/onboarding-tool-sub001/internal/testutil"
	"github.com/sarf14/onboarding-tool-sub001/types"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "correct-horse"

func identityOf(u types.User) types.Identity {
	return types.Identity{UserID: u.ID, Roles: u.Roles}
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func intRef(v int) *int {
	return &v
}

// onboardingFixture seeds an admin, two mentors and one trainee per mentor.
type onboardingFixture struct {
	users    *testutil.Users
	admin    types.User
	mentor   types.User
	mentor2  types.User
	trainee  types.User
	trainee2 types.User
}

func newOnboardingFixture(t *testing.T) *onboardingFixture {
	t.Helper()
	users := testutil.NewUsers()
	hash := hashed(t, testPassword)

	f := &onboardingFixture{users: users}
	f.admin = users.Put(types.User{Email: "admin@example.com", Name: "Admin", Roles: types.NewRoleSet(types.RoleAdmin), PasswordHash: hash})
	f.mentor = users.Put(types.User{Email: "mentor@example.com", Name: "Mentor", Roles: types.NewRoleSet(types.RoleMentor), PasswordHash: hash})
	f.mentor2 = users.Put(types.User{Email: "mentor2@example.com", Name: "Mentor Two", Roles: types.NewRoleSet(types.RoleMentor), PasswordHash: hash})
	f.trainee = users.Put(types.User{
		Email:        "trainee@example.com",
		Name:         "Trainee",
		Roles:        types.NewRoleSet(types.RoleTrainee),
		MentorID:     intRef(f.mentor.ID),
		PasswordHash: hash,
	})
	f.trainee2 = users.Put(types.User{
		Email:        "trainee2@example.com",
		Name:         "Trainee Two",
		Roles:        types.NewRoleSet(types.RoleTrainee),
		MentorID:     intRef(f.mentor2.ID),
		PasswordHash: hash,
	})
	return f
}
