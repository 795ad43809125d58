package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSeedTrainee(t *testing.T) {
	ctx := context.Background()
	f := newOnboardingFixture(t)
	svc := NewUserService(f.users).WithHashCost(bcrypt.MinCost)

	user, err := svc.Seed(ctx, NewUser{
		Email:    "  New.Hire@Example.com ",
		Name:     "New Hire",
		Password: "first-day-pass",
		Roles:    []string{"trainee"},
		MentorID: intRef(f.mentor.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, "new.hire@example.com", user.Email)
	assert.Equal(t, 1, user.CurrentDay)
	assert.True(t, user.IsTrainee())
	require.NotNil(t, user.MentorID)
	assert.Equal(t, f.mentor.ID, *user.MentorID)
	assert.NotNil(t, user.ProgramStart)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("first-day-pass")))
}

func TestSeedKeepsExplicitStartDate(t *testing.T) {
	f := newOnboardingFixture(t)
	svc := NewUserService(f.users).WithHashCost(bcrypt.MinCost)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	user, err := svc.Seed(context.Background(), NewUser{
		Email:        "dated@example.com",
		Name:         "Dated",
		Password:     "long-enough",
		Roles:        []string{"TRAINEE"},
		MentorID:     intRef(f.mentor.ID),
		ProgramStart: &start,
	})
	require.NoError(t, err)
	assert.True(t, start.Equal(*user.ProgramStart))
}

func TestSeedValidation(t *testing.T) {
	f := newOnboardingFixture(t)
	svc := NewUserService(f.users).WithHashCost(bcrypt.MinCost)

	valid := func() NewUser {
		return NewUser{
			Email:    "someone@example.com",
			Name:     "Someone",
			Password: "long-enough",
			Roles:    []string{"TRAINEE"},
			MentorID: intRef(f.mentor.ID),
		}
	}

	tests := []struct {
		name   string
		mutate func(u *NewUser)
		want   error
	}{
		{"missing email", func(u *NewUser) { u.Email = " " }, ErrInvalidInput},
		{"malformed email", func(u *NewUser) { u.Email = "someone" }, ErrInvalidInput},
		{"missing name", func(u *NewUser) { u.Name = "" }, ErrInvalidInput},
		{"short password", func(u *NewUser) { u.Password = "short" }, ErrInvalidInput},
		{"no roles", func(u *NewUser) { u.Roles = nil }, ErrInvalidInput},
		{"unknown role", func(u *NewUser) { u.Roles = []string{"OWNER"} }, ErrInvalidInput},
		{"trainee without mentor", func(u *NewUser) { u.MentorID = nil }, ErrInvalidInput},
		{"mentor is not a mentor", func(u *NewUser) { u.MentorID = intRef(f.admin.ID) }, ErrInvalidInput},
		{"mentor does not exist", func(u *NewUser) { u.MentorID = intRef(404) }, ErrInvalidInput},
		{"duplicate email", func(u *NewUser) { u.Email = "MENTOR@example.com" }, ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := valid()
			tt.mutate(&input)
			_, err := svc.Seed(context.Background(), input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSeedMentorNeedsNoMentor(t *testing.T) {
	f := newOnboardingFixture(t)
	svc := NewUserService(f.users).WithHashCost(bcrypt.MinCost)

	user, err := svc.Seed(context.Background(), NewUser{
		Email:    "lead@example.com",
		Name:     "Lead",
		Password: "long-enough",
		Roles:    []string{"MENTOR", "ADMIN"},
	})
	require.NoError(t, err)
	assert.Nil(t, user.MentorID)
	assert.Nil(t, user.ProgramStart)
	assert.Equal(t, []string{"ADMIN", "MENTOR"}, user.Roles.Names())
}

func TestCreateRequiresAdmin(t *testing.T) {
	ctx := context.Background()
	f := newOnboardingFixture(t)
	svc := NewUserService(f.users).WithHashCost(bcrypt.MinCost)
	input := NewUser{
		Email:    "hire@example.com",
		Name:     "Hire",
		Password: "long-enough",
		Roles:    []string{"TRAINEE"},
		MentorID: intRef(f.mentor.ID),
	}

	_, err := svc.Create(ctx, identityOf(f.mentor), input)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Create(ctx, identityOf(f.trainee), input)
	assert.ErrorIs(t, err, ErrForbidden)

	user, err := svc.Create(ctx, identityOf(f.admin), input)
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
}

func TestAssignMentor(t *testing.T) {
	ctx := context.Background()
	f := newOnboardingFixture(t)
	svc := NewUserService(f.users)

	_, err := svc.AssignMentor(ctx, identityOf(f.mentor2), f.trainee.ID, f.mentor2.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.AssignMentor(ctx, identityOf(f.admin), f.trainee.ID, f.mentor2.ID)
	require.NoError(t, err)
	assert.Equal(t, f.mentor2.ID, *updated.MentorID)

	stored, err := f.users.GetByID(ctx, f.trainee.ID)
	require.NoError(t, err)
	assert.Equal(t, f.mentor2.ID, *stored.MentorID)

	_, err = svc.AssignMentor(ctx, identityOf(f.admin), f.mentor.ID, f.mentor2.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.AssignMentor(ctx, identityOf(f.admin), f.trainee.ID, f.trainee2.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.AssignMentor(ctx, identityOf(f.admin), 404, f.mentor.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProfile(t *testing.T) {
	ctx := context.Background()
	f := newOnboardingFixture(t)
	svc := NewUserService(f.users)

	user, err := svc.Profile(ctx, identityOf(f.mentor), f.trainee.ID)
	require.NoError(t, err)
	assert.Equal(t, f.trainee.Email, user.Email)

	_, err = svc.Profile(ctx, identityOf(f.mentor2), f.trainee.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Profile(ctx, identityOf(f.trainee), f.trainee.ID)
	assert.NoError(t, err)
	_, err = svc.Profile(ctx, identityOf(f.admin), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadsRetryOnce(t *testing.T) {
	ctx := context.Background()
	calls := 0
	_, err := readWithRetry(ctx, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("connection reset")
	})
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Equal(t, 2, calls)

	calls = 0
	value, err := readWithRetry(ctx, func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("connection reset")
		}
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, value)
	assert.Equal(t, 2, calls)
}
