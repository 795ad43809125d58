package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sarf14/onboarding-tool-sub001/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-signing-secret"

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func newTestIssuer(t *testing.T, users *testutil.Users, clock *testClock) (*SessionIssuer, *testutil.Denylist) {
	t.Helper()
	denylist := testutil.NewDenylist()
	issuer, err := NewSessionIssuer(users, denylist, testSecret,
		WithTokenTTL(time.Hour),
		WithClock(clock.Now),
		WithHashCost(bcrypt.MinCost),
	)
	require.NoError(t, err)
	return issuer, denylist
}

func TestNewSessionIssuerRequiresSecret(t *testing.T) {
	_, err := NewSessionIssuer(testutil.NewUsers(), testutil.NewDenylist(), "  ")
	assert.Error(t, err)
}

func TestIssueAndVerify(t *testing.T) {
	ctx := context.Background()
	f := newOnboardingFixture(t)
	clock := &testClock{now: time.Now()}
	issuer, _ := newTestIssuer(t, f.users, clock)

	session, user, err := issuer.Issue(ctx, "  Trainee@Example.COM ", testPassword)
	require.NoError(t, err)
	assert.Equal(t, f.trainee.ID, user.ID)
	assert.Equal(t, f.trainee.ID, session.UserID)
	assert.NotEmpty(t, session.Token)
	assert.WithinDuration(t, clock.now.Add(time.Hour), session.ExpiresAt, time.Second)

	identity, err := issuer.Verify(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, f.trainee.ID, identity.UserID)
	assert.Equal(t, f.trainee.Roles, identity.Roles)
	assert.NotEmpty(t, identity.TokenID)
}

func TestIssueDoesNotRevealWhichPartFailed(t *testing.T) {
	ctx := context.Background()
	f := newOnboardingFixture(t)
	issuer, _ := newTestIssuer(t, f.users, &testClock{now: time.Now()})

	_, _, unknownErr := issuer.Issue(ctx, "ghost@example.com", testPassword)
	_, _, wrongErr := issuer.Issue(ctx, f.trainee.Email, "not-the-password")

	assert.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	assert.ErrorIs(t, wrongErr, ErrInvalidCredentials)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())

	_, _, emptyErr := issuer.Issue(ctx, "", "")
	assert.ErrorIs(t, emptyErr, ErrInvalidCredentials)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	ctx := context.Background()
	f := newOnboardingFixture(t)
	clock := &testClock{now: time.Now()}
	issuer, _ := newTestIssuer(t, f.users, clock)

	session, _, err := issuer.Issue(ctx, f.mentor.Email, testPassword)
	require.NoError(t, err)

	clock.now = clock.now.Add(59 * time.Minute)
	_, err = issuer.Verify(ctx, session.Token)
	require.NoError(t, err)

	clock.now = clock.now.Add(2 * time.Minute)
	_, err = issuer.Verify(ctx, session.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestVerifyRejectsForeignAndMalformedTokens(t *testing.T) {
	ctx := context.Background()
	f := newOnboardingFixture(t)
	clock := &testClock{now: time.Now()}
	issuer, _ := newTestIssuer(t, f.users, clock)

	other, err := NewSessionIssuer(f.users, testutil.NewDenylist(), "another-secret", WithClock(clock.Now))
	require.NoError(t, err)
	foreign, _, err := other.Issue(ctx, f.admin.Email, testPassword)
	require.NoError(t, err)

	for _, token := range []string{foreign.Token, "", "not.a.jwt", foreign.Token + "x"} {
		_, err := issuer.Verify(ctx, token)
		assert.ErrorIs(t, err, ErrUnauthenticated, "token %q", token)
	}
}

func TestRevokeInvalidatesToken(t *testing.T) {
	ctx := context.Background()
	f := newOnboardingFixture(t)
	issuer, _ := newTestIssuer(t, f.users, &testClock{now: time.Now()})

	first, _, err := issuer.Issue(ctx, f.trainee.Email, testPassword)
	require.NoError(t, err)
	second, _, err := issuer.Issue(ctx, f.trainee.Email, testPassword)
	require.NoError(t, err)

	require.NoError(t, issuer.Revoke(ctx, first.Token))

	_, err = issuer.Verify(ctx, first.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = issuer.Verify(ctx, second.Token)
	assert.NoError(t, err)

	// Revoking garbage is not an error.
	assert.NoError(t, issuer.Revoke(ctx, "garbage"))
}

func TestChangePasswordInvalidatesEarlierSessions(t *testing.T) {
	ctx := context.Background()
	f := newOnboardingFixture(t)
	issuer, _ := newTestIssuer(t, f.users, &testClock{now: time.Now()})

	session, _, err := issuer.Issue(ctx, f.trainee.Email, testPassword)
	require.NoError(t, err)
	identity, err := issuer.Verify(ctx, session.Token)
	require.NoError(t, err)

	assert.ErrorIs(t, issuer.ChangePassword(ctx, identity, "wrong-password", "new-password-1"), ErrInvalidCredentials)
	assert.ErrorIs(t, issuer.ChangePassword(ctx, identity, testPassword, "short"), ErrInvalidInput)
	require.NoError(t, issuer.ChangePassword(ctx, identity, testPassword, "new-password-1"))

	_, err = issuer.Verify(ctx, session.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, _, err = issuer.Issue(ctx, f.trainee.Email, testPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	fresh, _, err := issuer.Issue(ctx, f.trainee.Email, "new-password-1")
	require.NoError(t, err)
	_, err = issuer.Verify(ctx, fresh.Token)
	assert.NoError(t, err)
}

func TestSessionStorageFailures(t *testing.T) {
	ctx := context.Background()
	f := newOnboardingFixture(t)
	issuer, _ := newTestIssuer(t, f.users, &testClock{now: time.Now()})

	session, _, err := issuer.Issue(ctx, f.trainee.Email, testPassword)
	require.NoError(t, err)

	f.users.Err = errors.New("connection refused")

	_, _, err = issuer.Issue(ctx, f.trainee.Email, testPassword)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)

	_, err = issuer.Verify(ctx, session.Token)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestVerifyRejectsDeletedUser(t *testing.T) {
	ctx := context.Background()
	f := newOnboardingFixture(t)
	clock := &testClock{now: time.Now()}
	issuer, _ := newTestIssuer(t, f.users, clock)

	session, _, err := issuer.Issue(ctx, f.trainee.Email, testPassword)
	require.NoError(t, err)

	// Same secret, empty credential store.
	empty, _ := newTestIssuer(t, testutil.NewUsers(), clock)
	_, err = empty.Verify(ctx, session.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
