package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sarf14/onboarding-tool-sub001/types"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultTokenTTL   = 24 * time.Hour
	minPasswordLength = 8
)

// CredentialStore is the part of the user repository sessions rely on.
type CredentialStore interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
}

// TokenDenylist records revoked token ids until they expire.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, userID int, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type sessionClaims struct {
	Version int `json:"ver"`
	jwt.RegisteredClaims
}

// SessionIssuer issues and verifies HS256 bearer tokens.
//
// Tokens are stateless; revocation is enforced through the denylist (logout)
// and the per-user session version (password change).
type SessionIssuer struct {
	users    CredentialStore
	denylist TokenDenylist
	secret   []byte
	ttl      time.Duration
	cost     int
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

// SessionOption customizes a SessionIssuer.
type SessionOption func(*SessionIssuer)

// WithTokenTTL overrides the token lifetime.
func WithTokenTTL(ttl time.Duration) SessionOption {
	return func(s *SessionIssuer) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionIssuer) {
		s.now = now
	}
}

// WithHashCost sets the bcrypt cost for password changes.
func WithHashCost(cost int) SessionOption {
	return func(s *SessionIssuer) {
		s.cost = cost
	}
}

func NewSessionIssuer(users CredentialStore, denylist TokenDenylist, secret string, opts ...SessionOption) (*SessionIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token signing secret is required")
	}
	s := &SessionIssuer{
		users:    users,
		denylist: denylist,
		secret:   []byte(secret),
		ttl:      defaultTokenTTL,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue checks the credentials and returns a new session for the user.
// Unknown emails and wrong passwords fail identically.
func (s *SessionIssuer) Issue(ctx context.Context, email, password string) (types.Session, types.User, error) {
	email = types.NormalizeEmail(email)
	if email == "" || password == "" {
		return types.Session{}, types.User{}, ErrInvalidCredentials
	}

	user, err := readWithRetry(ctx, func(ctx context.Context) (types.User, error) {
		return s.users.GetByEmail(ctx, email)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Spend the same bcrypt work as a real comparison.
			_ = bcrypt.CompareHashAndPassword(s.fallbackHash(), []byte(password))
			return types.Session{}, types.User{}, ErrInvalidCredentials
		}
		return types.Session{}, types.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.Session{}, types.User{}, ErrInvalidCredentials
	}

	session, err := s.sign(user)
	if err != nil {
		return types.Session{}, types.User{}, err
	}
	return session, user, nil
}

func (s *SessionIssuer) sign(user types.User) (types.Session, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	claims := sessionClaims{
		Version: user.SessionVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.Itoa(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return types.Session{}, fmt.Errorf("sign token: %w", err)
	}
	return types.Session{
		Token:     token,
		UserID:    user.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Verify validates a token and resolves the caller's current identity.
func (s *SessionIssuer) Verify(ctx context.Context, token string) (types.Identity, error) {
	claims, err := s.parse(token)
	if err != nil {
		return types.Identity{}, err
	}

	userID, err := strconv.Atoi(claims.Subject)
	if err != nil || userID < 1 {
		return types.Identity{}, fmt.Errorf("%w: bad subject", ErrUnauthenticated)
	}

	revoked, err := readWithRetry(ctx, func(ctx context.Context) (bool, error) {
		return s.denylist.IsRevoked(ctx, claims.ID)
	})
	if err != nil {
		return types.Identity{}, err
	}
	if revoked {
		return types.Identity{}, fmt.Errorf("%w: token revoked", ErrUnauthenticated)
	}

	user, err := readWithRetry(ctx, func(ctx context.Context) (types.User, error) {
		return s.users.GetByID(ctx, userID)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return types.Identity{}, fmt.Errorf("%w: unknown user", ErrUnauthenticated)
		}
		return types.Identity{}, err
	}
	if user.SessionVersion != claims.Version {
		return types.Identity{}, fmt.Errorf("%w: credentials changed", ErrUnauthenticated)
	}

	return types.Identity{
		UserID:    user.ID,
		Roles:     user.Roles,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *SessionIssuer) parse(token string) (*sessionClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	claims := &sessionClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if !parsed.Valid || claims.ID == "" {
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}
	return claims, nil
}

// Revoke denylists the token until its natural expiry. Tokens that already
// fail verification need no revocation.
func (s *SessionIssuer) Revoke(ctx context.Context, token string) error {
	identity, err := s.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return nil
		}
		return err
	}
	return storageErr(s.denylist.Revoke(ctx, identity.TokenID, identity.UserID, identity.ExpiresAt))
}

// ChangePassword replaces the caller's password. All sessions issued before
// the change stop verifying.
func (s *SessionIssuer) ChangePassword(ctx context.Context, identity types.Identity, current, next string) error {
	if len(next) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	user, err := readWithRetry(ctx, func(ctx context.Context) (types.User, error) {
		return s.users.GetByID(ctx, identity.UserID)
	})
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return storageErr(s.users.UpdatePassword(ctx, user.ID, string(hash)))
}

func (s *SessionIssuer) fallbackHash() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte(uuid.NewString()), s.cost)
	})
	return s.dummyHash
}
