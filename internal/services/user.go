package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sarf14/onboarding-tool-sub001/types"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	ListTrainees(ctx context.Context, mentorID *int) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	AssignMentor(ctx context.Context, traineeID, mentorID int) error
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
	ActivateProgram(ctx context.Context, id int, at time.Time) error
	AdvanceDay(ctx context.Context, id, from, maxDay int) (bool, error)
}

// NewUser is the input for account seeding.
type NewUser struct {
	Email        string
	Name         string
	Password     string
	Roles        []string
	MentorID     *int
	ProgramStart *time.Time
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
	cost int
	now  func() time.Time
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo, cost: bcrypt.DefaultCost, now: time.Now}
}

// WithHashCost sets the bcrypt cost used for new accounts.
func (s *UserService) WithHashCost(cost int) *UserService {
	s.cost = cost
	return s
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return readWithRetry(ctx, func(ctx context.Context) (types.User, error) {
		return s.repo.GetByID(ctx, id)
	})
}

// Profile returns a user record the caller is allowed to see.
func (s *UserService) Profile(ctx context.Context, caller types.Identity, id int) (types.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	if err := Authorize(caller, ActionRead, UserResource(ResourceProfile, user)); err != nil {
		return types.User{}, err
	}
	return user, nil
}

// Create seeds an account on behalf of an administrator.
func (s *UserService) Create(ctx context.Context, caller types.Identity, input NewUser) (types.User, error) {
	if err := Authorize(caller, ActionManage, Resource{Kind: ResourceAccounts}); err != nil {
		return types.User{}, err
	}
	return s.Seed(ctx, input)
}

// Seed creates an account without an authorization check. It backs the CLI
// bootstrap and Create.
func (s *UserService) Seed(ctx context.Context, input NewUser) (types.User, error) {
	email := types.NormalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)
	if email == "" || !strings.Contains(email, "@") {
		return types.User{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if name == "" {
		return types.User{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(input.Password) < minPasswordLength {
		return types.User{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	roles, err := types.ParseRoleSet(input.Roles)
	if err != nil {
		return types.User{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if roles.Empty() {
		return types.User{}, fmt.Errorf("%w: at least one role is required", ErrInvalidInput)
	}

	user := types.User{
		Email:      email,
		Name:       name,
		Roles:      roles,
		CurrentDay: 1,
	}

	if roles.Has(types.RoleTrainee) {
		if input.MentorID == nil {
			return types.User{}, fmt.Errorf("%w: trainees require a mentor", ErrInvalidInput)
		}
		if err := s.checkMentor(ctx, *input.MentorID); err != nil {
			return types.User{}, err
		}
		mentorID := *input.MentorID
		user.MentorID = &mentorID

		start := s.now()
		if input.ProgramStart != nil {
			start = *input.ProgramStart
		}
		user.ProgramStart = &start
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hash)

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(storageErr(err), ErrConflict) {
			return types.User{}, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return types.User{}, storageErr(err)
	}
	return created, nil
}

// AssignMentor points a trainee at a (new) mentor.
func (s *UserService) AssignMentor(ctx context.Context, caller types.Identity, traineeID, mentorID int) (types.User, error) {
	if err := Authorize(caller, ActionManage, Resource{Kind: ResourceAccounts}); err != nil {
		return types.User{}, err
	}

	trainee, err := s.GetByID(ctx, traineeID)
	if err != nil {
		return types.User{}, err
	}
	if !trainee.IsTrainee() {
		return types.User{}, fmt.Errorf("%w: user %d is not a trainee", ErrInvalidInput, traineeID)
	}
	if err := s.checkMentor(ctx, mentorID); err != nil {
		return types.User{}, err
	}

	if err := s.repo.AssignMentor(ctx, traineeID, mentorID); err != nil {
		return types.User{}, storageErr(err)
	}
	trainee.MentorID = &mentorID
	return trainee, nil
}

func (s *UserService) checkMentor(ctx context.Context, mentorID int) error {
	mentor, err := s.GetByID(ctx, mentorID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: mentor %d does not exist", ErrInvalidInput, mentorID)
		}
		return err
	}
	if !mentor.Roles.Has(types.RoleMentor) {
		return fmt.Errorf("%w: user %d is not a mentor", ErrInvalidInput, mentorID)
	}
	return nil
}
