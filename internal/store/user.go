package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/sarf14/onboarding-tool-sub001/types"
)

const userColumns = `id, email, name, password_hash, roles, mentor_id, program_start,
		current_day, session_version, created_at, updated_at`

// UserRepository handles persistence for users (the credential store).
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (types.User, error) {
	var user types.User
	var roles []string
	var mentorID sql.NullInt64
	var programStart sql.NullTime
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		pq.Array(&roles),
		&mentorID,
		&programStart,
		&user.CurrentDay,
		&user.SessionVersion,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}

	user.Roles, err = types.ParseRoleSet(roles)
	if err != nil {
		return types.User{}, err
	}
	if mentorID.Valid {
		id := int(mentorID.Int64)
		user.MentorID = &id
	}
	if programStart.Valid {
		start := programStart.Time
		user.ProgramStart = &start
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// ListTrainees returns trainees supervised by mentorID, or every trainee when
// mentorID is nil.
func (r *UserRepository) ListTrainees(ctx context.Context, mentorID *int) ([]types.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE 'TRAINEE' = ANY(roles) AND ($1::int IS NULL OR mentor_id = $1)
		ORDER BY id`
	var arg any
	if mentorID != nil {
		arg = *mentorID
	}
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]types.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.CurrentDay < 1 {
		user.CurrentDay = 1
	}

	const query = `
		INSERT INTO users (email, name, password_hash, roles, mentor_id, program_start,
			current_day, session_version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Email,
		user.Name,
		user.PasswordHash,
		pq.Array(user.Roles.Names()),
		nullableInt(user.MentorID),
		nullableTime(user.ProgramStart),
		user.CurrentDay,
		user.SessionVersion,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		return types.User{}, mapWriteError(err)
	}
	return user, nil
}

// AssignMentor sets the mentor of a trainee.
func (r *UserRepository) AssignMentor(ctx context.Context, traineeID, mentorID int) error {
	const query = `UPDATE users SET mentor_id = $1, updated_at = NOW() WHERE id = $2`
	return r.execOne(ctx, query, mentorID, traineeID)
}

// UpdatePassword stores a new hash and bumps the session version, which
// invalidates every token issued before the change.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	const query = `
		UPDATE users
		SET password_hash = $1,
			session_version = session_version + 1,
			updated_at = NOW()
		WHERE id = $2`
	return r.execOne(ctx, query, passwordHash, id)
}

// ActivateProgram sets the program start date unless it is already set.
func (r *UserRepository) ActivateProgram(ctx context.Context, id int, at time.Time) error {
	const query = `
		UPDATE users
		SET program_start = $1, updated_at = NOW()
		WHERE id = $2 AND program_start IS NULL`
	_, err := r.db.ExecContext(ctx, query, at, id)
	return err
}

// AdvanceDay moves current_day from `from` to `from+1` when the counter still
// equals `from` and stays below maxDay. It reports whether a row changed.
func (r *UserRepository) AdvanceDay(ctx context.Context, id, from, maxDay int) (bool, error) {
	const query = `
		UPDATE users
		SET current_day = current_day + 1, updated_at = NOW()
		WHERE id = $1 AND current_day = $2 AND current_day < $3`
	result, err := r.db.ExecContext(ctx, query, id, from, maxDay)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *UserRepository) execOne(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapWriteError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullableTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}
