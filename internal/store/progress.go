package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sarf14/onboarding-tool-sub001/types"
)

const progressColumns = `trainee_id, day, status, progress, mini_quiz1, mini_quiz2, day_end_quiz,
		completed_tasks, tasks_total, created_at, updated_at, completed_at`

// ProgressRepository handles persistence for day progress rows.
type ProgressRepository struct {
	db *sql.DB
}

func NewProgressRepository(db *sql.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

func scanProgress(row rowScanner) (types.DayProgress, error) {
	var p types.DayProgress
	var status string
	var mini1, mini2, dayEnd sql.NullInt64
	var completedAt sql.NullTime
	err := row.Scan(
		&p.TraineeID,
		&p.Day,
		&status,
		&p.Progress,
		&mini1,
		&mini2,
		&dayEnd,
		pq.Array(&p.CompletedTasks),
		&p.TasksTotal,
		&p.CreatedAt,
		&p.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.DayProgress{}, ErrNotFound
		}
		return types.DayProgress{}, err
	}

	p.Status = types.DayStatus(status)
	p.MiniQuiz1 = intPtr(mini1)
	p.MiniQuiz2 = intPtr(mini2)
	p.DayEndQuiz = intPtr(dayEnd)
	if completedAt.Valid {
		at := completedAt.Time
		p.CompletedAt = &at
	}
	if p.CompletedTasks == nil {
		p.CompletedTasks = []string{}
	}
	p.TasksCompleted = len(p.CompletedTasks)
	return p, nil
}

// ListByTrainee returns the stored rows of a trainee ordered by day.
func (r *ProgressRepository) ListByTrainee(ctx context.Context, traineeID int) ([]types.DayProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM day_progress WHERE trainee_id = $1 ORDER BY day`
	rows, err := r.db.QueryContext(ctx, query, traineeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	days := make([]types.DayProgress, 0, types.DefaultProgramDays)
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		days = append(days, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return days, nil
}

func (r *ProgressRepository) Get(ctx context.Context, traineeID, day int) (types.DayProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM day_progress WHERE trainee_id = $1 AND day = $2`
	return scanProgress(r.db.QueryRowContext(ctx, query, traineeID, day))
}

// Mutate runs fn against the (trainee, day) row inside a transaction holding a
// row lock. A missing row is created from init first. If fn fails, or ctx is
// cancelled before commit, nothing is written.
func (r *ProgressRepository) Mutate(
	ctx context.Context,
	init types.DayProgress,
	fn func(p *types.DayProgress) error,
) (types.DayProgress, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.DayProgress{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	const insertQuery = `
		INSERT INTO day_progress (trainee_id, day, status, progress, completed_tasks, tasks_total, created_at, updated_at)
		VALUES ($1, $2, $3, 0, '{}', $4, $5, $5)
		ON CONFLICT (trainee_id, day) DO NOTHING`
	if _, err := tx.ExecContext(ctx, insertQuery, init.TraineeID, init.Day, string(types.StatusNotStarted), init.TasksTotal, now); err != nil {
		return types.DayProgress{}, fmt.Errorf("materialize day: %w", err)
	}

	selectQuery := `SELECT ` + progressColumns + ` FROM day_progress WHERE trainee_id = $1 AND day = $2 FOR UPDATE`
	p, err := scanProgress(tx.QueryRowContext(ctx, selectQuery, init.TraineeID, init.Day))
	if err != nil {
		return types.DayProgress{}, err
	}

	if err := fn(&p); err != nil {
		return types.DayProgress{}, err
	}
	p.UpdatedAt = now
	p.TasksCompleted = len(p.CompletedTasks)

	const updateQuery = `
		UPDATE day_progress
		SET status = $1,
			progress = $2,
			mini_quiz1 = $3,
			mini_quiz2 = $4,
			day_end_quiz = $5,
			completed_tasks = $6,
			tasks_total = $7,
			updated_at = $8,
			completed_at = $9
		WHERE trainee_id = $10 AND day = $11`
	if _, err := tx.ExecContext(
		ctx,
		updateQuery,
		string(p.Status),
		p.Progress,
		nullableInt(p.MiniQuiz1),
		nullableInt(p.MiniQuiz2),
		nullableInt(p.DayEndQuiz),
		pq.Array(p.CompletedTasks),
		p.TasksTotal,
		p.UpdatedAt,
		nullableTime(p.CompletedAt),
		p.TraineeID,
		p.Day,
	); err != nil {
		return types.DayProgress{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.DayProgress{}, err
	}
	return p, nil
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
