package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sarf14/onboarding-tool-sub001/types"
)

// TraineeStore is the part of the user repository the tracker needs.
type TraineeStore interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	ListTrainees(ctx context.Context, mentorID *int) ([]types.User, error)
	ActivateProgram(ctx context.Context, id int, at time.Time) error
	AdvanceDay(ctx context.Context, id, from, maxDay int) (bool, error)
}

// ProgressRepository defines persistence operations for day progress.
// Mutate must apply fn atomically with respect to other Mutate calls on the
// same (trainee, day).
type ProgressRepository interface {
	ListByTrainee(ctx context.Context, traineeID int) ([]types.DayProgress, error)
	Get(ctx context.Context, traineeID, day int) (types.DayProgress, error)
	Mutate(ctx context.Context, init types.DayProgress, fn func(p *types.DayProgress) error) (types.DayProgress, error)
}

// Curriculum answers which tasks make up each program day.
type Curriculum interface {
	Len() int
	TasksTotal(day int) int
	HasTask(day int, taskID string) bool
}

// EventPublisher delivers progress events to a broker.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// ProgressTracker owns the per-day progress state machine.
type ProgressTracker struct {
	users      TraineeStore
	progress   ProgressRepository
	curriculum Curriculum
	events     EventPublisher
	channel    string
	logger     *slog.Logger
	now        func() time.Time
}

func NewProgressTracker(
	users TraineeStore,
	progress ProgressRepository,
	curriculum Curriculum,
	events EventPublisher,
	channel string,
	logger *slog.Logger,
) *ProgressTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressTracker{
		users:      users,
		progress:   progress,
		curriculum: curriculum,
		events:     events,
		channel:    channel,
		logger:     logger,
		now:        time.Now,
	}
}

// Days is the program length.
func (t *ProgressTracker) Days() int {
	return t.curriculum.Len()
}

// RecordTask marks a curriculum task of the day as done. Recording the same
// task again changes nothing.
func (t *ProgressTracker) RecordTask(ctx context.Context, caller types.Identity, traineeID, day int, taskID string) (types.DayProgress, error) {
	trainee, err := t.writableDay(ctx, caller, traineeID, day)
	if err != nil {
		return types.DayProgress{}, err
	}

	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return types.DayProgress{}, fmt.Errorf("%w: task id is required", ErrInvalidInput)
	}
	if !t.curriculum.HasTask(day, taskID) {
		return types.DayProgress{}, fmt.Errorf("%w: unknown task %q for day %d", ErrInvalidInput, taskID, day)
	}

	var completed bool
	p, err := t.mutate(ctx, trainee, day, func(p *types.DayProgress) error {
		if !p.HasTask(taskID) {
			p.CompletedTasks = append(p.CompletedTasks, taskID)
		}
		completed = settle(p, t.now())
		return nil
	})
	if err != nil {
		return types.DayProgress{}, err
	}

	t.afterWrite(ctx, trainee, p, types.EventTaskRecorded, completed)
	return p, nil
}

// RecordQuiz stores a quiz score. Scores on a completed day may be updated but
// never reopen it. Access and sequencing are checked before the payload.
func (t *ProgressTracker) RecordQuiz(ctx context.Context, caller types.Identity, traineeID, day int, slot types.QuizSlot, score int) (types.DayProgress, error) {
	trainee, err := t.writableDay(ctx, caller, traineeID, day)
	if err != nil {
		return types.DayProgress{}, err
	}

	slot, err = types.ParseQuizSlot(string(slot))
	if err != nil {
		return types.DayProgress{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if score < 0 || score > 100 {
		return types.DayProgress{}, fmt.Errorf("%w: %d is outside 0-100", ErrInvalidScore, score)
	}

	var completed bool
	p, err := t.mutate(ctx, trainee, day, func(p *types.DayProgress) error {
		value := score
		switch slot {
		case types.QuizMini1:
			p.MiniQuiz1 = &value
		case types.QuizMini2:
			p.MiniQuiz2 = &value
		case types.QuizDayEnd:
			p.DayEndQuiz = &value
		}
		completed = settle(p, t.now())
		return nil
	})
	if err != nil {
		return types.DayProgress{}, err
	}

	t.afterWrite(ctx, trainee, p, types.EventQuizRecorded, completed)
	return p, nil
}

// GetProgress returns days 1..N in order, with days never touched reported as
// NOT_STARTED.
func (t *ProgressTracker) GetProgress(ctx context.Context, caller types.Identity, traineeID int) (types.ProgressReport, error) {
	trainee, err := t.loadTrainee(ctx, traineeID)
	if err != nil {
		return types.ProgressReport{}, err
	}
	if err := Authorize(caller, ActionRead, UserResource(ResourceProgress, trainee)); err != nil {
		return types.ProgressReport{}, err
	}
	return t.report(ctx, trainee)
}

// AdvanceDay unlocks the next day when the current day is COMPLETED. It is a
// no-op otherwise, including on the last day.
func (t *ProgressTracker) AdvanceDay(ctx context.Context, caller types.Identity, traineeID int) (types.User, error) {
	trainee, err := t.loadTrainee(ctx, traineeID)
	if err != nil {
		return types.User{}, err
	}
	if err := Authorize(caller, ActionWrite, UserResource(ResourceProgress, trainee)); err != nil {
		return types.User{}, err
	}

	updated, advanced, err := t.advance(ctx, trainee)
	if err != nil {
		return types.User{}, err
	}
	if advanced {
		completedDay := types.DayProgress{TraineeID: updated.ID, Day: trainee.CurrentDay, Status: types.StatusCompleted}
		t.publish(ctx, updated, completedDay, types.EventDayAdvanced)
	}
	return updated, nil
}

// ListTrainees summarizes the trainees a mentor supervises. Admins may name
// any mentor, or pass nil for every trainee.
func (t *ProgressTracker) ListTrainees(ctx context.Context, caller types.Identity, mentorID *int) ([]types.TraineeSummary, error) {
	switch {
	case caller.Roles.Has(types.RoleAdmin):
	case caller.Roles.Has(types.RoleMentor):
		id := caller.UserID
		mentorID = &id
	default:
		return nil, fmt.Errorf("%w: trainee listing requires mentor role", ErrForbidden)
	}

	trainees, err := readWithRetry(ctx, func(ctx context.Context) ([]types.User, error) {
		return t.users.ListTrainees(ctx, mentorID)
	})
	if err != nil {
		return nil, err
	}

	summaries := make([]types.TraineeSummary, 0, len(trainees))
	for _, trainee := range trainees {
		if err := Authorize(caller, ActionRead, UserResource(ResourceProgress, trainee)); err != nil {
			continue
		}
		report, err := t.report(ctx, trainee)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, types.TraineeSummary{
			Trainee:         trainee,
			OverallProgress: report.OverallProgress,
		})
	}
	return summaries, nil
}

// OverallProgress is round(100 * completedDays / totalDays).
func OverallProgress(days []types.DayProgress, totalDays int) int {
	if totalDays <= 0 {
		return 0
	}
	completed := 0
	for _, p := range days {
		if p.Status == types.StatusCompleted && p.Day >= 1 && p.Day <= totalDays {
			completed++
		}
	}
	return int(math.Round(100 * float64(completed) / float64(totalDays)))
}

// settle recomputes derived fields after a change and applies state
// transitions. It reports whether the day just became COMPLETED.
func settle(p *types.DayProgress, now time.Time) bool {
	p.TasksCompleted = len(p.CompletedTasks)
	if p.Status == types.StatusCompleted {
		p.Progress = 100
		return false
	}

	p.Progress = taskPercent(p.TasksCompleted, p.TasksTotal)
	p.Status = types.StatusInProgress

	if p.TasksCompleted >= p.TasksTotal && p.DayEndQuiz != nil {
		p.Status = types.StatusCompleted
		p.Progress = 100
		p.CompletedAt = &now
		return true
	}
	return false
}

func taskPercent(done, total int) int {
	if total <= 0 {
		return 100
	}
	return int(math.Round(100 * float64(done) / float64(total)))
}

func (t *ProgressTracker) loadTrainee(ctx context.Context, traineeID int) (types.User, error) {
	trainee, err := readWithRetry(ctx, func(ctx context.Context) (types.User, error) {
		return t.users.GetByID(ctx, traineeID)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return types.User{}, fmt.Errorf("%w: trainee %d", ErrNotFound, traineeID)
		}
		return types.User{}, err
	}
	if !trainee.IsTrainee() {
		return types.User{}, fmt.Errorf("%w: user %d is not a trainee", ErrNotFound, traineeID)
	}
	return trainee, nil
}

// writableDay runs the checks shared by every progress write.
func (t *ProgressTracker) writableDay(ctx context.Context, caller types.Identity, traineeID, day int) (types.User, error) {
	trainee, err := t.loadTrainee(ctx, traineeID)
	if err != nil {
		return types.User{}, err
	}
	if err := Authorize(caller, ActionWrite, UserResource(ResourceProgress, trainee)); err != nil {
		return types.User{}, err
	}
	if day < 1 || day > t.Days() {
		return types.User{}, fmt.Errorf("%w: day %d", ErrNotFound, day)
	}
	if trainee.MentorID == nil {
		return types.User{}, fmt.Errorf("%w: trainee %d has no mentor", ErrTraineeNotReady, trainee.ID)
	}
	if day > trainee.CurrentDay {
		return types.User{}, fmt.Errorf("%w: day %d is locked, current day is %d", ErrSequenceViolation, day, trainee.CurrentDay)
	}
	return trainee, nil
}

func (t *ProgressTracker) mutate(ctx context.Context, trainee types.User, day int, fn func(p *types.DayProgress) error) (types.DayProgress, error) {
	if trainee.ProgramStart == nil {
		if err := t.users.ActivateProgram(ctx, trainee.ID, t.now()); err != nil {
			return types.DayProgress{}, storageErr(err)
		}
	}

	init := types.NewDayProgress(trainee.ID, day, t.curriculum.TasksTotal(day))
	p, err := t.progress.Mutate(ctx, init, fn)
	if err != nil {
		return types.DayProgress{}, storageErr(err)
	}
	return p, nil
}

func (t *ProgressTracker) advance(ctx context.Context, trainee types.User) (types.User, bool, error) {
	current := trainee.CurrentDay
	if current >= t.Days() {
		return trainee, false, nil
	}

	p, err := readWithRetry(ctx, func(ctx context.Context) (types.DayProgress, error) {
		return t.progress.Get(ctx, trainee.ID, current)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return trainee, false, nil
		}
		return trainee, false, err
	}
	if p.Status != types.StatusCompleted {
		return trainee, false, nil
	}

	changed, err := t.users.AdvanceDay(ctx, trainee.ID, current, t.Days())
	if err != nil {
		return trainee, false, storageErr(err)
	}
	if changed {
		trainee.CurrentDay = current + 1
	}
	return trainee, changed, nil
}

// afterWrite runs once the progress row is committed: it unlocks the next day
// when the current one completed and publishes events. Failures here are
// logged, the committed write stands.
func (t *ProgressTracker) afterWrite(ctx context.Context, trainee types.User, p types.DayProgress, eventType string, completed bool) {
	t.publish(ctx, trainee, p, eventType)
	if !completed {
		return
	}

	t.publish(ctx, trainee, p, types.EventDayCompleted)
	updated, advanced, err := t.advance(ctx, trainee)
	if err != nil {
		t.logger.Warn("advance day failed",
			slog.Int("user_id", trainee.ID),
			slog.Int("day", p.Day),
			slog.Any("error", err),
		)
		return
	}
	if advanced {
		t.publish(ctx, updated, p, types.EventDayAdvanced)
	}
}

func (t *ProgressTracker) report(ctx context.Context, trainee types.User) (types.ProgressReport, error) {
	rows, err := readWithRetry(ctx, func(ctx context.Context) ([]types.DayProgress, error) {
		return t.progress.ListByTrainee(ctx, trainee.ID)
	})
	if err != nil {
		return types.ProgressReport{}, err
	}

	byDay := make(map[int]types.DayProgress, len(rows))
	for _, row := range rows {
		byDay[row.Day] = row
	}

	total := t.Days()
	days := make([]types.DayProgress, 0, total)
	for day := 1; day <= total; day++ {
		p, ok := byDay[day]
		if !ok {
			p = types.NewDayProgress(trainee.ID, day, t.curriculum.TasksTotal(day))
		}
		p.TasksCompleted = len(p.CompletedTasks)
		days = append(days, p)
	}

	return types.ProgressReport{
		TraineeID:       trainee.ID,
		CurrentDay:      trainee.CurrentDay,
		Progress:        days,
		OverallProgress: OverallProgress(days, total),
	}, nil
}

func (t *ProgressTracker) publish(ctx context.Context, trainee types.User, p types.DayProgress, eventType string) {
	if t.events == nil {
		return
	}

	event := types.ProgressEvent{
		Type:       eventType,
		TraineeID:  trainee.ID,
		MentorID:   trainee.MentorID,
		Day:        p.Day,
		Status:     p.Status,
		CurrentDay: trainee.CurrentDay,
		At:         t.now(),
	}
	if report, err := t.report(ctx, trainee); err == nil {
		event.OverallProgress = report.OverallProgress
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.logger.Error("encode progress event", slog.Any("error", err))
		return
	}
	attrs := map[string]string{
		"type":       eventType,
		"trainee_id": strconv.Itoa(trainee.ID),
	}
	if _, err := t.events.Publish(ctx, t.channel, data, attrs); err != nil {
		t.logger.Warn("publish progress event failed",
			slog.String("type", eventType),
			slog.Int("user_id", trainee.ID),
			slog.Any("error", err),
		)
	}
}
