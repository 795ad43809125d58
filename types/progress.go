package types

import (
	"fmt"
	"strings"
	"time"
)

// DefaultProgramDays is the length of the onboarding program.
const DefaultProgramDays = 7

// DayStatus is the state of a single program day.
type DayStatus string

const (
	StatusNotStarted DayStatus = "NOT_STARTED"
	StatusInProgress DayStatus = "IN_PROGRESS"
	StatusCompleted  DayStatus = "COMPLETED"
)

// QuizSlot identifies one of the quizzes of a day.
type QuizSlot string

const (
	QuizMini1  QuizSlot = "mini1"
	QuizMini2  QuizSlot = "mini2"
	QuizDayEnd QuizSlot = "dayEnd"
)

// ParseQuizSlot validates a quiz slot name.
func ParseQuizSlot(raw string) (QuizSlot, error) {
	switch slot := QuizSlot(strings.TrimSpace(raw)); slot {
	case QuizMini1, QuizMini2, QuizDayEnd:
		return slot, nil
	default:
		return "", fmt.Errorf("unknown quiz slot %q", raw)
	}
}

// DayProgress tracks one trainee's progress through one program day.
type DayProgress struct {
	TraineeID int       `json:"traineeId" db:"trainee_id"`
	Day       int       `json:"day" db:"day"`
	Status    DayStatus `json:"status" db:"status"`

	// Progress is the task completion percentage (0-100).
	Progress int `json:"dayProgress" db:"progress"`

	MiniQuiz1  *int `json:"miniQuiz1,omitempty" db:"mini_quiz1"`
	MiniQuiz2  *int `json:"miniQuiz2,omitempty" db:"mini_quiz2"`
	DayEndQuiz *int `json:"dayEndQuiz,omitempty" db:"day_end_quiz"`

	// CompletedTasks holds the curriculum task ids recorded for the day.
	CompletedTasks []string `json:"completedTasks" db:"completed_tasks"`
	TasksCompleted int      `json:"tasksCompleted" db:"-"`
	TasksTotal     int      `json:"tasksTotal" db:"tasks_total"`

	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
	CompletedAt *time.Time `json:"completedAt,omitempty" db:"completed_at"`
}

// NewDayProgress returns the NOT_STARTED state for a day.
func NewDayProgress(traineeID, day, tasksTotal int) DayProgress {
	return DayProgress{
		TraineeID:      traineeID,
		Day:            day,
		Status:         StatusNotStarted,
		CompletedTasks: []string{},
		TasksTotal:     tasksTotal,
	}
}

// HasTask reports whether the task id has been recorded.
func (p DayProgress) HasTask(taskID string) bool {
	for _, id := range p.CompletedTasks {
		if id == taskID {
			return true
		}
	}
	return false
}

// QuizScore returns the score stored in the slot, if any.
func (p DayProgress) QuizScore(slot QuizSlot) *int {
	switch slot {
	case QuizMini1:
		return p.MiniQuiz1
	case QuizMini2:
		return p.MiniQuiz2
	case QuizDayEnd:
		return p.DayEndQuiz
	}
	return nil
}

// ProgressReport is the ordered list of days plus derived metrics.
type ProgressReport struct {
	TraineeID       int           `json:"traineeId"`
	CurrentDay      int           `json:"currentDay"`
	Progress        []DayProgress `json:"progress"`
	OverallProgress int           `json:"overallProgress"`
}

// ProgressEvent is published after each committed progress change.
type ProgressEvent struct {
	Type            string    `json:"type"`
	TraineeID       int       `json:"traineeId"`
	MentorID        *int      `json:"mentorId,omitempty"`
	Day             int       `json:"day"`
	Status          DayStatus `json:"status"`
	CurrentDay      int       `json:"currentDay"`
	OverallProgress int       `json:"overallProgress"`
	At              time.Time `json:"at"`
}

const (
	EventTaskRecorded = "task_recorded"
	EventQuizRecorded = "quiz_recorded"
	EventDayCompleted = "day_completed"
	EventDayAdvanced  = "day_advanced"
)

// TraineeSummary is a trainee with its derived overall progress.
type TraineeSummary struct {
	Trainee         User `json:"trainee"`
	OverallProgress int  `json:"overallProgress"`
}
