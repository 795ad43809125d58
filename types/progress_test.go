package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonKeys(t *testing.T, v any) map[string]any {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestProgressJSONUsesCamelCase(t *testing.T) {
	score := 80
	day := NewDayProgress(3, 1, 4)
	day.DayEndQuiz = &score

	keys := jsonKeys(t, day)
	for _, key := range []string{"traineeId", "day", "status", "dayProgress", "dayEndQuiz", "completedTasks", "tasksCompleted", "tasksTotal"} {
		assert.Contains(t, keys, key)
	}
	assert.NotContains(t, keys, "miniQuiz1")

	report := jsonKeys(t, ProgressReport{TraineeID: 3, CurrentDay: 1, Progress: []DayProgress{day}, OverallProgress: 14})
	assert.Equal(t, float64(14), report["overallProgress"])
	assert.Equal(t, float64(1), report["currentDay"])

	mentor := 2
	event := jsonKeys(t, ProgressEvent{Type: EventDayCompleted, TraineeID: 3, MentorID: &mentor, OverallProgress: 14})
	for _, key := range []string{"traineeId", "mentorId", "currentDay", "overallProgress"} {
		assert.Contains(t, event, key)
	}

	for key := range jsonKeys(t, User{ID: 1, MentorID: &mentor}) {
		assert.NotContains(t, key, "_")
	}
}
