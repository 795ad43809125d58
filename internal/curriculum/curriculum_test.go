package curriculum

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCurriculum(t *testing.T) {
	c, err := Load("", 7)
	require.NoError(t, err)

	assert.Equal(t, 7, c.Len())
	assert.Equal(t, 4, c.TasksTotal(1))
	assert.True(t, c.HasTask(1, "laptop"))
	assert.False(t, c.HasTask(2, "laptop"))
	assert.Zero(t, c.TasksTotal(8))
}

func TestLoadRejectsWrongLength(t *testing.T) {
	_, err := Load("", 5)
	assert.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curriculum.yaml")
	data := []byte(`days:
  - day: 1
    tasks: [{id: a}, {id: b}]
  - day: 2
    tasks: []
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	c, err := Load(path, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, c.TasksTotal(1))
	assert.Zero(t, c.TasksTotal(2))
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", `days: []`},
		{"out of order", "days:\n  - day: 2\n"},
		{"missing task id", "days:\n  - day: 1\n    tasks: [{title: x}]\n"},
		{"duplicate task", "days:\n  - day: 1\n    tasks: [{id: a}, {id: a}]\n"},
		{"malformed", "days: {"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}
