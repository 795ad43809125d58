package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoleSet(t *testing.T) {
	set, err := ParseRoleSet([]string{" mentor", "TRAINEE"})
	require.NoError(t, err)
	assert.True(t, set.Has(RoleMentor))
	assert.True(t, set.Has(RoleTrainee))
	assert.False(t, set.Has(RoleAdmin))
	assert.Equal(t, []string{"MENTOR", "TRAINEE"}, set.Names())

	_, err = ParseRoleSet([]string{"ADMIN", "owner"})
	assert.Error(t, err)

	empty, err := ParseRoleSet(nil)
	require.NoError(t, err)
	assert.True(t, empty.Empty())
}

func TestRoleSetJSON(t *testing.T) {
	data, err := json.Marshal(User{ID: 4, Roles: NewRoleSet(RoleTrainee, RoleAdmin), PasswordHash: "secret"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"roles":["ADMIN","TRAINEE"]`)
	assert.NotContains(t, string(data), "secret")

	var set RoleSet
	assert.Error(t, json.Unmarshal([]byte(`["JANITOR"]`), &set))
}

func TestParseQuizSlot(t *testing.T) {
	for _, raw := range []string{"mini1", "mini2", "dayEnd"} {
		slot, err := ParseQuizSlot(raw)
		require.NoError(t, err)
		assert.Equal(t, QuizSlot(raw), slot)
	}

	_, err := ParseQuizSlot("final")
	assert.Error(t, err)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ada@example.com", NormalizeEmail("  Ada@Example.COM "))
}
