package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/sarf14/onboarding-tool-sub001/config"
	"github.com/sarf14/onboarding-tool-sub001/internal/mq"
	"github.com/sarf14/onboarding-tool-sub001/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	handle := progressNotifier(logger)

	mentorID := 4
	data, err := json.Marshal(types.ProgressEvent{
		Type:            types.EventDayCompleted,
		TraineeID:       9,
		MentorID:        &mentorID,
		Day:             2,
		Status:          types.StatusCompleted,
		OverallProgress: 29,
	})
	require.NoError(t, err)

	require.NoError(t, handle(context.Background(), mq.Message{ID: "1", Data: data}))
	assert.Contains(t, buf.String(), "notify mentor")
	assert.Contains(t, buf.String(), "mentor_id=4")
	assert.Contains(t, buf.String(), "trainee_id=9")
}

func TestProgressNotifierDropsMalformedEvents(t *testing.T) {
	var buf bytes.Buffer
	handle := progressNotifier(slog.New(slog.NewTextHandler(&buf, nil)))

	assert.NoError(t, handle(context.Background(), mq.Message{ID: "7", Data: []byte("{")}))
	assert.Contains(t, buf.String(), "dropping malformed progress event")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.Config{LogLevel: "warn", LogFormat: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", slog.Int("user_id", 3))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, float64(3), line["user_id"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelError, parseLevel(" ERROR "))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}
