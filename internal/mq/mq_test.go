package mq

import (
	"context"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sarf14/onboarding-tool-sub001/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenWithoutProvider(t *testing.T) {
	m, err := Open(context.Background(), config.MQConfig{})
	require.NoError(t, err)
	assert.Nil(t, m)

	_, err = Open(context.Background(), config.MQConfig{Provider: "kafka"})
	assert.Error(t, err)
}

func TestHeadersToAttributes(t *testing.T) {
	attrs := headersToAttributes(amqp.Table{
		"type":       "task_recorded",
		"trainee_id": []byte("7"),
		"day":        int32(2),
	})
	assert.Equal(t, map[string]string{
		"type":       "task_recorded",
		"trainee_id": "7",
		"day":        "2",
	}, attrs)

	assert.Nil(t, headersToAttributes(nil))
}

func TestNewMessageIDIsUnique(t *testing.T) {
	a, b := newMessageID(), newMessageID()
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
