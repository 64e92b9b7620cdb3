package alert

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNoOpNotifier(t *testing.T) {
	n := NewNoOpNotifier()
	assert.NoError(t, n.Send("anything"))
	assert.NoError(t, n.Close())
}

func TestLogNotifier_Immediate(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	n := NewLogNotifier(zap.New(core), 0)

	require.NoError(t, n.Send("order failed"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "order failed", logs.All()[0].ContextMap()["message"])
	require.NoError(t, n.Close())
}

func TestLogNotifier_Buffering(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	n := NewLogNotifier(zap.New(core), time.Hour)

	require.NoError(t, n.Send("message 1"))
	require.NoError(t, n.Send("message 2"))
	assert.Equal(t, 0, logs.Len(), "messages are held until flush")

	require.NoError(t, n.Close())
	require.Equal(t, 1, logs.Len(), "close produces one combined report")

	entry := logs.All()[0]
	assert.Equal(t, int64(2), entry.ContextMap()["count"])
	combined := entry.ContextMap()["messages"].(string)
	assert.True(t, strings.Contains(combined, "message 1"))
	assert.True(t, strings.Contains(combined, "message 2"))
}

func TestLogNotifier_CloseTwice(t *testing.T) {
	core, _ := observer.New(zap.WarnLevel)
	n := NewLogNotifier(zap.New(core), time.Hour)
	require.NoError(t, n.Close())
	require.NoError(t, n.Close())
}
