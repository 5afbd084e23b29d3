package logger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinylhub/eventsync/pkg/logger/types"
	"go.uber.org/zap/zapcore"
)

func TestNamedBeforeInit(t *testing.T) {
	saved := Log
	Log = nil
	defer func() { Log = saved }()

	_, err := Named("store")
	assert.Error(t, err)
}

func TestHookReceivesEntries(t *testing.T) {
	require.NoError(t, Init(Config{Debug: true}))
	defer SetLogHook(nil)

	var (
		mu      sync.Mutex
		entries []types.Log
	)
	SetLogHook(func(l types.Log) {
		mu.Lock()
		entries = append(entries, l)
		mu.Unlock()
	})

	named, err := Named("scheduler")
	require.NoError(t, err)
	assert.Equal(t, "scheduler", named.Name)

	named.Errorf("backend unavailable: %s", "timeout")

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, entries)
	last := entries[len(entries)-1]
	assert.Equal(t, zapcore.ErrorLevel, last.Level)
	assert.Equal(t, "main.scheduler", last.LoggerName)
	assert.Equal(t, "backend unavailable: timeout", last.Message)
}
