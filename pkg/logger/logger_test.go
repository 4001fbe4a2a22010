package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{" error ", LevelError},
		{"fatal", LevelFatal},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	prev := Use(NewWriter(LevelWarn, &buf))
	defer Use(prev)

	Debug("hidden %d", 1)
	Info("hidden %d", 2)
	Warn("shown %d", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown 3")
}

func TestComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	prev := Use(NewWriter(LevelDebug, &buf))
	defer Use(prev)

	log := WithComponent("session")
	log.Debug("turn %d started", 7)

	assert.Contains(t, buf.String(), "[DEBUG] [session] turn 7 started")
}

func TestSilentWithoutLogger(t *testing.T) {
	prev := Use(nil)
	defer Use(prev)

	assert.NotPanics(t, func() {
		Debug("nothing")
		Info("nothing")
		WithComponent("x").Warn("nothing")
		assert.NoError(t, Close())
	})
}

func TestNewTruncatesUnlessPersisting(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "system.log")
	require.NoError(t, os.WriteFile(logPath, []byte("old line\n"), 0644))

	l, err := New(LevelInfo, logPath, false)
	require.NoError(t, err)
	l.Info("fresh")
	require.NoError(t, l.Close())

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "old line")
	assert.Contains(t, string(content), "fresh")

	l, err = New(LevelInfo, logPath, true)
	require.NoError(t, err)
	l.Info("appended")
	require.NoError(t, l.Close())

	content, err = os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "fresh")
	assert.Contains(t, string(content), "appended")
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "FATAL", LevelFatal.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}
