package pkg

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLogs routes the default logger into a buffer at debug level for the
// duration of the test.
func captureLogs(t *testing.T, json bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	original := DefaultLogger
	level := GetLogLevel()
	t.Cleanup(func() {
		SetLogger(original)
		SetLogLevel(level)
	})

	SetLogLevel(slog.LevelDebug)
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	if json {
		SetLogger(NewJSONLogger(&buf, opts))
	} else {
		SetLogger(NewLogger(&buf, opts))
	}
	return &buf
}

func TestSetLogLevel(t *testing.T) {
	original := GetLogLevel()
	defer SetLogLevel(original)

	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		SetLogLevel(level)
		assert.Equal(t, level, GetLogLevel())
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    slog.Level
		wantErr bool
	}{
		{name: "debug", want: slog.LevelDebug},
		{name: "INFO", want: slog.LevelInfo},
		{name: "warn", want: slog.LevelWarn},
		{name: "error", want: slog.LevelError},
		{name: "loud", want: slog.LevelWarn, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLogLevel(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidParameter)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLogFormat(t *testing.T) {
	got, err := ParseLogFormat("")
	require.NoError(t, err)
	assert.Equal(t, LogFormatText, got)

	got, err = ParseLogFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, LogFormatJSON, got)

	_, err = ParseLogFormat("xml")
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestLogComponents(t *testing.T) {
	tests := []struct {
		name string
		log  func(Component, string, ...any)
	}{
		{"debug", LogDebug},
		{"info", LogInfo},
		{"warn", LogWarn},
		{"error", LogError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLogs(t, false)
			tt.log(ComponentPump, tt.name+" message", "key", "value")
			assert.Contains(t, buf.String(), tt.name+" message")
			assert.Contains(t, buf.String(), "component=pump")
			assert.Contains(t, buf.String(), "key=value")
		})
	}
}

func TestLogJSON(t *testing.T) {
	buf := captureLogs(t, true)
	LogInfo(ComponentControl, "state transition", "to", "STALLED")
	assert.Contains(t, buf.String(), `"msg":"state transition"`)
	assert.Contains(t, buf.String(), `"component":"control"`)
}

func TestLogLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	original := DefaultLogger
	level := GetLogLevel()
	defer func() {
		SetLogger(original)
		SetLogLevel(level)
	}()

	SetLogLevel(slog.LevelWarn)
	SetLogger(NewLogger(&buf, nil))
	LogDebug(ComponentSetup, "hidden")
	LogWarn(ComponentSetup, "shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
