package common

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestDefaultLoggerPrefixAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf, slog.LevelInfo)

	l.Debug("hidden")
	l.Warn("failed to load", "dir", "42")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[historydb] failed to load")
	assert.Contains(t, out, "dir=42")
}

func TestDirectionString(t *testing.T) {
	assert.Equal(t, "asc", Asc.String())
	assert.Equal(t, "desc", Desc.String())
	assert.Equal(t, "exact", Exact.String())
	assert.Equal(t, "Direction(9)", Direction(9).String())
}
