package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestInitializeWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	InitializeWriter(&buf, "debug", "json")
	defer Initialize("info", "text")

	FileResult("load", "users.txt", 3, errors.New("boom"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "users.txt", entry["path"])
	assert.Equal(t, float64(3), entry["records"])
	assert.Equal(t, "boom", entry["error"])
}

func TestInitializeWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	InitializeWriter(&buf, "warn", "text")
	defer Initialize("info", "text")

	Info("hidden")
	Debug("hidden")
	assert.Empty(t, buf.String())

	WithSession("abc").Warn("shown")
	assert.Contains(t, buf.String(), "session_id=abc")
}
