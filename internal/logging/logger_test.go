package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelInfo, FormatJSON)

	logger.Debug("hidden")
	logger.Error("resume failed", "error", errors.New("boom"), "flow_id", "booking")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "resume failed", entry["msg"])
	assert.Equal(t, "boom", entry["err"])
	assert.NotContains(t, entry, "error")
	assert.Equal(t, "booking", entry["flow_id"])
}

func TestNewWithWriter_TextFallback(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, slog.LevelDebug, "xml").Debug("paused", "execution", "e1s1")

	assert.Contains(t, buf.String(), "msg=paused")
	assert.Contains(t, buf.String(), "execution=e1s1")
}
