package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForVerbosity(t *testing.T) {
	buf := &bytes.Buffer{}
	quiet := ForVerbosity(buf, false)
	quiet.Debug("hidden")
	quiet.Info("hidden too")
	assert.Empty(t, buf.String())

	quiet.Warn("shown")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	loud := ForVerbosity(buf, true)
	loud.Debug("request", "path", "/health")
	assert.Contains(t, buf.String(), "path=/health")
}

func TestNewJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Config{Level: slog.LevelInfo, Output: buf, JSON: true})
	logger.Info("probe", "name", "health")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "probe", record["msg"])
	assert.Equal(t, "health", record["name"])
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	assert.False(t, logger.Enabled(t.Context(), slog.LevelError))
	logger.Error("nothing happens")
}
