package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONRenderer(t *testing.T) {
	buf := &bytes.Buffer{}
	playScenario(t, NewJSON(buf))

	var decoded Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, "http://localhost:3000", decoded.Target)
	assert.True(t, decoded.StartedAt.Equal(startedAt))
	require.Len(t, decoded.Results, 3)
	assert.Equal(t, "Health endpoint", decoded.Results[1].Name)
	assert.False(t, decoded.Results[1].Passed)
	assert.Equal(t, "status: 503", decoded.Results[1].Detail)

	require.Len(t, decoded.Notes, 1)
	assert.Equal(t, "3. Registration", decoded.Notes[0].Section)
	require.Len(t, decoded.Skipped, 1)
	assert.Equal(t, "6. Authenticated user", decoded.Skipped[0].Section)

	assert.Equal(t, 3, decoded.Summary.Total)
	assert.Equal(t, 1, decoded.Summary.SkippedGroups)
	assert.InDelta(t, 66.666, decoded.SuccessRate, 0.01)
}

func TestJSONRendererEmptyRun(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewJSON(buf)
	require.NoError(t, r.Summary(Report{}.Summary))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	assert.Equal(t, []any{}, raw["results"])
	assert.InDelta(t, 100.0, raw["success_rate"], 0)
}
