//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echobook/internal/config"
)

func TestWith_AttachesContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, config.LogConfig{Level: "debug", Format: "json"}, false)

	ctx := WithTraceID(context.Background(), "trace-1")
	ctx = WithJobID(ctx, "job-1")
	With(ctx, base).Info().Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line), "log line is not json: %s", buf.String())
	assert.Equal(t, "trace-1", line["trace_id"])
	assert.Equal(t, "job-1", line["job_id"])
	assert.NotContains(t, line, "voice_id", "voice_id must be omitted when absent")
}

func TestNewWithWriter_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, config.LogConfig{Level: "warn", Format: "json"}, false)
	l.Info().Msg("dropped")
	assert.Zero(t, buf.Len(), "info should be filtered at warn level")
	l.Warn().Msg("kept")
	assert.NotZero(t, buf.Len(), "warn should be written")
}

func TestPreviewAndRedact(t *testing.T) {
	assert.Equal(t, "abc...", Preview("  abcdef  ", 3))
	assert.Equal(t, "abc", Preview("abc", 10))
	assert.Equal(t, "***", Redact("short", false))
	assert.Equal(t, "sk-1...90", Redact("sk-1234567890", false))
	assert.Equal(t, "sk-1234567890", Redact("sk-1234567890", true))
}
