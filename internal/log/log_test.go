package log

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetup_DefaultLevel(t *testing.T) {
	logger := Setup(false, false)

	ctx := context.Background()
	handler := logger.Handler()
	assert.True(t, handler.Enabled(ctx, slog.LevelInfo))
	assert.False(t, handler.Enabled(ctx, slog.LevelDebug))
	assert.Same(t, logger, slog.Default())
}

func TestSetup_VerboseLevel(t *testing.T) {
	handler := Setup(true, false).Handler()
	assert.True(t, handler.Enabled(context.Background(), slog.LevelDebug))
}

func TestSetup_QuietTakesPrecedence(t *testing.T) {
	handler := Setup(true, true).Handler()
	ctx := context.Background()
	assert.False(t, handler.Enabled(ctx, slog.LevelInfo))
	assert.True(t, handler.Enabled(ctx, slog.LevelWarn))
}

func TestSetupWriter_TextOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWriter(&buf, false, false)
	logger.Info("writing value", "field", "name")

	out := buf.String()
	assert.Contains(t, out, "msg=\"writing value\"")
	assert.Contains(t, out, "field=name")
}
