package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNamedLoggerAddsComponent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Named(NewZapLoggerFrom(zap.New(core)), "lifecycle")

	l.Warn("ledger write failed", map[string]any{
		"qr_id": "abc",
		"error": errors.New("connection refused"),
	})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)

	ctx := entries[0].ContextMap()
	assert.Equal(t, "lifecycle", ctx["component"])
	assert.Equal(t, "abc", ctx["qr_id"])
	assert.Equal(t, "connection refused", ctx["error"])
}

func TestCallFieldsOverrideFixedFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := With(NewZapLoggerFrom(zap.New(core)), map[string]any{"chain": "1043"})

	l.Debug("dropped", nil)
	l.Info("switched", map[string]any{"chain": "11155111"})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "11155111", entries[0].ContextMap()["chain"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestWithNilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		With(nil, nil).Info("ignored", nil)
	})
}
