package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}

	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), "level %q", in)
	}
}

func TestGet_WithoutInitReturnsNop(t *testing.T) {
	globalMu.Lock()
	global = nil
	globalMu.Unlock()

	l := Get()
	require.NotNil(t, l)
	assert.NotPanics(t, func() { l.Info("hello") })
}

func TestInit_SetsGlobal(t *testing.T) {
	err := Init(&Config{Level: "debug", ServiceName: "queueme-test"})
	require.NoError(t, err)

	l := Get()
	assert.True(t, l.Zap().Core().Enabled(zapcore.DebugLevel))
}

func TestWithContext_NoSpan(t *testing.T) {
	l := NewNop()
	assert.Same(t, l, l.WithContext(context.Background()))
}
