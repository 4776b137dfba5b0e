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

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestZapWrapper_FieldsAreCarried(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core))

	log.With(map[string]interface{}{"requestId": "req-1"}).
		WithError(errors.New("boom")).
		Error("crm query failed", map[string]interface{}{"vehicleId": "a0B5g00000LkVnWEAV"})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "crm query failed", entry.Message)

	ctx := entry.ContextMap()
	assert.Equal(t, "req-1", ctx["requestId"])
	assert.Equal(t, "a0B5g00000LkVnWEAV", ctx["vehicleId"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestZapWrapper_LevelFiltering(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	log := NewZapAdapter(zap.New(core))

	log.Debug("dropped", nil)
	log.Info("dropped", nil)
	log.Warn("kept", nil)

	assert.Equal(t, 1, logs.Len())
}

func TestConstructors(t *testing.T) {
	assert.NotNil(t, NewStructured("debug", "json"))
	assert.NotNil(t, NewStructured("info", "console"))
	assert.NotNil(t, NewTestLogger(t))

	noop := NewNoOpLogger()
	noop.Info("nothing", map[string]interface{}{"k": "v"})
}
