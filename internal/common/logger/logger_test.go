package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"jane.doe@example.com", "j******e@example.com"},
		{"ab@example.com", "a*@example.com"},
		{"a@example.com", "*@example.com"},
		{"  bob@example.com ", "b*b@example.com"},
		{"not-an-email", "***"},
		{"@example.com", "***"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskEmail(tt.in))
		})
	}
}

func TestZapAdapter_FieldsAndErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).WithFields(map[string]interface{}{"recordId": "app-1"})

	log.Info("notification sent", map[string]interface{}{"type": "status:approved"})
	log.WithError(errors.New("boom")).Error("send failed", map[string]interface{}{"cause": errors.New("smtp")})

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "notification sent", entries[0].Message)
		assert.Equal(t, "app-1", entries[0].ContextMap()["recordId"])
		assert.Equal(t, "status:approved", entries[0].ContextMap()["type"])
		assert.Equal(t, "boom", entries[1].ContextMap()["error"])
		assert.Equal(t, "smtp", entries[1].ContextMap()["cause"])
	}
}

func TestNew_Levels(t *testing.T) {
	assert.True(t, New("debug", "console").Core().Enabled(zapcore.DebugLevel))
	assert.False(t, New("warn", "json").Core().Enabled(zapcore.InfoLevel))
	assert.True(t, New("", "json").Core().Enabled(zapcore.InfoLevel))
}
