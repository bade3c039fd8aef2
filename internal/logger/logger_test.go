package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewAppLogger_DefaultsToInfo(t *testing.T) {
	l := NewAppLogger(&Config{LogLevel: "unknown"})
	l.InitLogger()

	assert.NotNil(t, l.Logger())
	assert.True(t, l.Logger().Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Logger().Core().Enabled(zapcore.DebugLevel))
}

func TestNewAppLogger_NilConfig(t *testing.T) {
	l := NewAppLogger(nil)
	l.InitLogger()

	assert.NotNil(t, l.Logger())
}

func TestAppLogger_WithKeepsLevel(t *testing.T) {
	l := NewAppLogger(&Config{LogLevel: "debug", DevMode: true})
	l.InitLogger()

	child := l.With(zap.String("pipeline", "documents"))

	assert.True(t, child.Logger().Core().Enabled(zapcore.DebugLevel))
}
