package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_ParsesLevel(t *testing.T) {
	log, level, err := New(Config{Level: "debug", Format: "console"})
	require.NoError(t, err)
	require.NotNil(t, log)

	assert.Equal(t, zapcore.DebugLevel, level.Level())
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_FallsBackToInfo(t *testing.T) {
	_, level, err := New(Config{Level: "verbose"})
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, level.Level())
}

func TestSetLevel(t *testing.T) {
	level := zap.NewAtomicLevel()

	require.NoError(t, SetLevel(level, "warn"))
	assert.Equal(t, zapcore.WarnLevel, level.Level())

	assert.Error(t, SetLevel(level, "nope"))
	assert.Equal(t, zapcore.WarnLevel, level.Level())
}
