package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoggerAvailableBeforeInit(t *testing.T) {
	require.NotNil(t, Logger())
	// Must not panic on a nop logger.
	Info("message before init")
}

func TestInitAcceptsKnownAndUnknownLevels(t *testing.T) {
	require.NoError(t, Init("debug"))
	require.NotNil(t, Logger())

	// Unknown levels fall back to info without failing.
	require.NoError(t, Init("not-a-level"))
	require.True(t, Logger().Core().Enabled(zapcore.InfoLevel))
}

func TestWithModuleReturnsChild(t *testing.T) {
	require.NoError(t, Init("info"))
	child := WithModule("fanout")
	require.NotNil(t, child)
}
