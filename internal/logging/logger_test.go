package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Run("development", func(t *testing.T) {
		logger, err := New(true)
		require.NoError(t, err)
		require.NotNil(t, logger)
		require.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("production", func(t *testing.T) {
		logger, err := New(false)
		require.NoError(t, err)
		require.NotNil(t, logger)
		require.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	})
}
