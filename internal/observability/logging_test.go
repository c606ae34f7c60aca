package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/hoyn-app/profile-qr/internal/config"
)

func TestNewLogger_Level(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger(config.LoggerConfig{Level: "WARN"}, config.AppConfig{Name: "svc", Env: "production"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	fallback, err := NewLogger(config.LoggerConfig{Level: "loud"}, config.AppConfig{})
	require.NoError(t, err)
	assert.True(t, fallback.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, fallback.Core().Enabled(zapcore.DebugLevel))
}
