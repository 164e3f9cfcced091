package logger

import (
	"testing"

	"github.com/civicworks/civic-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_LevelFallback(t *testing.T) {
	log, err := NewLogger(&config.LoggingConfig{Level: "nonsense", Format: "json"}, &config.AppConfig{Name: "civic", Environment: "test"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestWithHelpers(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	WithIssue(WithUser(WithRequest(base, "POST", "/api/v1/issues", "req-1"), "u-1", "admin"), "i-1", "area_review").Info("done")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "POST", fields["method"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "admin", fields["user_type"])
	assert.Equal(t, "area_review", fields["workflow_stage"])
}
