package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "local", cfg.Storage.Mode)
	assert.Equal(t, 4, cfg.Storage.UploadConcurrency)
	assert.False(t, cfg.Workflow.EnforceForwardOnly)
	assert.Equal(t, "0 */10 * * * *", cfg.Workflow.TriageSweepCron)
	assert.Equal(t, "authenticated", cfg.Auth.Audience)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("WORKFLOW_ENFORCEFORWARDONLY", "true")
	t.Setenv("JWT_SECRET", "top-secret")
	t.Setenv("ADMIN_API_KEY", "key-123")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Workflow.EnforceForwardOnly)
	assert.Equal(t, "top-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "key-123", cfg.Auth.APIKey)
}

func TestDatabaseConfig_Strings(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, Name: "civic", User: "u", Password: "p", SSLMode: "disable", ConnMaxLifetime: 60}

	assert.Equal(t, "host=db port=5432 user=u password=p dbname=civic sslmode=disable", d.ConnectionString())
	assert.Equal(t, "postgres://u:p@db:5432/civic?sslmode=disable", d.URL())
	assert.Equal(t, time.Minute, d.ConnMaxLifetimeDuration())
}

func TestStorageConfig_MaxUploadBytes(t *testing.T) {
	s := StorageConfig{MaxUploadSizeMB: 2}
	assert.Equal(t, int64(2*1024*1024), s.MaxUploadBytes())
}
