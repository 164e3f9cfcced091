package telemetry

import (
	"context"
	"testing"

	"github.com/civicworks/civic-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_DisabledInstallsNoop(t *testing.T) {
	require.NoError(t, Init(context.Background(), &config.TelemetryConfig{}, "test"))

	assert.NotPanics(t, func() {
		RecordTransition(context.Background(), "reported", "area_review", "create")
		RecordVote(context.Background(), "cast", "upvote")
		RecordUpload(context.Background(), false)
		RecordSubmission(context.Background(), "persisted")
	})

	_, span := Tracer("").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	Shutdown(context.Background())
}

func TestInit_EnabledWithoutExporters(t *testing.T) {
	cfg := &config.TelemetryConfig{Enabled: true, ServiceName: "civic-api"}
	require.NoError(t, Init(context.Background(), cfg, "test"))
	t.Cleanup(func() { Shutdown(context.Background()) })

	_, span := Tracer("").Start(context.Background(), "sampled")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
}
