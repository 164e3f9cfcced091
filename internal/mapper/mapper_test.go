package mapper

import (
	"testing"
	"time"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToIssueDTO(t *testing.T) {
	resolved := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)
	issue := &domain.Issue{
		BaseModel:     domain.BaseModel{ID: uuid.New(), CreatedAt: resolved.Add(-time.Hour)},
		Title:         "Broken streetlight",
		WorkflowStage: domain.StageResolved,
		ResolvedAt:    &resolved,
	}

	dto := ToIssueDTO(issue)

	assert.Equal(t, issue.ID, dto.ID)
	assert.Equal(t, []string{}, dto.Images)
	require.NotNil(t, dto.ResolvedAt)
	assert.Equal(t, "2026-03-04T10:30:00Z", *dto.ResolvedAt)
	assert.Equal(t, "2026-03-04T09:30:00Z", dto.CreatedAt)
}

func TestToProfileDTO_DisplayName(t *testing.T) {
	p := &domain.Profile{FirstName: "Grace", LastName: "Hopper"}
	assert.Equal(t, "Grace Hopper", ToProfileDTO(p).DisplayName)

	p = &domain.Profile{Email: "only@example.com"}
	assert.Equal(t, "only@example.com", ToProfileDTO(p).DisplayName)
}

func TestParseTime(t *testing.T) {
	for _, in := range []string{"2026-05-01T00:00:00Z", "2026-05-01T02:00:00+02:00", "2026-05-01"} {
		got, err := ParseTime(in)
		require.NoError(t, err, in)
		assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), got, in)
	}
	_, err := ParseTime("yesterday")
	assert.Error(t, err)
}
