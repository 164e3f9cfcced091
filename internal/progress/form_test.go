package progress

import (
	"testing"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/civicworks/civic-api/internal/media"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPayload_Normalizes(t *testing.T) {
	issueID := uuid.New()
	form := &Form{
		IssueID:            &issueID,
		Title:              "  Patched the hole ",
		Description:        "Filled with asphalt",
		ProgressPercentage: "140",
		Status:             "",
		MaterialsUsed:      " asphalt, ,gravel\n\n sealant ",
		LaborHours:         "6.5",
		Expenses:           "not a number",
		Notes:              "done for today",
	}

	p := BuildPayload(form, []string{"https://m/1.jpg"})

	assert.Equal(t, &issueID, p.IssueID)
	assert.Nil(t, p.TenderID)
	assert.Equal(t, "Patched the hole", p.Title)
	assert.Equal(t, 100, p.ProgressPercentage)
	assert.Equal(t, domain.ProgressInProgress, p.Status)
	assert.Equal(t, []string{"asphalt", "gravel", "sealant"}, p.MaterialsUsed)
	assert.Equal(t, 6.5, p.LaborHours)
	assert.Equal(t, 0.0, p.Expenses)
	assert.Equal(t, []string{"https://m/1.jpg"}, p.Images)
}

func TestBuildPayload_Defaults(t *testing.T) {
	tenderID := uuid.New()
	p := BuildPayload(&Form{TenderID: &tenderID, Title: "t", Description: "d", ProgressPercentage: "-5", Status: "completed"}, nil)

	assert.Equal(t, 0, p.ProgressPercentage)
	assert.Equal(t, domain.ProgressCompleted, p.Status)
	assert.NotNil(t, p.Images)
	assert.Empty(t, p.Images)
	assert.Empty(t, p.MaterialsUsed)
	assert.Equal(t, 0.0, p.LaborHours)
}

func TestParsePercentage(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abc", 0},
		{"42", 42},
		{"42.9", 42},
		{"100", 100},
		{"101", 100},
		{"-1", 0},
		{"NaN", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parsePercentage(tt.in), tt.in)
	}
}

func TestValidate(t *testing.T) {
	issueID := uuid.New()

	err := (&Form{IssueID: &issueID, Title: "t", Description: "   "}).Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "description")
	assert.NotContains(t, verr.Fields, "title")

	err = (&Form{Title: "t", Description: "d"}).Validate()
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "issueId")

	assert.NoError(t, (&Form{IssueID: &issueID, Title: "t", Description: "d"}).Validate())
}

func TestReset_KeepsTarget(t *testing.T) {
	issueID := uuid.New()
	form := &Form{
		IssueID:     &issueID,
		Title:       "t",
		Description: "d",
		Media:       []media.Item{{Filename: "a.jpg", Data: []byte("x")}},
	}

	form.Reset()

	assert.Equal(t, &issueID, form.IssueID)
	assert.Empty(t, form.Title)
	assert.Empty(t, form.Description)
	assert.Empty(t, form.Media)
}
