// Package progress turns a contractor's progress form into one stored
// work-progress record with its uploaded photos.
package progress

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/civicworks/civic-api/internal/media"
	"github.com/google/uuid"
)

// Form holds what the contractor entered, as entered. Numeric fields stay
// strings until BuildPayload normalizes them.
type Form struct {
	IssueID  *uuid.UUID
	TenderID *uuid.UUID

	Title              string
	Description        string
	ProgressPercentage string
	Status             string
	// MaterialsUsed is a comma or newline separated list
	MaterialsUsed string
	LaborHours    string
	Expenses      string
	Notes         string

	Media []media.Item
}

// Reset returns the form to its initial empty state. The issue and tender
// it was opened for are kept.
func (f *Form) Reset() {
	*f = Form{IssueID: f.IssueID, TenderID: f.TenderID}
}

// ValidationError lists the fields that block a submission
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "invalid progress update: " + strings.Join(parts, ", ")
}

// Validate checks the fields that must be present before anything is uploaded
func (f *Form) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(f.Title) == "" {
		fields["title"] = "is required"
	}
	if strings.TrimSpace(f.Description) == "" {
		fields["description"] = "is required"
	}
	if f.IssueID == nil && f.TenderID == nil {
		fields["issueId"] = "an issue or tender is required"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Payload is the normalized record handed to the persister
type Payload struct {
	IssueID            *uuid.UUID
	TenderID           *uuid.UUID
	Title              string
	Description        string
	ProgressPercentage int
	Status             domain.ProgressStatus
	Images             []string
	MaterialsUsed      []string
	LaborHours         float64
	Expenses           float64
	Notes              string
}

// BuildPayload merges the form with the uploaded image URLs. Materials are
// trimmed with blanks dropped; hours and expenses fall back to zero when they
// do not parse; the percentage is clamped to [0,100]; status defaults to
// in_progress.
func BuildPayload(f *Form, imageURLs []string) *Payload {
	images := make([]string, 0, len(imageURLs))
	images = append(images, imageURLs...)

	return &Payload{
		IssueID:            f.IssueID,
		TenderID:           f.TenderID,
		Title:              strings.TrimSpace(f.Title),
		Description:        strings.TrimSpace(f.Description),
		ProgressPercentage: parsePercentage(f.ProgressPercentage),
		Status:             parseStatus(f.Status),
		Images:             images,
		MaterialsUsed:      splitMaterials(f.MaterialsUsed),
		LaborHours:         parseDecimal(f.LaborHours),
		Expenses:           parseDecimal(f.Expenses),
		Notes:              strings.TrimSpace(f.Notes),
	}
}

func splitMaterials(s string) []string {
	out := []string{}
	for _, m := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' }) {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

func parseDecimal(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func parsePercentage(s string) int {
	v := parseDecimal(s)
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return int(v)
}

func parseStatus(s string) domain.ProgressStatus {
	status := domain.ProgressStatus(strings.TrimSpace(s))
	if !status.IsValid() {
		return domain.ProgressInProgress
	}
	return status
}
