package mapper

import (
	"time"

	"github.com/civicworks/civic-api/internal/domain"
)

const timeLayout = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// ParseTime parses the API timestamp format, also accepting RFC 3339 and plain dates
func ParseTime(s string) (time.Time, error) {
	for _, layout := range []string{timeLayout, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Parse(time.RFC3339, s)
}

// nonNil keeps JSON list fields as [] instead of null
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func ToAreaDTO(a *domain.Area) domain.AreaDTO {
	return domain.AreaDTO{
		ID:          a.ID,
		Name:        a.Name,
		Code:        a.Code,
		Description: a.Description,
		IsActive:    a.IsActive,
		CreatedAt:   formatTime(a.CreatedAt),
		UpdatedAt:   formatTime(a.UpdatedAt),
	}
}

func ToDepartmentDTO(d *domain.Department) domain.DepartmentDTO {
	return domain.DepartmentDTO{
		ID:           d.ID,
		Name:         d.Name,
		Code:         d.Code,
		Category:     d.Category,
		Description:  d.Description,
		AreaID:       d.AreaID,
		ContactEmail: d.ContactEmail,
		IsActive:     d.IsActive,
		CreatedAt:    formatTime(d.CreatedAt),
		UpdatedAt:    formatTime(d.UpdatedAt),
	}
}

func ToProfileDTO(p *domain.Profile) domain.ProfileDTO {
	return domain.ProfileDTO{
		ID:           p.ID,
		Email:        p.Email,
		FullName:     p.FullName,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		DisplayName:  p.DisplayName(),
		UserType:     p.UserType,
		AreaID:       p.AreaID,
		DepartmentID: p.DepartmentID,
		IsVerified:   p.IsVerified,
		CreatedAt:    formatTime(p.CreatedAt),
		UpdatedAt:    formatTime(p.UpdatedAt),
	}
}

func ToIssueDTO(i *domain.Issue) domain.IssueDTO {
	return domain.IssueDTO{
		ID:                   i.ID,
		ReporterID:           i.ReporterID,
		Title:                i.Title,
		Description:          i.Description,
		Category:             i.Category,
		Area:                 i.Area,
		Address:              i.Address,
		Latitude:             i.Latitude,
		Longitude:            i.Longitude,
		Images:               nonNil(i.Images),
		Status:               i.Status,
		Priority:             i.Priority,
		WorkflowStage:        i.WorkflowStage,
		AssignedAreaID:       i.AssignedAreaID,
		AssignedDepartmentID: i.AssignedDepartmentID,
		CurrentAssigneeID:    i.CurrentAssigneeID,
		Upvotes:              i.Upvotes,
		Downvotes:            i.Downvotes,
		ResolvedAt:           formatTimePtr(i.ResolvedAt),
		CreatedAt:            formatTime(i.CreatedAt),
		UpdatedAt:            formatTime(i.UpdatedAt),
	}
}

func ToTenderDTO(t *domain.Tender) domain.TenderDTO {
	return domain.TenderDTO{
		ID:           t.ID,
		IssueID:      t.IssueID,
		DepartmentID: t.DepartmentID,
		Title:        t.Title,
		Description:  t.Description,
		Budget:       t.Budget,
		Deadline:     formatTimePtr(t.Deadline),
		Status:       t.Status,
		AwardedTo:    t.AwardedTo,
		AwardedBidID: t.AwardedBidID,
		AwardedAt:    formatTimePtr(t.AwardedAt),
		CreatedBy:    t.CreatedBy,
		CreatedAt:    formatTime(t.CreatedAt),
		UpdatedAt:    formatTime(t.UpdatedAt),
	}
}

func ToBidDTO(b *domain.Bid) domain.BidDTO {
	return domain.BidDTO{
		ID:            b.ID,
		TenderID:      b.TenderID,
		ContractorID:  b.ContractorID,
		Amount:        b.Amount,
		Proposal:      b.Proposal,
		EstimatedDays: b.EstimatedDays,
		Status:        b.Status,
		CreatedAt:     formatTime(b.CreatedAt),
		UpdatedAt:     formatTime(b.UpdatedAt),
	}
}

func ToAssignmentDTO(a *domain.IssueAssignment) domain.AssignmentDTO {
	return domain.AssignmentDTO{
		ID:             a.ID,
		IssueID:        a.IssueID,
		AssignmentType: a.AssignmentType,
		AssignedBy:     a.AssignedBy,
		AssignedTo:     a.AssignedTo,
		AreaID:         a.AreaID,
		DepartmentID:   a.DepartmentID,
		TenderID:       a.TenderID,
		Status:         a.Status,
		Notes:          a.Notes,
		CreatedAt:      formatTime(a.CreatedAt),
		UpdatedAt:      formatTime(a.UpdatedAt),
	}
}

func ToWorkProgressDTO(p *domain.WorkProgress) domain.WorkProgressDTO {
	return domain.WorkProgressDTO{
		ID:                 p.ID,
		IssueID:            p.IssueID,
		TenderID:           p.TenderID,
		ContractorID:       p.ContractorID,
		Title:              p.Title,
		Description:        p.Description,
		ProgressPercentage: p.ProgressPercentage,
		Status:             p.Status,
		Images:             nonNil(p.Images),
		Documents:          nonNil(p.Documents),
		MaterialsUsed:      nonNil(p.MaterialsUsed),
		LaborHours:         p.LaborHours,
		Expenses:           p.Expenses,
		Notes:              p.Notes,
		SupervisorNotes:    p.SupervisorNotes,
		SupervisorRating:   p.SupervisorRating,
		ReviewedBy:         p.ReviewedBy,
		ReviewedAt:         formatTimePtr(p.ReviewedAt),
		CreatedAt:          formatTime(p.CreatedAt),
		UpdatedAt:          formatTime(p.UpdatedAt),
	}
}

func ToEvaluationDTO(e *domain.TenderEvaluation) domain.EvaluationDTO {
	return domain.EvaluationDTO{
		ID:              e.ID,
		TenderID:        e.TenderID,
		BidID:           e.BidID,
		EvaluatorID:     e.EvaluatorID,
		TechnicalScore:  e.TechnicalScore,
		FinancialScore:  e.FinancialScore,
		ExperienceScore: e.ExperienceScore,
		TimelineScore:   e.TimelineScore,
		TotalScore:      e.TotalScore,
		Recommendation:  e.Recommendation,
		Comments:        e.Comments,
		CreatedAt:       formatTime(e.CreatedAt),
		UpdatedAt:       formatTime(e.UpdatedAt),
	}
}
