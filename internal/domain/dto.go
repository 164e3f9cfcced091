package domain

import (
	"github.com/google/uuid"
)

// DTOs for API responses

type AreaDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   string    `json:"createdAt"` // ISO 8601
	UpdatedAt   string    `json:"updatedAt"` // ISO 8601
}

type DepartmentDTO struct {
	ID           uuid.UUID          `json:"id"`
	Name         string             `json:"name"`
	Code         string             `json:"code"`
	Category     DepartmentCategory `json:"category"`
	Description  string             `json:"description,omitempty"`
	AreaID       *uuid.UUID         `json:"areaId,omitempty"`
	ContactEmail string             `json:"contactEmail,omitempty"`
	IsActive     bool               `json:"isActive"`
	CreatedAt    string             `json:"createdAt"`
	UpdatedAt    string             `json:"updatedAt"`
}

type ProfileDTO struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email,omitempty"`
	FullName     string     `json:"fullName"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	DisplayName  string     `json:"displayName"`
	UserType     UserType   `json:"userType"`
	AreaID       *uuid.UUID `json:"areaId,omitempty"`
	DepartmentID *uuid.UUID `json:"departmentId,omitempty"`
	IsVerified   bool       `json:"isVerified"`
	CreatedAt    string     `json:"createdAt"`
	UpdatedAt    string     `json:"updatedAt"`
}

type IssueDTO struct {
	ID                   uuid.UUID     `json:"id"`
	ReporterID           uuid.UUID     `json:"reporterId"`
	Title                string        `json:"title"`
	Description          string        `json:"description"`
	Category             string        `json:"category,omitempty"`
	Area                 string        `json:"area,omitempty"`
	Address              string        `json:"address,omitempty"`
	Latitude             *float64      `json:"latitude,omitempty"`
	Longitude            *float64      `json:"longitude,omitempty"`
	Images               []string      `json:"images"`
	Status               IssueStatus   `json:"status"`
	Priority             IssuePriority `json:"priority"`
	WorkflowStage        WorkflowStage `json:"workflowStage"`
	AssignedAreaID       *uuid.UUID    `json:"assignedAreaId,omitempty"`
	AssignedDepartmentID *uuid.UUID    `json:"assignedDepartmentId,omitempty"`
	CurrentAssigneeID    *uuid.UUID    `json:"currentAssigneeId,omitempty"`
	Upvotes              int           `json:"upvotes"`
	Downvotes            int           `json:"downvotes"`
	ResolvedAt           *string       `json:"resolvedAt,omitempty"`
	CreatedAt            string        `json:"createdAt"`
	UpdatedAt            string        `json:"updatedAt"`
}

type VoteDTO struct {
	IssueID   uuid.UUID `json:"issueId"`
	UserID    uuid.UUID `json:"userId"`
	VoteType  VoteType  `json:"voteType"`
	Upvotes   int       `json:"upvotes"`
	Downvotes int       `json:"downvotes"`
}

type TenderDTO struct {
	ID           uuid.UUID    `json:"id"`
	IssueID      *uuid.UUID   `json:"issueId,omitempty"`
	DepartmentID *uuid.UUID   `json:"departmentId,omitempty"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	Budget       float64      `json:"budget"`
	Deadline     *string      `json:"deadline,omitempty"`
	Status       TenderStatus `json:"status"`
	AwardedTo    *uuid.UUID   `json:"awardedTo,omitempty"`
	AwardedBidID *uuid.UUID   `json:"awardedBidId,omitempty"`
	AwardedAt    *string      `json:"awardedAt,omitempty"`
	CreatedBy    uuid.UUID    `json:"createdBy"`
	CreatedAt    string       `json:"createdAt"`
	UpdatedAt    string       `json:"updatedAt"`
}

type BidDTO struct {
	ID            uuid.UUID `json:"id"`
	TenderID      uuid.UUID `json:"tenderId"`
	ContractorID  uuid.UUID `json:"contractorId"`
	Amount        float64   `json:"amount"`
	Proposal      string    `json:"proposal,omitempty"`
	EstimatedDays int       `json:"estimatedDays"`
	Status        BidStatus `json:"status"`
	CreatedAt     string    `json:"createdAt"`
	UpdatedAt     string    `json:"updatedAt"`
}

type AssignmentDTO struct {
	ID             uuid.UUID        `json:"id"`
	IssueID        uuid.UUID        `json:"issueId"`
	AssignmentType AssignmentType   `json:"assignmentType"`
	AssignedBy     uuid.UUID        `json:"assignedBy"`
	AssignedTo     *uuid.UUID       `json:"assignedTo,omitempty"`
	AreaID         *uuid.UUID       `json:"areaId,omitempty"`
	DepartmentID   *uuid.UUID       `json:"departmentId,omitempty"`
	TenderID       *uuid.UUID       `json:"tenderId,omitempty"`
	Status         AssignmentStatus `json:"status"`
	Notes          string           `json:"notes,omitempty"`
	CreatedAt      string           `json:"createdAt"`
	UpdatedAt      string           `json:"updatedAt"`
}

type WorkProgressDTO struct {
	ID                 uuid.UUID      `json:"id"`
	IssueID            *uuid.UUID     `json:"issueId,omitempty"`
	TenderID           *uuid.UUID     `json:"tenderId,omitempty"`
	ContractorID       uuid.UUID      `json:"contractorId"`
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	ProgressPercentage int            `json:"progressPercentage"`
	Status             ProgressStatus `json:"status"`
	Images             []string       `json:"images"`
	Documents          []string       `json:"documents"`
	MaterialsUsed      []string       `json:"materialsUsed"`
	LaborHours         float64        `json:"laborHours"`
	Expenses           float64        `json:"expenses"`
	Notes              string         `json:"notes,omitempty"`
	SupervisorNotes    string         `json:"supervisorNotes,omitempty"`
	SupervisorRating   *int           `json:"supervisorRating,omitempty"`
	ReviewedBy         *uuid.UUID     `json:"reviewedBy,omitempty"`
	ReviewedAt         *string        `json:"reviewedAt,omitempty"`
	CreatedAt          string         `json:"createdAt"`
	UpdatedAt          string         `json:"updatedAt"`
}

type EvaluationDTO struct {
	ID              uuid.UUID      `json:"id"`
	TenderID        uuid.UUID      `json:"tenderId"`
	BidID           uuid.UUID      `json:"bidId"`
	EvaluatorID     uuid.UUID      `json:"evaluatorId"`
	TechnicalScore  float64        `json:"technicalScore"`
	FinancialScore  float64        `json:"financialScore"`
	ExperienceScore float64        `json:"experienceScore"`
	TimelineScore   float64        `json:"timelineScore"`
	TotalScore      float64        `json:"totalScore"`
	Recommendation  Recommendation `json:"recommendation"`
	Comments        string         `json:"comments,omitempty"`
	CreatedAt       string         `json:"createdAt"`
	UpdatedAt       string         `json:"updatedAt"`
}

// AuthUserDTO describes the authenticated caller returned by /auth/me
type AuthUserDTO struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email,omitempty"`
	DisplayName  string     `json:"displayName"`
	UserType     UserType   `json:"userType"`
	AreaID       *uuid.UUID `json:"areaId,omitempty"`
	DepartmentID *uuid.UUID `json:"departmentId,omitempty"`
	IsVerified   bool       `json:"isVerified"`
}

// PaginatedResponse wraps a page of list results
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// Request DTOs

type CreateAreaRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Code        string `json:"code" validate:"required,max=50"`
	Description string `json:"description,omitempty" validate:"max=2000"`
	IsActive    *bool  `json:"isActive,omitempty"`
}

type UpdateAreaRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description,omitempty" validate:"max=2000"`
	IsActive    *bool  `json:"isActive,omitempty"`
}

type CreateDepartmentRequest struct {
	Name         string             `json:"name" validate:"required,max=200"`
	Code         string             `json:"code" validate:"required,max=50"`
	Category     DepartmentCategory `json:"category" validate:"required"`
	Description  string             `json:"description,omitempty" validate:"max=2000"`
	AreaID       *uuid.UUID         `json:"areaId,omitempty"`
	ContactEmail string             `json:"contactEmail,omitempty" validate:"omitempty,email,max=255"`
}

type UpdateDepartmentRequest struct {
	Name         string             `json:"name" validate:"required,max=200"`
	Category     DepartmentCategory `json:"category" validate:"required"`
	Description  string             `json:"description,omitempty" validate:"max=2000"`
	AreaID       *uuid.UUID         `json:"areaId,omitempty"`
	ContactEmail string             `json:"contactEmail,omitempty" validate:"omitempty,email,max=255"`
	IsActive     *bool              `json:"isActive,omitempty"`
}

// IdentityCreatedRequest is the payload the identity provider posts when a new identity registers
type IdentityCreatedRequest struct {
	ID           uuid.UUID         `json:"id" validate:"required"`
	Email        string            `json:"email,omitempty" validate:"omitempty,max=255"`
	UserMetadata map[string]string `json:"userMetadata,omitempty"`
}

type UpdateProfileRequest struct {
	FullName  string `json:"fullName" validate:"max=200"`
	FirstName string `json:"firstName" validate:"max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
}

type UpdateProfileRoleRequest struct {
	UserType     UserType   `json:"userType" validate:"required"`
	AreaID       *uuid.UUID `json:"areaId,omitempty"`
	DepartmentID *uuid.UUID `json:"departmentId,omitempty"`
	IsVerified   bool       `json:"isVerified"`
}

type CreateIssueRequest struct {
	Title       string        `json:"title" validate:"required,max=200"`
	Description string        `json:"description" validate:"required,max=5000"`
	Category    string        `json:"category,omitempty" validate:"max=100"`
	Area        string        `json:"area,omitempty" validate:"max=200"`
	Address     string        `json:"address,omitempty" validate:"max=500"`
	Latitude    *float64      `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude   *float64      `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Images      []string      `json:"images,omitempty" validate:"max=20,dive,url"`
	Priority    IssuePriority `json:"priority,omitempty"`
}

type AssignAreaRequest struct {
	AreaID uuid.UUID `json:"areaId" validate:"required"`
	Notes  string    `json:"notes,omitempty" validate:"max=2000"`
}

type AssignDepartmentRequest struct {
	DepartmentID uuid.UUID `json:"departmentId" validate:"required"`
	Notes        string    `json:"notes,omitempty" validate:"max=2000"`
}

type SetStageRequest struct {
	Stage WorkflowStage `json:"stage" validate:"required"`
}

type ResolveIssueRequest struct {
	Notes string `json:"notes,omitempty" validate:"max=2000"`
}

type CastVoteRequest struct {
	VoteType VoteType `json:"voteType" validate:"required"`
}

type CreateTenderRequest struct {
	IssueID      *uuid.UUID `json:"issueId,omitempty"`
	DepartmentID *uuid.UUID `json:"departmentId,omitempty"`
	Title        string     `json:"title" validate:"required,max=200"`
	Description  string     `json:"description,omitempty" validate:"max=5000"`
	Budget       float64    `json:"budget" validate:"gte=0"`
	Deadline     *string    `json:"deadline,omitempty"`
	Open         bool       `json:"open"`
}

type UpdateTenderStatusRequest struct {
	Status    TenderStatus `json:"status" validate:"required"`
	AwardedTo *uuid.UUID   `json:"awardedTo,omitempty"`
}

type AwardTenderRequest struct {
	BidID uuid.UUID `json:"bidId" validate:"required"`
}

type CreateBidRequest struct {
	Amount        float64 `json:"amount" validate:"gt=0"`
	Proposal      string  `json:"proposal,omitempty" validate:"max=5000"`
	EstimatedDays int     `json:"estimatedDays" validate:"gte=0"`
}

type CreateAssignmentRequest struct {
	IssueID        uuid.UUID      `json:"issueId" validate:"required"`
	AssignmentType AssignmentType `json:"assignmentType" validate:"required"`
	AssignedTo     *uuid.UUID     `json:"assignedTo,omitempty"`
	AreaID         *uuid.UUID     `json:"areaId,omitempty"`
	DepartmentID   *uuid.UUID     `json:"departmentId,omitempty"`
	TenderID       *uuid.UUID     `json:"tenderId,omitempty"`
	Notes          string         `json:"notes,omitempty" validate:"max=2000"`
}

// CloseAssignmentRequest ends an active hand-off
type CloseAssignmentRequest struct {
	Status AssignmentStatus `json:"status" validate:"required"`
}

type ReviewProgressRequest struct {
	SupervisorNotes  string `json:"supervisorNotes" validate:"max=5000"`
	SupervisorRating *int   `json:"supervisorRating,omitempty" validate:"omitempty,gte=1,lte=5"`
}

type CreateEvaluationRequest struct {
	BidID           uuid.UUID      `json:"bidId" validate:"required"`
	TechnicalScore  float64        `json:"technicalScore" validate:"gte=0,lte=100"`
	FinancialScore  float64        `json:"financialScore" validate:"gte=0,lte=100"`
	ExperienceScore float64        `json:"experienceScore" validate:"gte=0,lte=100"`
	TimelineScore   float64        `json:"timelineScore" validate:"gte=0,lte=100"`
	Recommendation  Recommendation `json:"recommendation" validate:"required"`
	Comments        string         `json:"comments,omitempty" validate:"max=5000"`
}

type UpdateEvaluationRequest struct {
	TechnicalScore  float64        `json:"technicalScore" validate:"gte=0,lte=100"`
	FinancialScore  float64        `json:"financialScore" validate:"gte=0,lte=100"`
	ExperienceScore float64        `json:"experienceScore" validate:"gte=0,lte=100"`
	TimelineScore   float64        `json:"timelineScore" validate:"gte=0,lte=100"`
	Recommendation  Recommendation `json:"recommendation" validate:"required"`
	Comments        string         `json:"comments,omitempty" validate:"max=5000"`
}
