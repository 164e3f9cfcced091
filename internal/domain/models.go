package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns a UUID when the caller has not set one
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// WorkflowStage represents the phase of an issue's resolution lifecycle
type WorkflowStage string

const (
	StageReported           WorkflowStage = "reported"
	StageAreaReview         WorkflowStage = "area_review"
	StageDepartmentAssigned WorkflowStage = "department_assigned"
	StageContractorAssigned WorkflowStage = "contractor_assigned"
	StageInProgress         WorkflowStage = "in_progress"
	StageDepartmentReview   WorkflowStage = "department_review"
	StageResolved           WorkflowStage = "resolved"
)

// workflowOrder lists the stages in lifecycle order
var workflowOrder = []WorkflowStage{
	StageReported,
	StageAreaReview,
	StageDepartmentAssigned,
	StageContractorAssigned,
	StageInProgress,
	StageDepartmentReview,
	StageResolved,
}

// Rank returns the position of the stage in the lifecycle, or -1 if unknown
func (s WorkflowStage) Rank() int {
	for i, st := range workflowOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// IsValid checks if the WorkflowStage is a valid enum value
func (s WorkflowStage) IsValid() bool {
	return s.Rank() >= 0
}

// IssueStatus is the citizen-facing status of an issue
type IssueStatus string

const (
	IssueStatusPending    IssueStatus = "pending"
	IssueStatusInProgress IssueStatus = "in_progress"
	IssueStatusResolved   IssueStatus = "resolved"
	IssueStatusClosed     IssueStatus = "closed"
)

func (s IssueStatus) IsValid() bool {
	switch s {
	case IssueStatusPending, IssueStatusInProgress, IssueStatusResolved, IssueStatusClosed:
		return true
	}
	return false
}

// IssuePriority ranks how urgent an issue is
type IssuePriority string

const (
	PriorityLow      IssuePriority = "low"
	PriorityMedium   IssuePriority = "medium"
	PriorityHigh     IssuePriority = "high"
	PriorityCritical IssuePriority = "critical"
)

func (p IssuePriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// DepartmentCategory is the functional category of a department
type DepartmentCategory string

const (
	CategoryPublicWorks    DepartmentCategory = "public_works"
	CategoryUtilities      DepartmentCategory = "utilities"
	CategoryEnvironment    DepartmentCategory = "environment"
	CategorySafety         DepartmentCategory = "safety"
	CategoryParks          DepartmentCategory = "parks"
	CategoryAdministration DepartmentCategory = "administration"
)

func (c DepartmentCategory) IsValid() bool {
	switch c {
	case CategoryPublicWorks, CategoryUtilities, CategoryEnvironment, CategorySafety, CategoryParks, CategoryAdministration:
		return true
	}
	return false
}

// UserType is the role carried by a profile
type UserType string

const (
	UserTypeUser            UserType = "user"
	UserTypeAdmin           UserType = "admin"
	UserTypeAreaSuperAdmin  UserType = "area_super_admin"
	UserTypeDepartmentAdmin UserType = "department_admin"
	UserTypeTender          UserType = "tender"
)

func (u UserType) IsValid() bool {
	switch u {
	case UserTypeUser, UserTypeAdmin, UserTypeAreaSuperAdmin, UserTypeDepartmentAdmin, UserTypeTender:
		return true
	}
	return false
}

// IsPrivileged reports whether the user type is one of the three staff roles
func (u UserType) IsPrivileged() bool {
	return u == UserTypeAdmin || u == UserTypeAreaSuperAdmin || u == UserTypeDepartmentAdmin
}

// AssignmentType is the direction of a hand-off
type AssignmentType string

const (
	AssignmentAdminToArea            AssignmentType = "admin_to_area"
	AssignmentAreaToDepartment       AssignmentType = "area_to_department"
	AssignmentDepartmentToContractor AssignmentType = "department_to_contractor"
)

func (a AssignmentType) IsValid() bool {
	switch a {
	case AssignmentAdminToArea, AssignmentAreaToDepartment, AssignmentDepartmentToContractor:
		return true
	}
	return false
}

// AssignmentStatus is the lifecycle state of a single hand-off row
type AssignmentStatus string

const (
	AssignmentStatusActive     AssignmentStatus = "active"
	AssignmentStatusCompleted  AssignmentStatus = "completed"
	AssignmentStatusReassigned AssignmentStatus = "reassigned"
	AssignmentStatusCancelled  AssignmentStatus = "cancelled"
)

func (a AssignmentStatus) IsValid() bool {
	switch a {
	case AssignmentStatusActive, AssignmentStatusCompleted, AssignmentStatusReassigned, AssignmentStatusCancelled:
		return true
	}
	return false
}

// ProgressStatus is the status a contractor reports with a progress update
type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not_started"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
	ProgressOnHold     ProgressStatus = "on_hold"
	ProgressCancelled  ProgressStatus = "cancelled"
)

func (p ProgressStatus) IsValid() bool {
	switch p {
	case ProgressNotStarted, ProgressInProgress, ProgressCompleted, ProgressOnHold, ProgressCancelled:
		return true
	}
	return false
}

// Recommendation is an evaluator's verdict on a bid
type Recommendation string

const (
	RecommendAccept        Recommendation = "accept"
	RecommendReject        Recommendation = "reject"
	RecommendClarification Recommendation = "request_clarification"
)

func (r Recommendation) IsValid() bool {
	switch r {
	case RecommendAccept, RecommendReject, RecommendClarification:
		return true
	}
	return false
}

// VoteType is the direction of a citizen vote
type VoteType string

const (
	VoteUp   VoteType = "upvote"
	VoteDown VoteType = "downvote"
)

func (v VoteType) IsValid() bool {
	return v == VoteUp || v == VoteDown
}

// CounterColumn returns the issues column maintained for this vote type
func (v VoteType) CounterColumn() string {
	if v == VoteDown {
		return "downvotes"
	}
	return "upvotes"
}

// TenderStatus is the lifecycle state of a tender
type TenderStatus string

const (
	TenderStatusDraft     TenderStatus = "draft"
	TenderStatusOpen      TenderStatus = "open"
	TenderStatusClosed    TenderStatus = "closed"
	TenderStatusAwarded   TenderStatus = "awarded"
	TenderStatusCancelled TenderStatus = "cancelled"
)

func (t TenderStatus) IsValid() bool {
	switch t {
	case TenderStatusDraft, TenderStatusOpen, TenderStatusClosed, TenderStatusAwarded, TenderStatusCancelled:
		return true
	}
	return false
}

// BidStatus is the lifecycle state of a bid
type BidStatus string

const (
	BidStatusSubmitted BidStatus = "submitted"
	BidStatusAccepted  BidStatus = "accepted"
	BidStatusRejected  BidStatus = "rejected"
	BidStatusWithdrawn BidStatus = "withdrawn"
)

// Area is a geographic partition of the municipality
type Area struct {
	BaseModel
	Name        string `gorm:"type:varchar(200);not null;index"`
	Code        string `gorm:"type:varchar(50);not null;uniqueIndex"`
	Description string `gorm:"type:text"`
	IsActive    bool   `gorm:"not null;default:true;column:is_active"`
}

// Department is a functional unit that owns tenders
type Department struct {
	BaseModel
	Name         string             `gorm:"type:varchar(200);not null"`
	Code         string             `gorm:"type:varchar(50);not null;uniqueIndex"`
	Category     DepartmentCategory `gorm:"type:varchar(50);not null;index"`
	Description  string             `gorm:"type:text"`
	AreaID       *uuid.UUID         `gorm:"type:uuid;index;column:area_id"`
	Area         *Area              `gorm:"foreignKey:AreaID"`
	ContactEmail string             `gorm:"type:varchar(255);column:contact_email"`
	IsActive     bool               `gorm:"not null;default:true;column:is_active"`
}

// Profile is the application record for an authenticated identity.
// Its ID equals the identity provider's subject.
type Profile struct {
	ID           uuid.UUID   `gorm:"type:uuid;primaryKey"`
	Email        string      `gorm:"type:varchar(255);index"`
	FullName     string      `gorm:"type:varchar(200);column:full_name"`
	FirstName    string      `gorm:"type:varchar(100);column:first_name"`
	LastName     string      `gorm:"type:varchar(100);column:last_name"`
	UserType     UserType    `gorm:"type:varchar(50);not null;default:'user';index;column:user_type"`
	AreaID       *uuid.UUID  `gorm:"type:uuid;index;column:area_id"`
	Area         *Area       `gorm:"foreignKey:AreaID"`
	DepartmentID *uuid.UUID  `gorm:"type:uuid;index;column:department_id"`
	Department   *Department `gorm:"foreignKey:DepartmentID"`
	IsVerified   bool        `gorm:"not null;default:false;column:is_verified"`
	CreatedAt    time.Time   `gorm:"not null"`
	UpdatedAt    time.Time   `gorm:"not null"`
}

// DisplayName returns the best available human name for the profile
func (p *Profile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	if p.FirstName != "" || p.LastName != "" {
		name := p.FirstName
		if p.LastName != "" {
			if name != "" {
				name += " "
			}
			name += p.LastName
		}
		return name
	}
	return p.Email
}

// Issue is a citizen-reported problem
type Issue struct {
	BaseModel
	ReporterID           uuid.UUID     `gorm:"type:uuid;not null;index;column:reporter_id"`
	Title                string        `gorm:"type:varchar(200);not null"`
	Description          string        `gorm:"type:text;not null"`
	Category             string        `gorm:"type:varchar(100);index"`
	Area                 string        `gorm:"type:varchar(200);index"`
	Address              string        `gorm:"type:varchar(500)"`
	Latitude             *float64      `gorm:"type:decimal(10,7)"`
	Longitude            *float64      `gorm:"type:decimal(10,7)"`
	Images               []string      `gorm:"type:jsonb;serializer:json"`
	Status               IssueStatus   `gorm:"type:varchar(50);not null;default:'pending';index"`
	Priority             IssuePriority `gorm:"type:varchar(50);not null;default:'medium'"`
	WorkflowStage        WorkflowStage `gorm:"type:varchar(50);not null;default:'reported';index;column:workflow_stage"`
	AssignedAreaID       *uuid.UUID    `gorm:"type:uuid;index;column:assigned_area_id"`
	AssignedDepartmentID *uuid.UUID    `gorm:"type:uuid;index;column:assigned_department_id"`
	CurrentAssigneeID    *uuid.UUID    `gorm:"type:uuid;index;column:current_assignee_id"`
	Upvotes              int           `gorm:"not null;default:0"`
	Downvotes            int           `gorm:"not null;default:0"`
	ResolvedAt           *time.Time    `gorm:"column:resolved_at"`
}

// IssueVote records one citizen's vote on an issue
type IssueVote struct {
	BaseModel
	IssueID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_issue_votes_issue_user;column:issue_id"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_issue_votes_issue_user;column:user_id"`
	VoteType VoteType  `gorm:"type:varchar(20);not null;column:vote_type"`
}

// Tender is a public request for contractor bids
type Tender struct {
	BaseModel
	IssueID      *uuid.UUID   `gorm:"type:uuid;index;column:issue_id"`
	DepartmentID *uuid.UUID   `gorm:"type:uuid;index;column:department_id"`
	Title        string       `gorm:"type:varchar(200);not null"`
	Description  string       `gorm:"type:text"`
	Budget       float64      `gorm:"type:decimal(15,2);not null;default:0"`
	Deadline     *time.Time   `gorm:"column:deadline"`
	Status       TenderStatus `gorm:"type:varchar(50);not null;default:'draft';index"`
	AwardedTo    *uuid.UUID   `gorm:"type:uuid;column:awarded_to"`
	AwardedBidID *uuid.UUID   `gorm:"type:uuid;column:awarded_bid_id"`
	AwardedAt    *time.Time   `gorm:"column:awarded_at"`
	CreatedBy    uuid.UUID    `gorm:"type:uuid;not null;column:created_by"`
}

// Bid is a contractor's offer on a tender
type Bid struct {
	BaseModel
	TenderID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bids_tender_contractor;column:tender_id"`
	ContractorID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bids_tender_contractor;column:contractor_id"`
	Amount        float64   `gorm:"type:decimal(15,2);not null"`
	Proposal      string    `gorm:"type:text"`
	EstimatedDays int       `gorm:"not null;default:0;column:estimated_days"`
	Status        BidStatus `gorm:"type:varchar(50);not null;default:'submitted'"`
}

// IssueAssignment is one hand-off in an issue's responsibility history
type IssueAssignment struct {
	BaseModel
	IssueID        uuid.UUID        `gorm:"type:uuid;not null;index;column:issue_id"`
	Issue          *Issue           `gorm:"foreignKey:IssueID;constraint:OnDelete:CASCADE"`
	AssignmentType AssignmentType   `gorm:"type:varchar(50);not null;column:assignment_type"`
	AssignedBy     uuid.UUID        `gorm:"type:uuid;not null;index;column:assigned_by"`
	AssignedTo     *uuid.UUID       `gorm:"type:uuid;index;column:assigned_to"`
	AreaID         *uuid.UUID       `gorm:"type:uuid;column:area_id"`
	DepartmentID   *uuid.UUID       `gorm:"type:uuid;column:department_id"`
	TenderID       *uuid.UUID       `gorm:"type:uuid;column:tender_id"`
	Status         AssignmentStatus `gorm:"type:varchar(50);not null;default:'active';index"`
	Notes          string           `gorm:"type:text"`
}

// WorkProgress is a single contractor update on an issue or tender
type WorkProgress struct {
	BaseModel
	IssueID            *uuid.UUID     `gorm:"type:uuid;index;column:issue_id"`
	TenderID           *uuid.UUID     `gorm:"type:uuid;index;column:tender_id"`
	ContractorID       uuid.UUID      `gorm:"type:uuid;not null;index;column:contractor_id"`
	Title              string         `gorm:"type:varchar(200);not null"`
	Description        string         `gorm:"type:text;not null"`
	ProgressPercentage int            `gorm:"not null;default:0;column:progress_percentage"`
	Status             ProgressStatus `gorm:"type:varchar(50);not null;default:'in_progress'"`
	Images             []string       `gorm:"type:jsonb;serializer:json"`
	Documents          []string       `gorm:"type:jsonb;serializer:json"`
	MaterialsUsed      []string       `gorm:"type:jsonb;serializer:json;column:materials_used"`
	LaborHours         float64        `gorm:"type:decimal(10,2);not null;default:0;column:labor_hours"`
	Expenses           float64        `gorm:"type:decimal(15,2);not null;default:0"`
	Notes              string         `gorm:"type:text"`
	SupervisorNotes    string         `gorm:"type:text;column:supervisor_notes"`
	SupervisorRating   *int           `gorm:"column:supervisor_rating"`
	ReviewedBy         *uuid.UUID     `gorm:"type:uuid;column:reviewed_by"`
	ReviewedAt         *time.Time     `gorm:"column:reviewed_at"`
}

// TableName overrides the default table name to match the migration
func (WorkProgress) TableName() string {
	return "work_progress"
}

// Evaluation weights for the derived total score
const (
	WeightTechnical  = 0.40
	WeightFinancial  = 0.30
	WeightExperience = 0.20
	WeightTimeline   = 0.10
)

// TenderEvaluation is one evaluator's scoring of one bid
type TenderEvaluation struct {
	BaseModel
	TenderID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_evaluations_unique;column:tender_id"`
	BidID           uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_evaluations_unique;column:bid_id"`
	EvaluatorID     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_evaluations_unique;column:evaluator_id"`
	TechnicalScore  float64        `gorm:"type:decimal(5,2);not null;column:technical_score"`
	FinancialScore  float64        `gorm:"type:decimal(5,2);not null;column:financial_score"`
	ExperienceScore float64        `gorm:"type:decimal(5,2);not null;column:experience_score"`
	TimelineScore   float64        `gorm:"type:decimal(5,2);not null;column:timeline_score"`
	TotalScore      float64        `gorm:"type:decimal(5,2);not null;column:total_score"`
	Recommendation  Recommendation `gorm:"type:varchar(50);not null"`
	Comments        string         `gorm:"type:text"`
}

// ComputeTotal derives the weighted total from the four sub-scores, rounded to two decimals
func (e *TenderEvaluation) ComputeTotal() float64 {
	total := e.TechnicalScore*WeightTechnical +
		e.FinancialScore*WeightFinancial +
		e.ExperienceScore*WeightExperience +
		e.TimelineScore*WeightTimeline
	return float64(int64(total*100+0.5)) / 100
}
