// Package testutil provides in-memory databases and fixtures for package tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/civicworks/civic-api/internal/auth"
	"github.com/civicworks/civic-api/internal/database"
	"github.com/civicworks/civic-api/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory SQLite database with the full schema.
// The pool holds a single connection so every query sees the same database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// CallerContext returns a context authenticated as the given profile
func CallerContext(p *domain.Profile) context.Context {
	return auth.WithUserContext(context.Background(), auth.FromProfile(p))
}

// SystemContext returns a context authenticated as the API key principal
func SystemContext() context.Context {
	return auth.WithUserContext(context.Background(), auth.SystemUser())
}

func CreateArea(t *testing.T, db *gorm.DB, name string, active bool) *domain.Area {
	t.Helper()
	area := &domain.Area{
		Name:     name,
		Code:     fmt.Sprintf("AREA-%s", uuid.NewString()[:8]),
		IsActive: true,
	}
	require.NoError(t, db.Create(area).Error)
	if !active {
		// gorm skips zero values that carry a default, so deactivate explicitly
		require.NoError(t, db.Model(area).Update("is_active", false).Error)
		area.IsActive = false
	}
	return area
}

func CreateDepartment(t *testing.T, db *gorm.DB, name string, areaID *uuid.UUID) *domain.Department {
	t.Helper()
	dept := &domain.Department{
		Name:     name,
		Code:     fmt.Sprintf("DEPT-%s", uuid.NewString()[:8]),
		Category: domain.CategoryPublicWorks,
		AreaID:   areaID,
		IsActive: true,
	}
	require.NoError(t, db.Omit("Area").Create(dept).Error)
	return dept
}

// ProfileOption customizes CreateProfile
type ProfileOption func(p *domain.Profile)

func InArea(id uuid.UUID) ProfileOption {
	return func(p *domain.Profile) { p.AreaID = &id }
}

func InDepartment(id uuid.UUID) ProfileOption {
	return func(p *domain.Profile) { p.DepartmentID = &id }
}

func Verified(v bool) ProfileOption {
	return func(p *domain.Profile) { p.IsVerified = v }
}

func CreateProfile(t *testing.T, db *gorm.DB, userType domain.UserType, opts ...ProfileOption) *domain.Profile {
	t.Helper()
	id := uuid.New()
	p := &domain.Profile{
		ID:         id,
		Email:      fmt.Sprintf("%s@example.com", id.String()[:8]),
		FullName:   string(userType) + " " + id.String()[:4],
		UserType:   userType,
		IsVerified: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	verified := p.IsVerified
	require.NoError(t, db.Omit("Area", "Department").Create(p).Error)
	if !verified {
		require.NoError(t, db.Model(p).Update("is_verified", false).Error)
		p.IsVerified = false
	}
	return p
}

// CreateIssue inserts an issue directly, bypassing the workflow service
func CreateIssue(t *testing.T, db *gorm.DB, reporterID uuid.UUID, stage domain.WorkflowStage) *domain.Issue {
	t.Helper()
	issue := &domain.Issue{
		ReporterID:    reporterID,
		Title:         "Pothole on Main Street",
		Description:   "Large pothole near the crossing",
		Status:        domain.IssueStatusPending,
		Priority:      domain.PriorityMedium,
		WorkflowStage: stage,
	}
	require.NoError(t, db.Create(issue).Error)
	return issue
}

func CreateTender(t *testing.T, db *gorm.DB, issueID *uuid.UUID, createdBy uuid.UUID, status domain.TenderStatus) *domain.Tender {
	t.Helper()
	tender := &domain.Tender{
		IssueID:   issueID,
		Title:     "Road repair",
		Budget:    10000,
		Status:    status,
		CreatedBy: createdBy,
	}
	require.NoError(t, db.Create(tender).Error)
	return tender
}

func CreateBid(t *testing.T, db *gorm.DB, tenderID, contractorID uuid.UUID, amount float64) *domain.Bid {
	t.Helper()
	bid := &domain.Bid{
		TenderID:      tenderID,
		ContractorID:  contractorID,
		Amount:        amount,
		EstimatedDays: 10,
		Status:        domain.BidStatusSubmitted,
	}
	require.NoError(t, db.Create(bid).Error)
	return bid
}
