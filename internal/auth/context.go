package auth

import (
	"context"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/google/uuid"
)

// UserContext is the authenticated caller, derived from the stored profile
// on every request rather than from token claims.
type UserContext struct {
	UserID       uuid.UUID
	Email        string
	DisplayName  string
	UserType     domain.UserType
	AreaID       *uuid.UUID
	DepartmentID *uuid.UUID
	Verified     bool
	// IsSystem marks callers authenticated with the API key
	IsSystem bool
}

type contextKey string

const userContextKey contextKey = "userContext"

// SystemUser is the principal used for API key callers
func SystemUser() *UserContext {
	return &UserContext{
		UserID:      uuid.Nil,
		Email:       "system@civic.local",
		DisplayName: "System",
		UserType:    domain.UserTypeAdmin,
		Verified:    true,
		IsSystem:    true,
	}
}

// FromProfile builds the caller context for a stored profile
func FromProfile(p *domain.Profile) *UserContext {
	return &UserContext{
		UserID:       p.ID,
		Email:        p.Email,
		DisplayName:  p.DisplayName(),
		UserType:     p.UserType,
		AreaID:       p.AreaID,
		DepartmentID: p.DepartmentID,
		Verified:     p.IsVerified,
	}
}

func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok && user != nil
}

// HasUserType reports whether the caller holds one of the given user types
func (u *UserContext) HasUserType(types ...domain.UserType) bool {
	for _, t := range types {
		if u.UserType == t {
			return true
		}
	}
	return false
}

func (u *UserContext) IsAdmin() bool {
	return u.IsSystem || u.UserType == domain.UserTypeAdmin
}

// IsPrivileged reports whether the caller is one of the staff roles
func (u *UserContext) IsPrivileged() bool {
	return u.IsSystem || u.UserType.IsPrivileged()
}

// IsContractor reports whether the caller bids on and works tenders
func (u *UserContext) IsContractor() bool {
	return u.UserType == domain.UserTypeTender
}
