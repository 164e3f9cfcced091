// Package policy decides whether a caller may perform an action on a resource.
// Every rule lives in one table so services never re-implement role checks.
package policy

import (
	"errors"
	"fmt"

	"github.com/civicworks/civic-api/internal/auth"
	"github.com/civicworks/civic-api/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrDenied          = errors.New("access denied")
	ErrUnauthenticated = errors.New("caller is not authenticated")
)

type Resource string

const (
	ResourceArea       Resource = "area"
	ResourceDepartment Resource = "department"
	ResourceProfile    Resource = "profile"
	ResourceIssue      Resource = "issue"
	ResourceVote       Resource = "vote"
	ResourceTender     Resource = "tender"
	ResourceBid        Resource = "bid"
	ResourceAssignment Resource = "assignment"
	ResourceProgress   Resource = "progress"
	ResourceEvaluation Resource = "evaluation"
)

type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	// ActionTransition covers stage changes on issues
	ActionTransition Action = "transition"
	// ActionAssignArea and ActionAssignDepartment are the manual triage hand-offs
	ActionAssignArea       Action = "assign_area"
	ActionAssignDepartment Action = "assign_department"
	ActionResolve          Action = "resolve"
	ActionAward            Action = "award"
	// ActionReview covers supervisor annotations on progress rows
	ActionReview     Action = "review"
	ActionManageRole Action = "manage_role"
)

// Request describes one authorization decision. OwnerID is the row's
// author (reporter, contractor, evaluator, voter, assigned_by or the profile
// itself); AssigneeID is the assignment target when there is one.
type Request struct {
	Caller     *auth.UserContext
	Resource   Resource
	Action     Action
	OwnerID    *uuid.UUID
	AssigneeID *uuid.UUID
	// Active reports the is_active flag for areas and departments
	Active bool
}

type rule func(r Request) bool

var rules = map[Resource]map[Action]rule{
	ResourceArea: {
		ActionRead:   anyOf(activeRow, admin),
		ActionCreate: admin,
		ActionUpdate: admin,
		ActionDelete: admin,
	},
	ResourceDepartment: {
		ActionRead:   anyOf(activeRow, admin),
		ActionCreate: admin,
		ActionUpdate: admin,
		ActionDelete: admin,
	},
	ResourceProfile: {
		ActionRead:       anyOf(owner, admin),
		ActionUpdate:     anyOf(owner, admin),
		ActionManageRole: admin,
	},
	ResourceIssue: {
		ActionRead:             authenticated,
		ActionCreate:           authenticated,
		ActionTransition:       privileged,
		ActionAssignArea:       admin,
		ActionAssignDepartment: hasType(domain.UserTypeAdmin, domain.UserTypeAreaSuperAdmin),
		ActionResolve:          hasType(domain.UserTypeAdmin, domain.UserTypeDepartmentAdmin),
	},
	ResourceVote: {
		ActionRead:   authenticated,
		ActionCreate: owner,
		ActionUpdate: owner,
		ActionDelete: owner,
	},
	ResourceTender: {
		ActionRead:   authenticated,
		ActionCreate: hasType(domain.UserTypeAdmin, domain.UserTypeDepartmentAdmin),
		ActionUpdate: hasType(domain.UserTypeAdmin, domain.UserTypeDepartmentAdmin),
		ActionAward:  hasType(domain.UserTypeAdmin, domain.UserTypeDepartmentAdmin),
	},
	ResourceBid: {
		ActionRead:   anyOf(owner, hasType(domain.UserTypeAdmin, domain.UserTypeDepartmentAdmin)),
		ActionCreate: allOf(owner, hasType(domain.UserTypeTender)),
	},
	ResourceAssignment: {
		ActionRead:   anyOf(owner, assignee, privileged),
		ActionCreate: allOf(owner, privileged),
		ActionUpdate: privileged,
	},
	ResourceProgress: {
		ActionRead:   anyOf(owner, privileged),
		ActionCreate: anyOf(owner, privileged),
		ActionUpdate: anyOf(owner, privileged),
		ActionReview: privileged,
	},
	ResourceEvaluation: {
		ActionRead:   anyOf(owner, hasType(domain.UserTypeAdmin, domain.UserTypeDepartmentAdmin)),
		ActionCreate: anyOf(owner, hasType(domain.UserTypeAdmin, domain.UserTypeDepartmentAdmin)),
		ActionUpdate: anyOf(owner, hasType(domain.UserTypeAdmin, domain.UserTypeDepartmentAdmin)),
		ActionDelete: anyOf(owner, hasType(domain.UserTypeAdmin, domain.UserTypeDepartmentAdmin)),
	},
}

// Evaluate returns nil when the request is allowed. Denials wrap ErrDenied;
// a missing caller returns ErrUnauthenticated.
func Evaluate(r Request) error {
	if r.Caller == nil {
		return ErrUnauthenticated
	}
	actions, ok := rules[r.Resource]
	if !ok {
		return fmt.Errorf("%w: unknown resource %q", ErrDenied, r.Resource)
	}
	allow, ok := actions[r.Action]
	if !ok {
		return fmt.Errorf("%w: %s on %s is not permitted", ErrDenied, r.Action, r.Resource)
	}
	if !allow(r) {
		return fmt.Errorf("%w: %s may not %s %s", ErrDenied, callerType(r.Caller), r.Action, r.Resource)
	}
	return nil
}

// Allowed is Evaluate as a boolean, for filtering list results
func Allowed(r Request) bool {
	return Evaluate(r) == nil
}

func callerType(c *auth.UserContext) string {
	if c.IsSystem {
		return "system"
	}
	return string(c.UserType)
}

func authenticated(Request) bool { return true }

func activeRow(r Request) bool { return r.Active }

func admin(r Request) bool { return r.Caller.IsAdmin() }

func privileged(r Request) bool { return r.Caller.IsPrivileged() }

func owner(r Request) bool {
	return r.OwnerID != nil && *r.OwnerID == r.Caller.UserID
}

func assignee(r Request) bool {
	return r.AssigneeID != nil && *r.AssigneeID == r.Caller.UserID
}

func hasType(types ...domain.UserType) rule {
	return func(r Request) bool {
		return r.Caller.IsSystem || r.Caller.HasUserType(types...)
	}
}

func anyOf(rs ...rule) rule {
	return func(r Request) bool {
		for _, fn := range rs {
			if fn(r) {
				return true
			}
		}
		return false
	}
}

func allOf(rs ...rule) rule {
	return func(r Request) bool {
		for _, fn := range rs {
			if !fn(r) {
				return false
			}
		}
		return true
	}
}
