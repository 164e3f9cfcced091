package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/civicworks/civic-api/internal/auth"
	"github.com/civicworks/civic-api/internal/policy"
	"gorm.io/gorm"
)

// Common service errors
var (
	// ErrForbidden is returned when the access policy denies the caller
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when there's a conflict (e.g., duplicate)
	ErrConflict = errors.New("resource conflict")

	// ErrUnauthorized is returned when user is not authenticated
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidTransition is returned when a workflow or status change is not allowed
	ErrInvalidTransition = errors.New("invalid transition")

	ErrIssueNotFound      = fmt.Errorf("issue %w", ErrNotFound)
	ErrAreaNotFound       = fmt.Errorf("area %w", ErrNotFound)
	ErrDepartmentNotFound = fmt.Errorf("department %w", ErrNotFound)
	ErrProfileNotFound    = fmt.Errorf("profile %w", ErrNotFound)
	ErrTenderNotFound     = fmt.Errorf("tender %w", ErrNotFound)
	ErrBidNotFound        = fmt.Errorf("bid %w", ErrNotFound)
	ErrAssignmentNotFound = fmt.Errorf("assignment %w", ErrNotFound)
	ErrProgressNotFound   = fmt.Errorf("progress update %w", ErrNotFound)
	ErrEvaluationNotFound = fmt.Errorf("evaluation %w", ErrNotFound)
	ErrVoteNotFound       = fmt.Errorf("vote %w", ErrNotFound)
)

// ValidationError reports field-level problems with a request. It matches
// ErrInvalidInput under errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func newValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// authorize runs the policy check and maps its errors onto service errors
func authorize(req policy.Request) error {
	err := policy.Evaluate(req)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, policy.ErrUnauthenticated):
		return ErrUnauthorized
	default:
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	}
}

// notFound maps gorm's record-not-found onto the given sentinel
func notFound(err error, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

// callerFrom returns the authenticated caller or ErrUnauthorized
func callerFrom(ctx context.Context) (*auth.UserContext, error) {
	caller, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	return caller, nil
}
