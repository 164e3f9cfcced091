package handler_test

import (
	"net/http"
	"testing"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/civicworks/civic-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignmentHandler_CreateAndClose(t *testing.T) {
	env := newTestEnv(t)
	admin := testutil.CreateProfile(t, env.db, domain.UserTypeAdmin)
	citizen := testutil.CreateProfile(t, env.db, domain.UserTypeUser)
	area := testutil.CreateArea(t, env.db, "Harbor", true)
	areaAdmin := testutil.CreateProfile(t, env.db, domain.UserTypeAreaSuperAdmin, testutil.InArea(area.ID))
	issue := testutil.CreateIssue(t, env.db, citizen.ID, domain.StageAreaReview)

	req := domain.CreateAssignmentRequest{
		IssueID:        issue.ID,
		AssignmentType: domain.AssignmentAdminToArea,
		AssignedTo:     &areaAdmin.ID,
		AreaID:         &area.ID,
	}

	rr := serveJSON(t, http.MethodPost, "/assignments", "/assignments", env.assignments.Create, citizen, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = serveJSON(t, http.MethodPost, "/assignments", "/assignments", env.assignments.Create, admin, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[domain.AssignmentDTO](t, rr)
	assert.Equal(t, domain.AssignmentStatusActive, created.Status)

	rr = serve(t, http.MethodGet, "/assignments/{id}", "/assignments/"+created.ID.String(), env.assignments.GetByID, areaAdmin, nil, "")
	assert.Equal(t, http.StatusOK, rr.Code, "the assignee may read the row")

	rr = serve(t, http.MethodGet, "/assignments", "/assignments?issueId="+issue.ID.String(), env.assignments.List, admin, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(1), decode[domain.PaginatedResponse](t, rr).Total)

	closePath := "/assignments/" + created.ID.String() + "/close"
	rr = serveJSON(t, http.MethodPost, "/assignments/{id}/close", closePath, env.assignments.Close, admin,
		domain.CloseAssignmentRequest{Status: domain.AssignmentStatusActive})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serveJSON(t, http.MethodPost, "/assignments/{id}/close", closePath, env.assignments.Close, admin,
		domain.CloseAssignmentRequest{Status: domain.AssignmentStatusCompleted})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, domain.AssignmentStatusCompleted, decode[domain.AssignmentDTO](t, rr).Status)

	rr = serveJSON(t, http.MethodPost, "/assignments/{id}/close", closePath, env.assignments.Close, admin,
		domain.CloseAssignmentRequest{Status: domain.AssignmentStatusCancelled})
	assert.Equal(t, http.StatusConflict, rr.Code)
}
