package service_test

import (
	"testing"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/civicworks/civic-api/internal/repository"
	"github.com/civicworks/civic-api/internal/service"
	"github.com/civicworks/civic-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAreaCreate(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newServices(db, false)

	admin := testutil.CreateProfile(t, db, domain.UserTypeAdmin)
	citizen := testutil.CreateProfile(t, db, domain.UserTypeUser)

	_, err := svc.areas.Create(testutil.CallerContext(citizen), &domain.CreateAreaRequest{Name: "West", Code: "w1"})
	assert.ErrorIs(t, err, service.ErrForbidden)

	dto, err := svc.areas.Create(testutil.CallerContext(admin), &domain.CreateAreaRequest{Name: "West", Code: "w1"})
	require.NoError(t, err)
	assert.Equal(t, "W1", dto.Code)
	assert.True(t, dto.IsActive)

	_, err = svc.areas.Create(testutil.CallerContext(admin), &domain.CreateAreaRequest{Name: "West again", Code: "W1"})
	assert.ErrorIs(t, err, service.ErrConflict)
}

func TestAreaInactiveHiddenFromCitizens(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newServices(db, false)

	admin := testutil.CreateProfile(t, db, domain.UserTypeAdmin)
	citizen := testutil.CreateProfile(t, db, domain.UserTypeUser)
	inactive := false
	dto, err := svc.areas.Create(testutil.CallerContext(admin), &domain.CreateAreaRequest{Name: "Retired", Code: "R1", IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, dto.IsActive)
	testutil.CreateArea(t, db, "Live", true)

	_, err = svc.areas.GetByID(testutil.CallerContext(citizen), dto.ID)
	assert.ErrorIs(t, err, service.ErrAreaNotFound)

	_, err = svc.areas.GetByID(testutil.CallerContext(admin), dto.ID)
	require.NoError(t, err)

	visible, err := svc.areas.List(testutil.CallerContext(citizen), true)
	require.NoError(t, err)
	assert.Len(t, visible, 1)

	all, err := svc.areas.List(testutil.CallerContext(admin), true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDepartmentCreate_Validation(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newServices(db, false)

	admin := testutil.CreateProfile(t, db, domain.UserTypeAdmin)
	ctx := testutil.CallerContext(admin)

	_, err := svc.departments.Create(ctx, &domain.CreateDepartmentRequest{Name: "Odd", Code: "ODD", Category: "astrology"})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	area := testutil.CreateArea(t, db, "South", true)
	dto, err := svc.departments.Create(ctx, &domain.CreateDepartmentRequest{Name: "Sanitation", Code: "san", Category: domain.CategoryUtilities, AreaID: &area.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryUtilities, dto.Category)

	list, err := svc.departments.List(ctx, repository.DepartmentFilters{AreaID: &area.ID})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
