package allocator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zone_dispatch/internal/allocator"
	"zone_dispatch/internal/interval"
	"zone_dispatch/internal/models"
)

func TestFindConflict(t *testing.T) {
	f := newFixture()
	a := f.route("A", 4, 8, models.RouteStatusActive)
	f.route("B", 20, 29, models.RouteStatusActive)
	f.route("C", 10, 15, models.RouteStatusInactive)

	got, err := f.svc.FindConflict(f.ctx, interval.Span{Min: 2, Max: 5}, 0)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, a.ID, got.ID)

	// Inactive routes are exempt from the invariant
	got, err = f.svc.FindConflict(f.ctx, interval.Span{Min: 10, Max: 15}, 0)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Excluding a route skips its own interval during edits
	got, err = f.svc.FindConflict(f.ctx, interval.Span{Min: 5, Max: 7}, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindConflict_LowestIDWins(t *testing.T) {
	f := newFixture()
	a := f.route("A", 1, 10, models.RouteStatusActive)
	f.route("B", 5, 15, models.RouteStatusInactive)
	f.route("D", 11, 20, models.RouteStatusActive)

	// [8,12] hits both A and D; the scan reports the lowest ID
	got, err := f.svc.FindConflict(f.ctx, interval.Span{Min: 8, Max: 12}, 0)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, a.ID, got.ID)
}

func TestCreateRoute_OverlapRejectedWithSuggestion(t *testing.T) {
	f := newFixture()
	a := f.route("A", 4, 8, models.RouteStatusActive)

	_, err := f.svc.CreateRoute(f.ctx, allocator.CreateRouteInput{
		CityID: f.city.ID, Name: "B", RangeMin: 2, RangeMax: 5,
	})
	require.Error(t, err)

	ae := allocator.AsError(err)
	require.NotNil(t, ae)
	assert.Equal(t, allocator.KindRouteOverlap, ae.Kind)
	require.NotNil(t, ae.ConflictRoute)
	assert.Equal(t, a.ID, ae.ConflictRoute.ID)

	// [1,3] cannot hold a 4-slot range, so the first fit starts at 9
	require.NotNil(t, ae.Suggestion)
	assert.Equal(t, interval.Span{Min: 9, Max: 12}, *ae.Suggestion)
}

func TestCreateRoute_SuggestionPrefersEarlierGap(t *testing.T) {
	f := newFixture()
	f.route("A", 5, 9, models.RouteStatusActive)

	_, err := f.svc.CreateRoute(f.ctx, allocator.CreateRouteInput{
		CityID: f.city.ID, Name: "B", RangeMin: 7, RangeMax: 9,
	})
	require.Error(t, err)

	ae := allocator.AsError(err)
	require.NotNil(t, ae)
	// A 3-slot range fits at [1,3], before the occupied block
	require.NotNil(t, ae.Suggestion)
	assert.Equal(t, interval.Span{Min: 1, Max: 3}, *ae.Suggestion)
}

func TestCreateRoute_Validation(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateRoute(f.ctx, allocator.CreateRouteInput{
		CityID: f.city.ID, Name: "bad", RangeMin: 5, RangeMax: 2,
	})
	assert.True(t, allocator.IsKind(err, allocator.KindValidation))

	_, err = f.svc.CreateRoute(f.ctx, allocator.CreateRouteInput{
		CityID: f.city.ID, Name: "bad", RangeMin: -1, RangeMax: 2,
	})
	assert.True(t, allocator.IsKind(err, allocator.KindValidation))

	_, err = f.svc.CreateRoute(f.ctx, allocator.CreateRouteInput{
		CityID: 999, Name: "bad", RangeMin: 1, RangeMax: 2,
	})
	assert.True(t, allocator.IsKind(err, allocator.KindValidation))
}

func TestUpdateRoute_BoundsRecheck(t *testing.T) {
	f := newFixture()
	f.route("A", 1, 5, models.RouteStatusActive)
	b := f.route("B", 10, 15, models.RouteStatusActive)

	// Moving B onto A's interval is rejected
	newMin, newMax := 3, 8
	_, err := f.svc.UpdateRoute(f.ctx, b.ID, allocator.RoutePatch{RangeMin: &newMin, RangeMax: &newMax})
	assert.True(t, allocator.IsKind(err, allocator.KindRouteOverlap))

	// Moving B to a clear interval succeeds
	newMin, newMax = 20, 25
	updated, err := f.svc.UpdateRoute(f.ctx, b.ID, allocator.RoutePatch{RangeMin: &newMin, RangeMax: &newMax})
	require.NoError(t, err)
	assert.Equal(t, 20, updated.RangeMin)
	assert.Equal(t, 25, updated.RangeMax)
}

func TestUpdateRoute_ShrinkBlockedByActiveSlot(t *testing.T) {
	f := newFixture()
	r := f.route("A", 1, 10, models.RouteStatusActive)
	cust := f.customer("carla")
	f.assignment(r.ID, cust.ID, 7, models.AssignmentStatusActive)

	newMax := 5
	_, err := f.svc.UpdateRoute(f.ctx, r.ID, allocator.RoutePatch{RangeMax: &newMax})
	assert.True(t, allocator.IsKind(err, allocator.KindValidation))

	// Inactive history does not block the shrink
	f2 := newFixture()
	r2 := f2.route("A", 1, 10, models.RouteStatusActive)
	c2 := f2.customer("carla")
	f2.assignment(r2.ID, c2.ID, 7, models.AssignmentStatusInactive)
	updated, err := f2.svc.UpdateRoute(f2.ctx, r2.ID, allocator.RoutePatch{RangeMax: &newMax})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.RangeMax)
}

func TestSetRouteStatus_ActivationRevalidates(t *testing.T) {
	f := newFixture()
	a := f.route("A", 1, 5, models.RouteStatusActive)
	b := f.route("B", 3, 8, models.RouteStatusInactive)

	// B overlapped A all along, but was exempt while inactive
	_, err := f.svc.SetRouteStatus(f.ctx, b.ID, models.RouteStatusActive)
	assert.True(t, allocator.IsKind(err, allocator.KindRouteOverlap))

	// Deactivating the blocker clears the way
	_, err = f.svc.SetRouteStatus(f.ctx, a.ID, models.RouteStatusInactive)
	require.NoError(t, err)

	updated, err := f.svc.SetRouteStatus(f.ctx, b.ID, models.RouteStatusActive)
	require.NoError(t, err)
	assert.Equal(t, models.RouteStatusActive, updated.Status)
}

func TestSetRouteStatus_Validation(t *testing.T) {
	f := newFixture()
	r := f.route("A", 1, 5, models.RouteStatusActive)

	_, err := f.svc.SetRouteStatus(f.ctx, r.ID, "paused")
	assert.True(t, allocator.IsKind(err, allocator.KindValidation))

	_, err = f.svc.SetRouteStatus(f.ctx, 999, models.RouteStatusInactive)
	assert.True(t, allocator.IsKind(err, allocator.KindRouteNotFound))
}

func TestDeleteRoute_HasDependents(t *testing.T) {
	f := newFixture()
	r := f.route("A", 1, 5, models.RouteStatusActive)
	cust := f.customer("carla")
	f.assignment(r.ID, cust.ID, 1, models.AssignmentStatusActive)

	err := f.svc.DeleteRoute(f.ctx, r.ID)
	assert.True(t, allocator.IsKind(err, allocator.KindHasDependents))

	// Detaching first makes the delete legal
	require.NoError(t, f.svc.UnassignCustomer(f.ctx, cust.ID))
	require.NoError(t, f.svc.DeleteRoute(f.ctx, r.ID))
}

func TestDeleteCustomer_HasDependents(t *testing.T) {
	f := newFixture()
	r := f.route("A", 1, 5, models.RouteStatusActive)
	cust := f.customer("carla")
	f.assignment(r.ID, cust.ID, 1, models.AssignmentStatusActive)

	err := f.svc.DeleteCustomer(f.ctx, cust.ID)
	assert.True(t, allocator.IsKind(err, allocator.KindHasDependents))

	require.NoError(t, f.svc.UnassignCustomer(f.ctx, cust.ID))
	require.NoError(t, f.svc.DeleteCustomer(f.ctx, cust.ID))
}

func TestFirstFreeFrom_Service(t *testing.T) {
	f := newFixture()
	f.route("A", 4, 8, models.RouteStatusActive)
	f.route("B", 9, 12, models.RouteStatusActive) // adjacent, merges with A

	from, _, bounded, err := f.svc.FirstFreeFrom(f.ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 13, from)
	assert.False(t, bounded)
}
