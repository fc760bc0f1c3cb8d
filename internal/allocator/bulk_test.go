package allocator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zone_dispatch/internal/allocator"
	"zone_dispatch/internal/models"
)

func (f *fixture) customers(names ...string) []uint {
	ids := make([]uint, 0, len(names))
	for _, n := range names {
		ids = append(ids, f.customer(n).ID)
	}
	return ids
}

func TestBulkAssign_FillsFreeSlots(t *testing.T) {
	f := newFixture()
	r := f.route("A", 1, 3, models.RouteStatusActive)
	holder := f.customer("holder")
	f.assignment(r.ID, holder.ID, 1, models.AssignmentStatusActive)

	ids := f.customers("ann", "bob")
	res, err := f.svc.BulkAssign(f.ctx, r.ID, ids, false)
	require.NoError(t, err)

	assert.ElementsMatch(t, ids, res.Created)
	assert.Empty(t, res.Reactivated)
	assert.Empty(t, res.AlreadyActive)
	assert.Equal(t, 2, res.Counts.Created)
	assert.Equal(t, 3, res.Counts.Used)
	assert.Equal(t, 0, res.Counts.Free)

	// Prior holder untouched, newcomers took 2 and 3
	assert.Equal(t, []int{1, 2, 3}, f.activeSlots(r.ID))
}

func TestBulkAssign_CapacityExceededIsAtomic(t *testing.T) {
	f := newFixture()
	r := f.route("A", 1, 4, models.RouteStatusActive)
	ids := f.customers("a", "b", "c", "d", "e")

	writesBefore := f.store.WriteCount()
	_, err := f.svc.BulkAssign(f.ctx, r.ID, ids, false)
	require.Error(t, err)

	ae := allocator.AsError(err)
	require.NotNil(t, ae)
	assert.Equal(t, allocator.KindCapacityExceeded, ae.Kind)
	require.NotNil(t, ae.Counts)
	assert.Equal(t, 4, ae.Counts.Capacity)
	assert.Equal(t, 0, ae.Counts.Used)
	assert.Equal(t, 4, ae.Counts.Free)
	assert.Equal(t, 5, ae.Counts.Requested)

	assert.Equal(t, writesBefore, f.store.WriteCount(), "no rows may be written")
	assert.Empty(t, f.activeSlots(r.ID))
}

func TestBulkAssign_Classification(t *testing.T) {
	f := newFixture()
	r := f.route("A", 1, 10, models.RouteStatusActive)
	activeCust := f.customer("active")
	inactiveCust := f.customer("returning")
	f.assignment(r.ID, activeCust.ID, 1, models.AssignmentStatusActive)
	f.assignment(r.ID, inactiveCust.ID, 4, models.AssignmentStatusInactive)
	fresh := f.customer("fresh")

	res, err := f.svc.BulkAssign(f.ctx, r.ID, []uint{activeCust.ID, inactiveCust.ID, fresh.ID}, false)
	require.NoError(t, err)

	assert.Equal(t, []uint{fresh.ID}, res.Created)
	assert.Equal(t, []uint{inactiveCust.ID}, res.Reactivated)
	assert.Equal(t, []uint{activeCust.ID}, res.AlreadyActive)

	// The returning customer keeps slot 4; the fresh one gets the scan's 2
	assert.Equal(t, []int{1, 2, 4}, f.activeSlots(r.ID))
}

func TestBulkAssign_ReactivationLosesTakenSlot(t *testing.T) {
	f2 := newFixture()
	r2 := f2.route("A", 1, 10, models.RouteStatusActive)
	returning2 := f2.customer("returning")
	squatter2 := f2.customer("squatter")
	f2.assignment(r2.ID, returning2.ID, 3, models.AssignmentStatusInactive)
	f2.assignment(r2.ID, squatter2.ID, 3, models.AssignmentStatusActive)

	res, err := f2.svc.BulkAssign(f2.ctx, r2.ID, []uint{returning2.ID}, false)
	require.NoError(t, err)
	require.Equal(t, []uint{returning2.ID}, res.Reactivated)

	// Slot 3 is held, so the reactivation falls forward to slot 1
	rows, err := f2.store.ActiveAssignments(f2.ctx, r2.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Slot)
	assert.Equal(t, returning2.ID, rows[0].CustomerID)
}

func TestBulkAssign_AllAlreadyActive(t *testing.T) {
	f := newFixture()
	r := f.route("A", 1, 5, models.RouteStatusActive)
	ann := f.customer("ann")
	f.assignment(r.ID, ann.ID, 1, models.AssignmentStatusActive)

	_, err := f.svc.BulkAssign(f.ctx, r.ID, []uint{ann.ID}, false)
	assert.True(t, allocator.IsKind(err, allocator.KindNothingToAssign))
}

func TestBulkAssign_ResetClearsHistory(t *testing.T) {
	f := newFixture()
	r := f.route("A", 1, 3, models.RouteStatusActive)
	old := f.customer("old")
	ghost := f.customer("ghost")
	f.assignment(r.ID, old.ID, 1, models.AssignmentStatusActive)
	f.assignment(r.ID, ghost.ID, 2, models.AssignmentStatusInactive)

	ids := f.customers("a", "b", "c")
	res, err := f.svc.BulkAssign(f.ctx, r.ID, ids, true)
	require.NoError(t, err)

	// Reset removed both prior rows: the full interval was free
	assert.ElementsMatch(t, ids, res.Created)
	assert.Equal(t, []int{1, 2, 3}, f.activeSlots(r.ID))

	// History really is gone, not merely deactivated
	_, err = f.store.AssignmentFor(f.ctx, r.ID, ghost.ID)
	assert.ErrorIs(t, err, allocator.ErrNotFound)
}

func TestBulkAssign_InactiveRowCollisionSurfacesAndRollsBack(t *testing.T) {
	f := newFixture()
	r := f.route("A", 1, 3, models.RouteStatusActive)
	ghost := f.customer("ghost")
	// Invisible to the active-only scan, but the store still enforces
	// (route, slot) uniqueness across statuses. The bulk path does not
	// retry; the whole batch rolls back.
	f.assignment(r.ID, ghost.ID, 1, models.AssignmentStatusInactive)

	ids := f.customers("ann", "bob")
	_, err := f.svc.BulkAssign(f.ctx, r.ID, ids, false)
	assert.True(t, allocator.IsKind(err, allocator.KindAllocationFailed))
	assert.Empty(t, f.activeSlots(r.ID))
}

func TestBulkAssign_Validation(t *testing.T) {
	f := newFixture()
	r := f.route("A", 1, 5, models.RouteStatusActive)

	_, err := f.svc.BulkAssign(f.ctx, 999, []uint{1}, false)
	assert.True(t, allocator.IsKind(err, allocator.KindRouteNotFound))

	_, err = f.svc.BulkAssign(f.ctx, r.ID, nil, false)
	assert.True(t, allocator.IsKind(err, allocator.KindValidation))

	_, err = f.svc.BulkAssign(f.ctx, r.ID, []uint{12345}, false)
	assert.True(t, allocator.IsKind(err, allocator.KindValidation))
}

func TestBulkAssign_DuplicateRequestIDsCollapse(t *testing.T) {
	f := newFixture()
	r := f.route("A", 1, 5, models.RouteStatusActive)
	ann := f.customer("ann")

	res, err := f.svc.BulkAssign(f.ctx, r.ID, []uint{ann.ID, ann.ID, ann.ID}, false)
	require.NoError(t, err)
	assert.Equal(t, []uint{ann.ID}, res.Created)
	assert.Equal(t, 1, res.Counts.Requested)
}
