package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/fleet-costing/internal/models"
)

// flaggedTrip seeds a trip with one allocated diesel entry and flags it.
func flaggedTrip(t *testing.T, e *testEnv) (tripID, entryID string) {
	t.Helper()
	ctx := context.Background()
	rec := e.addTowingRecord(450, 125000, 123560, 8325)
	e.addTrip("trip-1")
	require.NoError(t, e.ledger.Allocate(ctx, rec.ID, "trip-1", "clerk"))

	entry := e.getTrip("trip-1").Costs[0]
	require.NoError(t, e.flags.Flag(ctx, entry.ID, "amount looks off", "auditor"))
	return "trip-1", entry.ID
}

func TestFlag(t *testing.T) {
	e := newTestEnv()
	tripID, entryID := flaggedTrip(t, e)

	entry := e.getTrip(tripID).CostByID(entryID)
	require.NotNil(t, entry)
	assert.True(t, entry.IsFlagged)
	assert.Equal(t, "amount looks off", entry.FlagReason)
	assert.Equal(t, models.InvestigationPending, entry.InvestigationStatus)
	assert.Equal(t, "auditor", entry.FlaggedBy)
	assert.NotNil(t, entry.FlaggedAt)
}

func TestFlag_ReasonRequired(t *testing.T) {
	e := newTestEnv()

	err := e.flags.Flag(context.Background(), "any", "", "auditor")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "reason", verr.Field)
}

func TestFlag_UnknownEntry(t *testing.T) {
	e := newTestEnv()

	err := e.flags.Flag(context.Background(), "missing", "reason", "auditor")
	var nfErr *NotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "cost entry", nfErr.Entity)
}

func TestFlag_ReflagRefreshesReason(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	tripID, entryID := flaggedTrip(t, e)

	require.NoError(t, e.flags.StartInvestigation(ctx, entryID, "auditor"))
	require.NoError(t, e.flags.Flag(ctx, entryID, "second look needed", "auditor"))

	entry := e.getTrip(tripID).CostByID(entryID)
	assert.Equal(t, "second look needed", entry.FlagReason)
	// An in-flight investigation is not reset by a repeated flag.
	assert.Equal(t, models.InvestigationInProgress, entry.InvestigationStatus)
}

func TestStartInvestigation(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	tripID, entryID := flaggedTrip(t, e)

	require.NoError(t, e.flags.StartInvestigation(ctx, entryID, "auditor"))
	entry := e.getTrip(tripID).CostByID(entryID)
	assert.Equal(t, models.InvestigationInProgress, entry.InvestigationStatus)

	// Starting again is a no-op.
	require.NoError(t, e.flags.StartInvestigation(ctx, entryID, "auditor"))
}

func TestStartInvestigation_ResolvedIsTerminal(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	_, entryID := flaggedTrip(t, e)

	require.NoError(t, e.flags.Resolve(ctx, entryID, CostEntryPatch{}, "checked against invoice", "auditor"))

	err := e.flags.StartInvestigation(ctx, entryID, "auditor")
	var cErr *ConflictError
	require.ErrorAs(t, err, &cErr)
}

func TestResolve_CommentRequired(t *testing.T) {
	e := newTestEnv()
	_, entryID := flaggedTrip(t, e)

	err := e.flags.Resolve(context.Background(), entryID, CostEntryPatch{}, "", "auditor")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "resolution_comment", verr.Field)
}

func TestResolve_AppliesPatchAndAutoCompletes(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	tripID, entryID := flaggedTrip(t, e)

	amount := 7900.0
	notes := "corrected against station invoice"
	require.NoError(t, e.flags.Resolve(ctx, entryID, CostEntryPatch{Amount: &amount, Notes: &notes}, "invoice mismatch, corrected", "auditor"))

	trip := e.getTrip(tripID)
	entry := trip.CostByID(entryID)
	assert.Equal(t, models.InvestigationResolved, entry.InvestigationStatus)
	assert.Equal(t, 7900.0, entry.Amount)
	assert.Equal(t, notes, entry.Notes)
	assert.Equal(t, "auditor", entry.ResolvedBy)
	assert.NotNil(t, entry.ResolvedAt)

	// Last unresolved flag gone: the trip auto-completes.
	assert.Equal(t, models.TripStatusCompleted, trip.Status)
	assert.NotNil(t, trip.AutoCompletedAt)
	assert.Equal(t, "all flagged cost entries resolved", trip.AutoCompletedReason)
}

func TestResolve_Idempotent(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	_, entryID := flaggedTrip(t, e)

	require.NoError(t, e.flags.Resolve(ctx, entryID, CostEntryPatch{}, "first resolution", "auditor"))
	require.NoError(t, e.flags.Resolve(ctx, entryID, CostEntryPatch{}, "second call", "someone-else"))

	trip, err := e.trips.FindTripByCostEntryID(ctx, entryID)
	require.NoError(t, err)
	assert.Equal(t, "auditor", trip.CostByID(entryID).ResolvedBy)
	assert.Equal(t, "first resolution", trip.CostByID(entryID).InvestigationNotes)
}

func TestResolve_OutOfOrderCompletesOnLast(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	towing := e.addTowingRecord(450, 125000, 123560, 8325)
	reefer := e.addReeferRecord(180, 60, 3330)
	e.addTrip("trip-1")
	require.NoError(t, e.ledger.Allocate(ctx, towing.ID, "trip-1", "clerk"))
	require.NoError(t, e.ledger.LinkToTowingUnit(ctx, reefer.ID, towing.ID, "clerk"))

	trip := e.getTrip("trip-1")
	require.Len(t, trip.Costs, 2)
	first, second := trip.Costs[0].ID, trip.Costs[1].ID
	require.NoError(t, e.flags.Flag(ctx, first, "volume mismatch", "auditor"))
	require.NoError(t, e.flags.Flag(ctx, second, "volume mismatch", "auditor"))

	// Resolve in reverse flagging order; completion must fire on the last
	// resolution regardless of order.
	require.NoError(t, e.flags.Resolve(ctx, second, CostEntryPatch{}, "verified ok", "auditor"))
	assert.Equal(t, models.TripStatusActive, e.getTrip("trip-1").Status)

	require.NoError(t, e.flags.Resolve(ctx, first, CostEntryPatch{}, "verified ok", "auditor"))
	assert.Equal(t, models.TripStatusCompleted, e.getTrip("trip-1").Status)
}

func TestResolve_NoAutoCompleteOnShippedTrip(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	tripID, entryID := flaggedTrip(t, e)

	trip := e.getTrip(tripID)
	trip.Status = models.TripStatusShipped
	require.NoError(t, e.trips.UpdateTrip(ctx, tripID, *trip))

	require.NoError(t, e.flags.Resolve(ctx, entryID, CostEntryPatch{}, "verified ok", "auditor"))
	assert.Equal(t, models.TripStatusShipped, e.getTrip(tripID).Status)
}

func TestCompleteTrip_GatedOnUnresolvedFlags(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	tripID, entryID := flaggedTrip(t, e)

	err := e.flags.CompleteTrip(ctx, tripID, "manager")
	var cErr *ConflictError
	require.ErrorAs(t, err, &cErr)
	assert.Contains(t, cErr.Reason, "unresolved")

	require.NoError(t, e.flags.Resolve(ctx, entryID, CostEntryPatch{}, "verified ok", "auditor"))
	// Auto-completion already fired; a manual call is now a no-op.
	require.NoError(t, e.flags.CompleteTrip(ctx, tripID, "manager"))
	assert.Equal(t, models.TripStatusCompleted, e.getTrip(tripID).Status)
}

func TestCompleteTrip_Manual(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	e.addTrip("trip-9")

	require.NoError(t, e.flags.CompleteTrip(ctx, "trip-9", "manager"))

	trip := e.getTrip("trip-9")
	assert.Equal(t, models.TripStatusCompleted, trip.Status)
	assert.Equal(t, "manager", trip.CompletedBy)
	assert.NotNil(t, trip.CompletedAt)
	assert.Nil(t, trip.AutoCompletedAt)
}

func TestListFlagged(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	tripID, entryID := flaggedTrip(t, e)
	_ = tripID

	flagged, counts, err := e.flags.ListFlagged(ctx)
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, entryID, flagged[0].ID)
	assert.Equal(t, "H-401", flagged[0].TripFleetNumber)
	require.NotEmpty(t, flagged[0].RecordID)
	assert.Equal(t, "DIESEL-"+flagged[0].RecordID, flagged[0].ReferenceNumber)
	assert.Equal(t, 1, counts["pending"])
	assert.Equal(t, 0, counts["resolved"])

	require.NoError(t, e.flags.Resolve(ctx, entryID, CostEntryPatch{}, "verified ok", "auditor"))
	flagged, counts, err = e.flags.ListFlagged(ctx)
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, 0, counts["pending"])
	assert.Equal(t, 1, counts["resolved"])
}
