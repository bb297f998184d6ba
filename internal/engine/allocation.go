package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-costing/internal/audit"
	"github.com/ukydev/fleet-costing/internal/db"
	"github.com/ukydev/fleet-costing/internal/models"
)

// AllocationLedger is the sole authority over the pairing between consumption
// records and trip cost entries. Towing unit records allocate directly to a
// trip; reefer records link to the towing unit record pulling them and reach
// a trip through that link.
//
// Operations on the same trip serialize on keyed mutexes; operations on
// different trips run independently. A crash between the cost-entry write and
// the record-link write leaves a state Reconcile can detect (a diesel
// reference held by a trip the record no longer points at) and repair.
type AllocationLedger struct {
	records db.DieselStore
	trips   db.TripStore
	audit   audit.Recorder
	locks   *keyedMutex
	retry   retryConfig
}

// NewAllocationLedger creates a ledger over the given stores.
func NewAllocationLedger(records db.DieselStore, trips db.TripStore, trail audit.Recorder) *AllocationLedger {
	return &AllocationLedger{
		records: records,
		trips:   trips,
		audit:   trail,
		locks:   newKeyedMutex(),
		retry:   defaultRetry(),
	}
}

// SetRetry overrides the store retry policy.
func (l *AllocationLedger) SetRetry(attempts int, timeout time.Duration) {
	l.retry.attempts = attempts
	l.retry.timeout = timeout
}

// Allocate links a towing unit record to a trip and mirrors its cost as a
// single Diesel cost entry on that trip. A previous allocation is undone
// first, and cost entries for reefer records linked to this towing unit move
// along with it. Idempotent: repeating the call yields one entry, not two.
func (l *AllocationLedger) Allocate(ctx context.Context, recordID, tripID, actor string) error {
	rec, err := l.loadRecord(ctx, recordID)
	if err != nil {
		return err
	}
	if rec.IsReeferUnit() {
		return &InvalidAssetClassError{RecordID: recordID, Want: models.AssetClassTowing, Got: rec.AssetClass}
	}

	unlock := l.locks.lockAll(
		"record:"+recordID,
		"trip:"+tripID,
		"trip:"+rec.Allocation.TripID,
	)
	defer unlock()

	// Re-read inside the lock; the first read only discovered lock keys.
	rec, err = l.loadRecord(ctx, recordID)
	if err != nil {
		return err
	}
	trip, err := l.loadTrip(ctx, tripID)
	if err != nil {
		return err
	}

	reefers, err := l.linkedReefers(ctx, recordID)
	if err != nil {
		return err
	}

	refs := models.CostReferences(recordID)
	for _, r := range reefers {
		refs = append(refs, models.CostReferences(r.ID)...)
	}
	if err := l.removeReferencesExcept(ctx, tripID, refs...); err != nil {
		return err
	}

	changed := false
	if trip.CostByReference(rec.CostReference()) == nil {
		trip.Costs = append(trip.Costs, buildCostEntry(rec, trip))
		changed = true
	}
	for i := range reefers {
		if trip.CostByReference(reefers[i].CostReference()) == nil {
			trip.Costs = append(trip.Costs, buildCostEntry(&reefers[i], trip))
			changed = true
		}
	}
	if changed {
		if err := l.saveTrip(ctx, trip); err != nil {
			return err
		}
	}

	rec.Allocation = models.DirectAllocation(tripID)
	rec.UpdatedAt = time.Now().UTC()
	if err := l.saveRecord(ctx, rec); err != nil {
		return err
	}

	l.audit.Record(ctx, models.AuditEntry{
		Action:     "allocate",
		EntityType: "diesel",
		EntityID:   recordID,
		Actor:      actor,
		Details:    fmt.Sprintf("Diesel record %s allocated to trip %s", recordID, tripID),
		Changes:    map[string]interface{}{"trip_id": tripID, "reefer_entries": len(reefers)},
	})
	return nil
}

// LinkToTowingUnit links a reefer record to the consumption record of the
// towing unit that pulled it. If the towing unit is already allocated to a
// trip, the reefer's cost entry lands on that trip immediately; otherwise it
// is deferred until the towing unit resolves to one.
func (l *AllocationLedger) LinkToTowingUnit(ctx context.Context, recordID, towingRecordID, actor string) error {
	if recordID == towingRecordID {
		return validationErr("towing_record_id", "cannot link a record to itself")
	}

	rec, err := l.loadRecord(ctx, recordID)
	if err != nil {
		return err
	}
	if !rec.IsReeferUnit() {
		return &InvalidAssetClassError{RecordID: recordID, Want: models.AssetClassReefer, Got: rec.AssetClass}
	}

	towing, err := l.loadRecord(ctx, towingRecordID)
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			return notFoundErr("towing unit record", towingRecordID)
		}
		return err
	}
	if towing.IsReeferUnit() {
		return &InvalidAssetClassError{RecordID: towingRecordID, Want: models.AssetClassTowing, Got: towing.AssetClass}
	}

	oldTripID, err := l.resolveTripID(ctx, rec)
	if err != nil {
		return err
	}
	newTripID := towing.Allocation.TripID

	unlock := l.locks.lockAll(
		"record:"+recordID,
		"trip:"+oldTripID,
		"trip:"+newTripID,
	)
	defer unlock()

	rec, err = l.loadRecord(ctx, recordID)
	if err != nil {
		return err
	}

	if err := l.removeReferencesExcept(ctx, newTripID, models.CostReferences(recordID)...); err != nil {
		return err
	}

	if newTripID != "" {
		trip, err := l.loadTrip(ctx, newTripID)
		if err != nil {
			return err
		}
		if trip.CostByReference(rec.CostReference()) == nil {
			trip.Costs = append(trip.Costs, buildCostEntry(rec, trip))
			if err := l.saveTrip(ctx, trip); err != nil {
				return err
			}
		}
	}

	rec.Allocation = models.ReeferAllocation(towingRecordID)
	rec.UpdatedAt = time.Now().UTC()
	if err := l.saveRecord(ctx, rec); err != nil {
		return err
	}

	details := fmt.Sprintf("Reefer record %s linked to towing unit %s", recordID, towingRecordID)
	if newTripID == "" {
		details += " (cost entry deferred, towing unit not on a trip)"
	}
	l.audit.Record(ctx, models.AuditEntry{
		Action:     "link",
		EntityType: "diesel",
		EntityID:   recordID,
		Actor:      actor,
		Details:    details,
		Changes:    map[string]interface{}{"towing_record_id": towingRecordID, "trip_id": newTripID},
	})
	return nil
}

// Deallocate removes the record's mirrored cost entry from whichever trip
// holds it and clears the link. Deallocating a towing unit also removes the
// entries of reefer records linked to it, since those only reach a trip
// through the towing unit. Calling it on an unallocated record is a no-op.
func (l *AllocationLedger) Deallocate(ctx context.Context, recordID, actor string) error {
	rec, err := l.loadRecord(ctx, recordID)
	if err != nil {
		return err
	}
	if !rec.Allocation.IsAllocated() {
		log.WithField("record_id", recordID).Warn("deallocate called on unallocated record")
		return nil
	}

	tripID, err := l.resolveTripID(ctx, rec)
	if err != nil {
		return err
	}

	unlock := l.locks.lockAll("record:"+recordID, "trip:"+tripID)
	defer unlock()

	rec, err = l.loadRecord(ctx, recordID)
	if err != nil {
		return err
	}

	refs := models.CostReferences(recordID)
	if !rec.IsReeferUnit() {
		reefers, err := l.linkedReefers(ctx, recordID)
		if err != nil {
			return err
		}
		for _, r := range reefers {
			refs = append(refs, models.CostReferences(r.ID)...)
		}
	}
	if err := l.removeReferencesExcept(ctx, "", refs...); err != nil {
		return err
	}

	rec.Allocation = models.AllocationTarget{}
	rec.UpdatedAt = time.Now().UTC()
	if err := l.saveRecord(ctx, rec); err != nil {
		return err
	}

	l.audit.Record(ctx, models.AuditEntry{
		Action:     "deallocate",
		EntityType: "diesel",
		EntityID:   recordID,
		Actor:      actor,
		Details:    fmt.Sprintf("Diesel record %s removed from trip %s", recordID, tripID),
	})
	return nil
}

// SyncCostAmount pushes a changed total cost through to the record's mirrored
// cost entry, if one exists.
func (l *AllocationLedger) SyncCostAmount(ctx context.Context, rec *models.ConsumptionRecord) error {
	tripID, err := l.resolveTripID(ctx, rec)
	if err != nil || tripID == "" {
		return err
	}

	unlock := l.locks.lockAll("record:"+rec.ID, "trip:"+tripID)
	defer unlock()

	trip, err := l.loadTrip(ctx, tripID)
	if err != nil {
		return err
	}
	entry := trip.CostByReference(rec.CostReference())
	if entry == nil || entry.Amount == rec.TotalCost {
		return nil
	}
	entry.Amount = rec.TotalCost
	entry.Notes = costEntryNotes(rec)
	return l.saveTrip(ctx, trip)
}

// RepairedAllocation describes one fix applied by a reconciliation pass.
type RepairedAllocation struct {
	RecordID string `json:"record_id"`
	TripID   string `json:"trip_id"`
	Action   string `json:"action"` // "removed_duplicate", "removed_stale", "recreated"
}

// Reconcile is the recovery read for partial states: it scans every record,
// asks which trips hold its reference, and repairs duplicates, stale entries
// and missing entries against the record's current link.
func (l *AllocationLedger) Reconcile(ctx context.Context, actor string) ([]RepairedAllocation, error) {
	recs, err := l.records.FindRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	var repairs []RepairedAllocation
	for i := range recs {
		rec := &recs[i]
		target, err := l.resolveTripID(ctx, rec)
		if err != nil {
			return repairs, err
		}

		refs := models.CostReferences(rec.ID)
		holders, err := l.trips.FindTripsByCostReference(ctx, refs...)
		if err != nil {
			return repairs, fmt.Errorf("find holders of %s: %w", rec.ID, err)
		}

		onTarget := false
		for j := range holders {
			holder := holders[j]
			if holder.ID == target {
				onTarget = true
				continue
			}
			action := "removed_stale"
			if target != "" {
				action = "removed_duplicate"
			}
			holder.RemoveCostsByReference(refs...)
			if err := l.saveTrip(ctx, &holder); err != nil {
				return repairs, err
			}
			repairs = append(repairs, RepairedAllocation{RecordID: rec.ID, TripID: holder.ID, Action: action})
		}

		if target != "" && !onTarget {
			trip, err := l.loadTrip(ctx, target)
			if err != nil {
				return repairs, err
			}
			trip.Costs = append(trip.Costs, buildCostEntry(rec, trip))
			if err := l.saveTrip(ctx, trip); err != nil {
				return repairs, err
			}
			repairs = append(repairs, RepairedAllocation{RecordID: rec.ID, TripID: target, Action: "recreated"})
		}
	}

	if len(repairs) > 0 {
		l.audit.Record(ctx, models.AuditEntry{
			Action:     "reconcile",
			EntityType: "allocation",
			EntityID:   "ledger",
			Actor:      actor,
			Details:    fmt.Sprintf("Reconciliation repaired %d allocation(s)", len(repairs)),
			Changes:    map[string]interface{}{"repairs": repairs},
		})
	}
	return repairs, nil
}

// resolveTripID returns the trip a record's cost entry belongs on: the direct
// trip for towing units, the linked towing unit's trip for reefers, "" when
// unallocated or deferred.
func (l *AllocationLedger) resolveTripID(ctx context.Context, rec *models.ConsumptionRecord) (string, error) {
	switch rec.Allocation.Kind {
	case models.AllocationDirect:
		return rec.Allocation.TripID, nil
	case models.AllocationViaTowingUnit:
		towing, err := l.loadRecord(ctx, rec.Allocation.TowingRecordID)
		if err != nil {
			var nf *NotFoundError
			if errors.As(err, &nf) {
				// Towing record deleted out from under the link.
				return "", nil
			}
			return "", err
		}
		return towing.Allocation.TripID, nil
	default:
		return "", nil
	}
}

// removeReferencesExcept strips the given cost references from every trip
// holding them, except keepTripID.
func (l *AllocationLedger) removeReferencesExcept(ctx context.Context, keepTripID string, refs ...string) error {
	holders, err := l.trips.FindTripsByCostReference(ctx, refs...)
	if err != nil {
		return fmt.Errorf("find trips by reference: %w", err)
	}
	for i := range holders {
		holder := holders[i]
		if holder.ID == keepTripID {
			continue
		}
		if holder.RemoveCostsByReference(refs...) {
			if err := l.saveTrip(ctx, &holder); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *AllocationLedger) linkedReefers(ctx context.Context, towingRecordID string) ([]models.ConsumptionRecord, error) {
	reefers, err := l.records.FindLinkedReefers(ctx, towingRecordID)
	if err != nil {
		return nil, fmt.Errorf("find linked reefers of %s: %w", towingRecordID, err)
	}
	return reefers, nil
}

func (l *AllocationLedger) loadRecord(ctx context.Context, id string) (*models.ConsumptionRecord, error) {
	var rec *models.ConsumptionRecord
	err := l.retry.do(ctx, "find record", func(c context.Context) error {
		r, err := l.records.FindRecordByID(c, id)
		if err != nil {
			return err
		}
		rec = r
		return nil
	})
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, notFoundErr("consumption record", id)
		}
		return nil, err
	}
	return rec, nil
}

func (l *AllocationLedger) loadTrip(ctx context.Context, id string) (*models.Trip, error) {
	var trip *models.Trip
	err := l.retry.do(ctx, "find trip", func(c context.Context) error {
		t, err := l.trips.FindTripByID(c, id)
		if err != nil {
			return err
		}
		trip = t
		return nil
	})
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, notFoundErr("trip", id)
		}
		return nil, err
	}
	return trip, nil
}

func (l *AllocationLedger) saveTrip(ctx context.Context, trip *models.Trip) error {
	trip.UpdatedAt = time.Now().UTC()
	return l.retry.do(ctx, "update trip", func(c context.Context) error {
		return l.trips.UpdateTrip(c, trip.ID, *trip)
	})
}

func (l *AllocationLedger) saveRecord(ctx context.Context, rec *models.ConsumptionRecord) error {
	return l.retry.do(ctx, "update record", func(c context.Context) error {
		return l.records.UpdateRecord(c, rec.ID, *rec)
	})
}

func buildCostEntry(rec *models.ConsumptionRecord, trip *models.Trip) models.CostEntry {
	currency := rec.Currency
	if currency == "" {
		currency = trip.RevenueCurrency
	}
	sub := fmt.Sprintf("%s - %s", rec.FuelStation, rec.FleetNumber)
	if rec.IsReeferUnit() {
		sub += " (Reefer)"
	}
	return models.CostEntry{
		ID:              uuid.NewString(),
		TripID:          trip.ID,
		Category:        "Diesel",
		SubCategory:     sub,
		Amount:          rec.TotalCost,
		Currency:        currency,
		ReferenceNumber: rec.CostReference(),
		Date:            rec.Date,
		Notes:           costEntryNotes(rec),
	}
}

func costEntryNotes(rec *models.ConsumptionRecord) string {
	notes := fmt.Sprintf("Diesel: %.1f litres at %s", rec.VolumeFilled, rec.FuelStation)
	if rec.IsReeferUnit() {
		notes += " (Reefer)"
	}
	return notes
}
