package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-costing/internal/audit"
	"github.com/ukydev/fleet-costing/internal/db"
	"github.com/ukydev/fleet-costing/internal/models"
)

// CostEntryPatch carries the optional corrections applied while resolving a
// flagged cost entry.
type CostEntryPatch struct {
	Amount *float64 `json:"amount,omitempty"`
	Notes  *string  `json:"notes,omitempty"`
}

// FlaggedCost is a flagged cost entry together with the trip context a
// reviewer needs. For diesel-origin entries RecordID points back at the
// consumption record behind the entry; it is empty for other categories.
type FlaggedCost struct {
	models.CostEntry
	RecordID        string `json:"record_id,omitempty"`
	TripFleetNumber string `json:"trip_fleet_number"`
	TripDriverName  string `json:"trip_driver_name"`
	TripRoute       string `json:"trip_route"`
}

// FlagService runs the flag/investigation workflow on cost entries:
// pending -> in-progress -> resolved, with pending -> resolved allowed and
// resolved terminal. Any subsystem may raise a flag; a trip can only reach
// completed once none of its entries has an unresolved flag.
type FlagService struct {
	trips db.TripStore
	audit audit.Recorder
	locks *keyedMutex
	retry retryConfig
}

// NewFlagService creates a flag service.
func NewFlagService(trips db.TripStore, trail audit.Recorder) *FlagService {
	return &FlagService{trips: trips, audit: trail, locks: newKeyedMutex(), retry: defaultRetry()}
}

// SetRetry overrides the store retry policy.
func (s *FlagService) SetRetry(attempts int, timeout time.Duration) {
	s.retry.attempts = attempts
	s.retry.timeout = timeout
}

// Flag marks a cost entry for investigation. Flagging an already-flagged
// entry only refreshes the reason.
func (s *FlagService) Flag(ctx context.Context, costEntryID, reason, actor string) error {
	if reason == "" {
		return validationErr("reason", "must not be empty")
	}

	trip, err := s.findOwningTrip(ctx, costEntryID)
	if err != nil {
		return err
	}

	unlock := s.locks.lockAll("trip:" + trip.ID)
	defer unlock()

	trip, err = s.findOwningTrip(ctx, costEntryID)
	if err != nil {
		return err
	}
	entry := trip.CostByID(costEntryID)

	now := time.Now().UTC()
	entry.IsFlagged = true
	entry.FlagReason = reason
	if entry.InvestigationStatus == "" || entry.InvestigationStatus == models.InvestigationResolved {
		entry.InvestigationStatus = models.InvestigationPending
		entry.ResolvedAt = nil
		entry.ResolvedBy = ""
	}
	entry.FlaggedAt = &now
	entry.FlaggedBy = actor
	if err := s.saveTrip(ctx, trip); err != nil {
		return err
	}

	s.audit.Record(ctx, models.AuditEntry{
		Action:     "flag",
		EntityType: "cost_entry",
		EntityID:   costEntryID,
		Actor:      actor,
		Details:    fmt.Sprintf("Cost entry %s on trip %s flagged: %s", entry.ReferenceNumber, trip.ID, reason),
	})
	return nil
}

// StartInvestigation moves a pending investigation to in-progress.
func (s *FlagService) StartInvestigation(ctx context.Context, costEntryID, actor string) error {
	trip, err := s.findOwningTrip(ctx, costEntryID)
	if err != nil {
		return err
	}

	unlock := s.locks.lockAll("trip:" + trip.ID)
	defer unlock()

	trip, err = s.findOwningTrip(ctx, costEntryID)
	if err != nil {
		return err
	}
	entry := trip.CostByID(costEntryID)

	switch entry.InvestigationStatus {
	case models.InvestigationPending:
		entry.InvestigationStatus = models.InvestigationInProgress
	case models.InvestigationInProgress:
		return nil
	case models.InvestigationResolved:
		return &ConflictError{Entity: "cost entry", ID: costEntryID, Reason: "investigation already resolved"}
	default:
		return &ConflictError{Entity: "cost entry", ID: costEntryID, Reason: "entry is not flagged"}
	}
	if err := s.saveTrip(ctx, trip); err != nil {
		return err
	}

	s.audit.Record(ctx, models.AuditEntry{
		Action:     "investigate",
		EntityType: "cost_entry",
		EntityID:   costEntryID,
		Actor:      actor,
		Details:    fmt.Sprintf("Investigation started on %s", entry.ReferenceNumber),
	})
	return nil
}

// Resolve closes the investigation on a flagged cost entry, applying optional
// corrections. Resolving an already-resolved entry is a no-op. After each
// resolution the owning trip is re-checked: when no unresolved flags remain
// it auto-transitions to completed, regardless of resolution order.
func (s *FlagService) Resolve(ctx context.Context, costEntryID string, patch CostEntryPatch, comment, actor string) error {
	if comment == "" {
		return validationErr("resolution_comment", "must not be empty")
	}

	trip, err := s.findOwningTrip(ctx, costEntryID)
	if err != nil {
		return err
	}

	unlock := s.locks.lockAll("trip:" + trip.ID)
	defer unlock()

	trip, err = s.findOwningTrip(ctx, costEntryID)
	if err != nil {
		return err
	}
	entry := trip.CostByID(costEntryID)
	if !entry.IsFlagged {
		return &ConflictError{Entity: "cost entry", ID: costEntryID, Reason: "entry is not flagged"}
	}
	if entry.InvestigationStatus == models.InvestigationResolved {
		log.WithField("cost_entry_id", costEntryID).Info("resolve called on already-resolved flag")
		return nil
	}

	now := time.Now().UTC()
	if patch.Amount != nil {
		entry.Amount = *patch.Amount
	}
	if patch.Notes != nil {
		entry.Notes = *patch.Notes
	}
	entry.InvestigationStatus = models.InvestigationResolved
	entry.InvestigationNotes = comment
	entry.ResolvedAt = &now
	entry.ResolvedBy = actor

	if trip.UnresolvedFlagCount() == 0 && trip.Status == models.TripStatusActive {
		trip.Status = models.TripStatusCompleted
		trip.CompletedAt = &now
		trip.CompletedBy = actor
		trip.AutoCompletedAt = &now
		trip.AutoCompletedReason = "all flagged cost entries resolved"
	}
	if err := s.saveTrip(ctx, trip); err != nil {
		return err
	}

	s.audit.Record(ctx, models.AuditEntry{
		Action:     "resolve",
		EntityType: "cost_entry",
		EntityID:   costEntryID,
		Actor:      actor,
		Details:    fmt.Sprintf("Flag on %s resolved: %s", entry.ReferenceNumber, comment),
		Changes:    map[string]interface{}{"trip_id": trip.ID, "trip_status": string(trip.Status)},
	})
	return nil
}

// CompleteTrip performs a manual completion, refused while any flag on the
// trip is unresolved.
func (s *FlagService) CompleteTrip(ctx context.Context, tripID, actor string) error {
	unlock := s.locks.lockAll("trip:" + tripID)
	defer unlock()

	trip, err := s.loadTrip(ctx, tripID)
	if err != nil {
		return err
	}
	if trip.Status == models.TripStatusCompleted {
		return nil
	}
	if !trip.CanComplete() {
		return &ConflictError{
			Entity: "trip",
			ID:     tripID,
			Reason: fmt.Sprintf("%d unresolved flagged cost entries", trip.UnresolvedFlagCount()),
		}
	}

	now := time.Now().UTC()
	trip.Status = models.TripStatusCompleted
	trip.CompletedAt = &now
	trip.CompletedBy = actor
	if err := s.saveTrip(ctx, trip); err != nil {
		return err
	}

	s.audit.Record(ctx, models.AuditEntry{
		Action:     "complete",
		EntityType: "trip",
		EntityID:   tripID,
		Actor:      actor,
		Details:    fmt.Sprintf("Trip %s completed by %s", tripID, actor),
	})
	return nil
}

// ListFlagged returns every flagged cost entry across all trips with counts
// per investigation status.
func (s *FlagService) ListFlagged(ctx context.Context) ([]FlaggedCost, map[string]int, error) {
	trips, err := s.trips.FindTrips(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list trips: %w", err)
	}

	var flagged []FlaggedCost
	counts := map[string]int{"pending": 0, "in-progress": 0, "resolved": 0}
	for i := range trips {
		for _, c := range trips[i].Costs {
			if !c.IsFlagged {
				continue
			}
			flagged = append(flagged, FlaggedCost{
				CostEntry:       c,
				RecordID:        models.RecordIDFromReference(c.ReferenceNumber),
				TripFleetNumber: trips[i].FleetNumber,
				TripDriverName:  trips[i].DriverName,
				TripRoute:       trips[i].Route,
			})
			counts[string(c.InvestigationStatus)]++
		}
	}
	return flagged, counts, nil
}

func (s *FlagService) findOwningTrip(ctx context.Context, costEntryID string) (*models.Trip, error) {
	var trip *models.Trip
	err := s.retry.do(ctx, "find trip by cost entry", func(c context.Context) error {
		t, err := s.trips.FindTripByCostEntryID(c, costEntryID)
		if err != nil {
			return err
		}
		trip = t
		return nil
	})
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, notFoundErr("cost entry", costEntryID)
		}
		return nil, err
	}
	return trip, nil
}

func (s *FlagService) loadTrip(ctx context.Context, id string) (*models.Trip, error) {
	trip, err := s.trips.FindTripByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, notFoundErr("trip", id)
		}
		return nil, fmt.Errorf("find trip %s: %w", id, err)
	}
	return trip, nil
}

func (s *FlagService) saveTrip(ctx context.Context, trip *models.Trip) error {
	trip.UpdatedAt = time.Now().UTC()
	return s.retry.do(ctx, "update trip", func(c context.Context) error {
		return s.trips.UpdateTrip(c, trip.ID, *trip)
	})
}
