package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ukydev/fleet-costing/internal/audit"
	"github.com/ukydev/fleet-costing/internal/db"
	"github.com/ukydev/fleet-costing/internal/models"
)

// RecordInput is the ingestion payload for a consumption record, from manual
// entry or bulk import.
type RecordInput struct {
	FleetNumber             string    `json:"fleet_number"`
	Date                    time.Time `json:"date"`
	DriverName              string    `json:"driver_name"`
	FuelStation             string    `json:"fuel_station"`
	VolumeFilled            float64   `json:"volume_filled"`
	OdometerReading         float64   `json:"odometer_reading"`
	PreviousOdometerReading *float64  `json:"previous_odometer_reading,omitempty"`
	HoursOperated           float64   `json:"hours_operated"`
	TotalCost               float64   `json:"total_cost"`
	CostPerLitre            float64   `json:"cost_per_litre"`
	Currency                string    `json:"currency"`
	Notes                   string    `json:"notes"`

	// Optional allocation performed in the same call.
	TripID         string `json:"trip_id,omitempty"`
	TowingRecordID string `json:"towing_record_id,omitempty"`
}

// RecordService owns the consumption record lifecycle around the allocation
// ledger: asset class is resolved from the fleet registry once at ingestion,
// metrics are derived before persisting, and deletion deallocates first so no
// orphaned cost entry survives the record.
type RecordService struct {
	records db.DieselStore
	assets  db.FleetAssetStore
	ledger  *AllocationLedger
	audit   audit.Recorder
}

// NewRecordService creates a record service.
func NewRecordService(records db.DieselStore, assets db.FleetAssetStore, ledger *AllocationLedger, trail audit.Recorder) *RecordService {
	return &RecordService{records: records, assets: assets, ledger: ledger, audit: trail}
}

// Create validates, derives metrics, persists and optionally allocates a new
// record. Returns the record id.
func (s *RecordService) Create(ctx context.Context, in RecordInput, actor string) (string, error) {
	if in.FleetNumber == "" {
		return "", validationErr("fleet_number", "must not be empty")
	}
	asset, err := s.assets.FindAssetByFleet(ctx, in.FleetNumber)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", notFoundErr("fleet asset", in.FleetNumber)
		}
		return "", fmt.Errorf("find fleet asset %s: %w", in.FleetNumber, err)
	}

	now := time.Now().UTC()
	rec := models.ConsumptionRecord{
		ID:                      uuid.NewString(),
		FleetNumber:             in.FleetNumber,
		AssetClass:              asset.AssetClass,
		Date:                    in.Date,
		DriverName:              in.DriverName,
		FuelStation:             in.FuelStation,
		VolumeFilled:            in.VolumeFilled,
		OdometerReading:         in.OdometerReading,
		PreviousOdometerReading: in.PreviousOdometerReading,
		HoursOperated:           in.HoursOperated,
		TotalCost:               in.TotalCost,
		CostPerLitre:            in.CostPerLitre,
		Currency:                in.Currency,
		Notes:                   in.Notes,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	if err := ApplyMetrics(&rec); err != nil {
		return "", err
	}

	if err := s.records.InsertRecord(ctx, rec); err != nil {
		return "", fmt.Errorf("insert record: %w", err)
	}

	s.audit.Record(ctx, models.AuditEntry{
		Action:     "create",
		EntityType: "diesel",
		EntityID:   rec.ID,
		Actor:      actor,
		Details:    fmt.Sprintf("Diesel record created for %s: %.1f litres", rec.FleetNumber, rec.VolumeFilled),
	})

	switch {
	case in.TripID != "":
		if err := s.ledger.Allocate(ctx, rec.ID, in.TripID, actor); err != nil {
			return rec.ID, err
		}
	case in.TowingRecordID != "":
		if err := s.ledger.LinkToTowingUnit(ctx, rec.ID, in.TowingRecordID, actor); err != nil {
			return rec.ID, err
		}
	}
	return rec.ID, nil
}

// Update applies changed quantities, rederives metrics and keeps the mirrored
// cost entry's amount in sync.
func (s *RecordService) Update(ctx context.Context, id string, in RecordInput, actor string) error {
	rec, err := s.records.FindRecordByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return notFoundErr("consumption record", id)
		}
		return fmt.Errorf("find record %s: %w", id, err)
	}

	rec.Date = in.Date
	rec.DriverName = in.DriverName
	rec.FuelStation = in.FuelStation
	rec.VolumeFilled = in.VolumeFilled
	rec.OdometerReading = in.OdometerReading
	rec.PreviousOdometerReading = in.PreviousOdometerReading
	rec.HoursOperated = in.HoursOperated
	rec.TotalCost = in.TotalCost
	rec.CostPerLitre = in.CostPerLitre
	if in.Currency != "" {
		rec.Currency = in.Currency
	}
	rec.Notes = in.Notes
	rec.UpdatedAt = time.Now().UTC()

	if err := ApplyMetrics(rec); err != nil {
		return err
	}
	if err := s.records.UpdateRecord(ctx, id, *rec); err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if err := s.ledger.SyncCostAmount(ctx, rec); err != nil {
		return err
	}

	s.audit.Record(ctx, models.AuditEntry{
		Action:     "update",
		EntityType: "diesel",
		EntityID:   id,
		Actor:      actor,
		Details:    fmt.Sprintf("Diesel record %s updated for %s", id, rec.FleetNumber),
	})
	return nil
}

// Delete deallocates the record, then removes it.
func (s *RecordService) Delete(ctx context.Context, id, actor string) error {
	rec, err := s.records.FindRecordByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return notFoundErr("consumption record", id)
		}
		return fmt.Errorf("find record %s: %w", id, err)
	}

	if rec.Allocation.IsAllocated() {
		if err := s.ledger.Deallocate(ctx, id, actor); err != nil {
			return err
		}
	}
	if err := s.records.DeleteRecord(ctx, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}

	s.audit.Record(ctx, models.AuditEntry{
		Action:     "delete",
		EntityType: "diesel",
		EntityID:   id,
		Actor:      actor,
		Details:    fmt.Sprintf("Diesel record %s deleted for %s", id, rec.FleetNumber),
	})
	return nil
}

// Get returns a single record.
func (s *RecordService) Get(ctx context.Context, id string) (*models.ConsumptionRecord, error) {
	rec, err := s.records.FindRecordByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, notFoundErr("consumption record", id)
		}
		return nil, fmt.Errorf("find record %s: %w", id, err)
	}
	return rec, nil
}

// List returns all records.
func (s *RecordService) List(ctx context.Context) ([]models.ConsumptionRecord, error) {
	return s.records.FindRecords(ctx)
}
