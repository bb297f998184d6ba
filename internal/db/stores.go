package db

import (
	"context"
	"errors"

	"github.com/ukydev/fleet-costing/internal/models"
)

// ErrNotFound is returned by stores when a document does not exist. The
// engine maps it onto its own error taxonomy with entity context.
var ErrNotFound = errors.New("document not found")

// DieselStore defines the interface for consumption record operations.
type DieselStore interface {
	InsertRecord(ctx context.Context, rec models.ConsumptionRecord) error
	FindRecordByID(ctx context.Context, id string) (*models.ConsumptionRecord, error)
	FindRecords(ctx context.Context) ([]models.ConsumptionRecord, error)
	FindRecordsByFleet(ctx context.Context, fleetNumber string) ([]models.ConsumptionRecord, error)
	// FindLinkedReefers returns reefer records whose allocation points at the
	// given towing unit record.
	FindLinkedReefers(ctx context.Context, towingRecordID string) ([]models.ConsumptionRecord, error)
	UpdateRecord(ctx context.Context, id string, rec models.ConsumptionRecord) error
	DeleteRecord(ctx context.Context, id string) error
}

// TripStore defines the interface for trip operations.
type TripStore interface {
	InsertTrip(ctx context.Context, trip models.Trip) error
	FindTripByID(ctx context.Context, id string) (*models.Trip, error)
	FindTrips(ctx context.Context) ([]models.Trip, error)
	// FindTripsByCostReference returns every trip holding a cost entry with
	// one of the given reference numbers. More than one result is the
	// detectable partial state the reconciliation pass repairs.
	FindTripsByCostReference(ctx context.Context, refs ...string) ([]models.Trip, error)
	// FindTripByCostEntryID locates the trip owning a cost entry.
	FindTripByCostEntryID(ctx context.Context, costEntryID string) (*models.Trip, error)
	UpdateTrip(ctx context.Context, id string, trip models.Trip) error
}

// NormStore defines the interface for efficiency norm operations.
type NormStore interface {
	UpsertNorm(ctx context.Context, norm models.EfficiencyNorm) error
	FindNormByFleet(ctx context.Context, fleetNumber string) (*models.EfficiencyNorm, error)
	FindNorms(ctx context.Context) ([]models.EfficiencyNorm, error)
	DeleteNorm(ctx context.Context, fleetNumber string) error
}

// FleetAssetStore defines the interface for fleet asset metadata.
type FleetAssetStore interface {
	UpsertAsset(ctx context.Context, asset models.FleetAsset) error
	FindAssetByFleet(ctx context.Context, fleetNumber string) (*models.FleetAsset, error)
	FindAssets(ctx context.Context) ([]models.FleetAsset, error)
}

// AuditStore defines the interface for the append-only audit trail.
type AuditStore interface {
	AppendAudit(ctx context.Context, entry models.AuditEntry) error
	FindRecentAudit(ctx context.Context, limit int64) ([]models.AuditEntry, error)
}
