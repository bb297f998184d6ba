package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ukydev/fleet-costing/internal/audit"
	"github.com/ukydev/fleet-costing/internal/db"
	"github.com/ukydev/fleet-costing/internal/models"
)

// Directionality reports where a record's efficiency sits relative to the
// norm's acceptable band.
type Directionality string

const (
	DirectionWithin  Directionality = "within"
	DirectionAbove   Directionality = "above"
	DirectionBelow   Directionality = "below"
	DirectionUnknown Directionality = "unknown"
)

// Classification is the outcome of evaluating a record against a norm.
type Classification struct {
	WithinTolerance bool           `json:"within_tolerance"`
	Directionality  Directionality `json:"directionality"`
}

// Classify evaluates a record's derived metric against a norm. A nil norm or
// an undefined metric yields unknown and within tolerance: absence of data
// must never auto-flag a record.
func Classify(rec *models.ConsumptionRecord, norm *models.EfficiencyNorm) Classification {
	unknown := Classification{WithinTolerance: true, Directionality: DirectionUnknown}
	if norm == nil {
		return unknown
	}

	var metric *float64
	if rec.IsReeferUnit() {
		metric = rec.LitresPerHour
	} else {
		metric = rec.KmPerLitre
	}
	if metric == nil {
		return unknown
	}

	min, max := norm.AcceptableRange()
	switch {
	case *metric < min:
		return Classification{WithinTolerance: false, Directionality: DirectionBelow}
	case *metric > max:
		return Classification{WithinTolerance: false, Directionality: DirectionAbove}
	default:
		return Classification{WithinTolerance: true, Directionality: DirectionWithin}
	}
}

// NormRegistry manages operator-editable efficiency norms. Deleting or
// editing a norm only affects future classifications; stored debrief
// verdicts are never rewritten.
type NormRegistry struct {
	norms db.NormStore
	audit audit.Recorder
}

// NewNormRegistry creates a registry over the given store.
func NewNormRegistry(norms db.NormStore, trail audit.Recorder) *NormRegistry {
	return &NormRegistry{norms: norms, audit: trail}
}

// Upsert validates and saves a norm.
func (r *NormRegistry) Upsert(ctx context.Context, norm models.EfficiencyNorm, actor string) error {
	if norm.FleetNumber == "" {
		return validationErr("fleet_number", "must not be empty")
	}
	if norm.ExpectedValue <= 0 {
		return validationErr("expected_value", "must be greater than zero")
	}
	if norm.TolerancePercent < 0 || norm.TolerancePercent > 50 {
		return validationErr("tolerance_percent", "must be between 0 and 50")
	}
	if norm.AssetClass != models.AssetClassTowing && norm.AssetClass != models.AssetClassReefer {
		return validationErr("asset_class", "must be towing or reefer")
	}

	norm.UpdatedBy = actor
	norm.UpdatedAt = time.Now().UTC()
	if err := r.norms.UpsertNorm(ctx, norm); err != nil {
		return fmt.Errorf("upsert norm: %w", err)
	}

	r.audit.Record(ctx, models.AuditEntry{
		Action:     "upsert",
		EntityType: "norm",
		EntityID:   norm.FleetNumber,
		Actor:      actor,
		Details:    fmt.Sprintf("Norm for %s set to %.2f +/- %.0f%%", norm.FleetNumber, norm.ExpectedValue, norm.TolerancePercent),
	})
	return nil
}

// Delete removes a norm. Records classified against it keep their stored
// verdicts; the pending-debrief view simply degrades to unknown for that
// fleet from here on.
func (r *NormRegistry) Delete(ctx context.Context, fleetNumber, actor string) error {
	if err := r.norms.DeleteNorm(ctx, fleetNumber); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return notFoundErr("norm", fleetNumber)
		}
		return fmt.Errorf("delete norm: %w", err)
	}

	r.audit.Record(ctx, models.AuditEntry{
		Action:     "delete",
		EntityType: "norm",
		EntityID:   fleetNumber,
		Actor:      actor,
		Details:    fmt.Sprintf("Norm for %s deleted", fleetNumber),
	})
	return nil
}

// ClassifyRecord looks up the record's norm and classifies it.
func (r *NormRegistry) ClassifyRecord(ctx context.Context, rec *models.ConsumptionRecord) (Classification, error) {
	norm, err := r.norms.FindNormByFleet(ctx, rec.FleetNumber)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return Classify(rec, nil), nil
		}
		return Classification{}, fmt.Errorf("find norm for %s: %w", rec.FleetNumber, err)
	}
	return Classify(rec, norm), nil
}

// List returns all configured norms.
func (r *NormRegistry) List(ctx context.Context) ([]models.EfficiencyNorm, error) {
	return r.norms.FindNorms(ctx)
}
