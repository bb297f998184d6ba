package engine

import (
	"math"

	"github.com/ukydev/fleet-costing/internal/models"
)

// DerivedMetrics holds the quantities computed from a raw consumption record.
// Pointer fields stay nil when the input does not support the derivation;
// an unknown distance is not an error.
type DerivedMetrics struct {
	DistanceTravelled *float64
	KmPerLitre        *float64
	LitresPerHour     *float64
	CostPerLitre      float64
}

// ComputeMetrics derives distance, efficiency and unit cost from a raw
// consumption record. Pure; the record is not modified.
func ComputeMetrics(rec *models.ConsumptionRecord) (DerivedMetrics, error) {
	var m DerivedMetrics

	if rec.VolumeFilled <= 0 {
		return m, validationErr("volume_filled", "must be greater than zero")
	}

	switch rec.AssetClass {
	case models.AssetClassReefer:
		if rec.HoursOperated <= 0 {
			return m, validationErr("hours_operated", "must be greater than zero for reefer units")
		}
		lph := rec.VolumeFilled / rec.HoursOperated
		m.LitresPerHour = &lph
	case models.AssetClassTowing:
		if rec.OdometerReading < 0 {
			return m, validationErr("odometer_reading", "must not be negative")
		}
		if prev := rec.PreviousOdometerReading; prev != nil && rec.OdometerReading > *prev {
			dist := rec.OdometerReading - *prev
			m.DistanceTravelled = &dist
			kpl := dist / rec.VolumeFilled
			m.KmPerLitre = &kpl
		}
	default:
		return m, validationErr("asset_class", "must be towing or reefer")
	}

	if rec.CostPerLitre > 0 {
		m.CostPerLitre = rec.CostPerLitre
	} else {
		m.CostPerLitre = round2(rec.TotalCost / rec.VolumeFilled)
	}

	return m, nil
}

// ApplyMetrics computes derived metrics and writes them onto the record.
func ApplyMetrics(rec *models.ConsumptionRecord) error {
	m, err := ComputeMetrics(rec)
	if err != nil {
		return err
	}
	rec.DistanceTravelled = m.DistanceTravelled
	rec.KmPerLitre = m.KmPerLitre
	rec.LitresPerHour = m.LitresPerHour
	rec.CostPerLitre = m.CostPerLitre
	return nil
}

// round2 rounds to two decimal places. Currency amounts only; physical
// quantities are kept unrounded.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
