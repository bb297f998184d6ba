package models

import (
	"fmt"
	"strings"
	"time"
)

// AssetClass distinguishes distance-metered towing units ("horses") from
// hour-metered refrigerated trailers. Resolved once when the fleet asset is
// registered, never inferred from fleet numbers.
type AssetClass string

const (
	AssetClassTowing AssetClass = "towing"
	AssetClassReefer AssetClass = "reefer"
)

// AllocationKind tags the allocation state of a consumption record.
type AllocationKind string

const (
	AllocationNone          AllocationKind = ""
	AllocationDirect        AllocationKind = "direct"
	AllocationViaTowingUnit AllocationKind = "via_towing_unit"
)

// AllocationTarget is a tagged link. A towing unit record links directly to a
// trip; a reefer record links to the towing unit record it travelled behind
// and reaches a trip through that link. The tag makes it impossible for both
// link fields to be live at once.
type AllocationTarget struct {
	Kind           AllocationKind `bson:"kind" json:"kind"`
	TripID         string         `bson:"trip_id,omitempty" json:"trip_id,omitempty"`
	TowingRecordID string         `bson:"towing_record_id,omitempty" json:"towing_record_id,omitempty"`
}

// DirectAllocation links a towing unit record to a trip.
func DirectAllocation(tripID string) AllocationTarget {
	return AllocationTarget{Kind: AllocationDirect, TripID: tripID}
}

// ReeferAllocation links a reefer record to the towing unit record pulling it.
func ReeferAllocation(towingRecordID string) AllocationTarget {
	return AllocationTarget{Kind: AllocationViaTowingUnit, TowingRecordID: towingRecordID}
}

// IsAllocated reports whether the record carries any active link.
func (a AllocationTarget) IsAllocated() bool {
	return a.Kind != AllocationNone
}

// ConsumptionRecord represents one fuel purchase/fill event for a fleet asset.
type ConsumptionRecord struct {
	ID          string     `bson:"_id,omitempty" json:"id"`
	FleetNumber string     `bson:"fleet_number" json:"fleet_number"`
	AssetClass  AssetClass `bson:"asset_class" json:"asset_class"`
	Date        time.Time  `bson:"date" json:"date"`
	DriverName  string     `bson:"driver_name" json:"driver_name"`
	FuelStation string     `bson:"fuel_station" json:"fuel_station"`

	VolumeFilled            float64  `bson:"volume_filled" json:"volume_filled"` // litres
	OdometerReading         float64  `bson:"odometer_reading,omitempty" json:"odometer_reading,omitempty"`
	PreviousOdometerReading *float64 `bson:"previous_odometer_reading,omitempty" json:"previous_odometer_reading,omitempty"`
	HoursOperated           float64  `bson:"hours_operated,omitempty" json:"hours_operated,omitempty"` // reefer engine hours
	TotalCost               float64  `bson:"total_cost" json:"total_cost"`
	CostPerLitre            float64  `bson:"cost_per_litre" json:"cost_per_litre"`
	Currency                string   `bson:"currency" json:"currency"`

	// Derived quantities, written by the metrics calculator only.
	DistanceTravelled *float64 `bson:"distance_travelled,omitempty" json:"distance_travelled,omitempty"` // km
	KmPerLitre        *float64 `bson:"km_per_litre,omitempty" json:"km_per_litre,omitempty"`
	LitresPerHour     *float64 `bson:"litres_per_hour,omitempty" json:"litres_per_hour,omitempty"`

	Allocation AllocationTarget `bson:"allocation" json:"allocation"`

	// Probe verification state.
	ProbeReading     *float64   `bson:"probe_reading,omitempty" json:"probe_reading,omitempty"`
	ProbeDiscrepancy *float64   `bson:"probe_discrepancy,omitempty" json:"probe_discrepancy,omitempty"`
	ProbeVerified    *bool      `bson:"probe_verified,omitempty" json:"probe_verified,omitempty"`
	ProbeVerifiedAt  *time.Time `bson:"probe_verified_at,omitempty" json:"probe_verified_at,omitempty"`
	ProbeWitness     string     `bson:"probe_witness,omitempty" json:"probe_witness,omitempty"`

	// Debrief state.
	DebriefedAt           *time.Time `bson:"debriefed_at,omitempty" json:"debriefed_at,omitempty"`
	DebriefedBy           string     `bson:"debriefed_by,omitempty" json:"debriefed_by,omitempty"`
	DebriefNotes          string     `bson:"debrief_notes,omitempty" json:"debrief_notes,omitempty"`
	RootCause             string     `bson:"root_cause,omitempty" json:"root_cause,omitempty"`
	ActionTaken           string     `bson:"action_taken,omitempty" json:"action_taken,omitempty"`
	AcknowledgedBySubject bool       `bson:"acknowledged_by_subject,omitempty" json:"acknowledged_by_subject,omitempty"`
	// Classification captured when the debrief was signed off. The pending
	// view recomputes against current norms; this field never does.
	PerformanceAtDebrief string `bson:"performance_at_debrief,omitempty" json:"performance_at_debrief,omitempty"`

	Notes     string    `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsReeferUnit reports whether the record belongs to a refrigeration trailer.
func (r *ConsumptionRecord) IsReeferUnit() bool {
	return r.AssetClass == AssetClassReefer
}

// CostReference is the deterministic reference number that correlates this
// record to exactly one cost entry on a trip.
func (r *ConsumptionRecord) CostReference() string {
	if r.IsReeferUnit() {
		return fmt.Sprintf("DIESEL-REEFER-%s", r.ID)
	}
	return fmt.Sprintf("DIESEL-%s", r.ID)
}

// CostReferences returns both possible reference encodings for a record id.
// Removal has to match either, since an asset-class correction may have
// changed the encoding after the entry was written.
func CostReferences(recordID string) []string {
	return []string{
		fmt.Sprintf("DIESEL-%s", recordID),
		fmt.Sprintf("DIESEL-REEFER-%s", recordID),
	}
}

// RecordIDFromReference extracts the consumption record id from a cost entry
// reference number, or "" if the reference is not diesel-origin.
func RecordIDFromReference(ref string) string {
	if id, ok := strings.CutPrefix(ref, "DIESEL-REEFER-"); ok {
		return id
	}
	if id, ok := strings.CutPrefix(ref, "DIESEL-"); ok {
		return id
	}
	return ""
}
