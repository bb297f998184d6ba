package models

import "time"

// TripStatus is the aggregate lifecycle state of a trip. The engine only ever
// writes the active -> completed transition; shipped and delivered are set by
// the dispatch side and pass through untouched.
type TripStatus string

const (
	TripStatusActive    TripStatus = "active"
	TripStatusShipped   TripStatus = "shipped"
	TripStatusDelivered TripStatus = "delivered"
	TripStatusCompleted TripStatus = "completed"
)

// InvestigationStatus is the state of a flagged cost entry's investigation.
type InvestigationStatus string

const (
	InvestigationPending    InvestigationStatus = "pending"
	InvestigationInProgress InvestigationStatus = "in-progress"
	InvestigationResolved   InvestigationStatus = "resolved"
)

// CostEntry is a line item on a trip's expense ledger. Diesel-origin entries
// are written exclusively by the allocation ledger and carry a reference
// number correlating back to exactly one consumption record.
type CostEntry struct {
	ID              string    `bson:"id" json:"id"`
	TripID          string    `bson:"trip_id" json:"trip_id"`
	Category        string    `bson:"category" json:"category"`
	SubCategory     string    `bson:"sub_category,omitempty" json:"sub_category,omitempty"`
	Amount          float64   `bson:"amount" json:"amount"`
	Currency        string    `bson:"currency" json:"currency"`
	ReferenceNumber string    `bson:"reference_number" json:"reference_number"`
	Date            time.Time `bson:"date" json:"date"`
	Notes           string    `bson:"notes,omitempty" json:"notes,omitempty"`

	IsFlagged           bool                `bson:"is_flagged" json:"is_flagged"`
	FlagReason          string              `bson:"flag_reason,omitempty" json:"flag_reason,omitempty"`
	InvestigationStatus InvestigationStatus `bson:"investigation_status,omitempty" json:"investigation_status,omitempty"`
	InvestigationNotes  string              `bson:"investigation_notes,omitempty" json:"investigation_notes,omitempty"`
	FlaggedAt           *time.Time          `bson:"flagged_at,omitempty" json:"flagged_at,omitempty"`
	FlaggedBy           string              `bson:"flagged_by,omitempty" json:"flagged_by,omitempty"`
	ResolvedAt          *time.Time          `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
	ResolvedBy          string              `bson:"resolved_by,omitempty" json:"resolved_by,omitempty"`

	IsSystemGenerated bool `bson:"is_system_generated,omitempty" json:"is_system_generated,omitempty"`
}

// HasUnresolvedFlag reports whether the entry is flagged and its
// investigation has not reached the resolved state.
func (c *CostEntry) HasUnresolvedFlag() bool {
	return c.IsFlagged && c.InvestigationStatus != InvestigationResolved
}

// Trip owns an ordered list of cost entries and the aggregate status gated by
// the flag workflow.
type Trip struct {
	ID              string      `bson:"_id,omitempty" json:"id"`
	FleetNumber     string      `bson:"fleet_number" json:"fleet_number"`
	DriverName      string      `bson:"driver_name" json:"driver_name"`
	ClientName      string      `bson:"client_name" json:"client_name"`
	Route           string      `bson:"route" json:"route"`
	StartDate       time.Time   `bson:"start_date" json:"start_date"`
	EndDate         time.Time   `bson:"end_date" json:"end_date"`
	BaseRevenue     float64     `bson:"base_revenue" json:"base_revenue"`
	RevenueCurrency string      `bson:"revenue_currency" json:"revenue_currency"`
	DistanceKm      float64     `bson:"distance_km,omitempty" json:"distance_km,omitempty"`
	Status          TripStatus  `bson:"status" json:"status"`
	Costs           []CostEntry `bson:"costs" json:"costs"`

	CompletedAt         *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	CompletedBy         string     `bson:"completed_by,omitempty" json:"completed_by,omitempty"`
	AutoCompletedAt     *time.Time `bson:"auto_completed_at,omitempty" json:"auto_completed_at,omitempty"`
	AutoCompletedReason string     `bson:"auto_completed_reason,omitempty" json:"auto_completed_reason,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// UnresolvedFlagCount counts flagged cost entries still awaiting resolution.
func (t *Trip) UnresolvedFlagCount() int {
	n := 0
	for i := range t.Costs {
		if t.Costs[i].HasUnresolvedFlag() {
			n++
		}
	}
	return n
}

// CanComplete reports whether the trip may transition to completed.
func (t *Trip) CanComplete() bool {
	return t.UnresolvedFlagCount() == 0
}

// CostByReference returns the cost entry carrying the given reference number,
// or nil.
func (t *Trip) CostByReference(ref string) *CostEntry {
	for i := range t.Costs {
		if t.Costs[i].ReferenceNumber == ref {
			return &t.Costs[i]
		}
	}
	return nil
}

// CostByID returns the cost entry with the given id, or nil.
func (t *Trip) CostByID(id string) *CostEntry {
	for i := range t.Costs {
		if t.Costs[i].ID == id {
			return &t.Costs[i]
		}
	}
	return nil
}

// RemoveCostsByReference drops every cost entry matching one of the given
// reference numbers and reports whether anything was removed.
func (t *Trip) RemoveCostsByReference(refs ...string) bool {
	match := func(ref string) bool {
		for _, r := range refs {
			if ref == r {
				return true
			}
		}
		return false
	}
	kept := t.Costs[:0]
	removed := false
	for _, c := range t.Costs {
		if match(c.ReferenceNumber) {
			removed = true
			continue
		}
		kept = append(kept, c)
	}
	t.Costs = kept
	return removed
}
