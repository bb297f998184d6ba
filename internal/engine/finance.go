package engine

import "github.com/ukydev/fleet-costing/internal/models"

// FinancialSummary rolls a trip's allocated costs up against its revenue.
// The baseline total excludes flagged and system-generated entries; flagged
// spend is reported on its own line so reviewers can see what is in dispute.
type FinancialSummary struct {
	TripID        string  `json:"trip_id"`
	Currency      string  `json:"currency"`
	TotalRevenue  float64 `json:"total_revenue"`
	TotalCost     float64 `json:"total_cost"`
	FlaggedCost   float64 `json:"flagged_cost"`
	GrossMargin   float64 `json:"gross_margin"`
	MarginPercent float64 `json:"margin_percent"`
	RevenuePerKm  float64 `json:"revenue_per_km"`
	CostPerKm     float64 `json:"cost_per_km"`
	CostEntries   int     `json:"cost_entries"`
}

// Summarize computes the financial summary of a trip. Pure read-side
// computation; the trip is not modified.
func Summarize(trip *models.Trip) FinancialSummary {
	s := FinancialSummary{
		TripID:       trip.ID,
		Currency:     trip.RevenueCurrency,
		TotalRevenue: trip.BaseRevenue,
		CostEntries:  len(trip.Costs),
	}

	for i := range trip.Costs {
		c := &trip.Costs[i]
		switch {
		case c.IsFlagged:
			s.FlaggedCost += c.Amount
		case c.IsSystemGenerated:
			// Excluded from the baseline alongside flagged spend.
		default:
			s.TotalCost += c.Amount
		}
	}

	s.GrossMargin = s.TotalRevenue - s.TotalCost
	if s.TotalRevenue > 0 {
		s.MarginPercent = s.GrossMargin / s.TotalRevenue * 100
	}
	if trip.DistanceKm > 0 {
		s.RevenuePerKm = s.TotalRevenue / trip.DistanceKm
		s.CostPerKm = s.TotalCost / trip.DistanceKm
	}
	return s
}
