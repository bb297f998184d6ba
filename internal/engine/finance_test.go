package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ukydev/fleet-costing/internal/models"
)

func TestSummarize(t *testing.T) {
	trip := &models.Trip{
		ID:              "trip-1",
		BaseRevenue:     85000,
		RevenueCurrency: "ZAR",
		DistanceKm:      570,
		Costs: []models.CostEntry{
			{Amount: 8325, Category: "Diesel"},
			{Amount: 3330, Category: "Diesel"},
			{Amount: 1200, Category: "Tolls"},
		},
	}

	s := Summarize(trip)
	assert.Equal(t, "trip-1", s.TripID)
	assert.Equal(t, "ZAR", s.Currency)
	assert.Equal(t, 85000.0, s.TotalRevenue)
	assert.Equal(t, 12855.0, s.TotalCost)
	assert.Equal(t, 0.0, s.FlaggedCost)
	assert.Equal(t, 72145.0, s.GrossMargin)
	assert.InDelta(t, 84.88, s.MarginPercent, 0.01)
	assert.InDelta(t, 149.12, s.RevenuePerKm, 0.01)
	assert.InDelta(t, 22.55, s.CostPerKm, 0.01)
	assert.Equal(t, 3, s.CostEntries)
}

func TestSummarize_FlaggedCostSeparated(t *testing.T) {
	trip := &models.Trip{
		ID:          "trip-1",
		BaseRevenue: 50000,
		Costs: []models.CostEntry{
			{Amount: 8000},
			{Amount: 3000, IsFlagged: true, InvestigationStatus: models.InvestigationPending},
		},
	}

	s := Summarize(trip)
	assert.Equal(t, 8000.0, s.TotalCost)
	assert.Equal(t, 3000.0, s.FlaggedCost)
	assert.Equal(t, 42000.0, s.GrossMargin)
}

func TestSummarize_SystemGeneratedExcluded(t *testing.T) {
	trip := &models.Trip{
		ID:          "trip-1",
		BaseRevenue: 50000,
		Costs: []models.CostEntry{
			{Amount: 8000},
			{Amount: 500, IsSystemGenerated: true},
		},
	}

	s := Summarize(trip)
	assert.Equal(t, 8000.0, s.TotalCost)
	assert.Equal(t, 2, s.CostEntries)
}

func TestSummarize_ZeroDistanceAndRevenue(t *testing.T) {
	trip := &models.Trip{ID: "trip-1", Costs: []models.CostEntry{{Amount: 100}}}

	s := Summarize(trip)
	assert.Equal(t, 0.0, s.MarginPercent)
	assert.Equal(t, 0.0, s.RevenuePerKm)
	assert.Equal(t, 0.0, s.CostPerKm)
	assert.Equal(t, -100.0, s.GrossMargin)
}
