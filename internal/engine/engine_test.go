package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ukydev/fleet-costing/internal/audit"
	"github.com/ukydev/fleet-costing/internal/db"
	"github.com/ukydev/fleet-costing/internal/models"
)

// testEnv wires every engine service over in-memory stores.
type testEnv struct {
	records *db.MemoryDieselStore
	trips   *db.MemoryTripStore
	norms   *db.MemoryNormStore
	assets  *db.MemoryFleetAssetStore
	auditDB *db.MemoryAuditStore

	ledger   *AllocationLedger
	service  *RecordService
	registry *NormRegistry
	flags    *FlagService
	probe    *ProbeVerifier
	debrief  *DebriefWorkflow
}

func newTestEnv() *testEnv {
	e := &testEnv{
		records: db.NewMemoryDieselStore(),
		trips:   db.NewMemoryTripStore(),
		norms:   db.NewMemoryNormStore(),
		assets:  db.NewMemoryFleetAssetStore(),
		auditDB: db.NewMemoryAuditStore(),
	}
	trail := audit.NewTrail(e.auditDB, nil, "test/audit")
	e.ledger = NewAllocationLedger(e.records, e.trips, trail)
	e.service = NewRecordService(e.records, e.assets, e.ledger, trail)
	e.registry = NewNormRegistry(e.norms, trail)
	e.flags = NewFlagService(e.trips, trail)
	e.probe = NewProbeVerifier(e.records, e.flags, trail)
	e.debrief = NewDebriefWorkflow(e.records, e.assets, e.registry, e.probe, trail)
	return e
}

func (e *testEnv) addTowingRecord(volume, odo, prevOdo, cost float64) *models.ConsumptionRecord {
	rec := models.ConsumptionRecord{
		ID:                      uuid.NewString(),
		FleetNumber:             "H-401",
		AssetClass:              models.AssetClassTowing,
		Date:                    time.Now().UTC(),
		DriverName:              "T. Nkosi",
		FuelStation:             "Engen Harrismith",
		VolumeFilled:            volume,
		OdometerReading:         odo,
		PreviousOdometerReading: &prevOdo,
		TotalCost:               cost,
		Currency:                "ZAR",
	}
	if err := ApplyMetrics(&rec); err != nil {
		panic(err)
	}
	if err := e.records.InsertRecord(context.Background(), rec); err != nil {
		panic(err)
	}
	return &rec
}

func (e *testEnv) addReeferRecord(volume, hours, cost float64) *models.ConsumptionRecord {
	rec := models.ConsumptionRecord{
		ID:            uuid.NewString(),
		FleetNumber:   "R-207",
		AssetClass:    models.AssetClassReefer,
		Date:          time.Now().UTC(),
		DriverName:    "T. Nkosi",
		FuelStation:   "Engen Harrismith",
		VolumeFilled:  volume,
		HoursOperated: hours,
		TotalCost:     cost,
		Currency:      "ZAR",
	}
	if err := ApplyMetrics(&rec); err != nil {
		panic(err)
	}
	if err := e.records.InsertRecord(context.Background(), rec); err != nil {
		panic(err)
	}
	return &rec
}

func (e *testEnv) addTrip(id string) *models.Trip {
	trip := models.Trip{
		ID:              id,
		FleetNumber:     "H-401",
		DriverName:      "T. Nkosi",
		ClientName:      "Fresh Produce Co",
		Route:           "JHB - DBN",
		BaseRevenue:     85000,
		RevenueCurrency: "ZAR",
		DistanceKm:      570,
		Status:          models.TripStatusActive,
		CreatedAt:       time.Now().UTC(),
	}
	if err := e.trips.InsertTrip(context.Background(), trip); err != nil {
		panic(err)
	}
	return &trip
}

func (e *testEnv) getTrip(id string) *models.Trip {
	trip, err := e.trips.FindTripByID(context.Background(), id)
	if err != nil {
		panic(err)
	}
	return trip
}

func (e *testEnv) getRecord(id string) *models.ConsumptionRecord {
	rec, err := e.records.FindRecordByID(context.Background(), id)
	if err != nil {
		panic(err)
	}
	return rec
}
