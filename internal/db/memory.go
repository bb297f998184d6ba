package db

import (
	"context"
	"sync"

	"github.com/ukydev/fleet-costing/internal/models"
)

// In-memory store implementations. Same contracts as the mongo-backed ones;
// used by unit tests and local runs without a database.

// MemoryDieselStore is an in-memory DieselStore.
type MemoryDieselStore struct {
	mu      sync.RWMutex
	records map[string]models.ConsumptionRecord
}

// NewMemoryDieselStore creates an empty in-memory diesel store.
func NewMemoryDieselStore() *MemoryDieselStore {
	return &MemoryDieselStore{records: make(map[string]models.ConsumptionRecord)}
}

func (s *MemoryDieselStore) InsertRecord(_ context.Context, rec models.ConsumptionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	return nil
}

func (s *MemoryDieselStore) FindRecordByID(_ context.Context, id string) (*models.ConsumptionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *MemoryDieselStore) FindRecords(_ context.Context) ([]models.ConsumptionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ConsumptionRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out, nil
}

func (s *MemoryDieselStore) FindRecordsByFleet(_ context.Context, fleetNumber string) ([]models.ConsumptionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ConsumptionRecord
	for _, rec := range s.records {
		if rec.FleetNumber == fleetNumber {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *MemoryDieselStore) FindLinkedReefers(_ context.Context, towingRecordID string) ([]models.ConsumptionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ConsumptionRecord
	for _, rec := range s.records {
		if rec.Allocation.Kind == models.AllocationViaTowingUnit && rec.Allocation.TowingRecordID == towingRecordID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *MemoryDieselStore) UpdateRecord(_ context.Context, id string, rec models.ConsumptionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return ErrNotFound
	}
	s.records[id] = rec
	return nil
}

func (s *MemoryDieselStore) DeleteRecord(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return ErrNotFound
	}
	delete(s.records, id)
	return nil
}

// MemoryTripStore is an in-memory TripStore.
type MemoryTripStore struct {
	mu    sync.RWMutex
	trips map[string]models.Trip
}

// NewMemoryTripStore creates an empty in-memory trip store.
func NewMemoryTripStore() *MemoryTripStore {
	return &MemoryTripStore{trips: make(map[string]models.Trip)}
}

func copyTrip(t models.Trip) models.Trip {
	costs := make([]models.CostEntry, len(t.Costs))
	copy(costs, t.Costs)
	t.Costs = costs
	return t
}

func (s *MemoryTripStore) InsertTrip(_ context.Context, trip models.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trips[trip.ID] = copyTrip(trip)
	return nil
}

func (s *MemoryTripStore) FindTripByID(_ context.Context, id string) (*models.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	trip, ok := s.trips[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := copyTrip(trip)
	return &out, nil
}

func (s *MemoryTripStore) FindTrips(_ context.Context) ([]models.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Trip, 0, len(s.trips))
	for _, trip := range s.trips {
		out = append(out, copyTrip(trip))
	}
	return out, nil
}

func (s *MemoryTripStore) FindTripsByCostReference(_ context.Context, refs ...string) ([]models.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	match := make(map[string]bool, len(refs))
	for _, ref := range refs {
		match[ref] = true
	}
	var out []models.Trip
	for _, trip := range s.trips {
		for _, c := range trip.Costs {
			if match[c.ReferenceNumber] {
				out = append(out, copyTrip(trip))
				break
			}
		}
	}
	return out, nil
}

func (s *MemoryTripStore) FindTripByCostEntryID(_ context.Context, costEntryID string) (*models.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, trip := range s.trips {
		for _, c := range trip.Costs {
			if c.ID == costEntryID {
				out := copyTrip(trip)
				return &out, nil
			}
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryTripStore) UpdateTrip(_ context.Context, id string, trip models.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trips[id]; !ok {
		return ErrNotFound
	}
	s.trips[id] = copyTrip(trip)
	return nil
}

// MemoryNormStore is an in-memory NormStore.
type MemoryNormStore struct {
	mu    sync.RWMutex
	norms map[string]models.EfficiencyNorm
}

// NewMemoryNormStore creates an empty in-memory norm store.
func NewMemoryNormStore() *MemoryNormStore {
	return &MemoryNormStore{norms: make(map[string]models.EfficiencyNorm)}
}

func (s *MemoryNormStore) UpsertNorm(_ context.Context, norm models.EfficiencyNorm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.norms[norm.FleetNumber] = norm
	return nil
}

func (s *MemoryNormStore) FindNormByFleet(_ context.Context, fleetNumber string) (*models.EfficiencyNorm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	norm, ok := s.norms[fleetNumber]
	if !ok {
		return nil, ErrNotFound
	}
	return &norm, nil
}

func (s *MemoryNormStore) FindNorms(_ context.Context) ([]models.EfficiencyNorm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.EfficiencyNorm, 0, len(s.norms))
	for _, norm := range s.norms {
		out = append(out, norm)
	}
	return out, nil
}

func (s *MemoryNormStore) DeleteNorm(_ context.Context, fleetNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.norms[fleetNumber]; !ok {
		return ErrNotFound
	}
	delete(s.norms, fleetNumber)
	return nil
}

// MemoryFleetAssetStore is an in-memory FleetAssetStore.
type MemoryFleetAssetStore struct {
	mu     sync.RWMutex
	assets map[string]models.FleetAsset
}

// NewMemoryFleetAssetStore creates an empty in-memory fleet asset store.
func NewMemoryFleetAssetStore() *MemoryFleetAssetStore {
	return &MemoryFleetAssetStore{assets: make(map[string]models.FleetAsset)}
}

func (s *MemoryFleetAssetStore) UpsertAsset(_ context.Context, asset models.FleetAsset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[asset.FleetNumber] = asset
	return nil
}

func (s *MemoryFleetAssetStore) FindAssetByFleet(_ context.Context, fleetNumber string) (*models.FleetAsset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	asset, ok := s.assets[fleetNumber]
	if !ok {
		return nil, ErrNotFound
	}
	return &asset, nil
}

func (s *MemoryFleetAssetStore) FindAssets(_ context.Context) ([]models.FleetAsset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.FleetAsset, 0, len(s.assets))
	for _, asset := range s.assets {
		out = append(out, asset)
	}
	return out, nil
}

// MemoryAuditStore is an in-memory AuditStore.
type MemoryAuditStore struct {
	mu      sync.RWMutex
	entries []models.AuditEntry
}

// NewMemoryAuditStore creates an empty in-memory audit store.
func NewMemoryAuditStore() *MemoryAuditStore {
	return &MemoryAuditStore{}
}

func (s *MemoryAuditStore) AppendAudit(_ context.Context, entry models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *MemoryAuditStore) FindRecentAudit(_ context.Context, limit int64) ([]models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := int64(len(s.entries))
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.AuditEntry, 0, n)
	for i := len(s.entries) - 1; i >= 0 && int64(len(out)) < n; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}
