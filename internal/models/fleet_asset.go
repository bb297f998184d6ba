package models

import "time"

// FleetAsset is the registry entry for one vehicle or trailer in the fleet.
// Asset class and probe capability are resolved here once, at registration,
// instead of being pattern-matched off fleet numbers.
type FleetAsset struct {
	FleetNumber string     `bson:"_id" json:"fleet_number"`
	AssetClass  AssetClass `bson:"asset_class" json:"asset_class"`
	Make        string     `bson:"make,omitempty" json:"make,omitempty"`
	Model       string     `bson:"model,omitempty" json:"model,omitempty"`
	Year        int        `bson:"year,omitempty" json:"year,omitempty"`
	HasProbe    bool       `bson:"has_probe" json:"has_probe"`
	Status      string     `bson:"status" json:"status"` // "active" or "inactive"
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
}
