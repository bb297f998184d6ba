package models

import "time"

// EfficiencyNorm is the expected efficiency and tolerance band configured per
// fleet asset. For towing units ExpectedValue is km per litre; for reefer
// units it is litres per hour.
type EfficiencyNorm struct {
	FleetNumber      string     `bson:"_id" json:"fleet_number"`
	AssetClass       AssetClass `bson:"asset_class" json:"asset_class"`
	ExpectedValue    float64    `bson:"expected_value" json:"expected_value"`
	TolerancePercent float64    `bson:"tolerance_percent" json:"tolerance_percent"`
	UpdatedBy        string     `bson:"updated_by" json:"updated_by"`
	UpdatedAt        time.Time  `bson:"updated_at" json:"updated_at"`
}

// AcceptableRange returns the inclusive band expectedValue x (1 +/- tol/100).
func (n *EfficiencyNorm) AcceptableRange() (min, max float64) {
	band := n.ExpectedValue * n.TolerancePercent / 100
	return n.ExpectedValue - band, n.ExpectedValue + band
}
