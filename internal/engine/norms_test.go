package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/fleet-costing/internal/models"
)

func towingRecordWithKpl(kpl float64) *models.ConsumptionRecord {
	return &models.ConsumptionRecord{
		FleetNumber: "H-401",
		AssetClass:  models.AssetClassTowing,
		KmPerLitre:  &kpl,
	}
}

func TestAcceptableRange(t *testing.T) {
	norm := models.EfficiencyNorm{ExpectedValue: 3.2, TolerancePercent: 10}
	min, max := norm.AcceptableRange()
	assert.InDelta(t, 2.88, min, 1e-9)
	assert.InDelta(t, 3.52, max, 1e-9)
}

func TestClassify_WithinTolerance(t *testing.T) {
	norm := &models.EfficiencyNorm{ExpectedValue: 3.2, TolerancePercent: 10}

	for _, kpl := range []float64{2.88, 3.2, 3.52} {
		cls := Classify(towingRecordWithKpl(kpl), norm)
		assert.True(t, cls.WithinTolerance, "kpl %v", kpl)
		assert.Equal(t, DirectionWithin, cls.Directionality, "kpl %v", kpl)
	}
}

func TestClassify_Below(t *testing.T) {
	norm := &models.EfficiencyNorm{ExpectedValue: 4.0, TolerancePercent: 10}

	cls := Classify(towingRecordWithKpl(3.5), norm)
	assert.False(t, cls.WithinTolerance)
	assert.Equal(t, DirectionBelow, cls.Directionality)
}

func TestClassify_Above(t *testing.T) {
	norm := &models.EfficiencyNorm{ExpectedValue: 3.2, TolerancePercent: 10}

	cls := Classify(towingRecordWithKpl(3.6), norm)
	assert.False(t, cls.WithinTolerance)
	assert.Equal(t, DirectionAbove, cls.Directionality)
}

func TestClassify_NoNorm(t *testing.T) {
	cls := Classify(towingRecordWithKpl(3.2), nil)
	assert.True(t, cls.WithinTolerance)
	assert.Equal(t, DirectionUnknown, cls.Directionality)
}

func TestClassify_NoMetric(t *testing.T) {
	// Towing record without a previous odometer has no km/l; absence of data
	// must not land it on the debrief queue.
	rec := &models.ConsumptionRecord{FleetNumber: "H-401", AssetClass: models.AssetClassTowing}
	norm := &models.EfficiencyNorm{ExpectedValue: 3.2, TolerancePercent: 10}

	cls := Classify(rec, norm)
	assert.True(t, cls.WithinTolerance)
	assert.Equal(t, DirectionUnknown, cls.Directionality)
}

func TestClassify_ReeferUsesLitresPerHour(t *testing.T) {
	lph := 4.5
	rec := &models.ConsumptionRecord{
		FleetNumber:   "R-207",
		AssetClass:    models.AssetClassReefer,
		LitresPerHour: &lph,
	}
	norm := &models.EfficiencyNorm{ExpectedValue: 3.0, TolerancePercent: 10}

	cls := Classify(rec, norm)
	assert.False(t, cls.WithinTolerance)
	assert.Equal(t, DirectionAbove, cls.Directionality)
}

func TestNormRegistry_Upsert(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()

	norm := models.EfficiencyNorm{
		FleetNumber:      "H-401",
		AssetClass:       models.AssetClassTowing,
		ExpectedValue:    3.2,
		TolerancePercent: 10,
	}
	require.NoError(t, e.registry.Upsert(ctx, norm, "manager"))

	stored, err := e.norms.FindNormByFleet(ctx, "H-401")
	require.NoError(t, err)
	assert.Equal(t, 3.2, stored.ExpectedValue)
	assert.Equal(t, "manager", stored.UpdatedBy)
	assert.False(t, stored.UpdatedAt.IsZero())
}

func TestNormRegistry_Upsert_Validation(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	var verr *ValidationError

	err := e.registry.Upsert(ctx, models.EfficiencyNorm{
		FleetNumber: "H-401", AssetClass: models.AssetClassTowing,
		ExpectedValue: 3.2, TolerancePercent: 51,
	}, "manager")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "tolerance_percent", verr.Field)

	err = e.registry.Upsert(ctx, models.EfficiencyNorm{
		FleetNumber: "H-401", AssetClass: models.AssetClassTowing,
		ExpectedValue: 0, TolerancePercent: 10,
	}, "manager")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "expected_value", verr.Field)

	err = e.registry.Upsert(ctx, models.EfficiencyNorm{
		FleetNumber: "H-401", AssetClass: "trailer",
		ExpectedValue: 3.2, TolerancePercent: 10,
	}, "manager")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "asset_class", verr.Field)
}

func TestNormRegistry_Delete(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()

	require.NoError(t, e.registry.Upsert(ctx, models.EfficiencyNorm{
		FleetNumber: "H-401", AssetClass: models.AssetClassTowing,
		ExpectedValue: 3.2, TolerancePercent: 10,
	}, "manager"))

	require.NoError(t, e.registry.Delete(ctx, "H-401", "manager"))

	var nferr *NotFoundError
	err := e.registry.Delete(ctx, "H-401", "manager")
	require.ErrorAs(t, err, &nferr)
	assert.Equal(t, "norm", nferr.Entity)
}

func TestNormRegistry_ClassifyRecord_NoNorm(t *testing.T) {
	e := newTestEnv()

	cls, err := e.registry.ClassifyRecord(context.Background(), towingRecordWithKpl(3.2))
	require.NoError(t, err)
	assert.Equal(t, DirectionUnknown, cls.Directionality)
	assert.True(t, cls.WithinTolerance)
}
