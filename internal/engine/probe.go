package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ukydev/fleet-costing/internal/audit"
	"github.com/ukydev/fleet-costing/internal/db"
	"github.com/ukydev/fleet-costing/internal/models"
)

// ProbeVerdict classifies the gap between the recorded fill volume and the
// physical probe reading.
type ProbeVerdict string

const (
	// VerdictVerified: within 2% of the recorded volume.
	VerdictVerified ProbeVerdict = "verified"
	// VerdictAcceptable: within 5%; counts as verified for measurement
	// tolerance reasons.
	VerdictAcceptable ProbeVerdict = "acceptable"
	// VerdictDiscrepancy: more than 5% out; the record's cost entry gets
	// flagged for investigation.
	VerdictDiscrepancy ProbeVerdict = "discrepancy"
)

// VerificationResult is the outcome of one probe verification.
type VerificationResult struct {
	Discrepancy        float64      `json:"discrepancy"`
	DiscrepancyPercent float64      `json:"discrepancy_percent"`
	Verdict            ProbeVerdict `json:"verdict"`
	Verified           bool         `json:"verified"`
}

// ProbeVerifier cross-checks recorded fill volumes against physical probe
// readings and escalates discrepancies to the flag workflow.
type ProbeVerifier struct {
	records db.DieselStore
	flags   *FlagService
	audit   audit.Recorder
}

// NewProbeVerifier creates a verifier. flags escalation fires only on a
// discrepancy verdict for allocated records.
func NewProbeVerifier(records db.DieselStore, flags *FlagService, trail audit.Recorder) *ProbeVerifier {
	return &ProbeVerifier{records: records, flags: flags, audit: trail}
}

// judgeProbe computes discrepancy and verdict from a volume and a reading.
func judgeProbe(volumeFilled, probeReading float64) VerificationResult {
	discrepancy := volumeFilled - probeReading
	pct := discrepancy / volumeFilled * 100
	res := VerificationResult{Discrepancy: discrepancy, DiscrepancyPercent: pct}
	switch {
	case math.Abs(pct) <= 2:
		res.Verdict = VerdictVerified
		res.Verified = true
	case math.Abs(pct) <= 5:
		res.Verdict = VerdictAcceptable
		res.Verified = true
	default:
		res.Verdict = VerdictDiscrepancy
	}
	return res
}

// Verify records a probe reading against a consumption record, persists the
// verification state, and flags the mirrored cost entry when the verdict is a
// discrepancy.
func (v *ProbeVerifier) Verify(ctx context.Context, recordID string, probeReading float64, witness string) (VerificationResult, error) {
	if witness == "" {
		return VerificationResult{}, validationErr("witness", "must not be empty")
	}
	if probeReading < 0 {
		return VerificationResult{}, validationErr("probe_reading", "must not be negative")
	}

	rec, err := v.records.FindRecordByID(ctx, recordID)
	if err != nil {
		return VerificationResult{}, notFoundErr("consumption record", recordID)
	}
	if rec.VolumeFilled <= 0 {
		return VerificationResult{}, validationErr("volume_filled", "must be greater than zero")
	}

	res := judgeProbe(rec.VolumeFilled, probeReading)

	now := time.Now().UTC()
	rec.ProbeReading = &probeReading
	rec.ProbeDiscrepancy = &res.Discrepancy
	verified := res.Verified
	rec.ProbeVerified = &verified
	rec.ProbeVerifiedAt = &now
	rec.ProbeWitness = witness
	rec.UpdatedAt = now
	if err := v.records.UpdateRecord(ctx, recordID, *rec); err != nil {
		return VerificationResult{}, fmt.Errorf("update record: %w", err)
	}

	v.audit.Record(ctx, models.AuditEntry{
		Action:     "verify",
		EntityType: "diesel",
		EntityID:   recordID,
		Actor:      witness,
		Details: fmt.Sprintf("Probe verification for %s: %.1fL filled vs %.1fL probe (%s)",
			rec.FleetNumber, rec.VolumeFilled, probeReading, res.Verdict),
		Changes: map[string]interface{}{
			"discrepancy":         res.Discrepancy,
			"discrepancy_percent": res.DiscrepancyPercent,
			"verdict":             string(res.Verdict),
		},
	})

	if res.Verdict == VerdictDiscrepancy && v.flags != nil {
		if err := v.flagCostEntry(ctx, rec, res, witness); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (v *ProbeVerifier) flagCostEntry(ctx context.Context, rec *models.ConsumptionRecord, res VerificationResult, actor string) error {
	trips, err := v.flags.trips.FindTripsByCostReference(ctx, models.CostReferences(rec.ID)...)
	if err != nil {
		return fmt.Errorf("find cost entry for %s: %w", rec.ID, err)
	}
	if len(trips) == 0 {
		// Unallocated record: nothing to flag yet.
		return nil
	}
	entry := trips[0].CostByReference(rec.CostReference())
	if entry == nil {
		return nil
	}
	reason := fmt.Sprintf("Probe discrepancy of %.1f%% on %s", res.DiscrepancyPercent, rec.FleetNumber)
	return v.flags.Flag(ctx, entry.ID, reason, actor)
}
