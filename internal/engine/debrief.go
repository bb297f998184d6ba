package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ukydev/fleet-costing/internal/audit"
	"github.com/ukydev/fleet-costing/internal/db"
	"github.com/ukydev/fleet-costing/internal/models"
)

// DebriefInput captures the sign-off of an out-of-tolerance record.
type DebriefInput struct {
	Notes                 string `json:"notes"`
	RootCause             string `json:"root_cause"`
	ActionTaken           string `json:"action_taken,omitempty"`
	SignedBy              string `json:"signed_by"`
	AcknowledgedBySubject bool   `json:"acknowledged_by_subject"`
	// Optional probe reading taken during the debrief; only used when the
	// fleet asset has probe capability.
	ProbeReading *float64 `json:"probe_reading,omitempty"`
	Witness      string   `json:"witness,omitempty"`
}

// PendingDebrief is a record awaiting debrief together with its live
// classification.
type PendingDebrief struct {
	Record         models.ConsumptionRecord `json:"record"`
	Classification Classification           `json:"classification"`
}

// DebriefWorkflow runs the record-level debrief state machine:
// Pending -> Debriefed, terminal. The pending list is a derived view over
// current norms; the verdict stored at debrief time is a snapshot and is
// never recomputed when norms change later.
type DebriefWorkflow struct {
	records  db.DieselStore
	assets   db.FleetAssetStore
	registry *NormRegistry
	probe    *ProbeVerifier
	audit    audit.Recorder
}

// NewDebriefWorkflow creates a debrief workflow.
func NewDebriefWorkflow(records db.DieselStore, assets db.FleetAssetStore, registry *NormRegistry, probe *ProbeVerifier, trail audit.Recorder) *DebriefWorkflow {
	return &DebriefWorkflow{records: records, assets: assets, registry: registry, probe: probe, audit: trail}
}

// Pending lists records that are out of tolerance under the current norms and
// have not been debriefed. Recomputed on every call, so a norm change shows
// up immediately for records still pending.
func (w *DebriefWorkflow) Pending(ctx context.Context) ([]PendingDebrief, error) {
	recs, err := w.records.FindRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	var pending []PendingDebrief
	for i := range recs {
		if recs[i].DebriefedAt != nil {
			continue
		}
		cls, err := w.registry.ClassifyRecord(ctx, &recs[i])
		if err != nil {
			return nil, err
		}
		if cls.WithinTolerance {
			continue
		}
		pending = append(pending, PendingDebrief{Record: recs[i], Classification: cls})
	}
	return pending, nil
}

// Debrief signs off a record. Notes and root cause are mandatory; the
// classification in force right now is snapshotted onto the record. When the
// asset has a probe and a reading is supplied, probe verification runs as
// part of the same transition.
func (w *DebriefWorkflow) Debrief(ctx context.Context, recordID string, in DebriefInput) error {
	if in.Notes == "" {
		return validationErr("notes", "must not be empty")
	}
	if in.RootCause == "" {
		return validationErr("root_cause", "must not be empty")
	}
	if in.SignedBy == "" {
		return validationErr("signed_by", "must not be empty")
	}

	rec, err := w.records.FindRecordByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return notFoundErr("consumption record", recordID)
		}
		return fmt.Errorf("find record %s: %w", recordID, err)
	}
	if rec.DebriefedAt != nil {
		return &ConflictError{Entity: "consumption record", ID: recordID, Reason: "already debriefed"}
	}

	cls, err := w.registry.ClassifyRecord(ctx, rec)
	if err != nil {
		return err
	}

	var probeRes *VerificationResult
	if in.ProbeReading != nil {
		hasProbe, err := w.assetHasProbe(ctx, rec.FleetNumber)
		if err != nil {
			return err
		}
		if hasProbe {
			witness := in.Witness
			if witness == "" {
				witness = in.SignedBy
			}
			res, err := w.probe.Verify(ctx, recordID, *in.ProbeReading, witness)
			if err != nil {
				return err
			}
			probeRes = &res
			// Verify persisted probe fields; reload before the debrief write.
			rec, err = w.records.FindRecordByID(ctx, recordID)
			if err != nil {
				return fmt.Errorf("reload record %s: %w", recordID, err)
			}
		}
	}

	now := time.Now().UTC()
	rec.DebriefedAt = &now
	rec.DebriefedBy = in.SignedBy
	rec.DebriefNotes = in.Notes
	rec.RootCause = in.RootCause
	rec.ActionTaken = in.ActionTaken
	rec.AcknowledgedBySubject = in.AcknowledgedBySubject
	rec.PerformanceAtDebrief = string(cls.Directionality)
	rec.UpdatedAt = now
	if err := w.records.UpdateRecord(ctx, recordID, *rec); err != nil {
		return fmt.Errorf("update record: %w", err)
	}

	changes := map[string]interface{}{
		"root_cause":     in.RootCause,
		"classification": string(cls.Directionality),
	}
	if probeRes != nil {
		changes["probe_verdict"] = string(probeRes.Verdict)
	}
	w.audit.Record(ctx, models.AuditEntry{
		Action:     "debrief",
		EntityType: "diesel",
		EntityID:   recordID,
		Actor:      in.SignedBy,
		Details:    fmt.Sprintf("Diesel debrief completed for %s by %s", rec.FleetNumber, in.SignedBy),
		Changes:    changes,
	})
	return nil
}

func (w *DebriefWorkflow) assetHasProbe(ctx context.Context, fleetNumber string) (bool, error) {
	asset, err := w.assets.FindAssetByFleet(ctx, fleetNumber)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("find fleet asset %s: %w", fleetNumber, err)
	}
	return asset.HasProbe, nil
}
