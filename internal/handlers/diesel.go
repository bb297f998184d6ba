package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ukydev/fleet-costing/internal/engine"
)

// DieselHandler exposes the consumption record lifecycle: ingestion, trip
// allocation, debrief and probe verification.
type DieselHandler struct {
	records *engine.RecordService
	ledger  *engine.AllocationLedger
	debrief *engine.DebriefWorkflow
	probe   *engine.ProbeVerifier
}

// NewDieselHandler creates a diesel handler.
func NewDieselHandler(records *engine.RecordService, ledger *engine.AllocationLedger, debrief *engine.DebriefWorkflow, probe *engine.ProbeVerifier) *DieselHandler {
	return &DieselHandler{records: records, ledger: ledger, debrief: debrief, probe: probe}
}

// Create handles POST /api/diesel.
func (h *DieselHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in engine.RecordInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	id, err := h.records.Create(r.Context(), in, actorFromRequest(r))
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// List handles GET /api/diesel.
func (h *DieselHandler) List(w http.ResponseWriter, r *http.Request) {
	recs, err := h.records.List(r.Context())
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, recs)
}

// Get handles GET /api/diesel/{id}.
func (h *DieselHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.records.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// Update handles PUT /api/diesel/{id}.
func (h *DieselHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in engine.RecordInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if err := h.records.Update(r.Context(), chi.URLParam(r, "id"), in, actorFromRequest(r)); err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "record updated"})
}

// Delete handles DELETE /api/diesel/{id}.
func (h *DieselHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.records.Delete(r.Context(), chi.URLParam(r, "id"), actorFromRequest(r)); err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "record deleted"})
}

// Allocate handles POST /api/diesel/{id}/allocate. Towing unit records take a
// trip_id; reefer records take a towing_record_id.
func (h *DieselHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TripID         string `json:"trip_id"`
		TowingRecordID string `json:"towing_record_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	id := chi.URLParam(r, "id")
	actor := actorFromRequest(r)
	var err error
	switch {
	case req.TripID != "":
		err = h.ledger.Allocate(r.Context(), id, req.TripID, actor)
	case req.TowingRecordID != "":
		err = h.ledger.LinkToTowingUnit(r.Context(), id, req.TowingRecordID, actor)
	default:
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "trip_id or towing_record_id is required"})
		return
	}
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "record allocated"})
}

// Deallocate handles DELETE /api/diesel/{id}/allocation.
func (h *DieselHandler) Deallocate(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.Deallocate(r.Context(), chi.URLParam(r, "id"), actorFromRequest(r)); err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "record deallocated"})
}

// PendingDebrief handles GET /api/diesel/pending-debrief.
func (h *DieselHandler) PendingDebrief(w http.ResponseWriter, r *http.Request) {
	pending, err := h.debrief.Pending(r.Context())
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pending)
}

// Debrief handles POST /api/diesel/{id}/debrief.
func (h *DieselHandler) Debrief(w http.ResponseWriter, r *http.Request) {
	var in engine.DebriefInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if in.SignedBy == "" {
		in.SignedBy = actorFromRequest(r)
	}

	if err := h.debrief.Debrief(r.Context(), chi.URLParam(r, "id"), in); err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "record debriefed"})
}

// VerifyProbe handles POST /api/diesel/{id}/probe.
func (h *DieselHandler) VerifyProbe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProbeReading float64 `json:"probe_reading"`
		Witness      string  `json:"witness"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Witness == "" {
		req.Witness = actorFromRequest(r)
	}

	res, err := h.probe.Verify(r.Context(), chi.URLParam(r, "id"), req.ProbeReading, req.Witness)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Reconcile handles POST /api/diesel/reconcile.
func (h *DieselHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	repairs, err := h.ledger.Reconcile(r.Context(), actorFromRequest(r))
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"repairs": repairs})
}
