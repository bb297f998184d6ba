package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ukydev/fleet-costing/internal/engine"
)

// FlagHandler exposes the flag and investigation workflow on cost entries.
type FlagHandler struct {
	flags *engine.FlagService
}

// NewFlagHandler creates a flag handler.
func NewFlagHandler(flags *engine.FlagService) *FlagHandler {
	return &FlagHandler{flags: flags}
}

// List handles GET /api/flags.
func (h *FlagHandler) List(w http.ResponseWriter, r *http.Request) {
	flagged, counts, err := h.flags.ListFlagged(r.Context())
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"flags":  flagged,
		"counts": counts,
	})
}

// Flag handles POST /api/costs/{id}/flag.
func (h *FlagHandler) Flag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if err := h.flags.Flag(r.Context(), chi.URLParam(r, "id"), req.Reason, actorFromRequest(r)); err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "cost entry flagged"})
}

// Investigate handles POST /api/costs/{id}/investigate.
func (h *FlagHandler) Investigate(w http.ResponseWriter, r *http.Request) {
	if err := h.flags.StartInvestigation(r.Context(), chi.URLParam(r, "id"), actorFromRequest(r)); err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "investigation started"})
}

// Resolve handles POST /api/costs/{id}/resolve.
func (h *FlagHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Comment string                `json:"comment"`
		Patch   engine.CostEntryPatch `json:"patch"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if err := h.flags.Resolve(r.Context(), chi.URLParam(r, "id"), req.Patch, req.Comment, actorFromRequest(r)); err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "flag resolved"})
}
