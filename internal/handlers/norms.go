package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ukydev/fleet-costing/internal/engine"
	"github.com/ukydev/fleet-costing/internal/models"
)

// NormHandler manages the operator-editable efficiency norms.
type NormHandler struct {
	registry *engine.NormRegistry
}

// NewNormHandler creates a norm handler.
func NewNormHandler(registry *engine.NormRegistry) *NormHandler {
	return &NormHandler{registry: registry}
}

// List handles GET /api/norms.
func (h *NormHandler) List(w http.ResponseWriter, r *http.Request) {
	norms, err := h.registry.List(r.Context())
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, norms)
}

// Upsert handles PUT /api/norms/{fleet}. The fleet number in the path wins
// over any fleet number in the body.
func (h *NormHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var norm models.EfficiencyNorm
	if err := json.NewDecoder(r.Body).Decode(&norm); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	norm.FleetNumber = chi.URLParam(r, "fleet")

	if err := h.registry.Upsert(r.Context(), norm, actorFromRequest(r)); err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "norm saved"})
}

// Delete handles DELETE /api/norms/{fleet}.
func (h *NormHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(r.Context(), chi.URLParam(r, "fleet"), actorFromRequest(r)); err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "norm deleted"})
}
