package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-costing/internal/db"
	"github.com/ukydev/fleet-costing/internal/models"
)

// AssetHandler manages the fleet asset registry. Consumption record
// ingestion resolves asset class and probe capability from here.
type AssetHandler struct {
	assets db.FleetAssetStore
}

// NewAssetHandler creates an asset handler.
func NewAssetHandler(assets db.FleetAssetStore) *AssetHandler {
	return &AssetHandler{assets: assets}
}

// List handles GET /api/assets.
func (h *AssetHandler) List(w http.ResponseWriter, r *http.Request) {
	assets, err := h.assets.FindAssets(r.Context())
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, assets)
}

// Get handles GET /api/assets/{fleet}.
func (h *AssetHandler) Get(w http.ResponseWriter, r *http.Request) {
	asset, err := h.assets.FindAssetByFleet(r.Context(), chi.URLParam(r, "fleet"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			respondJSON(w, http.StatusNotFound, map[string]string{"error": "asset not found"})
			return
		}
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, asset)
}

// Upsert handles PUT /api/assets/{fleet}.
func (h *AssetHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var asset models.FleetAsset
	if err := json.NewDecoder(r.Body).Decode(&asset); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	asset.FleetNumber = chi.URLParam(r, "fleet")
	if asset.AssetClass != models.AssetClassTowing && asset.AssetClass != models.AssetClassReefer {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "asset_class must be towing or reefer"})
		return
	}
	if asset.Status == "" {
		asset.Status = "active"
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now().UTC()
	}

	if err := h.assets.UpsertAsset(r.Context(), asset); err != nil {
		respondEngineError(w, err)
		return
	}

	log.WithFields(log.Fields{
		"fleet_number": asset.FleetNumber,
		"asset_class":  asset.AssetClass,
		"has_probe":    asset.HasProbe,
	}).Info("Fleet asset registered")
	respondJSON(w, http.StatusOK, map[string]string{"message": "asset saved"})
}
