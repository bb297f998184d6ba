package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ukydev/fleet-costing/internal/db"
	"github.com/ukydev/fleet-costing/internal/engine"
)

// TripHandler exposes the trip read surface and manual completion.
type TripHandler struct {
	trips db.TripStore
	flags *engine.FlagService
}

// NewTripHandler creates a trip handler.
func NewTripHandler(trips db.TripStore, flags *engine.FlagService) *TripHandler {
	return &TripHandler{trips: trips, flags: flags}
}

// List handles GET /api/trips.
func (h *TripHandler) List(w http.ResponseWriter, r *http.Request) {
	trips, err := h.trips.FindTrips(r.Context())
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, trips)
}

// Get handles GET /api/trips/{id}.
func (h *TripHandler) Get(w http.ResponseWriter, r *http.Request) {
	trip, err := h.trips.FindTripByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			respondJSON(w, http.StatusNotFound, map[string]string{"error": "trip not found"})
			return
		}
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, trip)
}

// Summary handles GET /api/trips/{id}/summary.
func (h *TripHandler) Summary(w http.ResponseWriter, r *http.Request) {
	trip, err := h.trips.FindTripByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			respondJSON(w, http.StatusNotFound, map[string]string{"error": "trip not found"})
			return
		}
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, engine.Summarize(trip))
}

// Complete handles POST /api/trips/{id}/complete.
func (h *TripHandler) Complete(w http.ResponseWriter, r *http.Request) {
	if err := h.flags.CompleteTrip(r.Context(), chi.URLParam(r, "id"), actorFromRequest(r)); err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "trip completed"})
}
