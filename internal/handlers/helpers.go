package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-costing/internal/engine"
	"github.com/ukydev/fleet-costing/internal/middleware"
)

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// respondEngineError maps the engine's error taxonomy onto HTTP statuses.
// Error messages keep the entity and id context so clients can act on them.
func respondEngineError(w http.ResponseWriter, err error) {
	if engine.IsRetryable(err) {
		w.Header().Set("Retry-After", "1")
	}
	var (
		validation *engine.ValidationError
		notFound   *engine.NotFoundError
		assetClass *engine.InvalidAssetClassError
		conflict   *engine.ConflictError
		timeout    *engine.PersistenceTimeoutError
	)
	switch {
	case errors.As(err, &validation):
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.As(err, &notFound):
		respondJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &assetClass):
		respondJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.As(err, &conflict):
		respondJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.As(err, &timeout):
		respondJSON(w, http.StatusGatewayTimeout, map[string]string{"error": err.Error()})
	default:
		log.WithError(err).Error("unhandled engine error")
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// actorFromRequest returns the authenticated username for audit stamping.
func actorFromRequest(r *http.Request) string {
	if claims, ok := middleware.GetUserFromContext(r.Context()); ok {
		return claims.Username
	}
	return "system"
}
