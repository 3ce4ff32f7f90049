package server

import (
	"encoding/json"
	"net/http"

	repoerrors "timeglass/internal/infrastructure/errors"
	"timeglass/internal/infrastructure/logging"
)

// errorResponse is the JSON shape of every error the API returns
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		// Encoding failures at this point can only be logged; the
		// status line is already on the wire.
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeRepositoryError maps the error taxonomy onto HTTP statuses:
// validation 400, not found 404, overlap 409, everything else 500.
func writeRepositoryError(w http.ResponseWriter, logger logging.Logger, err error) {
	switch {
	case repoerrors.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case repoerrors.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case repoerrors.IsOverlap(err):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logger.Error("Request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
