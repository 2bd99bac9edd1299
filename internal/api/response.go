package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/graph-summary-service/internal/service"
	"github.com/gilchrisn/graph-summary-service/pkg/graph"
	"github.com/gilchrisn/graph-summary-service/pkg/ingest"
	"github.com/gilchrisn/graph-summary-service/pkg/query"
	"github.com/gilchrisn/graph-summary-service/pkg/summary"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// writeSuccess writes a successful JSON response
func writeSuccess(w http.ResponseWriter, logger zerolog.Logger, status int, message string, data interface{}) {
	writeJSON(w, logger, status, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// writeError writes an error JSON response
func writeError(w http.ResponseWriter, logger zerolog.Logger, status int, message string, err error) {
	response := APIResponse{
		Success: false,
		Message: message,
	}
	if err != nil {
		response.Error = err.Error()
	}
	writeJSON(w, logger, status, response)
}

func writeJSON(w http.ResponseWriter, logger zerolog.Logger, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error().
			Err(err).
			Int("status_code", status).
			Msg("Failed to encode JSON response")
	}
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, graph.ErrFormat),
		errors.Is(err, graph.ErrUnknownDirection),
		errors.Is(err, ingest.ErrUnsupportedFormat),
		errors.Is(err, summary.ErrConfiguration),
		errors.Is(err, query.ErrUnknownQuery),
		errors.Is(err, query.ErrEmptyPattern),
		errors.Is(err, query.ErrNoSamples),
		errors.Is(err, query.ErrUnsupportedMetric):
		return http.StatusBadRequest
	case errors.Is(err, query.ErrNoDefinedSamples),
		errors.Is(err, query.ErrGraphTooSmall):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
