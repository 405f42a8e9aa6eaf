package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/edgarchat/edgarchat/internal/domain/entities"
)

// errorResponse is the single error body shape: { "error": "..." }.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeMappedError maps a pipeline error to its transport status, the single
// place where the error taxonomy meets HTTP.
func (s *Server) writeMappedError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeError(w, status, message)
}

// mapError resolves an error kind to a status code and caller-facing message.
// Configuration, upstream, and persistence failures all collapse to 500; only
// the message varies by cause.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, entities.ErrInvalidInput):
		return http.StatusBadRequest, "Prompt is required"
	case errors.Is(err, entities.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, entities.ErrNotFound):
		return http.StatusNotFound, "Conversation not found"
	case errors.Is(err, entities.ErrConfigurationMissing):
		return http.StatusInternalServerError, "Service configuration missing"
	case errors.Is(err, entities.ErrUpstreamUnavailable):
		return http.StatusInternalServerError, "Failed to generate AI response"
	case errors.Is(err, entities.ErrPersistence):
		return http.StatusInternalServerError, "Failed to save conversation"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
