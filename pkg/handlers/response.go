package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/draftforge/draftforge-engine/pkg/apperrors"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// statusForError maps service errors onto HTTP status and error codes.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperrors.ErrTemplateNotFound):
		return http.StatusNotFound, "template_not_found"
	case errors.Is(err, apperrors.ErrVersionConflict):
		return http.StatusConflict, "version_conflict"
	case errors.Is(err, apperrors.ErrSessionActive):
		return http.StatusConflict, "session_active"
	case errors.Is(err, apperrors.ErrInsufficientPoints):
		return http.StatusPaymentRequired, "insufficient_points"
	case errors.Is(err, apperrors.ErrEmptySectionList):
		return http.StatusUnprocessableEntity, "empty_section_list"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeServiceError writes the mapped error response.
func writeServiceError(w http.ResponseWriter, err error) error {
	status, code := statusForError(err)
	return ErrorResponse(w, status, code, err.Error())
}
