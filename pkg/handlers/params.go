package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ParseReportID extracts and validates the {rid} path value. Writes a 400
// response and returns ok=false on failure.
func ParseReportID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	raw := r.PathValue("rid")
	id, err := uuid.Parse(raw)
	if err != nil {
		logger.Warn("Invalid report id", zap.String("rid", raw))
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_report_id", "report id must be a UUID"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return id, true
}

// ParseSectionID extracts the {sid} path value. Writes a 400 response and
// returns ok=false when it is empty.
func ParseSectionID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (string, bool) {
	sid := r.PathValue("sid")
	if sid == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_section_id", "section id is required"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return "", false
	}
	return sid, true
}
