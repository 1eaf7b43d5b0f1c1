package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/draftforge/draftforge-engine/pkg/models"
	"github.com/draftforge/draftforge-engine/pkg/services"
)

// CancelResponse for POST /api/reports/{rid}/generate/cancel
type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// GenerationHandler handles generation session endpoints.
type GenerationHandler struct {
	sessions *services.SessionManager
	logger   *zap.Logger
}

// NewGenerationHandler creates a new generation handler.
func NewGenerationHandler(sessions *services.SessionManager, logger *zap.Logger) *GenerationHandler {
	return &GenerationHandler{sessions: sessions, logger: logger}
}

// RegisterRoutes registers the generation handler's routes on the given mux.
func (h *GenerationHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/reports/{rid}/generate", h.Generate)
	mux.HandleFunc("POST /api/reports/{rid}/generate/cancel", h.Cancel)
	mux.HandleFunc("GET /api/reports/{rid}/generate/status", h.Status)
	mux.HandleFunc("POST /api/reports/{rid}/sections/{sid}/stream", h.StreamSection)
}

// Generate handles POST /api/reports/{rid}/generate as an SSE stream.
func (h *GenerationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	reportID, ok := ParseReportID(w, r, h.logger)
	if !ok {
		return
	}

	streamEvents(w, h.logger, func(events chan<- models.GenerationEvent) error {
		return h.sessions.Run(r.Context(), reportID, events)
	})
}

// Cancel handles POST /api/reports/{rid}/generate/cancel
func (h *GenerationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	reportID, ok := ParseReportID(w, r, h.logger)
	if !ok {
		return
	}

	cancelled := h.sessions.Cancel(reportID)
	if err := WriteJSON(w, http.StatusOK, CancelResponse{Cancelled: cancelled}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Status handles GET /api/reports/{rid}/generate/status
func (h *GenerationHandler) Status(w http.ResponseWriter, r *http.Request) {
	reportID, ok := ParseReportID(w, r, h.logger)
	if !ok {
		return
	}

	status, found := h.sessions.Status(reportID)
	if !found {
		status = services.SessionStatus{State: models.SessionStateIdle}
	}
	if err := WriteJSON(w, http.StatusOK, status); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// StreamSection handles POST /api/reports/{rid}/sections/{sid}/stream as an
// SSE stream of content deltas for a single section regeneration.
func (h *GenerationHandler) StreamSection(w http.ResponseWriter, r *http.Request) {
	reportID, ok := ParseReportID(w, r, h.logger)
	if !ok {
		return
	}
	sectionID, ok := ParseSectionID(w, r, h.logger)
	if !ok {
		return
	}

	streamEvents(w, h.logger, func(events chan<- models.GenerationEvent) error {
		return h.sessions.RunOne(r.Context(), reportID, sectionID, events)
	})
}
