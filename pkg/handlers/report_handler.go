package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/draftforge/draftforge-engine/pkg/models"
	"github.com/draftforge/draftforge-engine/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// CreateReportRequest for POST /api/reports
type CreateReportRequest struct {
	UserID     string `json:"user_id"`
	Title      string `json:"title"`
	TemplateID string `json:"template_id,omitempty"`
}

// EditSectionRequest for PUT /api/reports/{rid}/sections/{sid}
type EditSectionRequest struct {
	Content string `json:"content"`
	Version int    `json:"version"`
}

// EditFactRequest for PUT /api/reports/{rid}/facts
type EditFactRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// ReportListResponse for GET /api/reports
type ReportListResponse struct {
	Reports []*models.Report `json:"reports"`
	Total   int              `json:"total"`
}

// ============================================================================
// Handler
// ============================================================================

// ReportHandler handles report CRUD and fact edit HTTP requests.
type ReportHandler struct {
	reportService  *services.ReportService
	linkageService *services.LinkageService
	logger         *zap.Logger
}

// NewReportHandler creates a new report handler.
func NewReportHandler(reportService *services.ReportService, linkageService *services.LinkageService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		reportService:  reportService,
		linkageService: linkageService,
		logger:         logger,
	}
}

// RegisterRoutes registers the report handler's routes on the given mux.
func (h *ReportHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/reports", h.Create)
	mux.HandleFunc("GET /api/reports", h.List)
	mux.HandleFunc("GET /api/reports/{rid}", h.Get)
	mux.HandleFunc("PUT /api/reports/{rid}/sections/{sid}", h.EditSection)
	mux.HandleFunc("PUT /api/reports/{rid}/facts", h.EditFact)
}

// Create handles POST /api/reports
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_user_id", "user_id must be a UUID")
		return
	}

	report, err := h.reportService.CreateReport(r.Context(), userID, req.Title, req.TemplateID)
	if err != nil {
		h.logger.Error("Failed to create report", zap.Error(err))
		_ = writeServiceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, report); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/reports?user_id=...
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_user_id", "user_id must be a UUID")
		return
	}

	reports, err := h.reportService.ListReports(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list reports", zap.Error(err))
		_ = writeServiceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ReportListResponse{Reports: reports, Total: len(reports)}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/reports/{rid}
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	reportID, ok := ParseReportID(w, r, h.logger)
	if !ok {
		return
	}

	report, err := h.reportService.GetReport(r.Context(), reportID)
	if err != nil {
		_ = writeServiceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, report); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// EditSection handles PUT /api/reports/{rid}/sections/{sid}
func (h *ReportHandler) EditSection(w http.ResponseWriter, r *http.Request) {
	reportID, ok := ParseReportID(w, r, h.logger)
	if !ok {
		return
	}
	sectionID, ok := ParseSectionID(w, r, h.logger)
	if !ok {
		return
	}

	var req EditSectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	report, err := h.reportService.EditSection(r.Context(), reportID, sectionID, req.Content, req.Version)
	if err != nil {
		h.logger.Error("Failed to edit section",
			zap.String("report_id", reportID.String()),
			zap.String("section_id", sectionID),
			zap.Error(err))
		_ = writeServiceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, report); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// EditFact handles PUT /api/reports/{rid}/facts. The response is an SSE
// stream: a fact edit can trigger regeneration of the sections linked to
// that fact, and the client follows its progress live.
func (h *ReportHandler) EditFact(w http.ResponseWriter, r *http.Request) {
	reportID, ok := ParseReportID(w, r, h.logger)
	if !ok {
		return
	}

	var req EditFactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	field := models.FactField(req.Field)
	if !models.IsEditableFactField(field) {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_fact_field", "field is not editable")
		return
	}

	streamEvents(w, h.logger, func(events chan<- models.GenerationEvent) error {
		return h.linkageService.RegenerateForFactChange(r.Context(), reportID, field, req.Value, events)
	})
}
