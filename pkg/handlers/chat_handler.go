package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/draftforge/draftforge-engine/pkg/services"
)

// SendMessageRequest for POST /api/reports/{rid}/chat
type SendMessageRequest struct {
	Message string `json:"message"`
}

// ChatHandler handles the fact gathering conversation endpoints.
type ChatHandler struct {
	chatService *services.ChatService
	logger      *zap.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chatService *services.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chatService: chatService, logger: logger}
}

// RegisterRoutes registers the chat handler's routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/reports/{rid}/chat", h.SendMessage)
}

// SendMessage handles POST /api/reports/{rid}/chat
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	reportID, ok := ParseReportID(w, r, h.logger)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "empty_message", "message is required")
		return
	}

	result, err := h.chatService.ProcessMessage(r.Context(), reportID, req.Message)
	if err != nil {
		h.logger.Error("Failed to process chat message",
			zap.String("report_id", reportID.String()),
			zap.Error(err))
		_ = writeServiceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
