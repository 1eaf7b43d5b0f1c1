package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/draftforge/draftforge-engine/pkg/models"
)

// streamEvents runs produce in the background and relays its generation
// events to the client as SSE frames, stopping after the first terminal
// event. A produce error surfaces as an error event on the stream.
func streamEvents(w http.ResponseWriter, logger *zap.Logger, produce func(events chan<- models.GenerationEvent) error) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.Error("SSE not supported")
		if err := ErrorResponse(w, http.StatusInternalServerError, "sse_unsupported", "SSE not supported"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	eventChan := make(chan models.GenerationEvent, 100)

	go func() {
		defer close(eventChan)
		if err := produce(eventChan); err != nil {
			logger.Error("Generation stream error", zap.Error(err))
			eventChan <- models.NewErrorEvent(err.Error())
		}
	}()

	for event := range eventChan {
		data, err := json.Marshal(event)
		if err != nil {
			logger.Error("Failed to marshal event", zap.Error(err))
			continue
		}

		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()

		if event.IsTerminal() {
			break
		}
	}
}
