package models

// ============================================================================
// Session States
// ============================================================================

// SessionState represents the current state of a generation session.
type SessionState string

const (
	SessionStateIdle       SessionState = "idle"
	SessionStateRunning    SessionState = "running"
	SessionStateCancelling SessionState = "cancelling"
	SessionStateCompleted  SessionState = "completed"
	SessionStateCancelled  SessionState = "cancelled"
	SessionStateFailed     SessionState = "failed"
)

// IsTerminal returns true if the session state is terminal.
func (s SessionState) IsTerminal() bool {
	return s == SessionStateCompleted || s == SessionStateCancelled || s == SessionStateFailed
}

// CanTransitionTo returns true if transitioning from this state to the target
// is valid. Cancellation is cooperative: Running -> Cancelling on request,
// Cancelling -> Cancelled once the loop observes the signal.
func (s SessionState) CanTransitionTo(target SessionState) bool {
	switch s {
	case SessionStateIdle:
		return target == SessionStateRunning
	case SessionStateRunning:
		return target == SessionStateCancelling || target == SessionStateCompleted ||
			target == SessionStateFailed
	case SessionStateCancelling:
		return target == SessionStateCancelled || target == SessionStateCompleted ||
			target == SessionStateFailed
	case SessionStateCompleted, SessionStateCancelled, SessionStateFailed:
		return false
	default:
		return false
	}
}

// ============================================================================
// Generation Progress
// ============================================================================

// GenerationProgress tracks the progress of one generation session.
// Percent is monotonically non-decreasing within a session.
type GenerationProgress struct {
	TotalSections  int    `json:"total_sections"`
	CompletedCount int    `json:"completed_count"`
	CurrentSection string `json:"current_section,omitempty"`
	Percent        int    `json:"percent"`
	Message        string `json:"message,omitempty"`
	Cancelled      bool   `json:"cancelled,omitempty"`
}

// PercentFor computes the rounded percentage for done of total sections.
func PercentFor(done, total int) int {
	if total <= 0 {
		return 0
	}
	return int(float64(done)/float64(total)*100 + 0.5)
}

// ============================================================================
// Generation Events (for SSE streaming)
// ============================================================================

// GenerationEventType represents the type of a streaming generation event.
type GenerationEventType string

const (
	GenerationEventProgress  GenerationEventType = "progress"
	GenerationEventDelta     GenerationEventType = "delta"
	GenerationEventComplete  GenerationEventType = "complete"
	GenerationEventCancelled GenerationEventType = "cancelled"
	GenerationEventError     GenerationEventType = "error"
)

// GenerationEvent is one record in the event sequence a session emits:
// any number of progress/delta events followed by exactly one terminal
// complete, cancelled or error event.
type GenerationEvent struct {
	Type     GenerationEventType `json:"type"`
	Progress *GenerationProgress `json:"progress,omitempty"`
	Content  string              `json:"content,omitempty"`
	Report   *Report             `json:"report,omitempty"`
}

// IsTerminal returns true for the event that ends a stream.
func (e GenerationEvent) IsTerminal() bool {
	return e.Type == GenerationEventComplete || e.Type == GenerationEventCancelled ||
		e.Type == GenerationEventError
}

// NewProgressEvent creates a progress event.
func NewProgressEvent(p GenerationProgress) GenerationEvent {
	return GenerationEvent{Type: GenerationEventProgress, Progress: &p}
}

// NewDeltaEvent creates a content delta event for single-section streaming.
func NewDeltaEvent(content string) GenerationEvent {
	return GenerationEvent{Type: GenerationEventDelta, Content: content}
}

// NewCompleteEvent creates the terminal event carrying the finished report.
func NewCompleteEvent(report *Report) GenerationEvent {
	return GenerationEvent{Type: GenerationEventComplete, Report: report}
}

// NewCancelledEvent creates the terminal event for a cancelled session.
// The report carries the sections completed before cancellation.
func NewCancelledEvent(report *Report, p GenerationProgress) GenerationEvent {
	p.Cancelled = true
	return GenerationEvent{Type: GenerationEventCancelled, Report: report, Progress: &p}
}

// NewErrorEvent creates the terminal event for an orchestration failure.
func NewErrorEvent(message string) GenerationEvent {
	return GenerationEvent{Type: GenerationEventError, Content: message}
}
