package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/draftforge/draftforge-engine/pkg/apperrors"
	"github.com/draftforge/draftforge-engine/pkg/models"
	"github.com/draftforge/draftforge-engine/pkg/outline"
	"github.com/draftforge/draftforge-engine/pkg/repositories"
)

// SessionStatus is a point-in-time snapshot of an active or finished session.
type SessionStatus struct {
	State    models.SessionState       `json:"state"`
	Progress models.GenerationProgress `json:"progress"`
}

// sessionHandle tracks one session's state machine and cancellation.
type sessionHandle struct {
	mu       sync.Mutex
	state    models.SessionState
	progress models.GenerationProgress
	cancel   context.CancelFunc
}

func newSessionHandle(cancel context.CancelFunc) *sessionHandle {
	return &sessionHandle{state: models.SessionStateIdle, cancel: cancel}
}

// transition moves the state machine, refusing invalid transitions.
func (h *sessionHandle) transition(target models.SessionState) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.state.CanTransitionTo(target) {
		return fmt.Errorf("invalid session transition %s -> %s", h.state, target)
	}
	h.state = target
	return nil
}

// finish moves to a terminal state, collapsing Cancelling -> Cancelled when
// the loop observed the signal before completing.
func (h *sessionHandle) finish(target models.SessionState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	// Cancellation via the caller's context skips the Cancelling request.
	if h.state == models.SessionStateRunning && target == models.SessionStateCancelled {
		h.state = models.SessionStateCancelling
	}
	if h.state.CanTransitionTo(target) {
		h.state = target
	}
}

func (h *sessionHandle) setProgress(p models.GenerationProgress) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.progress = p
}

func (h *sessionHandle) snapshot() SessionStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return SessionStatus{State: h.state, Progress: h.progress}
}

func (h *sessionHandle) isRunning() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state == models.SessionStateRunning
}

// SessionManager orchestrates generation sessions. Section generation within
// a session is strictly sequential, and at most one session may run per
// report at a time.
type SessionManager struct {
	generator        *SectionGenerator
	catalog          *outline.Catalog
	reports          repositories.ReportRepository
	points           repositories.PointsRepository
	sectionDelay     time.Duration
	pointsPerSection int
	logger           *zap.Logger

	mu     sync.Mutex
	active map[uuid.UUID]*sessionHandle
	recent map[uuid.UUID]SessionStatus
}

// NewSessionManager creates a new session manager.
func NewSessionManager(
	generator *SectionGenerator,
	catalog *outline.Catalog,
	reports repositories.ReportRepository,
	points repositories.PointsRepository,
	sectionDelay time.Duration,
	pointsPerSection int,
	logger *zap.Logger,
) *SessionManager {
	return &SessionManager{
		generator:        generator,
		catalog:          catalog,
		reports:          reports,
		points:           points,
		sectionDelay:     sectionDelay,
		pointsPerSection: pointsPerSection,
		logger:           logger.Named("session"),
		active:           map[uuid.UUID]*sessionHandle{},
		recent:           map[uuid.UUID]SessionStatus{},
	}
}

// register installs a handle for the report, rejecting a concurrent session.
func (m *SessionManager) register(reportID uuid.UUID, handle *sessionHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.active[reportID]; exists {
		return fmt.Errorf("report %s: %w", reportID, apperrors.ErrSessionActive)
	}
	m.active[reportID] = handle
	return nil
}

func (m *SessionManager) unregister(reportID uuid.UUID, handle *sessionHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, reportID)
	m.recent[reportID] = handle.snapshot()
}

// Cancel requests cooperative cancellation of the report's active session.
// Returns false when no session is running.
func (m *SessionManager) Cancel(reportID uuid.UUID) bool {
	m.mu.Lock()
	handle, ok := m.active[reportID]
	m.mu.Unlock()
	if !ok || !handle.isRunning() {
		return false
	}
	if err := handle.transition(models.SessionStateCancelling); err != nil {
		return false
	}
	handle.cancel()
	m.logger.Info("session cancellation requested", zap.String("report_id", reportID.String()))
	return true
}

// Status returns the current session status for a report: the active
// session if one is running, otherwise the last finished one.
func (m *SessionManager) Status(reportID uuid.UUID) (SessionStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if handle, ok := m.active[reportID]; ok {
		return handle.snapshot(), true
	}
	status, ok := m.recent[reportID]
	return status, ok
}

// Run executes a full generation session over all of the report's sections,
// emitting progress events and exactly one terminal event. Precondition
// failures (unknown report, empty section list, concurrent session,
// insufficient points) are returned before any provider call is made and
// before any event is emitted.
func (m *SessionManager) Run(ctx context.Context, reportID uuid.UUID, events chan<- models.GenerationEvent) error {
	report, err := m.reports.GetByID(ctx, reportID)
	if err != nil {
		return err
	}
	if len(report.Sections) == 0 {
		return fmt.Errorf("report %s: %w", reportID, apperrors.ErrEmptySectionList)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	handle := newSessionHandle(cancel)
	if err := m.register(reportID, handle); err != nil {
		return err
	}
	defer m.unregister(reportID, handle)

	// Points are deducted once per run, before the first provider call.
	cost := m.pointsPerSection * len(report.Sections)
	if err := m.points.DeductWithRecord(ctx, report.UserID, cost, "报告生成", reportID); err != nil {
		return fmt.Errorf("deduct points for run: %w", err)
	}

	if err := handle.transition(models.SessionStateRunning); err != nil {
		return err
	}

	m.logger.Info("generation session started",
		zap.String("report_id", reportID.String()),
		zap.Int("sections", len(report.Sections)),
		zap.Int("points_cost", cost))

	return m.runSections(sessionCtx, handle, report, report.Sections, events)
}

// RunScoped executes a session over a subset of the report's sections, in
// their existing order. Used by linkage regeneration; the caller has already
// applied the fact edit to the in-memory report.
func (m *SessionManager) RunScoped(ctx context.Context, report *models.Report, scoped []models.Section, events chan<- models.GenerationEvent) error {
	if len(scoped) == 0 {
		return fmt.Errorf("report %s: %w", report.ID, apperrors.ErrEmptySectionList)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	handle := newSessionHandle(cancel)
	if err := m.register(report.ID, handle); err != nil {
		return err
	}
	defer m.unregister(report.ID, handle)

	if err := handle.transition(models.SessionStateRunning); err != nil {
		return err
	}

	m.logger.Info("scoped generation session started",
		zap.String("report_id", report.ID.String()),
		zap.Int("sections", len(scoped)))

	return m.runSections(sessionCtx, handle, report, scoped, events)
}

// runSections is the shared sequential loop: one provider call per section,
// progress before and after each, cancellation checked only between
// sections, completed content retained on cancel, one persistence write per
// run.
// templateNameFor resolves the catalog name of the report's template for
// prompt assembly. Reports created without a template fall back to their
// title.
func (m *SessionManager) templateNameFor(report *models.Report) string {
	if report.TemplateID != "" {
		if tpl, err := m.catalog.GetTemplateByID(report.TemplateID); err == nil {
			return tpl.Name
		}
	}
	return report.Title
}

func (m *SessionManager) runSections(ctx context.Context, handle *sessionHandle, report *models.Report, sections []models.Section, events chan<- models.GenerationEvent) error {
	total := len(sections)
	templateName := m.templateNameFor(report)

	progress := models.GenerationProgress{
		TotalSections: total,
		Message:       "starting",
	}
	handle.setProgress(progress)
	events <- models.NewProgressEvent(progress)

	completed := make([]models.Section, 0, total)
	cancelled := false

	for i, section := range sections {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		progress = models.GenerationProgress{
			TotalSections:  total,
			CompletedCount: i,
			CurrentSection: section.Title,
			Percent:        models.PercentFor(i, total),
		}
		handle.setProgress(progress)
		events <- models.NewProgressEvent(progress)

		content := m.generator.Generate(ctx, section, report.Facts, templateName)
		if ctx.Err() != nil && content == SentinelContent {
			// The cancel signal aborted this call mid-flight; its sentinel
			// result is discarded. A call that finished before the signal
			// keeps its content.
			cancelled = true
			break
		}

		section.Content = content
		completed = append(completed, section)

		if ctx.Err() != nil {
			cancelled = true
			break
		}

		progress = models.GenerationProgress{
			TotalSections:  total,
			CompletedCount: i + 1,
			CurrentSection: section.Title,
			Percent:        models.PercentFor(i+1, total),
		}
		handle.setProgress(progress)
		events <- models.NewProgressEvent(progress)

		if i < total-1 {
			select {
			case <-time.After(m.sectionDelay):
			case <-ctx.Done():
			}
		}
	}

	report.MergeSections(completed)

	// On a cooperative cancel ctx is already done here, but the completed
	// sections still have to land in storage. The write runs on a context
	// detached from the cancel signal.
	if err := m.reports.Update(context.WithoutCancel(ctx), report, report.Version); err != nil {
		handle.finish(models.SessionStateFailed)
		// The in-memory section content is kept with the report so the
		// caller can retry persistence alone.
		return fmt.Errorf("persist generated sections: %w", err)
	}

	if cancelled {
		handle.finish(models.SessionStateCancelled)
		m.logger.Info("generation session cancelled",
			zap.String("report_id", report.ID.String()),
			zap.Int("completed", len(completed)),
			zap.Int("total", total))
		events <- models.NewCancelledEvent(report, progress)
		return nil
	}

	handle.finish(models.SessionStateCompleted)
	m.logger.Info("generation session completed",
		zap.String("report_id", report.ID.String()),
		zap.Int("sections", total))
	events <- models.NewCompleteEvent(report)
	return nil
}

// RunOne regenerates a single section in streaming mode, relaying provider
// deltas as they arrive. On cancellation the unfinished content is discarded
// and nothing is persisted.
func (m *SessionManager) RunOne(ctx context.Context, reportID uuid.UUID, sectionID string, events chan<- models.GenerationEvent) error {
	report, err := m.reports.GetByID(ctx, reportID)
	if err != nil {
		return err
	}
	section := report.SectionByID(sectionID)
	if section == nil {
		return fmt.Errorf("section %s: %w", sectionID, apperrors.ErrNotFound)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	handle := newSessionHandle(cancel)
	if err := m.register(reportID, handle); err != nil {
		return err
	}
	defer m.unregister(reportID, handle)

	if err := handle.transition(models.SessionStateRunning); err != nil {
		return err
	}

	deltas := make(chan string)
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		for delta := range deltas {
			events <- models.NewDeltaEvent(delta)
		}
	}()

	content, streamErr := m.generator.GenerateStream(sessionCtx, *section, report.Facts, m.templateNameFor(report), deltas)
	close(deltas)
	<-relayDone

	if streamErr != nil {
		handle.finish(models.SessionStateCancelled)
		m.logger.Info("section stream cancelled",
			zap.String("report_id", reportID.String()),
			zap.String("section_id", sectionID))
		events <- models.NewCancelledEvent(report, handle.snapshot().Progress)
		return nil
	}

	section.Content = content
	if err := m.reports.Update(ctx, report, report.Version); err != nil {
		handle.finish(models.SessionStateFailed)
		return fmt.Errorf("persist regenerated section: %w", err)
	}

	handle.finish(models.SessionStateCompleted)
	events <- models.NewCompleteEvent(report)
	return nil
}
