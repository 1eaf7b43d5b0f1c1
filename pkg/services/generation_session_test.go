package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/draftforge/draftforge-engine/pkg/apperrors"
	"github.com/draftforge/draftforge-engine/pkg/llm"
	"github.com/draftforge/draftforge-engine/pkg/models"
)

func testReport(t *testing.T, repo *mockReportRepo, sectionCount int) *models.Report {
	t.Helper()
	report := &models.Report{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		Title:      "高速公路可行性研究报告",
		TemplateID: "highway-feasibility",
		Facts: models.ProjectFacts{
			ProjectType: models.ProjectTypeHighway,
			Name:        "成灌高速",
			Location:    "四川成都",
		},
	}
	for i := 0; i < sectionCount; i++ {
		report.Sections = append(report.Sections, models.Section{
			ID:    fmt.Sprintf("s%d", i+1),
			Title: fmt.Sprintf("第%d章", i+1),
		})
	}
	require.NoError(t, repo.Create(context.Background(), report))
	return report
}

func newTestManager(client llm.CompletionClient, repo *mockReportRepo, points *mockPointsRepo) *SessionManager {
	logger := zap.NewNop()
	generator := NewSectionGenerator(client, 0.7, 1024, logger)
	return NewSessionManager(generator, testOutlineCatalog, repo, points, time.Millisecond, 10, logger)
}

func collectEvents(events chan models.GenerationEvent) []models.GenerationEvent {
	close(events)
	var out []models.GenerationEvent
	for e := range events {
		out = append(out, e)
	}
	return out
}

func TestSessionRun_CompletesAllSections(t *testing.T) {
	repo := newMockReportRepo()
	points := &mockPointsRepo{balance: 100}
	report := testReport(t, repo, 3)

	client := llm.NewMockCompletionClient()
	client.CompleteFunc = func(ctx context.Context, prompt, system string, opts llm.CompletionOpts) (string, error) {
		return "生成内容", nil
	}
	mgr := newTestManager(client, repo, points)

	events := make(chan models.GenerationEvent, 100)
	err := mgr.Run(context.Background(), report.ID, events)
	require.NoError(t, err)

	all := collectEvents(events)
	require.NotEmpty(t, all)

	terminal := all[len(all)-1]
	assert.Equal(t, models.GenerationEventComplete, terminal.Type)
	require.NotNil(t, terminal.Report)
	assert.Equal(t, []string{"s1", "s2", "s3"}, terminal.Report.SectionIDs())
	for _, s := range terminal.Report.Sections {
		assert.Equal(t, "生成内容", s.Content)
	}

	// Progress percent never decreases and ends at 100.
	last := -1
	for _, e := range all {
		if e.Type != models.GenerationEventProgress {
			continue
		}
		require.NotNil(t, e.Progress)
		assert.GreaterOrEqual(t, e.Progress.Percent, last)
		last = e.Progress.Percent
	}
	assert.Equal(t, 100, last)

	assert.Equal(t, 3, client.CompleteCalls)
	assert.Equal(t, 1, repo.updateCalls)
	assert.Equal(t, 70, points.balance)

	stored := repo.stored(report.ID)
	assert.Equal(t, 2, stored.Version)
}

func TestSessionRun_EmptySections(t *testing.T) {
	repo := newMockReportRepo()
	points := &mockPointsRepo{balance: 100}
	report := testReport(t, repo, 0)

	client := llm.NewMockCompletionClient()
	mgr := newTestManager(client, repo, points)

	events := make(chan models.GenerationEvent, 10)
	err := mgr.Run(context.Background(), report.ID, events)
	require.ErrorIs(t, err, apperrors.ErrEmptySectionList)
	assert.Empty(t, collectEvents(events))
	assert.Equal(t, 100, points.balance)
}

func TestSessionRun_InsufficientPoints(t *testing.T) {
	repo := newMockReportRepo()
	points := &mockPointsRepo{balance: 5}
	report := testReport(t, repo, 3)

	client := llm.NewMockCompletionClient()
	mgr := newTestManager(client, repo, points)

	events := make(chan models.GenerationEvent, 10)
	err := mgr.Run(context.Background(), report.ID, events)
	require.ErrorIs(t, err, apperrors.ErrInsufficientPoints)

	// No provider call and no event before the points check passes.
	assert.Zero(t, client.CompleteCalls)
	assert.Empty(t, collectEvents(events))
	assert.Equal(t, 5, points.balance)
}

func TestSessionRun_UnknownReport(t *testing.T) {
	repo := newMockReportRepo()
	mgr := newTestManager(llm.NewMockCompletionClient(), repo, &mockPointsRepo{balance: 100})

	events := make(chan models.GenerationEvent, 10)
	err := mgr.Run(context.Background(), uuid.New(), events)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSessionRun_CancelAfterTwoSections(t *testing.T) {
	repo := newMockReportRepo()
	points := &mockPointsRepo{balance: 100}
	report := testReport(t, repo, 5)

	client := llm.NewMockCompletionClient()
	mgr := newTestManager(client, repo, points)

	calls := 0
	client.CompleteFunc = func(ctx context.Context, prompt, system string, opts llm.CompletionOpts) (string, error) {
		calls++
		if calls == 2 {
			require.True(t, mgr.Cancel(report.ID))
		}
		return "生成内容", nil
	}

	events := make(chan models.GenerationEvent, 100)
	err := mgr.Run(context.Background(), report.ID, events)
	require.NoError(t, err)

	all := collectEvents(events)
	terminal := all[len(all)-1]
	require.Equal(t, models.GenerationEventCancelled, terminal.Type)
	require.NotNil(t, terminal.Progress)
	assert.True(t, terminal.Progress.Cancelled)

	// Exactly two sections completed, no third call issued, completed
	// content retained and persisted once.
	assert.Equal(t, 2, client.CompleteCalls)
	assert.Equal(t, 1, repo.updateCalls)

	stored := repo.stored(report.ID)
	assert.Equal(t, "生成内容", stored.Sections[0].Content)
	assert.Equal(t, "生成内容", stored.Sections[1].Content)
	assert.Empty(t, stored.Sections[2].Content)
	assert.Len(t, stored.Sections, 5)

	status, found := mgr.Status(report.ID)
	require.True(t, found)
	assert.Equal(t, models.SessionStateCancelled, status.State)

	// The persistence write runs after the cancel signal and still lands.
	assert.Equal(t, 2, stored.Version)
}

func TestSessionRun_PromptUsesTemplateName(t *testing.T) {
	repo := newMockReportRepo()
	points := &mockPointsRepo{balance: 100}
	report := testReport(t, repo, 1)

	client := llm.NewMockCompletionClient()
	var prompt string
	client.CompleteFunc = func(ctx context.Context, p, system string, opts llm.CompletionOpts) (string, error) {
		prompt = p
		return "生成内容", nil
	}
	mgr := newTestManager(client, repo, points)

	events := make(chan models.GenerationEvent, 10)
	require.NoError(t, mgr.Run(context.Background(), report.ID, events))
	collectEvents(events)

	// The prompt names the catalog template, not the report title.
	assert.Contains(t, prompt, "报告模板：公路工程可行性研究报告")
	assert.NotContains(t, prompt, report.Title)
}

func TestSessionRun_PromptFallsBackToTitleWithoutTemplate(t *testing.T) {
	repo := newMockReportRepo()
	points := &mockPointsRepo{balance: 100}
	report := &models.Report{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Title:    "自定义报告",
		Sections: []models.Section{{ID: "s1", Title: "第1章"}},
	}
	require.NoError(t, repo.Create(context.Background(), report))

	client := llm.NewMockCompletionClient()
	var prompt string
	client.CompleteFunc = func(ctx context.Context, p, system string, opts llm.CompletionOpts) (string, error) {
		prompt = p
		return "生成内容", nil
	}
	mgr := newTestManager(client, repo, points)

	events := make(chan models.GenerationEvent, 10)
	require.NoError(t, mgr.Run(context.Background(), report.ID, events))
	collectEvents(events)

	assert.Contains(t, prompt, "报告模板：自定义报告")
}

func TestSessionRun_ProviderFailureIsolatedToSection(t *testing.T) {
	repo := newMockReportRepo()
	points := &mockPointsRepo{balance: 100}
	report := testReport(t, repo, 3)

	client := llm.NewMockCompletionClient()
	calls := 0
	client.CompleteFunc = func(ctx context.Context, prompt, system string, opts llm.CompletionOpts) (string, error) {
		calls++
		if calls == 2 {
			return "", errors.New("provider exploded")
		}
		return "生成内容", nil
	}
	mgr := newTestManager(client, repo, points)

	events := make(chan models.GenerationEvent, 100)
	err := mgr.Run(context.Background(), report.ID, events)
	require.NoError(t, err)

	all := collectEvents(events)
	assert.Equal(t, models.GenerationEventComplete, all[len(all)-1].Type)

	stored := repo.stored(report.ID)
	assert.Equal(t, "生成内容", stored.Sections[0].Content)
	assert.Equal(t, SentinelContent, stored.Sections[1].Content)
	assert.Equal(t, "生成内容", stored.Sections[2].Content)
}

func TestSessionRun_ConcurrentSessionRejected(t *testing.T) {
	repo := newMockReportRepo()
	points := &mockPointsRepo{balance: 1000}
	report := testReport(t, repo, 2)

	client := llm.NewMockCompletionClient()
	started := make(chan struct{})
	release := make(chan struct{})
	var once bool
	client.CompleteFunc = func(ctx context.Context, prompt, system string, opts llm.CompletionOpts) (string, error) {
		if !once {
			once = true
			close(started)
			<-release
		}
		return "生成内容", nil
	}
	mgr := newTestManager(client, repo, points)

	firstDone := make(chan error, 1)
	go func() {
		events := make(chan models.GenerationEvent, 100)
		firstDone <- mgr.Run(context.Background(), report.ID, events)
	}()

	<-started
	events := make(chan models.GenerationEvent, 10)
	err := mgr.Run(context.Background(), report.ID, events)
	require.ErrorIs(t, err, apperrors.ErrSessionActive)

	close(release)
	require.NoError(t, <-firstDone)
}

func TestSessionRun_PersistFailure(t *testing.T) {
	repo := newMockReportRepo()
	repo.updateErr = errors.New("db down")
	points := &mockPointsRepo{balance: 100}
	report := testReport(t, repo, 2)

	client := llm.NewMockCompletionClient()
	client.CompleteFunc = func(ctx context.Context, prompt, system string, opts llm.CompletionOpts) (string, error) {
		return "生成内容", nil
	}
	mgr := newTestManager(client, repo, points)

	events := make(chan models.GenerationEvent, 100)
	err := mgr.Run(context.Background(), report.ID, events)
	require.Error(t, err)

	status, found := mgr.Status(report.ID)
	require.True(t, found)
	assert.Equal(t, models.SessionStateFailed, status.State)
}

func TestSessionRunOne_StreamsAndPersists(t *testing.T) {
	repo := newMockReportRepo()
	points := &mockPointsRepo{balance: 100}
	report := testReport(t, repo, 3)

	client := llm.NewMockCompletionClient()
	client.CompleteStreamFunc = func(ctx context.Context, prompt, system string, opts llm.CompletionOpts, deltas chan<- string) error {
		deltas <- "第一段。"
		deltas <- "第二段。"
		return nil
	}
	mgr := newTestManager(client, repo, points)

	events := make(chan models.GenerationEvent, 100)
	err := mgr.RunOne(context.Background(), report.ID, "s2", events)
	require.NoError(t, err)

	all := collectEvents(events)
	var streamed string
	for _, e := range all {
		if e.Type == models.GenerationEventDelta {
			streamed += e.Content
		}
	}
	assert.Equal(t, "第一段。第二段。", streamed)
	assert.Equal(t, models.GenerationEventComplete, all[len(all)-1].Type)

	stored := repo.stored(report.ID)
	assert.Equal(t, "第一段。第二段。", stored.Sections[1].Content)
	assert.Empty(t, stored.Sections[0].Content)
	// Single-section regeneration costs nothing.
	assert.Equal(t, 100, points.balance)
}

func TestSessionRunOne_CancelDiscards(t *testing.T) {
	repo := newMockReportRepo()
	points := &mockPointsRepo{balance: 100}
	report := testReport(t, repo, 1)

	client := llm.NewMockCompletionClient()
	client.CompleteStreamFunc = func(ctx context.Context, prompt, system string, opts llm.CompletionOpts, deltas chan<- string) error {
		deltas <- "开头"
		<-ctx.Done()
		return ctx.Err()
	}
	mgr := newTestManager(client, repo, points)

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan models.GenerationEvent, 100)
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := mgr.RunOne(ctx, report.ID, "s1", events)
	require.NoError(t, err)

	all := collectEvents(events)
	assert.Equal(t, models.GenerationEventCancelled, all[len(all)-1].Type)

	stored := repo.stored(report.ID)
	assert.Empty(t, stored.Sections[0].Content)
	assert.Equal(t, 1, stored.Version)
}

func TestSessionCancel_NoActiveSession(t *testing.T) {
	mgr := newTestManager(llm.NewMockCompletionClient(), newMockReportRepo(), &mockPointsRepo{})
	assert.False(t, mgr.Cancel(uuid.New()))
}

func TestSessionStatus_Unknown(t *testing.T) {
	mgr := newTestManager(llm.NewMockCompletionClient(), newMockReportRepo(), &mockPointsRepo{})
	_, found := mgr.Status(uuid.New())
	assert.False(t, found)
}
