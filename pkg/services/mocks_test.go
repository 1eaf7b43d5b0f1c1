package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/draftforge/draftforge-engine/pkg/apperrors"
	"github.com/draftforge/draftforge-engine/pkg/models"
	"github.com/draftforge/draftforge-engine/pkg/outline"
	"github.com/draftforge/draftforge-engine/pkg/repositories"
)

// testOutlineCatalog is the embedded template catalog shared by the service
// tests.
var testOutlineCatalog = func() *outline.Catalog {
	catalog, err := outline.Load()
	if err != nil {
		panic(err)
	}
	return catalog
}()

// mockReportRepo is an in-memory ReportRepository for service tests.
type mockReportRepo struct {
	mu          sync.Mutex
	reports     map[uuid.UUID]*models.Report
	updateCalls int
	updateErr   error
}

var _ repositories.ReportRepository = (*mockReportRepo)(nil)

func newMockReportRepo() *mockReportRepo {
	return &mockReportRepo{reports: map[uuid.UUID]*models.Report{}}
}

func copyReport(r *models.Report) *models.Report {
	clone := *r
	clone.Sections = append([]models.Section(nil), r.Sections...)
	return &clone
}

func (m *mockReportRepo) Create(ctx context.Context, report *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if report.Version == 0 {
		report.Version = 1
	}
	m.reports[report.ID] = copyReport(report)
	return nil
}

func (m *mockReportRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	report, ok := m.reports[id]
	if !ok {
		return nil, fmt.Errorf("report %s: %w", id, apperrors.ErrNotFound)
	}
	return copyReport(report), nil
}

func (m *mockReportRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Report
	for _, r := range m.reports {
		if r.UserID == userID {
			out = append(out, copyReport(r))
		}
	}
	return out, nil
}

func (m *mockReportRepo) checkVersion(id uuid.UUID, expectedVersion int) (*models.Report, error) {
	stored, ok := m.reports[id]
	if !ok {
		return nil, fmt.Errorf("report %s: %w", id, apperrors.ErrNotFound)
	}
	if stored.Version != expectedVersion {
		return nil, fmt.Errorf("report %s: %w", id, apperrors.ErrVersionConflict)
	}
	return stored, nil
}

func (m *mockReportRepo) UpdateFacts(ctx context.Context, id uuid.UUID, facts models.ProjectFacts, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, err := m.checkVersion(id, expectedVersion)
	if err != nil {
		return err
	}
	stored.Facts = facts
	stored.Version++
	return nil
}

func (m *mockReportRepo) UpdateSections(ctx context.Context, id uuid.UUID, sections []models.Section, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, err := m.checkVersion(id, expectedVersion)
	if err != nil {
		return err
	}
	stored.Sections = append([]models.Section(nil), sections...)
	stored.Version++
	return nil
}

func (m *mockReportRepo) Update(ctx context.Context, report *models.Report, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	// The pgx-backed repository fails a write on a done context. The mock
	// does the same so session code cannot persist on a cancelled context.
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.updateErr != nil {
		return m.updateErr
	}
	stored, err := m.checkVersion(report.ID, expectedVersion)
	if err != nil {
		return err
	}
	stored.Title = report.Title
	stored.TemplateID = report.TemplateID
	stored.Facts = report.Facts
	stored.Sections = append([]models.Section(nil), report.Sections...)
	stored.Version++
	report.Version = stored.Version
	return nil
}

func (m *mockReportRepo) stored(id uuid.UUID) *models.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyReport(m.reports[id])
}

// mockPointsRepo is an in-memory PointsRepository for service tests.
type mockPointsRepo struct {
	mu          sync.Mutex
	balance     int
	deductCalls []int
}

var _ repositories.PointsRepository = (*mockPointsRepo)(nil)

func (m *mockPointsRepo) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance, nil
}

func (m *mockPointsRepo) DeductWithRecord(ctx context.Context, userID uuid.UUID, amount int, description string, relatedID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balance < amount {
		return apperrors.ErrInsufficientPoints
	}
	m.balance -= amount
	m.deductCalls = append(m.deductCalls, amount)
	return nil
}
