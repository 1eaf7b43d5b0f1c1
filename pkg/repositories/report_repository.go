package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/draftforge/draftforge-engine/pkg/apperrors"
	"github.com/draftforge/draftforge-engine/pkg/database"
	"github.com/draftforge/draftforge-engine/pkg/models"
)

// ReportRepository provides data access for reports. Writes that carry an
// expected version enforce optimistic concurrency: the row is only updated
// when its stored version matches, and the version is bumped on success.
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Report, error)
	UpdateFacts(ctx context.Context, id uuid.UUID, facts models.ProjectFacts, expectedVersion int) error
	UpdateSections(ctx context.Context, id uuid.UUID, sections []models.Section, expectedVersion int) error
	// Update persists facts and sections in one write so a generation run or
	// a linkage regeneration produces a single coarse-grained storage write.
	Update(ctx context.Context, report *models.Report, expectedVersion int) error
}

type reportRepository struct {
	db *database.DB
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(db *database.DB) ReportRepository {
	return &reportRepository{db: db}
}

var _ ReportRepository = (*reportRepository)(nil)

func (r *reportRepository) Create(ctx context.Context, report *models.Report) error {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	now := time.Now()
	report.CreatedAt = now
	report.UpdatedAt = now
	if report.Version == 0 {
		report.Version = 1
	}

	factsJSON, err := json.Marshal(report.Facts)
	if err != nil {
		return fmt.Errorf("failed to marshal facts: %w", err)
	}
	sectionsJSON, err := json.Marshal(report.Sections)
	if err != nil {
		return fmt.Errorf("failed to marshal sections: %w", err)
	}

	query := `
		INSERT INTO reports (id, user_id, title, template_id, facts, sections, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.Exec(ctx, query,
		report.ID, report.UserID, report.Title, report.TemplateID,
		factsJSON, sectionsJSON, report.Version, report.CreatedAt, report.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

func (r *reportRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	query := `
		SELECT id, user_id, title, template_id, facts, sections, version, created_at, updated_at
		FROM reports WHERE id = $1`

	report, err := scanReport(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("report %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return report, nil
}

func (r *reportRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Report, error) {
	query := `
		SELECT id, user_id, title, template_id, facts, sections, version, created_at, updated_at
		FROM reports WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []*models.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func (r *reportRepository) UpdateFacts(ctx context.Context, id uuid.UUID, facts models.ProjectFacts, expectedVersion int) error {
	factsJSON, err := json.Marshal(facts)
	if err != nil {
		return fmt.Errorf("failed to marshal facts: %w", err)
	}

	query := `
		UPDATE reports SET facts = $1, version = version + 1, updated_at = now()
		WHERE id = $2 AND version = $3`

	tag, err := r.db.Exec(ctx, query, factsJSON, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update facts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.conflictOrMissing(ctx, id)
	}
	return nil
}

func (r *reportRepository) UpdateSections(ctx context.Context, id uuid.UUID, sections []models.Section, expectedVersion int) error {
	sectionsJSON, err := json.Marshal(sections)
	if err != nil {
		return fmt.Errorf("failed to marshal sections: %w", err)
	}

	query := `
		UPDATE reports SET sections = $1, version = version + 1, updated_at = now()
		WHERE id = $2 AND version = $3`

	tag, err := r.db.Exec(ctx, query, sectionsJSON, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update sections: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.conflictOrMissing(ctx, id)
	}
	return nil
}

func (r *reportRepository) Update(ctx context.Context, report *models.Report, expectedVersion int) error {
	factsJSON, err := json.Marshal(report.Facts)
	if err != nil {
		return fmt.Errorf("failed to marshal facts: %w", err)
	}
	sectionsJSON, err := json.Marshal(report.Sections)
	if err != nil {
		return fmt.Errorf("failed to marshal sections: %w", err)
	}

	query := `
		UPDATE reports SET title = $1, facts = $2, sections = $3, version = version + 1, updated_at = now()
		WHERE id = $4 AND version = $5`

	tag, err := r.db.Exec(ctx, query, report.Title, factsJSON, sectionsJSON, report.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.conflictOrMissing(ctx, report.ID)
	}
	report.Version = expectedVersion + 1
	return nil
}

// conflictOrMissing distinguishes a stale version from a missing row.
func (r *reportRepository) conflictOrMissing(ctx context.Context, id uuid.UUID) error {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM reports WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check report existence: %w", err)
	}
	if !exists {
		return fmt.Errorf("report %s: %w", id, apperrors.ErrNotFound)
	}
	return fmt.Errorf("report %s: %w", id, apperrors.ErrVersionConflict)
}

func scanReport(row pgx.Row) (*models.Report, error) {
	var report models.Report
	var factsJSON, sectionsJSON []byte

	err := row.Scan(
		&report.ID, &report.UserID, &report.Title, &report.TemplateID,
		&factsJSON, &sectionsJSON, &report.Version, &report.CreatedAt, &report.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(factsJSON, &report.Facts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal facts: %w", err)
	}
	if err := json.Unmarshal(sectionsJSON, &report.Sections); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sections: %w", err)
	}
	return &report, nil
}
