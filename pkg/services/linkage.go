package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/draftforge/draftforge-engine/pkg/models"
	"github.com/draftforge/draftforge-engine/pkg/repositories"
)

// linkageKeywords maps an editable fact field to the section title keywords
// it influences. A section whose title contains any keyword for the edited
// field is regenerated. Name edits are handled separately: every section
// mentions the project by name.
var linkageKeywords = map[models.FactField][]string{
	models.FactFieldLocation:   {"概况", "现状", "环境", "条件", "选址"},
	models.FactFieldScale:      {"方案", "规模", "工程", "投资", "财务"},
	models.FactFieldInvestment: {"投资", "财务", "资金", "效益", "经济"},
}

// LinkageService recomputes report sections affected by a fact edit.
type LinkageService struct {
	reports  repositories.ReportRepository
	sessions *SessionManager
	logger   *zap.Logger
}

// NewLinkageService creates a new linkage service.
func NewLinkageService(reports repositories.ReportRepository, sessions *SessionManager, logger *zap.Logger) *LinkageService {
	return &LinkageService{
		reports:  reports,
		sessions: sessions,
		logger:   logger.Named("linkage"),
	}
}

// AffectedSections returns the sections whose content depends on the given
// fact field, preserving report order. A name edit affects every section.
func AffectedSections(report *models.Report, field models.FactField) []models.Section {
	if field == models.FactFieldName {
		return append([]models.Section(nil), report.Sections...)
	}
	keywords := linkageKeywords[field]
	var affected []models.Section
	for _, section := range report.Sections {
		for _, keyword := range keywords {
			if strings.Contains(strings.ToLower(section.Title), strings.ToLower(keyword)) {
				affected = append(affected, section)
				break
			}
		}
	}
	return affected
}

// RegenerateForFactChange applies a fact edit and regenerates the affected
// sections in one session. When no section is affected, only the fact value
// is persisted. The edit and the regenerated content land in a single
// storage write.
func (s *LinkageService) RegenerateForFactChange(ctx context.Context, reportID uuid.UUID, field models.FactField, value string, events chan<- models.GenerationEvent) error {
	if !models.IsEditableFactField(field) {
		return fmt.Errorf("fact field %q is not editable", field)
	}

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return err
	}
	report.Facts = report.Facts.WithEdit(field, value)

	affected := AffectedSections(report, field)
	if len(affected) == 0 {
		if err := s.reports.UpdateFacts(ctx, reportID, report.Facts, report.Version); err != nil {
			return fmt.Errorf("persist fact edit: %w", err)
		}
		// Keep the in-memory counter in step with the stored row so the
		// terminal event carries the version a follow-up edit must send.
		report.Version++
		events <- models.NewCompleteEvent(report)
		return nil
	}

	s.logger.Info("fact edit triggers regeneration",
		zap.String("report_id", reportID.String()),
		zap.String("field", string(field)),
		zap.Int("affected_sections", len(affected)))

	return s.sessions.RunScoped(ctx, report, affected, events)
}
