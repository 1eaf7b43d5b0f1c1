package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/draftforge/draftforge-engine/pkg/apperrors"
	"github.com/draftforge/draftforge-engine/pkg/models"
	"github.com/draftforge/draftforge-engine/pkg/outline"
	"github.com/draftforge/draftforge-engine/pkg/repositories"
)

// ReportService manages report lifecycle outside of generation sessions.
type ReportService struct {
	reports repositories.ReportRepository
	catalog *outline.Catalog
	logger  *zap.Logger
}

// NewReportService creates a new report service.
func NewReportService(reports repositories.ReportRepository, catalog *outline.Catalog, logger *zap.Logger) *ReportService {
	return &ReportService{
		reports: reports,
		catalog: catalog,
		logger:  logger.Named("report"),
	}
}

// CreateReport creates a report for the user. When templateID is set the
// sections are materialized from the template immediately; otherwise the
// report starts empty and sections are materialized once conversation has
// established the required facts.
func (s *ReportService) CreateReport(ctx context.Context, userID uuid.UUID, title, templateID string) (*models.Report, error) {
	report := &models.Report{
		ID:     uuid.New(),
		UserID: userID,
		Title:  title,
	}

	if templateID != "" {
		template, err := s.catalog.GetTemplateByID(templateID)
		if err != nil {
			return nil, err
		}
		report.TemplateID = template.ID
		report.Sections = models.MaterializeSections(template.Sections)
		report.Facts.ProjectType = template.ProjectType
		if report.Title == "" {
			report.Title = template.Name
		}
	}
	if report.Title == "" {
		report.Title = "未命名报告"
	}

	if err := s.reports.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}

	s.logger.Info("report created",
		zap.String("report_id", report.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("template_id", templateID))
	return report, nil
}

// GetReport returns the report by id.
func (s *ReportService) GetReport(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	return s.reports.GetByID(ctx, id)
}

// ListReports returns the user's reports, newest first.
func (s *ReportService) ListReports(ctx context.Context, userID uuid.UUID) ([]*models.Report, error) {
	return s.reports.ListByUser(ctx, userID)
}

// EditSection replaces a section's content with user supplied text. The
// caller's expected version guards against clobbering a concurrent
// generation run.
func (s *ReportService) EditSection(ctx context.Context, reportID uuid.UUID, sectionID, content string, expectedVersion int) (*models.Report, error) {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	section := report.SectionByID(sectionID)
	if section == nil {
		return nil, fmt.Errorf("section %s: %w", sectionID, apperrors.ErrNotFound)
	}
	section.Content = content

	if err := s.reports.UpdateSections(ctx, reportID, report.Sections, expectedVersion); err != nil {
		return nil, err
	}
	report.Version = expectedVersion + 1
	return report, nil
}
