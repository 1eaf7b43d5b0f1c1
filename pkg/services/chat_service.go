package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/draftforge/draftforge-engine/pkg/extraction"
	"github.com/draftforge/draftforge-engine/pkg/models"
	"github.com/draftforge/draftforge-engine/pkg/outline"
	"github.com/draftforge/draftforge-engine/pkg/repositories"
)

// ChatTurnResult is the outcome of one chat turn: the updated facts, the
// assistant reply, and whether this turn crossed the outline disclosure
// threshold.
type ChatTurnResult struct {
	Report           *models.Report      `json:"report"`
	Reply            string              `json:"reply"`
	Facts            models.ProjectFacts `json:"facts"`
	OutlineDisclosed bool                `json:"outline_disclosed"`
}

// ChatService drives the fact gathering conversation for a report.
type ChatService struct {
	reports repositories.ReportRepository
	catalog *outline.Catalog
	logger  *zap.Logger
}

// NewChatService creates a new chat service.
func NewChatService(reports repositories.ReportRepository, catalog *outline.Catalog, logger *zap.Logger) *ChatService {
	return &ChatService{
		reports: reports,
		catalog: catalog,
		logger:  logger.Named("chat"),
	}
}

var factFieldLabels = map[models.FactField]string{
	models.FactFieldType:       "项目类型",
	models.FactFieldName:       "项目名称",
	models.FactFieldLocation:   "建设地点",
	models.FactFieldScale:      "建设规模",
	models.FactFieldInvestment: "总投资",
}

// replyFields is the acknowledgement order for learned facts. Unlike
// ValidFactFields it includes the type, which is learned but not editable.
var replyFields = []models.FactField{
	models.FactFieldType,
	models.FactFieldName,
	models.FactFieldLocation,
	models.FactFieldScale,
	models.FactFieldInvestment,
}

// ProcessMessage runs one chat turn: extract facts from the utterance,
// persist any change, and disclose the outline exactly once, on the turn
// where type, name and location all become known.
func (s *ChatService) ProcessMessage(ctx context.Context, reportID uuid.UUID, message string) (*ChatTurnResult, error) {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}

	previous := report.Facts
	next := extraction.Extract(message, previous)
	disclose := extraction.ShouldDiscloseOutline(previous, next)
	report.Facts = next

	var outlineText string
	if disclose {
		template, err := s.catalog.GetTemplateByType(next.ProjectType)
		if err != nil {
			return nil, err
		}
		outlineText = outline.Render(&models.Outline{ProjectType: template.ProjectType, Sections: template.Sections})
		if len(report.Sections) == 0 {
			report.TemplateID = template.ID
			report.Sections = models.MaterializeSections(template.Sections)
		}
		if report.Title == "" || report.Title == "未命名报告" {
			report.Title = next.Name
		}
	}

	if next != previous {
		if err := s.reports.Update(ctx, report, report.Version); err != nil {
			return nil, fmt.Errorf("persist chat turn: %w", err)
		}
		s.logger.Info("facts updated from chat",
			zap.String("report_id", reportID.String()),
			zap.Bool("outline_disclosed", disclose))
	}

	return &ChatTurnResult{
		Report:           report,
		Reply:            s.composeReply(previous, next, outlineText),
		Facts:            next,
		OutlineDisclosed: disclose,
	}, nil
}

// composeReply acknowledges what this turn taught us, asks for what is
// still missing, and appends the outline on the disclosure turn.
func (s *ChatService) composeReply(previous, next models.ProjectFacts, outlineText string) string {
	var learned []string
	for _, field := range replyFields {
		if previous.Get(field) == "" && next.Get(field) != "" {
			value := next.Get(field)
			if field == models.FactFieldType {
				value = projectTypeLabel(next.ProjectType)
			}
			learned = append(learned, fmt.Sprintf("%s：%s", factFieldLabels[field], value))
		}
	}

	var b strings.Builder
	if len(learned) > 0 {
		b.WriteString("已记录以下信息：\n")
		for _, line := range learned {
			b.WriteString("- " + line + "\n")
		}
	} else {
		b.WriteString("收到。\n")
	}

	if outlineText != "" {
		b.WriteString("\n项目基本信息已齐全，以下是报告大纲：\n")
		b.WriteString(outlineText)
		b.WriteString("\n确认无误后即可开始生成报告内容。")
		return b.String()
	}

	if missing := missingFields(next); len(missing) > 0 {
		b.WriteString("\n请补充：" + strings.Join(missing, "、") + "。")
	}
	return b.String()
}

// missingFields lists the labels of the facts still needed before the
// outline can be shown.
func missingFields(f models.ProjectFacts) []string {
	var missing []string
	for _, field := range []models.FactField{models.FactFieldType, models.FactFieldName, models.FactFieldLocation} {
		if f.Get(field) == "" {
			missing = append(missing, factFieldLabels[field])
		}
	}
	return missing
}
