package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/draftforge/draftforge-engine/pkg/llm"
	"github.com/draftforge/draftforge-engine/pkg/models"
	"github.com/draftforge/draftforge-engine/pkg/retry"
)

// SentinelContent is substituted for a section when content generation
// fails, so a multi-section batch can continue past one failure and the
// user can see which sections need a manual retry.
const SentinelContent = "（内容生成失败，请稍后重试）"

const sectionSystemPrompt = "你是一名资深工程咨询工程师，负责撰写工程项目可行性研究报告。" +
	"请使用专业、严谨的书面语言，内容围绕给定章节展开，不要重复章节标题。"

// SectionGenerator produces the content for one outline section given the
// project facts, either as a single completed string or as a stream of
// text deltas.
type SectionGenerator struct {
	client      llm.CompletionClient
	retryCfg    *retry.Config
	temperature float64
	maxTokens   int
	logger      *zap.Logger
}

// NewSectionGenerator creates a section generator with a fixed temperature
// and output token limit.
func NewSectionGenerator(client llm.CompletionClient, temperature float64, maxTokens int, logger *zap.Logger) *SectionGenerator {
	return &SectionGenerator{
		client:      client,
		retryCfg:    retry.DefaultConfig(),
		temperature: temperature,
		maxTokens:   maxTokens,
		logger:      logger.Named("generator"),
	}
}

func (g *SectionGenerator) opts() llm.CompletionOpts {
	return llm.CompletionOpts{Temperature: g.temperature, MaxTokens: g.maxTokens}
}

// Generate produces the content for one section. It never fails the caller:
// provider errors and empty responses are retried for transient causes and
// then absorbed as SentinelContent.
func (g *SectionGenerator) Generate(ctx context.Context, section models.Section, facts models.ProjectFacts, templateName string) string {
	prompt := buildSectionPrompt(section, facts, templateName)

	start := time.Now()
	content, err := retry.DoWithResult(ctx, g.retryCfg, func() (string, error) {
		return g.client.Complete(ctx, prompt, sectionSystemPrompt, g.opts())
	})
	if err != nil || strings.TrimSpace(content) == "" {
		g.logger.Warn("section generation failed, substituting sentinel",
			zap.String("section_id", section.ID),
			zap.String("section_title", section.Title),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return SentinelContent
	}

	g.logger.Debug("section generated",
		zap.String("section_id", section.ID),
		zap.Int("content_len", len(content)),
		zap.Duration("elapsed", time.Since(start)))
	return content
}

// GenerateStream produces the content for one section as deltas relayed to
// the channel, and returns the accumulated text. On provider failure one
// final sentinel delta is sent and the accumulated text is the sentinel;
// deltas already delivered are not retracted. A context error stops the
// relay and is returned to the caller.
func (g *SectionGenerator) GenerateStream(ctx context.Context, section models.Section, facts models.ProjectFacts, templateName string, deltas chan<- string) (string, error) {
	prompt := buildSectionPrompt(section, facts, templateName)

	inner := make(chan string)
	errCh := make(chan error, 1)
	go func() {
		errCh <- g.client.CompleteStream(ctx, prompt, sectionSystemPrompt, g.opts(), inner)
		close(inner)
	}()

	var content strings.Builder
	for delta := range inner {
		select {
		case deltas <- delta:
			content.WriteString(delta)
		case <-ctx.Done():
			// Drain the provider goroutine, then report cancellation.
			for range inner {
			}
			<-errCh
			return "", ctx.Err()
		}
	}

	if err := <-errCh; err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		g.logger.Warn("section stream failed, substituting sentinel",
			zap.String("section_id", section.ID),
			zap.Error(err))
		select {
		case deltas <- SentinelContent:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		return SentinelContent, nil
	}

	return content.String(), nil
}

// buildSectionPrompt renders the deterministic generation prompt. Unknown
// facts render as 待定 so the prompt is well-formed even with zero facts
// known.
func buildSectionPrompt(section models.Section, facts models.ProjectFacts, templateName string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "报告模板：%s\n", orPending(templateName))
	fmt.Fprintf(&b, "项目类型：%s\n", orPending(projectTypeLabel(facts.ProjectType)))
	fmt.Fprintf(&b, "项目名称：%s\n", orPending(facts.Name))
	fmt.Fprintf(&b, "建设地点：%s\n", orPending(facts.Location))
	fmt.Fprintf(&b, "建设规模：%s\n", orPending(facts.Scale))
	fmt.Fprintf(&b, "总投资：%s\n\n", orPending(facts.Investment))

	fmt.Fprintf(&b, "请撰写章节「%s」的正文。", section.Title)
	if section.Description != "" {
		fmt.Fprintf(&b, "本章节要求：%s。", section.Description)
	}
	if len(section.Subsections) > 0 {
		fmt.Fprintf(&b, "内容需覆盖以下子章节：%s。", strings.Join(section.Subsections, "、"))
	}
	b.WriteString("\n")

	return b.String()
}

func orPending(v string) string {
	if strings.TrimSpace(v) == "" {
		return "待定"
	}
	return v
}

func projectTypeLabel(t models.ProjectType) string {
	switch t {
	case models.ProjectTypeHighway:
		return "公路工程"
	case models.ProjectTypeMunicipal:
		return "市政工程"
	case models.ProjectTypeEcology:
		return "生态修复工程"
	}
	return ""
}
