package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Sections
// ============================================================================

// Section is one titled content unit of a report. Sections are materialized
// from the chosen outline at report creation time with empty content, and
// generated independently in list order.
type Section struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Subsections []string `json:"subsections,omitempty"`
	Content     string   `json:"content"`
}

// IsGenerated returns true once the section carries content.
func (s *Section) IsGenerated() bool {
	return s.Content != ""
}

// ============================================================================
// Report
// ============================================================================

// Report is a persisted document under construction: the fact state gathered
// from conversation plus the ordered section list. Version is an optimistic
// concurrency counter bumped on every persisted write.
type Report struct {
	ID         uuid.UUID    `json:"id"`
	UserID     uuid.UUID    `json:"user_id"`
	Title      string       `json:"title"`
	TemplateID string       `json:"template_id"`
	Facts      ProjectFacts `json:"facts"`
	Sections   []Section    `json:"sections"`
	Version    int          `json:"version"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// SectionByID returns the section with the given id, or nil.
func (r *Report) SectionByID(id string) *Section {
	for i := range r.Sections {
		if r.Sections[i].ID == id {
			return &r.Sections[i]
		}
	}
	return nil
}

// SectionIDs returns the section ids in list order.
func (r *Report) SectionIDs() []string {
	ids := make([]string, len(r.Sections))
	for i, s := range r.Sections {
		ids[i] = s.ID
	}
	return ids
}

// MergeSections replaces matching sections by id, preserving list order.
// Unknown ids are ignored rather than appended - the outline owns membership.
func (r *Report) MergeSections(updated []Section) {
	byID := make(map[string]Section, len(updated))
	for _, s := range updated {
		byID[s.ID] = s
	}
	for i := range r.Sections {
		if s, ok := byID[r.Sections[i].ID]; ok {
			r.Sections[i] = s
		}
	}
}
