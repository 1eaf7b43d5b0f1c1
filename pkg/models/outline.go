package models

// ============================================================================
// Outline
// ============================================================================

// OutlineSection defines one section of an outline template.
type OutlineSection struct {
	ID          string           `json:"id" yaml:"id"`
	Title       string           `json:"title" yaml:"title"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	Children    []OutlineSection `json:"children,omitempty" yaml:"children,omitempty"`
}

// Outline is an externally supplied ordered list of section definitions for
// a given project type. Read-only to the generation core.
type Outline struct {
	ProjectType ProjectType      `json:"project_type" yaml:"project_type"`
	Sections    []OutlineSection `json:"sections" yaml:"sections"`
}

// Template pairs an outline with a display name. Templates are looked up by
// id when a report is created.
type Template struct {
	ID          string           `json:"id" yaml:"id"`
	Name        string           `json:"name" yaml:"name"`
	ProjectType ProjectType      `json:"project_type" yaml:"project_type"`
	Sections    []OutlineSection `json:"sections" yaml:"sections"`
}

// MaterializeSections turns outline definitions into empty report sections,
// preserving order.
func MaterializeSections(defs []OutlineSection) []Section {
	sections := make([]Section, len(defs))
	for i, d := range defs {
		var subsections []string
		for _, child := range d.Children {
			subsections = append(subsections, child.Title)
		}
		sections[i] = Section{
			ID:          d.ID,
			Title:       d.Title,
			Description: d.Description,
			Subsections: subsections,
		}
	}
	return sections
}
