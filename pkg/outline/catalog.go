// Package outline holds the section outline catalog: one template per
// project type, loaded from an embedded YAML file. The catalog is a pure
// lookup and is read-only to the generation core.
package outline

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/draftforge/draftforge-engine/pkg/apperrors"
	"github.com/draftforge/draftforge-engine/pkg/models"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Catalog provides outline and template lookups.
type Catalog struct {
	templates map[string]*models.Template
	byType    map[models.ProjectType]*models.Template
}

type catalogFile struct {
	Templates []models.Template `yaml:"templates"`
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(catalogYAML, &file); err != nil {
		return nil, fmt.Errorf("failed to parse outline catalog: %w", err)
	}

	c := &Catalog{
		templates: make(map[string]*models.Template, len(file.Templates)),
		byType:    make(map[models.ProjectType]*models.Template, len(file.Templates)),
	}
	for i := range file.Templates {
		t := &file.Templates[i]
		if t.ID == "" || len(t.Sections) == 0 {
			return nil, fmt.Errorf("catalog template %q is incomplete", t.ID)
		}
		c.templates[t.ID] = t
		if _, dup := c.byType[t.ProjectType]; dup {
			return nil, fmt.Errorf("duplicate catalog template for project type %q", t.ProjectType)
		}
		c.byType[t.ProjectType] = t
	}
	return c, nil
}

// GetTemplateByID returns the template with the given id.
func (c *Catalog) GetTemplateByID(id string) (*models.Template, error) {
	t, ok := c.templates[id]
	if !ok {
		return nil, fmt.Errorf("template %q: %w", id, apperrors.ErrTemplateNotFound)
	}
	return t, nil
}

// GetTemplateByType returns the template registered for a project type.
func (c *Catalog) GetTemplateByType(projectType models.ProjectType) (*models.Template, error) {
	t, ok := c.byType[projectType]
	if !ok {
		return nil, fmt.Errorf("project type %q: %w", projectType, apperrors.ErrTemplateNotFound)
	}
	return t, nil
}

// GetOutline returns the outline for a project type.
func (c *Catalog) GetOutline(projectType models.ProjectType) (*models.Outline, error) {
	t, ok := c.byType[projectType]
	if !ok {
		return nil, fmt.Errorf("project type %q: %w", projectType, apperrors.ErrTemplateNotFound)
	}
	return &models.Outline{ProjectType: t.ProjectType, Sections: t.Sections}, nil
}

// Render formats an outline as numbered text for chat disclosure.
func Render(o *models.Outline) string {
	var b strings.Builder
	for i, s := range o.Sections {
		fmt.Fprintf(&b, "%d. %s", i+1, s.Title)
		if s.Description != "" {
			fmt.Fprintf(&b, "（%s）", s.Description)
		}
		b.WriteString("\n")
		for j, child := range s.Children {
			fmt.Fprintf(&b, "  %d.%d %s\n", i+1, j+1, child.Title)
		}
	}
	return b.String()
}
