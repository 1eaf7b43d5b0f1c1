package outline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftforge/draftforge-engine/pkg/apperrors"
	"github.com/draftforge/draftforge-engine/pkg/models"
)

func TestLoadCatalog(t *testing.T) {
	catalog, err := Load()
	require.NoError(t, err)

	for _, projectType := range models.ValidProjectTypes {
		template, err := catalog.GetTemplateByType(projectType)
		require.NoError(t, err, "missing template for %s", projectType)
		assert.NotEmpty(t, template.ID)
		assert.NotEmpty(t, template.Name)
		assert.NotEmpty(t, template.Sections)
	}
}

func TestGetTemplateByID(t *testing.T) {
	catalog, err := Load()
	require.NoError(t, err)

	template, err := catalog.GetTemplateByID("highway-feasibility")
	require.NoError(t, err)
	assert.Equal(t, models.ProjectTypeHighway, template.ProjectType)
	assert.Equal(t, "总论", template.Sections[0].Title)

	_, err = catalog.GetTemplateByID("no-such-template")
	assert.ErrorIs(t, err, apperrors.ErrTemplateNotFound)
}

func TestGetOutline(t *testing.T) {
	catalog, err := Load()
	require.NoError(t, err)

	outline, err := catalog.GetOutline(models.ProjectTypeEcology)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectTypeEcology, outline.ProjectType)
	assert.NotEmpty(t, outline.Sections)

	_, err = catalog.GetOutline(models.ProjectType("railway"))
	assert.ErrorIs(t, err, apperrors.ErrTemplateNotFound)
}

func TestRenderNumbersSections(t *testing.T) {
	o := &models.Outline{
		ProjectType: models.ProjectTypeHighway,
		Sections: []models.OutlineSection{
			{ID: "a", Title: "总论", Description: "项目背景"},
			{ID: "b", Title: "工程方案", Children: []models.OutlineSection{
				{ID: "b1", Title: "路线方案比选"},
				{ID: "b2", Title: "技术标准"},
			}},
		},
	}

	text := Render(o)
	assert.Contains(t, text, "1. 总论（项目背景）")
	assert.Contains(t, text, "2. 工程方案")
	assert.Contains(t, text, "2.1 路线方案比选")
	assert.Contains(t, text, "2.2 技术标准")
}

func TestMaterializeSections(t *testing.T) {
	catalog, err := Load()
	require.NoError(t, err)

	template, err := catalog.GetTemplateByID("highway-feasibility")
	require.NoError(t, err)

	sections := models.MaterializeSections(template.Sections)
	require.Len(t, sections, len(template.Sections))
	for i, s := range sections {
		assert.Equal(t, template.Sections[i].ID, s.ID)
		assert.Equal(t, template.Sections[i].Title, s.Title)
		assert.Empty(t, s.Content)
	}

	// Child titles surface as subsections of the parent.
	var scheme *models.Section
	for i := range sections {
		if sections[i].ID == "scheme" {
			scheme = &sections[i]
		}
	}
	require.NotNil(t, scheme)
	assert.Equal(t, []string{"路线方案比选", "技术标准"}, scheme.Subsections)
}
