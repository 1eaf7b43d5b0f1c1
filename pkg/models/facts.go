package models

// ============================================================================
// Project Types
// ============================================================================

// ProjectType classifies the kind of engineering project a report describes.
type ProjectType string

const (
	ProjectTypeHighway   ProjectType = "highway"
	ProjectTypeMunicipal ProjectType = "municipal"
	ProjectTypeEcology   ProjectType = "ecology"
)

// ValidProjectTypes contains all valid project type values.
var ValidProjectTypes = []ProjectType{
	ProjectTypeHighway,
	ProjectTypeMunicipal,
	ProjectTypeEcology,
}

// IsValidProjectType checks if the given type is valid.
func IsValidProjectType(t ProjectType) bool {
	for _, v := range ValidProjectTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ============================================================================
// Fact Fields
// ============================================================================

// FactField identifies one attribute of ProjectFacts. Used by the linkage
// table and by explicit fact edits.
type FactField string

const (
	FactFieldType       FactField = "type"
	FactFieldName       FactField = "name"
	FactFieldLocation   FactField = "location"
	FactFieldScale      FactField = "scale"
	FactFieldInvestment FactField = "investment"
)

// ValidFactFields contains all fact fields that can be explicitly edited.
var ValidFactFields = []FactField{
	FactFieldName,
	FactFieldLocation,
	FactFieldScale,
	FactFieldInvestment,
}

// IsEditableFactField checks whether the field accepts explicit edits.
// The project type is fixed once detected because it determines the outline.
func IsEditableFactField(f FactField) bool {
	for _, v := range ValidFactFields {
		if v == f {
			return true
		}
	}
	return false
}

// ============================================================================
// Project Facts
// ============================================================================

// ProjectFacts holds the structured project attributes inferred from
// conversation. Each field is set at most once by extraction; only an
// explicit edit replaces a non-empty value.
type ProjectFacts struct {
	ProjectType ProjectType `json:"project_type,omitempty"`
	Name        string      `json:"name,omitempty"`
	Location    string      `json:"location,omitempty"`
	Scale       string      `json:"scale,omitempty"`
	Investment  string      `json:"investment,omitempty"`
}

// HasType returns true if the project type has been detected.
func (f ProjectFacts) HasType() bool {
	return f.ProjectType != ""
}

// Ready returns true once enough is known to present an outline:
// type, name and location are all non-empty.
func (f ProjectFacts) Ready() bool {
	return f.ProjectType != "" && f.Name != "" && f.Location != ""
}

// Get returns the current value of a fact field.
func (f ProjectFacts) Get(field FactField) string {
	switch field {
	case FactFieldType:
		return string(f.ProjectType)
	case FactFieldName:
		return f.Name
	case FactFieldLocation:
		return f.Location
	case FactFieldScale:
		return f.Scale
	case FactFieldInvestment:
		return f.Investment
	}
	return ""
}

// WithEdit returns a copy with one field explicitly replaced. This is the
// only path that may overwrite a non-empty value.
func (f ProjectFacts) WithEdit(field FactField, value string) ProjectFacts {
	switch field {
	case FactFieldName:
		f.Name = value
	case FactFieldLocation:
		f.Location = value
	case FactFieldScale:
		f.Scale = value
	case FactFieldInvestment:
		f.Investment = value
	}
	return f
}

// Merge returns a copy of f with empty fields filled from other.
// Non-empty fields in f always win - extraction never overwrites.
func (f ProjectFacts) Merge(other ProjectFacts) ProjectFacts {
	if f.ProjectType == "" {
		f.ProjectType = other.ProjectType
	}
	if f.Name == "" {
		f.Name = other.Name
	}
	if f.Location == "" {
		f.Location = other.Location
	}
	if f.Scale == "" {
		f.Scale = other.Scale
	}
	if f.Investment == "" {
		f.Investment = other.Investment
	}
	return f
}
