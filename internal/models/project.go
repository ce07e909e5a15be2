package models

import "time"

// DefaultFuzzyThreshold is the fuzzy search threshold a new project starts with.
const DefaultFuzzyThreshold float32 = 0.3

// Project is a namespace that exclusively owns its entities and relations.
type Project struct {
	ID          ProjectID       `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	Settings    ProjectSettings `json:"settings"`
}

// ProjectSettings holds per-project search preferences consumed by the search layer.
type ProjectSettings struct {
	FulltextEnabled bool    `json:"fulltext_enabled"`
	FuzzyThreshold  float32 `json:"fuzzy_threshold"`
}

// DefaultProjectSettings returns the settings a new project starts with.
func DefaultProjectSettings() ProjectSettings {
	return ProjectSettings{
		FulltextEnabled: true,
		FuzzyThreshold:  DefaultFuzzyThreshold,
	}
}

// NewProject creates a project with a fresh ID and default settings.
func NewProject(name string) *Project {
	return &Project{
		ID:        NewProjectID(),
		Name:      name,
		CreatedAt: Now(),
		Settings:  DefaultProjectSettings(),
	}
}

// WithDescription sets the project description and returns the project.
func (p *Project) WithDescription(description string) *Project {
	p.Description = &description
	return p
}

// ValidProjectName reports whether name is non-empty, at most MaxProjectNameLen
// bytes, and made only of ASCII letters, digits, underscores and hyphens.
func ValidProjectName(name string) bool {
	if name == "" || len(name) > MaxProjectNameLen {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}
