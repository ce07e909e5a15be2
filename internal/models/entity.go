package models

import (
	"slices"
	"time"
)

// Entity is a named, typed node. (ProjectID, Name) is its natural key.
type Entity struct {
	ID           EntityID       `json:"id"`
	ProjectID    ProjectID      `json:"project_id"`
	Name         string         `json:"name"`
	EntityType   string         `json:"entity_type"`
	Observations []Observation  `json:"observations"`
	Tags         []string       `json:"tags"`
	Metadata     map[string]any `json:"metadata"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`

	// Embedding is owned by the search layer; the core only stores it.
	Embedding []float32 `json:"embedding,omitempty"`
}

// NewEntity creates an entity with a fresh ID and no observations or tags.
func NewEntity(projectID ProjectID, name, entityType string) *Entity {
	now := Now()
	return &Entity{
		ID:           NewEntityID(),
		ProjectID:    projectID,
		Name:         name,
		EntityType:   entityType,
		Observations: []Observation{},
		Tags:         []string{},
		Metadata:     map[string]any{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// AddObservation appends a new observation and returns it.
func (e *Entity) AddObservation(content string) Observation {
	obs := NewObservation(content)
	e.Observations = append(e.Observations, obs)
	e.touch()
	return obs
}

// AppendObservation appends a prepared observation.
func (e *Entity) AppendObservation(obs Observation) {
	e.Observations = append(e.Observations, obs)
	e.touch()
}

// RemoveObservations drops the observations with the given IDs and returns how
// many were removed.
func (e *Entity) RemoveObservations(ids []ObservationID) int {
	before := len(e.Observations)
	e.Observations = slices.DeleteFunc(e.Observations, func(o Observation) bool {
		return slices.Contains(ids, o.ID)
	})
	removed := before - len(e.Observations)
	if removed > 0 {
		e.touch()
	}
	return removed
}

// AddTag adds tag unless it is already present. It reports whether the tag list changed.
func (e *Entity) AddTag(tag string) bool {
	if e.HasTag(tag) {
		return false
	}
	e.Tags = append(e.Tags, tag)
	e.touch()
	return true
}

// RemoveTag removes tag. It returns false, leaving the entity untouched, when the
// tag is absent.
func (e *Entity) RemoveTag(tag string) bool {
	i := slices.Index(e.Tags, tag)
	if i < 0 {
		return false
	}
	e.Tags = slices.Delete(e.Tags, i, i+1)
	e.touch()
	return true
}

// HasTag reports whether the entity carries tag.
func (e *Entity) HasTag(tag string) bool {
	return slices.Contains(e.Tags, tag)
}

// touch advances UpdatedAt, never moving it backwards even if the clock does.
func (e *Entity) touch() {
	now := Now()
	if !now.After(e.UpdatedAt) {
		now = e.UpdatedAt.Add(time.Nanosecond)
	}
	e.UpdatedAt = now
}

// NewEntityInput is the caller-supplied shape of an entity to create.
type NewEntityInput struct {
	Name         string         `json:"name"`
	EntityType   string         `json:"entity_type"`
	Observations []string       `json:"observations,omitempty"`
	Tags         []string       `json:"tags,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}
