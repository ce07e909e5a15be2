package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Direction selects which edges are followed from a node during traversal.
type Direction int

const (
	Both Direction = iota
	Outgoing
	Incoming
)

func (d Direction) String() string {
	switch d {
	case Outgoing:
		return "outgoing"
	case Incoming:
		return "incoming"
	default:
		return "both"
	}
}

// ParseDirection parses "outgoing", "incoming" or "both". The empty string is Both.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "", "both":
		return Both, nil
	case "outgoing", "out":
		return Outgoing, nil
	case "incoming", "in":
		return Incoming, nil
	}
	return Both, fmt.Errorf("unknown direction %q (use outgoing, incoming or both)", s)
}

func (d Direction) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Direction) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDirection(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Relation is a directed, typed edge. It is addressed by
// (ProjectID, FromName, ToName, RelationType); saving a relation with the same
// tuple overwrites the previous one.
type Relation struct {
	ID           RelationID     `json:"id"`
	ProjectID    ProjectID      `json:"project_id"`
	FromID       EntityID       `json:"from_id"`
	FromName     string         `json:"from_name"`
	ToID         EntityID       `json:"to_id"`
	ToName       string         `json:"to_name"`
	RelationType string         `json:"relation_type"`
	Weight       *float64       `json:"weight,omitempty"`
	Metadata     map[string]any `json:"metadata"`
	CreatedAt    time.Time      `json:"created_at"`

	// Set only when an endpoint lives in another project than ProjectID.
	FromProjectID ProjectID `json:"from_project_id,omitempty"`
	ToProjectID   ProjectID `json:"to_project_id,omitempty"`
}

// NewRelation creates a relation between two existing entities.
func NewRelation(projectID ProjectID, from, to *Entity, relationType string) *Relation {
	r := &Relation{
		ID:           NewRelationID(),
		ProjectID:    projectID,
		FromID:       from.ID,
		FromName:     from.Name,
		ToID:         to.ID,
		ToName:       to.Name,
		RelationType: relationType,
		Metadata:     map[string]any{},
		CreatedAt:    Now(),
	}
	if from.ProjectID != projectID {
		r.FromProjectID = from.ProjectID
	}
	if to.ProjectID != projectID {
		r.ToProjectID = to.ProjectID
	}
	return r
}

// NewRelationByName creates a relation from endpoint names alone, generating
// placeholder endpoint IDs. Useful for fixtures and callers without entity records.
func NewRelationByName(projectID ProjectID, from, to, relationType string) *Relation {
	return &Relation{
		ID:           NewRelationID(),
		ProjectID:    projectID,
		FromID:       NewEntityID(),
		FromName:     from,
		ToID:         NewEntityID(),
		ToName:       to,
		RelationType: relationType,
		Metadata:     map[string]any{},
		CreatedAt:    Now(),
	}
}

// WithWeight sets the relation weight and returns the relation.
func (r *Relation) WithWeight(w float64) *Relation {
	r.Weight = &w
	return r
}

// EffectiveWeight is the weight used by weighted traversal: the stored weight, or 1.0.
func (r *Relation) EffectiveWeight() float64 {
	if r.Weight == nil {
		return 1.0
	}
	return *r.Weight
}

// Key returns the relation's functional key components.
func (r *Relation) Key() (ProjectID, string, string, string) {
	return r.ProjectID, r.FromName, r.ToName, r.RelationType
}

// NewRelationInput is the caller-supplied shape of a relation to create.
type NewRelationInput struct {
	From         string         `json:"from"`
	To           string         `json:"to"`
	RelationType string         `json:"relation_type"`
	Weight       *float64       `json:"weight,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`

	// Optional project names to resolve each endpoint in.
	FromProject string `json:"from_project,omitempty"`
	ToProject   string `json:"to_project,omitempty"`
}
