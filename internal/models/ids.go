package models

import (
	"time"

	"github.com/google/uuid"
)

// ProjectID identifies a project. IDs are UUIDv7 strings, so they sort by creation time.
type ProjectID string

// EntityID identifies an entity.
type EntityID string

// ObservationID identifies an observation.
type ObservationID string

// RelationID identifies a relation.
type RelationID string

func (id ProjectID) String() string     { return string(id) }
func (id EntityID) String() string      { return string(id) }
func (id ObservationID) String() string { return string(id) }
func (id RelationID) String() string    { return string(id) }

// NewProjectID returns a fresh, time-ordered project ID.
func NewProjectID() ProjectID { return ProjectID(newID()) }

// NewEntityID returns a fresh, time-ordered entity ID.
func NewEntityID() EntityID { return EntityID(newID()) }

// NewObservationID returns a fresh, time-ordered observation ID.
func NewObservationID() ObservationID { return ObservationID(newID()) }

// NewRelationID returns a fresh, time-ordered relation ID.
func NewRelationID() RelationID { return RelationID(newID()) }

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does.
		return uuid.New().String()
	}
	return id.String()
}

// Now returns the current time in UTC without a monotonic reading, which is the
// form every timestamp takes after a storage round-trip.
func Now() time.Time {
	return time.Now().UTC().Round(0)
}
