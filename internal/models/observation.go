package models

import "time"

// Observation is an immutable fact attached to an entity.
type Observation struct {
	ID         ObservationID `json:"id"`
	Content    string        `json:"content"`
	Source     *string       `json:"source,omitempty"`
	Confidence *float32      `json:"confidence,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// NewObservation creates an observation with a fresh ID.
func NewObservation(content string) Observation {
	return Observation{
		ID:        NewObservationID(),
		Content:   content,
		CreatedAt: Now(),
	}
}

// WithSource records where the observation came from.
func (o Observation) WithSource(source string) Observation {
	o.Source = &source
	return o
}

// WithConfidence sets the confidence, clamped to [0, 1].
func (o Observation) WithConfidence(confidence float32) Observation {
	switch {
	case confidence < 0:
		confidence = 0
	case confidence > 1:
		confidence = 1
	}
	o.Confidence = &confidence
	return o
}
