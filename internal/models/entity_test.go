package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntity(t *testing.T) {
	pid := NewProjectID()
	e := NewEntity(pid, "Alice", "person")

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, pid, e.ProjectID)
	assert.Equal(t, "Alice", e.Name)
	assert.Equal(t, "person", e.EntityType)
	assert.Empty(t, e.Observations)
	assert.Empty(t, e.Tags)
	assert.Equal(t, e.CreatedAt, e.UpdatedAt)
}

func TestEntityTags(t *testing.T) {
	e := NewEntity(NewProjectID(), "Alice", "person")

	before := e.UpdatedAt
	assert.True(t, e.AddTag("friend"))
	assert.True(t, e.UpdatedAt.After(before))

	stamp := e.UpdatedAt
	assert.False(t, e.AddTag("friend"))
	assert.Equal(t, []string{"friend"}, e.Tags)
	assert.Equal(t, stamp, e.UpdatedAt)

	assert.False(t, e.RemoveTag("colleague"))
	assert.Equal(t, []string{"friend"}, e.Tags)
	assert.Equal(t, stamp, e.UpdatedAt)

	assert.True(t, e.HasTag("friend"))
	assert.True(t, e.RemoveTag("friend"))
	assert.False(t, e.HasTag("friend"))
	assert.Empty(t, e.Tags)
}

func TestEntityObservations(t *testing.T) {
	e := NewEntity(NewProjectID(), "Alice", "person")
	first := e.AddObservation("likes tea")
	second := e.AddObservation("lives in Lisbon")
	require.Len(t, e.Observations, 2)
	assert.Equal(t, "likes tea", e.Observations[0].Content)
	assert.NotEqual(t, first.ID, second.ID)

	removed := e.RemoveObservations([]ObservationID{first.ID, "missing"})
	assert.Equal(t, 1, removed)
	require.Len(t, e.Observations, 1)
	assert.Equal(t, second.ID, e.Observations[0].ID)

	assert.Zero(t, e.RemoveObservations([]ObservationID{first.ID}))
}

func TestObservationConfidenceClamped(t *testing.T) {
	o := NewObservation("x").WithConfidence(1.7)
	require.NotNil(t, o.Confidence)
	assert.Equal(t, float32(1), *o.Confidence)

	o = o.WithConfidence(-0.2)
	assert.Equal(t, float32(0), *o.Confidence)

	o = o.WithConfidence(0.4).WithSource("chat")
	assert.Equal(t, float32(0.4), *o.Confidence)
	assert.Equal(t, "chat", *o.Source)
}

func TestProjectDefaults(t *testing.T) {
	p := NewProject("research")
	assert.Nil(t, p.Description)
	assert.True(t, p.Settings.FulltextEnabled)
	assert.Equal(t, float32(0.3), p.Settings.FuzzyThreshold)

	p.WithDescription("papers")
	require.NotNil(t, p.Description)
	assert.Equal(t, "papers", *p.Description)
}

func TestIDsSortByCreation(t *testing.T) {
	a := NewEntityID()
	b := NewEntityID()
	assert.Less(t, a.String(), b.String())
}

func TestRelationWeight(t *testing.T) {
	pid := NewProjectID()
	from := NewEntity(pid, "A", "node")
	to := NewEntity(pid, "B", "node")

	r := NewRelation(pid, from, to, "knows")
	assert.Nil(t, r.Weight)
	assert.Equal(t, 1.0, r.EffectiveWeight())
	assert.Empty(t, r.FromProjectID)

	r.WithWeight(2.5)
	assert.Equal(t, 2.5, r.EffectiveWeight())

	other := NewEntity(NewProjectID(), "C", "node")
	cross := NewRelation(pid, from, other, "knows")
	assert.Equal(t, other.ProjectID, cross.ToProjectID)
	assert.Empty(t, cross.FromProjectID)
}

func TestDirectionJSON(t *testing.T) {
	for _, d := range []Direction{Both, Outgoing, Incoming} {
		data, err := json.Marshal(d)
		require.NoError(t, err)

		var back Direction
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, d, back)
	}

	_, err := ParseDirection("sideways")
	assert.Error(t, err)
}
