package knowledge

import (
	"context"
	"slices"
	"strings"

	"github.com/omar16100/parsnip/internal/models"
)

// SearchQuery is an exact, case-insensitive substring search. Empty Text
// matches every entity; the type and tag filters still apply.
type SearchQuery struct {
	Text        string   `json:"query"`
	EntityTypes []string `json:"entity_types,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Limit       int      `json:"limit,omitempty"`
}

// Search matches the query text against names, types, observations and tags.
// An entity must carry every requested tag. Results keep storage order.
func (s *Service) Search(ctx context.Context, p *models.Project, q SearchQuery) ([]models.Entity, error) {
	entities, err := s.ListEntities(ctx, p)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(q.Text)
	out := make([]models.Entity, 0)
	for _, e := range entities {
		if len(q.EntityTypes) > 0 && !slices.Contains(q.EntityTypes, e.EntityType) {
			continue
		}
		if !hasAllTags(&e, q.Tags) {
			continue
		}
		if needle != "" && !matches(&e, needle) {
			continue
		}
		out = append(out, e)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func hasAllTags(e *models.Entity, tags []string) bool {
	for _, t := range tags {
		if !e.HasTag(t) {
			return false
		}
	}
	return true
}

func matches(e *models.Entity, needle string) bool {
	if strings.Contains(strings.ToLower(e.Name), needle) ||
		strings.Contains(strings.ToLower(e.EntityType), needle) {
		return true
	}
	for _, o := range e.Observations {
		if strings.Contains(strings.ToLower(o.Content), needle) {
			return true
		}
	}
	for _, t := range e.Tags {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return false
}
