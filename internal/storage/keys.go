package storage

import (
	"strings"

	"github.com/omar16100/parsnip/internal/models"
)

// Logical key shapes shared by the key-addressed backends. Name components
// escape '\' and ':', so distinct tuples never share a key. Project IDs are
// generated and never contain either character.

var keyEscaper = strings.NewReplacer(`\`, `\\`, `:`, `\:`)

func escapeKey(s string) string { return keyEscaper.Replace(s) }

// EntityKey is "{project_id}:{name}".
func EntityKey(projectID models.ProjectID, name string) string {
	return ProjectPrefix(projectID) + escapeKey(name)
}

// RelationKey is "{project_id}:{from}:{to}:{type}".
func RelationKey(projectID models.ProjectID, from, to, relationType string) string {
	return ProjectPrefix(projectID) + escapeKey(from) + ":" + escapeKey(to) + ":" + escapeKey(relationType)
}

// ProjectPrefix is the prefix shared by every entity and relation key of a project.
func ProjectPrefix(projectID models.ProjectID) string {
	return string(projectID) + ":"
}

// ProjectKey is the bare project name.
func ProjectKey(name string) string { return name }
