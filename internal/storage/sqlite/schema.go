package sqlite

// schemaV1 is the initial relational layout. Key columns exist for lookup
// and filtering; the data blob is authoritative.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS projects (
    name TEXT PRIMARY KEY,
    id   TEXT NOT NULL UNIQUE,
    data BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS entities (
    project_id TEXT NOT NULL,
    name       TEXT NOT NULL,
    data       BLOB NOT NULL,
    PRIMARY KEY (project_id, name)
);

CREATE TABLE IF NOT EXISTS relations (
    project_id    TEXT NOT NULL,
    from_name     TEXT NOT NULL,
    to_name       TEXT NOT NULL,
    relation_type TEXT NOT NULL,
    data          BLOB NOT NULL,
    PRIMARY KEY (project_id, from_name, to_name, relation_type)
);

CREATE INDEX IF NOT EXISTS idx_entities_project ON entities(project_id);
CREATE INDEX IF NOT EXISTS idx_relations_project ON relations(project_id);
CREATE INDEX IF NOT EXISTS idx_relations_from ON relations(project_id, from_name);
CREATE INDEX IF NOT EXISTS idx_relations_to ON relations(project_id, to_name);
`

// migrations[v] moves the schema from v-1 to v.
var migrations = map[int]string{
	1: schemaV1,
}

// pragmas is appended to the file DSN.
const pragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=cache_size(-64000)"
