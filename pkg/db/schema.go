package db

const (
	// SchemaV1 defines the SQL statements for version 1 of the database schema.
	// This schema pertains to the 'dreamsdb' component.
	SchemaV1 = `
CREATE TABLE IF NOT EXISTS dreams_versions (
    component TEXT PRIMARY KEY,
    version INTEGER NOT NULL,
    created_at REAL DEFAULT (unixepoch())
);

CREATE TABLE IF NOT EXISTS entries (
    id UUID PRIMARY KEY,
    date DATETIME NOT NULL,
    text TEXT NOT NULL DEFAULT '',
    is_lucid BOOLEAN NOT NULL DEFAULT FALSE,
    created_at REAL DEFAULT (unixepoch()),
    updated_at REAL DEFAULT (unixepoch())
);

CREATE TABLE IF NOT EXISTS patterns (
    label VARCHAR(256) PRIMARY KEY,
    category VARCHAR(32) NOT NULL DEFAULT 'other'
        CHECK (category IN ('action', 'place', 'character', 'object', 'emotion', 'color', 'sound', 'other')),
    created_at REAL DEFAULT (unixepoch()),
    updated_at REAL DEFAULT (unixepoch())
);

CREATE TABLE IF NOT EXISTS associations (
    entry_id UUID NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
    pattern_label VARCHAR(256) NOT NULL REFERENCES patterns(label) ON DELETE CASCADE,
    is_recognition_clue BOOLEAN NOT NULL DEFAULT FALSE,
    position INTEGER NOT NULL DEFAULT 0,
    created_at REAL DEFAULT (unixepoch()),
    PRIMARY KEY (entry_id, pattern_label)
);

CREATE INDEX IF NOT EXISTS idx_associations_pattern ON associations(pattern_label);
CREATE INDEX IF NOT EXISTS idx_entries_date ON entries(date);
`
)
