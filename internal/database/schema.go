package database

const snapshotSchema = `
-- Merged anime records, one row per composite id
CREATE TABLE anime (
	id TEXT PRIMARY KEY,
	source_id TEXT NOT NULL,
	source_name TEXT NOT NULL,
	title TEXT NOT NULL,
	title_english TEXT,
	title_romaji TEXT,
	title_native TEXT,
	description TEXT,
	cover_image TEXT,
	average_score REAL,
	popularity INTEGER,
	episodes INTEGER,
	duration_minutes INTEGER,
	status TEXT,
	start_year INTEGER,
	genres TEXT,
	tags TEXT,
	demographics TEXT,
	studios TEXT,
	is_adult BOOLEAN NOT NULL DEFAULT 0,
	confidence REAL NOT NULL,
	exported_at TIMESTAMP NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX idx_anime_source_name ON anime(source_name);
CREATE INDEX idx_anime_title ON anime(title);
CREATE INDEX idx_anime_start_year ON anime(start_year);
CREATE INDEX idx_anime_average_score ON anime(average_score);

-- One row per export run, for the notifier
CREATE TABLE export_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	queries TEXT NOT NULL,
	record_count INTEGER NOT NULL,
	started_at TIMESTAMP NOT NULL,
	finished_at TIMESTAMP NOT NULL
);
`

// snapshotMigrations contains incremental schema changes applied in order
// based on the current user_version. Index 0 is empty because version 0
// uses the base schema.
var snapshotMigrations = []string{
	"",
}
