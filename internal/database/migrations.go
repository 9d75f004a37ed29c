package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS messages (
    idx INTEGER PRIMARY KEY,
    position INTEGER NOT NULL,
    time TEXT NOT NULL,
    location TEXT NOT NULL DEFAULT '',
    account TEXT NOT NULL DEFAULT '',
    message TEXT NOT NULL DEFAULT '',
    at_accounts TEXT NOT NULL DEFAULT '[]',
    tags TEXT NOT NULL DEFAULT '[]',
    message_words TEXT NOT NULL DEFAULT '',
    message_revised TEXT NOT NULL DEFAULT '',
    emotion REAL,
    topic TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS lexicon (
    word TEXT PRIMARY KEY,
    position INTEGER NOT NULL,
    messages TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS graph_nodes (
    idx INTEGER PRIMARY KEY,
    position INTEGER NOT NULL,
    word TEXT NOT NULL,
    messages TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS graph_edges (
    source INTEGER NOT NULL REFERENCES graph_nodes(idx),
    target INTEGER NOT NULL REFERENCES graph_nodes(idx),
    position INTEGER NOT NULL,
    weight REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS blocklist (
    word TEXT PRIMARY KEY,
    position INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_position ON messages(position);
CREATE INDEX IF NOT EXISTS idx_messages_time ON messages(time);
CREATE INDEX IF NOT EXISTS idx_messages_location ON messages(location);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "import history",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS imports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source TEXT NOT NULL,
    message_count INTEGER NOT NULL DEFAULT 0,
    lexicon_count INTEGER NOT NULL DEFAULT 0,
    node_count INTEGER NOT NULL DEFAULT 0,
    edge_count INTEGER NOT NULL DEFAULT 0,
    imported_at TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
