package database

import (
	"database/sql"
	"time"
)

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM messages", &s.Messages},
		{"SELECT COUNT(DISTINCT location) FROM messages WHERE location != ''", &s.Locations},
		{"SELECT COUNT(DISTINCT topic) FROM messages WHERE topic != ''", &s.Topics},
		{"SELECT COUNT(*) FROM lexicon", &s.Words},
		{"SELECT COUNT(*) FROM graph_nodes", &s.GraphNodes},
		{"SELECT COUNT(*) FROM graph_edges", &s.GraphEdges},
		{"SELECT COUNT(*) FROM blocklist", &s.Blocked},
		{"SELECT COUNT(*) FROM imports", &s.Imports},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	var first, last sql.NullString
	if err := db.conn.QueryRow("SELECT MIN(time), MAX(time) FROM messages").Scan(&first, &last); err != nil {
		return nil, err
	}
	var err error
	if s.FirstTime, err = parseNullTime(first); err != nil {
		return nil, err
	}
	if s.LastTime, err = parseNullTime(last); err != nil {
		return nil, err
	}

	return s, nil
}

// GetLastImport returns the most recent import, or nil if none exist.
func (db *DB) GetLastImport() (*ImportRecord, error) {
	row := db.conn.QueryRow(
		`SELECT id, source, message_count, lexicon_count, node_count, edge_count, imported_at
		FROM imports ORDER BY id DESC LIMIT 1`,
	)

	var rec ImportRecord
	var importedAt string
	if err := row.Scan(&rec.ID, &rec.Source, &rec.MessageCount, &rec.LexiconCount,
		&rec.NodeCount, &rec.EdgeCount, &importedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	t, err := time.Parse(time.RFC3339, importedAt)
	if err != nil {
		return nil, err
	}
	rec.ImportedAt = t
	return &rec, nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
