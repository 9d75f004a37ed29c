package database

import (
	"database/sql"
	"strings"
)

// GetBlockList returns the stored block list in insertion order.
func (db *DB) GetBlockList() ([]string, error) {
	rows, err := db.conn.Query("SELECT word FROM blocklist ORDER BY position")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	words := []string{}
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		words = append(words, w)
	}
	return words, rows.Err()
}

// SaveBlockList replaces the stored block list.
func (db *DB) SaveBlockList(words []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM blocklist"); err != nil {
		return err
	}
	if err := insertBlockList(tx, words); err != nil {
		return err
	}
	return tx.Commit()
}

// insertBlockList skips blanks and case-insensitive duplicates.
func insertBlockList(tx *sql.Tx, words []string) error {
	seen := make(map[string]bool, len(words))
	position := 0
	for _, w := range words {
		w = strings.TrimSpace(w)
		key := strings.ToLower(w)
		if w == "" || seen[key] {
			continue
		}
		seen[key] = true
		if _, err := tx.Exec("INSERT INTO blocklist (word, position) VALUES (?, ?)", w, position); err != nil {
			return err
		}
		position++
	}
	return nil
}
