package database

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// getSchemaVersion reads PRAGMA user_version from the database.
func getSchemaVersion(conn *sql.DB) (int, error) {
	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// countTables reports how many user tables exist.
func countTables(conn *sql.DB) (int, error) {
	var n int
	err := conn.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'",
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("listing tables: %w", err)
	}
	return n, nil
}

// migrate applies every pending migration, each in its own transaction.
// A file that already holds tables but no schema version was not created
// by crisisboard and is left untouched, as is one written by a newer build.
func migrate(conn *sql.DB, log zerolog.Logger) error {
	current, err := getSchemaVersion(conn)
	if err != nil {
		return err
	}

	latest := latestVersion()
	switch {
	case current > latest:
		return fmt.Errorf("schema version %d is newer than this build supports (%d)", current, latest)
	case current == latest:
		return nil
	case current == 0:
		tables, err := countTables(conn)
		if err != nil {
			return err
		}
		if tables > 0 {
			return fmt.Errorf("database has %d tables but no schema version; not a crisisboard database", tables)
		}
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		log.Info().Int("version", m.Version).Str("description", m.Description).Msg("applying migration")

		tx, err := conn.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if err := m.Up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}

		// modernc/sqlite ignores user_version changes inside a transaction.
		if _, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
			return fmt.Errorf("setting version %d: %w", m.Version, err)
		}
	}
	return nil
}
