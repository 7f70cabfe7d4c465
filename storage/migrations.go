package storage

import (
	"context"
	"fmt"
)

var pgMigration = []string{
	`CREATE TABLE video (
video_id VARCHAR(255) PRIMARY KEY,
search_name VARCHAR(255) NOT NULL,
title TEXT NOT NULL,
description TEXT NOT NULL DEFAULT '',
published_date TIMESTAMPTZ,
duration_seconds INTEGER NOT NULL DEFAULT 0,
view_count BIGINT NOT NULL DEFAULT 0,
url TEXT NOT NULL,
channel_name TEXT NOT NULL DEFAULT ''
)`,
	`CREATE INDEX video_search_name_idx ON video (search_name)`,
	`CREATE TABLE search_config (
search_name VARCHAR(255) PRIMARY KEY,
user_id VARCHAR(255) NOT NULL,
search_phrase TEXT NOT NULL,
creation_date TIMESTAMPTZ NOT NULL
)`,
}

var sqliteMigration = []string{
	`CREATE TABLE video (
video_id TEXT PRIMARY KEY,
search_name TEXT NOT NULL,
title TEXT NOT NULL,
description TEXT NOT NULL DEFAULT '',
published_date TEXT,
duration_seconds INTEGER NOT NULL DEFAULT 0,
view_count INTEGER NOT NULL DEFAULT 0,
url TEXT NOT NULL,
channel_name TEXT NOT NULL DEFAULT ''
)`,
	`CREATE INDEX video_search_name_idx ON video (search_name)`,
	`CREATE TABLE search_config (
search_name TEXT PRIMARY KEY,
user_id TEXT NOT NULL,
search_phrase TEXT NOT NULL,
creation_date TEXT NOT NULL
)`,
}

func (s *SQL) migrate(ctx context.Context, wanted []string) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.migrationTable); err != nil {
		return err
	}

	// find existing
	rows, err := s.db.QueryContext(ctx, `SELECT query FROM migration ORDER BY id`)
	if err != nil {
		return err
	}

	existing := []string{}
	for rows.Next() {
		var query string
		if err := rows.Scan(&query); err != nil {
			rows.Close()
			return err
		}
		existing = append(existing, query)
	}
	rows.Close()

	// compare
	missing, err := compareMigrations(wanted, existing)
	if err != nil {
		return err
	}

	// execute missing
	for _, query := range missing {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return err
		}

		// register
		if _, err := s.db.ExecContext(ctx, s.rebind(`
INSERT INTO migration
(query) VALUES (?)
`), query); err != nil {
			return err
		}
	}

	return nil
}

func compareMigrations(wanted, existing []string) ([]string, error) {
	needed := []string{}
	if len(wanted) < len(existing) {
		return []string{}, fmt.Errorf("not enough migrations")
	}

	for i, want := range wanted {
		switch {
		case i >= len(existing):
			needed = append(needed, want)
		case want == existing[i]:
			// do nothing
		case want != existing[i]:
			return []string{}, fmt.Errorf("incompatible migration: %v", want)
		}
	}

	return needed, nil
}
