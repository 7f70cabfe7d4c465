package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ewintr.nl/vidharvest/model"
)

type dialect struct {
	name           string
	dollarParams   bool
	migrationTable string
	migrations     []string
}

// SQL implements Store on database/sql. Postgres and SQLite only differ in
// their dialect.
type SQL struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

func newSQL(ctx context.Context, db *sql.DB, d dialect) (*SQL, error) {
	s := &SQL{
		db:      db,
		dialect: d,
		now:     time.Now,
	}
	if err := s.migrate(ctx, d.migrations); err != nil {
		return nil, fmt.Errorf("%s migration failed: %w", d.name, err)
	}

	return s, nil
}

func (s *SQL) Close() error {
	return s.db.Close()
}

func (s *SQL) UpsertVideo(ctx context.Context, video model.Video) error {
	query := s.rebind(`
INSERT INTO video
(video_id, search_name, title, description, published_date, duration_seconds, view_count, url, channel_name)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (video_id) DO UPDATE SET
search_name = excluded.search_name,
title = excluded.title,
description = excluded.description,
published_date = excluded.published_date,
duration_seconds = excluded.duration_seconds,
view_count = excluded.view_count,
url = excluded.url,
channel_name = excluded.channel_name`)

	var published any
	if video.PublishedAt != nil {
		published = formatTime(*video.PublishedAt)
	}
	if _, err := s.db.ExecContext(ctx, query,
		string(video.ID), video.SearchName, video.Title, video.Description, published,
		video.DurationSeconds, video.ViewCount, video.URL, video.ChannelName,
	); err != nil {
		return fmt.Errorf("upsert video %s: %w", video.ID, err)
	}

	return nil
}

func (s *SQL) FindVideo(ctx context.Context, id model.YoutubeVideoID) (model.Video, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
SELECT video_id, search_name, title, description, published_date, duration_seconds, view_count, url, channel_name
FROM video
WHERE video_id = ?`), string(id))

	video, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Video{}, ErrNotFound
	}
	return video, err
}

func (s *SQL) FindBySearchName(ctx context.Context, searchName string) ([]model.Video, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
SELECT video_id, search_name, title, description, published_date, duration_seconds, view_count, url, channel_name
FROM video
WHERE search_name = ?
ORDER BY video_id`), searchName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	videos := []model.Video{}
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}

	return videos, rows.Err()
}

func (s *SQL) UpsertSearchDefinition(ctx context.Context, def model.SearchDefinition) error {
	if def.UserID == "" {
		def.UserID = model.DefaultUserID
	}
	query := s.rebind(`
INSERT INTO search_config
(user_id, search_phrase, search_name, creation_date)
VALUES (?, ?, ?, ?)
ON CONFLICT (search_name) DO UPDATE SET
user_id = excluded.user_id,
search_phrase = excluded.search_phrase,
creation_date = excluded.creation_date`)

	if _, err := s.db.ExecContext(ctx, query, def.UserID, def.Expression, def.SearchName, formatTime(s.now())); err != nil {
		return fmt.Errorf("upsert search definition %s: %w", def.SearchName, err)
	}

	return nil
}

func (s *SQL) FindSearchDefinition(ctx context.Context, searchName string) (model.SearchDefinition, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
SELECT search_name, user_id, search_phrase, creation_date
FROM search_config
WHERE search_name = ?`), searchName)

	def, err := scanDefinition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SearchDefinition{}, ErrNotFound
	}
	return def, err
}

func (s *SQL) ListSearchDefinitions(ctx context.Context) ([]model.SearchDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT search_name, user_id, search_phrase, creation_date
FROM search_config
ORDER BY search_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	defs := []model.SearchDefinition{}
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	return defs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVideo(row scanner) (model.Video, error) {
	var (
		video     model.Video
		id        string
		published sql.NullString
	)
	if err := row.Scan(&id, &video.SearchName, &video.Title, &video.Description, &published,
		&video.DurationSeconds, &video.ViewCount, &video.URL, &video.ChannelName); err != nil {
		return model.Video{}, err
	}
	video.ID = model.YoutubeVideoID(id)
	if published.Valid {
		t, err := parseTime(published.String)
		if err != nil {
			return model.Video{}, err
		}
		video.PublishedAt = &t
	}

	return video, nil
}

func scanDefinition(row scanner) (model.SearchDefinition, error) {
	var (
		def     model.SearchDefinition
		created string
	)
	if err := row.Scan(&def.SearchName, &def.UserID, &def.Expression, &created); err != nil {
		return model.SearchDefinition{}, err
	}
	t, err := parseTime(created)
	if err != nil {
		return model.SearchDefinition{}, err
	}
	def.CreatedAt = t

	return def, nil
}

// rebind turns ? placeholders into $n for dialects that need it.
func (s *SQL) rebind(query string) string {
	if !s.dialect.dollarParams {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
