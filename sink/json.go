package sink

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"ewintr.nl/vidharvest/model"
	"github.com/google/renameio/v2"
)

// WriteError means a sink file could not be written. The merge did not
// happen.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// MetadataFile is a JSON array of video records keyed by "id". Fields this
// program does not know about are kept as they are.
type MetadataFile struct {
	path   string
	logger *slog.Logger
}

func NewMetadataFile(path string, logger *slog.Logger) *MetadataFile {
	return &MetadataFile{path: path, logger: logger}
}

func (f *MetadataFile) Path() string { return f.path }

// Merge adds videos to the file and returns the number of unique records in
// it afterwards.
func (f *MetadataFile) Merge(videos []model.Video) (int, error) {
	existing := readJSON[[]json.RawMessage](f.path, f.logger)

	entries := make([]json.RawMessage, 0, len(existing)+len(videos))
	entries = append(entries, existing...)
	for _, video := range videos {
		data, err := json.Marshal(video)
		if err != nil {
			return 0, &WriteError{Path: f.path, Err: err}
		}
		entries = append(entries, data)
	}

	unique := dedup(entries, recordID)
	if err := WriteJSON(f.path, unique); err != nil {
		return 0, err
	}
	f.logger.Info("appended videos", slog.String("file", f.path), slog.Int("count", len(videos)), slog.Int("unique", len(unique)))

	return len(unique), nil
}

// Count returns the number of records currently in the file.
func (f *MetadataFile) Count() int {
	existing := readJSON[[]json.RawMessage](f.path, f.logger)
	return len(existing)
}

func (f *MetadataFile) Prepare(reset bool) error {
	return prepare(f.path, reset)
}

// IDFile is a JSON array of video IDs.
type IDFile struct {
	path   string
	logger *slog.Logger
}

func NewIDFile(path string, logger *slog.Logger) *IDFile {
	return &IDFile{path: path, logger: logger}
}

func (f *IDFile) Path() string { return f.path }

func (f *IDFile) Merge(ids []model.YoutubeVideoID) (int, error) {
	existing := readJSON[[]model.YoutubeVideoID](f.path, f.logger)

	all := make([]model.YoutubeVideoID, 0, len(existing)+len(ids))
	all = append(all, existing...)
	all = append(all, ids...)

	unique := dedup(all, func(id model.YoutubeVideoID) (string, bool) { return string(id), true })
	if err := WriteJSON(f.path, unique); err != nil {
		return 0, err
	}
	f.logger.Info("appended video ids", slog.String("file", f.path), slog.Int("count", len(ids)), slog.Int("unique", len(unique)))

	return len(unique), nil
}

func (f *IDFile) Count() int {
	existing := readJSON[[]model.YoutubeVideoID](f.path, f.logger)
	return len(existing)
}

func (f *IDFile) Prepare(reset bool) error {
	return prepare(f.path, reset)
}

// dedup keeps one entry per key: the last value, at the position of the
// first occurrence. Entries without a key are kept as they are.
func dedup[T any](entries []T, key func(T) (string, bool)) []T {
	index := make(map[string]int, len(entries))
	unique := make([]T, 0, len(entries))
	for _, entry := range entries {
		k, ok := key(entry)
		if !ok {
			unique = append(unique, entry)
			continue
		}
		if i, seen := index[k]; seen {
			unique[i] = entry
			continue
		}
		index[k] = len(unique)
		unique = append(unique, entry)
	}

	return unique
}

func recordID(raw json.RawMessage) (string, bool) {
	var record struct {
		ID *string `json:"id"`
	}
	if err := json.Unmarshal(raw, &record); err != nil || record.ID == nil {
		return "", false
	}
	return *record.ID, true
}

// readJSON decodes the file at path. A missing, unreadable or invalid file
// reads as the zero value.
func readJSON[T any](path string, logger *slog.Logger) T {
	var v T
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return v
	}
	if err != nil {
		logger.Warn("could not read sink file, starting empty", slog.String("file", path), slog.Any("error", err))
		return v
	}
	if err := json.Unmarshal(data, &v); err != nil {
		logger.Warn("invalid sink file, starting empty", slog.String("file", path), slog.Any("error", err))
		var zero T
		return zero
	}
	return v
}

// WriteJSON writes v as indented JSON and atomically replaces path. An
// existing file keeps its permissions, a new one gets 0644.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := renameio.WriteFile(path, data, 0644, renameio.WithExistingPermissions()); err != nil {
		return &WriteError{Path: path, Err: err}
	}

	return nil
}

func prepare(path string, reset bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if !reset {
		return nil
	}
	return WriteJSON(path, []any{})
}
