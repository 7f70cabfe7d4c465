package sink

import (
	"context"
	"fmt"
	"log/slog"

	"ewintr.nl/vidharvest/model"
	"ewintr.nl/vidharvest/storage"
)

// PersistError is a failed store write for one record. It is reported and
// does not stop the pass.
type PersistError struct {
	VideoID model.YoutubeVideoID
	Store   string
	Err     error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s to %s: %v", e.VideoID, e.Store, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// NamedRepository is a store with a name for reporting.
type NamedRepository struct {
	Name string
	Repo storage.VideoRepository
}

type Result struct {
	Accepted       int
	UniqueMetadata int
	UniqueIDs      int
	Failures       []*PersistError
}

// Sink writes accepted videos to the JSON files and the stores. Either file
// may be nil.
type Sink struct {
	metadata *MetadataFile
	ids      *IDFile
	stores   []NamedRepository
	logger   *slog.Logger
}

func New(metadata *MetadataFile, ids *IDFile, stores []NamedRepository, logger *slog.Logger) *Sink {
	return &Sink{
		metadata: metadata,
		ids:      ids,
		stores:   stores,
		logger:   logger,
	}
}

// Prepare creates the directories for the files and, with reset, empties
// them.
func (s *Sink) Prepare(reset bool) error {
	if s.metadata != nil {
		if err := s.metadata.Prepare(reset); err != nil {
			return err
		}
	}
	if s.ids != nil {
		if err := s.ids.Prepare(reset); err != nil {
			return err
		}
	}

	return nil
}

// Write merges videos into both files and then upserts each into every store.
// A file error is returned and ends the pass. Store errors are collected per
// record in the result.
func (s *Sink) Write(ctx context.Context, videos []model.Video) (Result, error) {
	res := Result{Accepted: len(videos)}
	if len(videos) == 0 {
		return res, nil
	}

	if s.metadata != nil {
		unique, err := s.metadata.Merge(videos)
		if err != nil {
			return res, err
		}
		res.UniqueMetadata = unique
	}
	if s.ids != nil {
		ids := make([]model.YoutubeVideoID, 0, len(videos))
		for _, video := range videos {
			ids = append(ids, video.ID)
		}
		unique, err := s.ids.Merge(ids)
		if err != nil {
			return res, err
		}
		res.UniqueIDs = unique
	}

	for _, video := range videos {
		for _, store := range s.stores {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			if err := store.Repo.UpsertVideo(ctx, video); err != nil {
				perr := &PersistError{VideoID: video.ID, Store: store.Name, Err: err}
				s.logger.Error("could not persist video", slog.String("id", string(video.ID)), slog.String("store", store.Name), slog.Any("error", err))
				res.Failures = append(res.Failures, perr)
				continue
			}
			s.logger.Debug("persisted video", slog.String("id", string(video.ID)), slog.String("store", store.Name))
		}
	}

	return res, nil
}

// Totals returns the number of unique entries in the files, -1 for a file
// that is not configured.
func (s *Sink) Totals() (int, int) {
	metadata, ids := -1, -1
	if s.metadata != nil {
		metadata = s.metadata.Count()
	}
	if s.ids != nil {
		ids = s.ids.Count()
	}
	return metadata, ids
}
