package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ewintr.nl/vidharvest/feed"
	"ewintr.nl/vidharvest/fetch"
	"ewintr.nl/vidharvest/model"
	"ewintr.nl/vidharvest/sink"
)

var ErrNoLookup = errors.New("no video lookup configured")

// Lookup fetches one video and writes it to the sink. The video is tagged
// with searchName, or with its own ID when searchName is empty. It returns
// nil when the video does not exist or does not meet the thresholds.
func (h *Harvester) Lookup(ctx context.Context, id model.YoutubeVideoID, searchName string, quality fetch.Quality) (*model.Video, error) {
	if h.lookup == nil {
		return nil, ErrNoLookup
	}
	if err := h.sink.Prepare(false); err != nil {
		return nil, fmt.Errorf("prepare output: %w", err)
	}

	video, err := h.lookup.Video(ctx, id, quality)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", id, err)
	}
	if video == nil {
		h.logger.Warn("no metadata found for video", slog.String("id", string(id)))
		return nil, nil
	}

	video.SearchName = searchName
	if video.SearchName == "" {
		video.SearchName = string(video.ID)
	}
	if _, err := h.sink.Write(ctx, []model.Video{*video}); err != nil {
		return nil, err
	}
	h.logger.Info("processed video", slog.String("id", string(video.ID)), slog.String("searchname", video.SearchName))

	return video, nil
}

type FeedReader interface {
	Unread() ([]feed.Entry, error)
	MarkRead(entryID int64) error
}

// IngestFeed looks up the video of every unread entry. An entry is marked
// read once its video was written, or when the video does not qualify. Failed
// entries stay unread for the next round. It returns the number of videos
// written.
func (h *Harvester) IngestFeed(ctx context.Context, reader FeedReader, searchName string, quality fetch.Quality) (int, error) {
	entries, err := reader.Unread()
	if err != nil {
		return 0, err
	}
	h.logger.Info("fetched unread entries", slog.Int("count", len(entries)))

	count := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		name := searchName
		if name == "" {
			name = string(entry.YoutubeChannelID)
		}
		video, err := h.Lookup(ctx, entry.YoutubeID, name, quality)
		if err != nil {
			if isFatal(err) {
				return count, err
			}
			h.logger.Error("failed to ingest entry", slog.Int64("entryid", entry.EntryID), slog.String("id", string(entry.YoutubeID)), slog.Any("error", err))
			continue
		}
		if video != nil {
			count++
		}
		if err := reader.MarkRead(entry.EntryID); err != nil {
			h.logger.Error("failed to mark entry as read", slog.Int64("entryid", entry.EntryID), slog.Any("error", err))
		}
	}

	return count, nil
}

// isFatal reports whether an entry error should stop the round. A full quota
// fails every following lookup as well.
func isFatal(err error) bool {
	var writeErr *sink.WriteError
	var quotaErr *fetch.QuotaError
	return errors.As(err, &writeErr) || errors.As(err, &quotaErr)
}

// WatchFeed runs IngestFeed every interval until ctx is done. Failed rounds
// are logged and retried on the next tick, except for write errors.
func (h *Harvester) WatchFeed(ctx context.Context, reader FeedReader, interval time.Duration, searchName string, quality fetch.Quality) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		count, err := h.IngestFeed(ctx, reader, searchName, quality)
		var writeErr *sink.WriteError
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.As(err, &writeErr):
			return err
		case err != nil:
			h.logger.Error("feed round failed", slog.Any("error", err))
		default:
			h.logger.Info("feed round finished", slog.Int("count", count))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
