package fetch

import (
	"context"
	"fmt"
	"log/slog"
)

// Engine drives a Searcher page by page and hands every page to a consumer.
type Engine struct {
	searcher Searcher
	logger   *slog.Logger
}

func NewEngine(searcher Searcher, logger *slog.Logger) *Engine {
	return &Engine{
		searcher: searcher,
		logger:   logger,
	}
}

// Fetch runs query until the result cap is reached or the pages run out. It
// returns the number of records the consumer retained. A failing page ends
// the pass with a *PageError; the count returned with it covers the pages
// that were processed before.
func (e *Engine) Fetch(ctx context.Context, query string, opts Options, consumer PageConsumer) (int, error) {
	var (
		delivered int
		retained  int
		token     string
		seen      = map[string]bool{}
	)

	for page := 1; ; page++ {
		size := MaxPageSize
		if opts.MaxResults > 0 {
			remaining := opts.MaxResults - delivered
			if remaining <= 0 {
				break
			}
			size = min(size, remaining)
		}

		e.logger.Debug("fetching page", slog.String("query", query), slog.String("channelid", string(opts.ChannelID)), slog.Int("page", page), slog.String("pagetoken", token))
		res, err := e.searcher.Search(ctx, Request{
			Query:           query,
			ChannelID:       opts.ChannelID,
			PageToken:       token,
			PageSize:        size,
			PublishedAfter:  opts.PublishedAfter(),
			PublishedBefore: opts.PublishedBefore(),
			Quality:         opts.Quality(),
		})
		if err != nil {
			return retained, &PageError{Query: query, ChannelID: opts.ChannelID, Page: page, Err: err}
		}

		videos := res.Videos
		if opts.MaxResults > 0 && len(videos) > opts.MaxResults-delivered {
			videos = videos[:opts.MaxResults-delivered]
		}
		delivered += len(videos)

		if len(videos) > 0 {
			n, err := consumer.OnPage(ctx, videos)
			if err != nil {
				return retained, fmt.Errorf("process page %d: %w", page, err)
			}
			retained += n
		}
		e.logger.Info("fetched page", slog.String("query", query), slog.String("channelid", string(opts.ChannelID)), slog.Int("page", page), slog.Int("count", len(videos)), slog.Int("delivered", delivered), slog.Int("retained", retained))

		token = res.NextPageToken
		if token == "" {
			break
		}
		if seen[token] {
			e.logger.Warn("page token repeated, stopping", slog.String("query", query), slog.String("pagetoken", token))
			break
		}
		seen[token] = true
	}

	return retained, nil
}
