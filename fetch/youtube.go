package fetch

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"ewintr.nl/vidharvest/model"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/youtube/v3"
)

var quotaReasons = map[string]bool{
	"quotaExceeded":         true,
	"dailyLimitExceeded":    true,
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
}

type YoutubeConfig struct {
	RequestsPerSecond float64
	Retry             RetryConfig
}

// Youtube implements Searcher and Lookup on the YouTube Data API v3.
type Youtube struct {
	Client  *youtube.Service
	limiter *rate.Limiter
	retry   RetryConfig
	logger  *slog.Logger
}

func NewYoutube(client *youtube.Service, conf YoutubeConfig, logger *slog.Logger) *Youtube {
	limit := rate.Inf
	if conf.RequestsPerSecond > 0 {
		limit = rate.Limit(conf.RequestsPerSecond)
	}
	return &Youtube{
		Client:  client,
		limiter: rate.NewLimiter(limit, 1),
		retry:   conf.Retry,
		logger:  logger,
	}
}

func (y *Youtube) Search(ctx context.Context, req Request) (Page, error) {
	call := y.Client.Search.
		List([]string{"id"}).
		Q(req.Query).
		Type("video").
		MaxResults(int64(req.PageSize))

	if req.ChannelID != "" {
		call.ChannelId(string(req.ChannelID))
	}
	if !req.PublishedAfter.IsZero() {
		call.PublishedAfter(req.PublishedAfter.UTC().Format(time.RFC3339))
	}
	if !req.PublishedBefore.IsZero() {
		call.PublishedBefore(req.PublishedBefore.UTC().Format(time.RFC3339))
	}
	if req.Quality.HasContent {
		call.VideoCaption("closedCaption")
	}
	if req.PageToken != "" {
		call.PageToken(req.PageToken)
	}

	response, err := apiCall(ctx, y, func() (*youtube.SearchListResponse, error) {
		return call.Context(ctx).Do()
	})
	if err != nil {
		return Page{}, err
	}

	ids := make([]model.YoutubeVideoID, 0, len(response.Items))
	for _, item := range response.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		ids = append(ids, model.YoutubeVideoID(item.Id.VideoId))
	}

	videos, err := y.details(ctx, ids, req.Quality)
	if err != nil {
		return Page{}, err
	}

	return Page{
		Videos:        videos,
		NextPageToken: response.NextPageToken,
	}, nil
}

func (y *Youtube) Video(ctx context.Context, id model.YoutubeVideoID, quality Quality) (*model.Video, error) {
	videos, err := y.details(ctx, []model.YoutubeVideoID{id}, quality)
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, nil
	}

	return &videos[0], nil
}

// details looks up the full metadata for ids, keeps the order of ids, and
// leaves out videos that do not meet quality.
func (y *Youtube) details(ctx context.Context, ids []model.YoutubeVideoID, quality Quality) ([]model.Video, error) {
	if len(ids) == 0 {
		return []model.Video{}, nil
	}
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = string(id)
	}
	call := y.Client.Videos.
		List([]string{"snippet", "contentDetails", "statistics"}).
		Id(strIDs...)

	response, err := apiCall(ctx, y, func() (*youtube.VideoListResponse, error) {
		return call.Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}

	found := make(map[model.YoutubeVideoID]*youtube.Video, len(response.Items))
	for _, item := range response.Items {
		found[model.YoutubeVideoID(item.Id)] = item
	}

	videos := make([]model.Video, 0, len(ids))
	for _, id := range ids {
		item, ok := found[id]
		if !ok || item.Snippet == nil {
			y.logger.Debug("no metadata for video", slog.String("id", string(id)))
			continue
		}
		video, hasCaption := y.convert(item)
		if ok, reason := quality.Check(video, hasCaption); !ok {
			y.logger.Debug("video below quality thresholds", slog.String("id", string(id)), slog.String("reason", reason))
			continue
		}
		videos = append(videos, video)
	}

	return videos, nil
}

func (y *Youtube) convert(item *youtube.Video) (model.Video, bool) {
	id := model.YoutubeVideoID(item.Id)
	video := model.Video{
		ID:          id,
		Title:       item.Snippet.Title,
		Description: item.Snippet.Description,
		ChannelName: item.Snippet.ChannelTitle,
		URL:         model.WatchURL(id),
	}
	if published, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
		published = published.UTC()
		video.PublishedAt = &published
	}
	if item.Statistics != nil {
		video.ViewCount = int64(item.Statistics.ViewCount)
	}

	hasCaption := false
	if item.ContentDetails != nil {
		hasCaption = item.ContentDetails.Caption == "true"
		if item.ContentDetails.Duration != "" {
			seconds, err := ParseDuration(item.ContentDetails.Duration)
			if err != nil {
				y.logger.Warn("could not parse duration", slog.String("id", string(id)), slog.Any("error", err))
			}
			video.DurationSeconds = seconds
		}
	}

	return video, hasCaption
}

func apiCall[T any](ctx context.Context, y *Youtube, fn func() (T, error)) (T, error) {
	return RetryDo(ctx, y.retry, y.logger, func() (T, error) {
		var zero T
		if err := y.limiter.Wait(ctx); err != nil {
			return zero, err
		}
		result, err := fn()
		if err != nil {
			return zero, classify(err)
		}
		return result, nil
	})
}

// classify turns quota and rate limit responses into a *QuotaError.
func classify(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	for _, item := range apiErr.Errors {
		if quotaReasons[item.Reason] {
			return &QuotaError{Reason: item.Reason, Err: err}
		}
	}
	if apiErr.Code == http.StatusTooManyRequests {
		return &QuotaError{Reason: "rateLimitExceeded", Err: err}
	}
	return err
}
