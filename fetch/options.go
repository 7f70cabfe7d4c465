package fetch

import (
	"context"
	"time"

	"ewintr.nl/vidharvest/model"
)

// MaxPageSize is the largest page the search API hands out.
const MaxPageSize = 50

// Options configure one pass. They are not modified during the pass.
type Options struct {
	MaxResults   int
	StartDate    time.Time
	EndDate      time.Time
	MinViewCount int64
	MinDuration  int
	HasContent   bool
	ChannelID    model.YoutubeChannelID
}

// WithChannel returns a copy of o scoped to one channel.
func (o Options) WithChannel(channelID model.YoutubeChannelID) Options {
	o.ChannelID = channelID
	return o
}

func (o Options) Quality() Quality {
	return Quality{
		MinViewCount: o.MinViewCount,
		MinDuration:  o.MinDuration,
		HasContent:   o.HasContent,
	}
}

// PublishedAfter and PublishedBefore translate the inclusive day window into
// the half open interval the API expects. Zero means unbounded.
func (o Options) PublishedAfter() time.Time {
	if o.StartDate.IsZero() {
		return time.Time{}
	}
	return truncateDay(o.StartDate)
}

func (o Options) PublishedBefore() time.Time {
	if o.EndDate.IsZero() {
		return time.Time{}
	}
	return truncateDay(o.EndDate).AddDate(0, 0, 1)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Quality holds the thresholds a result has to meet to be delivered at all.
type Quality struct {
	MinViewCount int64
	MinDuration  int
	HasContent   bool
}

// Check reports whether video passes the thresholds and, if not, why.
func (q Quality) Check(video model.Video, hasCaption bool) (bool, string) {
	switch {
	case video.ViewCount < q.MinViewCount:
		return false, "view count below minimum"
	case video.DurationSeconds < q.MinDuration:
		return false, "duration below minimum"
	case q.HasContent && !hasCaption:
		return false, "no captions available"
	}
	return true, ""
}

type Request struct {
	Query           string
	ChannelID       model.YoutubeChannelID
	PageToken       string
	PageSize        int
	PublishedAfter  time.Time
	PublishedBefore time.Time
	Quality         Quality
}

type Page struct {
	Videos        []model.Video
	NextPageToken string
}

// Searcher returns one page of results that already passed the quality
// thresholds of the request.
type Searcher interface {
	Search(ctx context.Context, req Request) (Page, error)
}

// Lookup fetches a single video by ID. It returns nil when the video does not
// exist or does not meet the thresholds.
type Lookup interface {
	Video(ctx context.Context, id model.YoutubeVideoID, quality Quality) (*model.Video, error)
}

// PageConsumer processes one page and reports how many records it retained.
// The engine waits for it before requesting the next page.
type PageConsumer interface {
	OnPage(ctx context.Context, videos []model.Video) (int, error)
}

type PageFunc func(ctx context.Context, videos []model.Video) (int, error)

func (f PageFunc) OnPage(ctx context.Context, videos []model.Video) (int, error) {
	return f(ctx, videos)
}
