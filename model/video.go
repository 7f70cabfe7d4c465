package model

import (
	"fmt"
	"time"
)

type YoutubeVideoID string

type YoutubeChannelID string

// Video is one accepted search result. ID is the dedup key for every sink.
type Video struct {
	ID              YoutubeVideoID `json:"id" bson:"_id"`
	Title           string         `json:"title" bson:"title"`
	Description     string         `json:"description" bson:"description"`
	PublishedAt     *time.Time     `json:"published_date" bson:"published_date"`
	DurationSeconds int            `json:"duration_seconds" bson:"duration_seconds"`
	ViewCount       int64          `json:"view_count" bson:"view_count"`
	URL             string         `json:"url" bson:"url"`
	ChannelName     string         `json:"channel_name" bson:"channel_name"`
	SearchName      string         `json:"search_name" bson:"search_name"`
}

func WatchURL(id YoutubeVideoID) string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", id)
}
