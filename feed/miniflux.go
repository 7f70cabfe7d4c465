package feed

import (
	"fmt"
	"net/url"
	"strings"

	"ewintr.nl/vidharvest/model"
	"miniflux.app/client"
)

// Entry is an unread feed item that points to a YouTube video.
type Entry struct {
	EntryID          int64
	FeedID           int64
	YoutubeChannelID model.YoutubeChannelID
	YoutubeID        model.YoutubeVideoID
	Title            string
}

type MinifluxInfo struct {
	Endpoint string
	ApiKey   string
}

type Miniflux struct {
	client *client.Client
}

func NewMiniflux(mflInfo MinifluxInfo) *Miniflux {
	return &Miniflux{
		client: client.New(mflInfo.Endpoint, mflInfo.ApiKey),
	}
}

// Unread returns the unread entries that link to a video. Other entries are
// skipped and stay unread.
func (m *Miniflux) Unread() ([]Entry, error) {
	result, err := m.client.Entries(&client.Filter{Status: client.EntryStatusUnread})
	if err != nil {
		return nil, fmt.Errorf("list unread entries: %w", err)
	}

	entries := make([]Entry, 0, len(result.Entries))
	for _, entry := range result.Entries {
		videoID, ok := VideoID(entry.URL)
		if !ok {
			continue
		}
		var channelID model.YoutubeChannelID
		if entry.Feed != nil {
			channelID = ChannelID(entry.Feed.FeedURL)
		}
		entries = append(entries, Entry{
			EntryID:          entry.ID,
			FeedID:           entry.FeedID,
			YoutubeChannelID: channelID,
			YoutubeID:        videoID,
			Title:            entry.Title,
		})
	}

	return entries, nil
}

func (m *Miniflux) MarkRead(entryID int64) error {
	if err := m.client.UpdateEntries([]int64{entryID}, client.EntryStatusRead); err != nil {
		return fmt.Errorf("mark entry %d read: %w", entryID, err)
	}

	return nil
}

// VideoID extracts the video ID from a watch, short link or shorts URL.
func VideoID(rawURL string) (model.YoutubeVideoID, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	host := strings.TrimPrefix(u.Hostname(), "www.")
	host = strings.TrimPrefix(host, "m.")
	var id string
	switch {
	case host == "youtu.be":
		id = strings.Trim(u.Path, "/")
	case host == "youtube.com" && u.Path == "/watch":
		id = u.Query().Get("v")
	case host == "youtube.com" && strings.HasPrefix(u.Path, "/shorts/"):
		id = strings.TrimPrefix(u.Path, "/shorts/")
	}
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}

	return model.YoutubeVideoID(id), true
}

// ChannelID extracts the channel ID from a channel feed URL.
func ChannelID(feedURL string) model.YoutubeChannelID {
	u, err := url.Parse(feedURL)
	if err != nil {
		return ""
	}
	return model.YoutubeChannelID(u.Query().Get("channel_id"))
}
