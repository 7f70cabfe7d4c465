package harvest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ewintr.nl/vidharvest/feed"
	"ewintr.nl/vidharvest/fetch"
	"ewintr.nl/vidharvest/model"
	"ewintr.nl/vidharvest/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryLookup struct {
	videos map[model.YoutubeVideoID]model.Video
	fail   map[model.YoutubeVideoID]error
	calls  []fetch.Quality
}

func (l *memoryLookup) Video(_ context.Context, id model.YoutubeVideoID, quality fetch.Quality) (*model.Video, error) {
	l.calls = append(l.calls, quality)
	if err := l.fail[id]; err != nil {
		return nil, err
	}
	video, ok := l.videos[id]
	if !ok {
		return nil, nil
	}
	return &video, nil
}

type memoryFeed struct {
	entries []feed.Entry
	read    []int64
}

func (f *memoryFeed) Unread() ([]feed.Entry, error) { return f.entries, nil }

func (f *memoryFeed) MarkRead(entryID int64) error {
	f.read = append(f.read, entryID)
	return nil
}

func newLookupFixture(t *testing.T) (*fixture, *memoryLookup) {
	t.Helper()
	f := newFixture(t)
	lookup := &memoryLookup{
		videos: map[model.YoutubeVideoID]model.Video{
			"v1": {ID: "v1", Title: "first"},
			"v2": {ID: "v2", Title: "second"},
		},
		fail: map[model.YoutubeVideoID]error{},
	}
	f.h.lookup = lookup
	return f, lookup
}

func TestLookup(t *testing.T) {
	f, lookup := newLookupFixture(t)
	quality := fetch.Quality{MinViewCount: 10, MinDuration: 60, HasContent: true}

	video, err := f.h.Lookup(context.Background(), "v1", "", quality)
	require.NoError(t, err)
	require.NotNil(t, video)
	assert.Equal(t, "v1", video.SearchName)
	assert.Equal(t, []fetch.Quality{quality}, lookup.calls)
	assert.Equal(t, []string{"v1"}, f.ids(t))
	assert.Equal(t, "v1", f.repo.videos["v1"].SearchName)

	video, err = f.h.Lookup(context.Background(), "v2", "migraine", quality)
	require.NoError(t, err)
	assert.Equal(t, "migraine", video.SearchName)
	assert.Equal(t, []string{"v1", "v2"}, f.ids(t))
}

func TestLookupMissingVideo(t *testing.T) {
	f, _ := newLookupFixture(t)

	video, err := f.h.Lookup(context.Background(), "gone", "", fetch.Quality{})
	require.NoError(t, err)
	assert.Nil(t, video)
	assert.Empty(t, f.repo.videos)
}

func TestLookupWithoutLookup(t *testing.T) {
	f := newFixture(t)
	_, err := f.h.Lookup(context.Background(), "v1", "", fetch.Quality{})
	assert.ErrorIs(t, err, ErrNoLookup)
}

func TestIngestFeed(t *testing.T) {
	f, lookup := newLookupFixture(t)
	lookup.fail["v3"] = errors.New("backend unavailable")
	reader := &memoryFeed{entries: []feed.Entry{
		{EntryID: 1, YoutubeChannelID: "chanA", YoutubeID: "v1"},
		{EntryID: 2, YoutubeChannelID: "chanA", YoutubeID: "gone"},
		{EntryID: 3, YoutubeChannelID: "chanB", YoutubeID: "v3"},
		{EntryID: 4, YoutubeChannelID: "chanB", YoutubeID: "v2"},
	}}

	count, err := f.h.IngestFeed(context.Background(), reader, "", fetch.Quality{})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []int64{1, 2, 4}, reader.read)
	assert.Equal(t, "chanA", f.repo.videos["v1"].SearchName)
	assert.Equal(t, "chanB", f.repo.videos["v2"].SearchName)
}

func TestIngestFeedStopsOnQuota(t *testing.T) {
	f, lookup := newLookupFixture(t)
	lookup.fail["v1"] = &fetch.QuotaError{Reason: "quotaExceeded", Err: errors.New("403")}
	reader := &memoryFeed{entries: []feed.Entry{
		{EntryID: 1, YoutubeID: "v1"},
		{EntryID: 2, YoutubeID: "v2"},
	}}

	count, err := f.h.IngestFeed(context.Background(), reader, "migraine", fetch.Quality{})
	var quotaErr *fetch.QuotaError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, 0, count)
	assert.Empty(t, reader.read)
}

func TestWatchFeedStopsWithContext(t *testing.T) {
	f, _ := newLookupFixture(t)
	reader := &memoryFeed{entries: []feed.Entry{{EntryID: 1, YoutubeID: "v1"}}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, f.h.WatchFeed(ctx, reader, 10*time.Millisecond, "migraine", fetch.Quality{}))
	assert.NotEmpty(t, reader.read)
	assert.Equal(t, 1, len(f.ids(t)))
}

func TestWatchFeedReturnsWriteError(t *testing.T) {
	f, _ := newLookupFixture(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	f.h.sink = sink.New(nil, sink.NewIDFile(filepath.Join(blocker, "ids.json"), discardLogger()), nil, discardLogger())

	reader := &memoryFeed{entries: []feed.Entry{{EntryID: 1, YoutubeID: "v1"}}}
	err := f.h.WatchFeed(context.Background(), reader, time.Hour, "migraine", fetch.Quality{})
	var writeErr *sink.WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Empty(t, reader.read)
}
