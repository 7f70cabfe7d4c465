package harvest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"ewintr.nl/vidharvest/fetch"
	"ewintr.nl/vidharvest/model"
	"ewintr.nl/vidharvest/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// channelSearcher returns a single page per channel scope. The general pass
// has the empty channel ID.
type channelSearcher struct {
	pages    map[model.YoutubeChannelID][]model.Video
	fail     map[model.YoutubeChannelID]error
	requests []fetch.Request
}

func (s *channelSearcher) Search(_ context.Context, req fetch.Request) (fetch.Page, error) {
	s.requests = append(s.requests, req)
	if err := s.fail[req.ChannelID]; err != nil {
		return fetch.Page{}, err
	}
	return fetch.Page{Videos: s.pages[req.ChannelID]}, nil
}

type memoryRecorder struct {
	defs []model.SearchDefinition
	err  error
}

func (r *memoryRecorder) UpsertSearchDefinition(_ context.Context, def model.SearchDefinition) error {
	if r.err != nil {
		return r.err
	}
	r.defs = append(r.defs, def)
	return nil
}

type memoryRepo struct {
	videos map[model.YoutubeVideoID]model.Video
}

func (r *memoryRepo) UpsertVideo(_ context.Context, video model.Video) error {
	r.videos[video.ID] = video
	return nil
}

func relevant(ids ...string) []model.Video {
	videos := make([]model.Video, 0, len(ids))
	for _, id := range ids {
		videos = append(videos, model.Video{ID: model.YoutubeVideoID(id), Title: "Living with migraine " + id})
	}
	return videos
}

type fixture struct {
	searcher *channelSearcher
	recorder *memoryRecorder
	repo     *memoryRepo
	idPath   string
	metaPath string
	h        *Harvester
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		searcher: &channelSearcher{
			pages: map[model.YoutubeChannelID][]model.Video{},
			fail:  map[model.YoutubeChannelID]error{},
		},
		recorder: &memoryRecorder{},
		repo:     &memoryRepo{videos: map[model.YoutubeVideoID]model.Video{}},
		idPath:   filepath.Join(dir, "out", "ids.json"),
		metaPath: filepath.Join(dir, "out", "meta.json"),
	}
	s := sink.New(
		sink.NewMetadataFile(f.metaPath, discardLogger()),
		sink.NewIDFile(f.idPath, discardLogger()),
		[]sink.NamedRepository{{Name: "memory", Repo: f.repo}},
		discardLogger(),
	)
	f.h = New(fetch.NewEngine(f.searcher, discardLogger()), nil, s, f.recorder, discardLogger())
	return f
}

func (f *fixture) ids(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(f.idPath)
	require.NoError(t, err)
	var ids []string
	require.NoError(t, json.Unmarshal(data, &ids))
	return ids
}

func TestRunAccumulatesPasses(t *testing.T) {
	f := newFixture(t)
	f.searcher.pages[""] = relevant("g1", "g2", "g3", "g4", "g5")
	f.searcher.pages["chanA"] = relevant("g1", "a1")
	f.searcher.pages["chanB"] = []model.Video{{ID: "b1", Title: "unrelated clip", Description: "nothing here"}}

	report, err := f.h.Run(context.Background(), Request{
		SearchName: "migraine",
		Channels:   []model.YoutubeChannelID{"chanA", "chanB"},
		Options:    fetch.Options{MaxResults: 50},
	})
	require.NoError(t, err)

	assert.Equal(t, StateDone, report.State)
	assert.Equal(t, StateDone, f.h.State())
	assert.Equal(t, 7, report.Total)
	require.Len(t, report.Passes, 3)
	assert.Equal(t, 5, report.Passes[0].Retained)
	assert.Equal(t, model.YoutubeChannelID("chanA"), report.Passes[1].ChannelID)
	assert.Equal(t, 2, report.Passes[1].Retained)
	assert.Equal(t, 0, report.Passes[2].Retained)
	assert.Equal(t, 1, report.Passes[2].Dropped)

	assert.Equal(t, []string{"g1", "g2", "g3", "g4", "g5", "a1"}, f.ids(t))
	assert.Equal(t, 6, report.UniqueIDs)
	assert.Equal(t, 6, report.UniqueMetadata)
	assert.Len(t, f.repo.videos, 6)
	assert.Equal(t, "migraine", f.repo.videos["a1"].SearchName)

	require.Len(t, f.searcher.requests, 3)
	for _, req := range f.searcher.requests {
		assert.Equal(t, `"migraine" (migraine)`, req.Query)
	}
}

func TestRunGeneralPassWithoutChannels(t *testing.T) {
	f := newFixture(t)
	f.searcher.pages[""] = relevant("g1")

	report, err := f.h.Run(context.Background(), Request{SearchName: "migraine"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total)
	assert.Len(t, report.Passes, 1)
	assert.Len(t, f.searcher.requests, 1)
}

func TestRunRecordsSearchDefinitionOnce(t *testing.T) {
	for _, tc := range []struct {
		name     string
		req      Request
		expQuery string
		expExpr  string
	}{
		{
			name: "phrases",
			req: Request{
				SearchName: "migraine",
				Phrases:    []string{"aura", "-cure", "treatment"},
				Channels:   []model.YoutubeChannelID{"chanA"},
			},
			expQuery: `"migraine" (aura | treatment) -cure`,
			expExpr:  "aura, -cure, treatment",
		},
		{
			name: "terms",
			req: Request{
				SearchName: "migraine",
				Include:    []string{"aura", "treatment"},
				Exclude:    []string{"cure"},
				Channels:   []model.YoutubeChannelID{"chanA", "chanB"},
			},
			expQuery: `"migraine" (aura | treatment) -cure`,
			expExpr:  "aura, treatment, -cure",
		},
		{
			name:     "search name only",
			req:      Request{SearchName: "migraine"},
			expQuery: `"migraine" (migraine)`,
			expExpr:  "migraine",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			report, err := f.h.Run(context.Background(), tc.req)
			require.NoError(t, err)
			assert.Equal(t, tc.expQuery, report.Query)
			require.Len(t, f.recorder.defs, 1)
			assert.Equal(t, "migraine", f.recorder.defs[0].SearchName)
			assert.Equal(t, model.DefaultUserID, f.recorder.defs[0].UserID)
			assert.Equal(t, tc.expExpr, f.recorder.defs[0].Expression)
		})
	}
}

func TestRunChannelFailurePolicy(t *testing.T) {
	for _, tc := range []struct {
		name        string
		policy      ChannelFailurePolicy
		expErr      bool
		expState    State
		expTotal    int
		expRequests int
		expDefs     int
	}{
		{name: "abort by default", expErr: true, expState: StateFailed, expTotal: 1, expRequests: 2, expDefs: 0},
		{name: "continue", policy: PolicyContinue, expState: StateDone, expTotal: 2, expRequests: 3, expDefs: 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.searcher.pages[""] = relevant("g1")
			f.searcher.fail["chanA"] = errors.New("backend unavailable")
			f.searcher.pages["chanB"] = relevant("b1")

			report, err := f.h.Run(context.Background(), Request{
				SearchName: "migraine",
				Channels:   []model.YoutubeChannelID{"chanA", "chanB"},
				Policy:     tc.policy,
			})
			if tc.expErr {
				var pageErr *fetch.PageError
				require.ErrorAs(t, err, &pageErr)
				assert.Equal(t, model.YoutubeChannelID("chanA"), pageErr.ChannelID)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.expState, report.State)
			assert.Equal(t, tc.expTotal, report.Total)
			assert.Len(t, report.Failed(), 1)
			assert.Len(t, f.searcher.requests, tc.expRequests)
			assert.Len(t, f.recorder.defs, tc.expDefs)
		})
	}
}

func TestRunGeneralPassFailure(t *testing.T) {
	f := newFixture(t)
	f.searcher.fail[""] = errors.New("backend unavailable")

	report, err := f.h.Run(context.Background(), Request{
		SearchName: "migraine",
		Channels:   []model.YoutubeChannelID{"chanA"},
		Policy:     PolicyContinue,
	})
	require.Error(t, err)
	assert.Equal(t, StateFailed, report.State)
	assert.Len(t, f.searcher.requests, 1)
	assert.Empty(t, f.recorder.defs)
}

func TestRunFailsWhenOutputCannotBePrepared(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	searcher := &channelSearcher{pages: map[model.YoutubeChannelID][]model.Video{}}
	recorder := &memoryRecorder{}
	s := sink.New(nil, sink.NewIDFile(filepath.Join(blocker, "ids.json"), discardLogger()), nil, discardLogger())
	h := New(fetch.NewEngine(searcher, discardLogger()), nil, s, recorder, discardLogger())

	report, err := h.Run(context.Background(), Request{SearchName: "migraine"})
	var writeErr *sink.WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, StateFailed, report.State)
	assert.Empty(t, searcher.requests)
	assert.Empty(t, recorder.defs)
}

func TestRunRequiresSearchName(t *testing.T) {
	f := newFixture(t)
	_, err := f.h.Run(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrMissingSearchName)
	assert.Equal(t, StateFailed, f.h.State())
}

func TestRunRejectsUnknownPolicy(t *testing.T) {
	f := newFixture(t)
	_, err := f.h.Run(context.Background(), Request{SearchName: "migraine", Policy: "retry"})
	assert.Error(t, err)
}

func TestAccumulatorAdd(t *testing.T) {
	first := Accumulator{}.Add(PassResult{Retained: 5})
	second := first.Add(PassResult{ChannelID: "chanA", Retained: 2, Err: errors.New("boom")})

	assert.Equal(t, 5, first.Total)
	assert.Len(t, first.Passes, 1)
	assert.Equal(t, 7, second.Total)
	assert.Len(t, second.Passes, 2)
	assert.Len(t, second.Failed(), 1)
}
