package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ewintr.nl/vidharvest/model"
	"ewintr.nl/vidharvest/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	videos []model.Video
	defs   []model.SearchDefinition
	err    error
}

func (m *memoryStore) FindVideo(_ context.Context, id model.YoutubeVideoID) (model.Video, error) {
	if m.err != nil {
		return model.Video{}, m.err
	}
	for _, video := range m.videos {
		if video.ID == id {
			return video, nil
		}
	}
	return model.Video{}, storage.ErrNotFound
}

func (m *memoryStore) FindBySearchName(_ context.Context, searchName string) ([]model.Video, error) {
	if m.err != nil {
		return nil, m.err
	}
	var res []model.Video
	for _, video := range m.videos {
		if video.SearchName == searchName {
			res = append(res, video)
		}
	}
	return res, nil
}

func (m *memoryStore) FindSearchDefinition(_ context.Context, searchName string) (model.SearchDefinition, error) {
	if m.err != nil {
		return model.SearchDefinition{}, m.err
	}
	for _, def := range m.defs {
		if def.SearchName == searchName {
			return def, nil
		}
	}
	return model.SearchDefinition{}, storage.ErrNotFound
}

func (m *memoryStore) ListSearchDefinitions(context.Context) ([]model.SearchDefinition, error) {
	return m.defs, m.err
}

func newTestServer(store *memoryStore) *Server {
	return NewServer(store, store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func serve(t *testing.T, srv http.Handler, target string) (int, []byte) {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	return rec.Code, rec.Body.Bytes()
}

func testStore() *memoryStore {
	return &memoryStore{
		videos: []model.Video{
			{ID: "v1", Title: "one", SearchName: "migraine"},
			{ID: "v2", Title: "two", SearchName: "migraine"},
			{ID: "v3", Title: "three", SearchName: "asthma"},
		},
		defs: []model.SearchDefinition{
			{SearchName: "migraine", UserID: model.DefaultUserID, Expression: "aura, -cure", CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		},
	}
}

func TestServerHealth(t *testing.T) {
	status, body := serve(t, newTestServer(testStore()), "/health")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"ok"}`, string(body))
}

func TestServerVideoList(t *testing.T) {
	srv := newTestServer(testStore())

	status, body := serve(t, srv, "/video?search=migraine")
	require.Equal(t, http.StatusOK, status)
	var videos []model.Video
	require.NoError(t, json.Unmarshal(body, &videos))
	require.Len(t, videos, 2)
	assert.Equal(t, model.YoutubeVideoID("v1"), videos[0].ID)

	status, body = serve(t, srv, "/video?search=unknown")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))

	status, _ = serve(t, srv, "/video")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestServerVideoGet(t *testing.T) {
	srv := newTestServer(testStore())

	status, body := serve(t, srv, "/video/v3")
	require.Equal(t, http.StatusOK, status)
	var video model.Video
	require.NoError(t, json.Unmarshal(body, &video))
	assert.Equal(t, "three", video.Title)

	status, _ = serve(t, srv, "/video/v9")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServerSearch(t *testing.T) {
	srv := newTestServer(testStore())

	status, body := serve(t, srv, "/search")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[{"search_name":"migraine","user_id":"default_user","search_phrase":"aura, -cure","creation_date":"2024-05-01T12:00:00Z"}]`, string(body))

	status, _ = serve(t, srv, "/search/migraine")
	assert.Equal(t, http.StatusOK, status)

	status, _ = serve(t, srv, "/search/asthma")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServerStoreError(t *testing.T) {
	store := testStore()
	store.err = errors.New("connection refused")
	srv := newTestServer(store)

	for _, target := range []string{"/video?search=migraine", "/video/v1", "/search", "/search/migraine"} {
		status, body := serve(t, srv, target)
		assert.Equal(t, http.StatusInternalServerError, status, target)
		assert.Contains(t, string(body), "connection refused", target)
	}
}

func TestServerUnknownPath(t *testing.T) {
	status, _ := serve(t, newTestServer(testStore()), "/channels")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestShiftPath(t *testing.T) {
	for _, tc := range []struct {
		path    string
		expHead string
		expTail string
	}{
		{path: "/", expHead: "", expTail: "/"},
		{path: "/video", expHead: "video", expTail: "/"},
		{path: "/video/abc", expHead: "video", expTail: "/abc"},
		{path: "video/abc/", expHead: "video", expTail: "/abc"},
		{path: "/search/../video/x", expHead: "video", expTail: "/x"},
	} {
		t.Run(tc.path, func(t *testing.T) {
			head, tail := ShiftPath(tc.path)
			assert.Equal(t, tc.expHead, head)
			assert.Equal(t, tc.expTail, tail)
		})
	}
}
