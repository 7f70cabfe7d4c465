package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"ewintr.nl/vidharvest/model"
	"ewintr.nl/vidharvest/storage"
)

type VideoAPI struct {
	videoRepo storage.VideoReader
	logger    *slog.Logger
}

func NewVideoAPI(videoRepo storage.VideoReader, logger *slog.Logger) *VideoAPI {
	return &VideoAPI{
		videoRepo: videoRepo,
		logger:    logger,
	}
}

func (v *VideoAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	videoID, _ := ShiftPath(r.URL.Path)

	switch {
	case r.Method == http.MethodGet && videoID == "":
		v.List(w, r)
	case r.Method == http.MethodGet:
		v.Get(w, r, model.YoutubeVideoID(videoID))
	default:
		Error(w, http.StatusNotFound, "not found", fmt.Errorf("method %s with subpath %q was not registered in the video api", r.Method, videoID))
	}
}

// List returns the videos of the search given in the search query parameter.
func (v *VideoAPI) List(w http.ResponseWriter, r *http.Request) {
	searchName := r.URL.Query().Get("search")
	if searchName == "" {
		Error(w, http.StatusBadRequest, "missing parameter", errors.New("search is required"))
		return
	}

	videos, err := v.videoRepo.FindBySearchName(r.Context(), searchName)
	if err != nil {
		v.returnErr(r.Context(), w, http.StatusInternalServerError, "could not list videos", err, searchName)
		return
	}
	if videos == nil {
		videos = []model.Video{}
	}

	JSON(w, http.StatusOK, videos)
}

func (v *VideoAPI) Get(w http.ResponseWriter, r *http.Request, id model.YoutubeVideoID) {
	video, err := v.videoRepo.FindVideo(r.Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		Error(w, http.StatusNotFound, "video not found", err, id)
		return
	case err != nil:
		v.returnErr(r.Context(), w, http.StatusInternalServerError, "could not get video", err, id)
		return
	}

	JSON(w, http.StatusOK, video)
}

func (v *VideoAPI) returnErr(_ context.Context, w http.ResponseWriter, status int, message string, err error, details ...any) {
	v.logger.Error(message, slog.String("err", err.Error()), slog.String("details", fmt.Sprintf("%+v", details)))
	Error(w, status, message, err, details...)
}
