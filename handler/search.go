package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"ewintr.nl/vidharvest/model"
	"ewintr.nl/vidharvest/storage"
)

type SearchAPI struct {
	searchRepo storage.SearchDefinitionReader
	logger     *slog.Logger
}

func NewSearchAPI(searchRepo storage.SearchDefinitionReader, logger *slog.Logger) *SearchAPI {
	return &SearchAPI{
		searchRepo: searchRepo,
		logger:     logger,
	}
}

func (s *SearchAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	searchName, _ := ShiftPath(r.URL.Path)

	switch {
	case r.Method == http.MethodGet && searchName == "":
		s.List(w, r)
	case r.Method == http.MethodGet:
		s.Get(w, r, searchName)
	default:
		Error(w, http.StatusNotFound, "not found", fmt.Errorf("method %s with subpath %q was not registered in the search api", r.Method, searchName))
	}
}

func (s *SearchAPI) List(w http.ResponseWriter, r *http.Request) {
	defs, err := s.searchRepo.ListSearchDefinitions(r.Context())
	if err != nil {
		s.logger.Error("could not list searches", slog.Any("error", err))
		Error(w, http.StatusInternalServerError, "could not list searches", err)
		return
	}
	if defs == nil {
		defs = []model.SearchDefinition{}
	}

	JSON(w, http.StatusOK, defs)
}

func (s *SearchAPI) Get(w http.ResponseWriter, r *http.Request, searchName string) {
	def, err := s.searchRepo.FindSearchDefinition(r.Context(), searchName)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		Error(w, http.StatusNotFound, "search not found", err, searchName)
		return
	case err != nil:
		s.logger.Error("could not get search", slog.String("searchname", searchName), slog.Any("error", err))
		Error(w, http.StatusInternalServerError, "could not get search", err, searchName)
		return
	}

	JSON(w, http.StatusOK, def)
}
