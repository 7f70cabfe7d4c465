package storage

import (
	"context"
	"errors"

	"ewintr.nl/vidharvest/model"
)

var ErrNotFound = errors.New("not found")

// VideoRepository is a sink for accepted videos. An upsert replaces any
// stored video with the same ID.
type VideoRepository interface {
	UpsertVideo(ctx context.Context, video model.Video) error
}

type VideoReader interface {
	FindVideo(ctx context.Context, id model.YoutubeVideoID) (model.Video, error)
	FindBySearchName(ctx context.Context, searchName string) ([]model.Video, error)
}

// SearchDefinitionRepository stores one definition per search name. On
// conflict the expression is overwritten and the creation date reset.
type SearchDefinitionRepository interface {
	UpsertSearchDefinition(ctx context.Context, def model.SearchDefinition) error
}

type SearchDefinitionReader interface {
	FindSearchDefinition(ctx context.Context, searchName string) (model.SearchDefinition, error)
	ListSearchDefinitions(ctx context.Context) ([]model.SearchDefinition, error)
}

// Store is a complete persistent store.
type Store interface {
	VideoRepository
	VideoReader
	SearchDefinitionRepository
	SearchDefinitionReader
	Close() error
}
