package storage

import (
	"context"
	"errors"
	"net/http"

	"ewintr.nl/vidharvest/model"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/fault"
	"github.com/weaviate/weaviate/entities/models"
)

const (
	className = "Video"
)

// Weaviate keeps a vector index of accepted videos. It only implements
// VideoRepository.
type Weaviate struct {
	client *weaviate.Client
}

func NewWeaviate(host, weaviateApiKey, openaiApiKey string) (*Weaviate, error) {
	config := weaviate.Config{
		Scheme:     "https",
		Host:       host,
		AuthConfig: auth.ApiKey{Value: weaviateApiKey},
		Headers: map[string]string{
			"X-OpenAI-Api-Key": openaiApiKey,
		},
	}

	c, err := weaviate.NewClient(config)
	if err != nil {
		return nil, err
	}

	return &Weaviate{client: c}, nil
}

func (w *Weaviate) ResetSchema(ctx context.Context) error {
	// delete old
	if err := w.client.Schema().ClassDeleter().WithClassName(className).Do(ctx); err != nil {
		// a missing class is reported as 400
		var clientErr *fault.WeaviateClientError
		if !errors.As(err, &clientErr) || clientErr.StatusCode != http.StatusBadRequest {
			return err
		}
	}

	// create new
	classObj := &models.Class{
		Class:      className,
		Vectorizer: "text2vec-openai",
		ModuleConfig: map[string]any{
			"text2vec-openai": map[string]any{
				"model":        "ada",
				"modelVersion": "002",
				"type":         "text",
			},
		},
	}

	return w.client.Schema().ClassCreator().WithClass(classObj).Do(ctx)
}

func (w *Weaviate) UpsertVideo(ctx context.Context, video model.Video) error {
	vID := ObjectID(video.ID)
	props := map[string]any{
		"videoId":         string(video.ID),
		"title":           video.Title,
		"description":     video.Description,
		"channelName":     video.ChannelName,
		"searchName":      video.SearchName,
		"url":             video.URL,
		"viewCount":       video.ViewCount,
		"durationSeconds": video.DurationSeconds,
	}

	// check it already exists
	exists, err := w.client.Data().
		Checker().
		WithID(vID).
		WithClassName(className).
		Do(ctx)
	if err != nil {
		return err
	}

	if exists {
		return w.client.Data().
			Updater().
			WithID(vID).
			WithClassName(className).
			WithProperties(props).
			Do(ctx)
	}

	_, err = w.client.Data().
		Creator().
		WithClassName(className).
		WithID(vID).
		WithProperties(props).
		Do(ctx)

	return err
}

// ObjectID derives a stable object ID from the video ID, so re-fetched
// videos update the same object.
func ObjectID(id model.YoutubeVideoID) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(model.WatchURL(id))).String()
}
