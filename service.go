package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"ewintr.nl/vidharvest/config"
	"ewintr.nl/vidharvest/fetch"
	"ewintr.nl/vidharvest/sink"
	"ewintr.nl/vidharvest/storage"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error("command failed", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}

var logger = newLogger(false)

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func openStore(ctx context.Context) (storage.Store, error) {
	var (
		store storage.Store
		err   error
	)
	switch driver := getParam("STORE_DRIVER", "postgres"); driver {
	case "postgres":
		store, err = storage.NewPostgres(ctx, storage.PostgresInfo{
			Host:     getParam("POSTGRES_HOST", "localhost"),
			Port:     getParam("POSTGRES_PORT", "5432"),
			User:     getParam("POSTGRES_USER", "vidharvest"),
			Password: getParam("POSTGRES_PASSWORD", "vidharvest"),
			Database: getParam("POSTGRES_DB", "vidharvest"),
		})
	case "sqlite":
		store, err = storage.NewSQLite(ctx, getParam("SQLITE_PATH", "vidharvest.db"))
	case "mongo":
		store, err = storage.NewMongo(ctx, getParam("MONGO_URI", "mongodb://localhost:27017"), getParam("MONGO_DB", "vidharvest"))
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to open store: %w", err)
	}

	return store, nil
}

// openVectors returns nil when no weaviate host is configured.
func openVectors(ctx context.Context, reset bool) (*storage.Weaviate, error) {
	host := getParam("WEAVIATE_HOST", "")
	if host == "" {
		if reset {
			return nil, errors.New("reset index requested, but WEAVIATE_HOST is not set")
		}
		return nil, nil
	}
	vectors, err := storage.NewWeaviate(host, getParam("WEAVIATE_APIKEY", ""), getParam("OPENAI_API_KEY", ""))
	if err != nil {
		return nil, fmt.Errorf("unable to create weaviate client: %w", err)
	}
	if reset {
		if err := vectors.ResetSchema(ctx); err != nil {
			return nil, fmt.Errorf("unable to reset weaviate schema: %w", err)
		}
		logger.Info("weaviate schema reset")
	}
	return vectors, nil
}

func newYoutube(ctx context.Context) (*fetch.Youtube, error) {
	apiKey := getParam("YOUTUBE_API_KEY", "")
	if apiKey == "" {
		return nil, errors.New("YOUTUBE_API_KEY is not set")
	}
	rps, err := strconv.ParseFloat(getParam("YOUTUBE_RPS", "0"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid YOUTUBE_RPS: %w", err)
	}
	retry := fetch.DefaultRetryConfig
	if retry.MaxRetries, err = strconv.Atoi(getParam("YOUTUBE_RETRIES", strconv.Itoa(retry.MaxRetries))); err != nil {
		return nil, fmt.Errorf("invalid YOUTUBE_RETRIES: %w", err)
	}

	ytClient, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("unable to create youtube service: %w", err)
	}

	return fetch.NewYoutube(ytClient, fetch.YoutubeConfig{
		RequestsPerSecond: rps,
		Retry:             retry,
	}, logger), nil
}

func newOpenAI() (*openai.Client, error) {
	apiKey := getParam("OPENAI_API_KEY", "")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY is not set")
	}
	return openai.NewClient(apiKey), nil
}

// newSink builds the sink for the files in conf and the configured stores.
func newSink(conf config.Config, store storage.Store, vectors *storage.Weaviate) *sink.Sink {
	var metadata *sink.MetadataFile
	if conf.OutputFile != "" {
		metadata = sink.NewMetadataFile(conf.OutputFile, logger)
	}
	var ids *sink.IDFile
	if conf.VideoIDsFile != "" {
		ids = sink.NewIDFile(conf.VideoIDsFile, logger)
	}

	stores := []sink.NamedRepository{{Name: getParam("STORE_DRIVER", "postgres"), Repo: store}}
	if vectors != nil {
		stores = append(stores, sink.NamedRepository{Name: "weaviate", Repo: vectors})
	}

	return sink.New(metadata, ids, stores, logger)
}

func getParam(param, def string) string {
	if val, ok := os.LookupEnv(param); ok {
		return val
	}
	return def
}
