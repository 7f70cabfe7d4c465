package process

import (
	"context"
	"log/slog"

	"ewintr.nl/vidharvest/model"
)

type VideoClassifier interface {
	Name() string
	Classify(ctx context.Context, video model.Video) (model.Payload, error)
}

// Analyzer runs a classifier over videos one at a time. A video that fails
// is logged and left out of the result.
type Analyzer struct {
	classifier VideoClassifier
	logger     *slog.Logger
}

func NewAnalyzer(classifier VideoClassifier, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		classifier: classifier,
		logger:     logger,
	}
}

func (a *Analyzer) Analyze(ctx context.Context, videos []model.Video) []model.Analysis {
	analyses := make([]model.Analysis, 0, len(videos))
	for _, video := range videos {
		if ctx.Err() != nil {
			a.logger.Warn("analysis interrupted", slog.Any("error", ctx.Err()))
			break
		}
		a.logger.Info("processing video", slog.String("video", string(video.ID)), slog.String("processor", a.classifier.Name()))
		payload, err := a.classifier.Classify(ctx, video)
		if err != nil {
			a.logger.Error("failed to process video", slog.String("video", string(video.ID)), slog.String("processor", a.classifier.Name()), slog.Any("error", err))
			continue
		}
		analyses = append(analyses, model.Analysis{
			VideoID:    video.ID,
			SearchName: video.SearchName,
			Payload:    payload,
		})
	}

	return analyses
}
