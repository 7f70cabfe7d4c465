package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"ewintr.nl/vidharvest/model"
	"ewintr.nl/vidharvest/process"
	"ewintr.nl/vidharvest/sink"
	"ewintr.nl/vidharvest/storage"
)

// AnalysisPath returns where the analysis of a search is written.
func AnalysisPath(dir, searchName string) string {
	return filepath.Join(dir, searchName+"-analysis.json")
}

// Analyze classifies every stored video of a search and writes the result to
// path. Videos that could not be classified are left out.
func Analyze(ctx context.Context, source storage.VideoReader, analyzer *process.Analyzer, searchName, path string, logger *slog.Logger) ([]model.Analysis, error) {
	if searchName == "" {
		return nil, ErrMissingSearchName
	}
	videos, err := source.FindBySearchName(ctx, searchName)
	if err != nil {
		return nil, fmt.Errorf("find videos for %s: %w", searchName, err)
	}
	logger.Info("analyzing videos", slog.String("searchname", searchName), slog.Int("count", len(videos)))

	analyses := analyzer.Analyze(ctx, videos)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, &sink.WriteError{Path: path, Err: err}
	}
	if err := sink.WriteJSON(path, analyses); err != nil {
		return nil, err
	}
	logger.Info("wrote analysis", slog.String("file", path), slog.Int("count", len(analyses)), slog.Int("skipped", len(videos)-len(analyses)))

	return analyses, nil
}
