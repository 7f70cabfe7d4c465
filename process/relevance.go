package process

import (
	"fmt"
	"log/slog"
	"strings"

	"ewintr.nl/vidharvest/model"
)

type Drop struct {
	ID     model.YoutubeVideoID
	Reason string
}

// RelevanceFilter drops results that do not mention the search name. The
// upstream search matches on tokens, which is broader than that.
type RelevanceFilter struct {
	logger *slog.Logger
}

func NewRelevanceFilter(logger *slog.Logger) *RelevanceFilter {
	return &RelevanceFilter{logger: logger}
}

// Apply returns the videos whose title or description contains name,
// ignoring case, and the videos that were dropped.
func (f *RelevanceFilter) Apply(name string, videos []model.Video) ([]model.Video, []Drop) {
	needle := strings.ToLower(name)
	kept := make([]model.Video, 0, len(videos))
	var dropped []Drop
	for _, video := range videos {
		if strings.Contains(strings.ToLower(video.Title), needle) || strings.Contains(strings.ToLower(video.Description), needle) {
			kept = append(kept, video)
			continue
		}
		drop := Drop{ID: video.ID, Reason: fmt.Sprintf("no mention of %s in title or description", name)}
		f.logger.Info("dropped video", slog.String("id", string(drop.ID)), slog.String("reason", drop.Reason))
		dropped = append(dropped, drop)
	}

	return kept, dropped
}
