package fetch

import (
	"fmt"

	"ewintr.nl/vidharvest/model"
)

// PageError is returned when a page request fails. The pass it belongs to is
// abandoned.
type PageError struct {
	Query     string
	ChannelID model.YoutubeChannelID
	Page      int
	Err       error
}

func (e *PageError) Error() string {
	if e.ChannelID != "" {
		return fmt.Sprintf("fetch page %d of %q in channel %s: %v", e.Page, e.Query, e.ChannelID, e.Err)
	}
	return fmt.Sprintf("fetch page %d of %q: %v", e.Page, e.Query, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

// QuotaError means the API refused the request because of quota or rate
// limits.
type QuotaError struct {
	Reason string
	Err    error
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("youtube quota exceeded (%s): %v", e.Reason, e.Err)
}

func (e *QuotaError) Unwrap() error { return e.Err }
