package feeds

import (
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/samvad-hq/samvad-feed-monitor/internal/domain"
)

// Normalize maps a parsed feed entry onto a NewsItem.
//
// ID falls back from the entry GUID to its link, summary from description to
// content, and the publish date from published to updated to now. Entries
// without any identifier are rejected.
func Normalize(entry *gofeed.Item, source string, now time.Time) (domain.NewsItem, bool) {
	if entry == nil {
		return domain.NewsItem{}, false
	}

	link := strings.TrimSpace(entry.Link)
	id := firstNonEmpty(entry.GUID, link)
	if id == "" {
		return domain.NewsItem{}, false
	}

	published := now.UTC()
	if ts := firstTime(entry.PublishedParsed, entry.UpdatedParsed); ts != nil {
		published = ts.UTC()
	}

	return domain.NewsItem{
		Source:    source,
		ID:        id,
		Title:     strings.TrimSpace(entry.Title),
		Link:      link,
		Summary:   firstNonEmpty(entry.Description, entry.Content),
		Published: &published,
	}, true
}

// IsRecent reports whether published lies within maxAge of now.
// Future timestamps count as recent; a non-positive maxAge accepts everything.
func IsRecent(published, now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 {
		return true
	}
	return now.Sub(published) <= maxAge
}

func firstTime(values ...*time.Time) *time.Time {
	for _, v := range values {
		if v != nil && !v.IsZero() {
			return v
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
