package publishers

import (
	"time"

	"github.com/samvad-hq/samvad-feed-monitor/internal/domain"
)

func testNotification() Notification {
	published := time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)
	item := domain.NewsItem{
		Source:    "https://example.com/feed",
		ID:        "a1",
		Title:     "OpenAI releases new model",
		Link:      "https://example.com/a1",
		Published: &published,
	}
	return NewNotification(domain.NewProcessedItem(item, "roteiro", ""), "🔥 OpenAI releases new model")
}
