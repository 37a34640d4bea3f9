package publishers

import (
	"time"

	"github.com/samvad-hq/samvad-feed-monitor/internal/domain"
)

// Notification is the payload handed to every sink. Chat sinks send Text;
// queue and webhook sinks send the whole value as JSON.
type Notification struct {
	ItemID    string               `json:"item_id"`
	Source    string               `json:"source"`
	Text      string               `json:"text"`
	Item      domain.ProcessedItem `json:"item"`
	CreatedAt time.Time            `json:"created_at"`
}

// NewNotification constructs a Notification for a processed item and its rendered text.
func NewNotification(processed domain.ProcessedItem, text string) Notification {
	return Notification{
		ItemID:    processed.News.ID,
		Source:    processed.News.Source,
		Text:      text,
		Item:      processed,
		CreatedAt: time.Now().UTC(),
	}
}

// attributes are attached to queue messages so consumers can route without decoding the body.
func (n Notification) attributes() map[string]string {
	return map[string]string{
		"item_id": n.ItemID,
		"source":  n.Source,
	}
}
