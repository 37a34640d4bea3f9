package publishers

import "context"

// Publisher sends notifications to a downstream sink (Telegram, Discord, SQS, etc).
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, n Notification) error
}
