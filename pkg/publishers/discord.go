package publishers

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/samvad-hq/samvad-feed-monitor/pkg/httpclient"
)

// discordPublisher posts the notification text to a channel webhook.
type discordPublisher struct {
	id      string
	webhook string
	client  *resty.Client
	log     Logger
}

func newDiscordPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.Discord == nil || cfg.Discord.WebhookURL == "" {
		return nil, fmt.Errorf("publisher %q missing discord webhook", cfg.ID)
	}
	return &discordPublisher{
		id:      cfg.ID,
		webhook: cfg.Discord.WebhookURL,
		client:  httpclient.NewRestyHTTPClient(timeoutFor(cfg.Discord.TimeoutSeconds)),
		log:     ensureLogger(log),
	}, nil
}

func (d *discordPublisher) ID() string   { return d.id }
func (d *discordPublisher) Type() string { return TypeDiscord }

func (d *discordPublisher) Publish(ctx context.Context, n Notification) error {
	if err := postJSON(ctx, d.client, d.webhook, map[string]string{"content": n.Text}); err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}
	d.log.DebugObj("discord message sent", "publisher_discord_delivery", map[string]any{
		"publisher_id": d.id,
		"item_id":      n.ItemID,
	})
	return nil
}
