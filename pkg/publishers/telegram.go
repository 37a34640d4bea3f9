package publishers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/samvad-hq/samvad-feed-monitor/pkg/httpclient"
)

type telegramMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// telegramPublisher posts the notification text through the Bot API sendMessage method.
type telegramPublisher struct {
	id       string
	endpoint string
	token    string
	chatID   string
	client   *resty.Client
	log      Logger
}

func newTelegramPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.Telegram == nil || cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == "" {
		return nil, fmt.Errorf("publisher %q missing telegram credentials", cfg.ID)
	}
	api := cfg.Telegram.APIURL
	if api == "" {
		api = telegramDefaultAPI
	}

	return &telegramPublisher{
		id:       cfg.ID,
		endpoint: fmt.Sprintf("%s/bot%s/sendMessage", api, cfg.Telegram.BotToken),
		token:    cfg.Telegram.BotToken,
		chatID:   cfg.Telegram.ChatID,
		client:   httpclient.NewRestyHTTPClient(timeoutFor(cfg.Telegram.TimeoutSeconds)),
		log:      ensureLogger(log),
	}, nil
}

func (t *telegramPublisher) ID() string   { return t.id }
func (t *telegramPublisher) Type() string { return TypeTelegram }

func (t *telegramPublisher) Publish(ctx context.Context, n Notification) error {
	err := postJSON(ctx, t.client, t.endpoint, telegramMessage{
		ChatID:                t.chatID,
		Text:                  n.Text,
		DisableWebPagePreview: true,
	})
	if err != nil {
		// Transport errors quote the URL, which carries the bot token.
		return fmt.Errorf("telegram sendMessage to chat %s: %s", t.chatID, strings.ReplaceAll(err.Error(), t.token, "<redacted>"))
	}
	t.log.DebugObj("telegram message sent", "publisher_telegram_delivery", map[string]any{
		"publisher_id": t.id,
		"item_id":      n.ItemID,
	})
	return nil
}
