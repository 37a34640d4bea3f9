package publishers

import "strings"

// ChatSettings carries the chat channels configured through env vars and flags.
type ChatSettings struct {
	TelegramEnabled   bool
	TelegramBotToken  string
	TelegramChatID    string
	DiscordEnabled    bool
	DiscordWebhookURL string
	TimeoutSeconds    int
}

// BuiltinConfigs returns publisher configs for the enabled chat channels.
// A channel that is enabled but lacks credentials is skipped and reported in
// the second return value; it is not an error.
func BuiltinConfigs(s ChatSettings) ([]PublisherConfig, []string) {
	var (
		cfgs    []PublisherConfig
		skipped []string
	)

	if s.TelegramEnabled {
		token := strings.TrimSpace(s.TelegramBotToken)
		chat := strings.TrimSpace(s.TelegramChatID)
		if token == "" || chat == "" {
			skipped = append(skipped, TypeTelegram)
		} else {
			cfgs = append(cfgs, PublisherConfig{
				ID:   TypeTelegram,
				Type: TypeTelegram,
				Telegram: &TelegramPublisherConfig{
					BotToken:       token,
					ChatID:         chat,
					TimeoutSeconds: s.TimeoutSeconds,
				},
			})
		}
	}

	if s.DiscordEnabled {
		hook := strings.TrimSpace(s.DiscordWebhookURL)
		if hook == "" {
			skipped = append(skipped, TypeDiscord)
		} else {
			cfgs = append(cfgs, PublisherConfig{
				ID:   TypeDiscord,
				Type: TypeDiscord,
				Discord: &DiscordPublisherConfig{
					WebhookURL:     hook,
					TimeoutSeconds: s.TimeoutSeconds,
				},
			})
		}
	}

	return cfgs, skipped
}
