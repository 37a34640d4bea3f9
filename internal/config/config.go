package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samvad-hq/samvad-feed-monitor/internal/ledger"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultFeeds are polled when neither FEEDS nor a feeds file is configured.
var DefaultFeeds = []string{
	"https://techcrunch.com/category/artificial-intelligence/feed/",
	"https://www.theverge.com/rss/ai-artificial-intelligence/index.xml",
	"https://www.wired.com/feed/tag/artificial-intelligence/latest/rss",
	"https://arstechnica.com/feed/",
	"https://www.technologyreview.com/feed/",
	"https://www.engadget.com/rss.xml",
}

// DefaultKeywords match AI news in Portuguese and English.
var DefaultKeywords = []string{
	"ia", "ai", "inteligência artificial", "inteligencia artificial",
	"openai", "chatgpt", "gpt-", "gpt ", "gemini", "claude",
	"llm", "nvidia", "machine learning", "aprendizado de máquina",
	"modelo generativo", "robô", "robot", "neural", "rag",
}

// Config holds the application configuration merged from defaults, an
// optional config file, .env and environment variables, then CLI flags.
type Config struct {
	Feeds        []string `mapstructure:"-"`
	Keywords     []string `mapstructure:"-"`
	FeedsFile    string   `mapstructure:"feeds_file"`
	KeywordsFile string   `mapstructure:"keywords_file"`

	MaxAgeHours         int           `mapstructure:"max_age_hours"`
	MaxAge              time.Duration `mapstructure:"-"`
	Limit               int           `mapstructure:"limit"`
	Workers             int           `mapstructure:"workers"`
	FetchTimeoutSeconds int           `mapstructure:"fetch_timeout_seconds"`
	FetchTimeout        time.Duration `mapstructure:"-"`
	UserAgent           string        `mapstructure:"user_agent"`

	NoAI             bool          `mapstructure:"no_ai"`
	Model            string        `mapstructure:"model"`
	OpenAIAPIKey     string        `mapstructure:"openai_api_key"`
	OpenAIBaseURL    string        `mapstructure:"openai_base_url"`
	AITimeoutSeconds int           `mapstructure:"ai_timeout_seconds"`
	AITimeout        time.Duration `mapstructure:"-"`

	StorageType string `mapstructure:"storage_type"`
	StateFile   string `mapstructure:"state_file"`
	SaveDir     string `mapstructure:"save_dir"`

	TelegramEnabled      bool          `mapstructure:"telegram_enabled"`
	TelegramBotToken     string        `mapstructure:"telegram_bot_token"`
	TelegramChatID       string        `mapstructure:"telegram_chat_id"`
	DiscordEnabled       bool          `mapstructure:"discord_enabled"`
	DiscordWebhookURL    string        `mapstructure:"discord_webhook_url"`
	PublishersFile       string        `mapstructure:"publishers_file"`
	NotifyTimeoutSeconds int           `mapstructure:"notify_timeout_seconds"`
	NotifyTimeout        time.Duration `mapstructure:"-"`

	LogLevel   string `mapstructure:"log_level"`
	ConfigFile string `mapstructure:"-"`
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"feeds":         "feeds_file",
	"keywords":      "keywords_file",
	"limit":         "limit",
	"max-age-hours": "max_age_hours",
	"no-ai":         "no_ai",
	"telegram":      "telegram_enabled",
	"discord":       "discord_enabled",
	"save-dir":      "save_dir",
	"state-file":    "state_file",
	"storage":       "storage_type",
	"log-level":     "log_level",
	"workers":       "workers",
	"publishers":    "publishers_file",
	"model":         "model",
}

// RegisterFlags declares the CLI overrides on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (yaml, json or toml)")
	fs.String("feeds", "", "file listing feed URLs (txt, yaml or json)")
	fs.String("keywords", "", "file listing keywords (txt, yaml or json)")
	fs.Int("limit", 0, "maximum items processed per run (0 = unlimited)")
	fs.Int("max-age-hours", 0, "recency window in hours")
	fs.Bool("no-ai", false, "disable script generation")
	fs.Bool("telegram", false, "enable the Telegram channel")
	fs.Bool("discord", false, "enable the Discord channel")
	fs.String("save-dir", "", "directory for per-item JSON files")
	fs.String("state-file", "", "ledger path")
	fs.String("storage", "", "ledger backend: json, bbolt or none")
	fs.String("log-level", "", "debug, info, warn or error")
	fs.Int("workers", 0, "concurrent item processing limit")
	fs.String("publishers", "", "publishers registry file (yaml or json)")
	fs.String("model", "", "chat model used for scripts")
}

// Load reads configuration. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("feeds", DefaultFeeds)
	v.SetDefault("keywords", DefaultKeywords)
	v.SetDefault("feeds_file", "")
	v.SetDefault("keywords_file", "")
	v.SetDefault("max_age_hours", 24)
	v.SetDefault("limit", 10)
	v.SetDefault("workers", 5)
	v.SetDefault("fetch_timeout_seconds", 10)
	v.SetDefault("user_agent", "samvad-feed-monitor/1.0")
	v.SetDefault("no_ai", false)
	v.SetDefault("model", "gpt-4o-mini")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_base_url", "")
	v.SetDefault("ai_timeout_seconds", 60)
	v.SetDefault("storage_type", ledger.TypeJSON)
	v.SetDefault("state_file", "data/seen_items.json")
	v.SetDefault("save_dir", "")
	v.SetDefault("telegram_enabled", false)
	v.SetDefault("telegram_bot_token", "")
	v.SetDefault("telegram_chat_id", "")
	v.SetDefault("discord_enabled", false)
	v.SetDefault("discord_webhook_url", "")
	v.SetDefault("publishers_file", "")
	v.SetDefault("notify_timeout_seconds", 10)
	v.SetDefault("log_level", "info")

	v.AutomaticEnv()

	var configFile string
	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
		if f := flags.Lookup("config"); f != nil {
			configFile = strings.TrimSpace(f.Value.String())
		}
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ConfigFile = configFile

	feeds, err := toList(v.Get("feeds"))
	if err != nil {
		return nil, fmt.Errorf("parse feeds: %w", err)
	}
	keywords, err := toList(v.Get("keywords"))
	if err != nil {
		return nil, fmt.Errorf("parse keywords: %w", err)
	}
	cfg.Feeds, cfg.Keywords = feeds, keywords

	if cfg.FeedsFile != "" {
		if cfg.Feeds, err = ReadList(cfg.FeedsFile); err != nil {
			return nil, fmt.Errorf("read feeds file: %w", err)
		}
	}
	if cfg.KeywordsFile != "" {
		if cfg.Keywords, err = ReadList(cfg.KeywordsFile); err != nil {
			return nil, fmt.Errorf("read keywords file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.MaxAge = time.Duration(cfg.MaxAgeHours) * time.Hour
	cfg.FetchTimeout = time.Duration(cfg.FetchTimeoutSeconds) * time.Second
	cfg.AITimeout = time.Duration(cfg.AITimeoutSeconds) * time.Second
	cfg.NotifyTimeout = time.Duration(cfg.NotifyTimeoutSeconds) * time.Second
	cfg.StorageType = strings.ToLower(strings.TrimSpace(cfg.StorageType))

	return &cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	if len(c.Feeds) == 0 {
		return fmt.Errorf("no feeds configured")
	}
	if c.Limit < 0 {
		return fmt.Errorf("invalid limit %d (must be >= 0)", c.Limit)
	}
	if c.MaxAgeHours <= 0 {
		return fmt.Errorf("invalid max_age_hours %d (must be positive)", c.MaxAgeHours)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("invalid workers %d (must be positive)", c.Workers)
	}
	if c.FetchTimeoutSeconds <= 0 || c.AITimeoutSeconds <= 0 || c.NotifyTimeoutSeconds <= 0 {
		return fmt.Errorf("timeouts must be positive seconds")
	}
	switch strings.ToLower(strings.TrimSpace(c.StorageType)) {
	case ledger.TypeJSON, ledger.TypeBBolt, ledger.TypeNone:
	default:
		return fmt.Errorf("invalid storage_type %q (json, bbolt or none)", c.StorageType)
	}
	return nil
}

// AIEnabled reports whether scripts should be generated.
func (c *Config) AIEnabled() bool {
	return !c.NoAI
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "***"
	}
	c.OpenAIAPIKey = mask(c.OpenAIAPIKey)
	c.TelegramBotToken = mask(c.TelegramBotToken)
	c.DiscordWebhookURL = mask(c.DiscordWebhookURL)
	return c
}

// toList accepts a slice, a JSON array string, or a comma separated string.
// Slice and JSON entries are kept verbatim, so "gpt " keeps its space; comma
// separated entries are trimmed.
func toList(raw any) ([]string, error) {
	switch val := raw.(type) {
	case nil:
		return nil, nil
	case []string:
		return cleanList(val), nil
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, fmt.Sprint(item))
		}
		return cleanList(out), nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil, nil
		}
		if strings.HasPrefix(s, "[") {
			var out []string
			if err := json.Unmarshal([]byte(s), &out); err != nil {
				return nil, err
			}
			return cleanList(out), nil
		}
		parts := strings.Split(s, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return cleanList(parts), nil
	default:
		return nil, fmt.Errorf("unsupported list value %T", raw)
	}
}
