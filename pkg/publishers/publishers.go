package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	// Supported publisher types.
	TypeTelegram = "telegram"
	TypeDiscord  = "discord"
	TypeHTTP     = "http"
	TypeSQS      = "sqs"
	TypeSNS      = "sns"
	TypePubSub   = "pubsub"

	httpDefaultMethod     = "POST"
	defaultTimeoutSeconds = 10
	telegramDefaultAPI    = "https://api.telegram.org"
)

// configFile represents the structure of the publishers configuration file.
type configFile struct {
	Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
}

// PublisherConfig represents a single publisher entry declared in config files.
type PublisherConfig struct {
	ID            string                   `json:"id" yaml:"id"`
	Type          string                   `json:"type" yaml:"type"`
	Enabled       *bool                    `json:"enabled" yaml:"enabled"`
	RatePerSecond float64                  `json:"rate_per_second" yaml:"rate_per_second"`
	Burst         int                      `json:"burst" yaml:"burst"`
	Telegram      *TelegramPublisherConfig `json:"telegram" yaml:"telegram"`
	Discord       *DiscordPublisherConfig  `json:"discord" yaml:"discord"`
	HTTP          *HTTPPublisherConfig     `json:"http" yaml:"http"`
	SQS           *SQSPublisherConfig      `json:"sqs" yaml:"sqs"`
	SNS           *SNSPublisherConfig      `json:"sns" yaml:"sns"`
	PubSub        *PubSubPublisherConfig   `json:"pubsub" yaml:"pubsub"`
}

// TelegramPublisherConfig holds Bot API settings.
type TelegramPublisherConfig struct {
	BotToken       string `json:"bot_token" yaml:"bot_token"`
	ChatID         string `json:"chat_id" yaml:"chat_id"`
	APIURL         string `json:"api_url" yaml:"api_url"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// DiscordPublisherConfig holds webhook settings.
type DiscordPublisherConfig struct {
	WebhookURL     string `json:"webhook_url" yaml:"webhook_url"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// HTTPPublisherConfig holds generic HTTP sink settings.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// AWSCredentials optionally pins static credentials instead of the default chain.
type AWSCredentials struct {
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
	SessionToken    string `json:"session_token" yaml:"session_token"`
}

// SQSPublisherConfig holds AWS SQS specific settings.
type SQSPublisherConfig struct {
	QueueURL    string          `json:"uri" yaml:"uri"`
	Region      string          `json:"region" yaml:"region"`
	Credentials *AWSCredentials `json:"credentials" yaml:"credentials"`
}

// SNSPublisherConfig holds AWS SNS specific settings.
type SNSPublisherConfig struct {
	TopicARN    string          `json:"topic_arn" yaml:"topic_arn"`
	Region      string          `json:"region" yaml:"region"`
	Credentials *AWSCredentials `json:"credentials" yaml:"credentials"`
}

// PubSubPublisherConfig holds GCP Pub/Sub settings.
type PubSubPublisherConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// ConfigRegistry materializes publisher definitions loaded from config files.
type ConfigRegistry struct {
	mu         sync.RWMutex
	publishers []PublisherConfig
	idx        map[string]PublisherConfig
}

// LoadRegistry loads the publisher registry from a YAML/JSON file.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open publishers file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}

	fileReg, err := parsePublisherRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(fileReg.Publishers) == 0 {
		return nil, errors.New("publishers file contains no publishers entries")
	}
	return NewConfigRegistry(fileReg.Publishers)
}

// NewConfigRegistry sanitizes and validates cfgs. IDs must be unique.
func NewConfigRegistry(cfgs []PublisherConfig) (*ConfigRegistry, error) {
	reg := &ConfigRegistry{
		publishers: make([]PublisherConfig, 0, len(cfgs)),
		idx:        make(map[string]PublisherConfig, len(cfgs)),
	}
	for i := range cfgs {
		if err := reg.add(cfgs[i]); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
	}
	return reg, nil
}

// Merge appends cfgs to the registry, rejecting duplicate IDs.
func (r *ConfigRegistry) Merge(cfgs ...PublisherConfig) error {
	for _, cfg := range cfgs {
		if err := r.add(cfg); err != nil {
			return err
		}
	}
	return nil
}

func (r *ConfigRegistry) add(raw PublisherConfig) error {
	cfg := sanitizePublisherConfig(raw)
	if err := validatePublisherConfig(cfg); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.idx[cfg.ID]; exists {
		return fmt.Errorf("duplicate publisher id %q", cfg.ID)
	}
	r.publishers = append(r.publishers, cfg)
	r.idx[cfg.ID] = cfg
	return nil
}

// parsePublisherRegistry attempts to decode the publishers file content.
func parsePublisherRegistry(data []byte, ext string) (configFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var reg configFile
		if err := d.fn(data, &reg); err == nil {
			return reg, nil
		}
	}

	return configFile{}, errors.New("publishers file format not recognized (expected YAML or JSON)")
}

func sanitizePublisherConfig(cfg PublisherConfig) PublisherConfig {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))

	if cfg.Enabled == nil {
		def := true
		cfg.Enabled = &def
	}
	if cfg.RatePerSecond < 0 {
		cfg.RatePerSecond = 0
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Telegram != nil {
		c := *cfg.Telegram
		c.BotToken = strings.TrimSpace(c.BotToken)
		c.ChatID = strings.TrimSpace(c.ChatID)
		c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
		if c.APIURL == "" {
			c.APIURL = telegramDefaultAPI
		}
		c.TimeoutSeconds = defaultTimeout(c.TimeoutSeconds)
		cfg.Telegram = &c
	}
	if cfg.Discord != nil {
		c := *cfg.Discord
		c.WebhookURL = strings.TrimSpace(c.WebhookURL)
		c.TimeoutSeconds = defaultTimeout(c.TimeoutSeconds)
		cfg.Discord = &c
	}
	if cfg.HTTP != nil {
		c := *cfg.HTTP
		c.URL = strings.TrimSpace(c.URL)
		c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
		if c.Method == "" {
			c.Method = httpDefaultMethod
		}
		c.Headers = sanitizeHeaders(c.Headers)
		c.TimeoutSeconds = defaultTimeout(c.TimeoutSeconds)
		cfg.HTTP = &c
	}
	if cfg.SQS != nil {
		c := *cfg.SQS
		c.QueueURL = strings.TrimSpace(c.QueueURL)
		c.Region = strings.TrimSpace(c.Region)
		cfg.SQS = &c
	}
	if cfg.SNS != nil {
		c := *cfg.SNS
		c.TopicARN = strings.TrimSpace(c.TopicARN)
		c.Region = strings.TrimSpace(c.Region)
		cfg.SNS = &c
	}
	if cfg.PubSub != nil {
		c := *cfg.PubSub
		c.ProjectID = strings.TrimSpace(c.ProjectID)
		c.Topic = strings.TrimSpace(c.Topic)
		c.CredentialsFile = strings.TrimSpace(c.CredentialsFile)
		cfg.PubSub = &c
	}

	return cfg
}

func defaultTimeout(seconds int) int {
	if seconds <= 0 {
		return defaultTimeoutSeconds
	}
	return seconds
}

// sanitizeHeaders trims and removes empty headers.
func sanitizeHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// validatePublisherConfig checks that required fields are present.
func validatePublisherConfig(cfg PublisherConfig) error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}
	switch cfg.Type {
	case "":
		return fmt.Errorf("type is required for publisher %q", cfg.ID)
	case TypeTelegram:
		if cfg.Telegram == nil {
			return fmt.Errorf("telegram config required for publisher %q", cfg.ID)
		}
		if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.bot_token and telegram.chat_id are required for publisher %q", cfg.ID)
		}
	case TypeDiscord:
		if cfg.Discord == nil || cfg.Discord.WebhookURL == "" {
			return fmt.Errorf("discord.webhook_url is required for publisher %q", cfg.ID)
		}
	case TypeHTTP:
		if cfg.HTTP == nil {
			return fmt.Errorf("http config required for publisher %q", cfg.ID)
		}
		if cfg.HTTP.URL == "" {
			return fmt.Errorf("http.url is required for publisher %q", cfg.ID)
		}
	case TypeSQS:
		if cfg.SQS == nil {
			return fmt.Errorf("sqs config required for publisher %q", cfg.ID)
		}
		if cfg.SQS.QueueURL == "" {
			return fmt.Errorf("sqs.uri is required for publisher %q", cfg.ID)
		}
		if cfg.SQS.Region == "" {
			return fmt.Errorf("sqs.region is required for publisher %q", cfg.ID)
		}
	case TypeSNS:
		if cfg.SNS == nil {
			return fmt.Errorf("sns config required for publisher %q", cfg.ID)
		}
		if cfg.SNS.TopicARN == "" {
			return fmt.Errorf("sns.topic_arn is required for publisher %q", cfg.ID)
		}
		if cfg.SNS.Region == "" {
			return fmt.Errorf("sns.region is required for publisher %q", cfg.ID)
		}
	case TypePubSub:
		if cfg.PubSub == nil {
			return fmt.Errorf("pubsub config required for publisher %q", cfg.ID)
		}
		if cfg.PubSub.ProjectID == "" || cfg.PubSub.Topic == "" {
			return fmt.Errorf("pubsub.project_id and pubsub.topic are required for publisher %q", cfg.ID)
		}
	}
	return nil
}

// ByID returns the publisher config by id.
func (r *ConfigRegistry) ByID(id string) (PublisherConfig, bool) {
	if r == nil {
		return PublisherConfig{}, false
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return PublisherConfig{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.idx[id]
	return cfg, ok
}

// All returns all configured publishers.
func (r *ConfigRegistry) All() []PublisherConfig {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]PublisherConfig, len(r.publishers))
	copy(out, r.publishers)
	return out
}

// Enabled returns publishers that are enabled.
func (r *ConfigRegistry) Enabled() []PublisherConfig {
	all := r.All()
	if len(all) == 0 {
		return nil
	}

	out := make([]PublisherConfig, 0, len(all))
	for _, cfg := range all {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}

// EnabledValue returns enabled flag defaulting to true.
func (cfg PublisherConfig) EnabledValue() bool {
	if cfg.Enabled == nil {
		return true
	}
	return *cfg.Enabled
}
