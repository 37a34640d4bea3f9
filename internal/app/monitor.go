package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/samvad-hq/samvad-feed-monitor/internal/config"
	"github.com/samvad-hq/samvad-feed-monitor/internal/filter"
	"github.com/samvad-hq/samvad-feed-monitor/internal/ledger"
	"github.com/samvad-hq/samvad-feed-monitor/internal/logger"
	"github.com/samvad-hq/samvad-feed-monitor/internal/pipeline"
	"github.com/samvad-hq/samvad-feed-monitor/internal/processor"
	"github.com/samvad-hq/samvad-feed-monitor/internal/summarizer"
	"github.com/samvad-hq/samvad-feed-monitor/pkg/feeds"
	"github.com/samvad-hq/samvad-feed-monitor/pkg/publishers"
)

// Monitor is the single-shot runtime: it owns the ledger store and the
// notification sinks for one run.
type Monitor struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	fanout   *publishers.Fanout
	store    ledger.Store
	log      logger.Logger
}

// Options lets callers replace the output writer (stdout by default).
type Options struct {
	Out io.Writer
}

// NewMonitor builds every component from cfg.
func NewMonitor(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*Monitor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := ledger.NewStore(cfg.StorageType, cfg.StateFile, log)
	if err != nil {
		return nil, fmt.Errorf("init ledger: %w", err)
	}
	log.InfoObj("ledger initialized", "ledger_config", map[string]any{
		"type": cfg.StorageType,
		"path": cfg.StateFile,
	})

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	var sum processor.Summarizer
	if cfg.AIEnabled() {
		sum = summarizer.New(summarizer.Options{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.Model,
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: cfg.AITimeout,
		}, log)
	}

	source := feeds.NewSource(nil, feeds.Options{
		MaxAge:    cfg.MaxAge,
		Timeout:   cfg.FetchTimeout,
		UserAgent: cfg.UserAgent,
	}, log)

	kw := filter.New(cfg.Keywords)
	if len(kw.Keywords()) == 0 {
		log.WarnObj("no keywords configured; nothing will match", "filter", map[string]any{"keywords_file": cfg.KeywordsFile})
	}

	proc := processor.New(sum, fanout, processor.Options{
		AIEnabled: cfg.AIEnabled(),
		SaveDir:   cfg.SaveDir,
		Out:       opts.Out,
	}, log)

	pipe := pipeline.New(source, kw, store, proc, pipeline.Options{
		Limit:   cfg.Limit,
		Workers: cfg.Workers,
	}, log)

	return &Monitor{
		cfg:      cfg,
		pipeline: pipe,
		fanout:   fanout,
		store:    store,
		log:      log,
	}, nil
}

// buildFanout merges the chat channels from env/flags with the optional
// publishers file and builds every enabled sink.
func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	var (
		reg *publishers.ConfigRegistry
		err error
	)
	if cfg.PublishersFile != "" {
		reg, err = publishers.LoadRegistry(cfg.PublishersFile)
	} else {
		reg, err = publishers.NewConfigRegistry(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	builtins, skipped := publishers.BuiltinConfigs(publishers.ChatSettings{
		TelegramEnabled:   cfg.TelegramEnabled,
		TelegramBotToken:  cfg.TelegramBotToken,
		TelegramChatID:    cfg.TelegramChatID,
		DiscordEnabled:    cfg.DiscordEnabled,
		DiscordWebhookURL: cfg.DiscordWebhookURL,
		TimeoutSeconds:    cfg.NotifyTimeoutSeconds,
	})
	for _, name := range skipped {
		log.WarnObj("channel enabled without credentials; skipping", "publishers_meta", map[string]any{"channel": name})
	}
	if err := reg.Merge(builtins...); err != nil {
		return nil, fmt.Errorf("register chat channels: %w", err)
	}

	enabled := reg.Enabled()
	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, p := range enabled {
		summaries = append(summaries, map[string]string{"id": p.ID, "type": p.Type})
	}
	log.InfoObj("publishers configured", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})

	return publishers.NewFanout(pubs, log), nil
}

// Run executes one pass over the configured feeds and releases resources.
func (m *Monitor) Run(ctx context.Context) (pipeline.Stats, error) {
	if m == nil || m.pipeline == nil {
		return pipeline.Stats{}, fmt.Errorf("monitor is not initialized")
	}
	defer m.close()

	m.log.InfoObj("monitor run starting", "monitor_state", map[string]any{
		"feeds":      len(m.cfg.Feeds),
		"keywords":   len(m.cfg.Keywords),
		"publishers": m.fanout.IDs(),
		"ai_enabled": m.cfg.AIEnabled(),
		"limit":      m.cfg.Limit,
		"workers":    m.cfg.Workers,
	})

	stats, err := m.pipeline.Run(ctx, m.cfg.Feeds)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return stats, err
		}
		return stats, fmt.Errorf("pipeline run: %w", err)
	}
	return stats, nil
}

func (m *Monitor) close() {
	if err := m.fanout.Close(); err != nil {
		m.log.ErrorObj("failed to close publishers", "error", err.Error())
	}
	if m.store == nil {
		return
	}
	if err := m.store.Close(); err != nil {
		m.log.ErrorObj("failed to close ledger", "error", err.Error())
	}
}
