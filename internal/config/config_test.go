package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return fs
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg.Feeds, DefaultFeeds) || !reflect.DeepEqual(cfg.Keywords, DefaultKeywords) {
		t.Fatalf("expected default feeds and keywords")
	}
	if cfg.MaxAge != 24*time.Hour || cfg.Limit != 10 || cfg.Workers != 5 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Model != "gpt-4o-mini" || cfg.StateFile != "data/seen_items.json" || cfg.StorageType != "json" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.FetchTimeout != 10*time.Second || cfg.AITimeout != 60*time.Second || cfg.NotifyTimeout != 10*time.Second {
		t.Fatalf("unexpected timeouts %+v", cfg)
	}
	if !cfg.AIEnabled() || cfg.TelegramEnabled || cfg.DiscordEnabled {
		t.Fatalf("unexpected flags %+v", cfg)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LIMIT", "3")
	t.Setenv("MAX_AGE_HOURS", "6")
	t.Setenv("NO_AI", "true")
	t.Setenv("FEEDS", `["https://a.example/rss", "https://b.example/rss"]`)
	t.Setenv("KEYWORDS", "llm, robot")
	t.Setenv("TELEGRAM_ENABLED", "true")
	t.Setenv("TELEGRAM_BOT_TOKEN", "secret")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Limit != 3 || cfg.MaxAge != 6*time.Hour || cfg.AIEnabled() {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Feeds, []string{"https://a.example/rss", "https://b.example/rss"}) {
		t.Fatalf("feeds = %v", cfg.Feeds)
	}
	if !reflect.DeepEqual(cfg.Keywords, []string{"llm", "robot"}) {
		t.Fatalf("keywords = %v", cfg.Keywords)
	}
	if !cfg.TelegramEnabled || cfg.TelegramBotToken != "secret" {
		t.Fatalf("telegram env not applied")
	}
	if red := cfg.Redacted(); red.TelegramBotToken != "***" || cfg.TelegramBotToken != "secret" {
		t.Fatalf("Redacted must mask a copy only")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("MODEL=gpt-test\nSAVE_DIR=out\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("MODEL")
		os.Unsetenv("SAVE_DIR")
	})

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "gpt-test" || cfg.SaveDir != "out" {
		t.Fatalf(".env not applied: model=%q save_dir=%q", cfg.Model, cfg.SaveDir)
	}
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("LIMIT", "3")

	feeds := filepath.Join(dir, "feeds.txt")
	if err := os.WriteFile(feeds, []byte("https://x.example/rss\n\n  https://y.example/rss  \n"), 0o644); err != nil {
		t.Fatalf("write feeds: %v", err)
	}
	keywords := filepath.Join(dir, "keywords.yaml")
	if err := os.WriteFile(keywords, []byte("items:\n  - openai\n  - claude\n"), 0o644); err != nil {
		t.Fatalf("write keywords: %v", err)
	}

	cfg, err := Load(newFlags(t,
		"--limit", "7",
		"--feeds", feeds,
		"--keywords", keywords,
		"--discord",
		"--no-ai",
		"--storage", "bbolt",
		"--workers", "2",
	))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Limit != 7 || cfg.Workers != 2 || cfg.StorageType != "bbolt" || !cfg.DiscordEnabled || cfg.AIEnabled() {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Feeds, []string{"https://x.example/rss", "https://y.example/rss"}) {
		t.Fatalf("feeds = %v", cfg.Feeds)
	}
	if !reflect.DeepEqual(cfg.Keywords, []string{"openai", "claude"}) {
		t.Fatalf("keywords = %v", cfg.Keywords)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "monitor.yaml")
	raw := "limit: 4\nmodel: gpt-file\nkeywords:\n  - rag\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(newFlags(t, "--config", path))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Limit != 4 || cfg.Model != "gpt-file" || !reflect.DeepEqual(cfg.Keywords, []string{"rag"}) {
		t.Fatalf("config file not applied: %+v", cfg)
	}
	if cfg.ConfigFile != path {
		t.Fatalf("ConfigFile = %q", cfg.ConfigFile)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string][]string{
		"negative limit":  {"--limit=-1"},
		"zero workers":    {"--workers=0"},
		"bad storage":     {"--storage", "redis"},
		"missing feeds":   {"--feeds", "does-not-exist.txt"},
		"missing config":  {"--config", "nope.yaml"},
		"negative maxage": {"--max-age-hours=-2"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			if _, err := Load(newFlags(t, args...)); err == nil {
				t.Fatalf("expected error for %v", args)
			}
		})
	}
}

func TestReadList(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"list.txt":     "a\n\n b \n",
		"list.json":    `["a", "", "b"]`,
		"wrapped.json": `{"items": ["a", "b"]}`,
		"list.yml":     "- a\n- b\n",
	}
	for name, body := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		got, err := ReadList(path)
		if err != nil {
			t.Fatalf("ReadList(%s): %v", name, err)
		}
		if !reflect.DeepEqual(got, []string{"a", "b"}) {
			t.Fatalf("ReadList(%s) = %q", name, got)
		}
	}

	bad := filepath.Join(dir, "bad.json")
	_ = os.WriteFile(bad, []byte("{"), 0o644)
	if _, err := ReadList(bad); err == nil {
		t.Fatalf("expected parse error")
	}
}
