// Package summarizer drafts short-video scripts for news items with an
// OpenAI-compatible chat completion API.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/samvad-hq/samvad-feed-monitor/internal/domain"
	"github.com/samvad-hq/samvad-feed-monitor/internal/logger"
	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 60 * time.Second

	temperature    = 0.6
	maxSummaryRune = 2000
)

// ErrDisabled is returned when no API key was configured.
var ErrDisabled = errors.New("summarizer disabled: missing OPENAI_API_KEY")

const systemPrompt = "Você é roteirista do canal Cyber Inteligente. " +
	"Crie roteiros para YouTube Shorts de até 50 segundos, em português claro e direto. " +
	"Tom energético, futurista, sem enrolação. " +
	"Formato: (1) Gancho em 1 frase; (2) Essência em 3-5 frases curtas; (3) CTA com pergunta."

// Options configures the OpenAI client.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client drafts scripts using the chat completion API.
type Client struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	log     logger.Logger
}

// New builds a Client. Without an API key every call returns ErrDisabled.
func New(opts Options, log logger.Logger) *Client {
	log = logger.Ensure(log)
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var cli *openai.Client
	if key := strings.TrimSpace(opts.APIKey); key != "" {
		cfg := openai.DefaultConfig(key)
		if opts.BaseURL != "" {
			cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
		}
		cli = openai.NewClientWithConfig(cfg)
	} else {
		log.WarnObj("summarizer initialized without API key", "summarizer", map[string]any{"model": model})
	}

	return &Client{client: cli, model: model, timeout: timeout, log: log}
}

// Ready reports whether calls can reach the API.
func (c *Client) Ready() bool {
	return c != nil && c.client != nil
}

// Summarize asks the model for a script. Empty responses are errors.
func (c *Client) Summarize(ctx context.Context, item domain.NewsItem) (string, error) {
	if !c.Ready() {
		return "", ErrDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: UserPrompt(item)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion for %q: %w", item.ID, err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned by model")
	}

	script := strings.TrimSpace(resp.Choices[0].Message.Content)
	if script == "" {
		return "", errors.New("model returned an empty script")
	}

	c.log.DebugObj("script generated", "summarizer", map[string]any{
		"id":                item.ID,
		"model":             c.model,
		"duration_ms":       time.Since(start).Milliseconds(),
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
	})
	return script, nil
}

// UserPrompt renders the per-item user message.
func UserPrompt(item domain.NewsItem) string {
	summary := PlainText(item.Summary)
	if summary == "" {
		summary = "sem resumo"
	}
	var b strings.Builder
	b.WriteString("Notícia:\n")
	b.WriteString("Título: " + item.Title + "\n")
	b.WriteString("Resumo: " + summary + "\n")
	b.WriteString("Link: " + item.Link + "\n\n")
	b.WriteString("Entregue apenas o texto do roteiro. ")
	b.WriteString("Use frases curtas que cabem em fala rápida. ")
	b.WriteString("Se não houver informações suficientes, seja transparente e peça mais contexto.")
	return b.String()
}

// PlainText strips markup from a feed summary, collapses whitespace and
// caps the result length. Input without tags is returned trimmed.
func PlainText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.ContainsRune(s, '<') {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err == nil {
			s = doc.Text()
		}
	}
	s = strings.Join(strings.Fields(s), " ")
	return trimText(s, maxSummaryRune)
}

func trimText(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
