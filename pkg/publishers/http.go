package publishers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samvad-hq/samvad-feed-monitor/pkg/httpclient"
)

const maxBodySnippet = 512

type httpPublisher struct {
	id      string
	method  string
	url     string
	headers map[string]string
	client  *resty.Client
	log     Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}

	method := cfg.HTTP.Method
	if method == "" {
		method = httpDefaultMethod
	}

	return &httpPublisher{
		id:      cfg.ID,
		method:  method,
		url:     cfg.HTTP.URL,
		headers: cfg.HTTP.Headers,
		client:  httpclient.NewRestyHTTPClient(timeoutFor(cfg.HTTP.TimeoutSeconds)),
		log:     ensureLogger(log),
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return TypeHTTP }

// Publish sends the notification as a JSON document.
func (h *httpPublisher) Publish(ctx context.Context, n Notification) error {
	req := h.client.R().
		SetContext(ctx).
		SetBody(n)

	if len(h.headers) > 0 {
		req.SetHeaders(h.headers)
	}

	req.SetHeader("Content-Type", "application/json")

	resp, err := req.Execute(h.method, h.url)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("http response status %d: %s", resp.StatusCode(), readBodySnippet(resp.Body()))
	}
	return nil
}

// postJSON sends body with a single POST and treats non-2xx as failure.
func postJSON(ctx context.Context, client *resty.Client, url string, body any) error {
	resp, err := client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(url)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("response status %d: %s", resp.StatusCode(), readBodySnippet(resp.Body()))
	}
	return nil
}

func timeoutFor(seconds int) time.Duration {
	return time.Duration(defaultTimeout(seconds)) * time.Second
}

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > maxBodySnippet {
		body = body[:maxBodySnippet]
	}
	return strings.TrimSpace(string(body))
}
