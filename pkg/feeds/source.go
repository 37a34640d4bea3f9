package feeds

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/samvad-hq/samvad-feed-monitor/internal/domain"
	"github.com/samvad-hq/samvad-feed-monitor/internal/logger"
	"github.com/samvad-hq/samvad-feed-monitor/pkg/httpclient"
)

const (
	// DefaultTimeout bounds a single feed download.
	DefaultTimeout = 10 * time.Second

	maxErrorSnippet = 512
)

// Options tunes a Source.
type Options struct {
	MaxAge    time.Duration // entries older than this are dropped; <= 0 disables the check
	Timeout   time.Duration
	UserAgent string
}

// Result is the outcome of fetching one feed URL.
type Result struct {
	URL   string
	Items []domain.NewsItem
	Err   error
}

// Source fetches feed URLs concurrently and normalizes their entries.
type Source struct {
	client  httpclient.Client
	maxAge  time.Duration
	timeout time.Duration
	headers map[string]string
	now     func() time.Time
	log     logger.Logger
}

// NewSource builds a Source. A nil client gets a resty client using opts.Timeout.
func NewSource(client httpclient.Client, opts Options, log logger.Logger) *Source {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if client == nil {
		client = httpclient.NewRestyClient(opts.Timeout)
	}
	headers := map[string]string{}
	if ua := strings.TrimSpace(opts.UserAgent); ua != "" {
		headers["User-Agent"] = ua
	}
	return &Source{
		client:  client,
		maxAge:  opts.MaxAge,
		timeout: opts.Timeout,
		headers: headers,
		now:     time.Now,
		log:     logger.Ensure(log),
	}
}

// FetchAll fetches every URL concurrently and concatenates the surviving items.
// A failing URL contributes nothing and never aborts the others.
func (s *Source) FetchAll(ctx context.Context, urls []string) []domain.NewsItem {
	var items []domain.NewsItem
	for _, res := range s.FetchResults(ctx, urls) {
		items = append(items, res.Items...)
	}
	return items
}

// FetchResults is FetchAll with the per-URL outcome kept, in input order.
func (s *Source) FetchResults(ctx context.Context, urls []string) []Result {
	results := make([]Result, len(urls))

	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			items, err := s.fetchOne(ctx, u)
			if err != nil {
				s.log.ErrorObj("feed fetch failed", "feed_error", map[string]any{
					"url":   u,
					"error": err.Error(),
				})
			}
			results[i] = Result{URL: u, Items: items, Err: err}
		}(i, u)
	}
	wg.Wait()

	return results
}

func (s *Source) fetchOne(ctx context.Context, url string) ([]domain.NewsItem, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("feed url is empty")
	}
	s.log.InfoObj("reading feed", "feed_url", url)

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.Get(fetchCtx, url, s.headers)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	body := resp.Body()
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return nil, fmt.Errorf("%s returned status %d body: %s", url, code, responseSnippet(body))
	}

	// gofeed parsers keep per-document state, so each fetch gets its own.
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}

	return s.collect(url, feed.Items), nil
}

func (s *Source) collect(source string, entries []*gofeed.Item) []domain.NewsItem {
	now := s.now().UTC()
	items := make([]domain.NewsItem, 0, len(entries))
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		if entry.PublishedParsed == nil && entry.UpdatedParsed == nil {
			s.log.DebugObj("entry has no date, using fetch time; age filter is approximate", "entry", map[string]any{
				"source": source,
				"title":  strings.TrimSpace(entry.Title),
			})
		}
		item, ok := Normalize(entry, source, now)
		if !ok {
			continue
		}
		if !IsRecent(*item.Published, now, s.maxAge) {
			continue
		}
		items = append(items, item)
	}
	return items
}

func responseSnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorSnippet {
		return s[:maxErrorSnippet] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
