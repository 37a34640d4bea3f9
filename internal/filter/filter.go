// Package filter selects items whose text mentions a configured keyword.
package filter

import (
	"strings"

	"github.com/samvad-hq/samvad-feed-monitor/internal/domain"
)

// Filter holds a pre-lowered keyword list.
type Filter struct {
	keywords []string
}

// New lowers keywords once and drops blank entries. Surrounding spaces are
// significant: "gpt " does not match "gpt-4". Blank or whitespace-only
// keywords would be a substring of every text, so they never match here.
func New(keywords []string) *Filter {
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if strings.TrimSpace(kw) == "" {
			continue
		}
		lowered = append(lowered, strings.ToLower(kw))
	}
	return &Filter{keywords: lowered}
}

// Keywords returns the normalized keyword list.
func (f *Filter) Keywords() []string {
	out := make([]string, len(f.keywords))
	copy(out, f.keywords)
	return out
}

// Match reports whether any keyword is a substring of the item's title and summary.
// Word boundaries are not considered, so "ia" matches "diagnosticar".
func (f *Filter) Match(item domain.NewsItem) bool {
	if f == nil || len(f.keywords) == 0 {
		return false
	}
	text := strings.ToLower(item.Title + " " + item.Summary)
	for _, kw := range f.keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Apply returns the matching items in input order.
func (f *Filter) Apply(items []domain.NewsItem) []domain.NewsItem {
	out := make([]domain.NewsItem, 0, len(items))
	for _, item := range items {
		if f.Match(item) {
			out = append(out, item)
		}
	}
	return out
}

// Matches is a convenience wrapper around New(keywords).Match(item).
func Matches(item domain.NewsItem, keywords []string) bool {
	return New(keywords).Match(item)
}

// Items is a convenience wrapper around New(keywords).Apply(items).
func Items(items []domain.NewsItem, keywords []string) []domain.NewsItem {
	return New(keywords).Apply(items)
}
