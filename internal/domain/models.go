package domain

import "time"

// Domain contains core models shared across the pipeline.

// NewsItem is a single feed entry after normalization. ID is never empty.
type NewsItem struct {
	Source    string     `json:"source"`
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Link      string     `json:"link"`
	Summary   string     `json:"summary"`
	Published *time.Time `json:"published"`
}

// ProcessedItem pairs a NewsItem with the outcome of script generation.
// Script and Error are mutually exclusive; both are nil when generation was not attempted.
type ProcessedItem struct {
	News   NewsItem `json:"news"`
	Script *string  `json:"script"`
	Error  *string  `json:"error"`
}

// NewProcessedItem builds a ProcessedItem from the generation outcome.
func NewProcessedItem(item NewsItem, script, genErr string) ProcessedItem {
	out := ProcessedItem{News: item}
	switch {
	case script != "":
		out.Script = &script
	case genErr != "":
		out.Error = &genErr
	}
	return out
}
