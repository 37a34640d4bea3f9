// Package pipeline runs one monitoring pass: fetch, de-duplicate, filter,
// limit, process under a bounded pool, then commit the ledger.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/samvad-hq/samvad-feed-monitor/internal/domain"
	"github.com/samvad-hq/samvad-feed-monitor/internal/filter"
	"github.com/samvad-hq/samvad-feed-monitor/internal/ledger"
	"github.com/samvad-hq/samvad-feed-monitor/internal/logger"
	"github.com/samvad-hq/samvad-feed-monitor/internal/processor"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers caps concurrent item processing.
const DefaultWorkers = 5

// FeedSource fetches every URL and returns the recent, identified entries.
type FeedSource interface {
	FetchAll(ctx context.Context, urls []string) []domain.NewsItem
}

// ItemProcessor handles one item.
type ItemProcessor interface {
	Process(ctx context.Context, item domain.NewsItem) processor.Outcome
}

// Options tunes a Pipeline.
type Options struct {
	Limit   int // <= 0 means unlimited
	Workers int
}

// Stats counts items at each stage of a run.
type Stats struct {
	RunID     string `json:"run_id"`
	Seen      int    `json:"seen"`
	Fetched   int    `json:"fetched"`
	New       int    `json:"new"`
	Relevant  int    `json:"relevant"`
	Limited   int    `json:"limited"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

// Pipeline owns the ledger for the duration of a run.
type Pipeline struct {
	source  FeedSource
	filter  *filter.Filter
	store   ledger.Store
	proc    ItemProcessor
	limit   int
	workers int
	log     logger.Logger
	runID   func() string
}

// New wires a Pipeline.
func New(source FeedSource, f *filter.Filter, store ledger.Store, proc ItemProcessor, opts Options, log logger.Logger) *Pipeline {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Pipeline{
		source:  source,
		filter:  f,
		store:   store,
		proc:    proc,
		limit:   opts.Limit,
		workers: workers,
		log:     logger.Ensure(log),
		runID:   uuid.NewString,
	}
}

// Run executes one pass over urls. A run with nothing relevant is not an
// error. If ctx is cancelled the ledger is left untouched and ctx.Err() returned.
func (p *Pipeline) Run(ctx context.Context, urls []string) (Stats, error) {
	if p == nil || p.source == nil || p.store == nil || p.proc == nil {
		return Stats{}, fmt.Errorf("pipeline is not initialized")
	}

	stats := Stats{RunID: p.runID()}
	seen := p.store.Load()
	stats.Seen = seen.Len()
	p.log.InfoObj("ledger loaded", "run", map[string]any{"run_id": stats.RunID, "seen": stats.Seen})

	items := p.source.FetchAll(ctx, urls)
	stats.Fetched = len(items)
	if err := ctx.Err(); err != nil {
		return stats, p.interrupted(stats, err)
	}

	fresh := unseen(items, seen)
	stats.New = len(fresh)

	relevant := p.filter.Apply(fresh)
	stats.Relevant = len(relevant)
	if len(relevant) == 0 {
		p.log.InfoObj("no new relevant items", "run_summary", stats)
		return stats, nil
	}

	if p.limit > 0 && len(relevant) > p.limit {
		p.log.InfoObj("limiting items", "run", map[string]any{
			"run_id":   stats.RunID,
			"relevant": len(relevant),
			"limit":    p.limit,
		})
		relevant = relevant[:p.limit]
	}
	stats.Limited = len(relevant)

	outcomes := p.processAll(ctx, relevant)
	if err := ctx.Err(); err != nil {
		return stats, p.interrupted(stats, err)
	}

	var done []string
	for _, out := range outcomes {
		if !out.OK {
			stats.Failed++
			continue
		}
		stats.Succeeded++
		done = append(done, out.ID)
	}
	merged := seen.Clone()
	merged.Merge(done...)

	if stats.Succeeded > 0 {
		if err := p.store.Save(merged); err != nil {
			p.log.ErrorObj("ledger save failed", "run_error", map[string]any{
				"run_id": stats.RunID,
				"error":  err.Error(),
			})
			return stats, fmt.Errorf("save ledger: %w", err)
		}
	}

	p.log.InfoObj("run completed", "run_summary", stats)
	return stats, nil
}

// processAll runs items through the processor with at most p.workers in
// flight. Each outcome lands in its own slot so no locking is needed.
func (p *Pipeline) processAll(ctx context.Context, items []domain.NewsItem) []processor.Outcome {
	outcomes := make([]processor.Outcome, len(items))

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, item := range items {
		g.Go(func() error {
			outcomes[i] = p.proc.Process(ctx, item)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (p *Pipeline) interrupted(stats Stats, err error) error {
	p.log.WarnObj("run interrupted, ledger not saved", "run_summary", stats)
	return err
}

// unseen drops items already in the ledger and repeats of an ID within this batch.
func unseen(items []domain.NewsItem, seen *ledger.Set) []domain.NewsItem {
	out := make([]domain.NewsItem, 0, len(items))
	batch := make(map[string]struct{}, len(items))
	for _, item := range items {
		if seen.Has(item.ID) {
			continue
		}
		if _, dup := batch[item.ID]; dup {
			continue
		}
		batch[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}
