// Package processor handles one relevant item end to end: script generation,
// output, and notification dispatch.
package processor

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"github.com/samvad-hq/samvad-feed-monitor/internal/domain"
	"github.com/samvad-hq/samvad-feed-monitor/internal/logger"
	"github.com/samvad-hq/samvad-feed-monitor/internal/render"
	"github.com/samvad-hq/samvad-feed-monitor/pkg/publishers"
)

// GenerationFailed is recorded on an item when the summarizer fails or returns nothing.
const GenerationFailed = "Falha ao gerar roteiro (ver logs)"

// Summarizer drafts a script for an item.
type Summarizer interface {
	Summarize(ctx context.Context, item domain.NewsItem) (string, error)
}

// Dispatcher delivers a notification to every configured sink.
type Dispatcher interface {
	Publish(ctx context.Context, n publishers.Notification) (int, error)
}

// Options configures a Processor.
type Options struct {
	AIEnabled bool
	SaveDir   string
	Out       io.Writer // defaults to os.Stdout
}

// Outcome is the result of processing one item. OK items are committed to the ledger.
type Outcome struct {
	ID   string
	Item domain.ProcessedItem
	OK   bool
	Err  error
}

// Processor runs the per-item steps. It is safe for concurrent use.
type Processor struct {
	summarizer Summarizer
	dispatcher Dispatcher
	aiEnabled  bool
	saveDir    string
	now        func() time.Time
	log        logger.Logger

	outMu sync.Mutex
	out   io.Writer
}

// New builds a Processor. A nil summarizer disables generation; a nil
// dispatcher skips notifications.
func New(sum Summarizer, dispatcher Dispatcher, opts Options, log logger.Logger) *Processor {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Processor{
		summarizer: sum,
		dispatcher: dispatcher,
		aiEnabled:  opts.AIEnabled && sum != nil,
		saveDir:    opts.SaveDir,
		now:        time.Now,
		log:        logger.Ensure(log),
		out:        out,
	}
}

// Process handles item. Failures inside a step are logged and degrade the
// result; only a panic or a context cancelled before start yields OK=false.
func (p *Processor) Process(ctx context.Context, item domain.NewsItem) (out Outcome) {
	out = Outcome{ID: item.ID, Item: domain.ProcessedItem{News: item}}

	defer func() {
		if r := recover(); r != nil {
			out.OK = false
			out.Err = fmt.Errorf("panic processing item %s: %v", item.ID, r)
			p.log.ErrorObj("item processing panicked", "process_error", map[string]any{
				"id":    item.ID,
				"title": item.Title,
				"panic": fmt.Sprint(r),
				"stack": string(debug.Stack()),
			})
		}
	}()

	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}

	out.Item = p.generate(ctx, item)
	p.emit(out.Item)
	p.notify(ctx, out.Item)

	out.OK = true
	return out
}

func (p *Processor) generate(ctx context.Context, item domain.NewsItem) domain.ProcessedItem {
	if !p.aiEnabled {
		return domain.NewProcessedItem(item, "", "")
	}

	script, err := p.summarizer.Summarize(ctx, item)
	if err != nil || script == "" {
		meta := map[string]any{"id": item.ID, "title": item.Title}
		if err != nil {
			meta["error"] = err.Error()
		}
		p.log.ErrorObj("script generation failed", "summarizer_error", meta)
		return domain.NewProcessedItem(item, "", GenerationFailed)
	}
	return domain.NewProcessedItem(item, script, "")
}

func (p *Processor) emit(processed domain.ProcessedItem) {
	if err := p.write(processed); err != nil {
		p.log.ErrorObj("render failed", "render_error", map[string]any{
			"id":    processed.News.ID,
			"error": err.Error(),
		})
	}

	if p.saveDir == "" {
		return
	}
	path, err := render.SaveToFile(p.saveDir, processed, p.now())
	if err != nil {
		p.log.ErrorObj("save failed", "render_error", map[string]any{
			"id":    processed.News.ID,
			"dir":   p.saveDir,
			"error": err.Error(),
		})
		return
	}
	p.log.InfoObj("saved item", "render", map[string]any{"id": processed.News.ID, "path": path})
}

// write serializes records on the shared writer.
func (p *Processor) write(processed domain.ProcessedItem) error {
	p.outMu.Lock()
	defer p.outMu.Unlock()
	return render.WriteJSON(p.out, processed)
}

func (p *Processor) notify(ctx context.Context, processed domain.ProcessedItem) {
	if p.dispatcher == nil {
		return
	}
	n := publishers.NewNotification(processed, render.BuildMessage(processed))
	sent, err := p.dispatcher.Publish(ctx, n)
	if err != nil {
		p.log.WarnObj("some notifications failed", "notify", map[string]any{
			"id":    processed.News.ID,
			"sent":  sent,
			"error": err.Error(),
		})
	}
}
