package pipeline

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samvad-hq/samvad-feed-monitor/internal/domain"
	"github.com/samvad-hq/samvad-feed-monitor/internal/filter"
	"github.com/samvad-hq/samvad-feed-monitor/internal/ledger"
	"github.com/samvad-hq/samvad-feed-monitor/internal/processor"
)

type fakeSource struct {
	items []domain.NewsItem
	hook  func()
}

func (f *fakeSource) FetchAll(context.Context, []string) []domain.NewsItem {
	if f.hook != nil {
		f.hook()
	}
	out := make([]domain.NewsItem, len(f.items))
	copy(out, f.items)
	return out
}

type memStore struct {
	mu      sync.Mutex
	ids     []string
	saves   int
	saveErr error
}

func (m *memStore) Load() *ledger.Set {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ledger.NewSet(m.ids...)
}

func (m *memStore) Save(s *ledger.Set) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.ids = s.IDs()
	return nil
}

func (m *memStore) Close() error { return nil }

type fakeProcessor struct {
	mu        sync.Mutex
	processed []string
	fail      map[string]bool
	delay     time.Duration
	inFlight  atomic.Int32
	maxFlight atomic.Int32
}

func (f *fakeProcessor) Process(_ context.Context, item domain.NewsItem) processor.Outcome {
	n := f.inFlight.Add(1)
	for {
		cur := f.maxFlight.Load()
		if n <= cur || f.maxFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.inFlight.Add(-1)

	f.mu.Lock()
	f.processed = append(f.processed, item.ID)
	f.mu.Unlock()

	if f.fail[item.ID] {
		return processor.Outcome{ID: item.ID, Err: errors.New("panic")}
	}
	return processor.Outcome{ID: item.ID, OK: true, Item: domain.NewProcessedItem(item, "", "")}
}

func news(id, title string) domain.NewsItem {
	return domain.NewsItem{ID: id, Title: title, Link: "https://example.com/" + id}
}

func newTestPipeline(src FeedSource, store ledger.Store, proc ItemProcessor, opts Options) *Pipeline {
	p := New(src, filter.New([]string{"ai", "robot"}), store, proc, opts, nil)
	p.runID = func() string { return "run-test" }
	return p
}

func TestRunDedupPrecedesFilter(t *testing.T) {
	src := &fakeSource{items: []domain.NewsItem{
		news("seen-1", "AI everywhere"),
		news("new-1", "AI news"),
		news("new-2", "Sports"),
		news("new-1", "AI news duplicate in another feed"),
	}}
	store := &memStore{ids: []string{"seen-1"}}
	proc := &fakeProcessor{}

	stats, err := newTestPipeline(src, store, proc, Options{}).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(proc.processed, []string{"new-1"}) {
		t.Fatalf("processed = %v", proc.processed)
	}
	want := Stats{RunID: "run-test", Seen: 1, Fetched: 4, New: 2, Relevant: 1, Limited: 1, Succeeded: 1}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}
	if !reflect.DeepEqual(store.ids, []string{"seen-1", "new-1"}) {
		t.Fatalf("ledger = %v", store.ids)
	}
}

func TestRunNothingRelevantSkipsSave(t *testing.T) {
	src := &fakeSource{items: []domain.NewsItem{news("1", "Weather")}}
	store := &memStore{}
	proc := &fakeProcessor{}

	stats, err := newTestPipeline(src, store, proc, Options{}).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Relevant != 0 || len(proc.processed) != 0 || store.saves != 0 {
		t.Fatalf("expected early exit, stats=%+v saves=%d", stats, store.saves)
	}
}

func TestRunLimitKeepsFirstN(t *testing.T) {
	var items []domain.NewsItem
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		items = append(items, news(id, "AI item "+id))
	}
	store := &memStore{}
	proc := &fakeProcessor{}

	stats, err := newTestPipeline(&fakeSource{items: items}, store, proc, Options{Limit: 2, Workers: 1}).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Relevant != 5 || stats.Limited != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if !reflect.DeepEqual(proc.processed, []string{"a", "b"}) {
		t.Fatalf("processed = %v", proc.processed)
	}
	if !reflect.DeepEqual(store.ids, []string{"a", "b"}) {
		t.Fatalf("ledger = %v", store.ids)
	}
}

func TestRunFailedItemsExcludedFromLedger(t *testing.T) {
	src := &fakeSource{items: []domain.NewsItem{news("ok", "AI ok"), news("bad", "AI bad")}}
	store := &memStore{}
	proc := &fakeProcessor{fail: map[string]bool{"bad": true}}

	stats, err := newTestPipeline(src, store, proc, Options{}).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Succeeded != 1 || stats.Failed != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if !reflect.DeepEqual(store.ids, []string{"ok"}) {
		t.Fatalf("ledger = %v", store.ids)
	}
}

func TestRunAllFailedSkipsSave(t *testing.T) {
	src := &fakeSource{items: []domain.NewsItem{news("bad", "AI bad")}}
	store := &memStore{ids: []string{"old"}}
	proc := &fakeProcessor{fail: map[string]bool{"bad": true}}

	if _, err := newTestPipeline(src, store, proc, Options{}).Run(context.Background(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if store.saves != 0 {
		t.Fatalf("ledger should not be written without successes")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	src := &fakeSource{items: []domain.NewsItem{news("1", "AI one"), news("2", "Robot two")}}
	store := &memStore{}

	first := &fakeProcessor{}
	if _, err := newTestPipeline(src, store, first, Options{}).Run(context.Background(), nil); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	after := append([]string(nil), store.ids...)

	second := &fakeProcessor{}
	stats, err := newTestPipeline(src, store, second, Options{}).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(second.processed) != 0 || stats.New != 0 {
		t.Fatalf("second run should process nothing, stats=%+v", stats)
	}
	if !reflect.DeepEqual(store.ids, after) || store.saves != 1 {
		t.Fatalf("ledger changed on second run: %v (saves=%d)", store.ids, store.saves)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	var items []domain.NewsItem
	for i := 0; i < 12; i++ {
		items = append(items, news(string(rune('a'+i)), "AI"))
	}
	proc := &fakeProcessor{delay: 20 * time.Millisecond}

	stats, err := newTestPipeline(&fakeSource{items: items}, &memStore{}, proc, Options{Workers: 3}).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Succeeded != 12 {
		t.Fatalf("expected all items processed, got %+v", stats)
	}
	if peak := proc.maxFlight.Load(); peak > 3 {
		t.Fatalf("observed %d concurrent items, limit is 3", peak)
	}
}

func TestRunCancelledDoesNotSave(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &fakeSource{items: []domain.NewsItem{news("1", "AI")}, hook: cancel}
	store := &memStore{}
	proc := &fakeProcessor{}

	_, err := newTestPipeline(src, store, proc, Options{}).Run(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if store.saves != 0 || len(proc.processed) != 0 {
		t.Fatalf("cancelled run must not process or save")
	}
}

func TestRunSaveErrorIsReturned(t *testing.T) {
	src := &fakeSource{items: []domain.NewsItem{news("1", "AI")}}
	store := &memStore{saveErr: errors.New("disk full")}

	if _, err := newTestPipeline(src, store, &fakeProcessor{}, Options{}).Run(context.Background(), nil); err == nil {
		t.Fatalf("expected save error")
	}
}

func TestRunUninitialized(t *testing.T) {
	var p *Pipeline
	if _, err := p.Run(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil pipeline")
	}
}
