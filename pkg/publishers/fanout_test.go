package publishers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type stubPublisher struct {
	id     string
	typ    string
	err    error
	delay  time.Duration
	panics bool
	calls  atomic.Int32
	closed atomic.Bool
}

func (s *stubPublisher) ID() string   { return s.id }
func (s *stubPublisher) Type() string { return s.typ }
func (s *stubPublisher) Publish(context.Context, Notification) error {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.panics {
		panic("sink exploded")
	}
	return s.err
}
func (s *stubPublisher) Close() error {
	s.closed.Store(true)
	return nil
}

func TestFanoutPublishAggregatesErrors(t *testing.T) {
	ok := &stubPublisher{id: "ok", typ: "http"}
	bad := &stubPublisher{id: "bad", typ: "http", err: errors.New("failed")}
	boom := &stubPublisher{id: "boom", typ: "discord", panics: true}
	fanout := NewFanout([]Publisher{ok, nil, bad, boom}, nil)

	if fanout.Size() != 3 {
		t.Fatalf("nil publishers should be dropped, size=%d", fanout.Size())
	}

	count, err := fanout.Publish(context.Background(), testNotification())
	if count != 1 {
		t.Fatalf("expected 1 success, got %d", count)
	}
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
	for _, p := range []*stubPublisher{ok, bad, boom} {
		if p.calls.Load() != 1 {
			t.Fatalf("publisher %s called %d times", p.id, p.calls.Load())
		}
	}
}

func TestFanoutPublishRunsConcurrently(t *testing.T) {
	var pubs []Publisher
	for i := 0; i < 4; i++ {
		pubs = append(pubs, &stubPublisher{id: string(rune('a' + i)), typ: "http", delay: 100 * time.Millisecond})
	}
	fanout := NewFanout(pubs, nil)

	start := time.Now()
	count, err := fanout.Publish(context.Background(), testNotification())
	if err != nil || count != 4 {
		t.Fatalf("Publish = %d, %v", count, err)
	}
	if elapsed := time.Since(start); elapsed > 350*time.Millisecond {
		t.Fatalf("sinks appear to run sequentially: %s", elapsed)
	}
}

func TestFanoutEmpty(t *testing.T) {
	var f *Fanout
	if n, err := f.Publish(context.Background(), testNotification()); n != 0 || err != nil {
		t.Fatalf("nil fanout should be a no-op")
	}
	if n, err := NewFanout(nil, nil).Publish(context.Background(), testNotification()); n != 0 || err != nil {
		t.Fatalf("empty fanout should be a no-op")
	}
}

func TestFanoutCloseClosesPublishers(t *testing.T) {
	a := &stubPublisher{id: "a", typ: "pubsub"}
	b := &stubPublisher{id: "b", typ: "sqs"}
	limited := WithRateLimit(b, 10, 1)
	if err := NewFanout([]Publisher{a, limited}, nil).Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !a.closed.Load() || !b.closed.Load() {
		t.Fatalf("expected all publishers closed, including wrapped ones")
	}
}

func TestRateLimitedPublisherHonoursContext(t *testing.T) {
	inner := &stubPublisher{id: "slow", typ: "http"}
	pub := WithRateLimit(inner, 0.01, 1)

	if err := pub.Publish(context.Background(), testNotification()); err != nil {
		t.Fatalf("first publish should use the burst token: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := pub.Publish(ctx, testNotification()); err == nil {
		t.Fatalf("expected rate limit wait to fail on short deadline")
	}
	if inner.calls.Load() != 1 {
		t.Fatalf("limited call must not reach the sink, calls=%d", inner.calls.Load())
	}
	if pub.ID() != "slow" || pub.Type() != "http" {
		t.Fatalf("wrapper should expose inner identity")
	}
}

func TestWithRateLimitDisabled(t *testing.T) {
	inner := &stubPublisher{id: "x", typ: "http"}
	if WithRateLimit(inner, 0, 5) != Publisher(inner) {
		t.Fatalf("rps <= 0 should return the publisher unchanged")
	}
}

func TestFanoutIDs(t *testing.T) {
	f := NewFanout([]Publisher{&stubPublisher{id: "a"}, &stubPublisher{id: "b"}}, nil)
	ids := f.IDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("IDs = %v", ids)
	}
}
