package publishers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Fanout dispatches notifications to all configured publishers concurrently.
type Fanout struct {
	publishers []Publisher
	log        Logger
}

// NewFanout builds a dispatcher that fans out notifications across publishers.
func NewFanout(pubs []Publisher, log Logger) *Fanout {
	cp := make([]Publisher, 0, len(pubs))
	for _, p := range pubs {
		if p == nil {
			continue
		}
		cp = append(cp, p)
	}
	return &Fanout{publishers: cp, log: ensureLogger(log)}
}

// Publish forwards the notification to every publisher at once and waits for
// all of them. One sink failing never blocks the others. It returns the number
// of publishers that succeeded and the joined per-sink errors.
func (f *Fanout) Publish(ctx context.Context, n Notification) (int, error) {
	if f == nil || len(f.publishers) == 0 {
		return 0, nil
	}

	errs := make([]error, len(f.publishers))
	var wg sync.WaitGroup
	for i, p := range f.publishers {
		wg.Add(1)
		go func(i int, p Publisher) {
			defer wg.Done()
			errs[i] = publishOne(ctx, p, n)
		}(i, p)
	}
	wg.Wait()

	successful := 0
	for i, err := range errs {
		p := f.publishers[i]
		if err != nil {
			errs[i] = fmt.Errorf("%s publisher[%s]: %w", p.Type(), p.ID(), err)
			f.log.ErrorObj("publisher failed", "publisher_error", map[string]any{
				"publisher_id": p.ID(),
				"type":         p.Type(),
				"item_id":      n.ItemID,
				"error":        err.Error(),
			})
			continue
		}
		successful++
		f.log.InfoObj("notification sent", "publisher_delivery", map[string]any{
			"publisher_id": p.ID(),
			"type":         p.Type(),
			"item_id":      n.ItemID,
		})
	}
	return successful, errors.Join(errs...)
}

// publishOne turns a sink panic into an error so siblings are unaffected.
func publishOne(ctx context.Context, p Publisher, n Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.Publish(ctx, n)
}

// Size returns the number of active publishers.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.publishers)
}

// IDs lists the active publisher IDs.
func (f *Fanout) IDs() []string {
	if f == nil {
		return nil
	}
	out := make([]string, 0, len(f.publishers))
	for _, p := range f.publishers {
		out = append(out, p.ID())
	}
	return out
}

// Close releases publishers that hold resources.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	return closeAll(f.publishers)
}

func closeAll(pubs []Publisher) error {
	var errs []error
	for _, p := range pubs {
		c, ok := p.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s publisher[%s]: %w", p.Type(), p.ID(), err))
		}
	}
	return errors.Join(errs...)
}
