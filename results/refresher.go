package results

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/santelizdev/loteria-tv/backend"
	"github.com/santelizdev/loteria-tv/eventbus"
)

// Refresher periodically re-fetches the row sets the session client's
// polling loop does not cover: the animalitos current and previous day,
// and the triples previous day. Each successful fetch is published as a
// results_updated event; failures are logged and retried on the next
// tick, never surfaced.
type Refresher struct {
	client   *backend.Client
	bus      eventbus.Bus
	code     string
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRefresher creates a refresher. interval <= 0 falls back to 60s.
func NewRefresher(client *backend.Client, bus eventbus.Bus, code string, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Refresher{
		client:   client,
		bus:      bus,
		code:     code,
		interval: interval,
	}
}

// Start launches the refresh loop with one immediate pass. Calling Start
// on a running refresher is a no-op.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		r.refreshAll(loopCtx)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				r.refreshAll(loopCtx)
			}
		}
	}()

	slog.Info("results: refresher started", "interval", r.interval)
}

// Stop cancels the loop and waits for it to exit. Idempotent.
func (r *Refresher) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	r.wg.Wait()
}

func (r *Refresher) refreshAll(ctx context.Context) {
	fetches := []struct {
		category string
		date     string
	}{
		{backend.CategoryAnimalitos, DateISO(0)},
		{backend.CategoryAnimalitos, DateISO(-1)},
		{backend.CategoryTriples, DateISO(-1)},
	}

	for _, f := range fetches {
		if ctx.Err() != nil {
			return
		}

		raw, err := r.client.FetchResults(ctx, r.code, f.category, f.date)
		if err != nil {
			// No update this cycle; the cache keeps serving the last
			// good rows and the next tick tries again.
			slog.Warn("results: refresh failed", "category", f.category, "date", f.date, "error", err)
			continue
		}

		r.bus.Publish(eventbus.Event{
			Type: eventbus.EventResultsUpdated,
			Payload: eventbus.ResultsUpdated{
				Category: f.category,
				Date:     f.date,
				Raw:      raw,
			},
		})
	}
}
