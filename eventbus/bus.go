package eventbus

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Bus distributes events to multiple subscribers with drop policy.
type Bus interface {
	// Subscribe registers a channel to receive events.
	// Returns an error if id already exists or if the bus is closed.
	Subscribe(id string, ch chan<- Event) error

	// SubscribeLatest registers a latest-only mailbox: it holds at most
	// one pending event, and a publish while the slot is occupied
	// replaces the pending event (the replaced one counts as dropped).
	// Returns an error if id already exists or if the bus is closed.
	SubscribeLatest(id string) (Receiver, error)

	// Unsubscribe removes a subscriber by id.
	// Returns an error if id is not found or if the bus is closed.
	Unsubscribe(id string) error

	// Publish sends the event to all subscribers (non-blocking).
	// Drops the event for subscribers whose channels are full.
	// Publishing on a closed bus is a no-op.
	Publish(event Event)

	// Stats returns a snapshot of bus statistics.
	Stats() BusStats

	// Close stops the bus and prevents further operations.
	// Subsequent Subscribe/Unsubscribe return ErrBusClosed; Publish becomes
	// a no-op. Close is idempotent.
	Close() error
}

var (
	// ErrSubscriberExists is returned when Subscribe is called with a duplicate id.
	ErrSubscriberExists = errors.New("subscriber id already exists")

	// ErrSubscriberNotFound is returned when Unsubscribe is called with an unknown id.
	ErrSubscriberNotFound = errors.New("subscriber id not found")

	// ErrBusClosed is returned when operations are attempted on a closed bus.
	ErrBusClosed = errors.New("bus is closed")

	// ErrNilChannel is returned when Subscribe is called with a nil channel.
	ErrNilChannel = errors.New("subscriber channel cannot be nil")
)

// BusStats contains global and per-subscriber metrics.
type BusStats struct {
	// TotalPublished is the number of Publish() calls.
	TotalPublished uint64

	// TotalSent is the sum of events sent to all subscribers.
	TotalSent uint64

	// TotalDropped is the sum of events dropped across all subscribers.
	TotalDropped uint64

	// Subscribers contains the per-subscriber breakdown.
	Subscribers map[string]SubscriberStats
}

// SubscriberStats tracks metrics for a single subscriber.
type SubscriberStats struct {
	// Sent is the number of events successfully sent to this subscriber.
	Sent uint64

	// Dropped is the number of events dropped due to a full channel.
	Dropped uint64
}

// Receiver is the consuming end of a latest-only mailbox created by
// SubscribeLatest.
type Receiver struct {
	ch chan Event
}

// Events returns the mailbox channel. At most one event is ever pending
// on it; a slow consumer sees only the most recent publish.
func (r Receiver) Events() <-chan Event {
	return r.ch
}

// subscriberStats holds internal atomic counters.
type subscriberStats struct {
	sent    atomic.Uint64
	dropped atomic.Uint64
}

// subscriber is one registered consumer: either a caller-owned channel
// with drop-new semantics, or a bus-owned latest-only mailbox.
type subscriber struct {
	ch     chan<- Event
	latest chan Event
}

// bus is the concrete implementation of Bus.
type bus struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
	stats       map[string]*subscriberStats
	closed      bool

	// Global counters (atomic - no lock needed in Publish)
	totalPublished atomic.Uint64
	seq            atomic.Uint64
}

// New creates a new event bus.
func New() Bus {
	return &bus{
		subscribers: make(map[string]*subscriber),
		stats:       make(map[string]*subscriberStats),
	}
}

// Subscribe registers a channel to receive events.
func (b *bus) Subscribe(id string, ch chan<- Event) error {
	if ch == nil {
		return ErrNilChannel
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}

	if _, exists := b.subscribers[id]; exists {
		return ErrSubscriberExists
	}

	b.subscribers[id] = &subscriber{ch: ch}
	b.stats[id] = &subscriberStats{}

	return nil
}

// SubscribeLatest registers a latest-only mailbox under id.
func (b *bus) SubscribeLatest(id string) (Receiver, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return Receiver{}, ErrBusClosed
	}

	if _, exists := b.subscribers[id]; exists {
		return Receiver{}, ErrSubscriberExists
	}

	latest := make(chan Event, 1)
	b.subscribers[id] = &subscriber{latest: latest}
	b.stats[id] = &subscriberStats{}

	return Receiver{ch: latest}, nil
}

// Unsubscribe removes a subscriber by id.
func (b *bus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}

	if _, exists := b.subscribers[id]; !exists {
		return ErrSubscriberNotFound
	}

	delete(b.subscribers, id)
	delete(b.stats, id)

	return nil
}

// Publish sends the event to all subscribers (non-blocking).
//
// For each subscriber:
//   - If the channel has space: event is sent, Sent counter incremented
//   - If the channel is full: event is dropped, Dropped counter incremented
//
// This method never blocks, even if all subscribers are slow.
func (b *bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	b.totalPublished.Add(1)
	event.Seq = b.seq.Add(1)
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	for id, sub := range b.subscribers {
		if sub.latest != nil {
			publishLatest(sub.latest, b.stats[id], event)
			continue
		}

		select {
		case sub.ch <- event:
			b.stats[id].sent.Add(1)
		default:
			// Channel full - drop event
			b.stats[id].dropped.Add(1)
		}
	}
}

// publishLatest delivers event to a latest-only mailbox, evicting a
// pending event first when the slot is occupied. The evicted event counts
// as dropped; the new one as sent.
func publishLatest(mailbox chan Event, stats *subscriberStats, event Event) {
	for {
		select {
		case mailbox <- event:
			stats.sent.Add(1)
			return
		default:
		}

		select {
		case <-mailbox:
			stats.dropped.Add(1)
		default:
			// Consumer drained the slot between the two selects; retry
			// the send.
		}
	}
}

// Stats returns a snapshot of bus statistics.
//
// The returned BusStats is a snapshot at the time of the call; concurrent
// Publish operations may increment counters after Stats() returns.
func (b *bus) Stats() BusStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := BusStats{
		TotalPublished: b.totalPublished.Load(),
		Subscribers:    make(map[string]SubscriberStats),
	}

	var totalSent, totalDropped uint64

	for id, stats := range b.stats {
		sent := stats.sent.Load()
		dropped := stats.dropped.Load()

		totalSent += sent
		totalDropped += dropped

		result.Subscribers[id] = SubscriberStats{
			Sent:    sent,
			Dropped: dropped,
		}
	}

	result.TotalSent = totalSent
	result.TotalDropped = totalDropped

	return result
}

// Close stops the bus and prevents further operations.
//
// Close does NOT close subscriber channels - that is the subscriber's
// responsibility. Close is idempotent (safe to call multiple times).
func (b *bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil // Already closed, idempotent
	}

	b.closed = true

	return nil
}
