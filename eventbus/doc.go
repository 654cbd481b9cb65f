// Package eventbus provides non-blocking distribution of display events
// to multiple subscribers.
//
// # Overview
//
// The display pipeline is held together by a small set of notifications:
// the session client announces activation and branch changes, the polling
// loops announce fresh result payloads, and the cache/renderer side reacts.
// Instead of an ambient broadcast mechanism, producers publish typed
// events to a Bus and consumers register channels explicitly.
//
// The key design principle is:
//
//	"Drop events, never queue. Freshness > Completeness."
//
// When a subscriber's channel is full, events are intentionally dropped
// rather than queued: a kiosk that fell behind wants the latest results,
// not a backlog of stale ones.
//
// Two subscription flavors implement that principle:
//   - Subscribe registers a caller-owned buffered channel; a publish
//     into a full channel is dropped (drop-new).
//   - SubscribeLatest creates a one-slot mailbox owned by the bus; a
//     publish into an occupied slot replaces the pending event
//     (overwrite), so the consumer always wakes to the newest event.
//
// # Basic Usage
//
// Create a bus and subscribe channels:
//
//	bus := eventbus.New()
//	defer bus.Close()
//
//	ch := make(chan eventbus.Event, 8)
//	bus.Subscribe("results-cache", ch)
//
//	bus.Publish(eventbus.Event{
//	    Type:    eventbus.EventResultsUpdated,
//	    Payload: eventbus.ResultsUpdated{Category: "triples", Raw: raw},
//	})
//
// # Non-Blocking Semantics
//
// Publish() never blocks, even if all subscribers are slow. If a
// subscriber's channel is full, the event is dropped and tracked in stats.
//
// # Thread Safety
//
// All operations are thread-safe:
//   - Multiple goroutines can call Publish() concurrently
//   - Subscribe/Unsubscribe can be called while publishing
//   - Stats() can be called from any goroutine
package eventbus
