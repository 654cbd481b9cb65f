package results

import (
	"log/slog"
	"sync"

	"github.com/santelizdev/loteria-tv/backend"
	"github.com/santelizdev/loteria-tv/eventbus"
)

type cacheKey struct {
	category string
	day      Day
}

// Cache holds the last good normalized row set per (category, day).
//
// Stale-but-available beats blank: a failed refresh never clears a slot,
// it just leaves the previous rows in place.
type Cache struct {
	mu   sync.RWMutex
	rows map[cacheKey][]Row
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{rows: make(map[cacheKey][]Row)}
}

// Set replaces the row set for (category, day).
func (c *Cache) Set(category string, day Day, rows []Row) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows[cacheKey{category, day}] = rows
}

// Rows returns the current row set for (category, day). May be empty.
func (c *Cache) Rows(category string, day Day) []Row {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rows[cacheKey{category, day}]
}

// DayProviders returns the distinct sorted providers for one day's rows.
func (c *Cache) DayProviders(category string, day Day) []string {
	return Providers(c.Rows(category, day))
}

// CombinedProviders returns the distinct sorted providers across both
// days of a category. The day-alternating view keeps one stable column
// layout, so its groups come from the union.
func (c *Cache) CombinedProviders(category string) []string {
	combined := append([]Row{}, c.Rows(category, DayCurrent)...)
	combined = append(combined, c.Rows(category, DayPrevious)...)
	return Providers(combined)
}

// Apply folds a bus event into the cache. Events other than
// results_updated are ignored.
func (c *Cache) Apply(ev eventbus.Event) {
	if ev.Type != eventbus.EventResultsUpdated {
		return
	}

	payload, ok := ev.Payload.(eventbus.ResultsUpdated)
	if !ok {
		slog.Warn("results: unexpected results_updated payload", "type", ev.Type)
		return
	}

	day := DayCurrent
	if payload.Date != "" && payload.Date != DateISO(0) {
		day = DayPrevious
	}

	var rows []Row
	switch payload.Category {
	case backend.CategoryTriples:
		rows = NormalizeTriples(payload.Raw)
	case backend.CategoryAnimalitos:
		rows = NormalizeAnimalitos(payload.Raw)
	default:
		slog.Warn("results: unknown category", "category", payload.Category)
		return
	}

	c.Set(payload.Category, day, rows)

	slog.Debug("results: cache updated",
		"category", payload.Category,
		"day", day.String(),
		"rows", len(rows),
		"providers", len(Providers(rows)),
	)
}

// Run consumes events from ch until the channel closes. Intended to run
// in its own goroutine with a channel subscribed to the event bus.
func (c *Cache) Run(ch <-chan eventbus.Event) {
	for ev := range ch {
		c.Apply(ev)
	}
}
