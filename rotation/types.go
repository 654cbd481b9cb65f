package rotation

import (
	"time"

	"github.com/santelizdev/loteria-tv/results"
)

// Mode identifies the display category currently on screen.
type Mode int

const (
	// ModeTriples is the fine-grained single-day grid, paged per tick.
	ModeTriples Mode = iota
	// ModeAnimalitos is the current/previous-day alternating grid.
	ModeAnimalitos
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	if m == ModeAnimalitos {
		return "animalitos"
	}
	return "triples"
}

// Snapshot is what the scheduler hands the renderer on every tick.
// Providers is the provider group on screen; it may be empty, in which
// case the renderer shows its "no data" placeholder.
type Snapshot struct {
	Mode       Mode
	Day        results.Day
	PageIndex  int
	GroupIndex int
	Providers  []string
}

// Renderer receives a snapshot on every transition. Renders are
// synchronous; the scheduler never awaits or rolls one back.
type Renderer interface {
	Render(Snapshot)
}

// ProgressSink receives the cycle progress percentage (0-100) from the
// continuous progress loop.
type ProgressSink interface {
	SetProgress(pct float64)
}

// Source supplies the provider lists the scheduler pages through.
// It is re-read on every tick so provider changes take effect at the
// next transition.
type Source interface {
	// TriplesProviders returns the distinct sorted providers that have
	// triples rows for the given day.
	TriplesProviders(day results.Day) []string

	// AnimalitosProviders returns the distinct sorted providers across
	// both animalitos days (the alternating view keeps one stable layout).
	AnimalitosProviders() []string
}

// Config carries the scheduler cadences. Zero values fall back to the
// production defaults.
type Config struct {
	// TriplesInterval is the page-advance cadence for the triples grid.
	TriplesInterval time.Duration

	// AnimalitosInterval is the day-flip cadence for the animalitos grid.
	AnimalitosInterval time.Duration

	// ProgressTick is the period of the progress-update loop.
	ProgressTick time.Duration
}

func (c Config) withDefaults() Config {
	if c.TriplesInterval <= 0 {
		c.TriplesInterval = 20 * time.Second
	}
	if c.AnimalitosInterval <= 0 {
		c.AnimalitosInterval = 15 * time.Second
	}
	if c.ProgressTick <= 0 {
		c.ProgressTick = 50 * time.Millisecond
	}
	return c
}
