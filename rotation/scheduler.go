package rotation

import (
	"log/slog"
	"sync"
	"time"

	"github.com/santelizdev/loteria-tv/results"
)

// Scheduler owns the rotation state machine. All state is mutated only on
// timer ticks; renders happen outside the lock with a snapshot taken
// under it.
type Scheduler struct {
	cfg      Config
	source   Source
	renderer Renderer
	progress ProgressSink

	mu            sync.Mutex
	mode          Mode
	triplesDay    results.Day
	animalitosDay results.Day
	pageIndex     int
	groupIndex    int
	interval      time.Duration
	cycleStart    time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a scheduler. source and renderer are required; progress may
// be nil when nothing displays a progress bar.
func New(cfg Config, source Source, renderer Renderer, progress ProgressSink) (*Scheduler, error) {
	if source == nil {
		return nil, errNilSource
	}
	if renderer == nil {
		return nil, errNilRenderer
	}

	return &Scheduler{
		cfg:      cfg.withDefaults(),
		source:   source,
		renderer: renderer,
		progress: progress,
	}, nil
}

// Start begins rotation from the top of the cycle: triples, current day,
// first page. Any previous timers are cancelled first, so Start doubles
// as a restart.
func (s *Scheduler) Start() {
	s.Stop()

	s.mu.Lock()
	s.mode = ModeTriples
	s.triplesDay = results.DayCurrent
	s.animalitosDay = results.DayCurrent
	s.pageIndex = 0
	s.groupIndex = 0
	s.interval = s.cfg.TriplesInterval
	s.cycleStart = time.Now()
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	snap := s.snapshotLocked()
	s.mu.Unlock()

	// Show the initial page immediately rather than waiting a full tick.
	s.renderer.Render(snap)

	s.wg.Add(1)
	go s.advanceLoop(stopCh)

	if s.progress != nil {
		s.wg.Add(1)
		go s.progressLoop(stopCh)
	}

	slog.Info("rotation: started",
		"triples_interval", s.cfg.TriplesInterval,
		"animalitos_interval", s.cfg.AnimalitosInterval,
	)
}

// Stop cancels both timers and waits for the loops to exit. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	stopCh := s.stopCh
	s.stopCh = nil
	s.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	s.wg.Wait()
}

// Progress returns the percentage of the current cycle already elapsed,
// clamped to 100. Cosmetic only.
func (s *Scheduler) Progress() float64 {
	s.mu.Lock()
	start := s.cycleStart
	interval := s.interval
	s.mu.Unlock()

	if start.IsZero() || interval <= 0 {
		return 0
	}

	pct := float64(time.Since(start)) / float64(interval) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

func (s *Scheduler) advanceLoop(stopCh chan struct{}) {
	defer s.wg.Done()

	s.mu.Lock()
	interval := s.interval
	s.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			snap, newInterval := s.advance()
			if newInterval != interval {
				// Cadence swaps exactly at the category transition.
				interval = newInterval
				ticker.Reset(interval)
			}
			s.renderer.Render(snap)
		}
	}
}

func (s *Scheduler) progressLoop(stopCh chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.ProgressTick)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.progress.SetProgress(s.Progress())
		}
	}
}

// advance executes one tick of the state machine and returns the snapshot
// to render plus the interval the timer should run at afterwards.
func (s *Scheduler) advance() (Snapshot, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cycleStart = time.Now()

	switch s.mode {
	case ModeTriples:
		s.advanceTriplesLocked()
	case ModeAnimalitos:
		s.advanceAnimalitosLocked()
	}

	return s.snapshotLocked(), s.interval
}

func (s *Scheduler) advanceTriplesLocked() {
	providers := s.source.TriplesProviders(s.triplesDay)
	groups := results.GroupProviders(providers)

	s.pageIndex++
	if s.pageIndex < len(groups) {
		return
	}

	if s.triplesDay == results.DayCurrent {
		// Current-day pages exhausted: same category, previous day.
		s.triplesDay = results.DayPrevious
		s.pageIndex = 0
		return
	}

	// Previous day exhausted too: hand over to animalitos at its own,
	// shorter cadence.
	s.mode = ModeAnimalitos
	s.pageIndex = 0
	s.animalitosDay = results.DayCurrent
	s.groupIndex = 0
	s.interval = s.cfg.AnimalitosInterval

	slog.Debug("rotation: switched to animalitos", "interval", s.interval)
}

func (s *Scheduler) advanceAnimalitosLocked() {
	if s.animalitosDay == results.DayCurrent {
		s.animalitosDay = results.DayPrevious
		return
	}

	// Completed a full current+previous round trip: next group.
	s.animalitosDay = results.DayCurrent
	count := results.GroupCount(len(s.source.AnimalitosProviders()))
	s.groupIndex = (s.groupIndex + 1) % count
}

// snapshotLocked builds the render snapshot for the current state.
// Out-of-range cursors yield an empty provider page, never a panic.
func (s *Scheduler) snapshotLocked() Snapshot {
	snap := Snapshot{
		Mode:       s.mode,
		PageIndex:  s.pageIndex,
		GroupIndex: s.groupIndex,
	}

	switch s.mode {
	case ModeTriples:
		snap.Day = s.triplesDay
		groups := results.GroupProviders(s.source.TriplesProviders(s.triplesDay))
		if s.pageIndex < len(groups) {
			snap.Providers = groups[s.pageIndex]
		}
	case ModeAnimalitos:
		snap.Day = s.animalitosDay
		groups := results.GroupProviders(s.source.AnimalitosProviders())
		if s.groupIndex < len(groups) {
			snap.Providers = groups[s.groupIndex]
		}
	}

	return snap
}
