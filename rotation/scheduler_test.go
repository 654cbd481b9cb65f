package rotation

import (
	"sync"
	"testing"
	"time"

	"github.com/santelizdev/loteria-tv/results"
)

// stubSource serves fixed provider lists.
type stubSource struct {
	mu         sync.Mutex
	triples    map[results.Day][]string
	animalitos []string
}

func newStubSource() *stubSource {
	return &stubSource{triples: make(map[results.Day][]string)}
}

func (s *stubSource) TriplesProviders(day results.Day) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.triples[day]
}

func (s *stubSource) AnimalitosProviders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.animalitos
}

// chanRenderer forwards snapshots to a channel.
type chanRenderer struct {
	snaps chan Snapshot
}

func newChanRenderer() *chanRenderer {
	return &chanRenderer{snaps: make(chan Snapshot, 100)}
}

func (r *chanRenderer) Render(s Snapshot) {
	select {
	case r.snaps <- s:
	default:
	}
}

func newTestScheduler(t *testing.T, source Source) (*Scheduler, *chanRenderer) {
	t.Helper()

	renderer := newChanRenderer()
	s, err := New(Config{
		TriplesInterval:    20 * time.Second,
		AnimalitosInterval: 15 * time.Second,
	}, source, renderer, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s, renderer
}

func equalProviders(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNewValidation(t *testing.T) {
	renderer := newChanRenderer()
	if _, err := New(Config{}, nil, renderer, nil); err == nil {
		t.Error("Expected error for nil source")
	}
	if _, err := New(Config{}, newStubSource(), nil, nil); err == nil {
		t.Error("Expected error for nil renderer")
	}
}

// TestTriplesPaging walks a 5-provider board: pages advance as
// [A,B,C,D] then [E], then the day flips.
func TestTriplesPaging(t *testing.T) {
	source := newStubSource()
	source.triples[results.DayCurrent] = []string{"A", "B", "C", "D", "E"}
	source.triples[results.DayPrevious] = []string{"A", "B", "C", "D", "E"}

	s, _ := newTestScheduler(t, source)

	// Initial state: page 0 of the current day
	s.mode = ModeTriples
	s.triplesDay = results.DayCurrent

	snap := s.snapshotLocked()
	if !equalProviders(snap.Providers, []string{"A", "B", "C", "D"}) {
		t.Errorf("Page 0: got %v", snap.Providers)
	}

	snap, _ = s.advance()
	if snap.PageIndex != 1 || !equalProviders(snap.Providers, []string{"E"}) {
		t.Errorf("Page 1: got index=%d providers=%v", snap.PageIndex, snap.Providers)
	}

	snap, _ = s.advance()
	if snap.Day != results.DayPrevious || snap.PageIndex != 0 {
		t.Errorf("Expected previous day page 0, got day=%v index=%d", snap.Day, snap.PageIndex)
	}
	if snap.Mode != ModeTriples {
		t.Errorf("Day flip must not leave triples, got %v", snap.Mode)
	}
}

// TestCategoryTransition verifies triples hands over to animalitos only
// after current then previous pages exhaust, and that the cadence swaps
// exactly there.
func TestCategoryTransition(t *testing.T) {
	source := newStubSource()
	source.triples[results.DayCurrent] = []string{"A", "B", "C", "D", "E"} // 2 pages
	source.triples[results.DayPrevious] = []string{"A"}                   // 1 page
	source.animalitos = []string{"G1", "G2", "G3", "G4", "G5"}

	s, _ := newTestScheduler(t, source)
	s.mode = ModeTriples
	s.triplesDay = results.DayCurrent
	s.interval = s.cfg.TriplesInterval

	// current: page 0 -> 1 -> exhausted -> previous day
	s.advance()
	snap, interval := s.advance()
	if snap.Day != results.DayPrevious || snap.Mode != ModeTriples {
		t.Fatalf("Expected previous-day triples, got %+v", snap)
	}
	if interval != s.cfg.TriplesInterval {
		t.Errorf("Cadence must not swap at the day flip")
	}

	// previous: page 0 -> exhausted -> animalitos
	snap, interval = s.advance()
	if snap.Mode != ModeAnimalitos {
		t.Fatalf("Expected animalitos, got %v", snap.Mode)
	}
	if snap.Day != results.DayCurrent || snap.GroupIndex != 0 {
		t.Errorf("Animalitos must start at current day group 0, got %+v", snap)
	}
	if interval != s.cfg.AnimalitosInterval {
		t.Errorf("Expected animalitos cadence %v, got %v", s.cfg.AnimalitosInterval, interval)
	}
	if !equalProviders(snap.Providers, []string{"G1", "G2", "G3", "G4"}) {
		t.Errorf("Unexpected first group: %v", snap.Providers)
	}
}

// TestAnimalitosDayAlternation verifies the group index advances exactly
// once per full current->previous->current round trip.
func TestAnimalitosDayAlternation(t *testing.T) {
	source := newStubSource()
	source.animalitos = []string{"G1", "G2", "G3", "G4", "G5"} // 2 groups

	s, _ := newTestScheduler(t, source)
	s.mode = ModeAnimalitos
	s.animalitosDay = results.DayCurrent
	s.interval = s.cfg.AnimalitosInterval

	snap, _ := s.advance()
	if snap.Day != results.DayPrevious || snap.GroupIndex != 0 {
		t.Errorf("current->previous must not advance the group, got %+v", snap)
	}

	snap, _ = s.advance()
	if snap.Day != results.DayCurrent || snap.GroupIndex != 1 {
		t.Errorf("previous->current must advance the group, got %+v", snap)
	}
	if !equalProviders(snap.Providers, []string{"G5"}) {
		t.Errorf("Group 1 should be [G5], got %v", snap.Providers)
	}

	// Another full round trip wraps modulo the group count
	s.advance()
	snap, _ = s.advance()
	if snap.GroupIndex != 0 {
		t.Errorf("Expected wrap to group 0, got %d", snap.GroupIndex)
	}
}

// TestEmptyProviders verifies the scheduler never indexes past an empty
// partition.
func TestEmptyProviders(t *testing.T) {
	source := newStubSource()

	s, _ := newTestScheduler(t, source)
	s.mode = ModeTriples
	s.triplesDay = results.DayCurrent
	s.interval = s.cfg.TriplesInterval

	// No pages at all: current day exhausts immediately, then previous,
	// then animalitos with an empty group.
	snap, _ := s.advance()
	if snap.Mode != ModeTriples || snap.Day != results.DayPrevious {
		t.Fatalf("Expected previous-day triples, got %+v", snap)
	}

	snap, _ = s.advance()
	if snap.Mode != ModeAnimalitos {
		t.Fatalf("Expected animalitos, got %+v", snap)
	}
	if len(snap.Providers) != 0 {
		t.Errorf("Expected empty page, got %v", snap.Providers)
	}

	// Day alternation keeps working with zero providers
	for i := 0; i < 6; i++ {
		snap, _ = s.advance()
		if snap.GroupIndex != 0 {
			t.Fatalf("Group index must stay 0 with no providers, got %d", snap.GroupIndex)
		}
	}
}

// TestGroupCounts pins page counts for a range of provider counts.
func TestGroupCounts(t *testing.T) {
	for _, n := range []int{0, 1, 4, 5, 9} {
		providers := make([]string, n)
		for i := range providers {
			providers[i] = string(rune('A' + i))
		}

		want := (n + 3) / 4
		if want < 1 {
			want = 1
		}
		if got := results.GroupCount(n); got != want {
			t.Errorf("GroupCount(%d) = %d, want %d", n, got, want)
		}

		groups := results.GroupProviders(providers)
		for gi, g := range groups {
			if len(g) == 0 {
				t.Errorf("n=%d: group %d is empty", n, gi)
			}
			if len(g) > results.ProviderGroupSize {
				t.Errorf("n=%d: group %d has %d providers", n, gi, len(g))
			}
		}
	}
}

// TestProgressResetsOnAdvance verifies progress is monotone within a
// cycle and drops to ~0 after a tick.
func TestProgressResetsOnAdvance(t *testing.T) {
	source := newStubSource()
	source.triples[results.DayCurrent] = []string{"A"}

	s, _ := newTestScheduler(t, source)
	s.mode = ModeTriples
	s.interval = s.cfg.TriplesInterval
	s.cycleStart = time.Now().Add(-10 * time.Second) // half a 20s cycle elapsed

	p1 := s.Progress()
	if p1 < 40 || p1 > 60 {
		t.Errorf("Expected ~50%%, got %f", p1)
	}

	time.Sleep(10 * time.Millisecond)
	p2 := s.Progress()
	if p2 < p1 {
		t.Errorf("Progress decreased within a cycle: %f -> %f", p1, p2)
	}

	s.advance()
	if p := s.Progress(); p > 5 {
		t.Errorf("Expected progress ~0 after advance, got %f", p)
	}

	// Clamp at 100
	s.cycleStart = time.Now().Add(-time.Hour)
	if p := s.Progress(); p != 100 {
		t.Errorf("Expected clamp at 100, got %f", p)
	}
}

// TestStartStop exercises the real timers end to end.
func TestStartStop(t *testing.T) {
	source := newStubSource()
	source.triples[results.DayCurrent] = []string{"A", "B", "C", "D", "E"}
	source.animalitos = []string{"G1"}

	renderer := newChanRenderer()
	s, err := New(Config{
		TriplesInterval:    20 * time.Millisecond,
		AnimalitosInterval: 10 * time.Millisecond,
		ProgressTick:       5 * time.Millisecond,
	}, source, renderer, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	s.Start()
	defer s.Stop()

	// Initial render arrives immediately
	select {
	case snap := <-renderer.snaps:
		if snap.Mode != ModeTriples || snap.PageIndex != 0 {
			t.Errorf("Unexpected initial snapshot: %+v", snap)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for initial render")
	}

	// Eventually the rotation reaches animalitos
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-renderer.snaps:
			if snap.Mode == ModeAnimalitos {
				s.Stop()
				// Stop is idempotent
				s.Stop()
				return
			}
		case <-deadline:
			t.Fatal("Rotation never reached animalitos")
		}
	}
}

// TestStartIsRestart verifies a second Start resets to the top of the
// cycle without leaking the first run's timers.
func TestStartIsRestart(t *testing.T) {
	source := newStubSource()
	source.triples[results.DayCurrent] = []string{"A"}

	renderer := newChanRenderer()
	s, err := New(Config{
		TriplesInterval:    15 * time.Millisecond,
		AnimalitosInterval: 15 * time.Millisecond,
	}, source, renderer, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	s.Start()
	time.Sleep(40 * time.Millisecond)
	s.Start()
	defer s.Stop()

	// Drain anything already queued, then the restart's initial render
	// must show the top of the cycle.
	found := false
	timeout := time.After(1 * time.Second)
	for !found {
		select {
		case snap := <-renderer.snaps:
			if snap.Mode == ModeTriples && snap.PageIndex == 0 && snap.Day == results.DayCurrent {
				found = true
			}
		case <-timeout:
			t.Fatal("Restart never rendered the top of the cycle")
		}
	}
}

type recordingSink struct {
	mu     sync.Mutex
	values []float64
}

func (r *recordingSink) SetProgress(pct float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, pct)
}

// TestProgressLoopFeedsSink verifies the cosmetic progress loop runs.
func TestProgressLoopFeedsSink(t *testing.T) {
	source := newStubSource()
	sink := &recordingSink{}

	s, err := New(Config{
		TriplesInterval:    time.Second,
		AnimalitosInterval: time.Second,
		ProgressTick:       5 * time.Millisecond,
	}, source, newChanRenderer(), sink)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	s.Start()
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.values) == 0 {
		t.Fatal("Progress sink never fed")
	}
	for i := 1; i < len(sink.values); i++ {
		if sink.values[i] < sink.values[i-1] {
			t.Fatalf("Progress decreased within the cycle: %v", sink.values)
		}
	}
}
