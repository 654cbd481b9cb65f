package main

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/santelizdev/loteria-tv/backend"
	"github.com/santelizdev/loteria-tv/results"
	"github.com/santelizdev/loteria-tv/rotation"
)

// consoleDisplay is the stand-in render surface for headless runs. It
// prints the board a TV screen would show, one frame per rotation
// transition, and keeps the latest cycle progress for the frame header.
type consoleDisplay struct {
	cache    *results.Cache
	isActive func() bool

	// progress in hundredths of a percent, written by the scheduler's
	// progress loop.
	progress atomic.Int64
}

func newConsoleDisplay(cache *results.Cache, isActive func() bool) *consoleDisplay {
	return &consoleDisplay{cache: cache, isActive: isActive}
}

func (d *consoleDisplay) SetProgress(pct float64) {
	d.progress.Store(int64(math.Round(pct * 100)))
}

func (d *consoleDisplay) Render(snap rotation.Snapshot) {
	var b strings.Builder

	fmt.Fprintf(&b, "=== %s / %s", snap.Mode, snap.Day)
	if snap.Mode == rotation.ModeTriples {
		fmt.Fprintf(&b, " / page %d", snap.PageIndex+1)
	} else {
		fmt.Fprintf(&b, " / group %d", snap.GroupIndex+1)
	}
	fmt.Fprintf(&b, " / cycle %.0f%% ===\n", float64(d.progress.Load())/100)

	switch {
	case !d.isActive():
		b.WriteString("Esperando activación...\n")
	case len(snap.Providers) == 0:
		b.WriteString("Sin resultados para mostrar\n")
	default:
		d.renderBoard(&b, snap)
	}

	fmt.Print(b.String())
}

func (d *consoleDisplay) renderBoard(b *strings.Builder, snap rotation.Snapshot) {
	category := backend.CategoryTriples
	if snap.Mode == rotation.ModeAnimalitos {
		category = backend.CategoryAnimalitos
	}
	rows := d.cache.Rows(category, snap.Day)

	for _, provider := range snap.Providers {
		byHour := results.IndexByHour(rows, provider)

		fmt.Fprintf(b, "%-20s", provider)
		for _, hour := range results.Hours() {
			row, ok := byHour[hour]
			switch {
			case !ok:
				fmt.Fprintf(b, " %8s", "-")
			case snap.Mode == rotation.ModeAnimalitos && row.Animal != "":
				fmt.Fprintf(b, " %8s", fmt.Sprintf("%s %s", row.Number, row.Animal))
			default:
				fmt.Fprintf(b, " %8s", row.Number)
			}
		}
		b.WriteByte('\n')
	}
}
