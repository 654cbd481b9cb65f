package results

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// The board shows hour slots 08:00 through 20:00 inclusive.
const (
	FirstHour = 8
	LastHour  = 20
)

// Day selects which calendar day a row set belongs to.
type Day int

const (
	// DayCurrent is the backend's current result day.
	DayCurrent Day = iota
	// DayPrevious is the day before.
	DayPrevious
)

// String returns a human-readable day name.
func (d Day) String() string {
	if d == DayPrevious {
		return "previous"
	}
	return "current"
}

// Row is one normalized result: a provider's value for an hour slot.
// Rows are immutable once produced. Animal and Image are only set for
// animalitos rows.
type Row struct {
	Provider string
	Hour     int
	Number   string
	Animal   string
	Image    string
}

// rawRow tolerates every historical field shape the backend has used.
// Values are decoded as any because numbers arrive both quoted and bare.
type rawRow struct {
	Provider string `json:"provider"`
	Time     any    `json:"time"`
	DrawTime any    `json:"draw_time"`
	Number   any    `json:"number"`
	Winning  any    `json:"winning_number"`
	Animal   any    `json:"animal"`
	Name     any    `json:"name"`
	Image    any    `json:"image"`
}

var timePattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?:\s*([AaPp][Mm]))?$`)

// ParseHourSlot maps a display time string onto its board hour.
// Accepts "HH:MM", "H:MM", optionally suffixed with AM/PM (12-hour clock).
// Returns false for malformed times and for hours outside the board.
func ParseHourSlot(t string) (int, bool) {
	m := timePattern.FindStringSubmatch(strings.TrimSpace(t))
	if m == nil {
		return 0, false
	}

	hh, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}

	switch strings.ToUpper(m[3]) {
	case "AM":
		if hh == 12 {
			hh = 0
		}
	case "PM":
		if hh != 12 {
			hh += 12
		}
	}

	if hh < FirstHour || hh > LastHour {
		return 0, false
	}
	return hh, true
}

// SlotLabel12h formats a board hour for display, e.g. 14 -> "02:00 PM".
func SlotLabel12h(hour int) string {
	ampm := "AM"
	if hour >= 12 {
		ampm = "PM"
	}
	h12 := ((hour + 11) % 12) + 1
	return fmt.Sprintf("%02d:00 %s", h12, ampm)
}

// Hours returns the ordered board hours.
func Hours() []int {
	hours := make([]int, 0, LastHour-FirstHour+1)
	for h := FirstHour; h <= LastHour; h++ {
		hours = append(hours, h)
	}
	return hours
}

// NormalizeTriples maps raw triples rows to canonical rows.
// Rows with a missing provider, unparsable time or out-of-board hour are
// rejected; there are no other failure modes.
func NormalizeTriples(raw json.RawMessage) []Row {
	out := []Row{}
	for _, r := range decodeRows(raw) {
		hour, ok := ParseHourSlot(asString(firstPresent(r.Time, r.DrawTime)))
		if !ok || r.Provider == "" {
			continue
		}
		out = append(out, Row{
			Provider: r.Provider,
			Hour:     hour,
			Number:   strings.TrimSpace(asString(firstPresent(r.Number, r.Winning))),
		})
	}
	return out
}

// NormalizeAnimalitos maps raw animalitos rows to canonical rows.
// The number is kept as a trimmed string: leading zeros are
// display-significant and must not be lost to numeric coercion.
func NormalizeAnimalitos(raw json.RawMessage) []Row {
	out := []Row{}
	for _, r := range decodeRows(raw) {
		hour, ok := ParseHourSlot(asString(firstPresent(r.Time, r.DrawTime)))
		if !ok || r.Provider == "" {
			continue
		}
		out = append(out, Row{
			Provider: r.Provider,
			Hour:     hour,
			Number:   strings.TrimSpace(asString(firstPresent(r.Number, r.Winning))),
			Animal:   strings.TrimSpace(asString(firstPresent(r.Animal, r.Name))),
			Image:    asString(r.Image),
		})
	}
	return out
}

func decodeRows(raw json.RawMessage) []rawRow {
	var rows []rawRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil
	}
	return rows
}

func firstPresent(values ...any) any {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// DateISO returns the local calendar date offset by dayOffset days in
// YYYY-MM-DD form (0 = today, -1 = yesterday).
func DateISO(dayOffset int) string {
	return time.Now().AddDate(0, 0, dayOffset).Format("2006-01-02")
}
