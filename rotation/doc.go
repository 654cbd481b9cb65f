// Package rotation decides what is on screen at any instant and advances
// that decision on a fixed cadence.
//
// Two display categories cycle in a fixed order. Triples pages through
// provider groups for the current day, then for the previous day.
// When the previous day's pages are exhausted the scheduler switches to
// animalitos, which alternates current/previous day per tick and advances
// its provider group each time a full current+previous round trip
// completes. The two categories run at different cadences; the timer is
// restarted with the animalitos interval exactly at the category
// transition, so only one timer is ever live.
//
// The scheduler raises no errors: a provider list may be empty at any
// tick, and an empty page is handed to the renderer as-is (the renderer
// owns the "no data" placeholder).
//
// A separate high-frequency loop drives a visual progress percentage.
// It is cosmetic only; correctness never depends on it.
package rotation
