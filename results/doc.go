// Package results turns heterogeneous raw API rows into the canonical
// records the display works with, and keeps the per-category row caches
// the renderer reads.
//
// Normalization is a pure transformation: a raw row either maps to a
// canonical Row bucketed into one of the fixed hour slots (08:00 through
// 20:00), or it is rejected. Several historical field-name aliases are
// accepted (time/draw_time, number/winning_number, animal/name) because
// the backend has gone through revisions and old rows still circulate.
//
// The Cache holds the last successfully normalized row set per
// (category, day). It is updated from results_updated events and by the
// background Refresher; readers always see the most recent good data even
// if a later refresh failed.
package results
