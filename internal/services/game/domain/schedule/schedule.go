// Package schedule computes which timeline entries are due at a wakeup and
// when the next wakeup should fire.
package schedule

import (
	"time"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/manifest"
)

const (
	// EarlyTolerance lets a timer that fires slightly early still process
	// the entry it was set for.
	EarlyTolerance = 2 * time.Second
	// CatchUpWindow bounds how far back a scan reaches when no entry has
	// been processed yet.
	CatchUpWindow = 10 * time.Minute
)

// Window tunes a due scan.
type Window struct {
	EarlyTolerance time.Duration
	CatchUp        time.Duration
}

// DefaultWindow returns the production scan window.
func DefaultWindow() Window {
	return Window{EarlyTolerance: EarlyTolerance, CatchUp: CatchUpWindow}
}

// Due returns the entries of a sorted timeline whose time falls in
// (lower, now+EarlyTolerance], where lower is lastProcessed, or now-CatchUp
// when nothing has been processed yet.
func Due(timeline []manifest.TimelineEntry, lastProcessed, now time.Time, w Window) []manifest.TimelineEntry {
	lower := lastProcessed
	if lower.IsZero() {
		lower = now.Add(-w.CatchUp)
	}
	upper := now.Add(w.EarlyTolerance)

	var due []manifest.TimelineEntry
	for _, entry := range timeline {
		if entry.Time.After(lower) && !entry.Time.After(upper) {
			due = append(due, entry)
		}
	}
	return due
}

// Next returns the first entry strictly after after.
func Next(timeline []manifest.TimelineEntry, after time.Time) (manifest.TimelineEntry, bool) {
	for _, entry := range timeline {
		if entry.Time.After(after) {
			return entry, true
		}
	}
	return manifest.TimelineEntry{}, false
}

// HighWater returns the latest entry time among entries, or current when
// none is later.
func HighWater(current time.Time, entries []manifest.TimelineEntry) time.Time {
	for _, entry := range entries {
		if entry.Time.After(current) {
			current = entry.Time
		}
	}
	return current
}

// Earliest returns the earliest non-zero time, or the zero time.
func Earliest(times ...time.Time) time.Time {
	var out time.Time
	for _, t := range times {
		if t.IsZero() {
			continue
		}
		if out.IsZero() || t.Before(out) {
			out = t
		}
	}
	return out
}
