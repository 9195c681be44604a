// Package eventwindow implements the timezone-aware event-window resolver
// (spec.md §4.B): turning a Preset + weeks-ago + optional duration override
// into a concrete half-open UTC instant range.
package eventwindow

import (
	"time"

	"github.com/aquilaworks/convocations/internal/model"
	"github.com/aquilaworks/convocations/internal/rerr"
)

// Resolve computes the EventWindow for preset, weeksAgo, and an optional
// duration override, evaluated relative to now (which should already be in
// the preset's timezone, or any instant — Resolve converts). Steps exactly
// mirror spec.md §4.B:
//
//  1. take now in the preset's IANA timezone
//  2. step backward day-by-day until weekday matches, then subtract
//     7*weeksAgo more days
//  3. construct the local start instant; disambiguate DST fall-back by
//     choosing the earlier occurrence, and DST spring-forward gaps by
//     advancing to the first valid instant
//  4. add duration_minutes (or override hours*60)
//  5. convert both endpoints to UTC
func Resolve(preset model.Preset, weeksAgo int, duration model.DurationOverride, now time.Time) (model.EventWindow, error) {
	if weeksAgo < 0 {
		return model.EventWindow{}, rerr.New(rerr.KindInvalidWindow, "weeks_ago must be non-negative")
	}
	loc, err := time.LoadLocation(preset.Timezone)
	if err != nil {
		return model.EventWindow{}, rerr.Wrap(rerr.KindInvalidWindow, "unknown timezone "+preset.Timezone, err)
	}

	minutes := preset.DurationMinutes
	if duration.Enabled {
		if duration.Hours < 1.0 {
			return model.EventWindow{}, rerr.New(rerr.KindInvalidWindow, "duration override hours must be >= 1.0")
		}
		minutes = int(duration.Hours * 60)
	}
	if minutes <= 0 {
		return model.EventWindow{}, rerr.New(rerr.KindInvalidWindow, "duration must be positive")
	}

	localNow := now.In(loc)
	date := localNow

	// Step backward day-by-day until weekday matches.
	for date.Weekday() != preset.Weekday {
		date = date.AddDate(0, 0, -1)
	}
	// Subtract 7*weeksAgo more days.
	date = date.AddDate(0, 0, -7*weeksAgo)

	start := localInstant(loc, date.Year(), date.Month(), date.Day(), preset.StartHour, preset.StartMinute)
	end := start.Add(time.Duration(minutes) * time.Minute)

	startUTC := start.UTC()
	endUTC := end.UTC()
	w := model.EventWindow{Start: startUTC, End: endUTC}
	if !w.Valid() {
		return model.EventWindow{}, rerr.New(rerr.KindInvalidWindow, "resolved window has end <= start")
	}
	return w, nil
}

// ResolveExplicit builds a window directly from caller-supplied UTC bounds,
// bypassing preset resolution entirely (spec.md §4.B "Alternative input").
func ResolveExplicit(start, end time.Time) (model.EventWindow, error) {
	w := model.EventWindow{Start: start.UTC(), End: end.UTC()}
	if !w.Valid() {
		return model.EventWindow{}, rerr.New(rerr.KindInvalidWindow, "end must be after start")
	}
	return w, nil
}

// localInstant constructs the local wall-clock instant for
// year-month-day hour:minute in loc, resolving DST ambiguity/gaps per
// spec.md §4.B step 3:
//
//   - ambiguous (fall-back): time.Date already returns the first
//     chronological occurrence on the standard library's zoneinfo-backed
//     platforms, but we pin that behavior explicitly by comparing the two
//     candidate offsets and choosing the earlier instant.
//   - non-existent (spring-forward gap): time.Date normalizes to the
//     instant produced by the offset in effect just before the gap, which
//     lands after the gap; we detect this by checking whether the
//     constructed instant round-trips to the requested wall clock, and if
//     not, step minute-by-minute from a few hours earlier to the first
//     instant whose wall clock reaches or passes the requested time.
func localInstant(loc *time.Location, year int, month time.Month, day, hour, minute int) time.Time {
	t := time.Date(year, month, day, hour, minute, 0, 0, loc)

	wallYear, wallMonth, wallDay := t.Date()
	wallHour, wallMinute, _ := t.Clock()
	if wallYear == year && wallMonth == month && wallDay == day && wallHour == hour && wallMinute == minute {
		// No gap: either unambiguous, or ambiguous and time.Date already
		// picked one of the two valid instants. For the fall-back case,
		// pick explicitly the earlier of the two candidates.
		return earlierOfAmbiguous(loc, t, year, month, day, hour, minute)
	}

	// Spring-forward gap: the wall clock we asked for does not exist.
	// Advance minute-by-minute from a pre-gap instant until the local
	// clock reaches or passes the requested time, landing on the first
	// valid instant at or after the gap.
	want := time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
	probe := t.Add(-4 * time.Hour)
	for i := 0; i < 8*60; i++ {
		py, pm, pd := probe.Date()
		ph, pmin, _ := probe.Clock()
		if !time.Date(py, pm, pd, ph, pmin, 0, 0, time.UTC).Before(want) {
			return probe
		}
		probe = probe.Add(time.Minute)
	}
	return t
}

// earlierOfAmbiguous checks whether the requested local wall-clock time is
// ambiguous (occurs twice, during a fall-back transition) and if so returns
// the earlier of the two instants.
func earlierOfAmbiguous(loc *time.Location, candidate time.Time, year int, month time.Month, day, hour, minute int) time.Time {
	_, candidateOffset := candidate.Zone()

	// An hour before the nominal wall time that, if also mapped back to the
	// same wall clock under a different offset, indicates ambiguity. We
	// probe by shifting the candidate back by typical DST deltas (30/60
	// minutes) and checking whether the resulting instant also presents the
	// same wall-clock time with a different offset.
	for _, deltaMin := range []int{60, 30, 120} {
		earlier := candidate.Add(-time.Duration(deltaMin) * time.Minute)
		ey, em, ed := earlier.Date()
		eh, emin, _ := earlier.Clock()
		if ey == year && em == month && ed == day && eh == hour && emin == minute {
			_, earlierOffset := earlier.Zone()
			if earlierOffset != candidateOffset {
				if earlier.Before(candidate) {
					return earlier
				}
				return candidate
			}
		}
	}
	return candidate
}
