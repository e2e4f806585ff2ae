package availability

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// AmbiguousPolicy picks one instant for a wall-clock time that occurs twice (fall-back overlap).
type AmbiguousPolicy int

const (
	// EarlierOffsetOnAmbiguous picks the earlier UTC instant, i.e. the first occurrence.
	EarlierOffsetOnAmbiguous AmbiguousPolicy = iota
	// LaterOffsetOnAmbiguous picks the later UTC instant, i.e. the repeated occurrence.
	LaterOffsetOnAmbiguous
)

func (p AmbiguousPolicy) String() string {
	if p == LaterOffsetOnAmbiguous {
		return "later"
	}
	return "earlier"
}

// GapPolicy maps a wall-clock time that does not exist (spring-forward gap) to an instant.
type GapPolicy int

const (
	// SkipForwardOnGap moves to the first valid instant after the gap (the transition itself).
	SkipForwardOnGap GapPolicy = iota
	// ShiftForwardOnGap keeps the pre-transition offset, so 02:30 becomes 03:30 on a one hour gap.
	ShiftForwardOnGap
)

func (p GapPolicy) String() string {
	if p == ShiftForwardOnGap {
		return "shift"
	}
	return "skip"
}

func ParseAmbiguousPolicy(s string) (AmbiguousPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "earlier":
		return EarlierOffsetOnAmbiguous, nil
	case "later":
		return LaterOffsetOnAmbiguous, nil
	}
	return 0, fmt.Errorf("unknown ambiguous time policy %q (want earlier|later)", s)
}

func ParseGapPolicy(s string) (GapPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "skip":
		return SkipForwardOnGap, nil
	case "shift":
		return ShiftForwardOnGap, nil
	}
	return 0, fmt.Errorf("unknown gap time policy %q (want skip|shift)", s)
}

// WallClockKind classifies how a local wall-clock time maps onto UTC.
type WallClockKind int

const (
	WallClockExact WallClockKind = iota
	WallClockAmbiguous
	WallClockGap
)

// LocalTimePolicy is the strategy used to convert local wall-clock times to UTC instants.
// time.Date leaves the choice for ambiguous and missing times unspecified, so every conversion in
// the resolver goes through Resolve instead.
type LocalTimePolicy struct {
	Ambiguous AmbiguousPolicy
	Gap       GapPolicy
}

func DefaultLocalTimePolicy() LocalTimePolicy {
	return LocalTimePolicy{Ambiguous: EarlierOffsetOnAmbiguous, Gap: SkipForwardOnGap}
}

// Resolve converts minute-of-day on date d in loc to a UTC instant. minute may be 1440 for
// midnight at the end of the day.
func (p LocalTimePolicy) Resolve(d Date, minute int, loc *time.Location) time.Time {
	t, _ := p.ResolveKind(d, minute, loc)
	return t
}

// ResolveKind is Resolve that also reports whether the wall-clock time was exact, ambiguous or
// inside a gap.
func (p LocalTimePolicy) ResolveKind(d Date, minute int, loc *time.Location) (time.Time, WallClockKind) {
	wall := time.Date(d.Year, d.Month, d.Day, 0, minute, 0, 0, time.UTC)

	// The offset is looked up per instant; probes a day either side see both sides of any transition
	// near this wall-clock time.
	offsets := distinctOffsets(loc,
		wall.Add(-24*time.Hour),
		wall,
		wall.Add(24*time.Hour),
	)

	var valid []time.Time
	for _, off := range offsets {
		candidate := wall.Add(-time.Duration(off) * time.Second)
		if _, got := candidate.In(loc).Zone(); got == off {
			valid = append(valid, candidate)
		}
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i].Before(valid[j]) })

	switch {
	case len(valid) == 1:
		return valid[0], WallClockExact
	case len(valid) > 1:
		if p.Ambiguous == LaterOffsetOnAmbiguous {
			return valid[len(valid)-1], WallClockAmbiguous
		}
		return valid[0], WallClockAmbiguous
	}

	// Gap: interpreting wall with the offset in force before the transition lands after it.
	_, before := wall.Add(-24 * time.Hour).In(loc).Zone()
	shifted := wall.Add(-time.Duration(before) * time.Second)
	if p.Gap == ShiftForwardOnGap {
		return shifted, WallClockGap
	}
	start, _ := shifted.In(loc).ZoneBounds()
	if start.IsZero() {
		return shifted, WallClockGap
	}
	return start.UTC(), WallClockGap
}

func distinctOffsets(loc *time.Location, probes ...time.Time) []int {
	var out []int
	for _, t := range probes {
		_, off := t.In(loc).Zone()
		seen := false
		for _, o := range out {
			if o == off {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, off)
		}
	}
	return out
}
