package availability

import "time"

// Generate slices conflict-free windows into bookable slots of cfg.Duration(). Candidates start at
// each window's start and advance by the increment; a candidate is kept only if the slot together
// with its buffers fits inside the window. Buffers are reserved but not returned.
//
// Slots come back in chronological order. Windows are never merged here, and a slot that would
// repeat or overlap one taken from an earlier window is dropped. Within one window an increment
// shorter than the duration yields overlapping alternative start times.
func Generate(windows []Interval, cfg EventTypeConfig) []Interval {
	duration := cfg.Duration()
	step := cfg.Increment()
	if duration <= 0 || step <= 0 {
		return nil
	}
	before := cfg.BufferBefore()
	after := cfg.BufferAfter()

	ordered := make([]Interval, len(windows))
	copy(ordered, windows)
	sortIntervals(ordered)

	var slots []Interval
	// prevEnd is the end of the last slot taken from an earlier window.
	var prevEnd time.Time
	for _, win := range ordered {
		if win.Empty() || win.Start.Add(duration).After(win.End) {
			continue
		}
		lastEnd := prevEnd
		for t := win.Start; !t.Add(duration).After(win.End); t = t.Add(step) {
			if t.Add(-before).Before(win.Start) || t.Add(duration+after).After(win.End) {
				continue
			}
			if t.Before(prevEnd) {
				continue
			}
			slot := Interval{Start: t.UTC(), End: t.Add(duration).UTC()}
			slots = append(slots, slot)
			if slot.End.After(lastEnd) {
				lastEnd = slot.End
			}
		}
		prevEnd = lastEnd
	}
	return slots
}

// NotBefore drops slots starting before t. A zero t keeps everything.
func NotBefore(slots []Interval, t time.Time) []Interval {
	if t.IsZero() {
		return slots
	}
	out := slots[:0:0]
	for _, s := range slots {
		if !s.Start.Before(t) {
			out = append(out, s)
		}
	}
	return out
}
