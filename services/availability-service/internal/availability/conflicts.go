package availability

// Subtract removes every booked interval from the windows. Both sides are UTC, so this is plain
// interval arithmetic: bookings are clipped, sorted and merged once, then swept against the
// windows with a moving index.
func Subtract(windows []Interval, bookings []Booking) []Interval {
	wins := Normalize(windows)
	if len(wins) == 0 {
		return nil
	}

	busy := make([]Interval, 0, len(bookings))
	for _, b := range bookings {
		busy = append(busy, Interval{Start: b.StartUTC, End: b.EndUTC})
	}
	busy = Normalize(busy)
	if len(busy) == 0 {
		return wins
	}

	var out []Interval
	j := 0
	for _, w := range wins {
		// Bookings ending at or before this window cannot touch it or any later one.
		for j < len(busy) && !busy[j].End.After(w.Start) {
			j++
		}
		cursor := w.Start
		for k := j; k < len(busy) && busy[k].Start.Before(w.End); k++ {
			if busy[k].Start.After(cursor) {
				out = append(out, Interval{Start: cursor, End: busy[k].Start})
			}
			if busy[k].End.After(cursor) {
				cursor = busy[k].End
			}
		}
		if w.End.After(cursor) {
			out = append(out, Interval{Start: cursor, End: w.End})
		}
	}
	return out
}
