package availability

import "time"

type TransitionKind string

const (
	TransitionGap     TransitionKind = "gap"
	TransitionOverlap TransitionKind = "overlap"
)

// Transition is one UTC-offset change of a zone.
type Transition struct {
	At           time.Time
	OffsetBefore time.Duration
	OffsetAfter  time.Duration
	Kind         TransitionKind
}

// LocalDate is the calendar date of the transition in its own zone.
func (t Transition) LocalDate(loc *time.Location) Date {
	return DateOf(t.At.In(loc))
}

// Transitions lists the offset changes of loc during the given calendar year (UTC bounds), read
// from the zone database rather than a fixed table.
func Transitions(loc *time.Location, year int) []Transition {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	var out []Transition
	cursor := from
	for cursor.Before(to) {
		_, end := cursor.In(loc).ZoneBounds()
		if end.IsZero() || !end.Before(to) {
			break
		}
		_, before := end.Add(-time.Second).In(loc).Zone()
		_, after := end.In(loc).Zone()
		if before != after {
			kind := TransitionOverlap
			if after > before {
				kind = TransitionGap
			}
			out = append(out, Transition{
				At:           end.UTC(),
				OffsetBefore: time.Duration(before) * time.Second,
				OffsetAfter:  time.Duration(after) * time.Second,
				Kind:         kind,
			})
		}
		cursor = end
	}
	return out
}
