package availability

import "sort"

// Normalize returns the intervals sorted by start with empty ones dropped and overlapping or
// touching ones merged. The input is not modified.
func Normalize(in []Interval) []Interval {
	if len(in) == 0 {
		return nil
	}
	b := make([]Interval, 0, len(in))
	for _, iv := range in {
		if !iv.Empty() {
			b = append(b, Interval{Start: iv.Start.UTC(), End: iv.End.UTC()})
		}
	}
	sortIntervals(b)

	merged := make([]Interval, 0, len(b))
	for _, cur := range b {
		if len(merged) == 0 {
			merged = append(merged, cur)
			continue
		}
		last := &merged[len(merged)-1]
		if cur.Start.After(last.End) {
			merged = append(merged, cur)
			continue
		}
		if cur.End.After(last.End) {
			last.End = cur.End
		}
	}
	return merged
}

func sortIntervals(in []Interval) {
	sort.Slice(in, func(i, j int) bool {
		if in[i].Start.Equal(in[j].Start) {
			return in[i].End.Before(in[j].End)
		}
		return in[i].Start.Before(in[j].Start)
	})
}
