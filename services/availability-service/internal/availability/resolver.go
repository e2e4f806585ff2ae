package availability

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
	"golang.org/x/sync/errgroup"
)

// DayWindows holds the resolved UTC windows of one organizer-local calendar date.
type DayWindows struct {
	Date    Date
	Windows []Interval
}

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

// Resolver expands weekly rules and date overrides into UTC availability windows.
type Resolver struct {
	policy      LocalTimePolicy
	parallelism int
}

func NewResolver(policy LocalTimePolicy, parallelism int) *Resolver {
	if parallelism <= 0 {
		parallelism = 1
	}
	return &Resolver{policy: policy, parallelism: parallelism}
}

// Resolve returns one entry per date of dr, in date order. Dates without availability carry no
// windows.
func (r *Resolver) Resolve(organizerTZ string, rules []AvailabilityRule, overrides []DateOverride, dr DateRange) ([]DayWindows, error) {
	orgLoc, err := LoadZone("organizer_timezone", organizerTZ)
	if err != nil {
		return nil, err
	}
	if err := validateRange(dr, 0); err != nil {
		return nil, err
	}

	ruleLocs := make([]*time.Location, len(rules))
	for i, rule := range rules {
		if rule.Timezone == "" || rule.Timezone == organizerTZ {
			ruleLocs[i] = orgLoc
			continue
		}
		loc, err := LoadZone("rule_timezone", rule.Timezone)
		if err != nil {
			return nil, err
		}
		ruleLocs[i] = loc
	}

	dayRules, err := expandRules(rules, dr)
	if err != nil {
		return nil, err
	}
	byDate := indexOverrides(overrides)

	dates := dr.Dates()
	out := make([]DayWindows, len(dates))
	resolveOne := func(i int) {
		d := dates[i]
		var local []Interval
		if ov, ok := byDate[d]; ok {
			if !ov.Unavailable {
				for _, w := range ov.Windows {
					local = append(local, r.window(d, w, orgLoc))
				}
			}
		} else {
			for _, idx := range dayRules[d] {
				rule := rules[idx]
				local = append(local, r.window(d, LocalWindow{StartMinute: rule.StartMinute, EndMinute: rule.EndMinute}, ruleLocs[idx]))
			}
		}
		out[i] = DayWindows{Date: d, Windows: Normalize(local)}
	}

	if r.parallelism == 1 || len(dates) < 2 {
		for i := range dates {
			resolveOne(i)
		}
		return out, nil
	}

	var g errgroup.Group
	g.SetLimit(r.parallelism)
	for i := range dates {
		g.Go(func() error {
			resolveOne(i)
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

// window converts one local window on d to UTC. Out-of-range or inverted windows resolve to an
// empty interval, which Normalize drops.
func (r *Resolver) window(d Date, w LocalWindow, loc *time.Location) Interval {
	if w.StartMinute < 0 || w.EndMinute > minutesPerDay || w.EndMinute <= w.StartMinute {
		return Interval{}
	}
	return Interval{
		Start: r.policy.Resolve(d, w.StartMinute, loc),
		End:   r.policy.Resolve(d, w.EndMinute, loc),
	}
}

// expandRules maps every date of dr to the indices of the rules that recur on it.
func expandRules(rules []AvailabilityRule, dr DateRange) (map[Date][]int, error) {
	byWeekday := make(map[time.Weekday][]int)
	for i, rule := range rules {
		byWeekday[rule.DayOfWeek] = append(byWeekday[rule.DayOfWeek], i)
	}

	out := make(map[Date][]int, dr.Days())
	for wd, idx := range byWeekday {
		rw, ok := rruleWeekdays[wd]
		if !ok {
			return nil, fmt.Errorf("rule day_of_week %d out of range", int(wd))
		}
		rr, err := rrule.NewRRule(rrule.ROption{
			Freq:      rrule.WEEKLY,
			Byweekday: []rrule.Weekday{rw},
			Dtstart:   dr.Start.midnightUTC(),
			Until:     dr.End.midnightUTC(),
		})
		if err != nil {
			return nil, fmt.Errorf("expand weekly rule: %w", err)
		}
		for _, t := range rr.All() {
			d := DateOf(t)
			out[d] = append(out[d], idx...)
		}
	}
	return out, nil
}

// indexOverrides folds overrides by date. Unavailable wins over windows; windows of repeated
// overrides for one date are combined.
func indexOverrides(overrides []DateOverride) map[Date]DateOverride {
	out := make(map[Date]DateOverride, len(overrides))
	for _, ov := range overrides {
		cur, ok := out[ov.Date]
		if !ok {
			cur = DateOverride{Date: ov.Date}
		}
		cur.Unavailable = cur.Unavailable || ov.Unavailable
		cur.Windows = append(cur.Windows, ov.Windows...)
		out[ov.Date] = cur
	}
	for d, ov := range out {
		if len(ov.Windows) == 0 {
			ov.Unavailable = true
			out[d] = ov
		}
	}
	return out
}
