package availability

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// minutesPerDay is the largest accepted wall-clock minute; 1440 means local midnight of the next day.
const minutesPerDay = 24 * 60

// Date is a calendar date without a location. Which instants it covers depends on the zone it is
// resolved in.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return d.midnightUTC().Format(dateLayout)
}

func (d Date) Weekday() time.Weekday {
	return d.midnightUTC().Weekday()
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.midnightUTC().AddDate(0, 0, n))
}

func (d Date) Before(o Date) bool {
	return d.midnightUTC().Before(o.midnightUTC())
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// In returns local midnight of d in loc. On zones that skip midnight the first valid instant of the
// day is returned.
func (d Date) In(loc *time.Location) time.Time {
	return DefaultLocalTimePolicy().Resolve(d, 0, loc).In(loc)
}

func (d Date) midnightUTC() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	Start Date
	End   Date
}

// Days returns the number of dates in the range, or 0 if End is before Start.
func (r DateRange) Days() int {
	if r.End.Before(r.Start) {
		return 0
	}
	return int(r.End.midnightUTC().Sub(r.Start.midnightUTC()).Hours()/24) + 1
}

// Dates lists every date in the range in calendar order.
func (r DateRange) Dates() []Date {
	n := r.Days()
	out := make([]Date, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, r.Start.AddDays(i))
	}
	return out
}

func (r DateRange) String() string {
	return r.Start.String() + ".." + r.End.String()
}

// Interval is a half-open UTC interval [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

func (i Interval) Empty() bool {
	return !i.End.After(i.Start)
}

// Overlaps reports whether two half-open intervals share at least one instant.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Contains reports whether o lies entirely inside i.
func (i Interval) Contains(o Interval) bool {
	return !o.Start.Before(i.Start) && !o.End.After(i.End)
}

// AvailabilityRule is a weekly recurring window in local wall-clock minutes.
type AvailabilityRule struct {
	DayOfWeek   time.Weekday
	StartMinute int
	EndMinute   int
	// Timezone overrides the organizer timezone for this rule when set.
	Timezone string
}

type LocalWindow struct {
	StartMinute int
	EndMinute   int
}

// DateOverride replaces the weekly rules for one date. No windows means unavailable.
type DateOverride struct {
	Date        Date
	Unavailable bool
	Windows     []LocalWindow
}

type EventTypeConfig struct {
	DurationMinutes      int
	BufferBeforeMinutes  int
	BufferAfterMinutes   int
	SlotIncrementMinutes int
}

func (c EventTypeConfig) Duration() time.Duration {
	return time.Duration(c.DurationMinutes) * time.Minute
}

func (c EventTypeConfig) BufferBefore() time.Duration {
	return time.Duration(c.BufferBeforeMinutes) * time.Minute
}

func (c EventTypeConfig) BufferAfter() time.Duration {
	return time.Duration(c.BufferAfterMinutes) * time.Minute
}

func (c EventTypeConfig) Increment() time.Duration {
	return time.Duration(c.SlotIncrementMinutes) * time.Minute
}

func (c EventTypeConfig) Validate() error {
	switch {
	case c.DurationMinutes <= 0:
		return &EventConfigError{Field: "duration_minutes", Value: c.DurationMinutes}
	case c.BufferBeforeMinutes < 0:
		return &EventConfigError{Field: "buffer_before_minutes", Value: c.BufferBeforeMinutes}
	case c.BufferAfterMinutes < 0:
		return &EventConfigError{Field: "buffer_after_minutes", Value: c.BufferAfterMinutes}
	case c.SlotIncrementMinutes <= 0:
		return &EventConfigError{Field: "slot_increment_minutes", Value: c.SlotIncrementMinutes}
	}
	return nil
}

// Booking is a confirmed reservation or an active hold.
type Booking struct {
	StartUTC time.Time
	EndUTC   time.Time
}

// Snapshot is everything the engine reads for one organizer and date range.
type Snapshot struct {
	OrganizerID string
	Timezone    string
	Rules       []AvailabilityRule
	Overrides   []DateOverride
	Bookings    []Booking
}

type DstInfo struct {
	OrganizerIsDST  bool
	DSTTransition   bool
	UTCOffsetBefore time.Duration
	UTCOffsetAfter  time.Duration
}

type TimeSlot struct {
	StartUTC            time.Time
	EndUTC              time.Time
	OrganizerLocalStart time.Time
	OrganizerLocalEnd   time.Time
	InviteeLocalStart   time.Time
	InviteeLocalEnd     time.Time
	DST                 DstInfo
}

// FormatOffset renders a UTC offset as ±HH:MM.
func FormatOffset(d time.Duration) string {
	sign := '+'
	if d < 0 {
		sign = '-'
		d = -d
	}
	mins := int(d / time.Minute)
	return fmt.Sprintf("%c%02d:%02d", sign, mins/60, mins%60)
}
