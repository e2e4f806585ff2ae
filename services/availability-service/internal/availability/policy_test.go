package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustZone(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func utc(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func date(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestResolve_ExactWallClock(t *testing.T) {
	ny := mustZone(t, "America/New_York")

	got, kind := DefaultLocalTimePolicy().ResolveKind(date("2024-01-15"), 9*60, ny)
	assert.Equal(t, WallClockExact, kind)
	assert.True(t, got.Equal(utc("2024-01-15T14:00:00Z")), "got %s", got)

	// Same wall clock after the spring transition uses the daylight offset.
	got, _ = DefaultLocalTimePolicy().ResolveKind(date("2024-03-11"), 9*60, ny)
	assert.True(t, got.Equal(utc("2024-03-11T13:00:00Z")), "got %s", got)
}

func TestResolve_EndOfDayMidnight(t *testing.T) {
	ny := mustZone(t, "America/New_York")
	got := DefaultLocalTimePolicy().Resolve(date("2024-01-15"), minutesPerDay, ny)
	assert.True(t, got.Equal(utc("2024-01-16T05:00:00Z")), "got %s", got)
}

func TestResolve_GapSkipsToTransition(t *testing.T) {
	ny := mustZone(t, "America/New_York")

	got, kind := DefaultLocalTimePolicy().ResolveKind(date("2024-03-10"), 2*60+30, ny)
	assert.Equal(t, WallClockGap, kind)
	assert.True(t, got.Equal(utc("2024-03-10T07:00:00Z")), "got %s", got)
	assert.Equal(t, "03:00", got.In(ny).Format("15:04"))
}

func TestResolve_GapShiftKeepsPreviousOffset(t *testing.T) {
	ny := mustZone(t, "America/New_York")
	p := LocalTimePolicy{Gap: ShiftForwardOnGap}

	got, kind := p.ResolveKind(date("2024-03-10"), 2*60+30, ny)
	assert.Equal(t, WallClockGap, kind)
	assert.True(t, got.Equal(utc("2024-03-10T07:30:00Z")), "got %s", got)
	assert.Equal(t, "03:30", got.In(ny).Format("15:04"))
}

func TestResolve_GapLondon(t *testing.T) {
	london := mustZone(t, "Europe/London")
	got, kind := DefaultLocalTimePolicy().ResolveKind(date("2024-03-31"), 60+30, london)
	assert.Equal(t, WallClockGap, kind)
	assert.True(t, got.Equal(utc("2024-03-31T01:00:00Z")), "got %s", got)
}

func TestResolve_AmbiguousPicksEarlierInstant(t *testing.T) {
	ny := mustZone(t, "America/New_York")
	p := DefaultLocalTimePolicy()

	for i := 0; i < 50; i++ {
		got, kind := p.ResolveKind(date("2024-11-03"), 60+30, ny)
		require.Equal(t, WallClockAmbiguous, kind)
		require.True(t, got.Equal(utc("2024-11-03T05:30:00Z")), "got %s", got)
	}
}

func TestResolve_AmbiguousLaterPolicy(t *testing.T) {
	ny := mustZone(t, "America/New_York")
	p := LocalTimePolicy{Ambiguous: LaterOffsetOnAmbiguous}

	got, kind := p.ResolveKind(date("2024-11-03"), 60+30, ny)
	assert.Equal(t, WallClockAmbiguous, kind)
	assert.True(t, got.Equal(utc("2024-11-03T06:30:00Z")), "got %s", got)
}

func TestParsePolicies(t *testing.T) {
	a, err := ParseAmbiguousPolicy("")
	require.NoError(t, err)
	assert.Equal(t, EarlierOffsetOnAmbiguous, a)

	a, err = ParseAmbiguousPolicy("Later")
	require.NoError(t, err)
	assert.Equal(t, LaterOffsetOnAmbiguous, a)

	g, err := ParseGapPolicy("shift")
	require.NoError(t, err)
	assert.Equal(t, ShiftForwardOnGap, g)

	_, err = ParseAmbiguousPolicy("random")
	assert.Error(t, err)
	_, err = ParseGapPolicy("backward")
	assert.Error(t, err)
}

func TestTransitions_NewYork2024(t *testing.T) {
	ny := mustZone(t, "America/New_York")
	got := Transitions(ny, 2024)
	require.Len(t, got, 2)

	assert.True(t, got[0].At.Equal(utc("2024-03-10T07:00:00Z")))
	assert.Equal(t, TransitionGap, got[0].Kind)
	assert.Equal(t, -5*time.Hour, got[0].OffsetBefore)
	assert.Equal(t, -4*time.Hour, got[0].OffsetAfter)
	assert.Equal(t, date("2024-03-10"), got[0].LocalDate(ny))

	assert.True(t, got[1].At.Equal(utc("2024-11-03T06:00:00Z")))
	assert.Equal(t, TransitionOverlap, got[1].Kind)
	assert.Equal(t, date("2024-11-03"), got[1].LocalDate(ny))
}

func TestTransitions_ZonesWithoutDST(t *testing.T) {
	assert.Empty(t, Transitions(time.UTC, 2024))
	assert.Empty(t, Transitions(mustZone(t, "Asia/Tokyo"), 2024))
}

func TestFormatOffset(t *testing.T) {
	assert.Equal(t, "-05:00", FormatOffset(-5*time.Hour))
	assert.Equal(t, "+05:30", FormatOffset(5*time.Hour+30*time.Minute))
	assert.Equal(t, "+00:00", FormatOffset(0))
}

func TestDateRange(t *testing.T) {
	r := DateRange{Start: date("2024-02-27"), End: date("2024-03-02")}
	assert.Equal(t, 5, r.Days())
	dates := r.Dates()
	require.Len(t, dates, 5)
	assert.Equal(t, "2024-02-29", dates[2].String())
	assert.Equal(t, time.Thursday, dates[2].Weekday())

	assert.Equal(t, 0, DateRange{Start: date("2024-03-02"), End: date("2024-03-01")}.Days())
}
