package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	snap  Snapshot
	err   error
	calls int
}

func (f *fakeStore) Read(_ context.Context, organizerID string, _ DateRange) (Snapshot, error) {
	f.calls++
	if f.err != nil {
		return Snapshot{}, f.err
	}
	s := f.snap
	s.OrganizerID = organizerID
	return s, nil
}

func mondayOrganizer(bookings ...Booking) *fakeStore {
	return &fakeStore{snap: Snapshot{
		Timezone: newYork,
		Rules: []AvailabilityRule{
			weekdayRule(time.Monday, 9, 17),
			weekdayRule(time.Sunday, 9, 17),
		},
		Bookings: bookings,
	}}
}

var halfHour = EventTypeConfig{DurationMinutes: 30, SlotIncrementMinutes: 30}

func computeSlots(t *testing.T, store RuleStore, req Request) []TimeSlot {
	t.Helper()
	slots, err := NewEngine(store, DefaultConfig()).AvailableSlots(context.Background(), req)
	require.NoError(t, err)
	return slots
}

func TestEngine_NonTransitionMonday(t *testing.T) {
	slots := computeSlots(t, mondayOrganizer(), Request{
		OrganizerID: "org-1", Event: halfHour, Range: oneDay("2024-01-15"), InviteeTimezone: newYork,
	})
	require.Len(t, slots, 16)

	assert.Equal(t, "09:00", slots[0].OrganizerLocalStart.Format("15:04"))
	assert.Equal(t, "09:30", slots[0].OrganizerLocalEnd.Format("15:04"))
	assert.Equal(t, "16:30", slots[15].OrganizerLocalStart.Format("15:04"))
	assert.Equal(t, "17:00", slots[15].OrganizerLocalEnd.Format("15:04"))
	for _, s := range slots {
		assert.False(t, s.DST.DSTTransition)
		assert.False(t, s.DST.OrganizerIsDST)
		assert.Equal(t, s.OrganizerLocalStart, s.InviteeLocalStart)
	}
}

func TestEngine_MondayAfterSpringForward(t *testing.T) {
	slots := computeSlots(t, mondayOrganizer(), Request{
		OrganizerID: "org-1", Event: halfHour, Range: oneDay("2024-03-11"), InviteeTimezone: newYork,
	})
	require.Len(t, slots, 16)
	assert.True(t, slots[0].StartUTC.Equal(utc("2024-03-11T13:00:00Z")))
	for _, s := range slots {
		assert.True(t, s.DST.OrganizerIsDST)
		assert.False(t, s.DST.DSTTransition)
		assert.Equal(t, -4*time.Hour, s.DST.UTCOffsetBefore)
	}
}

func TestEngine_SpringForwardSundayWindowUnaffected(t *testing.T) {
	slots := computeSlots(t, mondayOrganizer(), Request{
		OrganizerID: "org-1", Event: halfHour, Range: oneDay("2024-03-10"), InviteeTimezone: newYork,
	})
	require.Len(t, slots, 16)
	transition := utc("2024-03-10T07:00:00Z")
	for _, s := range slots {
		assert.Equal(t, !s.StartUTC.Before(transition), s.DST.OrganizerIsDST)
		assert.False(t, s.DST.DSTTransition)
	}
}

func TestEngine_SpringForwardGapWindow(t *testing.T) {
	store := &fakeStore{snap: Snapshot{
		Timezone: newYork,
		Rules:    []AvailabilityRule{{DayOfWeek: time.Sunday, StartMinute: 60, EndMinute: 4 * 60}},
	}}
	slots := computeSlots(t, store, Request{
		OrganizerID: "org-1", Event: halfHour, Range: oneDay("2024-03-10"), InviteeTimezone: "UTC",
	})

	var locals []string
	for _, s := range slots {
		assert.NotEqual(t, 2, s.OrganizerLocalStart.Hour(), "slot inside the gap: %s", s.OrganizerLocalStart)
		locals = append(locals, s.OrganizerLocalStart.Format("15:04"))
	}
	assert.Equal(t, []string{"01:00", "01:30", "03:00", "03:30"}, locals)
	require.Len(t, slots, 4)
	assert.True(t, slots[1].EndUTC.Equal(slots[2].StartUTC), "01:30 EST and 03:00 EDT should be adjacent instants")
}

func TestEngine_BookingRemovesTwoSlots(t *testing.T) {
	booking := Booking{StartUTC: utc("2024-01-15T17:00:00Z"), EndUTC: utc("2024-01-15T18:00:00Z")}
	slots := computeSlots(t, mondayOrganizer(booking), Request{
		OrganizerID: "org-1", Event: halfHour, Range: oneDay("2024-01-15"), InviteeTimezone: newYork,
	})
	require.Len(t, slots, 14)

	for _, s := range slots {
		local := s.OrganizerLocalStart.Format("15:04")
		assert.NotEqual(t, "12:00", local)
		assert.NotEqual(t, "12:30", local)
	}
	assert.Equal(t, "11:30", slots[5].OrganizerLocalStart.Format("15:04"))
	assert.Equal(t, "13:00", slots[6].OrganizerLocalStart.Format("15:04"))
}

func TestEngine_SlotProperties(t *testing.T) {
	booking := Booking{StartUTC: utc("2024-03-04T15:10:00Z"), EndUTC: utc("2024-03-04T16:20:00Z")}
	store := &fakeStore{snap: Snapshot{
		Timezone: newYork,
		Rules: []AvailabilityRule{
			weekdayRule(time.Monday, 9, 17),
			weekdayRule(time.Sunday, 0, 24),
			weekdayRule(time.Saturday, 0, 24),
		},
		Overrides: []DateOverride{{Date: date("2024-11-02"), Unavailable: true}},
		Bookings:  []Booking{booking},
	}}
	cfg := EventTypeConfig{DurationMinutes: 45, BufferBeforeMinutes: 10, BufferAfterMinutes: 5, SlotIncrementMinutes: 60}

	for _, dr := range []DateRange{
		{Start: date("2024-03-02"), End: date("2024-03-11")},
		{Start: date("2024-10-28"), End: date("2024-11-04")},
	} {
		req := Request{OrganizerID: "org-1", Event: cfg, Range: dr, InviteeTimezone: "Europe/London"}
		engine := NewEngine(store, DefaultConfig())
		slots, err := engine.AvailableSlots(context.Background(), req)
		require.NoError(t, err)
		require.NotEmpty(t, slots)

		snap, err := store.Read(context.Background(), "org-1", dr)
		require.NoError(t, err)
		days, err := NewResolver(DefaultLocalTimePolicy(), 1).Resolve(snap.Timezone, snap.Rules, snap.Overrides, dr)
		require.NoError(t, err)
		var all []Interval
		for _, d := range days {
			all = append(all, d.Windows...)
		}
		free := Subtract(Normalize(all), snap.Bookings)

		for i, s := range slots {
			assert.Equal(t, cfg.Duration(), s.EndUTC.Sub(s.StartUTC))
			padded := Interval{Start: s.StartUTC.Add(-cfg.BufferBefore()), End: s.EndUTC.Add(cfg.BufferAfter())}
			inside := false
			for _, w := range free {
				if w.Contains(padded) {
					inside = true
					break
				}
			}
			assert.True(t, inside, "slot %s with buffers is not inside one free window", s.StartUTC)
			assert.False(t, padded.Overlaps(Interval{Start: booking.StartUTC, End: booking.EndUTC}))
			if i > 0 {
				prev := slots[i-1]
				assert.False(t, Interval{Start: prev.StartUTC, End: prev.EndUTC}.Overlaps(Interval{Start: s.StartUTC, End: s.EndUTC}))
				assert.True(t, prev.StartUTC.Before(s.StartUTC))
			}
		}

		again, err := engine.AvailableSlots(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, slots, again)
	}
}

func TestEngine_ParallelMatchesSequential(t *testing.T) {
	store := &fakeStore{snap: Snapshot{
		Timezone: newYork,
		Rules: []AvailabilityRule{
			weekdayRule(time.Monday, 9, 17), weekdayRule(time.Tuesday, 9, 17), weekdayRule(time.Wednesday, 9, 17),
			weekdayRule(time.Thursday, 9, 17), weekdayRule(time.Friday, 9, 17),
		},
	}}
	req := Request{OrganizerID: "org-1", Event: halfHour, Range: DateRange{Start: date("2024-03-01"), End: date("2024-03-31")}, InviteeTimezone: "Asia/Tokyo"}

	seqCfg := DefaultConfig()
	seqCfg.Parallelism = 1
	seq, err := NewEngine(store, seqCfg).AvailableSlots(context.Background(), req)
	require.NoError(t, err)

	parCfg := DefaultConfig()
	parCfg.Parallelism = 8
	par, err := NewEngine(store, parCfg).AvailableSlots(context.Background(), req)
	require.NoError(t, err)

	assert.Len(t, seq, 21*16)
	assert.Equal(t, seq, par)
}

func TestEngine_FullyBookedIsEmptyNotError(t *testing.T) {
	booking := Booking{StartUTC: utc("2024-01-15T14:00:00Z"), EndUTC: utc("2024-01-15T22:00:00Z")}
	slots := computeSlots(t, mondayOrganizer(booking), Request{
		OrganizerID: "org-1", Event: halfHour, Range: oneDay("2024-01-15"), InviteeTimezone: newYork,
	})
	assert.NotNil(t, slots)
	assert.Empty(t, slots)
}

func TestEngine_NotBefore(t *testing.T) {
	slots := computeSlots(t, mondayOrganizer(), Request{
		OrganizerID: "org-1", Event: halfHour, Range: oneDay("2024-01-15"), InviteeTimezone: newYork,
		NotBefore: utc("2024-01-15T20:10:00Z"),
	})
	require.Len(t, slots, 3)
	assert.Equal(t, "15:30", slots[0].OrganizerLocalStart.Format("15:04"))
}

func TestEngine_InputErrorsFailBeforeStoreRead(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{
			name: "invitee timezone",
			req:  Request{Event: halfHour, Range: oneDay("2024-01-15"), InviteeTimezone: "Atlantis/Capital"},
			want: ErrInvalidTimezone,
		},
		{
			name: "reversed range",
			req:  Request{Event: halfHour, Range: DateRange{Start: date("2024-01-15"), End: date("2024-01-14")}, InviteeTimezone: "UTC"},
			want: ErrInvalidDateRange,
		},
		{
			name: "range too long",
			req:  Request{Event: halfHour, Range: DateRange{Start: date("2024-01-01"), End: date("2024-06-01")}, InviteeTimezone: "UTC"},
			want: ErrInvalidDateRange,
		},
		{
			name: "zero duration",
			req:  Request{Event: EventTypeConfig{SlotIncrementMinutes: 15}, Range: oneDay("2024-01-15"), InviteeTimezone: "UTC"},
			want: ErrInvalidEventConfig,
		},
		{
			name: "negative buffer",
			req:  Request{Event: EventTypeConfig{DurationMinutes: 30, BufferAfterMinutes: -5, SlotIncrementMinutes: 15}, Range: oneDay("2024-01-15"), InviteeTimezone: "UTC"},
			want: ErrInvalidEventConfig,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := mondayOrganizer()
			_, err := NewEngine(store, DefaultConfig()).AvailableSlots(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, 0, store.calls)
		})
	}
}

func TestEngine_OrganizerTimezoneInvalid(t *testing.T) {
	store := &fakeStore{snap: Snapshot{Timezone: "Moon/Base"}}
	_, err := NewEngine(store, DefaultConfig()).AvailableSlots(context.Background(), Request{
		OrganizerID: "org-9", Event: halfHour, Range: oneDay("2024-01-15"), InviteeTimezone: "UTC",
	})
	require.ErrorIs(t, err, ErrInvalidTimezone)
	assert.Contains(t, err.Error(), "Moon/Base")
}

func TestEngine_UpstreamErrorPropagated(t *testing.T) {
	cause := errors.New("connection refused")
	store := &fakeStore{err: cause}
	_, err := NewEngine(store, DefaultConfig()).AvailableSlots(context.Background(), Request{
		OrganizerID: "org-7", Event: halfHour, Range: oneDay("2024-01-15"), InviteeTimezone: "UTC",
	})
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "org-7")
	assert.Equal(t, 1, store.calls)
}
