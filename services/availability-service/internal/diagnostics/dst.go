// Package diagnostics runs the availability engine around a zone's DST transitions and renders a
// plain-text report for operators.
package diagnostics

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/storage"
)

// DefaultInviteeZones is the set compared against the organizer zone in the cross-timezone check.
var DefaultInviteeZones = []string{"UTC", "America/New_York", "Europe/London", "Asia/Tokyo"}

type SlotsService interface {
	GetAvailableSlots(ctx context.Context, req availability.Request) (availability.Result, error)
}

type DSTConfig struct {
	OrganizerID  string
	EventTypeID  string
	Year         int
	IncludePast  bool
	Today        availability.Date
	InviteeZones []string
}

type DayReport struct {
	Date            availability.Date
	Offset          int // days relative to the transition
	Slots           int
	FirstSlotDST    bool
	TransitionSlots int
	FirstLocal      string
	LastLocal       string
	NoonOffset      string
	ComputationMS   float64
	Slow            bool
	Err             error
}

type TransitionReport struct {
	Date       availability.Date
	Transition *availability.Transition
	Days       []DayReport
}

type CrossZoneReport struct {
	InviteeZone    string
	OrganizerLocal string
	InviteeLocal   string
	DeltaHours     float64
	NoSlots        bool
	Err            error
}

type DSTReport struct {
	OrganizerID string
	EventType   storage.EventType
	Timezone    string
	Year        int
	// Fallback is set when the zone has no transitions in Year and the report used the New York
	// transition dates instead.
	Fallback    bool
	Transitions []TransitionReport
	CrossDate   availability.Date
	CrossZone   []CrossZoneReport
}

type DSTRunner struct {
	slots      SlotsService
	rules      availability.RuleStore
	eventTypes storage.EventTypeStore
}

func NewDSTRunner(slots SlotsService, rules availability.RuleStore, eventTypes storage.EventTypeStore) *DSTRunner {
	return &DSTRunner{slots: slots, rules: rules, eventTypes: eventTypes}
}

func (r *DSTRunner) Run(ctx context.Context, cfg DSTConfig) (DSTReport, error) {
	et, err := r.eventTypes.GetEventType(ctx, cfg.OrganizerID, cfg.EventTypeID)
	if err != nil {
		return DSTReport{}, err
	}
	yearRange := availability.DateRange{
		Start: availability.Date{Year: cfg.Year, Month: time.January, Day: 1},
		End:   availability.Date{Year: cfg.Year, Month: time.January, Day: 1},
	}
	snap, err := r.rules.Read(ctx, cfg.OrganizerID, yearRange)
	if err != nil {
		return DSTReport{}, err
	}
	loc, err := availability.LoadZone("organizer_timezone", snap.Timezone)
	if err != nil {
		return DSTReport{}, err
	}

	report := DSTReport{OrganizerID: cfg.OrganizerID, EventType: et, Timezone: snap.Timezone, Year: cfg.Year}
	transitions := availability.Transitions(loc, cfg.Year)
	var dates []availability.Date
	for i := range transitions {
		t := transitions[i]
		d := t.LocalDate(loc)
		dates = append(dates, d)
		report.Transitions = append(report.Transitions, TransitionReport{Date: d, Transition: &t})
	}
	if len(dates) == 0 {
		report.Fallback = true
		dates = []availability.Date{
			{Year: cfg.Year, Month: time.March, Day: 10},
			{Year: cfg.Year, Month: time.November, Day: 3},
		}
		for _, d := range dates {
			report.Transitions = append(report.Transitions, TransitionReport{Date: d})
		}
	}

	for i := range report.Transitions {
		tr := &report.Transitions[i]
		for _, off := range []int{-1, 0, 1} {
			day := tr.Date.AddDays(off)
			if !cfg.IncludePast && day.Before(cfg.Today) {
				continue
			}
			tr.Days = append(tr.Days, r.checkDay(ctx, cfg, et, loc, snap.Timezone, day, off))
		}
	}

	zones := cfg.InviteeZones
	if len(zones) == 0 {
		zones = DefaultInviteeZones
	}
	report.CrossDate = dates[0]
	for _, zone := range zones {
		if zone == snap.Timezone {
			continue
		}
		report.CrossZone = append(report.CrossZone, r.crossZone(ctx, cfg, et, loc, zone, dates[0]))
	}
	return report, nil
}

func (r *DSTRunner) checkDay(ctx context.Context, cfg DSTConfig, et storage.EventType, loc *time.Location, zone string, day availability.Date, off int) DayReport {
	rep := DayReport{Date: day, Offset: off}
	res, err := r.slots.GetAvailableSlots(ctx, availability.Request{
		OrganizerID:     cfg.OrganizerID,
		Event:           et.Config,
		Range:           availability.DateRange{Start: day, End: day},
		InviteeTimezone: zone,
	})
	if err != nil {
		rep.Err = err
		return rep
	}
	rep.ComputationMS = res.PerformanceMetrics.ComputationTimeMS
	rep.Slow = res.PerformanceMetrics.Slow
	rep.Slots = len(res.Slots)
	if rep.Slots == 0 {
		_, secs := day.In(loc).Add(12 * time.Hour).Zone()
		rep.NoonOffset = availability.FormatOffset(time.Duration(secs) * time.Second)
		return rep
	}
	first, last := res.Slots[0], res.Slots[len(res.Slots)-1]
	rep.FirstSlotDST = first.DST.OrganizerIsDST
	rep.FirstLocal = first.OrganizerLocalStart.Format("15:04")
	rep.LastLocal = last.OrganizerLocalEnd.Format("15:04")
	for _, s := range res.Slots {
		if s.DST.DSTTransition {
			rep.TransitionSlots++
		}
	}
	return rep
}

func (r *DSTRunner) crossZone(ctx context.Context, cfg DSTConfig, et storage.EventType, loc *time.Location, zone string, day availability.Date) CrossZoneReport {
	rep := CrossZoneReport{InviteeZone: zone}
	res, err := r.slots.GetAvailableSlots(ctx, availability.Request{
		OrganizerID:     cfg.OrganizerID,
		Event:           et.Config,
		Range:           availability.DateRange{Start: day, End: day},
		InviteeTimezone: zone,
	})
	if err != nil {
		rep.Err = err
		return rep
	}
	if len(res.Slots) == 0 {
		rep.NoSlots = true
		return rep
	}
	first := res.Slots[0]
	org := first.StartUTC.In(loc)
	_, orgOff := org.Zone()
	_, invOff := first.InviteeLocalStart.Zone()
	rep.OrganizerLocal = org.Format("15:04 MST")
	rep.InviteeLocal = first.InviteeLocalStart.Format("15:04 MST")
	rep.DeltaHours = float64(invOff-orgOff) / 3600
	return rep
}

// Write renders the report. Warnings are prefixed with "WARN" so the output can be grepped.
func (rep DSTReport) Write(w io.Writer) error {
	ew := &errWriter{w: w}
	ew.printf("DST transitions for %d\n", rep.Year)
	ew.printf("Organizer: %s\nEvent type: %s (%s)\nOrganizer timezone: %s\n\n", rep.OrganizerID, rep.EventType.Name, rep.EventType.ID, rep.Timezone)
	if rep.Fallback {
		ew.printf("WARN no offset changes for %s in %d; checking %s and %s instead\n\n", rep.Timezone, rep.Year, rep.Transitions[0].Date, rep.Transitions[1].Date)
	}

	for _, tr := range rep.Transitions {
		if tr.Transition != nil {
			ew.printf("Transition on %s at %s (%s, %s -> %s):\n", tr.Date, tr.Transition.At.Format(time.RFC3339), tr.Transition.Kind,
				availability.FormatOffset(tr.Transition.OffsetBefore), availability.FormatOffset(tr.Transition.OffsetAfter))
		} else {
			ew.printf("Checking around %s:\n", tr.Date)
		}
		if len(tr.Days) == 0 {
			ew.printf("  all days in the past (use --include-past)\n")
		}
		for _, d := range tr.Days {
			ew.printf("  %s (%+d):\n", d.Date, d.Offset)
			switch {
			case d.Err != nil:
				ew.printf("    ERROR %v\n", d.Err)
				continue
			case d.Slots == 0:
				ew.printf("    no slots available\n    UTC offset at local noon: %s\n", d.NoonOffset)
			default:
				ew.printf("    %d slots found\n    first slot DST: %t\n", d.Slots, d.FirstSlotDST)
				if d.TransitionSlots > 0 {
					ew.printf("    WARN %d slot(s) span a DST transition\n", d.TransitionSlots)
				}
				ew.printf("    time range: %s - %s\n", d.FirstLocal, d.LastLocal)
			}
			if d.Slow {
				ew.printf("    WARN slow computation: %.1fms\n", d.ComputationMS)
			} else {
				ew.printf("    computation time: %.1fms\n", d.ComputationMS)
			}
		}
		ew.printf("\n")
	}

	ew.printf("Cross-timezone check on %s:\n", rep.CrossDate)
	for _, c := range rep.CrossZone {
		ew.printf("  invitee timezone: %s\n", c.InviteeZone)
		switch {
		case c.Err != nil:
			ew.printf("    ERROR %v\n", c.Err)
		case c.NoSlots:
			ew.printf("    no slots available\n")
		default:
			ew.printf("    organizer time: %s\n    invitee time: %s\n    offset: %.1f hours\n", c.OrganizerLocal, c.InviteeLocal, c.DeltaHours)
		}
	}
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
