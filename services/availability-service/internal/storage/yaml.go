package storage

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/availability"
	"gopkg.in/yaml.v3"
)

// rulesFile is the on-disk layout read by YAMLStore.
type rulesFile struct {
	Organizers []organizerDoc `yaml:"organizers"`
}

type organizerDoc struct {
	ID         string         `yaml:"id"`
	Timezone   string         `yaml:"timezone"`
	Rules      []ruleDoc      `yaml:"rules"`
	Overrides  []overrideDoc  `yaml:"overrides"`
	Bookings   []bookingDoc   `yaml:"bookings"`
	EventTypes []eventTypeDoc `yaml:"event_types"`
}

type ruleDoc struct {
	Day      string `yaml:"day"`
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
	Timezone string `yaml:"timezone,omitempty"`
}

type windowDoc struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

type overrideDoc struct {
	Date        string      `yaml:"date"`
	Unavailable bool        `yaml:"unavailable"`
	Windows     []windowDoc `yaml:"windows"`
}

type bookingDoc struct {
	Start  string `yaml:"start"`
	End    string `yaml:"end"`
	Status string `yaml:"status,omitempty"`
}

type eventTypeDoc struct {
	ID                   string `yaml:"id"`
	Name                 string `yaml:"name"`
	DurationMinutes      int    `yaml:"duration_minutes"`
	BufferBeforeMinutes  int    `yaml:"buffer_before_minutes"`
	BufferAfterMinutes   int    `yaml:"buffer_after_minutes"`
	SlotIncrementMinutes int    `yaml:"slot_increment_minutes"`
}

type organizerData struct {
	snap       availability.Snapshot
	eventTypes map[string]EventType
}

// YAMLStore serves snapshots from a rules file loaded once at startup. It backs local runs and the
// slotctl diagnostics; it is immutable after load and safe for concurrent use.
type YAMLStore struct {
	organizers map[string]organizerData
}

func LoadYAMLStore(path string) (*YAMLStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := ParseYAMLStore(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func ParseYAMLStore(raw []byte) (*YAMLStore, error) {
	var doc rulesFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	s := &YAMLStore{organizers: make(map[string]organizerData, len(doc.Organizers))}
	for _, o := range doc.Organizers {
		if o.ID == "" {
			return nil, fmt.Errorf("organizer without id")
		}
		if _, dup := s.organizers[o.ID]; dup {
			return nil, fmt.Errorf("organizer %s defined twice", o.ID)
		}
		data, err := o.build()
		if err != nil {
			return nil, fmt.Errorf("organizer %s: %w", o.ID, err)
		}
		s.organizers[o.ID] = data
	}
	return s, nil
}

func (o organizerDoc) build() (organizerData, error) {
	data := organizerData{
		snap:       availability.Snapshot{OrganizerID: o.ID, Timezone: o.Timezone},
		eventTypes: make(map[string]EventType, len(o.EventTypes)),
	}
	for i, r := range o.Rules {
		day, err := parseWeekday(r.Day)
		if err != nil {
			return organizerData{}, fmt.Errorf("rule %d: %w", i, err)
		}
		w, err := windowDoc{Start: r.Start, End: r.End}.parse()
		if err != nil {
			return organizerData{}, fmt.Errorf("rule %d: %w", i, err)
		}
		data.snap.Rules = append(data.snap.Rules, availability.AvailabilityRule{
			DayOfWeek:   day,
			StartMinute: w.StartMinute,
			EndMinute:   w.EndMinute,
			Timezone:    r.Timezone,
		})
	}
	for _, ov := range o.Overrides {
		date, err := availability.ParseDate(ov.Date)
		if err != nil {
			return organizerData{}, fmt.Errorf("override: %w", err)
		}
		out := availability.DateOverride{Date: date, Unavailable: ov.Unavailable}
		for _, wd := range ov.Windows {
			w, err := wd.parse()
			if err != nil {
				return organizerData{}, fmt.Errorf("override %s: %w", ov.Date, err)
			}
			out.Windows = append(out.Windows, w)
		}
		data.snap.Overrides = append(data.snap.Overrides, out)
	}
	for i, b := range o.Bookings {
		if b.Status == "cancelled" {
			continue
		}
		start, err := time.Parse(time.RFC3339, b.Start)
		if err != nil {
			return organizerData{}, fmt.Errorf("booking %d start: %w", i, err)
		}
		end, err := time.Parse(time.RFC3339, b.End)
		if err != nil {
			return organizerData{}, fmt.Errorf("booking %d end: %w", i, err)
		}
		data.snap.Bookings = append(data.snap.Bookings, availability.Booking{StartUTC: start.UTC(), EndUTC: end.UTC()})
	}
	for _, et := range o.EventTypes {
		data.eventTypes[et.ID] = EventType{
			ID:          et.ID,
			OrganizerID: o.ID,
			Name:        et.Name,
			Config: availability.EventTypeConfig{
				DurationMinutes:      et.DurationMinutes,
				BufferBeforeMinutes:  et.BufferBeforeMinutes,
				BufferAfterMinutes:   et.BufferAfterMinutes,
				SlotIncrementMinutes: et.SlotIncrementMinutes,
			},
		}
	}
	return data, nil
}

func (s *YAMLStore) Read(_ context.Context, organizerID string, _ availability.DateRange) (availability.Snapshot, error) {
	data, ok := s.organizers[organizerID]
	if !ok {
		return availability.Snapshot{}, fmt.Errorf("organizer %s: %w", organizerID, ErrNotFound)
	}
	return data.snap, nil
}

func (s *YAMLStore) GetEventType(_ context.Context, organizerID, eventTypeID string) (EventType, error) {
	data, ok := s.organizers[organizerID]
	if !ok {
		return EventType{}, fmt.Errorf("organizer %s: %w", organizerID, ErrNotFound)
	}
	et, ok := data.eventTypes[eventTypeID]
	if !ok {
		return EventType{}, fmt.Errorf("event type %s: %w", eventTypeID, ErrNotFound)
	}
	return et, nil
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// parseWeekday accepts English names or 0-6 with Sunday as 0.
func parseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if wd, ok := weekdays[s]; ok {
		return wd, nil
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n <= 6 {
		return time.Weekday(n), nil
	}
	return 0, fmt.Errorf("invalid day %q", s)
}

func (w windowDoc) parse() (availability.LocalWindow, error) {
	start, err := parseClock(w.Start)
	if err != nil {
		return availability.LocalWindow{}, err
	}
	end, err := parseClock(w.End)
	if err != nil {
		return availability.LocalWindow{}, err
	}
	if end <= start {
		return availability.LocalWindow{}, fmt.Errorf("window %s-%s ends before it starts", w.Start, w.End)
	}
	return availability.LocalWindow{StartMinute: start, EndMinute: end}, nil
}

// parseClock reads HH:MM as minutes after local midnight; 24:00 is the end of the day.
func parseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	h, err1 := strconv.Atoi(hh)
	m, err2 := strconv.Atoi(mm)
	if err1 != nil || err2 != nil || h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	return h*60 + m, nil
}
