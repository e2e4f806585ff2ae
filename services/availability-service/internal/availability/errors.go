package availability

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidTimezone     = errors.New("invalid timezone")
	ErrInvalidDateRange    = errors.New("invalid date range")
	ErrInvalidEventConfig  = errors.New("invalid event type config")
	ErrUpstreamUnavailable = errors.New("rule store unavailable")
)

// TimezoneError reports an unrecognized zone identifier and which input carried it.
type TimezoneError struct {
	Field string
	Zone  string
}

func (e *TimezoneError) Error() string {
	return fmt.Sprintf("invalid timezone %q for %s", e.Zone, e.Field)
}

func (e *TimezoneError) Is(target error) bool {
	return target == ErrInvalidTimezone
}

type DateRangeError struct {
	Range  DateRange
	Reason string
}

func (e *DateRangeError) Error() string {
	return fmt.Sprintf("invalid date range %s: %s", e.Range, e.Reason)
}

func (e *DateRangeError) Is(target error) bool {
	return target == ErrInvalidDateRange
}

type EventConfigError struct {
	Field string
	Value int
}

func (e *EventConfigError) Error() string {
	return fmt.Sprintf("invalid event type config: %s=%d", e.Field, e.Value)
}

func (e *EventConfigError) Is(target error) bool {
	return target == ErrInvalidEventConfig
}

// UpstreamError wraps a rule store failure. The cause is kept unchanged for the caller.
type UpstreamError struct {
	OrganizerID string
	Err         error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("read availability for organizer %q: %v", e.OrganizerID, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}

// LoadZone loads an IANA zone. The empty name and "Local" are rejected so that no default zone is
// ever substituted for a missing one.
func LoadZone(field, name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return nil, &TimezoneError{Field: field, Zone: name}
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, &TimezoneError{Field: field, Zone: name}
	}
	return loc, nil
}

func validateRange(r DateRange, maxDays int) error {
	if r.Start.IsZero() || r.End.IsZero() {
		return &DateRangeError{Range: r, Reason: "start and end are required"}
	}
	if r.End.Before(r.Start) {
		return &DateRangeError{Range: r, Reason: "end is before start"}
	}
	if maxDays > 0 && r.Days() > maxDays {
		return &DateRangeError{Range: r, Reason: fmt.Sprintf("span exceeds %d days", maxDays)}
	}
	return nil
}
