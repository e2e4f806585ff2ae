package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/availability"
)

// ErrNotFound is returned for unknown organizers and event types.
var ErrNotFound = errors.New("not found")

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}

type EventType struct {
	ID          string
	OrganizerID string
	Name        string
	Config      availability.EventTypeConfig
}

// EventTypeStore resolves the duration and buffer policy for an event type.
type EventTypeStore interface {
	GetEventType(ctx context.Context, organizerID, eventTypeID string) (EventType, error)
}

// bookingSpan widens a date range to UTC instants that cover it in any zone (offsets stay within
// ±14h), so bookings overlapping any resolved window are included.
func bookingSpan(dr availability.DateRange) (time.Time, time.Time) {
	start := time.Date(dr.Start.Year, dr.Start.Month, dr.Start.Day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	end := time.Date(dr.End.Year, dr.End.Month, dr.End.Day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 2)
	return start, end
}
