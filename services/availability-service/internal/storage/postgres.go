package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/apptslots/libs/db"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/availability"
)

// PostgresStore reads organizer snapshots and event types. It never writes.
type PostgresStore struct {
	pool *db.Pool
	now  func() time.Time
}

func NewPostgresStore(pool *db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, now: time.Now}
}

// Read loads timezone, rules, overrides and blocking bookings inside one read-only snapshot
// transaction, so a booking committed mid-read is either fully visible or not at all.
func (s *PostgresStore) Read(ctx context.Context, organizerID string, dr availability.DateRange) (availability.Snapshot, error) {
	snap := availability.Snapshot{OrganizerID: organizerID}
	err := s.pool.ReadSnapshot(ctx, func(q db.Querier) error {
		err := q.QueryRow(ctx, `
			SELECT timezone
			FROM organizers
			WHERE id = $1
		`, organizerID).Scan(&snap.Timezone)
		if IsNotFound(err) {
			return fmt.Errorf("organizer %s: %w", organizerID, ErrNotFound)
		}
		if err != nil {
			return err
		}

		if snap.Rules, err = readRules(ctx, q, organizerID); err != nil {
			return fmt.Errorf("read rules: %w", err)
		}
		if snap.Overrides, err = readOverrides(ctx, q, organizerID, dr); err != nil {
			return fmt.Errorf("read overrides: %w", err)
		}
		if snap.Bookings, err = readBookings(ctx, q, organizerID, dr, s.now()); err != nil {
			return fmt.Errorf("read bookings: %w", err)
		}
		return nil
	})
	if err != nil {
		return availability.Snapshot{}, err
	}
	return snap, nil
}

func readRules(ctx context.Context, q db.Querier, organizerID string) ([]availability.AvailabilityRule, error) {
	rows, err := q.Query(ctx, `
		SELECT day_of_week, start_minute, end_minute, COALESCE(timezone, '')
		FROM availability_rules
		WHERE organizer_id = $1
		ORDER BY day_of_week, start_minute
	`, organizerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []availability.AvailabilityRule
	for rows.Next() {
		var r availability.AvailabilityRule
		var weekday int16
		if err := rows.Scan(&weekday, &r.StartMinute, &r.EndMinute, &r.Timezone); err != nil {
			return nil, err
		}
		r.DayOfWeek = time.Weekday(weekday)
		out = append(out, r)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func readOverrides(ctx context.Context, q db.Querier, organizerID string, dr availability.DateRange) ([]availability.DateOverride, error) {
	rows, err := q.Query(ctx, `
		SELECT o.override_date, o.is_unavailable, w.start_minute, w.end_minute
		FROM date_overrides o
		LEFT JOIN date_override_windows w ON w.override_id = o.id
		WHERE o.organizer_id = $1
			AND o.override_date BETWEEN $2::date AND $3::date
		ORDER BY o.override_date, w.start_minute
	`, organizerID, dr.Start.String(), dr.End.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []availability.DateOverride
	for rows.Next() {
		var (
			day         time.Time
			unavailable bool
			start, end  *int
		)
		if err := rows.Scan(&day, &unavailable, &start, &end); err != nil {
			return nil, err
		}
		date := availability.DateOf(day)
		if n := len(out); n == 0 || out[n-1].Date != date {
			out = append(out, availability.DateOverride{Date: date, Unavailable: unavailable})
		}
		if start != nil && end != nil {
			last := &out[len(out)-1]
			last.Windows = append(last.Windows, availability.LocalWindow{StartMinute: *start, EndMinute: *end})
		}
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// readBookings returns confirmed bookings and holds that have not expired yet. Cancelled rows do
// not block.
func readBookings(ctx context.Context, q db.Querier, organizerID string, dr availability.DateRange, now time.Time) ([]availability.Booking, error) {
	from, to := bookingSpan(dr)
	rows, err := q.Query(ctx, `
		SELECT start_at, end_at
		FROM bookings
		WHERE organizer_id = $1
			AND start_at < $3
			AND end_at > $2
			AND (status = 'confirmed' OR (status = 'held' AND hold_expires_at > $4))
		ORDER BY start_at
	`, organizerID, from, to, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []availability.Booking
	for rows.Next() {
		var b availability.Booking
		if err := rows.Scan(&b.StartUTC, &b.EndUTC); err != nil {
			return nil, err
		}
		b.StartUTC, b.EndUTC = b.StartUTC.UTC(), b.EndUTC.UTC()
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (s *PostgresStore) GetEventType(ctx context.Context, organizerID, eventTypeID string) (EventType, error) {
	et := EventType{ID: eventTypeID, OrganizerID: organizerID}
	err := s.pool.QueryRow(ctx, `
		SELECT name, duration_minutes, buffer_before_minutes, buffer_after_minutes, slot_increment_minutes
		FROM event_types
		WHERE organizer_id = $1 AND id = $2
	`, organizerID, eventTypeID).Scan(
		&et.Name,
		&et.Config.DurationMinutes,
		&et.Config.BufferBeforeMinutes,
		&et.Config.BufferAfterMinutes,
		&et.Config.SlotIncrementMinutes,
	)
	if IsNotFound(err) {
		return EventType{}, fmt.Errorf("event type %s: %w", eventTypeID, ErrNotFound)
	}
	return et, err
}
