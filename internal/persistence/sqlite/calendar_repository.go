package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/schedulai/internal/persistence"
)

// CalendarRepository implements persistence.CalendarRepository using SQLite.
type CalendarRepository struct {
	pool *ConnectionPool
}

// NewCalendarRepository creates a new SQLite calendar repository.
func NewCalendarRepository(pool *ConnectionPool) *CalendarRepository {
	return &CalendarRepository{pool: pool}
}

// AddBusyInterval records an occupied range on a participant's calendar.
func (r *CalendarRepository) AddBusyInterval(ctx context.Context, busy persistence.BusyInterval) error {
	if !busy.End.After(busy.Start) {
		return persistence.ErrConstraintViolation
	}

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO busy_intervals (participant_id, start_time, end_time)
		VALUES (?, ?, ?)
	`,
		busy.ParticipantID,
		busy.Start.UTC().Format(time.RFC3339Nano),
		busy.End.UTC().Format(time.RFC3339Nano),
	)
	return mapError(err)
}

// ListBusyIntervals returns intervals overlapping [from, to) for a
// participant, ordered by start ascending.
func (r *CalendarRepository) ListBusyIntervals(ctx context.Context, participantID string, from, to time.Time) ([]persistence.BusyInterval, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT participant_id, start_time, end_time
		FROM busy_intervals
		WHERE participant_id = ? AND end_time > ? AND start_time < ?
		ORDER BY start_time ASC, end_time ASC
	`,
		participantID,
		from.UTC().Format(time.RFC3339Nano),
		to.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var intervals []persistence.BusyInterval
	for rows.Next() {
		var busy persistence.BusyInterval
		var startStr, endStr string
		if err := rows.Scan(&busy.ParticipantID, &startStr, &endStr); err != nil {
			return nil, mapError(err)
		}
		if busy.Start, err = time.Parse(time.RFC3339Nano, startStr); err != nil {
			return nil, fmt.Errorf("sqlite: parse start_time: %w", err)
		}
		if busy.End, err = time.Parse(time.RFC3339Nano, endStr); err != nil {
			return nil, fmt.Errorf("sqlite: parse end_time: %w", err)
		}
		intervals = append(intervals, busy)
	}

	return intervals, mapError(rows.Err())
}

// RecordEvent stores a created calendar event.
func (r *CalendarRepository) RecordEvent(ctx context.Context, event persistence.CalendarEvent) error {
	if event.ID == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO calendar_events (id, organizer_id, title, description, start_time, end_time, attendee_ids, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.ID,
		event.OrganizerID,
		event.Title,
		event.Description,
		event.Start.UTC().Format(time.RFC3339Nano),
		event.End.UTC().Format(time.RFC3339Nano),
		strings.Join(event.AttendeeIDs, ","),
		event.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return mapError(err)
}

// ListEvents returns events recorded for an organizer ordered by start time.
func (r *CalendarRepository) ListEvents(ctx context.Context, organizerID string) ([]persistence.CalendarEvent, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, organizer_id, title, description, start_time, end_time, attendee_ids, created_at
		FROM calendar_events
		WHERE organizer_id = ?
		ORDER BY start_time ASC, id ASC
	`, organizerID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var events []persistence.CalendarEvent
	for rows.Next() {
		var event persistence.CalendarEvent
		var startStr, endStr, createdAtStr, attendees string
		if err := rows.Scan(&event.ID, &event.OrganizerID, &event.Title, &event.Description, &startStr, &endStr, &attendees, &createdAtStr); err != nil {
			return nil, mapError(err)
		}
		if event.Start, err = time.Parse(time.RFC3339Nano, startStr); err != nil {
			return nil, fmt.Errorf("sqlite: parse start_time: %w", err)
		}
		if event.End, err = time.Parse(time.RFC3339Nano, endStr); err != nil {
			return nil, fmt.Errorf("sqlite: parse end_time: %w", err)
		}
		if event.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr); err != nil {
			return nil, fmt.Errorf("sqlite: parse created_at: %w", err)
		}
		if attendees != "" {
			event.AttendeeIDs = strings.Split(attendees, ",")
		}
		events = append(events, event)
	}

	return events, mapError(rows.Err())
}
