// Package gateway provides the calendar and mail provider adapter used by
// the scheduling engine. The store backed implementation keeps busy intervals
// and booked events in the local calendar repository and queues mail in
// memory, standing in for external providers in self-hosted deployments.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/example/schedulai/internal/application"
	"github.com/example/schedulai/internal/interval"
	"github.com/example/schedulai/internal/persistence"
)

// SentEmail records one delivered outbound message.
type SentEmail struct {
	SenderID string
	Message  application.EmailMessage
	SentAt   time.Time
}

// StoreGateway implements application.CalendarGateway on top of the calendar
// repository.
type StoreGateway struct {
	calendar    persistence.CalendarRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger

	mu     sync.Mutex
	outbox []SentEmail
	inbox  []application.InboundEmail
}

// NewStoreGateway wires a gateway around the given calendar repository.
func NewStoreGateway(calendar persistence.CalendarRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *StoreGateway {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreGateway{
		calendar:    calendar,
		idGenerator: idGenerator,
		now:         now,
		logger:      logger,
	}
}

// FetchBusyIntervals returns the stored busy ranges overlapping the horizon.
func (g *StoreGateway) FetchBusyIntervals(ctx context.Context, participantID string, horizonStart, horizonEnd time.Time) ([]interval.TimeInterval, error) {
	if g == nil || g.calendar == nil {
		return nil, fmt.Errorf("gateway: not configured")
	}

	busy, err := g.calendar.ListBusyIntervals(ctx, participantID, horizonStart, horizonEnd)
	if err != nil {
		return nil, fmt.Errorf("list busy intervals for %s: %w", participantID, err)
	}

	intervals := make([]interval.TimeInterval, 0, len(busy))
	for _, entry := range busy {
		intervals = append(intervals, interval.TimeInterval{Start: entry.Start, End: entry.End})
	}
	return intervals, nil
}

// CreateEvent books the event and marks the window busy on every attendee's
// calendar so later scheduling runs see it.
func (g *StoreGateway) CreateEvent(ctx context.Context, event application.EventRequest) (string, error) {
	if g == nil || g.calendar == nil {
		return "", fmt.Errorf("gateway: not configured")
	}

	record := persistence.CalendarEvent{
		ID:          g.idGenerator(),
		OrganizerID: event.OrganizerID,
		Title:       event.Title,
		Description: event.Description,
		Start:       event.Start,
		End:         event.End,
		AttendeeIDs: append([]string(nil), event.AttendeeIDs...),
		CreatedAt:   g.now(),
	}
	if err := g.calendar.RecordEvent(ctx, record); err != nil {
		return "", fmt.Errorf("record event: %w", err)
	}

	for _, attendeeID := range record.AttendeeIDs {
		busy := persistence.BusyInterval{ParticipantID: attendeeID, Start: event.Start, End: event.End}
		if err := g.calendar.AddBusyInterval(ctx, busy); err != nil {
			g.logger.Warn("failed to block attendee calendar", "event_id", record.ID, "participant_id", attendeeID, "error", err)
		}
	}

	g.logger.Info("event booked", "event_id", record.ID, "organizer_id", record.OrganizerID, "attendees", len(record.AttendeeIDs))
	return record.ID, nil
}

// SendEmail appends the message to the outbox.
func (g *StoreGateway) SendEmail(ctx context.Context, senderID string, message application.EmailMessage) error {
	if g == nil {
		return fmt.Errorf("gateway: not configured")
	}
	if len(message.To) == 0 {
		return fmt.Errorf("gateway: message has no recipients")
	}

	g.mu.Lock()
	g.outbox = append(g.outbox, SentEmail{SenderID: senderID, Message: message, SentAt: g.now()})
	g.mu.Unlock()

	g.logger.Info("email queued", "sender_id", senderID, "recipients", len(message.To), "subject", message.Subject)
	return nil
}

// RecentEmails returns inbound messages received at or after since, ordered
// by receipt time.
func (g *StoreGateway) RecentEmails(_ context.Context, since time.Time) ([]application.InboundEmail, error) {
	if g == nil {
		return nil, fmt.Errorf("gateway: not configured")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	matched := make([]application.InboundEmail, 0, len(g.inbox))
	for _, email := range g.inbox {
		if email.ReceivedAt.Before(since) {
			continue
		}
		matched = append(matched, email)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].ReceivedAt.Before(matched[j].ReceivedAt)
	})
	return matched, nil
}

// ReceiveEmail delivers an inbound message into the gateway's inbox.
func (g *StoreGateway) ReceiveEmail(email application.InboundEmail) {
	if g == nil {
		return
	}
	if email.ReceivedAt.IsZero() {
		email.ReceivedAt = g.now()
	}
	g.mu.Lock()
	g.inbox = append(g.inbox, email)
	g.mu.Unlock()
}

// SentEmails returns a copy of the outbox.
func (g *StoreGateway) SentEmails() []SentEmail {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]SentEmail, len(g.outbox))
	copy(out, g.outbox)
	return out
}
