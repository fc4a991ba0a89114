package application

import (
	"context"
	"time"

	"github.com/example/schedulai/internal/interval"
)

// CalendarGateway is the single capability interface for external calendar
// and mail providers. The engine depends only on this interface; concrete
// adapters live outside the application package.
type CalendarGateway interface {
	// FetchBusyIntervals returns the occupied ranges on a participant's
	// calendar within [horizonStart, horizonEnd).
	FetchBusyIntervals(ctx context.Context, participantID string, horizonStart, horizonEnd time.Time) ([]interval.TimeInterval, error)
	// CreateEvent books a meeting on the organizer's calendar.
	CreateEvent(ctx context.Context, event EventRequest) (string, error)
	// SendEmail delivers a message on behalf of a sender.
	SendEmail(ctx context.Context, senderID string, message EmailMessage) error
	// RecentEmails returns replies received since the given time.
	RecentEmails(ctx context.Context, since time.Time) ([]InboundEmail, error)
}

// EventRequest describes the calendar event to create for a confirmed slot.
type EventRequest struct {
	OrganizerID string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	AttendeeIDs []string
}

// EmailMessage is an outbound notification.
type EmailMessage struct {
	To      []string
	Subject string
	Body    string
}

// InboundEmail is a received reply, as surfaced by the gateway.
type InboundEmail struct {
	From       string
	Subject    string
	Body       string
	ReceivedAt time.Time
}
