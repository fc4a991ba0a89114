package application

import (
	"time"

	"github.com/example/schedulai/internal/slots"
)

// Priority expresses how aggressively the scorer should favour particular
// slots for a meeting.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ProposalStatus tracks a proposal through its lifecycle.
type ProposalStatus string

const (
	StatusPending   ProposalStatus = "pending"
	StatusConfirmed ProposalStatus = "confirmed"
	StatusCancelled ProposalStatus = "cancelled"
)

// MeetingInput captures caller provided meeting fields.
type MeetingInput struct {
	Title           string
	Description     string
	DurationMinutes int
	OrganizerID     string
	ParticipantIDs  []string
	Priority        Priority
	PreferredDays   []string
}

// Preferences tunes the scheduling engine per request. Zero values fall back
// to the service defaults.
type Preferences struct {
	WorkStartHour  int
	WorkEndHour    int
	HorizonDays    int
	MaxSuggestions int
}

// CandidateSlot is a proposed meeting window with its ranking score.
type CandidateSlot struct {
	Start time.Time
	End   time.Time
	Score float64
	Day   time.Weekday
}

// Proposal is the record of a scheduling request, its ranked candidate
// slots, and its confirmation state.
type Proposal struct {
	ID                 string
	Title              string
	Description        string
	DurationMinutes    int
	OrganizerID        string
	ParticipantIDs     []string
	Priority           Priority
	PreferredDays      []string
	CandidateSlots     []CandidateSlot
	Reasoning          string
	Status             ProposalStatus
	ConfirmedSlotIndex *int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AvailabilityWarning reports a participant whose calendar could not be
// consulted during scheduling.
type AvailabilityWarning struct {
	ParticipantID string
	Reason        string
}

// ScheduleOutcome is the result of a scheduleMeeting call. Proposal is nil
// when no common slot exists; that is a successful outcome, not an error,
// and Reasoning explains it.
type ScheduleOutcome struct {
	Proposal           *Proposal
	Reasoning          string
	DeniedParticipants []string
	Warnings           []AvailabilityWarning
}

// Confirmation is the result of a successful confirmProposal call.
type Confirmation struct {
	Proposal  Proposal
	EventID   string
	Slot      CandidateSlot
	EmailSent bool
}

// Participant is a directory entry for a calendar owner. Authenticated
// participants hold stored credentials and can be queried for availability.
type Participant struct {
	ID            string
	DisplayName   string
	Authenticated bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EmailResponse is a classified reply to a proposal email.
type EmailResponse struct {
	ProposalID    string
	ParticipantID string
	Type          string
	Subject       string
	ReceivedAt    time.Time
}

func toSlotsPriority(priority Priority) slots.Priority {
	switch priority {
	case PriorityLow:
		return slots.PriorityLow
	case PriorityHigh:
		return slots.PriorityHigh
	case PriorityUrgent:
		return slots.PriorityUrgent
	default:
		return slots.PriorityMedium
	}
}

func toCandidateSlots(ranked []slots.CandidateSlot) []CandidateSlot {
	if len(ranked) == 0 {
		return nil
	}
	out := make([]CandidateSlot, len(ranked))
	for i, slot := range ranked {
		out[i] = CandidateSlot{Start: slot.Start, End: slot.End, Score: slot.Score, Day: slot.Day}
	}
	return out
}
