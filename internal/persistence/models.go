package persistence

import "time"

// ProposalStatus enumerates the proposal state machine.
type ProposalStatus string

const (
	// ProposalPending is the initial state of every stored proposal.
	ProposalPending ProposalStatus = "pending"
	// ProposalConfirmed is terminal; exactly one candidate slot was selected.
	ProposalConfirmed ProposalStatus = "confirmed"
	// ProposalCancelled is terminal and reserved for future cancellation
	// flows; nothing in the current engine transitions into it.
	ProposalCancelled ProposalStatus = "cancelled"
)

// CandidateSlot is a ranked meeting window stored with a proposal.
type CandidateSlot struct {
	Start time.Time
	End   time.Time
	Score float64
	Day   time.Weekday
}

// Proposal is the persisted record of a scheduling request, its ranked
// candidate slots, and its confirmation state.
type Proposal struct {
	ID                 string
	Title              string
	Description        string
	DurationMinutes    int
	OrganizerID        string
	ParticipantIDs     []string
	Priority           string
	PreferredDays      []string
	CandidateSlots     []CandidateSlot
	Reasoning          string
	Status             ProposalStatus
	ConfirmedSlotIndex *int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Participant represents a calendar owner registered with the directory.
// A participant with a non-empty access token hash counts as authenticated:
// their calendar is queryable with stored credentials.
type Participant struct {
	ID              string
	DisplayName     string
	AccessTokenHash string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// BusyInterval is one occupied range on a participant's calendar.
type BusyInterval struct {
	ParticipantID string
	Start         time.Time
	End           time.Time
}

// CalendarEvent is a created meeting event recorded against the organizer's
// calendar.
type CalendarEvent struct {
	ID          string
	OrganizerID string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	AttendeeIDs []string
	CreatedAt   time.Time
}
