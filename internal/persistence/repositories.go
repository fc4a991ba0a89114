package persistence

import (
	"context"
	"time"
)

// ProposalRepository stores proposals and enforces their state machine.
type ProposalRepository interface {
	// CreateProposal inserts a new proposal atomically in the pending state.
	// Concurrent readers never observe a partially written proposal.
	CreateProposal(ctx context.Context, proposal Proposal) error
	// GetProposal retrieves a proposal by id.
	GetProposal(ctx context.Context, id string) (Proposal, error)
	// ConfirmProposal performs a compare-and-swap from pending to confirmed
	// that records the selected slot index. It fails with ErrNotFound for
	// unknown ids and ErrNotPending when the proposal already left the
	// pending state; on failure no field changes. Confirmations of distinct
	// proposals never serialize against each other.
	ConfirmProposal(ctx context.Context, id string, slotIndex int, confirmedAt time.Time) (Proposal, error)
	// ReopenProposal reverses a confirmation: a compare-and-swap from
	// confirmed back to pending that clears the selected slot index. It
	// fails with ErrNotFound for unknown ids and ErrNotConfirmed when the
	// proposal is not in the confirmed state. Callers use it to undo a
	// confirmation whose downstream booking did not materialise.
	ReopenProposal(ctx context.Context, id string, updatedAt time.Time) (Proposal, error)
}

// ParticipantRepository stores directory entries for calendar owners.
type ParticipantRepository interface {
	CreateParticipant(ctx context.Context, participant Participant) error
	GetParticipant(ctx context.Context, id string) (Participant, error)
	ListParticipants(ctx context.Context) ([]Participant, error)
	DeleteParticipant(ctx context.Context, id string) error
}

// CalendarRepository stores busy intervals and created events for the
// bundled calendar gateway.
type CalendarRepository interface {
	AddBusyInterval(ctx context.Context, busy BusyInterval) error
	ListBusyIntervals(ctx context.Context, participantID string, from, to time.Time) ([]BusyInterval, error)
	RecordEvent(ctx context.Context, event CalendarEvent) error
	ListEvents(ctx context.Context, organizerID string) ([]CalendarEvent, error)
}
