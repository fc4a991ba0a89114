// Package memory provides an in-memory implementation of the persistence
// repositories. It backs tests and single-process deployments that do not
// need a durable store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/schedulai/internal/persistence"
)

// proposalEntry pairs a stored proposal with its own mutex so confirm
// transitions on distinct proposals never contend.
type proposalEntry struct {
	mu       sync.Mutex
	proposal persistence.Proposal
}

// Storage implements ProposalRepository, ParticipantRepository, and
// CalendarRepository over process memory.
type Storage struct {
	mu           sync.RWMutex
	proposals    map[string]*proposalEntry
	participants map[string]persistence.Participant
	busy         map[string][]persistence.BusyInterval
	events       map[string]persistence.CalendarEvent
}

// Open returns an empty Storage.
func Open() *Storage {
	return &Storage{
		proposals:    make(map[string]*proposalEntry),
		participants: make(map[string]persistence.Participant),
		busy:         make(map[string][]persistence.BusyInterval),
		events:       make(map[string]persistence.CalendarEvent),
	}
}

// Close releases resources held by the storage. No-op for the in-memory
// implementation.
func (s *Storage) Close() error {
	return nil
}

// --- ProposalRepository implementation ---

// CreateProposal stores a new proposal.
func (s *Storage) CreateProposal(ctx context.Context, proposal persistence.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.proposals[proposal.ID]; ok {
		return persistence.ErrDuplicate
	}

	s.proposals[proposal.ID] = &proposalEntry{proposal: cloneProposal(proposal)}
	return nil
}

// GetProposal retrieves a proposal by ID.
func (s *Storage) GetProposal(ctx context.Context, id string) (persistence.Proposal, error) {
	s.mu.RLock()
	entry, ok := s.proposals[id]
	s.mu.RUnlock()
	if !ok {
		return persistence.Proposal{}, persistence.ErrNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return cloneProposal(entry.proposal), nil
}

// ConfirmProposal transitions a pending proposal to confirmed, recording the
// selected slot index. Proposals outside the pending state are left untouched
// and reported with ErrNotPending.
func (s *Storage) ConfirmProposal(ctx context.Context, id string, slotIndex int, confirmedAt time.Time) (persistence.Proposal, error) {
	s.mu.RLock()
	entry, ok := s.proposals[id]
	s.mu.RUnlock()
	if !ok {
		return persistence.Proposal{}, persistence.ErrNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.proposal.Status != persistence.ProposalPending {
		return persistence.Proposal{}, persistence.ErrNotPending
	}
	if slotIndex < 0 || slotIndex >= len(entry.proposal.CandidateSlots) {
		return persistence.Proposal{}, persistence.ErrConstraintViolation
	}

	index := slotIndex
	entry.proposal.Status = persistence.ProposalConfirmed
	entry.proposal.ConfirmedSlotIndex = &index
	entry.proposal.UpdatedAt = confirmedAt

	return cloneProposal(entry.proposal), nil
}

// ReopenProposal transitions a confirmed proposal back to pending, clearing
// the selected slot index. Proposals outside the confirmed state are left
// untouched and reported with ErrNotConfirmed.
func (s *Storage) ReopenProposal(ctx context.Context, id string, updatedAt time.Time) (persistence.Proposal, error) {
	s.mu.RLock()
	entry, ok := s.proposals[id]
	s.mu.RUnlock()
	if !ok {
		return persistence.Proposal{}, persistence.ErrNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.proposal.Status != persistence.ProposalConfirmed {
		return persistence.Proposal{}, persistence.ErrNotConfirmed
	}

	entry.proposal.Status = persistence.ProposalPending
	entry.proposal.ConfirmedSlotIndex = nil
	entry.proposal.UpdatedAt = updatedAt

	return cloneProposal(entry.proposal), nil
}

// --- ParticipantRepository implementation ---

// CreateParticipant stores a new directory entry.
func (s *Storage) CreateParticipant(ctx context.Context, participant persistence.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.participants[participant.ID]; ok {
		return persistence.ErrDuplicate
	}

	s.participants[participant.ID] = participant
	return nil
}

// GetParticipant retrieves a directory entry by ID.
func (s *Storage) GetParticipant(ctx context.Context, id string) (persistence.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	participant, ok := s.participants[id]
	if !ok {
		return persistence.Participant{}, persistence.ErrNotFound
	}

	return participant, nil
}

// ListParticipants returns all directory entries ordered by ID.
func (s *Storage) ListParticipants(ctx context.Context) ([]persistence.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	participants := make([]persistence.Participant, 0, len(s.participants))
	for _, participant := range s.participants {
		participants = append(participants, participant)
	}

	sort.Slice(participants, func(i, j int) bool {
		return participants[i].ID < participants[j].ID
	})

	return participants, nil
}

// DeleteParticipant removes a directory entry and its busy intervals.
func (s *Storage) DeleteParticipant(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.participants[id]; !ok {
		return persistence.ErrNotFound
	}

	delete(s.participants, id)
	delete(s.busy, id)
	return nil
}

// --- CalendarRepository implementation ---

// AddBusyInterval records an occupied range on a participant's calendar.
func (s *Storage) AddBusyInterval(ctx context.Context, busy persistence.BusyInterval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !busy.End.After(busy.Start) {
		return persistence.ErrConstraintViolation
	}

	s.busy[busy.ParticipantID] = append(s.busy[busy.ParticipantID], busy)
	return nil
}

// ListBusyIntervals returns intervals overlapping [from, to) for a
// participant, ordered by start ascending.
func (s *Storage) ListBusyIntervals(ctx context.Context, participantID string, from, to time.Time) ([]persistence.BusyInterval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	intervals := make([]persistence.BusyInterval, 0)
	for _, busy := range s.busy[participantID] {
		if !busy.End.After(from) || !busy.Start.Before(to) {
			continue
		}
		intervals = append(intervals, busy)
	}

	sort.Slice(intervals, func(i, j int) bool {
		if intervals[i].Start.Equal(intervals[j].Start) {
			return intervals[i].End.Before(intervals[j].End)
		}
		return intervals[i].Start.Before(intervals[j].Start)
	})

	return intervals, nil
}

// RecordEvent stores a created calendar event.
func (s *Storage) RecordEvent(ctx context.Context, event persistence.CalendarEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[event.ID]; ok {
		return persistence.ErrDuplicate
	}

	s.events[event.ID] = cloneEvent(event)
	return nil
}

// ListEvents returns events recorded for an organizer ordered by start time.
func (s *Storage) ListEvents(ctx context.Context, organizerID string) ([]persistence.CalendarEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]persistence.CalendarEvent, 0)
	for _, event := range s.events {
		if event.OrganizerID != organizerID {
			continue
		}
		events = append(events, cloneEvent(event))
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].Start.Equal(events[j].Start) {
			return events[i].ID < events[j].ID
		}
		return events[i].Start.Before(events[j].Start)
	})

	return events, nil
}

// --- Helpers ---

func cloneProposal(proposal persistence.Proposal) persistence.Proposal {
	var confirmedIndex *int
	if proposal.ConfirmedSlotIndex != nil {
		index := *proposal.ConfirmedSlotIndex
		confirmedIndex = &index
	}

	participants := make([]string, len(proposal.ParticipantIDs))
	copy(participants, proposal.ParticipantIDs)

	days := make([]string, len(proposal.PreferredDays))
	copy(days, proposal.PreferredDays)

	slots := make([]persistence.CandidateSlot, len(proposal.CandidateSlots))
	copy(slots, proposal.CandidateSlots)

	return persistence.Proposal{
		ID:                 proposal.ID,
		Title:              proposal.Title,
		Description:        proposal.Description,
		DurationMinutes:    proposal.DurationMinutes,
		OrganizerID:        proposal.OrganizerID,
		ParticipantIDs:     participants,
		Priority:           proposal.Priority,
		PreferredDays:      days,
		CandidateSlots:     slots,
		Reasoning:          proposal.Reasoning,
		Status:             proposal.Status,
		ConfirmedSlotIndex: confirmedIndex,
		CreatedAt:          proposal.CreatedAt,
		UpdatedAt:          proposal.UpdatedAt,
	}
}

func cloneEvent(event persistence.CalendarEvent) persistence.CalendarEvent {
	attendees := make([]string, len(event.AttendeeIDs))
	copy(attendees, event.AttendeeIDs)

	clone := event
	clone.AttendeeIDs = attendees
	return clone
}
