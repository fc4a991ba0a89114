// Package testfixtures provides deterministic clocks, identifier generators,
// and record builders shared by persistence and service tests.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/schedulai/internal/application"
	"github.com/example/schedulai/internal/persistence"
)

var (
	proposalCounter    uint64
	participantCounter uint64
)

var referenceTime = time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
// It is a Monday so work-hour and weekday assertions stay stable.
func ReferenceTime() time.Time {
	return referenceTime
}

// ProposalFixture represents a deterministic proposal record that can be
// materialised for application or persistence tests.
type ProposalFixture struct {
	ID              string
	Title           string
	Description     string
	DurationMinutes int
	OrganizerID     string
	ParticipantIDs  []string
	Priority        string
	PreferredDays   []string
	SlotCount       int
	Status          string
	CreatedAt       time.Time
}

// ProposalOption configures the generated proposal fixture.
type ProposalOption func(*ProposalFixture)

// NewProposalFixture returns a deterministic pending proposal fixture with
// optional overrides. Candidate slots are laid out back to back from the
// creation time, scores descending.
func NewProposalFixture(opts ...ProposalOption) ProposalFixture {
	idx := atomic.AddUint64(&proposalCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := ProposalFixture{
		ID:              fmt.Sprintf("proposal-%03d", idx),
		Title:           fmt.Sprintf("Meeting %03d", idx),
		DurationMinutes: 60,
		OrganizerID:     "alice",
		ParticipantIDs:  []string{"alice", "bob"},
		Priority:        "medium",
		SlotCount:       3,
		Status:          "pending",
		CreatedAt:       created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithProposalStatus overrides the fixture status.
func WithProposalStatus(status string) ProposalOption {
	return func(fixture *ProposalFixture) {
		fixture.Status = status
	}
}

// WithProposalParticipants overrides the organizer and participant list. The
// first id is the organizer.
func WithProposalParticipants(ids ...string) ProposalOption {
	return func(fixture *ProposalFixture) {
		if len(ids) == 0 {
			return
		}
		fixture.OrganizerID = ids[0]
		fixture.ParticipantIDs = append([]string(nil), ids...)
	}
}

// WithProposalSlots overrides the number of generated candidate slots.
func WithProposalSlots(count int) ProposalOption {
	return func(fixture *ProposalFixture) {
		fixture.SlotCount = count
	}
}

// Persistence materialises the fixture as a persistence record.
func (f ProposalFixture) Persistence() persistence.Proposal {
	duration := time.Duration(f.DurationMinutes) * time.Minute
	slots := make([]persistence.CandidateSlot, 0, f.SlotCount)
	for i := 0; i < f.SlotCount; i++ {
		start := f.CreatedAt.Add(time.Duration(i+1) * duration)
		slots = append(slots, persistence.CandidateSlot{
			Start: start,
			End:   start.Add(duration),
			Score: float64(150 - 10*i),
			Day:   start.Weekday(),
		})
	}
	return persistence.Proposal{
		ID:              f.ID,
		Title:           f.Title,
		Description:     f.Description,
		DurationMinutes: f.DurationMinutes,
		OrganizerID:     f.OrganizerID,
		ParticipantIDs:  append([]string(nil), f.ParticipantIDs...),
		Priority:        f.Priority,
		PreferredDays:   append([]string(nil), f.PreferredDays...),
		CandidateSlots:  slots,
		Reasoning:       fmt.Sprintf("Found %d candidate slot(s).", f.SlotCount),
		Status:          persistence.ProposalStatus(f.Status),
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.CreatedAt,
	}
}

// Application materialises the fixture as an application record.
func (f ProposalFixture) Application() application.Proposal {
	model := f.Persistence()
	slots := make([]application.CandidateSlot, 0, len(model.CandidateSlots))
	for _, slot := range model.CandidateSlots {
		slots = append(slots, application.CandidateSlot{Start: slot.Start, End: slot.End, Score: slot.Score, Day: slot.Day})
	}
	return application.Proposal{
		ID:              model.ID,
		Title:           model.Title,
		Description:     model.Description,
		DurationMinutes: model.DurationMinutes,
		OrganizerID:     model.OrganizerID,
		ParticipantIDs:  append([]string(nil), model.ParticipantIDs...),
		Priority:        application.Priority(model.Priority),
		PreferredDays:   append([]string(nil), model.PreferredDays...),
		CandidateSlots:  slots,
		Reasoning:       model.Reasoning,
		Status:          application.ProposalStatus(model.Status),
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

// ParticipantFixture represents a deterministic directory entry.
type ParticipantFixture struct {
	ID            string
	DisplayName   string
	TokenHash     string
	Authenticated bool
	CreatedAt     time.Time
}

// ParticipantOption configures the generated participant fixture.
type ParticipantOption func(*ParticipantFixture)

// NewParticipantFixture returns a deterministic authenticated participant
// fixture with optional overrides.
func NewParticipantFixture(opts ...ParticipantOption) ParticipantFixture {
	idx := atomic.AddUint64(&participantCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := ParticipantFixture{
		ID:            fmt.Sprintf("participant-%03d", idx),
		DisplayName:   fmt.Sprintf("Participant %03d", idx),
		TokenHash:     fmt.Sprintf("hash-%03d", idx),
		Authenticated: true,
		CreatedAt:     created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	if !fixture.Authenticated {
		fixture.TokenHash = ""
	}
	return fixture
}

// WithUnauthenticatedParticipant clears the stored credentials.
func WithUnauthenticatedParticipant() ParticipantOption {
	return func(fixture *ParticipantFixture) {
		fixture.Authenticated = false
	}
}

// Persistence materialises the fixture as a persistence record.
func (f ParticipantFixture) Persistence() persistence.Participant {
	return persistence.Participant{
		ID:              f.ID,
		DisplayName:     f.DisplayName,
		AccessTokenHash: f.TokenHash,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.CreatedAt,
	}
}

// BusyIntervalFixture returns a busy interval for the participant starting at
// offset from the reference time.
func BusyIntervalFixture(participantID string, offset, duration time.Duration) persistence.BusyInterval {
	start := referenceTime.Add(offset)
	return persistence.BusyInterval{
		ParticipantID: participantID,
		Start:         start,
		End:           start.Add(duration),
	}
}
