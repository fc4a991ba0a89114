package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/schedulai/internal/interval"
	"github.com/example/schedulai/internal/persistence"
)

// Monday 08:00 UTC.
var schedulingBase = time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)

type stubProposalStore struct {
	mu         sync.Mutex
	proposals  map[string]Proposal
	createErr  error
	confirmErr error
}

func newStubProposalStore() *stubProposalStore {
	return &stubProposalStore{proposals: make(map[string]Proposal)}
}

func (s *stubProposalStore) CreateProposal(_ context.Context, proposal Proposal) (Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return Proposal{}, s.createErr
	}
	if _, ok := s.proposals[proposal.ID]; ok {
		return Proposal{}, persistence.ErrDuplicate
	}
	s.proposals[proposal.ID] = proposal
	return proposal, nil
}

func (s *stubProposalStore) GetProposal(_ context.Context, id string) (Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	proposal, ok := s.proposals[id]
	if !ok {
		return Proposal{}, persistence.ErrNotFound
	}
	return proposal, nil
}

func (s *stubProposalStore) ConfirmProposal(_ context.Context, id string, slotIndex int, confirmedAt time.Time) (Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.confirmErr != nil {
		return Proposal{}, s.confirmErr
	}
	proposal, ok := s.proposals[id]
	if !ok {
		return Proposal{}, persistence.ErrNotFound
	}
	if proposal.Status != StatusPending {
		return Proposal{}, persistence.ErrNotPending
	}
	if slotIndex < 0 || slotIndex >= len(proposal.CandidateSlots) {
		return Proposal{}, persistence.ErrConstraintViolation
	}
	proposal.Status = StatusConfirmed
	index := slotIndex
	proposal.ConfirmedSlotIndex = &index
	proposal.UpdatedAt = confirmedAt
	s.proposals[id] = proposal
	return proposal, nil
}

func (s *stubProposalStore) ReopenProposal(_ context.Context, id string, updatedAt time.Time) (Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	proposal, ok := s.proposals[id]
	if !ok {
		return Proposal{}, persistence.ErrNotFound
	}
	if proposal.Status != StatusConfirmed {
		return Proposal{}, persistence.ErrNotConfirmed
	}
	proposal.Status = StatusPending
	proposal.ConfirmedSlotIndex = nil
	proposal.UpdatedAt = updatedAt
	s.proposals[id] = proposal
	return proposal, nil
}

func (s *stubProposalStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.proposals)
}

type stubDirectory struct {
	authenticated []string
	err           error
}

func (d *stubDirectory) AuthenticatedParticipants(context.Context) ([]string, error) {
	if d.err != nil {
		return nil, d.err
	}
	return append([]string(nil), d.authenticated...), nil
}

func (d *stubDirectory) IsAuthenticated(_ context.Context, id string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	for _, authenticated := range d.authenticated {
		if authenticated == id {
			return true, nil
		}
	}
	return false, nil
}

type stubGateway struct {
	mu             sync.Mutex
	busy           map[string][]interval.TimeInterval
	fetchErr       map[string]error
	eventID        string
	createEventErr error
	events         []EventRequest
	sendErr        error
	sent           []EmailMessage
	inbound        []InboundEmail
	recentErr      error
}

func newStubGateway() *stubGateway {
	return &stubGateway{
		busy:     make(map[string][]interval.TimeInterval),
		fetchErr: make(map[string]error),
		eventID:  "event-1",
	}
}

func (g *stubGateway) FetchBusyIntervals(_ context.Context, participantID string, _, _ time.Time) ([]interval.TimeInterval, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fetchErr[participantID]; err != nil {
		return nil, err
	}
	return append([]interval.TimeInterval(nil), g.busy[participantID]...), nil
}

func (g *stubGateway) CreateEvent(_ context.Context, event EventRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createEventErr != nil {
		return "", g.createEventErr
	}
	g.events = append(g.events, event)
	return g.eventID, nil
}

func (g *stubGateway) SendEmail(_ context.Context, _ string, message EmailMessage) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return g.sendErr
	}
	g.sent = append(g.sent, message)
	return nil
}

func (g *stubGateway) RecentEmails(_ context.Context, _ time.Time) ([]InboundEmail, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.recentErr != nil {
		return nil, g.recentErr
	}
	return append([]InboundEmail(nil), g.inbound...), nil
}

// blockingGateway stalls every fetch until the per-participant context
// expires.
type blockingGateway struct {
	*stubGateway
}

func (g *blockingGateway) FetchBusyIntervals(ctx context.Context, _ string, _, _ time.Time) ([]interval.TimeInterval, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func newTestSchedulingService(store *stubProposalStore, directory *stubDirectory, gateway *stubGateway) *SchedulingService {
	counter := 0
	idGen := func() string {
		counter++
		return fmt.Sprintf("proposal-%d", counter)
	}
	now := func() time.Time { return schedulingBase }
	return NewSchedulingService(store, directory, gateway, idGen, now)
}

func testMeetingInput() MeetingInput {
	return MeetingInput{
		Title:           "Sprint Planning",
		DurationMinutes: 60,
		OrganizerID:     "alice",
		ParticipantIDs:  []string{"bob"},
		Priority:        PriorityMedium,
	}
}

func testPreferences() Preferences {
	return Preferences{WorkStartHour: 9, WorkEndHour: 17, HorizonDays: 1, MaxSuggestions: 3}
}

func TestScheduleMeeting_CreatesPendingProposal(t *testing.T) {
	t.Parallel()

	store := newStubProposalStore()
	directory := &stubDirectory{authenticated: []string{"alice", "bob"}}
	gateway := newStubGateway()
	service := newTestSchedulingService(store, directory, gateway)

	outcome, err := service.ScheduleMeeting(context.Background(), testMeetingInput(), testPreferences())
	if err != nil {
		t.Fatalf("ScheduleMeeting failed: %v", err)
	}
	if outcome.Proposal == nil {
		t.Fatal("expected a proposal, got nil")
	}

	proposal := outcome.Proposal
	if proposal.Status != StatusPending {
		t.Errorf("status = %q, want %q", proposal.Status, StatusPending)
	}
	if proposal.ID == "" {
		t.Error("proposal id is empty")
	}
	if got, want := len(proposal.CandidateSlots), 3; got != want {
		t.Fatalf("candidate slots = %d, want %d", got, want)
	}
	for i := 1; i < len(proposal.CandidateSlots); i++ {
		if proposal.CandidateSlots[i].Score > proposal.CandidateSlots[i-1].Score {
			t.Errorf("slot %d score %.0f exceeds slot %d score %.0f", i, proposal.CandidateSlots[i].Score, i-1, proposal.CandidateSlots[i-1].Score)
		}
	}
	// Highest rated start on an empty Monday calendar is 10:00.
	if got := proposal.CandidateSlots[0].Start.Hour(); got != 10 {
		t.Errorf("top slot starts at hour %d, want 10", got)
	}
	if got, want := proposal.ParticipantIDs, []string{"alice", "bob"}; len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("participants = %v, want %v", got, want)
	}
	if !strings.Contains(outcome.Reasoning, "2 of 2 participants") {
		t.Errorf("reasoning %q does not mention participant counts", outcome.Reasoning)
	}
	if store.count() != 1 {
		t.Errorf("stored proposals = %d, want 1", store.count())
	}
}

func TestScheduleMeeting_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*MeetingInput, *Preferences)
		field  string
	}{
		{"empty title", func(in *MeetingInput, _ *Preferences) { in.Title = "  " }, "title"},
		{"zero duration", func(in *MeetingInput, _ *Preferences) { in.DurationMinutes = 0 }, "duration_minutes"},
		{"negative duration", func(in *MeetingInput, _ *Preferences) { in.DurationMinutes = -30 }, "duration_minutes"},
		{"missing organizer", func(in *MeetingInput, _ *Preferences) { in.OrganizerID = "" }, "organizer_id"},
		{"no participants", func(in *MeetingInput, _ *Preferences) { in.ParticipantIDs = nil }, "participants"},
		{"unknown priority", func(in *MeetingInput, _ *Preferences) { in.Priority = "critical" }, "priority"},
		{"inverted work hours", func(_ *MeetingInput, p *Preferences) { p.WorkStartHour, p.WorkEndHour = 17, 9 }, "work_hours"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newStubProposalStore()
			service := newTestSchedulingService(store, &stubDirectory{authenticated: []string{"alice", "bob"}}, newStubGateway())

			input := testMeetingInput()
			prefs := testPreferences()
			tt.mutate(&input, &prefs)

			_, err := service.ScheduleMeeting(context.Background(), input, prefs)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := vErr.FieldErrors[tt.field]; !ok {
				t.Errorf("field errors %v missing %q", vErr.FieldErrors, tt.field)
			}
			if store.count() != 0 {
				t.Error("rejected request must not persist a proposal")
			}
		})
	}
}

func TestScheduleMeeting_DefaultsPriorityToMedium(t *testing.T) {
	t.Parallel()

	store := newStubProposalStore()
	service := newTestSchedulingService(store, &stubDirectory{authenticated: []string{"alice", "bob"}}, newStubGateway())

	input := testMeetingInput()
	input.Priority = ""

	outcome, err := service.ScheduleMeeting(context.Background(), input, testPreferences())
	if err != nil {
		t.Fatalf("ScheduleMeeting failed: %v", err)
	}
	if outcome.Proposal.Priority != PriorityMedium {
		t.Errorf("priority = %q, want %q", outcome.Proposal.Priority, PriorityMedium)
	}
}

func TestScheduleMeeting_NoAuthenticatedParticipants(t *testing.T) {
	t.Parallel()

	store := newStubProposalStore()
	service := newTestSchedulingService(store, &stubDirectory{}, newStubGateway())

	outcome, err := service.ScheduleMeeting(context.Background(), testMeetingInput(), testPreferences())
	if err != nil {
		t.Fatalf("expected a successful outcome, got error: %v", err)
	}
	if outcome.Proposal != nil {
		t.Error("expected nil proposal when nobody is authenticated")
	}
	if outcome.Reasoning == "" {
		t.Error("expected reasoning explaining the empty result")
	}
	if got, want := len(outcome.DeniedParticipants), 2; got != want {
		t.Errorf("denied participants = %d, want %d", got, want)
	}
	if store.count() != 0 {
		t.Error("no proposal may be persisted without candidate slots")
	}
}

func TestScheduleMeeting_DeniedParticipantDoesNotConstrain(t *testing.T) {
	t.Parallel()

	store := newStubProposalStore()
	directory := &stubDirectory{authenticated: []string{"alice", "bob"}}
	gateway := newStubGateway()
	service := newTestSchedulingService(store, directory, gateway)

	input := testMeetingInput()
	input.ParticipantIDs = []string{"bob", "carol"}

	outcome, err := service.ScheduleMeeting(context.Background(), input, testPreferences())
	if err != nil {
		t.Fatalf("ScheduleMeeting failed: %v", err)
	}
	if outcome.Proposal == nil {
		t.Fatal("expected a proposal")
	}
	if got, want := outcome.DeniedParticipants, []string{"carol"}; len(got) != 1 || got[0] != want[0] {
		t.Errorf("denied = %v, want %v", got, want)
	}
	// Denied participants stay on the invite list.
	found := false
	for _, id := range outcome.Proposal.ParticipantIDs {
		if id == "carol" {
			found = true
		}
	}
	if !found {
		t.Error("denied participant missing from invite list")
	}
	if !strings.Contains(outcome.Reasoning, "carol") {
		t.Errorf("reasoning %q does not name the denied participant", outcome.Reasoning)
	}
}

func TestScheduleMeeting_BusyCalendarsNarrowSlots(t *testing.T) {
	t.Parallel()

	store := newStubProposalStore()
	directory := &stubDirectory{authenticated: []string{"alice", "bob"}}
	gateway := newStubGateway()
	// Alice is busy 09:00-12:00, Bob 14:00-17:00: only 12:00-14:00 remains
	// inside work hours.
	gateway.busy["alice"] = []interval.TimeInterval{{
		Start: schedulingBase.Add(1 * time.Hour),
		End:   schedulingBase.Add(4 * time.Hour),
	}}
	gateway.busy["bob"] = []interval.TimeInterval{{
		Start: schedulingBase.Add(6 * time.Hour),
		End:   schedulingBase.Add(9 * time.Hour),
	}}
	service := newTestSchedulingService(store, directory, gateway)

	outcome, err := service.ScheduleMeeting(context.Background(), testMeetingInput(), testPreferences())
	if err != nil {
		t.Fatalf("ScheduleMeeting failed: %v", err)
	}
	if outcome.Proposal == nil {
		t.Fatal("expected a proposal")
	}
	for _, slot := range outcome.Proposal.CandidateSlots {
		if slot.Start.Hour() < 12 || slot.End.Hour() > 14 {
			t.Errorf("slot %v-%v escapes the common free window", slot.Start, slot.End)
		}
	}
}

func TestScheduleMeeting_NoCommonSlotIsSuccess(t *testing.T) {
	t.Parallel()

	store := newStubProposalStore()
	directory := &stubDirectory{authenticated: []string{"alice", "bob"}}
	gateway := newStubGateway()
	// Both calendars fully booked over the work day.
	fullDay := []interval.TimeInterval{{Start: schedulingBase, End: schedulingBase.Add(16 * time.Hour)}}
	gateway.busy["alice"] = fullDay
	gateway.busy["bob"] = fullDay
	service := newTestSchedulingService(store, directory, gateway)

	outcome, err := service.ScheduleMeeting(context.Background(), testMeetingInput(), testPreferences())
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if outcome.Proposal != nil {
		t.Error("expected nil proposal when no common slot exists")
	}
	if !strings.Contains(outcome.Reasoning, "No common") {
		t.Errorf("reasoning %q does not explain the missing availability", outcome.Reasoning)
	}
}

func TestScheduleMeeting_SingleFetchFailureDegrades(t *testing.T) {
	t.Parallel()

	store := newStubProposalStore()
	directory := &stubDirectory{authenticated: []string{"alice", "bob"}}
	gateway := newStubGateway()
	gateway.fetchErr["bob"] = errors.New("calendar provider timeout")
	service := newTestSchedulingService(store, directory, gateway)

	outcome, err := service.ScheduleMeeting(context.Background(), testMeetingInput(), testPreferences())
	if err != nil {
		t.Fatalf("ScheduleMeeting failed: %v", err)
	}
	if outcome.Proposal == nil {
		t.Fatal("expected a proposal from the remaining participant")
	}
	if len(outcome.Warnings) != 1 || outcome.Warnings[0].ParticipantID != "bob" {
		t.Errorf("warnings = %v, want one for bob", outcome.Warnings)
	}
}

func TestScheduleMeeting_AllFetchesFailIsGatewayError(t *testing.T) {
	t.Parallel()

	store := newStubProposalStore()
	directory := &stubDirectory{authenticated: []string{"alice", "bob"}}
	gateway := newStubGateway()
	gateway.fetchErr["alice"] = errors.New("calendar provider down")
	gateway.fetchErr["bob"] = errors.New("calendar provider down")
	service := newTestSchedulingService(store, directory, gateway)

	_, err := service.ScheduleMeeting(context.Background(), testMeetingInput(), testPreferences())
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
	if store.count() != 0 {
		t.Error("failed batch must not persist a proposal")
	}
}

func TestScheduleMeeting_HonoursConfiguredFetchTimeout(t *testing.T) {
	t.Parallel()

	store := newStubProposalStore()
	directory := &stubDirectory{authenticated: []string{"alice", "bob"}}
	gateway := &blockingGateway{stubGateway: newStubGateway()}
	now := func() time.Time { return schedulingBase }
	service := NewSchedulingServiceWithLogger(store, directory, gateway, 25*time.Millisecond, func() string { return "proposal-1" }, now, nil)

	start := time.Now()
	_, err := service.ScheduleMeeting(context.Background(), testMeetingInput(), testPreferences())
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
	// The default timeout is seconds; a configured 25ms bound must cut the
	// stalled fetches off well before that.
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("stalled fetches took %v, configured timeout was not applied", elapsed)
	}
}

func TestScheduleMeeting_CreateConstraintViolationIsValidationError(t *testing.T) {
	t.Parallel()

	store := newStubProposalStore()
	store.createErr = persistence.ErrConstraintViolation
	service := newTestSchedulingService(store, &stubDirectory{authenticated: []string{"alice", "bob"}}, newStubGateway())

	_, err := service.ScheduleMeeting(context.Background(), testMeetingInput(), testPreferences())
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if errors.Is(err, ErrInvalidSlotIndex) {
		t.Error("create path must not surface a slot index error")
	}
}

func TestScheduleMeeting_DirectoryFailurePropagates(t *testing.T) {
	t.Parallel()

	directoryErr := errors.New("directory unavailable")
	service := newTestSchedulingService(newStubProposalStore(), &stubDirectory{err: directoryErr}, newStubGateway())

	_, err := service.ScheduleMeeting(context.Background(), testMeetingInput(), testPreferences())
	if !errors.Is(err, directoryErr) {
		t.Fatalf("expected directory error, got %v", err)
	}
}

func scheduleTestProposal(t *testing.T, service *SchedulingService) Proposal {
	t.Helper()
	outcome, err := service.ScheduleMeeting(context.Background(), testMeetingInput(), testPreferences())
	if err != nil {
		t.Fatalf("ScheduleMeeting failed: %v", err)
	}
	if outcome.Proposal == nil {
		t.Fatal("fixture scheduling produced no proposal")
	}
	return *outcome.Proposal
}

func TestConfirmProposal(t *testing.T) {
	t.Parallel()

	store := newStubProposalStore()
	directory := &stubDirectory{authenticated: []string{"alice", "bob"}}
	gateway := newStubGateway()
	service := newTestSchedulingService(store, directory, gateway)
	proposal := scheduleTestProposal(t, service)

	confirmation, err := service.ConfirmProposal(context.Background(), proposal.ID, 1)
	if err != nil {
		t.Fatalf("ConfirmProposal failed: %v", err)
	}
	if confirmation.Proposal.Status != StatusConfirmed {
		t.Errorf("status = %q, want %q", confirmation.Proposal.Status, StatusConfirmed)
	}
	if confirmation.Proposal.ConfirmedSlotIndex == nil || *confirmation.Proposal.ConfirmedSlotIndex != 1 {
		t.Errorf("confirmed slot index = %v, want 1", confirmation.Proposal.ConfirmedSlotIndex)
	}
	if confirmation.EventID != "event-1" {
		t.Errorf("event id = %q, want event-1", confirmation.EventID)
	}
	if !confirmation.EmailSent {
		t.Error("expected confirmation email to be sent")
	}
	if len(gateway.events) != 1 {
		t.Fatalf("created events = %d, want 1", len(gateway.events))
	}
	event := gateway.events[0]
	if !event.Start.Equal(proposal.CandidateSlots[1].Start) || !event.End.Equal(proposal.CandidateSlots[1].End) {
		t.Errorf("event window %v-%v does not match slot 1", event.Start, event.End)
	}
	if len(gateway.sent) != 1 {
		t.Errorf("sent emails = %d, want 1", len(gateway.sent))
	}
}

func TestConfirmProposal_Preconditions(t *testing.T) {
	t.Parallel()

	t.Run("unknown proposal", func(t *testing.T) {
		t.Parallel()
		service := newTestSchedulingService(newStubProposalStore(), &stubDirectory{authenticated: []string{"alice"}}, newStubGateway())
		_, err := service.ConfirmProposal(context.Background(), "missing", 0)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("already confirmed", func(t *testing.T) {
		t.Parallel()
		store := newStubProposalStore()
		service := newTestSchedulingService(store, &stubDirectory{authenticated: []string{"alice", "bob"}}, newStubGateway())
		proposal := scheduleTestProposal(t, service)
		if _, err := service.ConfirmProposal(context.Background(), proposal.ID, 0); err != nil {
			t.Fatalf("first confirm failed: %v", err)
		}
		_, err := service.ConfirmProposal(context.Background(), proposal.ID, 1)
		if !errors.Is(err, ErrAlreadyConfirmed) {
			t.Fatalf("expected ErrAlreadyConfirmed, got %v", err)
		}
	})

	t.Run("slot index out of range", func(t *testing.T) {
		t.Parallel()
		store := newStubProposalStore()
		service := newTestSchedulingService(store, &stubDirectory{authenticated: []string{"alice", "bob"}}, newStubGateway())
		proposal := scheduleTestProposal(t, service)
		for _, index := range []int{-1, len(proposal.CandidateSlots)} {
			if _, err := service.ConfirmProposal(context.Background(), proposal.ID, index); !errors.Is(err, ErrInvalidSlotIndex) {
				t.Errorf("index %d: expected ErrInvalidSlotIndex, got %v", index, err)
			}
		}
	})

	t.Run("store reports constraint violation", func(t *testing.T) {
		t.Parallel()
		store := newStubProposalStore()
		service := newTestSchedulingService(store, &stubDirectory{authenticated: []string{"alice", "bob"}}, newStubGateway())
		proposal := scheduleTestProposal(t, service)

		store.confirmErr = persistence.ErrConstraintViolation
		_, err := service.ConfirmProposal(context.Background(), proposal.ID, 0)
		if !errors.Is(err, ErrInvalidSlotIndex) {
			t.Fatalf("expected ErrInvalidSlotIndex, got %v", err)
		}
	})

	t.Run("organizer not authenticated", func(t *testing.T) {
		t.Parallel()
		store := newStubProposalStore()
		directory := &stubDirectory{authenticated: []string{"alice", "bob"}}
		service := newTestSchedulingService(store, directory, newStubGateway())
		proposal := scheduleTestProposal(t, service)

		directory.authenticated = []string{"bob"}
		_, err := service.ConfirmProposal(context.Background(), proposal.ID, 0)
		if !errors.Is(err, ErrOrganizerNotAuthenticated) {
			t.Fatalf("expected ErrOrganizerNotAuthenticated, got %v", err)
		}
	})
}

func TestConfirmProposal_ConcurrentSingleWinner(t *testing.T) {
	t.Parallel()

	store := newStubProposalStore()
	directory := &stubDirectory{authenticated: []string{"alice", "bob"}}
	gateway := newStubGateway()
	service := newTestSchedulingService(store, directory, gateway)
	proposal := scheduleTestProposal(t, service)

	const attempts = 16
	results := make(chan error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			_, err := service.ConfirmProposal(context.Background(), proposal.ID, index%len(proposal.CandidateSlots))
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	winners, losers := 0, 0
	for err := range results {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrAlreadyConfirmed):
			losers++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}
	if losers != attempts-1 {
		t.Errorf("losers = %d, want %d", losers, attempts-1)
	}
	if got := len(gateway.events); got != 1 {
		t.Errorf("created events = %d, want 1", got)
	}
}

func TestConfirmProposal_EventCreationFailureLeavesProposalRetryable(t *testing.T) {
	t.Parallel()

	store := newStubProposalStore()
	gateway := newStubGateway()
	gateway.createEventErr = errors.New("calendar provider down")
	service := newTestSchedulingService(store, &stubDirectory{authenticated: []string{"alice", "bob"}}, gateway)
	proposal := scheduleTestProposal(t, service)

	_, err := service.ConfirmProposal(context.Background(), proposal.ID, 0)
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}

	// A confirmation without a booked event must not stand.
	stored, err := service.GetProposal(context.Background(), proposal.ID)
	if err != nil {
		t.Fatalf("GetProposal failed: %v", err)
	}
	if stored.Status != StatusPending {
		t.Fatalf("status after failed confirm = %q, want %q", stored.Status, StatusPending)
	}
	if stored.ConfirmedSlotIndex != nil {
		t.Errorf("confirmed slot index = %v, want nil", stored.ConfirmedSlotIndex)
	}

	// Once the provider recovers, the same confirmation succeeds.
	gateway.mu.Lock()
	gateway.createEventErr = nil
	gateway.mu.Unlock()

	confirmation, err := service.ConfirmProposal(context.Background(), proposal.ID, 0)
	if err != nil {
		t.Fatalf("retry after provider recovery failed: %v", err)
	}
	if confirmation.Proposal.Status != StatusConfirmed {
		t.Errorf("status after retry = %q, want %q", confirmation.Proposal.Status, StatusConfirmed)
	}
	if got := len(gateway.events); got != 1 {
		t.Errorf("created events = %d, want 1", got)
	}
}

func TestConfirmProposal_EmailFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	store := newStubProposalStore()
	gateway := newStubGateway()
	gateway.sendErr = errors.New("smtp unavailable")
	service := newTestSchedulingService(store, &stubDirectory{authenticated: []string{"alice", "bob"}}, gateway)
	proposal := scheduleTestProposal(t, service)

	confirmation, err := service.ConfirmProposal(context.Background(), proposal.ID, 0)
	if err != nil {
		t.Fatalf("ConfirmProposal failed: %v", err)
	}
	if confirmation.EmailSent {
		t.Error("expected EmailSent=false when delivery fails")
	}
	if confirmation.Proposal.Status != StatusConfirmed {
		t.Error("email failure must not roll back the confirmation")
	}
}

func TestGetProposal(t *testing.T) {
	t.Parallel()

	store := newStubProposalStore()
	service := newTestSchedulingService(store, &stubDirectory{authenticated: []string{"alice", "bob"}}, newStubGateway())
	proposal := scheduleTestProposal(t, service)

	got, err := service.GetProposal(context.Background(), proposal.ID)
	if err != nil {
		t.Fatalf("GetProposal failed: %v", err)
	}
	if got.ID != proposal.ID || got.Title != proposal.Title {
		t.Errorf("got proposal %q/%q, want %q/%q", got.ID, got.Title, proposal.ID, proposal.Title)
	}

	if _, err := service.GetProposal(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCheckEmailResponses(t *testing.T) {
	t.Parallel()

	store := newStubProposalStore()
	gateway := newStubGateway()
	service := newTestSchedulingService(store, &stubDirectory{authenticated: []string{"alice", "bob"}}, gateway)
	proposal := scheduleTestProposal(t, service)

	received := schedulingBase.Add(2 * time.Hour)
	gateway.inbound = []InboundEmail{
		{From: "bob", Subject: "Re: Sprint Planning", Body: "Yes, works for me", ReceivedAt: received},
		{From: "alice", Subject: "Re: Sprint Planning", Body: "I must decline", ReceivedAt: received},
		{From: "mallory", Subject: "spam", Body: "yes yes yes", ReceivedAt: received},
	}

	responses, err := service.CheckEmailResponses(context.Background(), proposal.ID)
	if err != nil {
		t.Fatalf("CheckEmailResponses failed: %v", err)
	}
	if len(responses) != 2 {
		t.Fatalf("responses = %d, want 2 (non-participants filtered)", len(responses))
	}
	if responses[0].ParticipantID != "bob" || responses[0].Type != "confirmation" {
		t.Errorf("first response = %+v, want confirmation from bob", responses[0])
	}
	if responses[1].ParticipantID != "alice" || responses[1].Type != "rejection" {
		t.Errorf("second response = %+v, want rejection from alice", responses[1])
	}
	for _, response := range responses {
		if response.ProposalID != proposal.ID {
			t.Errorf("response carries proposal id %q, want %q", response.ProposalID, proposal.ID)
		}
	}
}

func TestCheckEmailResponses_GatewayFailure(t *testing.T) {
	t.Parallel()

	store := newStubProposalStore()
	gateway := newStubGateway()
	service := newTestSchedulingService(store, &stubDirectory{authenticated: []string{"alice", "bob"}}, gateway)
	proposal := scheduleTestProposal(t, service)

	gateway.recentErr = errors.New("imap unavailable")
	if _, err := service.CheckEmailResponses(context.Background(), proposal.ID); !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
}
