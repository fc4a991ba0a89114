package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/schedulai/internal/persistence"
)

func testProposal(id string, now time.Time) persistence.Proposal {
	return persistence.Proposal{
		ID:              id,
		Title:           "Quarterly planning",
		Description:     "Slides in the shared drive",
		DurationMinutes: 60,
		OrganizerID:     "alice@example.com",
		ParticipantIDs:  []string{"alice@example.com", "bob@example.com", "carol@example.com"},
		Priority:        "high",
		PreferredDays:   []string{"tuesday", "wednesday"},
		CandidateSlots: []persistence.CandidateSlot{
			{Start: now.Add(24 * time.Hour), End: now.Add(25 * time.Hour), Score: 165, Day: time.Tuesday},
			{Start: now.Add(48 * time.Hour), End: now.Add(49 * time.Hour), Score: 160, Day: time.Wednesday},
			{Start: now.Add(49 * time.Hour), End: now.Add(50 * time.Hour), Score: 160, Day: time.Wednesday},
		},
		Reasoning: "Found 3 common slots for 3 of 3 participants.",
		Status:    persistence.ProposalPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestProposalRepository_CreateAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewProposalRepository(newTestPool(t))

	now := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)
	proposal := testProposal("prop-1", now)

	if err := repo.CreateProposal(ctx, proposal); err != nil {
		t.Fatalf("CreateProposal failed: %v", err)
	}
	if err := repo.CreateProposal(ctx, proposal); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected persistence.ErrDuplicate, got %v", err)
	}

	fetched, err := repo.GetProposal(ctx, "prop-1")
	if err != nil {
		t.Fatalf("GetProposal failed: %v", err)
	}
	if fetched.Title != proposal.Title || fetched.Status != persistence.ProposalPending {
		t.Fatalf("unexpected proposal: %#v", fetched)
	}
	if len(fetched.ParticipantIDs) != 3 || fetched.ParticipantIDs[1] != "bob@example.com" {
		t.Fatalf("participant order not preserved: %#v", fetched.ParticipantIDs)
	}
	if len(fetched.CandidateSlots) != 3 {
		t.Fatalf("expected 3 slots, got %#v", fetched.CandidateSlots)
	}
	if !fetched.CandidateSlots[0].Start.Equal(proposal.CandidateSlots[0].Start) {
		t.Fatalf("slot order not preserved: %#v", fetched.CandidateSlots)
	}
	if fetched.CandidateSlots[0].Score != 165 || fetched.CandidateSlots[0].Day != time.Tuesday {
		t.Fatalf("slot fields lost in round trip: %#v", fetched.CandidateSlots[0])
	}
	if len(fetched.PreferredDays) != 2 || fetched.PreferredDays[0] != "tuesday" {
		t.Fatalf("unexpected preferred days: %#v", fetched.PreferredDays)
	}
	if fetched.ConfirmedSlotIndex != nil {
		t.Fatalf("pending proposal must have no confirmed index: %#v", fetched.ConfirmedSlotIndex)
	}

	if _, err := repo.GetProposal(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected persistence.ErrNotFound, got %v", err)
	}
}

func TestProposalRepository_Confirm(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewProposalRepository(newTestPool(t))

	now := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)
	if err := repo.CreateProposal(ctx, testProposal("prop-confirm", now)); err != nil {
		t.Fatalf("CreateProposal failed: %v", err)
	}

	confirmedAt := now.Add(time.Hour)
	confirmed, err := repo.ConfirmProposal(ctx, "prop-confirm", 2, confirmedAt)
	if err != nil {
		t.Fatalf("ConfirmProposal failed: %v", err)
	}
	if confirmed.Status != persistence.ProposalConfirmed {
		t.Fatalf("expected confirmed status, got %s", confirmed.Status)
	}
	if confirmed.ConfirmedSlotIndex == nil || *confirmed.ConfirmedSlotIndex != 2 {
		t.Fatalf("unexpected confirmed index: %#v", confirmed.ConfirmedSlotIndex)
	}
	if !confirmed.UpdatedAt.Equal(confirmedAt) {
		t.Fatalf("expected UpdatedAt %v, got %v", confirmedAt, confirmed.UpdatedAt)
	}

	if _, err := repo.ConfirmProposal(ctx, "prop-confirm", 0, confirmedAt); !errors.Is(err, persistence.ErrNotPending) {
		t.Fatalf("expected persistence.ErrNotPending, got %v", err)
	}
	if _, err := repo.ConfirmProposal(ctx, "missing", 0, confirmedAt); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected persistence.ErrNotFound, got %v", err)
	}
}

func TestProposalRepository_Reopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewProposalRepository(newTestPool(t))

	now := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)
	if err := repo.CreateProposal(ctx, testProposal("prop-reopen", now)); err != nil {
		t.Fatalf("CreateProposal failed: %v", err)
	}

	if _, err := repo.ReopenProposal(ctx, "prop-reopen", now); !errors.Is(err, persistence.ErrNotConfirmed) {
		t.Fatalf("expected persistence.ErrNotConfirmed, got %v", err)
	}

	if _, err := repo.ConfirmProposal(ctx, "prop-reopen", 1, now.Add(time.Hour)); err != nil {
		t.Fatalf("ConfirmProposal failed: %v", err)
	}

	reopenedAt := now.Add(2 * time.Hour)
	reopened, err := repo.ReopenProposal(ctx, "prop-reopen", reopenedAt)
	if err != nil {
		t.Fatalf("ReopenProposal failed: %v", err)
	}
	if reopened.Status != persistence.ProposalPending || reopened.ConfirmedSlotIndex != nil {
		t.Fatalf("reopen must restore the pending shape: %#v", reopened)
	}
	if !reopened.UpdatedAt.Equal(reopenedAt) {
		t.Fatalf("expected UpdatedAt %v, got %v", reopenedAt, reopened.UpdatedAt)
	}

	// A reopened proposal accepts a fresh confirmation.
	if _, err := repo.ConfirmProposal(ctx, "prop-reopen", 0, now.Add(3*time.Hour)); err != nil {
		t.Fatalf("confirm after reopen failed: %v", err)
	}

	if _, err := repo.ReopenProposal(ctx, "missing", now); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected persistence.ErrNotFound, got %v", err)
	}
}

func TestProposalRepository_ConfirmRejectsOutOfRangeIndex(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewProposalRepository(newTestPool(t))

	now := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)
	if err := repo.CreateProposal(ctx, testProposal("prop-range", now)); err != nil {
		t.Fatalf("CreateProposal failed: %v", err)
	}

	if _, err := repo.ConfirmProposal(ctx, "prop-range", 3, now); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected persistence.ErrConstraintViolation, got %v", err)
	}
	if _, err := repo.ConfirmProposal(ctx, "prop-range", -1, now); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected persistence.ErrConstraintViolation, got %v", err)
	}

	fetched, err := repo.GetProposal(ctx, "prop-range")
	if err != nil {
		t.Fatalf("GetProposal failed: %v", err)
	}
	if fetched.Status != persistence.ProposalPending || fetched.ConfirmedSlotIndex != nil {
		t.Fatalf("failed confirm must leave the proposal untouched: %#v", fetched)
	}
}

func TestProposalRepository_ConcurrentConfirmHasOneWinner(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewProposalRepository(newTestPool(t))

	now := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)
	if err := repo.CreateProposal(ctx, testProposal("prop-race", now)); err != nil {
		t.Fatalf("CreateProposal failed: %v", err)
	}

	const attempts = 8
	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, results[n] = repo.ConfirmProposal(ctx, "prop-race", n%3, now)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, persistence.ErrNotPending):
		default:
			t.Fatalf("unexpected error under contention: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one successful confirm, got %d", winners)
	}
}
