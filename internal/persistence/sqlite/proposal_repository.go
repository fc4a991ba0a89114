package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/schedulai/internal/persistence"
)

// ProposalRepository implements persistence.ProposalRepository using SQLite.
type ProposalRepository struct {
	pool *ConnectionPool
}

// NewProposalRepository creates a new SQLite proposal repository.
func NewProposalRepository(pool *ConnectionPool) *ProposalRepository {
	return &ProposalRepository{pool: pool}
}

// CreateProposal inserts a proposal with its candidate slots and participant
// list in a single transaction.
func (r *ProposalRepository) CreateProposal(ctx context.Context, proposal persistence.Proposal) error {
	if proposal.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO proposals (id, title, description, duration_minutes, organizer_id, priority, preferred_days, reasoning, status, confirmed_slot_index, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`

		var confirmedIndex sql.NullInt64
		if proposal.ConfirmedSlotIndex != nil {
			confirmedIndex.Int64 = int64(*proposal.ConfirmedSlotIndex)
			confirmedIndex.Valid = true
		}

		_, err := tx.Exec(query,
			proposal.ID,
			proposal.Title,
			proposal.Description,
			proposal.DurationMinutes,
			proposal.OrganizerID,
			proposal.Priority,
			strings.Join(proposal.PreferredDays, ","),
			proposal.Reasoning,
			string(proposal.Status),
			confirmedIndex,
			proposal.CreatedAt.UTC().Format(time.RFC3339Nano),
			proposal.UpdatedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return mapError(err)
		}

		for position, participantID := range proposal.ParticipantIDs {
			_, err := tx.Exec(
				"INSERT INTO proposal_participants (proposal_id, position, participant_id) VALUES (?, ?, ?)",
				proposal.ID, position, participantID)
			if err != nil {
				return mapError(err)
			}
		}

		for position, slot := range proposal.CandidateSlots {
			_, err := tx.Exec(
				"INSERT INTO proposal_slots (proposal_id, position, start_time, end_time, score, weekday) VALUES (?, ?, ?, ?, ?, ?)",
				proposal.ID,
				position,
				slot.Start.UTC().Format(time.RFC3339Nano),
				slot.End.UTC().Format(time.RFC3339Nano),
				slot.Score,
				int(slot.Day))
			if err != nil {
				return mapError(err)
			}
		}

		return nil
	})
}

// GetProposal retrieves a proposal with its slots and participant list.
func (r *ProposalRepository) GetProposal(ctx context.Context, id string) (persistence.Proposal, error) {
	if id == "" {
		return persistence.Proposal{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, title, description, duration_minutes, organizer_id, priority, preferred_days, reasoning, status, confirmed_slot_index, created_at, updated_at
		FROM proposals
		WHERE id = ?
	`

	proposal, err := scanProposal(r.pool.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return persistence.Proposal{}, err
	}

	participants, err := r.loadParticipants(ctx, id)
	if err != nil {
		return persistence.Proposal{}, err
	}
	proposal.ParticipantIDs = participants

	slots, err := r.loadSlots(ctx, id)
	if err != nil {
		return persistence.Proposal{}, err
	}
	proposal.CandidateSlots = slots

	return proposal, nil
}

// ConfirmProposal transitions a pending proposal to confirmed. The update is
// guarded on the current status so concurrent confirmations produce exactly
// one winner; losers observe ErrNotPending.
func (r *ProposalRepository) ConfirmProposal(ctx context.Context, id string, slotIndex int, confirmedAt time.Time) (persistence.Proposal, error) {
	if id == "" {
		return persistence.Proposal{}, persistence.ErrNotFound
	}

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var slotCount int
		if err := tx.QueryRow("SELECT COUNT(*) FROM proposal_slots WHERE proposal_id = ?", id).Scan(&slotCount); err != nil {
			return mapError(err)
		}
		if slotIndex < 0 || slotIndex >= slotCount {
			return persistence.ErrConstraintViolation
		}

		result, err := tx.Exec(`
			UPDATE proposals
			SET status = ?, confirmed_slot_index = ?, updated_at = ?
			WHERE id = ? AND status = ?
		`,
			string(persistence.ProposalConfirmed),
			slotIndex,
			confirmedAt.UTC().Format(time.RFC3339Nano),
			id,
			string(persistence.ProposalPending),
		)
		if err != nil {
			return mapError(err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: rows affected: %w", err)
		}
		if affected == 0 {
			var status string
			err := tx.QueryRow("SELECT status FROM proposals WHERE id = ?", id).Scan(&status)
			if err == sql.ErrNoRows {
				return persistence.ErrNotFound
			}
			if err != nil {
				return mapError(err)
			}
			return persistence.ErrNotPending
		}

		return nil
	})
	if err != nil {
		return persistence.Proposal{}, err
	}

	return r.GetProposal(ctx, id)
}

// ReopenProposal transitions a confirmed proposal back to pending and clears
// the selected slot index. The update is guarded on the confirmed status so a
// proposal in any other state is left untouched.
func (r *ProposalRepository) ReopenProposal(ctx context.Context, id string, updatedAt time.Time) (persistence.Proposal, error) {
	if id == "" {
		return persistence.Proposal{}, persistence.ErrNotFound
	}

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			UPDATE proposals
			SET status = ?, confirmed_slot_index = NULL, updated_at = ?
			WHERE id = ? AND status = ?
		`,
			string(persistence.ProposalPending),
			updatedAt.UTC().Format(time.RFC3339Nano),
			id,
			string(persistence.ProposalConfirmed),
		)
		if err != nil {
			return mapError(err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: rows affected: %w", err)
		}
		if affected == 0 {
			var status string
			err := tx.QueryRow("SELECT status FROM proposals WHERE id = ?", id).Scan(&status)
			if err == sql.ErrNoRows {
				return persistence.ErrNotFound
			}
			if err != nil {
				return mapError(err)
			}
			return persistence.ErrNotConfirmed
		}

		return nil
	})
	if err != nil {
		return persistence.Proposal{}, err
	}

	return r.GetProposal(ctx, id)
}

func (r *ProposalRepository) loadParticipants(ctx context.Context, proposalID string) ([]string, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		"SELECT participant_id FROM proposal_participants WHERE proposal_id = ? ORDER BY position ASC",
		proposalID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var participants []string
	for rows.Next() {
		var participantID string
		if err := rows.Scan(&participantID); err != nil {
			return nil, mapError(err)
		}
		participants = append(participants, participantID)
	}

	return participants, mapError(rows.Err())
}

func (r *ProposalRepository) loadSlots(ctx context.Context, proposalID string) ([]persistence.CandidateSlot, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		"SELECT start_time, end_time, score, weekday FROM proposal_slots WHERE proposal_id = ? ORDER BY position ASC",
		proposalID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var slots []persistence.CandidateSlot
	for rows.Next() {
		var slot persistence.CandidateSlot
		var startStr, endStr string
		var weekday int
		if err := rows.Scan(&startStr, &endStr, &slot.Score, &weekday); err != nil {
			return nil, mapError(err)
		}
		if slot.Start, err = time.Parse(time.RFC3339Nano, startStr); err != nil {
			return nil, fmt.Errorf("sqlite: parse slot start_time: %w", err)
		}
		if slot.End, err = time.Parse(time.RFC3339Nano, endStr); err != nil {
			return nil, fmt.Errorf("sqlite: parse slot end_time: %w", err)
		}
		slot.Day = time.Weekday(weekday)
		slots = append(slots, slot)
	}

	return slots, mapError(rows.Err())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProposal(row rowScanner) (persistence.Proposal, error) {
	var proposal persistence.Proposal
	var preferredDays, status, createdAtStr, updatedAtStr string
	var confirmedIndex sql.NullInt64

	err := row.Scan(
		&proposal.ID,
		&proposal.Title,
		&proposal.Description,
		&proposal.DurationMinutes,
		&proposal.OrganizerID,
		&proposal.Priority,
		&preferredDays,
		&proposal.Reasoning,
		&status,
		&confirmedIndex,
		&createdAtStr,
		&updatedAtStr,
	)
	if err == sql.ErrNoRows {
		return persistence.Proposal{}, persistence.ErrNotFound
	}
	if err != nil {
		return persistence.Proposal{}, mapError(err)
	}

	proposal.Status = persistence.ProposalStatus(status)
	if preferredDays != "" {
		proposal.PreferredDays = strings.Split(preferredDays, ",")
	}
	if confirmedIndex.Valid {
		index := int(confirmedIndex.Int64)
		proposal.ConfirmedSlotIndex = &index
	}
	if proposal.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr); err != nil {
		return persistence.Proposal{}, fmt.Errorf("sqlite: parse created_at: %w", err)
	}
	if proposal.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAtStr); err != nil {
		return persistence.Proposal{}, fmt.Errorf("sqlite: parse updated_at: %w", err)
	}

	return proposal, nil
}
