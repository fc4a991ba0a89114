package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/schedulai/internal/persistence"
)

// ParticipantRepository implements persistence.ParticipantRepository using
// SQLite.
type ParticipantRepository struct {
	pool *ConnectionPool
}

// NewParticipantRepository creates a new SQLite participant repository.
func NewParticipantRepository(pool *ConnectionPool) *ParticipantRepository {
	return &ParticipantRepository{pool: pool}
}

// CreateParticipant inserts a directory entry.
func (r *ParticipantRepository) CreateParticipant(ctx context.Context, participant persistence.Participant) error {
	if participant.ID == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO participants (id, display_name, access_token_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		participant.ID,
		participant.DisplayName,
		participant.AccessTokenHash,
		participant.CreatedAt.UTC().Format(time.RFC3339Nano),
		participant.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	return mapError(err)
}

// GetParticipant retrieves a directory entry by ID.
func (r *ParticipantRepository) GetParticipant(ctx context.Context, id string) (persistence.Participant, error) {
	row := r.pool.db.QueryRowContext(ctx, `
		SELECT id, display_name, access_token_hash, created_at, updated_at
		FROM participants
		WHERE id = ?
	`, id)

	return scanParticipant(row)
}

// ListParticipants returns all directory entries ordered by ID.
func (r *ParticipantRepository) ListParticipants(ctx context.Context) ([]persistence.Participant, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, display_name, access_token_hash, created_at, updated_at
		FROM participants
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var participants []persistence.Participant
	for rows.Next() {
		participant, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, participant)
	}

	return participants, mapError(rows.Err())
}

// DeleteParticipant removes a directory entry and its busy intervals.
func (r *ParticipantRepository) DeleteParticipant(ctx context.Context, id string) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM busy_intervals WHERE participant_id = ?", id); err != nil {
			return mapError(err)
		}

		result, err := tx.Exec("DELETE FROM participants WHERE id = ?", id)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
}

func scanParticipant(row rowScanner) (persistence.Participant, error) {
	var participant persistence.Participant
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&participant.ID,
		&participant.DisplayName,
		&participant.AccessTokenHash,
		&createdAtStr,
		&updatedAtStr,
	)
	if err == sql.ErrNoRows {
		return persistence.Participant{}, persistence.ErrNotFound
	}
	if err != nil {
		return persistence.Participant{}, mapError(err)
	}

	if participant.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr); err != nil {
		return persistence.Participant{}, fmt.Errorf("sqlite: parse created_at: %w", err)
	}
	if participant.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAtStr); err != nil {
		return persistence.Participant{}, fmt.Errorf("sqlite: parse updated_at: %w", err)
	}

	return participant, nil
}
