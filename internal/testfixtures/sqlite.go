package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/schedulai/internal/persistence"
	"github.com/example/schedulai/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Proposals    persistence.ProposalRepository
	Participants persistence.ParticipantRepository
	Calendar     persistence.CalendarRepository

	pool    *sqlite.ConnectionPool
	cleanup func()
}

// Pool exposes the underlying connection pool for schema assertions.
func (h *SQLiteHarness) Pool() *sqlite.ConnectionPool {
	if h == nil {
		return nil
	}
	return h.pool
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a migrated harness on a temporary file. A
// cleanup callback is registered with the provided testing.TB, so calling
// Close is optional.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "schedulai.db")
	pool, err := sqlite.NewConnectionPool(path)
	if err != nil {
		tb.Fatalf("failed to open sqlite pool: %v", err)
	}

	if err := sqlite.Migrate(context.Background(), pool); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate sqlite schema: %v", err)
	}

	harness := &SQLiteHarness{
		Proposals:    sqlite.NewProposalRepository(pool),
		Participants: sqlite.NewParticipantRepository(pool),
		Calendar:     sqlite.NewCalendarRepository(pool),
		pool:         pool,
		cleanup: func() {
			_ = pool.Close()
		},
	}
	tb.Cleanup(harness.Close)
	return harness
}
