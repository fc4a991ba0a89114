package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/schedulai/internal/persistence"
)

// ParticipantRecord pairs a directory entry with its stored token hash.
type ParticipantRecord struct {
	Participant Participant
	TokenHash   string
}

// ParticipantStore captures the persistence interactions needed by the
// directory service.
type ParticipantStore interface {
	CreateParticipant(ctx context.Context, record ParticipantRecord) (Participant, error)
	GetParticipant(ctx context.Context, id string) (ParticipantRecord, error)
	ListParticipants(ctx context.Context) ([]ParticipantRecord, error)
	DeleteParticipant(ctx context.Context, id string) error
}

// RegisterParticipantInput captures caller provided directory fields.
type RegisterParticipantInput struct {
	ID          string
	DisplayName string
	// Authenticated requests credential issuance: the directory generates an
	// access token, stores its hash, and returns the plaintext once.
	Authenticated bool
}

// DirectoryService manages the participant directory and answers the
// authentication questions the scheduling engine asks.
type DirectoryService struct {
	participants   ParticipantStore
	tokenGenerator func() string
	hashParams     Argon2idParams
	now            func() time.Time
	logger         *slog.Logger
	authCache      *authSetCache
}

// NewDirectoryService wires dependencies for directory operations.
func NewDirectoryService(participants ParticipantStore, tokenGenerator func() string, now func() time.Time) *DirectoryService {
	return NewDirectoryServiceWithLogger(participants, tokenGenerator, now, nil)
}

// NewDirectoryServiceWithLogger wires dependencies for directory operations
// with an explicit logger.
func NewDirectoryServiceWithLogger(participants ParticipantStore, tokenGenerator func() string, now func() time.Time, logger *slog.Logger) *DirectoryService {
	if tokenGenerator == nil {
		tokenGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &DirectoryService{
		participants:   participants,
		tokenGenerator: tokenGenerator,
		hashParams:     DefaultArgon2idParams,
		now:            now,
		logger:         defaultLogger(logger),
		authCache:      newAuthSetCache(30*time.Second, now),
	}
}

// RegisterParticipant adds a directory entry. For authenticated participants
// the plaintext access token is returned exactly once; only its hash is
// stored.
func (s *DirectoryService) RegisterParticipant(ctx context.Context, input RegisterParticipantInput) (Participant, string, error) {
	if s == nil {
		return Participant{}, "", fmt.Errorf("DirectoryService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "directory", "register_participant", "participant_id", input.ID)

	vErr := &ValidationError{}
	if strings.TrimSpace(input.ID) == "" {
		vErr.add("id", "participant id is required")
	}
	if vErr.HasErrors() {
		return Participant{}, "", vErr
	}

	var token, tokenHash string
	if input.Authenticated {
		token = s.tokenGenerator()
		if token == "" {
			return Participant{}, "", fmt.Errorf("token generator returned empty token")
		}
		hash, err := CreateTokenHash(token, s.hashParams)
		if err != nil {
			return Participant{}, "", fmt.Errorf("hash access token: %w", err)
		}
		tokenHash = hash
	}

	createdAt := s.now()
	record := ParticipantRecord{
		Participant: Participant{
			ID:            strings.TrimSpace(input.ID),
			DisplayName:   strings.TrimSpace(input.DisplayName),
			Authenticated: input.Authenticated,
			CreatedAt:     createdAt,
			UpdatedAt:     createdAt,
		},
		TokenHash: tokenHash,
	}

	stored, err := s.participants.CreateParticipant(ctx, record)
	if err != nil {
		mapped := mapDirectoryRepoError(err)
		logger.Error("failed to register participant", "error", mapped, "error_kind", ErrorKind(mapped))
		return Participant{}, "", mapped
	}

	logger.Info("participant registered", "authenticated", stored.Authenticated)
	s.authCache.Invalidate()
	return stored, token, nil
}

// RemoveParticipant deletes a directory entry.
func (s *DirectoryService) RemoveParticipant(ctx context.Context, id string) error {
	if s == nil {
		return fmt.Errorf("DirectoryService is nil")
	}

	if err := s.participants.DeleteParticipant(ctx, id); err != nil {
		return mapDirectoryRepoError(err)
	}
	s.authCache.Invalidate()
	return nil
}

// GetParticipant retrieves a directory entry.
func (s *DirectoryService) GetParticipant(ctx context.Context, id string) (Participant, error) {
	if s == nil {
		return Participant{}, fmt.Errorf("DirectoryService is nil")
	}

	record, err := s.participants.GetParticipant(ctx, id)
	if err != nil {
		return Participant{}, mapDirectoryRepoError(err)
	}
	return record.Participant, nil
}

// ListParticipants enumerates the directory.
func (s *DirectoryService) ListParticipants(ctx context.Context) ([]Participant, error) {
	if s == nil {
		return nil, fmt.Errorf("DirectoryService is nil")
	}

	records, err := s.participants.ListParticipants(ctx)
	if err != nil {
		return nil, mapDirectoryRepoError(err)
	}
	participants := make([]Participant, 0, len(records))
	for _, record := range records {
		participants = append(participants, record.Participant)
	}
	return participants, nil
}

// AuthenticatedParticipants returns the IDs of participants whose calendars
// are queryable. Results are cached briefly; registration and removal
// invalidate the cache.
func (s *DirectoryService) AuthenticatedParticipants(ctx context.Context) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("DirectoryService is nil")
	}

	if cached, ok := s.authCache.Get(); ok {
		return cached, nil
	}

	records, err := s.participants.ListParticipants(ctx)
	if err != nil {
		return nil, mapDirectoryRepoError(err)
	}

	ids := make([]string, 0, len(records))
	for _, record := range records {
		if record.TokenHash != "" {
			ids = append(ids, record.Participant.ID)
		}
	}

	s.authCache.Store(ids)
	return ids, nil
}

// IsAuthenticated reports whether the participant holds stored credentials.
func (s *DirectoryService) IsAuthenticated(ctx context.Context, id string) (bool, error) {
	ids, err := s.AuthenticatedParticipants(ctx)
	if err != nil {
		return false, err
	}
	for _, authenticated := range ids {
		if authenticated == id {
			return true, nil
		}
	}
	return false, nil
}

// VerifyToken checks a presented access token against the participant's
// stored hash.
func (s *DirectoryService) VerifyToken(ctx context.Context, id, token string) error {
	if s == nil {
		return fmt.Errorf("DirectoryService is nil")
	}

	record, err := s.participants.GetParticipant(ctx, id)
	if err != nil {
		return mapDirectoryRepoError(err)
	}
	if record.TokenHash == "" {
		return ErrInvalidToken
	}
	return VerifyTokenHash(record.TokenHash, token)
}

func mapDirectoryRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("participant", "participant record is invalid")
		return vErr
	}
	return err
}
