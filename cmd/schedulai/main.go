package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/schedulai/internal/application"
	"github.com/example/schedulai/internal/config"
	"github.com/example/schedulai/internal/gateway"
	httptransport "github.com/example/schedulai/internal/http"
	"github.com/example/schedulai/internal/persistence"
	"github.com/example/schedulai/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := sqlite.Migrate(context.Background(), pool); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }
	now := time.Now

	proposalRepo := sqlite.NewProposalRepository(pool)
	participantRepo := sqlite.NewParticipantRepository(pool)
	calendarRepo := sqlite.NewCalendarRepository(pool)

	calendarGateway := gateway.NewStoreGateway(calendarRepo, idGenerator, now, logger)
	proposalStore := newProposalStoreAdapter(proposalRepo)
	participantStore := newParticipantStoreAdapter(participantRepo)

	directoryService := application.NewDirectoryServiceWithLogger(participantStore, tokenGenerator, now, logger)
	schedulingService := application.NewSchedulingServiceWithLogger(proposalStore, directoryService, calendarGateway, cfg.GatewayTimeout, idGenerator, now, logger)

	defaults := application.Preferences{
		WorkStartHour:  cfg.WorkStartHour,
		WorkEndHour:    cfg.WorkEndHour,
		HorizonDays:    cfg.HorizonDays,
		MaxSuggestions: cfg.MaxSuggestions,
	}

	schedulingHandler := httptransport.NewSchedulingHandler(schedulingService, defaults, logger)
	participantHandler := httptransport.NewParticipantHandler(directoryService, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Scheduling:   schedulingHandler,
		Participants: participantHandler,
		Auth:         httptransport.RequireToken(directoryService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("scheduling API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

type proposalStoreAdapter struct {
	repo persistence.ProposalRepository
}

func newProposalStoreAdapter(repo persistence.ProposalRepository) *proposalStoreAdapter {
	return &proposalStoreAdapter{repo: repo}
}

func (a *proposalStoreAdapter) CreateProposal(ctx context.Context, proposal application.Proposal) (application.Proposal, error) {
	if err := a.repo.CreateProposal(ctx, toPersistenceProposal(proposal)); err != nil {
		return application.Proposal{}, err
	}
	stored, err := a.repo.GetProposal(ctx, proposal.ID)
	if err != nil {
		return application.Proposal{}, err
	}
	return toApplicationProposal(stored), nil
}

func (a *proposalStoreAdapter) GetProposal(ctx context.Context, id string) (application.Proposal, error) {
	stored, err := a.repo.GetProposal(ctx, id)
	if err != nil {
		return application.Proposal{}, err
	}
	return toApplicationProposal(stored), nil
}

func (a *proposalStoreAdapter) ConfirmProposal(ctx context.Context, id string, slotIndex int, confirmedAt time.Time) (application.Proposal, error) {
	stored, err := a.repo.ConfirmProposal(ctx, id, slotIndex, confirmedAt)
	if err != nil {
		return application.Proposal{}, err
	}
	return toApplicationProposal(stored), nil
}

func (a *proposalStoreAdapter) ReopenProposal(ctx context.Context, id string, updatedAt time.Time) (application.Proposal, error) {
	stored, err := a.repo.ReopenProposal(ctx, id, updatedAt)
	if err != nil {
		return application.Proposal{}, err
	}
	return toApplicationProposal(stored), nil
}

type participantStoreAdapter struct {
	repo persistence.ParticipantRepository
}

func newParticipantStoreAdapter(repo persistence.ParticipantRepository) *participantStoreAdapter {
	return &participantStoreAdapter{repo: repo}
}

func (a *participantStoreAdapter) CreateParticipant(ctx context.Context, record application.ParticipantRecord) (application.Participant, error) {
	if err := a.repo.CreateParticipant(ctx, toPersistenceParticipant(record)); err != nil {
		return application.Participant{}, err
	}
	stored, err := a.repo.GetParticipant(ctx, record.Participant.ID)
	if err != nil {
		return application.Participant{}, err
	}
	return toApplicationRecord(stored).Participant, nil
}

func (a *participantStoreAdapter) GetParticipant(ctx context.Context, id string) (application.ParticipantRecord, error) {
	stored, err := a.repo.GetParticipant(ctx, id)
	if err != nil {
		return application.ParticipantRecord{}, err
	}
	return toApplicationRecord(stored), nil
}

func (a *participantStoreAdapter) ListParticipants(ctx context.Context) ([]application.ParticipantRecord, error) {
	models, err := a.repo.ListParticipants(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	records := make([]application.ParticipantRecord, 0, len(models))
	for _, model := range models {
		records = append(records, toApplicationRecord(model))
	}
	return records, nil
}

func (a *participantStoreAdapter) DeleteParticipant(ctx context.Context, id string) error {
	return a.repo.DeleteParticipant(ctx, id)
}

func toPersistenceProposal(proposal application.Proposal) persistence.Proposal {
	return persistence.Proposal{
		ID:                 proposal.ID,
		Title:              proposal.Title,
		Description:        proposal.Description,
		DurationMinutes:    proposal.DurationMinutes,
		OrganizerID:        proposal.OrganizerID,
		ParticipantIDs:     append([]string(nil), proposal.ParticipantIDs...),
		Priority:           string(proposal.Priority),
		PreferredDays:      append([]string(nil), proposal.PreferredDays...),
		CandidateSlots:     toPersistenceSlots(proposal.CandidateSlots),
		Reasoning:          proposal.Reasoning,
		Status:             persistence.ProposalStatus(proposal.Status),
		ConfirmedSlotIndex: cloneInt(proposal.ConfirmedSlotIndex),
		CreatedAt:          proposal.CreatedAt,
		UpdatedAt:          proposal.UpdatedAt,
	}
}

func toApplicationProposal(model persistence.Proposal) application.Proposal {
	return application.Proposal{
		ID:                 model.ID,
		Title:              model.Title,
		Description:        model.Description,
		DurationMinutes:    model.DurationMinutes,
		OrganizerID:        model.OrganizerID,
		ParticipantIDs:     append([]string(nil), model.ParticipantIDs...),
		Priority:           application.Priority(model.Priority),
		PreferredDays:      append([]string(nil), model.PreferredDays...),
		CandidateSlots:     toApplicationSlots(model.CandidateSlots),
		Reasoning:          model.Reasoning,
		Status:             application.ProposalStatus(model.Status),
		ConfirmedSlotIndex: cloneInt(model.ConfirmedSlotIndex),
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
	}
}

func toPersistenceSlots(slots []application.CandidateSlot) []persistence.CandidateSlot {
	if len(slots) == 0 {
		return nil
	}
	out := make([]persistence.CandidateSlot, 0, len(slots))
	for _, slot := range slots {
		out = append(out, persistence.CandidateSlot{Start: slot.Start, End: slot.End, Score: slot.Score, Day: slot.Day})
	}
	return out
}

func toApplicationSlots(slots []persistence.CandidateSlot) []application.CandidateSlot {
	if len(slots) == 0 {
		return nil
	}
	out := make([]application.CandidateSlot, 0, len(slots))
	for _, slot := range slots {
		out = append(out, application.CandidateSlot{Start: slot.Start, End: slot.End, Score: slot.Score, Day: slot.Day})
	}
	return out
}

func toPersistenceParticipant(record application.ParticipantRecord) persistence.Participant {
	return persistence.Participant{
		ID:              record.Participant.ID,
		DisplayName:     record.Participant.DisplayName,
		AccessTokenHash: record.TokenHash,
		CreatedAt:       record.Participant.CreatedAt,
		UpdatedAt:       record.Participant.UpdatedAt,
	}
}

func toApplicationRecord(model persistence.Participant) application.ParticipantRecord {
	return application.ParticipantRecord{
		Participant: application.Participant{
			ID:            model.ID,
			DisplayName:   model.DisplayName,
			Authenticated: model.AccessTokenHash != "",
			CreatedAt:     model.CreatedAt,
			UpdatedAt:     model.UpdatedAt,
		},
		TokenHash: model.AccessTokenHash,
	}
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
