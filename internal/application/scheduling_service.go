package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/schedulai/internal/access"
	"github.com/example/schedulai/internal/availability"
	"github.com/example/schedulai/internal/mailparse"
	"github.com/example/schedulai/internal/persistence"
	"github.com/example/schedulai/internal/slots"
)

// ProposalStore captures the persistence interactions needed by the service.
type ProposalStore interface {
	CreateProposal(ctx context.Context, proposal Proposal) (Proposal, error)
	GetProposal(ctx context.Context, id string) (Proposal, error)
	ConfirmProposal(ctx context.Context, id string, slotIndex int, confirmedAt time.Time) (Proposal, error)
	ReopenProposal(ctx context.Context, id string, updatedAt time.Time) (Proposal, error)
}

// AuthenticationDirectory answers which participants hold stored credentials.
type AuthenticationDirectory interface {
	AuthenticatedParticipants(ctx context.Context) ([]string, error)
	IsAuthenticated(ctx context.Context, id string) (bool, error)
}

// DefaultPreferences are applied wherever a request leaves a preference
// unset.
var DefaultPreferences = Preferences{
	WorkStartHour:  9,
	WorkEndHour:    17,
	HorizonDays:    7,
	MaxSuggestions: slots.DefaultMaxSuggestions,
}

// SchedulingService orchestrates access classification, availability
// aggregation, slot intersection and scoring, and the proposal lifecycle.
type SchedulingService struct {
	proposals    ProposalStore
	directory    AuthenticationDirectory
	gateway      CalendarGateway
	defaults     Preferences
	fetchTimeout time.Duration
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewSchedulingService wires dependencies for scheduling operations with the
// default per-participant fetch timeout.
func NewSchedulingService(proposals ProposalStore, directory AuthenticationDirectory, gateway CalendarGateway, idGenerator func() string, now func() time.Time) *SchedulingService {
	return NewSchedulingServiceWithLogger(proposals, directory, gateway, 0, idGenerator, now, nil)
}

// NewSchedulingServiceWithLogger wires dependencies for scheduling
// operations with an explicit logger. fetchTimeout bounds each
// per-participant calendar fetch; zero selects the default.
func NewSchedulingServiceWithLogger(proposals ProposalStore, directory AuthenticationDirectory, gateway CalendarGateway, fetchTimeout time.Duration, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SchedulingService {
	if fetchTimeout <= 0 {
		fetchTimeout = availability.DefaultFetchTimeout
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &SchedulingService{
		proposals:    proposals,
		directory:    directory,
		gateway:      gateway,
		defaults:     DefaultPreferences,
		fetchTimeout: fetchTimeout,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

// ScheduleMeeting finds common availability for the requested participants
// and, when candidate slots exist, persists a pending proposal. A request
// for which no common slot exists succeeds with a nil Proposal and an
// explanatory Reasoning; it is not an error.
func (s *SchedulingService) ScheduleMeeting(ctx context.Context, input MeetingInput, prefs Preferences) (ScheduleOutcome, error) {
	if s == nil {
		return ScheduleOutcome{}, fmt.Errorf("SchedulingService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "scheduling", "schedule_meeting", "organizer_id", input.OrganizerID)

	input.Priority = normalizePriority(input.Priority)
	prefs = s.fillPreferences(prefs)

	if vErr := validateMeetingInput(input, prefs); vErr.HasErrors() {
		logger.Warn("meeting request rejected", "error_kind", "validation", "fields", len(vErr.FieldErrors))
		return ScheduleOutcome{}, vErr
	}

	requested := requestedParticipants(input)
	duration := time.Duration(input.DurationMinutes) * time.Minute
	horizonStart := s.now()
	horizonEnd := horizonStart.AddDate(0, 0, prefs.HorizonDays)

	authenticated, err := s.directory.AuthenticatedParticipants(ctx)
	if err != nil {
		return ScheduleOutcome{}, fmt.Errorf("list authenticated participants: %w", err)
	}
	report := access.Classify(requested, authenticated)

	aggregator := availability.NewAggregator(s.gateway, s.fetchTimeout)
	parts, fetchWarnings, err := aggregator.Collect(ctx, requested, report, horizonStart, horizonEnd, duration)
	if err != nil {
		return ScheduleOutcome{}, err
	}
	warnings := toAvailabilityWarnings(fetchWarnings)

	// Accessible participants exist but every calendar fetch failed: the
	// batch produced no usable data.
	if len(report.Accessible) > 0 && usableParticipants(parts) == 0 {
		logger.Error("all availability fetches failed", "accessible", len(report.Accessible))
		return ScheduleOutcome{}, fmt.Errorf("%w: no participant produced availability data", ErrGatewayUnavailable)
	}

	candidates, err := slots.Intersect(parts, duration, prefs.WorkStartHour, prefs.WorkEndHour)
	if err != nil {
		if errors.Is(err, slots.ErrNoAuthenticatedParticipants) {
			logger.Info("no authenticated participants among requested", "requested", len(requested))
			return ScheduleOutcome{
				Reasoning:          noAvailabilityReasoning(input, report),
				DeniedParticipants: report.Denied,
				Warnings:           warnings,
			}, nil
		}
		return ScheduleOutcome{}, err
	}

	ranked, err := slots.Rank(candidates, toSlotsPriority(input.Priority), prefs.WorkStartHour, prefs.WorkEndHour, prefs.MaxSuggestions)
	if err != nil {
		if errors.Is(err, slots.ErrNoCandidateSlots) {
			logger.Info("no common availability", "requested", len(requested), "accessible", len(report.Accessible))
			return ScheduleOutcome{
				Reasoning:          noAvailabilityReasoning(input, report),
				DeniedParticipants: report.Denied,
				Warnings:           warnings,
			}, nil
		}
		return ScheduleOutcome{}, err
	}

	createdAt := s.now()
	proposal := Proposal{
		ID:              s.idGenerator(),
		Title:           strings.TrimSpace(input.Title),
		Description:     input.Description,
		DurationMinutes: input.DurationMinutes,
		OrganizerID:     input.OrganizerID,
		ParticipantIDs:  requested,
		Priority:        input.Priority,
		PreferredDays:   append([]string(nil), input.PreferredDays...),
		CandidateSlots:  toCandidateSlots(ranked),
		Reasoning:       scheduledReasoning(input, prefs, report, len(ranked)),
		Status:          StatusPending,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}

	persisted, err := s.proposals.CreateProposal(ctx, proposal)
	if err != nil {
		mapped := mapProposalRepoError(err)
		logger.Error("failed to persist proposal", "error", mapped, "error_kind", ErrorKind(mapped))
		return ScheduleOutcome{}, mapped
	}

	logger.Info("proposal created", "proposal_id", persisted.ID, "slots", len(persisted.CandidateSlots))
	return ScheduleOutcome{
		Proposal:           &persisted,
		Reasoning:          persisted.Reasoning,
		DeniedParticipants: report.Denied,
		Warnings:           warnings,
	}, nil
}

// ConfirmProposal selects one candidate slot, transitions the proposal to
// confirmed, books the calendar event, and notifies participants. Under
// concurrent confirmations of the same proposal exactly one call wins;
// losers observe ErrAlreadyConfirmed.
func (s *SchedulingService) ConfirmProposal(ctx context.Context, proposalID string, slotIndex int) (Confirmation, error) {
	if s == nil {
		return Confirmation{}, fmt.Errorf("SchedulingService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "scheduling", "confirm_proposal", "proposal_id", proposalID, "slot_index", slotIndex)

	proposal, err := s.proposals.GetProposal(ctx, proposalID)
	if err != nil {
		return Confirmation{}, mapProposalRepoError(err)
	}
	if proposal.Status != StatusPending {
		return Confirmation{}, ErrAlreadyConfirmed
	}
	if slotIndex < 0 || slotIndex >= len(proposal.CandidateSlots) {
		return Confirmation{}, ErrInvalidSlotIndex
	}

	organizerAuthenticated, err := s.directory.IsAuthenticated(ctx, proposal.OrganizerID)
	if err != nil {
		return Confirmation{}, fmt.Errorf("check organizer authentication: %w", err)
	}
	if !organizerAuthenticated {
		return Confirmation{}, ErrOrganizerNotAuthenticated
	}

	confirmed, err := s.proposals.ConfirmProposal(ctx, proposalID, slotIndex, s.now())
	if err != nil {
		mapped := mapConfirmRepoError(err)
		logger.Warn("confirm transition failed", "error", mapped, "error_kind", ErrorKind(mapped))
		return Confirmation{}, mapped
	}

	slot := confirmed.CandidateSlots[slotIndex]
	eventID, err := s.gateway.CreateEvent(ctx, EventRequest{
		OrganizerID: confirmed.OrganizerID,
		Title:       confirmed.Title,
		Description: confirmed.Description,
		Start:       slot.Start,
		End:         slot.End,
		AttendeeIDs: append([]string(nil), confirmed.ParticipantIDs...),
	})
	if err != nil {
		// Without a booked event the confirmation must not stand: roll the
		// proposal back to pending so the caller can retry once the provider
		// recovers.
		logger.Error("event creation failed after confirm", "error", err)
		if _, reopenErr := s.proposals.ReopenProposal(ctx, proposalID, s.now()); reopenErr != nil {
			logger.Error("failed to reopen proposal after event failure", "error", reopenErr)
		}
		return Confirmation{}, fmt.Errorf("%w: create event: %v", ErrGatewayUnavailable, err)
	}

	// Notification failures do not undo a confirmed proposal.
	emailSent := true
	message := confirmationEmail(confirmed, slot)
	if err := s.gateway.SendEmail(ctx, confirmed.OrganizerID, message); err != nil {
		logger.Warn("confirmation email failed", "error", err)
		emailSent = false
	}

	logger.Info("proposal confirmed", "event_id", eventID)
	return Confirmation{
		Proposal:  confirmed,
		EventID:   eventID,
		Slot:      slot,
		EmailSent: emailSent,
	}, nil
}

// GetProposal returns a read-only projection of a proposal.
func (s *SchedulingService) GetProposal(ctx context.Context, proposalID string) (Proposal, error) {
	if s == nil {
		return Proposal{}, fmt.Errorf("SchedulingService is nil")
	}

	proposal, err := s.proposals.GetProposal(ctx, proposalID)
	if err != nil {
		return Proposal{}, mapProposalRepoError(err)
	}
	return proposal, nil
}

// CheckEmailResponses classifies replies received from the proposal's
// participants since the proposal was created. Classification never mutates
// proposal state; callers decide what a reply should trigger.
func (s *SchedulingService) CheckEmailResponses(ctx context.Context, proposalID string) ([]EmailResponse, error) {
	if s == nil {
		return nil, fmt.Errorf("SchedulingService is nil")
	}

	proposal, err := s.proposals.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, mapProposalRepoError(err)
	}

	inbound, err := s.gateway.RecentEmails(ctx, proposal.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch emails: %v", ErrGatewayUnavailable, err)
	}

	members := make(map[string]struct{}, len(proposal.ParticipantIDs))
	for _, id := range proposal.ParticipantIDs {
		members[id] = struct{}{}
	}

	var responses []EmailResponse
	for _, email := range inbound {
		if _, ok := members[email.From]; !ok {
			continue
		}
		responses = append(responses, EmailResponse{
			ProposalID:    proposal.ID,
			ParticipantID: email.From,
			Type:          string(mailparse.Classify(email.Body)),
			Subject:       email.Subject,
			ReceivedAt:    email.ReceivedAt,
		})
	}

	return responses, nil
}

func (s *SchedulingService) fillPreferences(prefs Preferences) Preferences {
	if prefs.WorkStartHour == 0 && prefs.WorkEndHour == 0 {
		prefs.WorkStartHour = s.defaults.WorkStartHour
		prefs.WorkEndHour = s.defaults.WorkEndHour
	}
	if prefs.HorizonDays == 0 {
		prefs.HorizonDays = s.defaults.HorizonDays
	}
	if prefs.MaxSuggestions == 0 {
		prefs.MaxSuggestions = s.defaults.MaxSuggestions
	}
	return prefs
}

func validateMeetingInput(input MeetingInput, prefs Preferences) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if input.DurationMinutes <= 0 {
		vErr.add("duration_minutes", "duration must be positive")
	}
	if strings.TrimSpace(input.OrganizerID) == "" {
		vErr.add("organizer_id", "organizer is required")
	}
	if len(input.ParticipantIDs) == 0 {
		vErr.add("participants", "at least one participant is required")
	}
	switch input.Priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
	default:
		vErr.add("priority", "priority must be one of low, medium, high, urgent")
	}
	if prefs.WorkStartHour < 0 || prefs.WorkEndHour > 24 || prefs.WorkStartHour >= prefs.WorkEndHour {
		vErr.add("work_hours", "work hours must satisfy 0 <= start < end <= 24")
	}
	if prefs.HorizonDays < 0 {
		vErr.add("horizon_days", "horizon must be positive")
	}
	if prefs.MaxSuggestions < 0 {
		vErr.add("max_suggestions", "max suggestions must be positive")
	}

	return vErr
}

func normalizePriority(priority Priority) Priority {
	if priority == "" {
		return PriorityMedium
	}
	return Priority(strings.ToLower(string(priority)))
}

// requestedParticipants returns the organizer followed by the invited
// participants, deduplicated with order preserved. The organizer's own
// calendar always constrains the search.
func requestedParticipants(input MeetingInput) []string {
	ids := make([]string, 0, len(input.ParticipantIDs)+1)
	ids = append(ids, input.OrganizerID)
	ids = append(ids, input.ParticipantIDs...)

	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

func usableParticipants(parts []availability.ParticipantAvailability) int {
	usable := 0
	for _, part := range parts {
		if part.Authenticated {
			usable++
		}
	}
	return usable
}

func toAvailabilityWarnings(warnings []availability.Warning) []AvailabilityWarning {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]AvailabilityWarning, len(warnings))
	for i, warning := range warnings {
		out[i] = AvailabilityWarning{ParticipantID: warning.ParticipantID, Reason: warning.Reason}
	}
	return out
}

func scheduledReasoning(input MeetingInput, prefs Preferences, report access.Report, slotCount int) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "Found %d candidate slot(s) of %d minutes for %d of %d participants within the next %d day(s).",
		slotCount, input.DurationMinutes, len(report.Accessible), len(report.Accessible)+len(report.Denied), prefs.HorizonDays)
	if len(report.Denied) > 0 {
		fmt.Fprintf(&builder, " Calendars could not be consulted for %s; they are invited but did not constrain the search.",
			strings.Join(report.Denied, ", "))
	}
	return builder.String()
}

func noAvailabilityReasoning(input MeetingInput, report access.Report) string {
	if len(report.Accessible) == 0 {
		return "None of the requested participants have accessible calendars, so no common availability could be computed."
	}
	return fmt.Sprintf("No common %d-minute slot was found for the %d participant(s) with accessible calendars.",
		input.DurationMinutes, len(report.Accessible))
}

func confirmationEmail(proposal Proposal, slot CandidateSlot) EmailMessage {
	body := fmt.Sprintf("The meeting %q has been confirmed for %s - %s.",
		proposal.Title,
		slot.Start.Format(time.RFC1123),
		slot.End.Format(time.RFC1123))
	return EmailMessage{
		To:      append([]string(nil), proposal.ParticipantIDs...),
		Subject: fmt.Sprintf("Confirmed: %s", proposal.Title),
		Body:    body,
	}
}

func mapProposalRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrNotPending) {
		return ErrAlreadyConfirmed
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("proposal", "proposal record is invalid")
		return vErr
	}
	return err
}

// mapConfirmRepoError is mapProposalRepoError for the confirm path, where a
// constraint violation means the slot index missed the candidate list.
func mapConfirmRepoError(err error) error {
	if errors.Is(err, persistence.ErrConstraintViolation) {
		return ErrInvalidSlotIndex
	}
	return mapProposalRepoError(err)
}
