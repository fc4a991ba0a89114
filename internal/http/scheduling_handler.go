package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/schedulai/internal/application"
)

type schedulingService interface {
	ScheduleMeeting(ctx context.Context, input application.MeetingInput, prefs application.Preferences) (application.ScheduleOutcome, error)
	ConfirmProposal(ctx context.Context, proposalID string, slotIndex int) (application.Confirmation, error)
	GetProposal(ctx context.Context, proposalID string) (application.Proposal, error)
	CheckEmailResponses(ctx context.Context, proposalID string) ([]application.EmailResponse, error)
}

type SchedulingHandler struct {
	service   schedulingService
	defaults  application.Preferences
	responder responder
	logger    *slog.Logger
}

func NewSchedulingHandler(service schedulingService, defaults application.Preferences, logger *slog.Logger) *SchedulingHandler {
	return &SchedulingHandler{
		service:   service,
		defaults:  defaults,
		responder: newResponder(logger),
		logger:    defaultLogger(logger),
	}
}

func (h *SchedulingHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req meetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	outcome, err := h.service.ScheduleMeeting(r.Context(), req.toInput(), req.toPreferences(h.defaults))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	status := http.StatusOK
	if outcome.Proposal != nil {
		status = http.StatusCreated
	}
	h.responder.writeJSON(r.Context(), w, status, toOutcomeDTO(outcome))
}

func (h *SchedulingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	proposalID, ok := ProposalIDFromContext(r.Context())
	if !ok || strings.TrimSpace(proposalID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidProposalID)
		return
	}

	proposal, err := h.service.GetProposal(r.Context(), proposalID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, proposalEnvelope{Proposal: toProposalDTO(proposal)})
}

func (h *SchedulingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	proposalID, ok := ProposalIDFromContext(r.Context())
	if !ok || strings.TrimSpace(proposalID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidProposalID)
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := handlerLogger(r.Context(), h.logger, "scheduling", "confirm", "proposal_id", proposalID)

	confirmation, err := h.service.ConfirmProposal(r.Context(), proposalID, req.SlotIndex)
	if err != nil {
		logger.ErrorContext(r.Context(), "confirmation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "proposal confirmed", "event_id", confirmation.EventID)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toConfirmationDTO(confirmation))
}

func (h *SchedulingHandler) EmailResponses(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	proposalID, ok := ProposalIDFromContext(r.Context())
	if !ok || strings.TrimSpace(proposalID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidProposalID)
		return
	}

	responses, err := h.service.CheckEmailResponses(r.Context(), proposalID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, emailResponsesResponse{Responses: toEmailResponseDTOs(responses)})
}

type meetingRequest struct {
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	DurationMinutes int                 `json:"duration_minutes"`
	OrganizerID     string              `json:"organizer_id"`
	ParticipantIDs  []string            `json:"participant_ids"`
	Priority        string              `json:"priority"`
	PreferredDays   []string            `json:"preferred_days"`
	Preferences     *preferencesRequest `json:"preferences"`
}

type preferencesRequest struct {
	WorkStartHour  *int `json:"work_start_hour"`
	WorkEndHour    *int `json:"work_end_hour"`
	HorizonDays    *int `json:"horizon_days"`
	MaxSuggestions *int `json:"max_suggestions"`
}

func (r meetingRequest) toInput() application.MeetingInput {
	return application.MeetingInput{
		Title:           strings.TrimSpace(r.Title),
		Description:     r.Description,
		DurationMinutes: r.DurationMinutes,
		OrganizerID:     strings.TrimSpace(r.OrganizerID),
		ParticipantIDs:  append([]string(nil), r.ParticipantIDs...),
		Priority:        application.Priority(strings.TrimSpace(r.Priority)),
		PreferredDays:   append([]string(nil), r.PreferredDays...),
	}
}

func (r meetingRequest) toPreferences(defaults application.Preferences) application.Preferences {
	prefs := defaults
	if r.Preferences == nil {
		return prefs
	}
	if r.Preferences.WorkStartHour != nil {
		prefs.WorkStartHour = *r.Preferences.WorkStartHour
	}
	if r.Preferences.WorkEndHour != nil {
		prefs.WorkEndHour = *r.Preferences.WorkEndHour
	}
	if r.Preferences.HorizonDays != nil {
		prefs.HorizonDays = *r.Preferences.HorizonDays
	}
	if r.Preferences.MaxSuggestions != nil {
		prefs.MaxSuggestions = *r.Preferences.MaxSuggestions
	}
	return prefs
}

type confirmRequest struct {
	SlotIndex int `json:"slot_index"`
}

type outcomeDTO struct {
	Proposal           *proposalDTO `json:"proposal"`
	Reasoning          string       `json:"reasoning"`
	DeniedParticipants []string     `json:"denied_participants,omitempty"`
	Warnings           []warningDTO `json:"warnings,omitempty"`
}

type warningDTO struct {
	ParticipantID string `json:"participant_id"`
	Reason        string `json:"reason"`
}

type proposalEnvelope struct {
	Proposal proposalDTO `json:"proposal"`
}

type proposalDTO struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Description        string    `json:"description,omitempty"`
	DurationMinutes    int       `json:"duration_minutes"`
	OrganizerID        string    `json:"organizer_id"`
	ParticipantIDs     []string  `json:"participant_ids"`
	Priority           string    `json:"priority"`
	PreferredDays      []string  `json:"preferred_days,omitempty"`
	CandidateSlots     []slotDTO `json:"candidate_slots"`
	Reasoning          string    `json:"reasoning"`
	Status             string    `json:"status"`
	ConfirmedSlotIndex *int      `json:"confirmed_slot_index,omitempty"`
	CreatedAt          string    `json:"created_at"`
	UpdatedAt          string    `json:"updated_at"`
}

type slotDTO struct {
	Start string  `json:"start"`
	End   string  `json:"end"`
	Score float64 `json:"score"`
	Day   string  `json:"day"`
}

type confirmationDTO struct {
	Proposal  proposalDTO `json:"proposal"`
	EventID   string      `json:"event_id"`
	Slot      slotDTO     `json:"confirmed_slot"`
	EmailSent bool        `json:"email_sent"`
}

type emailResponsesResponse struct {
	Responses []emailResponseDTO `json:"responses"`
}

type emailResponseDTO struct {
	ProposalID    string `json:"proposal_id"`
	ParticipantID string `json:"participant_id"`
	Type          string `json:"type"`
	Subject       string `json:"subject,omitempty"`
	ReceivedAt    string `json:"received_at"`
}

func toOutcomeDTO(outcome application.ScheduleOutcome) outcomeDTO {
	dto := outcomeDTO{
		Reasoning:          outcome.Reasoning,
		DeniedParticipants: append([]string(nil), outcome.DeniedParticipants...),
	}
	if outcome.Proposal != nil {
		proposal := toProposalDTO(*outcome.Proposal)
		dto.Proposal = &proposal
	}
	for _, warning := range outcome.Warnings {
		dto.Warnings = append(dto.Warnings, warningDTO{ParticipantID: warning.ParticipantID, Reason: warning.Reason})
	}
	return dto
}

func toProposalDTO(proposal application.Proposal) proposalDTO {
	slots := make([]slotDTO, 0, len(proposal.CandidateSlots))
	for _, slot := range proposal.CandidateSlots {
		slots = append(slots, toSlotDTO(slot))
	}
	return proposalDTO{
		ID:                 proposal.ID,
		Title:              proposal.Title,
		Description:        proposal.Description,
		DurationMinutes:    proposal.DurationMinutes,
		OrganizerID:        proposal.OrganizerID,
		ParticipantIDs:     append([]string(nil), proposal.ParticipantIDs...),
		Priority:           string(proposal.Priority),
		PreferredDays:      append([]string(nil), proposal.PreferredDays...),
		CandidateSlots:     slots,
		Reasoning:          proposal.Reasoning,
		Status:             string(proposal.Status),
		ConfirmedSlotIndex: proposal.ConfirmedSlotIndex,
		CreatedAt:          proposal.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:          proposal.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toSlotDTO(slot application.CandidateSlot) slotDTO {
	return slotDTO{
		Start: slot.Start.UTC().Format(time.RFC3339Nano),
		End:   slot.End.UTC().Format(time.RFC3339Nano),
		Score: slot.Score,
		Day:   slot.Day.String(),
	}
}

func toConfirmationDTO(confirmation application.Confirmation) confirmationDTO {
	return confirmationDTO{
		Proposal:  toProposalDTO(confirmation.Proposal),
		EventID:   confirmation.EventID,
		Slot:      toSlotDTO(confirmation.Slot),
		EmailSent: confirmation.EmailSent,
	}
}

func toEmailResponseDTOs(responses []application.EmailResponse) []emailResponseDTO {
	if len(responses) == 0 {
		return nil
	}
	out := make([]emailResponseDTO, 0, len(responses))
	for _, response := range responses {
		out = append(out, emailResponseDTO{
			ProposalID:    response.ProposalID,
			ParticipantID: response.ParticipantID,
			Type:          response.Type,
			Subject:       response.Subject,
			ReceivedAt:    response.ReceivedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return out
}
