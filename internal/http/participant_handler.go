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

type directoryService interface {
	RegisterParticipant(ctx context.Context, input application.RegisterParticipantInput) (application.Participant, string, error)
	GetParticipant(ctx context.Context, id string) (application.Participant, error)
	ListParticipants(ctx context.Context) ([]application.Participant, error)
	AuthenticatedParticipants(ctx context.Context) ([]string, error)
	RemoveParticipant(ctx context.Context, id string) error
}

type ParticipantHandler struct {
	service   directoryService
	responder responder
	logger    *slog.Logger
}

func NewParticipantHandler(service directoryService, logger *slog.Logger) *ParticipantHandler {
	return &ParticipantHandler{
		service:   service,
		responder: newResponder(logger),
		logger:    defaultLogger(logger),
	}
}

func (h *ParticipantHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req participantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	participant, token, err := h.service.RegisterParticipant(r.Context(), application.RegisterParticipantInput{
		ID:            strings.TrimSpace(req.ID),
		DisplayName:   strings.TrimSpace(req.DisplayName),
		Authenticated: req.Authenticated,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, registerResponse{
		Participant: toParticipantDTO(participant),
		AccessToken: token,
	})
}

func (h *ParticipantHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	participants, err := h.service.ListParticipants(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]participantDTO, 0, len(participants))
	for _, participant := range participants {
		dtos = append(dtos, toParticipantDTO(participant))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listParticipantsResponse{Participants: dtos})
}

func (h *ParticipantHandler) Authenticated(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ids, err := h.service.AuthenticatedParticipants(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, authenticatedResponse{ParticipantIDs: ids})
}

func (h *ParticipantHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	participantID, ok := ParticipantIDFromContext(r.Context())
	if !ok || strings.TrimSpace(participantID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidParticipantID)
		return
	}

	participant, err := h.service.GetParticipant(r.Context(), participantID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toParticipantDTO(participant))
}

func (h *ParticipantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	participantID, ok := ParticipantIDFromContext(r.Context())
	if !ok || strings.TrimSpace(participantID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidParticipantID)
		return
	}

	if err := h.service.RemoveParticipant(r.Context(), participantID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type participantRequest struct {
	ID            string `json:"id"`
	DisplayName   string `json:"display_name"`
	Authenticated bool   `json:"authenticated"`
}

type registerResponse struct {
	Participant participantDTO `json:"participant"`
	// AccessToken is surfaced exactly once, at registration time.
	AccessToken string `json:"access_token,omitempty"`
}

type listParticipantsResponse struct {
	Participants []participantDTO `json:"participants"`
}

type authenticatedResponse struct {
	ParticipantIDs []string `json:"participant_ids"`
}

type participantDTO struct {
	ID            string `json:"id"`
	DisplayName   string `json:"display_name,omitempty"`
	Authenticated bool   `json:"authenticated"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

func toParticipantDTO(participant application.Participant) participantDTO {
	return participantDTO{
		ID:            participant.ID,
		DisplayName:   participant.DisplayName,
		Authenticated: participant.Authenticated,
		CreatedAt:     participant.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:     participant.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}
