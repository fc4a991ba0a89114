package http

import (
	"context"
)

type contextKey string

const (
	principalContextKey     contextKey = "principal"
	proposalIDContextKey    contextKey = "proposal_id"
	participantIDContextKey contextKey = "participant_id"
)

// ContextWithPrincipal returns a derived context containing the id of the
// authenticated participant.
func ContextWithPrincipal(ctx context.Context, participantID string) context.Context {
	return context.WithValue(ctx, principalContextKey, participantID)
}

// PrincipalFromContext extracts the authenticated participant id from
// context if available.
func PrincipalFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(principalContextKey).(string)
	return id, ok
}

// ContextWithProposalID injects the proposal identifier resolved from the
// request path.
func ContextWithProposalID(ctx context.Context, proposalID string) context.Context {
	return context.WithValue(ctx, proposalIDContextKey, proposalID)
}

// ProposalIDFromContext extracts a proposal identifier previously associated
// with the context.
func ProposalIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(proposalIDContextKey).(string)
	return id, ok
}

// ContextWithParticipantID injects the participant identifier resolved from
// the request path.
func ContextWithParticipantID(ctx context.Context, participantID string) context.Context {
	return context.WithValue(ctx, participantIDContextKey, participantID)
}

// ParticipantIDFromContext extracts a participant identifier previously
// associated with the context.
func ParticipantIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(participantIDContextKey).(string)
	return id, ok
}
