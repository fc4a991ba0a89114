package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/example/schedulai/internal/application"
)

// TokenVerifier checks a participant's presented access token.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, participantID, token string) error
}

// RequireToken authenticates requests with the X-Participant-ID header and a
// bearer token. Verified requests carry the participant id as the principal.
func RequireToken(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			participantID := strings.TrimSpace(r.Header.Get("X-Participant-ID"))
			token := extractTokenFromRequest(r)
			if participantID == "" || token == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingAccessToken)
				return
			}

			if err := verifier.VerifyToken(r.Context(), participantID, token); err != nil {
				switch {
				case errors.Is(err, application.ErrInvalidToken):
					responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{
						ErrorCode: "INVALID_TOKEN",
						Message:   "the access token is not valid",
					})
				case errors.Is(err, application.ErrNotFound):
					responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{
						ErrorCode: "UNKNOWN_PARTICIPANT",
						Message:   "no participant with that id is registered",
					})
				default:
					responder.writeJSON(r.Context(), w, http.StatusInternalServerError, errorResponse{Message: "token verification failed"})
				}
				return
			}

			ctx := ContextWithPrincipal(r.Context(), participantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger attaches a request scoped logger to the context and records
// request start and completion.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(w, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "duration", time.Since(start))
		})
	}
}

func extractTokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		const prefix = "Bearer "
		if strings.HasPrefix(header, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(header, prefix))
		}
	}
	return ""
}
