// Package http provides HTTP handlers and middleware for the scheduling API.
//
// The router exposes the following endpoints:
//   - POST /meetings/schedule: runs the scheduling pipeline for a meeting
//     request and, when common availability exists, creates a pending
//     proposal. A request with no common slot succeeds with a null proposal
//     and an explanatory reasoning string.
//   - GET /proposals/{id}: returns a proposal with its candidate slots.
//   - POST /proposals/{id}/confirm: selects one candidate slot, books the
//     calendar event, and emails the participants. Body: {"slot_index"}.
//   - GET /proposals/{id}/email-responses: classifies replies received from
//     the proposal's participants since it was created.
//   - POST /participants, GET /participants, DELETE /participants/{id}:
//     participant directory management. Registering an authenticated
//     participant returns the plaintext access token exactly once.
//   - GET /participants/authenticated: lists the participant ids whose
//     calendars are queryable.
//   - GET /healthz: liveness probe.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
