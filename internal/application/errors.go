package application

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a create collides with an existing
	// record.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrAlreadyConfirmed is returned when a confirm transition loses the
	// race or targets a proposal that already left the pending state.
	ErrAlreadyConfirmed = errors.New("application: proposal already confirmed")
	// ErrInvalidSlotIndex is returned when the selected slot index is outside
	// the proposal's candidate list.
	ErrInvalidSlotIndex = errors.New("application: invalid slot index")
	// ErrOrganizerNotAuthenticated is returned when the organizer lacks
	// stored credentials and therefore cannot confirm or host the meeting.
	ErrOrganizerNotAuthenticated = errors.New("application: organizer not authenticated")
	// ErrGatewayUnavailable is returned when no queried participant produced
	// usable availability data.
	ErrGatewayUnavailable = errors.New("application: calendar gateway unavailable")
	// ErrInvalidToken is returned when a presented access token does not
	// match the stored hash.
	ErrInvalidToken = errors.New("application: invalid token")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
