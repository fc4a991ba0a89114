// Package mailparse classifies email replies to meeting proposals using
// keyword heuristics. It is deliberately independent of proposal state:
// callers decide what, if anything, a classification should trigger.
package mailparse

import "strings"

// ResponseType labels the intent detected in a reply body.
type ResponseType string

const (
	ResponseConfirmation      ResponseType = "confirmation"
	ResponseRejection         ResponseType = "rejection"
	ResponseRescheduleRequest ResponseType = "reschedule_request"
	ResponseUnclear           ResponseType = "unclear"
)

var (
	confirmKeywords    = []string{"yes", "confirm", "accept", "agree", "sounds good"}
	rejectKeywords     = []string{"no", "decline", "reject", "can't", "cannot"}
	rescheduleKeywords = []string{"reschedule", "different time", "another time"}
)

// Classify inspects a reply body and reports the detected response type.
// Matching is case-insensitive substring search, checked in confirmation,
// rejection, reschedule order; the first matching group wins.
func Classify(body string) ResponseType {
	lower := strings.ToLower(body)

	if containsAny(lower, confirmKeywords) {
		return ResponseConfirmation
	}
	if containsAny(lower, rejectKeywords) {
		return ResponseRejection
	}
	if containsAny(lower, rescheduleKeywords) {
		return ResponseRescheduleRequest
	}
	return ResponseUnclear
}

func containsAny(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}
