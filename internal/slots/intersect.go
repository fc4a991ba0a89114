// Package slots finds and ranks candidate meeting windows common to all
// queryable participants.
package slots

import (
	"errors"
	"sort"
	"time"

	"github.com/example/schedulai/internal/availability"
	"github.com/example/schedulai/internal/interval"
)

var (
	// ErrNoAuthenticatedParticipants is returned when no participant with
	// usable availability data remains after access filtering.
	ErrNoAuthenticatedParticipants = errors.New("slots: no authenticated participants with availability data")
	// ErrNoCandidateSlots is returned when ranking receives an empty
	// candidate list. Callers must treat it as a legitimate "no common time"
	// outcome, not a system fault.
	ErrNoCandidateSlots = errors.New("slots: no candidate slots")
)

// CandidateSlot is a proposed meeting window of exactly the requested
// duration.
type CandidateSlot struct {
	Start time.Time
	End   time.Time
	Score float64
	Day   time.Weekday
}

// Intersect proposes candidate windows of exactly duration d that fit inside
// a free interval of every authenticated participant and respect the
// [workStart, workEnd) hour window.
//
// The first authenticated participant with at least one qualifying free
// interval drives the search: each of its free intervals long enough for the
// meeting is walked in duration-sized steps, yielding one candidate per
// anchor. A candidate survives only if every other authenticated participant
// has a free interval fully containing it; partial overlap does not qualify.
// Results are ordered by start time ascending with scores unset.
func Intersect(parts []availability.ParticipantAvailability, d time.Duration, workStart, workEnd int) ([]CandidateSlot, error) {
	if d <= 0 {
		return nil, interval.ErrInvalidRange
	}

	qualified := make([]availability.ParticipantAvailability, 0, len(parts))
	for _, p := range parts {
		if p.Authenticated && len(p.FreeIntervals) > 0 {
			qualified = append(qualified, p)
		}
	}
	if len(qualified) == 0 {
		return nil, ErrNoAuthenticatedParticipants
	}

	driver := qualified[0]
	candidates := make([]CandidateSlot, 0, len(driver.FreeIntervals))

	for _, free := range driver.FreeIntervals {
		for anchor := free.Start; !anchor.Add(d).After(free.End); anchor = anchor.Add(d) {
			slot := interval.TimeInterval{Start: anchor, End: anchor.Add(d)}
			if slot.Start.Hour() < workStart || slot.End.Hour() > workEnd {
				continue
			}

			if !containedByAll(qualified[1:], slot) {
				continue
			}

			candidates = append(candidates, CandidateSlot{
				Start: slot.Start,
				End:   slot.End,
				Day:   slot.Start.Weekday(),
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Start.Before(candidates[j].Start)
	})

	return candidates, nil
}

func containedByAll(others []availability.ParticipantAvailability, slot interval.TimeInterval) bool {
	for _, p := range others {
		contained := false
		for _, free := range p.FreeIntervals {
			if free.Contains(slot) {
				contained = true
				break
			}
		}
		if !contained {
			return false
		}
	}
	return true
}
