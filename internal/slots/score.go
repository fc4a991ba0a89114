package slots

import (
	"sort"
	"time"
)

// Priority mirrors the meeting priority levels accepted by the scheduler.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// DefaultMaxSuggestions caps ranked output when the caller does not specify
// a limit.
const DefaultMaxSuggestions = 3

// Score rates a slot start deterministically. The policy is additive over a
// base of 100: mid-morning and early-afternoon hours rate highest, midweek
// days beat Monday and Friday, and high/low priorities shift the preference
// toward earlier or later in the week respectively. Medium and urgent
// priorities receive no adjustment.
func Score(start time.Time, priority Priority, workStart, workEnd int) float64 {
	score := 100.0

	hour := start.Hour()
	switch {
	case hour == 10 || hour == 11 || hour == 14 || hour == 15:
		score += 20
	case (hour >= 9 && hour < 12) || (hour >= 13 && hour < 16):
		score += 10
	}

	day := mondayIndexedWeekday(start)
	switch {
	case day >= 1 && day <= 3:
		score += 15
	case day == 0 || day == 4:
		score += 5
	}

	switch priority {
	case PriorityHigh:
		score += float64(7-day) * 5
		if hour <= 12 {
			score += 10
		}
	case PriorityLow:
		score += float64(day) * 2
		if hour >= 14 {
			score += 5
		}
	}

	return score
}

// Rank scores each candidate, orders the list by score descending with
// earlier start breaking ties, and truncates to maxSuggestions. An empty
// input fails with ErrNoCandidateSlots.
func Rank(candidates []CandidateSlot, priority Priority, workStart, workEnd, maxSuggestions int) ([]CandidateSlot, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidateSlots
	}
	if maxSuggestions <= 0 {
		maxSuggestions = DefaultMaxSuggestions
	}

	ranked := make([]CandidateSlot, len(candidates))
	copy(ranked, candidates)
	for i := range ranked {
		ranked[i].Score = Score(ranked[i].Start, priority, workStart, workEnd)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score == ranked[j].Score {
			return ranked[i].Start.Before(ranked[j].Start)
		}
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) > maxSuggestions {
		ranked = ranked[:maxSuggestions]
	}
	return ranked, nil
}

// mondayIndexedWeekday maps time.Weekday onto the Monday=0 .. Sunday=6
// numbering the scoring policy is defined over.
func mondayIndexedWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
