// Package availability fans out per-participant busy-interval fetches and
// converts the results into free windows usable for slot intersection.
package availability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/schedulai/internal/access"
	"github.com/example/schedulai/internal/interval"
)

// BusyFetcher retrieves busy intervals for one participant over a horizon.
// Implementations talk to the Calendar/Mail Gateway and may block on network
// I/O; they must honour context cancellation.
type BusyFetcher interface {
	FetchBusyIntervals(ctx context.Context, participantID string, horizonStart, horizonEnd time.Time) ([]interval.TimeInterval, error)
}

// ParticipantAvailability carries one participant's free/busy view of the
// query horizon. Free and busy intervals are mutually disjoint and together
// tile the horizon for authenticated participants; denied or failed
// participants carry empty interval lists.
type ParticipantAvailability struct {
	ParticipantID string
	Authenticated bool
	FreeIntervals []interval.TimeInterval
	BusyIntervals []interval.TimeInterval
}

// Warning records a per-participant fetch problem that did not abort the
// batch.
type Warning struct {
	ParticipantID string
	Reason        string
}

// Aggregator collects availability for a participant list. Fetches are issued
// independently per participant with a bounded timeout so one slow or failing
// calendar cannot delay or fail the others.
type Aggregator struct {
	fetcher BusyFetcher
	timeout time.Duration
}

// DefaultFetchTimeout bounds a single participant fetch when no explicit
// timeout is configured.
const DefaultFetchTimeout = 5 * time.Second

// NewAggregator wires an aggregator around the given fetcher.
func NewAggregator(fetcher BusyFetcher, timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Aggregator{fetcher: fetcher, timeout: timeout}
}

// Collect returns one ParticipantAvailability per requested participant, in
// the same order as the input list. Only participants the report marks
// accessible are queried; denied participants are represented with
// Authenticated=false and empty interval lists. A fetch failure or timeout
// degrades that participant to the denied shape and is surfaced as a warning.
// Free intervals shorter than minDuration are discarded because they cannot
// host the meeting.
func (a *Aggregator) Collect(ctx context.Context, participants []string, report access.Report, horizonStart, horizonEnd time.Time, minDuration time.Duration) ([]ParticipantAvailability, []Warning, error) {
	if a == nil || a.fetcher == nil {
		return nil, nil, fmt.Errorf("availability: aggregator not configured")
	}
	if !horizonStart.Before(horizonEnd) {
		return nil, nil, interval.ErrInvalidRange
	}

	results := make([]ParticipantAvailability, len(participants))
	warnings := make([]Warning, 0)

	var mu sync.Mutex
	var wg sync.WaitGroup

	for i, id := range participants {
		if !report.IsAccessible(id) {
			results[i] = ParticipantAvailability{ParticipantID: id, Authenticated: false}
			continue
		}

		wg.Add(1)
		go func(idx int, participantID string) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			busy, err := a.fetcher.FetchBusyIntervals(fetchCtx, participantID, horizonStart, horizonEnd)
			if err != nil {
				results[idx] = ParticipantAvailability{ParticipantID: participantID, Authenticated: false}
				mu.Lock()
				warnings = append(warnings, Warning{ParticipantID: participantID, Reason: err.Error()})
				mu.Unlock()
				return
			}

			free, err := interval.FreeIntervals(horizonStart, horizonEnd, busy)
			if err != nil {
				results[idx] = ParticipantAvailability{ParticipantID: participantID, Authenticated: false}
				mu.Lock()
				warnings = append(warnings, Warning{ParticipantID: participantID, Reason: err.Error()})
				mu.Unlock()
				return
			}

			qualified := make([]interval.TimeInterval, 0, len(free))
			for _, f := range free {
				if f.Duration() >= minDuration {
					qualified = append(qualified, f)
				}
			}

			results[idx] = ParticipantAvailability{
				ParticipantID: participantID,
				Authenticated: true,
				FreeIntervals: qualified,
				BusyIntervals: busy,
			}
		}(i, id)
	}

	wg.Wait()

	return results, warnings, nil
}
