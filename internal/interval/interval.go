// Package interval derives free time windows from busy calendar records.
package interval

import (
	"errors"
	"sort"
	"time"
)

// ErrInvalidRange is returned when a horizon does not satisfy start < end.
var ErrInvalidRange = errors.New("interval: invalid range")

// TimeInterval is a half-open [Start, End) range of wall-clock time.
type TimeInterval struct {
	Start     time.Time
	End       time.Time
	Available bool
}

// Duration returns the length of the interval.
func (i TimeInterval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Contains reports whether other lies fully inside the receiver.
func (i TimeInterval) Contains(other TimeInterval) bool {
	return !i.Start.After(other.Start) && !i.End.Before(other.End)
}

// FreeIntervals computes the free windows inside [horizonStart, horizonEnd)
// left over after removing the union of the supplied busy intervals.
//
// Busy intervals may arrive unsorted, overlapping, adjacent, or partly
// outside the horizon; they are clamped to the horizon before processing and
// zero-length results are dropped. The output is sorted by start time and,
// together with the clamped busy union, exactly tiles the horizon. An empty
// busy set yields a single free interval spanning the whole horizon.
func FreeIntervals(horizonStart, horizonEnd time.Time, busy []TimeInterval) ([]TimeInterval, error) {
	if !horizonStart.Before(horizonEnd) {
		return nil, ErrInvalidRange
	}

	clamped := make([]TimeInterval, 0, len(busy))
	for _, b := range busy {
		start := b.Start
		end := b.End
		if start.Before(horizonStart) {
			start = horizonStart
		}
		if end.After(horizonEnd) {
			end = horizonEnd
		}
		if !start.Before(end) {
			continue
		}
		clamped = append(clamped, TimeInterval{Start: start, End: end, Available: false})
	}

	sort.Slice(clamped, func(i, j int) bool {
		if clamped[i].Start.Equal(clamped[j].Start) {
			return clamped[i].End.Before(clamped[j].End)
		}
		return clamped[i].Start.Before(clamped[j].Start)
	})

	free := make([]TimeInterval, 0, len(clamped)+1)
	cursor := horizonStart
	for _, b := range clamped {
		if cursor.Before(b.Start) {
			free = append(free, TimeInterval{Start: cursor, End: b.Start, Available: true})
		}
		// Advancing the cursor to the furthest busy end merges overlapping
		// and adjacent busy intervals without double counting.
		if b.End.After(cursor) {
			cursor = b.End
		}
	}
	if cursor.Before(horizonEnd) {
		free = append(free, TimeInterval{Start: cursor, End: horizonEnd, Available: true})
	}

	return free, nil
}
