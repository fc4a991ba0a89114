// Package access classifies requested meeting participants against the set
// of authenticated calendar owners.
package access

// Report partitions the requested participants into those whose calendars can
// be queried and those excluded from availability intersection. It owns no
// calendar data.
type Report struct {
	Accessible []string
	Denied     []string
}

// IsAccessible reports whether the participant appears in the accessible set.
func (r Report) IsAccessible(participantID string) bool {
	for _, id := range r.Accessible {
		if id == participantID {
			return true
		}
	}
	return false
}

// Classify partitions requested participants by membership in the
// authenticated set. It performs no I/O and mutates neither input. Requested
// order is preserved within each partition; duplicates and empty ids are
// dropped. Denied participants remain invited to the meeting but contribute
// no constraint to slot intersection.
func Classify(requested []string, authenticated []string) Report {
	authSet := make(map[string]struct{}, len(authenticated))
	for _, id := range authenticated {
		authSet[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(requested))
	report := Report{}
	for _, id := range requested {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := authSet[id]; ok {
			report.Accessible = append(report.Accessible, id)
		} else {
			report.Denied = append(report.Denied, id)
		}
	}
	return report
}
