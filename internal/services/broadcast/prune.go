package broadcast

import (
	"slices"
	"time"
)

// Job statuses live in memory only, one per broadcast notice.
const (
	defaultStatusMax = 200
	defaultStatusTTL = 24 * time.Hour
)

// settledAt is when the job last changed state, for expiry ordering.
func (st *JobStatus) settledAt() time.Time {
	for _, t := range []time.Time{st.DoneAt, st.CreatedAt, st.StartedAt} {
		if !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}

// pruneStatus expires finished jobs older than the TTL, then evicts the
// oldest finished jobs until at most statusMax remain. Running jobs stay.
func (s *Service) pruneStatus(now time.Time) {
	limit := cmpOr(s.statusMax, defaultStatusMax)
	ttl := cmpOr(s.statusTTL, defaultStatusTTL)

	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	var done []string
	for id, st := range s.status {
		switch {
		case st == nil:
			delete(s.status, id)
		case st.Running:
		case !st.settledAt().IsZero() && now.Sub(st.settledAt()) > ttl:
			delete(s.status, id)
		default:
			done = append(done, id)
		}
	}

	excess := len(s.status) - limit
	if excess <= 0 {
		return
	}
	slices.SortFunc(done, func(a, b string) int {
		return s.status[a].settledAt().Compare(s.status[b].settledAt())
	})
	for _, id := range done[:min(excess, len(done))] {
		delete(s.status, id)
	}
}

func cmpOr[T int | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}
