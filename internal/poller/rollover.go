package poller

import "time"

// Rollover decides when a file is presumed fully written. Writers may still be
// appending to a young file, and nothing in the storage layer says when they
// are done, so elapsed time since creation is the only signal.
type Rollover struct {
	Delay time.Duration
}

// Eligible reports whether a file created at createdAt may be read at now.
// A zero createdAt (backend reported no timestamp) is always eligible.
func (r Rollover) Eligible(createdAt, now time.Time) bool {
	return now.Sub(createdAt) >= r.Delay
}
