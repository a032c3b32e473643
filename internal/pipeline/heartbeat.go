package pipeline

import (
	"sync/atomic"
	"time"
)

// Heartbeat records when the last spot price arrived from any source.
type Heartbeat struct {
	last atomic.Int64
}

// Beat records an observation at t.
func (h *Heartbeat) Beat(t time.Time) {
	h.last.Store(t.UnixNano())
}

// Last returns the time of the latest observation, or the zero time.
func (h *Heartbeat) Last() time.Time {
	n := h.last.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

// Age returns how long ago the last observation was. It reports ok=false
// when nothing has been observed.
func (h *Heartbeat) Age(now time.Time) (age time.Duration, ok bool) {
	last := h.Last()
	if last.IsZero() {
		return 0, false
	}
	return now.Sub(last), true
}
