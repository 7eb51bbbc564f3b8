package health

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// HealthView is the JSON shape returned by /readyz and /livez.
type HealthView struct {
	OK      bool              `json:"ok"`
	Details map[string]string `json:"details,omitempty"`
}

// StreamChecker reports whether the delivery stream is reachable and
// ACTIVE; satisfied by delivery.StreamReady bound to a live client.
type StreamChecker func(ctx context.Context) (bool, error)

// QueueChecker reports whether the source queue is reachable.
type QueueChecker func(ctx context.Context) error

// Probe implements HealthProbe (SPEC_FULL.md §4.11): readiness requires
// the queue to be reachable, the stream to be ACTIVE, and fewer than
// three consecutive processing failures; liveness only reports whether
// the process is still making progress.
type Probe struct {
	checkQueue  QueueChecker
	checkStream StreamChecker

	consecutiveFailures atomic.Int64
	lastActivity        atomic.Int64 // unix nanos

	mu      sync.Mutex
	started time.Time
}

// NewProbe builds a Probe. Either checker may be nil to skip that check
// (useful in tests).
func NewProbe(checkQueue QueueChecker, checkStream StreamChecker) *Probe {
	p := &Probe{checkQueue: checkQueue, checkStream: checkStream, started: time.Now()}
	p.lastActivity.Store(time.Now().UnixNano())
	return p
}

// RecordSuccess resets the consecutive-failure counter and the
// last-activity timestamp; call it after each message completes.
func (p *Probe) RecordSuccess() {
	p.consecutiveFailures.Store(0)
	p.lastActivity.Store(time.Now().UnixNano())
}

// RecordFailure increments the consecutive-failure counter.
func (p *Probe) RecordFailure() {
	p.consecutiveFailures.Add(1)
	p.lastActivity.Store(time.Now().UnixNano())
}

// Readiness reports OK when the queue is reachable, the stream is
// ACTIVE, and fewer than three consecutive failures have been recorded.
func (p *Probe) Readiness(ctx context.Context) HealthView {
	details := map[string]string{}
	ok := true

	if n := p.consecutiveFailures.Load(); n >= 3 {
		ok = false
		details["consecutive_failures"] = "too many"
	}
	if p.checkQueue != nil {
		if err := p.checkQueue(ctx); err != nil {
			ok = false
			details["queue"] = err.Error()
		}
	}
	if p.checkStream != nil {
		active, err := p.checkStream(ctx)
		switch {
		case err != nil:
			ok = false
			details["stream"] = err.Error()
		case !active:
			ok = false
			details["stream"] = "not active"
		}
	}
	return HealthView{OK: ok, Details: details}
}

// Liveness reports OK as long as the process has recorded activity
// within the last 10 minutes; a stuck receive loop or a wedged
// DeliveryBatcher would eventually trip this.
func (p *Probe) Liveness(context.Context) HealthView {
	last := time.Unix(0, p.lastActivity.Load())
	if time.Since(last) > 10*time.Minute {
		return HealthView{OK: false, Details: map[string]string{"stalled_since": last.String()}}
	}
	return HealthView{OK: true}
}
