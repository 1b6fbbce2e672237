package health

import (
	"sync"
	"time"
)

// record holds the state of one channel. All fields are guarded by mutex.
type record struct {
	mutex sync.Mutex

	status               Status
	consecutiveFailures  int
	consecutiveSuccesses int
	totalFailures        int64
	totalSuccesses       int64
	freezeUntil          time.Time
	nextFreeze           time.Duration
	lastCheck            time.Time
	lastError            string
}

func newRecord(initialFreeze time.Duration) *record {
	return &record{
		status:     StatusHealthy,
		nextFreeze: initialFreeze,
	}
}

// transition describes a state change made while the record was locked.
type transition struct {
	from      Status
	to        Status
	failures  int
	freezeFor time.Duration
}

func (r *record) success(now time.Time, cfg Config) (transition, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.totalSuccesses++
	r.consecutiveSuccesses++
	r.consecutiveFailures = 0
	r.lastCheck = now
	r.lastError = ""

	if r.status != StatusProbing || r.consecutiveSuccesses < cfg.ProbeWindow {
		return transition{}, false
	}

	r.status = StatusHealthy
	r.nextFreeze = cfg.InitialFreeze
	return transition{from: StatusProbing, to: StatusHealthy}, true
}

func (r *record) failure(now time.Time, cfg Config, err error) (transition, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.totalFailures++
	r.consecutiveFailures++
	r.consecutiveSuccesses = 0
	r.lastCheck = now
	if err != nil {
		r.lastError = err.Error()
	}

	if r.status == StatusFrozen || r.consecutiveFailures < cfg.FailureThreshold {
		return transition{}, false
	}

	t := transition{
		from:      r.status,
		to:        StatusFrozen,
		failures:  r.consecutiveFailures,
		freezeFor: r.nextFreeze,
	}
	r.status = StatusFrozen
	r.freezeUntil = now.Add(r.nextFreeze)
	r.nextFreeze = cfg.grow(r.nextFreeze)
	return t, true
}

// admit reports availability, moving an expired freeze into probing.
func (r *record) admit(now time.Time) (available, probing bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.status.Available() {
		return true, false
	}
	if now.Before(r.freezeUntil) {
		return false, false
	}

	r.status = StatusProbing
	r.consecutiveSuccesses = 0
	return true, true
}

func (r *record) reset(initialFreeze time.Duration) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.status = StatusHealthy
	r.consecutiveFailures = 0
	r.consecutiveSuccesses = 0
	r.totalFailures = 0
	r.totalSuccesses = 0
	r.freezeUntil = time.Time{}
	r.nextFreeze = initialFreeze
	r.lastError = ""
}

func (r *record) snapshot(now time.Time) Snapshot {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	snap := Snapshot{
		Status:               r.status,
		StatusText:           r.status.Text(),
		StatusColor:          r.status.Color(),
		ConsecutiveFailures:  r.consecutiveFailures,
		ConsecutiveSuccesses: r.consecutiveSuccesses,
		TotalFailures:        r.totalFailures,
		TotalSuccesses:       r.totalSuccesses,
		NextFreeze:           r.nextFreeze,
		LastError:            r.lastError,
	}

	if !r.lastCheck.IsZero() {
		lastCheck := r.lastCheck
		snap.LastCheck = &lastCheck
	}

	if r.status == StatusFrozen {
		freezeUntil := r.freezeUntil
		snap.FreezeUntil = &freezeUntil
		snap.FreezeRemaining = remainingSeconds(r.freezeUntil.Sub(now))
	}

	return snap
}

// remainingSeconds rounds up to whole seconds and never goes negative.
func remainingSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}
