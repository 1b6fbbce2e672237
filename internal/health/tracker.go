package health

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/angeloszaimis/channel-router/internal/channel"
)

// FreezeFunc is notified with the source and channel id of a channel that
// has just been frozen.
type FreezeFunc func(source, channelID string)

// Snapshot is a read-only view of one channel's health.
type Snapshot struct {
	Status               Status        `json:"status"`
	StatusText           string        `json:"status_text"`
	StatusColor          string        `json:"status_color"`
	ConsecutiveFailures  int           `json:"consecutive_failures"`
	ConsecutiveSuccesses int           `json:"consecutive_successes"`
	TotalFailures        int64         `json:"total_failures"`
	TotalSuccesses       int64         `json:"total_successes"`
	FreezeUntil          *time.Time    `json:"freeze_until,omitempty"`
	FreezeRemaining      int64         `json:"freeze_remaining"`
	NextFreeze           time.Duration `json:"next_freeze"`
	LastCheck            *time.Time    `json:"last_check,omitempty"`
	LastError            string        `json:"last_error,omitempty"`
}

// Tracker owns the health records of every channel it has seen.
// Records are created lazily and live for the lifetime of the process.
type Tracker struct {
	mutex   sync.RWMutex
	records map[channel.Key]*record

	cfg    Config
	clock  clockwork.Clock
	logger *slog.Logger

	hookMutex sync.RWMutex
	callback  FreezeFunc
	observers map[uint64]FreezeFunc
	nextID    uint64
}

type Option func(*Tracker)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(t *Tracker) {
		t.clock = clock
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

func NewTracker(cfg Config, opts ...Option) *Tracker {
	t := &Tracker{
		records:   make(map[channel.Key]*record),
		cfg:       cfg.Normalize(),
		clock:     clockwork.NewRealClock(),
		logger:    slog.Default(),
		observers: make(map[uint64]FreezeFunc),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With(slog.String("component", "health"))
	return t
}

// Config returns the normalized configuration in use.
func (t *Tracker) Config() Config {
	return t.cfg
}

func (t *Tracker) lookup(key channel.Key) (*record, bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	r, ok := t.records[key]
	return r, ok
}

func (t *Tracker) getOrCreate(key channel.Key) *record {
	if r, ok := t.lookup(key); ok {
		return r
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	// Double-check: another goroutine may have created it
	if r, ok := t.records[key]; ok {
		return r
	}

	r := newRecord(t.cfg.InitialFreeze)
	t.records[key] = r
	return r
}

// RecordSuccess registers a successful attempt against the channel.
func (t *Tracker) RecordSuccess(channelID, source string) {
	key := channel.NewKey(source, channelID)

	tr, changed := t.getOrCreate(key).success(t.clock.Now(), t.cfg)
	if !changed {
		return
	}

	t.logger.Info("Channel recovered",
		slog.String("channel", key.String()),
		slog.String("from", tr.from.String()))
}

// RecordFailure registers a failed attempt against the channel and freezes
// it once the failure threshold is reached. The freeze callback and any
// subscribers run before RecordFailure returns, after the freeze is committed.
func (t *Tracker) RecordFailure(channelID, source string, err error) {
	key := channel.NewKey(source, channelID)

	tr, changed := t.getOrCreate(key).failure(t.clock.Now(), t.cfg, err)
	if !changed {
		return
	}

	attrs := []any{
		slog.String("channel", key.String()),
		slog.String("from", tr.from.String()),
		slog.Int("consecutive_failures", tr.failures),
		slog.Duration("freeze", tr.freezeFor),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	t.logger.Warn("Channel frozen", attrs...)

	t.notifyFrozen(key)
}

// IsAvailable reports whether the channel may receive traffic. A frozen
// channel whose freeze has expired is moved to probing by this call.
func (t *Tracker) IsAvailable(channelID, source string) bool {
	key := channel.NewKey(source, channelID)

	r, ok := t.lookup(key)
	if !ok {
		return true
	}

	available, probing := r.admit(t.clock.Now())
	if probing {
		t.logger.Info("Channel freeze expired, probing",
			slog.String("channel", key.String()))
	}
	return available
}

// FilterAvailable returns the channels that IsAvailable admits, in order.
func (t *Tracker) FilterAvailable(channels []channel.Channel, source string) []channel.Channel {
	available := make([]channel.Channel, 0, len(channels))
	for _, ch := range channels {
		if t.IsAvailable(ch.ID, source) {
			available = append(available, ch)
		}
	}
	return available
}

// Status returns a snapshot of the channel. Unknown channels report healthy.
func (t *Tracker) Status(channelID, source string) Snapshot {
	r, ok := t.lookup(channel.NewKey(source, channelID))
	if !ok {
		return Snapshot{
			Status:      StatusHealthy,
			StatusText:  StatusHealthy.Text(),
			StatusColor: StatusHealthy.Color(),
			NextFreeze:  t.cfg.InitialFreeze,
		}
	}
	return r.snapshot(t.clock.Now())
}

// AllStatuses returns snapshots of every tracked channel of one source,
// keyed by channel id.
func (t *Tracker) AllStatuses(source string) map[string]Snapshot {
	source = channel.NormalizeSource(source)

	t.mutex.RLock()
	matched := make(map[string]*record)
	for key, r := range t.records {
		if key.Source == source {
			matched[key.ID] = r
		}
	}
	t.mutex.RUnlock()

	now := t.clock.Now()
	statuses := make(map[string]Snapshot, len(matched))
	for id, r := range matched {
		statuses[id] = r.snapshot(now)
	}
	return statuses
}

// Sources lists the sources that have at least one tracked channel.
func (t *Tracker) Sources() []string {
	t.mutex.RLock()
	seen := make(map[string]struct{})
	for key := range t.records {
		seen[key.Source] = struct{}{}
	}
	t.mutex.RUnlock()

	sources := make([]string, 0, len(seen))
	for s := range seen {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	return sources
}

// Reset forces the channel back to healthy and clears its counters.
// It is an administrative override and is never called by the tracker itself.
func (t *Tracker) Reset(channelID, source string) {
	key := channel.NewKey(source, channelID)
	t.getOrCreate(key).reset(t.cfg.InitialFreeze)

	t.logger.Info("Channel health reset", slog.String("channel", key.String()))
}

// SetFreezeCallback installs the freeze callback, replacing any previous
// one. A nil fn removes it.
func (t *Tracker) SetFreezeCallback(fn FreezeFunc) {
	t.hookMutex.Lock()
	defer t.hookMutex.Unlock()
	t.callback = fn
}

// Subscribe adds a freeze observer alongside the callback. The returned
// function removes it.
func (t *Tracker) Subscribe(fn FreezeFunc) (unsubscribe func()) {
	t.hookMutex.Lock()
	defer t.hookMutex.Unlock()

	id := t.nextID
	t.nextID++
	t.observers[id] = fn

	return func() {
		t.hookMutex.Lock()
		defer t.hookMutex.Unlock()
		delete(t.observers, id)
	}
}

func (t *Tracker) notifyFrozen(key channel.Key) {
	t.hookMutex.RLock()
	hooks := make([]FreezeFunc, 0, len(t.observers)+1)
	if t.callback != nil {
		hooks = append(hooks, t.callback)
	}
	ids := make([]uint64, 0, len(t.observers))
	for id := range t.observers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		hooks = append(hooks, t.observers[id])
	}
	t.hookMutex.RUnlock()

	for _, fn := range hooks {
		t.invoke(fn, key)
	}
}

// invoke isolates a misbehaving hook from the tracker and from other hooks.
func (t *Tracker) invoke(fn FreezeFunc, key channel.Key) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("Freeze callback panicked",
				slog.String("channel", key.String()),
				slog.Any("panic", r))
		}
	}()
	fn(key.Source, key.ID)
}
