package session

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/angeloszaimis/channel-router/internal/channel"
)

// Bindings maps session ids to the channel serving them. It is safe for
// concurrent use.
type Bindings struct {
	mutex    sync.RWMutex
	sessions map[string]channel.Key
	logger   *slog.Logger
}

func NewBindings(logger *slog.Logger) *Bindings {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bindings{
		sessions: make(map[string]channel.Key),
		logger:   logger.With(slog.String("component", "session")),
	}
}

// Bind pins sessionID to key, replacing any previous binding.
func (b *Bindings) Bind(sessionID string, key channel.Key) {
	key = channel.NewKey(key.Source, key.ID)

	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.sessions[sessionID] = key
}

// BindNew mints a session id, binds it to key and returns it.
func (b *Bindings) BindNew(key channel.Key) string {
	id := uuid.NewString()
	b.Bind(id, key)
	return id
}

func (b *Bindings) Lookup(sessionID string) (channel.Key, bool) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	key, ok := b.sessions[sessionID]
	return key, ok
}

func (b *Bindings) Unbind(sessionID string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	delete(b.sessions, sessionID)
}

// EvictChannel removes every binding to the channel and returns how many
// were removed.
func (b *Bindings) EvictChannel(source, channelID string) int {
	key := channel.NewKey(source, channelID)

	b.mutex.Lock()
	evicted := 0
	for id, bound := range b.sessions {
		if bound == key {
			delete(b.sessions, id)
			evicted++
		}
	}
	b.mutex.Unlock()

	if evicted > 0 {
		b.logger.Info("Session bindings evicted",
			slog.String("channel", key.String()),
			slog.Int("sessions", evicted))
	}
	return evicted
}

// Len returns the number of bound sessions.
func (b *Bindings) Len() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return len(b.sessions)
}
