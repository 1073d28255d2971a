package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Rrens/social-content-generator/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const defaultIdleTTL = 30 * time.Minute

var ErrModeMismatch = errors.New("conversation already open in another mode")

type registryKey struct {
	userID string
	key    string
}

// Registry holds the live conversations of every user, keyed by a client-chosen key
type Registry struct {
	store   Store
	gen     Generator
	clock   clockwork.Clock
	idleTTL time.Duration

	mu    sync.Mutex
	convs map[registryKey]*Conversation
}

// NewRegistry creates a registry. Conversations idle for idleTTL are evicted by Evict/Run.
func NewRegistry(store Store, gen Generator, clock clockwork.Clock, idleTTL time.Duration) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if idleTTL <= 0 {
		idleTTL = defaultIdleTTL
	}
	return &Registry{
		store:   store,
		gen:     gen,
		clock:   clock,
		idleTTL: idleTTL,
		convs:   make(map[registryKey]*Conversation),
	}
}

// Get returns the user's conversation under key
func (r *Registry) Get(userID, key string) (*Conversation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[registryKey{userID, key}]
	return c, ok
}

// Open returns the conversation under key, creating it in mode if absent. A deleted
// conversation is replaced by a fresh one.
func (r *Registry) Open(userID, key string, mode domain.Mode) (*Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := registryKey{userID, key}
	if c, ok := r.convs[k]; ok && c.State() != StateDeleted {
		if c.Mode() != mode {
			return nil, ErrModeMismatch
		}
		return c, nil
	}

	c := New(userID, mode, r.store, r.gen, r.clock)
	r.convs[k] = c
	return c, nil
}

// Remove drops the conversation from the registry without touching the store
func (r *Registry) Remove(userID, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.convs, registryKey{userID, key})
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.convs)
}

// Evict drops every conversation idle for at least the TTL and returns how many it dropped
func (r *Registry) Evict() int {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for k, c := range r.convs {
		if now.Sub(c.idleSince()) >= r.idleTTL {
			delete(r.convs, k)
			evicted++
		}
	}
	return evicted
}

// Run evicts idle conversations every half TTL until ctx is done
func (r *Registry) Run(ctx context.Context) {
	ticker := r.clock.NewTicker(r.idleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if n := r.Evict(); n > 0 {
				log.Debug().Int("evicted", n).Msg("Evicted idle conversations")
			}
		}
	}
}
