package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Rrens/social-content-generator/internal/domain"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// State is the sync state of a conversation's session
type State string

const (
	StateAbsent    State = "absent"
	StatePending   State = "pending"
	StatePersisted State = "persisted"
	StateDeleted   State = "deleted"
)

var (
	ErrDeleted      = errors.New("conversation deleted")
	ErrEmptyInput   = errors.New("input is required")
	ErrNotPersisted = errors.New("conversation has no persisted session yet")
)

// Store persists sessions and messages. *service.SessionService satisfies it.
type Store interface {
	CreateSession(ctx context.Context, userID string, mode domain.Mode, firstMessage string) (string, error)
	AppendMessage(ctx context.Context, sessionID string, msg *domain.Message) (string, error)
	RenameSession(ctx context.Context, sessionID, title string) error
	DeleteSession(ctx context.Context, sessionID string) error
}

// Generator produces the assistant reply for a turn
type Generator interface {
	Reply(ctx context.Context, mode domain.Mode, turn domain.Turn) (domain.Reply, error)
}

// Entry is one message in the local log. Synced is set once the store has accepted it.
type Entry struct {
	ClientID string         `json:"client_id"`
	Message  domain.Message `json:"message"`
	Synced   bool           `json:"synced"`
}

// TurnResult is the outcome of one Submit
type TurnResult struct {
	User      Entry  `json:"user"`
	Assistant Entry  `json:"assistant"`
	SessionID string `json:"session_id,omitempty"`
	State     State  `json:"state"`
}

// Conversation keeps an append-only local log of one client's chat and mirrors it into the
// store. The local log is authoritative for the caller; store failures never fail a turn.
type Conversation struct {
	userID string
	mode   domain.Mode
	store  Store
	gen    Generator
	clock  clockwork.Clock

	// turnMu serializes Submit, Rename and Delete
	turnMu sync.Mutex

	mu         sync.Mutex
	state      State
	sessionID  string
	entries    []Entry
	lastActive time.Time
}

// New creates an empty conversation in the absent state
func New(userID string, mode domain.Mode, store Store, gen Generator, clock clockwork.Clock) *Conversation {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Conversation{
		userID:     userID,
		mode:       mode,
		store:      store,
		gen:        gen,
		clock:      clock,
		state:      StateAbsent,
		lastActive: clock.Now(),
	}
}

// Submit records the user's turn, generates the reply and syncs both.
func (c *Conversation) Submit(ctx context.Context, turn domain.Turn) (TurnResult, error) {
	c.turnMu.Lock()
	defer c.turnMu.Unlock()

	turn.Text = strings.TrimSpace(turn.Text)
	if turn.Text == "" {
		return TurnResult{}, ErrEmptyInput
	}

	c.mu.Lock()
	if c.state == StateDeleted {
		c.mu.Unlock()
		return TurnResult{}, ErrDeleted
	}
	if c.state == StateAbsent {
		c.state = StatePending
	}
	userClientID := c.appendLocked(domain.RoleUser, turn.Text, domain.MessageMetadata{Platform: turn.Platform.String()})
	c.mu.Unlock()

	c.sync(ctx)

	reply, err := c.gen.Reply(ctx, c.mode, turn)
	if err != nil {
		return TurnResult{}, err
	}

	c.mu.Lock()
	assistantClientID := c.appendLocked(domain.RoleAssistant, reply.Content, reply.Metadata)
	c.mu.Unlock()

	c.sync(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	return TurnResult{
		User:      c.entries[c.indexLocked(userClientID)],
		Assistant: c.entries[c.indexLocked(assistantClientID)],
		SessionID: c.sessionID,
		State:     c.state,
	}, nil
}

func (c *Conversation) appendLocked(role domain.MessageRole, content string, metadata domain.MessageMetadata) string {
	clientID := uuid.NewString()
	metadata.ClientID = clientID
	now := c.clock.Now()
	c.entries = append(c.entries, Entry{
		ClientID: clientID,
		Message: domain.Message{
			Role:      role,
			Content:   content,
			Mode:      c.mode,
			Metadata:  metadata,
			CreatedAt: now,
		},
	})
	c.lastActive = now
	return clientID
}

func (c *Conversation) indexLocked(clientID string) int {
	for i := range c.entries {
		if c.entries[i].ClientID == clientID {
			return i
		}
	}
	return -1
}

// sync creates the session while pending and then appends every unsynced entry in order.
// It stops at the first failure so later entries never overtake earlier ones.
func (c *Conversation) sync(ctx context.Context) {
	c.mu.Lock()
	state := c.state
	var first string
	if len(c.entries) > 0 {
		first = c.entries[0].Message.Content
	}
	c.mu.Unlock()

	if state == StatePending {
		id, err := c.store.CreateSession(ctx, c.userID, c.mode, first)
		if err != nil {
			log.Warn().Err(err).Str("user_id", c.userID).Msg("Session not created, conversation stays pending")
			return
		}
		c.mu.Lock()
		if c.state != StatePending {
			c.mu.Unlock()
			return
		}
		c.sessionID = id
		c.state = StatePersisted
		c.mu.Unlock()
	}

	c.mu.Lock()
	if c.state != StatePersisted {
		c.mu.Unlock()
		return
	}
	sessionID := c.sessionID
	var unsynced []Entry
	for _, e := range c.entries {
		if !e.Synced {
			unsynced = append(unsynced, e)
		}
	}
	c.mu.Unlock()

	for _, e := range unsynced {
		msg := e.Message
		id, err := c.store.AppendMessage(ctx, sessionID, &msg)
		if err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Str("client_id", e.ClientID).Msg("Message not persisted, will retry on next turn")
			return
		}

		c.mu.Lock()
		if i := c.indexLocked(e.ClientID); i >= 0 {
			c.entries[i].Message.ID = id
			c.entries[i].Message.SessionID = sessionID
			c.entries[i].Synced = true
		}
		c.mu.Unlock()
	}
}

// Rename changes the persisted session's title
func (c *Conversation) Rename(ctx context.Context, title string) error {
	c.turnMu.Lock()
	defer c.turnMu.Unlock()

	c.mu.Lock()
	state, sessionID := c.state, c.sessionID
	c.mu.Unlock()

	switch state {
	case StateDeleted:
		return ErrDeleted
	case StatePersisted:
		return c.store.RenameSession(ctx, sessionID, title)
	default:
		return ErrNotPersisted
	}
}

// Delete removes the persisted session, if any, and ends the conversation
func (c *Conversation) Delete(ctx context.Context) error {
	c.turnMu.Lock()
	defer c.turnMu.Unlock()

	c.mu.Lock()
	state, sessionID := c.state, c.sessionID
	c.mu.Unlock()

	if state == StateDeleted {
		return nil
	}
	if state == StatePersisted {
		if err := c.store.DeleteSession(ctx, sessionID); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.state = StateDeleted
	c.entries = nil
	c.mu.Unlock()
	return nil
}

// Entries returns a copy of the local log
func (c *Conversation) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conversation) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Conversation) Mode() domain.Mode {
	return c.mode
}

func (c *Conversation) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}
