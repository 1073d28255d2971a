package domain

import (
	"context"
	"strings"
	"time"
)

const (
	titleMaxRunes   = 40
	previewMaxRunes = 100

	// DefaultSessionPageSize bounds live session-list queries
	DefaultSessionPageSize = 20
)

// ChatSession is a titled, ordered conversation owned by one user
type ChatSession struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	Mode         Mode      `json:"mode"`
	MessageCount int       `json:"message_count"`
	LastMessage  string    `json:"last_message"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SessionStats holds the denormalized fields rewritten after every append
type SessionStats struct {
	MessageCount int
	LastMessage  string
	UpdatedAt    time.Time
}

// DeriveTitle builds a session title from the first message of a conversation
func DeriveTitle(mode Mode, firstMessage string) string {
	return mode.Label() + ": " + Truncate(strings.TrimSpace(firstMessage), titleMaxRunes)
}

// Preview truncates message content for the session list
func Preview(content string) string {
	return Truncate(strings.TrimSpace(content), previewMaxRunes)
}

// Truncate cuts s to max runes and appends an ellipsis when anything was cut
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// SessionRepository defines the interface for session storage
type SessionRepository interface {
	// Create persists a new session and assigns its ID
	Create(ctx context.Context, session *ChatSession) error
	Get(ctx context.Context, id string) (*ChatSession, error)
	// ListByUser returns sessions ordered by UpdatedAt descending
	ListByUser(ctx context.Context, userID string, limit int) ([]ChatSession, error)
	// UpdateStats writes count, preview and updated-at; updated-at never moves backwards
	UpdateStats(ctx context.Context, id string, stats SessionStats) error
	Rename(ctx context.Context, id, title string, updatedAt time.Time) error
	// DeleteWithMessages removes the session and all of its messages in one atomic batch
	DeleteWithMessages(ctx context.Context, id string) error
}

// SessionIterator yields the full current session list on every change
type SessionIterator interface {
	Next() ([]ChatSession, error)
	Stop()
}

// SessionWatcher opens live queries over a user's sessions
type SessionWatcher interface {
	WatchSessions(ctx context.Context, userID string, limit int) (SessionIterator, error)
}
