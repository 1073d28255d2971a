// Package memory keeps sessions and messages in process memory. It backs local development
// and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Rrens/social-content-generator/internal/domain"
	"github.com/google/uuid"
)

// Op names a store operation for fault injection
type Op string

const (
	OpCreateSession Op = "create_session"
	OpUpdateStats   Op = "update_stats"
	OpRename        Op = "rename"
	OpDelete        Op = "delete"
	OpCreateMessage Op = "create_message"
	OpListMessages  Op = "list_messages"
	OpCountMessages Op = "count_messages"
	OpPatchMetadata Op = "patch_metadata"
	OpListSessions  Op = "list_sessions"
)

// Store holds both collections behind one lock so cascade deletes stay atomic
type Store struct {
	mu       sync.RWMutex
	sessions map[string]domain.ChatSession
	messages map[string]domain.Message
	// order keeps per-session insertion order
	order map[string][]string

	faults map[Op]error
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]domain.ChatSession),
		messages: make(map[string]domain.Message),
		order:    make(map[string][]string),
		faults:   make(map[Op]error),
	}
}

// FailOn makes every following op return err; a nil err clears the fault
func (s *Store) FailOn(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

func (s *Store) fault(op Op) error {
	return s.faults[op]
}

// Sessions returns the SessionRepository view
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{s: s}
}

// Messages returns the MessageRepository view
func (s *Store) Messages() *MessageRepository {
	return &MessageRepository{s: s}
}

// SessionRepository implements domain.SessionRepository
type SessionRepository struct {
	s *Store
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.ChatSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fault(OpCreateSession); err != nil {
		return err
	}
	session.ID = uuid.New().String()
	r.s.sessions[session.ID] = *session
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.ChatSession, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	session, ok := r.s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &session, nil
}

func (r *SessionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.ChatSession, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if err := r.s.fault(OpListSessions); err != nil {
		return nil, err
	}

	sessions := make([]domain.ChatSession, 0)
	for _, session := range r.s.sessions {
		if session.UserID == userID {
			sessions = append(sessions, session)
		}
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].UpdatedAt.Equal(sessions[j].UpdatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (r *SessionRepository) UpdateStats(ctx context.Context, id string, stats domain.SessionStats) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fault(OpUpdateStats); err != nil {
		return err
	}
	session, ok := r.s.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.MessageCount = stats.MessageCount
	session.LastMessage = stats.LastMessage
	session.UpdatedAt = latest(session.UpdatedAt, stats.UpdatedAt)
	r.s.sessions[id] = session
	return nil
}

func (r *SessionRepository) Rename(ctx context.Context, id, title string, updatedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fault(OpRename); err != nil {
		return err
	}
	session, ok := r.s.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.Title = title
	session.UpdatedAt = latest(session.UpdatedAt, updatedAt)
	r.s.sessions[id] = session
	return nil
}

// DeleteWithMessages stages the cascade on copies and swaps them in only when every step
// succeeded.
func (r *SessionRepository) DeleteWithMessages(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}

	stagedMessages := make(map[string]domain.Message, len(r.s.messages))
	for k, v := range r.s.messages {
		stagedMessages[k] = v
	}
	for _, msgID := range r.s.order[id] {
		delete(stagedMessages, msgID)
	}

	if err := r.s.fault(OpDelete); err != nil {
		return fmt.Errorf("batch delete aborted: %w", err)
	}

	r.s.messages = stagedMessages
	delete(r.s.order, id)
	delete(r.s.sessions, id)
	return nil
}

// MessageRepository implements domain.MessageRepository
type MessageRepository struct {
	s *Store
}

func (r *MessageRepository) Create(ctx context.Context, message *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fault(OpCreateMessage); err != nil {
		return err
	}
	if _, ok := r.s.sessions[message.SessionID]; !ok {
		return domain.ErrSessionNotFound
	}
	message.ID = uuid.New().String()
	r.s.messages[message.ID] = *message
	r.s.order[message.SessionID] = append(r.s.order[message.SessionID], message.ID)
	return nil
}

func (r *MessageRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if err := r.s.fault(OpListMessages); err != nil {
		return nil, err
	}
	ids := r.s.order[sessionID]
	messages := make([]domain.Message, 0, len(ids))
	for _, id := range ids {
		messages = append(messages, r.s.messages[id])
	}
	return messages, nil
}

func (r *MessageRepository) CountBySession(ctx context.Context, sessionID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if err := r.s.fault(OpCountMessages); err != nil {
		return 0, err
	}
	return len(r.s.order[sessionID]), nil
}

func (r *MessageRepository) PatchMetadata(ctx context.Context, sessionID, id string, patch domain.MessageMetadata) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fault(OpPatchMetadata); err != nil {
		return err
	}
	message, ok := r.s.messages[id]
	if !ok || message.SessionID != sessionID {
		return domain.ErrMessageNotFound
	}
	message.Metadata = message.Metadata.Merge(patch)
	r.s.messages[id] = message
	return nil
}

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
