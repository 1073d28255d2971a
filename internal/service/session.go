package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Rrens/social-content-generator/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// SessionService synchronizes sessions and their ordered messages with the document store
type SessionService struct {
	sessions domain.SessionRepository
	messages domain.MessageRepository
	watcher  domain.SessionWatcher
	clock    clockwork.Clock
}

// NewSessionService creates a new session service
func NewSessionService(
	sessions domain.SessionRepository,
	messages domain.MessageRepository,
	watcher domain.SessionWatcher,
	clock clockwork.Clock,
) *SessionService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SessionService{
		sessions: sessions,
		messages: messages,
		watcher:  watcher,
		clock:    clock,
	}
}

// CreateSession persists a new session titled after its first message
func (s *SessionService) CreateSession(ctx context.Context, userID string, mode domain.Mode, firstMessage string) (string, error) {
	now := s.clock.Now()
	session := &domain.ChatSession{
		UserID:    userID,
		Title:     domain.DeriveTitle(mode, firstMessage),
		Mode:      mode,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", &domain.PersistenceError{Op: "create session", Err: err}
	}

	log.Debug().Str("session_id", session.ID).Str("user_id", userID).Str("mode", string(mode)).Msg("Session created")
	return session.ID, nil
}

// AppendMessage writes the message, then recounts the session's messages and rewrites the
// denormalized stats. The recount is best effort: once the message is durable, a failed
// stats write is logged and the next append repairs it.
func (s *SessionService) AppendMessage(ctx context.Context, sessionID string, msg *domain.Message) (string, error) {
	msg.SessionID = sessionID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.clock.Now()
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return "", &domain.PersistenceError{Op: "append message", Err: err}
	}

	count, err := s.messages.CountBySession(ctx, sessionID)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to recount session messages")
		return msg.ID, nil
	}

	stats := domain.SessionStats{
		MessageCount: count,
		LastMessage:  domain.Preview(msg.Content),
		UpdatedAt:    s.clock.Now(),
	}
	if err := s.sessions.UpdateStats(ctx, sessionID, stats); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to update session stats")
	}

	return msg.ID, nil
}

// LoadHistory returns the session's messages oldest first. Read failures yield an empty list.
func (s *SessionService) LoadHistory(ctx context.Context, sessionID string) []domain.Message {
	messages, err := s.messages.ListBySession(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to load session history")
		return []domain.Message{}
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages
}

// SubscribeToSessions calls callback with the user's session list (most recently updated
// first) once initially and again after every change. A stream error delivers an empty
// list and ends the subscription. The returned func stops it and may be called repeatedly;
// it waits for an in-flight callback, so no callback runs once it has returned. It must not
// be called from inside the callback.
func (s *SessionService) SubscribeToSessions(ctx context.Context, userID string, limit int, callback func([]domain.ChatSession)) func() {
	if limit <= 0 {
		limit = domain.DefaultSessionPageSize
	}

	ctx, cancel := context.WithCancel(ctx)
	it, err := s.watcher.WatchSessions(ctx, userID, limit)
	if err != nil {
		cancel()
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to open session subscription")
		callback([]domain.ChatSession{})
		return func() {}
	}

	var (
		// mu is held across the stopped check and the callback
		mu      sync.Mutex
		stopped atomic.Bool
		once    sync.Once
	)
	unsubscribe := func() {
		once.Do(func() {
			stopped.Store(true)
			cancel()
			it.Stop()
		})
		mu.Lock()
		mu.Unlock()
	}

	deliver := func(list []domain.ChatSession) bool {
		mu.Lock()
		defer mu.Unlock()
		if stopped.Load() {
			return false
		}
		callback(list)
		return true
	}

	go func() {
		defer unsubscribe()
		for {
			list, err := it.Next()
			if err != nil {
				if ctx.Err() == nil {
					log.Error().Err(err).Str("user_id", userID).Msg("Session subscription failed")
					deliver([]domain.ChatSession{})
				}
				return
			}
			if !deliver(list) {
				return
			}
		}
	}()

	return unsubscribe
}

// DeleteSession removes the session and all of its messages atomically
func (s *SessionService) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.DeleteWithMessages(ctx, sessionID); err != nil {
		return &domain.PersistenceError{Op: "delete session", Err: err}
	}
	log.Debug().Str("session_id", sessionID).Msg("Session deleted")
	return nil
}

// RenameSession changes only the title and the updated-at timestamp
func (s *SessionService) RenameSession(ctx context.Context, sessionID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.ErrEmptyTitle
	}
	if err := s.sessions.Rename(ctx, sessionID, title, s.clock.Now()); err != nil {
		return &domain.PersistenceError{Op: "rename session", Err: err}
	}
	return nil
}

// GetSession returns a session owned by userID
func (s *SessionService) GetSession(ctx context.Context, userID, sessionID string) (*domain.ChatSession, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, domain.ErrAccessDenied
	}
	return session, nil
}

// ListSessions returns the user's sessions, optionally restricted to one mode
func (s *SessionService) ListSessions(ctx context.Context, userID string, mode domain.Mode, limit int) ([]domain.ChatSession, error) {
	if limit <= 0 {
		limit = domain.DefaultSessionPageSize
	}
	sessions, err := s.sessions.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if mode == "" {
		return sessions, nil
	}

	filtered := make([]domain.ChatSession, 0, len(sessions))
	for _, session := range sessions {
		if session.Mode == mode {
			filtered = append(filtered, session)
		}
	}
	return filtered, nil
}

// PatchMessageMetadata merges patch into the metadata of a message of sessionID.
// Fields left empty in patch keep their stored value.
func (s *SessionService) PatchMessageMetadata(ctx context.Context, sessionID, messageID string, patch domain.MessageMetadata) error {
	if err := s.messages.PatchMetadata(ctx, sessionID, messageID, patch); err != nil {
		return &domain.PersistenceError{Op: "patch message metadata", Err: err}
	}
	return nil
}

// IsNotFound reports whether err means the session or message does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrSessionNotFound) || errors.Is(err, domain.ErrMessageNotFound)
}
