package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/social-content-generator/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository implements domain.SessionRepository
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, user_id, title, mode, message_count, last_message, created_at, updated_at`

func (r *SessionRepository) Create(ctx context.Context, session *domain.ChatSession) error {
	query := `
		INSERT INTO chat_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	id := uuid.New().String()
	_, err := r.pool.Exec(ctx, query,
		id,
		session.UserID,
		session.Title,
		string(session.Mode),
		session.MessageCount,
		session.LastMessage,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	session.ID = id
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.ChatSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM chat_sessions WHERE id = $1`

	s, err := scanSession(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

func (r *SessionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.ChatSession, error) {
	if limit <= 0 {
		limit = domain.DefaultSessionPageSize
	}
	query := `
		SELECT ` + sessionColumns + `
		FROM chat_sessions
		WHERE user_id = $1
		ORDER BY updated_at DESC, id
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]domain.ChatSession, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return sessions, nil
}

func (r *SessionRepository) UpdateStats(ctx context.Context, id string, stats domain.SessionStats) error {
	query := `
		UPDATE chat_sessions
		SET message_count = $1, last_message = $2, updated_at = GREATEST(updated_at, $3)
		WHERE id = $4
	`
	tag, err := r.pool.Exec(ctx, query, stats.MessageCount, stats.LastMessage, stats.UpdatedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update session stats: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepository) Rename(ctx context.Context, id, title string, updatedAt time.Time) error {
	query := `
		UPDATE chat_sessions
		SET title = $1, updated_at = GREATEST(updated_at, $2)
		WHERE id = $3
	`
	tag, err := r.pool.Exec(ctx, query, title, updatedAt, id)
	if err != nil {
		return fmt.Errorf("failed to rename session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// DeleteWithMessages removes the messages and the session in one transaction
func (r *SessionRepository) DeleteWithMessages(ctx context.Context, id string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM chat_messages WHERE session_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM chat_sessions WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrSessionNotFound
		}
		return nil
	})
}

func scanSession(row pgx.Row) (*domain.ChatSession, error) {
	var s domain.ChatSession
	var mode string
	if err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Title,
		&mode,
		&s.MessageCount,
		&s.LastMessage,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	s.Mode = domain.Mode(mode)
	return &s, nil
}
