// Package firestore stores sessions and messages in Cloud Firestore, mirroring the document
// layout the web client reads: top-level "sessions" and "messages" collections.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Rrens/social-content-generator/internal/config"
	"github.com/Rrens/social-content-generator/internal/domain"
)

// A transaction can write at most 500 documents
const maxBatchWrites = 500

// ErrBatchTooLarge is returned when a cascade delete cannot fit in one atomic write
var ErrBatchTooLarge = errors.New("cascade delete exceeds single transaction write limit")

type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store
func NewStore(ctx context.Context, cfg config.FirestoreConfig) (*Store, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	databaseID := cfg.DatabaseID
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, cfg.ProjectID, databaseID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

// Close releases the client
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) sessionsCol() *firestore.CollectionRef {
	return s.client.Collection("sessions")
}

func (s *Store) messagesCol() *firestore.CollectionRef {
	return s.client.Collection("messages")
}

type sessionDoc struct {
	UserID       string    `firestore:"userId"`
	Title        string    `firestore:"title"`
	Mode         string    `firestore:"mode"`
	MessageCount int       `firestore:"messageCount"`
	LastMessage  string    `firestore:"lastMessage"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

type metadataDoc struct {
	ImageURL     string `firestore:"imageUrl,omitempty"`
	Platform     string `firestore:"platform,omitempty"`
	Prompt       string `firestore:"prompt,omitempty"`
	ClientID     string `firestore:"clientId,omitempty"`
	UsedFallback bool   `firestore:"usedFallback,omitempty"`
}

type messageDoc struct {
	SessionID string      `firestore:"sessionId"`
	Role      string      `firestore:"role"`
	Content   string      `firestore:"content"`
	Mode      string      `firestore:"mode"`
	Metadata  metadataDoc `firestore:"metadata"`
	CreatedAt time.Time   `firestore:"createdAt"`
}

func toSession(snap *firestore.DocumentSnapshot) (domain.ChatSession, error) {
	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return domain.ChatSession{}, fmt.Errorf("decode sessionDoc: %w", err)
	}
	return domain.ChatSession{
		ID:           snap.Ref.ID,
		UserID:       doc.UserID,
		Title:        doc.Title,
		Mode:         domain.Mode(doc.Mode),
		MessageCount: doc.MessageCount,
		LastMessage:  doc.LastMessage,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}, nil
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// SessionRepository implements domain.SessionRepository and domain.SessionWatcher
type SessionRepository struct {
	s *Store
}

func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{s: s}
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.ChatSession) error {
	ref := r.s.sessionsCol().NewDoc()
	doc := sessionDoc{
		UserID:       session.UserID,
		Title:        session.Title,
		Mode:         string(session.Mode),
		MessageCount: session.MessageCount,
		LastMessage:  session.LastMessage,
		CreatedAt:    session.CreatedAt,
		UpdatedAt:    session.UpdatedAt,
	}
	if _, err := ref.Create(ctx, doc); err != nil {
		return fmt.Errorf("firestore CreateSession: %w", err)
	}
	session.ID = ref.ID
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.ChatSession, error) {
	snap, err := r.s.sessionsCol().Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("firestore GetSession: %w", err)
	}
	session, err := toSession(snap)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) userQuery(userID string, limit int) firestore.Query {
	if limit <= 0 {
		limit = domain.DefaultSessionPageSize
	}
	return r.s.sessionsCol().
		Where("userId", "==", userID).
		OrderBy("updatedAt", firestore.Desc).
		Limit(limit)
}

func (r *SessionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.ChatSession, error) {
	iter := r.userQuery(userID, limit).Documents(ctx)
	defer iter.Stop()

	out := make([]domain.ChatSession, 0)
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListSessionsByUser: %w", err)
		}
		session, err := toSession(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, nil
}

// UpdateStats runs read-compare-write in a transaction so updatedAt never moves back
func (r *SessionRepository) UpdateStats(ctx context.Context, id string, stats domain.SessionStats) error {
	return r.updateMonotonic(ctx, id, stats.UpdatedAt, []firestore.Update{
		{Path: "messageCount", Value: stats.MessageCount},
		{Path: "lastMessage", Value: stats.LastMessage},
	})
}

func (r *SessionRepository) Rename(ctx context.Context, id, title string, updatedAt time.Time) error {
	return r.updateMonotonic(ctx, id, updatedAt, []firestore.Update{
		{Path: "title", Value: title},
	})
}

func (r *SessionRepository) updateMonotonic(ctx context.Context, id string, updatedAt time.Time, updates []firestore.Update) error {
	ref := r.s.sessionsCol().Doc(id)
	err := r.s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		current, err := snap.DataAt("updatedAt")
		if err != nil {
			return err
		}
		writes := append([]firestore.Update(nil), updates...)
		if ts, ok := current.(time.Time); !ok || updatedAt.After(ts) {
			writes = append(writes, firestore.Update{Path: "updatedAt", Value: updatedAt})
		}
		return tx.Update(ref, writes)
	})
	if err != nil {
		if isNotFound(err) {
			return domain.ErrSessionNotFound
		}
		return fmt.Errorf("firestore UpdateSession: %w", err)
	}
	return nil
}

// DeleteWithMessages deletes the session and every message in one transaction. Either all
// documents go or none do.
func (r *SessionRepository) DeleteWithMessages(ctx context.Context, id string) error {
	sessionRef := r.s.sessionsCol().Doc(id)
	err := r.s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(sessionRef); err != nil {
			return err
		}

		refs, err := tx.Documents(r.s.messagesCol().Where("sessionId", "==", id)).GetAll()
		if err != nil {
			return err
		}
		if len(refs)+1 > maxBatchWrites {
			return fmt.Errorf("%w: %d messages", ErrBatchTooLarge, len(refs))
		}

		for _, snap := range refs {
			if err := tx.Delete(snap.Ref); err != nil {
				return err
			}
		}
		return tx.Delete(sessionRef)
	})
	if err != nil {
		if isNotFound(err) {
			return domain.ErrSessionNotFound
		}
		return fmt.Errorf("firestore DeleteSession: %w", err)
	}
	return nil
}

// MessageRepository implements domain.MessageRepository
type MessageRepository struct {
	s *Store
}

func (s *Store) Messages() *MessageRepository {
	return &MessageRepository{s: s}
}

func (r *MessageRepository) Create(ctx context.Context, message *domain.Message) error {
	if _, err := r.s.sessionsCol().Doc(message.SessionID).Get(ctx); err != nil {
		if isNotFound(err) {
			return domain.ErrSessionNotFound
		}
		return fmt.Errorf("firestore AppendMessage: %w", err)
	}

	ref := r.s.messagesCol().NewDoc()
	doc := messageDoc{
		SessionID: message.SessionID,
		Role:      string(message.Role),
		Content:   message.Content,
		Mode:      string(message.Mode),
		Metadata:  metadataDoc(message.Metadata),
		CreatedAt: message.CreatedAt,
	}
	if _, err := ref.Create(ctx, doc); err != nil {
		return fmt.Errorf("firestore AppendMessage: %w", err)
	}
	message.ID = ref.ID
	return nil
}

func (r *MessageRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.Message, error) {
	iter := r.s.messagesCol().
		Where("sessionId", "==", sessionID).
		OrderBy("createdAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	out := make([]domain.Message, 0)
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore GetMessagesBySession: %w", err)
		}

		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode messageDoc: %w", err)
		}

		out = append(out, domain.Message{
			ID:        snap.Ref.ID,
			SessionID: doc.SessionID,
			Role:      domain.MessageRole(doc.Role),
			Content:   doc.Content,
			Mode:      domain.Mode(doc.Mode),
			Metadata:  domain.MessageMetadata(doc.Metadata),
			CreatedAt: doc.CreatedAt,
		})
	}
	return out, nil
}

// CountBySession uses a server-side aggregation
func (r *MessageRepository) CountBySession(ctx context.Context, sessionID string) (int, error) {
	q := r.s.messagesCol().
		Where("sessionId", "==", sessionID)
	res, err := q.
		NewAggregationQuery().
		WithCount("count").
		Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("firestore CountMessages: %w", err)
	}

	value, ok := res["count"].(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("firestore CountMessages: unexpected result %T", res["count"])
	}
	return int(value.GetIntegerValue()), nil
}

// PatchMetadata updates each present field by path inside a transaction that
// first checks the message belongs to sessionID
func (r *MessageRepository) PatchMetadata(ctx context.Context, sessionID, id string, patch domain.MessageMetadata) error {
	var updates []firestore.Update
	if patch.ImageURL != "" {
		updates = append(updates, firestore.Update{Path: "metadata.imageUrl", Value: patch.ImageURL})
	}
	if patch.Platform != "" {
		updates = append(updates, firestore.Update{Path: "metadata.platform", Value: patch.Platform})
	}
	if patch.Prompt != "" {
		updates = append(updates, firestore.Update{Path: "metadata.prompt", Value: patch.Prompt})
	}
	if patch.ClientID != "" {
		updates = append(updates, firestore.Update{Path: "metadata.clientId", Value: patch.ClientID})
	}
	if patch.UsedFallback {
		updates = append(updates, firestore.Update{Path: "metadata.usedFallback", Value: true})
	}

	ref := r.s.messagesCol().Doc(id)
	err := r.s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return domain.ErrMessageNotFound
			}
			return err
		}
		owner, err := snap.DataAt("sessionId")
		if err != nil || owner != sessionID {
			return domain.ErrMessageNotFound
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Update(ref, updates)
	})
	if err != nil {
		if errors.Is(err, domain.ErrMessageNotFound) {
			return domain.ErrMessageNotFound
		}
		return fmt.Errorf("firestore PatchMetadata: %w", err)
	}
	return nil
}
