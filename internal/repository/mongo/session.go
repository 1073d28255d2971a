package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/social-content-generator/internal/domain"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type sessionDoc struct {
	ID           string    `bson:"_id"`
	UserID       string    `bson:"user_id"`
	Title        string    `bson:"title"`
	Mode         string    `bson:"mode"`
	MessageCount int       `bson:"message_count"`
	LastMessage  string    `bson:"last_message"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func (d sessionDoc) toDomain() domain.ChatSession {
	return domain.ChatSession{
		ID:           d.ID,
		UserID:       d.UserID,
		Title:        d.Title,
		Mode:         domain.Mode(d.Mode),
		MessageCount: d.MessageCount,
		LastMessage:  d.LastMessage,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// SessionRepository implements domain.SessionRepository
type SessionRepository struct {
	client   *mongo.Client
	col      *mongo.Collection
	messages *mongo.Collection
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{
		client:   db.Client,
		col:      db.Database.Collection(sessionsCollection),
		messages: db.Database.Collection(messagesCollection),
	}
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.ChatSession) error {
	doc := sessionDoc{
		ID:           uuid.New().String(),
		UserID:       session.UserID,
		Title:        session.Title,
		Mode:         string(session.Mode),
		MessageCount: session.MessageCount,
		LastMessage:  session.LastMessage,
		CreatedAt:    session.CreatedAt,
		UpdatedAt:    session.UpdatedAt,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	session.ID = doc.ID
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.ChatSession, error) {
	var doc sessionDoc
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	s := doc.toDomain()
	return &s, nil
}

func (r *SessionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.ChatSession, error) {
	if limit <= 0 {
		limit = domain.DefaultSessionPageSize
	}
	findOpts := options.Find().SetLimit(int64(limit)).SetSort(bson.D{
		{Key: "updated_at", Value: -1},
		{Key: "_id", Value: 1},
	})

	cursor, err := r.col.Find(ctx, bson.M{"user_id": userID}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []sessionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}

	sessions := make([]domain.ChatSession, 0, len(docs))
	for _, d := range docs {
		sessions = append(sessions, d.toDomain())
	}
	return sessions, nil
}

func (r *SessionRepository) UpdateStats(ctx context.Context, id string, stats domain.SessionStats) error {
	update := bson.M{
		"$set": bson.M{
			"message_count": stats.MessageCount,
			"last_message":  stats.LastMessage,
		},
		"$max": bson.M{"updated_at": stats.UpdatedAt},
	}
	return r.updateOne(ctx, id, update, "update session stats")
}

func (r *SessionRepository) Rename(ctx context.Context, id, title string, updatedAt time.Time) error {
	update := bson.M{
		"$set": bson.M{"title": title},
		"$max": bson.M{"updated_at": updatedAt},
	}
	return r.updateOne(ctx, id, update, "rename session")
}

func (r *SessionRepository) updateOne(ctx context.Context, id string, update bson.M, op string) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// DeleteWithMessages removes the session and its messages in one multi-document transaction.
// Transactions need a replica set or sharded cluster.
func (r *SessionRepository) DeleteWithMessages(ctx context.Context, id string) error {
	sess, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := r.messages.DeleteMany(sc, bson.M{"session_id": id}); err != nil {
			return nil, fmt.Errorf("failed to delete messages: %w", err)
		}
		res, err := r.col.DeleteOne(sc, bson.M{"_id": id})
		if err != nil {
			return nil, fmt.Errorf("failed to delete session: %w", err)
		}
		if res.DeletedCount == 0 {
			return nil, domain.ErrSessionNotFound
		}
		return nil, nil
	})
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.ErrSessionNotFound
	}
	return err
}
