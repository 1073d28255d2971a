package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/Rrens/social-content-generator/internal/domain"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type metadataDoc struct {
	ImageURL     string `bson:"image_url,omitempty"`
	Platform     string `bson:"platform,omitempty"`
	Prompt       string `bson:"prompt,omitempty"`
	ClientID     string `bson:"client_id,omitempty"`
	UsedFallback bool   `bson:"used_fallback,omitempty"`
}

type messageDoc struct {
	ID        string      `bson:"_id"`
	SessionID string      `bson:"session_id"`
	Role      string      `bson:"role"`
	Content   string      `bson:"content"`
	Mode      string      `bson:"mode"`
	Metadata  metadataDoc `bson:"metadata"`
	CreatedAt time.Time   `bson:"created_at"`
}

func toMetadataDoc(m domain.MessageMetadata) metadataDoc {
	return metadataDoc(m)
}

func (d messageDoc) toDomain() domain.Message {
	return domain.Message{
		ID:        d.ID,
		SessionID: d.SessionID,
		Role:      domain.MessageRole(d.Role),
		Content:   d.Content,
		Mode:      domain.Mode(d.Mode),
		Metadata:  domain.MessageMetadata(d.Metadata),
		CreatedAt: d.CreatedAt,
	}
}

// MessageRepository implements domain.MessageRepository
type MessageRepository struct {
	col      *mongo.Collection
	sessions *mongo.Collection
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{
		col:      db.Database.Collection(messagesCollection),
		sessions: db.Database.Collection(sessionsCollection),
	}
}

func (r *MessageRepository) Create(ctx context.Context, message *domain.Message) error {
	n, err := r.sessions.CountDocuments(ctx, bson.M{"_id": message.SessionID}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}

	doc := messageDoc{
		ID:        uuid.New().String(),
		SessionID: message.SessionID,
		Role:      string(message.Role),
		Content:   message.Content,
		Mode:      string(message.Mode),
		Metadata:  toMetadataDoc(message.Metadata),
		CreatedAt: message.CreatedAt,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	message.ID = doc.ID
	return nil
}

func (r *MessageRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.Message, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.col.Find(ctx, bson.M{"session_id": sessionID}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []messageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}

	messages := make([]domain.Message, 0, len(docs))
	for _, d := range docs {
		messages = append(messages, d.toDomain())
	}
	return messages, nil
}

func (r *MessageRepository) CountBySession(ctx context.Context, sessionID string) (int, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return int(n), nil
}

// PatchMetadata sets only the metadata fields present in patch
func (r *MessageRepository) PatchMetadata(ctx context.Context, sessionID, id string, patch domain.MessageMetadata) error {
	filter := bson.M{"_id": id, "session_id": sessionID}

	set := bson.M{}
	if patch.ImageURL != "" {
		set["metadata.image_url"] = patch.ImageURL
	}
	if patch.Platform != "" {
		set["metadata.platform"] = patch.Platform
	}
	if patch.Prompt != "" {
		set["metadata.prompt"] = patch.Prompt
	}
	if patch.ClientID != "" {
		set["metadata.client_id"] = patch.ClientID
	}
	if patch.UsedFallback {
		set["metadata.used_fallback"] = true
	}

	if len(set) == 0 {
		n, err := r.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
		if err != nil {
			return fmt.Errorf("failed to patch message metadata: %w", err)
		}
		if n == 0 {
			return domain.ErrMessageNotFound
		}
		return nil
	}

	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to patch message metadata: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}
