package domain

import (
	"context"
	"time"
)

// MessageRole represents the sender of a message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// MessageMetadata is the only part of a message that may change after persistence
type MessageMetadata struct {
	ImageURL string `json:"image_url,omitempty"`
	Platform string `json:"platform,omitempty"`
	Prompt   string `json:"prompt,omitempty"`
	// ClientID reconciles optimistic local entries with persisted IDs
	ClientID     string `json:"client_id,omitempty"`
	UsedFallback bool   `json:"used_fallback,omitempty"`
}

// Merge overlays the non-zero fields of patch. Fields absent from the patch,
// the client ID in particular, keep their stored value.
func (m MessageMetadata) Merge(patch MessageMetadata) MessageMetadata {
	if patch.ImageURL != "" {
		m.ImageURL = patch.ImageURL
	}
	if patch.Platform != "" {
		m.Platform = patch.Platform
	}
	if patch.Prompt != "" {
		m.Prompt = patch.Prompt
	}
	if patch.ClientID != "" {
		m.ClientID = patch.ClientID
	}
	if patch.UsedFallback {
		m.UsedFallback = true
	}
	return m
}

// IsZero reports whether the patch would change nothing
func (m MessageMetadata) IsZero() bool {
	return m == MessageMetadata{}
}

// Message represents a chat message in a session
type Message struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Role      MessageRole     `json:"role"`
	Content   string          `json:"content"`
	Mode      Mode            `json:"mode"`
	Metadata  MessageMetadata `json:"metadata"`
	CreatedAt time.Time       `json:"created_at"`
}

// MessageRepository defines the interface for message storage
type MessageRepository interface {
	// Create persists a new message and assigns its ID
	Create(ctx context.Context, message *Message) error
	ListBySession(ctx context.Context, sessionID string) ([]Message, error)
	CountBySession(ctx context.Context, sessionID string) (int, error)
	// PatchMetadata merges patch into the metadata of message id. A message that
	// does not exist or belongs to another session yields ErrMessageNotFound.
	PatchMetadata(ctx context.Context, sessionID, id string, patch MessageMetadata) error
}
