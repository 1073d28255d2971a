// Package repotest holds the behaviour every session/message store driver must share.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/Rrens/social-content-generator/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises a driver pair against the common contract. Each test uses a fresh user ID
// so the suite can share a live database.
func Run(t *testing.T, sessions domain.SessionRepository, messages domain.MessageRepository) {
	t.Run("CreateGetList", func(t *testing.T) { testCreateGetList(t, sessions) })
	t.Run("UpdateStatsMonotonic", func(t *testing.T) { testUpdateStats(t, sessions) })
	t.Run("Rename", func(t *testing.T) { testRename(t, sessions) })
	t.Run("MessagesOrderedAndCounted", func(t *testing.T) { testMessages(t, sessions, messages) })
	t.Run("PatchScopedToSession", func(t *testing.T) { testPatchScopedToSession(t, sessions, messages) })
	t.Run("DeleteCascades", func(t *testing.T) { testDelete(t, sessions, messages) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, sessions, messages) })
}

func newSession(t *testing.T, repo domain.SessionRepository, userID string, at time.Time) *domain.ChatSession {
	t.Helper()
	s := &domain.ChatSession{
		UserID:    userID,
		Title:     domain.DeriveTitle(domain.ModeSocial, "contract test"),
		Mode:      domain.ModeSocial,
		CreatedAt: at,
		UpdatedAt: at,
	}
	require.NoError(t, repo.Create(context.Background(), s))
	require.NotEmpty(t, s.ID)
	return s
}

func base() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func testCreateGetList(t *testing.T, repo domain.SessionRepository) {
	ctx := context.Background()
	user := uuid.New().String()
	now := base()

	older := newSession(t, repo, user, now)
	newer := newSession(t, repo, user, now.Add(time.Minute))

	got, err := repo.Get(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, user, got.UserID)
	assert.Equal(t, domain.ModeSocial, got.Mode)

	list, err := repo.ListByUser(ctx, user, 20)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)

	list, err = repo.ListByUser(ctx, user, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func testUpdateStats(t *testing.T, repo domain.SessionRepository) {
	ctx := context.Background()
	now := base()
	s := newSession(t, repo, uuid.New().String(), now)

	require.NoError(t, repo.UpdateStats(ctx, s.ID, domain.SessionStats{MessageCount: 2, LastMessage: "hello", UpdatedAt: now.Add(time.Second)}))
	require.NoError(t, repo.UpdateStats(ctx, s.ID, domain.SessionStats{MessageCount: 3, LastMessage: "late", UpdatedAt: now.Add(-time.Hour)}))

	got, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.MessageCount)
	assert.Equal(t, "late", got.LastMessage)
	assert.True(t, got.UpdatedAt.Equal(now.Add(time.Second)), "updated-at moved back to %s", got.UpdatedAt)
}

func testRename(t *testing.T, repo domain.SessionRepository) {
	ctx := context.Background()
	now := base()
	s := newSession(t, repo, uuid.New().String(), now)

	require.NoError(t, repo.Rename(ctx, s.ID, "Launch week", now.Add(time.Minute)))
	got, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Launch week", got.Title)
	assert.Equal(t, s.MessageCount, got.MessageCount)
}

func testMessages(t *testing.T, sessions domain.SessionRepository, messages domain.MessageRepository) {
	ctx := context.Background()
	now := base()
	s := newSession(t, sessions, uuid.New().String(), now)

	for i, content := range []string{"first", "second", "third"} {
		m := &domain.Message{
			SessionID: s.ID,
			Role:      domain.RoleUser,
			Content:   content,
			Mode:      domain.ModeSocial,
			Metadata:  domain.MessageMetadata{ClientID: content},
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, messages.Create(ctx, m))
		require.NotEmpty(t, m.ID)
	}

	n, err := messages.CountBySession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	list, err := messages.ListBySession(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "first", list[0].Content)
	assert.Equal(t, "third", list[2].Content)
	assert.Equal(t, "second", list[1].Metadata.ClientID)

	require.NoError(t, messages.PatchMetadata(ctx, s.ID, list[0].ID, domain.MessageMetadata{ImageURL: "https://cdn.example/img.png"}))

	list, err = messages.ListBySession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/img.png", list[0].Metadata.ImageURL)
	assert.Equal(t, "first", list[0].Metadata.ClientID)
	assert.Equal(t, "first", list[0].Content)
}

func testPatchScopedToSession(t *testing.T, sessions domain.SessionRepository, messages domain.MessageRepository) {
	ctx := context.Background()
	now := base()
	owner := newSession(t, sessions, uuid.New().String(), now)
	other := newSession(t, sessions, uuid.New().String(), now)

	m := &domain.Message{
		SessionID: owner.ID,
		Role:      domain.RoleAssistant,
		Content:   "caption",
		Mode:      domain.ModeSocial,
		Metadata:  domain.MessageMetadata{Platform: "instagram", ClientID: "c-1"},
		CreatedAt: now,
	}
	require.NoError(t, messages.Create(ctx, m))

	err := messages.PatchMetadata(ctx, other.ID, m.ID, domain.MessageMetadata{ImageURL: "https://elsewhere.example/x.png"})
	assert.ErrorIs(t, err, domain.ErrMessageNotFound)

	list, err := messages.ListBySession(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.MessageMetadata{Platform: "instagram", ClientID: "c-1"}, list[0].Metadata)

	require.NoError(t, messages.PatchMetadata(ctx, owner.ID, m.ID, domain.MessageMetadata{}))
}

func testDelete(t *testing.T, sessions domain.SessionRepository, messages domain.MessageRepository) {
	ctx := context.Background()
	now := base()
	s := newSession(t, sessions, uuid.New().String(), now)
	for i := 0; i < 4; i++ {
		require.NoError(t, messages.Create(ctx, &domain.Message{SessionID: s.ID, Role: domain.RoleUser, Content: "x", Mode: domain.ModeSocial, CreatedAt: now}))
	}

	require.NoError(t, sessions.DeleteWithMessages(ctx, s.ID))

	_, err := sessions.Get(ctx, s.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	n, err := messages.CountBySession(ctx, s.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testNotFound(t *testing.T, sessions domain.SessionRepository, messages domain.MessageRepository) {
	ctx := context.Background()
	missing := uuid.New().String()

	_, err := sessions.Get(ctx, missing)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, sessions.Rename(ctx, missing, "x", time.Now()), domain.ErrSessionNotFound)
	assert.ErrorIs(t, messages.PatchMetadata(ctx, missing, missing, domain.MessageMetadata{}), domain.ErrMessageNotFound)
}
