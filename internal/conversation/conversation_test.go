package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Rrens/social-content-generator/internal/domain"
	"github.com/Rrens/social-content-generator/internal/repository/memory"
	"github.com/Rrens/social-content-generator/internal/service"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoGenerator replies with the input wrapped in the mode name
type echoGenerator struct{}

func (echoGenerator) Reply(ctx context.Context, mode domain.Mode, turn domain.Turn) (domain.Reply, error) {
	return domain.Reply{
		Content:  string(mode) + ": " + turn.Text,
		Metadata: domain.MessageMetadata{Platform: turn.Platform.String()},
	}, nil
}

type fixture struct {
	store    *memory.Store
	sessions *service.SessionService
	clock    *clockwork.FakeClock
}

func newFixture() *fixture {
	store := memory.NewStore()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	return &fixture{
		store:    store,
		sessions: service.NewSessionService(store.Sessions(), store.Messages(), nil, clock),
		clock:    clock,
	}
}

func (f *fixture) conversation(mode domain.Mode) *Conversation {
	return New("user-1", mode, f.sessions, echoGenerator{}, f.clock)
}

func TestConversation_FirstTurnPersists(t *testing.T) {
	f := newFixture()
	c := f.conversation(domain.ModeSocial)
	assert.Equal(t, StateAbsent, c.State())

	res, err := c.Submit(context.Background(), domain.Turn{Text: " coffee launch ", Platform: domain.PlatformInstagram})
	require.NoError(t, err)

	assert.Equal(t, StatePersisted, res.State)
	assert.NotEmpty(t, res.SessionID)
	assert.True(t, res.User.Synced)
	assert.True(t, res.Assistant.Synced)
	assert.NotEmpty(t, res.User.Message.ID)
	assert.Equal(t, res.User.ClientID, res.User.Message.Metadata.ClientID)
	assert.Equal(t, "social: coffee launch", res.Assistant.Message.Content)

	session, err := f.store.Sessions().Get(context.Background(), res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "📱 Social: coffee launch", session.Title)
	assert.Equal(t, 2, session.MessageCount)
}

func TestConversation_PendingUntilCreateSucceeds(t *testing.T) {
	f := newFixture()
	c := f.conversation(domain.ModePrompt)
	ctx := context.Background()

	f.store.FailOn(memory.OpCreateSession, errors.New("offline"))
	res, err := c.Submit(ctx, domain.Turn{Text: "fox"})
	require.NoError(t, err)
	assert.Equal(t, StatePending, res.State)
	assert.Empty(t, res.SessionID)
	assert.False(t, res.User.Synced)
	assert.Equal(t, "prompt: fox", res.Assistant.Message.Content)

	f.store.FailOn(memory.OpCreateSession, nil)
	f.clock.Advance(time.Minute)
	res, err = c.Submit(ctx, domain.Turn{Text: "owl"})
	require.NoError(t, err)
	assert.Equal(t, StatePersisted, res.State)

	for _, e := range c.Entries() {
		assert.True(t, e.Synced, e.Message.Content)
	}

	history := f.sessions.LoadHistory(ctx, res.SessionID)
	require.Len(t, history, 4)
	assert.Equal(t, []string{"fox", "prompt: fox", "owl", "prompt: owl"}, contents(history))

	session, err := f.store.Sessions().Get(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "🎨 Prompt: fox", session.Title, "title comes from the first message")
}

func TestConversation_AppendFailureRetriedInOrder(t *testing.T) {
	f := newFixture()
	c := f.conversation(domain.ModeSocial)
	ctx := context.Background()

	res, err := c.Submit(ctx, domain.Turn{Text: "one"})
	require.NoError(t, err)
	sessionID := res.SessionID

	f.store.FailOn(memory.OpCreateMessage, errors.New("write failed"))
	f.clock.Advance(time.Second)
	res, err = c.Submit(ctx, domain.Turn{Text: "two"})
	require.NoError(t, err, "append failures never fail the turn")
	assert.False(t, res.User.Synced)
	assert.False(t, res.Assistant.Synced)

	f.store.FailOn(memory.OpCreateMessage, nil)
	f.clock.Advance(time.Second)
	_, err = c.Submit(ctx, domain.Turn{Text: "three"})
	require.NoError(t, err)

	history := f.sessions.LoadHistory(ctx, sessionID)
	assert.Equal(t, []string{"one", "social: one", "two", "social: two", "three", "social: three"}, contents(history))

	session, err := f.store.Sessions().Get(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, 6, session.MessageCount)
}

func TestConversation_EmptyInput(t *testing.T) {
	c := newFixture().conversation(domain.ModeSocial)
	_, err := c.Submit(context.Background(), domain.Turn{Text: "   "})
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Equal(t, StateAbsent, c.State())
}

func TestConversation_RenameAndDelete(t *testing.T) {
	f := newFixture()
	c := f.conversation(domain.ModeImage)
	ctx := context.Background()

	assert.ErrorIs(t, c.Rename(ctx, "x"), ErrNotPersisted)

	res, err := c.Submit(ctx, domain.Turn{Text: "fox", AspectRatio: "1:1"})
	require.NoError(t, err)

	require.NoError(t, c.Rename(ctx, "Foxes"))
	session, err := f.store.Sessions().Get(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "Foxes", session.Title)

	f.store.FailOn(memory.OpDelete, errors.New("unavailable"))
	require.Error(t, c.Delete(ctx))
	assert.Equal(t, StatePersisted, c.State())

	f.store.FailOn(memory.OpDelete, nil)
	require.NoError(t, c.Delete(ctx))
	assert.Equal(t, StateDeleted, c.State())
	assert.Empty(t, c.Entries())
	assert.Empty(t, f.sessions.LoadHistory(ctx, res.SessionID))

	_, err = c.Submit(ctx, domain.Turn{Text: "again"})
	assert.ErrorIs(t, err, ErrDeleted)
	assert.ErrorIs(t, c.Rename(ctx, "x"), ErrDeleted)
	assert.NoError(t, c.Delete(ctx))
}

func TestConversation_DeletePendingSkipsStore(t *testing.T) {
	f := newFixture()
	c := f.conversation(domain.ModeSocial)
	ctx := context.Background()

	f.store.FailOn(memory.OpCreateSession, errors.New("offline"))
	_, err := c.Submit(ctx, domain.Turn{Text: "draft"})
	require.NoError(t, err)

	f.store.FailOn(memory.OpDelete, errors.New("must not be called"))
	require.NoError(t, c.Delete(ctx))
	assert.Equal(t, StateDeleted, c.State())
}

func contents(messages []domain.Message) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.Content
	}
	return out
}
