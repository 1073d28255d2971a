package service

import (
	"context"
	"time"

	"github.com/Rrens/social-content-generator/internal/domain"
	"github.com/Rrens/social-content-generator/internal/imagegen"
	"github.com/Rrens/social-content-generator/internal/llm"
	"github.com/stretchr/testify/mock"
)

// MockMessageRepository mocks the MessageRepository interface
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, message *domain.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockMessageRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.Message, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockMessageRepository) CountBySession(ctx context.Context, sessionID string) (int, error) {
	args := m.Called(ctx, sessionID)
	return args.Int(0), args.Error(1)
}

func (m *MockMessageRepository) PatchMetadata(ctx context.Context, sessionID, id string, patch domain.MessageMetadata) error {
	args := m.Called(ctx, sessionID, id, patch)
	return args.Error(0)
}

// MockSessionRepository mocks the SessionRepository interface
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.ChatSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) Get(ctx context.Context, id string) (*domain.ChatSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatSession), args.Error(1)
}

func (m *MockSessionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.ChatSession, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]domain.ChatSession), args.Error(1)
}

func (m *MockSessionRepository) UpdateStats(ctx context.Context, id string, stats domain.SessionStats) error {
	args := m.Called(ctx, id, stats)
	return args.Error(0)
}

func (m *MockSessionRepository) Rename(ctx context.Context, id, title string, updatedAt time.Time) error {
	args := m.Called(ctx, id, title, updatedAt)
	return args.Error(0)
}

func (m *MockSessionRepository) DeleteWithMessages(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockSessionWatcher mocks the SessionWatcher interface
type MockSessionWatcher struct {
	mock.Mock
}

func (m *MockSessionWatcher) WatchSessions(ctx context.Context, userID string, limit int) (domain.SessionIterator, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.SessionIterator), args.Error(1)
}

// failingIterator yields one list and then a stream error
type failingIterator struct {
	first   []domain.ChatSession
	served  bool
	stopped bool
}

func (f *failingIterator) Next() ([]domain.ChatSession, error) {
	if !f.served {
		f.served = true
		return f.first, nil
	}
	return nil, context.DeadlineExceeded
}

func (f *failingIterator) Stop() { f.stopped = true }

// MockTextGenerator mocks TextGenerator
type MockTextGenerator struct {
	mock.Mock
}

func (m *MockTextGenerator) Generate(ctx context.Context, req llm.Request) llm.Result {
	args := m.Called(ctx, req)
	return args.Get(0).(llm.Result)
}

func (m *MockTextGenerator) ProviderName() string {
	return "mock"
}

// MockImageGenerator mocks ImageGenerator
type MockImageGenerator struct {
	mock.Mock
}

func (m *MockImageGenerator) Generate(ctx context.Context, req imagegen.Request) imagegen.Result {
	args := m.Called(ctx, req)
	return args.Get(0).(imagegen.Result)
}

// mapCache is an in-memory TextCache
type mapCache struct {
	data map[string]string
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string]string)}
}

func (c *mapCache) Key(parts ...string) string {
	key := ""
	for _, p := range parts {
		key += p + "|"
	}
	return key
}

func (c *mapCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) Set(ctx context.Context, key, text string) error {
	c.data[key] = text
	return nil
}
