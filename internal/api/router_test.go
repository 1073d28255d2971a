package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Rrens/social-content-generator/internal/api"
	"github.com/Rrens/social-content-generator/internal/config"
	"github.com/Rrens/social-content-generator/internal/conversation"
	"github.com/Rrens/social-content-generator/internal/imagegen"
	"github.com/Rrens/social-content-generator/internal/llm"
	"github.com/Rrens/social-content-generator/internal/llm/gemini"
	"github.com/Rrens/social-content-generator/internal/realtime"
	"github.com/Rrens/social-content-generator/internal/repository/memory"
	"github.com/Rrens/social-content-generator/internal/security"
	"github.com/Rrens/social-content-generator/internal/service"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-with-32-chars!!"

type testServer struct {
	handler http.Handler
	jwt     *security.JWTManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			MiddlewareTimeout: 10 * time.Second,
			AllowedOrigins:    []string{"*"},
		},
	}

	clock := clockwork.NewRealClock()
	store := memory.NewStore()
	hub := realtime.NewHub()
	sessionsRepo := realtime.NewPublishingSessions(store.Sessions(), hub)
	sessions := service.NewSessionService(sessionsRepo, store.Messages(), realtime.NewNotifyWatcher(sessionsRepo, hub), clock)

	providers := llm.NewRouter("gemini")
	providers.RegisterProvider(gemini.NewProvider(config.GeminiConfig{}))
	provider, err := providers.GetProvider("")
	require.NoError(t, err)

	generation := service.NewGenerationService(
		llm.NewClient(provider, llm.WithClock(clock)),
		imagegen.NewClient(config.BriaConfig{}),
		nil,
	)
	jwt := security.NewJWTManager(testSecret, "", nil)

	return &testServer{
		handler: api.NewRouter(cfg, api.Deps{
			Generation:    generation,
			Sessions:      sessions,
			Conversations: conversation.NewRegistry(sessions, generation, clock, time.Hour),
			Providers:     providers,
			JWT:           jwt,
		}),
		jwt: jwt,
	}
}

func (s *testServer) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := s.jwt.GenerateAccessToken(userID, "", time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestEnhanceInput_Validation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body map[string]any
		want string
	}{
		{"empty input", map[string]any{"input": "", "platform": "instagram", "inputType": "topic"}, "Input is required"},
		{"missing platform", map[string]any{"input": "coffee", "inputType": "topic"}, "Platform is required"},
		{"missing input type", map[string]any{"input": "coffee", "platform": "instagram"}, "Input type is required"},
		{"bad input type", map[string]any{"input": "coffee", "platform": "instagram", "inputType": "essay"}, `Input type must be "topic" or "instructions"`},
		{"unknown platform", map[string]any{"input": "coffee", "platform": "myspace", "inputType": "topic"}, "Unsupported platform: myspace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/enhance-input", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, map[string]any{"error": tt.want}, decode(t, rec))
		})
	}
}

func TestEnhanceInput_FallbackWithoutCredential(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/enhance-input", "", map[string]any{
		"input": "cold brew coffee", "platform": "instagram", "inputType": "topic",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, true, body["usingFallback"])
	assert.Equal(t, "cold brew coffee", body["originalInput"])
	assert.Equal(t, "instagram", body["platform"])
	assert.Contains(t, body["enhancedInput"], "cold brew coffee")
	assert.Contains(t, body["enhancedInput"], "Instagram")
}

func TestGenerationRoutes_Fallback(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/generate-prompt", "", map[string]any{"input": "fox"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode(t, rec)["prompt"], "fox")

	rec = s.do(t, http.MethodPost, "/api/generate-social", "", map[string]any{"input": "fox", "platform": "x"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "twitter", body["platform"])
	assert.Equal(t, true, body["usingFallback"])

	rec = s.do(t, http.MethodPost, "/api/generate-image", "", map[string]any{"prompt": "fox", "aspectRatio": "16:9"})
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	images, ok := body["images"].([]any)
	require.True(t, ok)
	require.Len(t, images, 1)
	assert.Contains(t, images[0], "https://placehold.co/")

	rec = s.do(t, http.MethodPost, "/api/generate-image", "", map[string]any{"prompt": "fox", "aspectRatio": "7:3"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessions_RequireAuth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/v1/sessions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessions_CRUD(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/sessions", "alice", map[string]any{
		"mode": "prompt", "first_message": "A photo of a mountain at sunrise with dramatic lighting and",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode(t, rec)["data"].(map[string]any)
	id := created["id"].(string)
	assert.Equal(t, "🎨 Prompt: A photo of a mountain at sunrise with dr...", created["title"])

	rec = s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/messages", "alice", map[string]any{
		"role": "user", "content": "A photo of a mountain",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/messages", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["data"], 1)

	rec = s.do(t, http.MethodGet, "/api/v1/sessions/"+id, "bob", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPatch, "/api/v1/sessions/"+id, "alice", map[string]any{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPatch, "/api/v1/sessions/"+id, "alice", map[string]any{"title": "Mountains"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/sessions?mode=prompt", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)["data"].([]any)
	require.Len(t, list, 1)
	session := list[0].(map[string]any)
	assert.Equal(t, "Mountains", session["title"])
	assert.Equal(t, float64(1), session["message_count"])

	rec = s.do(t, http.MethodDelete, "/api/v1/sessions/"+id, "alice", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/sessions/"+id, "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConversations_Turns(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/conversations/tab-1/turns", "alice", map[string]any{
		"mode": "social", "text": "coffee", "platform": "linkedin",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, "persisted", result["state"])
	sessionID := result["session_id"].(string)

	rec = s.do(t, http.MethodPost, "/api/v1/conversations/tab-1/turns", "alice", map[string]any{
		"mode": "prompt", "text": "fox",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/conversations/tab-1", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode(t, rec)["data"].(map[string]any)
	assert.Len(t, view["entries"], 2)

	rec = s.do(t, http.MethodGet, "/api/v1/conversations/tab-1", "bob", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/v1/conversations/tab-1", "alice", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/sessions/"+sessionID, "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessions_Stream(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	token, err := s.jwt.GenerateAccessToken("alice", "", time.Hour)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/sessions/stream?access_token="+token, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan string, 8)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); strings.HasPrefix(line, "data: ") {
				events <- strings.TrimPrefix(line, "data: ")
			}
		}
		close(events)
	}()

	next := func() []map[string]any {
		select {
		case data, ok := <-events:
			require.True(t, ok, "stream closed")
			var list []map[string]any
			require.NoError(t, json.Unmarshal([]byte(data), &list))
			return list
		case <-ctx.Done():
			t.Fatal("no event received")
			return nil
		}
	}

	assert.Empty(t, next())

	rec := s.do(t, http.MethodPost, "/api/v1/sessions", "alice", map[string]any{"mode": "image", "first_message": "fox"})
	require.Equal(t, http.StatusCreated, rec.Code)

	list := next()
	require.Len(t, list, 1)
	assert.Equal(t, "🖼️ Image: fox", list[0]["title"])
}

func TestSessions_PatchMessageMetadata(t *testing.T) {
	s := newTestServer(t)

	newSession := func(userID string) string {
		rec := s.do(t, http.MethodPost, "/api/v1/sessions", userID, map[string]any{"mode": "image", "first_message": "fox"})
		require.Equal(t, http.StatusCreated, rec.Code)
		return decode(t, rec)["data"].(map[string]any)["id"].(string)
	}
	aliceSession := newSession("alice")
	mallorySession := newSession("mallory")

	rec := s.do(t, http.MethodPost, "/api/v1/sessions/"+aliceSession+"/messages", "alice", map[string]any{
		"role": "assistant", "content": "a fox at dusk",
		"metadata": map[string]any{"client_id": "c-1", "prompt": "a fox at dusk"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	messageID := decode(t, rec)["data"].(map[string]any)["id"].(string)

	history := func() map[string]any {
		rec := s.do(t, http.MethodGet, "/api/v1/sessions/"+aliceSession+"/messages", "alice", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		list := decode(t, rec)["data"].([]any)
		require.Len(t, list, 1)
		return list[0].(map[string]any)["metadata"].(map[string]any)
	}

	t.Run("message of another session is not found", func(t *testing.T) {
		rec := s.do(t, http.MethodPatch, "/api/v1/sessions/"+mallorySession+"/messages/"+messageID, "mallory", map[string]any{
			"metadata": map[string]any{"image_url": "https://elsewhere.example/x.png"},
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.NotContains(t, history(), "image_url")
	})

	t.Run("partial patch keeps the other fields", func(t *testing.T) {
		rec := s.do(t, http.MethodPatch, "/api/v1/sessions/"+aliceSession+"/messages/"+messageID, "alice", map[string]any{
			"metadata": map[string]any{"image_url": "https://cdn.example/fox.png"},
		})
		require.Equal(t, http.StatusOK, rec.Code)

		assert.Equal(t, map[string]any{
			"image_url": "https://cdn.example/fox.png",
			"client_id": "c-1",
			"prompt":    "a fox at dusk",
		}, history())
	})
}

func TestAccessTokenQueryOnlyOnStream(t *testing.T) {
	s := newTestServer(t)
	token, err := s.jwt.GenerateAccessToken("alice", "", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions?access_token="+token, nil)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
