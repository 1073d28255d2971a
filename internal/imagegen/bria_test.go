package imagegen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Rrens/social-content-generator/internal/config"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, clock clockwork.Clock, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.BriaConfig{APIKey: "bria-key", BaseURL: srv.URL}, WithClock(clock))
}

func TestGenerate_Success(t *testing.T) {
	client := newTestClient(t, clockwork.NewFakeClock(), func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/text-to-image/base/2.3", r.URL.Path)
		assert.Equal(t, "bria-key", r.Header.Get("api_token"))

		var body textToImageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "16:9", body.AspectRatio)
		assert.True(t, body.Sync)

		w.Write([]byte(`{"result":[{"urls":["https://cdn.example/a.png"]}]}`))
	})

	res := client.Generate(context.Background(), Request{Prompt: "neon city", AspectRatio: "16:9"})
	assert.False(t, res.UsedFallback)
	assert.Equal(t, []string{"https://cdn.example/a.png"}, res.Images)
	assert.Equal(t, 1, res.Attempts)
}

func TestGenerate_QuotaIsTerminal(t *testing.T) {
	var calls int32
	client := newTestClient(t, clockwork.NewFakeClock(), func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	res := client.Generate(context.Background(), Request{Prompt: "neon city"})
	assert.True(t, res.UsedFallback)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.True(t, strings.HasPrefix(res.Images[0], "https://placehold.co/1024x1024/"))
}

func TestGenerate_EmptyResultRetries(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var calls int32
	client := newTestClient(t, clock, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"result":[]}`))
	})

	done := make(chan Result, 1)
	go func() { done <- client.Generate(context.Background(), Request{Prompt: "neon city"}) }()

	ctx := context.Background()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(2 * time.Second)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(4 * time.Second)

	res := <-done
	assert.True(t, res.UsedFallback)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGenerate_NotConfigured(t *testing.T) {
	client := NewClient(config.BriaConfig{})
	res := client.Generate(context.Background(), Request{Prompt: "a red fox", AspectRatio: "9:16"})

	assert.True(t, res.UsedFallback)
	assert.Equal(t, 0, res.Attempts)
	assert.Equal(t, "https://placehold.co/768x1344/png?text=a+red+fox", res.Images[0])
}

func TestNormalizeAspectRatio(t *testing.T) {
	ratio, err := NormalizeAspectRatio("")
	require.NoError(t, err)
	assert.Equal(t, "1:1", ratio)

	_, err = NormalizeAspectRatio("7:3")
	assert.ErrorIs(t, err, ErrUnsupportedAspectRatio)
}
