package vertex

import (
	"errors"
	"testing"

	"github.com/Rrens/social-content-generator/internal/config"
	"github.com/Rrens/social-content-generator/internal/llm"
	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

func TestProvider_IsConfigured(t *testing.T) {
	assert.False(t, NewProvider(config.VertexConfig{}).IsConfigured())
	assert.False(t, NewProvider(config.VertexConfig{ProjectID: "proj"}).IsConfigured())
	assert.True(t, NewProvider(config.VertexConfig{ProjectID: "proj", Location: "us-central1"}).IsConfigured())
}

func TestNormalizeError(t *testing.T) {
	exhausted := normalizeError(genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota"})
	assert.Equal(t, llm.ClassTerminal, llm.Classify(exhausted))

	var remote *llm.RemoteError
	assert.True(t, errors.As(exhausted, &remote))
	assert.Equal(t, 429, remote.StatusCode)

	unavailable := normalizeError(genai.APIError{Code: 503, Status: "UNAVAILABLE", Message: "overloaded"})
	assert.Equal(t, llm.ClassTransient, llm.Classify(unavailable))
}
