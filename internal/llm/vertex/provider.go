package vertex

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Rrens/social-content-generator/internal/config"
	"github.com/Rrens/social-content-generator/internal/llm"
	"google.golang.org/genai"
)

const defaultModel = "gemini-2.5-flash"

// Provider implements llm.Provider on Vertex AI through Application Default Credentials
type Provider struct {
	projectID string
	location  string
	model     string

	mu     sync.Mutex
	client *genai.Client
}

// NewProvider creates a new Vertex AI provider. The client is created on first use.
func NewProvider(cfg config.VertexConfig) *Provider {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Provider{
		projectID: cfg.ProjectID,
		location:  cfg.Location,
		model:     model,
	}
}

func (p *Provider) Name() string {
	return "vertex"
}

func (p *Provider) IsConfigured() bool {
	return strings.TrimSpace(p.projectID) != "" && strings.TrimSpace(p.location) != ""
}

func (p *Provider) GenerateText(ctx context.Context, prompt string) (string, error) {
	if !p.IsConfigured() {
		return "", llm.ErrNotConfigured
	}

	client, err := p.getClient(ctx)
	if err != nil {
		return "", err
	}

	temp := float32(0.8)
	cfg := &genai.GenerateContentConfig{Temperature: &temp}

	res, err := client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", normalizeError(err)
	}

	text := res.Text()
	if text == "" {
		return "", &llm.RemoteError{Provider: p.Name(), Message: "vertex returned empty text", Err: llm.ErrMalformedResponse}
	}
	return text, nil
}

func (p *Provider) getClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  p.projectID,
		Location: p.location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}
	p.client = client
	return client, nil
}

func normalizeError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &llm.RemoteError{Provider: "vertex", StatusCode: apiErr.Code, Message: apiErr.Status + ": " + apiErr.Message, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &llm.RemoteError{Provider: "vertex", StatusCode: apiErrPtr.Code, Message: apiErrPtr.Status + ": " + apiErrPtr.Message, Err: err}
	}
	return &llm.RemoteError{Provider: "vertex", Message: err.Error(), Err: err}
}
