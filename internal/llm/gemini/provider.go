package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Rrens/social-content-generator/internal/config"
	"github.com/Rrens/social-content-generator/internal/llm"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const defaultModel = "gemini-2.5-flash"

// Provider implements llm.Provider for the Gemini API
type Provider struct {
	apiKey      string
	model       string
	temperature float32
}

// NewProvider creates a new Gemini provider
func NewProvider(cfg config.GeminiConfig) *Provider {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Provider{
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: cfg.Temperature,
	}
}

func (p *Provider) Name() string {
	return "gemini"
}

func (p *Provider) IsConfigured() bool {
	return strings.TrimSpace(p.apiKey) != ""
}

func (p *Provider) GenerateText(ctx context.Context, prompt string) (string, error) {
	if !p.IsConfigured() {
		return "", llm.ErrNotConfigured
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(p.model)
	temperature := p.temperature
	model.Temperature = &temperature

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", normalizeError(err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", &llm.RemoteError{Provider: p.Name(), Message: "no candidates in response", Err: llm.ErrMalformedResponse}
	}

	var output strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			output.WriteString(string(text))
		}
	}

	return output.String(), nil
}

func normalizeError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &llm.RemoteError{Provider: "gemini", StatusCode: apiErr.Code, Message: apiErr.Message, Err: err}
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		remote := &llm.RemoteError{Provider: "gemini", Message: st.Message(), Err: err}
		switch st.Code() {
		case codes.ResourceExhausted:
			remote.StatusCode = 429
		case codes.Unauthenticated:
			remote.StatusCode = 401
		case codes.PermissionDenied:
			remote.StatusCode = 403
		case codes.Unavailable:
			remote.StatusCode = 503
		}
		return remote
	}

	return &llm.RemoteError{Provider: "gemini", Message: err.Error(), Err: err}
}
