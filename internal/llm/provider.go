package llm

import (
	"context"

	"github.com/Rrens/social-content-generator/internal/domain"
)

// Task selects the prompt template and fallback rules for a generation call
type Task string

const (
	TaskEnhance Task = "enhance"
	TaskPrompt  Task = "prompt"
	TaskSocial  Task = "social"
)

// Request contains text generation parameters
type Request struct {
	Input     string
	Task      Task
	Platform  domain.Platform
	InputKind domain.InputKind
}

// Result is always usable: either remote text or a local fallback
type Result struct {
	Text         string
	UsedFallback bool
	Attempts     int
	Provider     string
}

// Provider defines the interface for remote text generation providers
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// GenerateText sends a single prompt and returns the raw model output
	GenerateText(ctx context.Context, prompt string) (string, error)
}
