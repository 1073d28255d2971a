package service

import (
	"context"
	"fmt"

	"github.com/Rrens/social-content-generator/internal/domain"
	"github.com/Rrens/social-content-generator/internal/imagegen"
	"github.com/Rrens/social-content-generator/internal/llm"
	"github.com/rs/zerolog/log"
)

// TextGenerator produces text for a request and never fails
type TextGenerator interface {
	Generate(ctx context.Context, req llm.Request) llm.Result
	ProviderName() string
}

// ImageGenerator produces image URLs and never fails
type ImageGenerator interface {
	Generate(ctx context.Context, req imagegen.Request) imagegen.Result
}

// TextCache stores remote generation output
type TextCache interface {
	Key(parts ...string) string
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, text string) error
}

// GenerationService runs the three generation flows on top of the resilient clients
type GenerationService struct {
	text   TextGenerator
	images ImageGenerator
	cache  TextCache
}

// NewGenerationService creates a generation service. cache may be nil.
func NewGenerationService(text TextGenerator, images ImageGenerator, cache TextCache) *GenerationService {
	return &GenerationService{text: text, images: images, cache: cache}
}

// EnhanceInput rewrites a topic or instructions for the target platform
func (s *GenerationService) EnhanceInput(ctx context.Context, input string, platform domain.Platform, kind domain.InputKind) llm.Result {
	return s.generate(ctx, llm.Request{Input: input, Task: llm.TaskEnhance, Platform: platform, InputKind: kind})
}

// GeneratePrompt turns an idea into a text-to-image prompt
func (s *GenerationService) GeneratePrompt(ctx context.Context, input string) llm.Result {
	return s.generate(ctx, llm.Request{Input: input, Task: llm.TaskPrompt, InputKind: domain.InputTopic})
}

// GenerateSocial writes a post for the platform
func (s *GenerationService) GenerateSocial(ctx context.Context, input string, platform domain.Platform, kind domain.InputKind) llm.Result {
	return s.generate(ctx, llm.Request{Input: input, Task: llm.TaskSocial, Platform: platform, InputKind: kind})
}

// GenerateImage renders the prompt
func (s *GenerationService) GenerateImage(ctx context.Context, prompt, aspectRatio string) imagegen.Result {
	return s.images.Generate(ctx, imagegen.Request{Prompt: prompt, AspectRatio: aspectRatio, NumResults: 1})
}

// Reply produces the assistant message for a conversation turn
func (s *GenerationService) Reply(ctx context.Context, mode domain.Mode, turn domain.Turn) (domain.Reply, error) {
	switch mode {
	case domain.ModePrompt:
		res := s.GeneratePrompt(ctx, turn.Text)
		return domain.Reply{
			Content:  res.Text,
			Metadata: domain.MessageMetadata{Prompt: res.Text, UsedFallback: res.UsedFallback},
		}, nil

	case domain.ModeSocial:
		kind := turn.InputKind
		if kind == "" {
			kind = domain.InputTopic
		}
		res := s.GenerateSocial(ctx, turn.Text, turn.Platform, kind)
		return domain.Reply{
			Content: res.Text,
			Metadata: domain.MessageMetadata{
				Platform:     turn.Platform.String(),
				UsedFallback: res.UsedFallback,
			},
		}, nil

	case domain.ModeImage:
		res := s.GenerateImage(ctx, turn.Text, turn.AspectRatio)
		imageURL := imagegen.Placeholder(imagegen.Request{Prompt: turn.Text, AspectRatio: turn.AspectRatio})
		if len(res.Images) > 0 {
			imageURL = res.Images[0]
		}
		return domain.Reply{
			Content: turn.Text,
			Metadata: domain.MessageMetadata{
				ImageURL:     imageURL,
				Prompt:       turn.Text,
				UsedFallback: res.UsedFallback,
			},
		}, nil
	}

	return domain.Reply{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedMode, mode)
}

func (s *GenerationService) generate(ctx context.Context, req llm.Request) llm.Result {
	var key string
	if s.cache != nil {
		key = s.cache.Key(string(req.Task), req.Platform.String(), string(req.InputKind), req.Input)
		text, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			log.Warn().Err(err).Msg("Generation cache read failed")
		}
		if ok {
			return llm.Result{Text: text, Provider: s.text.ProviderName()}
		}
	}

	res := s.text.Generate(ctx, req)

	if s.cache != nil && !res.UsedFallback {
		if err := s.cache.Set(ctx, key, res.Text); err != nil {
			log.Warn().Err(err).Msg("Generation cache write failed")
		}
	}
	return res
}
