package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Rrens/social-content-generator/internal/api/response"
	"github.com/Rrens/social-content-generator/internal/domain"
	"github.com/Rrens/social-content-generator/internal/imagegen"
	"github.com/Rrens/social-content-generator/internal/service"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// GenerationHandler serves the generation routes consumed by the UI. Responses are plain
// JSON objects and always carry usable content once the request is valid.
type GenerationHandler struct {
	generation *service.GenerationService
}

// NewGenerationHandler creates a new generation handler
func NewGenerationHandler(generation *service.GenerationService) *GenerationHandler {
	return &GenerationHandler{generation: generation}
}

type enhanceInputRequest struct {
	Input     string `json:"input" validate:"required"`
	Platform  string `json:"platform" validate:"required"`
	InputType string `json:"inputType" validate:"required,oneof=topic instructions"`
}

type enhanceInputResponse struct {
	EnhancedInput string `json:"enhancedInput"`
	OriginalInput string `json:"originalInput"`
	Platform      string `json:"platform"`
	InputType     string `json:"inputType"`
	UsingFallback bool   `json:"usingFallback,omitempty"`
}

type generatePromptRequest struct {
	Input string `json:"input" validate:"required"`
}

type generateSocialRequest struct {
	Input     string `json:"input" validate:"required"`
	Platform  string `json:"platform" validate:"required"`
	InputType string `json:"inputType" validate:"omitempty,oneof=topic instructions"`
}

type generateImageRequest struct {
	Prompt      string `json:"prompt" validate:"required"`
	AspectRatio string `json:"aspectRatio"`
}

var validationMessages = map[string]string{
	"Input.required":     "Input is required",
	"Platform.required":  "Platform is required",
	"InputType.required": "Input type is required",
	"InputType.oneof":    `Input type must be "topic" or "instructions"`,
	"Prompt.required":    "Prompt is required",

	"Mode.required":         "mode is required",
	"FirstMessage.required": "first_message is required",
	"Text.required":         "text is required",
	"Role.required":         "role is required",
	"Role.oneof":            `role must be "user" or "assistant"`,
	"Content.required":      "content is required",
}

// validationMessage returns the message for the first failed field
func validationMessage(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		e := validationErrors[0]
		if msg, ok := validationMessages[e.Field()+"."+e.Tag()]; ok {
			return msg
		}
		return e.Field() + " is invalid"
	}
	return err.Error()
}

// decodeAndValidate trims string fields through the trim func, then validates
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any, trim func()) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.RawError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	trim()
	if err := validate.Struct(dst); err != nil {
		response.RawError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func parsePlatform(w http.ResponseWriter, name string) (domain.Platform, bool) {
	platform, err := domain.ParsePlatform(name)
	if err != nil {
		response.RawError(w, http.StatusBadRequest, "Unsupported platform: "+name)
		return 0, false
	}
	return platform, true
}

// EnhanceInput handles POST /api/enhance-input
func (h *GenerationHandler) EnhanceInput(w http.ResponseWriter, r *http.Request) {
	var req enhanceInputRequest
	ok := decodeAndValidate(w, r, &req, func() {
		req.Input = strings.TrimSpace(req.Input)
		req.Platform = strings.TrimSpace(req.Platform)
		req.InputType = strings.TrimSpace(req.InputType)
	})
	if !ok {
		return
	}

	platform, ok := parsePlatform(w, req.Platform)
	if !ok {
		return
	}

	res := h.generation.EnhanceInput(r.Context(), req.Input, platform, domain.InputKind(req.InputType))
	response.Raw(w, http.StatusOK, enhanceInputResponse{
		EnhancedInput: res.Text,
		OriginalInput: req.Input,
		Platform:      platform.String(),
		InputType:     req.InputType,
		UsingFallback: res.UsedFallback,
	})
}

// GeneratePrompt handles POST /api/generate-prompt
func (h *GenerationHandler) GeneratePrompt(w http.ResponseWriter, r *http.Request) {
	var req generatePromptRequest
	if !decodeAndValidate(w, r, &req, func() { req.Input = strings.TrimSpace(req.Input) }) {
		return
	}

	res := h.generation.GeneratePrompt(r.Context(), req.Input)
	response.Raw(w, http.StatusOK, map[string]any{
		"prompt":        res.Text,
		"usingFallback": res.UsedFallback,
	})
}

// GenerateSocial handles POST /api/generate-social
func (h *GenerationHandler) GenerateSocial(w http.ResponseWriter, r *http.Request) {
	var req generateSocialRequest
	ok := decodeAndValidate(w, r, &req, func() {
		req.Input = strings.TrimSpace(req.Input)
		req.Platform = strings.TrimSpace(req.Platform)
		req.InputType = strings.TrimSpace(req.InputType)
	})
	if !ok {
		return
	}

	platform, ok := parsePlatform(w, req.Platform)
	if !ok {
		return
	}
	kind := domain.InputTopic
	if req.InputType != "" {
		kind = domain.InputKind(req.InputType)
	}

	res := h.generation.GenerateSocial(r.Context(), req.Input, platform, kind)
	response.Raw(w, http.StatusOK, map[string]any{
		"content":       res.Text,
		"platform":      platform.String(),
		"usingFallback": res.UsedFallback,
	})
}

// GenerateImage handles POST /api/generate-image
func (h *GenerationHandler) GenerateImage(w http.ResponseWriter, r *http.Request) {
	var req generateImageRequest
	if !decodeAndValidate(w, r, &req, func() { req.Prompt = strings.TrimSpace(req.Prompt) }) {
		return
	}

	ratio, err := imagegen.NormalizeAspectRatio(req.AspectRatio)
	if err != nil {
		response.RawError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := h.generation.GenerateImage(r.Context(), req.Prompt, ratio)
	response.Raw(w, http.StatusOK, map[string]any{
		"images":        res.Images,
		"aspectRatio":   ratio,
		"usingFallback": res.UsedFallback,
	})
}
