package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Rrens/social-content-generator/internal/api/middleware"
	"github.com/Rrens/social-content-generator/internal/api/response"
	"github.com/Rrens/social-content-generator/internal/conversation"
	"github.com/Rrens/social-content-generator/internal/domain"
	"github.com/Rrens/social-content-generator/internal/imagegen"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// ConversationHandler drives server-held conversations keyed by a client-chosen key
type ConversationHandler struct {
	registry *conversation.Registry
}

func NewConversationHandler(registry *conversation.Registry) *ConversationHandler {
	return &ConversationHandler{registry: registry}
}

type turnRequest struct {
	Mode        string `json:"mode" validate:"required"`
	Text        string `json:"text" validate:"required"`
	Platform    string `json:"platform"`
	InputType   string `json:"inputType" validate:"omitempty,oneof=topic instructions"`
	AspectRatio string `json:"aspectRatio"`
}

type conversationView struct {
	Key       string               `json:"key"`
	Mode      domain.Mode          `json:"mode"`
	State     conversation.State   `json:"state"`
	SessionID string               `json:"session_id,omitempty"`
	Entries   []conversation.Entry `json:"entries"`
}

func (h *ConversationHandler) lookup(w http.ResponseWriter, r *http.Request) (*conversation.Conversation, string, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "User ID not found")
		return nil, "", false
	}
	key := chi.URLParam(r, "key")
	c, ok := h.registry.Get(userID, key)
	if !ok {
		response.NotFound(w, "conversation not found")
		return nil, "", false
	}
	return c, key, true
}

func view(key string, c *conversation.Conversation) conversationView {
	return conversationView{
		Key:       key,
		Mode:      c.Mode(),
		State:     c.State(),
		SessionID: c.SessionID(),
		Entries:   c.Entries(),
	}
}

// Submit handles POST /conversations/{key}/turns
func (h *ConversationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "User ID not found")
		return
	}

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, validationMessage(err))
		return
	}

	mode, err := domain.ParseMode(req.Mode)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	turn := domain.Turn{Text: req.Text, InputKind: domain.InputKind(req.InputType)}
	switch mode {
	case domain.ModeSocial:
		if req.Platform == "" {
			response.BadRequest(w, "platform is required for social mode")
			return
		}
		platform, err := domain.ParsePlatform(req.Platform)
		if err != nil {
			response.BadRequest(w, err.Error())
			return
		}
		turn.Platform = platform
	case domain.ModeImage:
		ratio, err := imagegen.NormalizeAspectRatio(req.AspectRatio)
		if err != nil {
			response.BadRequest(w, err.Error())
			return
		}
		turn.AspectRatio = ratio
	}

	c, err := h.registry.Open(userID, chi.URLParam(r, "key"), mode)
	if err != nil {
		response.Conflict(w, err.Error())
		return
	}

	result, err := c.Submit(r.Context(), turn)
	if err != nil {
		switch {
		case errors.Is(err, conversation.ErrDeleted):
			response.Gone(w, err.Error())
		case errors.Is(err, conversation.ErrEmptyInput):
			response.BadRequest(w, err.Error())
		default:
			log.Error().Err(err).Str("user_id", userID).Msg("Conversation turn failed")
			response.InternalError(w, "failed to process turn")
		}
		return
	}

	response.OK(w, result)
}

// Get handles GET /conversations/{key}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, key, ok := h.lookup(w, r)
	if !ok {
		return
	}
	response.OK(w, view(key, c))
}

// Rename handles PATCH /conversations/{key}
func (h *ConversationHandler) Rename(w http.ResponseWriter, r *http.Request) {
	c, _, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := c.Rename(r.Context(), req.Title); err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyTitle):
			response.BadRequest(w, err.Error())
		case errors.Is(err, conversation.ErrNotPersisted):
			response.Conflict(w, err.Error())
		case errors.Is(err, conversation.ErrDeleted):
			response.Gone(w, err.Error())
		default:
			log.Error().Err(err).Msg("Failed to rename conversation")
			response.InternalError(w, "Failed to rename session")
		}
		return
	}

	response.OK(w, map[string]string{"message": "Session renamed"})
}

// Delete handles DELETE /conversations/{key}
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c, key, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if err := c.Delete(r.Context()); err != nil {
		log.Error().Err(err).Str("session_id", c.SessionID()).Msg("Failed to delete conversation")
		response.InternalError(w, "Failed to delete session")
		return
	}

	userID, _ := middleware.GetUserID(r.Context())
	h.registry.Remove(userID, key)
	response.NoContent(w)
}
