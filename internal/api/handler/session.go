package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Rrens/social-content-generator/internal/api/middleware"
	"github.com/Rrens/social-content-generator/internal/api/response"
	"github.com/Rrens/social-content-generator/internal/domain"
	"github.com/Rrens/social-content-generator/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const streamKeepAlive = 25 * time.Second

type SessionHandler struct {
	sessions *service.SessionService
}

func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func queryLimit(r *http.Request) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			return v
		}
	}
	return domain.DefaultSessionPageSize
}

// ownedSession loads the {sessionID} session and checks the caller owns it
func (h *SessionHandler) ownedSession(w http.ResponseWriter, r *http.Request) (*domain.ChatSession, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "User ID not found")
		return nil, false
	}

	session, err := h.sessions.GetSession(r.Context(), userID, chi.URLParam(r, "sessionID"))
	switch {
	case err == nil:
		return session, true
	case service.IsNotFound(err):
		response.NotFound(w, "session not found")
	case errors.Is(err, domain.ErrAccessDenied):
		response.Forbidden(w, "access denied")
	default:
		log.Error().Err(err).Msg("Failed to load session")
		response.InternalError(w, "failed to load session")
	}
	return nil, false
}

// List returns the caller's sessions, most recently updated first
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "User ID not found")
		return
	}

	var mode domain.Mode
	if m := r.URL.Query().Get("mode"); m != "" {
		parsed, err := domain.ParseMode(m)
		if err != nil {
			response.BadRequest(w, err.Error())
			return
		}
		mode = parsed
	}

	sessions, err := h.sessions.ListSessions(r.Context(), userID, mode, queryLimit(r))
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list sessions")
		response.InternalError(w, "Failed to list sessions")
		return
	}

	response.OK(w, sessions)
}

// Create creates a session titled after its first message
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "User ID not found")
		return
	}

	var req struct {
		Mode         string `json:"mode" validate:"required"`
		FirstMessage string `json:"first_message" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	req.FirstMessage = strings.TrimSpace(req.FirstMessage)
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, validationMessage(err))
		return
	}

	mode, err := domain.ParseMode(req.Mode)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	id, err := h.sessions.CreateSession(r.Context(), userID, mode, req.FirstMessage)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to create session")
		response.InternalError(w, "Failed to create session")
		return
	}

	session, err := h.sessions.GetSession(r.Context(), userID, id)
	if err != nil {
		response.Created(w, map[string]string{"id": id})
		return
	}
	response.Created(w, session)
}

// Get returns one session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	response.OK(w, session)
}

// Rename updates the session title
func (h *SessionHandler) Rename(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
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

	if err := h.sessions.RenameSession(r.Context(), session.ID, req.Title); err != nil {
		if errors.Is(err, domain.ErrEmptyTitle) {
			response.BadRequest(w, err.Error())
			return
		}
		log.Error().Err(err).Str("session_id", session.ID).Msg("Failed to rename session")
		response.InternalError(w, "Failed to rename session")
		return
	}

	response.OK(w, map[string]string{"message": "Session renamed"})
}

// Delete removes the session and its messages
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	if err := h.sessions.DeleteSession(r.Context(), session.ID); err != nil {
		log.Error().Err(err).Str("session_id", session.ID).Msg("Failed to delete session")
		response.InternalError(w, "Failed to delete session")
		return
	}

	response.NoContent(w)
}

// Messages returns the session history oldest first
func (h *SessionHandler) Messages(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	response.OK(w, h.sessions.LoadHistory(r.Context(), session.ID))
}

// AppendMessage appends a message and refreshes the session stats
func (h *SessionHandler) AppendMessage(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	var req struct {
		Role     string                 `json:"role" validate:"required,oneof=user assistant"`
		Content  string                 `json:"content" validate:"required"`
		Metadata domain.MessageMetadata `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, validationMessage(err))
		return
	}

	msg := &domain.Message{
		Role:     domain.MessageRole(req.Role),
		Content:  req.Content,
		Mode:     session.Mode,
		Metadata: req.Metadata,
	}
	id, err := h.sessions.AppendMessage(r.Context(), session.ID, msg)
	if err != nil {
		log.Error().Err(err).Str("session_id", session.ID).Msg("Failed to append message")
		response.InternalError(w, "Failed to append message")
		return
	}

	msg.ID = id
	response.Created(w, msg)
}

// PatchMessage merges metadata into a message of an owned session
func (h *SessionHandler) PatchMessage(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	var req struct {
		Metadata domain.MessageMetadata `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	messageID := chi.URLParam(r, "messageID")
	if err := h.sessions.PatchMessageMetadata(r.Context(), session.ID, messageID, req.Metadata); err != nil {
		if service.IsNotFound(err) {
			response.NotFound(w, "message not found")
			return
		}
		log.Error().Err(err).Str("message_id", messageID).Msg("Failed to patch message")
		response.InternalError(w, "Failed to patch message")
		return
	}

	response.OK(w, map[string]string{"message": "Message updated"})
}

// Stream pushes the caller's session list as server-sent events: one "sessions" event on
// connect and one after every change.
func (h *SessionHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "User ID not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalError(w, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Buffer one pending list; an unread list is replaced by the newer one.
	updates := make(chan []domain.ChatSession, 1)
	unsubscribe := h.sessions.SubscribeToSessions(r.Context(), userID, queryLimit(r), func(list []domain.ChatSession) {
		for {
			select {
			case updates <- list:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()

	sendEvent := func(event string, payload any) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case list := <-updates:
			if err := sendEvent("sessions", list); err != nil {
				return
			}
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
