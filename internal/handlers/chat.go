package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hayzen-ai/hayzen-api/internal/auth"
	"github.com/hayzen-ai/hayzen-api/internal/models"
	pkghttp "github.com/hayzen-ai/hayzen-api/pkg/http"
)

// ChatServiceInterface defines the interface for the chat relay
type ChatServiceInterface interface {
	Ask(ctx context.Context, userID, prompt, engine string) (string, error)
	History(ctx context.Context, userID string) ([]*models.ChatRecord, error)
}

// ChatHandler handles the AI relay endpoints
type ChatHandler struct {
	service ChatServiceInterface
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(service ChatServiceInterface) *ChatHandler {
	return &ChatHandler{service: service}
}

type AskRequest struct {
	Prompt string `json:"prompt" validate:"required"`
	Engine string `json:"engine" validate:"omitempty,max=128"`
}

// Ask relays a prompt to the upstream model and returns the reply.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	reply, err := h.service.Ask(r.Context(), claims.UserID, req.Prompt, req.Engine)
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, "Invalid prompt")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to get a response")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"reply":   reply,
	})
}

// History returns the caller's past exchanges, newest first.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	records, err := h.service.History(r.Context(), claims.UserID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to load history")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"history": records,
	})
}
