package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hayzen-ai/hayzen-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsk_ReturnsReply(t *testing.T) {
	svc := &mockChatService{
		AskFunc: func(_ context.Context, userID, prompt, engine string) (string, error) {
			assert.Equal(t, "user123", userID)
			assert.Equal(t, "what is go", prompt)
			assert.Empty(t, engine)
			return "a programming language", nil
		},
	}
	h := NewChatHandler(svc)

	rec := httptest.NewRecorder()
	h.Ask(rec, authedRequest(http.MethodPost, "/askAI",
		`{"prompt":"what is go"}`, "user123"))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "a programming language", body["reply"])
}

func TestAsk_ForwardsEngine(t *testing.T) {
	svc := &mockChatService{
		AskFunc: func(_ context.Context, _, _, engine string) (string, error) {
			assert.Equal(t, "openai/gpt-4o-mini", engine)
			return "ok", nil
		},
	}
	h := NewChatHandler(svc)

	rec := httptest.NewRecorder()
	h.Ask(rec, authedRequest(http.MethodPost, "/askAI",
		`{"prompt":"hi","engine":"openai/gpt-4o-mini"}`, "user123"))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAsk_RequiresClaims(t *testing.T) {
	h := NewChatHandler(&mockChatService{})

	rec := httptest.NewRecorder()
	h.Ask(rec, jsonRequest(http.MethodPost, "/askAI", `{"prompt":"hi"}`))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAsk_MissingPrompt(t *testing.T) {
	h := NewChatHandler(&mockChatService{})

	rec := httptest.NewRecorder()
	h.Ask(rec, authedRequest(http.MethodPost, "/askAI", `{}`, "user123"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAsk_UpstreamFailure(t *testing.T) {
	svc := &mockChatService{
		AskFunc: func(_ context.Context, _, _, _ string) (string, error) {
			return "", models.ErrInternalServer
		},
	}
	h := NewChatHandler(svc)

	rec := httptest.NewRecorder()
	h.Ask(rec, authedRequest(http.MethodPost, "/askAI", `{"prompt":"hi"}`, "user123"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHistory_ReturnsRecords(t *testing.T) {
	svc := &mockChatService{
		HistoryFunc: func(_ context.Context, userID string) ([]*models.ChatRecord, error) {
			return []*models.ChatRecord{
				{ID: "2", Prompt: "later", Reply: "r2"},
				{ID: "1", Prompt: "earlier", Reply: "r1"},
			}, nil
		},
	}
	h := NewChatHandler(svc)

	rec := httptest.NewRecorder()
	h.History(rec, authedRequest(http.MethodGet, "/get-history", "", "user123"))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	history, ok := body["history"].([]any)
	require.True(t, ok)
	require.Len(t, history, 2)

	first, ok := history[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "later", first["prompt"])
	assert.NotContains(t, first, "UserID", "owner id must not serialize")
}

func TestHistory_RequiresClaims(t *testing.T) {
	h := NewChatHandler(&mockChatService{})

	rec := httptest.NewRecorder()
	h.History(rec, jsonRequest(http.MethodGet, "/get-history", ""))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
