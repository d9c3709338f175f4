package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hayzen-ai/hayzen-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsk_RelaysAndPersists(t *testing.T) {
	var saved *models.ChatRecord
	repo := &mockChatRepository{
		CreateFunc: func(_ context.Context, record *models.ChatRecord) (*models.ChatRecord, error) {
			saved = record
			return record, nil
		},
	}
	completer := &mockCompleter{
		CompleteFunc: func(_ context.Context, prompt, engine string) (string, string, error) {
			assert.Equal(t, "what is go", prompt)
			assert.Empty(t, engine)
			return "a programming language", "mistralai/mistral-7b-instruct", nil
		},
	}
	svc := NewChatService(repo, completer, discardLogger())

	reply, err := svc.Ask(context.Background(), "user123", "  what is go  ", "")
	require.NoError(t, err)
	assert.Equal(t, "a programming language", reply)

	require.NotNil(t, saved)
	assert.Equal(t, "user123", saved.UserID)
	assert.Equal(t, "what is go", saved.Prompt)
	assert.Equal(t, "a programming language", saved.Reply)
	assert.Equal(t, "mistralai/mistral-7b-instruct", saved.Engine)
}

func TestAsk_EngineChoicePersisted(t *testing.T) {
	var saved *models.ChatRecord
	repo := &mockChatRepository{
		CreateFunc: func(_ context.Context, record *models.ChatRecord) (*models.ChatRecord, error) {
			saved = record
			return record, nil
		},
	}
	completer := &mockCompleter{
		CompleteFunc: func(_ context.Context, _, engine string) (string, string, error) {
			assert.Equal(t, "openai/gpt-4o-mini", engine)
			return "ok", engine, nil
		},
	}
	svc := NewChatService(repo, completer, discardLogger())

	_, err := svc.Ask(context.Background(), "user123", "hello", " openai/gpt-4o-mini ")
	require.NoError(t, err)

	require.NotNil(t, saved)
	assert.Equal(t, "openai/gpt-4o-mini", saved.Engine)
}

func TestAsk_EmptyPrompt(t *testing.T) {
	svc := NewChatService(&mockChatRepository{}, &mockCompleter{}, discardLogger())

	_, err := svc.Ask(context.Background(), "user123", "   ", "")
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestAsk_OversizedPrompt(t *testing.T) {
	svc := NewChatService(&mockChatRepository{}, &mockCompleter{}, discardLogger())

	_, err := svc.Ask(context.Background(), "user123", strings.Repeat("a", maxPromptLen+1), "")
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestAsk_CompletionFailure(t *testing.T) {
	completer := &mockCompleter{
		CompleteFunc: func(_ context.Context, _, _ string) (string, string, error) {
			return "", "", errors.New("upstream down")
		},
	}
	svc := NewChatService(&mockChatRepository{}, completer, discardLogger())

	_, err := svc.Ask(context.Background(), "user123", "hello", "")
	assert.ErrorIs(t, err, models.ErrInternalServer)
}

func TestAsk_PersistFailureStillReturnsReply(t *testing.T) {
	repo := &mockChatRepository{
		CreateFunc: func(_ context.Context, _ *models.ChatRecord) (*models.ChatRecord, error) {
			return nil, errors.New("db down")
		},
	}
	completer := &mockCompleter{
		CompleteFunc: func(_ context.Context, _, _ string) (string, string, error) {
			return "still here", "mistralai/mistral-7b-instruct", nil
		},
	}
	svc := NewChatService(repo, completer, discardLogger())

	reply, err := svc.Ask(context.Background(), "user123", "hello", "")
	require.NoError(t, err)
	assert.Equal(t, "still here", reply)
}

func TestHistory_ReturnsRecords(t *testing.T) {
	repo := &mockChatRepository{
		ListByUserIDFunc: func(_ context.Context, userID string) ([]*models.ChatRecord, error) {
			assert.Equal(t, "user123", userID)
			return []*models.ChatRecord{
				{ID: "2", Prompt: "later"},
				{ID: "1", Prompt: "earlier"},
			}, nil
		},
	}
	svc := NewChatService(repo, &mockCompleter{}, discardLogger())

	records, err := svc.History(context.Background(), "user123")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2", records[0].ID)
}

func TestHistory_StoreFailure(t *testing.T) {
	repo := &mockChatRepository{
		ListByUserIDFunc: func(_ context.Context, _ string) ([]*models.ChatRecord, error) {
			return nil, errors.New("db down")
		},
	}
	svc := NewChatService(repo, &mockCompleter{}, discardLogger())

	_, err := svc.History(context.Background(), "user123")
	assert.ErrorIs(t, err, models.ErrInternalServer)
}
