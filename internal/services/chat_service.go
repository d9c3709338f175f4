package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hayzen-ai/hayzen-api/internal/models"
)

// ChatRepository defines the interface for chat history persistence
type ChatRepository interface {
	Create(ctx context.Context, record *models.ChatRecord) (*models.ChatRecord, error)
	ListByUserID(ctx context.Context, userID string) ([]*models.ChatRecord, error)
}

// Completer relays a prompt to the upstream model and returns the reply and
// the engine that produced it. An empty engine asks for the default model.
type Completer interface {
	Complete(ctx context.Context, prompt, engine string) (reply, usedEngine string, err error)
}

const maxPromptLen = 8192

// ChatService relays prompts to the completion client and records each
// exchange against the requesting user.
type ChatService struct {
	repo      ChatRepository
	completer Completer
	logger    *slog.Logger
}

// NewChatService creates a new ChatService
func NewChatService(repo ChatRepository, completer Completer, logger *slog.Logger) *ChatService {
	return &ChatService{
		repo:      repo,
		completer: completer,
		logger:    logger,
	}
}

// Ask relays the prompt and persists the exchange. The engine is optional;
// blank means the completer's default model. The reply is returned even if
// persisting the record fails; history is best effort, the answer is not.
func (s *ChatService) Ask(ctx context.Context, userID, prompt, engine string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" || len(prompt) > maxPromptLen {
		return "", models.ErrBadRequest
	}

	reply, usedEngine, err := s.completer.Complete(ctx, prompt, strings.TrimSpace(engine))
	if err != nil {
		s.logger.Error("completion failed",
			slog.String("user_id", userID), slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	if _, err := s.repo.Create(ctx, &models.ChatRecord{
		UserID: userID,
		Prompt: prompt,
		Reply:  reply,
		Engine: usedEngine,
	}); err != nil {
		s.logger.Error("failed to persist chat record",
			slog.String("user_id", userID), slog.Any("error", err))
	}

	return reply, nil
}

// History returns the user's past exchanges, newest first.
func (s *ChatService) History(ctx context.Context, userID string) ([]*models.ChatRecord, error) {
	records, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load chat history",
			slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return records, nil
}
