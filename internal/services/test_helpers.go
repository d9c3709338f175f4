package services

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/hayzen-ai/hayzen-api/internal/models"
	"github.com/hayzen-ai/hayzen-api/internal/session"
)

// Mock implementations with function fields so each test overrides only what
// it needs.

type mockUserRepository struct {
	GetByIDFunc        func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc     func(ctx context.Context, email string) (*models.User, error)
	CreateFunc         func(ctx context.Context, user *models.User) (*models.User, error)
	UpdatePasswordFunc func(ctx context.Context, id, passwordHash string) error
	Update2FAFunc      func(ctx context.Context, id string, enabled bool) error
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.GetByEmailFunc(ctx, email)
}

func (m *mockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	return m.CreateFunc(ctx, user)
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return m.UpdatePasswordFunc(ctx, id, passwordHash)
}

func (m *mockUserRepository) Update2FA(ctx context.Context, id string, enabled bool) error {
	return m.Update2FAFunc(ctx, id, enabled)
}

type mockOTPManager struct {
	GenerateFunc   func(ctx context.Context, email string, purpose models.OTPPurpose) (string, error)
	VerifyFunc     func(ctx context.Context, email string, purpose models.OTPPurpose, candidate string) error
	InvalidateFunc func(ctx context.Context, email string, purpose models.OTPPurpose) error
}

func (m *mockOTPManager) Generate(ctx context.Context, email string, purpose models.OTPPurpose) (string, error) {
	return m.GenerateFunc(ctx, email, purpose)
}

func (m *mockOTPManager) Verify(ctx context.Context, email string, purpose models.OTPPurpose, candidate string) error {
	return m.VerifyFunc(ctx, email, purpose, candidate)
}

func (m *mockOTPManager) Invalidate(ctx context.Context, email string, purpose models.OTPPurpose) error {
	if m.InvalidateFunc == nil {
		return nil
	}
	return m.InvalidateFunc(ctx, email, purpose)
}

type mockSessionManager struct {
	IssueFunc   func(ctx context.Context, user *models.User) (*session.TokenPair, error)
	RefreshFunc func(ctx context.Context, refreshToken string) (string, error)
	RevokeFunc  func(ctx context.Context, userID string) error
}

func (m *mockSessionManager) Issue(ctx context.Context, user *models.User) (*session.TokenPair, error) {
	return m.IssueFunc(ctx, user)
}

func (m *mockSessionManager) Refresh(ctx context.Context, refreshToken string) (string, error) {
	return m.RefreshFunc(ctx, refreshToken)
}

func (m *mockSessionManager) Revoke(ctx context.Context, userID string) error {
	if m.RevokeFunc == nil {
		return nil
	}
	return m.RevokeFunc(ctx, userID)
}

// sentEmail captures one SendOTPEmail call.
type sentEmail struct {
	Email   string
	Purpose models.OTPPurpose
	Code    string
}

// mockEmailService records deliveries. Sends happen on a goroutine, so
// readers go through the mutex-guarded Sent().
type mockEmailService struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (m *mockEmailService) SendOTPEmail(_ context.Context, email string, purpose models.OTPPurpose, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentEmail{Email: email, Purpose: purpose, Code: code})
	return nil
}

func (m *mockEmailService) Sent() []sentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentEmail, len(m.sent))
	copy(out, m.sent)
	return out
}

type mockChatRepository struct {
	CreateFunc       func(ctx context.Context, record *models.ChatRecord) (*models.ChatRecord, error)
	ListByUserIDFunc func(ctx context.Context, userID string) ([]*models.ChatRecord, error)
}

func (m *mockChatRepository) Create(ctx context.Context, record *models.ChatRecord) (*models.ChatRecord, error) {
	return m.CreateFunc(ctx, record)
}

func (m *mockChatRepository) ListByUserID(ctx context.Context, userID string) ([]*models.ChatRecord, error) {
	return m.ListByUserIDFunc(ctx, userID)
}

type mockCompleter struct {
	CompleteFunc func(ctx context.Context, prompt, engine string) (string, string, error)
}

func (m *mockCompleter) Complete(ctx context.Context, prompt, engine string) (string, string, error) {
	return m.CompleteFunc(ctx, prompt, engine)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func userNotFound(_ context.Context, _ string) (*models.User, error) {
	return nil, models.ErrNotFound
}
