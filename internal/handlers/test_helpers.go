package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/hayzen-ai/hayzen-api/internal/auth"
	"github.com/hayzen-ai/hayzen-api/internal/models"
	"github.com/hayzen-ai/hayzen-api/internal/services"
)

// mockAuthService implements AuthServiceInterface with function fields so
// each test overrides only what it needs.
type mockAuthService struct {
	SignupFunc         func(ctx context.Context, name, email, password string) error
	LoginFunc          func(ctx context.Context, email, password string) (*services.LoginResult, error)
	VerifyOTPFunc      func(ctx context.Context, email string, purpose models.OTPPurpose, code string) (*services.VerifyOTPResult, error)
	ResendOTPFunc      func(ctx context.Context, email string, purpose models.OTPPurpose) error
	ForgotPasswordFunc func(ctx context.Context, email string) error
	ResetPasswordFunc  func(ctx context.Context, resetToken, newPassword string) error
	ChangePasswordFunc func(ctx context.Context, userID, currentPassword, newPassword string) error
	Toggle2FAFunc      func(ctx context.Context, userID string, enable bool) error
	RefreshFunc        func(ctx context.Context, refreshToken string) (string, error)
	LogoutFunc         func(ctx context.Context, userID string) error
	GetUserStatusFunc  func(ctx context.Context, userID string) (*services.UserStatus, error)
}

func (m *mockAuthService) Signup(ctx context.Context, name, email, password string) error {
	return m.SignupFunc(ctx, name, email, password)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*services.LoginResult, error) {
	return m.LoginFunc(ctx, email, password)
}

func (m *mockAuthService) VerifyOTP(ctx context.Context, email string, purpose models.OTPPurpose, code string) (*services.VerifyOTPResult, error) {
	return m.VerifyOTPFunc(ctx, email, purpose, code)
}

func (m *mockAuthService) ResendOTP(ctx context.Context, email string, purpose models.OTPPurpose) error {
	return m.ResendOTPFunc(ctx, email, purpose)
}

func (m *mockAuthService) ForgotPassword(ctx context.Context, email string) error {
	return m.ForgotPasswordFunc(ctx, email)
}

func (m *mockAuthService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	return m.ResetPasswordFunc(ctx, resetToken, newPassword)
}

func (m *mockAuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	return m.ChangePasswordFunc(ctx, userID, currentPassword, newPassword)
}

func (m *mockAuthService) Toggle2FA(ctx context.Context, userID string, enable bool) error {
	return m.Toggle2FAFunc(ctx, userID, enable)
}

func (m *mockAuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	return m.RefreshFunc(ctx, refreshToken)
}

func (m *mockAuthService) Logout(ctx context.Context, userID string) error {
	return m.LogoutFunc(ctx, userID)
}

func (m *mockAuthService) GetUserStatus(ctx context.Context, userID string) (*services.UserStatus, error) {
	return m.GetUserStatusFunc(ctx, userID)
}

type mockChatService struct {
	AskFunc     func(ctx context.Context, userID, prompt, engine string) (string, error)
	HistoryFunc func(ctx context.Context, userID string) ([]*models.ChatRecord, error)
}

func (m *mockChatService) Ask(ctx context.Context, userID, prompt, engine string) (string, error) {
	return m.AskFunc(ctx, userID, prompt, engine)
}

func (m *mockChatService) History(ctx context.Context, userID string) ([]*models.ChatRecord, error) {
	return m.HistoryFunc(ctx, userID)
}

// jsonRequest builds a request with a JSON body.
func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// authedRequest builds a request carrying access-token claims, as the auth
// middleware would after validation.
func authedRequest(method, target, body, userID string) *http.Request {
	req := jsonRequest(method, target, body)
	claims := &models.TokenClaims{
		Type:   models.TokenTypeAccess,
		UserID: userID,
		Email:  "a@x.com",
	}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}
