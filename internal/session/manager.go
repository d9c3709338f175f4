package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hayzen-ai/hayzen-api/internal/auth"
	"github.com/hayzen-ai/hayzen-api/internal/models"
	pkglogger "github.com/hayzen-ai/hayzen-api/pkg/logger"
)

// UserStore is the slice of the user repository the session manager needs.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	// UpdateRefreshState stores or clears the refresh token and its
	// last-used timestamp. Pass nils to clear.
	UpdateRefreshState(ctx context.Context, userID string, token *string, lastUsed *time.Time) error
}

// TokenPair is the result of a successful login or signup verification.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Manager issues and refreshes JWT sessions. Each user holds at most one
// live refresh token, stored on the user record; issuing a new session
// replaces any previous one. A refresh token that has not been exercised for
// the inactivity limit is dead even if its JWT expiry is still in the future.
type Manager struct {
	users           UserStore
	tokens          *auth.TokenManager
	inactivityLimit time.Duration
	logger          *slog.Logger
	now             func() time.Time
}

// NewManager creates a Manager. The clock defaults to time.Now.
func NewManager(users UserStore, tokens *auth.TokenManager, inactivityLimit time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		users:           users,
		tokens:          tokens,
		inactivityLimit: inactivityLimit,
		logger:          logger,
		now:             time.Now,
	}
}

// WithClock overrides the manager's clock. Test use only.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Issue creates a fresh access/refresh pair for the user and persists the
// refresh side, displacing any session issued earlier.
func (m *Manager) Issue(ctx context.Context, user *models.User) (*TokenPair, error) {
	access, err := m.tokens.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refresh, err := m.tokens.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	now := m.now()
	if err := m.users.UpdateRefreshState(ctx, user.ID, &refresh, &now); err != nil {
		return nil, fmt.Errorf("failed to persist refresh token: %w", err)
	}

	m.logger.Info("session issued",
		slog.String("user_id", user.ID),
		slog.String("email", pkglogger.SanitizedEmail(user.Email)))

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh validates a presented refresh token and mints a new access token.
// The refresh token itself is not rotated; only its last-used timestamp
// advances. Inactivity beyond the limit clears the stored session and
// returns ErrSessionExpired.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := m.tokens.ValidateToken(refreshToken)
	if err != nil {
		return "", models.ErrRefreshMismatch
	}
	if claims.Type != models.TokenTypeRefresh {
		return "", models.ErrRefreshMismatch
	}

	user, err := m.users.GetByID(ctx, claims.UserID)
	if err != nil {
		// A token whose subject no longer exists reads as a mismatch.
		if errors.Is(err, models.ErrNotFound) {
			return "", models.ErrRefreshMismatch
		}
		return "", fmt.Errorf("failed to load user: %w", err)
	}

	if !user.HasActiveSession() {
		return "", models.ErrRefreshMissing
	}
	if *user.RefreshToken != refreshToken {
		return "", models.ErrRefreshMismatch
	}

	now := m.now()
	if user.RefreshTokenLastUsed != nil && now.Sub(*user.RefreshTokenLastUsed) > m.inactivityLimit {
		if err := m.users.UpdateRefreshState(ctx, user.ID, nil, nil); err != nil {
			return "", fmt.Errorf("failed to clear expired session: %w", err)
		}
		m.logger.Info("session expired due to inactivity",
			slog.String("user_id", user.ID))
		return "", models.ErrSessionExpired
	}

	if err := m.users.UpdateRefreshState(ctx, user.ID, user.RefreshToken, &now); err != nil {
		return "", fmt.Errorf("failed to update session activity: %w", err)
	}

	access, err := m.tokens.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}

	return access, nil
}

// Revoke clears the stored refresh state, ending the session. Idempotent.
func (m *Manager) Revoke(ctx context.Context, userID string) error {
	if err := m.users.UpdateRefreshState(ctx, userID, nil, nil); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	m.logger.Info("session revoked", slog.String("user_id", userID))
	return nil
}
