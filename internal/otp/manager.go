package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/hayzen-ai/hayzen-api/internal/models"
	pkgauth "github.com/hayzen-ai/hayzen-api/pkg/auth"
	pkglogger "github.com/hayzen-ai/hayzen-api/pkg/logger"
)

// Repository defines the store operations the OTP manager needs.
type Repository interface {
	// Create persists a new code record.
	Create(ctx context.Context, code *models.OneTimeCode) (*models.OneTimeCode, error)
	// ListByEmailPurpose returns all codes for (email, purpose) ordered by
	// creation time ascending.
	ListByEmailPurpose(ctx context.Context, email string, purpose models.OTPPurpose) ([]*models.OneTimeCode, error)
	// DeleteExpired removes codes for (email, purpose) whose expiry has passed.
	DeleteExpired(ctx context.Context, email string, purpose models.OTPPurpose, now time.Time) error
	// DeleteAll removes every code for (email, purpose).
	DeleteAll(ctx context.Context, email string, purpose models.OTPPurpose) error
}

// Config carries the OTP policy knobs.
type Config struct {
	TTL          time.Duration // code lifetime, 2 minutes by default
	CooldownBase time.Duration // linear backoff unit, 1 minute by default
}

// Manager generates and validates short-lived single-use numeric codes per
// (email, purpose), with escalating cooldowns on repeated requests.
//
// Codes are stored bcrypt-hashed; the plaintext is returned exactly once for
// out-of-band delivery. Deleting codes after a successful verification is the
// caller's responsibility, so flows can run their post-verification side
// effects before invalidating the code.
type Manager struct {
	repo   Repository
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewManager creates a Manager. The clock defaults to time.Now.
func NewManager(repo Repository, cfg Config, logger *slog.Logger) *Manager {
	return &Manager{
		repo:   repo,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the manager's clock. Test use only.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Generate produces a fresh 6-digit code for (email, purpose), stores its
// hash, and returns the plaintext for delivery. Returns a
// *models.RateLimitError while the escalating cooldown is in effect.
func (m *Manager) Generate(ctx context.Context, email string, purpose models.OTPPurpose) (string, error) {
	now := m.now()

	// Lazy cleanup; the background sweep is only a backstop.
	if err := m.repo.DeleteExpired(ctx, email, purpose, now); err != nil {
		return "", fmt.Errorf("failed to delete expired codes: %w", err)
	}

	existing, err := m.repo.ListByEmailPurpose(ctx, email, purpose)
	if err != nil {
		return "", fmt.Errorf("failed to list codes: %w", err)
	}

	// Cooldown kicks in from the third request onward: 1 minute after the
	// 2nd, 2 minutes after the 3rd, and so on.
	if len(existing) >= 2 {
		last := existing[len(existing)-1]
		retryNumber := len(existing) - 1
		cooldown := time.Duration(retryNumber) * m.cfg.CooldownBase

		nextAllowed := last.CreatedAt.Add(cooldown)
		if now.Before(nextAllowed) {
			waitSecs := int(nextAllowed.Sub(now).Seconds())
			if nextAllowed.Sub(now)%time.Second > 0 {
				waitSecs++ // round up so the hint never undershoots
			}
			m.logger.Info("otp generation rate limited",
				slog.String("email", pkglogger.SanitizedEmail(email)),
				slog.String("purpose", string(purpose)),
				slog.Int("retry_after_seconds", waitSecs))
			return "", &models.RateLimitError{RetryAfterSeconds: waitSecs}
		}
	}

	code, err := randomCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}

	codeHash, err := pkgauth.HashPassword(code)
	if err != nil {
		return "", fmt.Errorf("failed to hash code: %w", err)
	}

	record := &models.OneTimeCode{
		Email:     email,
		Purpose:   purpose,
		CodeHash:  codeHash,
		CreatedAt: now,
		ExpiresAt: now.Add(m.cfg.TTL),
	}

	if _, err := m.repo.Create(ctx, record); err != nil {
		return "", fmt.Errorf("failed to store code: %w", err)
	}

	m.logger.Info("otp generated",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("purpose", string(purpose)))

	return code, nil
}

// Verify checks candidate against the most recently created code for
// (email, purpose). It does not delete codes; callers do that after their
// own post-verification side effects succeed.
func (m *Manager) Verify(ctx context.Context, email string, purpose models.OTPPurpose, candidate string) error {
	codes, err := m.repo.ListByEmailPurpose(ctx, email, purpose)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to list codes: %w", err)
	}
	if len(codes) == 0 {
		return models.ErrOTPNotFound
	}

	latest := codes[len(codes)-1]
	if latest.IsExpired(m.now()) {
		return models.ErrOTPExpired
	}

	if err := pkgauth.ComparePassword(latest.CodeHash, candidate); err != nil {
		return models.ErrOTPMismatch
	}

	return nil
}

// Invalidate removes every code for (email, purpose). Called by flows after
// a successful verification.
func (m *Manager) Invalidate(ctx context.Context, email string, purpose models.OTPPurpose) error {
	if err := m.repo.DeleteAll(ctx, email, purpose); err != nil {
		return fmt.Errorf("failed to delete codes: %w", err)
	}
	return nil
}

// randomCode returns a uniform random 6-digit decimal string in
// [100000, 999999] from a cryptographic source.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}
