package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/hayzen-ai/hayzen-api/internal/auth"
	"github.com/hayzen-ai/hayzen-api/internal/models"
	"github.com/hayzen-ai/hayzen-api/internal/session"
	pkgauth "github.com/hayzen-ai/hayzen-api/pkg/auth"
	pkglogger "github.com/hayzen-ai/hayzen-api/pkg/logger"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Update2FA(ctx context.Context, id string, enabled bool) error
}

// OTPManager defines the one-time code operations the flows need
type OTPManager interface {
	Generate(ctx context.Context, email string, purpose models.OTPPurpose) (string, error)
	Verify(ctx context.Context, email string, purpose models.OTPPurpose, candidate string) error
	Invalidate(ctx context.Context, email string, purpose models.OTPPurpose) error
}

// SessionManager defines the session operations the flows need
type SessionManager interface {
	Issue(ctx context.Context, user *models.User) (*session.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Revoke(ctx context.Context, userID string) error
}

// AuthService orchestrates the signup, login, 2FA, and password flows on top
// of the OTP and session managers.
type AuthService struct {
	users       UserRepository
	otps        OTPManager
	sessions    SessionManager
	mail        EmailService
	tm          *auth.TokenManager
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	mailTimeout time.Duration
}

// NewAuthService creates a new AuthService
func NewAuthService(users UserRepository, otps OTPManager, sessions SessionManager, mail EmailService, tm *auth.TokenManager, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuthService {
	return &AuthService{
		users:       users,
		otps:        otps,
		sessions:    sessions,
		mail:        mail,
		tm:          tm,
		logger:      logger,
		auditLogger: auditLogger,
		mailTimeout: 30 * time.Second,
	}
}

// LoginResult is returned by Login. When Requires2FA is set, Tokens is nil
// and the caller must complete the flow through VerifyOTP.
type LoginResult struct {
	Requires2FA bool
	Tokens      *session.TokenPair
}

// VerifyOTPResult carries the purpose-specific outcome of a successful
// verification. At most one of Tokens and ResetToken is set.
type VerifyOTPResult struct {
	Tokens     *session.TokenPair
	ResetToken string
}

// UserStatus is the authenticated user's account summary.
type UserStatus struct {
	Email        string `json:"email"`
	Is2FAEnabled bool   `json:"is2FAEnabled"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// sendOTP delivers the code without blocking the request. Delivery failures
// are logged; the caller already committed the code and must not roll back.
func (s *AuthService) sendOTP(email string, purpose models.OTPPurpose, code string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.mailTimeout)
		defer cancel()

		if err := s.mail.SendOTPEmail(ctx, email, purpose, code); err != nil {
			s.logger.Error("otp delivery failed",
				slog.String("email", pkglogger.SanitizedEmail(email)),
				slog.String("purpose", string(purpose)),
				slog.Any("error", err))
		}
	}()
}

// Signup registers a new account and mails a confirmation code. A duplicate
// email returns ErrConflict; the handler responds identically to success so
// the endpoint does not reveal which addresses are registered.
func (s *AuthService) Signup(ctx context.Context, name, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || name == "" {
		return models.ErrBadRequest
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return models.ErrBadRequest
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		s.auditLogger.LogAuthEvent(pkglogger.AuditEvent{
			EventType:     "signup_failed",
			Email:         email,
			FailureReason: "duplicate_email",
			Success:       false,
		})
		return models.ErrConflict
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check existing user", slog.Any("error", err))
		return models.ErrInternalServer
	}

	passwordHash, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	user, err := s.users.Create(ctx, &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return models.ErrInternalServer
	}

	code, err := s.otps.Generate(ctx, email, models.OTPPurposeSignup)
	if err != nil {
		// The account exists; the user can request a new code via resend.
		s.logger.Error("failed to generate signup otp",
			slog.String("user_id", user.ID), slog.Any("error", err))
		return nil
	}
	s.sendOTP(email, models.OTPPurposeSignup, code)

	s.auditLogger.LogAuthEvent(pkglogger.AuditEvent{
		EventType: "signup",
		UserID:    user.ID,
		Email:     email,
		Success:   true,
	})

	return nil
}

// Login checks credentials. Accounts with 2FA enabled get a login code by
// email instead of tokens; the session is issued once VerifyOTP succeeds.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, models.ErrUnauthorized
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.auditLogger.LogAuthEvent(pkglogger.AuditEvent{
				EventType:     "login_failed",
				Email:         email,
				FailureReason: "invalid_credentials",
				Success:       false,
			})
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		s.auditLogger.LogAuthEvent(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			FailureReason: "invalid_credentials",
			Success:       false,
		})
		return nil, models.ErrUnauthorized
	}

	if user.Is2FAEnabled {
		code, err := s.otps.Generate(ctx, email, models.OTPPurposeLogin)
		if err != nil {
			if _, ok := models.IsRateLimited(err); ok {
				return nil, err
			}
			s.logger.Error("failed to generate login otp",
				slog.String("user_id", user.ID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		s.sendOTP(email, models.OTPPurposeLogin, code)

		s.auditLogger.LogAuthEvent(pkglogger.AuditEvent{
			EventType: "login_2fa_challenge",
			UserID:    user.ID,
			Success:   true,
		})
		return &LoginResult{Requires2FA: true}, nil
	}

	tokens, err := s.sessions.Issue(ctx, user)
	if err != nil {
		s.logger.Error("failed to issue session",
			slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAuthEvent(pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		Success:   true,
	})

	return &LoginResult{Tokens: tokens}, nil
}

// VerifyOTP validates a code and completes the flow the purpose belongs to.
// Every successful verification invalidates all codes for (email, purpose).
func (s *AuthService) VerifyOTP(ctx context.Context, email string, purpose models.OTPPurpose, code string) (*VerifyOTPResult, error) {
	email = normalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Same response as a wrong code; no account enumeration.
			return nil, models.ErrOTPMismatch
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.otps.Verify(ctx, email, purpose, code); err != nil {
		s.auditLogger.LogAuthEvent(pkglogger.AuditEvent{
			EventType:     "otp_verify_failed",
			UserID:        user.ID,
			Purpose:       string(purpose),
			FailureReason: err.Error(),
			Success:       false,
		})
		return nil, err
	}

	result := &VerifyOTPResult{}

	switch purpose {
	case models.OTPPurposeLogin:
		tokens, err := s.sessions.Issue(ctx, user)
		if err != nil {
			s.logger.Error("failed to issue session",
				slog.String("user_id", user.ID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		result.Tokens = tokens

	case models.OTPPurposeForgot:
		resetToken, err := s.tm.GenerateResetToken(user.ID, user.Email)
		if err != nil {
			s.logger.Error("failed to generate reset token",
				slog.String("user_id", user.ID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		result.ResetToken = resetToken

	case models.OTPPurposeEnable2FA:
		if err := s.users.Update2FA(ctx, user.ID, true); err != nil {
			s.logger.Error("failed to enable 2fa",
				slog.String("user_id", user.ID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}

	case models.OTPPurposeDisable2FA:
		if err := s.users.Update2FA(ctx, user.ID, false); err != nil {
			s.logger.Error("failed to disable 2fa",
				slog.String("user_id", user.ID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}

	case models.OTPPurposeSignup, models.OTPPurposeReset:
		// Confirmation only.
	}

	if err := s.otps.Invalidate(ctx, email, purpose); err != nil {
		s.logger.Error("failed to invalidate codes after verification",
			slog.String("user_id", user.ID), slog.Any("error", err))
	}

	s.auditLogger.LogAuthEvent(pkglogger.AuditEvent{
		EventType: "otp_verified",
		UserID:    user.ID,
		Purpose:   string(purpose),
		Success:   true,
	})

	return result, nil
}

// ResendOTP regenerates and mails a code, subject to the same escalating
// cooldown as the original request.
func (s *AuthService) ResendOTP(ctx context.Context, email string, purpose models.OTPPurpose) error {
	email = normalizeEmail(email)

	code, err := s.otps.Generate(ctx, email, purpose)
	if err != nil {
		if _, ok := models.IsRateLimited(err); ok {
			return err
		}
		s.logger.Error("failed to regenerate otp", slog.Any("error", err))
		return models.ErrInternalServer
	}
	s.sendOTP(email, purpose, code)

	return nil
}

// ForgotPassword mails a reset code. Unknown addresses are reported the same
// as known ones.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("password reset requested for unknown email",
				slog.String("email", pkglogger.SanitizedEmail(email)))
			return nil
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return models.ErrInternalServer
	}

	code, err := s.otps.Generate(ctx, email, models.OTPPurposeForgot)
	if err != nil {
		if _, ok := models.IsRateLimited(err); ok {
			return err
		}
		s.logger.Error("failed to generate forgot otp", slog.Any("error", err))
		return models.ErrInternalServer
	}
	s.sendOTP(email, models.OTPPurposeForgot, code)

	return nil
}

// ResetPassword sets a new password given the signed proof token minted by
// VerifyOTP for the forgot purpose. Any live session is revoked.
func (s *AuthService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	claims, err := s.tm.ValidateToken(resetToken)
	if err != nil || claims.Type != models.TokenTypeReset {
		return models.ErrUnauthorized
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return models.ErrBadRequest
	}

	passwordHash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.users.UpdatePassword(ctx, claims.UserID, passwordHash); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUnauthorized
		}
		s.logger.Error("failed to update password",
			slog.String("user_id", claims.UserID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.sessions.Revoke(ctx, claims.UserID); err != nil {
		s.logger.Error("failed to revoke session after password reset",
			slog.String("user_id", claims.UserID), slog.Any("error", err))
	}

	s.auditLogger.LogAuthEvent(pkglogger.AuditEvent{
		EventType: "password_reset",
		UserID:    claims.UserID,
		Success:   true,
	})

	return nil
}

// ChangePassword updates the password for an authenticated user after
// re-checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUnauthorized
		}
		s.logger.Error("failed to get user", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		s.auditLogger.LogAuthEvent(pkglogger.AuditEvent{
			EventType:     "password_change_failed",
			UserID:        userID,
			FailureReason: "invalid_current_password",
			Success:       false,
		})
		return models.ErrUnauthorized
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return models.ErrBadRequest
	}

	passwordHash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		s.logger.Error("failed to update password",
			slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAuthEvent(pkglogger.AuditEvent{
		EventType: "password_changed",
		UserID:    userID,
		Success:   true,
	})

	return nil
}

// Toggle2FA mails a confirmation code for enabling or disabling two-factor
// auth. The flag only flips once VerifyOTP confirms possession of the code.
func (s *AuthService) Toggle2FA(ctx context.Context, userID string, enable bool) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUnauthorized
		}
		s.logger.Error("failed to get user", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if user.Is2FAEnabled == enable {
		return models.ErrBadRequest
	}

	purpose := models.OTPPurposeEnable2FA
	if !enable {
		purpose = models.OTPPurposeDisable2FA
	}

	code, err := s.otps.Generate(ctx, user.Email, purpose)
	if err != nil {
		if _, ok := models.IsRateLimited(err); ok {
			return err
		}
		s.logger.Error("failed to generate 2fa otp",
			slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	s.sendOTP(user.Email, purpose, code)

	return nil
}

// Refresh exchanges a valid refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return "", models.ErrRefreshMissing
	}
	return s.sessions.Refresh(ctx, refreshToken)
}

// Logout revokes the user's session.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.sessions.Revoke(ctx, userID); err != nil {
		s.logger.Error("failed to revoke session",
			slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAuthEvent(pkglogger.AuditEvent{
		EventType: "logout",
		UserID:    userID,
		Success:   true,
	})

	return nil
}

// GetUserStatus returns the account summary for the authenticated user.
func (s *AuthService) GetUserStatus(ctx context.Context, userID string) (*UserStatus, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &UserStatus{
		Email:        user.Email,
		Is2FAEnabled: user.Is2FAEnabled,
	}, nil
}
