package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/hayzen-ai/hayzen-api/internal/auth"
	"github.com/hayzen-ai/hayzen-api/internal/models"
	"github.com/hayzen-ai/hayzen-api/internal/services"
	pkghttp "github.com/hayzen-ai/hayzen-api/pkg/http"
)

// AuthServiceInterface defines the interface for the auth flows
type AuthServiceInterface interface {
	Signup(ctx context.Context, name, email, password string) error
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	VerifyOTP(ctx context.Context, email string, purpose models.OTPPurpose, code string) (*services.VerifyOTPResult, error)
	ResendOTP(ctx context.Context, email string, purpose models.OTPPurpose) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	Toggle2FA(ctx context.Context, userID string, enable bool) error
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, userID string) error
	GetUserStatus(ctx context.Context, userID string) (*services.UserStatus, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// Request DTOs

type SignupRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type VerifyOTPRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Purpose string `json:"purpose" validate:"required"`
	Code    string `json:"otp" validate:"required,len=6,numeric"`
}

type ResendOTPRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Purpose string `json:"purpose" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	ResetToken  string `json:"resetToken" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

type Toggle2FARequest struct {
	Enable *bool `json:"enable" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// decodeAndValidate decodes the JSON body into req and runs tag validation.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return false
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return false
	}
	return true
}

// writeAuthError maps flow errors to responses without leaking which part of
// the check failed.
func writeAuthError(w http.ResponseWriter, err error) {
	if rle, ok := models.IsRateLimited(err); ok {
		pkghttp.WriteTooManyRequests(w,
			fmt.Sprintf("Please wait %d seconds before requesting a new code", rle.RetryAfterSeconds))
		return
	}

	switch {
	case errors.Is(err, models.ErrOTPNotFound),
		errors.Is(err, models.ErrOTPExpired),
		errors.Is(err, models.ErrOTPMismatch):
		pkghttp.WriteUnauthorized(w, "Invalid or expired code")
	case errors.Is(err, models.ErrRefreshMissing),
		errors.Is(err, models.ErrRefreshMismatch):
		pkghttp.WriteUnauthorized(w, "Authentication failed")
	case errors.Is(err, models.ErrSessionExpired):
		pkghttp.WriteUnauthorized(w, "Session expired. Please log in again")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Authentication failed")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Invalid request")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// Signup handles account registration. Duplicate emails get the same response
// as new ones so the endpoint cannot be used to probe for accounts.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	err := h.service.Signup(r.Context(), req.Name, req.Email, req.Password)
	if err != nil && !errors.Is(err, models.ErrConflict) {
		writeAuthError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "Check your email for a verification code")
}

// Login handles credential checks. With 2FA enabled the response carries no
// tokens; the client completes the flow through /verify-otp.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	if result.Requires2FA {
		pkghttp.WriteJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"requires2FA": true,
			"message":     "Check your email for a verification code",
		})
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"accessToken":  result.Tokens.AccessToken,
		"refreshToken": result.Tokens.RefreshToken,
	})
}

// VerifyOTP completes whichever flow the code was issued for.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	purpose, err := models.ParseOTPPurpose(req.Purpose)
	if err != nil {
		pkghttp.WriteBadRequest(w, "Unknown purpose")
		return
	}

	result, err := h.service.VerifyOTP(r.Context(), req.Email, purpose, req.Code)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	resp := map[string]any{
		"success": true,
		"message": "Verification successful",
	}
	if result.Tokens != nil {
		resp["accessToken"] = result.Tokens.AccessToken
		resp["refreshToken"] = result.Tokens.RefreshToken
	}
	if result.ResetToken != "" {
		resp["resetToken"] = result.ResetToken
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// ResendOTP regenerates a code, subject to the escalating cooldown.
func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req ResendOTPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	purpose, err := models.ParseOTPPurpose(req.Purpose)
	if err != nil {
		pkghttp.WriteBadRequest(w, "Unknown purpose")
		return
	}

	if err := h.service.ResendOTP(r.Context(), req.Email, purpose); err != nil {
		writeAuthError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "Check your email for a verification code")
}

// ForgotPassword mails a reset code. The response is the same whether or not
// the address has an account.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		writeAuthError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "If that email has an account, a reset code is on its way")
}

// ResetPassword sets a new password given the reset token from /verify-otp.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.ResetToken, req.NewPassword); err != nil {
		writeAuthError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "Password reset successful")
}

// ChangePassword updates the authenticated user's password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req ChangePasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.ChangePassword(r.Context(), claims.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		writeAuthError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "Password changed successfully")
}

// Toggle2FA starts the enable/disable confirmation flow.
func (h *AuthHandler) Toggle2FA(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req Toggle2FARequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.Toggle2FA(r.Context(), claims.UserID, *req.Enable); err != nil {
		writeAuthError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "Check your email for a confirmation code")
}

// Refresh exchanges a refresh token for a new access token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	accessToken, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"accessToken": accessToken,
	})
}

// Logout revokes the authenticated user's session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.service.Logout(r.Context(), claims.UserID); err != nil {
		writeAuthError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "Logged out")
}

// GetUserStatus returns the authenticated user's account summary.
func (h *AuthHandler) GetUserStatus(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	status, err := h.service.GetUserStatus(r.Context(), claims.UserID)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"email":        status.Email,
		"is2FAEnabled": status.Is2FAEnabled,
	})
}
