package models

import (
	"fmt"
	"time"
)

// OTPPurpose scopes a one-time code to the flow that requested it.
// Verification only matches codes issued for the same purpose.
type OTPPurpose string

const (
	OTPPurposeSignup     OTPPurpose = "signup"
	OTPPurposeLogin      OTPPurpose = "login"
	OTPPurposeForgot     OTPPurpose = "forgot"
	OTPPurposeReset      OTPPurpose = "reset"
	OTPPurposeEnable2FA  OTPPurpose = "enable2fa"
	OTPPurposeDisable2FA OTPPurpose = "disable2fa"
)

// ParseOTPPurpose validates a wire-level purpose string against the closed set.
func ParseOTPPurpose(s string) (OTPPurpose, error) {
	switch p := OTPPurpose(s); p {
	case OTPPurposeSignup, OTPPurposeLogin, OTPPurposeForgot,
		OTPPurposeReset, OTPPurposeEnable2FA, OTPPurposeDisable2FA:
		return p, nil
	default:
		return "", fmt.Errorf("unknown otp purpose %q", s)
	}
}

// OneTimeCode is a stored OTP record. Only the bcrypt hash of the code is
// persisted; the plaintext exists solely in the email that delivered it.
// Multiple live codes may exist per (email, purpose); verification always
// selects the most recently created one.
type OneTimeCode struct {
	ID        string
	Email     string
	Purpose   OTPPurpose
	CodeHash  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired checks the code against the given instant.
func (c *OneTimeCode) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
