package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// OTP verification errors
	ErrOTPNotFound = errors.New("no one-time code on record")
	ErrOTPExpired  = errors.New("one-time code expired")
	ErrOTPMismatch = errors.New("one-time code does not match")

	// Session errors
	ErrRefreshMissing  = errors.New("refresh token missing")
	ErrRefreshMismatch = errors.New("refresh token invalid")
	ErrSessionExpired  = errors.New("session expired due to inactivity")
)

// RateLimitError is returned when an OTP is requested again before its
// cooldown has elapsed. RetryAfterSeconds is surfaced to the caller.
type RateLimitError struct {
	RetryAfterSeconds int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: retry in %d seconds", e.RetryAfterSeconds)
}

// IsRateLimited unwraps err into a RateLimitError if it is one.
func IsRateLimited(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}
