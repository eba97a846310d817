package models

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors. All failures cross layer boundaries as typed values;
// callers match with errors.Is / errors.As.
var (
	// Input validation, rejected before touching the store.
	ErrInvalidEmail = errors.New("invalid email address")
	ErrMissingField = errors.New("missing required field")

	// ErrDuplicateActive: a confirmed account already owns this email or
	// phone. Permanent; the caller must use account recovery instead.
	ErrDuplicateActive = errors.New("an account with this email or phone already exists")

	// OTP redemption failures.
	ErrWrongCode       = errors.New("incorrect verification code")
	ErrOTPExpired      = errors.New("verification code expired")
	ErrTooManyAttempts = errors.New("too many verification attempts")

	// ErrStoreConflict: an atomic write lost a race (constraint violation
	// surfaced at commit). Retried once by the caller-facing wrapper.
	ErrStoreConflict = errors.New("store conflict")

	// ErrResendLimited: OTP re-issue rate limit hit for this user.
	ErrResendLimited = errors.New("too many code requests, try again later")

	ErrNotFound       = errors.New("record not found")
	ErrAlreadyRated   = errors.New("user already rated for this ride")
	ErrBadTransition  = errors.New("status transition not allowed")
	ErrSeatsExceeded  = errors.New("not enough seats available")
	ErrNotActive      = errors.New("account is not active")
	ErrBadCredentials = errors.New("invalid credentials")
)

// RegistrationInFlightError blocks a registration attempt while a live
// pending record holds the identity. Retryable after Remaining elapses.
type RegistrationInFlightError struct {
	Remaining           time.Duration
	PendingVerification OTPPurpose
}

func (e *RegistrationInFlightError) Error() string {
	minutes := int(e.Remaining.Minutes())
	seconds := int(e.Remaining.Seconds()) % 60
	if e.PendingVerification == OTPPurposePhone {
		return fmt.Sprintf("phone verification pending, verify or wait %dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("email verification pending, verify or wait %dm %ds", minutes, seconds)
}
