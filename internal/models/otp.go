package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OTPPurpose string
type OTPStatus string

const (
	OTPPurposeEmail         OTPPurpose = "EMAIL"
	OTPPurposePhone         OTPPurpose = "PHONE"
	OTPPurposePasswordReset OTPPurpose = "PASSWORD_RESET"

	// OTPStatusActive is the single live code per (user, purpose).
	// Redeemed and superseded codes are kept as an audit trail.
	OTPStatusActive     OTPStatus = "active"
	OTPStatusRedeemed   OTPStatus = "redeemed"
	OTPStatusSuperseded OTPStatus = "superseded"
)

const (
	OTPLength      = 6
	OTPValidity    = 10 * time.Minute
	MaxOTPAttempts = 3
)

// OTP is a one-time numeric code scoped to one user and one purpose.
type OTP struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"user_id" bson:"user_id" validate:"required"`
	Purpose   OTPPurpose         `json:"purpose" bson:"purpose" validate:"required"`
	Code      string             `json:"-" bson:"code"`
	Status    OTPStatus          `json:"status" bson:"status" default:"active"`
	Attempts  int                `json:"attempts" bson:"attempts"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// Expired reports whether the code has outlived its validity window.
func (o *OTP) Expired(now time.Time) bool {
	return now.After(o.CreatedAt.Add(OTPValidity))
}

// Valid reports whether the code can still be redeemed: active, under the
// attempt cap, and inside the validity window.
func (o *OTP) Valid(now time.Time) bool {
	return o.Status == OTPStatusActive && o.Attempts < MaxOTPAttempts && !o.Expired(now)
}

// AttemptsLeft is how many guesses remain before the code is burned.
func (o *OTP) AttemptsLeft() int {
	left := MaxOTPAttempts - o.Attempts
	if left < 0 {
		return 0
	}
	return left
}
