package utils

import "time"

// Application Constants
const (
	AppName    = "Ridepool"
	AppVersion = "1.0.0"

	// Default values
	DefaultCountryCode = "+1"
	DefaultTimeZone    = "UTC"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1

	// Authentication
	JWTAccessTokenTTL  = 24 * time.Hour
	JWTRefreshTokenTTL = 7 * 24 * time.Hour
	PasswordMinLength  = 8
	PasswordMaxLength  = 128

	// Identity
	MaxPhoneLength = 15

	// Rating bounds
	MinRatingScore = 1
	MaxRatingScore = 5

	// OTP re-issue rate limiting (per user+purpose, redis-counted)
	OTPResendLimit  = 3
	OTPResendWindow = 15 * time.Minute

	// Chat
	MaxMessageLength = 1000

	// Geo
	EarthRadiusKM = 6371.0

	// Response statuses
	StatusSuccess = "success"
	StatusError   = "error"
)
