package interfaces

import (
	"context"

	"ridepool/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OTPRepository holds one-time codes scoped to a user and a purpose. Codes
// are never deleted; state changes only (audit trail).
type OTPRepository interface {
	// Issue supersedes all active codes of (user, purpose) and inserts the
	// fresh one with attempts=0, as a single transaction. At most one
	// active OTP exists per (user, purpose) at any time.
	Issue(ctx context.Context, userID primitive.ObjectID, purpose models.OTPPurpose, code string) (*models.OTP, error)

	// IncrementAttempts atomically bumps the attempt counter on the active
	// code of (user, purpose) and returns the post-increment document.
	// ErrNotFound when no active code exists.
	IncrementAttempts(ctx context.Context, userID primitive.ObjectID, purpose models.OTPPurpose) (*models.OTP, error)

	MarkRedeemed(ctx context.Context, id primitive.ObjectID) error

	GetActive(ctx context.Context, userID primitive.ObjectID, purpose models.OTPPurpose) (*models.OTP, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.OTP, error)
}
