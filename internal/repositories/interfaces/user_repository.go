package interfaces

import (
	"context"

	"ridepool/internal/models"
	"ridepool/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRepository is the registration ledger: the authoritative set of user
// identity records, pending or confirmed, with expiry-driven reclamation of
// stale pending rows.
type UserRepository interface {
	// Registration lifecycle. InsertPending runs reclamation, both
	// collision checks and the insert inside one transaction; Confirm
	// flips the pending/active flags atomically with the verification
	// write once every required purpose is verified.
	ReclaimExpired(ctx context.Context, email, phone string) (int64, error)
	FindBlockingPending(ctx context.Context, email, phone string) (*models.UserAccount, error)
	InsertPending(ctx context.Context, user *models.UserAccount) error
	Confirm(ctx context.Context, id primitive.ObjectID, purpose models.OTPPurpose, required []models.OTPPurpose) (*models.UserAccount, error)

	// Basic CRUD operations
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.UserAccount, error)
	GetByEmail(ctx context.Context, email string) (*models.UserAccount, error)
	GetByPhone(ctx context.Context, phone string) (*models.UserAccount, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	List(ctx context.Context, params *utils.PaginationParams) ([]*models.UserAccount, int64, error)

	// Rating bookkeeping. CompareAndSetRating writes the new EMA value only
	// if the stored one still equals old; false means the caller lost a
	// race and must recompute.
	CompareAndSetRating(ctx context.Context, id primitive.ObjectID, role models.UserRole, old, new float64) (bool, error)
	IncrementCompletedRides(ctx context.Context, id primitive.ObjectID, role models.UserRole) error
}
