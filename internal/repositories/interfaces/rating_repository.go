package interfaces

import (
	"context"

	"ridepool/internal/models"
	"ridepool/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RatingRepository interface {
	// Create fails with ErrAlreadyRated when the (ride, rater, ratee)
	// triple already exists.
	Create(ctx context.Context, rating *models.Rating) error
	GetByRideID(ctx context.Context, rideID primitive.ObjectID) ([]*models.Rating, error)
	GetByRatedUser(ctx context.Context, toUserID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Rating, int64, error)
}
