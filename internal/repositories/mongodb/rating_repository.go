package mongodb

import (
	"context"
	"fmt"

	"ridepool/internal/models"
	"ridepool/internal/repositories/interfaces"
	"ridepool/internal/utils"
	"ridepool/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ratingRepository struct {
	collection *mongo.Collection
	clock      utils.Clock
}

func NewRatingRepository(db *database.MongoDB, clock utils.Clock) interfaces.RatingRepository {
	return &ratingRepository{
		collection: db.Collection("ratings"),
		clock:      clock,
	}
}

func (r *ratingRepository) Create(ctx context.Context, rating *models.Rating) error {
	rating.ID = primitive.NewObjectID()
	rating.CreatedAt = r.clock.Now()

	// The unique (ride_id, from_user_id, to_user_id) index enforces
	// one rating per rater per ratee per ride.
	if _, err := r.collection.InsertOne(ctx, rating); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.ErrAlreadyRated
		}
		return fmt.Errorf("failed to create rating: %w", err)
	}
	return nil
}

func (r *ratingRepository) GetByRideID(ctx context.Context, rideID primitive.ObjectID) ([]*models.Rating, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"ride_id": rideID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	defer cursor.Close(ctx)

	var ratings []*models.Rating
	if err := cursor.All(ctx, &ratings); err != nil {
		return nil, fmt.Errorf("failed to decode ratings: %w", err)
	}
	return ratings, nil
}

func (r *ratingRepository) GetByRatedUser(ctx context.Context, toUserID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Rating, int64, error) {
	filter := bson.M{"to_user_id": toUserID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count ratings: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list ratings: %w", err)
	}
	defer cursor.Close(ctx)

	var ratings []*models.Rating
	if err := cursor.All(ctx, &ratings); err != nil {
		return nil, 0, fmt.Errorf("failed to decode ratings: %w", err)
	}

	return ratings, total, nil
}
