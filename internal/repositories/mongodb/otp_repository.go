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

type otpRepository struct {
	db         *database.MongoDB
	collection *mongo.Collection
	clock      utils.Clock
}

func NewOTPRepository(db *database.MongoDB, clock utils.Clock) interfaces.OTPRepository {
	return &otpRepository{
		db:         db,
		collection: db.Collection("otps"),
		clock:      clock,
	}
}

func (r *otpRepository) Issue(ctx context.Context, userID primitive.ObjectID, purpose models.OTPPurpose, code string) (*models.OTP, error) {
	now := r.clock.Now()
	otp := &models.OTP{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Purpose:   purpose,
		Code:      code,
		Status:    models.OTPStatusActive,
		Attempts:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := r.db.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		_, err := r.collection.UpdateMany(
			sessCtx,
			bson.M{"user_id": userID, "purpose": purpose, "status": models.OTPStatusActive},
			bson.M{"$set": bson.M{"status": models.OTPStatusSuperseded, "updated_at": now}},
		)
		if err != nil {
			return nil, fmt.Errorf("failed to supersede active codes: %w", err)
		}

		if _, err := r.collection.InsertOne(sessCtx, otp); err != nil {
			return nil, fmt.Errorf("failed to insert otp: %w", err)
		}

		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	return otp, nil
}

func (r *otpRepository) IncrementAttempts(ctx context.Context, userID primitive.ObjectID, purpose models.OTPPurpose) (*models.OTP, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var otp models.OTP
	err := r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"user_id": userID, "purpose": purpose, "status": models.OTPStatusActive},
		bson.M{
			"$inc": bson.M{"attempts": 1},
			"$set": bson.M{"updated_at": r.clock.Now()},
		},
		opts,
	).Decode(&otp)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to increment attempts: %w", err)
	}

	return &otp, nil
}

func (r *otpRepository) MarkRedeemed(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "status": models.OTPStatusActive},
		bson.M{"$set": bson.M{"status": models.OTPStatusRedeemed, "updated_at": r.clock.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark otp redeemed: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *otpRepository) GetActive(ctx context.Context, userID primitive.ObjectID, purpose models.OTPPurpose) (*models.OTP, error) {
	var otp models.OTP
	err := r.collection.FindOne(
		ctx,
		bson.M{"user_id": userID, "purpose": purpose, "status": models.OTPStatusActive},
	).Decode(&otp)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active otp: %w", err)
	}
	return &otp, nil
}

func (r *otpRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.OTP, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list otps: %w", err)
	}
	defer cursor.Close(ctx)

	var otps []*models.OTP
	if err := cursor.All(ctx, &otps); err != nil {
		return nil, fmt.Errorf("failed to decode otps: %w", err)
	}
	return otps, nil
}
