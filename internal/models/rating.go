package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Rating is one user's score for another on a specific ride. The
// (ride_id, from_user_id, to_user_id) triple is unique: a user rates
// another at most once per ride.
type Rating struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RideID     primitive.ObjectID `json:"ride_id" bson:"ride_id" validate:"required"`
	FromUserID primitive.ObjectID `json:"from_user_id" bson:"from_user_id" validate:"required"`
	ToUserID   primitive.ObjectID `json:"to_user_id" bson:"to_user_id" validate:"required"`
	Score      int                `json:"score" bson:"score" validate:"required,min=1,max=5"`
	CreatedAt  time.Time          `json:"created_at" bson:"created_at"`
}
