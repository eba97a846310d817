package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatMessage is an append-only in-ride message, ordered by timestamp.
type ChatMessage struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RideID     primitive.ObjectID `json:"ride_id" bson:"ride_id" validate:"required"`
	SenderID   primitive.ObjectID `json:"sender_id" bson:"sender_id" validate:"required"`
	ReceiverID primitive.ObjectID `json:"receiver_id" bson:"receiver_id" validate:"required"`
	Message    string             `json:"message" bson:"message" validate:"required,max=1000"`
	Timestamp  time.Time          `json:"timestamp" bson:"timestamp"`
}
