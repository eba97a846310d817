package interfaces

import (
	"context"

	"ridepool/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ChatRepository interface {
	// Append-only: messages are never updated or deleted.
	Create(ctx context.Context, message *models.ChatMessage) error
	ListByRide(ctx context.Context, rideID primitive.ObjectID) ([]*models.ChatMessage, error)
}
