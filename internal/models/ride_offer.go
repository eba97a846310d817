package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OfferStatus string

const (
	OfferStatusPending   OfferStatus = "PENDING"
	OfferStatusOngoing   OfferStatus = "ONGOING"
	OfferStatusCompleted OfferStatus = "COMPLETED"
	OfferStatusCancelled OfferStatus = "CANCELLED"
)

const (
	MinSeats = 1
	MaxSeats = 8
)

// RideOffer is a driver's published ride.
type RideOffer struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	DriverID       primitive.ObjectID `json:"driver_id" bson:"driver_id" validate:"required"`
	StartLocation  string             `json:"start_location" bson:"start_location" validate:"required,max=255"`
	EndLocation    string             `json:"end_location" bson:"end_location" validate:"required,max=255"`
	StartPoint     *GeoPoint          `json:"start_point" bson:"start_point"`
	EndPoint       *GeoPoint          `json:"end_point" bson:"end_point"`
	RouteLine      *GeoLine           `json:"route_line" bson:"route_line"`
	StartTime      time.Time          `json:"start_time" bson:"start_time" validate:"required"`
	AvailableSeats int                `json:"available_seats" bson:"available_seats" validate:"min=1,max=8"`
	Status         OfferStatus        `json:"status" bson:"status" default:"PENDING"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at" bson:"updated_at"`
}

var offerTransitions = map[OfferStatus][]OfferStatus{
	OfferStatusPending: {OfferStatusOngoing, OfferStatusCancelled},
	OfferStatusOngoing: {OfferStatusCompleted, OfferStatusCancelled},
}

// CanTransitionTo reports whether the offer may move to the target status.
// COMPLETED and CANCELLED are terminal.
func (o *RideOffer) CanTransitionTo(target OfferStatus) bool {
	for _, s := range offerTransitions[o.Status] {
		if s == target {
			return true
		}
	}
	return false
}
