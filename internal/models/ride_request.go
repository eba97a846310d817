package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "PENDING"
	RequestStatusConfirmed RequestStatus = "CONFIRMED"
	RequestStatusCancelled RequestStatus = "CANCELLED"
	RequestStatusRejected  RequestStatus = "REJECTED"
	RequestStatusInVehicle RequestStatus = "IN_VEHICLE"
	RequestStatusCompleted RequestStatus = "COMPLETED"
)

// RideRequest is a passenger's claim on seats in a ride offer.
type RideRequest struct {
	ID               primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	PassengerID      primitive.ObjectID `json:"passenger_id" bson:"passenger_id" validate:"required"`
	RideID           primitive.ObjectID `json:"ride_id" bson:"ride_id" validate:"required"`
	PickupLocation   string             `json:"pickup_location" bson:"pickup_location" validate:"required,max=255"`
	DropoffLocation  string             `json:"dropoff_location" bson:"dropoff_location" validate:"required,max=255"`
	PickupPoint      *GeoPoint          `json:"pickup_point" bson:"pickup_point"`
	DropoffPoint     *GeoPoint          `json:"dropoff_point" bson:"dropoff_point"`
	SeatsNeeded      int                `json:"seats_needed" bson:"seats_needed" validate:"min=1,max=8"`
	Status           RequestStatus      `json:"status" bson:"status" default:"PENDING"`
	PaymentCompleted bool               `json:"payment_completed" bson:"payment_completed"`
	CreatedAt        time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at" bson:"updated_at"`
}

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusPending:   {RequestStatusConfirmed, RequestStatusRejected, RequestStatusCancelled},
	RequestStatusConfirmed: {RequestStatusInVehicle, RequestStatusCancelled},
	RequestStatusInVehicle: {RequestStatusCompleted},
}

// CanTransitionTo reports whether the request may move to the target status.
func (r *RideRequest) CanTransitionTo(target RequestStatus) bool {
	for _, s := range requestTransitions[r.Status] {
		if s == target {
			return true
		}
	}
	return false
}
