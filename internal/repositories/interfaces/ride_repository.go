package interfaces

import (
	"context"

	"ridepool/internal/models"
	"ridepool/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RideRepository stores ride offers and the passenger requests against them.
type RideRepository interface {
	// Offers
	CreateOffer(ctx context.Context, offer *models.RideOffer) error
	GetOfferByID(ctx context.Context, id primitive.ObjectID) (*models.RideOffer, error)
	// UpdateOfferStatus writes the target status only if the offer is
	// still in the expected current status; false means it moved.
	UpdateOfferStatus(ctx context.Context, id primitive.ObjectID, from, to models.OfferStatus) (bool, error)
	ListOffers(ctx context.Context, status models.OfferStatus, params *utils.PaginationParams) ([]*models.RideOffer, int64, error)
	ListOffersByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.RideOffer, int64, error)

	// Requests
	CreateRequest(ctx context.Context, request *models.RideRequest) error
	GetRequestByID(ctx context.Context, id primitive.ObjectID) (*models.RideRequest, error)
	UpdateRequestStatus(ctx context.Context, id primitive.ObjectID, from, to models.RequestStatus) (bool, error)
	SetPaymentCompleted(ctx context.Context, id primitive.ObjectID) error
	ListRequestsByRide(ctx context.Context, rideID primitive.ObjectID, params *utils.PaginationParams) ([]*models.RideRequest, int64, error)
	ListRequestsByPassenger(ctx context.Context, passengerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.RideRequest, int64, error)

	// ConfirmedSeats sums seats_needed over CONFIRMED and IN_VEHICLE
	// requests for the offer.
	ConfirmedSeats(ctx context.Context, rideID primitive.ObjectID) (int, error)
}
