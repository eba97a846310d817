package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ridepool/internal/models"
	"ridepool/internal/repositories/interfaces"
	"ridepool/internal/utils"
	"ridepool/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RideService owns ride offers, passenger requests against them, the
// post-ride ratings and the per-ride chat log.
type RideService interface {
	// Offers
	CreateOffer(ctx context.Context, driverID primitive.ObjectID, request *CreateOfferRequest) (*models.RideOffer, error)
	GetOffer(ctx context.Context, id primitive.ObjectID) (*models.RideOffer, error)
	ChangeOfferStatus(ctx context.Context, id primitive.ObjectID, driverID primitive.ObjectID, to models.OfferStatus) (*models.RideOffer, error)
	ListOffers(ctx context.Context, status models.OfferStatus, params *utils.PaginationParams) ([]*models.RideOffer, int64, error)
	ListOffersByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.RideOffer, int64, error)

	// Requests
	CreateRequest(ctx context.Context, passengerID primitive.ObjectID, request *CreateRideRequest) (*models.RideRequest, error)
	GetRequest(ctx context.Context, id primitive.ObjectID) (*models.RideRequest, error)
	ChangeRequestStatus(ctx context.Context, id primitive.ObjectID, to models.RequestStatus) (*models.RideRequest, error)
	CompletePayment(ctx context.Context, id primitive.ObjectID) error
	ListRequestsByRide(ctx context.Context, rideID primitive.ObjectID, params *utils.PaginationParams) ([]*models.RideRequest, int64, error)
	ListRequestsByPassenger(ctx context.Context, passengerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.RideRequest, int64, error)

	// Ratings
	RateUser(ctx context.Context, fromUserID primitive.ObjectID, request *RateUserRequest) (*models.Rating, error)
	ListRatingsForUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Rating, int64, error)
	ListRatingsForRide(ctx context.Context, rideID primitive.ObjectID) ([]*models.Rating, error)

	// Chat
	SendMessage(ctx context.Context, senderID primitive.ObjectID, request *SendMessageRequest) (*models.ChatMessage, error)
	ListMessages(ctx context.Context, rideID primitive.ObjectID) ([]*models.ChatMessage, error)
}

type CreateOfferRequest struct {
	StartLocation  string           `json:"start_location" validate:"required,max=255"`
	EndLocation    string           `json:"end_location" validate:"required,max=255"`
	StartPoint     *models.GeoPoint `json:"start_point"`
	EndPoint       *models.GeoPoint `json:"end_point"`
	RouteLine      *models.GeoLine  `json:"route_line"`
	StartTime      time.Time        `json:"start_time" validate:"required"`
	AvailableSeats int              `json:"available_seats" validate:"min=1,max=8"`
}

type CreateRideRequest struct {
	RideID          primitive.ObjectID `json:"ride_id" validate:"required"`
	PickupLocation  string             `json:"pickup_location" validate:"required,max=255"`
	DropoffLocation string             `json:"dropoff_location" validate:"required,max=255"`
	PickupPoint     *models.GeoPoint   `json:"pickup_point"`
	DropoffPoint    *models.GeoPoint   `json:"dropoff_point"`
	SeatsNeeded     int                `json:"seats_needed" validate:"min=1,max=8"`
}

type RateUserRequest struct {
	RideID   primitive.ObjectID `json:"ride_id" validate:"required"`
	ToUserID primitive.ObjectID `json:"to_user_id" validate:"required"`
	Role     models.UserRole    `json:"role" validate:"required"`
	Score    int                `json:"score" validate:"required,score"`
}

type SendMessageRequest struct {
	RideID     primitive.ObjectID `json:"ride_id" validate:"required"`
	ReceiverID primitive.ObjectID `json:"receiver_id" validate:"required"`
	Message    string             `json:"message" validate:"required,max=1000"`
}

type rideService struct {
	rideRepo    interfaces.RideRepository
	ratingRepo  interfaces.RatingRepository
	chatRepo    interfaces.ChatRepository
	userRepo    interfaces.UserRepository
	userService RegistrationService
	logger      *logger.Logger
}

func NewRideService(
	rideRepo interfaces.RideRepository,
	ratingRepo interfaces.RatingRepository,
	chatRepo interfaces.ChatRepository,
	userRepo interfaces.UserRepository,
	userService RegistrationService,
	logger *logger.Logger,
) RideService {
	return &rideService{
		rideRepo:    rideRepo,
		ratingRepo:  ratingRepo,
		chatRepo:    chatRepo,
		userRepo:    userRepo,
		userService: userService,
		logger:      logger,
	}
}

// Offers

func (s *rideService) CreateOffer(ctx context.Context, driverID primitive.ObjectID, request *CreateOfferRequest) (*models.RideOffer, error) {
	if request.AvailableSeats < models.MinSeats || request.AvailableSeats > models.MaxSeats {
		return nil, models.ErrSeatsExceeded
	}

	driver, err := s.userRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if !driver.IsActive {
		return nil, models.ErrNotActive
	}

	offer := &models.RideOffer{
		DriverID:       driverID,
		StartLocation:  strings.TrimSpace(request.StartLocation),
		EndLocation:    strings.TrimSpace(request.EndLocation),
		StartPoint:     request.StartPoint,
		EndPoint:       request.EndPoint,
		RouteLine:      request.RouteLine,
		StartTime:      request.StartTime,
		AvailableSeats: request.AvailableSeats,
	}

	if err := utils.ValidateStruct(offer); err != nil {
		return nil, err
	}

	if err := s.rideRepo.CreateOffer(ctx, offer); err != nil {
		return nil, err
	}

	s.logger.LogRideEvent(offer.ID, "offer_created", map[string]interface{}{
		"driver_id": driverID.Hex(),
		"seats":     offer.AvailableSeats,
	})

	return offer, nil
}

func (s *rideService) GetOffer(ctx context.Context, id primitive.ObjectID) (*models.RideOffer, error) {
	return s.rideRepo.GetOfferByID(ctx, id)
}

func (s *rideService) ChangeOfferStatus(ctx context.Context, id primitive.ObjectID, driverID primitive.ObjectID, to models.OfferStatus) (*models.RideOffer, error) {
	offer, err := s.rideRepo.GetOfferByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if offer.DriverID != driverID {
		return nil, models.ErrNotFound
	}
	if !offer.CanTransitionTo(to) {
		return nil, models.ErrBadTransition
	}

	// Conditional on the status read above; a concurrent move means the
	// transition we validated no longer applies.
	moved, err := s.rideRepo.UpdateOfferStatus(ctx, id, offer.Status, to)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, models.ErrBadTransition
	}

	if to == models.OfferStatusCompleted {
		if err := s.userRepo.IncrementCompletedRides(ctx, offer.DriverID, models.RoleDriver); err != nil {
			s.logger.WithError(err).WithRideID(id).Warn("failed to bump driver ride counter")
		}
	}

	s.logger.LogRideEvent(id, "offer_status_changed", map[string]interface{}{
		"from": offer.Status,
		"to":   to,
	})

	offer.Status = to
	return offer, nil
}

func (s *rideService) ListOffers(ctx context.Context, status models.OfferStatus, params *utils.PaginationParams) ([]*models.RideOffer, int64, error) {
	return s.rideRepo.ListOffers(ctx, status, params)
}

func (s *rideService) ListOffersByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.RideOffer, int64, error) {
	return s.rideRepo.ListOffersByDriver(ctx, driverID, params)
}

// Requests

func (s *rideService) CreateRequest(ctx context.Context, passengerID primitive.ObjectID, request *CreateRideRequest) (*models.RideRequest, error) {
	if request.SeatsNeeded < models.MinSeats || request.SeatsNeeded > models.MaxSeats {
		return nil, models.ErrSeatsExceeded
	}

	passenger, err := s.userRepo.GetByID(ctx, passengerID)
	if err != nil {
		return nil, err
	}
	if !passenger.IsActive {
		return nil, models.ErrNotActive
	}

	offer, err := s.rideRepo.GetOfferByID(ctx, request.RideID)
	if err != nil {
		return nil, err
	}
	if offer.Status != models.OfferStatusPending {
		return nil, models.ErrBadTransition
	}
	if request.SeatsNeeded > offer.AvailableSeats {
		return nil, models.ErrSeatsExceeded
	}

	rideRequest := &models.RideRequest{
		PassengerID:     passengerID,
		RideID:          request.RideID,
		PickupLocation:  strings.TrimSpace(request.PickupLocation),
		DropoffLocation: strings.TrimSpace(request.DropoffLocation),
		PickupPoint:     request.PickupPoint,
		DropoffPoint:    request.DropoffPoint,
		SeatsNeeded:     request.SeatsNeeded,
	}

	if err := utils.ValidateStruct(rideRequest); err != nil {
		return nil, err
	}

	if err := s.rideRepo.CreateRequest(ctx, rideRequest); err != nil {
		return nil, err
	}

	s.logger.LogRideEvent(request.RideID, "request_created", map[string]interface{}{
		"request_id":   rideRequest.ID.Hex(),
		"passenger_id": passengerID.Hex(),
		"seats":        rideRequest.SeatsNeeded,
	})

	return rideRequest, nil
}

func (s *rideService) GetRequest(ctx context.Context, id primitive.ObjectID) (*models.RideRequest, error) {
	return s.rideRepo.GetRequestByID(ctx, id)
}

func (s *rideService) ChangeRequestStatus(ctx context.Context, id primitive.ObjectID, to models.RequestStatus) (*models.RideRequest, error) {
	request, err := s.rideRepo.GetRequestByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !request.CanTransitionTo(to) {
		return nil, models.ErrBadTransition
	}

	// Confirming consumes seats; check the remaining capacity against
	// everything already confirmed or on board.
	if to == models.RequestStatusConfirmed {
		offer, err := s.rideRepo.GetOfferByID(ctx, request.RideID)
		if err != nil {
			return nil, err
		}

		taken, err := s.rideRepo.ConfirmedSeats(ctx, request.RideID)
		if err != nil {
			return nil, err
		}
		if taken+request.SeatsNeeded > offer.AvailableSeats {
			return nil, models.ErrSeatsExceeded
		}
	}

	moved, err := s.rideRepo.UpdateRequestStatus(ctx, id, request.Status, to)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, models.ErrBadTransition
	}

	if to == models.RequestStatusCompleted {
		if err := s.userRepo.IncrementCompletedRides(ctx, request.PassengerID, models.RolePassenger); err != nil {
			s.logger.WithError(err).WithRideID(request.RideID).Warn("failed to bump passenger ride counter")
		}
	}

	s.logger.LogRideEvent(request.RideID, "request_status_changed", map[string]interface{}{
		"request_id": id.Hex(),
		"from":       request.Status,
		"to":         to,
	})

	request.Status = to
	return request, nil
}

func (s *rideService) CompletePayment(ctx context.Context, id primitive.ObjectID) error {
	return s.rideRepo.SetPaymentCompleted(ctx, id)
}

func (s *rideService) ListRequestsByRide(ctx context.Context, rideID primitive.ObjectID, params *utils.PaginationParams) ([]*models.RideRequest, int64, error) {
	return s.rideRepo.ListRequestsByRide(ctx, rideID, params)
}

func (s *rideService) ListRequestsByPassenger(ctx context.Context, passengerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.RideRequest, int64, error) {
	return s.rideRepo.ListRequestsByPassenger(ctx, passengerID, params)
}

// Ratings

func (s *rideService) RateUser(ctx context.Context, fromUserID primitive.ObjectID, request *RateUserRequest) (*models.Rating, error) {
	if request.Score < utils.MinRatingScore || request.Score > utils.MaxRatingScore {
		return nil, fmt.Errorf("%w: score", models.ErrMissingField)
	}
	if fromUserID == request.ToUserID {
		return nil, models.ErrMissingField
	}

	offer, err := s.rideRepo.GetOfferByID(ctx, request.RideID)
	if err != nil {
		return nil, err
	}
	if offer.Status != models.OfferStatusCompleted {
		return nil, models.ErrBadTransition
	}

	rating := &models.Rating{
		RideID:     request.RideID,
		FromUserID: fromUserID,
		ToUserID:   request.ToUserID,
		Score:      request.Score,
	}

	if err := s.ratingRepo.Create(ctx, rating); err != nil {
		return nil, err
	}

	// The rating row is the source of truth; the EMA and ride counter on
	// the profile follow it. A lost EMA race is logged, not rolled back.
	if _, err := s.userService.UpdateRating(ctx, request.ToUserID, request.Role, float64(request.Score)); err != nil {
		if errors.Is(err, models.ErrStoreConflict) {
			s.logger.WithUserID(request.ToUserID).Warn("rating average update lost repeated races")
		} else {
			return nil, err
		}
	}

	s.logger.LogRideEvent(request.RideID, "user_rated", map[string]interface{}{
		"from_user_id": fromUserID.Hex(),
		"to_user_id":   request.ToUserID.Hex(),
		"score":        request.Score,
	})

	return rating, nil
}

func (s *rideService) ListRatingsForUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Rating, int64, error) {
	return s.ratingRepo.GetByRatedUser(ctx, userID, params)
}

func (s *rideService) ListRatingsForRide(ctx context.Context, rideID primitive.ObjectID) ([]*models.Rating, error) {
	if _, err := s.rideRepo.GetOfferByID(ctx, rideID); err != nil {
		return nil, err
	}
	return s.ratingRepo.GetByRideID(ctx, rideID)
}

// Chat

func (s *rideService) SendMessage(ctx context.Context, senderID primitive.ObjectID, request *SendMessageRequest) (*models.ChatMessage, error) {
	message := strings.TrimSpace(request.Message)
	if message == "" {
		return nil, models.ErrMissingField
	}
	if len(message) > utils.MaxMessageLength {
		return nil, fmt.Errorf("%w: message too long", models.ErrMissingField)
	}

	if _, err := s.rideRepo.GetOfferByID(ctx, request.RideID); err != nil {
		return nil, err
	}

	chatMessage := &models.ChatMessage{
		RideID:     request.RideID,
		SenderID:   senderID,
		ReceiverID: request.ReceiverID,
		Message:    message,
	}

	if err := s.chatRepo.Create(ctx, chatMessage); err != nil {
		return nil, err
	}

	return chatMessage, nil
}

func (s *rideService) ListMessages(ctx context.Context, rideID primitive.ObjectID) ([]*models.ChatMessage, error) {
	return s.chatRepo.ListByRide(ctx, rideID)
}
