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
)

type rideRepository struct {
	offers   *mongo.Collection
	requests *mongo.Collection
	clock    utils.Clock
}

func NewRideRepository(db *database.MongoDB, clock utils.Clock) interfaces.RideRepository {
	return &rideRepository{
		offers:   db.Collection("ride_offers"),
		requests: db.Collection("ride_requests"),
		clock:    clock,
	}
}

// Offers

func (r *rideRepository) CreateOffer(ctx context.Context, offer *models.RideOffer) error {
	offer.ID = primitive.NewObjectID()
	offer.Status = models.OfferStatusPending
	offer.CreatedAt = r.clock.Now()
	offer.UpdatedAt = offer.CreatedAt

	if _, err := r.offers.InsertOne(ctx, offer); err != nil {
		return fmt.Errorf("failed to create ride offer: %w", err)
	}
	return nil
}

func (r *rideRepository) GetOfferByID(ctx context.Context, id primitive.ObjectID) (*models.RideOffer, error) {
	var offer models.RideOffer
	err := r.offers.FindOne(ctx, bson.M{"_id": id}).Decode(&offer)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ride offer: %w", err)
	}
	return &offer, nil
}

func (r *rideRepository) UpdateOfferStatus(ctx context.Context, id primitive.ObjectID, from, to models.OfferStatus) (bool, error) {
	result, err := r.offers.UpdateOne(
		ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": r.clock.Now()}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to update offer status: %w", err)
	}
	return result.MatchedCount > 0, nil
}

func (r *rideRepository) ListOffers(ctx context.Context, status models.OfferStatus, params *utils.PaginationParams) ([]*models.RideOffer, int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return r.findOffers(ctx, filter, params)
}

func (r *rideRepository) ListOffersByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.RideOffer, int64, error) {
	return r.findOffers(ctx, bson.M{"driver_id": driverID}, params)
}

func (r *rideRepository) findOffers(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.RideOffer, int64, error) {
	total, err := r.offers.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count ride offers: %w", err)
	}

	cursor, err := r.offers.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list ride offers: %w", err)
	}
	defer cursor.Close(ctx)

	var offers []*models.RideOffer
	if err := cursor.All(ctx, &offers); err != nil {
		return nil, 0, fmt.Errorf("failed to decode ride offers: %w", err)
	}

	return offers, total, nil
}

// Requests

func (r *rideRepository) CreateRequest(ctx context.Context, request *models.RideRequest) error {
	request.ID = primitive.NewObjectID()
	request.Status = models.RequestStatusPending
	request.CreatedAt = r.clock.Now()
	request.UpdatedAt = request.CreatedAt

	if _, err := r.requests.InsertOne(ctx, request); err != nil {
		return fmt.Errorf("failed to create ride request: %w", err)
	}
	return nil
}

func (r *rideRepository) GetRequestByID(ctx context.Context, id primitive.ObjectID) (*models.RideRequest, error) {
	var request models.RideRequest
	err := r.requests.FindOne(ctx, bson.M{"_id": id}).Decode(&request)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ride request: %w", err)
	}
	return &request, nil
}

func (r *rideRepository) UpdateRequestStatus(ctx context.Context, id primitive.ObjectID, from, to models.RequestStatus) (bool, error) {
	result, err := r.requests.UpdateOne(
		ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": r.clock.Now()}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to update request status: %w", err)
	}
	return result.MatchedCount > 0, nil
}

func (r *rideRepository) SetPaymentCompleted(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.requests.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"payment_completed": true, "updated_at": r.clock.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to set payment completed: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *rideRepository) ListRequestsByRide(ctx context.Context, rideID primitive.ObjectID, params *utils.PaginationParams) ([]*models.RideRequest, int64, error) {
	return r.findRequests(ctx, bson.M{"ride_id": rideID}, params)
}

func (r *rideRepository) ListRequestsByPassenger(ctx context.Context, passengerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.RideRequest, int64, error) {
	return r.findRequests(ctx, bson.M{"passenger_id": passengerID}, params)
}

func (r *rideRepository) findRequests(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.RideRequest, int64, error) {
	total, err := r.requests.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count ride requests: %w", err)
	}

	cursor, err := r.requests.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list ride requests: %w", err)
	}
	defer cursor.Close(ctx)

	var requests []*models.RideRequest
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, 0, fmt.Errorf("failed to decode ride requests: %w", err)
	}

	return requests, total, nil
}

func (r *rideRepository) ConfirmedSeats(ctx context.Context, rideID primitive.ObjectID) (int, error) {
	pipeline := []bson.M{
		{"$match": bson.M{
			"ride_id": rideID,
			"status":  bson.M{"$in": []models.RequestStatus{models.RequestStatusConfirmed, models.RequestStatusInVehicle}},
		}},
		{"$group": bson.M{
			"_id":   nil,
			"seats": bson.M{"$sum": "$seats_needed"},
		}},
	}

	cursor, err := r.requests.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to sum confirmed seats: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Seats int `bson:"seats"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("failed to decode seat sum: %w", err)
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Seats, nil
}
