package handlers

import (
	"ridepool/internal/models"
	"ridepool/internal/services"
	"ridepool/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RideHandler struct {
	rideService services.RideService
}

func NewRideHandler(rideService services.RideService) *RideHandler {
	return &RideHandler{
		rideService: rideService,
	}
}

func pathID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid ID")
		return primitive.NilObjectID, false
	}
	return id, true
}

// Offers

// CreateOffer publishes a new ride offer for the authenticated driver.
func (h *RideHandler) CreateOffer(c *gin.Context) {
	driverID, ok := currentUserID(c)
	if !ok {
		return
	}

	var request services.CreateOfferRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	offer, err := h.rideService.CreateOffer(c.Request.Context(), driverID, &request)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, "Ride offer created", offer)
}

// GetOffer returns one offer with its straight-line trip distance.
func (h *RideHandler) GetOffer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	offer, err := h.rideService.GetOffer(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	response := gin.H{"offer": offer}
	if offer.StartPoint != nil && offer.EndPoint != nil {
		response["distance_km"] = utils.CalculateDistance(
			offer.StartPoint.Latitude(), offer.StartPoint.Longitude(),
			offer.EndPoint.Latitude(), offer.EndPoint.Longitude(),
		)
	}

	utils.SuccessResponse(c, "Ride offer", response)
}

type changeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ChangeOfferStatus moves an offer along its lifecycle.
func (h *RideHandler) ChangeOfferStatus(c *gin.Context) {
	driverID, ok := currentUserID(c)
	if !ok {
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}

	var request changeStatusRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	offer, err := h.rideService.ChangeOfferStatus(c.Request.Context(), id, driverID, models.OfferStatus(request.Status))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Offer status updated", offer)
}

// ListOffers returns offers, optionally filtered by status.
func (h *RideHandler) ListOffers(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	status := models.OfferStatus(c.Query("status"))

	offers, total, err := h.rideService.ListOffers(c.Request.Context(), status, params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride offers", gin.H{
		"offers": offers,
		"meta":   params.GetMeta(total),
	})
}

// ListMyOffers returns the authenticated driver's offers.
func (h *RideHandler) ListMyOffers(c *gin.Context) {
	driverID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	offers, total, err := h.rideService.ListOffersByDriver(c.Request.Context(), driverID, params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride offers", gin.H{
		"offers": offers,
		"meta":   params.GetMeta(total),
	})
}

// Requests

// CreateRequest files a passenger request against an offer.
func (h *RideHandler) CreateRequest(c *gin.Context) {
	passengerID, ok := currentUserID(c)
	if !ok {
		return
	}

	var request services.CreateRideRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	rideRequest, err := h.rideService.CreateRequest(c.Request.Context(), passengerID, &request)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, "Ride request created", rideRequest)
}

// GetRequest returns one ride request.
func (h *RideHandler) GetRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	request, err := h.rideService.GetRequest(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride request", request)
}

// ChangeRequestStatus moves a request along its lifecycle; confirming
// checks the remaining seat capacity.
func (h *RideHandler) ChangeRequestStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var request changeStatusRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	rideRequest, err := h.rideService.ChangeRequestStatus(c.Request.Context(), id, models.RequestStatus(request.Status))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Request status updated", rideRequest)
}

// CompletePayment flags a request's payment as settled.
func (h *RideHandler) CompletePayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.rideService.CompletePayment(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Payment recorded", nil)
}

// ListRideRequests returns all requests filed against an offer.
func (h *RideHandler) ListRideRequests(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	requests, total, err := h.rideService.ListRequestsByRide(c.Request.Context(), id, params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride requests", gin.H{
		"requests": requests,
		"meta":     params.GetMeta(total),
	})
}

// ListMyRequests returns the authenticated passenger's requests.
func (h *RideHandler) ListMyRequests(c *gin.Context) {
	passengerID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	requests, total, err := h.rideService.ListRequestsByPassenger(c.Request.Context(), passengerID, params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride requests", gin.H{
		"requests": requests,
		"meta":     params.GetMeta(total),
	})
}

// Ratings

// RateUser files a post-ride rating and feeds the ratee's average.
func (h *RideHandler) RateUser(c *gin.Context) {
	fromUserID, ok := currentUserID(c)
	if !ok {
		return
	}

	var request services.RateUserRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	rating, err := h.rideService.RateUser(c.Request.Context(), fromUserID, &request)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, "Rating recorded", rating)
}

// ListUserRatings returns ratings received by a user.
func (h *RideHandler) ListUserRatings(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	ratings, total, err := h.rideService.ListRatingsForUser(c.Request.Context(), id, params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Ratings", gin.H{
		"ratings": ratings,
		"meta":    params.GetMeta(total),
	})
}

// ListRideRatings returns the ratings filed for a single ride.
func (h *RideHandler) ListRideRatings(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	ratings, err := h.rideService.ListRatingsForRide(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Ratings", gin.H{"ratings": ratings})
}

// Chat

// SendMessage appends a message to a ride's chat log.
func (h *RideHandler) SendMessage(c *gin.Context) {
	senderID, ok := currentUserID(c)
	if !ok {
		return
	}

	var request services.SendMessageRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	message, err := h.rideService.SendMessage(c.Request.Context(), senderID, &request)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, "Message sent", message)
}

// ListMessages returns a ride's chat log in timestamp order.
func (h *RideHandler) ListMessages(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	messages, err := h.rideService.ListMessages(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Messages", messages)
}
