package routes

import (
	"ridepool/internal/handlers"
	"ridepool/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRideRoutes wires offer, request, rating and chat endpoints. All of
// them require an authenticated, active account.
func SetupRideRoutes(r *gin.RouterGroup, rideHandler *handlers.RideHandler, jwtSecret string) {
	rides := r.Group("/rides")
	rides.Use(middleware.AuthRequired(jwtSecret))
	{
		// Offers
		rides.POST("/offers", middleware.DriverRequired(), rideHandler.CreateOffer)
		rides.GET("/offers", rideHandler.ListOffers)
		rides.GET("/offers/mine", middleware.DriverRequired(), rideHandler.ListMyOffers)
		rides.GET("/offers/:id", rideHandler.GetOffer)
		rides.PUT("/offers/:id/status", middleware.DriverRequired(), rideHandler.ChangeOfferStatus)
		rides.GET("/offers/:id/requests", rideHandler.ListRideRequests)

		// Requests
		rides.POST("/requests", rideHandler.CreateRequest)
		rides.GET("/requests/mine", rideHandler.ListMyRequests)
		rides.GET("/requests/:id", rideHandler.GetRequest)
		rides.PUT("/requests/:id/status", rideHandler.ChangeRequestStatus)
		rides.PUT("/requests/:id/payment", rideHandler.CompletePayment)

		// Ratings
		rides.POST("/ratings", rideHandler.RateUser)
		rides.GET("/ratings/users/:id", rideHandler.ListUserRatings)
		rides.GET("/ratings/rides/:id", rideHandler.ListRideRatings)

		// Chat
		rides.POST("/messages", rideHandler.SendMessage)
		rides.GET("/messages/:id", rideHandler.ListMessages)
	}
}
