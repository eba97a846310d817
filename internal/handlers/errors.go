package handlers

import (
	"errors"
	"net/http"

	"ridepool/internal/models"
	"ridepool/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// respondError translates domain errors into the API envelope. Anything
// unmatched is a 500 with the detail kept out of the response body.
func respondError(c *gin.Context, err error) {
	var inFlight *models.RegistrationInFlightError
	if errors.As(err, &inFlight) {
		utils.ErrorResponse(c, http.StatusConflict, "REGISTRATION_IN_FLIGHT", inFlight.Error())
		return
	}

	switch {
	case errors.Is(err, models.ErrInvalidEmail),
		errors.Is(err, models.ErrMissingField):
		utils.BadRequestResponse(c, err.Error())
	case errors.Is(err, models.ErrDuplicateActive):
		utils.ConflictResponse(c, err.Error())
	case errors.Is(err, models.ErrWrongCode):
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, "WRONG_CODE", err.Error())
	case errors.Is(err, models.ErrOTPExpired):
		utils.ErrorResponse(c, http.StatusGone, "CODE_EXPIRED", err.Error())
	case errors.Is(err, models.ErrTooManyAttempts):
		utils.ErrorResponse(c, http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS", err.Error())
	case errors.Is(err, models.ErrResendLimited):
		utils.ErrorResponse(c, http.StatusTooManyRequests, "RESEND_LIMITED", err.Error())
	case errors.Is(err, models.ErrNotFound):
		utils.NotFoundResponse(c, err.Error())
	case errors.Is(err, models.ErrAlreadyRated):
		utils.ConflictResponse(c, err.Error())
	case errors.Is(err, models.ErrBadTransition):
		utils.ConflictResponse(c, err.Error())
	case errors.Is(err, models.ErrSeatsExceeded):
		utils.ConflictResponse(c, err.Error())
	case errors.Is(err, models.ErrStoreConflict):
		utils.ConflictResponse(c, err.Error())
	case errors.Is(err, models.ErrNotActive):
		utils.ErrorResponse(c, http.StatusForbidden, "ACCOUNT_NOT_ACTIVE", err.Error())
	case errors.Is(err, models.ErrBadCredentials):
		utils.ErrorResponse(c, http.StatusUnauthorized, "BAD_CREDENTIALS", err.Error())
	default:
		utils.InternalServerErrorResponse(c)
	}
}

// currentUserID pulls the authenticated user set by the auth middleware.
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		utils.UnauthorizedResponse(c)
		return primitive.NilObjectID, false
	}
	id, ok := value.(primitive.ObjectID)
	if !ok {
		utils.UnauthorizedResponse(c)
		return primitive.NilObjectID, false
	}
	return id, true
}
