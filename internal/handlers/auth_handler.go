package handlers

import (
	"ridepool/internal/models"
	"ridepool/internal/services"
	"ridepool/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AuthHandler struct {
	registrationService services.RegistrationService
}

func NewAuthHandler(registrationService services.RegistrationService) *AuthHandler {
	return &AuthHandler{
		registrationService: registrationService,
	}
}

// Register starts a pending registration and sends the first OTP.
func (h *AuthHandler) Register(c *gin.Context) {
	var request services.RegisterRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	user, err := h.registrationService.BeginRegistration(c.Request.Context(), &request)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, "Registration started, verification code sent", user)
}

type verifyOTPRequest struct {
	UserID  string            `json:"user_id" binding:"required"`
	Purpose models.OTPPurpose `json:"purpose" binding:"required"`
	Code    string            `json:"code" binding:"required"`
}

// VerifyOTP redeems a verification code.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var request verifyOTPRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	userID, err := primitive.ObjectIDFromHex(request.UserID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID")
		return
	}

	result, err := h.registrationService.VerifyOTP(c.Request.Context(), userID, request.Purpose, request.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Code verified", result)
}

type resendOTPRequest struct {
	UserID  string            `json:"user_id" binding:"required"`
	Purpose models.OTPPurpose `json:"purpose" binding:"required"`
}

// ResendOTP re-issues a code, superseding any active one.
func (h *AuthHandler) ResendOTP(c *gin.Context) {
	var request resendOTPRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	userID, err := primitive.ObjectIDFromHex(request.UserID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID")
		return
	}

	if err := h.registrationService.ResendOTP(c.Request.Context(), userID, request.Purpose); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Verification code sent", nil)
}

// Login exchanges credentials for a token pair.
func (h *AuthHandler) Login(c *gin.Context) {
	var request services.LoginRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	response, err := h.registrationService.Login(c.Request.Context(), &request)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Login successful", response)
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

// ForgotPassword sends a password reset code. Always answers 200.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var request forgotPasswordRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if err := h.registrationService.RequestPasswordReset(c.Request.Context(), request.Email); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "If the address exists, a reset code was sent", nil)
}

// ResetPassword sets a new password after code verification.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var request services.ResetPasswordRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if err := h.registrationService.ResetPassword(c.Request.Context(), &request); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Password reset", nil)
}

// GetProfile returns the authenticated user's account.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.registrationService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Profile", gin.H{
		"user":               user,
		"is_driver_verified": user.IsDriverVerified(),
	})
}

type attachLicenseRequest struct {
	ImageURL string `json:"image_url" binding:"required"`
}

// AttachDriversLicense stores the license image URL on the profile.
func (h *AuthHandler) AttachDriversLicense(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var request attachLicenseRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if err := h.registrationService.AttachDriversLicense(c.Request.Context(), userID, request.ImageURL); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Drivers license attached", nil)
}
