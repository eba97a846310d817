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
	"golang.org/x/crypto/bcrypt"
)

const (
	ratingUpdateRetries = 3
	notifyTimeout       = 10 * time.Second
)

// RegistrationService owns the account lifecycle: pending registration,
// OTP verification, activation, login, password reset and the rating EMA.
type RegistrationService interface {
	BeginRegistration(ctx context.Context, request *RegisterRequest) (*models.UserAccount, error)
	VerifyOTP(ctx context.Context, userID primitive.ObjectID, purpose models.OTPPurpose, code string) (*VerificationResult, error)
	ResendOTP(ctx context.Context, userID primitive.ObjectID, purpose models.OTPPurpose) error

	Login(ctx context.Context, request *LoginRequest) (*AuthResponse, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, request *ResetPasswordRequest) error

	GetProfile(ctx context.Context, userID primitive.ObjectID) (*models.UserAccount, error)
	AttachDriversLicense(ctx context.Context, userID primitive.ObjectID, imageURL string) error
	UpdateRating(ctx context.Context, userID primitive.ObjectID, role models.UserRole, sample float64) (float64, error)
}

type RegisterRequest struct {
	Email                 string        `json:"email" validate:"required,email"`
	PhoneNumber           string        `json:"phone_number" validate:"required,phone"`
	Password              string        `json:"password" validate:"required,min=8"`
	FirstName             string        `json:"first_name" validate:"max=150"`
	LastName              string        `json:"last_name" validate:"max=150"`
	Gender                models.Gender `json:"gender"`
	EmergencyContactPhone string        `json:"emergency_contact_phone"`
	IsDriver              bool          `json:"is_driver"`
	VehicleNumber         string        `json:"vehicle_number"`
	VehicleModel          string        `json:"vehicle_model"`
	TotalSeats            int           `json:"total_seats"`
}

type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"` // email or phone
	Password   string `json:"password" validate:"required"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

type AuthResponse struct {
	User         *models.UserAccount `json:"user"`
	AccessToken  string              `json:"access_token"`
	RefreshToken string              `json:"refresh_token"`
	TokenType    string              `json:"token_type"`
	ExpiresIn    int64               `json:"expires_in"`
}

// VerificationResult reports what a successful redemption changed.
type VerificationResult struct {
	Verified      bool               `json:"verified"`
	AccountActive bool               `json:"account_active"`
	NextPurpose   models.OTPPurpose  `json:"next_purpose,omitempty"`
	UserID        primitive.ObjectID `json:"user_id"`
}

type registrationService struct {
	userRepo  interfaces.UserRepository
	otpRepo   interfaces.OTPRepository
	cache     CacheService
	sms       SMSService
	email     EmailService
	jwtSecret string
	clock     utils.Clock
	newCode   utils.DigitCode
	logger    *logger.Logger
}

func NewRegistrationService(
	userRepo interfaces.UserRepository,
	otpRepo interfaces.OTPRepository,
	cache CacheService,
	smsService SMSService,
	emailService EmailService,
	jwtSecret string,
	clock utils.Clock,
	newCode utils.DigitCode,
	logger *logger.Logger,
) RegistrationService {
	return &registrationService{
		userRepo:  userRepo,
		otpRepo:   otpRepo,
		cache:     cache,
		sms:       smsService,
		email:     emailService,
		jwtSecret: jwtSecret,
		clock:     clock,
		newCode:   newCode,
		logger:    logger,
	}
}

// requiredPurposes is the activation policy: email always, phone for drivers.
func requiredPurposes(isDriver bool) []models.OTPPurpose {
	required := []models.OTPPurpose{models.OTPPurposeEmail}
	if isDriver {
		required = append(required, models.OTPPurposePhone)
	}
	return required
}

func (s *registrationService) BeginRegistration(ctx context.Context, request *RegisterRequest) (*models.UserAccount, error) {
	if request.Email == "" || request.PhoneNumber == "" || request.Password == "" {
		return nil, models.ErrMissingField
	}

	email := utils.NormalizeEmail(request.Email)
	if !utils.IsValidEmail(email) {
		return nil, models.ErrInvalidEmail
	}

	phone := utils.NormalizePhone(request.PhoneNumber)
	if !utils.IsValidPhone(phone) {
		return nil, fmt.Errorf("%w: phone_number", models.ErrMissingField)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(request.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := models.RolePassenger
	if request.IsDriver {
		role = models.RoleDriver
	}

	user := &models.UserAccount{
		Email:                 email,
		PhoneNumber:           phone,
		Password:              string(hash),
		FirstName:             strings.TrimSpace(request.FirstName),
		LastName:              strings.TrimSpace(request.LastName),
		Gender:                request.Gender,
		EmergencyContactPhone: utils.NormalizePhone(request.EmergencyContactPhone),
		IsDriver:              request.IsDriver,
		CurrentRole:           role,
		VehicleNumber:         request.VehicleNumber,
		VehicleModel:          request.VehicleModel,
		TotalSeats:            request.TotalSeats,
	}

	// One automatic retry when a concurrent writer wins the commit race;
	// losing twice means a confirmed row now owns the identity.
	err = s.userRepo.InsertPending(ctx, user)
	if errors.Is(err, models.ErrStoreConflict) {
		err = s.userRepo.InsertPending(ctx, user)
		if errors.Is(err, models.ErrStoreConflict) {
			err = models.ErrDuplicateActive
		}
	}
	if err != nil {
		return nil, err
	}

	s.logger.LogRegistrationEvent(user.ID, "registration_started", map[string]interface{}{
		"email":     utils.MaskEmail(user.Email),
		"is_driver": user.IsDriver,
	})

	// The pending row already owns the identity for the grace window.
	// Failing the whole call here would strand it with no user ID to
	// resend against, so the client recovers through ResendOTP instead.
	if err := s.issueAndNotify(ctx, user, models.OTPPurposeEmail); err != nil {
		s.logger.WithError(err).WithUserID(user.ID).Warn("initial verification code issue failed")
	}

	return user, nil
}

func (s *registrationService) VerifyOTP(ctx context.Context, userID primitive.ObjectID, purpose models.OTPPurpose, code string) (*VerificationResult, error) {
	if _, err := s.redeem(ctx, userID, purpose, code); err != nil {
		return nil, err
	}

	result := &VerificationResult{Verified: true, UserID: userID}

	// Password-reset codes never touch the registration ledger.
	if purpose == models.OTPPurposePasswordReset {
		return result, nil
	}

	pending, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Same commit-race handling as InsertPending: retry once, then treat
	// the identity as owned by a concurrently confirmed row.
	user, err := s.userRepo.Confirm(ctx, userID, purpose, requiredPurposes(pending.IsDriver))
	if errors.Is(err, models.ErrStoreConflict) {
		user, err = s.userRepo.Confirm(ctx, userID, purpose, requiredPurposes(pending.IsDriver))
		if errors.Is(err, models.ErrStoreConflict) {
			err = models.ErrDuplicateActive
		}
	}
	if err != nil {
		return nil, err
	}

	result.AccountActive = user.IsActive

	s.logger.LogRegistrationEvent(userID, "otp_verified", map[string]interface{}{
		"purpose": purpose,
		"active":  user.IsActive,
	})

	// Drivers verify their phone right after the email step.
	if purpose == models.OTPPurposeEmail && user.IsDriver && !user.PhoneVerified {
		result.NextPurpose = models.OTPPurposePhone
		if err := s.issueAndNotify(ctx, user, models.OTPPurposePhone); err != nil {
			return nil, err
		}
	}

	if user.IsActive {
		s.notifyAsync(func(ctx context.Context) error {
			return s.email.SendEmail(ctx, user.Email, fmt.Sprintf("Welcome to %s", utils.AppName), welcomeBody(user.FirstName))
		})
	}

	return result, nil
}

// redeem applies the decision chain on the atomically incremented attempt
// counter. The pre-increment cap is 3, so a post-increment count above 3
// means the code was already burned before this call.
func (s *registrationService) redeem(ctx context.Context, userID primitive.ObjectID, purpose models.OTPPurpose, code string) (*models.OTP, error) {
	otp, err := s.otpRepo.IncrementAttempts(ctx, userID, purpose)
	if err != nil {
		return nil, err
	}

	if otp.Attempts > models.MaxOTPAttempts {
		return nil, models.ErrTooManyAttempts
	}
	if otp.Expired(s.clock.Now()) {
		return nil, models.ErrOTPExpired
	}
	if otp.Code != code {
		return nil, models.ErrWrongCode
	}

	if err := s.otpRepo.MarkRedeemed(ctx, otp.ID); err != nil {
		return nil, err
	}

	return otp, nil
}

func (s *registrationService) ResendOTP(ctx context.Context, userID primitive.ObjectID, purpose models.OTPPurpose) error {
	if s.cache != nil {
		key := fmt.Sprintf("otp_resend:%s:%s", userID.Hex(), purpose)
		count, err := s.cache.Increment(ctx, key, utils.OTPResendWindow)
		if err != nil {
			s.logger.WithError(err).Warn("resend rate limit check failed, allowing")
		} else if count > utils.OTPResendLimit {
			return models.ErrResendLimited
		}
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	return s.issueAndNotify(ctx, user, purpose)
}

func (s *registrationService) Login(ctx context.Context, request *LoginRequest) (*AuthResponse, error) {
	if request.Identifier == "" || request.Password == "" {
		return nil, models.ErrMissingField
	}

	var user *models.UserAccount
	var err error
	if strings.Contains(request.Identifier, "@") {
		user, err = s.userRepo.GetByEmail(ctx, utils.NormalizeEmail(request.Identifier))
	} else {
		user, err = s.userRepo.GetByPhone(ctx, utils.NormalizePhone(request.Identifier))
	}
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrBadCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(request.Password)); err != nil {
		return nil, models.ErrBadCredentials
	}

	if !user.IsActive {
		return nil, models.ErrNotActive
	}

	tokens, err := utils.GenerateTokenPair(user.ID, string(user.CurrentRole), user.Email, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	s.logger.WithUserID(user.ID).Info("user logged in")

	return &AuthResponse{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokens.TokenType,
		ExpiresIn:    tokens.ExpiresIn,
	}, nil
}

func (s *registrationService) RequestPasswordReset(ctx context.Context, email string) error {
	email = utils.NormalizeEmail(email)
	if !utils.IsValidEmail(email) {
		return models.ErrInvalidEmail
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		// Never leak whether the address exists.
		if errors.Is(err, models.ErrNotFound) {
			s.logger.WithField("email", utils.MaskEmail(email)).Info("password reset for unknown email")
			return nil
		}
		return err
	}

	return s.issueAndNotify(ctx, user, models.OTPPurposePasswordReset)
}

func (s *registrationService) ResetPassword(ctx context.Context, request *ResetPasswordRequest) error {
	if request.Email == "" || request.Code == "" || request.NewPassword == "" {
		return models.ErrMissingField
	}

	user, err := s.userRepo.GetByEmail(ctx, utils.NormalizeEmail(request.Email))
	if err != nil {
		return err
	}

	if _, err := s.redeem(ctx, user.ID, models.OTPPurposePasswordReset, request.Code); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(request.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.Update(ctx, user.ID, map[string]interface{}{"password": string(hash)}); err != nil {
		return err
	}

	s.logger.WithUserID(user.ID).Info("password reset completed")
	return nil
}

func (s *registrationService) GetProfile(ctx context.Context, userID primitive.ObjectID) (*models.UserAccount, error) {
	return s.userRepo.GetByID(ctx, userID)
}

func (s *registrationService) AttachDriversLicense(ctx context.Context, userID primitive.ObjectID, imageURL string) error {
	if imageURL == "" {
		return models.ErrMissingField
	}
	return s.userRepo.Update(ctx, userID, map[string]interface{}{"drivers_license_url": imageURL})
}

func (s *registrationService) UpdateRating(ctx context.Context, userID primitive.ObjectID, role models.UserRole, sample float64) (float64, error) {
	if sample < float64(utils.MinRatingScore) || sample > float64(utils.MaxRatingScore) {
		return 0, fmt.Errorf("%w: score", models.ErrMissingField)
	}

	for attempt := 0; attempt < ratingUpdateRetries; attempt++ {
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return 0, err
		}

		old := user.RatingFor(role)
		next := models.NextRating(old, sample)

		ok, err := s.userRepo.CompareAndSetRating(ctx, userID, role, old, next)
		if err != nil {
			return 0, err
		}
		if ok {
			return next, nil
		}
	}

	return 0, models.ErrStoreConflict
}

// issueAndNotify mints a fresh code and fires the delivery without
// blocking the caller. Delivery failures are logged, never surfaced.
func (s *registrationService) issueAndNotify(ctx context.Context, user *models.UserAccount, purpose models.OTPPurpose) error {
	code := s.newCode(models.OTPLength)

	if _, err := s.otpRepo.Issue(ctx, user.ID, purpose, code); err != nil {
		return err
	}

	email, phone := user.Email, user.PhoneNumber

	s.notifyAsync(func(ctx context.Context) error {
		if purpose == models.OTPPurposePhone {
			return s.sms.SendSMS(ctx, phone, otpBody(code, purpose))
		}
		return s.email.SendEmail(ctx, email, otpSubject(purpose), otpBody(code, purpose))
	})

	return nil
}

func (s *registrationService) notifyAsync(fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.logger.WithError(err).Warn("notification delivery failed")
		}
	}()
}
