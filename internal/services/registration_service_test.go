package services

import (
	"context"
	"testing"
	"time"

	"ridepool/internal/models"
	"ridepool/internal/utils"
	"ridepool/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) ReclaimExpired(ctx context.Context, email, phone string) (int64, error) {
	args := m.Called(ctx, email, phone)
	return args.Get(0).(int64), args.Error(1)
}
func (m *mockUserRepo) FindBlockingPending(ctx context.Context, email, phone string) (*models.UserAccount, error) {
	args := m.Called(ctx, email, phone)
	if u, _ := args.Get(0).(*models.UserAccount); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserRepo) InsertPending(ctx context.Context, user *models.UserAccount) error {
	return m.Called(ctx, user).Error(0)
}
func (m *mockUserRepo) Confirm(ctx context.Context, id primitive.ObjectID, purpose models.OTPPurpose, required []models.OTPPurpose) (*models.UserAccount, error) {
	args := m.Called(ctx, id, purpose, required)
	if u, _ := args.Get(0).(*models.UserAccount); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.UserAccount, error) {
	args := m.Called(ctx, id)
	if u, _ := args.Get(0).(*models.UserAccount); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.UserAccount, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*models.UserAccount); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserRepo) GetByPhone(ctx context.Context, phone string) (*models.UserAccount, error) {
	args := m.Called(ctx, phone)
	if u, _ := args.Get(0).(*models.UserAccount); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	return m.Called(ctx, id, updates).Error(0)
}
func (m *mockUserRepo) List(ctx context.Context, params *utils.PaginationParams) ([]*models.UserAccount, int64, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]*models.UserAccount), args.Get(1).(int64), args.Error(2)
}
func (m *mockUserRepo) CompareAndSetRating(ctx context.Context, id primitive.ObjectID, role models.UserRole, old, new float64) (bool, error) {
	args := m.Called(ctx, id, role, old, new)
	return args.Bool(0), args.Error(1)
}
func (m *mockUserRepo) IncrementCompletedRides(ctx context.Context, id primitive.ObjectID, role models.UserRole) error {
	return m.Called(ctx, id, role).Error(0)
}

type mockOTPRepo struct{ mock.Mock }

func (m *mockOTPRepo) Issue(ctx context.Context, userID primitive.ObjectID, purpose models.OTPPurpose, code string) (*models.OTP, error) {
	args := m.Called(ctx, userID, purpose, code)
	if o, _ := args.Get(0).(*models.OTP); o != nil {
		return o, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockOTPRepo) IncrementAttempts(ctx context.Context, userID primitive.ObjectID, purpose models.OTPPurpose) (*models.OTP, error) {
	args := m.Called(ctx, userID, purpose)
	if o, _ := args.Get(0).(*models.OTP); o != nil {
		return o, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockOTPRepo) MarkRedeemed(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockOTPRepo) GetActive(ctx context.Context, userID primitive.ObjectID, purpose models.OTPPurpose) (*models.OTP, error) {
	args := m.Called(ctx, userID, purpose)
	if o, _ := args.Get(0).(*models.OTP); o != nil {
		return o, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockOTPRepo) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.OTP, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]*models.OTP), args.Error(1)
}

type mockCache struct{ mock.Mock }

func (m *mockCache) Increment(ctx context.Context, key string, expiration time.Duration) (int64, error) {
	args := m.Called(ctx, key, expiration)
	return args.Get(0).(int64), args.Error(1)
}
func (m *mockCache) Delete(ctx context.Context, keys ...string) error {
	return m.Called(ctx, keys).Error(0)
}

// Notification stubs: delivery is fire-and-forget, so the tests only need
// them to be safe to call from another goroutine.
type stubSMS struct{}

func (stubSMS) SendSMS(ctx context.Context, phone, message string) error { return nil }

type stubEmail struct{}

func (stubEmail) SendEmail(ctx context.Context, to, subject, body string) error { return nil }

// --- helpers ---

var testInstant = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

const testCode = "123456"

func fixedCode(length int) string { return testCode }

func testLogger(t *testing.T) *logger.Logger {
	log, err := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Format: "text", Output: "stdout"})
	require.NoError(t, err)
	return log
}

func newTestService(t *testing.T, userRepo *mockUserRepo, otpRepo *mockOTPRepo, cache CacheService) RegistrationService {
	return NewRegistrationService(
		userRepo,
		otpRepo,
		cache,
		stubSMS{},
		stubEmail{},
		"test-secret",
		&utils.FixedClock{Instant: testInstant},
		fixedCode,
		testLogger(t),
	)
}

func baseRegisterRequest() *RegisterRequest {
	return &RegisterRequest{
		Email:       "Ada@Example.COM",
		PhoneNumber: "+1 (555) 123-4567",
		Password:    "password123",
		FirstName:   "Ada",
		LastName:    "Lovelace",
	}
}

// --- BeginRegistration ---

func TestBeginRegistration_HappyPath(t *testing.T) {
	userRepo := &mockUserRepo{}
	otpRepo := &mockOTPRepo{}

	userID := primitive.NewObjectID()
	userRepo.On("InsertPending", mock.Anything, mock.AnythingOfType("*models.UserAccount")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.UserAccount).ID = userID
		}).Return(nil).Once()
	otpRepo.On("Issue", mock.Anything, userID, models.OTPPurposeEmail, testCode).
		Return(&models.OTP{ID: primitive.NewObjectID()}, nil).Once()

	svc := newTestService(t, userRepo, otpRepo, nil)
	user, err := svc.BeginRegistration(context.Background(), baseRegisterRequest())

	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "+15551234567", user.PhoneNumber)
	assert.Equal(t, models.RolePassenger, user.CurrentRole)
	assert.NotEqual(t, "password123", user.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123")))

	userRepo.AssertExpectations(t)
	otpRepo.AssertExpectations(t)
}

func TestBeginRegistration_ValidationBeforeStore(t *testing.T) {
	svc := newTestService(t, &mockUserRepo{}, &mockOTPRepo{}, nil)

	req := baseRegisterRequest()
	req.Password = ""
	_, err := svc.BeginRegistration(context.Background(), req)
	assert.ErrorIs(t, err, models.ErrMissingField)

	req = baseRegisterRequest()
	req.Email = "not-an-email"
	_, err = svc.BeginRegistration(context.Background(), req)
	assert.ErrorIs(t, err, models.ErrInvalidEmail)
}

func TestBeginRegistration_DuplicateActive(t *testing.T) {
	userRepo := &mockUserRepo{}
	userRepo.On("InsertPending", mock.Anything, mock.Anything).Return(models.ErrDuplicateActive).Once()

	svc := newTestService(t, userRepo, &mockOTPRepo{}, nil)
	_, err := svc.BeginRegistration(context.Background(), baseRegisterRequest())

	assert.ErrorIs(t, err, models.ErrDuplicateActive)
	userRepo.AssertExpectations(t)
}

func TestBeginRegistration_InFlightReportsRemaining(t *testing.T) {
	userRepo := &mockUserRepo{}
	userRepo.On("InsertPending", mock.Anything, mock.Anything).Return(&models.RegistrationInFlightError{
		Remaining:           3*time.Minute + 20*time.Second,
		PendingVerification: models.OTPPurposeEmail,
	}).Once()

	svc := newTestService(t, userRepo, &mockOTPRepo{}, nil)
	_, err := svc.BeginRegistration(context.Background(), baseRegisterRequest())

	var inFlight *models.RegistrationInFlightError
	require.ErrorAs(t, err, &inFlight)
	assert.Equal(t, 3*time.Minute+20*time.Second, inFlight.Remaining)
	assert.Contains(t, inFlight.Error(), "3m 20s")
}

func TestBeginRegistration_RetriesOnceOnConflict(t *testing.T) {
	userRepo := &mockUserRepo{}
	otpRepo := &mockOTPRepo{}

	userRepo.On("InsertPending", mock.Anything, mock.Anything).Return(models.ErrStoreConflict).Once()
	userRepo.On("InsertPending", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.UserAccount).ID = primitive.NewObjectID()
		}).Return(nil).Once()
	otpRepo.On("Issue", mock.Anything, mock.Anything, models.OTPPurposeEmail, testCode).
		Return(&models.OTP{}, nil).Once()

	svc := newTestService(t, userRepo, otpRepo, nil)
	_, err := svc.BeginRegistration(context.Background(), baseRegisterRequest())

	require.NoError(t, err)
	userRepo.AssertNumberOfCalls(t, "InsertPending", 2)
}

func TestBeginRegistration_SecondConflictIsDuplicate(t *testing.T) {
	userRepo := &mockUserRepo{}
	userRepo.On("InsertPending", mock.Anything, mock.Anything).Return(models.ErrStoreConflict).Twice()

	svc := newTestService(t, userRepo, &mockOTPRepo{}, nil)
	_, err := svc.BeginRegistration(context.Background(), baseRegisterRequest())

	assert.ErrorIs(t, err, models.ErrDuplicateActive)
	userRepo.AssertNumberOfCalls(t, "InsertPending", 2)
}

func TestBeginRegistration_CodeIssueFailureKeepsAccount(t *testing.T) {
	userRepo := &mockUserRepo{}
	otpRepo := &mockOTPRepo{}

	userID := primitive.NewObjectID()
	userRepo.On("InsertPending", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.UserAccount).ID = userID
		}).Return(nil).Once()
	otpRepo.On("Issue", mock.Anything, userID, models.OTPPurposeEmail, testCode).
		Return(nil, assert.AnError).Once()

	// The pending row now owns the identity for the grace window; the
	// caller must still get the user ID back so the resend path can
	// recover the lost code.
	svc := newTestService(t, userRepo, otpRepo, nil)
	user, err := svc.BeginRegistration(context.Background(), baseRegisterRequest())

	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, userID, user.ID)
}

// --- VerifyOTP ---

func TestVerifyOTP_WrongCodeBurnsAttempts(t *testing.T) {
	userID := primitive.NewObjectID()
	userRepo := &mockUserRepo{}
	otpRepo := &mockOTPRepo{}
	svc := newTestService(t, userRepo, otpRepo, nil)

	// Three wrong guesses consume the attempt budget.
	for attempts := 1; attempts <= models.MaxOTPAttempts; attempts++ {
		otpRepo.On("IncrementAttempts", mock.Anything, userID, models.OTPPurposeEmail).
			Return(&models.OTP{Code: testCode, Status: models.OTPStatusActive, Attempts: attempts, CreatedAt: testInstant}, nil).Once()

		_, err := svc.VerifyOTP(context.Background(), userID, models.OTPPurposeEmail, "000000")
		assert.ErrorIs(t, err, models.ErrWrongCode)
	}

	// The correct code arrives one attempt too late.
	otpRepo.On("IncrementAttempts", mock.Anything, userID, models.OTPPurposeEmail).
		Return(&models.OTP{Code: testCode, Status: models.OTPStatusActive, Attempts: models.MaxOTPAttempts + 1, CreatedAt: testInstant}, nil).Once()

	_, err := svc.VerifyOTP(context.Background(), userID, models.OTPPurposeEmail, testCode)
	assert.ErrorIs(t, err, models.ErrTooManyAttempts)

	otpRepo.AssertNotCalled(t, "MarkRedeemed", mock.Anything, mock.Anything)
	userRepo.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyOTP_Expired(t *testing.T) {
	userID := primitive.NewObjectID()
	otpRepo := &mockOTPRepo{}
	otpRepo.On("IncrementAttempts", mock.Anything, userID, models.OTPPurposeEmail).
		Return(&models.OTP{Code: testCode, Status: models.OTPStatusActive, Attempts: 1, CreatedAt: testInstant.Add(-models.OTPValidity - time.Second)}, nil).Once()

	svc := newTestService(t, &mockUserRepo{}, otpRepo, nil)
	_, err := svc.VerifyOTP(context.Background(), userID, models.OTPPurposeEmail, testCode)

	assert.ErrorIs(t, err, models.ErrOTPExpired)
}

func TestVerifyOTP_NoActiveCode(t *testing.T) {
	userID := primitive.NewObjectID()
	otpRepo := &mockOTPRepo{}
	otpRepo.On("IncrementAttempts", mock.Anything, userID, models.OTPPurposePhone).
		Return(nil, models.ErrNotFound).Once()

	svc := newTestService(t, &mockUserRepo{}, otpRepo, nil)
	_, err := svc.VerifyOTP(context.Background(), userID, models.OTPPurposePhone, testCode)

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestVerifyOTP_DriverEmailThenPhone(t *testing.T) {
	userID := primitive.NewObjectID()
	otpID := primitive.NewObjectID()
	userRepo := &mockUserRepo{}
	otpRepo := &mockOTPRepo{}

	driverRequired := []models.OTPPurpose{models.OTPPurposeEmail, models.OTPPurposePhone}

	// Email step: verified but not yet active, phone OTP auto-issued.
	otpRepo.On("IncrementAttempts", mock.Anything, userID, models.OTPPurposeEmail).
		Return(&models.OTP{ID: otpID, Code: testCode, Status: models.OTPStatusActive, Attempts: 1, CreatedAt: testInstant}, nil).Once()
	otpRepo.On("MarkRedeemed", mock.Anything, otpID).Return(nil).Once()
	userRepo.On("GetByID", mock.Anything, userID).
		Return(&models.UserAccount{ID: userID, IsDriver: true, RegistrationPending: true}, nil).Once()
	userRepo.On("Confirm", mock.Anything, userID, models.OTPPurposeEmail, driverRequired).
		Return(&models.UserAccount{ID: userID, IsDriver: true, EmailVerified: true, RegistrationPending: true}, nil).Once()
	otpRepo.On("Issue", mock.Anything, userID, models.OTPPurposePhone, testCode).
		Return(&models.OTP{}, nil).Once()

	svc := newTestService(t, userRepo, otpRepo, nil)
	result, err := svc.VerifyOTP(context.Background(), userID, models.OTPPurposeEmail, testCode)

	require.NoError(t, err)
	assert.True(t, result.Verified)
	assert.False(t, result.AccountActive)
	assert.Equal(t, models.OTPPurposePhone, result.NextPurpose)

	// Phone step: all required channels verified, the account activates.
	phoneOTPID := primitive.NewObjectID()
	otpRepo.On("IncrementAttempts", mock.Anything, userID, models.OTPPurposePhone).
		Return(&models.OTP{ID: phoneOTPID, Code: testCode, Status: models.OTPStatusActive, Attempts: 1, CreatedAt: testInstant}, nil).Once()
	otpRepo.On("MarkRedeemed", mock.Anything, phoneOTPID).Return(nil).Once()
	userRepo.On("GetByID", mock.Anything, userID).
		Return(&models.UserAccount{ID: userID, IsDriver: true, EmailVerified: true, RegistrationPending: true}, nil).Once()
	userRepo.On("Confirm", mock.Anything, userID, models.OTPPurposePhone, driverRequired).
		Return(&models.UserAccount{ID: userID, IsDriver: true, EmailVerified: true, PhoneVerified: true, IsActive: true}, nil).Once()

	result, err = svc.VerifyOTP(context.Background(), userID, models.OTPPurposePhone, testCode)

	require.NoError(t, err)
	assert.True(t, result.AccountActive)
	assert.Empty(t, result.NextPurpose)

	userRepo.AssertExpectations(t)
	otpRepo.AssertExpectations(t)
}

func TestVerifyOTP_PassengerEmailOnlyActivates(t *testing.T) {
	userID := primitive.NewObjectID()
	otpID := primitive.NewObjectID()
	userRepo := &mockUserRepo{}
	otpRepo := &mockOTPRepo{}

	otpRepo.On("IncrementAttempts", mock.Anything, userID, models.OTPPurposeEmail).
		Return(&models.OTP{ID: otpID, Code: testCode, Status: models.OTPStatusActive, Attempts: 1, CreatedAt: testInstant}, nil).Once()
	otpRepo.On("MarkRedeemed", mock.Anything, otpID).Return(nil).Once()
	userRepo.On("GetByID", mock.Anything, userID).
		Return(&models.UserAccount{ID: userID, RegistrationPending: true}, nil).Once()
	userRepo.On("Confirm", mock.Anything, userID, models.OTPPurposeEmail, []models.OTPPurpose{models.OTPPurposeEmail}).
		Return(&models.UserAccount{ID: userID, EmailVerified: true, IsActive: true}, nil).Once()

	svc := newTestService(t, userRepo, otpRepo, nil)
	result, err := svc.VerifyOTP(context.Background(), userID, models.OTPPurposeEmail, testCode)

	require.NoError(t, err)
	assert.True(t, result.AccountActive)
	otpRepo.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyOTP_PasswordResetSkipsLedger(t *testing.T) {
	userID := primitive.NewObjectID()
	otpID := primitive.NewObjectID()
	userRepo := &mockUserRepo{}
	otpRepo := &mockOTPRepo{}

	otpRepo.On("IncrementAttempts", mock.Anything, userID, models.OTPPurposePasswordReset).
		Return(&models.OTP{ID: otpID, Code: testCode, Status: models.OTPStatusActive, Attempts: 1, CreatedAt: testInstant}, nil).Once()
	otpRepo.On("MarkRedeemed", mock.Anything, otpID).Return(nil).Once()

	svc := newTestService(t, userRepo, otpRepo, nil)
	result, err := svc.VerifyOTP(context.Background(), userID, models.OTPPurposePasswordReset, testCode)

	require.NoError(t, err)
	assert.True(t, result.Verified)
	userRepo.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyOTP_ConfirmRetriesOnceOnConflict(t *testing.T) {
	userID := primitive.NewObjectID()
	otpID := primitive.NewObjectID()
	userRepo := &mockUserRepo{}
	otpRepo := &mockOTPRepo{}

	otpRepo.On("IncrementAttempts", mock.Anything, userID, models.OTPPurposeEmail).
		Return(&models.OTP{ID: otpID, Code: testCode, Status: models.OTPStatusActive, Attempts: 1, CreatedAt: testInstant}, nil).Once()
	otpRepo.On("MarkRedeemed", mock.Anything, otpID).Return(nil).Once()
	userRepo.On("GetByID", mock.Anything, userID).
		Return(&models.UserAccount{ID: userID, RegistrationPending: true}, nil).Once()
	userRepo.On("Confirm", mock.Anything, userID, models.OTPPurposeEmail, mock.Anything).
		Return(nil, models.ErrStoreConflict).Once()
	userRepo.On("Confirm", mock.Anything, userID, models.OTPPurposeEmail, mock.Anything).
		Return(&models.UserAccount{ID: userID, EmailVerified: true, IsActive: true}, nil).Once()

	svc := newTestService(t, userRepo, otpRepo, nil)
	result, err := svc.VerifyOTP(context.Background(), userID, models.OTPPurposeEmail, testCode)

	require.NoError(t, err)
	assert.True(t, result.AccountActive)
	userRepo.AssertNumberOfCalls(t, "Confirm", 2)
}

func TestVerifyOTP_ConfirmSecondConflictIsDuplicate(t *testing.T) {
	userID := primitive.NewObjectID()
	otpID := primitive.NewObjectID()
	userRepo := &mockUserRepo{}
	otpRepo := &mockOTPRepo{}

	otpRepo.On("IncrementAttempts", mock.Anything, userID, models.OTPPurposeEmail).
		Return(&models.OTP{ID: otpID, Code: testCode, Status: models.OTPStatusActive, Attempts: 1, CreatedAt: testInstant}, nil).Once()
	otpRepo.On("MarkRedeemed", mock.Anything, otpID).Return(nil).Once()
	userRepo.On("GetByID", mock.Anything, userID).
		Return(&models.UserAccount{ID: userID, RegistrationPending: true}, nil).Once()
	userRepo.On("Confirm", mock.Anything, userID, models.OTPPurposeEmail, mock.Anything).
		Return(nil, models.ErrStoreConflict).Twice()

	svc := newTestService(t, userRepo, otpRepo, nil)
	_, err := svc.VerifyOTP(context.Background(), userID, models.OTPPurposeEmail, testCode)

	assert.ErrorIs(t, err, models.ErrDuplicateActive)
	userRepo.AssertNumberOfCalls(t, "Confirm", 2)
}

// --- ResendOTP ---

func TestResendOTP_RateLimited(t *testing.T) {
	userID := primitive.NewObjectID()
	cache := &mockCache{}
	cache.On("Increment", mock.Anything, mock.Anything, utils.OTPResendWindow).
		Return(int64(utils.OTPResendLimit+1), nil).Once()

	svc := newTestService(t, &mockUserRepo{}, &mockOTPRepo{}, cache)
	err := svc.ResendOTP(context.Background(), userID, models.OTPPurposeEmail)

	assert.ErrorIs(t, err, models.ErrResendLimited)
}

func TestResendOTP_IssuesFreshCode(t *testing.T) {
	userID := primitive.NewObjectID()
	userRepo := &mockUserRepo{}
	otpRepo := &mockOTPRepo{}
	cache := &mockCache{}

	cache.On("Increment", mock.Anything, mock.Anything, utils.OTPResendWindow).Return(int64(1), nil).Once()
	userRepo.On("GetByID", mock.Anything, userID).
		Return(&models.UserAccount{ID: userID, Email: "ada@example.com", PhoneNumber: "+15551234567"}, nil).Once()
	otpRepo.On("Issue", mock.Anything, userID, models.OTPPurposeEmail, testCode).
		Return(&models.OTP{}, nil).Once()

	svc := newTestService(t, userRepo, otpRepo, cache)
	err := svc.ResendOTP(context.Background(), userID, models.OTPPurposeEmail)

	require.NoError(t, err)
	otpRepo.AssertExpectations(t)
}

// --- Login ---

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	require.NoError(t, err)

	active := &models.UserAccount{
		ID:          primitive.NewObjectID(),
		Email:       "ada@example.com",
		Password:    string(hash),
		CurrentRole: models.RolePassenger,
		IsActive:    true,
	}

	t.Run("happy path by email", func(t *testing.T) {
		userRepo := &mockUserRepo{}
		userRepo.On("GetByEmail", mock.Anything, "ada@example.com").Return(active, nil).Once()

		svc := newTestService(t, userRepo, &mockOTPRepo{}, nil)
		resp, err := svc.Login(context.Background(), &LoginRequest{Identifier: "Ada@Example.com", Password: "password123"})

		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
		assert.Equal(t, active.ID, resp.User.ID)
	})

	t.Run("phone identifier", func(t *testing.T) {
		userRepo := &mockUserRepo{}
		userRepo.On("GetByPhone", mock.Anything, "+15551234567").Return(active, nil).Once()

		svc := newTestService(t, userRepo, &mockOTPRepo{}, nil)
		_, err := svc.Login(context.Background(), &LoginRequest{Identifier: "+1 555 123 4567", Password: "password123"})

		require.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		userRepo := &mockUserRepo{}
		userRepo.On("GetByEmail", mock.Anything, "ada@example.com").Return(active, nil).Once()

		svc := newTestService(t, userRepo, &mockOTPRepo{}, nil)
		_, err := svc.Login(context.Background(), &LoginRequest{Identifier: "ada@example.com", Password: "wrong"})

		assert.ErrorIs(t, err, models.ErrBadCredentials)
	})

	t.Run("unknown account", func(t *testing.T) {
		userRepo := &mockUserRepo{}
		userRepo.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, models.ErrNotFound).Once()

		svc := newTestService(t, userRepo, &mockOTPRepo{}, nil)
		_, err := svc.Login(context.Background(), &LoginRequest{Identifier: "ghost@example.com", Password: "password123"})

		assert.ErrorIs(t, err, models.ErrBadCredentials)
	})

	t.Run("inactive account", func(t *testing.T) {
		pending := *active
		pending.IsActive = false

		userRepo := &mockUserRepo{}
		userRepo.On("GetByEmail", mock.Anything, "ada@example.com").Return(&pending, nil).Once()

		svc := newTestService(t, userRepo, &mockOTPRepo{}, nil)
		_, err := svc.Login(context.Background(), &LoginRequest{Identifier: "ada@example.com", Password: "password123"})

		assert.ErrorIs(t, err, models.ErrNotActive)
	})
}

// --- Password reset ---

func TestRequestPasswordReset_UnknownEmailIsSilent(t *testing.T) {
	userRepo := &mockUserRepo{}
	otpRepo := &mockOTPRepo{}
	userRepo.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, models.ErrNotFound).Once()

	svc := newTestService(t, userRepo, otpRepo, nil)
	err := svc.RequestPasswordReset(context.Background(), "ghost@example.com")

	require.NoError(t, err)
	otpRepo.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResetPassword(t *testing.T) {
	userID := primitive.NewObjectID()
	otpID := primitive.NewObjectID()
	userRepo := &mockUserRepo{}
	otpRepo := &mockOTPRepo{}

	userRepo.On("GetByEmail", mock.Anything, "ada@example.com").
		Return(&models.UserAccount{ID: userID, Email: "ada@example.com", IsActive: true}, nil).Once()
	otpRepo.On("IncrementAttempts", mock.Anything, userID, models.OTPPurposePasswordReset).
		Return(&models.OTP{ID: otpID, Code: testCode, Status: models.OTPStatusActive, Attempts: 1, CreatedAt: testInstant}, nil).Once()
	otpRepo.On("MarkRedeemed", mock.Anything, otpID).Return(nil).Once()
	userRepo.On("Update", mock.Anything, userID, mock.MatchedBy(func(updates map[string]interface{}) bool {
		hash, ok := updates["password"].(string)
		return ok && bcrypt.CompareHashAndPassword([]byte(hash), []byte("new-password-1")) == nil
	})).Return(nil).Once()

	svc := newTestService(t, userRepo, otpRepo, nil)
	err := svc.ResetPassword(context.Background(), &ResetPasswordRequest{
		Email:       "ada@example.com",
		Code:        testCode,
		NewPassword: "new-password-1",
	})

	require.NoError(t, err)
	userRepo.AssertExpectations(t)
	otpRepo.AssertExpectations(t)
}

// --- UpdateRating ---

func TestUpdateRating(t *testing.T) {
	userID := primitive.NewObjectID()

	t.Run("first sample weights in at 0.3", func(t *testing.T) {
		userRepo := &mockUserRepo{}
		userRepo.On("GetByID", mock.Anything, userID).
			Return(&models.UserAccount{ID: userID}, nil).Once()
		userRepo.On("CompareAndSetRating", mock.Anything, userID, models.RolePassenger, 0.0, 1.2).
			Return(true, nil).Once()

		svc := newTestService(t, userRepo, &mockOTPRepo{}, nil)
		got, err := svc.UpdateRating(context.Background(), userID, models.RolePassenger, 4)

		require.NoError(t, err)
		assert.Equal(t, 1.2, got)
	})

	t.Run("retries after a lost race", func(t *testing.T) {
		userRepo := &mockUserRepo{}
		userRepo.On("GetByID", mock.Anything, userID).
			Return(&models.UserAccount{ID: userID, RatingAsDriver: 4.0}, nil).Once()
		userRepo.On("CompareAndSetRating", mock.Anything, userID, models.RoleDriver, 4.0, 4.3).
			Return(false, nil).Once()
		userRepo.On("GetByID", mock.Anything, userID).
			Return(&models.UserAccount{ID: userID, RatingAsDriver: 4.1}, nil).Once()
		userRepo.On("CompareAndSetRating", mock.Anything, userID, models.RoleDriver, 4.1, 4.37).
			Return(true, nil).Once()

		svc := newTestService(t, userRepo, &mockOTPRepo{}, nil)
		got, err := svc.UpdateRating(context.Background(), userID, models.RoleDriver, 5)

		require.NoError(t, err)
		assert.Equal(t, 4.37, got)
	})

	t.Run("gives up after bounded retries", func(t *testing.T) {
		userRepo := &mockUserRepo{}
		userRepo.On("GetByID", mock.Anything, userID).
			Return(&models.UserAccount{ID: userID, RatingAsPassenger: 3.0}, nil).Times(3)
		userRepo.On("CompareAndSetRating", mock.Anything, userID, models.RolePassenger, 3.0, 3.6).
			Return(false, nil).Times(3)

		svc := newTestService(t, userRepo, &mockOTPRepo{}, nil)
		_, err := svc.UpdateRating(context.Background(), userID, models.RolePassenger, 5)

		assert.ErrorIs(t, err, models.ErrStoreConflict)
	})

	t.Run("rejects out-of-range sample", func(t *testing.T) {
		svc := newTestService(t, &mockUserRepo{}, &mockOTPRepo{}, nil)
		_, err := svc.UpdateRating(context.Background(), userID, models.RolePassenger, 6)
		assert.Error(t, err)
	})
}
