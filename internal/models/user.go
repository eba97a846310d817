package models

import (
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRole string
type Gender string

const (
	RoleDriver    UserRole = "DRIVER"
	RolePassenger UserRole = "PASSENGER"

	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

const (
	// RegistrationGraceWindow is how long a pending registration may block
	// re-registration of the same email or phone before it is reclaimable.
	RegistrationGraceWindow = 5 * time.Minute

	// Rating EMA weights, applied as new = round(0.7*old + 0.3*sample, 2).
	ratingWeightOld = 0.7
	ratingWeightNew = 0.3
)

// UserAccount is the ledger's unit: a pending or confirmed identity record.
// At most one record with registration_pending=false may exist per email and
// per phone_number; the partial unique indexes in pkg/database enforce that.
type UserAccount struct {
	ID                        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Email                     string             `json:"email" bson:"email" validate:"required,email"`
	PhoneNumber               string             `json:"phone_number" bson:"phone_number" validate:"required,max=15"`
	FirstName                 string             `json:"first_name" bson:"first_name" validate:"max=150"`
	LastName                  string             `json:"last_name" bson:"last_name" validate:"max=150"`
	Password                  string             `json:"-" bson:"password"`
	Gender                    Gender             `json:"gender" bson:"gender"`
	EmergencyContactPhone     string             `json:"emergency_contact_phone" bson:"emergency_contact_phone"`
	ProfilePhotoURL           string             `json:"profile_photo_url" bson:"profile_photo_url"`
	DriversLicenseURL         string             `json:"drivers_license_url" bson:"drivers_license_url"`
	IsDriver                  bool               `json:"is_driver" bson:"is_driver"`
	CurrentRole               UserRole           `json:"current_role" bson:"current_role" default:"PASSENGER"`
	VehicleNumber             string             `json:"vehicle_number" bson:"vehicle_number"`
	VehicleModel              string             `json:"vehicle_model" bson:"vehicle_model"`
	TotalSeats                int                `json:"total_seats" bson:"total_seats"`
	IsActive                  bool               `json:"is_active" bson:"is_active"`
	EmailVerified             bool               `json:"email_verified" bson:"email_verified"`
	PhoneVerified             bool               `json:"phone_verified" bson:"phone_verified"`
	RegistrationPending       bool               `json:"registration_pending" bson:"registration_pending"`
	RatingAsDriver            float64            `json:"rating_as_driver" bson:"rating_as_driver"`
	RatingAsPassenger         float64            `json:"rating_as_passenger" bson:"rating_as_passenger"`
	CompletedRidesAsDriver    int                `json:"completed_rides_as_driver" bson:"completed_rides_as_driver"`
	CompletedRidesAsPassenger int                `json:"completed_rides_as_passenger" bson:"completed_rides_as_passenger"`
	CreatedAt                 time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt                 time.Time          `json:"updated_at" bson:"updated_at"`
}

func (u *UserAccount) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// RegistrationExpired reports whether a pending registration has outlived
// the grace window. Confirmed accounts never expire.
func (u *UserAccount) RegistrationExpired(now time.Time) bool {
	if !u.RegistrationPending {
		return false
	}
	return u.CreatedAt.Before(now.Add(-RegistrationGraceWindow))
}

// RemainingGrace is how long this pending record still blocks its identity.
func (u *UserAccount) RemainingGrace(now time.Time) time.Duration {
	remaining := u.CreatedAt.Add(RegistrationGraceWindow).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsDriverVerified is derived, never stored: a driver is verified iff a
// driver's-license image is attached.
func (u *UserAccount) IsDriverVerified() bool {
	return u.IsDriver && u.DriversLicenseURL != ""
}

// RatingFor returns the stored rating for the given role.
func (u *UserAccount) RatingFor(role UserRole) float64 {
	if role == RoleDriver {
		return u.RatingAsDriver
	}
	return u.RatingAsPassenger
}

// NextRating applies the rating EMA: new = round(0.7*old + 0.3*sample, 2).
func NextRating(old, sample float64) float64 {
	return math.Round((ratingWeightOld*old+ratingWeightNew*sample)*100) / 100
}
