package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextRating(t *testing.T) {
	tests := []struct {
		name   string
		old    float64
		sample float64
		want   float64
	}{
		{"first rating weights the sample", 0, 4, 1.2},
		{"second rating compounds", 1.2, 5, 2.34},
		{"steady state stays put", 4.0, 4.0, 4.0},
		{"rounds to two decimals", 3.33, 5, 3.83},
		{"low sample pulls down", 4.8, 1, 3.66},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextRating(tt.old, tt.sample))
		})
	}
}

func TestRegistrationExpired(t *testing.T) {
	created := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	user := &UserAccount{RegistrationPending: true, CreatedAt: created}

	assert.False(t, user.RegistrationExpired(created))
	assert.False(t, user.RegistrationExpired(created.Add(RegistrationGraceWindow)))
	assert.True(t, user.RegistrationExpired(created.Add(RegistrationGraceWindow+time.Second)))

	confirmed := &UserAccount{RegistrationPending: false, CreatedAt: created}
	assert.False(t, confirmed.RegistrationExpired(created.Add(time.Hour)))
}

func TestRemainingGrace(t *testing.T) {
	created := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	user := &UserAccount{RegistrationPending: true, CreatedAt: created}

	assert.Equal(t, RegistrationGraceWindow, user.RemainingGrace(created))
	assert.Equal(t, 2*time.Minute, user.RemainingGrace(created.Add(3*time.Minute)))
	assert.Equal(t, time.Duration(0), user.RemainingGrace(created.Add(10*time.Minute)))
}

func TestIsDriverVerified(t *testing.T) {
	user := &UserAccount{IsDriver: true}
	assert.False(t, user.IsDriverVerified())

	user.DriversLicenseURL = "https://cdn.example.com/licenses/abc.jpg"
	assert.True(t, user.IsDriverVerified())

	passenger := &UserAccount{IsDriver: false, DriversLicenseURL: "https://cdn.example.com/licenses/abc.jpg"}
	assert.False(t, passenger.IsDriverVerified())
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", (&UserAccount{FirstName: "Ada", LastName: "Lovelace"}).FullName())
	assert.Equal(t, "Ada", (&UserAccount{FirstName: "Ada"}).FullName())
	assert.Equal(t, "", (&UserAccount{}).FullName())
}

func TestRatingFor(t *testing.T) {
	user := &UserAccount{RatingAsDriver: 4.5, RatingAsPassenger: 3.2}
	assert.Equal(t, 4.5, user.RatingFor(RoleDriver))
	assert.Equal(t, 3.2, user.RatingFor(RolePassenger))
}
