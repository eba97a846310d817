package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOfferTransitions(t *testing.T) {
	tests := []struct {
		from OfferStatus
		to   OfferStatus
		want bool
	}{
		{OfferStatusPending, OfferStatusOngoing, true},
		{OfferStatusPending, OfferStatusCancelled, true},
		{OfferStatusPending, OfferStatusCompleted, false},
		{OfferStatusOngoing, OfferStatusCompleted, true},
		{OfferStatusOngoing, OfferStatusCancelled, true},
		{OfferStatusOngoing, OfferStatusPending, false},
		{OfferStatusCompleted, OfferStatusOngoing, false},
		{OfferStatusCancelled, OfferStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			offer := &RideOffer{Status: tt.from}
			assert.Equal(t, tt.want, offer.CanTransitionTo(tt.to))
		})
	}
}

func TestRequestTransitions(t *testing.T) {
	tests := []struct {
		from RequestStatus
		to   RequestStatus
		want bool
	}{
		{RequestStatusPending, RequestStatusConfirmed, true},
		{RequestStatusPending, RequestStatusRejected, true},
		{RequestStatusPending, RequestStatusCancelled, true},
		{RequestStatusPending, RequestStatusInVehicle, false},
		{RequestStatusPending, RequestStatusCompleted, false},
		{RequestStatusConfirmed, RequestStatusInVehicle, true},
		{RequestStatusConfirmed, RequestStatusCancelled, true},
		{RequestStatusConfirmed, RequestStatusRejected, false},
		{RequestStatusInVehicle, RequestStatusCompleted, true},
		{RequestStatusInVehicle, RequestStatusCancelled, false},
		{RequestStatusCompleted, RequestStatusPending, false},
		{RequestStatusRejected, RequestStatusConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			request := &RideRequest{Status: tt.from}
			assert.Equal(t, tt.want, request.CanTransitionTo(tt.to))
		})
	}
}

func TestGeoPointAccessors(t *testing.T) {
	p := NewGeoPoint(77.5946, 12.9716)
	assert.Equal(t, "Point", p.Type)
	assert.Equal(t, 12.9716, p.Latitude())
	assert.Equal(t, 77.5946, p.Longitude())

	var nilPoint *GeoPoint
	assert.Equal(t, 0.0, nilPoint.Latitude())
	assert.Equal(t, 0.0, nilPoint.Longitude())
}
