package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateDistance(t *testing.T) {
	// Bengaluru to Chennai, roughly 290 km great-circle.
	got := CalculateDistance(12.9716, 77.5946, 13.0827, 80.2707)
	assert.InDelta(t, 290, got, 10)

	// Same point is zero.
	assert.InDelta(t, 0, CalculateDistance(12.9716, 77.5946, 12.9716, 77.5946), 0.001)

	// Symmetric.
	reverse := CalculateDistance(13.0827, 80.2707, 12.9716, 77.5946)
	assert.InDelta(t, got, reverse, 0.001)
}
