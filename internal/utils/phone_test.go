package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidPhone(t *testing.T) {
	valid := []string{
		"+919876543210",
		"+1 (555) 123-4567",
		"5551234567",
	}
	for _, phone := range valid {
		assert.True(t, IsValidPhone(phone), phone)
	}

	invalid := []string{
		"",
		"0123456789",
		"+0123456789",
		"12345678901234567890",
		"abc",
	}
	for _, phone := range invalid {
		assert.False(t, IsValidPhone(phone), phone)
	}
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+15551234567", NormalizePhone("+1 (555) 123-4567"))
	assert.Equal(t, "919876543210", NormalizePhone("91 98765 43210"))
	assert.Equal(t, "", NormalizePhone("  "))
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "********4567", MaskPhone("+15551234567"))
	assert.Equal(t, "123", MaskPhone("123"))
}
