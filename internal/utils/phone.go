package utils

import (
	"regexp"
	"strings"
)

var (
	phoneRegex    = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	nonPhoneChars = regexp.MustCompile(`[^\d+]`)
)

func IsValidPhone(phone string) bool {
	cleaned := nonPhoneChars.ReplaceAllString(phone, "")
	return phoneRegex.MatchString(cleaned) && len(cleaned) <= MaxPhoneLength
}

// NormalizePhone strips spaces, dashes and parentheses. The raw digits
// (with optional leading +) are what the ledger stores and compares.
func NormalizePhone(phone string) string {
	return nonPhoneChars.ReplaceAllString(strings.TrimSpace(phone), "")
}

func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
