package utils

import (
	"crypto/rand"
	"math/big"
)

const numberBytes = "0123456789"

// DigitCode produces a numeric one-time code of the given length.
// Injectable so OTP flows can be tested with known codes.
type DigitCode func(length int) string

// GenerateDigitCode is the production DigitCode: uniform random digits.
func GenerateDigitCode(length int) string {
	return generateRandom(length, numberBytes)
}

func generateRandom(length int, charset string) string {
	result := make([]byte, length)
	charsetLength := big.NewInt(int64(len(charset)))

	for i := range result {
		num, _ := rand.Int(rand.Reader, charsetLength)
		result[i] = charset[num.Int64()]
	}

	return string(result)
}
