package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

// charset defines the character set used for generating short codes.
// 62 alphanumeric characters, case-sensitive: 62^6 ≈ 56 billion codes at the default length.
const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Bounds on the configurable code length.
const (
	MinCodeLength = 4
	MaxCodeLength = 10
)

// shortCodePattern is what lookups accept. Generated codes are a subset of it.
var shortCodePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{4,10}$`)

// reservedCodes are top-level paths served by static routes. A link under one
// of them could never be redirected.
var reservedCodes = map[string]struct{}{
	"health":  {},
	"metrics": {},
}

// Reserved reports whether code collides with a static route.
func Reserved(code string) bool {
	_, ok := reservedCodes[code]
	return ok
}

// GenerateShortCode draws length characters uniformly from charset using crypto/rand.
// It does not check uniqueness.
func GenerateShortCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid short code length %d", length)
	}

	code := make([]byte, length)
	size := big.NewInt(int64(len(charset)))
	for i := range code {
		num, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

// ValidShortCode reports whether code has an acceptable shape for a lookup.
func ValidShortCode(code string) bool {
	return shortCodePattern.MatchString(code)
}
