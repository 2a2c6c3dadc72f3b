package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail does a shape check only; real validation happens when the
// verification code is delivered to the address.
func ValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// GenerateVerifyCode returns a random 6-digit signup verification code.
func GenerateVerifyCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
