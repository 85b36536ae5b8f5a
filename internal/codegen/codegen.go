// Package codegen produces the secrets handed out to users: long-lived magic
// codes, intake form codes and short numeric one-time passcodes.
package codegen

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const (
	otpMin   = 100000
	otpRange = 900000
)

// MagicCode returns a random v4 UUID used as a user's permanent login link secret.
func MagicCode() string {
	return uuid.NewString()
}

// FormCode returns a random v4 UUID gating an event's public kid intake form.
func FormCode() string {
	return uuid.NewString()
}

// OTP returns a 6-digit numeric code (100000–999999).
func OTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpRange))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}
