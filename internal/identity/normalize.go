package identity

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrInvalidEmail = errors.New("invalid email address")
	ErrInvalidPhone = errors.New("phone number must have 10 digits")
	ErrNoChannel    = errors.New("email or phone is required")
)

// Channel is the contact route a user was identified through and is notified on.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPhone Channel = "phone"
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// NormalizeEmail lower-cases and trims an address and checks its shape.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// NormalizePhone strips everything but digits. A leading US country code is
// dropped; the result must be exactly 10 digits.
func NormalizePhone(phone string) (string, error) {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return "", ErrInvalidPhone
	}
	return digits, nil
}

// Classify decides whether a login identifier is an email or a phone number
// and returns it normalized.
func Classify(identifier string) (Channel, string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", "", ErrNoChannel
	}
	if strings.Contains(identifier, "@") {
		email, err := NormalizeEmail(identifier)
		return ChannelEmail, email, err
	}
	phone, err := NormalizePhone(identifier)
	return ChannelPhone, phone, err
}
