package model

import "time"

// User is a donor or organizer. Email and Phone are empty when absent, but
// at least one of them is always set.
type User struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	MagicCode        string     `json:"-"`
	LoginCode        string     `json:"-"`
	LoginCodeExpires *time.Time `json:"-"`
	LoginAttempts    int        `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
}
