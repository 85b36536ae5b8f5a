package model

import (
	"errors"
	"time"
)

var (
	ErrAdoptNeedsShelter = errors.New("adopt signup events need at least one shelter")
	ErrAlertNeedsEmail   = errors.New("alerts need an alert email")
)

type Event struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Summary          string    `json:"summary"`
	EmailInfo        string    `json:"email_info"`
	Image            string    `json:"image"`
	Active           bool      `json:"active"`
	AdoptSignup      bool      `json:"adopt_signup"`
	AllowKids        bool      `json:"allow_kids"`
	FormCode         string    `json:"form_code,omitempty"`
	AlertEmail       string    `json:"alert_email,omitempty"`
	AlertOnSignup    bool      `json:"alert_on_signup"`
	AlertOnCancel    bool      `json:"alert_on_cancel"`
	KidTitle         string    `json:"kid_title"`
	KidNotes         string    `json:"kid_notes"`
	KidEmailInfo     string    `json:"kid_email_info"`
	KidCommentsLabel string    `json:"kid_comments_label"`
	KidCommentsHelp  string    `json:"kid_comments_help"`
	KidNeeded        int       `json:"kid_needed"`
	CreatedAt        time.Time `json:"created_at"`
}

// Validate checks the cross-field rules on an event given how many shelters
// it is associated with.
func (e *Event) Validate(shelterCount int) error {
	if e.AdoptSignup && shelterCount == 0 {
		return ErrAdoptNeedsShelter
	}
	if (e.AlertOnSignup || e.AlertOnCancel) && e.AlertEmail == "" {
		return ErrAlertNeedsEmail
	}
	return nil
}

type Item struct {
	ID        int64      `json:"id"`
	EventID   int64      `json:"event_id"`
	Title     string     `json:"title"`
	Notes     string     `json:"notes"`
	EmailInfo string     `json:"email_info"`
	Needed    int        `json:"needed"`
	Active    bool       `json:"active"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	CreatedAt time.Time  `json:"created_at"`
}

type Shelter struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}
