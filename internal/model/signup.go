package model

import "time"

type Signup struct {
	ID              int64      `json:"id"`
	ItemID          int64      `json:"item_id"`
	UserID          int64      `json:"user_id"`
	Quantity        int        `json:"quantity"`
	Comment         string     `json:"comment"`
	SubmissionToken string     `json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
	CanceledAt      *time.Time `json:"canceled_at"`
}

// Active reports whether the signup has not been canceled.
func (s *Signup) Active() bool {
	return s.CanceledAt == nil
}

// SignupDetail is a signup joined with the item and event it pledges to.
type SignupDetail struct {
	Signup
	ItemTitle   string `json:"item_title"`
	EventID     int64  `json:"event_id"`
	EventTitle  string `json:"event_title"`
	EventActive bool   `json:"event_active"`
	UserName    string `json:"user_name,omitempty"`
	UserEmail   string `json:"user_email,omitempty"`
}

// ItemFulfillment is one row of a fulfillment summary.
type ItemFulfillment struct {
	ItemID  int64  `json:"item_id"`
	Title   string `json:"title"`
	Needed  int    `json:"needed"`
	Signups int    `json:"signups"`
	KidItem bool   `json:"kid_item"`
}

type FulfillmentSummary struct {
	EventID      int64             `json:"event_id"`
	Items        []ItemFulfillment `json:"items"`
	TotalNeeded  int               `json:"total_needed"`
	TotalSignups int               `json:"total_signups"`
	KidMode      bool              `json:"kid_mode"`
	// MixedKidItems is set when a kid-mode event also carries active items
	// that did not come from a kid. Those items are left out of the totals.
	MixedKidItems bool `json:"mixed_kid_items"`
}
