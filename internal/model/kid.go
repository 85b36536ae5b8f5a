package model

import "time"

type Kid struct {
	ID            int64     `json:"id"`
	EventID       int64     `json:"event_id"`
	ShelterID     int64     `json:"shelter_id"`
	ShelterLabel  string    `json:"shelter_label,omitempty"`
	Name          string    `json:"name"`
	Age           int       `json:"age"`
	Gender        string    `json:"gender"`
	ShirtSize     string    `json:"shirt_size"`
	PantSize      string    `json:"pant_size"`
	Color         string    `json:"color"`
	Comments      string    `json:"comments"`
	InternalNotes string    `json:"internal_notes"`
	ContactName   string    `json:"contact_name"`
	ContactEmail  string    `json:"contact_email"`
	ContactPhone  string    `json:"contact_phone"`
	Added         bool      `json:"added"`
	ItemID        *int64    `json:"item_id"`
	CreatedAt     time.Time `json:"created_at"`
}
