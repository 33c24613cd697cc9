package models

import "time"

// AdvisingWindow opens registration for students whose completed credits fall
// inside [MinCredits, MaxCredits] between StartsAt and EndsAt.
type AdvisingWindow struct {
	ID         string    `db:"id" json:"id"`
	MinCredits float64   `db:"min_credits" json:"min_credits"`
	MaxCredits float64   `db:"max_credits" json:"max_credits"`
	StartsAt   time.Time `db:"starts_at" json:"starts_at"`
	EndsAt     time.Time `db:"ends_at" json:"ends_at"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AdvisingAccess is the gatekeeper verdict for one student.
type AdvisingAccess struct {
	Allowed          bool       `json:"allowed"`
	CompletedCredits float64    `json:"completed_credits"`
	Message          string     `json:"message,omitempty"`
	OpensAt          *time.Time `json:"opens_at,omitempty"`
}
