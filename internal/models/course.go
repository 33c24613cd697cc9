package models

import "time"

// CourseOffering is one scheduled section of a course within a term.
//
// Credits is fractional: 4 and 4.5 conventionally denote theory+lab
// combinations, which is also when the lab day/time columns are filled.
// TheoryDays holds a day-code token ("MW", "Mon,Wed"), TheoryTime a time-range
// token ("08:30 - 10:00" or "Slot 1: 08:30 - 10:00"); same for the lab pair.
type CourseOffering struct {
	ID            string    `db:"id" json:"id"`
	Code          string    `db:"code" json:"code"`
	Title         string    `db:"title" json:"title"`
	Department    string    `db:"department" json:"department"`
	Section       int       `db:"section" json:"section"`
	Credits       float64   `db:"credits" json:"credits"`
	Capacity      int       `db:"capacity" json:"capacity"`
	EnrolledCount int       `db:"enrolled_count" json:"enrolled_count"`
	Term          string    `db:"term" json:"term"`
	Instructor    string    `db:"instructor" json:"instructor"`
	Room          string    `db:"room" json:"room"`
	TheoryDays    string    `db:"theory_days" json:"theory_days"`
	TheoryTime    string    `db:"theory_time" json:"theory_time"`
	LabDay        string    `db:"lab_day" json:"lab_day,omitempty"`
	LabTime       string    `db:"lab_time" json:"lab_time,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// HasLab reports whether the offering carries a lab component.
func (c CourseOffering) HasLab() bool {
	return c.LabDay != "" && c.LabTime != ""
}

// SeatsAvailable returns the remaining capacity, never negative.
func (c CourseOffering) SeatsAvailable() int {
	seats := c.Capacity - c.EnrolledCount
	if seats < 0 {
		return 0
	}
	return seats
}

// CatalogEntry is a CourseOffering enriched for catalog listings.
type CatalogEntry struct {
	CourseOffering
	Seats int `db:"seats_available" json:"seats_available"`
}

// CourseFilter describes query params for listing the catalog.
type CourseFilter struct {
	Department string
	Term       string
	Page       int
	PageSize   int
}
