package model

import (
	"time"
)

// DayLayout is the calendar-day key used to compare booking dates. Days are taken in UTC.
const DayLayout = "2006-01-02"

type Booking struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    string    `json:"user" bson:"user"`
	Date      time.Time `json:"date" bson:"date"`
	Day       string    `json:"-" bson:"day"`
	Companies []string  `json:"companies" bson:"companies"`
	Note      string    `json:"note,omitempty" bson:"note,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// CreateBookingRequest is the body of POST /api/v1/booking.
type CreateBookingRequest struct {
	Date      string   `json:"date" validate:"omitempty,max=40"`
	Companies []string `json:"companies" validate:"omitempty,max=50,dive,required,mongodb"`
	Note      string   `json:"note" validate:"omitempty,max=500"`
}

// BookingUpdate is a partial update. Nil fields are left unchanged. Date or
// Companies must be present.
type BookingUpdate struct {
	Date      *string   `json:"date,omitempty" validate:"omitempty,max=40"`
	Companies *[]string `json:"companies,omitempty" validate:"omitempty,max=50,dive,required,mongodb"`
	Note      *string   `json:"note,omitempty" validate:"omitempty,max=500"`
}

// BookingDetails is a booking with its company and user references resolved.
type BookingDetails struct {
	*Booking
	CompanyDetails []*Company    `json:"company_details"`
	User           *UserSummary `json:"user_details,omitempty"`
}

// DayOf returns the UTC calendar day of t.
func DayOf(t time.Time) string {
	return t.UTC().Format(DayLayout)
}
