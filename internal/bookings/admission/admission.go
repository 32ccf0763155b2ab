// Package admission decides whether a booking operation may be admitted.
//
// The engine is a pure function over a snapshot of the owner's bookings. It never
// touches storage; callers are responsible for fetching a consistent snapshot and for
// serializing admissions of the same owner.
package admission

import (
	"fmt"
	"time"

	apperrors "jobfair/pkg/errors"
	"jobfair/pkg/model"
)

// Window is the closed interval of admissible booking dates.
type Window struct {
	Min time.Time
	Max time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Min) && !t.After(w.Max)
}

type Engine struct {
	window      Window
	maxPerOwner int
}

func NewEngine(window Window, maxPerOwner int) *Engine {
	return &Engine{
		window:      window,
		maxPerOwner: maxPerOwner,
	}
}

func (e *Engine) Window() Window {
	return e.window
}

// CreateRequest carries the parsed fields of a booking creation. A nil Date means the
// caller did not supply one.
type CreateRequest struct {
	Date      *time.Time
	Companies []string
	Note      string
}

// Patch carries the fields of a partial update. Nil fields are left unchanged; a
// non-nil Companies pointing to an empty slice is an explicit (invalid) empty set.
// Note only rides along with a new date or company set.
type Patch struct {
	Date      *time.Time
	Companies *[]string
	Note      *string
}

func (p Patch) IsEmpty() bool {
	return p.Date == nil && p.Companies == nil
}

// AdmitCreate evaluates a new booking for actor against the actor's existing bookings.
// Rules run in a fixed order and the first violation is returned.
func (e *Engine) AdmitCreate(actor model.Actor, req CreateRequest, existing []*model.Booking) (*model.Booking, error) {
	if req.Date == nil || len(req.Companies) == 0 {
		return nil, apperrors.InvalidInput("Companies and date are required")
	}

	date := req.Date.UTC()
	if !e.window.Contains(date) {
		return nil, e.dateOutOfRange()
	}

	if len(existing) >= e.maxPerOwner {
		return nil, apperrors.Rule(apperrors.CodeCapacityExceeded,
			fmt.Sprintf("Max %d booking sessions allowed", e.maxPerOwner))
	}

	if err := checkDistinct(req.Companies); err != nil {
		return nil, err
	}

	if id, ok := findBookedCompany(req.Companies, existing); ok {
		return nil, apperrors.Rule(apperrors.CodeCompanyAlreadyBooked, "You already booked this company").
			WithDetails(map[string]any{"company": id})
	}

	day := model.DayOf(date)
	if findBookedDay(day, existing) {
		return nil, apperrors.Rule(apperrors.CodeDayAlreadyBooked, "You already booked a session on this day").
			WithDetails(map[string]any{"day": day})
	}

	return &model.Booking{
		UserID:    actor.UserID,
		Date:      date,
		Day:       day,
		Companies: append([]string(nil), req.Companies...),
		Note:      req.Note,
	}, nil
}

// AdmitUpdate evaluates a partial update of current. others must hold the owner's
// bookings excluding current. The returned booking is a merged copy; current is never
// modified.
func (e *Engine) AdmitUpdate(actor model.Actor, bookingID string, patch Patch, current *model.Booking, others []*model.Booking) (*model.Booking, error) {
	if patch.IsEmpty() {
		return nil, apperrors.InvalidInput("Please provide companies or date to update")
	}
	if current == nil {
		return nil, apperrors.NotFoundWithID("Booking", bookingID)
	}
	if !IsOwnerOrAdmin(actor, current) {
		return nil, apperrors.Forbidden("Not authorized to update this booking")
	}

	merged := *current
	merged.Companies = append([]string(nil), current.Companies...)

	if patch.Companies != nil {
		companies := *patch.Companies
		if len(companies) == 0 {
			return nil, apperrors.InvalidInput("Companies cannot be empty")
		}
		if err := checkDistinct(companies); err != nil {
			return nil, err
		}
		if id, ok := findBookedCompany(companies, others); ok {
			return nil, apperrors.Rule(apperrors.CodeCompanyAlreadyBooked, "You already booked this company in another session").
				WithDetails(map[string]any{"company": id})
		}
		merged.Companies = append([]string(nil), companies...)
	}

	if patch.Date != nil {
		date := patch.Date.UTC()
		if !e.window.Contains(date) {
			return nil, e.dateOutOfRange()
		}
		day := model.DayOf(date)
		if findBookedDay(day, others) {
			return nil, apperrors.Rule(apperrors.CodeDayAlreadyBooked, "You already have a session on this day").
				WithDetails(map[string]any{"day": day})
		}
		merged.Date = date
		merged.Day = day
	}

	if patch.Note != nil {
		merged.Note = *patch.Note
	}

	return &merged, nil
}

// AdmitDelete admits removal of current by actor.
func (e *Engine) AdmitDelete(actor model.Actor, bookingID string, current *model.Booking) error {
	if current == nil {
		return apperrors.NotFoundWithID("Booking", bookingID)
	}
	if !IsOwnerOrAdmin(actor, current) {
		return apperrors.Forbidden("Not authorized to delete this booking")
	}
	return nil
}

// AdmitRead admits viewing current by actor and returns it unchanged.
func (e *Engine) AdmitRead(actor model.Actor, bookingID string, current *model.Booking) (*model.Booking, error) {
	if current == nil {
		return nil, apperrors.NotFoundWithID("Booking", bookingID)
	}
	if !IsOwnerOrAdmin(actor, current) {
		return nil, apperrors.Forbidden("Not authorized to view this booking")
	}
	return current, nil
}

// IsOwnerOrAdmin is the single capability check guarding every booking operation.
func IsOwnerOrAdmin(actor model.Actor, booking *model.Booking) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.UserID != "" && booking != nil && booking.UserID == actor.UserID
}

// ListScope returns the owner filter for a listing by actor. An empty owner with
// all=true means every booking is visible.
func ListScope(actor model.Actor) (owner string, all bool) {
	if actor.IsAdmin() {
		return "", true
	}
	return actor.UserID, false
}

func (e *Engine) dateOutOfRange() error {
	return apperrors.Rule(apperrors.CodeDateOutOfRange, "Date out of allowed range").
		WithDetails(map[string]any{
			"min": e.window.Min.Format(time.RFC3339),
			"max": e.window.Max.Format(time.RFC3339),
		})
}

func checkDistinct(companies []string) error {
	seen := make(map[string]struct{}, len(companies))
	for _, id := range companies {
		if _, ok := seen[id]; ok {
			return apperrors.Rule(apperrors.CodeDuplicateTarget, "The same company is listed more than once").
				WithDetails(map[string]any{"company": id})
		}
		seen[id] = struct{}{}
	}
	return nil
}

func findBookedCompany(companies []string, bookings []*model.Booking) (string, bool) {
	booked := make(map[string]struct{})
	for _, b := range bookings {
		for _, id := range b.Companies {
			booked[id] = struct{}{}
		}
	}
	for _, id := range companies {
		if _, ok := booked[id]; ok {
			return id, true
		}
	}
	return "", false
}

func findBookedDay(day string, bookings []*model.Booking) bool {
	for _, b := range bookings {
		if model.DayOf(b.Date) == day {
			return true
		}
	}
	return false
}
