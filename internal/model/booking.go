package model

import "time"

// Booking status values.
const (
	BookingPending    = "pending"
	BookingConfirmed  = "confirmed"
	BookingCheckedIn  = "checked_in"
	BookingCheckedOut = "checked_out"
	BookingCancelled  = "cancelled"
)

// bookingTransitions lists the statuses reachable from each status.
var bookingTransitions = map[string][]string{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCheckedIn, BookingCancelled},
	BookingCheckedIn: {BookingCheckedOut},
}

// Booking is a reservation of one room by one customer for a date range.
// CheckOut is exclusive: a booking from the 1st to the 3rd covers two nights.
type Booking struct {
	ID          int64            `json:"id" db:"id"`
	Reference   string           `json:"reference" db:"reference"`
	CustomerID  int64            `json:"customer_id" db:"customer_id"`
	RoomID      int64            `json:"room_id" db:"room_id"`
	CheckIn     time.Time        `json:"check_in" db:"check_in"`
	CheckOut    time.Time        `json:"check_out" db:"check_out"`
	Guests      int              `json:"guests" db:"guests"`
	Status      string           `json:"status" db:"status"`
	TotalAmount float64          `json:"total_amount" db:"total_amount"`
	Notes       string           `json:"notes" db:"notes"`
	Services    []BookingService `json:"services,omitempty" db:"-"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
}

// BookingService records an extra attached to a booking at the price in
// effect when the booking was made.
type BookingService struct {
	BookingID int64   `json:"-" db:"booking_id"`
	ServiceID int64   `json:"service_id" db:"service_id"`
	Name      string  `json:"name" db:"name"`
	Price     float64 `json:"price" db:"price"`
}

// Nights returns the number of nights covered by the booking.
func (b *Booking) Nights() int {
	return NightsBetween(b.CheckIn, b.CheckOut)
}

// IsActive reports whether the booking still holds its room.
func (b *Booking) IsActive() bool {
	return IsActiveBookingStatus(b.Status)
}

// Overlaps reports whether the booking's stay intersects [checkIn, checkOut).
func (b *Booking) Overlaps(checkIn, checkOut time.Time) bool {
	return b.CheckIn.Before(checkOut) && checkIn.Before(b.CheckOut)
}

// IsActiveBookingStatus reports whether a booking in status s blocks its room.
func IsActiveBookingStatus(s string) bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCheckedIn:
		return true
	}
	return false
}

// ValidBookingStatus reports whether s is a known booking status.
func ValidBookingStatus(s string) bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCheckedIn, BookingCheckedOut, BookingCancelled:
		return true
	}
	return false
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range bookingTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// NightsBetween counts calendar nights between two dates.
func NightsBetween(checkIn, checkOut time.Time) int {
	in := DateOnly(checkIn)
	out := DateOnly(checkOut)
	return int(out.Sub(in).Hours() / 24)
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
