package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether an administrative status change is allowed.
// Confirmation is reserved for payment settlement and is not reachable here.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch next {
	case BookingCancelled:
		return s == BookingPending || s == BookingConfirmed
	case BookingCompleted:
		return s == BookingConfirmed
	}
	return false
}

// Booking is a guest's reservation of a listing for a date range.
type Booking struct {
	ID             string          `json:"id"`
	ListingID      string          `json:"listing_id"`
	GuestID        string          `json:"guest_id"`
	CheckInDate    Date            `json:"check_in_date"`
	CheckOutDate   Date            `json:"check_out_date"`
	NumberOfGuests int             `json:"number_of_guests"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	Status         BookingStatus   `json:"status"`
	Version        int64           `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// DurationNights is the number of nights between check-in and check-out.
func (b *Booking) DurationNights() int {
	return b.CheckInDate.DaysUntil(b.CheckOutDate)
}

// ValidateBooking checks a candidate booking against the listing it targets.
// It is pure and is run both by request handlers and by stores before writing.
func ValidateBooking(b *Booking, l *Listing) error {
	if !b.CheckOutDate.After(b.CheckInDate.Time) {
		return fieldErr("check_out_date", ErrInvalidDateRange)
	}
	if b.NumberOfGuests <= 0 {
		return fieldErr("number_of_guests", ErrInvalidGuestCount)
	}
	if l != nil && b.NumberOfGuests > l.MaxGuests {
		return fieldErr("number_of_guests", ErrCapacityExceeded)
	}
	if !b.TotalPrice.IsPositive() {
		return fieldErr("total_price", ErrInvalidPrice)
	}
	return nil
}

// QuotePrice prices a stay at the listing's nightly rate.
func QuotePrice(l *Listing, checkIn, checkOut Date) decimal.Decimal {
	nights := checkIn.DaysUntil(checkOut)
	if nights <= 0 {
		return decimal.Zero
	}
	return l.PricePerNight.Mul(decimal.NewFromInt(int64(nights)))
}

// BookingFilter narrows a booking query. Empty fields are ignored.
type BookingFilter struct {
	Status    BookingStatus
	GuestID   string
	ListingID string
	Limit     int
	Offset    int
}
