package domain

import "errors"

// Validation failures. Each carries the request field it concerns via FieldOf.
var (
	ErrInvalidDateRange   = errors.New("check-out date must be after check-in date")
	ErrCapacityExceeded   = errors.New("number of guests exceeds listing capacity")
	ErrInvalidGuestCount  = errors.New("number of guests must be greater than zero")
	ErrInvalidPrice       = errors.New("price must be greater than zero")
	ErrInvalidRating      = errors.New("rating must be between 1 and 5")
	ErrInvalidRooms       = errors.New("bedroom and bathroom counts cannot be negative")
	ErrInvalidMaxGuests   = errors.New("max guests must be at least 1")
	ErrMissingField       = errors.New("field is required")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrListingUnavailable = errors.New("listing is not available for booking")
)

// Lookup and state failures.
var (
	ErrListingNotFound = errors.New("listing not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrReviewNotFound  = errors.New("review not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrUserNotFound    = errors.New("user not found")

	ErrDuplicateReview   = errors.New("guest has already reviewed this listing")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrStaleVersion      = errors.New("record was modified concurrently")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrPaymentSettled    = errors.New("payment already settled")
	ErrDuplicateTxRef    = errors.New("transaction reference already used")
)

// FieldError ties a validation sentinel to the offending field.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Err.Error() }

func (e *FieldError) Unwrap() error { return e.Err }

func fieldErr(field string, err error) error {
	return &FieldError{Field: field, Err: err}
}

// FieldOf returns the field name attached to err, if any.
func FieldOf(err error) string {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Field
	}
	return ""
}
