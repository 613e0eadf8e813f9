// Package store defines persistence for listings, bookings, reviews, payments
// and users. Implementations live in the memory and postgres subpackages.
//
// Every Update is optimistic: the caller passes the Version it read and the
// write fails with domain.ErrStaleVersion if the row changed in between. On
// success the entity's Version and UpdatedAt are advanced in place.
package store

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/staybook/internal/domain"
)

type ListingStore interface {
	CreateListing(ctx context.Context, l *domain.Listing) error
	GetListing(ctx context.Context, id string) (*domain.Listing, error)
	UpdateListing(ctx context.Context, l *domain.Listing) error
	// DeleteListing removes the listing with its bookings, payments and reviews.
	DeleteListing(ctx context.Context, id string) error
	ListListings(ctx context.Context, f domain.ListingFilter) ([]*domain.Listing, error)
}

// BookingStore re-runs domain.ValidateBooking against the referenced listing
// inside the write, so callers that skip request validation cannot persist an
// invalid booking.
type BookingStore interface {
	CreateBooking(ctx context.Context, b *domain.Booking) error
	GetBooking(ctx context.Context, id string) (*domain.Booking, error)
	UpdateBooking(ctx context.Context, b *domain.Booking) error
	DeleteBooking(ctx context.Context, id string) error
	ListBookings(ctx context.Context, f domain.BookingFilter) ([]*domain.Booking, error)
	CountBookingsByStatus(ctx context.Context) (map[domain.BookingStatus]int, error)
}

// ReviewStore enforces one review per (listing, guest); a second insert
// returns domain.ErrDuplicateReview.
type ReviewStore interface {
	CreateReview(ctx context.Context, r *domain.Review) error
	GetReview(ctx context.Context, id string) (*domain.Review, error)
	UpdateReview(ctx context.Context, r *domain.Review) error
	DeleteReview(ctx context.Context, id string) error
	ListReviews(ctx context.Context, listingID string) ([]*domain.Review, error)
	// RatingsByListing returns the live ratings for each requested listing.
	RatingsByListing(ctx context.Context, listingIDs []string) (map[string][]int, error)
}

type PaymentStore interface {
	CreatePayment(ctx context.Context, p *domain.Payment) error
	GetPaymentByTransaction(ctx context.Context, txRef string) (*domain.Payment, error)
	ListPaymentsForBooking(ctx context.Context, bookingID string) ([]*domain.Payment, error)
	// SettlePayment moves a Pending payment to status. When status is
	// Completed the owning booking is confirmed in the same transaction,
	// but only if it is still pending and its total equals the payment
	// amount; otherwise the booking is left as it is.
	// If the payment is already terminal it is returned unchanged together
	// with domain.ErrPaymentSettled; of several concurrent callers exactly
	// one gets a nil error.
	SettlePayment(ctx context.Context, txRef string, status domain.PaymentStatus) (*domain.Payment, error)
	PaymentTotals(ctx context.Context) (map[domain.PaymentStatus]decimal.Decimal, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	SetUserRole(ctx context.Context, email, role string) error
}

// Store is the full persistence surface used by the server.
type Store interface {
	ListingStore
	BookingStore
	ReviewStore
	PaymentStore
	UserStore
	Ping(ctx context.Context) error
}
