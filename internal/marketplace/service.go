// Package marketplace serves listings, bookings and reviews.
package marketplace

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/staybook/internal/apperrors"
	"github.com/sudo-init-do/staybook/internal/domain"
	"github.com/sudo-init-do/staybook/internal/store"
)

// Repository is the persistence the marketplace needs.
type Repository interface {
	store.ListingStore
	store.BookingStore
	store.ReviewStore
	ListPaymentsForBooking(ctx context.Context, bookingID string) ([]*domain.Payment, error)
}

// Actor is the authenticated caller.
type Actor struct {
	UserID string
	Role   string
}

func (a Actor) IsAdmin() bool { return a.Role == domain.RoleAdmin }

func (a Actor) owns(userID string) bool { return a.IsAdmin() || a.UserID == userID }

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ===== Listings =====

// ListingView is a listing with its derived rating, and on detail reads its reviews.
type ListingView struct {
	*domain.Listing
	AverageRating *float64         `json:"average_rating"`
	Reviews       []*domain.Review `json:"reviews,omitempty"`
}

type ListingInput struct {
	Title             *string
	Description       *string
	Location          *string
	PricePerNight     *decimal.Decimal
	NumberOfBedrooms  *int
	NumberOfBathrooms *int
	MaxGuests         *int
	Available         *bool
	Version           *int64
}

func (in ListingInput) apply(l *domain.Listing) {
	if in.Title != nil {
		l.Title = *in.Title
	}
	if in.Description != nil {
		l.Description = *in.Description
	}
	if in.Location != nil {
		l.Location = *in.Location
	}
	if in.PricePerNight != nil {
		l.PricePerNight = *in.PricePerNight
	}
	if in.NumberOfBedrooms != nil {
		l.NumberOfBedrooms = *in.NumberOfBedrooms
	}
	if in.NumberOfBathrooms != nil {
		l.NumberOfBathrooms = *in.NumberOfBathrooms
	}
	if in.MaxGuests != nil {
		l.MaxGuests = *in.MaxGuests
	}
	if in.Available != nil {
		l.Available = *in.Available
	}
}

func (s *Service) CreateListing(ctx context.Context, actor Actor, in ListingInput) (*domain.Listing, error) {
	if actor.Role != domain.RoleHost && !actor.IsAdmin() {
		return nil, apperrors.Forbidden("only hosts can create listings")
	}
	l := &domain.Listing{HostID: actor.UserID, Available: true}
	in.apply(l)
	if err := l.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.CreateListing(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// GetListing returns the listing with its live reviews and average rating.
func (s *Service) GetListing(ctx context.Context, id string) (*ListingView, error) {
	l, err := s.repo.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}
	reviews, err := s.repo.ListReviews(ctx, id)
	if err != nil {
		return nil, err
	}
	ratings := make([]int, 0, len(reviews))
	for _, r := range reviews {
		ratings = append(ratings, r.Rating)
	}
	return &ListingView{Listing: l, AverageRating: domain.AverageRating(ratings), Reviews: reviews}, nil
}

func (s *Service) ListListings(ctx context.Context, f domain.ListingFilter) ([]*ListingView, error) {
	listings, err := s.repo.ListListings(ctx, f)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(listings))
	for _, l := range listings {
		ids = append(ids, l.ID)
	}
	ratings, err := s.repo.RatingsByListing(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*ListingView, 0, len(listings))
	for _, l := range listings {
		out = append(out, &ListingView{Listing: l, AverageRating: domain.AverageRating(ratings[l.ID])})
	}
	return out, nil
}

// UpdateListing applies the non-nil fields of in. Only the host or an admin may update.
func (s *Service) UpdateListing(ctx context.Context, actor Actor, id string, in ListingInput) (*domain.Listing, error) {
	l, err := s.repo.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.owns(l.HostID) {
		return nil, apperrors.Forbidden("only the host can modify this listing")
	}
	if in.Version != nil && *in.Version != l.Version {
		return nil, domain.ErrStaleVersion
	}
	in.apply(l)
	if err := l.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateListing(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) DeleteListing(ctx context.Context, actor Actor, id string) error {
	l, err := s.repo.GetListing(ctx, id)
	if err != nil {
		return err
	}
	if !actor.owns(l.HostID) {
		return apperrors.Forbidden("only the host can delete this listing")
	}
	return s.repo.DeleteListing(ctx, id)
}

// ===== Bookings =====

// BookingView adds the stay length to a booking.
type BookingView struct {
	*domain.Booking
	DurationNights int `json:"duration_nights"`
}

func viewBooking(b *domain.Booking) *BookingView {
	return &BookingView{Booking: b, DurationNights: b.DurationNights()}
}

type BookingInput struct {
	ListingID      string
	CheckInDate    *domain.Date
	CheckOutDate   *domain.Date
	NumberOfGuests *int
	TotalPrice     *decimal.Decimal
	Version        *int64
}

// CreateBooking validates the stay against the listing and stores it as pending.
// A missing total price is quoted from the listing's nightly rate.
func (s *Service) CreateBooking(ctx context.Context, actor Actor, in BookingInput) (*BookingView, error) {
	l, err := s.repo.GetListing(ctx, in.ListingID)
	if err != nil {
		return nil, err
	}
	if err := l.Bookable(); err != nil {
		return nil, err
	}

	b := &domain.Booking{
		ListingID: l.ID,
		GuestID:   actor.UserID,
		Status:    domain.BookingPending,
	}
	if in.CheckInDate != nil {
		b.CheckInDate = *in.CheckInDate
	}
	if in.CheckOutDate != nil {
		b.CheckOutDate = *in.CheckOutDate
	}
	if in.NumberOfGuests != nil {
		b.NumberOfGuests = *in.NumberOfGuests
	}
	if in.TotalPrice != nil {
		b.TotalPrice = *in.TotalPrice
	} else {
		b.TotalPrice = domain.QuotePrice(l, b.CheckInDate, b.CheckOutDate)
	}

	if err := domain.ValidateBooking(b, l); err != nil {
		return nil, err
	}
	if err := s.repo.CreateBooking(ctx, b); err != nil {
		return nil, err
	}
	return viewBooking(b), nil
}

func (s *Service) GetBooking(ctx context.Context, actor Actor, id string) (*BookingView, error) {
	b, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.owns(b.GuestID) {
		return nil, apperrors.Forbidden("booking belongs to another guest")
	}
	return viewBooking(b), nil
}

// ListBookings scopes non-admin callers to their own bookings.
func (s *Service) ListBookings(ctx context.Context, actor Actor, f domain.BookingFilter) ([]*BookingView, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperrors.Validation("status", domain.ErrInvalidStatus)
	}
	if !actor.IsAdmin() {
		f.GuestID = actor.UserID
	}
	bookings, err := s.repo.ListBookings(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]*BookingView, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, viewBooking(b))
	}
	return out, nil
}

// UpdateBooking changes dates, guests or price while the booking is still
// pending and no checkout is open for it.
// Changing the dates without a price re-quotes the stay.
func (s *Service) UpdateBooking(ctx context.Context, actor Actor, id string, in BookingInput) (*BookingView, error) {
	b, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.owns(b.GuestID) {
		return nil, apperrors.Forbidden("booking belongs to another guest")
	}
	if b.Status != domain.BookingPending {
		return nil, apperrors.Conflict("only pending bookings can be modified", domain.ErrInvalidTransition)
	}
	if in.Version != nil && *in.Version != b.Version {
		return nil, domain.ErrStaleVersion
	}
	payments, err := s.repo.ListPaymentsForBooking(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	for _, p := range payments {
		if p.Status == domain.PaymentPending {
			return nil, apperrors.Conflict("booking has a payment in progress and cannot be modified", domain.ErrInvalidTransition)
		}
	}
	l, err := s.repo.GetListing(ctx, b.ListingID)
	if err != nil {
		return nil, err
	}

	redated := false
	if in.CheckInDate != nil {
		b.CheckInDate = *in.CheckInDate
		redated = true
	}
	if in.CheckOutDate != nil {
		b.CheckOutDate = *in.CheckOutDate
		redated = true
	}
	if in.NumberOfGuests != nil {
		b.NumberOfGuests = *in.NumberOfGuests
	}
	switch {
	case in.TotalPrice != nil:
		b.TotalPrice = *in.TotalPrice
	case redated:
		b.TotalPrice = domain.QuotePrice(l, b.CheckInDate, b.CheckOutDate)
	}

	if err := domain.ValidateBooking(b, l); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateBooking(ctx, b); err != nil {
		return nil, err
	}
	return viewBooking(b), nil
}

func (s *Service) DeleteBooking(ctx context.Context, actor Actor, id string) error {
	if !actor.IsAdmin() {
		return apperrors.Forbidden("only admins can delete bookings")
	}
	return s.repo.DeleteBooking(ctx, id)
}

// ===== Reviews =====

type ReviewInput struct {
	ListingID string
	Rating    *int
	Comment   *string
}

func (s *Service) CreateReview(ctx context.Context, actor Actor, in ReviewInput) (*domain.Review, error) {
	r := &domain.Review{ListingID: in.ListingID, GuestID: actor.UserID}
	if in.Rating != nil {
		r.Rating = *in.Rating
	}
	if in.Comment != nil {
		r.Comment = *in.Comment
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.CreateReview(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	return s.repo.GetReview(ctx, id)
}

func (s *Service) ListReviews(ctx context.Context, listingID string) ([]*domain.Review, error) {
	return s.repo.ListReviews(ctx, listingID)
}

func (s *Service) UpdateReview(ctx context.Context, actor Actor, id string, in ReviewInput) (*domain.Review, error) {
	r, err := s.repo.GetReview(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.owns(r.GuestID) {
		return nil, apperrors.Forbidden("only the author can modify this review")
	}
	if in.Rating != nil {
		r.Rating = *in.Rating
	}
	if in.Comment != nil {
		r.Comment = *in.Comment
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateReview(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) DeleteReview(ctx context.Context, actor Actor, id string) error {
	r, err := s.repo.GetReview(ctx, id)
	if err != nil {
		return err
	}
	if !actor.owns(r.GuestID) {
		return apperrors.Forbidden("only the author can delete this review")
	}
	return s.repo.DeleteReview(ctx, id)
}
