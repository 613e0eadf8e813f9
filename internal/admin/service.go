// Package admin holds the back-office routes: booking oversight, status
// overrides, role management and platform stats.
package admin

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/staybook/internal/apperrors"
	"github.com/sudo-init-do/staybook/internal/domain"
	"github.com/sudo-init-do/staybook/internal/payment"
	"github.com/sudo-init-do/staybook/internal/store"
)

var errInvalidRole = errors.New("role must be one of guest, host, admin")

// Repository is the persistence the admin routes read and write.
type Repository interface {
	store.BookingStore
	store.UserStore
	PaymentTotals(ctx context.Context) (map[domain.PaymentStatus]decimal.Decimal, error)
}

type Service struct {
	repo      Repository
	publisher payment.Publisher
}

// NewService builds the admin service; publisher may be nil.
func NewService(repo Repository, publisher payment.Publisher) *Service {
	return &Service{repo: repo, publisher: publisher}
}

// SetBookingStatus applies an administrative transition: pending or confirmed
// to cancelled, confirmed to completed. Confirmation itself is only reachable
// through payment settlement.
func (s *Service) SetBookingStatus(ctx context.Context, id string, next domain.BookingStatus) (*domain.Booking, error) {
	if !next.Valid() {
		return nil, apperrors.Validation("status", domain.ErrInvalidStatus)
	}
	b, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status == next {
		return b, nil
	}
	if !b.Status.CanTransitionTo(next) {
		return nil, apperrors.Conflict(
			"cannot move booking from "+string(b.Status)+" to "+string(next),
			domain.ErrInvalidTransition,
		)
	}
	b.Status = next
	if err := s.repo.UpdateBooking(ctx, b); err != nil {
		return nil, err
	}
	if s.publisher != nil {
		s.publisher.Publish(b.ID, payment.Event{
			Type:          "booking_" + string(next),
			BookingID:     b.ID,
			BookingStatus: string(next),
		})
	}
	return b, nil
}

// Stats summarises bookings by status and payment volume by status.
type Stats struct {
	Bookings      map[domain.BookingStatus]int             `json:"bookings"`
	TotalBookings int                                      `json:"total_bookings"`
	Payments      map[domain.PaymentStatus]decimal.Decimal `json:"payments"`
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	counts, err := s.repo.CountBookingsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := s.repo.PaymentTotals(ctx)
	if err != nil {
		return nil, err
	}
	st := &Stats{Bookings: counts, Payments: totals}
	for _, n := range counts {
		st.TotalBookings += n
	}
	return st, nil
}

func (s *Service) ListBookings(ctx context.Context, f domain.BookingFilter) ([]*domain.Booking, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperrors.Validation("status", domain.ErrInvalidStatus)
	}
	return s.repo.ListBookings(ctx, f)
}

// SetRole changes a user's role, looked up by email.
func (s *Service) SetRole(ctx context.Context, email, role string) (*domain.User, error) {
	switch role {
	case domain.RoleGuest, domain.RoleHost, domain.RoleAdmin:
	default:
		return nil, apperrors.Validation("role", errInvalidRole)
	}
	if err := s.repo.SetUserRole(ctx, email, role); err != nil {
		return nil, err
	}
	return s.repo.GetUserByEmail(ctx, email)
}
