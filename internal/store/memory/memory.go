// Package memory is a mutex-guarded, process-local Store used by tests and
// by STORE_DRIVER=memory for single-instance development runs.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/staybook/internal/domain"
	"github.com/sudo-init-do/staybook/internal/store"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu       sync.Mutex
	listings map[string]domain.Listing
	bookings map[string]domain.Booking
	reviews  map[string]domain.Review
	payments map[string]domain.Payment // keyed by transaction id
	users    map[string]domain.User

	now func() time.Time
}

func New() *Store {
	return &Store{
		listings: make(map[string]domain.Listing),
		bookings: make(map[string]domain.Booking),
		reviews:  make(map[string]domain.Review),
		payments: make(map[string]domain.Payment),
		users:    make(map[string]domain.User),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) stamp(id *string, created, updated *time.Time) {
	if *id == "" {
		*id = uuid.New().String()
	}
	now := s.now()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

// ===== Listings =====

func (s *Store) CreateListing(_ context.Context, l *domain.Listing) error {
	if err := l.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stamp(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	l.Version = 1
	s.listings[l.ID] = *l
	return nil
}

func (s *Store) GetListing(_ context.Context, id string) (*domain.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.listings[id]
	if !ok {
		return nil, domain.ErrListingNotFound
	}
	return &l, nil
}

func (s *Store) UpdateListing(_ context.Context, l *domain.Listing) error {
	if err := l.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.listings[l.ID]
	if !ok {
		return domain.ErrListingNotFound
	}
	if cur.Version != l.Version {
		return domain.ErrStaleVersion
	}
	l.Version++
	l.CreatedAt = cur.CreatedAt
	l.UpdatedAt = s.now()
	s.listings[l.ID] = *l
	return nil
}

func (s *Store) DeleteListing(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.listings[id]; !ok {
		return domain.ErrListingNotFound
	}
	delete(s.listings, id)
	for bid, b := range s.bookings {
		if b.ListingID == id {
			s.deleteBookingLocked(bid)
		}
	}
	for rid, r := range s.reviews {
		if r.ListingID == id {
			delete(s.reviews, rid)
		}
	}
	return nil
}

func (s *Store) ListListings(_ context.Context, f domain.ListingFilter) ([]*domain.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loc := strings.ToLower(f.Location)
	var out []*domain.Listing
	for _, l := range s.listings {
		if loc != "" && !strings.Contains(strings.ToLower(l.Location), loc) {
			continue
		}
		if f.Available != nil && l.Available != *f.Available {
			continue
		}
		if f.MinPrice != nil && l.PricePerNight.LessThan(*f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && l.PricePerNight.GreaterThan(*f.MaxPrice) {
			continue
		}
		if f.HostID != "" && l.HostID != f.HostID {
			continue
		}
		l := l
		out = append(out, &l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, f.Limit, f.Offset), nil
}

// ===== Bookings =====

func (s *Store) CreateBooking(_ context.Context, b *domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.listings[b.ListingID]
	if !ok {
		return domain.ErrListingNotFound
	}
	if err := domain.ValidateBooking(b, &l); err != nil {
		return err
	}
	if b.Status == "" {
		b.Status = domain.BookingPending
	}
	s.stamp(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	b.Version = 1
	s.bookings[b.ID] = *b
	return nil
}

func (s *Store) GetBooking(_ context.Context, id string) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return &b, nil
}

func (s *Store) UpdateBooking(_ context.Context, b *domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.bookings[b.ID]
	if !ok {
		return domain.ErrBookingNotFound
	}
	if cur.Version != b.Version {
		return domain.ErrStaleVersion
	}
	l, ok := s.listings[b.ListingID]
	if !ok {
		return domain.ErrListingNotFound
	}
	if err := domain.ValidateBooking(b, &l); err != nil {
		return err
	}
	if !b.Status.Valid() {
		return domain.ErrInvalidStatus
	}
	b.Version++
	b.CreatedAt = cur.CreatedAt
	b.UpdatedAt = s.now()
	s.bookings[b.ID] = *b
	return nil
}

func (s *Store) DeleteBooking(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[id]; !ok {
		return domain.ErrBookingNotFound
	}
	s.deleteBookingLocked(id)
	return nil
}

func (s *Store) deleteBookingLocked(id string) {
	delete(s.bookings, id)
	for tx, p := range s.payments {
		if p.BookingID == id {
			delete(s.payments, tx)
		}
	}
}

func (s *Store) ListBookings(_ context.Context, f domain.BookingFilter) ([]*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Booking
	for _, b := range s.bookings {
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.GuestID != "" && b.GuestID != f.GuestID {
			continue
		}
		if f.ListingID != "" && b.ListingID != f.ListingID {
			continue
		}
		b := b
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, f.Limit, f.Offset), nil
}

func (s *Store) CountBookingsByStatus(context.Context) (map[domain.BookingStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[domain.BookingStatus]int)
	for _, b := range s.bookings {
		counts[b.Status]++
	}
	return counts, nil
}

// ===== Reviews =====

func (s *Store) CreateReview(_ context.Context, r *domain.Review) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.listings[r.ListingID]; !ok {
		return domain.ErrListingNotFound
	}
	for _, existing := range s.reviews {
		if existing.ListingID == r.ListingID && existing.GuestID == r.GuestID {
			return domain.ErrDuplicateReview
		}
	}
	s.stamp(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	s.reviews[r.ID] = *r
	return nil
}

func (s *Store) GetReview(_ context.Context, id string) (*domain.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reviews[id]
	if !ok {
		return nil, domain.ErrReviewNotFound
	}
	return &r, nil
}

func (s *Store) UpdateReview(_ context.Context, r *domain.Review) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.reviews[r.ID]
	if !ok {
		return domain.ErrReviewNotFound
	}
	// listing and author are fixed once written
	cur.Rating = r.Rating
	cur.Comment = r.Comment
	cur.UpdatedAt = s.now()
	s.reviews[r.ID] = cur
	*r = cur
	return nil
}

func (s *Store) DeleteReview(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reviews[id]; !ok {
		return domain.ErrReviewNotFound
	}
	delete(s.reviews, id)
	return nil
}

func (s *Store) ListReviews(_ context.Context, listingID string) ([]*domain.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Review
	for _, r := range s.reviews {
		if listingID != "" && r.ListingID != listingID {
			continue
		}
		r := r
		out = append(out, &r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) RatingsByListing(_ context.Context, listingIDs []string) (map[string][]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[string]bool, len(listingIDs))
	for _, id := range listingIDs {
		want[id] = true
	}
	out := make(map[string][]int)
	for _, r := range s.reviews {
		if want[r.ListingID] {
			out[r.ListingID] = append(out[r.ListingID], r.Rating)
		}
	}
	return out, nil
}

// ===== Payments =====

func (s *Store) CreatePayment(_ context.Context, p *domain.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[p.BookingID]; !ok {
		return domain.ErrBookingNotFound
	}
	if _, dup := s.payments[p.TransactionID]; dup {
		return domain.ErrDuplicateTxRef
	}
	if p.Status == "" {
		p.Status = domain.PaymentPending
	}
	s.stamp(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	p.Version = 1
	s.payments[p.TransactionID] = *p
	return nil
}

func (s *Store) GetPaymentByTransaction(_ context.Context, txRef string) (*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[txRef]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	return &p, nil
}

func (s *Store) ListPaymentsForBooking(_ context.Context, bookingID string) ([]*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Payment
	for _, p := range s.payments {
		if p.BookingID == bookingID {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) SettlePayment(_ context.Context, txRef string, status domain.PaymentStatus) (*domain.Payment, error) {
	if !status.Terminal() {
		return nil, domain.ErrInvalidStatus
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[txRef]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	if p.Status.Terminal() {
		return &p, domain.ErrPaymentSettled
	}

	now := s.now()
	if status == domain.PaymentCompleted {
		b, ok := s.bookings[p.BookingID]
		if !ok {
			return nil, domain.ErrBookingNotFound
		}
		if confirmable(&b, &p) {
			b.Status = domain.BookingConfirmed
			b.Version++
			b.UpdatedAt = now
			s.bookings[b.ID] = b
		}
	}
	p.Status = status
	p.Version++
	p.UpdatedAt = now
	s.payments[txRef] = p
	return &p, nil
}

// confirmable reports whether a completed payment may confirm its booking:
// the booking is still pending and the amount paid matches its total.
func confirmable(b *domain.Booking, p *domain.Payment) bool {
	return b.Status == domain.BookingPending && b.TotalPrice.Equal(p.Amount)
}

func (s *Store) PaymentTotals(context.Context) (map[domain.PaymentStatus]decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals := make(map[domain.PaymentStatus]decimal.Decimal)
	for _, p := range s.payments {
		totals[p.Status] = totals[p.Status].Add(p.Amount)
	}
	return totals, nil
}

// ===== Users =====

func (s *Store) CreateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(u.Email)
	for _, existing := range s.users {
		if strings.ToLower(existing.Email) == email {
			return domain.ErrDuplicateEmail
		}
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.Role == "" {
		u.Role = domain.RoleGuest
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *Store) SetUserRole(_ context.Context, email, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			u.Role = role
			s.users[id] = u
			return nil
		}
	}
	return domain.ErrUserNotFound
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
