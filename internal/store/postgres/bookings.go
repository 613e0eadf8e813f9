package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5"

	"github.com/sudo-init-do/staybook/internal/domain"
)

const bookingColumns = `id, listing_id, guest_id, check_in_date, check_out_date, number_of_guests,
	total_price, status, version, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b                 domain.Booking
		checkIn, checkOut time.Time
	)
	err := row.Scan(
		&b.ID, &b.ListingID, &b.GuestID, &checkIn, &checkOut, &b.NumberOfGuests,
		&b.TotalPrice, &b.Status, &b.Version, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.CheckInDate = domain.DateOf(checkIn)
	b.CheckOutDate = domain.DateOf(checkOut)
	return &b, nil
}

// CreateBooking validates against the listing under FOR SHARE so a
// concurrent capacity change cannot slip between the check and the insert.
func (s *Store) CreateBooking(ctx context.Context, b *domain.Booking) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	l, err := getListing(ctx, tx, b.ListingID, "FOR SHARE")
	if err != nil {
		return err
	}
	if err := domain.ValidateBooking(b, l); err != nil {
		return err
	}
	if b.ID == "" {
		b.ID = newID()
	}
	if b.Status == "" {
		b.Status = domain.BookingPending
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO bookings (id, listing_id, guest_id, check_in_date, check_out_date,
			number_of_guests, total_price, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING version, created_at, updated_at`,
		b.ID, b.ListingID, b.GuestID, b.CheckInDate.Time, b.CheckOutDate.Time,
		b.NumberOfGuests, b.TotalPrice, string(b.Status),
	).Scan(&b.Version, &b.CreatedAt, &b.UpdatedAt)
	if pgCode(err) == pgForeignKeyViolation {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Store) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	if !validID(id) {
		return nil, domain.ErrBookingNotFound
	}
	b, err := scanBooking(s.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select booking: %w", err)
	}
	return b, nil
}

func (s *Store) UpdateBooking(ctx context.Context, b *domain.Booking) error {
	if !validID(b.ID) {
		return domain.ErrBookingNotFound
	}
	if !b.Status.Valid() {
		return domain.ErrInvalidStatus
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	l, err := getListing(ctx, tx, b.ListingID, "FOR SHARE")
	if err != nil {
		return err
	}
	if err := domain.ValidateBooking(b, l); err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		UPDATE bookings
		SET check_in_date = $3, check_out_date = $4, number_of_guests = $5, total_price = $6,
			status = $7, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at`,
		b.ID, b.Version, b.CheckInDate.Time, b.CheckOutDate.Time, b.NumberOfGuests,
		b.TotalPrice, string(b.Status),
	).Scan(&b.Version, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return s.staleOrMissing(ctx, "bookings", b.ID, domain.ErrBookingNotFound)
	}
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Store) DeleteBooking(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "bookings", id, domain.ErrBookingNotFound)
}

func (s *Store) ListBookings(ctx context.Context, f domain.BookingFilter) ([]*domain.Booking, error) {
	var where []exp.Expression
	if f.Status != "" {
		where = append(where, goqu.C("status").Eq(string(f.Status)))
	}
	for col, id := range map[string]string{"guest_id": f.GuestID, "listing_id": f.ListingID} {
		if id == "" {
			continue
		}
		if !validID(id) {
			return nil, nil
		}
		where = append(where, goqu.C(col).Eq(id))
	}

	ds := s.dialect.From("bookings").
		Select(goqu.L(bookingColumns)).
		Where(where...).
		Order(goqu.C("created_at").Desc())
	ds = page(ds, f.Limit, f.Offset)

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build booking query: %w", err)
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var out []*domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) CountBookingsByStatus(ctx context.Context) (map[domain.BookingStatus]int, error) {
	rows, err := s.db.Query(ctx, `SELECT status, COUNT(*) FROM bookings GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.BookingStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.BookingStatus(status)] = n
	}
	return counts, rows.Err()
}
