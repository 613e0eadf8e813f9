package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/staybook/internal/domain"
)

const paymentColumns = `id, booking_id, transaction_id, amount, currency, status, checkout_url,
	version, created_at, updated_at`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID, &p.BookingID, &p.TransactionID, &p.Amount, &p.Currency, &p.Status,
		&p.CheckoutURL, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreatePayment(ctx context.Context, p *domain.Payment) error {
	if !validID(p.BookingID) {
		return domain.ErrBookingNotFound
	}
	if p.ID == "" {
		p.ID = newID()
	}
	if p.Status == "" {
		p.Status = domain.PaymentPending
	}
	err := s.db.QueryRow(ctx, `
		INSERT INTO payments (id, booking_id, transaction_id, amount, currency, status, checkout_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING version, created_at, updated_at`,
		p.ID, p.BookingID, p.TransactionID, p.Amount, p.Currency, string(p.Status), p.CheckoutURL,
	).Scan(&p.Version, &p.CreatedAt, &p.UpdatedAt)
	switch pgCode(err) {
	case pgUniqueViolation:
		return domain.ErrDuplicateTxRef
	case pgForeignKeyViolation:
		return domain.ErrBookingNotFound
	}
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (s *Store) GetPaymentByTransaction(ctx context.Context, txRef string) (*domain.Payment, error) {
	p, err := scanPayment(s.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE transaction_id = $1`, txRef))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select payment: %w", err)
	}
	return p, nil
}

func (s *Store) ListPaymentsForBooking(ctx context.Context, bookingID string) ([]*domain.Payment, error) {
	if !validID(bookingID) {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE booking_id = $1
		ORDER BY created_at DESC`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []*domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SettlePayment locks the payment row, so concurrent settlements of the same
// transaction queue behind each other and all but the first see a terminal status.
func (s *Store) SettlePayment(ctx context.Context, txRef string, status domain.PaymentStatus) (*domain.Payment, error) {
	if !status.Terminal() {
		return nil, domain.ErrInvalidStatus
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := scanPayment(tx.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE transaction_id = $1 FOR UPDATE`, txRef))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock payment: %w", err)
	}
	if p.Status.Terminal() {
		return p, domain.ErrPaymentSettled
	}

	// A booking that was cancelled or repriced while the checkout was open
	// keeps its status; the payment still records what the gateway settled.
	if status == domain.PaymentCompleted {
		if _, err := tx.Exec(ctx, `
			UPDATE bookings SET status = $2, version = version + 1, updated_at = now()
			WHERE id = $1 AND status = $3 AND total_price = $4`,
			p.BookingID, string(domain.BookingConfirmed), string(domain.BookingPending), p.Amount); err != nil {
			return nil, fmt.Errorf("confirm booking: %w", err)
		}
	}

	settled, err := scanPayment(tx.QueryRow(ctx, `
		UPDATE payments SET status = $2, version = version + 1, updated_at = now()
		WHERE transaction_id = $1 AND status = $3
		RETURNING `+paymentColumns,
		txRef, string(status), string(domain.PaymentPending)))
	if err != nil {
		return nil, fmt.Errorf("settle payment: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit settlement: %w", err)
	}
	return settled, nil
}

func (s *Store) PaymentTotals(ctx context.Context) (map[domain.PaymentStatus]decimal.Decimal, error) {
	rows, err := s.db.Query(ctx, `SELECT status, COALESCE(SUM(amount), 0) FROM payments GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("sum payments: %w", err)
	}
	defer rows.Close()

	totals := make(map[domain.PaymentStatus]decimal.Decimal)
	for rows.Next() {
		var (
			status string
			sum    decimal.Decimal
		)
		if err := rows.Scan(&status, &sum); err != nil {
			return nil, err
		}
		totals[domain.PaymentStatus(status)] = sum
	}
	return totals, rows.Err()
}
