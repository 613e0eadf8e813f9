package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sudo-init-do/staybook/internal/domain"
)

const reviewColumns = `id, listing_id, guest_id, rating, comment, created_at, updated_at`

func scanReview(row pgx.Row) (*domain.Review, error) {
	var r domain.Review
	if err := row.Scan(&r.ID, &r.ListingID, &r.GuestID, &r.Rating, &r.Comment, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) CreateReview(ctx context.Context, r *domain.Review) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if !validID(r.ListingID) {
		return domain.ErrListingNotFound
	}
	if r.ID == "" {
		r.ID = newID()
	}
	err := s.db.QueryRow(ctx, `
		INSERT INTO reviews (id, listing_id, guest_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		r.ID, r.ListingID, r.GuestID, r.Rating, r.Comment,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	switch pgCode(err) {
	case pgUniqueViolation:
		return domain.ErrDuplicateReview
	case pgForeignKeyViolation:
		return domain.ErrListingNotFound
	}
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (s *Store) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	if !validID(id) {
		return nil, domain.ErrReviewNotFound
	}
	r, err := scanReview(s.db.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrReviewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select review: %w", err)
	}
	return r, nil
}

func (s *Store) UpdateReview(ctx context.Context, r *domain.Review) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if !validID(r.ID) {
		return domain.ErrReviewNotFound
	}
	updated, err := scanReview(s.db.QueryRow(ctx, `
		UPDATE reviews SET rating = $2, comment = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+reviewColumns,
		r.ID, r.Rating, r.Comment,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrReviewNotFound
	}
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	*r = *updated
	return nil
}

func (s *Store) DeleteReview(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "reviews", id, domain.ErrReviewNotFound)
}

func (s *Store) ListReviews(ctx context.Context, listingID string) ([]*domain.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews`
	var args []any
	if listingID != "" {
		if !validID(listingID) {
			return nil, nil
		}
		query += ` WHERE listing_id = $1`
		args = append(args, listingID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var out []*domain.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) RatingsByListing(ctx context.Context, listingIDs []string) (map[string][]int, error) {
	ids := make([]string, 0, len(listingIDs))
	for _, id := range listingIDs {
		if validID(id) {
			ids = append(ids, id)
		}
	}
	out := make(map[string][]int)
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.db.Query(ctx, `SELECT listing_id, rating FROM reviews WHERE listing_id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, fmt.Errorf("select ratings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id     string
			rating int
		)
		if err := rows.Scan(&id, &rating); err != nil {
			return nil, err
		}
		out[id] = append(out[id], rating)
	}
	return out, rows.Err()
}
