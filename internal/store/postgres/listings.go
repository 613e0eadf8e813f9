package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5"

	"github.com/sudo-init-do/staybook/internal/domain"
)

const listingColumns = `id, host_id, title, description, location, price_per_night,
	number_of_bedrooms, number_of_bathrooms, max_guests, available, version, created_at, updated_at`

func scanListing(row pgx.Row) (*domain.Listing, error) {
	var l domain.Listing
	err := row.Scan(
		&l.ID, &l.HostID, &l.Title, &l.Description, &l.Location, &l.PricePerNight,
		&l.NumberOfBedrooms, &l.NumberOfBathrooms, &l.MaxGuests, &l.Available,
		&l.Version, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) CreateListing(ctx context.Context, l *domain.Listing) error {
	if err := l.Validate(); err != nil {
		return err
	}
	if l.ID == "" {
		l.ID = newID()
	}
	err := s.db.QueryRow(ctx, `
		INSERT INTO listings (id, host_id, title, description, location, price_per_night,
			number_of_bedrooms, number_of_bathrooms, max_guests, available)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING version, created_at, updated_at`,
		l.ID, l.HostID, l.Title, l.Description, l.Location, l.PricePerNight,
		l.NumberOfBedrooms, l.NumberOfBathrooms, l.MaxGuests, l.Available,
	).Scan(&l.Version, &l.CreatedAt, &l.UpdatedAt)
	if pgCode(err) == pgForeignKeyViolation {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

func (s *Store) GetListing(ctx context.Context, id string) (*domain.Listing, error) {
	return getListing(ctx, s.db, id, "")
}

// getListing loads a listing, optionally with a row lock clause such as "FOR SHARE".
func getListing(ctx context.Context, q querier, id, lock string) (*domain.Listing, error) {
	if !validID(id) {
		return nil, domain.ErrListingNotFound
	}
	l, err := scanListing(q.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1 `+lock, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select listing: %w", err)
	}
	return l, nil
}

func (s *Store) UpdateListing(ctx context.Context, l *domain.Listing) error {
	if err := l.Validate(); err != nil {
		return err
	}
	if !validID(l.ID) {
		return domain.ErrListingNotFound
	}
	err := s.db.QueryRow(ctx, `
		UPDATE listings
		SET title = $3, description = $4, location = $5, price_per_night = $6,
			number_of_bedrooms = $7, number_of_bathrooms = $8, max_guests = $9, available = $10,
			version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at`,
		l.ID, l.Version, l.Title, l.Description, l.Location, l.PricePerNight,
		l.NumberOfBedrooms, l.NumberOfBathrooms, l.MaxGuests, l.Available,
	).Scan(&l.Version, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return s.staleOrMissing(ctx, "listings", l.ID, domain.ErrListingNotFound)
	}
	if err != nil {
		return fmt.Errorf("update listing: %w", err)
	}
	return nil
}

func (s *Store) DeleteListing(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "listings", id, domain.ErrListingNotFound)
}

func (s *Store) ListListings(ctx context.Context, f domain.ListingFilter) ([]*domain.Listing, error) {
	var where []exp.Expression
	if loc := strings.TrimSpace(f.Location); loc != "" {
		where = append(where, goqu.C("location").ILike("%"+loc+"%"))
	}
	if f.Available != nil {
		where = append(where, goqu.C("available").Eq(*f.Available))
	}
	if f.MinPrice != nil {
		where = append(where, goqu.C("price_per_night").Gte(f.MinPrice.String()))
	}
	if f.MaxPrice != nil {
		where = append(where, goqu.C("price_per_night").Lte(f.MaxPrice.String()))
	}
	if f.HostID != "" {
		if !validID(f.HostID) {
			return nil, nil
		}
		where = append(where, goqu.C("host_id").Eq(f.HostID))
	}

	ds := s.dialect.From("listings").
		Select(goqu.L(listingColumns)).
		Where(where...).
		Order(goqu.C("created_at").Desc())
	ds = page(ds, f.Limit, f.Offset)

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build listing query: %w", err)
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	defer rows.Close()

	var out []*domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func page(ds *goqu.SelectDataset, limit, offset int) *goqu.SelectDataset {
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	if offset > 0 {
		ds = ds.Offset(uint(offset))
	}
	return ds
}

// staleOrMissing distinguishes a lost optimistic race from a deleted row.
func (s *Store) staleOrMissing(ctx context.Context, table, id string, notFound error) error {
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check %s: %w", table, err)
	}
	if !exists {
		return notFound
	}
	return domain.ErrStaleVersion
}

func (s *Store) deleteByID(ctx context.Context, table, id string, notFound error) error {
	if !validID(id) {
		return notFound
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}
