package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Listing is a bookable property owned by a host.
type Listing struct {
	ID                string          `json:"id"`
	HostID            string          `json:"host_id"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Location          string          `json:"location"`
	PricePerNight     decimal.Decimal `json:"price_per_night"`
	NumberOfBedrooms  int             `json:"number_of_bedrooms"`
	NumberOfBathrooms int             `json:"number_of_bathrooms"`
	MaxGuests         int             `json:"max_guests"`
	Available         bool            `json:"available"`
	Version           int64           `json:"version"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Validate checks the listing's own invariants.
func (l *Listing) Validate() error {
	switch {
	case strings.TrimSpace(l.Title) == "":
		return fieldErr("title", ErrMissingField)
	case strings.TrimSpace(l.Description) == "":
		return fieldErr("description", ErrMissingField)
	case strings.TrimSpace(l.Location) == "":
		return fieldErr("location", ErrMissingField)
	case !l.PricePerNight.IsPositive():
		return fieldErr("price_per_night", ErrInvalidPrice)
	case l.NumberOfBedrooms < 0:
		return fieldErr("number_of_bedrooms", ErrInvalidRooms)
	case l.NumberOfBathrooms < 0:
		return fieldErr("number_of_bathrooms", ErrInvalidRooms)
	case l.MaxGuests < 1:
		return fieldErr("max_guests", ErrInvalidMaxGuests)
	}
	return nil
}

// Bookable reports whether new bookings may be placed on the listing.
func (l *Listing) Bookable() error {
	if !l.Available {
		return fieldErr("listing_id", ErrListingUnavailable)
	}
	return nil
}

// ListingFilter narrows a listing query. Nil fields are ignored.
type ListingFilter struct {
	Location  string
	Available *bool
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	HostID    string
	Limit     int
	Offset    int
}
