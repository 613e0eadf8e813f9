package marketplace

import (
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/staybook/internal/domain"
)

// Request bodies. Pointer fields distinguish "absent" from zero so the same
// shape serves PUT and PATCH.

type listingRequest struct {
	Title             *string          `json:"title"`
	Description       *string          `json:"description"`
	Location          *string          `json:"location"`
	PricePerNight     *decimal.Decimal `json:"price_per_night"`
	NumberOfBedrooms  *int             `json:"number_of_bedrooms" validate:"omitempty,gte=0"`
	NumberOfBathrooms *int             `json:"number_of_bathrooms" validate:"omitempty,gte=0"`
	MaxGuests         *int             `json:"max_guests" validate:"omitempty,gte=1"`
	Available         *bool            `json:"available"`
	Version           *int64           `json:"version"`
}

func (r listingRequest) input() ListingInput {
	return ListingInput{
		Title:             r.Title,
		Description:       r.Description,
		Location:          r.Location,
		PricePerNight:     r.PricePerNight,
		NumberOfBedrooms:  r.NumberOfBedrooms,
		NumberOfBathrooms: r.NumberOfBathrooms,
		MaxGuests:         r.MaxGuests,
		Available:         r.Available,
		Version:           r.Version,
	}
}

type createBookingRequest struct {
	ListingID      string           `json:"listing_id" validate:"required"`
	CheckInDate    *domain.Date     `json:"check_in_date" validate:"required"`
	CheckOutDate   *domain.Date     `json:"check_out_date" validate:"required"`
	NumberOfGuests *int             `json:"number_of_guests" validate:"required"`
	TotalPrice     *decimal.Decimal `json:"total_price"`
}

type updateBookingRequest struct {
	CheckInDate    *domain.Date     `json:"check_in_date"`
	CheckOutDate   *domain.Date     `json:"check_out_date"`
	NumberOfGuests *int             `json:"number_of_guests"`
	TotalPrice     *decimal.Decimal `json:"total_price"`
	Version        *int64           `json:"version"`
}

type reviewRequest struct {
	ListingID string  `json:"listing_id"`
	Rating    *int    `json:"rating"`
	Comment   *string `json:"comment" validate:"omitempty,max=1000"`
}
