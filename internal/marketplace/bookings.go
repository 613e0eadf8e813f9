package marketplace

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/staybook/internal/apperrors"
	"github.com/sudo-init-do/staybook/internal/domain"
	"github.com/sudo-init-do/staybook/internal/httpx"
)

// CreateBooking - guest reserves a listing for a date range
func (h *Handler) CreateBooking(c echo.Context) error {
	var req createBookingRequest
	if err := httpx.Bind(c, &req); err != nil {
		return apperrors.Respond(c, err)
	}
	view, err := h.svc.CreateBooking(c.Request().Context(), actor(c), BookingInput{
		ListingID:      req.ListingID,
		CheckInDate:    req.CheckInDate,
		CheckOutDate:   req.CheckOutDate,
		NumberOfGuests: req.NumberOfGuests,
		TotalPrice:     req.TotalPrice,
	})
	if err != nil {
		return apperrors.Respond(c, httpx.DomainError(err))
	}
	return c.JSON(http.StatusCreated, view)
}

// ListBookings - own bookings, or all of them for admins
func (h *Handler) ListBookings(c echo.Context) error {
	f := domain.BookingFilter{
		Status:    domain.BookingStatus(c.QueryParam("status")),
		GuestID:   c.QueryParam("guest_id"),
		ListingID: c.QueryParam("listing_id"),
	}
	f.Limit, f.Offset = httpx.Page(c)

	views, err := h.svc.ListBookings(c.Request().Context(), actor(c), f)
	if err != nil {
		return apperrors.Respond(c, httpx.DomainError(err))
	}
	return c.JSON(http.StatusOK, views)
}

func (h *Handler) GetBooking(c echo.Context) error {
	view, err := h.svc.GetBooking(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return apperrors.Respond(c, httpx.DomainError(err))
	}
	return c.JSON(http.StatusOK, view)
}

// UpdateBooking - change a pending booking's stay
func (h *Handler) UpdateBooking(c echo.Context) error {
	var req updateBookingRequest
	if err := httpx.Bind(c, &req); err != nil {
		return apperrors.Respond(c, err)
	}
	view, err := h.svc.UpdateBooking(c.Request().Context(), actor(c), c.Param("id"), BookingInput{
		CheckInDate:    req.CheckInDate,
		CheckOutDate:   req.CheckOutDate,
		NumberOfGuests: req.NumberOfGuests,
		TotalPrice:     req.TotalPrice,
		Version:        req.Version,
	})
	if err != nil {
		return apperrors.Respond(c, httpx.DomainError(err))
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) DeleteBooking(c echo.Context) error {
	if err := h.svc.DeleteBooking(c.Request().Context(), actor(c), c.Param("id")); err != nil {
		return apperrors.Respond(c, httpx.DomainError(err))
	}
	return c.NoContent(http.StatusNoContent)
}
