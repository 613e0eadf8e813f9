package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/staybook/internal/apperrors"
	"github.com/sudo-init-do/staybook/internal/domain"
	"github.com/sudo-init-do/staybook/internal/httpx"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the admin routes; g must already be behind JWT and AdminGuard.
func (h *Handler) Register(g *echo.Group) {
	g.GET("/bookings", h.ListBookings)
	g.PATCH("/bookings/:id/status", h.UpdateBookingStatus)
	g.GET("/stats", h.Stats)
	g.PATCH("/users/role", h.SetUserRole)
}

// GET /admin/bookings
func (h *Handler) ListBookings(c echo.Context) error {
	f := domain.BookingFilter{
		Status:    domain.BookingStatus(c.QueryParam("status")),
		GuestID:   c.QueryParam("guest_id"),
		ListingID: c.QueryParam("listing_id"),
	}
	f.Limit, f.Offset = httpx.Page(c)

	bookings, err := h.svc.ListBookings(c.Request().Context(), f)
	if err != nil {
		return apperrors.Respond(c, httpx.DomainError(err))
	}
	if bookings == nil {
		bookings = []*domain.Booking{}
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookings})
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=cancelled completed"`
}

// PATCH /admin/bookings/:id/status
func (h *Handler) UpdateBookingStatus(c echo.Context) error {
	var req statusRequest
	if err := httpx.Bind(c, &req); err != nil {
		return apperrors.Respond(c, err)
	}
	b, err := h.svc.SetBookingStatus(c.Request().Context(), c.Param("id"), domain.BookingStatus(req.Status))
	if err != nil {
		return apperrors.Respond(c, httpx.DomainError(err))
	}
	return c.JSON(http.StatusOK, b)
}
