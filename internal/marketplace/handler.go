package marketplace

import (
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/staybook/internal/httpx"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts read-only routes on g and mutating routes on auth.
func (h *Handler) Register(g, auth *echo.Group) {
	g.GET("/listings", h.ListListings)
	g.GET("/listings/:id", h.GetListing)
	g.GET("/listings/:id/reviews", h.ListingReviews)
	auth.POST("/listings", h.CreateListing)
	auth.PUT("/listings/:id", h.UpdateListing)
	auth.PATCH("/listings/:id", h.UpdateListing)
	auth.DELETE("/listings/:id", h.DeleteListing)

	auth.POST("/bookings", h.CreateBooking)
	auth.GET("/bookings", h.ListBookings)
	auth.GET("/bookings/:id", h.GetBooking)
	auth.PUT("/bookings/:id", h.UpdateBooking)
	auth.PATCH("/bookings/:id", h.UpdateBooking)
	auth.DELETE("/bookings/:id", h.DeleteBooking)

	g.GET("/reviews", h.ListReviews)
	g.GET("/reviews/:id", h.GetReview)
	auth.POST("/reviews", h.CreateReview)
	auth.PUT("/reviews/:id", h.UpdateReview)
	auth.PATCH("/reviews/:id", h.UpdateReview)
	auth.DELETE("/reviews/:id", h.DeleteReview)
}

// RegisterHost mounts host dashboard routes; callers guard g by role.
func (h *Handler) RegisterHost(g *echo.Group) {
	g.GET("/listings", h.MyListings)
}

func actor(c echo.Context) Actor {
	return Actor{UserID: httpx.UserID(c), Role: httpx.Role(c)}
}
