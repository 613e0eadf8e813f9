package marketplace

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/staybook/internal/apperrors"
	"github.com/sudo-init-do/staybook/internal/domain"
	"github.com/sudo-init-do/staybook/internal/httpx"
)

// CreateListing - hosts publish a new property
func (h *Handler) CreateListing(c echo.Context) error {
	var req listingRequest
	if err := httpx.Bind(c, &req); err != nil {
		return apperrors.Respond(c, err)
	}
	l, err := h.svc.CreateListing(c.Request().Context(), actor(c), req.input())
	if err != nil {
		return apperrors.Respond(c, httpx.DomainError(err))
	}
	return c.JSON(http.StatusCreated, l)
}

// ListListings - public search with location, availability and price filters
func (h *Handler) ListListings(c echo.Context) error {
	f, err := listingFilter(c)
	if err != nil {
		return apperrors.Respond(c, err)
	}
	views, err := h.svc.ListListings(c.Request().Context(), f)
	if err != nil {
		return apperrors.Respond(c, httpx.DomainError(err))
	}
	return c.JSON(http.StatusOK, views)
}

func listingFilter(c echo.Context) (domain.ListingFilter, error) {
	f := domain.ListingFilter{
		Location: c.QueryParam("location"),
		HostID:   c.QueryParam("host_id"),
	}
	f.Limit, f.Offset = httpx.Page(c)

	if v := c.QueryParam("available"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, apperrors.Validation("available", errors.New("available must be true or false"))
		}
		f.Available = &b
	}
	for _, p := range []struct {
		name string
		dst  **decimal.Decimal
	}{{"min_price", &f.MinPrice}, {"max_price", &f.MaxPrice}} {
		v := c.QueryParam(p.name)
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return f, apperrors.Validation(p.name, errors.New(p.name+" must be a number"))
		}
		*p.dst = &d
	}
	return f, nil
}

// MyListings - the caller's own listings, including unavailable ones
func (h *Handler) MyListings(c echo.Context) error {
	f := domain.ListingFilter{HostID: httpx.UserID(c)}
	f.Limit, f.Offset = httpx.Page(c)
	views, err := h.svc.ListListings(c.Request().Context(), f)
	if err != nil {
		return apperrors.Respond(c, httpx.DomainError(err))
	}
	return c.JSON(http.StatusOK, views)
}

// GetListing - detail view with reviews and average rating
func (h *Handler) GetListing(c echo.Context) error {
	view, err := h.svc.GetListing(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apperrors.Respond(c, httpx.DomainError(err))
	}
	return c.JSON(http.StatusOK, view)
}

// ListingReviews - reviews for one listing
func (h *Handler) ListingReviews(c echo.Context) error {
	view, err := h.svc.GetListing(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apperrors.Respond(c, httpx.DomainError(err))
	}
	if view.Reviews == nil {
		view.Reviews = []*domain.Review{}
	}
	return c.JSON(http.StatusOK, view.Reviews)
}

func (h *Handler) UpdateListing(c echo.Context) error {
	var req listingRequest
	if err := httpx.Bind(c, &req); err != nil {
		return apperrors.Respond(c, err)
	}
	l, err := h.svc.UpdateListing(c.Request().Context(), actor(c), c.Param("id"), req.input())
	if err != nil {
		return apperrors.Respond(c, httpx.DomainError(err))
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) DeleteListing(c echo.Context) error {
	if err := h.svc.DeleteListing(c.Request().Context(), actor(c), c.Param("id")); err != nil {
		return apperrors.Respond(c, httpx.DomainError(err))
	}
	return c.NoContent(http.StatusNoContent)
}
