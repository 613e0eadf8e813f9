package marketplace

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/staybook/internal/apperrors"
	"github.com/sudo-init-do/staybook/internal/domain"
	"github.com/sudo-init-do/staybook/internal/httpx"
)

// CreateReview - one review per guest and listing
func (h *Handler) CreateReview(c echo.Context) error {
	var req reviewRequest
	if err := httpx.Bind(c, &req); err != nil {
		return apperrors.Respond(c, err)
	}
	if req.ListingID == "" {
		return apperrors.Respond(c, apperrors.Validation("listing_id", domain.ErrMissingField))
	}
	r, err := h.svc.CreateReview(c.Request().Context(), actor(c), ReviewInput{
		ListingID: req.ListingID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		return apperrors.Respond(c, httpx.DomainError(err))
	}
	return c.JSON(http.StatusCreated, r)
}

// ListReviews - optionally narrowed with ?listing_id=
func (h *Handler) ListReviews(c echo.Context) error {
	reviews, err := h.svc.ListReviews(c.Request().Context(), c.QueryParam("listing_id"))
	if err != nil {
		return apperrors.Respond(c, httpx.DomainError(err))
	}
	if reviews == nil {
		reviews = []*domain.Review{}
	}
	return c.JSON(http.StatusOK, reviews)
}

func (h *Handler) GetReview(c echo.Context) error {
	r, err := h.svc.GetReview(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apperrors.Respond(c, httpx.DomainError(err))
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) UpdateReview(c echo.Context) error {
	var req reviewRequest
	if err := httpx.Bind(c, &req); err != nil {
		return apperrors.Respond(c, err)
	}
	r, err := h.svc.UpdateReview(c.Request().Context(), actor(c), c.Param("id"), ReviewInput{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		return apperrors.Respond(c, httpx.DomainError(err))
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) DeleteReview(c echo.Context) error {
	if err := h.svc.DeleteReview(c.Request().Context(), actor(c), c.Param("id")); err != nil {
		return apperrors.Respond(c, httpx.DomainError(err))
	}
	return c.NoContent(http.StatusNoContent)
}
