// Package user serves public user profiles.
package user

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/staybook/internal/apperrors"
	"github.com/sudo-init-do/staybook/internal/domain"
	"github.com/sudo-init-do/staybook/internal/httpx"
)

type Repository interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	ListListings(ctx context.Context, f domain.ListingFilter) ([]*domain.Listing, error)
}

// Profile is the public view of a user; email and credentials stay private.
type Profile struct {
	ID        string            `json:"id"`
	FirstName string            `json:"first_name"`
	LastName  string            `json:"last_name"`
	Role      string            `json:"role"`
	CreatedAt string            `json:"created_at"`
	Listings  []*domain.Listing `json:"listings,omitempty"`
}

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) Register(g *echo.Group) {
	g.GET("/users/:id/profile", h.GetPublicProfile)
}

// GET /users/:id/profile
func (h *Handler) GetPublicProfile(c echo.Context) error {
	ctx := c.Request().Context()
	u, err := h.repo.GetUser(ctx, c.Param("id"))
	if err != nil {
		return apperrors.Respond(c, httpx.DomainError(err))
	}

	p := Profile{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
	if u.Role == domain.RoleHost {
		available := true
		p.Listings, err = h.repo.ListListings(ctx, domain.ListingFilter{HostID: u.ID, Available: &available})
		if err != nil {
			return apperrors.Respond(c, apperrors.Internal("failed to load host listings", err))
		}
	}
	return c.JSON(http.StatusOK, p)
}
