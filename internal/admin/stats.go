package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/staybook/internal/apperrors"
	"github.com/sudo-init-do/staybook/internal/httpx"
)

// GET /admin/stats
func (h *Handler) Stats(c echo.Context) error {
	st, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return apperrors.Respond(c, httpx.DomainError(err))
	}
	return c.JSON(http.StatusOK, st)
}
