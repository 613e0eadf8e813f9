package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/staybook/internal/apperrors"
	"github.com/sudo-init-do/staybook/internal/httpx"
)

type roleRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=guest host admin"`
}

// PATCH /admin/users/role
func (h *Handler) SetUserRole(c echo.Context) error {
	var req roleRequest
	if err := httpx.Bind(c, &req); err != nil {
		return apperrors.Respond(c, err)
	}
	u, err := h.svc.SetRole(c.Request().Context(), req.Email, req.Role)
	if err != nil {
		return apperrors.Respond(c, httpx.DomainError(err))
	}
	return c.JSON(http.StatusOK, u)
}
