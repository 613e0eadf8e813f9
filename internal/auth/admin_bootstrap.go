package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/staybook/internal/apperrors"
	"github.com/sudo-init-do/staybook/internal/domain"
	"github.com/sudo-init-do/staybook/internal/httpx"
)

type BootstrapAdminRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Secret string `json:"secret" validate:"required"`
}

// BootstrapAdmin promotes an existing user to admin when the caller knows
// ADMIN_BOOTSTRAP_SECRET. Disabled when the secret is unset.
func (h *Handler) BootstrapAdmin(c echo.Context) error {
	if h.bootstrapSecret == "" {
		return apperrors.Respond(c, apperrors.Forbidden("bootstrap disabled"))
	}
	req := new(BootstrapAdminRequest)
	if err := httpx.Bind(c, req); err != nil {
		return apperrors.Respond(c, err)
	}
	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.bootstrapSecret)) != 1 {
		return apperrors.Respond(c, apperrors.Forbidden("invalid secret"))
	}

	if err := h.users.SetUserRole(c.Request().Context(), req.Email, domain.RoleAdmin); err != nil {
		return apperrors.Respond(c, httpx.DomainError(err))
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user promoted to admin", "email": req.Email})
}
