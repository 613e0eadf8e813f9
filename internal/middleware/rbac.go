package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/staybook/internal/apperrors"
)

// RequireRoles ensures the requester's role is one of the allowed roles.
// Usage: route(..., RequireRoles("host", "admin"))
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			if role == "" {
				return apperrors.Respond(c, apperrors.Forbidden("role missing"))
			}
			for _, r := range roles {
				if role == r {
					return next(c)
				}
			}
			return apperrors.Respond(c, apperrors.Forbidden("access denied"))
		}
	}
}
