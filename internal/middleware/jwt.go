package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/staybook/internal/apperrors"
	"github.com/sudo-init-do/staybook/internal/auth"
)

// JWTMiddleware verifies the bearer token and stores user_id and role on the context.
func JWTMiddleware(tokens *auth.Tokens) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return apperrors.Respond(c, apperrors.Unauthorized("missing Authorization header"))
			}
			const prefix = "Bearer "
			if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
				return apperrors.Respond(c, apperrors.Unauthorized("invalid Authorization format"))
			}

			claims, err := tokens.Parse(header[len(prefix):])
			if err != nil {
				return apperrors.Respond(c, apperrors.Unauthorized(err.Error()))
			}
			c.Set("user_id", claims.UserID)
			c.Set("role", claims.Role)
			return next(c)
		}
	}
}
