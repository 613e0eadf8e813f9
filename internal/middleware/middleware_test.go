package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/staybook/internal/auth"
	"github.com/sudo-init-do/staybook/internal/domain"
)

func whoami(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"user_id": c.Get("user_id"), "role": c.Get("role")})
}

func serve(e *echo.Echo, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTMiddleware(t *testing.T) {
	tokens := auth.NewTokens("s3cret", time.Hour)
	e := echo.New()
	e.GET("/me", whoami, JWTMiddleware(tokens))

	signed, err := tokens.Issue(&domain.User{ID: "u-9", Role: domain.RoleGuest})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized},
		{"valid", "Bearer " + signed, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, "/me", tt.header)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.JSONEq(t, `{"user_id":"u-9","role":"guest"}`, rec.Body.String())
			}
		})
	}
}

func withRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if role != "" {
				c.Set("role", role)
			}
			return next(c)
		}
	}
}

func TestAdminGuard(t *testing.T) {
	for role, want := range map[string]int{
		domain.RoleAdmin: http.StatusOK,
		domain.RoleHost:  http.StatusForbidden,
		"":               http.StatusForbidden,
	} {
		e := echo.New()
		e.GET("/admin", whoami, withRole(role), AdminGuard)
		assert.Equal(t, want, serve(e, "/admin", "").Code, "role %q", role)
	}
}

func TestRequireRoles(t *testing.T) {
	for role, want := range map[string]int{
		domain.RoleHost:  http.StatusOK,
		domain.RoleAdmin: http.StatusOK,
		domain.RoleGuest: http.StatusForbidden,
		"":               http.StatusForbidden,
	} {
		e := echo.New()
		e.GET("/host", whoami, withRole(role), RequireRoles(domain.RoleHost, domain.RoleAdmin))
		assert.Equal(t, want, serve(e, "/host", "").Code, "role %q", role)
	}
}
