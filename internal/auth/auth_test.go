package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/staybook/internal/domain"
	"github.com/sudo-init-do/staybook/internal/httpx"
	"github.com/sudo-init-do/staybook/internal/store/memory"
)

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("s3cret", time.Hour)
	signed, err := tokens.Issue(&domain.User{ID: "u-1", Role: domain.RoleHost})
	require.NoError(t, err)

	claims, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, domain.RoleHost, claims.Role)

	_, err = NewTokens("other", time.Hour).Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokensExpire(t *testing.T) {
	tokens := NewTokens("s3cret", time.Minute)
	issued := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return issued }
	signed, err := tokens.Issue(&domain.User{ID: "u-1", Role: domain.RoleGuest})
	require.NoError(t, err)

	tokens.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = tokens.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

type authServer struct {
	e      *echo.Echo
	users  *memory.Store
	tokens *Tokens
}

func newAuthServer(bootstrapSecret string) *authServer {
	users := memory.New()
	tokens := NewTokens("s3cret", time.Hour)
	e := echo.New()
	e.Validator = httpx.NewValidator()
	g := e.Group("/auth")
	authed := e.Group("/auth", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := tokens.Parse(strings.TrimPrefix(c.Request().Header.Get("Authorization"), "Bearer "))
			if err != nil {
				return c.NoContent(http.StatusUnauthorized)
			}
			c.Set("user_id", claims.UserID)
			c.Set("role", claims.Role)
			return next(c)
		}
	})
	NewHandler(users, tokens, bootstrapSecret).Register(g, authed)
	return &authServer{e: e, users: users, tokens: tokens}
}

func (s *authServer) do(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func TestSignupLoginMe(t *testing.T) {
	s := newAuthServer("")

	rec := s.do(http.MethodPost, "/auth/signup",
		`{"first_name":"Sara","last_name":"Tadesse","email":"Sara@Example.com","password":"hunter22","role":"host"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "hunter22")
	assert.NotContains(t, rec.Body.String(), "password")

	rec = s.do(http.MethodPost, "/auth/signup",
		`{"first_name":"Sara","email":"sara@example.com","password":"hunter22"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/auth/login", `{"email":"sara@example.com","password":"wrong-one"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/auth/login", `{"email":"sara@example.com","password":"hunter22"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)

	claims, err := s.tokens.Parse(login.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleHost, claims.Role)

	rec = s.do(http.MethodGet, "/auth/me", "", login.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	var me domain.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "sara@example.com", me.Email)
	assert.Equal(t, "Sara", me.FirstName)
}

func TestSignupValidation(t *testing.T) {
	s := newAuthServer("")

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"short password", `{"first_name":"A","email":"a@example.com","password":"123"}`, "password"},
		{"bad email", `{"first_name":"A","email":"nope","password":"123456"}`, "email"},
		{"admin self-signup", `{"first_name":"A","email":"a@example.com","password":"123456","role":"admin"}`, "role"},
		{"missing name", `{"email":"a@example.com","password":"123456"}`, "first_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/auth/signup", tt.body, "")
			require.Equal(t, http.StatusBadRequest, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.field, body["field"])
		})
	}
}

func TestBootstrapAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled without secret", func(t *testing.T) {
		s := newAuthServer("")
		rec := s.do(http.MethodPost, "/auth/bootstrap-admin", `{"email":"a@example.com","secret":"x"}`, "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("promotes with the right secret", func(t *testing.T) {
		s := newAuthServer("open-sesame")
		require.NoError(t, s.users.CreateUser(ctx, &domain.User{FirstName: "Ops", Email: "ops@example.com"}))

		rec := s.do(http.MethodPost, "/auth/bootstrap-admin", `{"email":"ops@example.com","secret":"wrong"}`, "")
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = s.do(http.MethodPost, "/auth/bootstrap-admin", `{"email":"ops@example.com","secret":"open-sesame"}`, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		u, err := s.users.GetUserByEmail(ctx, "ops@example.com")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, u.Role)
	})

	t.Run("unknown user", func(t *testing.T) {
		s := newAuthServer("open-sesame")
		rec := s.do(http.MethodPost, "/auth/bootstrap-admin", `{"email":"ghost@example.com","secret":"open-sesame"}`, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
