package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/staybook/internal/apperrors"
	"github.com/sudo-init-do/staybook/internal/domain"
	"github.com/sudo-init-do/staybook/internal/httpx"
	"github.com/sudo-init-do/staybook/internal/store"
)

type Handler struct {
	users           store.UserStore
	tokens          *Tokens
	bootstrapSecret string
}

func NewHandler(users store.UserStore, tokens *Tokens, bootstrapSecret string) *Handler {
	return &Handler{users: users, tokens: tokens, bootstrapSecret: bootstrapSecret}
}

// Register mounts signup/login on g and the profile route on auth.
func (h *Handler) Register(g, auth *echo.Group) {
	g.POST("/signup", h.Signup)
	g.POST("/login", h.Login)
	g.POST("/bootstrap-admin", h.BootstrapAdmin)
	auth.GET("/me", h.Me)
}

type SignupRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	Role      string `json:"role" validate:"omitempty,oneof=guest host"`
}

type TokenResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// ===== Signup =====
func (h *Handler) Signup(c echo.Context) error {
	req := new(SignupRequest)
	if err := httpx.Bind(c, req); err != nil {
		return apperrors.Respond(c, err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Respond(c, apperrors.Internal("password hashing failed", err))
	}

	u := &domain.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hashed),
		Role:         req.Role,
	}
	if u.Role == "" {
		u.Role = domain.RoleGuest
	}
	if err := h.users.CreateUser(c.Request().Context(), u); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return apperrors.Respond(c, apperrors.Conflict("email already exists", err))
		}
		return apperrors.Respond(c, httpx.DomainError(err))
	}

	signed, err := h.tokens.Issue(u)
	if err != nil {
		return apperrors.Respond(c, apperrors.Internal("token generation failed", err))
	}
	return c.JSON(http.StatusCreated, TokenResponse{Token: signed, User: u})
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ===== Login =====
func (h *Handler) Login(c echo.Context) error {
	req := new(LoginRequest)
	if err := httpx.Bind(c, req); err != nil {
		return apperrors.Respond(c, err)
	}

	u, err := h.users.GetUserByEmail(c.Request().Context(), req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return apperrors.Respond(c, apperrors.Unauthorized("invalid credentials"))
		}
		return apperrors.Respond(c, httpx.DomainError(err))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return apperrors.Respond(c, apperrors.Unauthorized("invalid credentials"))
	}

	signed, err := h.tokens.Issue(u)
	if err != nil {
		return apperrors.Respond(c, apperrors.Internal("token generation failed", err))
	}
	return c.JSON(http.StatusOK, TokenResponse{Token: signed, User: u})
}

// Me returns the currently authenticated user's profile
func (h *Handler) Me(c echo.Context) error {
	u, err := h.users.GetUser(c.Request().Context(), httpx.UserID(c))
	if err != nil {
		return apperrors.Respond(c, httpx.DomainError(err))
	}
	return c.JSON(http.StatusOK, u)
}
