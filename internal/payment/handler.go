package payment

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/staybook/internal/apperrors"
	"github.com/sudo-init-do/staybook/internal/domain"
	"github.com/sudo-init-do/staybook/internal/httpx"
)

type BookingReader interface {
	GetBooking(ctx context.Context, id string) (*domain.Booking, error)
}

type Handler struct {
	svc      *Service
	bookings BookingReader
}

func NewHandler(svc *Service, bookings BookingReader) *Handler {
	return &Handler{svc: svc, bookings: bookings}
}

// Register mounts the public payment routes on g and the authenticated ones on auth.
func (h *Handler) Register(g, auth *echo.Group) {
	auth.POST("/payments/initiate", h.Initiate)
	auth.GET("/payments/:tx_ref", h.Get)
	g.GET("/payments/verify/:tx_ref", h.Verify)
	g.GET("/payments/callback", h.Callback)
	g.POST("/payments/callback", h.Callback)
}

type initiateBody struct {
	BookingID string `json:"booking_id" validate:"required"`
}

// Initiate - guest starts checkout for one of their bookings
func (h *Handler) Initiate(c echo.Context) error {
	var req initiateBody
	if err := httpx.Bind(c, &req); err != nil {
		return apperrors.Respond(c, err)
	}
	ctx := c.Request().Context()

	b, err := h.bookings.GetBooking(ctx, req.BookingID)
	if err != nil {
		return apperrors.Respond(c, httpx.DomainError(err))
	}
	if b.GuestID != httpx.UserID(c) && !httpx.IsAdmin(c) {
		return apperrors.Respond(c, apperrors.Forbidden("booking belongs to another guest"))
	}

	res, err := h.svc.Initiate(ctx, req.BookingID)
	if err != nil {
		return apperrors.Respond(c, err)
	}
	if !res.Accepted {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":            "payment initiation rejected by gateway",
			"gateway_response": res.Gateway.Raw,
		})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"payment":          res.Payment,
		"checkout_url":     res.Gateway.CheckoutURL,
		"gateway_response": res.Gateway.Raw,
	})
}

// Verify - polled by the client after returning from checkout
func (h *Handler) Verify(c echo.Context) error {
	return h.verify(c, c.Param("tx_ref"))
}

// Callback - invoked by the gateway. The reported status is ignored; the
// transaction is always re-verified against the gateway.
func (h *Handler) Callback(c echo.Context) error {
	txRef := c.QueryParam("trx_ref")
	if txRef == "" {
		txRef = c.QueryParam("tx_ref")
	}
	if txRef == "" && c.Request().Method == http.MethodPost {
		var body struct {
			TxRef  string `json:"tx_ref"`
			TrxRef string `json:"trx_ref"`
		}
		if err := c.Bind(&body); err == nil {
			txRef = body.TxRef
			if txRef == "" {
				txRef = body.TrxRef
			}
		}
	}
	if txRef == "" {
		return apperrors.Respond(c, apperrors.Validation("tx_ref", domain.ErrMissingField))
	}
	return h.verify(c, txRef)
}

func (h *Handler) verify(c echo.Context, txRef string) error {
	res, err := h.svc.Verify(c.Request().Context(), txRef)
	if err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"payment":        res.Payment,
		"booking_status": res.BookingStatus,
		"gateway_status": res.GatewayStatus,
		"settled":        res.Payment.Status.Terminal(),
		"transitioned":   res.Transitioned,
	})
}

// Get - read-only payment lookup
func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	p, err := h.svc.Payment(ctx, c.Param("tx_ref"))
	if err != nil {
		return apperrors.Respond(c, err)
	}
	if !httpx.IsAdmin(c) {
		b, err := h.bookings.GetBooking(ctx, p.BookingID)
		if err != nil {
			return apperrors.Respond(c, httpx.DomainError(err))
		}
		if b.GuestID != httpx.UserID(c) {
			return apperrors.Respond(c, apperrors.Forbidden("payment belongs to another guest"))
		}
	}
	return c.JSON(http.StatusOK, p)
}
