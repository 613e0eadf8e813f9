package realtime

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/staybook/internal/apperrors"
	"github.com/sudo-init-do/staybook/internal/domain"
	"github.com/sudo-init-do/staybook/internal/httpx"
	"github.com/sudo-init-do/staybook/internal/payment"
)

type BookingReader interface {
	GetBooking(ctx context.Context, id string) (*domain.Booking, error)
}

type Handler struct {
	hub      *Hub
	bookings BookingReader
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, bookings BookingReader) *Handler {
	return &Handler{
		hub:      hub,
		bookings: bookings,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) Register(auth *echo.Group) {
	auth.GET("/bookings/:id/stream", h.Stream)
}

// Stream - websocket of status changes for one booking, opened with a snapshot
func (h *Handler) Stream(c echo.Context) error {
	b, err := h.bookings.GetBooking(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apperrors.Respond(c, httpx.DomainError(err))
	}
	if b.GuestID != httpx.UserID(c) && !httpx.IsAdmin(c) {
		return apperrors.Respond(c, apperrors.Forbidden("booking belongs to another guest"))
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		return nil
	}

	cl := &client{conn: ws, send: make(chan []byte, sendBuffer)}
	snapshot, _ := json.Marshal(payment.Event{
		Type:          "snapshot",
		BookingID:     b.ID,
		BookingStatus: string(b.Status),
	})
	cl.send <- snapshot
	h.hub.register(b.ID, cl)

	go cl.writePump()
	cl.readPump()
	h.hub.unregister(b.ID, cl)
	return nil
}
