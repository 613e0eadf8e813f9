package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Gateway statuses as reported by the payment provider.
const (
	GatewaySuccess = "success"
	GatewayFailed  = "failed"
	GatewayPending = "pending"
)

type Payer struct {
	Email     string
	FirstName string
	LastName  string
}

type InitiateRequest struct {
	TxRef       string
	Amount      decimal.Decimal
	Currency    string
	Payer       Payer
	CallbackURL string
	ReturnURL   string
}

// InitiateResponse is the provider's acknowledgement. Raw keeps the body as
// received so it can be handed back to the client unchanged.
type InitiateResponse struct {
	Status      string
	Message     string
	CheckoutURL string
	TxRef       string
	Raw         json.RawMessage
}

func (r *InitiateResponse) OK() bool { return r.Status == GatewaySuccess }

type VerifyResponse struct {
	Status string
	Raw    json.RawMessage
}

// GatewayError is a gateway call that produced no usable decision. Body is
// whatever the provider sent back, if anything.
type GatewayError struct {
	Op         string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *GatewayError) Error() string {
	msg := "gateway " + e.Op
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status=%d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Payload returns Body as JSON, quoted as a string when it is not JSON itself.
func (e *GatewayError) Payload() json.RawMessage {
	if len(e.Body) == 0 {
		return nil
	}
	if json.Valid(e.Body) {
		return json.RawMessage(e.Body)
	}
	quoted, _ := json.Marshal(string(e.Body))
	return quoted
}

// upstreamPayload extracts the provider body carried by err, if any.
func upstreamPayload(err error) json.RawMessage {
	var gerr *GatewayError
	if errors.As(err, &gerr) {
		return gerr.Payload()
	}
	return nil
}

// Gateway talks to the payment provider. A returned error means no decision
// was obtained and the call is safe to retry; it is a *GatewayError whenever
// the provider answered. An explicit provider rejection comes back as a
// response whose Status is not GatewaySuccess.
type Gateway interface {
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error)
	Verify(ctx context.Context, txRef string) (*VerifyResponse, error)
}

// Notifier hands the confirmation message to the background queue.
type Notifier interface {
	EnqueueConfirmation(ctx context.Context, bookingID string) error
}

// Locker serialises initiation attempts per booking across instances.
// Acquire returns ok=false when another holder owns key.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), ok bool, err error)
}

// Event is a status change pushed to booking subscribers.
type Event struct {
	Type          string `json:"type"`
	BookingID     string `json:"booking_id"`
	TransactionID string `json:"transaction_id,omitempty"`
	PaymentStatus string `json:"payment_status,omitempty"`
	BookingStatus string `json:"booking_status,omitempty"`
}

type Publisher interface {
	Publish(bookingID string, evt Event)
}
