package alerts

import "time"

// Task type constants
const (
	TaskPaymentConfirmation = "email:payment_confirmation"
)

// Queue names and their asynq priorities.
const (
	QueueEmails = "emails"
)

// EmailEnvelope is a fully composed plain-text message.
type EmailEnvelope struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// PaymentConfirmationPayload carries only the booking id; the worker
// re-reads the booking so the email reflects committed state.
type PaymentConfirmationPayload struct {
	BookingID  string    `json:"booking_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
