package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/sudo-init-do/staybook/internal/domain"
	"github.com/sudo-init-do/staybook/internal/logger"
)

// Sender is the out-of-band notification logic run by the worker.
type Sender interface {
	SendConfirmation(ctx context.Context, bookingID string) error
}

// Worker runs notification tasks pulled from asynq.
type Worker struct {
	sender Sender
}

func NewWorker(sender Sender) *Worker {
	return &Worker{sender: sender}
}

// Mux routes task types to their handlers.
func (w *Worker) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskPaymentConfirmation, w.HandlePaymentConfirmation)
	return mux
}

// NewServer returns an asynq server consuming the notification queues.
func NewServer(opt asynq.RedisConnOpt, concurrency int) *asynq.Server {
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueEmails: 10,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			l := logger.Component("notify")
			l.Error().Err(err).Str("task", task.Type()).Msg("task failed")
		}),
	})
}

// HandlePaymentConfirmation sends the confirmation for one booking. Missing
// bookings are not retried; mail transport failures are.
func (w *Worker) HandlePaymentConfirmation(ctx context.Context, t *asynq.Task) error {
	l := logger.Component("notify")

	var p PaymentConfirmationPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.BookingID == "" {
		return fmt.Errorf("payload without booking_id: %w", asynq.SkipRetry)
	}

	err := w.sender.SendConfirmation(ctx, p.BookingID)
	switch {
	case errors.Is(err, domain.ErrBookingNotFound), errors.Is(err, domain.ErrUserNotFound):
		l.Warn().Err(err).Str("booking_id", p.BookingID).Msg("confirmation dropped")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	case err != nil:
		l.Error().Err(err).Str("booking_id", p.BookingID).Msg("confirmation send failed")
		return err
	}
	l.Info().Str("booking_id", p.BookingID).Msg("payment confirmation sent")
	return nil
}
