package alerts

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer submits notification tasks to asynq.
type Enqueuer struct {
	client   *asynq.Client
	maxRetry int
}

func NewEnqueuer(client *asynq.Client, maxRetry int) *Enqueuer {
	return &Enqueuer{client: client, maxRetry: maxRetry}
}

// NewPaymentConfirmationTask builds the task for a confirmed booking.
func NewPaymentConfirmationTask(bookingID string) (*asynq.Task, error) {
	b, err := json.Marshal(PaymentConfirmationPayload{BookingID: bookingID, EnqueuedAt: time.Now().UTC()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentConfirmation, b), nil
}

// EnqueueConfirmation schedules the payment confirmation email for bookingID.
func (e *Enqueuer) EnqueueConfirmation(ctx context.Context, bookingID string) error {
	task, err := NewPaymentConfirmationTask(bookingID)
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueEmails),
		asynq.MaxRetry(e.maxRetry),
		asynq.Timeout(time.Minute),
	)
	return err
}

func (e *Enqueuer) Close() error {
	return e.client.Close()
}
