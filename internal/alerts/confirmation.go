package alerts

import (
	"context"
	"fmt"

	"github.com/sudo-init-do/staybook/internal/domain"
)

const (
	confirmationSubject = "Payment Confirmation"
	confirmationBody    = "Dear %s,\n\n" +
		"Your payment for booking %s has been successfully processed. Your booking is now confirmed.\n\n" +
		"Thank you for choosing ALX Travel App!"
)

// Lookup is the read access confirmation emails need.
type Lookup interface {
	GetBooking(ctx context.Context, id string) (*domain.Booking, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// ConfirmationSender composes and sends the payment confirmation email.
type ConfirmationSender struct {
	lookup Lookup
	mailer Mailer
	from   string
}

func NewConfirmationSender(lookup Lookup, mailer Mailer, from string) *ConfirmationSender {
	return &ConfirmationSender{lookup: lookup, mailer: mailer, from: from}
}

// Compose builds the confirmation envelope for a booking and its guest.
func (s *ConfirmationSender) Compose(b *domain.Booking, guest *domain.User) EmailEnvelope {
	name := guest.FirstName
	if name == "" {
		name = guest.Email
	}
	return EmailEnvelope{
		From:    s.from,
		To:      guest.Email,
		Subject: confirmationSubject,
		Body:    fmt.Sprintf(confirmationBody, name, b.ID),
	}
}

// SendConfirmation looks up the booking's guest and emails them.
func (s *ConfirmationSender) SendConfirmation(ctx context.Context, bookingID string) error {
	b, err := s.lookup.GetBooking(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("load booking %s: %w", bookingID, err)
	}
	guest, err := s.lookup.GetUser(ctx, b.GuestID)
	if err != nil {
		return fmt.Errorf("load guest %s: %w", b.GuestID, err)
	}
	if guest.Email == "" {
		return fmt.Errorf("guest %s has no email address", guest.ID)
	}
	return s.mailer.Send(ctx, s.Compose(b, guest))
}
