package payment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sudo-init-do/staybook/internal/apperrors"
	"github.com/sudo-init-do/staybook/internal/domain"
	"github.com/sudo-init-do/staybook/internal/logger"
)

var tracer = otel.Tracer("staybook/payment")

// Repository is the persistence the payment workflow needs.
type Repository interface {
	GetBooking(ctx context.Context, id string) (*domain.Booking, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	CreatePayment(ctx context.Context, p *domain.Payment) error
	GetPaymentByTransaction(ctx context.Context, txRef string) (*domain.Payment, error)
	ListPaymentsForBooking(ctx context.Context, bookingID string) ([]*domain.Payment, error)
	SettlePayment(ctx context.Context, txRef string, status domain.PaymentStatus) (*domain.Payment, error)
}

type Config struct {
	Currency    string
	CallbackURL string
	ReturnURL   string
	// Timeout bounds every gateway call.
	Timeout time.Duration
}

type Service struct {
	repo      Repository
	gateway   Gateway
	notifier  Notifier
	locker    Locker
	publisher Publisher
	cfg       Config
	newTxRef  func() string
}

type Option func(*Service)

func WithLocker(l Locker) Option { return func(s *Service) { s.locker = l } }

func WithPublisher(p Publisher) Option { return func(s *Service) { s.publisher = p } }

func NewService(repo Repository, gateway Gateway, notifier Notifier, cfg Config, opts ...Option) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	s := &Service{
		repo:     repo,
		gateway:  gateway,
		notifier: notifier,
		cfg:      cfg,
		newTxRef: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InitiateResult is returned for any initiation the gateway answered.
// Accepted is false when the gateway rejected it; Payment is then nil.
type InitiateResult struct {
	Accepted bool
	Payment  *domain.Payment
	Gateway  *InitiateResponse
}

// Initiate opens a gateway checkout for a pending booking and records a
// Pending payment once the gateway acknowledges it.
func (s *Service) Initiate(ctx context.Context, bookingID string) (*InitiateResult, error) {
	log := logger.FromContext(ctx).With().Str("booking_id", bookingID).Logger()

	b, err := s.repo.GetBooking(ctx, bookingID)
	if errors.Is(err, domain.ErrBookingNotFound) {
		return nil, apperrors.NotFound(domain.ErrBookingNotFound)
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load booking", err)
	}
	if b.Status != domain.BookingPending {
		return nil, apperrors.Conflict("booking is "+string(b.Status)+" and cannot be paid", domain.ErrInvalidTransition)
	}

	existing, err := s.repo.ListPaymentsForBooking(ctx, b.ID)
	if err != nil {
		return nil, apperrors.Internal("failed to load payments", err)
	}
	for _, p := range existing {
		if p.Status == domain.PaymentCompleted {
			return nil, apperrors.Conflict("booking has already been paid", domain.ErrPaymentSettled)
		}
	}

	if s.locker != nil {
		release, ok, err := s.locker.Acquire(ctx, "payment:initiate:"+b.ID)
		switch {
		case err != nil:
			// advisory only; redis outages fall back to unlocked initiation
			log.Warn().Err(err).Msg("initiate lock unavailable, continuing unlocked")
		case !ok:
			return nil, apperrors.Conflict("payment initiation already in progress for this booking", nil)
		default:
			defer release()
		}
	}

	guest, err := s.repo.GetUser(ctx, b.GuestID)
	if err != nil {
		return nil, apperrors.Internal("failed to load guest", err)
	}

	txRef := s.newTxRef()
	gctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	resp, err := s.gateway.Initiate(gctx, InitiateRequest{
		TxRef:    txRef,
		Amount:   b.TotalPrice,
		Currency: s.cfg.Currency,
		Payer: Payer{
			Email:     guest.Email,
			FirstName: guest.FirstName,
			LastName:  guest.LastName,
		},
		CallbackURL: s.cfg.CallbackURL,
		ReturnURL:   s.cfg.ReturnURL,
	})
	if err != nil {
		log.Error().Err(err).Str("tx_ref", txRef).Msg("gateway initiate failed")
		return nil, apperrors.Upstream("payment gateway unavailable, retry later", upstreamPayload(err), err)
	}
	if !resp.OK() {
		log.Info().Str("tx_ref", txRef).Str("gateway_status", resp.Status).Msg("gateway rejected initiation")
		return &InitiateResult{Accepted: false, Gateway: resp}, nil
	}

	p := &domain.Payment{
		BookingID:     b.ID,
		TransactionID: txRef,
		Amount:        b.TotalPrice,
		Currency:      s.cfg.Currency,
		Status:        domain.PaymentPending,
		CheckoutURL:   resp.CheckoutURL,
	}
	if err := s.repo.CreatePayment(ctx, p); err != nil {
		log.Error().Err(err).Str("tx_ref", txRef).Msg("gateway accepted but payment not recorded")
		return nil, apperrors.Internal("failed to record payment", err)
	}

	s.publish(b.ID, Event{
		Type:          "payment_initiated",
		BookingID:     b.ID,
		TransactionID: txRef,
		PaymentStatus: string(p.Status),
		BookingStatus: string(b.Status),
	})
	log.Info().Str("tx_ref", txRef).Msg("payment initiated")
	return &InitiateResult{Accepted: true, Payment: p, Gateway: resp}, nil
}

// VerifyResult reports the payment after verification.
// Transitioned is true only for the call that settled it.
type VerifyResult struct {
	Payment       *domain.Payment
	BookingStatus domain.BookingStatus
	GatewayStatus string
	Transitioned  bool
}

// Verify asks the gateway whether the transaction cleared and settles the
// payment accordingly. Once a payment is terminal the gateway is not called again.
func (s *Service) Verify(ctx context.Context, txRef string) (*VerifyResult, error) {
	ctx, span := tracer.Start(ctx, "payment.verify", trace.WithAttributes(attribute.String("tx_ref", txRef)))
	defer span.End()
	log := logger.FromContext(ctx).With().Str("tx_ref", txRef).Logger()

	p, err := s.repo.GetPaymentByTransaction(ctx, txRef)
	if errors.Is(err, domain.ErrPaymentNotFound) {
		return nil, apperrors.NotFound(domain.ErrPaymentNotFound)
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load payment", err)
	}
	if p.Status.Terminal() {
		return s.result(ctx, p, "", false), nil
	}

	gctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	resp, err := s.gateway.Verify(gctx, txRef)
	if err != nil {
		log.Error().Err(err).Msg("gateway verify failed")
		return nil, apperrors.Upstream("payment gateway unavailable, retry later", upstreamPayload(err), err)
	}

	var target domain.PaymentStatus
	switch resp.Status {
	case GatewaySuccess:
		target = domain.PaymentCompleted
	case GatewayFailed:
		target = domain.PaymentFailed
	default:
		// not cleared yet; leave the payment pending for a later verify
		return s.result(ctx, p, resp.Status, false), nil
	}

	settled, err := s.repo.SettlePayment(ctx, txRef, target)
	span.SetAttributes(
		attribute.String("payment.target", string(target)),
		attribute.Bool("payment.won", err == nil),
	)
	if errors.Is(err, domain.ErrPaymentSettled) {
		// a concurrent verify won the transition
		return s.result(ctx, settled, resp.Status, false), nil
	}
	if err != nil {
		return nil, apperrors.Internal("failed to settle payment", err)
	}

	res := s.result(ctx, settled, resp.Status, true)
	if target == domain.PaymentCompleted {
		if res.BookingStatus != domain.BookingConfirmed {
			// cancelled or repriced while the checkout was open
			log.Warn().Str("booking_id", settled.BookingID).Str("booking_status", string(res.BookingStatus)).
				Msg("payment completed but booking not confirmed, needs reconciliation")
		} else if err := s.notifier.EnqueueConfirmation(context.WithoutCancel(ctx), settled.BookingID); err != nil {
			// best-effort: the transition is already committed
			log.Error().Err(err).Str("booking_id", settled.BookingID).Msg("confirmation enqueue failed")
		}
	}
	s.publish(settled.BookingID, Event{
		Type:          "payment_" + strings.ToLower(string(settled.Status)),
		BookingID:     settled.BookingID,
		TransactionID: txRef,
		PaymentStatus: string(settled.Status),
		BookingStatus: string(res.BookingStatus),
	})
	log.Info().Str("status", string(settled.Status)).Msg("payment settled")
	return res, nil
}

// Payment returns the stored payment without contacting the gateway.
func (s *Service) Payment(ctx context.Context, txRef string) (*domain.Payment, error) {
	p, err := s.repo.GetPaymentByTransaction(ctx, txRef)
	if errors.Is(err, domain.ErrPaymentNotFound) {
		return nil, apperrors.NotFound(domain.ErrPaymentNotFound)
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load payment", err)
	}
	return p, nil
}

func (s *Service) result(ctx context.Context, p *domain.Payment, gatewayStatus string, transitioned bool) *VerifyResult {
	res := &VerifyResult{Payment: p, GatewayStatus: gatewayStatus, Transitioned: transitioned}
	if b, err := s.repo.GetBooking(ctx, p.BookingID); err == nil {
		res.BookingStatus = b.Status
	}
	return res
}

func (s *Service) publish(bookingID string, evt Event) {
	if s.publisher != nil {
		s.publisher.Publish(bookingID, evt)
	}
}
