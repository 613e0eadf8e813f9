package payment

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/staybook/internal/apperrors"
	"github.com/sudo-init-do/staybook/internal/domain"
	"github.com/sudo-init-do/staybook/internal/store/memory"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*InitiateResponse), args.Error(1)
}

func (m *mockGateway) Verify(ctx context.Context, txRef string) (*VerifyResponse, error) {
	args := m.Called(ctx, txRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*VerifyResponse), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) EnqueueConfirmation(ctx context.Context, bookingID string) error {
	args := m.Called(ctx, bookingID)
	return args.Error(0)
}

type stubLocker struct {
	held bool
	err  error
}

func (l *stubLocker) Acquire(context.Context, string) (func(), bool, error) {
	return func() {}, !l.held, l.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(_ string, evt Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

const testTxRef = "tx-0001"

type fixture struct {
	store    *memory.Store
	gateway  *mockGateway
	notifier *mockNotifier
	svc      *Service
	booking  *domain.Booking
	guest    *domain.User
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New()

	guest := &domain.User{FirstName: "Hana", LastName: "Bekele", Email: "hana@example.com"}
	require.NoError(t, st.CreateUser(ctx, guest))

	l := &domain.Listing{
		HostID: "host-1", Title: "Studio", Description: "Compact studio", Location: "Addis Ababa",
		PricePerNight: decimal.NewFromInt(50), MaxGuests: 2, Available: true,
	}
	require.NoError(t, st.CreateListing(ctx, l))

	b := &domain.Booking{
		ListingID: l.ID, GuestID: guest.ID,
		CheckInDate:    domain.NewDate(2024, time.January, 1),
		CheckOutDate:   domain.NewDate(2024, time.January, 4),
		NumberOfGuests: 2,
		TotalPrice:     decimal.NewFromInt(150),
	}
	require.NoError(t, st.CreateBooking(ctx, b))

	f := &fixture{store: st, gateway: new(mockGateway), notifier: new(mockNotifier), booking: b, guest: guest}
	f.svc = NewService(st, f.gateway, f.notifier, Config{
		Currency:    "ETB",
		CallbackURL: "https://api.example.com/payments/callback",
		ReturnURL:   "https://app.example.com/done",
		Timeout:     time.Second,
	}, opts...)
	f.svc.newTxRef = func() string { return testTxRef }
	return f
}

func (f *fixture) initiate(t *testing.T) {
	t.Helper()
	f.gateway.On("Initiate", mock.Anything, mock.Anything).
		Return(&InitiateResponse{Status: GatewaySuccess, CheckoutURL: "https://checkout.example/abc", TxRef: testTxRef}, nil).Once()
	res, err := f.svc.Initiate(context.Background(), f.booking.ID)
	require.NoError(t, err)
	require.True(t, res.Accepted)
}

func TestInitiate(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown booking", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Initiate(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrBookingNotFound)
		assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.TypeOf(err))
		f.gateway.AssertNotCalled(t, "Initiate", mock.Anything, mock.Anything)
	})

	t.Run("gateway success persists pending payment", func(t *testing.T) {
		f := newFixture(t)
		raw := json.RawMessage(`{"status":"success","data":{"checkout_url":"https://checkout.example/abc"}}`)
		f.gateway.On("Initiate", mock.Anything, mock.MatchedBy(func(req InitiateRequest) bool {
			return req.TxRef == testTxRef &&
				req.Amount.Equal(decimal.NewFromInt(150)) &&
				req.Currency == "ETB" &&
				req.Payer.Email == "hana@example.com" &&
				req.Payer.FirstName == "Hana" &&
				req.CallbackURL == "https://api.example.com/payments/callback" &&
				req.ReturnURL == "https://app.example.com/done"
		})).Return(&InitiateResponse{Status: GatewaySuccess, CheckoutURL: "https://checkout.example/abc", TxRef: testTxRef, Raw: raw}, nil)

		res, err := f.svc.Initiate(ctx, f.booking.ID)
		require.NoError(t, err)
		assert.True(t, res.Accepted)
		assert.JSONEq(t, string(raw), string(res.Gateway.Raw))

		p, err := f.store.GetPaymentByTransaction(ctx, testTxRef)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentPending, p.Status)
		assert.Equal(t, f.booking.ID, p.BookingID)
		assert.True(t, p.Amount.Equal(decimal.NewFromInt(150)))
		assert.Equal(t, "https://checkout.example/abc", p.CheckoutURL)
		f.gateway.AssertExpectations(t)
	})

	t.Run("gateway rejection persists nothing", func(t *testing.T) {
		f := newFixture(t)
		raw := json.RawMessage(`{"status":"failed","message":"Invalid currency"}`)
		f.gateway.On("Initiate", mock.Anything, mock.Anything).
			Return(&InitiateResponse{Status: GatewayFailed, Message: "Invalid currency", Raw: raw}, nil)

		res, err := f.svc.Initiate(ctx, f.booking.ID)
		require.NoError(t, err)
		assert.False(t, res.Accepted)
		assert.Nil(t, res.Payment)
		assert.JSONEq(t, string(raw), string(res.Gateway.Raw))

		_, err = f.store.GetPaymentByTransaction(ctx, testTxRef)
		assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
	})

	t.Run("transport failure is retryable and persists nothing", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.On("Initiate", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

		_, err := f.svc.Initiate(ctx, f.booking.ID)
		require.Error(t, err)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.True(t, appErr.Retryable())

		payments, err := f.store.ListPaymentsForBooking(ctx, f.booking.ID)
		require.NoError(t, err)
		assert.Empty(t, payments)
	})

	t.Run("confirmed booking is rejected", func(t *testing.T) {
		f := newFixture(t)
		f.initiate(t)
		f.gateway.On("Verify", mock.Anything, testTxRef).Return(&VerifyResponse{Status: GatewaySuccess}, nil)
		f.notifier.On("EnqueueConfirmation", mock.Anything, f.booking.ID).Return(nil)
		_, err := f.svc.Verify(ctx, testTxRef)
		require.NoError(t, err)

		_, err = f.svc.Initiate(ctx, f.booking.ID)
		assert.Equal(t, apperrors.ErrorTypeConflict, apperrors.TypeOf(err))
		f.gateway.AssertNumberOfCalls(t, "Initiate", 1)
	})

	t.Run("held lock is a conflict", func(t *testing.T) {
		f := newFixture(t, WithLocker(&stubLocker{held: true}))

		_, err := f.svc.Initiate(ctx, f.booking.ID)
		assert.Equal(t, apperrors.ErrorTypeConflict, apperrors.TypeOf(err))
		f.gateway.AssertNotCalled(t, "Initiate", mock.Anything, mock.Anything)
	})

	t.Run("lock backend error does not block initiation", func(t *testing.T) {
		f := newFixture(t, WithLocker(&stubLocker{err: errors.New("redis down")}))
		f.initiate(t)
	})
}

func TestVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown transaction", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Verify(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
		assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.TypeOf(err))
		f.gateway.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
	})

	t.Run("success completes payment, confirms booking and enqueues once", func(t *testing.T) {
		pub := &recordingPublisher{}
		f := newFixture(t, WithPublisher(pub))
		f.initiate(t)
		f.gateway.On("Verify", mock.Anything, testTxRef).Return(&VerifyResponse{Status: GatewaySuccess}, nil)
		f.notifier.On("EnqueueConfirmation", mock.Anything, f.booking.ID).Return(nil)

		res, err := f.svc.Verify(ctx, testTxRef)
		require.NoError(t, err)
		assert.True(t, res.Transitioned)
		assert.Equal(t, domain.PaymentCompleted, res.Payment.Status)
		assert.Equal(t, domain.BookingConfirmed, res.BookingStatus)

		b, err := f.store.GetBooking(ctx, f.booking.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingConfirmed, b.Status)
		f.notifier.AssertNumberOfCalls(t, "EnqueueConfirmation", 1)

		require.Len(t, pub.events, 2)
		assert.Equal(t, "payment_initiated", pub.events[0].Type)
		assert.Equal(t, "payment_completed", pub.events[1].Type)
	})

	t.Run("repeat verify does not call gateway or enqueue again", func(t *testing.T) {
		f := newFixture(t)
		f.initiate(t)
		f.gateway.On("Verify", mock.Anything, testTxRef).Return(&VerifyResponse{Status: GatewaySuccess}, nil)
		f.notifier.On("EnqueueConfirmation", mock.Anything, f.booking.ID).Return(nil)

		_, err := f.svc.Verify(ctx, testTxRef)
		require.NoError(t, err)

		res, err := f.svc.Verify(ctx, testTxRef)
		require.NoError(t, err)
		assert.False(t, res.Transitioned)
		assert.Equal(t, domain.PaymentCompleted, res.Payment.Status)
		f.gateway.AssertNumberOfCalls(t, "Verify", 1)
		f.notifier.AssertNumberOfCalls(t, "EnqueueConfirmation", 1)
	})

	t.Run("failure marks payment failed and keeps booking pending", func(t *testing.T) {
		f := newFixture(t)
		f.initiate(t)
		f.gateway.On("Verify", mock.Anything, testTxRef).Return(&VerifyResponse{Status: GatewayFailed}, nil)

		res, err := f.svc.Verify(ctx, testTxRef)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentFailed, res.Payment.Status)
		assert.Equal(t, domain.BookingPending, res.BookingStatus)
		f.notifier.AssertNotCalled(t, "EnqueueConfirmation", mock.Anything, mock.Anything)

		// failed is terminal too
		res, err = f.svc.Verify(ctx, testTxRef)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentFailed, res.Payment.Status)
		f.gateway.AssertNumberOfCalls(t, "Verify", 1)
	})

	t.Run("transport failure leaves state untouched", func(t *testing.T) {
		f := newFixture(t)
		f.initiate(t)
		f.gateway.On("Verify", mock.Anything, testTxRef).Return(nil, errors.New("i/o timeout"))

		_, err := f.svc.Verify(ctx, testTxRef)
		assert.Equal(t, apperrors.ErrorTypeUpstream, apperrors.TypeOf(err))

		p, err := f.store.GetPaymentByTransaction(ctx, testTxRef)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentPending, p.Status)
	})

	t.Run("gateway pending leaves state untouched", func(t *testing.T) {
		f := newFixture(t)
		f.initiate(t)
		f.gateway.On("Verify", mock.Anything, testTxRef).Return(&VerifyResponse{Status: GatewayPending}, nil)

		res, err := f.svc.Verify(ctx, testTxRef)
		require.NoError(t, err)
		assert.False(t, res.Transitioned)
		assert.Equal(t, domain.PaymentPending, res.Payment.Status)
		assert.Equal(t, GatewayPending, res.GatewayStatus)
	})

	t.Run("enqueue failure does not roll back", func(t *testing.T) {
		f := newFixture(t)
		f.initiate(t)
		f.gateway.On("Verify", mock.Anything, testTxRef).Return(&VerifyResponse{Status: GatewaySuccess}, nil)
		f.notifier.On("EnqueueConfirmation", mock.Anything, f.booking.ID).Return(errors.New("redis unavailable"))

		res, err := f.svc.Verify(ctx, testTxRef)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentCompleted, res.Payment.Status)
		assert.Equal(t, domain.BookingConfirmed, res.BookingStatus)
	})

	t.Run("gateway error keeps its body as payload", func(t *testing.T) {
		f := newFixture(t)
		f.initiate(t)
		f.gateway.On("Verify", mock.Anything, testTxRef).
			Return(nil, &GatewayError{Op: "verify", StatusCode: 503, Body: []byte("maintenance")})

		_, err := f.svc.Verify(ctx, testTxRef)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrorTypeUpstream, appErr.Type)
		assert.Equal(t, `"maintenance"`, string(appErr.Payload))
	})

	t.Run("cancelled booking is not revived by a late payment", func(t *testing.T) {
		f := newFixture(t)
		f.initiate(t)
		b, err := f.store.GetBooking(ctx, f.booking.ID)
		require.NoError(t, err)
		b.Status = domain.BookingCancelled
		require.NoError(t, f.store.UpdateBooking(ctx, b))
		f.gateway.On("Verify", mock.Anything, testTxRef).Return(&VerifyResponse{Status: GatewaySuccess}, nil)

		res, err := f.svc.Verify(ctx, testTxRef)
		require.NoError(t, err)
		assert.True(t, res.Transitioned)
		assert.Equal(t, domain.PaymentCompleted, res.Payment.Status)
		assert.Equal(t, domain.BookingCancelled, res.BookingStatus)
		f.notifier.AssertNotCalled(t, "EnqueueConfirmation", mock.Anything, mock.Anything)
	})

	t.Run("gateway call is bounded by the timeout", func(t *testing.T) {
		f := newFixture(t)
		f.svc.cfg.Timeout = 20 * time.Millisecond
		f.initiate(t)
		f.gateway.On("Verify", mock.Anything, testTxRef).
			Run(func(args mock.Arguments) {
				<-args.Get(0).(context.Context).Done()
			}).
			Return(nil, context.DeadlineExceeded)

		start := time.Now()
		_, err := f.svc.Verify(ctx, testTxRef)
		assert.Equal(t, apperrors.ErrorTypeUpstream, apperrors.TypeOf(err))
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("concurrent verifies settle once and enqueue once", func(t *testing.T) {
		f := newFixture(t)
		f.initiate(t)
		f.gateway.On("Verify", mock.Anything, testTxRef).Return(&VerifyResponse{Status: GatewaySuccess}, nil)
		f.notifier.On("EnqueueConfirmation", mock.Anything, f.booking.ID).Return(nil)

		var (
			wg          sync.WaitGroup
			mu          sync.Mutex
			transitions int
		)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := f.svc.Verify(ctx, testTxRef)
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, domain.PaymentCompleted, res.Payment.Status)
				if res.Transitioned {
					mu.Lock()
					transitions++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, transitions)
		f.notifier.AssertNumberOfCalls(t, "EnqueueConfirmation", 1)
	})
}
