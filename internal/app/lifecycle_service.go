package app

import (
	"context"
	"strings"
	"time"

	"github.com/pawstay/pawstay/services/api/internal/clock"
	"github.com/pawstay/pawstay/services/api/internal/domain"
)

type LifecycleRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetBookingForUpdate(ctx context.Context, bookingID string) (domain.BookingView, error)
	// UpdateBookingStatus only applies when the booking is still in from;
	// otherwise it returns ErrInvalidTransition.
	UpdateBookingStatus(ctx context.Context, bookingID string, from, to domain.BookingStatus, at time.Time) error
	// ExpireRequested moves requested bookings created before cutoff to expired
	// and returns them.
	ExpireRequested(ctx context.Context, cutoff, at time.Time) ([]domain.Booking, error)
	SetPaymentRef(ctx context.Context, bookingID, ref string, at time.Time) error
	SetPayoutStatus(ctx context.Context, bookingID string, status domain.PayoutStatus, at time.Time) error
}

// LifecycleService moves bookings through their states after admission.
type LifecycleService struct {
	repo       LifecycleRepository
	clock      clock.Clock
	policy     CancellationPolicy
	requestTTL time.Duration
	notifier   Notifier
}

const defaultRequestTTL = 24 * time.Hour

type LifecycleServiceOption func(*LifecycleService)

// WithRequestTTL overrides how long a booking may stay requested before expiring.
func WithRequestTTL(d time.Duration) LifecycleServiceOption {
	return func(s *LifecycleService) {
		if d > 0 {
			s.requestTTL = d
		}
	}
}

// WithCancellationPolicy sets the predicate guarding cancellations.
func WithCancellationPolicy(p CancellationPolicy) LifecycleServiceOption {
	return func(s *LifecycleService) {
		if p != nil {
			s.policy = p
		}
	}
}

func WithLifecycleNotifier(n Notifier) LifecycleServiceOption {
	return func(s *LifecycleService) {
		if n != nil {
			s.notifier = n
		}
	}
}

func NewLifecycleService(repo LifecycleRepository, clk clock.Clock, opts ...LifecycleServiceOption) *LifecycleService {
	svc := &LifecycleService{
		repo:       repo,
		clock:      clk,
		policy:     AnytimeCancellation,
		requestTTL: defaultRequestTTL,
		notifier:   nopNotifier{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type TransitionInput struct {
	BookingID string
	ActorID   string
}

// Accept confirms a requested booking. Only the listing's host may accept.
func (s *LifecycleService) Accept(ctx context.Context, in TransitionInput) (domain.Booking, error) {
	return s.transition(ctx, in, domain.BookingStatusConfirmed, func(v domain.BookingView, _ time.Time) error {
		if in.ActorID != v.HostID {
			return domain.ErrForbidden
		}
		return nil
	})
}

// Decline rejects a requested booking. Only the listing's host may decline.
func (s *LifecycleService) Decline(ctx context.Context, in TransitionInput) (domain.Booking, error) {
	return s.transition(ctx, in, domain.BookingStatusDeclined, func(v domain.BookingView, _ time.Time) error {
		if in.ActorID != v.HostID {
			return domain.ErrForbidden
		}
		return nil
	})
}

// Cancel cancels a confirmed booking on behalf of its guest or host, subject
// to the cancellation policy.
func (s *LifecycleService) Cancel(ctx context.Context, in TransitionInput) (domain.Booking, error) {
	return s.transition(ctx, in, domain.BookingStatusCancelled, func(v domain.BookingView, now time.Time) error {
		if in.ActorID != v.GuestID && in.ActorID != v.HostID {
			return domain.ErrForbidden
		}
		if v.Status != domain.BookingStatusConfirmed {
			return domain.ErrInvalidTransition
		}
		if !s.policy.AllowCancel(v, now) {
			return domain.ErrCancellationWindowClosed
		}
		return nil
	})
}

func (s *LifecycleService) transition(
	ctx context.Context,
	in TransitionInput,
	to domain.BookingStatus,
	authorize func(v domain.BookingView, now time.Time) error,
) (domain.Booking, error) {
	now := s.clock.Now()
	var (
		result domain.Booking
		from   domain.BookingStatus
	)

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		view, err := s.repo.GetBookingForUpdate(txCtx, in.BookingID)
		if err != nil {
			return err
		}
		// Callers with no say over the booking learn nothing about its state,
		// so they get ErrForbidden even when the booking is terminal.
		if err := authorize(view, now); err != nil {
			return err
		}
		if !view.Status.CanTransitionTo(to) {
			return domain.ErrInvalidTransition
		}
		if err := s.repo.UpdateBookingStatus(txCtx, view.ID, view.Status, to, now); err != nil {
			return err
		}

		from = view.Status
		result = view.Booking
		result.Status = to
		result.UpdatedAt = now
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}

	s.notifier.BookingStatusChanged(ctx, result, from)
	return result, nil
}

// ExpireStale expires every booking left in requested longer than the request TTL.
func (s *LifecycleService) ExpireStale(ctx context.Context) (int, error) {
	now := s.clock.Now()
	expired, err := s.repo.ExpireRequested(ctx, now.Add(-s.requestTTL), now)
	if err != nil {
		return 0, err
	}
	for _, b := range expired {
		s.notifier.BookingStatusChanged(ctx, b, domain.BookingStatusRequested)
	}
	return len(expired), nil
}

type RecordPaymentInput struct {
	BookingID  string
	GuestID    string
	PaymentRef string
}

// RecordPayment attaches an opaque payment reference from the payment
// collaborator. The reference is stored as given.
func (s *LifecycleService) RecordPayment(ctx context.Context, in RecordPaymentInput) (domain.Booking, error) {
	ref := strings.TrimSpace(in.PaymentRef)
	if ref == "" {
		return domain.Booking{}, domain.ErrPaymentRefRequired
	}

	now := s.clock.Now()
	var result domain.Booking
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		view, err := s.repo.GetBookingForUpdate(txCtx, in.BookingID)
		if err != nil {
			return err
		}
		if view.GuestID != in.GuestID {
			return domain.ErrForbidden
		}
		if !view.Status.HoldsDates() {
			return domain.ErrInvalidTransition
		}
		if err := s.repo.SetPaymentRef(txCtx, view.ID, ref, now); err != nil {
			return err
		}
		result = view.Booking
		result.PaymentRef = ref
		result.UpdatedAt = now
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return result, nil
}

// SetPayoutStatus records the payout collaborator's status for a booking.
func (s *LifecycleService) SetPayoutStatus(ctx context.Context, bookingID string, status domain.PayoutStatus) error {
	if !status.Valid() {
		return domain.ErrInvalidPayoutStatus
	}
	return s.repo.SetPayoutStatus(ctx, bookingID, status, s.clock.Now())
}
