package app

import (
	"context"

	"github.com/pawstay/pawstay/services/api/internal/domain"
)

// Notifier is told about committed booking changes. Implementations must not
// block for long and their failures never undo the change.
type Notifier interface {
	BookingRequested(ctx context.Context, b domain.Booking, hostID string)
	BookingStatusChanged(ctx context.Context, b domain.Booking, from domain.BookingStatus)
}

type nopNotifier struct{}

func (nopNotifier) BookingRequested(context.Context, domain.Booking, string) {}
func (nopNotifier) BookingStatusChanged(context.Context, domain.Booking, domain.BookingStatus) {}
