package app

import (
	"context"
	"time"

	"github.com/pawstay/pawstay/services/api/internal/domain"
)

// RejectReasonOverlap is reported when another active booking holds any of the dates.
const RejectReasonOverlap = "overlap"

// BookingLookup returns bookings in requested or confirmed status on a listing
// whose stay overlaps the given range. Inside a repository transaction it
// must read through that transaction.
type BookingLookup interface {
	FindOverlappingBookings(ctx context.Context, listingID string, stay domain.DateRange) ([]domain.Booking, error)
}

// Decision is the outcome of an availability check.
type Decision struct {
	Admitted  bool
	Reason    string
	Conflicts []domain.Booking
}

// AvailabilityValidator decides admission of a stay on a listing. It only
// fails fast; the storage exclusion constraint remains the final guard.
type AvailabilityValidator struct {
	lookup BookingLookup
}

func NewAvailabilityValidator(lookup BookingLookup) *AvailabilityValidator {
	return &AvailabilityValidator{lookup: lookup}
}

// CheckAvailable fails with ErrInvalidRange when end is not after start.
func (v *AvailabilityValidator) CheckAvailable(ctx context.Context, listingID string, start, end time.Time) (Decision, error) {
	stay, err := domain.NewDateRange(start, end)
	if err != nil {
		return Decision{}, err
	}
	return v.check(ctx, listingID, stay)
}

func (v *AvailabilityValidator) check(ctx context.Context, listingID string, stay domain.DateRange) (Decision, error) {
	existing, err := v.lookup.FindOverlappingBookings(ctx, listingID, stay)
	if err != nil {
		return Decision{}, err
	}

	var conflicts []domain.Booking
	for _, b := range existing {
		// Re-check in process so a lookup that over-fetches cannot reject a free range.
		if b.Status.HoldsDates() && b.Stay.Overlaps(stay) {
			conflicts = append(conflicts, b)
		}
	}
	if len(conflicts) > 0 {
		return Decision{Admitted: false, Reason: RejectReasonOverlap, Conflicts: conflicts}, nil
	}
	return Decision{Admitted: true}, nil
}
