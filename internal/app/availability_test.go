package app

import (
	"context"
	"errors"
	"testing"

	"github.com/pawstay/pawstay/services/api/internal/domain"
)

func TestAvailabilityValidator_CheckAvailable(t *testing.T) {
	t.Parallel()

	held := domain.Booking{
		ID:        "booking-a",
		ListingID: listingID,
		Stay:      mustRange("2025-01-10", "2025-01-15"),
		Status:    domain.BookingStatusConfirmed,
	}

	tests := []struct {
		name     string
		start    string
		end      string
		listing  string
		admitted bool
		err      error
	}{
		{name: "overlapping tail", start: "2025-01-14", end: "2025-01-18", listing: listingID},
		{name: "starts on checkout", start: "2025-01-15", end: "2025-01-18", listing: listingID, admitted: true},
		{name: "ends on checkin", start: "2025-01-08", end: "2025-01-10", listing: listingID, admitted: true},
		{name: "other listing", start: "2025-01-11", end: "2025-01-12", listing: "other", admitted: true},
		{name: "empty range", start: "2025-01-11", end: "2025-01-11", listing: listingID, err: domain.ErrInvalidRange},
		{name: "reversed range", start: "2025-01-12", end: "2025-01-11", listing: listingID, err: domain.ErrInvalidRange},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			repo := newFakeBookingRepo()
			repo.addBooking(held)
			v := NewAvailabilityValidator(repo)

			d, err := v.CheckAvailable(context.Background(), tt.listing, mustDate(tt.start), mustDate(tt.end))
			if err != tt.err {
				t.Fatalf("expected err %v, got %v", tt.err, err)
			}
			if err != nil {
				if repo.lookups != 0 {
					t.Fatalf("expected no lookup for invalid range")
				}
				return
			}
			if d.Admitted != tt.admitted {
				t.Fatalf("expected admitted=%v, got %+v", tt.admitted, d)
			}
			if !d.Admitted {
				if d.Reason != RejectReasonOverlap {
					t.Fatalf("expected reason overlap, got %q", d.Reason)
				}
				if len(d.Conflicts) != 1 || d.Conflicts[0].ID != held.ID {
					t.Fatalf("expected conflict with %s, got %+v", held.ID, d.Conflicts)
				}
			}
		})
	}
}

func TestAvailabilityValidator_IgnoresReleasedBookingsFromLookup(t *testing.T) {
	t.Parallel()

	lookup := staticLookup{bookings: []domain.Booking{
		{ID: "declined", Stay: mustRange("2025-01-10", "2025-01-15"), Status: domain.BookingStatusDeclined},
		{ID: "adjacent", Stay: mustRange("2025-01-05", "2025-01-10"), Status: domain.BookingStatusConfirmed},
	}}
	d, err := NewAvailabilityValidator(lookup).CheckAvailable(context.Background(), listingID, mustDate("2025-01-10"), mustDate("2025-01-12"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !d.Admitted {
		t.Fatalf("expected admitted, got %+v", d)
	}
}

func TestAvailabilityValidator_PropagatesLookupError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	_, err := NewAvailabilityValidator(staticLookup{err: boom}).CheckAvailable(context.Background(), listingID, mustDate("2025-01-10"), mustDate("2025-01-12"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected lookup error, got %v", err)
	}
}

type staticLookup struct {
	bookings []domain.Booking
	err      error
}

func (s staticLookup) FindOverlappingBookings(context.Context, string, domain.DateRange) ([]domain.Booking, error) {
	return s.bookings, s.err
}
