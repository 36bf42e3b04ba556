package domain

import "time"

type BookingStatus string

const (
	BookingStatusRequested BookingStatus = "requested"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusDeclined  BookingStatus = "declined"
	BookingStatusExpired   BookingStatus = "expired"
	BookingStatusCancelled BookingStatus = "cancelled"
)

var validTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusRequested: {BookingStatusConfirmed, BookingStatusDeclined, BookingStatusExpired},
	BookingStatusConfirmed: {BookingStatusCancelled},
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
// A confirmed booking is settled from the host's side but can still be cancelled.
func (s BookingStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// HoldsDates reports whether a booking in this status blocks its listing's dates.
func (s BookingStatus) HoldsDates() bool {
	return s == BookingStatusRequested || s == BookingStatusConfirmed
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusRequested, BookingStatusConfirmed, BookingStatusDeclined,
		BookingStatusExpired, BookingStatusCancelled:
		return true
	}
	return false
}

// PayoutStatus is recorded for the payout collaborator and never interpreted here.
type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusPaid       PayoutStatus = "paid"
	PayoutStatusFailed     PayoutStatus = "failed"
)

func (s PayoutStatus) Valid() bool {
	switch s {
	case PayoutStatusPending, PayoutStatusProcessing, PayoutStatusPaid, PayoutStatusFailed:
		return true
	}
	return false
}

// PriceBreakdown is in whole rupees. Total always equals the sum of the parts.
type PriceBreakdown struct {
	Subtotal    int64
	Taxes       int64
	PlatformFee int64
	Total       int64
}

// Booking is a reservation of a listing for one pet over a stay.
type Booking struct {
	ID             string
	ListingID      string
	GuestID        string
	PetID          string
	Stay           DateRange
	Nights         int
	Price          PriceBreakdown
	Status         BookingStatus
	Note           string
	PaymentRef     string
	PayoutStatus   PayoutStatus
	IdempotencyKey string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BookingView carries a booking together with the host of its listing,
// which is what permission checks need.
type BookingView struct {
	Booking
	HostID string
}
