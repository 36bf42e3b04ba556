package domain

import "time"

type ListingStatus string

const (
	ListingStatusActive   ListingStatus = "active"
	ListingStatusInactive ListingStatus = "inactive"
)

func (s ListingStatus) Valid() bool {
	return s == ListingStatusActive || s == ListingStatusInactive
}

// Listing is an advertised stay. Prices are whole rupees.
type Listing struct {
	ID           string
	HostID       string
	Title        string
	City         string
	NightlyPrice int64
	// MinNights and MaxNights are zero when the host set no limit.
	MinNights int
	MaxNights int
	Lat       float64
	Lng       float64
	// AcceptsSizes lists the pet sizes the host takes; empty means any size.
	AcceptsSizes []PetSize
	// Verified is set by operators once the host has been checked elsewhere.
	Verified  bool
	Status    ListingStatus
	CreatedAt time.Time
}

// CheckStay reports whether a stay of the given length respects the listing limits.
func (l Listing) CheckStay(nights int) error {
	if l.MinNights > 0 && nights < l.MinNights {
		return ErrStayTooShort
	}
	if l.MaxNights > 0 && nights > l.MaxNights {
		return ErrStayTooLong
	}
	return nil
}

// ListingFilter narrows catalog searches. Zero values mean "any".
type ListingFilter struct {
	City     string
	MinPrice int64
	MaxPrice int64
	// Sizes keeps listings accepting at least one of the given sizes.
	Sizes []PetSize
	// VerifiedOnly drops listings whose host is not verified.
	VerifiedOnly bool
	// FreeDuring excludes listings with an active booking overlapping the range.
	FreeDuring *DateRange
	Limit      int
}
