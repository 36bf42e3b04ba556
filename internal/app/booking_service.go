package app

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/pawstay/pawstay/services/api/internal/clock"
	"github.com/pawstay/pawstay/services/api/internal/domain"
)

const maxNoteLength = 500

type BookingRepository interface {
	BookingLookup
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetPet(ctx context.Context, petID string) (domain.Pet, error)
	GetListing(ctx context.Context, listingID string) (domain.Listing, error)
	// GetListingForUpdate locks the listing row until the transaction ends,
	// serialising admissions per listing.
	GetListingForUpdate(ctx context.Context, listingID string) (domain.Listing, error)
	FindBookingByIdempotencyKey(ctx context.Context, guestID, key string) (*domain.Booking, error)
	CreateBooking(ctx context.Context, booking domain.Booking) error
	GetBooking(ctx context.Context, bookingID string) (domain.BookingView, error)
	ListBookingsByGuest(ctx context.Context, guestID string) ([]domain.Booking, error)
	ListBookingsByHost(ctx context.Context, hostID string) ([]domain.Booking, error)
}

// PriceCalculator prices a stay from a nightly rate.
type PriceCalculator interface {
	ComputePrice(nightlyRate int64, nights int) (domain.PriceBreakdown, error)
}

// BookingService admits booking requests.
type BookingService struct {
	repo         BookingRepository
	availability *AvailabilityValidator
	pricing      PriceCalculator
	clock        clock.Clock
	notifier     Notifier
}

type BookingServiceOption func(*BookingService)

// WithBookingNotifier sets who hears about newly requested bookings.
func WithBookingNotifier(n Notifier) BookingServiceOption {
	return func(s *BookingService) {
		if n != nil {
			s.notifier = n
		}
	}
}

func NewBookingService(repo BookingRepository, pricing PriceCalculator, clk clock.Clock, opts ...BookingServiceOption) *BookingService {
	svc := &BookingService{
		repo:         repo,
		availability: NewAvailabilityValidator(repo),
		pricing:      pricing,
		clock:        clk,
		notifier:     nopNotifier{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type CreateBookingInput struct {
	GuestID   string
	ListingID string
	PetID     string
	Start     time.Time
	End       time.Time
	Note      string
	// IdempotencyKey is optional. A retry with the same key and the same
	// request returns the original booking.
	IdempotencyKey string
}

type CreateBookingResult struct {
	Booking domain.Booking
	Created bool
}

// CreateBooking validates, prices and stores a booking in requested status.
// Either the whole booking is stored or nothing is.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (CreateBookingResult, error) {
	stay, err := domain.NewDateRange(in.Start, in.End)
	if err != nil {
		return CreateBookingResult{}, err
	}
	if utf8.RuneCountInString(in.Note) > maxNoteLength {
		return CreateBookingResult{}, domain.ErrNoteTooLong
	}
	if !validID(in.GuestID) {
		return CreateBookingResult{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var (
		result CreateBookingResult
		hostID string
	)

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		pet, err := s.repo.GetPet(txCtx, in.PetID)
		if err != nil {
			if errors.Is(err, domain.ErrPetNotFound) {
				return domain.ErrPetNotOwned
			}
			return err
		}
		if pet.OwnerID != in.GuestID {
			return domain.ErrPetNotOwned
		}

		listing, err := s.repo.GetListingForUpdate(txCtx, in.ListingID)
		if err != nil {
			return err
		}
		hostID = listing.HostID

		if in.IdempotencyKey != "" {
			existing, err := s.repo.FindBookingByIdempotencyKey(txCtx, in.GuestID, in.IdempotencyKey)
			if err != nil {
				return err
			}
			if existing != nil {
				if !sameRequest(*existing, in, stay) {
					return domain.ErrIdempotencyConflict
				}
				result = CreateBookingResult{Booking: *existing, Created: false}
				return nil
			}
		}

		if listing.Status != domain.ListingStatusActive {
			return domain.ErrListingUnavailable
		}
		nights := stay.Nights()
		if err := listing.CheckStay(nights); err != nil {
			return err
		}

		decision, err := s.availability.check(txCtx, listing.ID, stay)
		if err != nil {
			return err
		}
		if !decision.Admitted {
			return domain.ErrOverlap
		}

		price, err := s.pricing.ComputePrice(listing.NightlyPrice, nights)
		if err != nil {
			return err
		}

		booking := domain.Booking{
			ID:             newID(),
			ListingID:      listing.ID,
			GuestID:        in.GuestID,
			PetID:          pet.ID,
			Stay:           stay,
			Nights:         nights,
			Price:          price,
			Status:         domain.BookingStatusRequested,
			Note:           in.Note,
			IdempotencyKey: in.IdempotencyKey,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.repo.CreateBooking(txCtx, booking); err != nil {
			return err
		}

		result = CreateBookingResult{Booking: booking, Created: true}
		return nil
	})
	if err != nil {
		return CreateBookingResult{}, err
	}

	if result.Created {
		s.notifier.BookingRequested(ctx, result.Booking, hostID)
	}
	return result, nil
}

func sameRequest(b domain.Booking, in CreateBookingInput, stay domain.DateRange) bool {
	return b.ListingID == in.ListingID &&
		b.PetID == in.PetID &&
		b.Stay.Start.Equal(stay.Start) &&
		b.Stay.End.Equal(stay.End)
}

type QuoteInput struct {
	ListingID string
	Start     time.Time
	End       time.Time
}

// Quote is an unpersisted availability and price preview.
type Quote struct {
	ListingID string
	Stay      domain.DateRange
	Nights    int
	Price     domain.PriceBreakdown
	Decision  Decision
}

// Quote checks availability and prices a stay without holding anything.
func (s *BookingService) Quote(ctx context.Context, in QuoteInput) (Quote, error) {
	stay, err := domain.NewDateRange(in.Start, in.End)
	if err != nil {
		return Quote{}, err
	}

	listing, err := s.repo.GetListing(ctx, in.ListingID)
	if err != nil {
		return Quote{}, err
	}
	if listing.Status != domain.ListingStatusActive {
		return Quote{}, domain.ErrListingUnavailable
	}
	nights := stay.Nights()
	if err := listing.CheckStay(nights); err != nil {
		return Quote{}, err
	}

	decision, err := s.availability.check(ctx, listing.ID, stay)
	if err != nil {
		return Quote{}, err
	}
	price, err := s.pricing.ComputePrice(listing.NightlyPrice, nights)
	if err != nil {
		return Quote{}, err
	}

	return Quote{
		ListingID: listing.ID,
		Stay:      stay,
		Nights:    nights,
		Price:     price,
		Decision:  decision,
	}, nil
}

// GetBooking returns a booking visible to its guest or its listing's host.
func (s *BookingService) GetBooking(ctx context.Context, bookingID, viewerID string) (domain.BookingView, error) {
	view, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return domain.BookingView{}, err
	}
	if viewerID != view.GuestID && viewerID != view.HostID {
		return domain.BookingView{}, domain.ErrForbidden
	}
	return view, nil
}

type ListBookingsInput struct {
	UserID string
	AsHost bool
}

// ListBookings returns the user's bookings as a guest, or the bookings on
// listings they host, newest first.
func (s *BookingService) ListBookings(ctx context.Context, in ListBookingsInput) ([]domain.Booking, error) {
	if !validID(in.UserID) {
		return nil, domain.ErrInvalidID
	}
	if in.AsHost {
		return s.repo.ListBookingsByHost(ctx, in.UserID)
	}
	return s.repo.ListBookingsByGuest(ctx, in.UserID)
}
