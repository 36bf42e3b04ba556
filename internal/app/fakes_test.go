package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pawstay/pawstay/services/api/internal/domain"
)

// fakeBookingRepo is an in-memory BookingRepository and LifecycleRepository.
// WithTx holds a single mutex, which is enough to model per-listing locking
// in tests. Writes made inside a failing transaction are rolled back.
type fakeBookingRepo struct {
	mu       sync.Mutex
	inTx     bool
	pets     map[string]domain.Pet
	listings map[string]domain.Listing
	bookings []domain.Booking

	createErr error
	lookups   int
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{
		pets:     map[string]domain.Pet{},
		listings: map[string]domain.Listing{},
	}
}

func (f *fakeBookingRepo) addPet(p domain.Pet)         { f.pets[p.ID] = p }
func (f *fakeBookingRepo) addListing(l domain.Listing) { f.listings[l.ID] = l }
func (f *fakeBookingRepo) addBooking(b domain.Booking) { f.bookings = append(f.bookings, b) }

func (f *fakeBookingRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot := append([]domain.Booking(nil), f.bookings...)
	f.inTx = true
	err := fn(ctx)
	f.inTx = false
	if err != nil {
		f.bookings = snapshot
	}
	return err
}

func (f *fakeBookingRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bookings)
}

func (f *fakeBookingRepo) GetPet(_ context.Context, petID string) (domain.Pet, error) {
	p, ok := f.pets[petID]
	if !ok {
		return domain.Pet{}, domain.ErrPetNotFound
	}
	return p, nil
}

func (f *fakeBookingRepo) GetListing(_ context.Context, listingID string) (domain.Listing, error) {
	l, ok := f.listings[listingID]
	if !ok {
		return domain.Listing{}, domain.ErrListingNotFound
	}
	return l, nil
}

func (f *fakeBookingRepo) GetListingForUpdate(ctx context.Context, listingID string) (domain.Listing, error) {
	return f.GetListing(ctx, listingID)
}

func (f *fakeBookingRepo) FindOverlappingBookings(_ context.Context, listingID string, stay domain.DateRange) ([]domain.Booking, error) {
	f.lookups++
	var out []domain.Booking
	for _, b := range f.bookings {
		if b.ListingID == listingID && b.Status.HoldsDates() && b.Stay.Overlaps(stay) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBookingRepo) FindBookingByIdempotencyKey(_ context.Context, guestID, key string) (*domain.Booking, error) {
	for i := range f.bookings {
		b := f.bookings[i]
		if b.GuestID == guestID && b.IdempotencyKey == key {
			return &b, nil
		}
	}
	return nil, nil
}

func (f *fakeBookingRepo) CreateBooking(_ context.Context, booking domain.Booking) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.bookings = append(f.bookings, booking)
	return nil
}

func (f *fakeBookingRepo) GetBooking(_ context.Context, bookingID string) (domain.BookingView, error) {
	for _, b := range f.bookings {
		if b.ID == bookingID {
			return domain.BookingView{Booking: b, HostID: f.listings[b.ListingID].HostID}, nil
		}
	}
	return domain.BookingView{}, domain.ErrBookingNotFound
}

func (f *fakeBookingRepo) GetBookingForUpdate(ctx context.Context, bookingID string) (domain.BookingView, error) {
	return f.GetBooking(ctx, bookingID)
}

func (f *fakeBookingRepo) ListBookingsByGuest(_ context.Context, guestID string) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range f.bookings {
		if b.GuestID == guestID {
			out = append(out, b)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (f *fakeBookingRepo) ListBookingsByHost(_ context.Context, hostID string) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range f.bookings {
		if f.listings[b.ListingID].HostID == hostID {
			out = append(out, b)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (f *fakeBookingRepo) UpdateBookingStatus(_ context.Context, bookingID string, from, to domain.BookingStatus, at time.Time) error {
	for i := range f.bookings {
		if f.bookings[i].ID != bookingID {
			continue
		}
		if f.bookings[i].Status != from {
			return domain.ErrInvalidTransition
		}
		f.bookings[i].Status = to
		f.bookings[i].UpdatedAt = at
		return nil
	}
	return domain.ErrBookingNotFound
}

func (f *fakeBookingRepo) ExpireRequested(_ context.Context, cutoff, at time.Time) ([]domain.Booking, error) {
	var out []domain.Booking
	for i := range f.bookings {
		b := &f.bookings[i]
		if b.Status == domain.BookingStatusRequested && b.CreatedAt.Before(cutoff) {
			b.Status = domain.BookingStatusExpired
			b.UpdatedAt = at
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBookingRepo) SetPaymentRef(_ context.Context, bookingID, ref string, at time.Time) error {
	for i := range f.bookings {
		if f.bookings[i].ID == bookingID {
			f.bookings[i].PaymentRef = ref
			f.bookings[i].UpdatedAt = at
			return nil
		}
	}
	return domain.ErrBookingNotFound
}

func (f *fakeBookingRepo) SetPayoutStatus(_ context.Context, bookingID string, status domain.PayoutStatus, at time.Time) error {
	for i := range f.bookings {
		if f.bookings[i].ID == bookingID {
			f.bookings[i].PayoutStatus = status
			f.bookings[i].UpdatedAt = at
			return nil
		}
	}
	return domain.ErrBookingNotFound
}

func (f *fakeBookingRepo) statusOf(bookingID string) domain.BookingStatus {
	for _, b := range f.bookings {
		if b.ID == bookingID {
			return b.Status
		}
	}
	return ""
}

func sortNewestFirst(bs []domain.Booking) {
	sort.SliceStable(bs, func(i, j int) bool { return bs[i].CreatedAt.After(bs[j].CreatedAt) })
}

type recordingNotifier struct {
	mu        sync.Mutex
	requested []domain.Booking
	changed   []domain.BookingStatus
}

func (n *recordingNotifier) BookingRequested(_ context.Context, b domain.Booking, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requested = append(n.requested, b)
}

func (n *recordingNotifier) BookingStatusChanged(_ context.Context, b domain.Booking, _ domain.BookingStatus) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, b.Status)
}

type fixedPrice struct {
	price domain.PriceBreakdown
}

func (p fixedPrice) ComputePrice(int64, int) (domain.PriceBreakdown, error) {
	return p.price, nil
}

func mustDate(s string) time.Time {
	t, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func mustRange(start, end string) domain.DateRange {
	r, err := domain.ParseDateRange(start, end)
	if err != nil {
		panic(err)
	}
	return r
}
