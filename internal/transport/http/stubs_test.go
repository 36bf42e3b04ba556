package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pawstay/pawstay/services/api/internal/app"
	"github.com/pawstay/pawstay/services/api/internal/auth"
	"github.com/pawstay/pawstay/services/api/internal/domain"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

// asUser puts an identity on the request the way RequireAuth does.
func asUser(r *http.Request, userID string, role domain.UserRole) *http.Request {
	return r.WithContext(auth.WithIdentity(r.Context(), auth.Identity{UserID: userID, Role: role}))
}

type stubBookingService struct {
	createFn func(ctx context.Context, in app.CreateBookingInput) (app.CreateBookingResult, error)
	getFn    func(ctx context.Context, bookingID, viewerID string) (domain.BookingView, error)
	listFn   func(ctx context.Context, in app.ListBookingsInput) ([]domain.Booking, error)
	quoteFn  func(ctx context.Context, in app.QuoteInput) (app.Quote, error)
}

func (s *stubBookingService) CreateBooking(ctx context.Context, in app.CreateBookingInput) (app.CreateBookingResult, error) {
	return s.createFn(ctx, in)
}

func (s *stubBookingService) GetBooking(ctx context.Context, bookingID, viewerID string) (domain.BookingView, error) {
	return s.getFn(ctx, bookingID, viewerID)
}

func (s *stubBookingService) ListBookings(ctx context.Context, in app.ListBookingsInput) ([]domain.Booking, error) {
	return s.listFn(ctx, in)
}

func (s *stubBookingService) Quote(ctx context.Context, in app.QuoteInput) (app.Quote, error) {
	return s.quoteFn(ctx, in)
}

type stubLifecycleService struct {
	calls     []string
	lastInput app.TransitionInput
	payment   app.RecordPaymentInput
	err       error
	booking   domain.Booking
}

func (s *stubLifecycleService) transition(action string, in app.TransitionInput) (domain.Booking, error) {
	s.calls = append(s.calls, action)
	s.lastInput = in
	return s.booking, s.err
}

func (s *stubLifecycleService) Accept(_ context.Context, in app.TransitionInput) (domain.Booking, error) {
	return s.transition("accept", in)
}

func (s *stubLifecycleService) Decline(_ context.Context, in app.TransitionInput) (domain.Booking, error) {
	return s.transition("decline", in)
}

func (s *stubLifecycleService) Cancel(_ context.Context, in app.TransitionInput) (domain.Booking, error) {
	return s.transition("cancel", in)
}

func (s *stubLifecycleService) RecordPayment(_ context.Context, in app.RecordPaymentInput) (domain.Booking, error) {
	s.calls = append(s.calls, "payment")
	s.payment = in
	return s.booking, s.err
}

type stubCatalogService struct {
	users     []app.CreateUserInput
	listings  []app.CreateListingInput
	pets      []app.CreatePetInput
	statusFor map[string]domain.ListingStatus
	filter    domain.ListingFilter
	results   []domain.Listing
	ownerPets []domain.Pet
	err       error
}

func (s *stubCatalogService) CreateUser(_ context.Context, in app.CreateUserInput) (domain.User, error) {
	s.users = append(s.users, in)
	return domain.User{ID: "u-1", Email: in.Email, Name: in.Name, Role: in.Role}, s.err
}

func (s *stubCatalogService) CreateListing(_ context.Context, in app.CreateListingInput) (domain.Listing, error) {
	s.listings = append(s.listings, in)
	return domain.Listing{ID: "l-1", HostID: in.HostID, Title: in.Title, City: in.City, NightlyPrice: in.NightlyPrice, Status: domain.ListingStatusActive}, s.err
}

func (s *stubCatalogService) SetListingStatus(_ context.Context, listingID string, status domain.ListingStatus) error {
	if s.statusFor == nil {
		s.statusFor = map[string]domain.ListingStatus{}
	}
	s.statusFor[listingID] = status
	return s.err
}

func (s *stubCatalogService) CreatePet(_ context.Context, in app.CreatePetInput) (domain.Pet, error) {
	s.pets = append(s.pets, in)
	return domain.Pet{ID: "p-1", OwnerID: in.OwnerID, Name: in.Name, Size: in.Size}, s.err
}

func (s *stubCatalogService) SearchListings(_ context.Context, filter domain.ListingFilter) ([]domain.Listing, error) {
	s.filter = filter
	return s.results, s.err
}

func (s *stubCatalogService) ListPets(_ context.Context, _ string) ([]domain.Pet, error) {
	return s.ownerPets, s.err
}

type stubAdminBookings struct {
	expired int
	payouts map[string]domain.PayoutStatus
	err     error
}

func (s *stubAdminBookings) ExpireStale(context.Context) (int, error) {
	return s.expired, s.err
}

func (s *stubAdminBookings) SetPayoutStatus(_ context.Context, bookingID string, status domain.PayoutStatus) error {
	if s.payouts == nil {
		s.payouts = map[string]domain.PayoutStatus{}
	}
	s.payouts[bookingID] = status
	return s.err
}
