package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/pawstay/pawstay/services/api/internal/app"
	"github.com/pawstay/pawstay/services/api/internal/auth"
	"github.com/pawstay/pawstay/services/api/internal/clock"
	"github.com/pawstay/pawstay/services/api/internal/domain"
	"github.com/pawstay/pawstay/services/api/internal/pricing"
	"github.com/pawstay/pawstay/services/api/internal/ratelimit"
	"github.com/pawstay/pawstay/services/api/internal/storage/sqlite"
)

type apiClient struct {
	t       *testing.T
	handler http.Handler
}

func (c apiClient) do(method, path, token string, body any, header ...string) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func newSQLiteRouter(t *testing.T, bookingRate string) http.Handler {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	clk := clock.NewSystem()
	bookingRepo := sqlite.NewBookingRepository(db)
	catalog := app.NewCatalogService(sqlite.NewCatalogRepository(db), clk)
	bookings := app.NewBookingService(bookingRepo, pricing.NewCalculator(), clk)
	lifecycle := app.NewLifecycleService(bookingRepo, clk)

	rate, err := ratelimit.ParseRate(bookingRate)
	if err != nil {
		t.Fatalf("parse rate: %v", err)
	}
	logger, _ := test.NewNullLogger()
	store, closeStore, err := ratelimit.NewStore(ctx, "", "bookings", rate.Period, logger)
	if err != nil {
		t.Fatalf("rate limit store: %v", err)
	}
	t.Cleanup(func() { _ = closeStore() })

	return NewRouter(Services{
		Bookings:  bookings,
		Quotes:    bookings,
		Lifecycle: lifecycle,
		Admin:     lifecycle,
		Catalog:   catalog,
	}, RouterOptions{
		Verifier:    auth.NewVerifier(testSecret),
		HealthCheck: db.PingContext,
		BookingLimiter: func(next http.Handler) http.Handler {
			return ratelimit.Middleware(store, rate, next, ratelimit.Options{
				KeyGetter:    RateLimitKey,
				LimitReached: RateLimited,
			})
		},
	})
}

func TestRouter_BookingFlowOverSQLite(t *testing.T) {
	api := apiClient{t: t, handler: newSQLiteRouter(t, "100-1m")}
	adminToken := bearer(t, auth.Identity{UserID: uuid.NewString(), Role: domain.UserRoleAdmin})

	if rec := api.do(http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rec.Code)
	}
	if rec := api.do(http.MethodGet, "/listings", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	createUser := func(email, role string) userResponse {
		rec := api.do(http.MethodPost, "/admin/users", adminToken, map[string]string{"email": email, "name": email, "role": role})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create user %s: expected 201, got %d (%s)", email, rec.Code, rec.Body.String())
		}
		var u userResponse
		decodeInto(t, rec, &u)
		return u
	}
	host := createUser("host@example.com", "host")
	guest := createUser("guest@example.com", "owner")
	other := createUser("other@example.com", "owner")

	if rec := api.do(http.MethodPost, "/admin/users", bearer(t, auth.Identity{UserID: guest.ID}), map[string]string{"email": "x@example.com", "name": "x"}); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rec.Code)
	}

	rec := api.do(http.MethodPost, "/admin/listings", adminToken, map[string]any{
		"host_id": host.ID, "title": "Garden flat", "city": "Ahmedabad", "nightly_price": 1500, "min_nights": 2,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create listing: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var listing listingResponse
	decodeInto(t, rec, &listing)

	createPet := func(ownerID, name string) petResponse {
		rec := api.do(http.MethodPost, "/admin/pets", adminToken, map[string]string{"owner_id": ownerID, "name": name, "size": "medium"})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create pet: expected 201, got %d (%s)", rec.Code, rec.Body.String())
		}
		var p petResponse
		decodeInto(t, rec, &p)
		return p
	}
	pet := createPet(guest.ID, "Bruno")
	otherPet := createPet(other.ID, "Kiwi")

	guestToken := bearer(t, auth.Identity{UserID: guest.ID, Role: domain.UserRoleOwner})
	otherToken := bearer(t, auth.Identity{UserID: other.ID, Role: domain.UserRoleOwner})
	hostToken := bearer(t, auth.Identity{UserID: host.ID, Role: domain.UserRoleHost})

	var pets []petResponse
	decodeInto(t, api.do(http.MethodGet, "/pets", guestToken, nil), &pets)
	if len(pets) != 1 || pets[0].ID != pet.ID {
		t.Fatalf("unexpected pets: %+v", pets)
	}

	var quote quoteResponse
	rec = api.do(http.MethodGet, "/listings/"+listing.ID+"/quote?start_date=2031-03-10&end_date=2031-03-13", guestToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("quote: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	decodeInto(t, rec, &quote)
	if !quote.Available || quote.Price != (priceResponse{Subtotal: 4500, Taxes: 810, PlatformFee: 225, Total: 5535}) {
		t.Fatalf("unexpected quote: %+v", quote)
	}

	request := map[string]string{"listing_id": listing.ID, "pet_id": pet.ID, "start_date": "2031-03-10", "end_date": "2031-03-13"}
	rec = api.do(http.MethodPost, "/bookings", guestToken, request, idempotencyHeader, "k-1")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create booking: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var booking bookingResponse
	decodeInto(t, rec, &booking)
	if booking.Status != "requested" || booking.Price.Total != 5535 || booking.Nights != 3 {
		t.Fatalf("unexpected booking: %+v", booking)
	}

	rec = api.do(http.MethodPost, "/bookings", guestToken, request, idempotencyHeader, "k-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("replay: expected 200, got %d", rec.Code)
	}
	var replay bookingResponse
	decodeInto(t, rec, &replay)
	if replay.ID != booking.ID {
		t.Fatalf("expected replay to return %s, got %s", booking.ID, replay.ID)
	}

	cases := []struct {
		name     string
		token    string
		body     map[string]string
		wantCode string
	}{
		{name: "overlap", token: otherToken, body: map[string]string{"listing_id": listing.ID, "pet_id": otherPet.ID, "start_date": "2031-03-12", "end_date": "2031-03-15"}, wantCode: codeDatesUnavailable},
		{name: "someone else's pet", token: otherToken, body: map[string]string{"listing_id": listing.ID, "pet_id": pet.ID, "start_date": "2031-04-01", "end_date": "2031-04-03"}, wantCode: codePetNotOwned},
		{name: "below minimum stay", token: otherToken, body: map[string]string{"listing_id": listing.ID, "pet_id": otherPet.ID, "start_date": "2031-04-01", "end_date": "2031-04-02"}, wantCode: codeStayTooShort},
		{name: "unknown listing", token: otherToken, body: map[string]string{"listing_id": uuid.NewString(), "pet_id": otherPet.ID, "start_date": "2031-04-01", "end_date": "2031-04-03"}, wantCode: codeListingNotFound},
	}
	for _, tc := range cases {
		rec := api.do(http.MethodPost, "/bookings", tc.token, tc.body)
		if got := decodeError(t, rec); got.Code != tc.wantCode {
			t.Fatalf("%s: expected code %s, got %s (status %d)", tc.name, tc.wantCode, got.Code, rec.Code)
		}
	}

	rec = api.do(http.MethodPost, "/bookings", otherToken, map[string]string{"listing_id": listing.ID, "pet_id": otherPet.ID, "start_date": "2031-03-13", "end_date": "2031-03-15"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("back-to-back stay: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	var listings []listingResponse
	decodeInto(t, api.do(http.MethodGet, "/listings?start_date=2031-03-11&end_date=2031-03-12", guestToken, nil), &listings)
	if len(listings) != 0 {
		t.Fatalf("expected booked listing to be hidden, got %+v", listings)
	}

	if rec := api.do(http.MethodPost, "/bookings/"+booking.ID+"/accept", guestToken, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("guest accept: expected 403, got %d", rec.Code)
	}
	rec = api.do(http.MethodPost, "/bookings/"+booking.ID+"/accept", hostToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("accept: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var accepted bookingResponse
	decodeInto(t, rec, &accepted)
	if accepted.Status != "confirmed" {
		t.Fatalf("expected confirmed, got %s", accepted.Status)
	}

	if rec := api.do(http.MethodPost, "/bookings/"+booking.ID+"/payment", guestToken, map[string]string{"payment_ref": "pay_42"}); rec.Code != http.StatusOK {
		t.Fatalf("payment: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if rec := api.do(http.MethodPost, "/admin/bookings/"+booking.ID+"/payout", adminToken, map[string]string{"status": "processing"}); rec.Code != http.StatusNoContent {
		t.Fatalf("payout: expected 204, got %d (%s)", rec.Code, rec.Body.String())
	}

	var seen bookingResponse
	decodeInto(t, api.do(http.MethodGet, "/bookings/"+booking.ID, hostToken, nil), &seen)
	if seen.PaymentRef != "pay_42" || seen.PayoutStatus != "processing" || seen.HostID != host.ID {
		t.Fatalf("unexpected booking view: %+v", seen)
	}
	if rec := api.do(http.MethodGet, "/bookings/"+booking.ID, otherToken, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("stranger view: expected 403, got %d", rec.Code)
	}

	var hosted []bookingResponse
	decodeInto(t, api.do(http.MethodGet, "/bookings?as=host", hostToken, nil), &hosted)
	if len(hosted) != 2 {
		t.Fatalf("expected 2 hosted bookings, got %d", len(hosted))
	}

	rec = api.do(http.MethodPost, "/bookings/"+booking.ID+"/cancel", guestToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if rec := api.do(http.MethodPost, "/bookings/"+booking.ID+"/accept", hostToken, nil); rec.Code != http.StatusConflict {
		t.Fatalf("accept after cancel: expected 409, got %d", rec.Code)
	}

	rec = api.do(http.MethodPost, "/bookings", otherToken, map[string]string{"listing_id": listing.ID, "pet_id": otherPet.ID, "start_date": "2031-03-10", "end_date": "2031-03-12"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("rebook freed dates: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	var expired expireResponse
	decodeInto(t, api.do(http.MethodPost, "/admin/bookings/expire", adminToken, nil), &expired)
	if expired.Expired != 0 {
		t.Fatalf("expected nothing stale yet, got %d", expired.Expired)
	}
}

func TestRouter_BookingRateLimit(t *testing.T) {
	api := apiClient{t: t, handler: newSQLiteRouter(t, "2-1m")}
	token := bearer(t, auth.Identity{UserID: uuid.NewString(), Role: domain.UserRoleOwner})

	body := map[string]string{"listing_id": uuid.NewString(), "pet_id": uuid.NewString(), "start_date": "2031-01-01", "end_date": "2031-01-03"}
	for i := 0; i < 2; i++ {
		if rec := api.do(http.MethodPost, "/bookings", token, body); rec.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d limited too early", i+1)
		}
	}
	rec := api.do(http.MethodPost, "/bookings", token, body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := decodeError(t, rec); got.Code != codeRateLimited {
		t.Fatalf("expected code %s, got %s", codeRateLimited, got.Code)
	}

	if rec := api.do(http.MethodGet, "/bookings", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("reads are not limited, got %d", rec.Code)
	}

	other := bearer(t, auth.Identity{UserID: uuid.NewString(), Role: domain.UserRoleOwner})
	if rec := api.do(http.MethodPost, "/bookings", other, body); rec.Code == http.StatusTooManyRequests {
		t.Fatalf("limits must be per user")
	}
}


func TestRouter_SelfServiceListingAndPetThenBook(t *testing.T) {
	api := apiClient{t: t, handler: newSQLiteRouter(t, "100-1m")}
	adminToken := bearer(t, auth.Identity{UserID: uuid.NewString(), Role: domain.UserRoleAdmin})

	var host, guest userResponse
	decodeInto(t, api.do(http.MethodPost, "/admin/users", adminToken, map[string]string{"email": "host@example.com", "name": "Host", "role": "host"}), &host)
	decodeInto(t, api.do(http.MethodPost, "/admin/users", adminToken, map[string]string{"email": "guest@example.com", "name": "Guest"}), &guest)
	hostToken := bearer(t, auth.Identity{UserID: host.ID, Role: domain.UserRoleHost})
	guestToken := bearer(t, auth.Identity{UserID: guest.ID, Role: domain.UserRoleOwner})

	rec := api.do(http.MethodPost, "/listings", hostToken, map[string]any{
		"title": "Dog meadow", "city": "Ahmedabad", "nightly_price": 1500, "accepts_sizes": []string{"medium", "large"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create listing: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var listing listingResponse
	decodeInto(t, rec, &listing)
	if listing.HostID != host.ID || listing.Verified {
		t.Fatalf("unexpected listing: %+v", listing)
	}

	rec = api.do(http.MethodPost, "/pets", guestToken, map[string]string{"name": "Bruno", "type": "dog", "size": "medium"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create pet: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var pet petResponse
	decodeInto(t, rec, &pet)
	if pet.OwnerID != guest.ID {
		t.Fatalf("expected pet owned by %s, got %s", guest.ID, pet.OwnerID)
	}

	search := func(query string) []listingResponse {
		var out []listingResponse
		rec := api.do(http.MethodGet, "/listings?"+query, guestToken, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("search %q: expected 200, got %d (%s)", query, rec.Code, rec.Body.String())
		}
		decodeInto(t, rec, &out)
		return out
	}
	if got := search("size=medium"); len(got) != 1 || got[0].ID != listing.ID {
		t.Fatalf("expected listing for medium pets, got %+v", got)
	}
	if got := search("size=small"); len(got) != 0 {
		t.Fatalf("expected no listing for small pets, got %+v", got)
	}
	if got := search("verified=true"); len(got) != 0 {
		t.Fatalf("expected unverified listing hidden, got %+v", got)
	}
	if rec := api.do(http.MethodGet, "/listings?size=huge", guestToken, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown size: expected 400, got %d", rec.Code)
	}

	rec = api.do(http.MethodPost, "/bookings", guestToken, map[string]string{
		"listing_id": listing.ID, "pet_id": pet.ID, "start_date": "2031-06-01", "end_date": "2031-06-04",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create booking: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var booking bookingResponse
	decodeInto(t, rec, &booking)

	rec = api.do(http.MethodPost, "/bookings/"+booking.ID+"/accept", hostToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("accept: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
}
