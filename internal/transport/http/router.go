package http

import (
	"context"
	"net/http"

	"github.com/pawstay/pawstay/services/api/internal/auth"
)

// Services bundles what the router serves. App services satisfy these
// interfaces directly.
type Services struct {
	Bookings  BookingService
	Quotes    Quoter
	Lifecycle LifecycleService
	Admin     AdminBookingService
	Catalog   interface {
		AdminCatalogService
		ListingCatalog
		PetService
	}
}

type RouterOptions struct {
	Verifier *auth.Verifier
	// HealthCheck is polled by /health; nil reports liveness only.
	HealthCheck func(ctx context.Context) error
	// BookingLimiter wraps POST /bookings; nil disables rate limiting.
	BookingLimiter func(http.Handler) http.Handler
}

// NewRouter wires every endpoint. Everything except /health requires a
// bearer token and /admin/ additionally requires the admin role. Any
// signed-in user may create listings they host and pets they own.
func NewRouter(s Services, opts RouterOptions) http.Handler {
	authed := func(h http.Handler) http.Handler { return RequireAuth(opts.Verifier, h) }
	admin := func(h http.Handler) http.Handler { return authed(RequireAdmin(h)) }

	var bookings http.Handler = HandleBookings(s.Bookings)
	if opts.BookingLimiter != nil {
		bookings = ForMethod(http.MethodPost, opts.BookingLimiter(bookings), bookings)
	}

	mux := http.NewServeMux()
	mux.Handle("/health", HandleHealth(opts.HealthCheck))
	mux.Handle("/listings", authed(HandleListings(s.Catalog)))
	mux.Handle("/listings/", authed(HandleListingQuote(s.Quotes)))
	mux.Handle("/pets", authed(HandlePets(s.Catalog)))
	mux.Handle("/bookings", authed(bookings))
	mux.Handle("/bookings/", authed(HandleBooking(s.Bookings, s.Lifecycle)))
	mux.Handle("/admin/users", admin(HandleAdminUsers(s.Catalog)))
	mux.Handle("/admin/listings", admin(HandleAdminListings(s.Catalog)))
	mux.Handle("/admin/listings/", admin(HandleAdminListingStatus(s.Catalog)))
	mux.Handle("/admin/pets", admin(HandleAdminPets(s.Catalog)))
	mux.Handle("/admin/bookings/expire", admin(HandleAdminExpire(s.Admin)))
	mux.Handle("/admin/bookings/", admin(HandleAdminPayout(s.Admin)))
	mux.Handle("/", NotFoundHandler())
	return mux
}

// NotFoundHandler answers unknown routes with the JSON error shape.
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "no route for "+r.URL.Path)
	})
}
