package http

import (
	"context"
	"net/http"
	"time"

	"github.com/pawstay/pawstay/services/api/internal/app"
	"github.com/pawstay/pawstay/services/api/internal/domain"
)

const idempotencyHeader = "Idempotency-Key"

// BookingService is the subset of the admission service the booking
// endpoints need.
type BookingService interface {
	CreateBooking(ctx context.Context, in app.CreateBookingInput) (app.CreateBookingResult, error)
	GetBooking(ctx context.Context, bookingID, viewerID string) (domain.BookingView, error)
	ListBookings(ctx context.Context, in app.ListBookingsInput) ([]domain.Booking, error)
}

// LifecycleService is the subset of the lifecycle manager exposed to guests
// and hosts.
type LifecycleService interface {
	Accept(ctx context.Context, in app.TransitionInput) (domain.Booking, error)
	Decline(ctx context.Context, in app.TransitionInput) (domain.Booking, error)
	Cancel(ctx context.Context, in app.TransitionInput) (domain.Booking, error)
	RecordPayment(ctx context.Context, in app.RecordPaymentInput) (domain.Booking, error)
}

// HandleBookings serves POST /bookings (admission) and GET /bookings.
func HandleBookings(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity(w, r)
		if !ok {
			return
		}

		switch r.Method {
		case http.MethodPost:
			var req createBookingRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			start, err := domain.ParseDate(req.StartDate)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			end, err := domain.ParseDate(req.EndDate)
			if err != nil {
				writeServiceError(w, err)
				return
			}

			res, err := svc.CreateBooking(r.Context(), app.CreateBookingInput{
				GuestID:        id.UserID,
				ListingID:      req.ListingID,
				PetID:          req.PetID,
				Start:          start,
				End:            end,
				Note:           req.Note,
				IdempotencyKey: r.Header.Get(idempotencyHeader),
			})
			if err != nil {
				writeServiceError(w, err)
				return
			}

			status := http.StatusCreated
			if !res.Created {
				status = http.StatusOK
			}
			writeJSON(w, status, newBookingResponse(res.Booking))

		case http.MethodGet:
			bookings, err := svc.ListBookings(r.Context(), app.ListBookingsInput{
				UserID: id.UserID,
				AsHost: r.URL.Query().Get("as") == "host",
			})
			if err != nil {
				writeServiceError(w, err)
				return
			}
			resp := make([]bookingResponse, 0, len(bookings))
			for _, b := range bookings {
				resp = append(resp, newBookingResponse(b))
			}
			writeJSON(w, http.StatusOK, resp)

		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	}
}

// HandleBooking serves GET /bookings/{id} and the lifecycle actions
// POST /bookings/{id}/{accept|decline|cancel|payment}.
func HandleBooking(bookings BookingService, lifecycle LifecycleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID, action, ok := pathAction(r.URL.Path, "bookings")
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		id, ok := identity(w, r)
		if !ok {
			return
		}

		if action == "" {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			view, err := bookings.GetBooking(r.Context(), bookingID, id.UserID)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			resp := newBookingResponse(view.Booking)
			resp.HostID = view.HostID
			writeJSON(w, http.StatusOK, resp)
			return
		}

		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}

		in := app.TransitionInput{BookingID: bookingID, ActorID: id.UserID}
		var (
			booking domain.Booking
			err     error
		)
		switch action {
		case "accept":
			booking, err = lifecycle.Accept(r.Context(), in)
		case "decline":
			booking, err = lifecycle.Decline(r.Context(), in)
		case "cancel":
			booking, err = lifecycle.Cancel(r.Context(), in)
		case "payment":
			var req recordPaymentRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			booking, err = lifecycle.RecordPayment(r.Context(), app.RecordPaymentInput{
				BookingID:  bookingID,
				GuestID:    id.UserID,
				PaymentRef: req.PaymentRef,
			})
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newBookingResponse(booking))
	}
}

type createBookingRequest struct {
	ListingID string `json:"listing_id" validate:"required,uuid"`
	PetID     string `json:"pet_id" validate:"required,uuid"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Note      string `json:"note,omitempty"`
}

type recordPaymentRequest struct {
	PaymentRef string `json:"payment_ref" validate:"required,max=255"`
}

type priceResponse struct {
	Subtotal    int64 `json:"subtotal"`
	Taxes       int64 `json:"taxes"`
	PlatformFee int64 `json:"platform_fee"`
	Total       int64 `json:"total"`
}

type bookingResponse struct {
	ID           string        `json:"id"`
	ListingID    string        `json:"listing_id"`
	GuestID      string        `json:"guest_id"`
	HostID       string        `json:"host_id,omitempty"`
	PetID        string        `json:"pet_id"`
	StartDate    string        `json:"start_date"`
	EndDate      string        `json:"end_date"`
	Nights       int           `json:"nights"`
	Status       string        `json:"status"`
	Price        priceResponse `json:"price"`
	Note         string        `json:"note,omitempty"`
	PaymentRef   string        `json:"payment_ref,omitempty"`
	PayoutStatus string        `json:"payout_status,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func newPriceResponse(p domain.PriceBreakdown) priceResponse {
	return priceResponse{
		Subtotal:    p.Subtotal,
		Taxes:       p.Taxes,
		PlatformFee: p.PlatformFee,
		Total:       p.Total,
	}
}

func newBookingResponse(b domain.Booking) bookingResponse {
	return bookingResponse{
		ID:           b.ID,
		ListingID:    b.ListingID,
		GuestID:      b.GuestID,
		PetID:        b.PetID,
		StartDate:    b.Stay.StartDate(),
		EndDate:      b.Stay.EndDate(),
		Nights:       b.Nights,
		Status:       string(b.Status),
		Price:        newPriceResponse(b.Price),
		Note:         b.Note,
		PaymentRef:   b.PaymentRef,
		PayoutStatus: string(b.PayoutStatus),
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}
