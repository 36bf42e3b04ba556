package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pawstay/pawstay/services/api/internal/app"
	"github.com/pawstay/pawstay/services/api/internal/domain"
)

// ListingCatalog answers searches and lets users list their own stays.
type ListingCatalog interface {
	SearchListings(ctx context.Context, filter domain.ListingFilter) ([]domain.Listing, error)
	CreateListing(ctx context.Context, in app.CreateListingInput) (domain.Listing, error)
}

// Quoter previews the price and availability of a stay.
type Quoter interface {
	Quote(ctx context.Context, in app.QuoteInput) (app.Quote, error)
}

// HandleListings serves GET /listings (search) and POST /listings, which
// creates a listing hosted by the caller.
func HandleListings(svc ListingCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			searchListings(w, r, svc)
		case http.MethodPost:
			id, ok := identity(w, r)
			if !ok {
				return
			}
			var req listingFields
			if !decodeJSON(w, r, &req) {
				return
			}
			listing, err := svc.CreateListing(r.Context(), req.input(id.UserID))
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, newListingResponse(listing))
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	}
}

func searchListings(w http.ResponseWriter, r *http.Request, svc ListingCatalog) {
	q := r.URL.Query()
	filter := domain.ListingFilter{City: q.Get("city")}

	var err error
	if filter.MinPrice, err = queryInt(q.Get("min_price")); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidField, "min_price is invalid")
		return
	}
	if filter.MaxPrice, err = queryInt(q.Get("max_price")); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidField, "max_price is invalid")
		return
	}
	limit, err := queryInt(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidField, "limit is invalid")
		return
	}
	filter.Limit = int(limit)

	// size=small,large matches listings taking either size.
	if raw := q.Get("size"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				filter.Sizes = append(filter.Sizes, domain.PetSize(s))
			}
		}
	}
	if raw := q.Get("verified"); raw != "" {
		if filter.VerifiedOnly, err = strconv.ParseBool(raw); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidField, "verified is invalid")
			return
		}
	}

	start, end := q.Get("start_date"), q.Get("end_date")
	if start != "" || end != "" {
		stay, err := domain.ParseDateRange(start, end)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		filter.FreeDuring = &stay
	}

	listings, err := svc.SearchListings(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := make([]listingResponse, 0, len(listings))
	for _, l := range listings {
		resp = append(resp, newListingResponse(l))
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleListingQuote serves GET /listings/{id}/quote?start_date=&end_date=.
func HandleListingQuote(svc Quoter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listingID, ok := pathID(r.URL.Path, "listings", "quote")
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}

		q := r.URL.Query()
		if q.Get("start_date") == "" || q.Get("end_date") == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "start_date and end_date are required")
			return
		}
		stay, err := domain.ParseDateRange(q.Get("start_date"), q.Get("end_date"))
		if err != nil {
			writeServiceError(w, err)
			return
		}

		quote, err := svc.Quote(r.Context(), app.QuoteInput{
			ListingID: listingID,
			Start:     stay.Start,
			End:       stay.End,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := quoteResponse{
			ListingID: quote.ListingID,
			StartDate: quote.Stay.StartDate(),
			EndDate:   quote.Stay.EndDate(),
			Nights:    quote.Nights,
			Price:     newPriceResponse(quote.Price),
			Available: quote.Decision.Admitted,
			Reason:    quote.Decision.Reason,
		}
		for _, c := range quote.Decision.Conflicts {
			resp.Conflicts = append(resp.Conflicts, conflictResponse{
				StartDate: c.Stay.StartDate(),
				EndDate:   c.Stay.EndDate(),
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func queryInt(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

type listingResponse struct {
	ID           string    `json:"id"`
	HostID       string    `json:"host_id"`
	Title        string    `json:"title"`
	City         string    `json:"city"`
	NightlyPrice int64     `json:"nightly_price"`
	MinNights    int       `json:"min_nights,omitempty"`
	MaxNights    int       `json:"max_nights,omitempty"`
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
	AcceptsSizes []string  `json:"accepts_sizes"`
	Verified     bool      `json:"verified"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

func newListingResponse(l domain.Listing) listingResponse {
	sizes := make([]string, 0, len(l.AcceptsSizes))
	for _, s := range l.AcceptsSizes {
		sizes = append(sizes, string(s))
	}
	return listingResponse{
		ID:           l.ID,
		HostID:       l.HostID,
		Title:        l.Title,
		City:         l.City,
		NightlyPrice: l.NightlyPrice,
		MinNights:    l.MinNights,
		MaxNights:    l.MaxNights,
		Lat:          l.Lat,
		Lng:          l.Lng,
		AcceptsSizes: sizes,
		Verified:     l.Verified,
		Status:       string(l.Status),
		CreatedAt:    l.CreatedAt,
	}
}

// Conflicts only carry dates; other guests' bookings stay private.
type conflictResponse struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type quoteResponse struct {
	ListingID string             `json:"listing_id"`
	StartDate string             `json:"start_date"`
	EndDate   string             `json:"end_date"`
	Nights    int                `json:"nights"`
	Price     priceResponse      `json:"price"`
	Available bool               `json:"available"`
	Reason    string             `json:"reason,omitempty"`
	Conflicts []conflictResponse `json:"conflicts,omitempty"`
}
