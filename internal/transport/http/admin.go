package http

import (
	"context"
	"net/http"
	"time"

	"github.com/pawstay/pawstay/services/api/internal/app"
	"github.com/pawstay/pawstay/services/api/internal/domain"
)

// AdminCatalogService is the minimal interface needed for admin catalog endpoints.
type AdminCatalogService interface {
	CreateUser(ctx context.Context, in app.CreateUserInput) (domain.User, error)
	CreateListing(ctx context.Context, in app.CreateListingInput) (domain.Listing, error)
	SetListingStatus(ctx context.Context, listingID string, status domain.ListingStatus) error
	CreatePet(ctx context.Context, in app.CreatePetInput) (domain.Pet, error)
}

// AdminBookingService is the minimal interface needed for admin booking endpoints.
type AdminBookingService interface {
	ExpireStale(ctx context.Context) (int, error)
	SetPayoutStatus(ctx context.Context, bookingID string, status domain.PayoutStatus) error
}

// HandleAdminUsers serves POST /admin/users.
func HandleAdminUsers(svc AdminCatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		var req createUserRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		user, err := svc.CreateUser(r.Context(), app.CreateUserInput{
			Email: req.Email,
			Name:  req.Name,
			Role:  domain.UserRole(req.Role),
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, userResponse{
			ID:        user.ID,
			Email:     user.Email,
			Name:      user.Name,
			Role:      string(user.Role),
			CreatedAt: user.CreatedAt,
		})
	}
}

// HandleAdminListings serves POST /admin/listings.
func HandleAdminListings(svc AdminCatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		var req createListingRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		in := req.input(req.HostID)
		in.Verified = req.Verified
		listing, err := svc.CreateListing(r.Context(), in)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newListingResponse(listing))
	}
}

// HandleAdminListingStatus serves POST /admin/listings/{id}/status.
func HandleAdminListingStatus(svc AdminCatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listingID, ok := pathID(r.URL.Path, "admin/listings", "status")
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		var req statusRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := svc.SetListingStatus(r.Context(), listingID, domain.ListingStatus(req.Status)); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleAdminPets serves POST /admin/pets.
func HandleAdminPets(svc AdminCatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		var req createPetRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		pet, err := svc.CreatePet(r.Context(), req.input(req.OwnerID))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newPetResponse(pet))
	}
}

// HandleAdminPayout serves POST /admin/bookings/{id}/payout.
func HandleAdminPayout(svc AdminBookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID, ok := pathID(r.URL.Path, "admin/bookings", "payout")
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		var req statusRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := svc.SetPayoutStatus(r.Context(), bookingID, domain.PayoutStatus(req.Status)); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleAdminExpire serves POST /admin/bookings/expire, running one
// expiry sweep over stale requests.
func HandleAdminExpire(svc AdminBookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		n, err := svc.ExpireStale(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, expireResponse{Expired: n})
	}
}

type createUserRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,max=120"`
	Role  string `json:"role,omitempty" validate:"omitempty,oneof=owner host admin"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// listingFields is what a host may set on a listing they create.
type listingFields struct {
	Title        string   `json:"title" validate:"required,max=200"`
	City         string   `json:"city" validate:"required,max=100"`
	NightlyPrice int64    `json:"nightly_price" validate:"required,gt=0"`
	MinNights    int      `json:"min_nights,omitempty" validate:"gte=0"`
	MaxNights    int      `json:"max_nights,omitempty" validate:"gte=0"`
	Lat          float64  `json:"lat,omitempty" validate:"latitude"`
	Lng          float64  `json:"lng,omitempty" validate:"longitude"`
	AcceptsSizes []string `json:"accepts_sizes,omitempty" validate:"omitempty,max=3,dive,oneof=small medium large"`
}

func (f listingFields) input(hostID string) app.CreateListingInput {
	sizes := make([]domain.PetSize, 0, len(f.AcceptsSizes))
	for _, s := range f.AcceptsSizes {
		sizes = append(sizes, domain.PetSize(s))
	}
	return app.CreateListingInput{
		HostID:       hostID,
		Title:        f.Title,
		City:         f.City,
		NightlyPrice: f.NightlyPrice,
		MinNights:    f.MinNights,
		MaxNights:    f.MaxNights,
		Lat:          f.Lat,
		Lng:          f.Lng,
		AcceptsSizes: sizes,
	}
}

// createListingRequest lets operators create a listing for any host and
// mark it verified.
type createListingRequest struct {
	HostID   string `json:"host_id" validate:"required,uuid"`
	Verified bool   `json:"verified,omitempty"`
	listingFields
}

type petFields struct {
	Name  string `json:"name" validate:"required,max=80"`
	Type  string `json:"type,omitempty" validate:"max=40"`
	Size  string `json:"size,omitempty" validate:"omitempty,oneof=small medium large"`
	Breed string `json:"breed,omitempty" validate:"max=80"`
}

func (f petFields) input(ownerID string) app.CreatePetInput {
	return app.CreatePetInput{
		OwnerID: ownerID,
		Name:    f.Name,
		Type:    f.Type,
		Size:    domain.PetSize(f.Size),
		Breed:   f.Breed,
	}
}

type createPetRequest struct {
	OwnerID string `json:"owner_id" validate:"required,uuid"`
	petFields
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type expireResponse struct {
	Expired int `json:"expired"`
}
