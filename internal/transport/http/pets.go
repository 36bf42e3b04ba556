package http

import (
	"context"
	"net/http"
	"time"

	"github.com/pawstay/pawstay/services/api/internal/app"
	"github.com/pawstay/pawstay/services/api/internal/domain"
)

// PetService lists and registers the caller's pets.
type PetService interface {
	ListPets(ctx context.Context, ownerID string) ([]domain.Pet, error)
	CreatePet(ctx context.Context, in app.CreatePetInput) (domain.Pet, error)
}

// HandlePets serves GET /pets and POST /pets for the calling owner.
func HandlePets(svc PetService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity(w, r)
		if !ok {
			return
		}

		switch r.Method {
		case http.MethodGet:
			pets, err := svc.ListPets(r.Context(), id.UserID)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			resp := make([]petResponse, 0, len(pets))
			for _, p := range pets {
				resp = append(resp, newPetResponse(p))
			}
			writeJSON(w, http.StatusOK, resp)

		case http.MethodPost:
			var req petFields
			if !decodeJSON(w, r, &req) {
				return
			}
			pet, err := svc.CreatePet(r.Context(), req.input(id.UserID))
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, newPetResponse(pet))

		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	}
}

type petResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Type      string    `json:"type,omitempty"`
	Size      string    `json:"size,omitempty"`
	Breed     string    `json:"breed,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func newPetResponse(p domain.Pet) petResponse {
	return petResponse{
		ID:        p.ID,
		OwnerID:   p.OwnerID,
		Name:      p.Name,
		Type:      p.Type,
		Size:      string(p.Size),
		Breed:     p.Breed,
		CreatedAt: p.CreatedAt,
	}
}
