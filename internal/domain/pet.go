package domain

import (
	"slices"
	"time"
)

type PetSize string

const (
	PetSizeSmall  PetSize = "small"
	PetSizeMedium PetSize = "medium"
	PetSizeLarge  PetSize = "large"
)

func (s PetSize) Valid() bool {
	return s == PetSizeSmall || s == PetSizeMedium || s == PetSizeLarge
}

// NormalizePetSizes validates sizes and drops duplicates, keeping order.
func NormalizePetSizes(sizes []PetSize) ([]PetSize, error) {
	out := make([]PetSize, 0, len(sizes))
	for _, s := range sizes {
		if !s.Valid() {
			return nil, ErrInvalidPetSize
		}
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out, nil
}

// Pet belongs to exactly one user.
type Pet struct {
	ID        string
	OwnerID   string
	Name      string
	Type      string
	Size      PetSize
	Breed     string
	CreatedAt time.Time
}

type UserRole string

const (
	UserRoleOwner UserRole = "owner"
	UserRoleHost  UserRole = "host"
	UserRoleAdmin UserRole = "admin"
)

type User struct {
	ID        string
	Email     string
	Name      string
	Role      UserRole
	CreatedAt time.Time
}
