package app

import (
	"context"
	"strings"

	"github.com/pawstay/pawstay/services/api/internal/clock"
	"github.com/pawstay/pawstay/services/api/internal/domain"
)

const maxSearchLimit = 100

type CatalogRepository interface {
	CreateUser(ctx context.Context, user domain.User) error
	GetUser(ctx context.Context, userID string) (domain.User, error)
	CreateListing(ctx context.Context, listing domain.Listing) error
	UpdateListingStatus(ctx context.Context, listingID string, status domain.ListingStatus) error
	SearchListings(ctx context.Context, filter domain.ListingFilter) ([]domain.Listing, error)
	CreatePet(ctx context.Context, pet domain.Pet) error
	ListPetsByOwner(ctx context.Context, ownerID string) ([]domain.Pet, error)
}

// CatalogService manages users, listings and pets, and answers listing searches.
type CatalogService struct {
	repo  CatalogRepository
	clock clock.Clock
}

func NewCatalogService(repo CatalogRepository, clk clock.Clock) *CatalogService {
	return &CatalogService{
		repo:  repo,
		clock: clk,
	}
}

type CreateUserInput struct {
	Email string
	Name  string
	Role  domain.UserRole
}

func (s *CatalogService) CreateUser(ctx context.Context, in CreateUserInput) (domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return domain.User{}, domain.ErrEmailRequired
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.User{}, domain.ErrNameRequired
	}
	role := in.Role
	if role == "" {
		role = domain.UserRoleOwner
	}

	user := domain.User{
		ID:        newID(),
		Email:     email,
		Name:      name,
		Role:      role,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// GetUser is used by notifiers to resolve recipients.
func (s *CatalogService) GetUser(ctx context.Context, userID string) (domain.User, error) {
	if !validID(userID) {
		return domain.User{}, domain.ErrInvalidID
	}
	return s.repo.GetUser(ctx, userID)
}

type CreateListingInput struct {
	HostID       string
	Title        string
	City         string
	NightlyPrice int64
	MinNights    int
	MaxNights    int
	Lat          float64
	Lng          float64
	AcceptsSizes []domain.PetSize
	Verified     bool
}

func (s *CatalogService) CreateListing(ctx context.Context, in CreateListingInput) (domain.Listing, error) {
	if !validID(in.HostID) {
		return domain.Listing{}, domain.ErrInvalidID
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Listing{}, domain.ErrTitleRequired
	}
	city := strings.TrimSpace(in.City)
	if city == "" {
		return domain.Listing{}, domain.ErrCityRequired
	}
	if in.NightlyPrice <= 0 {
		return domain.Listing{}, domain.ErrInvalidPrice
	}
	if in.MinNights < 0 || in.MaxNights < 0 || (in.MaxNights > 0 && in.MinNights > in.MaxNights) {
		return domain.Listing{}, domain.ErrInvalidStayLimits
	}
	sizes, err := domain.NormalizePetSizes(in.AcceptsSizes)
	if err != nil {
		return domain.Listing{}, err
	}

	listing := domain.Listing{
		ID:           newID(),
		HostID:       in.HostID,
		Title:        title,
		City:         city,
		NightlyPrice: in.NightlyPrice,
		MinNights:    in.MinNights,
		MaxNights:    in.MaxNights,
		Lat:          in.Lat,
		Lng:          in.Lng,
		AcceptsSizes: sizes,
		Verified:     in.Verified,
		Status:       domain.ListingStatusActive,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.CreateListing(ctx, listing); err != nil {
		return domain.Listing{}, err
	}
	return listing, nil
}

func (s *CatalogService) SetListingStatus(ctx context.Context, listingID string, status domain.ListingStatus) error {
	if !status.Valid() {
		return domain.ErrInvalidListingStatus
	}
	if !validID(listingID) {
		return domain.ErrInvalidID
	}
	return s.repo.UpdateListingStatus(ctx, listingID, status)
}

// SearchListings returns active listings matching the filter.
func (s *CatalogService) SearchListings(ctx context.Context, filter domain.ListingFilter) ([]domain.Listing, error) {
	if filter.MinPrice < 0 || filter.MaxPrice < 0 {
		return nil, domain.ErrInvalidInput
	}
	if filter.MaxPrice > 0 && filter.MinPrice > filter.MaxPrice {
		return nil, domain.ErrInvalidInput
	}
	if filter.Limit <= 0 || filter.Limit > maxSearchLimit {
		filter.Limit = maxSearchLimit
	}
	sizes, err := domain.NormalizePetSizes(filter.Sizes)
	if err != nil {
		return nil, err
	}
	filter.Sizes = sizes
	filter.City = strings.TrimSpace(filter.City)
	return s.repo.SearchListings(ctx, filter)
}

type CreatePetInput struct {
	OwnerID string
	Name    string
	Type    string
	Size    domain.PetSize
	Breed   string
}

func (s *CatalogService) CreatePet(ctx context.Context, in CreatePetInput) (domain.Pet, error) {
	if !validID(in.OwnerID) {
		return domain.Pet{}, domain.ErrInvalidID
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Pet{}, domain.ErrNameRequired
	}
	if in.Size != "" && !in.Size.Valid() {
		return domain.Pet{}, domain.ErrInvalidPetSize
	}

	pet := domain.Pet{
		ID:        newID(),
		OwnerID:   in.OwnerID,
		Name:      name,
		Type:      strings.TrimSpace(in.Type),
		Size:      in.Size,
		Breed:     strings.TrimSpace(in.Breed),
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.CreatePet(ctx, pet); err != nil {
		return domain.Pet{}, err
	}
	return pet, nil
}

func (s *CatalogService) ListPets(ctx context.Context, ownerID string) ([]domain.Pet, error) {
	if !validID(ownerID) {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListPetsByOwner(ctx, ownerID)
}
