package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/pawstay/pawstay/services/api/internal/domain"
)

type CatalogRepository struct {
	conn
}

func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{conn: conn{db: db}}
}

const listingColumns = `
l.id AS id, l.host_id AS host_id, l.title AS title, l.city AS city,
l.nightly_price_inr AS nightly_price_inr,
COALESCE(l.min_nights, 0) AS min_nights, COALESCE(l.max_nights, 0) AS max_nights,
l.lat AS lat, l.lng AS lng, l.accepts_sizes AS accepts_sizes, l.verified AS verified,
l.status AS status, l.created_at AS created_at`

type listingRow struct {
	ID           string    `db:"id"`
	HostID       string    `db:"host_id"`
	Title        string    `db:"title"`
	City         string    `db:"city"`
	NightlyPrice int64     `db:"nightly_price_inr"`
	MinNights    int       `db:"min_nights"`
	MaxNights    int       `db:"max_nights"`
	Lat          float64   `db:"lat"`
	Lng          float64   `db:"lng"`
	AcceptsSizes sizeList  `db:"accepts_sizes"`
	Verified     bool      `db:"verified"`
	Status       string    `db:"status"`
	CreatedAt    timestamp `db:"created_at"`
}

func (row listingRow) toDomain() domain.Listing {
	return domain.Listing{
		ID:           row.ID,
		HostID:       row.HostID,
		Title:        row.Title,
		City:         row.City,
		NightlyPrice: row.NightlyPrice,
		MinNights:    row.MinNights,
		MaxNights:    row.MaxNights,
		Lat:          row.Lat,
		Lng:          row.Lng,
		AcceptsSizes: row.AcceptsSizes,
		Verified:     row.Verified,
		Status:       domain.ListingStatus(row.Status),
		CreatedAt:    row.CreatedAt.Time,
	}
}

// sizeList is stored as a JSON array so searches can use json_each.
type sizeList []domain.PetSize

func (l sizeList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]domain.PetSize(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *sizeList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	case nil:
		*l = nil
		return nil
	default:
		return fmt.Errorf("unsupported size list type %T", src)
	}
	var sizes []domain.PetSize
	if err := json.Unmarshal(raw, &sizes); err != nil {
		return fmt.Errorf("decode size list: %w", err)
	}
	if len(sizes) == 0 {
		sizes = nil
	}
	*l = sizes
	return nil
}

const petColumns = `id, owner_id, name, type, size, breed, created_at`

type petRow struct {
	ID        string    `db:"id"`
	OwnerID   string    `db:"owner_id"`
	Name      string    `db:"name"`
	Type      string    `db:"type"`
	Size      string    `db:"size"`
	Breed     string    `db:"breed"`
	CreatedAt timestamp `db:"created_at"`
}

func (row petRow) toDomain() domain.Pet {
	return domain.Pet{
		ID:        row.ID,
		OwnerID:   row.OwnerID,
		Name:      row.Name,
		Type:      row.Type,
		Size:      domain.PetSize(row.Size),
		Breed:     row.Breed,
		CreatedAt: row.CreatedAt.Time,
	}
}

func getListing(ctx context.Context, c conn, listingID string) (domain.Listing, error) {
	var row listingRow
	err := c.get(ctx, &row, `SELECT `+listingColumns+` FROM listings l WHERE l.id = ?`, listingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Listing{}, domain.ErrListingNotFound
		}
		return domain.Listing{}, fmt.Errorf("get listing: %w", err)
	}
	return row.toDomain(), nil
}

func (r *CatalogRepository) CreateUser(ctx context.Context, user domain.User) error {
	const stmt = `INSERT INTO users (id, email, name, role, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := r.exec(ctx, stmt, user.ID, user.Email, user.Name, string(user.Role), ts(user.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUserAlreadyExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *CatalogRepository) GetUser(ctx context.Context, userID string) (domain.User, error) {
	var row struct {
		ID        string    `db:"id"`
		Email     string    `db:"email"`
		Name      string    `db:"name"`
		Role      string    `db:"role"`
		CreatedAt timestamp `db:"created_at"`
	}
	err := r.get(ctx, &row, `SELECT id, email, name, role, created_at FROM users WHERE id = ?`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return domain.User{
		ID:        row.ID,
		Email:     row.Email,
		Name:      row.Name,
		Role:      domain.UserRole(row.Role),
		CreatedAt: row.CreatedAt.Time,
	}, nil
}

func (r *CatalogRepository) CreateListing(ctx context.Context, l domain.Listing) error {
	const stmt = `
INSERT INTO listings (
	id, host_id, title, city, nightly_price_inr, min_nights, max_nights,
	lat, lng, accepts_sizes, verified, status, created_at
) VALUES (?, ?, ?, ?, ?, NULLIF(?, 0), NULLIF(?, 0), ?, ?, ?, ?, ?, ?)`
	_, err := r.exec(ctx, stmt,
		l.ID, l.HostID, l.Title, l.City, l.NightlyPrice,
		l.MinNights, l.MaxNights, l.Lat, l.Lng,
		sizeList(l.AcceptsSizes), l.Verified, string(l.Status), ts(l.CreatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("create listing: %w", err)
	}
	return nil
}

func (r *CatalogRepository) UpdateListingStatus(ctx context.Context, listingID string, status domain.ListingStatus) error {
	res, err := r.exec(ctx, `UPDATE listings SET status = ? WHERE id = ?`, string(status), listingID)
	if err != nil {
		return fmt.Errorf("update listing status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update listing status: %w", err)
	}
	if n == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

// SearchListings returns active listings, cheapest first. A listing with no
// accepted sizes matches any size filter.
func (r *CatalogRepository) SearchListings(ctx context.Context, f domain.ListingFilter) ([]domain.Listing, error) {
	named := `
SELECT ` + listingColumns + `
FROM listings l
WHERE l.status = 'active'
  AND (:city = '' OR lower(l.city) = lower(:city))
  AND (:min_price = 0 OR l.nightly_price_inr >= :min_price)
  AND (:max_price = 0 OR l.nightly_price_inr <= :max_price)
  AND (:verified_only = 0 OR l.verified = 1)
  AND (:from = '' OR NOT EXISTS (
	SELECT 1 FROM bookings b
	WHERE b.listing_id = l.id
	  AND b.status IN ('requested', 'confirmed')
	  AND b.start_date < :to
	  AND b.end_date > :from
  ))`

	params := map[string]any{
		"city":          f.City,
		"min_price":     f.MinPrice,
		"max_price":     f.MaxPrice,
		"verified_only": 0,
		"from":          "",
		"to":            "",
		"limit":         f.Limit,
	}
	if f.VerifiedOnly {
		params["verified_only"] = 1
	}
	if f.FreeDuring != nil {
		params["from"] = f.FreeDuring.StartDate()
		params["to"] = f.FreeDuring.EndDate()
	}
	if len(f.Sizes) > 0 {
		sizes := make([]string, 0, len(f.Sizes))
		for _, s := range f.Sizes {
			sizes = append(sizes, string(s))
		}
		params["sizes"] = sizes
		named += `
  AND (json_array_length(l.accepts_sizes) = 0 OR EXISTS (
	SELECT 1 FROM json_each(l.accepts_sizes) s WHERE s.value IN (:sizes)
  ))`
	}
	named += `
ORDER BY l.nightly_price_inr ASC, l.created_at ASC
LIMIT :limit`

	query, args, err := sqlx.Named(named, params)
	if err != nil {
		return nil, fmt.Errorf("bind search: %w", err)
	}
	// Expands :sizes into one placeholder per size.
	query, args, err = sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("bind search: %w", err)
	}

	var rows []listingRow
	if err := r.selectAll(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("search listings: %w", err)
	}
	listings := make([]domain.Listing, 0, len(rows))
	for _, row := range rows {
		listings = append(listings, row.toDomain())
	}
	return listings, nil
}

func (r *CatalogRepository) CreatePet(ctx context.Context, p domain.Pet) error {
	const stmt = `
INSERT INTO pets (id, owner_id, name, type, size, breed, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.exec(ctx, stmt, p.ID, p.OwnerID, p.Name, p.Type, string(p.Size), p.Breed, ts(p.CreatedAt))
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("create pet: %w", err)
	}
	return nil
}

func (r *CatalogRepository) ListPetsByOwner(ctx context.Context, ownerID string) ([]domain.Pet, error) {
	var rows []petRow
	err := r.selectAll(ctx, &rows, `SELECT `+petColumns+` FROM pets WHERE owner_id = ? ORDER BY created_at ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list pets: %w", err)
	}
	pets := make([]domain.Pet, 0, len(rows))
	for _, row := range rows {
		pets = append(pets, row.toDomain())
	}
	return pets, nil
}
