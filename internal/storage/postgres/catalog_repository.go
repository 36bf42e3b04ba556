package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pawstay/pawstay/services/api/internal/domain"
)

type CatalogRepository struct {
	conn
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{conn: conn{pool: pool}}
}

const listingColumns = `
l.id, l.host_id, l.title, l.city, l.nightly_price_inr,
COALESCE(l.min_nights, 0), COALESCE(l.max_nights, 0),
l.lat, l.lng, l.accepts_sizes, l.verified, l.status, l.created_at`

func scanListing(row pgx.Row) (domain.Listing, error) {
	var (
		l      domain.Listing
		sizes  []string
		status string
	)
	err := row.Scan(&l.ID, &l.HostID, &l.Title, &l.City, &l.NightlyPrice,
		&l.MinNights, &l.MaxNights, &l.Lat, &l.Lng, &sizes, &l.Verified, &status, &l.CreatedAt)
	if err != nil {
		return domain.Listing{}, err
	}
	for _, s := range sizes {
		l.AcceptsSizes = append(l.AcceptsSizes, domain.PetSize(s))
	}
	l.Status = domain.ListingStatus(status)
	return l, nil
}

// sizeArray never returns nil so pgx encodes an empty text[] rather than NULL.
func sizeArray(sizes []domain.PetSize) []string {
	out := make([]string, 0, len(sizes))
	for _, s := range sizes {
		out = append(out, string(s))
	}
	return out
}

func getListing(ctx context.Context, c conn, listingID string, forUpdate bool) (domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings l WHERE l.id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	l, err := scanListing(c.queryRow(ctx, query, listingID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Listing{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Listing{}, domain.ErrListingNotFound
		}
		return domain.Listing{}, fmt.Errorf("get listing: %w", err)
	}
	return l, nil
}

func (r *CatalogRepository) CreateUser(ctx context.Context, user domain.User) error {
	const stmt = `
INSERT INTO users (id, email, name, role, created_at)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.exec(ctx, stmt, user.ID, user.Email, user.Name, user.Role, user.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isUniqueViolation(err) {
			return domain.ErrUserAlreadyExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *CatalogRepository) GetUser(ctx context.Context, userID string) (domain.User, error) {
	const query = `SELECT id, email, name, role, created_at FROM users WHERE id = $1`
	var (
		u    domain.User
		role string
	)
	err := r.queryRow(ctx, query, userID).Scan(&u.ID, &u.Email, &u.Name, &role, &u.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.User{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	u.Role = domain.UserRole(role)
	return u, nil
}

func (r *CatalogRepository) CreateListing(ctx context.Context, l domain.Listing) error {
	const stmt = `
INSERT INTO listings (
	id, host_id, title, city, nightly_price_inr, min_nights, max_nights,
	lat, lng, accepts_sizes, verified, status, created_at
) VALUES ($1, $2, $3, $4, $5, NULLIF($6, 0), NULLIF($7, 0), $8, $9, $10, $11, $12, $13)`
	_, err := r.exec(ctx, stmt,
		l.ID, l.HostID, l.Title, l.City, l.NightlyPrice,
		l.MinNights, l.MaxNights, l.Lat, l.Lng,
		sizeArray(l.AcceptsSizes), l.Verified, l.Status, l.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("create listing: %w", err)
	}
	return nil
}

func (r *CatalogRepository) UpdateListingStatus(ctx context.Context, listingID string, status domain.ListingStatus) error {
	tag, err := r.exec(ctx, `UPDATE listings SET status = $2 WHERE id = $1`, listingID, status)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update listing status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

// SearchListings returns active listings, cheapest first. A listing with no
// accepted sizes matches any size filter.
func (r *CatalogRepository) SearchListings(ctx context.Context, f domain.ListingFilter) ([]domain.Listing, error) {
	const query = `
SELECT ` + listingColumns + `
FROM listings l
WHERE l.status = 'active'
  AND ($1::text = '' OR lower(l.city) = lower($1::text))
  AND ($2::bigint = 0 OR l.nightly_price_inr >= $2::bigint)
  AND ($3::bigint = 0 OR l.nightly_price_inr <= $3::bigint)
  AND (cardinality($7::text[]) = 0 OR cardinality(l.accepts_sizes) = 0 OR l.accepts_sizes && $7::text[])
  AND (NOT $8::boolean OR l.verified)
  AND ($4::date IS NULL OR NOT EXISTS (
	SELECT 1 FROM bookings b
	WHERE b.listing_id = l.id
	  AND b.status IN ('requested', 'confirmed')
	  AND b.start_date < $5::date
	  AND b.end_date > $4::date
  ))
ORDER BY l.nightly_price_inr ASC, l.created_at ASC
LIMIT $6`

	var from, to any
	if f.FreeDuring != nil {
		from, to = f.FreeDuring.StartDate(), f.FreeDuring.EndDate()
	}

	rows, err := r.query(ctx, query,
		f.City, f.MinPrice, f.MaxPrice, from, to, f.Limit,
		sizeArray(f.Sizes), f.VerifiedOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("search listings: %w", err)
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		listings = append(listings, l)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate listings: %w", rows.Err())
	}
	return listings, nil
}

func (r *CatalogRepository) CreatePet(ctx context.Context, p domain.Pet) error {
	const stmt = `
INSERT INTO pets (id, owner_id, name, type, size, breed, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.exec(ctx, stmt, p.ID, p.OwnerID, p.Name, p.Type, p.Size, p.Breed, p.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("create pet: %w", err)
	}
	return nil
}

func (r *CatalogRepository) ListPetsByOwner(ctx context.Context, ownerID string) ([]domain.Pet, error) {
	const query = `
SELECT id, owner_id, name, type, size, breed, created_at
FROM pets
WHERE owner_id = $1
ORDER BY created_at ASC`
	rows, err := r.query(ctx, query, ownerID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list pets: %w", err)
	}
	defer rows.Close()

	var pets []domain.Pet
	for rows.Next() {
		var (
			p    domain.Pet
			size string
		)
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Type, &size, &p.Breed, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pet: %w", err)
		}
		p.Size = domain.PetSize(size)
		pets = append(pets, p)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate pets: %w", rows.Err())
	}
	return pets, nil
}
