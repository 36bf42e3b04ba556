package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pawstay/pawstay/services/api/internal/domain"
)

// BookingRepository stores bookings. Admissions on one listing are
// serialised by locking the listing row; the bookings_no_overlap exclusion
// constraint backs that up.
type BookingRepository struct {
	conn
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{conn: conn{pool: pool}}
}

func (r *BookingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const bookingColumns = `
b.id, b.listing_id, b.owner_id, b.pet_id, b.start_date, b.end_date, b.nights,
b.price_subtotal_inr, b.taxes_inr, b.platform_fee_inr, b.total_inr,
b.status, b.note, COALESCE(b.payment_ref, ''), COALESCE(b.payout_status, ''),
COALESCE(b.idempotency_key, ''), b.created_at, b.updated_at`

func scanBooking(row pgx.Row, extra ...any) (domain.Booking, error) {
	var (
		b      domain.Booking
		status string
		payout string
	)
	dest := []any{
		&b.ID, &b.ListingID, &b.GuestID, &b.PetID, &b.Stay.Start, &b.Stay.End, &b.Nights,
		&b.Price.Subtotal, &b.Price.Taxes, &b.Price.PlatformFee, &b.Price.Total,
		&status, &b.Note, &b.PaymentRef, &payout,
		&b.IdempotencyKey, &b.CreatedAt, &b.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return domain.Booking{}, err
	}
	b.Status = domain.BookingStatus(status)
	b.PayoutStatus = domain.PayoutStatus(payout)
	b.Stay.Start = b.Stay.Start.UTC()
	b.Stay.End = b.Stay.End.UTC()
	return b, nil
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate bookings: %w", rows.Err())
	}
	return bookings, nil
}

func (r *BookingRepository) GetPet(ctx context.Context, petID string) (domain.Pet, error) {
	const query = `SELECT id, owner_id, name, type, size, breed, created_at FROM pets WHERE id = $1`
	var (
		p    domain.Pet
		size string
	)
	err := r.queryRow(ctx, query, petID).Scan(&p.ID, &p.OwnerID, &p.Name, &p.Type, &size, &p.Breed, &p.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Pet{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Pet{}, domain.ErrPetNotFound
		}
		return domain.Pet{}, fmt.Errorf("get pet: %w", err)
	}
	p.Size = domain.PetSize(size)
	return p, nil
}

func (r *BookingRepository) GetListing(ctx context.Context, listingID string) (domain.Listing, error) {
	return getListing(ctx, r.conn, listingID, false)
}

func (r *BookingRepository) GetListingForUpdate(ctx context.Context, listingID string) (domain.Listing, error) {
	return getListing(ctx, r.conn, listingID, true)
}

func (r *BookingRepository) FindOverlappingBookings(ctx context.Context, listingID string, stay domain.DateRange) ([]domain.Booking, error) {
	const query = `
SELECT ` + bookingColumns + `
FROM bookings b
WHERE b.listing_id = $1
  AND b.status IN ('requested', 'confirmed')
  AND b.start_date < $3::date
  AND b.end_date > $2::date
ORDER BY b.start_date`

	rows, err := r.query(ctx, query, listingID, stay.StartDate(), stay.EndDate())
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("find overlapping bookings: %w", err)
	}
	return collectBookings(rows)
}

func (r *BookingRepository) FindBookingByIdempotencyKey(ctx context.Context, guestID, key string) (*domain.Booking, error) {
	const query = `
SELECT ` + bookingColumns + `
FROM bookings b
WHERE b.owner_id = $1 AND b.idempotency_key = $2`

	b, err := scanBooking(r.queryRow(ctx, query, guestID, key))
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find booking by idempotency key: %w", err)
	}
	return &b, nil
}

func (r *BookingRepository) CreateBooking(ctx context.Context, b domain.Booking) error {
	const stmt = `
INSERT INTO bookings (
	id, listing_id, owner_id, pet_id, start_date, end_date, nights,
	price_subtotal_inr, taxes_inr, platform_fee_inr, total_inr,
	status, note, idempotency_key, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5::date, $6::date, $7, $8, $9, $10, $11, $12, $13, NULLIF($14, ''), $15, $16)`

	_, err := r.exec(ctx, stmt,
		b.ID,
		b.ListingID,
		b.GuestID,
		b.PetID,
		b.Stay.StartDate(),
		b.Stay.EndDate(),
		b.Nights,
		b.Price.Subtotal,
		b.Price.Taxes,
		b.Price.PlatformFee,
		b.Price.Total,
		b.Status,
		b.Note,
		b.IdempotencyKey,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		switch {
		case isExclusionViolation(err):
			return domain.ErrOverlap
		case isUniqueViolation(err):
			return domain.ErrIdempotencyConflict
		case isInvalidUUID(err):
			return domain.ErrInvalidID
		case isForeignKeyViolation(err):
			switch pgConstraint(err) {
			case "bookings_pet_id_fkey":
				return domain.ErrPetNotFound
			case "bookings_owner_id_fkey":
				return domain.ErrUserNotFound
			default:
				return domain.ErrListingNotFound
			}
		}
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

func (r *BookingRepository) GetBooking(ctx context.Context, bookingID string) (domain.BookingView, error) {
	return r.getBookingView(ctx, bookingID, "")
}

func (r *BookingRepository) GetBookingForUpdate(ctx context.Context, bookingID string) (domain.BookingView, error) {
	return r.getBookingView(ctx, bookingID, "FOR UPDATE OF b")
}

func (r *BookingRepository) getBookingView(ctx context.Context, bookingID, lock string) (domain.BookingView, error) {
	query := `
SELECT ` + bookingColumns + `, l.host_id
FROM bookings b
JOIN listings l ON l.id = b.listing_id
WHERE b.id = $1 ` + lock

	var hostID string
	b, err := scanBooking(r.queryRow(ctx, query, bookingID), &hostID)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.BookingView{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.BookingView{}, domain.ErrBookingNotFound
		}
		return domain.BookingView{}, fmt.Errorf("get booking: %w", err)
	}
	return domain.BookingView{Booking: b, HostID: hostID}, nil
}

func (r *BookingRepository) ListBookingsByGuest(ctx context.Context, guestID string) ([]domain.Booking, error) {
	const query = `
SELECT ` + bookingColumns + `
FROM bookings b
WHERE b.owner_id = $1
ORDER BY b.created_at DESC, b.id DESC`

	rows, err := r.query(ctx, query, guestID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list guest bookings: %w", err)
	}
	return collectBookings(rows)
}

func (r *BookingRepository) ListBookingsByHost(ctx context.Context, hostID string) ([]domain.Booking, error) {
	const query = `
SELECT ` + bookingColumns + `
FROM bookings b
JOIN listings l ON l.id = b.listing_id
WHERE l.host_id = $1
ORDER BY b.created_at DESC, b.id DESC`

	rows, err := r.query(ctx, query, hostID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list host bookings: %w", err)
	}
	return collectBookings(rows)
}

func (r *BookingRepository) UpdateBookingStatus(ctx context.Context, bookingID string, from, to domain.BookingStatus, at time.Time) error {
	const stmt = `UPDATE bookings SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`

	tag, err := r.exec(ctx, stmt, bookingID, from, to, at)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isExclusionViolation(err) {
			return domain.ErrOverlap
		}
		return fmt.Errorf("update booking status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrMoved(ctx, bookingID)
	}
	return nil
}

func (r *BookingRepository) ExpireRequested(ctx context.Context, cutoff, at time.Time) ([]domain.Booking, error) {
	const stmt = `
UPDATE bookings AS b
SET status = 'expired', updated_at = $2
WHERE b.status = 'requested' AND b.created_at < $1
RETURNING ` + bookingColumns

	rows, err := r.query(ctx, stmt, cutoff, at)
	if err != nil {
		return nil, fmt.Errorf("expire requested bookings: %w", err)
	}
	return collectBookings(rows)
}

func (r *BookingRepository) SetPaymentRef(ctx context.Context, bookingID, ref string, at time.Time) error {
	const stmt = `UPDATE bookings SET payment_ref = $2, updated_at = $3 WHERE id = $1`
	return r.updateOne(ctx, "set payment ref", stmt, bookingID, ref, at)
}

func (r *BookingRepository) SetPayoutStatus(ctx context.Context, bookingID string, status domain.PayoutStatus, at time.Time) error {
	const stmt = `UPDATE bookings SET payout_status = $2, updated_at = $3 WHERE id = $1`
	return r.updateOne(ctx, "set payout status", stmt, bookingID, status, at)
}

func (r *BookingRepository) updateOne(ctx context.Context, op, stmt string, args ...any) error {
	tag, err := r.exec(ctx, stmt, args...)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

func (r *BookingRepository) missingOrMoved(ctx context.Context, bookingID string) error {
	var exists bool
	if err := r.queryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, bookingID).Scan(&exists); err != nil {
		return fmt.Errorf("check booking: %w", err)
	}
	if !exists {
		return domain.ErrBookingNotFound
	}
	return domain.ErrInvalidTransition
}
