package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pawstay/pawstay/services/api/internal/domain"
)

// BookingRepository stores bookings in SQLite. Every write transaction takes
// the database lock up front, and the bookings_no_overlap triggers refuse any
// row that would double-book a listing.
type BookingRepository struct {
	conn
}

func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{conn: conn{db: db}}
}

func (r *BookingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.db, fn)
}

const bookingColumns = `
b.id AS id, b.listing_id AS listing_id, b.owner_id AS owner_id, b.pet_id AS pet_id,
b.start_date AS start_date, b.end_date AS end_date, b.nights AS nights,
b.price_subtotal_inr AS price_subtotal_inr, b.taxes_inr AS taxes_inr,
b.platform_fee_inr AS platform_fee_inr, b.total_inr AS total_inr,
b.status AS status, b.note AS note, b.payment_ref AS payment_ref,
b.payout_status AS payout_status, b.idempotency_key AS idempotency_key,
b.created_at AS created_at, b.updated_at AS updated_at`

type bookingRow struct {
	ID             string         `db:"id"`
	ListingID      string         `db:"listing_id"`
	OwnerID        string         `db:"owner_id"`
	PetID          string         `db:"pet_id"`
	StartDate      string         `db:"start_date"`
	EndDate        string         `db:"end_date"`
	Nights         int            `db:"nights"`
	Subtotal       int64          `db:"price_subtotal_inr"`
	Taxes          int64          `db:"taxes_inr"`
	PlatformFee    int64          `db:"platform_fee_inr"`
	Total          int64          `db:"total_inr"`
	Status         string         `db:"status"`
	Note           string         `db:"note"`
	PaymentRef     sql.NullString `db:"payment_ref"`
	PayoutStatus   sql.NullString `db:"payout_status"`
	IdempotencyKey sql.NullString `db:"idempotency_key"`
	CreatedAt      timestamp      `db:"created_at"`
	UpdatedAt      timestamp      `db:"updated_at"`
	HostID         string         `db:"host_id"`
}

func (row bookingRow) toDomain() (domain.Booking, error) {
	stay, err := domain.ParseDateRange(row.StartDate, row.EndDate)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("booking %s: stored stay %s..%s: %w", row.ID, row.StartDate, row.EndDate, err)
	}
	return domain.Booking{
		ID:        row.ID,
		ListingID: row.ListingID,
		GuestID:   row.OwnerID,
		PetID:     row.PetID,
		Stay:      stay,
		Nights:    row.Nights,
		Price: domain.PriceBreakdown{
			Subtotal:    row.Subtotal,
			Taxes:       row.Taxes,
			PlatformFee: row.PlatformFee,
			Total:       row.Total,
		},
		Status:         domain.BookingStatus(row.Status),
		Note:           row.Note,
		PaymentRef:     row.PaymentRef.String,
		PayoutStatus:   domain.PayoutStatus(row.PayoutStatus.String),
		IdempotencyKey: row.IdempotencyKey.String,
		CreatedAt:      row.CreatedAt.Time,
		UpdatedAt:      row.UpdatedAt.Time,
	}, nil
}

func toBookings(rows []bookingRow) ([]domain.Booking, error) {
	bookings := make([]domain.Booking, 0, len(rows))
	for _, row := range rows {
		b, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

func (r *BookingRepository) GetPet(ctx context.Context, petID string) (domain.Pet, error) {
	var row petRow
	err := r.get(ctx, &row, `SELECT `+petColumns+` FROM pets WHERE id = ?`, petID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Pet{}, domain.ErrPetNotFound
		}
		return domain.Pet{}, fmt.Errorf("get pet: %w", err)
	}
	return row.toDomain(), nil
}

func (r *BookingRepository) GetListing(ctx context.Context, listingID string) (domain.Listing, error) {
	return getListing(ctx, r.conn, listingID)
}

// GetListingForUpdate reads the listing. The IMMEDIATE transaction already
// holds the write lock, so no row lock is needed.
func (r *BookingRepository) GetListingForUpdate(ctx context.Context, listingID string) (domain.Listing, error) {
	return getListing(ctx, r.conn, listingID)
}

func (r *BookingRepository) FindOverlappingBookings(ctx context.Context, listingID string, stay domain.DateRange) ([]domain.Booking, error) {
	const query = `
SELECT ` + bookingColumns + `
FROM bookings b
WHERE b.listing_id = ?
  AND b.status IN ('requested', 'confirmed')
  AND b.start_date < ?
  AND b.end_date > ?
ORDER BY b.start_date`

	var rows []bookingRow
	if err := r.selectAll(ctx, &rows, query, listingID, stay.EndDate(), stay.StartDate()); err != nil {
		return nil, fmt.Errorf("find overlapping bookings: %w", err)
	}
	return toBookings(rows)
}

func (r *BookingRepository) FindBookingByIdempotencyKey(ctx context.Context, guestID, key string) (*domain.Booking, error) {
	const query = `
SELECT ` + bookingColumns + `
FROM bookings b
WHERE b.owner_id = ? AND b.idempotency_key = ?`

	var row bookingRow
	if err := r.get(ctx, &row, query, guestID, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find booking by idempotency key: %w", err)
	}
	b, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepository) CreateBooking(ctx context.Context, b domain.Booking) error {
	const stmt = `
INSERT INTO bookings (
	id, listing_id, owner_id, pet_id, start_date, end_date, nights,
	price_subtotal_inr, taxes_inr, platform_fee_inr, total_inr,
	status, note, idempotency_key, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?)`

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
		string(b.Status),
		b.Note,
		b.IdempotencyKey,
		ts(b.CreatedAt),
		ts(b.UpdatedAt),
	)
	if err != nil {
		switch {
		case isOverlap(err):
			return domain.ErrOverlap
		case isUniqueViolation(err):
			return domain.ErrIdempotencyConflict
		case isForeignKeyViolation(err):
			return domain.ErrListingNotFound
		}
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

func (r *BookingRepository) GetBooking(ctx context.Context, bookingID string) (domain.BookingView, error) {
	return r.getBookingView(ctx, bookingID)
}

// GetBookingForUpdate is GetBooking; the surrounding IMMEDIATE transaction
// holds the lock.
func (r *BookingRepository) GetBookingForUpdate(ctx context.Context, bookingID string) (domain.BookingView, error) {
	return r.getBookingView(ctx, bookingID)
}

func (r *BookingRepository) getBookingView(ctx context.Context, bookingID string) (domain.BookingView, error) {
	const query = `
SELECT ` + bookingColumns + `, l.host_id AS host_id
FROM bookings b
JOIN listings l ON l.id = b.listing_id
WHERE b.id = ?`

	var row bookingRow
	if err := r.get(ctx, &row, query, bookingID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.BookingView{}, domain.ErrBookingNotFound
		}
		return domain.BookingView{}, fmt.Errorf("get booking: %w", err)
	}
	b, err := row.toDomain()
	if err != nil {
		return domain.BookingView{}, err
	}
	return domain.BookingView{Booking: b, HostID: row.HostID}, nil
}

func (r *BookingRepository) ListBookingsByGuest(ctx context.Context, guestID string) ([]domain.Booking, error) {
	const query = `
SELECT ` + bookingColumns + `
FROM bookings b
WHERE b.owner_id = ?
ORDER BY b.created_at DESC, b.id DESC`

	var rows []bookingRow
	if err := r.selectAll(ctx, &rows, query, guestID); err != nil {
		return nil, fmt.Errorf("list guest bookings: %w", err)
	}
	return toBookings(rows)
}

func (r *BookingRepository) ListBookingsByHost(ctx context.Context, hostID string) ([]domain.Booking, error) {
	const query = `
SELECT ` + bookingColumns + `
FROM bookings b
JOIN listings l ON l.id = b.listing_id
WHERE l.host_id = ?
ORDER BY b.created_at DESC, b.id DESC`

	var rows []bookingRow
	if err := r.selectAll(ctx, &rows, query, hostID); err != nil {
		return nil, fmt.Errorf("list host bookings: %w", err)
	}
	return toBookings(rows)
}

func (r *BookingRepository) UpdateBookingStatus(ctx context.Context, bookingID string, from, to domain.BookingStatus, at time.Time) error {
	const stmt = `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`

	res, err := r.exec(ctx, stmt, string(to), ts(at), bookingID, string(from))
	if err != nil {
		if isOverlap(err) {
			return domain.ErrOverlap
		}
		return fmt.Errorf("update booking status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if n == 0 {
		return r.missingOrMoved(ctx, bookingID)
	}
	return nil
}

// ExpireRequested selects and updates in one transaction so the returned set
// matches exactly what was moved.
func (r *BookingRepository) ExpireRequested(ctx context.Context, cutoff, at time.Time) ([]domain.Booking, error) {
	var expired []domain.Booking
	err := r.WithTx(ctx, func(txCtx context.Context) error {
		const query = `
SELECT ` + bookingColumns + `
FROM bookings b
WHERE b.status = 'requested' AND b.created_at < ?
ORDER BY b.created_at`

		var rows []bookingRow
		if err := r.selectAll(txCtx, &rows, query, ts(cutoff)); err != nil {
			return fmt.Errorf("select stale bookings: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}

		const stmt = `UPDATE bookings SET status = 'expired', updated_at = ? WHERE status = 'requested' AND created_at < ?`
		if _, err := r.exec(txCtx, stmt, ts(at), ts(cutoff)); err != nil {
			return fmt.Errorf("expire requested bookings: %w", err)
		}

		bookings, err := toBookings(rows)
		if err != nil {
			return err
		}
		for i := range bookings {
			bookings[i].Status = domain.BookingStatusExpired
			bookings[i].UpdatedAt = at
		}
		expired = bookings
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}

func (r *BookingRepository) SetPaymentRef(ctx context.Context, bookingID, ref string, at time.Time) error {
	const stmt = `UPDATE bookings SET payment_ref = ?, updated_at = ? WHERE id = ?`
	return r.updateOne(ctx, "set payment ref", stmt, ref, ts(at), bookingID)
}

func (r *BookingRepository) SetPayoutStatus(ctx context.Context, bookingID string, status domain.PayoutStatus, at time.Time) error {
	const stmt = `UPDATE bookings SET payout_status = ?, updated_at = ? WHERE id = ?`
	return r.updateOne(ctx, "set payout status", stmt, string(status), ts(at), bookingID)
}

func (r *BookingRepository) updateOne(ctx context.Context, op, stmt string, args ...any) error {
	res, err := r.exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

func (r *BookingRepository) missingOrMoved(ctx context.Context, bookingID string) error {
	var exists bool
	if err := r.get(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = ?)`, bookingID); err != nil {
		return fmt.Errorf("check booking: %w", err)
	}
	if !exists {
		return domain.ErrBookingNotFound
	}
	return domain.ErrInvalidTransition
}
