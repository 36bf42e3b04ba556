package domain

import "errors"

var (
	ErrInvalidID                = errors.New("invalid id")
	ErrInvalidInput             = errors.New("invalid input")
	ErrInvalidDate              = errors.New("invalid date")
	ErrInvalidRange             = errors.New("end date must be after start date")
	ErrStayTooShort             = errors.New("stay shorter than listing minimum")
	ErrStayTooLong              = errors.New("stay longer than listing maximum")
	ErrNoteTooLong              = errors.New("note too long")
	ErrPetNotOwned              = errors.New("pet not owned by guest")
	ErrPetNotFound              = errors.New("pet not found")
	ErrListingNotFound          = errors.New("listing not found")
	ErrListingUnavailable       = errors.New("listing unavailable")
	ErrOverlap                  = errors.New("dates unavailable")
	ErrBookingNotFound          = errors.New("booking not found")
	ErrInvalidTransition        = errors.New("invalid status transition")
	ErrForbidden                = errors.New("forbidden")
	ErrCancellationWindowClosed = errors.New("cancellation window closed")
	ErrIdempotencyConflict      = errors.New("idempotency conflict")
	ErrUserNotFound             = errors.New("user not found")
	ErrUserAlreadyExists        = errors.New("user already exists")
	ErrTitleRequired            = errors.New("title required")
	ErrCityRequired             = errors.New("city required")
	ErrNameRequired             = errors.New("name required")
	ErrEmailRequired            = errors.New("email required")
	ErrInvalidPrice             = errors.New("nightly price must be positive")
	ErrInvalidStayLimits        = errors.New("invalid min/max nights")
	ErrInvalidListingStatus     = errors.New("invalid listing status")
	ErrInvalidPetSize           = errors.New("invalid pet size")
	ErrInvalidPayoutStatus      = errors.New("invalid payout status")
	ErrPaymentRefRequired       = errors.New("payment reference required")
)
