package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pawstay/pawstay/services/api/internal/domain"
)

const (
	codeMethodNotAllowed         = "method_not_allowed"
	codeNotFound                 = "not_found"
	codeUnauthorized             = "unauthorized"
	codeForbidden                = "forbidden"
	codeRateLimited              = "rate_limited"
	codeInvalidRequestBody       = "invalid_request_body"
	codeMissingRequiredField     = "missing_required_field"
	codeInvalidField             = "invalid_field"
	codeInvalidID                = "invalid_id"
	codeInvalidInput             = "invalid_input"
	codeInvalidDate              = "invalid_date"
	codeInvalidRange             = "invalid_range"
	codeStayTooShort             = "stay_too_short"
	codeStayTooLong              = "stay_too_long"
	codeNoteTooLong              = "note_too_long"
	codePetNotOwned              = "pet_not_owned"
	codePetNotFound              = "pet_not_found"
	codeListingNotFound          = "listing_not_found"
	codeListingUnavailable       = "listing_unavailable"
	codeDatesUnavailable         = "dates_unavailable"
	codeBookingNotFound          = "booking_not_found"
	codeInvalidTransition        = "invalid_transition"
	codeCancellationWindowClosed = "cancellation_window_closed"
	codeIdempotencyConflict      = "idempotency_conflict"
	codeUserNotFound             = "user_not_found"
	codeUserAlreadyExists        = "user_already_exists"
	codeTitleRequired            = "title_required"
	codeCityRequired             = "city_required"
	codeNameRequired             = "name_required"
	codeEmailRequired            = "email_required"
	codeInvalidPrice             = "invalid_price"
	codeInvalidStayLimits        = "invalid_stay_limits"
	codeInvalidListingStatus     = "invalid_listing_status"
	codeInvalidPetSize           = "invalid_pet_size"
	codeInvalidPayoutStatus      = "invalid_payout_status"
	codePaymentRefRequired       = "payment_ref_required"
	codeStorageUnavailable       = "storage_unavailable"
	codeInternalError            = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorMapping struct {
	target error
	status int
	code   string
}

// errorStatus is checked in order; the first match wins for errors that
// wrap more than one sentinel.
var errorStatus = []errorMapping{
	{domain.ErrInvalidID, http.StatusBadRequest, codeInvalidID},
	{domain.ErrInvalidInput, http.StatusBadRequest, codeInvalidInput},
	{domain.ErrInvalidDate, http.StatusBadRequest, codeInvalidDate},
	{domain.ErrInvalidRange, http.StatusBadRequest, codeInvalidRange},
	{domain.ErrStayTooShort, http.StatusUnprocessableEntity, codeStayTooShort},
	{domain.ErrStayTooLong, http.StatusUnprocessableEntity, codeStayTooLong},
	{domain.ErrNoteTooLong, http.StatusBadRequest, codeNoteTooLong},
	{domain.ErrPetNotOwned, http.StatusForbidden, codePetNotOwned},
	{domain.ErrPetNotFound, http.StatusNotFound, codePetNotFound},
	{domain.ErrListingNotFound, http.StatusNotFound, codeListingNotFound},
	{domain.ErrListingUnavailable, http.StatusConflict, codeListingUnavailable},
	{domain.ErrOverlap, http.StatusConflict, codeDatesUnavailable},
	{domain.ErrBookingNotFound, http.StatusNotFound, codeBookingNotFound},
	{domain.ErrInvalidTransition, http.StatusConflict, codeInvalidTransition},
	{domain.ErrForbidden, http.StatusForbidden, codeForbidden},
	{domain.ErrCancellationWindowClosed, http.StatusConflict, codeCancellationWindowClosed},
	{domain.ErrIdempotencyConflict, http.StatusConflict, codeIdempotencyConflict},
	{domain.ErrUserNotFound, http.StatusNotFound, codeUserNotFound},
	{domain.ErrUserAlreadyExists, http.StatusConflict, codeUserAlreadyExists},
	{domain.ErrTitleRequired, http.StatusBadRequest, codeTitleRequired},
	{domain.ErrCityRequired, http.StatusBadRequest, codeCityRequired},
	{domain.ErrNameRequired, http.StatusBadRequest, codeNameRequired},
	{domain.ErrEmailRequired, http.StatusBadRequest, codeEmailRequired},
	{domain.ErrInvalidPrice, http.StatusBadRequest, codeInvalidPrice},
	{domain.ErrInvalidStayLimits, http.StatusBadRequest, codeInvalidStayLimits},
	{domain.ErrInvalidListingStatus, http.StatusBadRequest, codeInvalidListingStatus},
	{domain.ErrInvalidPetSize, http.StatusBadRequest, codeInvalidPetSize},
	{domain.ErrInvalidPayoutStatus, http.StatusBadRequest, codeInvalidPayoutStatus},
	{domain.ErrPaymentRefRequired, http.StatusBadRequest, codePaymentRefRequired},
}

// writeServiceError maps a service error to its response. Unknown errors
// become a generic 500; the cause is kept for the request log only.
func writeServiceError(w http.ResponseWriter, err error) {
	for _, m := range errorStatus {
		if errors.Is(err, m.target) {
			writeError(w, m.status, m.code, m.target.Error())
			return
		}
	}
	recordError(w, err)
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
