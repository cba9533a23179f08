// Package handler exposes the engine over HTTP. Handlers stay thin:
// decode, validate, resolve the session, call the engine, map errors.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/nexpos/engine/internal/cart"
	"github.com/nexpos/engine/internal/service"
	"github.com/nexpos/engine/internal/settlement"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON parses and validates a request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// writeEngineError maps engine errors onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotPermitted):
		writeErr(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrShiftRequired),
		errors.Is(err, service.ErrShiftAlreadyActive),
		errors.Is(err, service.ErrNoOpenOrder),
		errors.Is(err, service.ErrProtectedStaff),
		errors.Is(err, service.ErrInsufficientTender):
		writeErr(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrTableNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrCustomerNotFound),
		errors.Is(err, service.ErrShiftNotFound),
		errors.Is(err, service.ErrReservationNotFound),
		errors.Is(err, service.ErrStaffNotFound),
		errors.Is(err, service.ErrNoOutstandingDue):
		writeErr(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrProductUnavailable),
		errors.Is(err, service.ErrPhoneRequired),
		errors.Is(err, service.ErrAddressRequired),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, cart.ErrVariantRequired),
		errors.Is(err, cart.ErrUnknownVariantGroup),
		errors.Is(err, cart.ErrUnknownVariantOption),
		errors.Is(err, settlement.ErrInvalidDiscountType),
		errors.Is(err, settlement.ErrNegativeDiscount),
		errors.Is(err, settlement.ErrInvalidPaymentMethod),
		errors.Is(err, settlement.ErrNonPositiveTender):
		writeErr(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeErr(w, http.StatusUnauthorized, err.Error())
	default:
		writeErr(w, http.StatusInternalServerError, "internal error")
	}
}
