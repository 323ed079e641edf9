package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/paraje-tours/reservas/backend/internal/domain"
)

// ErrorResponse is the JSON body returned for every error status.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable machine-readable code and a human message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writing response failed", "error", err)
	}
}

// writeError writes an ErrorResponse with the given status, code, and message.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// respondError maps a service error onto the HTTP surface:
//
//	ErrNotFound             → 404 not_found
//	ErrValidation           → 422 validation_error (reason passed through)
//	ErrInsufficientCapacity → 409 insufficient_capacity
//	ErrInvalidState         → 409 invalid_state
//	anything else           → 500 internal (logged; detail not leaked)
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, "validation_error", reasonOf(err))
	case errors.Is(err, domain.ErrInsufficientCapacity):
		writeError(w, http.StatusConflict, "insufficient_capacity", "not enough seats left on this schedule")
	case errors.Is(err, domain.ErrInvalidState):
		writeError(w, http.StatusConflict, "invalid_state", reasonAround(err, domain.ErrInvalidState))
	default:
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

// reasonOf extracts the human-readable part after the validation sentinel.
// e.g. "service.BookingService.Create: validation error: party size must be
// at least 1" → "party size must be at least 1".
func reasonOf(err error) string {
	msg := err.Error()
	const marker = domainValidationText + ": "
	if i := strings.LastIndex(msg, marker); i >= 0 {
		return msg[i+len(marker):]
	}
	return msg
}

// domainValidationText must match domain.ErrValidation's message.
const domainValidationText = "validation error"

// reasonAround returns the wrapping text closest to a sentinel whose message
// ends the error chain, e.g. "…: reservation is not paid: invalid state" →
// "reservation is not paid".
func reasonAround(err error, sentinel error) string {
	msg := strings.TrimSuffix(err.Error(), ": "+sentinel.Error())
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}

// requestError writes a 422 for a request rejected before reaching the
// service layer (missing or malformed body).
func requestError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnprocessableEntity, "validation_error", message)
}

// validationMessage flattens validator.v10 field errors into one readable
// line, e.g. "slot_id: must be a valid UUID; party_size: is required".
func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return "invalid request"
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fe.Field()+": "+tagMessage(fe))
	}
	return strings.Join(parts, "; ")
}

// tagMessage renders one validator tag as a short human message.
func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid UUID"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}
