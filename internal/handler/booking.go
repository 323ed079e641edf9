package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/paraje-tours/reservas/backend/internal/domain"
	"github.com/paraje-tours/reservas/backend/internal/service"
)

// createBookingRequest is the checkout payload. Structural checks (shape,
// formats) run through the validator tags; the business invariants — party
// size vs companions, email confirmation — stay in the service so their
// error messages come from one place.
type createBookingRequest struct {
	SlotID       string             `json:"slot_id" validate:"required,uuid"`
	HolderName   string             `json:"holder_name" validate:"required"`
	Phone        string             `json:"phone"`
	Email        string             `json:"email" validate:"omitempty,email"`
	EmailConfirm string             `json:"email_confirm"`
	PartySize    int                `json:"party_size" validate:"required,min=1"`
	Companions   []domain.Companion `json:"companions"`
	Notes        string             `json:"notes"`
	PayMethod    string             `json:"pay_method"`
}

// reservationResponse is the public view of a reservation: the check-in code
// and the notification marker are admin-side fields and never leave through
// the public surface.
type reservationResponse struct {
	ID          uuid.UUID                `json:"id"`
	SlotID      uuid.UUID                `json:"slot_id"`
	ActivityID  uuid.UUID                `json:"activity_id"`
	HolderName  string                   `json:"holder_name"`
	PartySize   int                      `json:"party_size"`
	AmountCents int                      `json:"amount_cents"`
	PayMethod   string                   `json:"pay_method"`
	Status      domain.ReservationStatus `json:"status"`
	CreatedAt   time.Time                `json:"created_at"`
}

// createBooking handles POST /bookings.
func (s *Server) createBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		requestError(w, "request body is required and must be valid JSON")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		requestError(w, validationMessage(err))
		return
	}
	slotID, err := uuid.Parse(req.SlotID)
	if err != nil {
		requestError(w, "slot_id: must be a valid UUID")
		return
	}

	created, err := s.bookings.Create(r.Context(), service.CreateReservationInput{
		SlotID:       slotID,
		HolderName:   req.HolderName,
		Phone:        req.Phone,
		Email:        req.Email,
		EmailConfirm: req.EmailConfirm,
		PartySize:    req.PartySize,
		Companions:   req.Companions,
		Notes:        req.Notes,
		PayMethod:    req.PayMethod,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toReservationResponse(created))
}

// lookupRequest is the guest self-service lookup payload.
type lookupRequest struct {
	ReservationID string `json:"reservation_id" validate:"required,uuid"`
	PhoneSuffix   string `json:"phone_suffix" validate:"required,len=2"`
}

// lookupReservation handles POST /reservations/lookup.
// It is a POST, not a GET, so reservation IDs and phone digits stay out of
// access logs and browser history.
func (s *Server) lookupReservation(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		requestError(w, "request body is required and must be valid JSON")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		requestError(w, validationMessage(err))
		return
	}
	id, err := uuid.Parse(req.ReservationID)
	if err != nil {
		requestError(w, "reservation_id: must be a valid UUID")
		return
	}

	detail, err := s.bookings.LookupByIDAndPhone(r.Context(), id, req.PhoneSuffix)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toPublicDetail(detail))
}

// publicDetailResponse is the guest-facing reservation view with the schedule
// attached — same redactions as reservationResponse.
type publicDetailResponse struct {
	reservationResponse
	ActivityName string     `json:"activity_name"`
	StartAt      time.Time  `json:"start_at"`
	EndAt        time.Time  `json:"end_at"`
	CheckedInAt  *time.Time `json:"checked_in_at,omitempty"`
}

// --- mapping helpers --------------------------------------------------------

func toReservationResponse(res domain.Reservation) reservationResponse {
	return reservationResponse{
		ID:          res.ID,
		SlotID:      res.SlotID,
		ActivityID:  res.ActivityID,
		HolderName:  res.HolderName,
		PartySize:   res.PartySize,
		AmountCents: res.AmountCents,
		PayMethod:   res.PayMethod,
		Status:      res.Status,
		CreatedAt:   res.CreatedAt,
	}
}

func toPublicDetail(d domain.ReservationDetail) publicDetailResponse {
	return publicDetailResponse{
		reservationResponse: toReservationResponse(d.Reservation),
		ActivityName:        d.ActivityName,
		StartAt:             d.StartAt,
		EndAt:               d.EndAt,
		CheckedInAt:         d.CheckedInAt,
	}
}
