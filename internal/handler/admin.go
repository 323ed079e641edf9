package handler

import (
	"net/http"
	"strings"

	"github.com/paraje-tours/reservas/backend/internal/domain"
)

// listReservations handles GET /admin/reservations?page=&limit=.
func (s *Server) listReservations(w http.ResponseWriter, r *http.Request) {
	page := domain.PaginationFromQuery(r.URL.Query().Get("page"), r.URL.Query().Get("limit"))

	items, total, err := s.bookings.List(r.Context(), page)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"reservations": items,
		"total":        total,
		"page":         page.Page,
		"limit":        page.Limit,
	})
}

// getReservation handles GET /admin/reservations/{id}.
func (s *Server) getReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := s.urlID(w, r)
	if !ok {
		return
	}
	detail, err := s.bookings.GetDetail(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// confirmReservation handles POST /admin/reservations/{id}/confirm.
// Safe to call repeatedly: the first call issues the check-in code and records
// the visit, later calls return the same reservation and retry the
// notification only if it has not gone out yet.
func (s *Server) confirmReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := s.urlID(w, r)
	if !ok {
		return
	}
	detail, err := s.bookings.ConfirmPayment(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// cancelReservation handles POST /admin/reservations/{id}/cancel.
func (s *Server) cancelReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := s.urlID(w, r)
	if !ok {
		return
	}
	if err := s.bookings.Cancel(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// checkinReservation handles POST /admin/reservations/{id}/checkin.
func (s *Server) checkinReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := s.urlID(w, r)
	if !ok {
		return
	}
	res, err := s.bookings.RecordCheckin(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// checkinLookup handles GET /admin/checkin?code=XXXX-XXXX for the front-desk
// scanner. It only resolves the code to a reservation; stamping the arrival
// is a separate POST so a lookup can never mutate state.
func (s *Server) checkinLookup(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	detail, err := s.bookings.LookupCode(r.Context(), code)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}
