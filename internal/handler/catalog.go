package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/paraje-tours/reservas/backend/internal/domain"
)

// listActivities handles GET /activities.
func (s *Server) listActivities(w http.ResponseWriter, r *http.Request) {
	acts, err := s.catalog.ListActivities(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activities": acts})
}

// getActivity handles GET /activities/{id}.
func (s *Server) getActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := s.urlID(w, r)
	if !ok {
		return
	}
	act, err := s.catalog.GetActivity(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, act)
}

// slotResponse is the public view of a schedule slot. Reserved seats are not
// exposed raw; visitors only need to know how many are left.
type slotResponse struct {
	ID         string    `json:"id"`
	ActivityID string    `json:"activity_id"`
	StartAt    time.Time `json:"start_at"`
	EndAt      time.Time `json:"end_at"`
	PriceCents int       `json:"price_cents"`
	Available  int       `json:"available"`
}

// listPublicSlots handles GET /activities/{id}/slots. Only published slots
// are visible here.
func (s *Server) listPublicSlots(w http.ResponseWriter, r *http.Request) {
	id, ok := s.urlID(w, r)
	if !ok {
		return
	}
	slots, err := s.catalog.ListSlots(r.Context(), id, true)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]slotResponse, 0, len(slots))
	for _, sl := range slots {
		out = append(out, slotResponse{
			ID:         sl.ID.String(),
			ActivityID: sl.ActivityID.String(),
			StartAt:    sl.StartAt,
			EndAt:      sl.EndAt,
			PriceCents: sl.PriceCents,
			Available:  sl.Available(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": out})
}

// createActivityRequest is the admin payload for POST /admin/activities.
type createActivityRequest struct {
	Name           string `json:"name" validate:"required"`
	Description    string `json:"description"`
	Location       string `json:"location"`
	BasePriceCents int    `json:"base_price_cents" validate:"min=0"`
	Policy         string `json:"policy"`
}

// createActivity handles POST /admin/activities.
func (s *Server) createActivity(w http.ResponseWriter, r *http.Request) {
	var req createActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		requestError(w, "request body is required and must be valid JSON")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		requestError(w, validationMessage(err))
		return
	}

	created, err := s.catalog.CreateActivity(r.Context(), domain.Activity{
		Name:           req.Name,
		Description:    req.Description,
		Location:       req.Location,
		BasePriceCents: req.BasePriceCents,
		Policy:         req.Policy,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// deleteActivity handles DELETE /admin/activities/{id}.
func (s *Server) deleteActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := s.urlID(w, r)
	if !ok {
		return
	}
	if err := s.catalog.DeleteActivity(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listAdminSlots handles GET /admin/activities/{id}/slots. Unlike the public
// listing it includes unpublished slots and the raw seat counters.
func (s *Server) listAdminSlots(w http.ResponseWriter, r *http.Request) {
	id, ok := s.urlID(w, r)
	if !ok {
		return
	}
	slots, err := s.catalog.ListSlots(r.Context(), id, false)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

// createSlotRequest is the admin payload for POST /admin/activities/{id}/slots.
type createSlotRequest struct {
	StartAt       time.Time `json:"start_at" validate:"required"`
	EndAt         time.Time `json:"end_at" validate:"required"`
	CapacityTotal int       `json:"capacity_total" validate:"min=0"`
	PriceCents    int       `json:"price_cents" validate:"min=0"`
	Published     bool      `json:"published"`
}

// createSlot handles POST /admin/activities/{id}/slots.
func (s *Server) createSlot(w http.ResponseWriter, r *http.Request) {
	id, ok := s.urlID(w, r)
	if !ok {
		return
	}
	var req createSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		requestError(w, "request body is required and must be valid JSON")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		requestError(w, validationMessage(err))
		return
	}

	created, err := s.catalog.CreateSlot(r.Context(), domain.ScheduleSlot{
		ActivityID:    id,
		StartAt:       req.StartAt,
		EndAt:         req.EndAt,
		CapacityTotal: req.CapacityTotal,
		PriceCents:    req.PriceCents,
		Published:     req.Published,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// deleteSlot handles DELETE /admin/slots/{id}.
func (s *Server) deleteSlot(w http.ResponseWriter, r *http.Request) {
	id, ok := s.urlID(w, r)
	if !ok {
		return
	}
	if err := s.catalog.DeleteSlot(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
