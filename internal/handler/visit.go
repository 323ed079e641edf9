package handler

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/paraje-tours/reservas/backend/internal/domain"
	"github.com/paraje-tours/reservas/backend/internal/service"
)

// listVisits handles GET /admin/visits?page=&limit=.
func (s *Server) listVisits(w http.ResponseWriter, r *http.Request) {
	page := domain.PaginationFromQuery(r.URL.Query().Get("page"), r.URL.Query().Get("limit"))

	items, total, err := s.visits.List(r.Context(), page)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"visits": items,
		"total":  total,
		"page":   page.Page,
		"limit":  page.Limit,
	})
}

// addVisitRequest is the admin payload for a hand-entered history row.
// Attendees is free text: a pasted JSON list stays structured, anything else
// becomes one attendee named by the raw text.
type addVisitRequest struct {
	RecordAt     *time.Time `json:"record_at"`
	ActivityID   string     `json:"activity_id" validate:"omitempty,uuid"`
	ActivityName string     `json:"activity_name" validate:"required"`
	SlotID       string     `json:"slot_id" validate:"omitempty,uuid"`
	StartAt      time.Time  `json:"start_at"`
	Attendees    string     `json:"attendees"`
	Phone        string     `json:"phone"`
	Email        string     `json:"email" validate:"omitempty,email"`
	PayMethod    string     `json:"pay_method"`
	AmountCents  int        `json:"amount_cents" validate:"min=0"`
	Notes        string     `json:"notes"`
}

// addVisit handles POST /admin/visits.
func (s *Server) addVisit(w http.ResponseWriter, r *http.Request) {
	var req addVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		requestError(w, "request body is required and must be valid JSON")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		requestError(w, validationMessage(err))
		return
	}

	in := service.ManualVisitInput{
		ActivityName:  req.ActivityName,
		StartAt:       req.StartAt,
		AttendeesText: req.Attendees,
		Phone:         req.Phone,
		Email:         req.Email,
		PayMethod:     req.PayMethod,
		AmountCents:   req.AmountCents,
		Notes:         req.Notes,
	}
	if req.RecordAt != nil {
		in.RecordAt = *req.RecordAt
	}
	if req.ActivityID != "" {
		in.ActivityID, _ = uuid.Parse(req.ActivityID)
	}
	if req.SlotID != "" {
		in.SlotID, _ = uuid.Parse(req.SlotID)
	}

	created, err := s.visits.AppendManual(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// deleteVisit handles DELETE /admin/visits/{id}.
func (s *Server) deleteVisit(w http.ResponseWriter, r *http.Request) {
	id, ok := s.urlID(w, r)
	if !ok {
		return
	}
	if err := s.visits.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// visitCSVHeaders defines the column names written as the first row of the
// CSV export.
var visitCSVHeaders = []string{
	"record_at", "reservation_id", "activity_name", "start_at",
	"attendees", "phone", "email", "pay_method", "amount_cents", "notes",
}

// exportVisits handles GET /admin/visits/export.
// Use ?format=csv to receive CSV; default is JSON.
func (s *Server) exportVisits(w http.ResponseWriter, r *http.Request) {
	rows, err := s.visits.Export(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		writeVisitCSV(w, rows)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"visits": rows})
}

// writeVisitCSV encodes export rows as CSV with an attachment disposition.
func writeVisitCSV(w http.ResponseWriter, rows []service.ExportRow) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	//nolint:errcheck — bytes.Buffer.Write never returns an error.
	cw.Write(visitCSVHeaders)
	for _, row := range rows {
		//nolint:errcheck
		cw.Write(exportRowToCSVRecord(row))
	}
	cw.Flush()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="visits.csv"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// exportRowToCSVRecord encodes one export row as a flat string slice.
func exportRowToCSVRecord(r service.ExportRow) []string {
	return []string{
		r.RecordAt,
		r.ReservationID,
		r.ActivityName,
		r.StartAt,
		r.Attendees,
		r.Phone,
		r.Email,
		r.PayMethod,
		strconv.Itoa(r.AmountCents),
		r.Notes,
	}
}
