package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paraje-tours/reservas/backend/internal/domain"
	"github.com/paraje-tours/reservas/backend/internal/repo"
)

// ManualVisitInput carries an administrator's hand-entered history row, for
// walk-ins and visits that never went through the booking flow.
// AttendeesText is free text: a JSON attendee list when the admin pastes one,
// anything else is wrapped as a single attendee.
type ManualVisitInput struct {
	RecordAt      time.Time // zero means "now"
	ActivityID    uuid.UUID
	ActivityName  string
	SlotID        uuid.UUID
	StartAt       time.Time
	AttendeesText string
	Phone         string
	Email         string
	PayMethod     string
	AmountCents   int
	Notes         string
}

// VisitService manages the visit-history ledger: paged listing, manual
// entries, corrections (delete), and the flat export.
type VisitService struct {
	visits repo.VisitRepo
}

// NewVisitService constructs a VisitService backed by the provided VisitRepo.
func NewVisitService(visits repo.VisitRepo) *VisitService {
	return &VisitService{visits: visits}
}

// List returns visit records newest first plus the total count.
func (s *VisitService) List(ctx context.Context, page domain.PaginationParams) ([]domain.VisitRecord, int64, error) {
	list, total, err := s.visits.List(ctx, page)
	if err != nil {
		return nil, 0, fmt.Errorf("service.VisitService.List: %w", err)
	}
	if list == nil {
		list = []domain.VisitRecord{}
	}
	return list, total, nil
}

// AppendManual records a hand-entered visit. The entry has no reservation
// reference, and its attendee field goes through the lenient parse: a
// well-formed JSON list stays structured, anything else becomes one attendee
// named by the raw text.
func (s *VisitService) AppendManual(ctx context.Context, in ManualVisitInput) (domain.VisitRecord, error) {
	if strings.TrimSpace(in.ActivityName) == "" {
		return domain.VisitRecord{}, fmt.Errorf(
			"service.VisitService.AppendManual: %w: activity name is required", domain.ErrValidation)
	}

	attendees := domain.AttendeeList{}
	if strings.TrimSpace(in.AttendeesText) != "" {
		attendees = domain.ParseAttendees(in.AttendeesText)
	}

	v := domain.VisitRecord{
		RecordAt:     in.RecordAt,
		ActivityID:   in.ActivityID,
		ActivityName: in.ActivityName,
		SlotID:       in.SlotID,
		StartAt:      in.StartAt,
		Attendees:    attendees,
		Phone:        in.Phone,
		Email:        in.Email,
		PayMethod:    in.PayMethod,
		AmountCents:  in.AmountCents,
		Notes:        in.Notes,
	}

	created, err := s.visits.Append(ctx, v)
	if err != nil {
		return domain.VisitRecord{}, fmt.Errorf("service.VisitService.AppendManual: %w", err)
	}
	return created, nil
}

// Delete removes a history record. This is the only mutation the ledger
// allows after insertion, reserved for administrators fixing mistakes.
func (s *VisitService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.visits.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.VisitService.Delete: %w", err)
	}
	return nil
}

// ExportRow is a single row in the visit-history export: the ledger row
// flattened, with attendees joined into one display string.
type ExportRow struct {
	RecordAt      string `json:"record_at"` // RFC 3339
	ReservationID string `json:"reservation_id"`
	ActivityName  string `json:"activity_name"`
	StartAt       string `json:"start_at"`
	Attendees     string `json:"attendees"` // "Name (band); Name; …"
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	PayMethod     string `json:"pay_method"`
	AmountCents   int    `json:"amount_cents"`
	Notes         string `json:"notes"`
}

// Export returns every ledger row flattened for CSV or JSON download.
func (s *VisitService) Export(ctx context.Context) ([]ExportRow, error) {
	records, err := s.visits.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.VisitService.Export: %w", err)
	}

	rows := make([]ExportRow, 0, len(records))
	for _, v := range records {
		row := ExportRow{
			RecordAt:     v.RecordAt.UTC().Format(time.RFC3339),
			ActivityName: v.ActivityName,
			StartAt:      v.StartAt.UTC().Format(time.RFC3339),
			Attendees:    formatAttendees(v.Attendees),
			Phone:        v.Phone,
			Email:        v.Email,
			PayMethod:    v.PayMethod,
			AmountCents:  v.AmountCents,
			Notes:        v.Notes,
		}
		if v.ReservationID != nil {
			row.ReservationID = v.ReservationID.String()
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// formatAttendees joins attendees with "; ", appending the age band in
// parentheses when known.
func formatAttendees(list domain.AttendeeList) string {
	parts := make([]string, 0, len(list))
	for _, a := range list {
		p := a.Name
		if a.AgeBand != nil && *a.AgeBand != "" {
			p += " (" + *a.AgeBand + ")"
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, "; ")
}
