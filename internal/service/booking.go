// Package service contains the business logic for the booking backend.
// Services validate inputs, enforce the reservation lifecycle, and orchestrate
// repo calls. No SQL lives here — services depend on repo interfaces, not
// implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paraje-tours/reservas/backend/internal/domain"
	"github.com/paraje-tours/reservas/backend/internal/repo"
)

// maxCodeAttempts caps check-in code generation retries. With 32^8 possible
// codes the loop practically never runs twice; the cap only guards against a
// broken uniqueness query.
const maxCodeAttempts = 20

// Notifier is the payment-confirmed notification hook. Implementations live
// in internal/notify (SMTP mail, AMQP event); the service only requires this
// single call contract. A nil-equivalent implementation is notify.Log.
type Notifier interface {
	// PaymentConfirmed tells the guest their payment was confirmed and hands
	// them the check-in code. Must be safe to call again for the same
	// reservation: the service invokes it at most once per reservation that
	// it manages to record, but re-invokes after earlier failures.
	PaymentConfirmed(ctx context.Context, res domain.ReservationDetail, code string) error
}

// CreateReservationInput carries the checkout form fields into Create.
type CreateReservationInput struct {
	SlotID       uuid.UUID
	HolderName   string
	Phone        string
	Email        string
	EmailConfirm string
	PartySize    int
	Companions   []domain.Companion
	Notes        string
	PayMethod    string
}

// BookingService implements the reservation lifecycle:
// create (pending) → confirm (paid, code issued, history written, guest
// notified) → check-in, with cancel possible from pending or paid.
type BookingService struct {
	slots        repo.SlotRepo
	reservations repo.ReservationRepo
	visits       repo.VisitRepo
	notifier     Notifier
	log          *slog.Logger
}

// NewBookingService constructs a BookingService. A nil logger falls back to
// slog.Default.
func NewBookingService(slots repo.SlotRepo, reservations repo.ReservationRepo, visits repo.VisitRepo, notifier Notifier, log *slog.Logger) *BookingService {
	if log == nil {
		log = slog.Default()
	}
	return &BookingService{
		slots:        slots,
		reservations: reservations,
		visits:       visits,
		notifier:     notifier,
		log:          log,
	}
}

// Create validates the booking, claims capacity, and persists a pending
// reservation. On any validation or capacity failure nothing is mutated and
// the error says specifically what was wrong, so the checkout form can be
// redisplayed with that message.
//
// The amount is fixed here — slot price × party size — and never recomputed.
func (s *BookingService) Create(ctx context.Context, in CreateReservationInput) (domain.Reservation, error) {
	if err := in.validate(); err != nil {
		return domain.Reservation{}, fmt.Errorf("service.BookingService.Create: %w", err)
	}

	slot, err := s.slots.GetByID(ctx, in.SlotID)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("service.BookingService.Create: %w", err)
	}

	if err := s.slots.TryReserve(ctx, slot.ID, in.PartySize); err != nil {
		return domain.Reservation{}, fmt.Errorf("service.BookingService.Create: %w", err)
	}

	payMethod := in.PayMethod
	if payMethod == "" {
		payMethod = "deposit"
	}

	res := domain.Reservation{
		SlotID:      slot.ID,
		ActivityID:  slot.ActivityID,
		HolderName:  strings.TrimSpace(in.HolderName),
		Phone:       strings.TrimSpace(in.Phone),
		Email:       strings.TrimSpace(in.Email),
		PartySize:   in.PartySize,
		Companions:  in.Companions,
		Notes:       in.Notes,
		PayMethod:   payMethod,
		AmountCents: slot.PriceCents * in.PartySize,
		Status:      domain.StatusPending,
	}

	created, err := s.reservations.Create(ctx, res)
	if err != nil {
		// Seats were already claimed; give them back so the insert failure
		// does not leak capacity.
		if relErr := s.slots.Release(ctx, slot.ID, in.PartySize); relErr != nil {
			s.log.Error("compensating release failed",
				"slot_id", slot.ID, "qty", in.PartySize, "error", relErr)
		}
		return domain.Reservation{}, fmt.Errorf("service.BookingService.Create: %w", err)
	}

	return created, nil
}

// validate checks the business invariants of a booking request.
// Every failure wraps domain.ErrValidation with the reason shown to the guest.
func (in CreateReservationInput) validate() error {
	if in.PartySize < 1 {
		return fmt.Errorf("%w: party size must be at least 1", domain.ErrValidation)
	}
	if strings.TrimSpace(in.HolderName) == "" {
		return fmt.Errorf("%w: holder name is required", domain.ErrValidation)
	}
	if strings.TrimSpace(in.Email) != strings.TrimSpace(in.EmailConfirm) {
		return fmt.Errorf("%w: email and confirmation do not match", domain.ErrValidation)
	}
	if len(in.Companions) != in.PartySize {
		return fmt.Errorf("%w: personal data is required for each of the %d people",
			domain.ErrValidation, in.PartySize)
	}
	for _, c := range in.Companions {
		if strings.TrimSpace(c.FirstName) == "" ||
			strings.TrimSpace(c.PaternalSurname) == "" ||
			strings.TrimSpace(c.MaternalSurname) == "" ||
			strings.TrimSpace(c.AgeRange) == "" {
			return fmt.Errorf("%w: complete first name, both surnames and age range for every person",
				domain.ErrValidation)
		}
	}
	return nil
}

// ConfirmPayment marks the reservation paid, issuing its check-in code on the
// first call. The operation is idempotent: a second confirm returns the same
// code and appends no second history record.
//
// The notification hook runs whenever paid_email_sent_at is still unset, so a
// failed notification is retried simply by confirming again. Hook failures
// are logged and never fail the confirmation itself.
func (s *BookingService) ConfirmPayment(ctx context.Context, id uuid.UUID) (domain.ReservationDetail, error) {
	d, err := s.reservations.GetDetail(ctx, id)
	if err != nil {
		return domain.ReservationDetail{}, fmt.Errorf("service.BookingService.ConfirmPayment: %w", err)
	}
	if d.Status == domain.StatusCanceled {
		return domain.ReservationDetail{}, fmt.Errorf(
			"service.BookingService.ConfirmPayment: reservation is canceled: %w", domain.ErrInvalidState)
	}

	if d.CheckinCode == nil {
		code, err := s.issueCode(ctx, id)
		if err != nil {
			return domain.ReservationDetail{}, fmt.Errorf("service.BookingService.ConfirmPayment: %w", err)
		}
		d.Status = domain.StatusPaid
		d.CheckinCode = &code

		// The history append is best-effort: a ledger hiccup must not undo
		// a payment confirmation the admin already recorded.
		if _, err := s.visits.Append(ctx, visitFromReservation(d)); err != nil {
			s.log.Error("visit history append failed", "reservation_id", id, "error", err)
		}
	} else if d.Status != domain.StatusPaid {
		// Code already bound but status drifted (legacy data); repair it.
		if err := s.reservations.SetStatus(ctx, id, domain.StatusPaid); err != nil {
			return domain.ReservationDetail{}, fmt.Errorf("service.BookingService.ConfirmPayment: %w", err)
		}
		d.Status = domain.StatusPaid
	}

	if d.PaidEmailSentAt == nil {
		s.notifyPaid(ctx, d)
	}

	return d, nil
}

// issueCode generates a globally unique check-in code and binds it to the
// reservation together with the paid status. The database's unique index
// backstops the probe, so a losing race shows up as ErrDuplicateCode and the
// loop simply draws again.
func (s *BookingService) issueCode(ctx context.Context, id uuid.UUID) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := domain.NewCheckinCode()
		if err != nil {
			return "", err
		}

		inUse, err := s.reservations.CodeInUse(ctx, code)
		if err != nil {
			return "", err
		}
		if inUse {
			continue
		}

		err = s.reservations.SetPaidWithCode(ctx, id, code)
		if errors.Is(err, repo.ErrDuplicateCode) {
			continue
		}
		if err != nil {
			return "", err
		}
		return code, nil
	}
	return "", domain.ErrCodeSpaceExhausted
}

// notifyPaid fires the notification hook and stamps paid_email_sent_at only
// when the hook reports success, preserving at-most-once delivery while
// keeping failures retryable via a later confirm.
func (s *BookingService) notifyPaid(ctx context.Context, d domain.ReservationDetail) {
	if s.notifier == nil {
		return
	}
	code := ""
	if d.CheckinCode != nil {
		code = *d.CheckinCode
	}
	if err := s.notifier.PaymentConfirmed(ctx, d, code); err != nil {
		s.log.Warn("payment-confirmed notification failed",
			"reservation_id", d.ID, "error", err)
		return
	}
	if err := s.reservations.SetPaidEmailSentAt(ctx, d.ID, time.Now().UTC()); err != nil {
		s.log.Error("recording notification timestamp failed",
			"reservation_id", d.ID, "error", err)
	}
}

// visitFromReservation builds the ledger entry written on first confirmation:
// the holder plus every companion, with the companions' age bands.
func visitFromReservation(d domain.ReservationDetail) domain.VisitRecord {
	people := domain.AttendeeList{{Name: d.HolderName}}
	for _, c := range d.Companions {
		band := c.AgeRange
		people = append(people, domain.Attendee{Name: c.FullName(), AgeBand: &band})
	}
	return domain.VisitRecord{
		ReservationID: &d.ID,
		ActivityID:    d.ActivityID,
		ActivityName:  d.ActivityName,
		SlotID:        d.SlotID,
		StartAt:       d.StartAt,
		Attendees:     people,
		Phone:         d.Phone,
		Email:         d.Email,
		PayMethod:     d.PayMethod,
		AmountCents:   d.AmountCents,
		Notes:         d.Notes,
	}
}

// Cancel releases the reservation's seats back to its slot and marks it
// canceled. Canceling an already-canceled reservation is a no-op success, so
// a double-submitted cancel form cannot release capacity twice.
func (s *BookingService) Cancel(ctx context.Context, id uuid.UUID) error {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("service.BookingService.Cancel: %w", err)
	}
	if res.Status == domain.StatusCanceled {
		return nil
	}

	if err := s.slots.Release(ctx, res.SlotID, res.PartySize); err != nil {
		return fmt.Errorf("service.BookingService.Cancel: %w", err)
	}
	if err := s.reservations.SetStatus(ctx, id, domain.StatusCanceled); err != nil {
		return fmt.Errorf("service.BookingService.Cancel: %w", err)
	}
	return nil
}

// RecordCheckin stamps the guest's physical arrival. Only paid reservations
// can check in; the stamp is first-write-wins, so re-scanning a code at the
// gate keeps the original arrival time.
func (s *BookingService) RecordCheckin(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("service.BookingService.RecordCheckin: %w", err)
	}
	if res.Status != domain.StatusPaid {
		return domain.Reservation{}, fmt.Errorf(
			"service.BookingService.RecordCheckin: reservation is not paid: %w", domain.ErrInvalidState)
	}

	stamped, err := s.reservations.SetCheckedIn(ctx, id, time.Now().UTC())
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("service.BookingService.RecordCheckin: %w", err)
	}
	if !stamped {
		// Already checked in; return the reservation with its original stamp.
		return res, nil
	}

	res, err = s.reservations.GetByID(ctx, id)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("service.BookingService.RecordCheckin: %w", err)
	}
	return res, nil
}

// LookupCode resolves a check-in code to its reservation for the gate desk.
// Matching is case-insensitive and ignores surrounding whitespace.
func (s *BookingService) LookupCode(ctx context.Context, code string) (domain.ReservationDetail, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.ReservationDetail{}, fmt.Errorf(
			"service.BookingService.LookupCode: %w: enter a check-in code", domain.ErrValidation)
	}
	d, err := s.reservations.LookupByCode(ctx, code)
	if err != nil {
		return domain.ReservationDetail{}, fmt.Errorf("service.BookingService.LookupCode: %w", err)
	}
	return d, nil
}

// LookupByIDAndPhone is the guest self-service lookup: the reservation ID
// from the confirmation screen plus the last two digits of the phone number
// given at checkout.
func (s *BookingService) LookupByIDAndPhone(ctx context.Context, id uuid.UUID, phoneSuffix string) (domain.ReservationDetail, error) {
	phoneSuffix = strings.TrimSpace(phoneSuffix)
	if len(phoneSuffix) != 2 {
		return domain.ReservationDetail{}, fmt.Errorf(
			"service.BookingService.LookupByIDAndPhone: %w: enter the last two digits of your phone number",
			domain.ErrValidation)
	}
	d, err := s.reservations.LookupByIDAndPhone(ctx, id, phoneSuffix)
	if err != nil {
		return domain.ReservationDetail{}, fmt.Errorf("service.BookingService.LookupByIDAndPhone: %w", err)
	}
	return d, nil
}

// List returns the admin reservations view, newest slot first.
func (s *BookingService) List(ctx context.Context, page domain.PaginationParams) ([]domain.ReservationDetail, int64, error) {
	list, total, err := s.reservations.List(ctx, page)
	if err != nil {
		return nil, 0, fmt.Errorf("service.BookingService.List: %w", err)
	}
	if list == nil {
		list = []domain.ReservationDetail{}
	}
	return list, total, nil
}

// GetDetail returns one reservation with its joined slot and activity fields.
func (s *BookingService) GetDetail(ctx context.Context, id uuid.UUID) (domain.ReservationDetail, error) {
	d, err := s.reservations.GetDetail(ctx, id)
	if err != nil {
		return domain.ReservationDetail{}, fmt.Errorf("service.BookingService.GetDetail: %w", err)
	}
	return d, nil
}
