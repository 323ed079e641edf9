package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/paraje-tours/reservas/backend/internal/domain"
)

// ErrDuplicateCode is returned by SetPaidWithCode when the generated check-in
// code collided with an existing one under the partial unique index. The
// service retries generation; the pre-insert probe makes this a rare race.
var ErrDuplicateCode = errors.New("checkin code already in use")

// uniqueViolation is the Postgres error code for unique constraint violations.
const uniqueViolation = "23505"

// ReservationRepo defines the persistence operations for reservations.
// Status and check-in transitions are narrow single-column updates rather
// than a generic Update: the service layer owns the lifecycle rules and the
// repo only exposes the moves the lifecycle actually makes.
type ReservationRepo interface {
	// Create inserts a new reservation and returns the persisted record.
	// The caller must have already claimed capacity via SlotRepo.TryReserve.
	Create(ctx context.Context, res domain.Reservation) (domain.Reservation, error)

	// GetByID retrieves a single reservation by its UUID primary key.
	// Returns domain.ErrNotFound if no reservation with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Reservation, error)

	// GetDetail retrieves a reservation joined with its slot's schedule and
	// activity name. Returns domain.ErrNotFound when the reservation does not
	// exist or its slot has been deleted.
	GetDetail(ctx context.Context, id uuid.UUID) (domain.ReservationDetail, error)

	// List returns reservations joined with slot/activity data, ordered by
	// slot start time descending, plus the total row count for pagination.
	List(ctx context.Context, page domain.PaginationParams) ([]domain.ReservationDetail, int64, error)

	// LookupByCode finds the reservation carrying the given check-in code.
	// Matching is case-insensitive. Returns domain.ErrNotFound on a miss.
	LookupByCode(ctx context.Context, code string) (domain.ReservationDetail, error)

	// LookupByIDAndPhone is the guest self-service lookup: reservation ID
	// plus the last two digits of the contact phone number.
	LookupByIDAndPhone(ctx context.Context, id uuid.UUID, phoneSuffix string) (domain.ReservationDetail, error)

	// CodeInUse reports whether any reservation already carries code.
	CodeInUse(ctx context.Context, code string) (bool, error)

	// SetPaidWithCode marks the reservation paid and binds the check-in code
	// in one statement. Returns ErrDuplicateCode if the code is already taken.
	SetPaidWithCode(ctx context.Context, id uuid.UUID, code string) error

	// SetStatus updates only the status column.
	SetStatus(ctx context.Context, id uuid.UUID, status domain.ReservationStatus) error

	// SetCheckedIn stamps checked_in_at if it is not already set and reports
	// whether this call did the stamping. A false return with nil error means
	// the reservation was already checked in (the first stamp is kept).
	SetCheckedIn(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	// SetPaidEmailSentAt records that the payment-confirmed notification
	// succeeded, making later confirms skip the hook.
	SetPaidEmailSentAt(ctx context.Context, id uuid.UUID, at time.Time) error
}

type pgReservationRepo struct {
	db db
}

// NewReservationRepo constructs a ReservationRepo backed by the provided db connection.
func NewReservationRepo(db db) ReservationRepo {
	return &pgReservationRepo{db: db}
}

// reservationCols is the column list shared by every query returning a bare
// reservation. Keep in sync with scanReservation.
const reservationCols = `id, slot_id, activity_id, holder_name, phone, email, party_size,
	companions, notes, pay_method, amount_cents, status, checkin_code,
	checked_in_at, paid_email_sent_at, created_at`

// detailCols prefixes reservationCols with the joined slot/activity fields.
const detailCols = `r.id, r.slot_id, r.activity_id, r.holder_name, r.phone, r.email, r.party_size,
	r.companions, r.notes, r.pay_method, r.amount_cents, r.status, r.checkin_code,
	r.checked_in_at, r.paid_email_sent_at, r.created_at,
	a.name, s.start_at, s.end_at`

// detailJoin attaches the slot and, through it, the activity. Reservations
// whose slot was deleted drop out of joined queries — an accepted limitation
// of slot deletion.
const detailJoin = `
	FROM reservation r
	JOIN schedule_slot s ON s.id = r.slot_id
	JOIN activity a ON a.id = s.activity_id`

func (r *pgReservationRepo) Create(ctx context.Context, res domain.Reservation) (domain.Reservation, error) {
	const q = `
		INSERT INTO reservation (slot_id, activity_id, holder_name, phone, email, party_size,
			companions, notes, pay_method, amount_cents, status)
		VALUES (@slot_id, @activity_id, @holder_name, @phone, @email, @party_size,
			@companions, @notes, @pay_method, @amount_cents, @status)
		RETURNING ` + reservationCols

	args := pgx.NamedArgs{
		"slot_id":      res.SlotID,
		"activity_id":  res.ActivityID,
		"holder_name":  res.HolderName,
		"phone":        res.Phone,
		"email":        res.Email,
		"party_size":   res.PartySize,
		"companions":   res.Companions,
		"notes":        res.Notes,
		"pay_method":   res.PayMethod,
		"amount_cents": res.AmountCents,
		"status":       res.Status,
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanReservation(row)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("repo.ReservationRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgReservationRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	q := `SELECT ` + reservationCols + ` FROM reservation WHERE id = @id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanReservation(row)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("repo.ReservationRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgReservationRepo) GetDetail(ctx context.Context, id uuid.UUID) (domain.ReservationDetail, error) {
	q := `SELECT ` + detailCols + detailJoin + ` WHERE r.id = @id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanDetail(row)
	if err != nil {
		return domain.ReservationDetail{}, fmt.Errorf("repo.ReservationRepo.GetDetail: %w", err)
	}
	return result, nil
}

func (r *pgReservationRepo) List(ctx context.Context, page domain.PaginationParams) ([]domain.ReservationDetail, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*)`+detailJoin).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.ReservationRepo.List: count: %w", err)
	}

	q := `SELECT ` + detailCols + detailJoin + `
	ORDER BY s.start_at DESC
	LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"limit": page.Limit, "offset": page.Offset()})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.ReservationRepo.List: %w", err)
	}
	defer rows.Close()

	var list []domain.ReservationDetail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.ReservationRepo.List: scan: %w", err)
		}
		list = append(list, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.ReservationRepo.List: rows: %w", err)
	}

	return list, total, nil
}

func (r *pgReservationRepo) LookupByCode(ctx context.Context, code string) (domain.ReservationDetail, error) {
	q := `SELECT ` + detailCols + detailJoin + ` WHERE upper(r.checkin_code) = upper(@code)`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"code": code})
	result, err := scanDetail(row)
	if err != nil {
		return domain.ReservationDetail{}, fmt.Errorf("repo.ReservationRepo.LookupByCode: %w", err)
	}
	return result, nil
}

func (r *pgReservationRepo) LookupByIDAndPhone(ctx context.Context, id uuid.UUID, phoneSuffix string) (domain.ReservationDetail, error) {
	q := `SELECT ` + detailCols + detailJoin + `
	WHERE r.id = @id AND right(r.phone, 2) = @suffix`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "suffix": phoneSuffix})
	result, err := scanDetail(row)
	if err != nil {
		return domain.ReservationDetail{}, fmt.Errorf("repo.ReservationRepo.LookupByIDAndPhone: %w", err)
	}
	return result, nil
}

func (r *pgReservationRepo) CodeInUse(ctx context.Context, code string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM reservation WHERE upper(checkin_code) = upper(@code))`

	var exists bool
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"code": code}).Scan(&exists); err != nil {
		return false, fmt.Errorf("repo.ReservationRepo.CodeInUse: %w", err)
	}
	return exists, nil
}

func (r *pgReservationRepo) SetPaidWithCode(ctx context.Context, id uuid.UUID, code string) error {
	const q = `
		UPDATE reservation
		SET status = @status, checkin_code = @code
		WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{
		"id":     id,
		"status": domain.StatusPaid,
		"code":   code,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("repo.ReservationRepo.SetPaidWithCode: %w", ErrDuplicateCode)
		}
		return fmt.Errorf("repo.ReservationRepo.SetPaidWithCode: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.ReservationRepo.SetPaidWithCode: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgReservationRepo) SetStatus(ctx context.Context, id uuid.UUID, status domain.ReservationStatus) error {
	const q = `UPDATE reservation SET status = @status WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "status": status})
	if err != nil {
		return fmt.Errorf("repo.ReservationRepo.SetStatus: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.ReservationRepo.SetStatus: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgReservationRepo) SetCheckedIn(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	// The IS NULL guard makes the stamp first-write-wins: re-marking an
	// already checked-in reservation keeps the original arrival time.
	const q = `
		UPDATE reservation
		SET checked_in_at = @at
		WHERE id = @id AND checked_in_at IS NULL`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "at": at})
	if err != nil {
		return false, fmt.Errorf("repo.ReservationRepo.SetCheckedIn: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *pgReservationRepo) SetPaidEmailSentAt(ctx context.Context, id uuid.UUID, at time.Time) error {
	const q = `UPDATE reservation SET paid_email_sent_at = @at WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "at": at})
	if err != nil {
		return fmt.Errorf("repo.ReservationRepo.SetPaidEmailSentAt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.ReservationRepo.SetPaidEmailSentAt: %w", domain.ErrNotFound)
	}
	return nil
}

// scanReservation maps a single database row into a domain.Reservation.
// Companions is a jsonb column; pgx unmarshals it via encoding/json.
func scanReservation(s scanner) (domain.Reservation, error) {
	var (
		res    domain.Reservation
		id     pgtype.UUID
		slotID pgtype.UUID
		actID  pgtype.UUID
	)

	err := s.Scan(&id, &slotID, &actID, &res.HolderName, &res.Phone, &res.Email,
		&res.PartySize, &res.Companions, &res.Notes, &res.PayMethod, &res.AmountCents,
		&res.Status, &res.CheckinCode, &res.CheckedInAt, &res.PaidEmailSentAt, &res.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Reservation{}, domain.ErrNotFound
		}
		return domain.Reservation{}, err
	}

	res.ID = uuid.UUID(id.Bytes)
	res.SlotID = uuid.UUID(slotID.Bytes)
	res.ActivityID = uuid.UUID(actID.Bytes)
	return res, nil
}

// scanDetail maps a joined row into a domain.ReservationDetail.
func scanDetail(s scanner) (domain.ReservationDetail, error) {
	var (
		d      domain.ReservationDetail
		id     pgtype.UUID
		slotID pgtype.UUID
		actID  pgtype.UUID
	)

	err := s.Scan(&id, &slotID, &actID, &d.HolderName, &d.Phone, &d.Email,
		&d.PartySize, &d.Companions, &d.Notes, &d.PayMethod, &d.AmountCents,
		&d.Status, &d.CheckinCode, &d.CheckedInAt, &d.PaidEmailSentAt, &d.CreatedAt,
		&d.ActivityName, &d.StartAt, &d.EndAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ReservationDetail{}, domain.ErrNotFound
		}
		return domain.ReservationDetail{}, err
	}

	d.ID = uuid.UUID(id.Bytes)
	d.SlotID = uuid.UUID(slotID.Bytes)
	d.ActivityID = uuid.UUID(actID.Bytes)
	return d, nil
}
