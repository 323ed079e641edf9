package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/paraje-tours/reservas/backend/internal/domain"
)

// VisitRepo persists the append-only visit-history ledger.
// There is deliberately no update method: rows are written once (on payment
// confirmation or by an administrator) and only ever removed by an
// administrator correcting a mistaken entry.
type VisitRepo interface {
	// Append inserts a visit record and returns the persisted row.
	Append(ctx context.Context, v domain.VisitRecord) (domain.VisitRecord, error)

	// List returns visit records newest first, plus the total row count.
	List(ctx context.Context, page domain.PaginationParams) ([]domain.VisitRecord, int64, error)

	// ListAll returns every visit record newest first, for exports.
	ListAll(ctx context.Context) ([]domain.VisitRecord, error)

	// Delete removes a record by ID. Returns domain.ErrNotFound if it does
	// not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

type pgVisitRepo struct {
	db db
}

// NewVisitRepo constructs a VisitRepo backed by the provided db connection.
func NewVisitRepo(db db) VisitRepo {
	return &pgVisitRepo{db: db}
}

const visitCols = `id, reservation_id, record_at, activity_id, activity_name, slot_id,
	start_at, people, phone, email, pay_method, amount_cents, notes`

func (r *pgVisitRepo) Append(ctx context.Context, v domain.VisitRecord) (domain.VisitRecord, error) {
	const q = `
		INSERT INTO visit_history (reservation_id, record_at, activity_id, activity_name,
			slot_id, start_at, people, phone, email, pay_method, amount_cents, notes)
		VALUES (@reservation_id, COALESCE(@record_at, now()), @activity_id, @activity_name,
			@slot_id, @start_at, @people, @phone, @email, @pay_method, @amount_cents, @notes)
		RETURNING ` + visitCols

	// Zero RecordAt means "now"; pass NULL and let COALESCE fill it so the
	// timestamp comes from the database clock like created_at elsewhere.
	var recordAt any
	if !v.RecordAt.IsZero() {
		recordAt = v.RecordAt
	}

	args := pgx.NamedArgs{
		"reservation_id": v.ReservationID,
		"record_at":      recordAt,
		"activity_id":    v.ActivityID,
		"activity_name":  v.ActivityName,
		"slot_id":        v.SlotID,
		"start_at":       v.StartAt,
		"people":         v.Attendees,
		"phone":          v.Phone,
		"email":          v.Email,
		"pay_method":     v.PayMethod,
		"amount_cents":   v.AmountCents,
		"notes":          v.Notes,
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanVisit(row)
	if err != nil {
		return domain.VisitRecord{}, fmt.Errorf("repo.VisitRepo.Append: %w", err)
	}
	return result, nil
}

func (r *pgVisitRepo) List(ctx context.Context, page domain.PaginationParams) ([]domain.VisitRecord, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM visit_history`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.VisitRepo.List: count: %w", err)
	}

	q := `SELECT ` + visitCols + `
	FROM visit_history
	ORDER BY record_at DESC
	LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"limit": page.Limit, "offset": page.Offset()})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.VisitRepo.List: %w", err)
	}
	defer rows.Close()

	list, err := collectVisits(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.VisitRepo.List: %w", err)
	}
	return list, total, nil
}

func (r *pgVisitRepo) ListAll(ctx context.Context) ([]domain.VisitRecord, error) {
	q := `SELECT ` + visitCols + ` FROM visit_history ORDER BY record_at DESC`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.VisitRepo.ListAll: %w", err)
	}
	defer rows.Close()

	list, err := collectVisits(rows)
	if err != nil {
		return nil, fmt.Errorf("repo.VisitRepo.ListAll: %w", err)
	}
	return list, nil
}

func (r *pgVisitRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM visit_history WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.VisitRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.VisitRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func collectVisits(rows pgx.Rows) ([]domain.VisitRecord, error) {
	var list []domain.VisitRecord
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		list = append(list, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return list, nil
}

// scanVisit maps a single database row into a domain.VisitRecord.
// The people jsonb column goes through AttendeeList's lenient unmarshalling,
// so legacy rows holding a bare string still come back as one attendee.
func scanVisit(s scanner) (domain.VisitRecord, error) {
	var (
		v     domain.VisitRecord
		id    pgtype.UUID
		resID pgtype.UUID
		actID pgtype.UUID
		slot  pgtype.UUID
	)

	err := s.Scan(&id, &resID, &v.RecordAt, &actID, &v.ActivityName, &slot,
		&v.StartAt, &v.Attendees, &v.Phone, &v.Email, &v.PayMethod, &v.AmountCents, &v.Notes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.VisitRecord{}, domain.ErrNotFound
		}
		return domain.VisitRecord{}, err
	}

	v.ID = uuid.UUID(id.Bytes)
	if resID.Valid {
		rid := uuid.UUID(resID.Bytes)
		v.ReservationID = &rid
	}
	v.ActivityID = uuid.UUID(actID.Bytes)
	v.SlotID = uuid.UUID(slot.Bytes)
	return v, nil
}
