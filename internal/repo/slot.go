// Package repo contains all database access logic for the booking backend.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here — only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/paraje-tours/reservas/backend/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SlotRepo is the capacity ledger plus plain persistence for schedule slots.
//
// TryReserve and Release are the only two operations that mutate
// capacity_reserved anywhere in the system. TryReserve must be safe under
// concurrent bookings against the same slot: two requests racing for the last
// seats must not both succeed.
type SlotRepo interface {
	// Create inserts a new slot with capacity_reserved = 0 and returns the
	// persisted record.
	Create(ctx context.Context, slot domain.ScheduleSlot) (domain.ScheduleSlot, error)

	// GetByID retrieves a single slot by its UUID primary key.
	// Returns domain.ErrNotFound if no slot with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.ScheduleSlot, error)

	// ListByActivity returns the slots for an activity ordered by start time.
	// When publishedOnly is set, unpublished slots are filtered out (the
	// public listing); the admin listing passes false and sees everything.
	ListByActivity(ctx context.Context, activityID uuid.UUID, publishedOnly bool) ([]domain.ScheduleSlot, error)

	// TryReserve atomically claims qty seats on the slot. It fails with
	// domain.ErrNotFound if the slot does not exist and with
	// domain.ErrInsufficientCapacity if fewer than qty seats remain; in both
	// cases capacity_reserved is unchanged.
	TryReserve(ctx context.Context, id uuid.UUID, qty int) error

	// Release returns qty seats to the slot, flooring capacity_reserved at
	// zero. Releasing against a slot that no longer exists is a no-op:
	// cancellations must still succeed after an admin deletes the slot.
	Release(ctx context.Context, id uuid.UUID, qty int) error

	// Delete removes a slot by ID, orphaning any reservations that reference
	// it. Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// pgSlotRepo is the Postgres implementation of SlotRepo.
type pgSlotRepo struct {
	db db
}

// NewSlotRepo constructs a SlotRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewSlotRepo(db db) SlotRepo {
	return &pgSlotRepo{db: db}
}

// Create inserts a new slot row and returns the full persisted record.
func (r *pgSlotRepo) Create(ctx context.Context, slot domain.ScheduleSlot) (domain.ScheduleSlot, error) {
	const q = `
		INSERT INTO schedule_slot (activity_id, start_at, end_at, capacity_total, price_cents, published)
		VALUES (@activity_id, @start_at, @end_at, @capacity_total, @price_cents, @published)
		RETURNING id, activity_id, start_at, end_at, capacity_total, capacity_reserved, price_cents, published`

	args := pgx.NamedArgs{
		"activity_id":    slot.ActivityID,
		"start_at":       slot.StartAt,
		"end_at":         slot.EndAt,
		"capacity_total": slot.CapacityTotal,
		"price_cents":    slot.PriceCents,
		"published":      slot.Published,
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanSlot(row)
	if err != nil {
		return domain.ScheduleSlot{}, fmt.Errorf("repo.SlotRepo.Create: %w", err)
	}
	return result, nil
}

// GetByID retrieves a slot by primary key.
func (r *pgSlotRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.ScheduleSlot, error) {
	const q = `
		SELECT id, activity_id, start_at, end_at, capacity_total, capacity_reserved, price_cents, published
		FROM schedule_slot
		WHERE id = @id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanSlot(row)
	if err != nil {
		return domain.ScheduleSlot{}, fmt.Errorf("repo.SlotRepo.GetByID: %w", err)
	}
	return result, nil
}

// ListByActivity returns slots for one activity ordered by start time.
func (r *pgSlotRepo) ListByActivity(ctx context.Context, activityID uuid.UUID, publishedOnly bool) ([]domain.ScheduleSlot, error) {
	const q = `
		SELECT id, activity_id, start_at, end_at, capacity_total, capacity_reserved, price_cents, published
		FROM schedule_slot
		WHERE activity_id = @activity_id
		  AND (NOT @published_only OR published)
		ORDER BY start_at`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{
		"activity_id":    activityID,
		"published_only": publishedOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("repo.SlotRepo.ListByActivity: %w", err)
	}
	defer rows.Close()

	var slots []domain.ScheduleSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.SlotRepo.ListByActivity: scan: %w", err)
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.SlotRepo.ListByActivity: rows: %w", err)
	}

	return slots, nil
}

// TryReserve claims qty seats in a single conditional UPDATE. The WHERE clause
// is the compare — the row lock taken by UPDATE serializes concurrent bookings
// on the same slot, so the read-check-increment can never interleave. When the
// guard fails the statement matches zero rows and a follow-up existence probe
// decides which error to return.
func (r *pgSlotRepo) TryReserve(ctx context.Context, id uuid.UUID, qty int) error {
	const q = `
		UPDATE schedule_slot
		SET capacity_reserved = capacity_reserved + @qty
		WHERE id = @id
		  AND capacity_reserved + @qty <= capacity_total`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "qty": qty})
	if err != nil {
		return fmt.Errorf("repo.SlotRepo.TryReserve: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Either the slot is gone or it is full.
	var exists bool
	err = r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schedule_slot WHERE id = @id)`,
		pgx.NamedArgs{"id": id}).Scan(&exists)
	if err != nil {
		return fmt.Errorf("repo.SlotRepo.TryReserve: probe: %w", err)
	}
	if !exists {
		return fmt.Errorf("repo.SlotRepo.TryReserve: %w", domain.ErrNotFound)
	}
	return fmt.Errorf("repo.SlotRepo.TryReserve: %w", domain.ErrInsufficientCapacity)
}

// Release returns seats to the slot, floored at zero. Double-release and
// counter drift therefore can never push the ledger negative.
func (r *pgSlotRepo) Release(ctx context.Context, id uuid.UUID, qty int) error {
	const q = `
		UPDATE schedule_slot
		SET capacity_reserved = GREATEST(0, capacity_reserved - @qty)
		WHERE id = @id`

	if _, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "qty": qty}); err != nil {
		return fmt.Errorf("repo.SlotRepo.Release: %w", err)
	}
	return nil
}

// Delete removes a slot by primary key.
func (r *pgSlotRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM schedule_slot WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.SlotRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.SlotRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing the scan helpers
// to be reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// scanSlot maps a single database row into a domain.ScheduleSlot.
func scanSlot(s scanner) (domain.ScheduleSlot, error) {
	var (
		slot  domain.ScheduleSlot
		id    pgtype.UUID
		actID pgtype.UUID
	)

	err := s.Scan(&id, &actID, &slot.StartAt, &slot.EndAt,
		&slot.CapacityTotal, &slot.CapacityReserved, &slot.PriceCents, &slot.Published)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ScheduleSlot{}, domain.ErrNotFound
		}
		return domain.ScheduleSlot{}, err
	}

	slot.ID = uuid.UUID(id.Bytes)
	slot.ActivityID = uuid.UUID(actID.Bytes)
	return slot, nil
}
