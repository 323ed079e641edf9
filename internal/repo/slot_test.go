package repo_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paraje-tours/reservas/backend/internal/domain"
	"github.com/paraje-tours/reservas/backend/internal/repo"
	"github.com/paraje-tours/reservas/backend/testutil"
)

// newTestTx opens a transaction against the test database. The transaction is
// rolled back when the test finishes, giving free per-test isolation. All
// repos under test should be built on the same transaction so they see each
// other's rows.
//
// Requires TEST_DATABASE_URL to be set; migrations are applied by TestMain.
func newTestTx(t *testing.T) pgx.Tx {
	t.Helper()
	pool := testutil.NewPool(t)

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err, "begin transaction")

	t.Cleanup(func() {
		// Rollback discards all changes made during the test.
		_ = tx.Rollback(context.Background())
	})

	return tx
}

// createActivity inserts a minimal activity row for fixtures to hang off.
func createActivity(t *testing.T, tx pgx.Tx) domain.Activity {
	t.Helper()
	act, err := repo.NewActivityRepo(tx).Create(context.Background(), domain.Activity{
		Name:           "Cañón del Sumidero",
		Location:       "Chiapas",
		BasePriceCents: 45000,
	})
	require.NoError(t, err)
	return act
}

// slotInput returns a ScheduleSlot ready to insert for the given activity.
func slotInput(activityID uuid.UUID) domain.ScheduleSlot {
	return domain.ScheduleSlot{
		ActivityID:    activityID,
		StartAt:       time.Date(2026, 9, 12, 10, 0, 0, 0, time.UTC),
		EndAt:         time.Date(2026, 9, 12, 13, 0, 0, 0, time.UTC),
		CapacityTotal: 10,
		PriceCents:    45000,
		Published:     true,
	}
}

// createSlot inserts a slot fixture and returns the persisted row.
func createSlot(t *testing.T, tx pgx.Tx, activityID uuid.UUID) domain.ScheduleSlot {
	t.Helper()
	slot, err := repo.NewSlotRepo(tx).Create(context.Background(), slotInput(activityID))
	require.NoError(t, err)
	return slot
}

func TestSlotRepo_Create(t *testing.T) {
	tx := newTestTx(t)
	ctx := context.Background()
	act := createActivity(t, tx)

	got, err := repo.NewSlotRepo(tx).Create(ctx, slotInput(act.ID))

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, got.ID, "ID should be DB-generated UUID")
	assert.Equal(t, act.ID, got.ActivityID)
	assert.Zero(t, got.CapacityReserved, "new slot starts empty")
	assert.Equal(t, 10, got.CapacityTotal)
	assert.True(t, got.Published)
}

func TestSlotRepo_GetByID_NotFound(t *testing.T) {
	tx := newTestTx(t)

	_, err := repo.NewSlotRepo(tx).GetByID(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSlotRepo_TryReserve_ClaimsSeats(t *testing.T) {
	tx := newTestTx(t)
	ctx := context.Background()
	r := repo.NewSlotRepo(tx)
	slot := createSlot(t, tx, createActivity(t, tx).ID)

	require.NoError(t, r.TryReserve(ctx, slot.ID, 4))
	require.NoError(t, r.TryReserve(ctx, slot.ID, 6), "fill to exactly capacity")

	got, err := r.GetByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.CapacityReserved)
	assert.Zero(t, got.Available())
}

func TestSlotRepo_TryReserve_Insufficient(t *testing.T) {
	tx := newTestTx(t)
	ctx := context.Background()
	r := repo.NewSlotRepo(tx)
	slot := createSlot(t, tx, createActivity(t, tx).ID)

	require.NoError(t, r.TryReserve(ctx, slot.ID, 9))

	err := r.TryReserve(ctx, slot.ID, 2)
	assert.ErrorIs(t, err, domain.ErrInsufficientCapacity)

	// The failed claim must not have moved the counter.
	got, err := r.GetByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, got.CapacityReserved)
}

func TestSlotRepo_TryReserve_UnknownSlot(t *testing.T) {
	tx := newTestTx(t)

	err := repo.NewSlotRepo(tx).TryReserve(context.Background(), uuid.New(), 1)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSlotRepo_Release_FloorsAtZero(t *testing.T) {
	tx := newTestTx(t)
	ctx := context.Background()
	r := repo.NewSlotRepo(tx)
	slot := createSlot(t, tx, createActivity(t, tx).ID)

	require.NoError(t, r.TryReserve(ctx, slot.ID, 2))
	// Over-release: an admin canceled a reservation that was double-released.
	require.NoError(t, r.Release(ctx, slot.ID, 5))

	got, err := r.GetByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Zero(t, got.CapacityReserved, "reserved count never goes negative")
}

func TestSlotRepo_Release_UnknownSlot_NoOp(t *testing.T) {
	tx := newTestTx(t)

	// Cancellations must still succeed after an admin deletes the slot.
	err := repo.NewSlotRepo(tx).Release(context.Background(), uuid.New(), 3)

	assert.NoError(t, err)
}

func TestSlotRepo_ListByActivity_PublishedFilter(t *testing.T) {
	tx := newTestTx(t)
	ctx := context.Background()
	r := repo.NewSlotRepo(tx)
	act := createActivity(t, tx)

	pub := slotInput(act.ID)
	_, err := r.Create(ctx, pub)
	require.NoError(t, err)

	unpub := slotInput(act.ID)
	unpub.StartAt = unpub.StartAt.Add(24 * time.Hour)
	unpub.EndAt = unpub.EndAt.Add(24 * time.Hour)
	unpub.Published = false
	_, err = r.Create(ctx, unpub)
	require.NoError(t, err)

	public, err := r.ListByActivity(ctx, act.ID, true)
	require.NoError(t, err)
	assert.Len(t, public, 1)

	all, err := r.ListByActivity(ctx, act.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.True(t, all[0].StartAt.Before(all[1].StartAt), "ordered by start time")
}

func TestSlotRepo_Delete_NotFound(t *testing.T) {
	tx := newTestTx(t)

	err := repo.NewSlotRepo(tx).Delete(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestSlotRepo_TryReserve_ConcurrentLastSeat hammers one slot from many
// goroutines and asserts the ledger never oversells. It runs on the pool
// directly (transactions are not safe for concurrent use), so it cleans up
// its own rows.
func TestSlotRepo_TryReserve_ConcurrentLastSeat(t *testing.T) {
	pool := testutil.NewPool(t)
	ctx := context.Background()
	r := repo.NewSlotRepo(pool)

	var actID, slotID uuid.UUID
	err := pool.QueryRow(ctx,
		`INSERT INTO activity (name) VALUES ('concurrency probe') RETURNING id`).Scan(&actID)
	require.NoError(t, err)
	err = pool.QueryRow(ctx,
		`INSERT INTO schedule_slot (activity_id, start_at, end_at, capacity_total, published)
		 VALUES ($1, now(), now() + interval '2 hours', 3, true) RETURNING id`, actID).Scan(&slotID)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM schedule_slot WHERE id = $1`, slotID)
		_, _ = pool.Exec(ctx, `DELETE FROM activity WHERE id = $1`, actID)
	})

	const workers = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.TryReserve(ctx, slotID, 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded, "exactly the capacity may be claimed")

	var reserved int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT capacity_reserved FROM schedule_slot WHERE id = $1`, slotID).Scan(&reserved))
	assert.Equal(t, 3, reserved)
}
