package domain

import (
	"time"

	"github.com/google/uuid"
)

// ScheduleSlot is a scheduled, capacity-limited instance of an activity.
// CapacityReserved is mutated only by the capacity ledger (repo.SlotRepo):
// incremented when a booking claims seats, decremented when a reservation is
// canceled. It never exceeds CapacityTotal and never goes negative — the
// repo enforces both, and the schema carries a CHECK constraint as backstop.
type ScheduleSlot struct {
	ID               uuid.UUID `json:"id"`
	ActivityID       uuid.UUID `json:"activity_id"`
	StartAt          time.Time `json:"start_at"`
	EndAt            time.Time `json:"end_at"`
	CapacityTotal    int       `json:"capacity_total"`
	CapacityReserved int       `json:"capacity_reserved"`
	PriceCents       int       `json:"price_cents"` // per person
	Published        bool      `json:"published"`
}

// Available returns the number of seats still open on the slot.
func (s ScheduleSlot) Available() int {
	return s.CapacityTotal - s.CapacityReserved
}
