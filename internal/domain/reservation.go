package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReservationStatus is the lifecycle state of a reservation.
// Transitions: pending → paid (confirm), pending/paid → canceled (cancel).
// Both confirm and cancel are idempotent; there is no transition out of
// canceled. Check-in is an orthogonal timestamp, not a status.
type ReservationStatus string

const (
	StatusPending  ReservationStatus = "pending"
	StatusPaid     ReservationStatus = "paid"
	StatusCanceled ReservationStatus = "canceled"
)

// Companion holds the per-person data collected at checkout.
// All four fields are required for every member of the party,
// the reservation holder included.
type Companion struct {
	FirstName       string `json:"first_name"`
	PaternalSurname string `json:"last_name_p"`
	MaternalSurname string `json:"last_name_m"`
	AgeRange        string `json:"age_range"`
}

// FullName joins the three name parts for display and history records.
func (c Companion) FullName() string {
	name := c.FirstName + " " + c.PaternalSurname
	if c.MaternalSurname != "" {
		name += " " + c.MaternalSurname
	}
	return name
}

// Reservation is a customer's claim on seats within a schedule slot.
//
// AmountCents is computed once at creation (slot price × party size) and never
// recomputed, so later price edits do not change what existing customers owe.
// CheckinCode is set exactly once, when the reservation is first confirmed.
// PaidEmailSentAt marks that the payment-confirmation notification succeeded;
// while it is nil, re-confirming retries the notification.
type Reservation struct {
	ID              uuid.UUID         `json:"id"`
	SlotID          uuid.UUID         `json:"slot_id"`
	ActivityID      uuid.UUID         `json:"activity_id"`
	HolderName      string            `json:"holder_name"`
	Phone           string            `json:"phone"`
	Email           string            `json:"email"`
	PartySize       int               `json:"party_size"`
	Companions      []Companion       `json:"companions"`
	Notes           string            `json:"notes,omitempty"`
	PayMethod       string            `json:"pay_method"`
	AmountCents     int               `json:"amount_cents"`
	Status          ReservationStatus `json:"status"`
	CheckinCode     *string           `json:"checkin_code,omitempty"`
	CheckedInAt     *time.Time        `json:"checked_in_at,omitempty"`
	PaidEmailSentAt *time.Time        `json:"paid_email_sent_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// ReservationDetail is a Reservation joined with the activity and slot fields
// the admin screens and notifications need. The denormalized fields come from
// the slot, not the reservation's own activity reference, so a reservation
// whose slot was re-pointed still shows consistent data.
type ReservationDetail struct {
	Reservation
	ActivityName string    `json:"activity_name"`
	StartAt      time.Time `json:"start_at"`
	EndAt        time.Time `json:"end_at"`
}
