package domain

import (
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// maxRawAttendeeLen caps the length of an attendee name synthesized from
// free text that failed to parse as a structured list.
const maxRawAttendeeLen = 60

// Attendee is one person recorded in a visit-history entry.
// AgeBand is nil when unknown (manual entries, legacy data).
type Attendee struct {
	Name    string  `json:"name"`
	AgeBand *string `json:"age_band"`
}

// AttendeeList is the list of people on a visit record.
//
// Admin-entered history rows arrive as free text that is supposed to be a
// JSON list but often is not. Rather than rejecting or silently storing the
// raw string, unmarshalling falls back to wrapping the text as a single
// attendee named by that text, truncated to 60 characters. Well-formed input
// round-trips unchanged.
type AttendeeList []Attendee

// UnmarshalJSON implements the structured-list | raw-fallback union.
func (a *AttendeeList) UnmarshalJSON(data []byte) error {
	var list []Attendee
	if err := json.Unmarshal(data, &list); err == nil {
		*a = list
		return nil
	}
	// Not a list. If it is a JSON string, unwrap it; otherwise use the raw
	// bytes as entered.
	raw := string(data)
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		raw = s
	}
	*a = AttendeeList{{Name: truncate(raw, maxRawAttendeeLen)}}
	return nil
}

// ParseAttendees applies the same union rule to free text from a form field:
// a well-formed JSON list stays structured, anything else becomes a single
// attendee named by the raw text.
func ParseAttendees(text string) AttendeeList {
	var list []Attendee
	if err := json.Unmarshal([]byte(text), &list); err == nil {
		return list
	}
	return AttendeeList{{Name: truncate(text, maxRawAttendeeLen)}}
}

// truncate cuts s to at most n bytes without splitting a multibyte rune,
// so the result stays valid UTF-8.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// VisitRecord is one row of the permanent visit ledger.
//
// Rows are append-only: one is written per successful payment confirmation,
// and administrators may add manual entries for walk-ins that never had a
// reservation (ReservationID nil). Activity name and start time are
// denormalized so the ledger survives activity and slot deletion — the
// history must outlive the records it points at.
type VisitRecord struct {
	ID            uuid.UUID    `json:"id"`
	ReservationID *uuid.UUID   `json:"reservation_id,omitempty"`
	RecordAt      time.Time    `json:"record_at"`
	ActivityID    uuid.UUID    `json:"activity_id"`
	ActivityName  string       `json:"activity_name"`
	SlotID        uuid.UUID    `json:"slot_id"`
	StartAt       time.Time    `json:"start_at"`
	Attendees     AttendeeList `json:"attendees"`
	Phone         string       `json:"phone,omitempty"`
	Email         string       `json:"email,omitempty"`
	PayMethod     string       `json:"pay_method,omitempty"`
	AmountCents   int          `json:"amount_cents"`
	Notes         string       `json:"notes,omitempty"`
}
