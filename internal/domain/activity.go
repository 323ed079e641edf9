// Package domain contains the core data types for the booking backend.
// This package has zero external dependencies beyond uuid and is imported by
// every other internal package (repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Activity is a bookable tour or experience offered by the site.
// An activity is the top-level aggregate; schedule slots belong to an activity.
type Activity struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Location       string    `json:"location,omitempty"`
	BasePriceCents int       `json:"base_price_cents"`
	Policy         string    `json:"policy,omitempty"` // cancellation / arrival policy shown at checkout
	CreatedAt      time.Time `json:"created_at"`
}
