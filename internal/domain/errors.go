package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource (slot, reservation, check-in code, history record) does not exist.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. companion data incomplete, email confirmation
// mismatch). The wrapping error carries the human-readable reason so the
// caller can redisplay the form with that exact message.
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrInsufficientCapacity is returned by the capacity ledger when a booking
// asks for more seats than the slot has left. The slot is left unchanged.
// Handlers should map this to HTTP 409 Conflict.
var ErrInsufficientCapacity = errors.New("insufficient capacity")

// ErrInvalidState is returned when an operation is not allowed in the
// reservation's current status (e.g. checking in a reservation that has not
// been paid). Handlers should map this to HTTP 409 Conflict.
var ErrInvalidState = errors.New("invalid state")

// ErrCodeSpaceExhausted is returned when check-in code generation keeps
// colliding with existing codes. With a 32^8 keyspace this is practically
// unreachable; the cap exists so a broken uniqueness query cannot spin forever.
var ErrCodeSpaceExhausted = errors.New("check-in code space exhausted")
