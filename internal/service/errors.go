package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/coachhub/scheduler/internal/schedule"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Sentinel error kinds. Typed errors below unwrap to one of these so callers
// can classify with errors.Is while still getting entity context.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrCapacityExceeded  = fmt.Errorf("capacity exceeded: %w", ErrConflict)
	ErrInvalidTransition = errors.New("invalid transition")
	ErrDataIntegrity     = errors.New("data integrity fault")

	ErrAlreadyBooked = fmt.Errorf("student already has an active booking for this class: %w", ErrConflict)
	ErrAlreadyMember = fmt.Errorf("student is already a member of this group: %w", ErrConflict)
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

type NotFoundError struct {
	Entity string
	ID     uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

type CapacityError struct {
	Entity string
	ID     uuid.UUID
	Max    int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s %s is full (max_students=%d)", e.Entity, e.ID, e.Max)
}

func (e *CapacityError) Unwrap() error { return ErrCapacityExceeded }

type TransitionError struct {
	Entity string
	ID     uuid.UUID
	From   string
	To     string
	Reason string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("%s %s cannot transition %s -> %s", e.Entity, e.ID, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

type IntegrityError struct {
	Entity string
	ID     uuid.UUID
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s %s violates invariant: %s", e.Entity, e.ID, e.Reason)
}

func (e *IntegrityError) Unwrap() error { return ErrDataIntegrity }

// isUniqueViolation reports a Postgres duplicate-key error, raised by the
// partial unique index on active bookings when concurrent inserts race past
// the in-transaction checks.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isTransient classifies errors for the bounded retry around persistence
// transactions. Domain outcomes, constraint violations and context
// cancellation are final; anything else is assumed to be a transient store
// failure.
func isTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrDataIntegrity):
		return false
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false
	case isUniqueViolation(err):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	var conflict *schedule.ConflictError
	return !errors.As(err, &conflict)
}
