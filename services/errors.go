package services

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ValidationError is a malformed or missing input, including self-referral.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// ConflictError is returned when a referral pair has already been recorded.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

// InsufficientTicketsError means the user has no attempts left and should share their link.
type InsufficientTicketsError struct {
	UserID  string
	Tickets int
}

func (e *InsufficientTicketsError) Error() string { return "No tickets available" }

// StoreError wraps a failure of the underlying store together with the step that failed.
// It is never retried here.
type StoreError struct {
	Step string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message(), e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Message is the human-readable description of the failing step.
func (e *StoreError) Message() string {
	if msg, ok := stepMessages[e.Step]; ok {
		return msg
	}
	return "Store operation failed"
}

// Code is the database diagnostic code (SQLSTATE) when the driver exposes one.
func (e *StoreError) Code() string {
	var pgErr *pgconn.PgError
	if errors.As(e.Err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// Store steps, in the order the operations run them.
const (
	StepFetchUser            = "fetch_user"
	StepCreateUser           = "create_user"
	StepCheckReferral        = "check_referral"
	StepCheckReferredUser    = "check_referred_user"
	StepCreateReferredUser   = "create_referred_user"
	StepCreateReferral       = "create_referral"
	StepFetchReferrer        = "fetch_referrer"
	StepAwardTickets         = "award_tickets"
	StepFetchUpdatedReferrer = "fetch_updated_referrer"
	StepUpdateTickets        = "update_tickets"
	StepFetchTickets         = "fetch_tickets"
	StepUpdateCompletion     = "update_completion"
	StepAcquireGuard         = "acquire_guard"
	StepStatistics           = "statistics"
)

var stepMessages = map[string]string{
	StepFetchUser:            "Failed to fetch user",
	StepCreateUser:           "Failed to create user",
	StepCheckReferral:        "Failed to check referral",
	StepCheckReferredUser:    "Failed to check referred user",
	StepCreateReferredUser:   "Failed to create referred user",
	StepCreateReferral:       "Failed to create referral",
	StepFetchReferrer:        "Failed to fetch referrer",
	StepAwardTickets:         "Failed to award tickets",
	StepFetchUpdatedReferrer: "Failed to fetch updated referrer",
	StepUpdateTickets:        "Failed to update tickets",
	StepFetchTickets:         "Failed to fetch tickets",
	StepUpdateCompletion:     "Failed to update completion status",
	StepAcquireGuard:         "Failed to acquire ticket lock",
	StepStatistics:           "Failed to collect statistics",
}
