// utils/errors.go
package utils

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUserIDNotFound = errors.New("authentication required: user ID not found")
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrForbidden      = errors.New("forbidden")
	ErrPayoutNotFound = errors.New("payout not found")
	ErrSellerNotFound = errors.New("seller not found")
	ErrBusy           = errors.New("another request for this seller is in progress, please retry")
)

// ValidationError reports an illegal transition or a missing required field.
// It is raised before anything is persisted and is never retried.
type ValidationError struct {
	Field   string
	Status  string
	Message string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Field != "" && e.Status != "":
		return fmt.Sprintf("validation failed for %s (status %s): %s", e.Field, e.Status, e.Message)
	case e.Field != "":
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	default:
		return "validation failed: " + e.Message
	}
}

func NewValidationError(field, status, message string) *ValidationError {
	return &ValidationError{Field: field, Status: status, Message: message}
}

// ConcurrencyConflictError means the record changed between the caller's read
// and the commit. The caller must refresh before retrying.
type ConcurrencyConflictError struct {
	PayoutID       string
	ExpectedStatus string
	CurrentStatus  string
}

func (e *ConcurrencyConflictError) Error() string {
	if e.CurrentStatus == "disbursing" {
		return fmt.Sprintf("payout %s has a transfer in progress; refresh and try again", e.PayoutID)
	}
	if e.CurrentStatus == "cancelled" {
		return fmt.Sprintf("payout %s was already cancelled by another user; refresh and try again", e.PayoutID)
	}
	return fmt.Sprintf("payout %s was modified by another user (expected %s, now %s); refresh and try again",
		e.PayoutID, e.ExpectedStatus, e.CurrentStatus)
}

// PersistenceError wraps a failure of the data store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// AggregationInputError describes an input record the ledger could not fully
// resolve. It is reported alongside the ledger, never returned as a failure.
type AggregationInputError struct {
	Kind   string `json:"kind"`
	Ref    string `json:"ref"`
	Reason string `json:"reason"`
}

func (e AggregationInputError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Kind, e.Ref, e.Reason)
}

// HTTPStatus maps an error to the response status a controller should use.
func HTTPStatus(err error) int {
	var (
		validation *ValidationError
		conflict   *ConcurrencyConflictError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &conflict), errors.Is(err, ErrBusy):
		return http.StatusConflict
	case errors.Is(err, ErrPayoutNotFound), errors.Is(err, ErrSellerNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrUserIDNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show to API clients.
func PublicMessage(err error) string {
	var persistence *PersistenceError
	if errors.As(err, &persistence) {
		return "failed to reach the data store, please retry"
	}
	if HTTPStatus(err) == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}
