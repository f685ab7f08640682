package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is the base error for any referenced entity that does not exist.
// Per-entity sentinels wrap it, so errors.Is(err, ErrNotFound) matches all of them.
var ErrNotFound = errors.New("not found")

// Sentinel errors for simple conditions without extra context.
var (
	ErrTenantNotFound       = fmt.Errorf("store %w", ErrNotFound)
	ErrBranchNotFound       = fmt.Errorf("branch %w", ErrNotFound)
	ErrPrincipalNotFound    = fmt.Errorf("user %w", ErrNotFound)
	ErrPlanNotFound         = fmt.Errorf("plan %w", ErrNotFound)
	ErrSubscriptionNotFound = fmt.Errorf("subscription %w", ErrNotFound)
	ErrPaymentOrderNotFound = fmt.Errorf("payment order %w", ErrNotFound)

	// ErrVerificationFailed is terminal: the gateway rejected the confirmation.
	ErrVerificationFailed = errors.New("payment verification failed")
)

// AuthErrorKind separates "no standing at all" from "real principal, wrong scope".
type AuthErrorKind string

const (
	Unauthorized AuthErrorKind = "unauthorized"
	Forbidden    AuthErrorKind = "forbidden"
)

// AuthError is returned when the authorization engine denies an action.
type AuthError struct {
	Kind   AuthErrorKind
	Action Action
	Reason string
}

func (e *AuthError) Error() string {
	if e.Action == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Action, e.Reason)
}

// IsUnauthorized reports whether err is an unauthorized AuthError.
func IsUnauthorized(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr) && authErr.Kind == Unauthorized
}

// IsForbidden reports whether err is a forbidden AuthError.
func IsForbidden(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr) && authErr.Kind == Forbidden
}

// ConflictError is returned when a resource with the same key already exists.
type ConflictError struct {
	Resource string
	Key      string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Resource, e.Key)
}

// TransitionError is returned when a state transition is not allowed.
type TransitionError struct {
	Machine string
	Event   string
	Current string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s event %q is not valid from state %q", e.Machine, e.Event, e.Current)
}

// EntitlementError is returned when a plan ceiling would be exceeded.
type EntitlementError struct {
	Kind    EntitlementKind
	Limit   int
	Current int
}

func (e *EntitlementError) Error() string {
	return fmt.Sprintf("plan allows at most %d %s, store already has %d", e.Limit, e.Kind, e.Current)
}

// GatewayError wraps a failure talking to a payment gateway.
// Temporary errors are safe for the caller to retry with backoff.
type GatewayError struct {
	Method    PaymentMethod
	Op        string
	Temporary bool
	Err       error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable gateway failure.
func IsTransient(err error) bool {
	var gwErr *GatewayError
	return errors.As(err, &gwErr) && gwErr.Temporary
}

// ValidationError is returned when a command carries invalid input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
