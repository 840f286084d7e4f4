package core

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for comparison using errors.Is()
// These are generic errors that can be wrapped with additional context
var (
	// Cart and stock errors
	ErrOutOfStock   = errors.New("no stock available")
	ErrCartEmpty    = errors.New("cart is empty")
	ErrCartLocked   = errors.New("cart is locked for checkout")
	ErrCartNotReady = errors.New("checkout not ready")

	// Validation errors
	ErrInvalidPercentage = errors.New("discount percentage out of range")
	ErrInvalidThreshold  = errors.New("stock threshold out of range")
	ErrNoPaymentMethod   = errors.New("no payment method selected")

	// Catalog errors
	ErrProductNotFound = errors.New("product not found")

	// Store errors
	ErrStoreUnavailable = errors.New("preference store unavailable")

	// HTTP/Network errors
	ErrConnectionFailed = errors.New("connection failed")
	ErrRequestFailed    = errors.New("request failed")
	ErrOrderRejected    = errors.New("order rejected by server")
)

// POSError provides structured error information with context.
// It implements the error interface and supports error wrapping.
type POSError struct {
	Op      string // Operation that failed (e.g., "cart.AddToCart")
	Kind    string // Error kind (e.g., "cart", "catalog", "validation")
	ID      string // Optional ID of the entity involved
	Message string // Human-readable message
	Err     error  // Underlying error for wrapping
}

// Error returns the string representation of the error
func (e *POSError) Error() string {
	if e.Op != "" && e.Err != nil {
		if e.ID != "" {
			return fmt.Sprintf("%s [%s]: %v", e.Op, e.ID, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error", e.Kind)
}

// Unwrap returns the underlying error for use with errors.Is/As
func (e *POSError) Unwrap() error {
	return e.Err
}

// NewPOSError creates a new POSError
func NewPOSError(op, kind string, err error) *POSError {
	return &POSError{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// IsValidation reports whether an error was rejected before any state
// mutation. Validation failures leave prior state intact.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidPercentage) ||
		errors.Is(err, ErrInvalidThreshold) ||
		errors.Is(err, ErrNoPaymentMethod) ||
		errors.Is(err, ErrOutOfStock)
}

// IsUnavailable reports whether an error is a transport-level failure where
// the recovery path is a manual reload, never an automatic retry.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrConnectionFailed) ||
		errors.Is(err, ErrRequestFailed) ||
		errors.Is(err, ErrStoreUnavailable)
}
