package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestPOSErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *POSError
		want string
	}{
		{
			name: "op with id",
			err:  &POSError{Op: "cart.AddToCart", ID: "42", Err: ErrOutOfStock},
			want: "cart.AddToCart [42]: no stock available",
		},
		{
			name: "op without id",
			err:  &POSError{Op: "catalog.Load", Err: ErrRequestFailed},
			want: "catalog.Load: request failed",
		},
		{
			name: "message only",
			err:  &POSError{Kind: "validation", Message: "stock threshold out of range"},
			want: "stock threshold out of range",
		},
		{
			name: "kind fallback",
			err:  &POSError{Kind: "catalog"},
			want: "catalog error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPOSErrorUnwrap(t *testing.T) {
	err := NewPOSError("checkout.Submit", "order", ErrOrderRejected)
	if !errors.Is(err, ErrOrderRejected) {
		t.Error("errors.Is should see through POSError")
	}

	wrapped := fmt.Errorf("submit: %w", err)
	var posErr *POSError
	if !errors.As(wrapped, &posErr) {
		t.Error("errors.As should find the POSError")
	}
	if posErr.Op != "checkout.Submit" {
		t.Errorf("Op = %q, want checkout.Submit", posErr.Op)
	}
}

func TestErrorPredicates(t *testing.T) {
	if !IsValidation(fmt.Errorf("add: %w", ErrOutOfStock)) {
		t.Error("ErrOutOfStock should be a validation failure")
	}
	if !IsValidation(ErrInvalidPercentage) {
		t.Error("ErrInvalidPercentage should be a validation failure")
	}
	if IsValidation(ErrRequestFailed) {
		t.Error("ErrRequestFailed is not a validation failure")
	}

	if !IsUnavailable(fmt.Errorf("load: %w", ErrConnectionFailed)) {
		t.Error("ErrConnectionFailed should be unavailable")
	}
	if IsUnavailable(ErrCartEmpty) {
		t.Error("ErrCartEmpty is not unavailable")
	}
}
