package types

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// TransientError marks a failure worth retrying on the next tick:
// network hiccups, timeouts, provider 5xx, failed persistence writes.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// ValidationError marks a failure that will never succeed on retry,
// such as an invalid settle address or an unsupported asset pair.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation: " + e.Reason }

// NotFoundError marks an order that disappeared upstream.
type NotFoundError struct {
	OrderID string
}

func (e *NotFoundError) Error() string { return "order not found upstream: " + e.OrderID }

func NewTransient(err error) error { return &TransientError{Err: err} }

// IsRetryable reports whether the failure should leave the item eligible
// for another attempt on a later tick.
func IsRetryable(err error) bool {
	var v *ValidationError
	var nf *NotFoundError
	if errors.As(err, &v) || errors.As(err, &nf) {
		return false
	}
	return true
}

// ClassifyProviderError folds transport-level failures into the taxonomy.
// Anything not recognizably terminal is treated as transient.
func ClassifyProviderError(err error) error {
	if err == nil {
		return nil
	}
	var v *ValidationError
	var nf *NotFoundError
	var tr *TransientError
	if errors.As(err, &v) || errors.As(err, &nf) || errors.As(err, &tr) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return &TransientError{Err: err}
	}
	return &TransientError{Err: err}
}
