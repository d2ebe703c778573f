package domain

import (
	"errors"
	"fmt"
	"time"
)

// Business results from the downstream clients. These are valid outcomes,
// not faults: they are never retried and never move the circuit breaker.
var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrInventoryCheck   = errors.New("inventory check failed")
	ErrOrderNotFound    = errors.New("order not found")
)

// RejectionError is a business rejection of a placement request: invalid
// input, unknown product or customer, or insufficient stock. The request
// boundary maps it to a 400 response.
type RejectionError struct {
	Reason string

	// AvailableQuantity is set only for insufficient-stock rejections and
	// carries the quantity the inventory service reported.
	AvailableQuantity *int
}

func (e *RejectionError) Error() string { return e.Reason }

// Reject builds a RejectionError with a formatted reason.
func Reject(format string, args ...any) *RejectionError {
	return &RejectionError{Reason: fmt.Sprintf(format, args...)}
}

// UnavailableError is the fallback outcome when the circuit is open, retries
// are exhausted, or a downstream call failed unexpectedly. The request
// boundary maps it to a 503 response.
type UnavailableError struct {
	Message    string
	Service    string
	Timestamp  time.Time
	SkuCode    string
	Quantity   int
	Email      string
	Suggestion string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: %s", e.Service, e.Message)
}
