package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidWindow is a programmer error: a window whose start is after its end.
var ErrInvalidWindow = errors.New("window start is after end")

// NormalizationError means a raw source record is missing a required field or
// carries an unparsable value. It fails the whole tick or request.
type NormalizationError struct {
	Source string
	ID     string
	Field  string
	Err    error
}

func (e *NormalizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("normalize %s record %q: field %s: %v", e.Source, e.ID, e.Field, e.Err)
	}
	return fmt.Sprintf("normalize %s record %q: missing field %s", e.Source, e.ID, e.Field)
}

func (e *NormalizationError) Unwrap() error { return e.Err }

// UpstreamFetchError wraps a collaborator client failure. A tick fails closed
// on it unless degraded mode is configured.
type UpstreamFetchError struct {
	Source string
	Err    error
}

func (e *UpstreamFetchError) Error() string {
	return fmt.Sprintf("fetch from %s: %v", e.Source, e.Err)
}

func (e *UpstreamFetchError) Unwrap() error { return e.Err }

// DeliveryError wraps a chat sink failure. It is logged and surfaced but never
// fails a computed tick, and deliveries are not retried within a tick.
type DeliveryError struct {
	Sink string
	Err  error
}

func (e *DeliveryError) Error() string { return fmt.Sprintf("deliver to %s: %v", e.Sink, e.Err) }

func (e *DeliveryError) Unwrap() error { return e.Err }
