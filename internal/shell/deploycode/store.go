// Package deploycode issues and validates the system-wide ephemeral deploy
// code. The code is the single piece of shared mutable state in the gateway:
// it lives in a TTL-capable key/value store and is only ever written through
// atomic conditional operations.
package deploycode

import (
	"context"
	"errors"
	"time"
)

// ErrNoCode is returned by Store.Get when no code is stored or the stored
// code has expired.
var ErrNoCode = errors.New("no deploy code stored")

// Store is the TTL-expiring backing store for the active deploy code.
type Store interface {
	// SetNX stores value with the given TTL only if no unexpired value is
	// present, and reports whether the write happened. The check and the
	// write are a single atomic operation.
	SetNX(ctx context.Context, value string, ttl time.Duration) (bool, error)

	// Get returns the currently stored value, or ErrNoCode.
	Get(ctx context.Context) (string, error)

	// Delete removes the stored value, if any.
	Delete(ctx context.Context) error
}
