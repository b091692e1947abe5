// Package credstore persists the credential record across process
// restarts. The whole StoredCredentialSet is written as one serialized
// record so a reader can never observe a partial set.
package credstore

import (
	"context"
	"errors"

	"github.com/pitchside/pitchside-go/internal/types"
)

// Common errors for credential store operations.
var (
	ErrInvalidConfig    = errors.New("invalid credstore configuration")
	ErrInvalidStoreType = errors.New("invalid credstore type")
)

// Store is the durable credential record. Implementations must make
// Write atomic with respect to concurrent readers, report every I/O
// failure, and never retry or touch the network beyond the storage
// medium itself.
type Store interface {
	// Write persists the full set as a unit.
	Write(ctx context.Context, set *types.StoredCredentialSet) error

	// Read returns the stored set, or nil if nothing was ever written
	// or Clear ran. Corrupt-but-present data is returned as-is; the
	// session manager validates it.
	Read(ctx context.Context) (*types.StoredCredentialSet, error)

	// Clear removes the record. Clearing an empty store succeeds.
	Clear(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error
}
