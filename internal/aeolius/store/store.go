package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/aeolius/internal/aeolius/domain"
)

var ErrNotFound = errors.New("store: not found")

// Store is the root data access interface implemented by the drivers.
// Repositories hang off it so that code running inside a transaction cannot
// reach for the non-transactional store by accident.
type Store interface {
	Configurations() Configurations

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing if fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Configurations interface {
	// Get returns the configuration of did or ErrNotFound.
	Get(ctx context.Context, did string) (domain.Configuration, error)

	// Upsert inserts or replaces the configuration of c.DID and returns the
	// stored row. The cursor is kept unless the service changes; it is never
	// taken from c.
	Upsert(ctx context.Context, c domain.Configuration) (domain.Configuration, error)

	// Delete removes the configuration of did. Deleting a missing
	// configuration is not an error.
	Delete(ctx context.Context, did string) error

	// ListEnabled returns all enabled configurations ordered by DID.
	ListEnabled(ctx context.Context) ([]domain.Configuration, error)

	// UpdateSweepState stores the rotated refresh token and the cursor after
	// a sweep of did.
	UpdateSweepState(ctx context.Context, did, refreshJWT, cursor string) error
}
