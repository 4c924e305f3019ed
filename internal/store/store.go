// Package store defines the keyed-table capability the ledger persists into.
// Tables are ordered key -> row maps; every row carries a storage-cost owner
// tag that is metadata only.
package store

import "context"

// Table names a keyed table.
type Table string

const (
	TableRegistry Table = "registry"
	TableBalances Table = "balances"
	TableVesting  Table = "vesting"
	TableBurns    Table = "burns"
	TableMeta     Table = "meta"
)

// Row is one stored record. Payer is the storage-cost owner recorded at
// creation; an Update with an empty Payer keeps the existing owner.
type Row struct {
	Key   string
	Payer string
	Value []byte
}

// Reader supports point lookup and ordered prefix scan.
type Reader interface {
	// Get returns ErrNotFound if the key is absent.
	Get(ctx context.Context, table Table, key string) (Row, error)

	// Scan returns all rows whose key starts with prefix, ordered by key ASC.
	Scan(ctx context.Context, table Table, prefix string) ([]Row, error)
}

// Writer supports insert, in-place update and delete.
type Writer interface {
	// Insert returns ErrDuplicateKey if the key exists.
	Insert(ctx context.Context, table Table, row Row) error

	// Update returns ErrNotFound if the key is absent.
	Update(ctx context.Context, table Table, row Row) error

	// Delete returns ErrNotFound if the key is absent.
	Delete(ctx context.Context, table Table, key string) error
}

// ReadWriter is the view an operation mutates through.
type ReadWriter interface {
	Reader
	Writer
}

// Tx is an atomic unit of work: either every write becomes visible on
// Commit or none does.
type Tx interface {
	ReadWriter
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Backend is a persistent keyed store. Reads on the Backend itself observe
// committed state only.
type Backend interface {
	Reader
	Begin(ctx context.Context) (Tx, error)
	Close() error
}
