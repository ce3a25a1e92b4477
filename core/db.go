package core

import "context"

// Transactor runs fn inside a single storage transaction carried by the returned context.
// Repositories pick the transaction up from ctx; nested calls join the outer transaction.
// If fn returns an error every write made through ctx is rolled back.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// LockMode tells a repository whether a read must lock the row for the rest of the transaction.
type LockMode bool

const (
	NoLock    LockMode = false
	ForUpdate LockMode = true
)
