package inmemdb

import (
	"context"
	"sync"
	"time"

	"github.com/reelbingo/promo/core"
	"github.com/reelbingo/promo/core/board"
	"github.com/reelbingo/promo/core/participant"
	"github.com/reelbingo/promo/core/progress"
	"github.com/reelbingo/promo/core/proof"
)

type (
	// DB is an in-memory store with the same semantics as the Postgres one.
	// Transactions are serialized by a single writer lock and rolled back from a snapshot.
	// Reads outside a transaction may observe uncommitted writes.
	DB struct {
		txMu sync.Mutex   // held for the whole of a write transaction
		mu   sync.RWMutex // guards the tables
		last time.Time    // last timestamp handed out by now()

		tables
	}

	tables struct {
		participants map[string]participant.Participant
		progress     map[string]board.Progress
		logs         []progress.LogEntry // append order == created_at order
		submissions  map[string]proof.Submission
	}

	txKey struct{}
)

var _ core.Transactor = (*DB)(nil)

func Open() *DB {
	db := new(DB)
	db.reset()
	return db
}

func (db *DB) reset() {
	db.tables = tables{
		participants: make(map[string]participant.Participant),
		progress:     make(map[string]board.Progress),
		logs:         make([]progress.LogEntry, 0),
		submissions:  make(map[string]proof.Submission),
	}
}

// Reset drops every row. Tests only.
func (db *DB) Reset() {
	db.txMu.Lock()
	defer db.txMu.Unlock()
	db.mu.Lock()
	defer db.mu.Unlock()
	db.reset()
}

func (db *DB) snapshot() tables {
	db.mu.RLock()
	defer db.mu.RUnlock()

	snap := tables{
		participants: make(map[string]participant.Participant, len(db.participants)),
		progress:     make(map[string]board.Progress, len(db.progress)),
		logs:         make([]progress.LogEntry, len(db.logs)),
		submissions:  make(map[string]proof.Submission, len(db.submissions)),
	}
	for k, v := range db.participants {
		snap.participants[k] = v
	}
	for k, v := range db.progress {
		snap.progress[k] = v
	}
	copy(snap.logs, db.logs)
	for k, v := range db.submissions {
		snap.submissions[k] = v
	}
	return snap
}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*DB)
	return ok
}

// InTx runs fn holding the writer lock. Nested calls join the outer transaction.
func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	db.txMu.Lock()
	defer db.txMu.Unlock()

	snap := db.snapshot()
	rollback := func() {
		db.mu.Lock()
		db.tables = snap
		db.mu.Unlock()
	}
	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, db)); err != nil {
		rollback()
		return err
	}
	return nil
}

// write runs a single mutation. Outside a transaction it takes the writer lock itself
// so that it cannot be lost by a concurrent rollback.
func (db *DB) write(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !inTx(ctx) {
		db.txMu.Lock()
		defer db.txMu.Unlock()
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn()
}

func (db *DB) read(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	return fn()
}

// now is a monotonic clock: it never returns a value <= the previous one. Callers hold mu.
func (db *DB) now() time.Time {
	t := time.Now().UTC().Truncate(time.Microsecond)
	if !t.After(db.last) {
		t = db.last.Add(time.Microsecond)
	}
	db.last = t
	return t
}
