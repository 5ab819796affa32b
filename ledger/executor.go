package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set"
	"github.com/google/uuid"
	"github.com/inconshreveable/log15"
)

// Receipt describes a committed transaction.
type Receipt struct {
	ID           uuid.UUID
	Instructions int
	Accounts     int // accounts written
}

// Executor runs transactions one at a time against a store. A transaction
// either commits every instruction or none.
type Executor struct {
	store    *Store
	registry *Registry
	now      func() time.Time
	mu       sync.Mutex
	log      log15.Logger
}

// NewExecutor creates an executor dispatching through registry.
func NewExecutor(store *Store, registry *Registry) *Executor {
	return &Executor{
		store:    store,
		registry: registry,
		now:      time.Now,
		log:      log15.New("module", "executor"),
	}
}

// SetClock replaces the wall clock handed to programs.
func (e *Executor) SetClock(now func() time.Time) { e.now = now }

// Store returns the committed state the executor writes to.
func (e *Executor) Store() *Store { return e.store }

// Execute verifies the signatures of tx and runs its instructions in order
// on a fresh overlay. The first failing instruction aborts the transaction
// and nothing it wrote becomes visible.
func (e *Executor) Execute(ctx context.Context, tx *Transaction) (*Receipt, error) {
	signers, err := tx.verifySignatures()
	if err != nil {
		return nil, err
	}
	signerSet := mapset.NewThreadUnsafeSet()
	for _, s := range signers {
		signerSet.Add(s)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	id := uuid.New()
	txn := e.store.NewTxn()
	now := e.now()
	for i := range tx.Instructions {
		if err := ctx.Err(); err != nil {
			txn.Discard()
			return nil, err
		}
		ix := &tx.Instructions[i]
		pctx := &Context{Txn: txn, TxID: id, Index: i, Now: now, signers: signerSet}
		if err := e.registry.dispatch(pctx, ix); err != nil {
			txn.Discard()
			e.log.Debug("Transaction failed", "id", id, "index", i, "program", ix.ProgramID, "err", err)
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
	}
	dirty := txn.Dirty()
	if err := txn.Commit(); err != nil {
		e.log.Error("Failed to commit transaction", "id", id, "err", err)
		return nil, err
	}
	e.log.Debug("Transaction committed", "id", id, "instructions", len(tx.Instructions), "accounts", dirty)
	return &Receipt{ID: id, Instructions: len(tx.Instructions), Accounts: dirty}, nil
}
