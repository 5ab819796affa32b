package ledger

import (
	"fmt"

	solana "github.com/gagliardetto/solana-go"
	"github.com/solana-developers/Confidential-Transfer-Sample/params"
)

// Txn is a write overlay on top of the committed store. Reads are served
// from the overlay first, then the store. Nothing reaches the store until
// Commit; Discard drops every write.
type Txn struct {
	parent *Store
	dirty  map[solana.PublicKey]*Account // nil marks a closed account
	done   bool
}

// NewTxn opens an overlay on s.
func (s *Store) NewTxn() *Txn {
	return &Txn{parent: s, dirty: make(map[solana.PublicKey]*Account)}
}

// Account returns a copy of the current record of key.
func (t *Txn) Account(key solana.PublicKey) (*Account, error) {
	if acct, ok := t.dirty[key]; ok {
		if acct == nil {
			return nil, ErrAccountNotFound
		}
		return acct.Copy(), nil
	}
	return t.parent.Account(key)
}

// Exists reports whether key has a live record.
func (t *Txn) Exists(key solana.PublicKey) bool {
	_, err := t.Account(key)
	return err == nil
}

// Data returns the data of key if program owns it.
func (t *Txn) Data(program, key solana.PublicKey) ([]byte, error) {
	acct, err := t.Account(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, key)
	}
	if acct.Owner != program {
		return nil, fmt.Errorf("%w: %s owned by %s", ErrNotOwner, key, acct.Owner)
	}
	return acct.Data, nil
}

// CreateAccount allocates a zeroed account of size bytes owned by owner.
// payer funds the storage deposit, which the new account holds until it is
// closed.
func (t *Txn) CreateAccount(payer, key, owner solana.PublicKey, size uint64) error {
	if size > params.MaxAccountDataSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrAccountTooLarge, size, params.MaxAccountDataSize)
	}
	deposit, ok := params.CheckedStorageDeposit(size)
	if !ok {
		return fmt.Errorf("%w: deposit for %d bytes overflows", ErrAccountTooLarge, size)
	}
	if t.Exists(key) {
		return fmt.Errorf("%w: %s", ErrAccountExists, key)
	}
	funder, err := t.Account(payer)
	if err != nil {
		return fmt.Errorf("payer %s: %w", payer, err)
	}
	if funder.Lamports < deposit {
		return fmt.Errorf("%w: payer has %d, need %d", ErrInsufficientLamports, funder.Lamports, deposit)
	}
	funder.Lamports -= deposit
	t.dirty[payer] = funder
	t.dirty[key] = &Account{Owner: owner, Lamports: deposit, Data: make([]byte, size)}
	return nil
}

// WriteData replaces the data of an account owned by program. The size of
// an account is fixed at creation.
func (t *Txn) WriteData(program, key solana.PublicKey, data []byte) error {
	acct, err := t.Account(key)
	if err != nil {
		return fmt.Errorf("%w: %s", err, key)
	}
	if acct.Owner != program {
		return fmt.Errorf("%w: %s owned by %s", ErrNotOwner, key, acct.Owner)
	}
	if len(data) != len(acct.Data) {
		return fmt.Errorf("%w: have %d, write %d", ErrDataSize, len(acct.Data), len(data))
	}
	copy(acct.Data, data)
	t.dirty[key] = acct
	return nil
}

// TransferLamports moves lamports between two accounts. Only system
// accounts may be debited this way.
func (t *Txn) TransferLamports(from, to solana.PublicKey, lamports uint64) error {
	if from == to {
		return nil
	}
	src, err := t.Account(from)
	if err != nil {
		return fmt.Errorf("%w: %s", err, from)
	}
	if src.Owner != params.SystemProgramID {
		return fmt.Errorf("%w: %s owned by %s", ErrNotOwner, from, src.Owner)
	}
	if src.Lamports < lamports {
		return fmt.Errorf("%w: %s has %d, need %d", ErrInsufficientLamports, from, src.Lamports, lamports)
	}
	dst := t.accountOrSystem(to)
	src.Lamports -= lamports
	dst.Lamports += lamports
	t.dirty[from], t.dirty[to] = src, dst
	return nil
}

// CloseAccount deletes an account owned by program and credits its
// lamports to destination.
func (t *Txn) CloseAccount(program, key, destination solana.PublicKey) error {
	if key == destination {
		return fmt.Errorf("ledger: close %s into itself", key)
	}
	acct, err := t.Account(key)
	if err != nil {
		return fmt.Errorf("%w: %s", err, key)
	}
	if acct.Owner != program {
		return fmt.Errorf("%w: %s owned by %s", ErrNotOwner, key, acct.Owner)
	}
	dst := t.accountOrSystem(destination)
	dst.Lamports += acct.Lamports
	t.dirty[destination] = dst
	t.dirty[key] = nil
	return nil
}

func (t *Txn) accountOrSystem(key solana.PublicKey) *Account {
	if acct, err := t.Account(key); err == nil {
		return acct
	}
	return &Account{Owner: params.SystemProgramID}
}

// Dirty returns the number of accounts touched so far.
func (t *Txn) Dirty() int { return len(t.dirty) }

// Commit merges the overlay into the store. A Txn cannot be reused.
func (t *Txn) Commit() error {
	if t.done {
		return fmt.Errorf("ledger: transaction already finished")
	}
	t.done = true
	return t.parent.commit(t.dirty)
}

// Discard drops the overlay.
func (t *Txn) Discard() {
	t.done = true
	t.dirty = nil
}
