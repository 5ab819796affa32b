// Package ledger holds the account store and runs transactions against it.
//
// Every account is a record of an owning program, a lamport balance and an
// opaque data buffer. Only the owning program writes the data buffer.
// Transactions execute on an overlay that is merged into the store only
// when every instruction succeeds.
package ledger

import (
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
)

var (
	// ErrAccountNotFound is returned for reads of absent accounts.
	ErrAccountNotFound = errors.New("ledger: account not found")

	// ErrAccountExists is returned when creating an account that exists.
	ErrAccountExists = errors.New("ledger: account already exists")

	// ErrInsufficientLamports is returned when a payer cannot cover the
	// storage deposit of a new account.
	ErrInsufficientLamports = errors.New("ledger: insufficient lamports")

	// ErrAccountTooLarge is returned when an account would exceed
	// params.MaxAccountDataSize.
	ErrAccountTooLarge = errors.New("ledger: account data too large")

	// ErrNotOwner is returned when a program writes an account it does not own.
	ErrNotOwner = errors.New("ledger: account not owned by program")

	// ErrDataSize is returned when a write changes the size of account data.
	ErrDataSize = errors.New("ledger: account data size mismatch")

	// ErrMissingSignature is returned when a required signer did not sign.
	ErrMissingSignature = errors.New("ledger: missing required signature")

	// ErrUnknownProgram is returned for instructions no handler accepts.
	ErrUnknownProgram = errors.New("ledger: unknown program")
)

// Account is the record stored for every ledger account.
type Account struct {
	Owner    solana.PublicKey
	Lamports uint64
	Data     []byte
}

// Copy returns a deep copy of the account.
func (a *Account) Copy() *Account {
	cpy := &Account{Owner: a.Owner, Lamports: a.Lamports}
	if a.Data != nil {
		cpy.Data = make([]byte, len(a.Data))
		copy(cpy.Data, a.Data)
	}
	return cpy
}

func (a *Account) String() string {
	return fmt.Sprintf("owner=%s lamports=%d data=%d", a.Owner, a.Lamports, len(a.Data))
}

func encodeAccount(a *Account) []byte {
	blob, err := bin.MarshalBorsh(a)
	if err != nil {
		panic(fmt.Sprintf("ledger: encode account: %v", err))
	}
	return blob
}

func decodeAccount(blob []byte) (*Account, error) {
	a := new(Account)
	if err := bin.UnmarshalBorsh(a, blob); err != nil {
		return nil, fmt.Errorf("ledger: corrupt account record: %w", err)
	}
	return a, nil
}
