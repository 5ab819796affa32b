package rawdb

import (
	solana "github.com/gagliardetto/solana-go"
	"github.com/solana-developers/Confidential-Transfer-Sample/ledgerdb"
)

// AccountIterator walks the account records of a database. Entries that
// share the account prefix but are not exactly prefix plus a public key
// are skipped.
type AccountIterator struct {
	ledgerdb.Iterator
}

// IterateAccounts returns an iterator over all account records in key
// order.
func IterateAccounts(db ledgerdb.Iteratee) *AccountIterator {
	return &AccountIterator{Iterator: db.NewIterator(AccountPrefix, nil)}
}

func (it *AccountIterator) Next() bool {
	for it.Iterator.Next() {
		if len(it.Iterator.Key()) == AccountKeyLength {
			return true
		}
	}
	return false
}

// Account returns the address of the current record.
func (it *AccountIterator) Account() solana.PublicKey {
	return solana.PublicKeyFromBytes(it.Key()[len(AccountPrefix):])
}
