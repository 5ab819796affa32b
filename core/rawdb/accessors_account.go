package rawdb

import (
	solana "github.com/gagliardetto/solana-go"
	"github.com/inconshreveable/log15"
	"github.com/solana-developers/Confidential-Transfer-Sample/ledgerdb"
)

var log = log15.New("module", "rawdb")

// crit logs a failed write to the backing store and aborts. The ledger
// cannot continue once a committed write is lost.
func crit(msg string, ctx ...interface{}) {
	log.Crit(msg, ctx...)
	panic(msg)
}

// ReadAccount retrieves the encoded record of an account.
func ReadAccount(db ledgerdb.KeyValueReader, key solana.PublicKey) []byte {
	data, _ := db.Get(accountKey(key))
	return data
}

// HasAccount checks if an account record is present in the db.
func HasAccount(db ledgerdb.KeyValueReader, key solana.PublicKey) bool {
	ok, _ := db.Has(accountKey(key))
	return ok
}

// WriteAccount stores the encoded record of an account.
func WriteAccount(db ledgerdb.KeyValueWriter, key solana.PublicKey, blob []byte) {
	if err := db.Put(accountKey(key), blob); err != nil {
		crit("Failed to store account", "account", key, "err", err)
	}
}

// DeleteAccount removes the record of an account.
func DeleteAccount(db ledgerdb.KeyValueWriter, key solana.PublicKey) {
	if err := db.Delete(accountKey(key)); err != nil {
		crit("Failed to delete account", "account", key, "err", err)
	}
}
