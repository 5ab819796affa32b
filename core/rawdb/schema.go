// Package rawdb contains the low level key layout and accessors of the
// ledger database.
package rawdb

import (
	"encoding/binary"

	solana "github.com/gagliardetto/solana-go"
)

// The fields below define the low level database schema prefixing.
var (
	// databaseVersionKey tracks the current database version.
	databaseVersionKey = []byte("DatabaseVersion")

	// txCountKey tracks the number of committed transactions.
	txCountKey = []byte("TransactionCount")

	// AccountPrefix + account key -> encoded account record
	AccountPrefix = []byte("a")
)

// AccountKeyLength is the length of an account record key.
const AccountKeyLength = 1 + solana.PublicKeyLength

// accountKey = AccountPrefix + key
func accountKey(key solana.PublicKey) []byte {
	return append(append([]byte{}, AccountPrefix...), key[:]...)
}

// encodeUint64 encodes a number as big endian uint64
func encodeUint64(number uint64) []byte {
	enc := make([]byte, 8)
	binary.BigEndian.PutUint64(enc, number)
	return enc
}
