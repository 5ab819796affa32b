package rawdb

import (
	"encoding/binary"

	"github.com/solana-developers/Confidential-Transfer-Sample/ledgerdb"
)

// ReadDatabaseVersion retrieves the version number of the database.
func ReadDatabaseVersion(db ledgerdb.KeyValueReader) *uint64 {
	enc, _ := db.Get(databaseVersionKey)
	if len(enc) != 8 {
		return nil
	}
	version := binary.BigEndian.Uint64(enc)
	return &version
}

// WriteDatabaseVersion stores the version number of the database
func WriteDatabaseVersion(db ledgerdb.KeyValueWriter, version uint64) {
	if err := db.Put(databaseVersionKey, encodeUint64(version)); err != nil {
		crit("Failed to store the database version", "err", err)
	}
}

// ReadTransactionCount retrieves the number of committed transactions.
func ReadTransactionCount(db ledgerdb.KeyValueReader) uint64 {
	enc, _ := db.Get(txCountKey)
	if len(enc) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(enc)
}

// WriteTransactionCount stores the number of committed transactions.
func WriteTransactionCount(db ledgerdb.KeyValueWriter, count uint64) {
	if err := db.Put(txCountKey, encodeUint64(count)); err != nil {
		crit("Failed to store the transaction count", "err", err)
	}
}
