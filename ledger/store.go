package ledger

import (
	"sync"

	"github.com/VictoriaMetrics/fastcache"
	solana "github.com/gagliardetto/solana-go"
	"github.com/inconshreveable/log15"
	"github.com/solana-developers/Confidential-Transfer-Sample/core/rawdb"
	"github.com/solana-developers/Confidential-Transfer-Sample/ledgerdb"
	"github.com/solana-developers/Confidential-Transfer-Sample/params"
)

const databaseVersion = 1

// Store is the committed account state. Reads go through a clean cache of
// encoded records; writes only arrive through Txn.Commit and Fund.
type Store struct {
	db    ledgerdb.KeyValueStore
	clean *fastcache.Cache
	lock  sync.RWMutex
	log   log15.Logger
}

// NewStore wraps db. cacheMB sizes the clean cache; zero disables it.
func NewStore(db ledgerdb.KeyValueStore, cacheMB int) *Store {
	s := &Store{db: db, log: log15.New("module", "ledger")}
	if cacheMB > 0 {
		s.clean = fastcache.New(cacheMB * 1024 * 1024)
	}
	if v := rawdb.ReadDatabaseVersion(db); v == nil {
		rawdb.WriteDatabaseVersion(db, databaseVersion)
	} else if *v != databaseVersion {
		s.log.Warn("Unexpected database version", "have", *v, "want", databaseVersion)
	}
	return s
}

// Account returns a copy of the committed record of key.
func (s *Store) Account(key solana.PublicKey) (*Account, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.account(key)
}

func (s *Store) account(key solana.PublicKey) (*Account, error) {
	if s.clean != nil {
		if blob, ok := s.clean.HasGet(nil, key[:]); ok {
			return decodeAccount(blob)
		}
	}
	blob := rawdb.ReadAccount(s.db, key)
	if len(blob) == 0 {
		return nil, ErrAccountNotFound
	}
	if s.clean != nil {
		s.clean.Set(key[:], blob)
	}
	return decodeAccount(blob)
}

// Accounts lists the keys of all accounts owned by owner, or of every
// account when owner is nil.
func (s *Store) Accounts(owner *solana.PublicKey) ([]solana.PublicKey, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	it := rawdb.IterateAccounts(s.db)
	defer it.Release()

	var keys []solana.PublicKey
	for it.Next() {
		if owner != nil {
			acct, err := decodeAccount(it.Value())
			if err != nil {
				return nil, err
			}
			if acct.Owner != *owner {
				continue
			}
		}
		keys = append(keys, it.Account())
	}
	return keys, it.Error()
}

// TransactionCount returns the number of committed transactions.
func (s *Store) TransactionCount() uint64 {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return rawdb.ReadTransactionCount(s.db)
}

// Fund credits lamports to a system account, creating it when absent. It is
// the bootstrap path for fee payers; there is no other lamport source.
func (s *Store) Fund(key solana.PublicKey, lamports uint64) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	acct, err := s.account(key)
	switch {
	case err == ErrAccountNotFound:
		acct = &Account{Owner: params.SystemProgramID}
	case err != nil:
		return err
	}
	acct.Lamports += lamports
	batch := s.db.NewBatch()
	s.stage(batch, key, acct)
	return s.flush(batch)
}

// commit writes the overlay of a transaction atomically. A nil account
// deletes the record.
func (s *Store) commit(dirty map[solana.PublicKey]*Account) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	batch := s.db.NewBatch()
	for key, acct := range dirty {
		s.stage(batch, key, acct)
	}
	rawdb.WriteTransactionCount(batch, rawdb.ReadTransactionCount(s.db)+1)
	return s.flush(batch)
}

func (s *Store) flush(batch ledgerdb.Batch) error {
	if err := batch.Write(); err != nil {
		// The cache may hold records that never hit the disk.
		if s.clean != nil {
			s.clean.Reset()
		}
		return err
	}
	return nil
}

func (s *Store) stage(batch ledgerdb.Batch, key solana.PublicKey, acct *Account) {
	if acct == nil {
		rawdb.DeleteAccount(batch, key)
		if s.clean != nil {
			s.clean.Del(key[:])
		}
		return
	}
	blob := encodeAccount(acct)
	rawdb.WriteAccount(batch, key, blob)
	if s.clean != nil {
		s.clean.Set(key[:], blob)
	}
}

// Close releases the backing database.
func (s *Store) Close() error {
	if s.clean != nil {
		s.clean.Reset()
	}
	return s.db.Close()
}
