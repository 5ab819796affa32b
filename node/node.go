// Package node assembles a ledger instance: the account store on its
// database backend, the program registry and the transaction executor.
package node

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/inconshreveable/log15"
	"github.com/solana-developers/Confidential-Transfer-Sample/core/proofctx"
	"github.com/solana-developers/Confidential-Transfer-Sample/core/token"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/zkproof"
	"github.com/solana-developers/Confidential-Transfer-Sample/ledger"
	"github.com/solana-developers/Confidential-Transfer-Sample/ledgerdb"
	"github.com/solana-developers/Confidential-Transfer-Sample/ledgerdb/leveldb"
	"github.com/solana-developers/Confidential-Transfer-Sample/ledgerdb/memorydb"
	"github.com/solana-developers/Confidential-Transfer-Sample/params"
)

// ErrNodeStopped is returned by every operation after Close.
var ErrNodeStopped = errors.New("node: stopped")

// Node is a running ledger instance.
type Node struct {
	config params.Config
	store  *ledger.Store
	exec   *ledger.Executor
	log    log15.Logger

	lock   sync.RWMutex // held for reading while a transaction runs
	closed bool
}

// New opens the ledger described by config. An empty DataDir keeps the
// ledger in memory.
func New(config *params.Config) (*Node, error) {
	cfg := *config
	if err := cfg.Sanitize(); err != nil {
		return nil, err
	}
	var (
		db  ledgerdb.KeyValueStore
		err error
	)
	if cfg.DataDir == "" {
		db = memorydb.New()
	} else if db, err = leveldb.New(cfg.DataDir, cfg.Cache, cfg.Handles, false); err != nil {
		return nil, fmt.Errorf("node: open %s: %w", cfg.DataDir, err)
	}
	verifier := zkproof.NewSystem()
	registry := ledger.NewRegistry()
	registry.Register(proofctx.NewProgram(verifier))
	registry.Register(token.NewProcessor(verifier, &cfg))

	store := ledger.NewStore(db, cfg.Cache)
	n := &Node{
		config: cfg,
		store:  store,
		exec:   ledger.NewExecutor(store, registry),
		log:    log15.New("module", "node", "datadir", cfg.DataDir),
	}
	n.log.Debug("Ledger opened", "txs", store.TransactionCount())
	return n, nil
}

// Config returns the sanitized configuration of the node.
func (n *Node) Config() params.Config { return n.config }

// Store returns the committed account store.
func (n *Node) Store() *ledger.Store { return n.store }

// SetClock replaces the clock stamped on verified proof contexts.
func (n *Node) SetClock(now func() time.Time) { n.exec.SetClock(now) }

// Send signs a transaction made of ixs with signers and executes it.
func (n *Node) Send(ctx context.Context, signers []solana.PrivateKey, ixs ...ledger.Instruction) (*ledger.Receipt, error) {
	n.lock.RLock()
	defer n.lock.RUnlock()
	if n.closed {
		return nil, ErrNodeStopped
	}
	tx := ledger.NewTransaction(ixs...)
	if err := tx.Sign(signers...); err != nil {
		return nil, err
	}
	return n.exec.Execute(ctx, tx)
}

// Fund credits lamports to a fee payer.
func (n *Node) Fund(key solana.PublicKey, lamports uint64) error {
	n.lock.RLock()
	defer n.lock.RUnlock()
	if n.closed {
		return ErrNodeStopped
	}
	return n.store.Fund(key, lamports)
}

// TokenAccount reads a committed token account.
func (n *Node) TokenAccount(key solana.PublicKey) (*token.Account, error) {
	acct, err := n.store.Account(key)
	if err != nil {
		return nil, err
	}
	if acct.Owner != params.TokenProgramID || len(acct.Data) != token.AccountSize {
		return nil, fmt.Errorf("%w: %s is not a token account", token.ErrInvalidAccountData, key)
	}
	return token.DecodeAccount(acct.Data)
}

// TokenMint reads a committed mint.
func (n *Node) TokenMint(key solana.PublicKey) (*token.Mint, error) {
	acct, err := n.store.Account(key)
	if err != nil {
		return nil, err
	}
	if acct.Owner != params.TokenProgramID || len(acct.Data) != token.MintSize {
		return nil, fmt.Errorf("%w: %s is not a mint", token.ErrInvalidAccountData, key)
	}
	return token.DecodeMint(acct.Data)
}

// TokenAccounts lists the keys of all token accounts, sorted.
func (n *Node) TokenAccounts() ([]solana.PublicKey, error) {
	keys, err := n.store.Accounts(&params.TokenProgramID)
	if err != nil {
		return nil, err
	}
	out := keys[:0]
	for _, key := range keys {
		if acct, err := n.store.Account(key); err == nil && len(acct.Data) == token.AccountSize {
			out = append(out, key)
		}
	}
	sortKeys(out)
	return out, nil
}

// ContextInfo summarizes one proof context account.
type ContextInfo struct {
	Key       solana.PublicKey
	Status    proofctx.Status
	ProofType zkproof.ProofType
	Authority solana.PublicKey
	CreatedAt time.Time
	Lamports  uint64
	// Expired is set once the account outlived the configured context
	// expiry without being consumed, or has been consumed.
	Expired bool
}

// ProofContexts lists every proof context account as of now.
func (n *Node) ProofContexts(now time.Time) ([]ContextInfo, error) {
	keys, err := n.store.Accounts(&params.ProofProgramID)
	if err != nil {
		return nil, err
	}
	sortKeys(keys)
	txn := n.store.NewTxn()
	defer txn.Discard()

	infos := make([]ContextInfo, 0, len(keys))
	for _, key := range keys {
		st, err := proofctx.Load(txn, key)
		if err != nil {
			n.log.Warn("Skipping unreadable proof context", "account", key, "err", err)
			continue
		}
		acct, err := txn.Account(key)
		if err != nil {
			return nil, err
		}
		info := ContextInfo{
			Key:      key,
			Status:   st.Status(),
			Lamports: acct.Lamports,
			Expired:  proofctx.Expired(st, now, n.config.ContextExpiry),
		}
		switch s := st.(type) {
		case *proofctx.Uninitialized:
			info.ProofType = s.ProofType
		case *proofctx.Verified:
			info.ProofType, info.Authority, info.CreatedAt = s.ProofType, s.Authority, s.CreatedAt
		case *proofctx.Consumed:
			info.ProofType, info.Authority, info.CreatedAt = s.ProofType, s.Authority, s.CreatedAt
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Close flushes and releases the database.
func (n *Node) Close() error {
	n.lock.Lock()
	defer n.lock.Unlock()
	if n.closed {
		return ErrNodeStopped
	}
	n.closed = true
	n.log.Debug("Closing ledger", "txs", n.store.TransactionCount())
	return n.store.Close()
}

func sortKeys(keys []solana.PublicKey) {
	sort.Slice(keys, func(i, j int) bool {
		return string(keys[i][:]) < string(keys[j][:])
	})
}
