package ledger

import (
	"context"
	"errors"
	"testing"

	solana "github.com/gagliardetto/solana-go"
	"github.com/solana-developers/Confidential-Transfer-Sample/ledgerdb/leveldb"
	"github.com/solana-developers/Confidential-Transfer-Sample/ledgerdb/memorydb"
	"github.com/solana-developers/Confidential-Transfer-Sample/params"
)

var testProgram = solana.PublicKey{0xee}

// echoProgram copies instruction data into its account and fails on a
// leading 0xff.
type echoProgram struct{}

func (echoProgram) CanHandle(id solana.PublicKey) bool { return id == testProgram }

func (echoProgram) Handle(ctx *Context, ix *Instruction) error {
	key, err := ix.Account(0)
	if err != nil {
		return err
	}
	if err := ctx.Txn.WriteData(testProgram, key, ix.Data); err != nil {
		return err
	}
	if ix.Data[0] == 0xff {
		return errors.New("echo: refused")
	}
	return nil
}

func newTestExecutor(t *testing.T) (*Executor, solana.PrivateKey) {
	t.Helper()
	store := NewStore(memorydb.New(), 1)
	payer, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("payer: %v", err)
	}
	if err := store.Fund(payer.PublicKey(), 1_000_000_000); err != nil {
		t.Fatalf("fund: %v", err)
	}
	registry := NewRegistry()
	registry.Register(echoProgram{})
	return NewExecutor(store, registry), payer
}

func execute(t *testing.T, e *Executor, signers []solana.PrivateKey, ixs ...Instruction) error {
	t.Helper()
	tx := NewTransaction(ixs...)
	if err := tx.Sign(signers...); err != nil {
		t.Fatalf("sign: %v", err)
	}
	_, err := e.Execute(context.Background(), tx)
	return err
}

func TestCreateAccountChargesDeposit(t *testing.T) {
	e, payer := newTestExecutor(t)
	key := solana.NewWallet().PrivateKey

	err := execute(t, e, []solana.PrivateKey{payer, key},
		NewCreateAccountInstruction(payer.PublicKey(), key.PublicKey(), testProgram, 4))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	acct, err := e.Store().Account(key.PublicKey())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	deposit := params.StorageDeposit(4)
	if acct.Owner != testProgram || acct.Lamports != deposit || len(acct.Data) != 4 {
		t.Fatalf("created account: got %v", acct)
	}
	funder, _ := e.Store().Account(payer.PublicKey())
	if funder.Lamports != 1_000_000_000-deposit {
		t.Fatalf("payer lamports: got %d want %d", funder.Lamports, 1_000_000_000-deposit)
	}
	if got := e.Store().TransactionCount(); got != 1 {
		t.Fatalf("tx count: got %d want 1", got)
	}

	// A second create at the same key fails.
	err = execute(t, e, []solana.PrivateKey{payer, key},
		NewCreateAccountInstruction(payer.PublicKey(), key.PublicKey(), testProgram, 4))
	if !errors.Is(err, ErrAccountExists) {
		t.Fatalf("recreate: got %v want %v", err, ErrAccountExists)
	}
}

func TestCreateAccountRejectsOversizedSpace(t *testing.T) {
	e, payer := newTestExecutor(t)
	for _, space := range []uint64{
		params.MaxAccountDataSize + 1,
		^uint64(0) - params.AccountStorageOverhead + 1, // deposit would wrap to zero
		^uint64(0),
	} {
		key := solana.NewWallet().PrivateKey
		err := execute(t, e, []solana.PrivateKey{payer, key},
			NewCreateAccountInstruction(payer.PublicKey(), key.PublicKey(), testProgram, space))
		if !errors.Is(err, ErrAccountTooLarge) {
			t.Fatalf("space %d: got %v want %v", space, err, ErrAccountTooLarge)
		}
		if _, err := e.Store().Account(key.PublicKey()); !errors.Is(err, ErrAccountNotFound) {
			t.Fatalf("space %d: account created: %v", space, err)
		}
	}
	funder, _ := e.Store().Account(payer.PublicKey())
	if funder.Lamports != 1_000_000_000 {
		t.Fatalf("payer charged: got %d want %d", funder.Lamports, 1_000_000_000)
	}
}

func TestFailedInstructionDiscardsTransaction(t *testing.T) {
	e, payer := newTestExecutor(t)
	key := solana.NewWallet().PrivateKey

	err := execute(t, e, []solana.PrivateKey{payer, key},
		NewCreateAccountInstruction(payer.PublicKey(), key.PublicKey(), testProgram, 2),
		Instruction{ProgramID: testProgram, Accounts: []solana.PublicKey{key.PublicKey()}, Data: []byte{1, 2}},
		Instruction{ProgramID: testProgram, Accounts: []solana.PublicKey{key.PublicKey()}, Data: []byte{0xff, 0}},
	)
	if err == nil {
		t.Fatal("transaction with failing instruction succeeded")
	}
	if _, err := e.Store().Account(key.PublicKey()); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("account after failed tx: got %v want %v", err, ErrAccountNotFound)
	}
	funder, _ := e.Store().Account(payer.PublicKey())
	if funder.Lamports != 1_000_000_000 {
		t.Fatalf("payer charged by failed tx: got %d", funder.Lamports)
	}
	if got := e.Store().TransactionCount(); got != 0 {
		t.Fatalf("tx count: got %d want 0", got)
	}
}

func TestSignatureChecks(t *testing.T) {
	e, payer := newTestExecutor(t)
	key := solana.NewWallet().PrivateKey
	create := NewCreateAccountInstruction(payer.PublicKey(), key.PublicKey(), testProgram, 2)

	if err := execute(t, e, []solana.PrivateKey{payer}, create); !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("unsigned new account: got %v want %v", err, ErrMissingSignature)
	}

	tx := NewTransaction(create)
	if err := tx.Sign(payer, key); err != nil {
		t.Fatalf("sign: %v", err)
	}
	tx.Instructions[0].Data[1] ^= 1 // alters the message after signing
	if _, err := e.Execute(context.Background(), tx); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("tampered message: got %v want %v", err, ErrInvalidSignature)
	}
}

func TestOwnershipAndClose(t *testing.T) {
	e, payer := newTestExecutor(t)
	key := solana.NewWallet().PrivateKey
	if err := execute(t, e, []solana.PrivateKey{payer, key},
		NewCreateAccountInstruction(payer.PublicKey(), key.PublicKey(), testProgram, 2)); err != nil {
		t.Fatalf("create: %v", err)
	}

	txn := e.Store().NewTxn()
	if err := txn.WriteData(params.SystemProgramID, key.PublicKey(), []byte{1, 2}); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("foreign write: got %v want %v", err, ErrNotOwner)
	}
	if err := txn.WriteData(testProgram, key.PublicKey(), []byte{1}); !errors.Is(err, ErrDataSize) {
		t.Fatalf("resize: got %v want %v", err, ErrDataSize)
	}
	dest := solana.PublicKey{9}
	if err := txn.CloseAccount(testProgram, key.PublicKey(), dest); err != nil {
		t.Fatalf("close: %v", err)
	}
	if txn.Exists(key.PublicKey()) {
		t.Fatal("closed account still visible in overlay")
	}
	if !e.Store().NewTxn().Exists(key.PublicKey()) {
		t.Fatal("uncommitted close visible in store")
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	got, err := e.Store().Account(dest)
	if err != nil || got.Lamports != params.StorageDeposit(2) {
		t.Fatalf("destination: got %v (%v) want %d lamports", got, err, params.StorageDeposit(2))
	}
	owned, err := e.Store().Accounts(&testProgram)
	if err != nil || len(owned) != 0 {
		t.Fatalf("program accounts after close: got %v (%v)", owned, err)
	}
}

func TestCanceledContext(t *testing.T) {
	e, payer := newTestExecutor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tx := NewTransaction(NewTransferInstruction(payer.PublicKey(), solana.PublicKey{5}, 1))
	tx.Sign(payer)
	if _, err := e.Execute(ctx, tx); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v want %v", err, context.Canceled)
	}
}

func TestLevelDBStorePersists(t *testing.T) {
	dir := t.TempDir()
	db, err := leveldb.New(dir, 16, 16, false)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	store := NewStore(db, 1)
	key := solana.PublicKey{3}
	if err := store.Fund(key, 77); err != nil {
		t.Fatalf("fund: %v", err)
	}
	store.Close()

	db, err = leveldb.New(dir, 16, 16, false)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	store = NewStore(db, 0)
	defer store.Close()
	acct, err := store.Account(key)
	if err != nil || acct.Lamports != 77 || acct.Owner != params.SystemProgramID {
		t.Fatalf("after reopen: got %v (%v)", acct, err)
	}
}
