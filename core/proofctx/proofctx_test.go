package proofctx

import (
	"context"
	"errors"
	"testing"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/elgamal"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/zkproof"
	"github.com/solana-developers/Confidential-Transfer-Sample/ledger"
	"github.com/solana-developers/Confidential-Transfer-Sample/ledgerdb/memorydb"
	"github.com/solana-developers/Confidential-Transfer-Sample/params"
)

var (
	testMint    = solana.PublicKey{1}
	testAccount = solana.PublicKey{2}
	testNow     = time.Unix(1700000000, 0)
)

type env struct {
	exec  *ledger.Executor
	payer solana.PrivateKey
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := ledger.NewStore(memorydb.New(), 0)
	payer, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Fund(payer.PublicKey(), 1_000_000_000); err != nil {
		t.Fatal(err)
	}
	registry := ledger.NewRegistry()
	registry.Register(NewProgram(zkproof.NewSystem()))
	exec := ledger.NewExecutor(store, registry)
	exec.SetClock(func() time.Time { return testNow })
	return &env{exec: exec, payer: payer}
}

func (e *env) run(signers []solana.PrivateKey, ixs ...ledger.Instruction) error {
	tx := ledger.NewTransaction(ixs...)
	if err := tx.Sign(signers...); err != nil {
		return err
	}
	_, err := e.exec.Execute(context.Background(), tx)
	return err
}

func (e *env) createContext(t *testing.T, kind zkproof.ProofType) solana.PrivateKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	if err := e.run([]solana.PrivateKey{e.payer, key}, NewCreateContextAccountInstruction(e.payer.PublicKey(), key.PublicKey(), kind)); err != nil {
		t.Fatalf("create context: %v", err)
	}
	return key
}

func (e *env) load(t *testing.T, key solana.PublicKey) (ContextState, error) {
	t.Helper()
	return Load(e.exec.Store().NewTxn(), key)
}

func withdrawData(t *testing.T, balance, amount uint64) *zkproof.WithdrawData {
	t.Helper()
	kp := elgamal.NewKeypair()
	ct, err := elgamal.Encrypt(kp.Public, balance)
	if err != nil {
		t.Fatal(err)
	}
	d, err := zkproof.NewWithdrawData(testMint, testAccount, kp, balance, ct, amount)
	if err != nil {
		t.Fatalf("prove: %v", err)
	}
	return d
}

func TestContextLifecycle(t *testing.T) {
	e := newEnv(t)
	authority := e.payer.PublicKey()
	key := e.createContext(t, zkproof.ProofTypeWithdraw)

	st, err := e.load(t, key.PublicKey())
	if err != nil || st.Status() != StatusUninitialized {
		t.Fatalf("fresh context: got %v (%v)", st, err)
	}
	if u := st.(*Uninitialized); u.ProofType != zkproof.ProofTypeWithdraw {
		t.Fatalf("size-derived type: got %s", u.ProofType)
	}

	d := withdrawData(t, 1000, 600)
	if err := e.run([]solana.PrivateKey{e.payer}, NewVerifyProofWithContextInstruction(d, key.PublicKey(), authority)); err != nil {
		t.Fatalf("verify: %v", err)
	}
	st, err = e.load(t, key.PublicKey())
	if err != nil {
		t.Fatal(err)
	}
	v, ok := st.(*Verified)
	if !ok {
		t.Fatalf("after verify: got %T want *Verified", st)
	}
	if v.Authority != authority || v.ProofType != zkproof.ProofTypeWithdraw || !v.CreatedAt.Equal(testNow) {
		t.Fatalf("verified header: got %+v", v)
	}

	// A second statement cannot replace the first.
	other := withdrawData(t, 50, 10)
	err = e.run([]solana.PrivateKey{e.payer}, NewVerifyProofWithContextInstruction(other, key.PublicKey(), authority))
	if !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("re-verify: got %v want %v", err, ErrAlreadyVerified)
	}

	txn := e.exec.Store().NewTxn()
	pctx := &ledger.Context{Txn: txn, Now: testNow}
	if _, err := Consume(pctx, key.PublicKey(), authority, zkproof.ProofTypeTransfer); !errors.Is(err, ErrInvalidProofContext) {
		t.Fatalf("consume as transfer: got %v want %v", err, ErrInvalidProofContext)
	}
	if _, err := Consume(pctx, key.PublicKey(), solana.PublicKey{9}, zkproof.ProofTypeWithdraw); !errors.Is(err, ErrInvalidProofContext) {
		t.Fatalf("consume by stranger: got %v want %v", err, ErrInvalidProofContext)
	}
	stmt, err := Consume(pctx, key.PublicKey(), authority, zkproof.ProofTypeWithdraw)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if string(stmt) != string(d.ContextBytes()) {
		t.Fatal("consumed statement differs from verified one")
	}
	if _, err := Consume(pctx, key.PublicKey(), authority, zkproof.ProofTypeWithdraw); !errors.Is(err, ErrContextConsumed) {
		t.Fatalf("double consume: got %v want %v", err, ErrContextConsumed)
	}
	if err := txn.Commit(); err != nil {
		t.Fatal(err)
	}

	before, _ := e.exec.Store().Account(authority)
	if err := e.run([]solana.PrivateKey{e.payer}, NewCloseContextStateInstruction(key.PublicKey(), authority, authority)); err != nil {
		t.Fatalf("close: %v", err)
	}
	after, _ := e.exec.Store().Account(authority)
	if want := before.Lamports + params.StorageDeposit(ContextStateSize(zkproof.ProofTypeWithdraw)); after.Lamports != want {
		t.Fatalf("refund: got %d want %d", after.Lamports, want)
	}
}

func TestCloseBeforeConsume(t *testing.T) {
	e := newEnv(t)
	authority := e.payer.PublicKey()
	key := e.createContext(t, zkproof.ProofTypeWithdraw)
	d := withdrawData(t, 1000, 1)
	if err := e.run([]solana.PrivateKey{e.payer}, NewVerifyProofWithContextInstruction(d, key.PublicKey(), authority)); err != nil {
		t.Fatalf("verify: %v", err)
	}

	stranger, _ := solana.NewRandomPrivateKey()
	err := e.run([]solana.PrivateKey{stranger}, NewCloseContextStateInstruction(key.PublicKey(), stranger.PublicKey(), stranger.PublicKey()))
	if !errors.Is(err, ErrInvalidProofContext) {
		t.Fatalf("close by stranger: got %v want %v", err, ErrInvalidProofContext)
	}
	if err := e.run([]solana.PrivateKey{e.payer}, NewCloseContextStateInstruction(key.PublicKey(), authority, authority)); err != nil {
		t.Fatalf("close: %v", err)
	}

	pctx := &ledger.Context{Txn: e.exec.Store().NewTxn(), Now: testNow}
	if _, err := Consume(pctx, key.PublicKey(), authority, zkproof.ProofTypeWithdraw); !errors.Is(err, ErrInvalidProofContext) {
		t.Fatalf("consume after close: got %v want %v", err, ErrInvalidProofContext)
	}
	err = e.run([]solana.PrivateKey{e.payer}, NewVerifyProofWithContextInstruction(d, key.PublicKey(), authority))
	if !errors.Is(err, ErrInvalidProofContext) {
		t.Fatalf("verify into closed account: got %v want %v", err, ErrInvalidProofContext)
	}
}

func TestFailedProofLeavesContextEmpty(t *testing.T) {
	e := newEnv(t)
	key := e.createContext(t, zkproof.ProofTypeWithdraw)
	d := withdrawData(t, 100, 700) // overdraw

	err := e.run([]solana.PrivateKey{e.payer}, NewVerifyProofWithContextInstruction(d, key.PublicKey(), e.payer.PublicKey()))
	if !errors.Is(err, ErrProofVerificationFailed) {
		t.Fatalf("bad proof: got %v want %v", err, ErrProofVerificationFailed)
	}
	st, err := e.load(t, key.PublicKey())
	if err != nil || st.Status() != StatusUninitialized {
		t.Fatalf("after failed verify: got %v (%v)", st, err)
	}
	pctx := &ledger.Context{Txn: e.exec.Store().NewTxn(), Now: testNow}
	if _, err := Consume(pctx, key.PublicKey(), e.payer.PublicKey(), zkproof.ProofTypeWithdraw); !errors.Is(err, ErrContextNotVerified) {
		t.Fatalf("consume empty: got %v want %v", err, ErrContextNotVerified)
	}

	// The creator can abort an empty context with its own key.
	if err := e.run([]solana.PrivateKey{key}, NewCloseContextStateInstruction(key.PublicKey(), e.payer.PublicKey(), key.PublicKey())); err != nil {
		t.Fatalf("close empty: %v", err)
	}
}

func TestContextSizeMustMatchProof(t *testing.T) {
	e := newEnv(t)
	key := e.createContext(t, zkproof.ProofTypePubkeyValidity)
	err := e.run([]solana.PrivateKey{e.payer}, NewVerifyProofWithContextInstruction(withdrawData(t, 10, 1), key.PublicKey(), e.payer.PublicKey()))
	if !errors.Is(err, ErrInvalidProofContext) {
		t.Fatalf("mis-sized context: got %v want %v", err, ErrInvalidProofContext)
	}
}

func TestInlineVerify(t *testing.T) {
	e := newEnv(t)
	if err := e.run([]solana.PrivateKey{e.payer}, NewVerifyProofInstruction(withdrawData(t, 10, 1))); err != nil {
		t.Fatalf("inline verify: %v", err)
	}
	if err := e.run([]solana.PrivateKey{e.payer}, NewVerifyProofInstruction(withdrawData(t, 10, 11))); !errors.Is(err, ErrProofVerificationFailed) {
		t.Fatalf("inline bad proof: got %v want %v", err, ErrProofVerificationFailed)
	}
}

func TestExpired(t *testing.T) {
	v := &Verified{CreatedAt: testNow}
	if Expired(v, testNow.Add(time.Hour), params.DefaultContextExpiry) {
		t.Fatal("fresh context reported expired")
	}
	if !Expired(v, testNow.Add(params.DefaultContextExpiry), params.DefaultContextExpiry) {
		t.Fatal("old context not expired")
	}
	if !Expired(v.Consume(), testNow, params.DefaultContextExpiry) {
		t.Fatal("consumed context not expired")
	}
	if Expired(&Uninitialized{}, testNow.Add(100*params.DefaultContextExpiry), params.DefaultContextExpiry) {
		t.Fatal("uninitialized context expired")
	}
}

func TestDecodeRejectsBadHeader(t *testing.T) {
	v := &Verified{Authority: solana.PublicKey{4}, ProofType: zkproof.ProofTypeZeroBalance, CreatedAt: testNow, Context: make([]byte, zkproof.ZeroBalanceContextSize)}
	raw := v.encode(ContextStateSize(zkproof.ProofTypeZeroBalance))
	st, err := DecodeContextState(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := st.(*Verified); got.Authority != v.Authority || got.ProofType != v.ProofType {
		t.Fatalf("decoded: got %+v", got)
	}
	raw[33] = 7
	if _, err := DecodeContextState(raw); !errors.Is(err, ErrInvalidProofContext) {
		t.Fatalf("bad status: got %v want %v", err, ErrInvalidProofContext)
	}
	if _, err := DecodeContextState(raw[:10]); !errors.Is(err, ErrInvalidProofContext) {
		t.Fatalf("short: got %v want %v", err, ErrInvalidProofContext)
	}
}
