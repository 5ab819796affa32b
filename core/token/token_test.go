package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	solana "github.com/gagliardetto/solana-go"
	"github.com/solana-developers/Confidential-Transfer-Sample/core/proofctx"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/authenc"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/elgamal"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/zkproof"
	"github.com/solana-developers/Confidential-Transfer-Sample/ledger"
	"github.com/solana-developers/Confidential-Transfer-Sample/ledgerdb/memorydb"
	"github.com/stretchr/testify/assert"
)

const (
	testDecimals = 6
	testBound    = 1 << 24
)

type env struct {
	t             *testing.T
	exec          *ledger.Executor
	payer         solana.PrivateKey
	mintAuthority solana.PrivateKey
	mint          solana.PublicKey
	auditor       *elgamal.Keypair
}

type holder struct {
	owner   solana.PrivateKey
	account solana.PublicKey
	kp      *elgamal.Keypair
	ae      authenc.Key
}

func newKey(t *testing.T) solana.PrivateKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	return key
}

// newEnv creates a ledger with one confidential mint. A nil auditor
// disables auditing.
func newEnv(t *testing.T, autoApprove bool, auditor *elgamal.Keypair) *env {
	t.Helper()
	store := ledger.NewStore(memorydb.New(), 0)
	e := &env{t: t, payer: newKey(t), mintAuthority: newKey(t), auditor: auditor}
	if err := store.Fund(e.payer.PublicKey(), 10_000_000_000); err != nil {
		t.Fatal(err)
	}
	system := zkproof.NewSystem()
	registry := ledger.NewRegistry()
	registry.Register(proofctx.NewProgram(system))
	registry.Register(NewProcessor(system, nil))
	e.exec = ledger.NewExecutor(store, registry)
	e.exec.SetClock(func() time.Time { return time.Unix(1700000000, 0) })

	mintKey := newKey(t)
	e.mint = mintKey.PublicKey()
	conf := &ConfidentialMint{Authority: e.mintAuthority.PublicKey(), AutoApproveNewAccounts: autoApprove}
	if auditor != nil {
		conf.AuditorElGamalPubkey = auditor.Public
	}
	err := e.run([]solana.PrivateKey{e.payer, mintKey},
		NewCreateMintAccountInstruction(e.payer.PublicKey(), e.mint),
		NewInitializeMintInstruction(e.mint, testDecimals, e.mintAuthority.PublicKey(), conf),
	)
	if err != nil {
		t.Fatalf("create mint: %v", err)
	}
	return e
}

func (e *env) run(signers []solana.PrivateKey, ixs ...ledger.Instruction) error {
	tx := ledger.NewTransaction(ixs...)
	if err := tx.Sign(signers...); err != nil {
		e.t.Fatalf("sign: %v", err)
	}
	_, err := e.exec.Execute(context.Background(), tx)
	return err
}

// newHolder creates a token account holding amount public tokens with its
// confidential extension configured. A zero maxCounter selects the default.
func (e *env) newHolder(amount, maxCounter uint64) *holder {
	e.t.Helper()
	accountKey := newKey(e.t)
	h := &holder{owner: newKey(e.t), account: accountKey.PublicKey(), kp: elgamal.NewKeypair()}
	var err error
	if h.ae, err = authenc.NewRandomKey(); err != nil {
		e.t.Fatal(err)
	}
	zero, err := h.ae.Encrypt(0)
	if err != nil {
		e.t.Fatal(err)
	}
	proof, err := zkproof.NewPubkeyValidityData(e.mint, h.account, h.kp)
	if err != nil {
		e.t.Fatal(err)
	}
	err = e.run([]solana.PrivateKey{e.payer, accountKey, e.mintAuthority, h.owner},
		NewCreateTokenAccountInstruction(e.payer.PublicKey(), h.account),
		NewInitializeAccountInstruction(h.account, e.mint, h.owner.PublicKey()),
		NewMintToInstruction(e.mint, h.account, e.mintAuthority.PublicKey(), amount),
		NewConfigureAccountInstruction(h.account, e.mint, h.owner.PublicKey(), zero, maxCounter, InlineProof(proof)),
	)
	if err != nil {
		e.t.Fatalf("create holder: %v", err)
	}
	return h
}

func (e *env) account(key solana.PublicKey) *Account {
	e.t.Helper()
	acct, err := e.exec.Store().Account(key)
	if err != nil {
		e.t.Fatalf("read %s: %v", key, err)
	}
	a, err := DecodeAccount(acct.Data)
	if err != nil {
		e.t.Fatalf("decode %s: %v", key, err)
	}
	return a
}

func (e *env) conf(h *holder) *ConfidentialAccount {
	e.t.Helper()
	c := e.account(h.account).Confidential
	if c == nil {
		e.t.Fatalf("%s has no confidential extension", h.account)
	}
	return c
}

func (e *env) deposit(h *holder, amount uint64) error {
	return e.run([]solana.PrivateKey{h.owner}, NewDepositInstruction(h.account, e.mint, h.owner.PublicKey(), amount, testDecimals))
}

func (e *env) apply(h *holder) error {
	e.t.Helper()
	info := NewApplyPendingBalanceAccountInfo(e.conf(h))
	cache, err := info.NewDecryptableAvailableBalance(h.kp.Secret, h.ae, testBound)
	if err != nil {
		e.t.Fatalf("new decryptable balance: %v", err)
	}
	return e.run([]solana.PrivateKey{h.owner}, NewApplyPendingBalanceInstruction(h.account, h.owner.PublicKey(), info.PendingBalanceCreditCounter, cache))
}

func (e *env) fund(h *holder, amount uint64) {
	e.t.Helper()
	if err := e.deposit(h, amount); err != nil {
		e.t.Fatalf("deposit: %v", err)
	}
	if err := e.apply(h); err != nil {
		e.t.Fatalf("apply: %v", err)
	}
}

func (e *env) available(h *holder) uint64 {
	e.t.Helper()
	v, err := RecoverAvailableBalance(e.conf(h), h.kp.Secret, testBound)
	if err != nil {
		e.t.Fatalf("decrypt available balance: %v", err)
	}
	return v
}

func (e *env) cached(h *holder) uint64 {
	e.t.Helper()
	v, err := h.ae.Decrypt(e.conf(h).DecryptableAvailableBalance)
	if err != nil {
		e.t.Fatalf("decrypt cache: %v", err)
	}
	return v
}

func (e *env) withdraw(h *holder, amount uint64) error {
	e.t.Helper()
	data, cache, err := NewWithdrawAccountInfo(e.conf(h)).Generate(e.mint, h.account, h.kp, h.ae, amount)
	if err != nil {
		e.t.Fatalf("withdraw proof: %v", err)
	}
	return e.run([]solana.PrivateKey{h.owner}, NewWithdrawInstruction(h.account, e.mint, h.owner.PublicKey(), amount, testDecimals, cache, InlineProof(data)))
}

// transferData builds a transfer proof from src to dst.
func (e *env) transferData(src, dst *holder, amount uint64) (*zkproof.TransferData, authenc.Ciphertext) {
	e.t.Helper()
	var auditor elgamal.PublicKey
	if e.auditor != nil {
		auditor = e.auditor.Public
	}
	data, cache, err := NewTransferAccountInfo(e.conf(src)).Generate(e.mint, src.account, dst.account, src.kp, src.ae, amount, e.conf(dst).ElGamalPubkey, auditor)
	if err != nil {
		e.t.Fatalf("transfer proof: %v", err)
	}
	return data, cache
}

// verifyIntoContext stores d in a fresh context account owned by authority.
func (e *env) verifyIntoContext(d zkproof.ProofData, authority solana.PrivateKey) solana.PublicKey {
	e.t.Helper()
	key := newKey(e.t)
	err := e.run([]solana.PrivateKey{e.payer, key, authority},
		proofctx.NewCreateContextAccountInstruction(e.payer.PublicKey(), key.PublicKey(), d.ProofType()),
		proofctx.NewVerifyProofWithContextInstruction(d, key.PublicKey(), authority.PublicKey()),
	)
	if err != nil {
		e.t.Fatalf("verify into context: %v", err)
	}
	return key.PublicKey()
}

func (e *env) transfer(src, dst *holder, amount uint64) error {
	e.t.Helper()
	data, cache := e.transferData(src, dst, amount)
	ctxKey := e.verifyIntoContext(data, src.owner)
	return e.run([]solana.PrivateKey{src.owner}, NewConfidentialTransferInstruction(src.account, e.mint, dst.account, src.owner.PublicKey(), cache, ContextProof(ctxKey)))
}

func TestEndToEnd(t *testing.T) {
	e := newEnv(t, true, nil)
	h := e.newHolder(1000, 0)

	if err := e.deposit(h, 1000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if got := e.conf(h).PendingBalanceCreditCounter; got != 1 {
		t.Fatalf("pending credits: got %d want 1", got)
	}
	if got := e.account(h.account).Amount; got != 0 {
		t.Fatalf("public amount after deposit: got %d want 0", got)
	}
	if err := e.apply(h); err != nil {
		t.Fatalf("apply: %v", err)
	}
	conf := e.conf(h)
	if conf.PendingBalanceCreditCounter != 0 {
		t.Fatalf("pending credits after apply: got %d want 0", conf.PendingBalanceCreditCounter)
	}
	if conf.ActualPendingBalanceCreditCounter != 1 || conf.ExpectedPendingBalanceCreditCounter != 1 {
		t.Fatalf("applied counters: got %d/%d want 1/1", conf.ExpectedPendingBalanceCreditCounter, conf.ActualPendingBalanceCreditCounter)
	}
	if got := e.available(h); got != 1000 {
		t.Fatalf("available: got %d want 1000", got)
	}
	if got := e.cached(h); got != 1000 {
		t.Fatalf("cached available: got %d want 1000", got)
	}

	if err := e.withdraw(h, 400); err != nil {
		t.Fatalf("withdraw 400: %v", err)
	}
	if got := e.available(h); got != 600 {
		t.Fatalf("available after withdraw: got %d want 600", got)
	}
	if got := e.account(h.account).Amount; got != 400 {
		t.Fatalf("public amount after withdraw: got %d want 400", got)
	}

	// The helper refuses to prove an overdraft.
	if _, _, err := NewWithdrawAccountInfo(e.conf(h)).Generate(e.mint, h.account, h.kp, h.ae, 700); !errors.Is(err, ErrProofGeneration) {
		t.Fatalf("helper overdraft: got %v want %v", err, ErrProofGeneration)
	}
	// A proof forced through anyway is rejected by the ledger.
	before := e.conf(h)
	data, err := zkproof.NewWithdrawData(e.mint, h.account, h.kp, 600, before.AvailableBalance, 700)
	if err != nil {
		t.Fatalf("forced proof: %v", err)
	}
	err = e.run([]solana.PrivateKey{h.owner}, NewWithdrawInstruction(h.account, e.mint, h.owner.PublicKey(), 700, testDecimals, before.DecryptableAvailableBalance, InlineProof(data)))
	if !errors.Is(err, ErrProofVerificationFailed) {
		t.Fatalf("withdraw 700: got %v want %v", err, ErrProofVerificationFailed)
	}
	if after := e.conf(h); *after != *before {
		t.Fatalf("state changed by failed withdraw:\n%s", spew.Sdump(before, after))
	}
	if got := e.available(h); got != 600 {
		t.Fatalf("available after failed withdraw: got %d want 600", got)
	}
}

func TestApplyPendingBalanceCounterRace(t *testing.T) {
	e := newEnv(t, true, nil)
	h := e.newHolder(1000, 0)
	if err := e.deposit(h, 100); err != nil {
		t.Fatal(err)
	}
	stale := NewApplyPendingBalanceAccountInfo(e.conf(h))
	cache, err := stale.NewDecryptableAvailableBalance(h.kp.Secret, h.ae, testBound)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.deposit(h, 50); err != nil {
		t.Fatal(err)
	}
	before := e.conf(h)
	err = e.run([]solana.PrivateKey{h.owner}, NewApplyPendingBalanceInstruction(h.account, h.owner.PublicKey(), stale.PendingBalanceCreditCounter, cache))
	if !errors.Is(err, ErrPendingBalanceCreditCounterMismatch) {
		t.Fatalf("stale apply: got %v want %v", err, ErrPendingBalanceCreditCounterMismatch)
	}
	assert.Equal(t, before, e.conf(h), "failed apply must not touch the account")

	if err := e.apply(h); err != nil {
		t.Fatalf("fresh apply: %v", err)
	}
	if got := e.available(h); got != 150 {
		t.Fatalf("available: got %d want 150", got)
	}
}

func TestDepositCounterBound(t *testing.T) {
	e := newEnv(t, true, nil)
	h := e.newHolder(100, 3)
	for i := 0; i < 3; i++ {
		if err := e.deposit(h, 10); err != nil {
			t.Fatalf("deposit %d: %v", i, err)
		}
	}
	if err := e.deposit(h, 10); !errors.Is(err, ErrMaximumPendingBalanceCreditCounterExceeded) {
		t.Fatalf("deposit over bound: got %v want %v", err, ErrMaximumPendingBalanceCreditCounterExceeded)
	}
	if got := e.conf(h).PendingBalanceCreditCounter; got != 3 {
		t.Fatalf("pending credits: got %d want 3", got)
	}
	if got := e.account(h.account).Amount; got != 70 {
		t.Fatalf("public amount: got %d want 70", got)
	}
	// Applying frees the counter again.
	if err := e.apply(h); err != nil {
		t.Fatal(err)
	}
	if err := e.deposit(h, 10); err != nil {
		t.Fatalf("deposit after apply: %v", err)
	}
}

func TestDepositRejections(t *testing.T) {
	e := newEnv(t, true, nil)
	h := e.newHolder(100, 0)

	tests := []struct {
		name     string
		amount   uint64
		decimals uint8
		want     error
	}{
		{"decimals", 10, testDecimals + 1, ErrDecimalsMismatch},
		{"insufficient", 101, testDecimals, ErrInsufficientFunds},
		{"too large", 1 << 48, testDecimals, ErrAmountTooLarge},
	}
	for _, tt := range tests {
		err := e.run([]solana.PrivateKey{h.owner}, NewDepositInstruction(h.account, e.mint, h.owner.PublicKey(), tt.amount, tt.decimals))
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: got %v want %v", tt.name, err, tt.want)
		}
	}
	if got := e.conf(h).PendingBalanceCreditCounter; got != 0 {
		t.Fatalf("pending credits: got %d want 0", got)
	}

	// Only the owner may deposit.
	other := newKey(t)
	err := e.run([]solana.PrivateKey{other}, NewDepositInstruction(h.account, e.mint, other.PublicKey(), 10, testDecimals))
	if !errors.Is(err, ErrOwnerMismatch) {
		t.Fatalf("foreign deposit: got %v want %v", err, ErrOwnerMismatch)
	}
	err = e.run([]solana.PrivateKey{other}, NewDepositInstruction(h.account, e.mint, h.owner.PublicKey(), 10, testDecimals))
	if !errors.Is(err, ledger.ErrMissingSignature) {
		t.Fatalf("unsigned deposit: got %v want %v", err, ledger.ErrMissingSignature)
	}
}

func TestWithdrawStaleInlineProof(t *testing.T) {
	e := newEnv(t, true, nil)
	h := e.newHolder(1000, 0)
	e.fund(h, 500)

	data, cache, err := NewWithdrawAccountInfo(e.conf(h)).Generate(e.mint, h.account, h.kp, h.ae, 100)
	if err != nil {
		t.Fatal(err)
	}
	e.fund(h, 200)
	err = e.run([]solana.PrivateKey{h.owner}, NewWithdrawInstruction(h.account, e.mint, h.owner.PublicKey(), 100, testDecimals, cache, InlineProof(data)))
	if !errors.Is(err, ErrProofVerificationFailed) {
		t.Fatalf("stale withdraw: got %v want %v", err, ErrProofVerificationFailed)
	}
	if got := e.available(h); got != 700 {
		t.Fatalf("available: got %d want 700", got)
	}
}

func TestWithdrawThroughContext(t *testing.T) {
	e := newEnv(t, true, nil)
	h := e.newHolder(1000, 0)
	e.fund(h, 1000)

	data, cache, err := NewWithdrawAccountInfo(e.conf(h)).Generate(e.mint, h.account, h.kp, h.ae, 250)
	if err != nil {
		t.Fatal(err)
	}
	ctxKey := e.verifyIntoContext(data, h.owner)

	// The context was verified for the owner; the same statement under a
	// different amount does not match.
	err = e.run([]solana.PrivateKey{h.owner}, NewWithdrawInstruction(h.account, e.mint, h.owner.PublicKey(), 251, testDecimals, cache, ContextProof(ctxKey)))
	if !errors.Is(err, ErrStatementMismatch) {
		t.Fatalf("mismatched amount: got %v want %v", err, ErrStatementMismatch)
	}
	if err := e.run([]solana.PrivateKey{h.owner}, NewWithdrawInstruction(h.account, e.mint, h.owner.PublicKey(), 250, testDecimals, cache, ContextProof(ctxKey))); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if got := e.available(h); got != 750 {
		t.Fatalf("available: got %d want 750", got)
	}
	st, err := proofctx.Load(e.exec.Store().NewTxn(), ctxKey)
	if err != nil {
		t.Fatal(err)
	}
	if st.Status() != proofctx.StatusConsumed {
		t.Fatalf("context status: got %v want %v", st.Status(), proofctx.StatusConsumed)
	}
	// A consumed context cannot back a second withdrawal.
	err = e.run([]solana.PrivateKey{h.owner}, NewWithdrawInstruction(h.account, e.mint, h.owner.PublicKey(), 250, testDecimals, cache, ContextProof(ctxKey)))
	if !errors.Is(err, ErrInvalidProofContext) {
		t.Fatalf("reused context: got %v want %v", err, ErrInvalidProofContext)
	}
}

func TestWithdrawContextOfWrongKind(t *testing.T) {
	e := newEnv(t, true, nil)
	h := e.newHolder(1000, 0)
	zero, err := NewEmptyAccountInfo(e.conf(h)).Generate(e.mint, h.account, h.kp)
	if err != nil {
		t.Fatal(err)
	}
	ctxKey := e.verifyIntoContext(zero, h.owner)
	cache, _ := h.ae.Encrypt(0)
	err = e.run([]solana.PrivateKey{h.owner}, NewWithdrawInstruction(h.account, e.mint, h.owner.PublicKey(), 0, testDecimals, cache, ContextProof(ctxKey)))
	if !errors.Is(err, ErrInvalidProofContext) {
		t.Fatalf("wrong kind: got %v want %v", err, ErrInvalidProofContext)
	}
}

func TestTransferThroughContext(t *testing.T) {
	auditor := elgamal.NewKeypair()
	e := newEnv(t, true, auditor)
	alice := e.newHolder(100000, 0)
	bob := e.newHolder(0, 0)
	e.fund(alice, 100000)

	const amount = 70000
	data, cache := e.transferData(alice, bob, amount)

	// The transfer proof does not fit inline.
	err := e.run([]solana.PrivateKey{alice.owner}, NewConfidentialTransferInstruction(alice.account, e.mint, bob.account, alice.owner.PublicKey(), cache, InlineProof(data)))
	if !errors.Is(err, ErrProofTooLarge) {
		t.Fatalf("inline transfer: got %v want %v", err, ErrProofTooLarge)
	}

	ctxKey := e.verifyIntoContext(data, alice.owner)
	if err := e.run([]solana.PrivateKey{alice.owner}, NewConfidentialTransferInstruction(alice.account, e.mint, bob.account, alice.owner.PublicKey(), cache, ContextProof(ctxKey))); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := e.available(alice); got != 30000 {
		t.Fatalf("source available: got %d want 30000", got)
	}
	if got := e.cached(alice); got != 30000 {
		t.Fatalf("source cache: got %d want 30000", got)
	}
	if got := e.conf(bob).PendingBalanceCreditCounter; got != 1 {
		t.Fatalf("destination credits: got %d want 1", got)
	}
	if err := e.apply(bob); err != nil {
		t.Fatalf("destination apply: %v", err)
	}
	if got := e.available(bob); got != amount {
		t.Fatalf("destination available: got %d want %d", got, amount)
	}

	// The auditor reads both halves of the amount.
	lo, err := auditor.Secret.DecryptAmount(data.Context.AmountLo.Ciphertext(2), testBound)
	if err != nil {
		t.Fatal(err)
	}
	hi, err := auditor.Secret.DecryptAmount(data.Context.AmountHi.Ciphertext(2), testBound)
	if err != nil {
		t.Fatal(err)
	}
	if got := lo + hi<<16; got != amount {
		t.Fatalf("audited amount: got %d want %d", got, amount)
	}
}

func TestTransferStatementMismatch(t *testing.T) {
	e := newEnv(t, true, nil)
	alice := e.newHolder(1000, 0)
	bob := e.newHolder(0, 0)
	carol := e.newHolder(0, 0)
	e.fund(alice, 500)

	data, cache := e.transferData(alice, bob, 100)
	ctxKey := e.verifyIntoContext(data, alice.owner)

	// Redirecting the proof to another destination is caught.
	err := e.run([]solana.PrivateKey{alice.owner}, NewConfidentialTransferInstruction(alice.account, e.mint, carol.account, alice.owner.PublicKey(), cache, ContextProof(ctxKey)))
	if !errors.Is(err, ErrStatementMismatch) {
		t.Fatalf("redirected transfer: got %v want %v", err, ErrStatementMismatch)
	}
	// So is a source balance that moved after proving.
	e.fund(alice, 1)
	err = e.run([]solana.PrivateKey{alice.owner}, NewConfidentialTransferInstruction(alice.account, e.mint, bob.account, alice.owner.PublicKey(), cache, ContextProof(ctxKey)))
	if !errors.Is(err, ErrStatementMismatch) {
		t.Fatalf("stale transfer: got %v want %v", err, ErrStatementMismatch)
	}
	// The failed attempts left the context verified.
	st, err := proofctx.Load(e.exec.Store().NewTxn(), ctxKey)
	if err != nil {
		t.Fatal(err)
	}
	if st.Status() != proofctx.StatusVerified {
		t.Fatalf("context status: got %v want %v", st.Status(), proofctx.StatusVerified)
	}
	if got := e.conf(bob).PendingBalanceCreditCounter; got != 0 {
		t.Fatalf("destination credits: got %d want 0", got)
	}
}

func TestTransferRejections(t *testing.T) {
	e := newEnv(t, true, nil)
	alice := e.newHolder(1000, 0)
	bob := e.newHolder(10, 1)
	e.fund(alice, 1000)

	err := e.run([]solana.PrivateKey{alice.owner}, NewConfidentialTransferInstruction(alice.account, e.mint, alice.account, alice.owner.PublicKey(), authenc.Ciphertext{}, ContextProof(solana.PublicKey{})))
	if !errors.Is(err, ErrSameAccount) {
		t.Fatalf("self transfer: got %v want %v", err, ErrSameAccount)
	}

	// bob allows one unapplied credit.
	if err := e.deposit(bob, 10); err != nil {
		t.Fatal(err)
	}
	if err := e.transfer(alice, bob, 5); !errors.Is(err, ErrReceiverCreditCounterExceeded) {
		t.Fatalf("full receiver: got %v want %v", err, ErrReceiverCreditCounterExceeded)
	}
	if err := e.apply(bob); err != nil {
		t.Fatal(err)
	}

	disable := NewDisableConfidentialCreditsInstruction(bob.account, bob.owner.PublicKey())
	if err := e.run([]solana.PrivateKey{bob.owner}, disable); err != nil {
		t.Fatal(err)
	}
	if err := e.transfer(alice, bob, 5); !errors.Is(err, ErrConfidentialCreditsDisabled) {
		t.Fatalf("credits disabled: got %v want %v", err, ErrConfidentialCreditsDisabled)
	}
	enable := NewEnableConfidentialCreditsInstruction(bob.account, bob.owner.PublicKey())
	if err := e.run([]solana.PrivateKey{bob.owner}, enable); err != nil {
		t.Fatal(err)
	}
	if err := e.transfer(alice, bob, 5); err != nil {
		t.Fatalf("transfer after enabling credits: %v", err)
	}

	withFee := instruction(InstructionConfidentialTransferWithFee, nil, alice.account, e.mint, bob.account, alice.owner.PublicKey())
	if err := e.run([]solana.PrivateKey{alice.owner}, withFee); !errors.Is(err, ErrUnsupportedInstruction) {
		t.Fatalf("transfer with fee: got %v want %v", err, ErrUnsupportedInstruction)
	}
}

func TestNonConfidentialCredits(t *testing.T) {
	e := newEnv(t, true, nil)
	alice := e.newHolder(100, 0)
	bob := e.newHolder(0, 0)
	send := func() error {
		return e.run([]solana.PrivateKey{alice.owner}, NewTransferInstruction(alice.account, e.mint, bob.account, alice.owner.PublicKey(), 10, testDecimals))
	}
	if err := send(); err != nil {
		t.Fatalf("public transfer: %v", err)
	}
	if err := e.run([]solana.PrivateKey{bob.owner}, NewDisableNonConfidentialCreditsInstruction(bob.account, bob.owner.PublicKey())); err != nil {
		t.Fatal(err)
	}
	if err := send(); !errors.Is(err, ErrNonConfidentialCreditsDisabled) {
		t.Fatalf("disabled: got %v want %v", err, ErrNonConfidentialCreditsDisabled)
	}
	if err := e.run([]solana.PrivateKey{bob.owner}, NewEnableNonConfidentialCreditsInstruction(bob.account, bob.owner.PublicKey())); err != nil {
		t.Fatal(err)
	}
	if err := send(); err != nil {
		t.Fatalf("re-enabled: %v", err)
	}
	if got := e.account(bob.account).Amount; got != 20 {
		t.Fatalf("destination amount: got %d want 20", got)
	}
}

func TestApproveAccount(t *testing.T) {
	e := newEnv(t, false, nil)
	h := e.newHolder(100, 0)
	if e.conf(h).Approved {
		t.Fatal("account approved without auto-approval")
	}
	if err := e.deposit(h, 10); !errors.Is(err, ErrAccountNotApproved) {
		t.Fatalf("unapproved deposit: got %v want %v", err, ErrAccountNotApproved)
	}
	err := e.run([]solana.PrivateKey{h.owner}, NewApproveAccountInstruction(h.account, e.mint, h.owner.PublicKey()))
	if !errors.Is(err, ErrAuthorityMismatch) {
		t.Fatalf("approve by owner: got %v want %v", err, ErrAuthorityMismatch)
	}
	if err := e.run([]solana.PrivateKey{e.mintAuthority}, NewApproveAccountInstruction(h.account, e.mint, e.mintAuthority.PublicKey())); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := e.deposit(h, 10); err != nil {
		t.Fatalf("approved deposit: %v", err)
	}
}

func TestConfigureAccount(t *testing.T) {
	e := newEnv(t, true, nil)
	h := e.newHolder(0, 0)
	conf := e.conf(h)
	zero := elgamal.ZeroCiphertext()
	if conf.AvailableBalance != zero || conf.PendingBalanceLo != zero || conf.PendingBalanceHi != zero {
		t.Fatalf("configured balances not zero: %s", spew.Sdump(conf))
	}
	if conf.MaximumPendingBalanceCreditCounter != 1<<16 {
		t.Fatalf("default max credits: got %d want %d", conf.MaximumPendingBalanceCreditCounter, 1<<16)
	}
	if !conf.AllowConfidentialCredits || !conf.AllowNonConfidentialCredits {
		t.Fatal("credits not enabled on configure")
	}
	if conf.ElGamalPubkey != h.kp.Public {
		t.Fatal("configured public key differs from the proven one")
	}
	if err := e.run([]solana.PrivateKey{h.owner}, NewConfigureAccountInstruction(h.account, e.mint, h.owner.PublicKey(), authenc.Ciphertext{}, 0, InlineProof(mustPubkeyProof(t, e.mint, h.account)))); !errors.Is(err, ErrAccountAlreadyConfigured) {
		t.Fatalf("reconfigure: got %v want %v", err, ErrAccountAlreadyConfigured)
	}
}

func mustPubkeyProof(t *testing.T, mint, account solana.PublicKey) *zkproof.PubkeyValidityData {
	t.Helper()
	d, err := zkproof.NewPubkeyValidityData(mint, account, elgamal.NewKeypair())
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestConfigureRejectsReplayedProof(t *testing.T) {
	e := newEnv(t, true, nil)
	accountKey, owner := newKey(t), newKey(t)
	account := accountKey.PublicKey()
	err := e.run([]solana.PrivateKey{e.payer, accountKey},
		NewCreateTokenAccountInstruction(e.payer.PublicKey(), account),
		NewInitializeAccountInstruction(account, e.mint, owner.PublicKey()),
	)
	if err != nil {
		t.Fatal(err)
	}
	// A proof bound to another account.
	foreign := mustPubkeyProof(t, e.mint, solana.PublicKey{9})
	err = e.run([]solana.PrivateKey{owner}, NewConfigureAccountInstruction(account, e.mint, owner.PublicKey(), authenc.Ciphertext{}, 0, InlineProof(foreign)))
	if !errors.Is(err, ErrInvalidProof) {
		t.Fatalf("replayed proof: got %v want %v", err, ErrInvalidProof)
	}
	if e.account(account).Confidential != nil {
		t.Fatal("failed configure left an extension behind")
	}
}

func TestEmptyAndCloseAccount(t *testing.T) {
	e := newEnv(t, true, nil)
	h := e.newHolder(300, 0)
	sink := e.newHolder(0, 0)
	e.fund(h, 300)

	empty := func() error {
		d, err := NewEmptyAccountInfo(e.conf(h)).Generate(e.mint, h.account, h.kp)
		if err != nil {
			t.Fatal(err)
		}
		return e.run([]solana.PrivateKey{h.owner}, NewEmptyAccountInstruction(h.account, h.owner.PublicKey(), InlineProof(d)))
	}
	if err := empty(); !errors.Is(err, ErrProofVerificationFailed) {
		t.Fatalf("empty with balance: got %v want %v", err, ErrProofVerificationFailed)
	}
	closeIx := NewCloseAccountInstruction(h.account, h.owner.PublicKey(), h.owner.PublicKey())
	if err := e.run([]solana.PrivateKey{h.owner}, closeIx); !errors.Is(err, ErrAccountHasBalance) {
		t.Fatalf("close with balance: got %v want %v", err, ErrAccountHasBalance)
	}

	if err := e.withdraw(h, 300); err != nil {
		t.Fatalf("withdraw all: %v", err)
	}
	if err := empty(); err != nil {
		t.Fatalf("empty: %v", err)
	}
	if got := e.conf(h).AvailableBalance; got != elgamal.ZeroCiphertext() {
		t.Fatalf("available not reset: %v", got)
	}
	if err := e.run([]solana.PrivateKey{h.owner}, NewTransferInstruction(h.account, e.mint, sink.account, h.owner.PublicKey(), 300, testDecimals)); err != nil {
		t.Fatalf("public transfer: %v", err)
	}
	if err := e.run([]solana.PrivateKey{h.owner}, closeIx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := e.exec.Store().Account(h.account); !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Fatalf("closed account: got %v want %v", err, ledger.ErrAccountNotFound)
	}
	owner, err := e.exec.Store().Account(h.owner.PublicKey())
	if err != nil {
		t.Fatal(err)
	}
	if owner.Lamports == 0 {
		t.Fatal("storage deposit not returned")
	}
}

func TestEmptyAccountWithPendingCredits(t *testing.T) {
	e := newEnv(t, true, nil)
	h := e.newHolder(10, 0)
	if err := e.deposit(h, 10); err != nil {
		t.Fatal(err)
	}
	d, err := NewEmptyAccountInfo(e.conf(h)).Generate(e.mint, h.account, h.kp)
	if err != nil {
		t.Fatal(err)
	}
	err = e.run([]solana.PrivateKey{h.owner}, NewEmptyAccountInstruction(h.account, h.owner.PublicKey(), InlineProof(d)))
	if !errors.Is(err, ErrAccountHasBalance) {
		t.Fatalf("pending credits: got %v want %v", err, ErrAccountHasBalance)
	}
}

func TestRefreshDecryptableBalance(t *testing.T) {
	e := newEnv(t, true, nil)
	h := e.newHolder(4242, 0)
	e.fund(h, 4242)
	conf := e.conf(h)
	for i := 0; i < 2; i++ {
		ct, v, err := RefreshDecryptableBalance(conf, h.kp.Secret, h.ae, testBound)
		if err != nil {
			t.Fatal(err)
		}
		if v != 4242 {
			t.Fatalf("refresh %d: got %d want 4242", i, v)
		}
		if got, err := h.ae.Decrypt(ct); err != nil || got != 4242 {
			t.Fatalf("refresh %d cache: got %d (%v) want 4242", i, got, err)
		}
	}
	// A foreign cache key cannot read the cache.
	other, _ := authenc.NewRandomKey()
	if _, _, err := NewWithdrawAccountInfo(conf).Generate(e.mint, h.account, h.kp, other, 1); !errors.Is(err, ErrAccountDecryption) {
		t.Fatalf("foreign cache key: got %v want %v", err, ErrAccountDecryption)
	}
}

func TestStateLayout(t *testing.T) {
	if AccountSize != 369 || MintSize != 108 {
		t.Fatalf("sizes: account %d mint %d", AccountSize, MintSize)
	}
	plain := &Account{Mint: solana.PublicKey{1}, Owner: solana.PublicKey{2}, Amount: 7, State: AccountStateInitialized}
	enc, err := encodeState(plain, AccountSize)
	if err != nil {
		t.Fatal(err)
	}
	dec, err := DecodeAccount(enc)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, plain, dec)

	kp := elgamal.NewKeypair()
	ct, err := elgamal.Encrypt(kp.Public, 5)
	if err != nil {
		t.Fatal(err)
	}
	full := &Account{
		Mint:  solana.PublicKey{1},
		Owner: solana.PublicKey{2},
		State: AccountStateInitialized,
		Confidential: &ConfidentialAccount{
			Approved:                           true,
			ElGamalPubkey:                      kp.Public,
			PendingBalanceHi:                   ct,
			AllowConfidentialCredits:           true,
			PendingBalanceCreditCounter:        3,
			MaximumPendingBalanceCreditCounter: 9,
		},
	}
	if enc, err = encodeState(full, AccountSize); err != nil {
		t.Fatal(err)
	}
	// Extension fields sit at fixed offsets behind the presence flag.
	const ext = 32 + 32 + 8 + 1 + 1
	if enc[ext-1] != 1 {
		t.Fatalf("presence flag: got %d want 1", enc[ext-1])
	}
	if got := enc[ext+1 : ext+1+elgamal.PointSize]; string(got) != string(kp.Public[:]) {
		t.Fatalf("pubkey offset: got %x", got)
	}
	if dec, err = DecodeAccount(enc); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, full, dec)

	if _, err := DecodeAccount(enc[:40]); !errors.Is(err, ErrInvalidAccountData) {
		t.Fatalf("short data: got %v want %v", err, ErrInvalidAccountData)
	}
}
