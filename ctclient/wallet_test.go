package ctclient

import (
	"context"
	"errors"
	"testing"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/solana-developers/Confidential-Transfer-Sample/accountsigner"
	"github.com/solana-developers/Confidential-Transfer-Sample/core/token"
	"github.com/solana-developers/Confidential-Transfer-Sample/node"
	"github.com/solana-developers/Confidential-Transfer-Sample/params"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	node      *node.Node
	payer     solana.PrivateKey
	authority solana.PrivateKey
	mint      solana.PublicKey
}

func newFixture(t *testing.T, dataDir string) *fixture {
	t.Helper()
	cfg := params.Defaults
	cfg.DataDir = dataDir
	cfg.DecryptBound = 1 << 24
	n, err := node.New(&cfg)
	require.NoError(t, err)
	t.Cleanup(func() { n.Close() })

	f := &fixture{node: n, payer: mustKey(t), authority: mustKey(t)}
	require.NoError(t, n.Fund(f.payer.PublicKey(), 10_000_000_000))
	mintKey := mustKey(t)
	f.mint = mintKey.PublicKey()
	require.NoError(t, CreateMint(context.Background(), n, f.payer, mintKey, f.authority.PublicKey(), MintConfig{Decimals: 2, AutoApprove: true}))
	return f
}

func mustKey(t *testing.T) solana.PrivateKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key
}

func (f *fixture) wallet(t *testing.T, public uint64) (*Wallet, *accountsigner.Ed25519Signer) {
	t.Helper()
	owner, err := accountsigner.GenerateEd25519()
	require.NoError(t, err)
	w, err := Create(context.Background(), f.node, f.payer, owner, f.mint, mustKey(t), 0)
	require.NoError(t, err)
	if public > 0 {
		require.NoError(t, MintTo(context.Background(), f.node, f.authority, f.mint, w.Account(), public))
	}
	return w, owner
}

func checkBalances(t *testing.T, w *Wallet, available, public uint64) {
	t.Helper()
	gotAvailable, gotPublic, err := w.Balances()
	require.NoError(t, err)
	if gotAvailable != available || gotPublic != public {
		t.Fatalf("balances: got %d/%d want %d/%d", gotAvailable, gotPublic, available, public)
	}
}

func TestWalletLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	alice, aliceOwner := f.wallet(t, 1000)
	bob, _ := f.wallet(t, 0)

	require.NoError(t, alice.Deposit(ctx, 1000))
	checkBalances(t, alice, 0, 0)
	require.NoError(t, alice.ApplyPendingBalance(ctx))
	checkBalances(t, alice, 1000, 0)

	require.NoError(t, alice.Withdraw(ctx, 400))
	checkBalances(t, alice, 600, 400)

	require.NoError(t, alice.Transfer(ctx, bob.Account(), 250))
	checkBalances(t, alice, 350, 400)
	require.NoError(t, bob.ApplyPendingBalance(ctx))
	checkBalances(t, bob, 250, 0)

	contexts, err := f.node.ProofContexts(time.Now())
	require.NoError(t, err)
	if len(contexts) != 0 {
		t.Fatalf("leftover proof contexts: %d", len(contexts))
	}

	if err := alice.Withdraw(ctx, 351); !errors.Is(err, token.ErrProofGeneration) {
		t.Fatalf("overdraft: got %v want %v", err, token.ErrProofGeneration)
	}

	// The keys are a function of the owner and the account.
	again, err := Open(f.node, f.payer, aliceOwner, f.mint, alice.Account())
	require.NoError(t, err)
	if again.ElGamalPubkey() != alice.ElGamalPubkey() {
		t.Fatal("reopened wallet derived another key")
	}
	checkBalances(t, again, 350, 400)

	snap, err := alice.Snapshot()
	require.NoError(t, err)
	if snap.Available != 350 || snap.Public != 400 || snap.Account != alice.Account().String() {
		t.Fatalf("snapshot: %+v", snap)
	}
}

func TestWalletEmptyAndClose(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	w, _ := f.wallet(t, 0)

	require.NoError(t, w.Empty(ctx))
	require.NoError(t, w.Close(ctx))
	if _, err := f.node.TokenAccount(w.Account()); err == nil {
		t.Fatal("closed account still readable")
	}
}

func TestWalletPersistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	f := newFixture(t, dir)
	w, owner := f.wallet(t, 500)
	require.NoError(t, w.Deposit(ctx, 300))
	require.NoError(t, w.ApplyPendingBalance(ctx))
	require.NoError(t, f.node.Close())

	cfg := params.Defaults
	cfg.DataDir = dir
	cfg.DecryptBound = 1 << 24
	n, err := node.New(&cfg)
	require.NoError(t, err)
	defer n.Close()
	reopened, err := Open(n, f.payer, owner, f.mint, w.Account())
	require.NoError(t, err)
	checkBalances(t, reopened, 300, 200)
}
