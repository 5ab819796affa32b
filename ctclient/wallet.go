// Package ctclient drives confidential balance operations from the owner's
// side: it derives the account keys, reads ledger state, builds proofs,
// routes them inline or through context accounts and retries races.
package ctclient

import (
	"context"
	"errors"
	"fmt"

	solana "github.com/gagliardetto/solana-go"
	"github.com/inconshreveable/log15"
	"github.com/solana-developers/Confidential-Transfer-Sample/accountsigner"
	"github.com/solana-developers/Confidential-Transfer-Sample/core/proofctx"
	"github.com/solana-developers/Confidential-Transfer-Sample/core/token"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/authenc"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/elgamal"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/zkproof"
	"github.com/solana-developers/Confidential-Transfer-Sample/internal/balancetracker"
	"github.com/solana-developers/Confidential-Transfer-Sample/ledger"
	"github.com/solana-developers/Confidential-Transfer-Sample/node"
)

// maxApplyAttempts bounds ApplyPendingBalance retries after counter races.
const maxApplyAttempts = 3

// Wallet operates one confidential token account.
type Wallet struct {
	node     *node.Node
	payer    solana.PrivateKey
	owner    *accountsigner.Ed25519Signer
	mint     solana.PublicKey
	account  solana.PublicKey
	decimals uint8

	keys *elgamal.Keypair
	ae   authenc.Key
	log  log15.Logger
}

// Open derives the keys of account from owner. The account address is the
// derivation seed, so the wallet never stores secret key material.
func Open(n *node.Node, payer solana.PrivateKey, owner *accountsigner.Ed25519Signer, mint, account solana.PublicKey) (*Wallet, error) {
	m, err := n.TokenMint(mint)
	if err != nil {
		return nil, err
	}
	kp, err := elgamal.NewKeypairFromSigner(owner, account[:])
	if err != nil {
		return nil, err
	}
	ae, err := authenc.NewKeyFromSigner(owner, account[:])
	if err != nil {
		return nil, err
	}
	return &Wallet{
		node:     n,
		payer:    payer,
		owner:    owner,
		mint:     mint,
		account:  account,
		decimals: m.Decimals,
		keys:     kp,
		ae:       ae,
		log:      log15.New("module", "wallet", "account", account),
	}, nil
}

// Create allocates, initializes and configures a new token account in one
// transaction and opens a wallet on it. A zero maxCounter selects the
// ledger default.
func Create(ctx context.Context, n *node.Node, payer solana.PrivateKey, owner *accountsigner.Ed25519Signer, mint solana.PublicKey, accountKey solana.PrivateKey, maxCounter uint64) (*Wallet, error) {
	account := accountKey.PublicKey()
	kp, err := elgamal.NewKeypairFromSigner(owner, account[:])
	if err != nil {
		return nil, err
	}
	ae, err := authenc.NewKeyFromSigner(owner, account[:])
	if err != nil {
		return nil, err
	}
	zero, err := ae.Encrypt(0)
	if err != nil {
		return nil, err
	}
	proof, err := zkproof.NewPubkeyValidityData(mint, account, kp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", token.ErrProofGeneration, err)
	}
	_, err = n.Send(ctx, []solana.PrivateKey{payer, accountKey, owner.PrivateKey()},
		token.NewCreateTokenAccountInstruction(payer.PublicKey(), account),
		token.NewInitializeAccountInstruction(account, mint, owner.Account()),
		token.NewConfigureAccountInstruction(account, mint, owner.Account(), zero, maxCounter, token.InlineProof(proof)),
	)
	if err != nil {
		return nil, err
	}
	return Open(n, payer, owner, mint, account)
}

// Account returns the token account address.
func (w *Wallet) Account() solana.PublicKey { return w.account }

// ElGamalPubkey returns the encryption key of the account.
func (w *Wallet) ElGamalPubkey() elgamal.PublicKey { return w.keys.Public }

func (w *Wallet) state() (*token.Account, *token.ConfidentialAccount, error) {
	a, err := w.node.TokenAccount(w.account)
	if err != nil {
		return nil, nil, err
	}
	if a.Confidential == nil {
		return nil, nil, fmt.Errorf("%w: %s", token.ErrAccountNotConfigured, w.account)
	}
	return a, a.Confidential, nil
}

func (w *Wallet) send(ctx context.Context, ixs ...ledger.Instruction) error {
	signers := []solana.PrivateKey{w.owner.PrivateKey()}
	if !w.payer.PublicKey().Equals(w.owner.Account()) {
		signers = append(signers, w.payer)
	}
	_, err := w.node.Send(ctx, signers, ixs...)
	return err
}

// Deposit moves amount public tokens into the pending balance.
func (w *Wallet) Deposit(ctx context.Context, amount uint64) error {
	return w.send(ctx, token.NewDepositInstruction(w.account, w.mint, w.owner.Account(), amount, w.decimals))
}

// ApplyPendingBalance folds the pending balance into the available one.
// A credit landing between reading the account and applying it makes the
// ledger reject the apply; the wallet then rereads and tries again.
func (w *Wallet) ApplyPendingBalance(ctx context.Context) error {
	var err error
	for attempt := 1; attempt <= maxApplyAttempts; attempt++ {
		var conf *token.ConfidentialAccount
		if _, conf, err = w.state(); err != nil {
			return err
		}
		info := token.NewApplyPendingBalanceAccountInfo(conf)
		cache, derr := info.NewDecryptableAvailableBalance(w.keys.Secret, w.ae, w.node.Config().DecryptBound)
		if derr != nil {
			return derr
		}
		err = w.send(ctx, token.NewApplyPendingBalanceInstruction(w.account, w.owner.Account(), info.PendingBalanceCreditCounter, cache))
		if !errors.Is(err, token.ErrPendingBalanceCreditCounterMismatch) {
			return err
		}
		w.log.Debug("Pending balance changed while applying, retrying", "attempt", attempt)
	}
	return err
}

// Balances returns the available balance from the symmetric cache, falling
// back to the ElGamal ciphertext if the cache does not open, and the public
// amount.
func (w *Wallet) Balances() (available, public uint64, err error) {
	a, conf, err := w.state()
	if err != nil {
		return 0, 0, err
	}
	available, err = w.ae.Decrypt(conf.DecryptableAvailableBalance)
	if err != nil {
		w.log.Warn("Balance cache unreadable, decrypting ciphertext", "err", err)
		if available, err = token.RecoverAvailableBalance(conf, w.keys.Secret, w.node.Config().DecryptBound); err != nil {
			return 0, 0, err
		}
	}
	return available, a.Amount, nil
}

// Withdraw moves amount from the available balance to the public amount.
func (w *Wallet) Withdraw(ctx context.Context, amount uint64) error {
	_, conf, err := w.state()
	if err != nil {
		return err
	}
	data, cache, err := token.NewWithdrawAccountInfo(conf).Generate(w.mint, w.account, w.keys, w.ae, amount)
	if err != nil {
		return err
	}
	return w.withProof(ctx, data, func(loc token.ProofLocation) ledger.Instruction {
		return token.NewWithdrawInstruction(w.account, w.mint, w.owner.Account(), amount, w.decimals, cache, loc)
	})
}

// Transfer sends amount to the confidential account destination.
func (w *Wallet) Transfer(ctx context.Context, destination solana.PublicKey, amount uint64) error {
	_, conf, err := w.state()
	if err != nil {
		return err
	}
	dst, err := w.node.TokenAccount(destination)
	if err != nil {
		return err
	}
	if dst.Confidential == nil {
		return fmt.Errorf("%w: %s", token.ErrAccountNotConfigured, destination)
	}
	m, err := w.node.TokenMint(w.mint)
	if err != nil {
		return err
	}
	if m.Confidential == nil {
		return fmt.Errorf("%w: %s", token.ErrMintNotConfigured, w.mint)
	}
	data, cache, err := token.NewTransferAccountInfo(conf).Generate(w.mint, w.account, destination, w.keys, w.ae, amount,
		dst.Confidential.ElGamalPubkey, m.Confidential.AuditorElGamalPubkey)
	if err != nil {
		return err
	}
	return w.withProof(ctx, data, func(loc token.ProofLocation) ledger.Instruction {
		return token.NewConfidentialTransferInstruction(w.account, w.mint, destination, w.owner.Account(), cache, loc)
	})
}

// Empty proves the available balance is zero and resets it.
func (w *Wallet) Empty(ctx context.Context) error {
	_, conf, err := w.state()
	if err != nil {
		return err
	}
	data, err := token.NewEmptyAccountInfo(conf).Generate(w.mint, w.account, w.keys)
	if err != nil {
		return err
	}
	return w.withProof(ctx, data, func(loc token.ProofLocation) ledger.Instruction {
		return token.NewEmptyAccountInstruction(w.account, w.owner.Account(), loc)
	})
}

// Close closes the emptied account and returns its deposit to the payer.
func (w *Wallet) Close(ctx context.Context) error {
	return w.send(ctx, token.NewCloseAccountInstruction(w.account, w.payer.PublicKey(), w.owner.Account()))
}

// withProof sends the instruction built by build with d inline when d fits
// the inline budget. Larger proofs are verified into a fresh context
// account first; the context is closed together with the mutating
// instruction, or on its own when that fails.
func (w *Wallet) withProof(ctx context.Context, d zkproof.ProofData, build func(token.ProofLocation) ledger.Instruction) error {
	if len(zkproof.EncodeProofData(d)) <= w.node.Config().MaxInlineProofBytes {
		return w.send(ctx, build(token.InlineProof(d)))
	}
	contextKey, err := solana.NewRandomPrivateKey()
	if err != nil {
		return err
	}
	key := contextKey.PublicKey()
	_, err = w.node.Send(ctx, []solana.PrivateKey{w.payer, contextKey, w.owner.PrivateKey()},
		proofctx.NewCreateContextAccountInstruction(w.payer.PublicKey(), key, d.ProofType()),
		proofctx.NewVerifyProofWithContextInstruction(d, key, w.owner.Account()),
	)
	if err != nil {
		return err
	}
	closeIx := proofctx.NewCloseContextStateInstruction(key, w.payer.PublicKey(), w.owner.Account())
	if err = w.send(ctx, build(token.ContextProof(key)), closeIx); err != nil {
		if cerr := w.send(ctx, closeIx); cerr != nil {
			w.log.Warn("Failed to close proof context", "context", key, "err", cerr)
		}
		return err
	}
	return nil
}

// Snapshot returns the tracker view of the account.
func (w *Wallet) Snapshot() (balancetracker.State, error) {
	available, public, err := w.Balances()
	if err != nil {
		return balancetracker.State{}, err
	}
	_, conf, err := w.state()
	if err != nil {
		return balancetracker.State{}, err
	}
	return balancetracker.State{
		Account:        w.account.String(),
		Mint:           w.mint.String(),
		Available:      available,
		Public:         public,
		PendingCredits: conf.PendingBalanceCreditCounter,
		Transactions:   w.node.Store().TransactionCount(),
	}, nil
}
