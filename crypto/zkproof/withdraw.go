package zkproof

import (
	"fmt"

	solana "github.com/gagliardetto/solana-go"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/elgamal"
	"github.com/solana-developers/Confidential-Transfer-Sample/params"
	"golang.org/x/sync/errgroup"
)

// WithdrawContext is the statement "FinalCiphertext, an encryption under
// Pubkey, holds a value in [0, 2^64)".
type WithdrawContext struct {
	Mint            solana.PublicKey
	Account         solana.PublicKey
	Pubkey          elgamal.PublicKey
	FinalCiphertext elgamal.Ciphertext
}

func (c WithdrawContext) Bytes() []byte { return marshalContext(c) }

func DecodeWithdrawContext(raw []byte) (WithdrawContext, error) {
	var ctx WithdrawContext
	err := unmarshalContext(&ctx, raw, WithdrawContextSize)
	return ctx, err
}

type WithdrawData struct {
	Context WithdrawContext

	commitment [elgamal.PointSize]byte
	equality   *equalityProof
	rng        *rangeProof
}

// NewWithdrawData proves that the balance left after taking amount from
// current (the decrypted value of available) is non-negative. The remainder
// is computed in uint64 arithmetic: when amount exceeds the balance the
// commitment holds a wrapped value that no longer matches the ciphertext,
// and the resulting proof fails verification.
func NewWithdrawData(mint, account solana.PublicKey, kp *elgamal.Keypair, current uint64, available elgamal.Ciphertext, amount uint64) (*WithdrawData, error) {
	final, err := elgamal.SubtractAmount(available, amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProofGeneration, err)
	}
	remaining := current - amount

	ctx := WithdrawContext{Mint: mint, Account: account, Pubkey: kp.Public, FinalCiphertext: final}
	raw := ctx.Bytes()
	commitment, opening := elgamal.Commit(remaining)

	equality, err := proveEquality(newTranscript("withdraw-equality", raw), kp, final, remaining, opening)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProofGeneration, err)
	}
	rng, err := proveRange(newTranscript("withdraw-range", raw), commitment, remaining, opening, params.AvailableBalanceBitLength)
	if err != nil {
		return nil, err
	}
	return &WithdrawData{Context: ctx, commitment: commitment, equality: equality, rng: rng}, nil
}

func (d *WithdrawData) ProofType() ProofType { return ProofTypeWithdraw }
func (d *WithdrawData) ContextBytes() []byte { return d.Context.Bytes() }

func (d *WithdrawData) ProofBytes() []byte {
	out := make([]byte, 0, WithdrawProofSize)
	out = append(out, d.commitment[:]...)
	out = append(out, d.equality.encode()...)
	return append(out, d.rng.encode()...)
}

func (d *WithdrawData) VerifyProof() error {
	raw := d.Context.Bytes()
	var g errgroup.Group
	g.Go(func() error {
		return d.equality.verify(newTranscript("withdraw-equality", raw), d.Context.Pubkey, d.Context.FinalCiphertext, d.commitment)
	})
	g.Go(func() error {
		return d.rng.verify(newTranscript("withdraw-range", raw), d.commitment, params.AvailableBalanceBitLength)
	})
	return g.Wait()
}

func decodeWithdrawData(ctx, proof []byte) (*WithdrawData, error) {
	c, err := DecodeWithdrawContext(ctx)
	if err != nil {
		return nil, err
	}
	d := &WithdrawData{Context: c}
	r := &reader{raw: proof}
	copy(d.commitment[:], r.next(elgamal.PointSize))
	d.equality = decodeEqualityProof(r)
	d.rng = decodeRangeProof(r, params.AvailableBalanceBitLength)
	if err := r.done(); err != nil {
		return nil, err
	}
	if _, err := elgamal.DecodePoint(d.commitment[:]); err != nil {
		return nil, ErrInvalidProofData
	}
	return d, nil
}
