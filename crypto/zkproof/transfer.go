package zkproof

import (
	"fmt"

	solana "github.com/gagliardetto/solana-go"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/elgamal"
	"github.com/solana-developers/Confidential-Transfer-Sample/params"
	"golang.org/x/sync/errgroup"
)

// TransferContext is the public part of a confidential transfer. The amount
// travels as two grouped ciphertexts (low 16 bits and high 32 bits), each
// readable by the source, the destination and the auditor, in that order.
type TransferContext struct {
	Mint        solana.PublicKey
	Source      solana.PublicKey
	Destination solana.PublicKey

	SourcePubkey      elgamal.PublicKey
	DestinationPubkey elgamal.PublicKey
	AuditorPubkey     elgamal.PublicKey

	AmountLo elgamal.GroupedCiphertext3
	AmountHi elgamal.GroupedCiphertext3

	// NewSourceCiphertext is the source's available balance after the
	// transfer, as the ledger will compute it.
	NewSourceCiphertext elgamal.Ciphertext
}

func (c TransferContext) Bytes() []byte { return marshalContext(c) }

func DecodeTransferContext(raw []byte) (TransferContext, error) {
	var ctx TransferContext
	err := unmarshalContext(&ctx, raw, TransferContextSize)
	return ctx, err
}

func (c TransferContext) keys() [elgamal.GroupedHandles]elgamal.PublicKey {
	return [elgamal.GroupedHandles]elgamal.PublicKey{c.SourcePubkey, c.DestinationPubkey, c.AuditorPubkey}
}

// SplitAmount splits a transfer amount into its low and high halves.
func SplitAmount(amount uint64) (lo, hi uint64) {
	return amount & (1<<params.TransferAmountLoBitLength - 1), amount >> params.TransferAmountLoBitLength
}

type TransferData struct {
	Context TransferContext

	commitment [elgamal.PointSize]byte
	equality   *equalityProof
	validityLo *groupedValidityProof
	validityHi *groupedValidityProof
	rngBalance *rangeProof
	rngLo      *rangeProof
	rngHi      *rangeProof
}

// NewTransferData builds the transfer statement and its proof. balance is
// the decrypted value of available, the source's current available balance
// ciphertext. A zero auditor key disables auditing.
func NewTransferData(mint, source, destination solana.PublicKey, kp *elgamal.Keypair, balance uint64, available elgamal.Ciphertext, amount uint64, destinationPubkey, auditorPubkey elgamal.PublicKey) (*TransferData, error) {
	if amount > params.MaximumDepositTransferAmount {
		return nil, fmt.Errorf("%w: amount %d exceeds %d bits", ErrProofGeneration, amount, params.TransferAmountLoBitLength+params.TransferAmountHiBitLength)
	}
	if amount > balance {
		return nil, fmt.Errorf("%w: insufficient balance", ErrProofGeneration)
	}
	ctx := TransferContext{
		Mint:              mint,
		Source:            source,
		Destination:       destination,
		SourcePubkey:      kp.Public,
		DestinationPubkey: destinationPubkey,
		AuditorPubkey:     auditorPubkey,
	}
	lo, hi := SplitAmount(amount)
	openingLo, openingHi := elgamal.NewOpening(), elgamal.NewOpening()
	var err error
	if ctx.AmountLo, err = elgamal.EncryptGrouped3(ctx.keys(), lo, openingLo); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProofGeneration, err)
	}
	if ctx.AmountHi, err = elgamal.EncryptGrouped3(ctx.keys(), hi, openingHi); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProofGeneration, err)
	}
	ctx.NewSourceCiphertext, err = elgamal.SubtractWithLoHi(available, ctx.AmountLo.Ciphertext(0), ctx.AmountHi.Ciphertext(0), params.TransferAmountLoBitLength)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProofGeneration, err)
	}

	raw := ctx.Bytes()
	remaining := balance - amount
	commitment, opening := elgamal.Commit(remaining)
	d := &TransferData{Context: ctx, commitment: commitment}

	if d.equality, err = proveEquality(newTranscript("transfer-equality", raw), kp, ctx.NewSourceCiphertext, remaining, opening); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProofGeneration, err)
	}
	if d.validityLo, err = proveGroupedValidity(newTranscript("transfer-validity-lo", raw), ctx.keys(), lo, openingLo); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProofGeneration, err)
	}
	if d.validityHi, err = proveGroupedValidity(newTranscript("transfer-validity-hi", raw), ctx.keys(), hi, openingHi); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProofGeneration, err)
	}
	if d.rngBalance, err = proveRange(newTranscript("transfer-range-balance", raw), commitment, remaining, opening, params.AvailableBalanceBitLength); err != nil {
		return nil, err
	}
	if d.rngLo, err = proveRange(newTranscript("transfer-range-lo", raw), ctx.AmountLo.Commitment, lo, openingLo, params.TransferAmountLoBitLength); err != nil {
		return nil, err
	}
	if d.rngHi, err = proveRange(newTranscript("transfer-range-hi", raw), ctx.AmountHi.Commitment, hi, openingHi, params.TransferAmountHiBitLength); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *TransferData) ProofType() ProofType { return ProofTypeTransfer }
func (d *TransferData) ContextBytes() []byte { return d.Context.Bytes() }

func (d *TransferData) ProofBytes() []byte {
	out := make([]byte, 0, TransferProofSize)
	out = append(out, d.commitment[:]...)
	out = append(out, d.equality.encode()...)
	out = append(out, d.validityLo.encode()...)
	out = append(out, d.validityHi.encode()...)
	out = append(out, d.rngBalance.encode()...)
	out = append(out, d.rngLo.encode()...)
	return append(out, d.rngHi.encode()...)
}

// VerifyProof checks the six sub-proofs concurrently. Each runs on its own
// transcript, so they are independent.
func (d *TransferData) VerifyProof() error {
	ctx := d.Context
	raw := ctx.Bytes()
	keys := ctx.keys()

	var g errgroup.Group
	g.Go(func() error {
		return d.equality.verify(newTranscript("transfer-equality", raw), ctx.SourcePubkey, ctx.NewSourceCiphertext, d.commitment)
	})
	g.Go(func() error {
		return d.validityLo.verify(newTranscript("transfer-validity-lo", raw), keys, ctx.AmountLo)
	})
	g.Go(func() error {
		return d.validityHi.verify(newTranscript("transfer-validity-hi", raw), keys, ctx.AmountHi)
	})
	g.Go(func() error {
		return d.rngBalance.verify(newTranscript("transfer-range-balance", raw), d.commitment, params.AvailableBalanceBitLength)
	})
	g.Go(func() error {
		return d.rngLo.verify(newTranscript("transfer-range-lo", raw), ctx.AmountLo.Commitment, params.TransferAmountLoBitLength)
	})
	g.Go(func() error {
		return d.rngHi.verify(newTranscript("transfer-range-hi", raw), ctx.AmountHi.Commitment, params.TransferAmountHiBitLength)
	})
	return g.Wait()
}

func decodeTransferData(ctx, proof []byte) (*TransferData, error) {
	c, err := DecodeTransferContext(ctx)
	if err != nil {
		return nil, err
	}
	d := &TransferData{Context: c}
	r := &reader{raw: proof}
	copy(d.commitment[:], r.next(elgamal.PointSize))
	d.equality = decodeEqualityProof(r)
	d.validityLo = decodeGroupedValidityProof(r)
	d.validityHi = decodeGroupedValidityProof(r)
	d.rngBalance = decodeRangeProof(r, params.AvailableBalanceBitLength)
	d.rngLo = decodeRangeProof(r, params.TransferAmountLoBitLength)
	d.rngHi = decodeRangeProof(r, params.TransferAmountHiBitLength)
	if err := r.done(); err != nil {
		return nil, err
	}
	if _, err := elgamal.DecodePoint(d.commitment[:]); err != nil {
		return nil, ErrInvalidProofData
	}
	return d, nil
}
