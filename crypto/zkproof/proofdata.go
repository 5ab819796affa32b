package zkproof

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/elgamal"
	"github.com/solana-developers/Confidential-Transfer-Sample/params"
)

// ProofType identifies a statement kind. The zero value marks an
// uninitialized proof context.
type ProofType uint8

const (
	ProofTypeUninitialized ProofType = iota
	ProofTypePubkeyValidity
	ProofTypeWithdraw
	ProofTypeTransfer
	ProofTypeZeroBalance
	// ProofTypeTransferWithFee is reserved for fee-bearing transfers, whose
	// statement additionally re-encrypts the fee under a fee-authority key.
	// No prover or verifier exists for it yet.
	ProofTypeTransferWithFee
)

func (t ProofType) String() string {
	switch t {
	case ProofTypeUninitialized:
		return "uninitialized"
	case ProofTypePubkeyValidity:
		return "pubkey-validity"
	case ProofTypeWithdraw:
		return "withdraw"
	case ProofTypeTransfer:
		return "transfer"
	case ProofTypeZeroBalance:
		return "zero-balance"
	case ProofTypeTransferWithFee:
		return "transfer-with-fee"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Encoded statement sizes.
const (
	PubkeyValidityContextSize = 32 + 32 + elgamal.PointSize
	WithdrawContextSize       = 32 + 32 + elgamal.PointSize + elgamal.CiphertextSize
	ZeroBalanceContextSize    = WithdrawContextSize
	TransferContextSize       = 3*32 + 3*elgamal.PointSize + 2*elgamal.GroupedCiphertext3Size + elgamal.CiphertextSize
)

// Encoded proof sizes.
var (
	WithdrawProofSize = elgamal.PointSize + EqualityProofSize + RangeProofSize(params.AvailableBalanceBitLength)
	TransferProofSize = elgamal.PointSize + EqualityProofSize + 2*GroupedValidityProofSize +
		RangeProofSize(params.AvailableBalanceBitLength) +
		RangeProofSize(params.TransferAmountLoBitLength) +
		RangeProofSize(params.TransferAmountHiBitLength)
)

// ContextSize returns the statement size of a proof type, or zero when the
// type has no statement.
func ContextSize(t ProofType) int {
	switch t {
	case ProofTypePubkeyValidity:
		return PubkeyValidityContextSize
	case ProofTypeWithdraw:
		return WithdrawContextSize
	case ProofTypeTransfer:
		return TransferContextSize
	case ProofTypeZeroBalance:
		return ZeroBalanceContextSize
	default:
		return 0
	}
}

// ProofSize returns the proof size of a proof type.
func ProofSize(t ProofType) int {
	switch t {
	case ProofTypePubkeyValidity:
		return PubkeyValidityProofSize
	case ProofTypeWithdraw:
		return WithdrawProofSize
	case ProofTypeTransfer:
		return TransferProofSize
	case ProofTypeZeroBalance:
		return ZeroBalanceProofSize
	default:
		return 0
	}
}

// ProofData is a public statement together with the proof that it holds.
type ProofData interface {
	ProofType() ProofType
	// ContextBytes is the canonical statement encoding, the part a proof
	// context account keeps after verification.
	ContextBytes() []byte
	ProofBytes() []byte
	VerifyProof() error
}

// EncodeProofData serializes d as type || context || proof.
func EncodeProofData(d ProofData) []byte {
	ctx, proof := d.ContextBytes(), d.ProofBytes()
	out := make([]byte, 0, 1+len(ctx)+len(proof))
	out = append(out, byte(d.ProofType()))
	out = append(out, ctx...)
	return append(out, proof...)
}

// DecodeProofData parses the output of EncodeProofData.
func DecodeProofData(raw []byte) (ProofData, error) {
	if len(raw) == 0 {
		return nil, ErrInvalidProofData
	}
	t := ProofType(raw[0])
	cs, ps := ContextSize(t), ProofSize(t)
	if cs == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProofType, t)
	}
	if len(raw) != 1+cs+ps {
		return nil, fmt.Errorf("%w: %s data length %d", ErrInvalidProofData, t, len(raw))
	}
	ctx, proof := raw[1:1+cs], raw[1+cs:]
	switch t {
	case ProofTypePubkeyValidity:
		return decodePubkeyValidityData(ctx, proof)
	case ProofTypeWithdraw:
		return decodeWithdrawData(ctx, proof)
	case ProofTypeTransfer:
		return decodeTransferData(ctx, proof)
	default:
		return decodeZeroBalanceData(ctx, proof)
	}
}

func marshalContext(v interface{}) []byte {
	out, err := bin.MarshalBorsh(v)
	if err != nil {
		// Contexts are fixed-size arrays only; encoding cannot fail.
		panic(err)
	}
	return out
}

func unmarshalContext(v interface{}, raw []byte, size int) error {
	if len(raw) != size {
		return ErrInvalidProofData
	}
	if err := bin.UnmarshalBorsh(v, raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProofData, err)
	}
	return nil
}

// PubkeyValidityContext is the statement "Pubkey has a known secret", bound
// to the account being configured.
type PubkeyValidityContext struct {
	Mint    solana.PublicKey
	Account solana.PublicKey
	Pubkey  elgamal.PublicKey
}

func (c PubkeyValidityContext) Bytes() []byte { return marshalContext(c) }

// DecodePubkeyValidityContext parses a stored statement.
func DecodePubkeyValidityContext(raw []byte) (PubkeyValidityContext, error) {
	var ctx PubkeyValidityContext
	err := unmarshalContext(&ctx, raw, PubkeyValidityContextSize)
	return ctx, err
}

type PubkeyValidityData struct {
	Context PubkeyValidityContext
	proof   *pubkeyValidityProof
}

// NewPubkeyValidityData proves that kp.Public has a secret for the given
// (mint, account).
func NewPubkeyValidityData(mint, account solana.PublicKey, kp *elgamal.Keypair) (*PubkeyValidityData, error) {
	ctx := PubkeyValidityContext{Mint: mint, Account: account, Pubkey: kp.Public}
	proof, err := provePubkeyValidity(newTranscript("pubkey-validity", ctx.Bytes()), kp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProofGeneration, err)
	}
	return &PubkeyValidityData{Context: ctx, proof: proof}, nil
}

func (d *PubkeyValidityData) ProofType() ProofType { return ProofTypePubkeyValidity }
func (d *PubkeyValidityData) ContextBytes() []byte { return d.Context.Bytes() }
func (d *PubkeyValidityData) ProofBytes() []byte   { return d.proof.encode() }

func (d *PubkeyValidityData) VerifyProof() error {
	return d.proof.verify(newTranscript("pubkey-validity", d.Context.Bytes()), d.Context.Pubkey)
}

func decodePubkeyValidityData(ctx, proof []byte) (*PubkeyValidityData, error) {
	c, err := DecodePubkeyValidityContext(ctx)
	if err != nil {
		return nil, err
	}
	r := &reader{raw: proof}
	p := decodePubkeyValidityProof(r)
	if err := r.done(); err != nil {
		return nil, err
	}
	return &PubkeyValidityData{Context: c, proof: p}, nil
}

// ZeroBalanceContext is the statement "Ciphertext encrypts zero under Pubkey".
type ZeroBalanceContext struct {
	Mint       solana.PublicKey
	Account    solana.PublicKey
	Pubkey     elgamal.PublicKey
	Ciphertext elgamal.Ciphertext
}

func (c ZeroBalanceContext) Bytes() []byte { return marshalContext(c) }

func DecodeZeroBalanceContext(raw []byte) (ZeroBalanceContext, error) {
	var ctx ZeroBalanceContext
	err := unmarshalContext(&ctx, raw, ZeroBalanceContextSize)
	return ctx, err
}

type ZeroBalanceData struct {
	Context ZeroBalanceContext
	proof   *zeroBalanceProof
}

// NewZeroBalanceData proves that ct, an encryption under kp.Public, holds zero.
func NewZeroBalanceData(mint, account solana.PublicKey, kp *elgamal.Keypair, ct elgamal.Ciphertext) (*ZeroBalanceData, error) {
	ctx := ZeroBalanceContext{Mint: mint, Account: account, Pubkey: kp.Public, Ciphertext: ct}
	proof, err := proveZeroBalance(newTranscript("zero-balance", ctx.Bytes()), kp, ct)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProofGeneration, err)
	}
	return &ZeroBalanceData{Context: ctx, proof: proof}, nil
}

func (d *ZeroBalanceData) ProofType() ProofType { return ProofTypeZeroBalance }
func (d *ZeroBalanceData) ContextBytes() []byte { return d.Context.Bytes() }
func (d *ZeroBalanceData) ProofBytes() []byte   { return d.proof.encode() }

func (d *ZeroBalanceData) VerifyProof() error {
	return d.proof.verify(newTranscript("zero-balance", d.Context.Bytes()), d.Context.Pubkey, d.Context.Ciphertext)
}

func decodeZeroBalanceData(ctx, proof []byte) (*ZeroBalanceData, error) {
	c, err := DecodeZeroBalanceContext(ctx)
	if err != nil {
		return nil, err
	}
	r := &reader{raw: proof}
	p := decodeZeroBalanceProof(r)
	if err := r.done(); err != nil {
		return nil, err
	}
	return &ZeroBalanceData{Context: c, proof: p}, nil
}
