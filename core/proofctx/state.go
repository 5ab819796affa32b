package proofctx

import (
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/zkproof"
)

// Status tags the variant stored in a context account.
type Status uint8

const (
	StatusUninitialized Status = iota
	StatusVerified
	StatusConsumed
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusVerified:
		return "verified"
	case StatusConsumed:
		return "consumed"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// header prefixes the statement in every context account.
type header struct {
	Authority solana.PublicKey
	ProofType uint8
	Status    uint8
	CreatedAt int64
}

// HeaderSize is the Borsh size of header.
const HeaderSize = solana.PublicKeyLength + 1 + 1 + 8

// ContextStateSize is the account size needed to hold a statement of kind t.
func ContextStateSize(t zkproof.ProofType) int {
	return HeaderSize + zkproof.ContextSize(t)
}

// ContextState is the content of a context account: exactly one of
// *Uninitialized, *Verified or *Consumed. The only transitions are
// Uninitialized.Verify and Verified.Consume, so a statement cannot be
// replaced once stored and cannot be consumed twice.
type ContextState interface {
	Status() Status
	encode(size int) []byte
}

// Uninitialized is a freshly allocated context account.
type Uninitialized struct {
	ProofType zkproof.ProofType // expected from the account size, if known
}

// Verified holds a checked statement awaiting its single consumer.
type Verified struct {
	Authority solana.PublicKey
	ProofType zkproof.ProofType
	CreatedAt time.Time
	Context   []byte
}

// Consumed is a verified statement that a mutating instruction has used.
// It is kept only until the authority closes the account.
type Consumed struct {
	Verified
}

func (*Uninitialized) Status() Status { return StatusUninitialized }
func (*Verified) Status() Status      { return StatusVerified }
func (*Consumed) Status() Status      { return StatusConsumed }

// Verify stores a statement whose proof the caller has checked.
func (u *Uninitialized) Verify(authority solana.PublicKey, d zkproof.ProofData, now time.Time) *Verified {
	return &Verified{Authority: authority, ProofType: d.ProofType(), CreatedAt: now, Context: d.ContextBytes()}
}

// Consume marks the statement used.
func (v *Verified) Consume() *Consumed {
	return &Consumed{Verified: *v}
}

func (*Uninitialized) encode(size int) []byte { return make([]byte, size) }

func (v *Verified) encode(size int) []byte { return v.encodeAs(size, StatusVerified) }

func (c *Consumed) encode(size int) []byte { return c.encodeAs(size, StatusConsumed) }

func (v *Verified) encodeAs(size int, status Status) []byte {
	h, err := bin.MarshalBorsh(&header{
		Authority: v.Authority,
		ProofType: uint8(v.ProofType),
		Status:    uint8(status),
		CreatedAt: v.CreatedAt.Unix(),
	})
	if err != nil {
		panic(fmt.Sprintf("proofctx: encode header: %v", err))
	}
	out := make([]byte, size)
	copy(out, h)
	copy(out[HeaderSize:], v.Context)
	return out
}

// DecodeContextState parses the data of a context account.
func DecodeContextState(data []byte) (ContextState, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: account holds %d bytes", ErrInvalidProofContext, len(data))
	}
	var h header
	if err := bin.UnmarshalBorsh(&h, data[:HeaderSize]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProofContext, err)
	}
	status := Status(h.Status)
	if status == StatusUninitialized {
		return &Uninitialized{ProofType: proofTypeForSize(len(data))}, nil
	}
	t := zkproof.ProofType(h.ProofType)
	if ContextStateSize(t) != len(data) || zkproof.ContextSize(t) == 0 {
		return nil, fmt.Errorf("%w: %s statement in %d bytes", ErrInvalidProofContext, t, len(data))
	}
	v := Verified{
		Authority: h.Authority,
		ProofType: t,
		CreatedAt: time.Unix(h.CreatedAt, 0),
		Context:   append([]byte{}, data[HeaderSize:]...),
	}
	switch status {
	case StatusVerified:
		return &v, nil
	case StatusConsumed:
		return &Consumed{Verified: v}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidProofContext, status)
	}
}

func proofTypeForSize(size int) zkproof.ProofType {
	for _, t := range []zkproof.ProofType{zkproof.ProofTypePubkeyValidity, zkproof.ProofTypeWithdraw, zkproof.ProofTypeTransfer} {
		if ContextStateSize(t) == size {
			return t
		}
	}
	return zkproof.ProofTypeUninitialized
}

// Expired reports whether a context account should be closed as abandoned.
// A consumed context is always done; a verified one expires ttl after
// verification. Uninitialized accounts carry no timestamp and are left to
// their creator.
func Expired(st ContextState, now time.Time, ttl time.Duration) bool {
	switch s := st.(type) {
	case *Consumed:
		return true
	case *Verified:
		return now.Sub(s.CreatedAt) >= ttl
	default:
		return false
	}
}
