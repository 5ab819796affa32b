package elgamal

import (
	"errors"
	"fmt"

	"github.com/gtank/ristretto255"
)

const (
	CiphertextSize = 2 * PointSize

	// GroupedHandles is the number of decrypt handles in a grouped
	// ciphertext: source, destination and auditor.
	GroupedHandles         = 3
	GroupedCiphertext3Size = PointSize * (1 + GroupedHandles)
)

// ErrInvalidCiphertext indicates malformed ciphertext bytes.
var ErrInvalidCiphertext = errors.New("elgamal: invalid ciphertext")

// Ciphertext is a twisted ElGamal ciphertext: the Pedersen commitment
// C = x*G + r*H and the decrypt handle D = r*P. The all-zero value is the
// identity pair, a valid encryption of zero.
type Ciphertext struct {
	Commitment [PointSize]byte
	Handle     [PointSize]byte
}

// Opening is the Pedersen blinding factor r.
type Opening struct {
	r *ristretto255.Scalar
}

// NewOpening draws a random blinding factor.
func NewOpening() *Opening { return &Opening{r: RandomScalar()} }

// Scalar returns a copy of r.
func (o *Opening) Scalar() *ristretto255.Scalar {
	return ristretto255.NewScalar().Add(ristretto255.NewScalar(), o.r)
}

// ZeroCiphertext returns the canonical encryption of zero.
func ZeroCiphertext() Ciphertext { return Ciphertext{} }

func (c Ciphertext) Bytes() [CiphertextSize]byte {
	var out [CiphertextSize]byte
	copy(out[:PointSize], c.Commitment[:])
	copy(out[PointSize:], c.Handle[:])
	return out
}

func (c Ciphertext) String() string { return fmt.Sprintf("%x%x", c.Commitment[:], c.Handle[:]) }

// CiphertextFromBytes parses 64 bytes and checks both points decode.
func CiphertextFromBytes(raw []byte) (Ciphertext, error) {
	if len(raw) != CiphertextSize {
		return Ciphertext{}, ErrInvalidCiphertext
	}
	var out Ciphertext
	copy(out.Commitment[:], raw[:PointSize])
	copy(out.Handle[:], raw[PointSize:])
	if _, _, err := out.points(); err != nil {
		return Ciphertext{}, err
	}
	return out, nil
}

func (c Ciphertext) points() (*ristretto255.Element, *ristretto255.Element, error) {
	commitment, err := DecodePoint(c.Commitment[:])
	if err != nil {
		return nil, nil, ErrInvalidCiphertext
	}
	handle, err := DecodePoint(c.Handle[:])
	if err != nil {
		return nil, nil, ErrInvalidCiphertext
	}
	return commitment, handle, nil
}

func ciphertextFromPoints(commitment, handle *ristretto255.Element) Ciphertext {
	return Ciphertext{Commitment: EncodePoint(commitment), Handle: EncodePoint(handle)}
}

// Encrypt encrypts amount under pk with fresh randomness.
func Encrypt(pk PublicKey, amount uint64) (Ciphertext, error) {
	return EncryptWithOpening(pk, amount, NewOpening())
}

// EncryptWithOpening encrypts amount under pk with the given blinding factor.
func EncryptWithOpening(pk PublicKey, amount uint64, opening *Opening) (Ciphertext, error) {
	handle, err := DecryptHandle(pk, opening)
	if err != nil {
		return Ciphertext{}, err
	}
	return Ciphertext{Commitment: CommitWithOpening(amount, opening), Handle: handle}, nil
}

// CommitWithOpening returns the Pedersen commitment amount*G + r*H.
func CommitWithOpening(amount uint64, opening *Opening) [PointSize]byte {
	p := ristretto255.NewElement().VarTimeMultiScalarMult(
		[]*ristretto255.Scalar{ScalarFromUint64(amount), opening.r},
		[]*ristretto255.Element{G(), H()},
	)
	return EncodePoint(p)
}

// Commit returns a commitment to amount under a fresh opening.
func Commit(amount uint64) ([PointSize]byte, *Opening) {
	opening := NewOpening()
	return CommitWithOpening(amount, opening), opening
}

// DecryptHandle returns r*P, the part of a ciphertext that only the holder of
// the secret for P can strip.
func DecryptHandle(pk PublicKey, opening *Opening) ([PointSize]byte, error) {
	point, err := pk.Point()
	if err != nil {
		return [PointSize]byte{}, err
	}
	return EncodePoint(ristretto255.NewElement().ScalarMult(opening.r, point)), nil
}

// Add returns the ciphertext of the sum of both plaintexts.
func Add(a, b Ciphertext) (Ciphertext, error) {
	ac, ah, err := a.points()
	if err != nil {
		return Ciphertext{}, err
	}
	bc, bh, err := b.points()
	if err != nil {
		return Ciphertext{}, err
	}
	return ciphertextFromPoints(
		ristretto255.NewElement().Add(ac, bc),
		ristretto255.NewElement().Add(ah, bh),
	), nil
}

// Subtract returns the ciphertext of a's plaintext minus b's.
func Subtract(a, b Ciphertext) (Ciphertext, error) {
	ac, ah, err := a.points()
	if err != nil {
		return Ciphertext{}, err
	}
	bc, bh, err := b.points()
	if err != nil {
		return Ciphertext{}, err
	}
	return ciphertextFromPoints(
		ristretto255.NewElement().Subtract(ac, bc),
		ristretto255.NewElement().Subtract(ah, bh),
	), nil
}

// AddAmount adds a public amount: only the commitment moves.
func AddAmount(ct Ciphertext, amount uint64) (Ciphertext, error) {
	c, h, err := ct.points()
	if err != nil {
		return Ciphertext{}, err
	}
	delta := ristretto255.NewElement().ScalarBaseMult(ScalarFromUint64(amount))
	return ciphertextFromPoints(ristretto255.NewElement().Add(c, delta), h), nil
}

// SubtractAmount subtracts a public amount.
func SubtractAmount(ct Ciphertext, amount uint64) (Ciphertext, error) {
	c, h, err := ct.points()
	if err != nil {
		return Ciphertext{}, err
	}
	delta := ristretto255.NewElement().ScalarBaseMult(ScalarFromUint64(amount))
	return ciphertextFromPoints(ristretto255.NewElement().Subtract(c, delta), h), nil
}

// Scale multiplies the plaintext by k.
func Scale(ct Ciphertext, k uint64) (Ciphertext, error) {
	c, h, err := ct.points()
	if err != nil {
		return Ciphertext{}, err
	}
	s := ScalarFromUint64(k)
	return ciphertextFromPoints(
		ristretto255.NewElement().ScalarMult(s, c),
		ristretto255.NewElement().ScalarMult(s, h),
	), nil
}

// CombineLoHi returns lo + 2^loBits * hi.
func CombineLoHi(lo, hi Ciphertext, loBits uint) (Ciphertext, error) {
	shifted, err := Scale(hi, uint64(1)<<loBits)
	if err != nil {
		return Ciphertext{}, err
	}
	return Add(lo, shifted)
}

// AddWithLoHi adds the split amount (lo, hi) to ct.
func AddWithLoHi(ct, lo, hi Ciphertext, loBits uint) (Ciphertext, error) {
	combined, err := CombineLoHi(lo, hi, loBits)
	if err != nil {
		return Ciphertext{}, err
	}
	return Add(ct, combined)
}

// SubtractWithLoHi subtracts the split amount (lo, hi) from ct.
func SubtractWithLoHi(ct, lo, hi Ciphertext, loBits uint) (Ciphertext, error) {
	combined, err := CombineLoHi(lo, hi, loBits)
	if err != nil {
		return Ciphertext{}, err
	}
	return Subtract(ct, combined)
}

// GroupedCiphertext3 shares one commitment between three decrypt handles, so
// the same amount is readable by the source, the destination and the auditor.
type GroupedCiphertext3 struct {
	Commitment [PointSize]byte
	Handles    [GroupedHandles][PointSize]byte
}

// EncryptGrouped3 encrypts amount under three keys with one opening. A zero
// key (no auditor) yields an identity handle.
func EncryptGrouped3(keys [GroupedHandles]PublicKey, amount uint64, opening *Opening) (GroupedCiphertext3, error) {
	out := GroupedCiphertext3{Commitment: CommitWithOpening(amount, opening)}
	for i, pk := range keys {
		handle, err := DecryptHandle(pk, opening)
		if err != nil {
			return GroupedCiphertext3{}, fmt.Errorf("handle %d: %w", i, err)
		}
		out.Handles[i] = handle
	}
	return out, nil
}

// Ciphertext extracts the two-part ciphertext readable with key i.
func (g GroupedCiphertext3) Ciphertext(i int) Ciphertext {
	return Ciphertext{Commitment: g.Commitment, Handle: g.Handles[i]}
}

func (g GroupedCiphertext3) Bytes() [GroupedCiphertext3Size]byte {
	var out [GroupedCiphertext3Size]byte
	copy(out[:PointSize], g.Commitment[:])
	for i := range g.Handles {
		copy(out[PointSize*(i+1):], g.Handles[i][:])
	}
	return out
}

// GroupedCiphertext3FromBytes parses and validates 128 bytes.
func GroupedCiphertext3FromBytes(raw []byte) (GroupedCiphertext3, error) {
	if len(raw) != GroupedCiphertext3Size {
		return GroupedCiphertext3{}, ErrInvalidCiphertext
	}
	var out GroupedCiphertext3
	copy(out.Commitment[:], raw[:PointSize])
	for i := range out.Handles {
		copy(out.Handles[i][:], raw[PointSize*(i+1):PointSize*(i+2)])
	}
	for i := 0; i < 1+GroupedHandles; i++ {
		if _, err := DecodePoint(raw[PointSize*i : PointSize*(i+1)]); err != nil {
			return GroupedCiphertext3{}, ErrInvalidCiphertext
		}
	}
	return out, nil
}
