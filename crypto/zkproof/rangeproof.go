package zkproof

import (
	"fmt"

	"github.com/gtank/ristretto255"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/elgamal"
)

// bitProofSize is one bit commitment plus its two-branch OR proof.
const bitProofSize = 5 * 32

// RangeProofSize returns the encoded size of an n-bit range proof.
func RangeProofSize(n int) int { return n * bitProofSize }

// bitProof shows that C_i commits to 0 or 1: either C_i or C_i - G is a
// multiple of H. The branch that is not taken is simulated, and the two
// challenges must add up to the transcript challenge.
type bitProof struct {
	C      *ristretto255.Element
	c0, c1 *ristretto255.Scalar
	z0, z1 *ristretto255.Scalar
}

// rangeProof shows that a commitment C opens to a value below 2^n by
// committing to each bit with openings that sum (weighted by 2^i) to the
// opening of C.
type rangeProof struct {
	bits []*bitProof
}

func pow2(i int) *ristretto255.Scalar { return elgamal.ScalarFromUint64(uint64(1) << uint(i)) }

func proveRange(t *transcript, commitment [elgamal.PointSize]byte, amount uint64, opening *elgamal.Opening, n int) (*rangeProof, error) {
	if n <= 0 || n > 64 {
		return nil, fmt.Errorf("%w: bit length %d", ErrProofGeneration, n)
	}
	if n < 64 && amount>>uint(n) != 0 {
		return nil, fmt.Errorf("%w: amount exceeds %d bits", ErrProofGeneration, n)
	}
	t.appendU64("bits", uint64(n))
	t.appendPoint("C", commitment)

	// Pick the first n-1 bit openings at random and solve for the last so
	// that sum(2^i * r_i) = r.
	openings := make([]*ristretto255.Scalar, n)
	acc := ristretto255.NewScalar()
	for i := 0; i < n-1; i++ {
		openings[i] = elgamal.RandomScalar()
		acc.Add(acc, ristretto255.NewScalar().Multiply(pow2(i), openings[i]))
	}
	last := ristretto255.NewScalar().Subtract(opening.Scalar(), acc)
	openings[n-1] = last.Multiply(last, ristretto255.NewScalar().Invert(pow2(n-1)))

	G, H := elgamal.G(), elgamal.H()
	proof := &rangeProof{bits: make([]*bitProof, n)}
	for i := 0; i < n; i++ {
		bit := (amount >> uint(i)) & 1
		ri := openings[i]
		Ci := mul(ri, H)
		if bit == 1 {
			Ci = ristretto255.NewElement().Add(Ci, G)
		}
		X := [2]*ristretto255.Element{Ci, ristretto255.NewElement().Subtract(Ci, G)}

		k := elgamal.RandomScalar()
		cFake, zFake := elgamal.RandomScalar(), elgamal.RandomScalar()
		var R [2]*ristretto255.Element
		R[bit] = mul(k, H)
		R[1-bit] = msm([]*ristretto255.Scalar{zFake, neg(cFake)}, []*ristretto255.Element{H, X[1-bit]})

		t.appendElement("C_i", Ci)
		t.appendElement("R_0", R[0])
		t.appendElement("R_1", R[1])
		c := t.challenge("c")

		cReal := ristretto255.NewScalar().Subtract(c, cFake)
		zReal := response(cReal, ri, k)
		bp := &bitProof{C: Ci}
		if bit == 0 {
			bp.c0, bp.z0, bp.c1, bp.z1 = cReal, zReal, cFake, zFake
		} else {
			bp.c0, bp.z0, bp.c1, bp.z1 = cFake, zFake, cReal, zReal
		}
		proof.bits[i] = bp
	}
	return proof, nil
}

func (p *rangeProof) verify(t *transcript, commitment [elgamal.PointSize]byte, n int) error {
	if len(p.bits) != n {
		return ErrInvalidProofData
	}
	C, err := elgamal.DecodePoint(commitment[:])
	if err != nil {
		return ErrInvalidProofData
	}
	t.appendU64("bits", uint64(n))
	t.appendPoint("C", commitment)

	weights := make([]*ristretto255.Scalar, n)
	points := make([]*ristretto255.Element, n)
	for i, bp := range p.bits {
		weights[i] = pow2(i)
		points[i] = bp.C
	}
	if !equal(msm(weights, points), C) {
		return ErrProofVerification
	}

	G, H := elgamal.G(), elgamal.H()
	for _, bp := range p.bits {
		X1 := ristretto255.NewElement().Subtract(bp.C, G)
		R0 := msm([]*ristretto255.Scalar{bp.z0, neg(bp.c0)}, []*ristretto255.Element{H, bp.C})
		R1 := msm([]*ristretto255.Scalar{bp.z1, neg(bp.c1)}, []*ristretto255.Element{H, X1})
		t.appendElement("C_i", bp.C)
		t.appendElement("R_0", R0)
		t.appendElement("R_1", R1)
		c := t.challenge("c")
		if ristretto255.NewScalar().Add(bp.c0, bp.c1).Equal(c) != 1 {
			return ErrProofVerification
		}
	}
	return nil
}

func (p *rangeProof) encode() []byte {
	out := make([]byte, 0, RangeProofSize(len(p.bits)))
	for _, bp := range p.bits {
		out = appendPoint(out, bp.C)
		out = appendScalar(out, bp.c0)
		out = appendScalar(out, bp.c1)
		out = appendScalar(out, bp.z0)
		out = appendScalar(out, bp.z1)
	}
	return out
}

func decodeRangeProof(r *reader, n int) *rangeProof {
	p := &rangeProof{bits: make([]*bitProof, n)}
	for i := range p.bits {
		p.bits[i] = &bitProof{C: r.point(), c0: r.scalar(), c1: r.scalar(), z0: r.scalar(), z1: r.scalar()}
	}
	return p
}
