package zkproof

import (
	"github.com/gtank/ristretto255"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/elgamal"
)

func msm(scalars []*ristretto255.Scalar, points []*ristretto255.Element) *ristretto255.Element {
	return ristretto255.NewElement().VarTimeMultiScalarMult(scalars, points)
}

func mul(s *ristretto255.Scalar, p *ristretto255.Element) *ristretto255.Element {
	return ristretto255.NewElement().ScalarMult(s, p)
}

func equal(a, b *ristretto255.Element) bool { return a.Equal(b) == 1 }

// response returns c*w + y.
func response(c, w, y *ristretto255.Scalar) *ristretto255.Scalar {
	out := ristretto255.NewScalar().Multiply(c, w)
	return out.Add(out, y)
}

func neg(s *ristretto255.Scalar) *ristretto255.Scalar {
	return ristretto255.NewScalar().Negate(s)
}

func one() *ristretto255.Scalar { return elgamal.ScalarFromUint64(1) }

// reader walks a fixed-layout proof encoding.
type reader struct {
	raw []byte
	err error
}

func (r *reader) next(n int) []byte {
	if r.err != nil {
		return make([]byte, n)
	}
	if len(r.raw) < n {
		r.err = ErrInvalidProofData
		return make([]byte, n)
	}
	out := r.raw[:n]
	r.raw = r.raw[n:]
	return out
}

func (r *reader) point() *ristretto255.Element {
	raw := r.next(elgamal.PointSize)
	if r.err != nil {
		return nil
	}
	p, err := elgamal.DecodePoint(raw)
	if err != nil {
		r.err = ErrInvalidProofData
		return nil
	}
	return p
}

func (r *reader) scalar() *ristretto255.Scalar {
	raw := r.next(elgamal.ScalarSize)
	if r.err != nil {
		return nil
	}
	s, err := elgamal.DecodeScalar(raw)
	if err != nil {
		r.err = ErrInvalidProofData
		return nil
	}
	return s
}

func (r *reader) done() error {
	if r.err != nil {
		return r.err
	}
	if len(r.raw) != 0 {
		return ErrInvalidProofData
	}
	return nil
}

func appendPoint(dst []byte, p *ristretto255.Element) []byte {
	return append(dst, p.Encode(nil)...)
}

func appendScalar(dst []byte, s *ristretto255.Scalar) []byte {
	return append(dst, s.Encode(nil)...)
}
