package zkproof

import (
	"github.com/gtank/ristretto255"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/elgamal"
)

const (
	PubkeyValidityProofSize  = 2 * 32
	EqualityProofSize        = 6 * 32
	GroupedValidityProofSize = (1+elgamal.GroupedHandles)*32 + 2*32
	ZeroBalanceProofSize     = 3 * 32
)

// pubkeyValidityProof shows knowledge of s with s*P = H, i.e. that the
// public key has a usable secret.
type pubkeyValidityProof struct {
	Y *ristretto255.Element
	z *ristretto255.Scalar
}

func provePubkeyValidity(t *transcript, kp *elgamal.Keypair) (*pubkeyValidityProof, error) {
	P, err := kp.Public.Point()
	if err != nil {
		return nil, err
	}
	y := elgamal.RandomScalar()
	Y := mul(y, P)
	t.appendElement("Y", Y)
	c := t.challenge("c")
	return &pubkeyValidityProof{Y: Y, z: response(c, kp.Secret.Scalar(), y)}, nil
}

func (p *pubkeyValidityProof) verify(t *transcript, pk elgamal.PublicKey) error {
	P, err := pk.Point()
	if err != nil {
		return ErrInvalidProofData
	}
	t.appendElement("Y", p.Y)
	c := t.challenge("c")
	// z*P == c*H + Y
	lhs := mul(p.z, P)
	rhs := msm([]*ristretto255.Scalar{c, one()}, []*ristretto255.Element{elgamal.H(), p.Y})
	if !equal(lhs, rhs) {
		return ErrProofVerification
	}
	return nil
}

func (p *pubkeyValidityProof) encode() []byte {
	out := make([]byte, 0, PubkeyValidityProofSize)
	out = appendPoint(out, p.Y)
	return appendScalar(out, p.z)
}

func decodePubkeyValidityProof(r *reader) *pubkeyValidityProof {
	return &pubkeyValidityProof{Y: r.point(), z: r.scalar()}
}

// equalityProof shows that a ciphertext under P and a Pedersen commitment
// hide the same amount x, given the secret s of P and the commitment's
// opening r.
type equalityProof struct {
	Y0, Y1, Y2 *ristretto255.Element
	zs, zx, zr *ristretto255.Scalar
}

func proveEquality(t *transcript, kp *elgamal.Keypair, ct elgamal.Ciphertext, amount uint64, opening *elgamal.Opening) (*equalityProof, error) {
	P, err := kp.Public.Point()
	if err != nil {
		return nil, err
	}
	D, err := elgamal.DecodePoint(ct.Handle[:])
	if err != nil {
		return nil, err
	}
	G, H := elgamal.G(), elgamal.H()
	t.appendPoint("C", elgamal.CommitWithOpening(amount, opening))
	ys, yx, yr := elgamal.RandomScalar(), elgamal.RandomScalar(), elgamal.RandomScalar()
	p := &equalityProof{
		Y0: mul(ys, P),
		Y1: msm([]*ristretto255.Scalar{yx, ys}, []*ristretto255.Element{G, D}),
		Y2: msm([]*ristretto255.Scalar{yx, yr}, []*ristretto255.Element{G, H}),
	}
	t.appendElement("Y_0", p.Y0)
	t.appendElement("Y_1", p.Y1)
	t.appendElement("Y_2", p.Y2)
	c := t.challenge("c")
	p.zs = response(c, kp.Secret.Scalar(), ys)
	p.zx = response(c, elgamal.ScalarFromUint64(amount), yx)
	p.zr = response(c, opening.Scalar(), yr)
	return p, nil
}

func (p *equalityProof) verify(t *transcript, pk elgamal.PublicKey, ct elgamal.Ciphertext, commitment [elgamal.PointSize]byte) error {
	P, err := pk.Point()
	if err != nil {
		return ErrInvalidProofData
	}
	Cct, err1 := elgamal.DecodePoint(ct.Commitment[:])
	D, err2 := elgamal.DecodePoint(ct.Handle[:])
	C, err3 := elgamal.DecodePoint(commitment[:])
	if err1 != nil || err2 != nil || err3 != nil {
		return ErrInvalidProofData
	}
	t.appendPoint("C", commitment)
	t.appendElement("Y_0", p.Y0)
	t.appendElement("Y_1", p.Y1)
	t.appendElement("Y_2", p.Y2)
	c := t.challenge("c")
	G, H := elgamal.G(), elgamal.H()

	// zs*P == c*H + Y0
	if !equal(mul(p.zs, P), msm([]*ristretto255.Scalar{c, one()}, []*ristretto255.Element{H, p.Y0})) {
		return ErrProofVerification
	}
	// zx*G + zs*D == c*Cct + Y1
	lhs := msm([]*ristretto255.Scalar{p.zx, p.zs}, []*ristretto255.Element{G, D})
	if !equal(lhs, msm([]*ristretto255.Scalar{c, one()}, []*ristretto255.Element{Cct, p.Y1})) {
		return ErrProofVerification
	}
	// zx*G + zr*H == c*C + Y2
	lhs = msm([]*ristretto255.Scalar{p.zx, p.zr}, []*ristretto255.Element{G, H})
	if !equal(lhs, msm([]*ristretto255.Scalar{c, one()}, []*ristretto255.Element{C, p.Y2})) {
		return ErrProofVerification
	}
	return nil
}

func (p *equalityProof) encode() []byte {
	out := make([]byte, 0, EqualityProofSize)
	out = appendPoint(out, p.Y0)
	out = appendPoint(out, p.Y1)
	out = appendPoint(out, p.Y2)
	out = appendScalar(out, p.zs)
	out = appendScalar(out, p.zx)
	return appendScalar(out, p.zr)
}

func decodeEqualityProof(r *reader) *equalityProof {
	return &equalityProof{
		Y0: r.point(), Y1: r.point(), Y2: r.point(),
		zs: r.scalar(), zx: r.scalar(), zr: r.scalar(),
	}
}

// groupedValidityProof shows that a grouped ciphertext is well formed: one
// commitment x*G + r*H and handles r*P_i sharing the same r.
type groupedValidityProof struct {
	Y0 *ristretto255.Element
	Yi [elgamal.GroupedHandles]*ristretto255.Element
	zr *ristretto255.Scalar
	zx *ristretto255.Scalar
}

func proveGroupedValidity(t *transcript, keys [elgamal.GroupedHandles]elgamal.PublicKey, amount uint64, opening *elgamal.Opening) (*groupedValidityProof, error) {
	yr, yx := elgamal.RandomScalar(), elgamal.RandomScalar()
	p := &groupedValidityProof{
		Y0: msm([]*ristretto255.Scalar{yx, yr}, []*ristretto255.Element{elgamal.G(), elgamal.H()}),
	}
	t.appendElement("Y_0", p.Y0)
	for i, pk := range keys {
		P, err := pk.Point()
		if err != nil {
			return nil, err
		}
		p.Yi[i] = mul(yr, P)
		t.appendElement("Y_i", p.Yi[i])
	}
	c := t.challenge("c")
	p.zr = response(c, opening.Scalar(), yr)
	p.zx = response(c, elgamal.ScalarFromUint64(amount), yx)
	return p, nil
}

func (p *groupedValidityProof) verify(t *transcript, keys [elgamal.GroupedHandles]elgamal.PublicKey, grouped elgamal.GroupedCiphertext3) error {
	C, err := elgamal.DecodePoint(grouped.Commitment[:])
	if err != nil {
		return ErrInvalidProofData
	}
	t.appendElement("Y_0", p.Y0)
	for i := range p.Yi {
		t.appendElement("Y_i", p.Yi[i])
	}
	c := t.challenge("c")

	// zx*G + zr*H == c*C + Y0
	lhs := msm([]*ristretto255.Scalar{p.zx, p.zr}, []*ristretto255.Element{elgamal.G(), elgamal.H()})
	if !equal(lhs, msm([]*ristretto255.Scalar{c, one()}, []*ristretto255.Element{C, p.Y0})) {
		return ErrProofVerification
	}
	// zr*P_i == c*D_i + Y_i
	for i, pk := range keys {
		P, err := pk.Point()
		if err != nil {
			return ErrInvalidProofData
		}
		D, err := elgamal.DecodePoint(grouped.Handles[i][:])
		if err != nil {
			return ErrInvalidProofData
		}
		if !equal(mul(p.zr, P), msm([]*ristretto255.Scalar{c, one()}, []*ristretto255.Element{D, p.Yi[i]})) {
			return ErrProofVerification
		}
	}
	return nil
}

func (p *groupedValidityProof) encode() []byte {
	out := make([]byte, 0, GroupedValidityProofSize)
	out = appendPoint(out, p.Y0)
	for i := range p.Yi {
		out = appendPoint(out, p.Yi[i])
	}
	out = appendScalar(out, p.zr)
	return appendScalar(out, p.zx)
}

func decodeGroupedValidityProof(r *reader) *groupedValidityProof {
	p := &groupedValidityProof{Y0: r.point()}
	for i := range p.Yi {
		p.Yi[i] = r.point()
	}
	p.zr = r.scalar()
	p.zx = r.scalar()
	return p
}

// zeroBalanceProof shows that a ciphertext under P encrypts zero, that is
// C = s*D.
type zeroBalanceProof struct {
	YP, YD *ristretto255.Element
	z      *ristretto255.Scalar
}

func proveZeroBalance(t *transcript, kp *elgamal.Keypair, ct elgamal.Ciphertext) (*zeroBalanceProof, error) {
	P, err := kp.Public.Point()
	if err != nil {
		return nil, err
	}
	D, err := elgamal.DecodePoint(ct.Handle[:])
	if err != nil {
		return nil, err
	}
	y := elgamal.RandomScalar()
	p := &zeroBalanceProof{YP: mul(y, P), YD: mul(y, D)}
	t.appendElement("Y_P", p.YP)
	t.appendElement("Y_D", p.YD)
	c := t.challenge("c")
	p.z = response(c, kp.Secret.Scalar(), y)
	return p, nil
}

func (p *zeroBalanceProof) verify(t *transcript, pk elgamal.PublicKey, ct elgamal.Ciphertext) error {
	P, err := pk.Point()
	if err != nil {
		return ErrInvalidProofData
	}
	C, err1 := elgamal.DecodePoint(ct.Commitment[:])
	D, err2 := elgamal.DecodePoint(ct.Handle[:])
	if err1 != nil || err2 != nil {
		return ErrInvalidProofData
	}
	t.appendElement("Y_P", p.YP)
	t.appendElement("Y_D", p.YD)
	c := t.challenge("c")

	// z*P == c*H + Y_P
	if !equal(mul(p.z, P), msm([]*ristretto255.Scalar{c, one()}, []*ristretto255.Element{elgamal.H(), p.YP})) {
		return ErrProofVerification
	}
	// z*D == c*C + Y_D
	if !equal(mul(p.z, D), msm([]*ristretto255.Scalar{c, one()}, []*ristretto255.Element{C, p.YD})) {
		return ErrProofVerification
	}
	return nil
}

func (p *zeroBalanceProof) encode() []byte {
	out := make([]byte, 0, ZeroBalanceProofSize)
	out = appendPoint(out, p.YP)
	out = appendPoint(out, p.YD)
	return appendScalar(out, p.z)
}

func decodeZeroBalanceProof(r *reader) *zeroBalanceProof {
	return &zeroBalanceProof{YP: r.point(), YD: r.point(), z: r.scalar()}
}
