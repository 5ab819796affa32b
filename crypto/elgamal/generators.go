package elgamal

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"sync"

	"github.com/gtank/ristretto255"
	"golang.org/x/crypto/sha3"
)

const (
	PointSize  = 32
	ScalarSize = 32
)

var (
	// ErrInvalidPoint indicates bytes that are not a canonical ristretto255 encoding.
	ErrInvalidPoint = errors.New("elgamal: invalid point encoding")

	// ErrInvalidScalar indicates bytes that are not a canonical scalar encoding.
	ErrInvalidScalar = errors.New("elgamal: invalid scalar encoding")
)

var (
	blindingOnce sync.Once
	blindingBase *ristretto255.Element
)

// G returns the ristretto255 base point, the generator amounts are committed on.
func G() *ristretto255.Element {
	return ristretto255.NewElement().Base()
}

// H returns the Pedersen blinding generator: the hash-to-group image of the
// sha3-512 digest of the encoded base point. Nobody knows log_G(H).
func H() *ristretto255.Element {
	blindingOnce.Do(func() {
		digest := sha3.Sum512(G().Encode(nil))
		blindingBase = ristretto255.NewElement().FromUniformBytes(digest[:])
	})
	return ristretto255.NewElement().Add(ristretto255.NewElement(), blindingBase)
}

// RandomScalar draws a uniformly random non-zero scalar.
func RandomScalar() *ristretto255.Scalar {
	zero := ristretto255.NewScalar()
	for {
		var seed [64]byte
		if _, err := rand.Read(seed[:]); err != nil {
			panic("elgamal: system randomness unavailable: " + err.Error())
		}
		s := ristretto255.NewScalar().FromUniformBytes(seed[:])
		if s.Equal(zero) == 0 {
			return s
		}
	}
}

// ScalarFromUint64 embeds v as a scalar.
func ScalarFromUint64(v uint64) *ristretto255.Scalar {
	var raw [ScalarSize]byte
	binary.LittleEndian.PutUint64(raw[:8], v)
	s := ristretto255.NewScalar()
	if err := s.Decode(raw[:]); err != nil {
		// Every 64-bit value is below the group order.
		panic(err)
	}
	return s
}

// DecodePoint parses a 32-byte compressed point.
func DecodePoint(raw []byte) (*ristretto255.Element, error) {
	if len(raw) != PointSize {
		return nil, ErrInvalidPoint
	}
	p := ristretto255.NewElement()
	if err := p.Decode(raw); err != nil {
		return nil, ErrInvalidPoint
	}
	return p, nil
}

// DecodeScalar parses a 32-byte canonical scalar.
func DecodeScalar(raw []byte) (*ristretto255.Scalar, error) {
	if len(raw) != ScalarSize {
		return nil, ErrInvalidScalar
	}
	s := ristretto255.NewScalar()
	if err := s.Decode(raw); err != nil {
		return nil, ErrInvalidScalar
	}
	return s, nil
}

// EncodePoint returns the compressed form of p.
func EncodePoint(p *ristretto255.Element) [PointSize]byte {
	var out [PointSize]byte
	copy(out[:], p.Encode(nil))
	return out
}

// EncodeScalar returns the canonical form of s.
func EncodeScalar(s *ristretto255.Scalar) [ScalarSize]byte {
	var out [ScalarSize]byte
	copy(out[:], s.Encode(nil))
	return out
}
