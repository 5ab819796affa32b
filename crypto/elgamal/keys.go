package elgamal

import (
	"errors"
	"fmt"

	"github.com/gtank/ristretto255"
	"github.com/solana-developers/Confidential-Transfer-Sample/accountsigner"
	"golang.org/x/crypto/sha3"
)

// secretKeyDomain prefixes the message a signer signs to derive a secret key.
const secretKeyDomain = "ElGamalSecretKey"

var (
	// ErrKeyDerivation indicates the signing credential could not produce key material.
	ErrKeyDerivation = errors.New("elgamal: key derivation failed")

	// ErrZeroSecretKey indicates a secret scalar of zero.
	ErrZeroSecretKey = errors.New("elgamal: secret key must not be zero")
)

// PublicKey is the compressed encryption key P = s^-1 * H.
type PublicKey [PointSize]byte

// SecretKey is the decryption scalar s.
type SecretKey struct {
	s *ristretto255.Scalar
}

// Keypair bundles the two halves. It never leaves the owner's machine.
type Keypair struct {
	Public PublicKey
	Secret *SecretKey
}

// NewKeypair generates a random keypair.
func NewKeypair() *Keypair {
	return NewKeypairFromSecret(&SecretKey{s: RandomScalar()})
}

// NewKeypairFromSecret computes the public half of secret.
func NewKeypairFromSecret(secret *SecretKey) *Keypair {
	inv := ristretto255.NewScalar().Invert(secret.s)
	return &Keypair{
		Public: PublicKey(EncodePoint(ristretto255.NewElement().ScalarMult(inv, H()))),
		Secret: secret,
	}
}

// NewKeypairFromSigner derives the keypair bound to (signer, publicSeed).
// The seed is usually the token account address, so every account of the
// same wallet gets an independent key that the wallet can always recompute.
func NewKeypairFromSigner(signer accountsigner.Signer, publicSeed []byte) (*Keypair, error) {
	secret, err := SecretKeyFromSigner(signer, publicSeed)
	if err != nil {
		return nil, err
	}
	return NewKeypairFromSecret(secret), nil
}

// SecretKeyFromSigner hashes the signature over "ElGamalSecretKey" || seed
// into a scalar.
func SecretKeyFromSigner(signer accountsigner.Signer, publicSeed []byte) (*SecretKey, error) {
	msg := make([]byte, 0, len(secretKeyDomain)+len(publicSeed))
	msg = append(msg, secretKeyDomain...)
	msg = append(msg, publicSeed...)
	sig, err := signer.SignMessage(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyDerivation, err)
	}
	if isZeroBytes(sig) {
		return nil, fmt.Errorf("%w: empty signature", ErrKeyDerivation)
	}
	digest := sha3.Sum512(sig)
	s := ristretto255.NewScalar().FromUniformBytes(digest[:])
	if s.Equal(ristretto255.NewScalar()) == 1 {
		return nil, fmt.Errorf("%w: %v", ErrKeyDerivation, ErrZeroSecretKey)
	}
	return &SecretKey{s: s}, nil
}

// SecretKeyFromBytes parses a canonical non-zero scalar.
func SecretKeyFromBytes(raw []byte) (*SecretKey, error) {
	s, err := DecodeScalar(raw)
	if err != nil {
		return nil, err
	}
	if s.Equal(ristretto255.NewScalar()) == 1 {
		return nil, ErrZeroSecretKey
	}
	return &SecretKey{s: s}, nil
}

func (k *SecretKey) Bytes() [ScalarSize]byte { return EncodeScalar(k.s) }

// Scalar returns a copy of the secret scalar for proof construction.
func (k *SecretKey) Scalar() *ristretto255.Scalar {
	return ristretto255.NewScalar().Add(ristretto255.NewScalar(), k.s)
}

// Point decompresses the key.
func (pk PublicKey) Point() (*ristretto255.Element, error) {
	return DecodePoint(pk[:])
}

// IsZero reports the all-zero encoding, used for "no key configured".
func (pk PublicKey) IsZero() bool { return pk == PublicKey{} }

func (pk PublicKey) String() string { return fmt.Sprintf("%x", pk[:]) }

func PublicKeyFromBytes(raw []byte) (PublicKey, error) {
	if _, err := DecodePoint(raw); err != nil {
		return PublicKey{}, err
	}
	var pk PublicKey
	copy(pk[:], raw)
	return pk, nil
}

func isZeroBytes(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
