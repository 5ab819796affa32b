package accountsigner

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/sha3"
)

// Secp256k1Signer signs sha3-256 digests with RFC6979 deterministic nonces.
type Secp256k1Signer struct {
	key *btcec.PrivateKey
}

func NewSecp256k1Signer(raw []byte) (*Secp256k1Signer, error) {
	if err := validateSecp256k1Scalar(raw); err != nil {
		return nil, err
	}
	key, _ := btcec.PrivKeyFromBytes(raw)
	return &Secp256k1Signer{key: key}, nil
}

func GenerateSecp256k1() (*Secp256k1Signer, error) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	return &Secp256k1Signer{key: key}, nil
}

func (s *Secp256k1Signer) Type() string { return SignerTypeSecp256k1 }

// PublicKey returns the 33-byte compressed public key.
func (s *Secp256k1Signer) PublicKey() []byte {
	return s.key.PubKey().SerializeCompressed()
}

// PrivateKey returns the 32-byte scalar.
func (s *Secp256k1Signer) PrivateKey() []byte {
	return s.key.Serialize()
}

func (s *Secp256k1Signer) SignMessage(message []byte) ([]byte, error) {
	digest := sha3.Sum256(message)
	return ecdsa.Sign(s.key, digest[:]).Serialize(), nil
}

func validateSecp256k1Scalar(key []byte) error {
	if len(key) != 32 {
		return fmt.Errorf("%w: secp256k1 key length %d", ErrInvalidSignerKey, len(key))
	}
	var v btcec.ModNScalar
	if overflow := v.SetByteSlice(key); overflow || v.IsZero() {
		return fmt.Errorf("%w: secp256k1 scalar out of range", ErrInvalidSignerKey)
	}
	return nil
}
