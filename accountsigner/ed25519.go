package accountsigner

import (
	"crypto/ed25519"
	"fmt"

	solana "github.com/gagliardetto/solana-go"
)

// Ed25519Signer signs with a Solana wallet key. Ed25519 signatures are
// deterministic.
type Ed25519Signer struct {
	key solana.PrivateKey
}

// NewEd25519Signer accepts either a 32-byte seed or a 64-byte expanded key.
func NewEd25519Signer(raw []byte) (*Ed25519Signer, error) {
	var key solana.PrivateKey
	switch len(raw) {
	case ed25519.SeedSize:
		key = solana.PrivateKey(ed25519.NewKeyFromSeed(raw))
	case ed25519.PrivateKeySize:
		key = append(solana.PrivateKey(nil), raw...)
	default:
		return nil, fmt.Errorf("%w: ed25519 key length %d", ErrInvalidSignerKey, len(raw))
	}
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignerKey, err)
	}
	return &Ed25519Signer{key: key}, nil
}

// GenerateEd25519 creates a signer with a fresh random key.
func GenerateEd25519() (*Ed25519Signer, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, err
	}
	return &Ed25519Signer{key: key}, nil
}

func (s *Ed25519Signer) Type() string { return SignerTypeEd25519 }

// Account returns the ledger identity of the key.
func (s *Ed25519Signer) Account() solana.PublicKey { return s.key.PublicKey() }

func (s *Ed25519Signer) PublicKey() []byte {
	pub := s.key.PublicKey()
	return pub.Bytes()
}

// PrivateKey exposes the wallet key, e.g. for base58 export.
func (s *Ed25519Signer) PrivateKey() solana.PrivateKey { return s.key }

func (s *Ed25519Signer) SignMessage(message []byte) ([]byte, error) {
	sig, err := s.key.Sign(message)
	if err != nil {
		return nil, err
	}
	return sig[:], nil
}
