package accountsigner

import (
	"errors"
	"strings"
)

const (
	SignerTypeEd25519   = "ed25519"
	SignerTypeSecp256k1 = "secp256k1"
)

var (
	// ErrUnknownSignerType indicates an unsupported signer type name.
	ErrUnknownSignerType = errors.New("accountsigner: unknown signer type")

	// ErrInvalidSignerKey indicates private key bytes that do not form a valid key.
	ErrInvalidSignerKey = errors.New("accountsigner: invalid signer private key")

	// ErrInvalidDerivationPath indicates a malformed hierarchical derivation path.
	ErrInvalidDerivationPath = errors.New("accountsigner: invalid derivation path")
)

// Signer is a signing credential. Keys derived from a signer are a function of
// its signatures, so implementations must sign deterministically: the same
// message always yields the same signature bytes.
type Signer interface {
	Type() string
	PublicKey() []byte
	SignMessage(message []byte) ([]byte, error)
}

// CanonicalSignerType normalizes a user supplied signer type name.
func CanonicalSignerType(signerType string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(signerType)) {
	case SignerTypeEd25519, "solana":
		return SignerTypeEd25519, nil
	case SignerTypeSecp256k1, "ecdsa":
		return SignerTypeSecp256k1, nil
	default:
		return "", ErrUnknownSignerType
	}
}

// ParsePrivateKey builds a signer of the given type from raw key bytes.
func ParsePrivateKey(signerType string, raw []byte) (Signer, error) {
	canonical, err := CanonicalSignerType(signerType)
	if err != nil {
		return nil, err
	}
	switch canonical {
	case SignerTypeEd25519:
		return NewEd25519Signer(raw)
	default:
		return NewSecp256k1Signer(raw)
	}
}
